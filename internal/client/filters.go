package client

import "github.com/KHABI-TEQ/console-admin/internal/models"

// FilterBuilder assembles the booking list filter the way the console's
// filter bar does. Every filter change resets pagination to page one, so a
// narrower result set can never leave the view stranded past its last page.
type FilterBuilder struct {
	filter models.InspectionFilter
}

// NewFilterBuilder starts from an unfiltered first page.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{filter: models.InspectionFilter{Page: 1}}
}

// WithSearch sets the free-text search and resets to page one.
func (b *FilterBuilder) WithSearch(search string) *FilterBuilder {
	b.filter.Search = search
	b.filter.Page = 1
	return b
}

// WithStatuses sets the multi-status filter and resets to page one.
// Unknown statuses are dropped rather than sent: the server would reject
// the whole request otherwise.
func (b *FilterBuilder) WithStatuses(statuses ...models.InspectionStatus) *FilterBuilder {
	valid := statuses[:0]
	for _, s := range statuses {
		if _, err := models.ParseInspectionStatus(string(s)); err == nil {
			valid = append(valid, s)
		}
	}
	b.filter.Statuses = valid
	b.filter.Page = 1
	return b
}

// WithStage sets the stage filter and resets to page one.
func (b *FilterBuilder) WithStage(stage models.InspectionStage) *FilterBuilder {
	b.filter.Stage = stage
	b.filter.Page = 1
	return b
}

// WithPendingResponseFrom sets the awaited-party filter and resets to page
// one.
func (b *FilterBuilder) WithPendingResponseFrom(party models.PendingParty) *FilterBuilder {
	b.filter.PendingResponseFrom = party
	b.filter.Page = 1
	return b
}

// WithLimit sets the page size and resets to page one.
func (b *FilterBuilder) WithLimit(limit int) *FilterBuilder {
	b.filter.Limit = limit
	b.filter.Page = 1
	return b
}

// Page moves to the given page without touching the filters.
func (b *FilterBuilder) Page(page int) *FilterBuilder {
	if page < 1 {
		page = 1
	}
	b.filter.Page = page
	return b
}

// Build returns the assembled filter.
func (b *FilterBuilder) Build() models.InspectionFilter {
	out := b.filter
	out.Statuses = append([]models.InspectionStatus(nil), b.filter.Statuses...)
	return out
}
