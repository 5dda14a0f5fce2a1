package models

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

// Price is a monetary amount. Values are in the currency's major unit.
type Price struct {
	Value        float64 `bson:"value" json:"value"`
	CurrencyCode string  `bson:"currency_code" json:"currencyCode"`
}

// InspectionBooking is a buyer's scheduled viewing request for a property,
// tracked through the approval and negotiation lifecycle. Bookings are never
// hard-deleted: they only terminate into a terminal status. The Deleted flag
// exists for admin housekeeping and excludes a record from every query.
type InspectionBooking struct {
	ID          utils.ShortID `bson:"_id,omitempty" json:"id,omitempty"`
	PropertyID  utils.ShortID `bson:"property_id" json:"propertyId"`
	RequestedBy utils.ShortID `bson:"requested_by" json:"requestedBy"` // buyer
	Owner       utils.ShortID `bson:"owner" json:"owner"`              // seller

	Status              InspectionStatus `bson:"status" json:"status"`
	Stage               InspectionStage  `bson:"stage" json:"stage"`
	PendingResponseFrom PendingParty     `bson:"pending_response_from" json:"pendingResponseFrom"`

	IsNegotiating      bool   `bson:"is_negotiating" json:"isNegotiating"`
	NegotiationPrice   *Price `bson:"negotiation_price,omitempty" json:"negotiationPrice,omitempty"`
	SellerCounterOffer *Price `bson:"seller_counter_offer,omitempty" json:"sellerCounterOffer,omitempty"`

	// S3 key of an uploaded letter-of-intent document. When present the
	// booking displays under the LOI stage.
	LetterOfIntention string `bson:"letter_of_intention,omitempty" json:"letterOfIntention,omitempty"`

	InspectionDate string `bson:"inspection_date" json:"inspectionDate"` // YYYY-MM-DD
	InspectionTime string `bson:"inspection_time" json:"inspectionTime"` // HH:MM

	RejectionReason string `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`

	// Denormalized from the property and buyer for display and search.
	PropertyAddress string `bson:"property_address" json:"propertyAddress"`
	BuyerEmail      string `bson:"buyer_email" json:"buyerEmail"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
	Deleted   bool      `bson:"deleted" json:"-"`
}

// DisplayStage is the stage shown in the console: a submitted letter of
// intent overrides the status-derived stage for display only. Transitions
// always run off Status.
func (b *InspectionBooking) DisplayStage() InspectionStage {
	if b.LetterOfIntention != "" {
		return StageLOI
	}
	return StageFor(b.Status)
}

// Normalize derives every dependent field from Status. Called on every
// write so stage, pending party and the negotiation flag can never disagree
// with the status that produced them.
func (b *InspectionBooking) Normalize() {
	b.Stage = StageFor(b.Status)
	b.PendingResponseFrom = PendingPartyFor(b.Status)
	b.IsNegotiating = b.Stage == StageNegotiation && b.NegotiationPrice != nil
}

// Validate checks the cross-field invariants on a booking read back from
// storage or an external source.
func (b *InspectionBooking) Validate() error {
	if _, err := ParseInspectionStatus(string(b.Status)); err != nil {
		return err
	}
	if b.Stage != StageFor(b.Status) && !(b.Stage == StageLOI && b.LetterOfIntention != "") {
		return fmt.Errorf("booking %s: stage %q disagrees with status %q", b.ID, b.Stage, b.Status)
	}
	if IsTerminal(b.Status) && b.PendingResponseFrom != PendingNone {
		return fmt.Errorf("booking %s: terminal status %q with pending response from %q", b.ID, b.Status, b.PendingResponseFrom)
	}
	if b.IsNegotiating && (StageFor(b.Status) != StageNegotiation || b.NegotiationPrice == nil) {
		return fmt.Errorf("booking %s: isNegotiating set outside an active negotiation", b.ID)
	}
	return nil
}

// InspectionFilter is the structured filter behind the booking list view.
// Zero-valued fields are omitted from queries.
type InspectionFilter struct {
	Search              string
	Statuses            []InspectionStatus
	Stage               InspectionStage
	PendingResponseFrom PendingParty
	Page                int
	Limit               int
}

// Values serializes the filter for the list endpoint. Empty fields are
// omitted entirely and multi-valued statuses appear as repeated status
// parameters, never comma-joined.
func (f InspectionFilter) Values() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	for _, st := range f.Statuses {
		if st != "" {
			v.Add("status", string(st))
		}
	}
	if f.Stage != "" {
		v.Set("stage", string(f.Stage))
	}
	if f.PendingResponseFrom != "" {
		v.Set("pending_response_from", string(f.PendingResponseFrom))
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v
}

// QueryKey is the canonical cache key for a list query. url.Values.Encode
// sorts by key, so equal filters always produce equal keys.
func (f InspectionFilter) QueryKey() string {
	return f.Values().Encode()
}

// PageResult is the pagination envelope every list endpoint returns.
type PageResult struct {
	Data       []InspectionBooking `json:"data"`
	Total      int64               `json:"total"`
	TotalPages int64               `json:"totalPages"`
}
