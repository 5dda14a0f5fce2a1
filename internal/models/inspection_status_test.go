package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every status must render in the console: a badge with text and colors, and
// a description for the detail pane. A miss here means a blank badge in the
// list view.
func TestStatusPresentationIsTotal(t *testing.T) {
	for _, st := range AllInspectionStatuses {
		assert.NotEmpty(t, StatusLabel(st), "label for %s", st)
		assert.NotEmpty(t, StatusDescription(st), "description for %s", st)

		style := BadgeStyle(st)
		assert.NotEmpty(t, style.Background, "badge background for %s", st)
		assert.NotEmpty(t, style.Color, "badge color for %s", st)
	}
}

func TestApproveAndRejectAreOfferedTogether(t *testing.T) {
	for _, st := range AllInspectionStatuses {
		assert.Equal(t, CanApprove(st), CanReject(st), "approve/reject disagree at %s", st)
		if st == StatusPendingTransaction {
			assert.True(t, CanApprove(st))
		} else {
			assert.False(t, CanApprove(st), "admin action leaked to %s", st)
		}
	}
}

func TestStageForCoversEveryStatus(t *testing.T) {
	negotiation := map[InspectionStatus]bool{
		StatusNegotiationCountered: true,
		StatusNegotiationAccepted:  true,
		StatusNegotiationRejected:  true,
		StatusNegotiationCancelled: true,
	}
	for _, st := range AllInspectionStatuses {
		want := StageInspection
		if negotiation[st] {
			want = StageNegotiation
		}
		assert.Equal(t, want, StageFor(st), "stage for %s", st)
		assert.Equal(t, StageFor(st), StageFor(st), "stage for %s is not stable", st)
	}
}

func TestTerminalStatusesAwaitNobody(t *testing.T) {
	terminals := 0
	for _, st := range AllInspectionStatuses {
		if !IsTerminal(st) {
			continue
		}
		terminals++
		assert.Equal(t, PendingNone, PendingPartyFor(st), "terminal %s still awaits a party", st)
	}
	// The table has seven dead ends; a new terminal should be a deliberate
	// lifecycle change, not a dropped transition entry.
	require.Equal(t, 7, terminals)
}

func TestFilterValuesOmitEmptyFields(t *testing.T) {
	v := InspectionFilter{Statuses: []InspectionStatus{}}.Values()
	assert.NotContains(t, v, "status")
	assert.Empty(t, v.Encode())

	v = InspectionFilter{Statuses: []InspectionStatus{StatusCompleted, StatusCancelled}}.Values()
	require.Equal(t, []string{"completed", "cancelled"}, v["status"])
	assert.NotContains(t, v.Encode(), "%2C")
}
