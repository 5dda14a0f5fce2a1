package models

import "fmt"

// InspectionStatus is the fine-grained lifecycle state of an inspection
// booking. The set is closed: values outside it are rejected at the API
// boundary and never written to the database.
type InspectionStatus string

const (
	StatusPendingTransaction       InspectionStatus = "pending_transaction"
	StatusTransactionFailed        InspectionStatus = "transaction_failed"
	StatusPendingInspection        InspectionStatus = "pending_inspection"
	StatusInspectionApproved       InspectionStatus = "inspection_approved"
	StatusInspectionRescheduled    InspectionStatus = "inspection_rescheduled"
	StatusInspectionRejectedSeller InspectionStatus = "inspection_rejected_by_seller"
	StatusInspectionRejectedBuyer  InspectionStatus = "inspection_rejected_by_buyer"
	StatusNegotiationCountered     InspectionStatus = "negotiation_countered"
	StatusNegotiationAccepted      InspectionStatus = "negotiation_accepted"
	StatusNegotiationRejected      InspectionStatus = "negotiation_rejected"
	StatusNegotiationCancelled     InspectionStatus = "negotiation_cancelled"
	StatusCompleted                InspectionStatus = "completed"
	StatusCancelled                InspectionStatus = "cancelled"
)

// InspectionStage is the coarse phase of a booking.
type InspectionStage string

const (
	StageInspection  InspectionStage = "inspection"
	StageNegotiation InspectionStage = "negotiation"
	StageLOI         InspectionStage = "LOI"
)

// PendingParty indicates whose action is awaited on a booking.
type PendingParty string

const (
	PendingBuyer  PendingParty = "buyer"
	PendingSeller PendingParty = "seller"
	PendingNone   PendingParty = "none"
)

// AllInspectionStatuses lists every valid status. Order matches lifecycle
// progression and is relied on by the console's filter dropdowns.
var AllInspectionStatuses = []InspectionStatus{
	StatusPendingTransaction,
	StatusTransactionFailed,
	StatusPendingInspection,
	StatusInspectionApproved,
	StatusInspectionRescheduled,
	StatusInspectionRejectedSeller,
	StatusInspectionRejectedBuyer,
	StatusNegotiationCountered,
	StatusNegotiationAccepted,
	StatusNegotiationRejected,
	StatusNegotiationCancelled,
	StatusCompleted,
	StatusCancelled,
}

// ParseInspectionStatus validates a raw string against the closed set.
func ParseInspectionStatus(s string) (InspectionStatus, error) {
	for _, st := range AllInspectionStatuses {
		if InspectionStatus(s) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown inspection status: %q", s)
}

// ParseInspectionStage validates a raw string against the stage set.
func ParseInspectionStage(s string) (InspectionStage, error) {
	switch InspectionStage(s) {
	case StageInspection, StageNegotiation, StageLOI:
		return InspectionStage(s), nil
	}
	return "", fmt.Errorf("unknown inspection stage: %q", s)
}

// ParsePendingParty validates a raw string against the party set.
func ParsePendingParty(s string) (PendingParty, error) {
	switch PendingParty(s) {
	case PendingBuyer, PendingSeller, PendingNone:
		return PendingParty(s), nil
	}
	return "", fmt.Errorf("unknown pending party: %q", s)
}

// allowedTransitions is the authoritative transition table. A missing entry
// means the source status is terminal.
var allowedTransitions = map[InspectionStatus]map[InspectionStatus]bool{
	StatusPendingTransaction: {
		StatusTransactionFailed: true,
		StatusPendingInspection: true,
	},
	StatusPendingInspection: {
		StatusInspectionApproved:       true,
		StatusInspectionRescheduled:    true,
		StatusInspectionRejectedSeller: true,
		StatusInspectionRejectedBuyer:  true,
	},
	// A rescheduled booking is back to awaiting confirmation, same exits as
	// pending_inspection (minus rescheduling onto itself being a no-op is
	// allowed: parties can reschedule more than once).
	StatusInspectionRescheduled: {
		StatusInspectionApproved:       true,
		StatusInspectionRescheduled:    true,
		StatusInspectionRejectedSeller: true,
		StatusInspectionRejectedBuyer:  true,
	},
	StatusInspectionApproved: {
		StatusNegotiationCountered: true, // negotiation is optional
		StatusCompleted:            true,
		StatusCancelled:            true,
	},
	StatusNegotiationCountered: {
		StatusNegotiationAccepted:  true,
		StatusNegotiationRejected:  true,
		StatusNegotiationCancelled: true,
	},
	StatusNegotiationAccepted: {
		StatusCompleted: true,
	},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to InspectionStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// IsTerminal reports whether a booking in this status can never move again.
func IsTerminal(status InspectionStatus) bool {
	next, ok := allowedTransitions[status]
	return !ok || len(next) == 0
}

// CanApprove reports whether the admin Approve action is available.
// Approving is the only admin-initiated forward transition: the admin gates
// the financial transaction before it reaches the buyer and seller. All
// other forward progress is driven by buyer/seller actions.
func CanApprove(status InspectionStatus) bool {
	return status == StatusPendingTransaction
}

// CanReject mirrors CanApprove: both actions are offered together, only at
// pending_transaction.
func CanReject(status InspectionStatus) bool {
	return status == StatusPendingTransaction
}

// StageFor derives the stage grouping from a status. Every status maps to
// exactly one stage; negotiation_* statuses are the negotiation stage and
// everything else is the inspection stage. The LOI stage is not reachable
// from a status alone, see InspectionBooking.DisplayStage.
func StageFor(status InspectionStatus) InspectionStage {
	switch status {
	case StatusNegotiationCountered, StatusNegotiationAccepted,
		StatusNegotiationRejected, StatusNegotiationCancelled:
		return StageNegotiation
	}
	return StageInspection
}

// PendingPartyFor gives the counterparty whose action is awaited at each
// status. Terminal statuses always map to none.
func PendingPartyFor(status InspectionStatus) PendingParty {
	switch status {
	case StatusPendingInspection:
		// Seller has to confirm or reschedule the requested slot.
		return PendingSeller
	case StatusInspectionRescheduled:
		// Buyer has to accept the new slot.
		return PendingBuyer
	case StatusInspectionApproved:
		// Buyer attends and decides whether to negotiate or proceed.
		return PendingBuyer
	case StatusNegotiationCountered:
		// Seller countered; buyer must accept, reject or cancel.
		return PendingBuyer
	}
	return PendingNone
}

// StatusLabel is the badge text shown against a booking in the console.
// Unknown values fall through to a generic label rather than panicking.
func StatusLabel(status InspectionStatus) string {
	switch status {
	case StatusPendingTransaction:
		return "Pending Transaction Approval"
	case StatusTransactionFailed:
		return "Transaction Failed"
	case StatusPendingInspection:
		return "Pending Inspection"
	case StatusInspectionApproved:
		return "Inspection Approved"
	case StatusInspectionRescheduled:
		return "Inspection Rescheduled"
	case StatusInspectionRejectedSeller:
		return "Rejected By Seller"
	case StatusInspectionRejectedBuyer:
		return "Rejected By Buyer"
	case StatusNegotiationCountered:
		return "Counter Offer Sent"
	case StatusNegotiationAccepted:
		return "Offer Accepted"
	case StatusNegotiationRejected:
		return "Offer Rejected"
	case StatusNegotiationCancelled:
		return "Negotiation Cancelled"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	}
	return "No Actions Available"
}

// StatusDescription explains to the admin why no action is available at a
// given status. Shown only when neither Approve nor Reject applies.
func StatusDescription(status InspectionStatus) string {
	switch status {
	case StatusPendingTransaction:
		return "The buyer has paid the inspection fee. Approve to forward the request to the seller, or reject to refund."
	case StatusTransactionFailed:
		return "The inspection fee transaction failed or was rejected. No further action is possible."
	case StatusPendingInspection:
		return "The request has been forwarded. Waiting for the seller to confirm the inspection date."
	case StatusInspectionApproved:
		return "The seller confirmed the inspection. Waiting for the buyer to inspect and respond."
	case StatusInspectionRescheduled:
		return "The seller proposed a new date. Waiting for the buyer to accept the new slot."
	case StatusInspectionRejectedSeller:
		return "The seller declined the inspection request. No further action is possible."
	case StatusInspectionRejectedBuyer:
		return "The buyer withdrew the inspection request. No further action is possible."
	case StatusNegotiationCountered:
		return "The seller sent a counter offer. Waiting for the buyer to accept or reject it."
	case StatusNegotiationAccepted:
		return "Both parties agreed on a price. The transaction will complete once documents are signed."
	case StatusNegotiationRejected:
		return "The buyer rejected the counter offer. No further action is possible."
	case StatusNegotiationCancelled:
		return "Negotiation was cancelled by one of the parties. No further action is possible."
	case StatusCompleted:
		return "This inspection has been completed. No further action is possible."
	case StatusCancelled:
		return "This inspection was cancelled. No further action is possible."
	}
	return "No Actions Available"
}

// StyleToken is a presentation color pairing served to the console so badge
// styling never has to be hardcoded client-side.
type StyleToken struct {
	Background string `json:"background"`
	Color      string `json:"color"`
}

// BadgeStyle maps a status to its badge colors. Total over the closed set;
// unknown values get the neutral token.
func BadgeStyle(status InspectionStatus) StyleToken {
	switch status {
	case StatusPendingTransaction:
		return StyleToken{Background: "#FFF7E6", Color: "#B76E00"}
	case StatusTransactionFailed:
		return StyleToken{Background: "#FFEBEB", Color: "#B42318"}
	case StatusPendingInspection:
		return StyleToken{Background: "#EAF2FF", Color: "#1D4ED8"}
	case StatusInspectionApproved:
		return StyleToken{Background: "#E8FBF1", Color: "#0F7B4D"}
	case StatusInspectionRescheduled:
		return StyleToken{Background: "#F3E8FF", Color: "#7E22CE"}
	case StatusInspectionRejectedSeller, StatusInspectionRejectedBuyer:
		return StyleToken{Background: "#FFEBEB", Color: "#B42318"}
	case StatusNegotiationCountered:
		return StyleToken{Background: "#FFF7E6", Color: "#B76E00"}
	case StatusNegotiationAccepted:
		return StyleToken{Background: "#E8FBF1", Color: "#0F7B4D"}
	case StatusNegotiationRejected, StatusNegotiationCancelled:
		return StyleToken{Background: "#FFEBEB", Color: "#B42318"}
	case StatusCompleted:
		return StyleToken{Background: "#E8FBF1", Color: "#0F7B4D"}
	case StatusCancelled:
		return StyleToken{Background: "#F2F4F7", Color: "#475467"}
	}
	return StyleToken{Background: "#F2F4F7", Color: "#475467"}
}

// StageBadgeStyle maps a stage to its badge colors.
func StageBadgeStyle(stage InspectionStage) StyleToken {
	switch stage {
	case StageInspection:
		return StyleToken{Background: "#EAF2FF", Color: "#1D4ED8"}
	case StageNegotiation:
		return StyleToken{Background: "#FFF7E6", Color: "#B76E00"}
	case StageLOI:
		return StyleToken{Background: "#F3E8FF", Color: "#7E22CE"}
	}
	return StyleToken{Background: "#F2F4F7", Color: "#475467"}
}
