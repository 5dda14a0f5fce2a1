package models

import (
	"time"

	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

// PropertyState tracks a property brief through admin review.
type PropertyState string

const (
	PropertyPending  PropertyState = "pending"  // submitted, awaiting review
	PropertyApproved PropertyState = "approved" // live on the marketplace
	PropertyRejected PropertyState = "rejected"
	PropertyFlagged  PropertyState = "flagged"
)

// BriefType is how the property is being offered.
type BriefType string

const (
	BriefSell BriefType = "sell"
	BriefRent BriefType = "rent"
	BriefJV   BriefType = "jv" // joint venture
)

// Property is a listing submitted by an agent or landlord (a "brief") which
// an admin approves into the marketplace.
type Property struct {
	ID      utils.ShortID `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID utils.ShortID `bson:"owner_id" json:"ownerId"`

	BriefType    BriefType     `bson:"brief_type" json:"briefType"`
	State        PropertyState `bson:"state" json:"state"`
	PropertyType string        `bson:"property_type" json:"propertyType"` // e.g. "duplex", "land"
	Address      string        `bson:"address" json:"address"`
	LocalGovt    string        `bson:"local_govt" json:"localGovt"`
	StateRegion  string        `bson:"state_region" json:"stateRegion"`
	Price        *Price        `bson:"price,omitempty" json:"price,omitempty"`
	Bedrooms     int           `bson:"bedrooms,omitempty" json:"bedrooms,omitempty"`
	Features     []string      `bson:"features,omitempty" json:"features,omitempty"`
	Documents    []string      `bson:"documents,omitempty" json:"documents,omitempty"`
	Images       []string      `bson:"images" json:"images"` // S3 keys

	RejectionReason string `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`
	FlagReason      string `bson:"flag_reason,omitempty" json:"flagReason,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
	Deleted   bool      `bson:"deleted" json:"-"`
}

// PropertyFilter narrows the admin property list.
type PropertyFilter struct {
	Search    string
	State     PropertyState
	BriefType BriefType
	Page      int
	Limit     int
}
