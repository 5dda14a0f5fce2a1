package models

import (
	"time"

	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

// UserType distinguishes marketplace participants.
type UserType string

const (
	UserAgent    UserType = "agent"
	UserLandlord UserType = "landlord"
	UserBuyer    UserType = "buyer"
)

// User is a marketplace participant (agent, landlord or buyer). Agents and
// landlords go through onboarding review before they can submit briefs.
type User struct {
	Base        `bson:",inline"`
	Type        UserType `bson:"type" json:"type"`
	Email       string   `bson:"email" json:"email"`
	FirstName   string   `bson:"first_name" json:"firstName"`
	LastName    string   `bson:"last_name" json:"lastName"`
	PhoneNumber string   `bson:"phone_number" json:"phoneNumber"`

	// Onboarding review outcome. Buyers are onboarded implicitly and start
	// out approved.
	Onboarded  bool   `bson:"onboarded" json:"onboarded"`
	Flagged    bool   `bson:"flagged" json:"flagged"`
	FlagReason string `bson:"flag_reason,omitempty" json:"flagReason,omitempty"`

	// Agent/landlord extras, absent for buyers.
	AgencyName string `bson:"agency_name,omitempty" json:"agencyName,omitempty"`
	Region     string `bson:"region,omitempty" json:"region,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
	Deleted   bool      `bson:"deleted" json:"-"`
}

// UserFilter narrows the admin user lists.
type UserFilter struct {
	Search  string
	Type    UserType
	Flagged *bool
	Page    int
	Limit   int
}

// Admin is a console operator account.
type Admin struct {
	Base         `bson:",inline"`
	Email        string `bson:"email" json:"email"`
	FirstName    string `bson:"first_name" json:"firstName"`
	LastName     string `bson:"last_name" json:"lastName"`
	PasswordHash string `bson:"password_hash" json:"-"`
	SuperAdmin   bool   `bson:"super_admin" json:"superAdmin"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
	Deleted   bool      `bson:"deleted" json:"-"`
}

// Contact is a CRM record created from enquiry forms and manual entry.
type Contact struct {
	ID      utils.ShortID `bson:"_id,omitempty" json:"id,omitempty"`
	Email   string        `bson:"email" json:"email"`
	Name    string        `bson:"name" json:"name"`
	Phone   string        `bson:"phone,omitempty" json:"phone,omitempty"`
	Subject string        `bson:"subject,omitempty" json:"subject,omitempty"`
	Message string        `bson:"message,omitempty" json:"message,omitempty"`
	Notes   []ContactNote `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
	Deleted   bool      `bson:"deleted" json:"-"`
}

// ContactNote is an admin annotation on a contact.
type ContactNote struct {
	AdminID   utils.ShortID `bson:"admin_id" json:"adminId"`
	Body      string        `bson:"body" json:"body"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
}

// Notification is a record of an admin-facing event (the server-side
// counterpart of the console's toast queue).
type Notification struct {
	ID        utils.ShortID `bson:"_id,omitempty" json:"id,omitempty"`
	Kind      string        `bson:"kind" json:"kind"` // e.g. "inspection_approved"
	Message   string        `bson:"message" json:"message"`
	SubjectID utils.ShortID `bson:"subject_id,omitempty" json:"subjectId,omitempty"`
	Read      bool          `bson:"read" json:"read"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
}
