package models

import (
	"time"

	"github.com/lendery/backend/pkg/types"
)

// ListingPaymentState is the payment/publication facet of a listing.
//
// Invariant: Visible is true only while PaymentStatus is paid. Only the
// transition executor and the admin override controller mutate these columns;
// CRUD endpoints never write them directly.
type ListingPaymentState struct {
	ID            string              `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ListingID     string              `gorm:"column:listing_id;type:varchar(64);not null;uniqueIndex:unique_listing_id" json:"listing_id"`
	OwnerID       string              `gorm:"column:owner_id;type:varchar(64);not null;index" json:"owner_id"`
	PaymentStatus types.PaymentStatus `gorm:"column:payment_status;type:varchar(32);not null" json:"payment_status"`
	Visible       bool                `gorm:"column:visible;not null;default:false" json:"visible"`
	// PaymentWaived marks listings force-published by an admin without a
	// cleared payment. It is what keeps Visible ⇒ paid true for overrides.
	PaymentWaived    bool                   `gorm:"column:payment_waived;not null;default:false" json:"payment_waived"`
	SubmissionStatus types.SubmissionStatus `gorm:"column:submission_status;type:varchar(32);not null" json:"submission_status"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

func (ListingPaymentState) TableName() string { return "listing_payment_state" }

// PubliclyVisible reports whether the listing may be served to readers.
func (s *ListingPaymentState) PubliclyVisible() bool {
	return s != nil && s.Visible && s.PaymentStatus == types.PaymentStatusPaid
}
