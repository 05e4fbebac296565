package types

// PaymentStatus is the payment facet of a listing's publication state.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPending PaymentStatus = "payment_pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// SubmissionStatus is the editorial facet of a listing.
type SubmissionStatus string

const (
	SubmissionStatusDraft         SubmissionStatus = "draft"
	SubmissionStatusPendingReview SubmissionStatus = "pending_review"
	SubmissionStatusRejected      SubmissionStatus = "rejected"
	SubmissionStatusClosed        SubmissionStatus = "closed"
)

// PaymentPurpose says what a payment record pays for.
type PaymentPurpose string

const (
	PaymentPurposeListingFee   PaymentPurpose = "listing_fee"
	PaymentPurposeSubscription PaymentPurpose = "subscription"
)

// PaymentRecordStatus is the lifecycle state of one payment attempt.
// Completed, failed and cancelled are terminal; only a pending record
// may still transition.
type PaymentRecordStatus string

const (
	PaymentRecordStatusPending   PaymentRecordStatus = "pending"
	PaymentRecordStatusCompleted PaymentRecordStatus = "completed"
	PaymentRecordStatusFailed    PaymentRecordStatus = "failed"
	PaymentRecordStatusCancelled PaymentRecordStatus = "cancelled"
)

func (s PaymentRecordStatus) Terminal() bool {
	return s == PaymentRecordStatusCompleted || s == PaymentRecordStatusFailed || s == PaymentRecordStatusCancelled
}

// TargetKind names what an admin override points at.
type TargetKind string

const (
	TargetKindListing TargetKind = "listing"
	TargetKindAccount TargetKind = "account"
	TargetKindPayment TargetKind = "payment"
)
