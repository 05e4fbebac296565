package reconcile

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lendery/backend/internal/models"
	"github.com/lendery/backend/pkg/types"
)

// TransitionEvent names one cause of a payment-status change.
type TransitionEvent string

const (
	TransitionPaymentSucceeded TransitionEvent = "payment_succeeded"
	TransitionPaymentFailed    TransitionEvent = "payment_failed"
	TransitionPaymentCancelled TransitionEvent = "payment_cancelled"
	TransitionAdminApprove     TransitionEvent = "admin_approve"
	TransitionAdminDeny        TransitionEvent = "admin_deny"
	TransitionAdminRevert      TransitionEvent = "admin_revert"
)

type transitionOutcome struct {
	to      types.PaymentStatus
	visible bool
	// submission, when non-nil, moves the editorial facet in the same write.
	submission *types.SubmissionStatus
}

func submission(s types.SubmissionStatus) *types.SubmissionStatus { return &s }

// transitionTable is the single source of legality for payment_status
// changes. Anything not listed here is rejected at the executor boundary,
// no matter who asks.
var transitionTable = map[types.PaymentStatus]map[TransitionEvent]transitionOutcome{
	types.PaymentStatusUnpaid: {
		TransitionPaymentSucceeded: {to: types.PaymentStatusPending},
	},
	types.PaymentStatusPending: {
		TransitionAdminApprove:     {to: types.PaymentStatusPaid, visible: true},
		TransitionAdminDeny:        {to: types.PaymentStatusUnpaid, submission: submission(types.SubmissionStatusRejected)},
		TransitionPaymentFailed:    {to: types.PaymentStatusUnpaid},
		TransitionPaymentCancelled: {to: types.PaymentStatusUnpaid},
	},
	types.PaymentStatusPaid: {
		TransitionAdminRevert: {to: types.PaymentStatusUnpaid},
	},
}

// ApplyResult is the outcome of one conditional state change.
type ApplyResult int

const (
	Applied ApplyResult = iota
	PreconditionFailed
)

// Executor applies governed state changes as conditional writes: an update
// only lands if the row is still in the expected prior state, so any
// interleaving of racing writers has exactly one winner. Payment status and
// visibility always change in the same statement; there is no observable
// window where they disagree.
type Executor struct{}

// Apply moves listingID from the expected prior status via ev. Returns
// ErrIllegalTransition before touching storage when the pair is not in the
// table; returns PreconditionFailed (not an error) when another writer got
// there first.
func (Executor) Apply(ctx context.Context, tx *gorm.DB, listingID string, from types.PaymentStatus, ev TransitionEvent) (ApplyResult, error) {
	byEvent, ok := transitionTable[from]
	if !ok {
		return 0, fmt.Errorf("%w: no transitions from %q", ErrIllegalTransition, from)
	}
	out, ok := byEvent[ev]
	if !ok {
		return 0, fmt.Errorf("%w: %q on %q", ErrIllegalTransition, ev, from)
	}

	updates := map[string]any{
		"payment_status": out.to,
		"visible":        out.visible,
	}
	if out.submission != nil {
		updates["submission_status"] = *out.submission
	}

	res := tx.WithContext(ctx).
		Model(&models.ListingPaymentState{}).
		Where("listing_id = ? AND payment_status = ?", listingID, from).
		Updates(updates)
	if res.Error != nil {
		return 0, fmt.Errorf("apply %s on listing %s: %w", ev, listingID, res.Error)
	}
	if res.RowsAffected == 0 {
		return PreconditionFailed, nil
	}
	return Applied, nil
}

// LegalEvents lists the events accepted from a given status. Used by admin
// surfaces to report what an operator may do next.
func LegalEvents(from types.PaymentStatus) []TransitionEvent {
	byEvent := transitionTable[from]
	events := make([]TransitionEvent, 0, len(byEvent))
	for ev := range byEvent {
		events = append(events, ev)
	}
	return events
}

// SettleRecord moves the payment record for intentID out of pending into a
// terminal status, conditionally. Terminal records are immutable: a second
// settlement attempt affects zero rows and reports PreconditionFailed.
func (Executor) SettleRecord(ctx context.Context, tx *gorm.DB, intentID string, to types.PaymentRecordStatus, extra *models.PaymentRecordExtra) (ApplyResult, error) {
	if !to.Terminal() {
		return 0, fmt.Errorf("%w: payment record may only settle to a terminal status, got %q", ErrIllegalTransition, to)
	}
	updates := map[string]any{"status": to}
	if extra != nil {
		updates["extra"] = datatypes.NewJSONType(extra)
	}
	res := tx.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("external_intent_id = ? AND status = ?", intentID, types.PaymentRecordStatusPending).
		Updates(updates)
	if res.Error != nil {
		return 0, fmt.Errorf("settle record %s: %w", intentID, res.Error)
	}
	if res.RowsAffected == 0 {
		return PreconditionFailed, nil
	}
	return Applied, nil
}
