package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lendery/backend/internal/models"
	"github.com/lendery/backend/internal/platform/provider"
	"github.com/lendery/backend/pkg/logctx"
	"github.com/lendery/backend/pkg/metrics"
	"github.com/lendery/backend/pkg/tool"
	"github.com/lendery/backend/pkg/types"
)

// OverrideAction names one privileged out-of-band action.
type OverrideAction string

const (
	OverrideActionApprove          OverrideAction = "approve"
	OverrideActionDeny             OverrideAction = "deny"
	OverrideActionRevert           OverrideAction = "revert"
	OverrideActionForcePublish     OverrideAction = "force_publish"
	OverrideActionWaivePayment     OverrideAction = "waive_payment"
	OverrideActionSuspendAccount   OverrideAction = "suspend_account"
	OverrideActionReinstateAccount OverrideAction = "reinstate_account"
)

type OverrideRequest struct {
	ActorID    string           `json:"actor_id"`
	TargetID   string           `json:"target_id"`
	TargetKind types.TargetKind `json:"target_kind"`
	Action     OverrideAction   `json:"action_type"`
	Reason     string           `json:"reason"`
}

type OverrideResult struct {
	Applied bool                        `json:"applied"`
	Listing *models.ListingPaymentState `json:"listing,omitempty"`
	Account *models.Account             `json:"account,omitempty"`
	Audit   *models.AuditEntry          `json:"audit"`
}

// Controller is the audited escape hatch around the event-driven path. It
// bypasses the signature verifier and replay guard but still runs every
// mutation through conditional writes, and it writes the audit entry in the
// same transaction as the mutation: if the audit insert fails, the whole
// override rolls back.
type Controller struct {
	db         *gorm.DB
	log        *zap.SugaredLogger
	exec       Executor
	retry      RetryPolicy
	dispatcher *Dispatcher
	intents    provider.IntentFetcher
	rm         *metrics.Reconcile
}

func NewController(db *gorm.DB, log *zap.SugaredLogger, dispatcher *Dispatcher, intents provider.IntentFetcher, rm *metrics.Reconcile) *Controller {
	return &Controller{
		db:         db,
		log:        log,
		retry:      DefaultRetryPolicy(),
		dispatcher: dispatcher,
		intents:    intents,
		rm:         rm,
	}
}

// Override applies one privileged action. The reason is mandatory; a blank
// reason is rejected before any mutation. Force-publish keeps the
// visible ⇒ paid invariant by marking the payment waived in the same write.
func (c *Controller) Override(ctx context.Context, req *OverrideRequest) (*OverrideResult, error) {
	if req == nil || strings.TrimSpace(req.Reason) == "" {
		return nil, ErrBlankReason
	}
	if req.TargetID == "" || req.ActorID == "" {
		return nil, fmt.Errorf("override requires actor_id and target_id")
	}
	if err := validateOverrideTarget(req.Action, req.TargetKind); err != nil {
		return nil, err
	}

	res := &OverrideResult{}
	err := c.retry.Do(ctx, func() error {
		res.Applied, res.Listing, res.Account, res.Audit = false, nil, nil, nil
		return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			switch req.TargetKind {
			case types.TargetKindListing:
				res.Applied, err = c.overrideListing(ctx, tx, req)
				if err != nil {
					return err
				}
				res.Listing, err = loadListingState(ctx, tx, req.TargetID)
			case types.TargetKindAccount:
				res.Applied, err = c.overrideAccount(ctx, tx, req)
				if err != nil {
					return err
				}
				res.Account, err = loadAccount(ctx, tx, req.TargetID)
			}
			if err != nil {
				return err
			}
			res.Audit, err = writeAudit(ctx, tx, req, res.Applied)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, c.log).Infow("admin_override",
		"actor_id", req.ActorID, "action", req.Action,
		"target_kind", req.TargetKind, "target_id", req.TargetID,
		"applied", res.Applied, "audit_id", res.Audit.ID)

	if res.Applied && req.TargetKind == types.TargetKindListing {
		c.dispatcher.Dispatch(ctx, Notification{
			Event:     overrideTransition(req.Action),
			ListingID: req.TargetID,
			Reason:    req.Reason,
		})
	}
	return res, nil
}

func validateOverrideTarget(action OverrideAction, kind types.TargetKind) error {
	switch action {
	case OverrideActionApprove, OverrideActionDeny, OverrideActionRevert,
		OverrideActionForcePublish, OverrideActionWaivePayment:
		if kind != types.TargetKindListing {
			return fmt.Errorf("action %s requires a listing target", action)
		}
	case OverrideActionSuspendAccount, OverrideActionReinstateAccount:
		if kind != types.TargetKindAccount {
			return fmt.Errorf("action %s requires an account target", action)
		}
	default:
		return fmt.Errorf("unknown override action %q", action)
	}
	return nil
}

// overrideListing performs the listing-side mutation. Approve, deny and
// revert stay inside the normal transition table; force-publish and waive
// are the two sanctioned bypasses and still go through conditional writes.
func (c *Controller) overrideListing(ctx context.Context, tx *gorm.DB, req *OverrideRequest) (bool, error) {
	switch req.Action {
	case OverrideActionApprove:
		r, err := c.exec.Apply(ctx, tx, req.TargetID, types.PaymentStatusPending, TransitionAdminApprove)
		return r == Applied, err
	case OverrideActionDeny:
		r, err := c.exec.Apply(ctx, tx, req.TargetID, types.PaymentStatusPending, TransitionAdminDeny)
		return r == Applied, err
	case OverrideActionRevert:
		r, err := c.exec.Apply(ctx, tx, req.TargetID, types.PaymentStatusPaid, TransitionAdminRevert)
		if err != nil || r != Applied {
			return false, err
		}
		// A reverted listing is no longer waived either.
		err = tx.WithContext(ctx).Model(&models.ListingPaymentState{}).
			Where("listing_id = ?", req.TargetID).
			Update("payment_waived", false).Error
		return true, err
	case OverrideActionForcePublish:
		// Manual reconciliation of a lost webhook: publish regardless of the
		// prior status, but keep visible ⇒ paid by waiving the payment in the
		// same statement.
		res := tx.WithContext(ctx).Model(&models.ListingPaymentState{}).
			Where("listing_id = ? AND NOT (payment_status = ? AND visible)", req.TargetID, types.PaymentStatusPaid).
			Updates(map[string]any{
				"payment_status": types.PaymentStatusPaid,
				"visible":        true,
				"payment_waived": true,
			})
		if res.Error != nil {
			return false, res.Error
		}
		return res.RowsAffected > 0, nil
	case OverrideActionWaivePayment:
		res := tx.WithContext(ctx).Model(&models.ListingPaymentState{}).
			Where("listing_id = ? AND payment_status <> ?", req.TargetID, types.PaymentStatusPaid).
			Updates(map[string]any{
				"payment_status": types.PaymentStatusPaid,
				"payment_waived": true,
			})
		if res.Error != nil {
			return false, res.Error
		}
		return res.RowsAffected > 0, nil
	}
	return false, fmt.Errorf("unknown override action %q", req.Action)
}

func (c *Controller) overrideAccount(ctx context.Context, tx *gorm.DB, req *OverrideRequest) (bool, error) {
	suspend := req.Action == OverrideActionSuspendAccount
	res := tx.WithContext(ctx).Model(&models.Account{}).
		Where("external_id = ? AND suspended = ?", req.TargetID, !suspend).
		Update("suspended", suspend)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func overrideTransition(action OverrideAction) TransitionEvent {
	switch action {
	case OverrideActionApprove, OverrideActionForcePublish:
		return TransitionAdminApprove
	case OverrideActionDeny:
		return TransitionAdminDeny
	default:
		return TransitionAdminRevert
	}
}

func loadListingState(ctx context.Context, tx *gorm.DB, listingID string) (*models.ListingPaymentState, error) {
	var st models.ListingPaymentState
	if err := tx.WithContext(ctx).Where("listing_id = ?", listingID).First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("listing %s has no payment state", listingID)
		}
		return nil, err
	}
	return &st, nil
}

func loadAccount(ctx context.Context, tx *gorm.DB, externalID string) (*models.Account, error) {
	var acc models.Account
	if err := tx.WithContext(ctx).Where("external_id = ?", externalID).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %s not found", externalID)
		}
		return nil, err
	}
	return &acc, nil
}

func writeAudit(ctx context.Context, tx *gorm.DB, req *OverrideRequest, applied bool) (*models.AuditEntry, error) {
	detail, _ := json.Marshal(map[string]any{"applied": applied})
	entry := &models.AuditEntry{
		ID:         tool.GenerateUUIDV7(),
		ActorID:    req.ActorID,
		ActionType: string(req.Action),
		TargetID:   req.TargetID,
		TargetKind: req.TargetKind,
		Reason:     req.Reason,
		Detail:     datatypes.JSON(detail),
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("write audit entry: %w", err)
	}
	return entry, nil
}

// ReconcileRequest asks the processor for ground truth about a stuck intent.
type ReconcileRequest struct {
	ActorID  string `json:"actor_id"`
	IntentID string `json:"intent_id"`
	Reason   string `json:"reason"`
}

type ReconcileResult struct {
	Intent  *provider.Intent   `json:"intent"`
	Applied bool               `json:"applied"`
	Audit   *models.AuditEntry `json:"audit"`
}

// ReconcilePayment looks the intent up at the processor (bounded timeout)
// and, if it actually succeeded, applies the normal succeeded transition —
// still conditional, so a webhook that raced us makes this a no-op.
func (c *Controller) ReconcilePayment(ctx context.Context, req *ReconcileRequest) (*ReconcileResult, error) {
	if req == nil || strings.TrimSpace(req.Reason) == "" {
		return nil, ErrBlankReason
	}
	if req.IntentID == "" {
		return nil, fmt.Errorf("reconcile requires intent_id")
	}

	intent, err := c.intents.GetIntent(ctx, req.IntentID)
	if err != nil {
		if errors.Is(err, provider.ErrTimeout) {
			return nil, fmt.Errorf("%w: intent %s", ErrReconciliationTimeout, req.IntentID)
		}
		return nil, err
	}

	res := &ReconcileResult{Intent: intent}
	if intent.Status != provider.IntentStatusSucceeded {
		logctx.FromCtx(ctx, c.log).Infow("reconcile_no_action",
			"intent_id", req.IntentID, "provider_status", intent.Status)
		return res, nil
	}

	err = c.retry.Do(ctx, func() error {
		res.Applied, res.Audit = false, nil
		return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var rec models.PaymentRecord
			if err := tx.WithContext(ctx).Where("external_intent_id = ?", req.IntentID).First(&rec).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("no payment record for intent %s", req.IntentID)
				}
				return err
			}
			settled, err := c.exec.SettleRecord(ctx, tx, req.IntentID, types.PaymentRecordStatusCompleted, nil)
			if err != nil {
				return err
			}
			res.Applied = settled == Applied
			if rec.Purpose == types.PaymentPurposeListingFee && rec.ListingID != nil {
				r, err := c.exec.Apply(ctx, tx, *rec.ListingID, types.PaymentStatusUnpaid, TransitionPaymentSucceeded)
				if err != nil {
					return err
				}
				res.Applied = res.Applied || r == Applied
			}
			audit := &OverrideRequest{
				ActorID:    req.ActorID,
				TargetID:   req.IntentID,
				TargetKind: types.TargetKindPayment,
				Action:     "reconcile_payment",
				Reason:     req.Reason,
			}
			res.Audit, err = writeAudit(ctx, tx, audit, res.Applied)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
