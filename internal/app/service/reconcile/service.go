package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lendery/backend/internal/models"
	cfgpkg "github.com/lendery/backend/pkg/config"
	"github.com/lendery/backend/pkg/logctx"
	"github.com/lendery/backend/pkg/metrics"
	"github.com/lendery/backend/pkg/types"
)

const providerPayment = "payment"

// Engine applies payment-processor events to locally-owned state. One
// inbound event flows raw body → signature verifier → replay guard → state
// transition executor (under the retry policy) → side-effect dispatcher.
// Everything between claim and commit runs in a single transaction, so a
// failed application releases the claim and redelivery gets another try.
type Engine struct {
	db         *gorm.DB
	log        *zap.SugaredLogger
	verifier   *SignatureVerifier
	guard      ReplayGuard
	exec       Executor
	retry      RetryPolicy
	dispatcher *Dispatcher
	rm         *metrics.Reconcile
}

func NewEngine(cfg *cfgpkg.Config, db *gorm.DB, log *zap.SugaredLogger, dispatcher *Dispatcher, rm *metrics.Reconcile) *Engine {
	return &Engine{
		db:         db,
		log:        log,
		verifier:   NewSignatureVerifier(cfg.PaymentWebhook.Secret, cfg.PaymentWebhook.Tolerance),
		retry:      DefaultRetryPolicy(),
		dispatcher: dispatcher,
		rm:         rm,
	}
}

// WebhookResult tells the handler what happened; both a fresh apply and a
// replay answer the provider with success.
type WebhookResult struct {
	EventID  string `json:"event_id"`
	Replayed bool   `json:"replayed"`
	Applied  bool   `json:"applied"`
}

// HandlePaymentWebhook processes one signed payment event. raw must be the
// exact request body bytes; the signature covers them, so the body is only
// parsed after verification succeeds.
func (e *Engine) HandlePaymentWebhook(ctx context.Context, raw []byte, sigHeader string) (*WebhookResult, error) {
	log := logctx.FromCtx(ctx, e.log)

	if err := e.verifier.VerifyTimestamped(raw, sigHeader); err != nil {
		e.countEvent(providerPayment, "rejected")
		return nil, err
	}
	ev, err := ParsePaymentEvent(raw)
	if err != nil {
		e.countEvent(providerPayment, "rejected")
		return nil, err
	}

	res := &WebhookResult{EventID: ev.ID}
	var pending []Notification

	attempt := 0
	err = e.retry.Do(ctx, func() error {
		attempt++
		if attempt > 1 && e.rm != nil {
			e.rm.RetryAttempts.Inc()
		}
		res.Replayed, res.Applied = false, false
		pending = pending[:0]
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			claim, err := e.guard.TryClaim(ctx, tx, providerPayment, ev.ID, string(ev.Type))
			if err != nil {
				return err
			}
			if claim == AlreadyProcessed {
				res.Replayed = true
				return nil
			}
			applied, notes, err := e.applyPaymentEvent(ctx, tx, ev)
			if err != nil {
				return err
			}
			res.Applied = applied
			pending = notes
			return nil
		})
	})
	if err != nil {
		e.countEvent(providerPayment, "failed")
		return nil, err
	}

	switch {
	case res.Replayed:
		e.countEvent(providerPayment, "replayed")
		log.Infow("payment_event_replayed", "event_id", ev.ID, "type", ev.Type)
	case res.Applied:
		e.countEvent(providerPayment, "applied")
		log.Infow("payment_event_applied", "event_id", ev.ID, "type", ev.Type)
	default:
		e.countEvent(providerPayment, "noop")
		log.Infow("payment_event_noop", "event_id", ev.ID, "type", ev.Type)
	}

	for _, n := range pending {
		e.dispatcher.Dispatch(ctx, n)
	}
	return res, nil
}

// applyPaymentEvent performs the state changes for one claimed event inside
// tx. Precondition failures are benign: they mean a racing writer (or an
// earlier delivery attempt of a sibling event) already moved the record.
func (e *Engine) applyPaymentEvent(ctx context.Context, tx *gorm.DB, ev *PaymentEvent) (bool, []Notification, error) {
	var applied bool
	var notes []Notification

	recordStatus := types.PaymentRecordStatusCompleted
	listingEvent := TransitionPaymentSucceeded
	switch ev.Type {
	case EventPaymentFailed:
		recordStatus = types.PaymentRecordStatusFailed
		listingEvent = TransitionPaymentFailed
	case EventPaymentCancelled:
		recordStatus = types.PaymentRecordStatusCancelled
		listingEvent = TransitionPaymentCancelled
	}

	extra := &models.PaymentRecordExtra{
		ProviderEventID: ev.ID,
		FailureCode:     ev.Data.FailureCode,
		FailureMessage:  ev.Data.FailureMessage,
	}
	settled, err := e.exec.SettleRecord(ctx, tx, ev.Data.IntentID, recordStatus, extra)
	if err != nil {
		return false, nil, err
	}
	applied = applied || settled == Applied

	switch ev.Data.Purpose {
	case types.PaymentPurposeListingFee:
		if ev.Data.ListingID == "" {
			return false, nil, fmt.Errorf("listing fee event %s missing listing_id", ev.ID)
		}
		from := types.PaymentStatusUnpaid
		if ev.Type != EventPaymentSucceeded {
			// A failure/cancellation only matters while the fee is pending.
			from = types.PaymentStatusPending
		}
		r, err := e.exec.Apply(ctx, tx, ev.Data.ListingID, from, listingEvent)
		if err != nil {
			return false, nil, err
		}
		e.countTransition(listingEvent, r)
		if r == Applied {
			applied = true
			notes = append(notes, Notification{
				Event:     listingEvent,
				ListingID: ev.Data.ListingID,
				AccountID: ev.Data.AccountID,
				Status:    transitionTable[from][listingEvent].to,
			})
		}
	case types.PaymentPurposeSubscription:
		changed, err := e.applySubscription(ctx, tx, ev)
		if err != nil {
			return false, nil, err
		}
		if changed {
			applied = true
			notes = append(notes, Notification{
				Event:     listingEvent,
				AccountID: ev.Data.AccountID,
			})
		}
	default:
		return false, nil, fmt.Errorf("%w: purpose %q", ErrUnknownEvent, ev.Data.Purpose)
	}

	return applied, notes, nil
}

// applySubscription flips the account's subscriber flag, conditionally on
// its current value so redeliveries and races stay single-shot.
func (e *Engine) applySubscription(ctx context.Context, tx *gorm.DB, ev *PaymentEvent) (bool, error) {
	if ev.Data.AccountID == "" {
		return false, fmt.Errorf("subscription event %s missing account_id", ev.ID)
	}
	subscribe := ev.Type == EventPaymentSucceeded
	res := tx.WithContext(ctx).
		Model(&models.Account{}).
		Where("external_id = ? AND subscriber = ?", ev.Data.AccountID, !subscribe).
		Update("subscriber", subscribe)
	if res.Error != nil {
		return false, fmt.Errorf("update subscriber flag: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (e *Engine) countEvent(provider, result string) {
	if e.rm != nil {
		e.rm.Events.WithLabelValues(provider, result).Inc()
	}
}

func (e *Engine) countTransition(ev TransitionEvent, r ApplyResult) {
	if e.rm == nil {
		return
	}
	result := "applied"
	if r == PreconditionFailed {
		result = "precondition_failed"
	}
	e.rm.Transitions.WithLabelValues(string(ev), result).Inc()
}
