package reconcile

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lendery/backend/pkg/logctx"
	"github.com/lendery/backend/pkg/metrics"
	"github.com/lendery/backend/pkg/types"
)

// Notification describes one committed transition for downstream fan-out.
type Notification struct {
	Event     TransitionEvent     `json:"event"`
	ListingID string              `json:"listing_id,omitempty"`
	AccountID string              `json:"account_id,omitempty"`
	Status    types.PaymentStatus `json:"status,omitempty"`
	Reason    string              `json:"reason,omitempty"`
}

// Notifier receives committed-transition notifications. Implementations are
// best-effort: an error is logged and counted, nothing more.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher fans notifications out after a transition commits. It runs on
// its own goroutine, outside the transaction: a notifier failure can never
// roll back or retry the state change that triggered it.
type Dispatcher struct {
	log       *zap.SugaredLogger
	notifiers []Notifier
	rm        *metrics.Reconcile
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewDispatcher(log *zap.SugaredLogger, notifiers []Notifier, rm *metrics.Reconcile) *Dispatcher {
	return &Dispatcher{log: log, notifiers: notifiers, rm: rm, timeout: 10 * time.Second}
}

// Dispatch hands n to every notifier asynchronously. The request context is
// detached first so an already-answered HTTP request doesn't cancel delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	log := logctx.FromCtx(ctx, d.log)
	base := context.WithoutCancel(ctx)
	for _, notifier := range d.notifiers {
		d.wg.Add(1)
		go func(nt Notifier) {
			defer d.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Errorw("notifier_panic", "notifier", nt.Name(), "panic", r)
				}
			}()
			nctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := nt.Notify(nctx, n); err != nil {
				if d.rm != nil {
					d.rm.DispatchFailures.Inc()
				}
				log.Errorw("notifier_failed", "notifier", nt.Name(), "event", n.Event, "error", err.Error())
				return
			}
			log.Infow("notifier_delivered", "notifier", nt.Name(), "event", n.Event)
		}(notifier)
	}
}

// Wait blocks until all in-flight notifications finish. Called on shutdown
// and by tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
