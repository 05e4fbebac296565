// Package notify holds the side-effect targets the dispatcher fans out to.
// Outbound email is an external collaborator: this package owns the seam,
// not the delivery.
package notify

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lendery/backend/internal/app/service/reconcile"
)

// EmailNotifier renders committed transitions into owner-facing mail. The
// actual SMTP/provider hand-off lives behind the Sender seam so tests and
// dev environments run against the log sender.
type EmailNotifier struct {
	log    *zap.SugaredLogger
	sender Sender
}

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// logSender is the dev/default sender: it records the message instead of
// delivering it.
type logSender struct {
	log *zap.SugaredLogger
}

func (s logSender) Send(_ context.Context, recipient, subject, body string) error {
	s.log.Infow("email_out", "recipient", recipient, "subject", subject, "body", body)
	return nil
}

func NewEmailNotifier(log *zap.SugaredLogger) *EmailNotifier {
	return &EmailNotifier{log: log, sender: logSender{log: log}}
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) Notify(ctx context.Context, note reconcile.Notification) error {
	subject, body := renderNotification(note)
	if subject == "" {
		return nil
	}
	recipient := note.AccountID
	if recipient == "" {
		recipient = "listing-owner:" + note.ListingID
	}
	return n.sender.Send(ctx, recipient, subject, body)
}

func renderNotification(note reconcile.Notification) (subject, body string) {
	switch note.Event {
	case reconcile.TransitionPaymentSucceeded:
		return "Payment received", "Your listing fee cleared and the listing is awaiting review."
	case reconcile.TransitionAdminApprove:
		return "Listing published", "Your listing was approved and is now publicly visible."
	case reconcile.TransitionAdminDeny:
		return "Listing rejected", "Your listing was not approved. Reason: " + note.Reason
	case reconcile.TransitionAdminRevert:
		return "Listing unpublished", "Your listing is no longer publicly visible."
	case reconcile.TransitionPaymentFailed:
		return "Payment failed", "Your payment did not complete. The listing stays unpublished."
	case reconcile.TransitionPaymentCancelled:
		return "Payment cancelled", "Your payment was cancelled. The listing stays unpublished."
	}
	return "", ""
}

var Module = fx.Options(
	fx.Provide(NewEmailNotifier),
	fx.Provide(func(e *EmailNotifier) []reconcile.Notifier {
		return []reconcile.Notifier{e}
	}),
)
