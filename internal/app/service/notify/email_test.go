package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lendery/backend/internal/app/service/reconcile"
)

type capturingSender struct {
	recipient, subject, body string
	calls                    int
}

func (s *capturingSender) Send(_ context.Context, recipient, subject, body string) error {
	s.calls++
	s.recipient, s.subject, s.body = recipient, subject, body
	return nil
}

func TestEmailNotifier_RendersPerEvent(t *testing.T) {
	sender := &capturingSender{}
	n := NewEmailNotifier(zap.NewNop().Sugar())
	n.sender = sender

	err := n.Notify(context.Background(), reconcile.Notification{
		Event:     reconcile.TransitionAdminDeny,
		ListingID: "lst-1",
		AccountID: "acct-1",
		Reason:    "incomplete photos",
	})
	require.NoError(t, err)
	require.Equal(t, 1, sender.calls)
	require.Equal(t, "acct-1", sender.recipient)
	require.Equal(t, "Listing rejected", sender.subject)
	require.Contains(t, sender.body, "incomplete photos")
}

func TestEmailNotifier_FallsBackToListingOwner(t *testing.T) {
	sender := &capturingSender{}
	n := NewEmailNotifier(zap.NewNop().Sugar())
	n.sender = sender

	err := n.Notify(context.Background(), reconcile.Notification{
		Event:     reconcile.TransitionAdminApprove,
		ListingID: "lst-1",
	})
	require.NoError(t, err)
	require.Equal(t, "listing-owner:lst-1", sender.recipient)
}

func TestEmailNotifier_UnknownEventIsSilent(t *testing.T) {
	sender := &capturingSender{}
	n := NewEmailNotifier(zap.NewNop().Sugar())
	n.sender = sender

	err := n.Notify(context.Background(), reconcile.Notification{Event: "unmapped"})
	require.NoError(t, err)
	require.Zero(t, sender.calls)
}
