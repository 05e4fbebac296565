package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lendery/backend/internal/models"
	"github.com/lendery/backend/pkg/tool"
)

// ClaimResult is the outcome of a replay-guard claim.
type ClaimResult int

const (
	Claimed ClaimResult = iota
	AlreadyProcessed
)

// ReplayGuard is the durable set of processed event ids. TryClaim is a single
// atomic insert guarded by the unique index on event_id: exactly one of two
// racing deliveries wins, the loser sees AlreadyProcessed and must answer the
// provider with success without re-applying anything.
type ReplayGuard struct{}

// TryClaim inserts the event id inside tx. Run it in the same transaction as
// the state change it guards: if the transition later fails, the rollback
// releases the claim so redelivery can try again.
func (ReplayGuard) TryClaim(ctx context.Context, tx *gorm.DB, provider, eventID, eventType string) (ClaimResult, error) {
	row := &models.ProcessedEvent{
		ID:         tool.GenerateUUIDV7(),
		EventID:    eventID,
		EventType:  eventType,
		Provider:   provider,
		ReceivedAt: time.Now().UTC(),
	}
	err := tx.WithContext(ctx).Create(row).Error
	if err == nil {
		return Claimed, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return AlreadyProcessed, nil
	}
	return 0, fmt.Errorf("claim event %s: %w", eventID, err)
}
