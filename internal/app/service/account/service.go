// Package account keeps local Account rows in sync with the identity
// provider. Sync is webhook-driven and idempotent: events share the replay
// guard with the payment path and upserts key on the provider's user id.
// Payment state is never touched from here.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lendery/backend/internal/app/service/reconcile"
	"github.com/lendery/backend/internal/models"
	cfgpkg "github.com/lendery/backend/pkg/config"
	"github.com/lendery/backend/pkg/logctx"
	"github.com/lendery/backend/pkg/metrics"
	"github.com/lendery/backend/pkg/tool"
)

const providerIdentity = "identity"

type EventType string

const (
	EventUserCreated EventType = "user.created"
	EventUserUpdated EventType = "user.updated"
	EventUserDeleted EventType = "user.deleted"
)

type IdentityEventData struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type IdentityEvent struct {
	ID   string            `json:"id"`
	Type EventType         `json:"type"`
	Data IdentityEventData `json:"data"`
}

func ParseIdentityEvent(raw []byte) (*IdentityEvent, error) {
	var ev IdentityEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode identity event: %w", err)
	}
	if ev.ID == "" {
		return nil, errors.New("identity event missing id")
	}
	switch ev.Type {
	case EventUserCreated, EventUserUpdated, EventUserDeleted:
	default:
		return nil, fmt.Errorf("%w: %q", reconcile.ErrUnknownEvent, ev.Type)
	}
	if ev.Data.UserID == "" {
		return nil, errors.New("identity event missing user_id")
	}
	return &ev, nil
}

type Service struct {
	db       *gorm.DB
	log      *zap.SugaredLogger
	verifier *reconcile.SignatureVerifier
	guard    reconcile.ReplayGuard
	retry    reconcile.RetryPolicy
	rm       *metrics.Reconcile
}

func NewService(cfg *cfgpkg.Config, db *gorm.DB, log *zap.SugaredLogger, rm *metrics.Reconcile) *Service {
	return &Service{
		db:       db,
		log:      log,
		verifier: reconcile.NewSignatureVerifier(cfg.IdentityWebhook.Secret, cfg.IdentityWebhook.Tolerance),
		retry:    reconcile.DefaultRetryPolicy(),
		rm:       rm,
	}
}

// HandleIdentityWebhook verifies and applies one identity event. Same
// contract as the payment path: replays answer success without re-applying.
func (s *Service) HandleIdentityWebhook(ctx context.Context, raw []byte, sigHeader string) (*reconcile.WebhookResult, error) {
	log := logctx.FromCtx(ctx, s.log)

	if err := s.verifier.Verify(raw, sigHeader); err != nil {
		s.countEvent("rejected")
		return nil, err
	}
	ev, err := ParseIdentityEvent(raw)
	if err != nil {
		s.countEvent("rejected")
		return nil, err
	}

	res := &reconcile.WebhookResult{EventID: ev.ID}
	err = s.retry.Do(ctx, func() error {
		res.Replayed, res.Applied = false, false
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			claim, err := s.guard.TryClaim(ctx, tx, providerIdentity, ev.ID, string(ev.Type))
			if err != nil {
				return err
			}
			if claim == reconcile.AlreadyProcessed {
				res.Replayed = true
				return nil
			}
			applied, err := s.applyIdentityEvent(ctx, tx, ev)
			if err != nil {
				return err
			}
			res.Applied = applied
			return nil
		})
	})
	if err != nil {
		s.countEvent("failed")
		return nil, err
	}

	if res.Replayed {
		s.countEvent("replayed")
		log.Infow("identity_event_replayed", "event_id", ev.ID, "type", ev.Type)
	} else {
		s.countEvent("applied")
		log.Infow("identity_event_applied", "event_id", ev.ID, "type", ev.Type)
	}
	return res, nil
}

func (s *Service) applyIdentityEvent(ctx context.Context, tx *gorm.DB, ev *IdentityEvent) (bool, error) {
	switch ev.Type {
	case EventUserCreated, EventUserUpdated:
		acc := &models.Account{
			ID:          tool.GenerateUUIDV7(),
			ExternalID:  ev.Data.UserID,
			Email:       ev.Data.Email,
			DisplayName: ev.Data.DisplayName,
		}
		// Assigning deleted_at from the incoming row (always NULL here) means a
		// user the provider re-creates after deletion comes back active.
		err := tx.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "deleted_at", "updated_at"}),
		}).Create(acc).Error
		if err != nil {
			return false, fmt.Errorf("upsert account %s: %w", ev.Data.UserID, err)
		}
		return true, nil
	case EventUserDeleted:
		res := tx.WithContext(ctx).Model(&models.Account{}).
			Where("external_id = ? AND deleted_at IS NULL", ev.Data.UserID).
			Update("deleted_at", time.Now().UTC())
		if res.Error != nil {
			return false, fmt.Errorf("delete account %s: %w", ev.Data.UserID, res.Error)
		}
		return res.RowsAffected > 0, nil
	}
	return false, fmt.Errorf("%w: %q", reconcile.ErrUnknownEvent, ev.Type)
}

// GetByExternalID returns the synced account row, if any.
func (s *Service) GetByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	var acc models.Account
	err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&acc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &acc, nil
}

func (s *Service) countEvent(result string) {
	if s.rm != nil {
		s.rm.Events.WithLabelValues(providerIdentity, result).Inc()
	}
}
