// Package listing is the read surface over the payment/publication facet.
// All writes go through the reconciliation engine or the override
// controller; this service only reads.
package listing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lendery/backend/internal/models"
	"github.com/lendery/backend/pkg/types"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// GetPaymentState returns the publication facet of one listing, or nil when
// the listing has no payment state yet.
func (s *Service) GetPaymentState(ctx context.Context, listingID string) (*models.ListingPaymentState, error) {
	var st models.ListingPaymentState
	err := s.db.WithContext(ctx).Where("listing_id = ?", listingID).First(&st).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load payment state for %s: %w", listingID, err)
	}
	return &st, nil
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// ScanRequest is shared by the admin list endpoints.
type ScanRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentRecordsResponse struct {
	Items []*models.PaymentRecord `json:"items"`
	Total int64                   `json:"total"`
}

// ScanPaymentRecords implements the paginated/filterable admin listing.
func (s *Service) ScanPaymentRecords(ctx context.Context, req *ScanRequest) (*ScanPaymentRecordsResponse, error) {
	var rows []*models.PaymentRecord
	total, err := s.scan(ctx, req, &models.PaymentRecord{}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment records: %w", err)
	}
	return &ScanPaymentRecordsResponse{Items: rows, Total: total}, nil
}

type ScanAuditEntriesResponse struct {
	Items []*models.AuditEntry `json:"items"`
	Total int64                `json:"total"`
}

// ScanAuditEntries pages through the append-only audit log.
func (s *Service) ScanAuditEntries(ctx context.Context, req *ScanRequest) (*ScanAuditEntriesResponse, error) {
	var rows []*models.AuditEntry
	total, err := s.scan(ctx, req, &models.AuditEntry{}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return &ScanAuditEntriesResponse{Items: rows, Total: total}, nil
}

func (s *Service) scan(ctx context.Context, req *ScanRequest, model any, dest any) (int64, error) {
	if req == nil {
		return 0, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(model)
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, err
	}

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}
