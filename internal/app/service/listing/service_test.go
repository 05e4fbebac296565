package listing

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lendery/backend/internal/models"
	"github.com/lendery/backend/pkg/tool"
	"github.com/lendery/backend/pkg/types"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.ListingPaymentState{}, &models.PaymentRecord{}, &models.AuditEntry{}))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewService(db, zap.NewNop().Sugar()), db
}

func seedRecords(t *testing.T, db *gorm.DB, n int, status types.PaymentRecordStatus) {
	t.Helper()
	for i := 0; i < n; i++ {
		lid := fmt.Sprintf("lst-%d", i)
		require.NoError(t, db.Create(&models.PaymentRecord{
			ID:               tool.GenerateUUIDV7(),
			ListingID:        &lid,
			AccountID:        "acct-1",
			ExternalIntentID: fmt.Sprintf("pi_%s_%d", status, i),
			Amount:           1000 + int64(i),
			Currency:         "EUR",
			Purpose:          types.PaymentPurposeListingFee,
			Status:           status,
		}).Error)
	}
}

func TestGetPaymentState(t *testing.T) {
	s, db := newTestService(t)
	require.NoError(t, db.Create(&models.ListingPaymentState{
		ID:               tool.GenerateUUIDV7(),
		ListingID:        "lst-1",
		OwnerID:          "owner-1",
		PaymentStatus:    types.PaymentStatusPaid,
		Visible:          true,
		SubmissionStatus: types.SubmissionStatusPendingReview,
	}).Error)

	st, err := s.GetPaymentState(context.Background(), "lst-1")
	require.NoError(t, err)
	require.NotNil(t, st)
	require.True(t, st.PubliclyVisible())

	st, err = s.GetPaymentState(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, st)
}

func TestScanPaymentRecords_FilterAndPaginate(t *testing.T) {
	s, db := newTestService(t)
	seedRecords(t, db, 5, types.PaymentRecordStatusCompleted)
	seedRecords(t, db, 3, types.PaymentRecordStatusFailed)

	res, err := s.ScanPaymentRecords(context.Background(), &ScanRequest{
		Filters: []*types.CommonFilter{
			{Field: "status", Operator: types.CommonFilterOperatorEq, Values: []any{"completed"}},
		},
		Size: 2,
	})
	require.NoError(t, err)
	require.EqualValues(t, 5, res.Total)
	require.Len(t, res.Items, 2)
	for _, rec := range res.Items {
		require.Equal(t, types.PaymentRecordStatusCompleted, rec.Status)
	}

	// Second page.
	res, err = s.ScanPaymentRecords(context.Background(), &ScanRequest{
		Filters: []*types.CommonFilter{
			{Field: "status", Operator: types.CommonFilterOperatorEq, Values: []any{"completed"}},
		},
		From: 4,
		Size: 2,
	})
	require.NoError(t, err)
	require.EqualValues(t, 5, res.Total)
	require.Len(t, res.Items, 1)
}

func TestScanPaymentRecords_SortByAmount(t *testing.T) {
	s, db := newTestService(t)
	seedRecords(t, db, 3, types.PaymentRecordStatusCompleted)

	res, err := s.ScanPaymentRecords(context.Background(), &ScanRequest{
		Size:      10,
		SortBy:    "amount",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	require.True(t, res.Items[0].Amount < res.Items[1].Amount)
	require.True(t, res.Items[1].Amount < res.Items[2].Amount)
}

func TestScanAuditEntries(t *testing.T) {
	s, db := newTestService(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.AuditEntry{
			ID:         tool.GenerateUUIDV7(),
			ActorID:    "admin-1",
			ActionType: "approve",
			TargetID:   fmt.Sprintf("lst-%d", i),
			TargetKind: types.TargetKindListing,
			Reason:     "manual review",
		}).Error)
	}
	require.NoError(t, db.Create(&models.AuditEntry{
		ID:         tool.GenerateUUIDV7(),
		ActorID:    "admin-2",
		ActionType: "suspend_account",
		TargetID:   "acct-1",
		TargetKind: types.TargetKindAccount,
		Reason:     "fraud report",
	}).Error)

	res, err := s.ScanAuditEntries(context.Background(), &ScanRequest{
		Filters: []*types.CommonFilter{
			{Field: "actor_id", Operator: types.CommonFilterOperatorEq, Values: []any{"admin-1"}},
		},
		Size: 10,
	})
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Total)
	require.Len(t, res.Items, 3)
}

func TestScan_NilRequest(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.ScanPaymentRecords(context.Background(), nil)
	require.Error(t, err)
}
