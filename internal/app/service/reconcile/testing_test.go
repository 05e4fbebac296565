package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lendery/backend/internal/models"
	cfgpkg "github.com/lendery/backend/pkg/config"
	"github.com/lendery/backend/pkg/tool"
	"github.com/lendery/backend/pkg/types"
	"go.uber.org/zap"
)

// newTestDB opens a per-test in-memory SQLite database with the same options
// the platform layer uses (shared cache so one test's goroutines see one
// database, TranslateError for duplicate-key detection).
func newTestDB(t *testing.T) *gorm.DB {
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
	require.NoError(t, db.AutoMigrate(
		&models.ProcessedEvent{},
		&models.ListingPaymentState{},
		&models.PaymentRecord{},
		&models.AuditEntry{},
		&models.Account{},
	))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestEngine(t *testing.T, db *gorm.DB) (*Engine, *SignatureVerifier) {
	t.Helper()
	cfg := &cfgpkg.Config{}
	cfg.PaymentWebhook.Secret = "whsec_test"
	cfg.PaymentWebhook.Tolerance = time.Minute
	log := zap.NewNop().Sugar()
	dispatcher := NewDispatcher(log, nil, nil)
	e := NewEngine(cfg, db, log, dispatcher, nil)
	return e, e.verifier
}

func seedListing(t *testing.T, db *gorm.DB, listingID string, status types.PaymentStatus) {
	t.Helper()
	require.NoError(t, db.Create(&models.ListingPaymentState{
		ID:               tool.GenerateUUIDV7(),
		ListingID:        listingID,
		OwnerID:          "owner-1",
		PaymentStatus:    status,
		SubmissionStatus: types.SubmissionStatusPendingReview,
	}).Error)
}

func seedPaymentRecord(t *testing.T, db *gorm.DB, intentID, listingID string, purpose types.PaymentPurpose) {
	t.Helper()
	rec := &models.PaymentRecord{
		ID:               tool.GenerateUUIDV7(),
		AccountID:        "acct-1",
		ExternalIntentID: intentID,
		Amount:           2500,
		Currency:         "EUR",
		Purpose:          purpose,
		Status:           types.PaymentRecordStatusPending,
	}
	if listingID != "" {
		rec.ListingID = &listingID
	}
	require.NoError(t, db.Create(rec).Error)
}

func loadListing(t *testing.T, db *gorm.DB, listingID string) *models.ListingPaymentState {
	t.Helper()
	var st models.ListingPaymentState
	require.NoError(t, db.Where("listing_id = ?", listingID).First(&st).Error)
	return &st
}

// requireVisibleImpliesPaid asserts the core invariant over the whole table.
func requireVisibleImpliesPaid(t *testing.T, db *gorm.DB) {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ListingPaymentState{}).
		Where("visible = ? AND payment_status <> ?", true, types.PaymentStatusPaid).
		Count(&n).Error)
	require.Zero(t, n, "found visible listings that are not paid")
}
