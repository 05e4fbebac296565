package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lendery/backend/internal/app/service/account"
	"github.com/lendery/backend/internal/app/service/listing"
	"github.com/lendery/backend/internal/app/service/reconcile"
	"github.com/lendery/backend/internal/models"
	cfgpkg "github.com/lendery/backend/pkg/config"
	"github.com/lendery/backend/pkg/tool"
	"github.com/lendery/backend/pkg/types"
)

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	verifier *reconcile.SignatureVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	cfg := &cfgpkg.Config{}
	cfg.PaymentWebhook.Secret = "whsec_test"
	cfg.PaymentWebhook.Tolerance = time.Minute
	cfg.IdentityWebhook.Secret = "idsec_test"
	cfg.IdentityWebhook.Tolerance = time.Minute

	log := zap.NewNop().Sugar()
	dispatcher := reconcile.NewDispatcher(log, nil, nil)
	engine := reconcile.NewEngine(cfg, db, log, dispatcher, nil)
	ctrl := reconcile.NewController(db, log, dispatcher, nil, nil)
	accounts := account.NewService(cfg, db, log, nil)
	listings := listing.NewService(db, log)

	r := gin.New()
	RegisterWebhookRoutes(r.Group("/api/v1/webhooks"), engine, accounts)
	RegisterListingRoutes(r.Group("/api/v1"), listings)
	// Stand-in for the auth middleware: the handlers only need an actor id.
	admin := r.Group("/api/v1/admin", func(c *gin.Context) { c.Set("actorID", "admin-1") })
	RegisterAdminRoutes(admin, ctrl, listings)

	return &testEnv{
		router:   r,
		db:       db,
		verifier: reconcile.NewSignatureVerifier(cfg.PaymentWebhook.Secret, cfg.PaymentWebhook.Tolerance),
	}
}

func (e *testEnv) post(path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedListing(t *testing.T, listingID string, status types.PaymentStatus) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.ListingPaymentState{
		ID:               tool.GenerateUUIDV7(),
		ListingID:        listingID,
		OwnerID:          "owner-1",
		PaymentStatus:    status,
		SubmissionStatus: types.SubmissionStatusPendingReview,
	}).Error)
}

func paymentEventBody(t *testing.T, id string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":         id,
		"type":       "payment.succeeded",
		"created_at": time.Now().Unix(),
		"data": map[string]any{
			"intent_id":  "pi_1",
			"purpose":    "listing_fee",
			"listing_id": "lst-1",
			"account_id": "acct-1",
			"amount":     2500,
			"currency":   "EUR",
		},
	})
	require.NoError(t, err)
	return body
}

func TestPaymentWebhookRoute(t *testing.T) {
	e := newTestEnv(t)
	e.seedListing(t, "lst-1", types.PaymentStatusUnpaid)
	require.NoError(t, e.db.Create(&models.PaymentRecord{
		ID:               tool.GenerateUUIDV7(),
		AccountID:        "acct-1",
		ExternalIntentID: "pi_1",
		Amount:           2500,
		Currency:         "EUR",
		Purpose:          types.PaymentPurposeListingFee,
		Status:           types.PaymentRecordStatusPending,
	}).Error)

	body := paymentEventBody(t, "evt_1")
	sig := e.verifier.Sign(body, time.Now())

	w := e.post("/api/v1/webhooks/payment", body, map[string]string{PaymentSignatureHeader: sig})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"applied":true`)

	// Redelivery answers 200 as a replay.
	w = e.post("/api/v1/webhooks/payment", body, map[string]string{PaymentSignatureHeader: sig})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"replayed":true`)
}

func TestPaymentWebhookRoute_BadSignature(t *testing.T) {
	e := newTestEnv(t)
	body := paymentEventBody(t, "evt_1")

	w := e.post("/api/v1/webhooks/payment", body, map[string]string{PaymentSignatureHeader: "t=1,v1=deadbeef"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = e.post("/api/v1/webhooks/payment", body, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdentityWebhookRoute(t *testing.T) {
	e := newTestEnv(t)
	v := reconcile.NewSignatureVerifier("idsec_test", time.Minute)

	body, err := json.Marshal(map[string]any{
		"id":   "ievt_1",
		"type": "user.created",
		"data": map[string]any{"user_id": "user-1", "email": "a@example.com"},
	})
	require.NoError(t, err)

	w := e.post("/api/v1/webhooks/identity", body, map[string]string{IdentitySignatureHeader: v.SignBody(body)})
	require.Equal(t, http.StatusOK, w.Code)

	var acc models.Account
	require.NoError(t, e.db.Where("external_id = ?", "user-1").First(&acc).Error)
	require.Equal(t, "a@example.com", acc.Email)
}

func TestListingPaymentStateRoute(t *testing.T) {
	e := newTestEnv(t)
	e.seedListing(t, "lst-1", types.PaymentStatusPaid)

	w := e.get("/api/v1/listings/lst-1/payment_state")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"payment_status":"paid"`)

	w = e.get("/api/v1/listings/missing/payment_state")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminOverrideRoute(t *testing.T) {
	e := newTestEnv(t)
	e.seedListing(t, "lst-1", types.PaymentStatusPending)

	body, _ := json.Marshal(OverrideRequest{
		TargetID:   "lst-1",
		TargetKind: "listing",
		ActionType: "approve",
		Reason:     "manual review passed",
	})
	w := e.post("/api/v1/admin/override", body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"applied":true`)

	var entry models.AuditEntry
	require.NoError(t, e.db.First(&entry).Error)
	require.Equal(t, "admin-1", entry.ActorID)
}

func TestAdminOverrideRoute_BlankReason(t *testing.T) {
	e := newTestEnv(t)
	e.seedListing(t, "lst-1", types.PaymentStatusPending)

	body, _ := json.Marshal(OverrideRequest{
		TargetID:   "lst-1",
		TargetKind: "listing",
		ActionType: "approve",
	})
	w := e.post("/api/v1/admin/override", body, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminListRoutes(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.db.Create(&models.AuditEntry{
		ID:         tool.GenerateUUIDV7(),
		ActorID:    "admin-1",
		ActionType: "approve",
		TargetID:   "lst-1",
		TargetKind: types.TargetKindListing,
		Reason:     "manual review",
	}).Error)

	body, _ := json.Marshal(listing.ScanRequest{Size: 10})
	w := e.post("/api/v1/admin/list_audit_entries", body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total":1`)

	w = e.post("/api/v1/admin/list_payment_records", body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total":0`)
}
