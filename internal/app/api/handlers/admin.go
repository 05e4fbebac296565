package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	mw "github.com/lendery/backend/internal/app/api/middleware"
	"github.com/lendery/backend/internal/app/service/listing"
	"github.com/lendery/backend/internal/app/service/reconcile"
	"github.com/lendery/backend/internal/models"
	"github.com/lendery/backend/pkg/response"
	"github.com/lendery/backend/pkg/types"
)

func targetKind(s string) types.TargetKind { return types.TargetKind(s) }

type OverrideRequest struct {
	TargetID   string `json:"target_id"`
	TargetKind string `json:"target_kind"`
	ActionType string `json:"action_type"`
	Reason     string `json:"reason"`
}

// @Summary      Admin Override
// @Description  Applies a privileged, audited state change outside the event-driven path. The reason is mandatory and the audit entry is written in the same transaction as the mutation.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body handlers.OverrideRequest true "Override request"
// @Success      200  {object}  handlers.RespOverride
// @Router       /api/v1/admin/override [post]
func ApiOverride(ctrl *reconcile.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OverrideRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := ctrl.Override(c.Request.Context(), &reconcile.OverrideRequest{
			ActorID:    mw.ActorID(c),
			TargetID:   req.TargetID,
			TargetKind: targetKind(req.TargetKind),
			Action:     reconcile.OverrideAction(req.ActionType),
			Reason:     req.Reason,
		})
		if err != nil {
			writeAdminError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type ReconcilePaymentRequest struct {
	IntentID string `json:"intent_id"`
	Reason   string `json:"reason"`
}

// @Summary      Reconcile Payment (Admin)
// @Description  Asks the payment processor whether an intent actually succeeded and, if so, applies the normal succeeded transition. The lookup is timeout-bounded and the action is audited.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body handlers.ReconcilePaymentRequest true "Reconcile request"
// @Success      200  {object}  handlers.RespReconcile
// @Router       /api/v1/admin/reconcile_payment [post]
func ApiReconcilePayment(ctrl *reconcile.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReconcilePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := ctrl.ReconcilePayment(c.Request.Context(), &reconcile.ReconcileRequest{
			ActorID:  mw.ActorID(c),
			IntentID: req.IntentID,
			Reason:   req.Reason,
		})
		if err != nil {
			writeAdminError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// PaymentRecordItem is the admin list view of one payment record.
type PaymentRecordItem struct {
	ID               string                    `json:"id"`
	ListingID        *string                   `json:"listing_id"`
	AccountID        string                    `json:"account_id"`
	ExternalIntentID string                    `json:"external_intent_id"`
	Amount           int64                     `json:"amount"`
	Currency         string                    `json:"currency"`
	Purpose          types.PaymentPurpose      `json:"purpose"`
	Status           types.PaymentRecordStatus `json:"status"`
	ProviderEventID  string                    `json:"provider_event_id,omitempty"`
	FailureCode      string                    `json:"failure_code,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

func toPaymentRecordItem(m *models.PaymentRecord) *PaymentRecordItem {
	item := &PaymentRecordItem{
		ID:               m.ID,
		ListingID:        m.ListingID,
		AccountID:        m.AccountID,
		ExternalIntentID: m.ExternalIntentID,
		Amount:           m.Amount,
		Currency:         m.Currency,
		Purpose:          m.Purpose,
		Status:           m.Status,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if extra := m.Extra.Data(); extra != nil {
		item.ProviderEventID = extra.ProviderEventID
		item.FailureCode = extra.FailureCode
	}
	return item
}

type ListPaymentRecordsResponse struct {
	Items []*PaymentRecordItem `json:"items"`
	Total int64                `json:"total"`
}

// @Summary      List Payment Records (Admin)
// @Description  Retrieves a paginated and filterable list of payment records.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body listing.ScanRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListPaymentRecords
// @Router       /api/v1/admin/list_payment_records [post]
func ApiListPaymentRecords(svc *listing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req listing.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanPaymentRecords(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		items := lo.Map(res.Items, func(it *models.PaymentRecord, _ int) *PaymentRecordItem { return toPaymentRecordItem(it) })
		c.JSON(http.StatusOK, response.OKT(&ListPaymentRecordsResponse{Items: items, Total: res.Total}))
	}
}

// @Summary      List Audit Entries (Admin)
// @Description  Pages through the append-only audit log of admin overrides.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body listing.ScanRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListAuditEntries
// @Router       /api/v1/admin/list_audit_entries [post]
func ApiListAuditEntries(svc *listing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req listing.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanAuditEntries(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func writeAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reconcile.ErrBlankReason), errors.Is(err, reconcile.ErrIllegalTransition):
		c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
	case errors.Is(err, reconcile.ErrReconciliationTimeout):
		c.JSON(http.StatusGatewayTimeout, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
	}
}

func RegisterAdminRoutes(r gin.IRouter, ctrl *reconcile.Controller, svc *listing.Service) {
	r.POST("/override", ApiOverride(ctrl))
	r.POST("/reconcile_payment", ApiReconcilePayment(ctrl))
	r.POST("/list_payment_records", ApiListPaymentRecords(svc))
	r.POST("/list_audit_entries", ApiListAuditEntries(svc))
}
