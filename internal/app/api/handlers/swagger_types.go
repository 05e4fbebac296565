package handlers

import (
	"github.com/lendery/backend/internal/app/service/reconcile"
	"github.com/lendery/backend/internal/models"
	"github.com/lendery/backend/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespWebhookResult wraps reconcile.WebhookResult in the standard envelope.
type RespWebhookResult struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    reconcile.WebhookResult  `json:"data"`
}

// RespOverride wraps reconcile.OverrideResult in the standard envelope.
type RespOverride struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    reconcile.OverrideResult `json:"data"`
}

// RespReconcile wraps reconcile.ReconcileResult in the standard envelope.
type RespReconcile struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    reconcile.ReconcileResult `json:"data"`
}

// RespListPaymentRecords wraps ListPaymentRecordsResponse in the standard envelope.
type RespListPaymentRecords struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    ListPaymentRecordsResponse `json:"data"`
}

// RespListAuditEntries wraps the audit scan result in the standard envelope.
type RespListAuditEntries struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    struct {
		Items []*models.AuditEntry `json:"items"`
		Total int64                `json:"total"`
	} `json:"data"`
}

// RespPaymentState wraps models.ListingPaymentState in the standard envelope.
type RespPaymentState struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    models.ListingPaymentState `json:"data"`
}
