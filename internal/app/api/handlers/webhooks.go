package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lendery/backend/internal/app/service/account"
	"github.com/lendery/backend/internal/app/service/reconcile"
	"github.com/lendery/backend/pkg/response"
)

// PaymentSignatureHeader carries the processor's "t=<unix>,v1=<hex>" value.
const PaymentSignatureHeader = "Pay-Signature"

// IdentitySignatureHeader carries the identity provider's "v1=<hex>" value.
const IdentitySignatureHeader = "Webhook-Signature"

// @Summary      Payment Webhook
// @Description  Receives signed payment-processor events. Replayed events answer 200 without re-applying; signature failures answer 400; genuine processing failures answer 5xx so the provider redelivers.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        Pay-Signature header string true "t=<unix>,v1=<hex hmac>"
// @Success      200  {object}  handlers.RespWebhookResult
// @Failure      400  {object}  handlers.RespOK
// @Router       /api/v1/webhooks/payment [post]
func ApiPaymentWebhook(engine *reconcile.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		// The signature covers the exact bytes on the wire; read them before
		// anything parses the body.
		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "unreadable body"))
			return
		}

		res, err := engine.HandlePaymentWebhook(c.Request.Context(), raw, c.GetHeader(PaymentSignatureHeader))
		if err != nil {
			writeWebhookError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Identity Webhook
// @Description  Synchronizes account records from the identity provider. Same 200/400/5xx semantics as the payment webhook; never touches payment state.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        Webhook-Signature header string true "v1=<hex hmac>"
// @Success      200  {object}  handlers.RespWebhookResult
// @Failure      400  {object}  handlers.RespOK
// @Router       /api/v1/webhooks/identity [post]
func ApiIdentityWebhook(svc *account.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "unreadable body"))
			return
		}

		res, err := svc.HandleIdentityWebhook(c.Request.Context(), raw, c.GetHeader(IdentitySignatureHeader))
		if err != nil {
			writeWebhookError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// writeWebhookError maps engine errors to the redelivery contract: 400 stops
// redelivery (the event can never become valid), 5xx invites it.
func writeWebhookError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reconcile.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
	case errors.Is(err, reconcile.ErrUnknownEvent), errors.Is(err, reconcile.ErrIllegalTransition):
		c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, engine *reconcile.Engine, accounts *account.Service) {
	r.POST("/payment", ApiPaymentWebhook(engine))
	r.POST("/identity", ApiIdentityWebhook(accounts))
}
