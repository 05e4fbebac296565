package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lendery/backend/internal/app/service/listing"
	"github.com/lendery/backend/pkg/response"
)

// @Summary      Listing Payment State
// @Description  Returns the payment/publication facet of one listing.
// @Tags         Listing
// @Produce      json
// @Param        id path string true "Listing ID"
// @Success      200  {object}  handlers.RespPaymentState
// @Router       /api/v1/listings/{id}/payment_state [get]
func ApiGetListingPaymentState(svc *listing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		listingID := c.Param("id")
		if listingID == "" {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing listing id"))
			return
		}
		st, err := svc.GetPaymentState(c.Request.Context(), listingID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if st == nil {
			c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeBadRequest, "listing has no payment state"))
			return
		}
		c.JSON(http.StatusOK, response.OKT(st))
	}
}

func RegisterListingRoutes(r gin.IRouter, svc *listing.Service) {
	r.GET("/listings/:id/payment_state", ApiGetListingPaymentState(svc))
}
