package controllers

import (
	"net/http"

	"github.com/athathco/athath-backend/api/responses"
	"github.com/athathco/athath-backend/api/validators"
	"github.com/athathco/athath-backend/internal/orders"
	"github.com/athathco/athath-backend/pkg/logger"
)

type refundRequest struct {
	Amount int64  `json:"amount" validate:"required,min=1"`
	Reason string `json:"reason,omitempty"`
}

// AdminRefund issues a partial or full refund against the order's captured
// payment. Commission adjustment rides along inside the refund primitive.
func AdminRefund(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Refund(r.Context(), orders.RefundInput{
			OrderID: orderID,
			Amount:  payload.Amount,
			Reason:  validators.SanitizeString(payload.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// RetailerShipOrder moves a processing order to shipped and burns its
// reserved stock.
func RetailerShipOrder(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkShipped(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "shipped"})
	}
}

// RetailerDeliverOrder completes fulfillment of a shipped order.
func RetailerDeliverOrder(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkDelivered(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "delivered"})
	}
}
