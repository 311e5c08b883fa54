package controllers

import (
	"net/http"

	"github.com/athathco/athath-backend/api/responses"
	"github.com/athathco/athath-backend/api/validators"
	checkoutsvc "github.com/athathco/athath-backend/internal/checkout"
	"github.com/athathco/athath-backend/pkg/logger"
)

type checkoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
	Notes           string `json:"notes,omitempty"`
}

// Checkout converts the customer's active cart into a pending-payment order,
// reserving stock for every line. The shipping address and notes are
// snapshotted onto the order.
func Checkout(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), checkoutsvc.CreateOrderInput{
			CustomerID:      customerID,
			ShippingAddress: validators.SanitizeString(payload.ShippingAddress, 500),
			Notes:           validators.SanitizeString(payload.Notes, 1000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
