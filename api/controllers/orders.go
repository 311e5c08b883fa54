package controllers

import (
	"net/http"
	"strings"

	"github.com/athathco/athath-backend/api/responses"
	"github.com/athathco/athath-backend/api/validators"
	"github.com/athathco/athath-backend/internal/orders"
	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/gateway"
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/types"
)

// OrderList pages through the customer's orders.
func OrderList(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.OrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		list, next, err := svc.List(r.Context(), customerID, status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, types.Page[models.Order]{Items: list, NextCursor: next})
	}
}

// OrderDetail returns the customer's order with line items and payments.
func OrderDetail(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type payRequest struct {
	SourceToken string `json:"source_token" validate:"required"`
	Method      string `json:"method,omitempty"`
}

type payResponse struct {
	Outcome     string          `json:"outcome"`
	Payment     *models.Payment `json:"payment,omitempty"`
	FailureCode string          `json:"failure_code,omitempty"`
}

// OrderPay charges the pending order. Declines come back as a 200 with the
// declined outcome; only infrastructure failures surface as errors.
func OrderPay(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload payRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var method enums.PaymentMethod
		if payload.Method != "" {
			method, err = enums.ParsePaymentMethod(payload.Method)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
				return
			}
		}

		idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if idempotencyKey == "" {
			idempotencyKey = gateway.NewIdempotencyKey("pay")
		}

		outcome, err := svc.ProcessPayment(r.Context(), orders.ProcessPaymentInput{
			OrderID:        orderID,
			CustomerID:     customerID,
			SourceToken:    payload.SourceToken,
			Method:         method,
			IdempotencyKey: idempotencyKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payResponse{
			Outcome:     string(outcome.Kind),
			Payment:     outcome.Payment,
			FailureCode: outcome.FailureCode,
		})
	}
}

// OrderCancel voids the order, releases its stock, and refunds any captured
// money.
func OrderCancel(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), orderID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}
