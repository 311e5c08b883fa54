package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/athathco/athath-backend/api/middleware"
	"github.com/athathco/athath-backend/api/responses"
	"github.com/athathco/athath-backend/api/validators"
	"github.com/athathco/athath-backend/internal/disputes"
	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/types"
)

type disputeCreateRequest struct {
	OrderID     uuid.UUID `json:"order_id" validate:"required"`
	Reason      string    `json:"reason" validate:"required"`
	Description string    `json:"description,omitempty"`
}

// DisputeCreate opens a ticket against one of the customer's orders.
func DisputeCreate(svc *disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload disputeCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ticket, err := svc.Create(r.Context(), payload.OrderID, customerID,
			validators.SanitizeString(payload.Reason, 2000),
			validators.SanitizeString(payload.Description, 4000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, ticket)
	}
}

// DisputeDetail returns a ticket with its thread. Customers see only their
// own tickets; staff see everything.
func DisputeDetail(svc *disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := pathUUID(r, "ticketID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ticket, err := svc.Get(r.Context(), ticketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if middleware.RoleFromContext(r.Context()) == enums.ActorRoleCustomer.String() {
			customerID, err := subjectID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if ticket.CustomerID != customerID {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found"))
				return
			}
		}

		responses.WriteSuccess(w, ticket)
	}
}

// DisputeList pages through the customer's own tickets.
func DisputeList(svc *disputes.Service, logg *logger.Logger) http.HandlerFunc {
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

		status, err := disputeStatusFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tickets, next, err := svc.List(r.Context(), &customerID, status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, types.Page[models.DisputeTicket]{Items: tickets, NextCursor: next})
	}
}

type disputeMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// DisputeAddMessage appends to the ticket thread as the authenticated actor.
func DisputeAddMessage(svc *disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ticketID, err := pathUUID(r, "ticketID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload disputeMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "unknown actor role"))
			return
		}

		message, err := svc.AddMessage(r.Context(), ticketID, authorID, role,
			validators.SanitizeString(payload.Body, 4000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

func disputeStatusFilter(r *http.Request) (*enums.DisputeStatus, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParseDisputeStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
	}
	return &status, nil
}
