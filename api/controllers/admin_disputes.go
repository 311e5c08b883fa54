package controllers

import (
	"net/http"

	"github.com/athathco/athath-backend/api/responses"
	"github.com/athathco/athath-backend/api/validators"
	"github.com/athathco/athath-backend/internal/disputes"
	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/types"
)

// AdminDisputeList pages through all tickets, optionally filtered by status.
func AdminDisputeList(svc *disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		tickets, next, err := svc.List(r.Context(), nil, status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, types.Page[models.DisputeTicket]{Items: tickets, NextCursor: next})
	}
}

type disputeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminDisputeUpdateStatus moves a ticket between working statuses.
func AdminDisputeUpdateStatus(svc *disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID, err := pathUUID(r, "ticketID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload disputeStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseDisputeStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute status"))
			return
		}

		if err := svc.UpdateStatus(r.Context(), ticketID, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": status.String()})
	}
}

type disputeResolveRequest struct {
	Resolution   string `json:"resolution" validate:"required"`
	RefundAmount int64  `json:"refund_amount,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// AdminDisputeResolve applies the final decision on a ticket.
func AdminDisputeResolve(svc *disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ticketID, err := pathUUID(r, "ticketID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload disputeResolveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolution, err := enums.ParseDisputeResolution(payload.Resolution)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid resolution"))
			return
		}

		ticket, err := svc.Resolve(r.Context(), disputes.ResolveInput{
			TicketID:     ticketID,
			ResolvedBy:   adminID,
			Resolution:   resolution,
			RefundAmount: payload.RefundAmount,
			Notes:        validators.SanitizeString(payload.Notes, 4000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ticket)
	}
}
