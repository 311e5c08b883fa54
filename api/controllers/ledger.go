package controllers

import (
	"net/http"

	"github.com/athathco/athath-backend/api/responses"
	"github.com/athathco/athath-backend/internal/commission"
	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/types"
)

// RetailerLedger pages through the authenticated retailer's ledger entries.
func RetailerLedger(svc *commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := retailerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, next, err := svc.Ledger(r.Context(), id, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, types.Page[models.LedgerEntry]{Items: entries, NextCursor: next})
	}
}

// RetailerBalance returns the retailer's net commission position in fils.
func RetailerBalance(svc *commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := retailerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int64{"balance": balance})
	}
}
