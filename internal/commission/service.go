package commission

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/pagination"
)

// Service posts commissions when orders settle and reverses them
// proportionally when money flows back to the customer.
type Service struct {
	repo           *Repo
	logg           *logger.Logger
	defaultRateBps int64
}

func NewService(repo *Repo, logg *logger.Logger, defaultRateBps int64) *Service {
	if defaultRateBps <= 0 {
		defaultRateBps = 1200
	}
	return &Service{
		repo:           repo,
		logg:           logg,
		defaultRateBps: defaultRateBps,
	}
}

// PostResult reports what a posting attempt did. AlreadyPosted is true when
// every retailer group hit the unique index, i.e. the call was a replay.
type PostResult struct {
	Posted        []models.Commission
	AlreadyPosted bool
}

// Post writes one commission per retailer represented on the order, with the
// amount floored at floor(groupTotal * rateBps / 10000). Posting is
// idempotent per (order, retailer); replays change nothing.
func (s *Service) Post(ctx context.Context, tx *gorm.DB, order *models.Order) (*PostResult, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if len(order.LineItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no line items")
	}

	repo := s.repo.WithTx(tx)

	groups := map[uuid.UUID]int64{}
	for _, item := range order.LineItems {
		groups[item.RetailerID] += item.Subtotal
	}

	rates, err := s.loadRates(ctx, tx, groups)
	if err != nil {
		return nil, err
	}

	retailerIDs := make([]uuid.UUID, 0, len(groups))
	for retailerID := range groups {
		retailerIDs = append(retailerIDs, retailerID)
	}
	sort.Slice(retailerIDs, func(i, j int) bool {
		return retailerIDs[i].String() < retailerIDs[j].String()
	})

	result := &PostResult{AlreadyPosted: true}
	for _, retailerID := range retailerIDs {
		base := groups[retailerID]
		rate := rates[retailerID]
		amount := base * rate / 10000
		commission := models.Commission{
			OrderID:    order.ID,
			RetailerID: retailerID,
			BaseAmount: base,
			RateBps:    rate,
			Amount:     amount,
			NetAmount:  base - amount,
			Currency:   order.Currency,
		}
		inserted, err := repo.Insert(ctx, &commission)
		if err != nil {
			return nil, err
		}
		if !inserted {
			continue
		}
		result.AlreadyPosted = false
		result.Posted = append(result.Posted, commission)

		entry := models.LedgerEntry{
			OrderID:    order.ID,
			RetailerID: retailerID,
			EntryType:  enums.LedgerEntryTypeCommission,
			Amount:     commission.Amount,
			Currency:   order.Currency,
			Memo:       fmt.Sprintf("commission for order %s", order.ID),
		}
		if err := repo.InsertLedgerEntry(ctx, &entry); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// AdjustForRefund reverses each commission in proportion to the refunded
// share of the order total: amount and net_amount both shrink by the rounded
// share of their originally posted values, capped so cumulative reversals
// never drive either below zero. Each applied adjustment leaves a negative
// REFUND ledger entry.
func (s *Service) AdjustForRefund(ctx context.Context, tx *gorm.DB, order *models.Order, refundAmount int64) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if refundAmount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if order.TotalAmount <= 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order total must be positive")
	}

	repo := s.repo.WithTx(tx)

	commissions, err := repo.ListByOrder(ctx, order.ID)
	if err != nil {
		return err
	}

	for _, commission := range commissions {
		// Scale from the originally posted amounts, recomputed from the
		// immutable base and rate, so successive refunds sum linearly instead
		// of compounding against already-reduced rows.
		posted := commission.BaseAmount * commission.RateBps / 10000
		postedNet := commission.BaseAmount - posted

		amountAdj := roundedShare(posted, refundAmount, order.TotalAmount)
		if amountAdj > commission.Amount {
			amountAdj = commission.Amount
		}
		netAdj := roundedShare(postedNet, refundAmount, order.TotalAmount)
		if netAdj > commission.NetAmount {
			netAdj = commission.NetAmount
		}
		if amountAdj <= 0 && netAdj <= 0 {
			continue
		}

		if err := repo.ApplyRefundAdjustment(ctx, commission.ID, amountAdj, netAdj); err != nil {
			return err
		}
		if amountAdj <= 0 {
			continue
		}

		entry := models.LedgerEntry{
			OrderID:    order.ID,
			RetailerID: commission.RetailerID,
			EntryType:  enums.LedgerEntryTypeRefund,
			Amount:     -amountAdj,
			Currency:   order.Currency,
			Memo:       fmt.Sprintf("refund adjustment for order %s", order.ID),
		}
		if err := repo.InsertLedgerEntry(ctx, &entry); err != nil {
			return err
		}
	}
	return nil
}

// roundedShare returns round(base * part / whole), half away from zero.
func roundedShare(base, part, whole int64) int64 {
	return (base*part + whole/2) / whole
}

// Balance returns the retailer's net commission position.
func (s *Service) Balance(ctx context.Context, retailerID uuid.UUID) (int64, error) {
	return s.repo.RetailerBalance(ctx, retailerID)
}

// Ledger pages through the retailer's ledger entries, newest first.
func (s *Service) Ledger(ctx context.Context, retailerID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error) {
	return s.repo.ListLedger(ctx, retailerID, params)
}

func (s *Service) loadRates(ctx context.Context, tx *gorm.DB, groups map[uuid.UUID]int64) (map[uuid.UUID]int64, error) {
	ids := make([]uuid.UUID, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}

	var retailers []models.Retailer
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&retailers).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading retailers")
	}

	rates := make(map[uuid.UUID]int64, len(groups))
	for id := range groups {
		rates[id] = s.defaultRateBps
	}
	for _, retailer := range retailers {
		if retailer.CommissionRateBps > 0 {
			rates[retailer.ID] = retailer.CommissionRateBps
		}
	}
	return rates, nil
}
