package commission

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/athathco/athath-backend/pkg/db/models"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/pagination"
)

// Repo persists commissions and the append-only ledger behind them.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// WithTx returns a copy of the repo bound to the given transaction.
func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{db: tx}
}

// Insert writes a commission row. The (order_id, retailer_id) unique index
// absorbs replays: a conflicting insert is a no-op and reports inserted=false.
func (r *Repo) Insert(ctx context.Context, commission *models.Commission) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "retailer_id"}},
			DoNothing: true,
		}).
		Create(commission)
	if result.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "inserting commission")
	}
	return result.RowsAffected > 0, nil
}

// InsertLedgerEntry appends one ledger row.
func (r *Repo) InsertLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inserting ledger entry")
	}
	return nil
}

// ListByOrder returns the commissions posted against an order.
func (r *Repo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Commission, error) {
	var commissions []models.Commission
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("retailer_id").
		Find(&commissions).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing commissions")
	}
	return commissions, nil
}

// ApplyRefundAdjustment decrements a commission's amount and net_amount in
// place. Callers cap the deltas so neither column goes negative.
func (r *Repo) ApplyRefundAdjustment(ctx context.Context, commissionID uuid.UUID, amountDelta, netDelta int64) error {
	err := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("id = ?", commissionID).
		Updates(map[string]any{
			"amount":     gorm.Expr("amount - ?", amountDelta),
			"net_amount": gorm.Expr("net_amount - ?", netDelta),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjusting commission")
	}
	return nil
}

// RetailerBalance returns the net commission owed to the marketplace for a
// retailer, computed from the ledger.
func (r *Repo) RetailerBalance(ctx context.Context, retailerID uuid.UUID) (int64, error) {
	var balance int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("retailer_id = ?", retailerID).
		Scan(&balance).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "computing retailer balance")
	}
	return balance, nil
}

// ListLedger returns a retailer's ledger entries newest-first with cursor
// pagination.
func (r *Repo) ListLedger(ctx context.Context, retailerID uuid.UUID, params pagination.Params) ([]models.LedgerEntry, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).
		Where("retailer_id = ?", retailerID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var entries []models.LedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing ledger entries")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return entries, next, nil
}
