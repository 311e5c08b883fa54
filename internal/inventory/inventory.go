package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
)

// Repo moves stock between the available and reserved counters on products.
// Every mutation is a single guarded UPDATE so concurrent checkouts can never
// drive a counter negative.
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

// Reserve moves qty units from available to reserved for an active product.
func (r *Repo) Reserve(ctx context.Context, productID uuid.UUID, qty int64) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	result := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET available_qty = available_qty - ?,
		    reserved_qty = reserved_qty + ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ? AND available_qty >= ?`,
		qty, qty, productID, enums.ProductStatusActive, qty,
	)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "reserving stock")
	}
	if result.RowsAffected == 0 {
		return r.classifyReserveFailure(ctx, productID, qty)
	}
	return nil
}

// Release returns qty units from reserved to available, used when an order is
// cancelled or a payment attempt is abandoned.
func (r *Repo) Release(ctx context.Context, productID uuid.UUID, qty int64) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	result := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET available_qty = available_qty + ?,
		    reserved_qty = reserved_qty - ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reserved_qty >= ?`,
		qty, qty, productID, qty,
	)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "releasing stock")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot release %d units for product %s", qty, productID))
	}
	return nil
}

// Commit burns qty units out of reserved once goods leave the warehouse.
func (r *Repo) Commit(ctx context.Context, productID uuid.UUID, qty int64) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	result := r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET reserved_qty = reserved_qty - ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reserved_qty >= ?`,
		qty, productID, qty,
	)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "committing stock")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot commit %d units for product %s", qty, productID))
	}
	return nil
}

func (r *Repo) classifyReserveFailure(ctx context.Context, productID uuid.UUID, qty int64) error {
	var product models.Product
	err := r.db.WithContext(ctx).
		Select("id", "status", "available_qty").
		First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if product.Status != enums.ProductStatusActive {
		return pkgerrors.New(pkgerrors.CodeProductUnavailable,
			fmt.Sprintf("product %s is %s", productID, product.Status)).
			WithDetails(map[string]any{"product_id": productID, "status": product.Status})
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("product %s has %d available, requested %d", productID, product.AvailableQty, qty)).
		WithDetails(map[string]any{
			"product_id": productID,
			"available":  product.AvailableQty,
			"requested":  qty,
		})
}
