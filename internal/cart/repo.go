package cart

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

// Repo persists carts and their items.
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

// GetActive loads the customer's active cart with items and products.
func (r *Repo) GetActive(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Where("customer_id = ? AND status = ?", customerID, enums.CartStatusActive).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return &cart, nil
}

// Get loads a cart by id with items and products.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		First(&cart, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("cart %s not found", id))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	return &cart, nil
}

// Create persists a new active cart for the customer.
func (r *Repo) Create(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	cart := &models.Cart{
		CustomerID: customerID,
		Status:     enums.CartStatusActive,
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
	}
	return cart, nil
}

// UpsertItem sets the quantity for a product line, creating it when missing
// and deleting it when quantity is zero.
func (r *Repo) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int64) error {
	if quantity == 0 {
		return r.deleteItem(ctx, cartID, productID)
	}

	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = models.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}
		if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart item")
		}
		return nil
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}

	if err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", item.ID).
		Update("quantity", quantity).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
	}
	return nil
}

// ClearItems removes every line from a cart. The cart row itself stays
// active.
func (r *Repo) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart items")
	}
	return nil
}

func (r *Repo) deleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting cart item")
	}
	return nil
}

// MarkConverted flips an active cart to converted; zero rows means the cart
// was already converted by a concurrent checkout.
func (r *Repo) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, enums.CartStatusActive).
		Update("status", enums.CartStatusConverted)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "converting cart")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart already converted")
	}
	return nil
}
