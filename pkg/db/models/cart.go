package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/pkg/enums"
)

// Cart holds a customer's pending line selection. A cart is single-use: once
// checkout converts it to an order its status flips to converted and it can
// never be checked out again.
type Cart struct {
	ID         uuid.UUID        `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID        `json:"customer_id" gorm:"column:customer_id;type:uuid;not null;index"`
	Status     enums.CartStatus `json:"status" gorm:"column:status;not null;default:active"`
	CreatedAt  time.Time        `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`

	Items []CartItem `json:"items,omitempty" gorm:"foreignKey:CartID"`
}

func (Cart) TableName() string { return "carts" }

func (c *Cart) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CartItem is one product selection inside a cart.
type CartItem struct {
	ID        uuid.UUID `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID `json:"cart_id" gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID uuid.UUID `json:"product_id" gorm:"column:product_id;type:uuid;not null"`
	Quantity  int64     `json:"quantity" gorm:"column:quantity;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (CartItem) TableName() string { return "cart_items" }

func (ci *CartItem) BeforeCreate(_ *gorm.DB) error {
	if ci.ID == uuid.Nil {
		ci.ID = uuid.New()
	}
	return nil
}
