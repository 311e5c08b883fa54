package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/pkg/enums"
)

// Product is a sellable furniture item. Stock counters live directly on the
// row: AvailableQty is what new carts may reserve, ReservedQty is held by
// orders that have not reached a terminal state.
type Product struct {
	ID           uuid.UUID           `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	RetailerID   uuid.UUID           `json:"retailer_id" gorm:"column:retailer_id;type:uuid;not null;index"`
	Name         string              `json:"name" gorm:"column:name;not null"`
	SKU          string              `json:"sku" gorm:"column:sku;not null;uniqueIndex"`
	PriceAmount  int64               `json:"price_amount" gorm:"column:price_amount;not null"`
	Currency     enums.Currency      `json:"currency" gorm:"column:currency;not null;default:AED"`
	Status       enums.ProductStatus `json:"status" gorm:"column:status;not null;default:active"`
	AvailableQty int64               `json:"available_qty" gorm:"column:available_qty;not null;default:0"`
	ReservedQty  int64               `json:"reserved_qty" gorm:"column:reserved_qty;not null;default:0"`
	CreatedAt    time.Time           `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`

	Retailer *Retailer `json:"retailer,omitempty" gorm:"foreignKey:RetailerID"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
