package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/pkg/enums"
)

// Order is the settlement aggregate created from a cart at checkout. All
// monetary fields are integer fils; TotalAmount is the sum of line subtotals
// plus DeliveryFee. ShippingAddress and Notes are snapshotted at checkout and
// never revised.
type Order struct {
	ID              uuid.UUID         `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	CustomerID      uuid.UUID         `json:"customer_id" gorm:"column:customer_id;type:uuid;not null;index"`
	CartID          uuid.UUID         `json:"cart_id" gorm:"column:cart_id;type:uuid;not null;uniqueIndex"`
	Reference       string            `json:"reference" gorm:"column:reference;not null;uniqueIndex"`
	Status          enums.OrderStatus `json:"status" gorm:"column:status;not null;default:pending_payment"`
	ShippingAddress string            `json:"shipping_address" gorm:"column:shipping_address;not null"`
	Notes           string            `json:"notes,omitempty" gorm:"column:notes;not null;default:''"`
	Currency        enums.Currency    `json:"currency" gorm:"column:currency;not null;default:AED"`
	ItemsAmount     int64             `json:"items_amount" gorm:"column:items_amount;not null"`
	DeliveryFee     int64             `json:"delivery_fee" gorm:"column:delivery_fee;not null"`
	TotalAmount     int64             `json:"total_amount" gorm:"column:total_amount;not null"`
	RefundAmount    int64             `json:"refund_amount" gorm:"column:refund_amount;not null;default:0"`
	PlacedAt        time.Time         `json:"placed_at" gorm:"column:placed_at;autoCreateTime"`
	CreatedAt       time.Time         `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`

	LineItems []OrderLineItem `json:"line_items,omitempty" gorm:"foreignKey:OrderID"`
	Payments  []Payment       `json:"payments,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Reference == "" {
		o.Reference = NewOrderReference()
	}
	return nil
}

// NewOrderReference mints the human-facing order code printed on invoices and
// quoted in support threads.
func NewOrderReference() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ATH-" + strings.ToUpper(raw[:10])
}

// OrderLineItem snapshots a cart item at checkout time. UnitPrice is copied
// from the product so later catalog edits never change a settled order.
type OrderLineItem struct {
	ID         uuid.UUID `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID `json:"order_id" gorm:"column:order_id;type:uuid;not null;index"`
	ProductID  uuid.UUID `json:"product_id" gorm:"column:product_id;type:uuid;not null"`
	RetailerID uuid.UUID `json:"retailer_id" gorm:"column:retailer_id;type:uuid;not null;index"`
	Name       string    `json:"name" gorm:"column:name;not null"`
	SKU        string    `json:"sku" gorm:"column:sku;not null"`
	UnitPrice  int64     `json:"unit_price" gorm:"column:unit_price;not null"`
	Quantity   int64     `json:"quantity" gorm:"column:quantity;not null"`
	Subtotal   int64     `json:"subtotal" gorm:"column:subtotal;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (OrderLineItem) TableName() string { return "order_line_items" }

func (li *OrderLineItem) BeforeCreate(_ *gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	return nil
}
