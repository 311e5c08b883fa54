package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/pkg/enums"
)

// Payment records a single gateway attempt against an order. GatewayRef is
// the processor's payment id and is the join key used by reconciliation.
type Payment struct {
	ID             uuid.UUID           `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID           `json:"order_id" gorm:"column:order_id;type:uuid;not null;index"`
	Status         enums.PaymentStatus `json:"status" gorm:"column:status;not null;default:pending"`
	Method         enums.PaymentMethod `json:"method" gorm:"column:method;not null;default:card"`
	Amount         int64               `json:"amount" gorm:"column:amount;not null"`
	RefundedAmount int64               `json:"refunded_amount" gorm:"column:refunded_amount;not null;default:0"`
	Currency       enums.Currency      `json:"currency" gorm:"column:currency;not null;default:AED"`
	GatewayRef     string              `json:"gateway_ref" gorm:"column:gateway_ref;index"`
	IdempotencyKey string              `json:"idempotency_key" gorm:"column:idempotency_key;not null;uniqueIndex"`
	FailureCode    string              `json:"failure_code,omitempty" gorm:"column:failure_code"`
	FailureDetail  string              `json:"failure_detail,omitempty" gorm:"column:failure_detail"`
	AuthorizedAt   *time.Time          `json:"authorized_at,omitempty" gorm:"column:authorized_at"`
	CapturedAt     *time.Time          `json:"captured_at,omitempty" gorm:"column:captured_at"`
	CreatedAt      time.Time           `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
