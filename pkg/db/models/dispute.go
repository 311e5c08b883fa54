package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/pkg/enums"
)

// DisputeTicket is a customer complaint against an order. At most one open
// ticket may exist per order, enforced by the partial unique index created in
// migrations (sqlite tests enforce it in the service layer instead).
type DisputeTicket struct {
	ID           uuid.UUID                `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID                `json:"order_id" gorm:"column:order_id;type:uuid;not null;index"`
	CustomerID   uuid.UUID                `json:"customer_id" gorm:"column:customer_id;type:uuid;not null;index"`
	Status       enums.DisputeStatus      `json:"status" gorm:"column:status;not null;default:open"`
	PriorStatus  enums.OrderStatus        `json:"prior_status" gorm:"column:prior_status;not null"`
	Reason       string                   `json:"reason" gorm:"column:reason;not null"`
	Resolution   *enums.DisputeResolution `json:"resolution,omitempty" gorm:"column:resolution"`
	RefundAmount int64                    `json:"refund_amount" gorm:"column:refund_amount;not null;default:0"`
	ResolvedBy   *uuid.UUID               `json:"resolved_by,omitempty" gorm:"column:resolved_by;type:uuid"`
	ResolvedAt   *time.Time               `json:"resolved_at,omitempty" gorm:"column:resolved_at"`
	CreatedAt    time.Time                `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`

	Messages []DisputeMessage `json:"messages,omitempty" gorm:"foreignKey:TicketID"`
}

func (DisputeTicket) TableName() string { return "dispute_tickets" }

func (d *DisputeTicket) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DisputeMessage is one entry in a ticket's conversation thread.
type DisputeMessage struct {
	ID        uuid.UUID       `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	TicketID  uuid.UUID       `json:"ticket_id" gorm:"column:ticket_id;type:uuid;not null;index"`
	AuthorID  uuid.UUID       `json:"author_id" gorm:"column:author_id;type:uuid;not null"`
	Role      enums.ActorRole `json:"role" gorm:"column:role;not null"`
	Body      string          `json:"body" gorm:"column:body;not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (DisputeMessage) TableName() string { return "dispute_messages" }

func (m *DisputeMessage) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
