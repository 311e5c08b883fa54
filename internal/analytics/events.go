package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Event names published to the analytics topic.
const (
	EventOrderCreated    = "order.created"
	EventPaymentOutcome  = "payment.outcome"
	EventRefundIssued    = "refund.issued"
	EventDisputeResolved = "dispute.resolved"
)

// Envelope wraps every analytics payload.
type Envelope struct {
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID     uuid.UUID `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	ItemsAmount int64     `json:"items_amount"`
	DeliveryFee int64     `json:"delivery_fee"`
	TotalAmount int64     `json:"total_amount"`
	Currency    string    `json:"currency"`
	LineCount   int       `json:"line_count"`
}

type PaymentOutcomePayload struct {
	OrderID     uuid.UUID `json:"order_id"`
	PaymentID   uuid.UUID `json:"payment_id"`
	Outcome     string    `json:"outcome"`
	FailureCode string    `json:"failure_code,omitempty"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
}

type RefundIssuedPayload struct {
	OrderID  uuid.UUID `json:"order_id"`
	Amount   int64     `json:"amount"`
	Currency string    `json:"currency"`
	Reason   string    `json:"reason,omitempty"`
}

type DisputeResolvedPayload struct {
	TicketID   uuid.UUID `json:"ticket_id"`
	OrderID    uuid.UUID `json:"order_id"`
	Resolution string    `json:"resolution"`
	Refund     int64     `json:"refund_amount"`
}
