package orders

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

// Event names published to the orders topic for downstream consumers.
const (
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
	EventOrderRefunded  = "order.refunded"
	EventOrderShipped   = "order.shipped"
)

// EventPublisher matches the Pub/Sub v2 publisher surface.
type EventPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// OrderEvent is the wire payload for order lifecycle events.
type OrderEvent struct {
	Event      string    `json:"event"`
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Status     string    `json:"status"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}

const eventPublishTimeout = 5 * time.Second

// publishEvent ships an order event best-effort; failures are logged, never
// surfaced to the caller.
func (s *Service) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = time.Now().UTC()
	data, err := json.Marshal(event)
	if err != nil {
		s.logg.Error(ctx, "marshaling order event", err)
		return
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
		defer cancel()

		result := s.events.Publish(pubCtx, &pubsub.Message{
			Data:       data,
			Attributes: map[string]string{"event": event.Event},
		})
		if _, err := result.Get(pubCtx); err != nil {
			s.logg.Error(pubCtx, "publishing order event", err)
		}
	}()
}
