package consumers

import (
	"context"
	"encoding/json"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/athathco/athath-backend/internal/orders"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/logger"
)

// OrdersConsumer reacts to order lifecycle events. Paid orders are moved into
// fulfillment automatically; everything else is logged for the audit trail.
type OrdersConsumer struct {
	subscriber *pubsub.Subscriber
	service    *orders.Service
	logg       *logger.Logger
}

func NewOrdersConsumer(subscriber *pubsub.Subscriber, service *orders.Service, logg *logger.Logger) (*OrdersConsumer, error) {
	if subscriber == nil {
		return nil, errors.New("orders subscriber is required")
	}
	if service == nil {
		return nil, errors.New("orders service is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &OrdersConsumer{
		subscriber: subscriber,
		service:    service,
		logg:       logg,
	}, nil
}

// Run blocks receiving messages until the context is canceled.
func (c *OrdersConsumer) Run(ctx context.Context) error {
	c.logg.Info(ctx, "orders consumer starting")
	return c.subscriber.Receive(ctx, c.handle)
}

func (c *OrdersConsumer) handle(ctx context.Context, msg *pubsub.Message) {
	var event orders.OrderEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logg.Error(ctx, "orders consumer: bad payload, dropping", err)
		msg.Ack()
		return
	}

	ctx = c.logg.WithOrderID(ctx, event.OrderID.String())
	ctx = c.logg.WithField(ctx, "event", event.Event)

	switch event.Event {
	case orders.EventOrderPaid:
		// Commission posting is idempotent; this pass only writes anything if
		// the capture transaction's postings are missing.
		if _, err := c.service.EnsureCommissions(ctx, event.OrderID); err != nil {
			c.logg.Error(ctx, "orders consumer: ensuring commissions", err)
			msg.Nack()
			return
		}
		if err := c.service.MarkProcessing(ctx, event.OrderID); err != nil {
			// A state conflict means another worker already advanced the
			// order; that's a successful no-op.
			if pe := pkgerrors.As(err); pe != nil && pe.Code() == pkgerrors.CodeStateConflict {
				msg.Ack()
				return
			}
			c.logg.Error(ctx, "orders consumer: starting fulfillment", err)
			msg.Nack()
			return
		}
		c.logg.Info(ctx, "order moved to fulfillment")
	default:
		c.logg.Info(ctx, "order event received")
	}
	msg.Ack()
}
