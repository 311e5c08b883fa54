package analytics

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/athathco/athath-backend/pkg/logger"
)

const publishTimeout = 5 * time.Second

// Publisher matches the Pub/Sub v2 publisher surface the tracker needs.
type Publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Tracker ships analytics events without blocking the request path. Publish
// failures are logged and dropped; analytics never fails a settlement flow.
type Tracker struct {
	publisher Publisher
	logg      *logger.Logger
}

func NewTracker(publisher Publisher, logg *logger.Logger) *Tracker {
	return &Tracker{publisher: publisher, logg: logg}
}

// Track serializes and publishes the event in the background.
func (t *Tracker) Track(ctx context.Context, event string, payload any) {
	if t == nil || t.publisher == nil {
		return
	}

	envelope := Envelope{
		Event:      event,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		if t.logg != nil {
			t.logg.Error(ctx, "marshaling analytics event", err)
		}
		return
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		result := t.publisher.Publish(pubCtx, &pubsub.Message{
			Data:       data,
			Attributes: map[string]string{"event": event},
		})
		if _, err := result.Get(pubCtx); err != nil && t.logg != nil {
			t.logg.Error(pubCtx, "publishing analytics event", err)
		}
	}()
}
