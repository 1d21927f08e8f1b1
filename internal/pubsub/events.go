package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Event types published on the events topic.
const (
	EventImageSaved       = "image.saved"
	EventImageDeleted     = "image.deleted"
	EventCreditsPurchased = "credits.purchased"
)

// Event is the JSON payload of a domain event.
type Event struct {
	Type     string    `json:"type"`
	ImageID  string    `json:"image_id,omitempty"`
	UserID   string    `json:"user_id"`
	Credits  int       `json:"credits,omitempty"`
	StripeID string    `json:"stripe_id,omitempty"`
	At       time.Time `json:"at"`
}

// Emitter publishes domain events. Delivery is best effort: failures are
// logged and never reach the caller. A nil Emitter or one without a topic
// drops events.
type Emitter struct {
	publisher Publisher
	topic     string
	logger    zerolog.Logger
	now       func() time.Time
}

func NewEmitter(publisher Publisher, topic string, logger zerolog.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		topic:     topic,
		logger:    logger.With().Str("component", "Emitter").Logger(),
		now:       time.Now,
	}
}

func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if e == nil || e.publisher == nil || e.topic == "" {
		return
	}
	if ev.At.IsZero() {
		ev.At = e.now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		e.logger.Error().Err(err).Str("type", ev.Type).Msg("Failed to encode event")
		return
	}
	id, err := e.publisher.Publish(ctx, e.topic, payload)
	if err != nil {
		e.logger.Error().Err(err).Str("type", ev.Type).Msg("Failed to publish event")
		return
	}
	e.logger.Debug().Str("type", ev.Type).Str("message_id", id).Msg("Event published")
}
