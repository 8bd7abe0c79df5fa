// Package events carries domain events from application services to sinks
// such as the log or a Kafka topic. Delivery is best effort.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event is a transport-agnostic record of something that happened to an
// aggregate. Key groups events of one aggregate onto one partition.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	RequestID  string    `json:"request_id,omitempty"`
	Payload    any       `json:"payload,omitempty"`
}

// New builds an event with a fresh id.
func New(eventType, key string, occurredAt time.Time, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: occurredAt,
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// LogPublisher writes events to the structured log. Used when no broker is
// configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "domain event",
		"event_id", event.ID,
		"event_type", event.Type,
		"key", event.Key,
		"request_id", event.RequestID,
		"occurred_at", event.OccurredAt,
	)
	return nil
}
