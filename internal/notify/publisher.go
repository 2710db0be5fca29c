package notify

import (
	"context"

	"go.uber.org/zap"
)

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// LogPublisher writes every event to the structured log. It is used when no
// broker is configured.
type LogPublisher struct {
	log *zap.SugaredLogger
}

// NewLogPublisher returns a publisher logging through log.
func NewLogPublisher(log *zap.SugaredLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event *Event) error {
	p.log.Infow("Event published",
		"type", event.Type,
		"user_id", event.UserID,
		"resource_id", event.ResourceID,
		"payload", event.Payload,
	)
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Event) error { return nil }
func (NopPublisher) Close() error                          { return nil }
