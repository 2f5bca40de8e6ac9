package broker

import (
	"context"
	"log/slog"
)

// Publisher publishes events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

// NopPublisher drops events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(_ context.Context, topic string, key string, _ []byte) error {
	slog.Debug("event dropped, no broker configured", "topic", topic, "key", key)
	return nil
}

func (NopPublisher) Close() error { return nil }
