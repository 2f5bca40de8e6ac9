package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/broker"
	"storefront/internal/model"
)

type EventSource interface {
	ListUnpublished(ctx context.Context, limit int) ([]model.OrderEvent, error)
	MarkPublished(ctx context.Context, id int64) error
}

// OutboxWorker relays order events written alongside order updates to the broker.
// Delivery is at-least-once: an event published but not marked is sent again.
type OutboxWorker struct {
	events    EventSource
	publisher broker.Publisher
	topic     string
	interval  time.Duration
	batchSize int
}

func NewOutboxWorker(events EventSource, publisher broker.Publisher, topic string) *OutboxWorker {
	return &OutboxWorker{
		events:    events,
		publisher: publisher,
		topic:     topic,
		interval:  5 * time.Second,
		batchSize: 50,
	}
}

func (w *OutboxWorker) Start(ctx context.Context) {
	slog.Info("starting outbox worker", "topic", w.topic)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("outbox worker stopped")
			return
		case <-ticker.C:
			if _, err := w.processBatch(ctx); err != nil {
				slog.Error("outbox batch failed", "error", err)
			}
		}
	}
}

// processBatch publishes one batch in id order and returns how many were relayed.
// It stops at the first publish failure so later events do not overtake it.
func (w *OutboxWorker) processBatch(ctx context.Context) (int, error) {
	events, err := w.events.ListUnpublished(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unpublished events: %w", err)
	}

	published := 0
	for _, e := range events {
		if err := w.publisher.PublishEvent(ctx, w.topic, e.OrderID, e.Payload); err != nil {
			slog.Error("failed to publish event", "event_id", e.ID, "order_id", e.OrderID, "error", err)
			break
		}
		if err := w.events.MarkPublished(ctx, e.ID); err != nil {
			slog.Error("failed to mark event published", "event_id", e.ID, "error", err)
			break
		}
		published++
	}

	if published > 0 {
		slog.Info("order events published", "count", published)
	}
	return published, nil
}
