package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
)

type fakeEvents struct {
	pending   []model.OrderEvent
	published []int64
	listErr   error
	markErr   error
}

func (f *fakeEvents) ListUnpublished(_ context.Context, limit int) ([]model.OrderEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeEvents) MarkPublished(_ context.Context, id int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, id)
	return nil
}

type sentMessage struct {
	topic, key string
	payload    []byte
}

type fakePublisher struct {
	sent   []sentMessage
	failOn int64
}

func (p *fakePublisher) PublishEvent(_ context.Context, topic, key string, payload []byte) error {
	if p.failOn != 0 && string(payload) == eventPayload(p.failOn) {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, sentMessage{topic: topic, key: key, payload: payload})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func eventPayload(id int64) string {
	return `{"seq":` + string(rune('0'+id)) + `}`
}

func events(ids ...int64) []model.OrderEvent {
	out := make([]model.OrderEvent, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.OrderEvent{
			ID:      id,
			OrderID: "order-" + string(rune('0'+id)),
			Type:    model.EventOrderPaid,
			Payload: []byte(eventPayload(id)),
		})
	}
	return out
}

func TestOutboxWorkerPublishesInOrder(t *testing.T) {
	src := &fakeEvents{pending: events(1, 2, 3)}
	pub := &fakePublisher{}
	w := NewOutboxWorker(src, pub, "orders.paid")

	n, err := w.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int64{1, 2, 3}, src.published)
	require.Len(t, pub.sent, 3)
	assert.Equal(t, "orders.paid", pub.sent[0].topic)
	assert.Equal(t, "order-1", pub.sent[0].key)
	assert.Equal(t, eventPayload(1), string(pub.sent[0].payload))
}

func TestOutboxWorkerStopsAtFirstFailure(t *testing.T) {
	src := &fakeEvents{pending: events(1, 2, 3)}
	pub := &fakePublisher{failOn: 2}
	w := NewOutboxWorker(src, pub, "orders.paid")

	n, err := w.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, src.published)
}

func TestOutboxWorkerRespectsBatchSize(t *testing.T) {
	src := &fakeEvents{pending: events(1, 2, 3)}
	w := NewOutboxWorker(src, &fakePublisher{}, "orders.paid")
	w.batchSize = 2

	n, err := w.processBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOutboxWorkerListFailure(t *testing.T) {
	src := &fakeEvents{listErr: errors.New("connection refused")}
	w := NewOutboxWorker(src, &fakePublisher{}, "orders.paid")

	_, err := w.processBatch(context.Background())
	require.Error(t, err)
}

func TestOutboxWorkerStopsOnCancel(t *testing.T) {
	w := NewOutboxWorker(&fakeEvents{}, &fakePublisher{}, "orders.paid")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	<-done
}
