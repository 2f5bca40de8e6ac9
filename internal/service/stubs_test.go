package service

import (
	"context"
	"sync"

	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/repository"
)

type stubCatalog struct {
	products map[string]model.Product
	err      error
}

func (c *stubCatalog) FindByID(_ context.Context, id string) (model.Product, error) {
	if c.err != nil {
		return model.Product{}, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return model.Product{}, repository.ErrProductNotFound
	}
	return p, nil
}

// memOrders mirrors the Postgres repository semantics in memory.
type memOrders struct {
	mu        sync.Mutex
	orders    map[string]model.Order
	events    int
	createErr error
	markErr   error
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[string]model.Order{}}
}

func (m *memOrders) Create(_ context.Context, o model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[o.ID] = o
	return nil
}

func (m *memOrders) MarkPaid(_ context.Context, id string, upd repository.PaymentUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return false, m.markErr
	}
	o, ok := m.orders[id]
	if !ok {
		return false, repository.ErrOrderNotFound
	}
	transitioned := o.PaymentStatus == model.PaymentStatusPending
	if transitioned {
		o.DeliveryStatus = model.DeliveryStatusPending
		m.events++
	}
	o.PaymentStatus = model.PaymentStatusPaid
	if upd.Email != "" {
		o.Email = upd.Email
	}
	o.Address = upd.Address
	o.PaymentMethod = upd.PaymentMethod
	o.ProviderPaymentID = upd.ProviderPaymentID
	m.orders[id] = o
	return transitioned, nil
}

func (m *memOrders) FindByID(_ context.Context, id string) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return model.Order{}, repository.ErrOrderNotFound
	}
	return o, nil
}

func (m *memOrders) List(_ context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Order
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

func (m *memOrders) UpdateDeliveryStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.DeliveryStatus = status
	m.orders[id] = o
	return nil
}

func (m *memOrders) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *memOrders) snapshot() map[string]model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.Order, len(m.orders))
	for k, v := range m.orders {
		out[k] = v
	}
	return out
}

type stubGateway struct {
	createFunc func(ctx context.Context, req payment.SessionRequest) (payment.Session, error)
	parseFunc  func(payload []byte, signature string) (payment.Event, error)
	requests   []payment.SessionRequest
}

func (g *stubGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error) {
	g.requests = append(g.requests, req)
	if g.createFunc != nil {
		return g.createFunc(ctx, req)
	}
	return payment.Session{ID: "cs_test_" + req.CorrelationID, URL: "https://checkout.stripe.com/c/" + req.CorrelationID}, nil
}

func (g *stubGateway) ParseEvent(payload []byte, signature string) (payment.Event, error) {
	return g.parseFunc(payload, signature)
}
