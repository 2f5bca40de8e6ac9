package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/model"
	"storefront/internal/repository"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (model.Order, error)
	List(ctx context.Context) ([]model.Order, error)
	UpdateDeliveryStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

// OrderService backs the administrative order endpoints. It never touches payment fields.
type OrderService struct {
	repo OrderRepository
}

func NewOrderService(repo OrderRepository) *OrderService {
	return &OrderService{repo: repo}
}

func (s *OrderService) List(ctx context.Context) ([]model.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", ErrStorage, err)
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (model.Order, error) {
	if !validOrderID(id) {
		return model.Order{}, fmt.Errorf("%w: order %q", ErrNotFound, id)
	}
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return model.Order{}, mapOrderErr(id, err)
	}
	return o, nil
}

func (s *OrderService) UpdateDeliveryStatus(ctx context.Context, id, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return fmt.Errorf("%w: delivery status is required", ErrValidation)
	}
	if !validOrderID(id) {
		return fmt.Errorf("%w: order %q", ErrNotFound, id)
	}
	if err := s.repo.UpdateDeliveryStatus(ctx, id, status); err != nil {
		return mapOrderErr(id, err)
	}
	return nil
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	if !validOrderID(id) {
		return fmt.Errorf("%w: order %q", ErrNotFound, id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapOrderErr(id, err)
	}
	return nil
}

func validOrderID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func mapOrderErr(id string, err error) error {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return fmt.Errorf("%w: order %q", ErrNotFound, id)
	}
	return fmt.Errorf("%w: order %q: %w", ErrStorage, id, err)
}
