package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/internal/event"
	"github.com/avelora/storefront/internal/repository"
	apperrors "github.com/avelora/storefront/pkg/errors"
)

// OrderService reads placed orders and drives status transitions.
type OrderService struct {
	repo     repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates an order service.
func NewOrderService(repo repository.OrderRepository, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// GetOrder returns the order if it belongs to ownerKey. Another owner's
// order reads as not found rather than forbidden.
func (s *OrderService) GetOrder(ctx context.Context, ownerKey, id string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.OwnerKey != ownerKey {
		return nil, apperrors.NotFound("order", id)
	}
	return order, nil
}

// GetOrderByNumber returns the owner's order by its customer-facing number.
func (s *OrderService) GetOrderByNumber(ctx context.Context, ownerKey, number string) (*domain.Order, error) {
	order, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("get order by number: %w", err)
	}
	if order.OwnerKey != ownerKey {
		return nil, apperrors.NotFound("order", number)
	}
	return order, nil
}

// ListOrders returns the owner's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, ownerKey string, page, perPage int) ([]domain.Order, int, error) {
	filter := repository.OrderFilter{
		OwnerKey: &ownerKey,
		Page:     clampPage(page),
		PerPage:  clampPerPage(perPage),
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// Cancel cancels the owner's order while it is still pending or processing.
func (s *OrderService) Cancel(ctx context.Context, ownerKey, id string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, ownerKey, id)
	if err != nil {
		return nil, err
	}
	if !order.CanCancel() {
		return nil, apperrors.InvalidTransition(order.Status, domain.OrderStatusCancelled)
	}

	return s.setStatus(ctx, order, domain.OrderStatusCancelled)
}

// AdminListOrders returns orders across all owners with optional status
// filtering.
func (s *OrderService) AdminListOrders(ctx context.Context, status string, page, perPage int) ([]domain.Order, int, error) {
	filter := repository.OrderFilter{
		Page:    clampPage(page),
		PerPage: clampPerPage(perPage),
	}
	if status != "" {
		if !domain.IsValidStatus(status) {
			return nil, 0, apperrors.InvalidInput("invalid status")
		}
		filter.Status = &status
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// AdminGetOrder returns any order by ID, regardless of owner.
func (s *OrderService) AdminGetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// AdminSetStatus sets any recognized status on any order. Unlike Cancel it
// does not consult the transition graph; support staff use it to repair
// order state, so only the value itself is validated.
func (s *OrderService) AdminSetStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	if !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput("invalid status")
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status == status {
		return order, nil
	}

	return s.setStatus(ctx, order, status)
}

func (s *OrderService) setStatus(ctx context.Context, order *domain.Order, status string) (*domain.Order, error) {
	oldStatus := order.Status
	if err := s.repo.UpdateStatus(ctx, order.ID, status); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	order.Status = status

	// Do not fail the operation if event publishing fails.
	if err := s.producer.PublishOrderStatusChanged(ctx, order.ID, order.OrderNumber, oldStatus, status); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order status changed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status changed",
		slog.String("order_id", order.ID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", status),
	)
	return order, nil
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func clampPerPage(perPage int) int {
	if perPage < 1 {
		return 20
	}
	if perPage > 100 {
		return 100
	}
	return perPage
}
