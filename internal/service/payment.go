package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/internal/event"
	"github.com/avelora/storefront/internal/provider"
	"github.com/avelora/storefront/internal/repository"
	apperrors "github.com/avelora/storefront/pkg/errors"
)

// PaymentService charges orders through the configured gateway and records
// the outcome.
type PaymentService struct {
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	gateway  provider.Provider
	producer *event.Producer
	logger   *slog.Logger
}

// NewPaymentService creates a payment service.
func NewPaymentService(payments repository.PaymentRepository, orders repository.OrderRepository, gateway provider.Provider, producer *event.Producer, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		payments: payments,
		orders:   orders,
		gateway:  gateway,
		producer: producer,
		logger:   logger,
	}
}

// RecordPaymentInput holds the parameters for paying an order. Amount is in
// cents and must equal the order total.
type RecordPaymentInput struct {
	Method string
	Amount int64
	// TransactionID overrides the gateway's charge reference when set.
	TransactionID string
}

// RecordPayment charges the owner's order and records the payment. The
// recording transaction enforces the amount match and the one-completed-
// payment rule; a completed payment advances a pending order to processing.
func (s *PaymentService) RecordPayment(ctx context.Context, ownerKey, orderID string, input *RecordPaymentInput) (*domain.Payment, error) {
	if !domain.IsValidMethod(input.Method) {
		return nil, apperrors.InvalidInput("invalid payment method")
	}
	if input.Amount <= 0 {
		return nil, apperrors.InvalidInput("amount must be positive")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.OwnerKey != ownerKey {
		return nil, apperrors.NotFound("order", orderID)
	}

	// Preconditions are checked before the gateway is touched so a doomed
	// request never charges the customer. The recording transaction re-checks
	// both under a row lock and stays authoritative.
	if input.Amount != order.Total {
		return nil, apperrors.InvalidInput("payment amount must match order total")
	}
	existing, err := s.payments.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	for _, p := range existing {
		if p.Status == domain.PaymentStatusCompleted {
			return nil, apperrors.InvalidInput("order has already been paid")
		}
	}

	result, err := s.gateway.Charge(ctx, &provider.ChargeInput{
		Amount:      input.Amount,
		Method:      input.Method,
		Description: "order " + order.OrderNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("charge via %s: %w", s.gateway.Name(), err)
	}

	status := domain.PaymentStatusCompleted
	if result.Status != "succeeded" {
		status = domain.PaymentStatusFailed
	}

	transactionID := input.TransactionID
	if transactionID == "" {
		transactionID = result.ProviderPaymentID
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:            uuid.New().String(),
		OrderID:       order.ID,
		Method:        input.Method,
		Status:        status,
		Amount:        input.Amount,
		TransactionID: transactionID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	orderStatus, err := s.payments.Record(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	// Do not fail the operation if event publishing fails.
	if err := s.producer.PublishPaymentRecorded(ctx, payment, orderStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment recorded event",
			slog.String("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment recorded",
		slog.String("payment_id", payment.ID),
		slog.String("order_id", order.ID),
		slog.String("status", payment.Status),
		slog.Int64("amount", payment.Amount),
	)

	if payment.Status == domain.PaymentStatusFailed {
		return payment, apperrors.PaymentFailed(result.FailureReason)
	}
	return payment, nil
}

// ListPayments returns the payments recorded against the owner's order.
func (s *PaymentService) ListPayments(ctx context.Context, ownerKey, orderID string) ([]domain.Payment, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.OwnerKey != ownerKey {
		return nil, apperrors.NotFound("order", orderID)
	}

	payments, err := s.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// AdminGetPayment returns any payment by ID.
func (s *PaymentService) AdminGetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return payment, nil
}

// AdminRefundPayment refunds a completed payment through the gateway, marks
// it refunded and moves the order to refunded.
func (s *PaymentService) AdminRefundPayment(ctx context.Context, paymentID, reason string) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment.Status != domain.PaymentStatusCompleted {
		return nil, apperrors.InvalidInput("only completed payments can be refunded")
	}

	result, err := s.gateway.Refund(ctx, &provider.RefundInput{
		ProviderPaymentID: payment.TransactionID,
		Amount:            payment.Amount,
		Reason:            reason,
	})
	if err != nil {
		return nil, fmt.Errorf("refund via %s: %w", s.gateway.Name(), err)
	}
	if result.Status != "succeeded" {
		return nil, apperrors.PaymentFailed(result.FailureReason)
	}

	if err := s.payments.UpdateStatus(ctx, payment.ID, domain.PaymentStatusRefunded); err != nil {
		return nil, fmt.Errorf("mark payment refunded: %w", err)
	}
	payment.Status = domain.PaymentStatusRefunded

	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != domain.OrderStatusRefunded {
		if err := s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusRefunded); err != nil {
			return nil, fmt.Errorf("mark order refunded: %w", err)
		}
		// Do not fail the operation if event publishing fails.
		if err := s.producer.PublishOrderStatusChanged(ctx, order.ID, order.OrderNumber, order.Status, domain.OrderStatusRefunded); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order status changed event",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "payment refunded",
		slog.String("payment_id", payment.ID),
		slog.String("order_id", payment.OrderID),
		slog.Int64("amount", payment.Amount),
	)
	return payment, nil
}
