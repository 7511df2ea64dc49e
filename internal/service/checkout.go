package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/internal/event"
	"github.com/avelora/storefront/internal/repository"
	apperrors "github.com/avelora/storefront/pkg/errors"
)

// orderNumberAttempts bounds regeneration when a generated order number
// collides with an existing one.
const orderNumberAttempts = 3

const orderNumberLength = 10

// RFC 4648 base32 alphabet.
const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// CheckoutService converts a cart into an order.
type CheckoutService struct {
	carts    repository.CartRepository
	checkout repository.CheckoutRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCheckoutService creates a checkout service.
func NewCheckoutService(carts repository.CartRepository, checkout repository.CheckoutRepository, producer *event.Producer, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		checkout: checkout,
		producer: producer,
		logger:   logger,
	}
}

// PlaceOrderInput holds the customer and pricing parameters for checkout.
// ShippingPrice and Tax are in cents.
type PlaceOrderInput struct {
	Email         string
	Phone         string
	Shipping      domain.Address
	ShippingPrice int64
	Tax           int64
}

func (in *PlaceOrderInput) validate() error {
	switch {
	case in.Email == "":
		return apperrors.InvalidInput("email is required")
	case in.Shipping.FullName == "":
		return apperrors.InvalidInput("shipping full name is required")
	case in.Shipping.AddressLine == "":
		return apperrors.InvalidInput("shipping address line is required")
	case in.Shipping.City == "":
		return apperrors.InvalidInput("shipping city is required")
	case in.Shipping.PostalCode == "":
		return apperrors.InvalidInput("shipping postal code is required")
	case in.Shipping.Country == "":
		return apperrors.InvalidInput("shipping country is required")
	case in.ShippingPrice < 0:
		return apperrors.InvalidInput("shipping price cannot be negative")
	case in.Tax < 0:
		return apperrors.InvalidInput("tax cannot be negative")
	}
	return nil
}

// PlaceOrder converts the owner's cart into a pending order. Prices and item
// snapshots are resolved inside the placing transaction, so the charged
// amounts always reflect the catalog at this instant. An empty cart is
// rejected before anything is written.
func (s *CheckoutService) PlaceOrder(ctx context.Context, ownerKey string, input *PlaceOrderInput) (*domain.Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart == nil || cart.LineCount() == 0 {
		return nil, apperrors.EmptyCart()
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            uuid.New().String(),
		OwnerKey:      ownerKey,
		Status:        domain.OrderStatusPending,
		Email:         input.Email,
		Phone:         input.Phone,
		Shipping:      input.Shipping,
		Tax:           input.Tax,
		ShippingPrice: input.ShippingPrice,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var skips []repository.DecrementSkip
	for attempt := 0; ; attempt++ {
		number, err := newOrderNumber()
		if err != nil {
			return nil, fmt.Errorf("generate order number: %w", err)
		}
		order.OrderNumber = number

		skips, err = s.checkout.PlaceOrder(ctx, order, cart.Lines)
		if err == nil {
			break
		}
		if errors.Is(err, apperrors.ErrConflict) && attempt < orderNumberAttempts-1 {
			s.logger.WarnContext(ctx, "order number collision, regenerating",
				slog.String("order_number", number),
			)
			continue
		}
		return nil, fmt.Errorf("place order: %w", err)
	}

	// The order is committed; clearing the cart is best effort.
	if err := s.carts.Delete(ctx, ownerKey); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("owner_key", ownerKey),
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	for _, skip := range skips {
		s.logger.WarnContext(ctx, "inventory decrement skipped during checkout",
			slog.String("order_id", order.ID),
			slog.String("product_id", skip.ProductID),
			slog.String("variant_id", skip.VariantID),
			slog.Int("requested", skip.Requested),
		)
		// Do not fail the operation if event publishing fails.
		if err := s.producer.PublishInventoryOversold(ctx, order.ID, skip.ProductID, skip.VariantID, skip.Requested); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish oversold event",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.Int("items", len(order.Items)),
		slog.Int64("total", order.Total),
	)
	return order, nil
}

// newOrderNumber returns a short random token for customer-facing order
// lookup, independent of the row identity.
func newOrderNumber() (string, error) {
	buf := make([]byte, orderNumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return string(buf), nil
}
