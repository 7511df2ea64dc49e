package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avelora/storefront/internal/domain"
	pkgkafka "github.com/avelora/storefront/pkg/kafka"
)

// Kafka topics for storefront domain events.
const (
	TopicOrderCreated       = "storefront.order.created"
	TopicOrderStatusChanged = "storefront.order.status_changed"
	TopicPaymentRecorded    = "storefront.payment.recorded"
	TopicInventoryOversold  = "storefront.inventory.oversold"
	TopicInventoryLowStock  = "storefront.inventory.low_stock"
)

// Aggregate types.
const (
	AggregateTypeOrder   = "order"
	AggregateTypePayment = "payment"
	AggregateTypeProduct = "product"
)

// Source identifier for events from this service.
const Source = "storefront"

// OrderCreatedData is the order.created payload (full order snapshot).
type OrderCreatedData struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	OwnerKey      string          `json:"owner_key"`
	Status        string          `json:"status"`
	Email         string          `json:"email"`
	Items         []OrderItemData `json:"items"`
	Subtotal      int64           `json:"subtotal"`
	Tax           int64           `json:"tax"`
	ShippingPrice int64           `json:"shipping_price"`
	Total         int64           `json:"total"`
}

// OrderItemData is the event payload for one order item.
type OrderItemData struct {
	ProductID   string `json:"product_id,omitempty"`
	VariantID   string `json:"variant_id,omitempty"`
	Name        string `json:"name"`
	VariantName string `json:"variant_name,omitempty"`
	SKU         string `json:"sku"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

// OrderStatusChangedData is the order.status_changed payload.
type OrderStatusChangedData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
}

// PaymentRecordedData is the payment.recorded payload.
type PaymentRecordedData struct {
	PaymentID   string `json:"payment_id"`
	OrderID     string `json:"order_id"`
	Method      string `json:"method"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	OrderStatus string `json:"order_status"`
}

// InventoryOversoldData is published when an order was accepted but a stock
// guard did not pass, so the decrement was skipped.
type InventoryOversoldData struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Requested int    `json:"requested"`
}

// InventoryLowStockData is published when an adjustment leaves a row under
// the configured threshold.
type InventoryLowStockData struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Remaining int    `json:"remaining"`
	Threshold int    `json:"threshold"`
}

// Producer publishes storefront domain events. Publishing is best effort;
// callers log failures and never fail the operation.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes the full order snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			Name:        item.Name,
			VariantName: item.VariantName,
			SKU:         item.SKU,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		}
	}

	data := OrderCreatedData{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		OwnerKey:      order.OwnerKey,
		Status:        order.Status,
		Email:         order.Email,
		Items:         items,
		Subtotal:      order.Subtotal,
		Tax:           order.Tax,
		ShippingPrice: order.ShippingPrice,
		Total:         order.Total,
	}

	return p.publish(ctx, TopicOrderCreated, order.ID, AggregateTypeOrder, data)
}

// PublishOrderStatusChanged publishes a status transition.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID, orderNumber, oldStatus, newStatus string) error {
	data := OrderStatusChangedData{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
	}
	return p.publish(ctx, TopicOrderStatusChanged, orderID, AggregateTypeOrder, data)
}

// PublishPaymentRecorded publishes a recorded payment.
func (p *Producer) PublishPaymentRecorded(ctx context.Context, payment *domain.Payment, orderStatus string) error {
	data := PaymentRecordedData{
		PaymentID:   payment.ID,
		OrderID:     payment.OrderID,
		Method:      payment.Method,
		Status:      payment.Status,
		Amount:      payment.Amount,
		OrderStatus: orderStatus,
	}
	return p.publish(ctx, TopicPaymentRecorded, payment.ID, AggregateTypePayment, data)
}

// PublishInventoryOversold publishes one skipped stock decrement.
func (p *Producer) PublishInventoryOversold(ctx context.Context, orderID, productID, variantID string, requested int) error {
	data := InventoryOversoldData{
		OrderID:   orderID,
		ProductID: productID,
		VariantID: variantID,
		Requested: requested,
	}
	return p.publish(ctx, TopicInventoryOversold, productID, AggregateTypeProduct, data)
}

// PublishInventoryLowStock publishes a stock level that fell under threshold.
func (p *Producer) PublishInventoryLowStock(ctx context.Context, productID, variantID string, remaining, threshold int) error {
	data := InventoryLowStockData{
		ProductID: productID,
		VariantID: variantID,
		Remaining: remaining,
		Threshold: threshold,
	}
	return p.publish(ctx, TopicInventoryLowStock, productID, AggregateTypeProduct, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	ev, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
		slog.String("aggregate_type", aggregateType),
	)
	return nil
}
