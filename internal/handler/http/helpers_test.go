package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/internal/event"
	mockprovider "github.com/avelora/storefront/internal/provider/mock"
	"github.com/avelora/storefront/internal/repository"
	"github.com/avelora/storefront/internal/service"
	"github.com/avelora/storefront/pkg/httputil"
	pkgkafka "github.com/avelora/storefront/pkg/kafka"
)

// Stable UUIDs for route parameters; ParseUUID rejects anything else.
const (
	testProductID = "5f0c3c49-0d6a-4aab-9d0b-2a8a3a6f6a01"
	testVariantID = "7c9e9a5a-1f2b-4c3d-8e4f-5a6b7c8d9e0f"
	testLineID    = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"
	testOrderID   = "9a7b8c6d-5e4f-4a3b-2c1d-0e9f8a7b6c5d"
	testPaymentID = "1d4a5b6c-7e8f-4a9b-8c0d-1e2f3a4b5c6d"
)

// --- Mock repositories ---

type mockCatalogRepository struct {
	mock.Mock
}

func (m *mockCatalogRepository) CreateCategory(ctx context.Context, c *domain.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCatalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCatalogRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockCatalogRepository) UpdateProduct(ctx context.Context, p *domain.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockCatalogRepository) DeleteProduct(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockCatalogRepository) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockCatalogRepository) CreateVariant(ctx context.Context, v *domain.ProductVariant) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *mockCatalogRepository) DeleteVariant(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCatalogRepository) AdjustInventory(ctx context.Context, mv *domain.InventoryMovement) (int, error) {
	args := m.Called(ctx, mv)
	return args.Int(0), args.Error(1)
}

func (m *mockCatalogRepository) LowStock(ctx context.Context, threshold, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, threshold, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	args := m.Called(ctx, ownerKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart, expectedVersion int) error {
	args := m.Called(ctx, cart, expectedVersion)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, ownerKey string) error {
	args := m.Called(ctx, ownerKey)
	return args.Error(0)
}

type mockCheckoutRepository struct {
	mock.Mock
}

func (m *mockCheckoutRepository) PlaceOrder(ctx context.Context, order *domain.Order, lines []domain.CartLine) ([]repository.DecrementSkip, error) {
	args := m.Called(ctx, order, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.DecrementSkip), args.Error(1)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type mockPaymentRepository struct {
	mock.Mock
}

func (m *mockPaymentRepository) Record(ctx context.Context, p *domain.Payment) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *mockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *mockPaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

func (m *mockPaymentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type mockReportRepository struct {
	mock.Mock
}

func (m *mockReportRepository) Sales(ctx context.Context) (*domain.SalesReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SalesReport), args.Error(1)
}

// --- Test helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEventProducer builds an event producer with no real broker behind it;
// publishes fail and are logged, which matches production behavior when the
// broker is down.
func testEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func testCartHandler(carts *mockCartRepository, catalog *mockCatalogRepository) *CartHandler {
	svc := service.NewCartService(carts, catalog, testLogger())
	return NewCartHandler(svc, testLogger())
}

func testOrderHandler(carts *mockCartRepository, checkout *mockCheckoutRepository, orders *mockOrderRepository) *OrderHandler {
	logger := testLogger()
	producer := testEventProducer()
	checkoutSvc := service.NewCheckoutService(carts, checkout, producer, logger)
	orderSvc := service.NewOrderService(orders, producer, logger)
	return NewOrderHandler(checkoutSvc, orderSvc, logger)
}

func testPaymentHandler(payments *mockPaymentRepository, orders *mockOrderRepository) *PaymentHandler {
	logger := testLogger()
	svc := service.NewPaymentService(payments, orders, mockprovider.NewProvider(), testEventProducer(), logger)
	return NewPaymentHandler(svc, logger)
}

func testCatalogHandler(repo *mockCatalogRepository) *CatalogHandler {
	logger := testLogger()
	svc := service.NewCatalogService(repo, testEventProducer(), logger, 0)
	return NewCatalogHandler(svc, logger)
}

// setupRouter mirrors the production route layout for the handlers under test.
// Nil handlers simply leave their routes unregistered.
func setupRouter(cart *CartHandler, order *OrderHandler, payment *PaymentHandler, catalog *CatalogHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		if catalog != nil {
			r.Get("/categories", catalog.ListCategories)
			r.Get("/products", catalog.ListProducts)
			r.Get("/products/{id}", catalog.GetProduct)
		}

		r.Group(func(r chi.Router) {
			r.Use(OwnerFromHeaders)

			if cart != nil {
				r.Get("/cart", cart.GetCart)
				r.Delete("/cart", cart.ClearCart)
				r.Post("/cart/lines", cart.AddLine)
				r.Put("/cart/lines/{lineId}", cart.SetLineQuantity)
				r.Delete("/cart/lines/{lineId}", cart.RemoveLine)
			}
			if order != nil {
				r.Post("/checkout", order.Checkout)
				r.Get("/orders", order.ListOrders)
				r.Get("/orders/{id}", order.GetOrder)
				r.Get("/orders/number/{number}", order.GetOrderByNumber)
				r.Post("/orders/{id}/cancel", order.CancelOrder)
			}
			if payment != nil {
				r.Post("/orders/{id}/payments", payment.RecordPayment)
				r.Get("/orders/{id}/payments", payment.ListPayments)
			}
		})

		r.Route("/admin", func(r chi.Router) {
			if catalog != nil {
				r.Post("/categories", catalog.CreateCategory)
				r.Post("/products", catalog.CreateProduct)
				r.Put("/products/{id}", catalog.UpdateProduct)
				r.Delete("/products/{id}", catalog.DeleteProduct)
				r.Post("/products/{id}/variants", catalog.CreateVariant)
				r.Delete("/variants/{id}", catalog.DeleteVariant)
				r.Post("/inventory/adjustments", catalog.AdjustInventory)
				r.Get("/inventory/low-stock", catalog.LowStock)
			}
			if order != nil {
				r.Get("/orders", order.AdminListOrders)
				r.Get("/orders/{id}", order.AdminGetOrder)
				r.Put("/orders/{id}/status", order.AdminSetStatus)
			}
			if payment != nil {
				r.Get("/payments/{id}", payment.AdminGetPayment)
				r.Post("/payments/{id}/refund", payment.AdminRefundPayment)
			}
		})
	})
	return r
}

// doRequest performs the request against the router with the owner identity
// header set.
func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := newRequest(t, method, target, body)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func newRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// dataMap re-decodes the untyped Data payload as an object.
func dataMap(t *testing.T, resp httputil.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "expected object data, got %T", resp.Data)
	return m
}
