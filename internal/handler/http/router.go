package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avelora/storefront/internal/service"
	"github.com/avelora/storefront/pkg/health"
	"github.com/avelora/storefront/pkg/middleware"
)

// Services bundles everything the router exposes.
type Services struct {
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
	Payments *service.PaymentService
	Reports  *service.ReportService
}

// catalogCacheSeconds is the Cache-Control max-age for public catalog reads.
const catalogCacheSeconds = 60

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	services Services,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	catalogHandler := NewCatalogHandler(services.Catalog, logger)
	cartHandler := NewCartHandler(services.Cart, logger)
	orderHandler := NewOrderHandler(services.Checkout, services.Orders, logger)
	paymentHandler := NewPaymentHandler(services.Payments, logger)
	reportHandler := NewReportHandler(services.Reports, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public catalog reads, cacheable.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(catalogCacheSeconds))

			r.Get("/categories", catalogHandler.ListCategories)
			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{id}", catalogHandler.GetProduct)
		})

		// Customer routes, owner identity required.
		r.Group(func(r chi.Router) {
			r.Use(OwnerFromHeaders)

			r.Get("/cart", cartHandler.GetCart)
			r.Delete("/cart", cartHandler.ClearCart)
			r.Post("/cart/lines", cartHandler.AddLine)
			r.Put("/cart/lines/{lineId}", cartHandler.SetLineQuantity)
			r.Delete("/cart/lines/{lineId}", cartHandler.RemoveLine)

			r.Post("/checkout", orderHandler.Checkout)

			r.Get("/orders", orderHandler.ListOrders)
			r.Get("/orders/{id}", orderHandler.GetOrder)
			r.Get("/orders/number/{number}", orderHandler.GetOrderByNumber)
			r.Post("/orders/{id}/cancel", orderHandler.CancelOrder)

			r.Post("/orders/{id}/payments", paymentHandler.RecordPayment)
			r.Get("/orders/{id}/payments", paymentHandler.ListPayments)
		})

		// Admin routes. The gateway authorizes staff before requests get here.
		r.Route("/admin", func(r chi.Router) {
			r.Post("/categories", catalogHandler.CreateCategory)
			r.Post("/products", catalogHandler.CreateProduct)
			r.Put("/products/{id}", catalogHandler.UpdateProduct)
			r.Delete("/products/{id}", catalogHandler.DeleteProduct)
			r.Post("/products/{id}/variants", catalogHandler.CreateVariant)
			r.Delete("/variants/{id}", catalogHandler.DeleteVariant)

			r.Post("/inventory/adjustments", catalogHandler.AdjustInventory)
			r.Get("/inventory/low-stock", catalogHandler.LowStock)

			r.Get("/orders", orderHandler.AdminListOrders)
			r.Get("/orders/{id}", orderHandler.AdminGetOrder)
			r.Put("/orders/{id}/status", orderHandler.AdminSetStatus)

			r.Get("/payments/{id}", paymentHandler.AdminGetPayment)
			r.Post("/payments/{id}/refund", paymentHandler.AdminRefundPayment)

			r.Get("/reports/sales", reportHandler.SalesReport)
		})
	})

	return r
}
