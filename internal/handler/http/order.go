package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/internal/service"
	"github.com/avelora/storefront/pkg/httputil"
	"github.com/avelora/storefront/pkg/pagination"
	"github.com/avelora/storefront/pkg/validator"
)

// OrderHandler handles HTTP requests for checkout and order endpoints.
type OrderHandler struct {
	checkout *service.CheckoutService
	orders   *service.OrderService
	logger   *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(checkout *service.CheckoutService, orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		logger:   logger,
	}
}

// --- Request DTOs ---

// ShippingAddressRequest is the shipping destination in a checkout request.
type ShippingAddressRequest struct {
	FullName    string `json:"full_name" validate:"required,min=1,max=200"`
	AddressLine string `json:"address_line" validate:"required,min=1,max=500"`
	City        string `json:"city" validate:"required,min=1,max=200"`
	State       string `json:"state" validate:"max=200"`
	PostalCode  string `json:"postal_code" validate:"required,min=1,max=20"`
	Country     string `json:"country" validate:"required,min=2,max=100"`
}

// CheckoutRequest is the JSON request body for converting the cart into an
// order. Items and prices come from the cart and the live catalog, never
// from the client. Amounts are in cents.
type CheckoutRequest struct {
	Email           string                 `json:"email" validate:"required,email"`
	Phone           string                 `json:"phone" validate:"max=50"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" validate:"required"`
	ShippingPrice   int64                  `json:"shipping_price" validate:"gte=0"`
	Tax             int64                  `json:"tax" validate:"gte=0"`
}

// SetStatusRequest is the JSON request body for the admin status override.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled refunded"`
}

// --- Customer handlers ---

// Checkout handles POST /api/v1/checkout
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.checkout.PlaceOrder(r.Context(), owner, &service.PlaceOrderInput{
		Email: req.Email,
		Phone: req.Phone,
		Shipping: domain.Address{
			FullName:    req.ShippingAddress.FullName,
			AddressLine: req.ShippingAddress.AddressLine,
			City:        req.ShippingAddress.City,
			State:       req.ShippingAddress.State,
			PostalCode:  req.ShippingAddress.PostalCode,
			Country:     req.ShippingAddress.Country,
		},
		ShippingPrice: req.ShippingPrice,
		Tax:           req.Tax,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	params := pagination.FromRequest(r)
	orders, total, err := h.orders.ListOrders(r.Context(), owner, params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(orders, total, params.Page, params.PerPage))
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), owner, id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// GetOrderByNumber handles GET /api/v1/orders/number/{number}
func (h *OrderHandler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	number := chi.URLParam(r, "number")
	if number == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "order number is required"},
		})
		return
	}

	order, err := h.orders.GetOrderByNumber(r.Context(), owner, number)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// CancelOrder handles POST /api/v1/orders/{id}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.Cancel(r.Context(), owner, id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// --- Admin handlers ---

// AdminListOrders handles GET /api/v1/admin/orders
func (h *OrderHandler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	status := r.URL.Query().Get("status")

	orders, total, err := h.orders.AdminListOrders(r.Context(), status, params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(orders, total, params.Page, params.PerPage))
}

// AdminGetOrder handles GET /api/v1/admin/orders/{id}
func (h *OrderHandler) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.orders.AdminGetOrder(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// AdminSetStatus handles PUT /api/v1/admin/orders/{id}/status
func (h *OrderHandler) AdminSetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.AdminSetStatus(r.Context(), id.String(), req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}
