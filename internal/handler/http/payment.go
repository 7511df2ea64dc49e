package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avelora/storefront/internal/service"
	"github.com/avelora/storefront/pkg/httputil"
	"github.com/avelora/storefront/pkg/validator"
)

// PaymentHandler handles HTTP requests for payment endpoints.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// RecordPaymentRequest is the JSON request body for paying an order.
// Amount is in cents and must equal the order total.
type RecordPaymentRequest struct {
	Method string `json:"method" validate:"required,oneof=credit_card paypal stripe bank_transfer"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
	// TransactionID is an optional external reference; when absent the
	// gateway's charge reference is recorded.
	TransactionID string `json:"transaction_id" validate:"max=200"`
}

// RefundPaymentRequest is the JSON request body for the admin refund.
type RefundPaymentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// --- Handlers ---

// RecordPayment handles POST /api/v1/orders/{id}/payments
func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RecordPaymentRequest
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

	payment, err := h.service.RecordPayment(r.Context(), owner, orderID.String(), &service.RecordPaymentInput{
		Method:        req.Method,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: payment})
}

// ListPayments handles GET /api/v1/orders/{id}/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), owner, orderID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payments})
}

// AdminGetPayment handles GET /api/v1/admin/payments/{id}
func (h *PaymentHandler) AdminGetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	payment, err := h.service.AdminGetPayment(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payment})
}

// AdminRefundPayment handles POST /api/v1/admin/payments/{id}/refund
func (h *PaymentHandler) AdminRefundPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RefundPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// An empty body is fine; the reason is optional.
		req = RefundPaymentRequest{}
	}

	payment, err := h.service.AdminRefundPayment(r.Context(), id.String(), req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payment})
}
