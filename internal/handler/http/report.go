package http

import (
	"log/slog"
	"net/http"

	"github.com/avelora/storefront/internal/service"
	"github.com/avelora/storefront/pkg/httputil"
)

// ReportHandler serves the admin sales dashboard.
type ReportHandler struct {
	service *service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a new report HTTP handler.
func NewReportHandler(svc *service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  logger,
	}
}

// SalesReport handles GET /api/v1/admin/reports/sales
func (h *ReportHandler) SalesReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Sales(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}
