package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/internal/service"
	apperrors "github.com/avelora/storefront/pkg/errors"
)

func setupReportRouter(repo *mockReportRepository) http.Handler {
	handler := NewReportHandler(service.NewReportService(repo), testLogger())
	r := chi.NewRouter()
	r.Get("/api/v1/admin/reports/sales", handler.SalesReport)
	return r
}

func TestReportHandler_SalesReport(t *testing.T) {
	repo := new(mockReportRepository)
	repo.On("Sales", mock.Anything).Return(&domain.SalesReport{
		Today:   domain.SalesBucket{OrderCount: 3, Revenue: 9000},
		AllTime: domain.SalesBucket{OrderCount: 420, Revenue: 1200000},
		StatusBreakdown: []domain.StatusCount{
			{Status: "delivered", Count: 300},
		},
		TopProducts: []domain.TopProduct{
			{ProductID: testProductID, Name: "Canvas Tote", UnitsSold: 120, Revenue: 120000},
		},
		PaymentsCount: 390,
		PaymentsTotal: 1180000,
	}, nil)

	router := setupReportRouter(repo)
	rec := doRequest(t, router, http.MethodGet, "/api/v1/admin/reports/sales", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, decodeResponse(t, rec))

	today, ok := data["today"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, today["order_count"])
	assert.EqualValues(t, 9000, today["revenue"])
	assert.EqualValues(t, 390, data["payments_count"])
}

func TestReportHandler_SalesReport_RepositoryError(t *testing.T) {
	repo := new(mockReportRepository)
	repo.On("Sales", mock.Anything).Return(nil, apperrors.Internal(assert.AnError))

	router := setupReportRouter(repo)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(t, http.MethodGet, "/api/v1/admin/reports/sales", ""))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
}
