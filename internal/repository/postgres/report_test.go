package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/pkg/database"
)

func newReportTestRepo(t *testing.T) (*ReportRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewReportRepository(mock), mock
}

var bucketColumns = []string{
	"today_count", "today_revenue", "week_count", "week_revenue",
	"month_count", "month_revenue", "all_count", "all_revenue",
}

func TestReportRepository_Sales(t *testing.T) {
	repo, mock := newReportTestRepo(t)

	mock.ExpectQuery("SELECT").
		WillReturnRows(pgxmock.NewRows(bucketColumns).
			AddRow(3, int64(9000), 10, int64(31000), 42, int64(120000), 420, int64(1200000)))

	mock.ExpectQuery("SELECT status, count").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("delivered", 300).
			AddRow("pending", 100).
			AddRow("refunded", 20))

	mock.ExpectQuery("SELECT .+ FROM order_items").
		WithArgs(topProductsLimit).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "name", "units", "revenue"}).
			AddRow("prod-1", "Canvas Tote", 120, int64(120000)).
			AddRow("", "Discontinued Belt", 40, int64(20000)))

	mock.ExpectQuery("SELECT .+ FROM payments").
		WithArgs(domain.PaymentStatusCompleted).
		WillReturnRows(pgxmock.NewRows([]string{"count", "total"}).
			AddRow(390, int64(1180000)))

	report, err := repo.Sales(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Today.OrderCount)
	assert.Equal(t, int64(9000), report.Today.Revenue)
	assert.Equal(t, 420, report.AllTime.OrderCount)

	require.Len(t, report.StatusBreakdown, 3)
	assert.Equal(t, "delivered", report.StatusBreakdown[0].Status)
	assert.Equal(t, 300, report.StatusBreakdown[0].Count)

	// Snapshot ranking keeps products that were since deleted.
	require.Len(t, report.TopProducts, 2)
	assert.Equal(t, "Discontinued Belt", report.TopProducts[1].Name)
	assert.Equal(t, "", report.TopProducts[1].ProductID)

	assert.Equal(t, 390, report.PaymentsCount)
	assert.Equal(t, int64(1180000), report.PaymentsTotal)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_Sales_BucketQueryError(t *testing.T) {
	repo, mock := newReportTestRepo(t)

	mock.ExpectQuery("SELECT").
		WillReturnError(errors.New("connection refused"))

	_, err := repo.Sales(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregate sales buckets")

	assert.NoError(t, mock.ExpectationsWereMet())
}
