package postgres

import (
	"context"
	"fmt"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/pkg/database"
)

// ReportRepository serves the read-only admin sales dashboard.
type ReportRepository struct {
	pool database.DBTX
}

// NewReportRepository creates a PostgreSQL-backed report repository.
func NewReportRepository(pool database.DBTX) *ReportRepository {
	return &ReportRepository{pool: pool}
}

const topProductsLimit = 5

// Sales aggregates order counts and revenue for today, the current week
// (starting Monday), the current month and all time, plus the status
// breakdown, top products by snapshotted units and payment totals.
func (r *ReportRepository) Sales(ctx context.Context) (*domain.SalesReport, error) {
	report := &domain.SalesReport{}

	bucketQuery := `
		SELECT
			count(*) FILTER (WHERE created_at >= date_trunc('day', NOW())),
			COALESCE(sum(total) FILTER (WHERE created_at >= date_trunc('day', NOW())), 0),
			count(*) FILTER (WHERE created_at >= date_trunc('week', NOW())),
			COALESCE(sum(total) FILTER (WHERE created_at >= date_trunc('week', NOW())), 0),
			count(*) FILTER (WHERE created_at >= date_trunc('month', NOW())),
			COALESCE(sum(total) FILTER (WHERE created_at >= date_trunc('month', NOW())), 0),
			count(*),
			COALESCE(sum(total), 0)
		FROM orders`

	ctxQ, end := database.TraceQuery(ctx, "SalesBuckets", bucketQuery)
	err := r.pool.QueryRow(ctxQ, bucketQuery).Scan(
		&report.Today.OrderCount, &report.Today.Revenue,
		&report.Week.OrderCount, &report.Week.Revenue,
		&report.Month.OrderCount, &report.Month.Revenue,
		&report.AllTime.OrderCount, &report.AllTime.Revenue,
	)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("aggregate sales buckets: %w", err)
	}

	statusQuery := `
		SELECT status, count(*)
		FROM orders
		GROUP BY status
		ORDER BY status`

	rows, err := r.pool.Query(ctx, statusQuery)
	if err != nil {
		return nil, fmt.Errorf("aggregate status breakdown: %w", err)
	}
	defer rows.Close()

	report.StatusBreakdown = make([]domain.StatusCount, 0)
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		report.StatusBreakdown = append(report.StatusBreakdown, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status rows: %w", err)
	}

	// Ranked by the order item snapshots so deleted products still count.
	topQuery := `
		SELECT COALESCE(product_id::text, ''), name, sum(quantity)::int, sum(total_price)
		FROM order_items
		GROUP BY product_id, name
		ORDER BY sum(quantity) DESC
		LIMIT $1`

	ctxQ, end = database.TraceQuery(ctx, "TopProducts", topQuery)
	topRows, err := r.pool.Query(ctxQ, topQuery, topProductsLimit)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("aggregate top products: %w", err)
	}
	defer topRows.Close()

	report.TopProducts = make([]domain.TopProduct, 0, topProductsLimit)
	for topRows.Next() {
		var tp domain.TopProduct
		if err := topRows.Scan(&tp.ProductID, &tp.Name, &tp.UnitsSold, &tp.Revenue); err != nil {
			end(err)
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		report.TopProducts = append(report.TopProducts, tp)
	}
	if err := topRows.Err(); err != nil {
		end(err)
		return nil, fmt.Errorf("iterate top product rows: %w", err)
	}
	end(nil)

	paymentsQuery := `
		SELECT count(*), COALESCE(sum(amount), 0)
		FROM payments
		WHERE status = $1`

	err = r.pool.QueryRow(ctx, paymentsQuery, domain.PaymentStatusCompleted).
		Scan(&report.PaymentsCount, &report.PaymentsTotal)
	if err != nil {
		return nil, fmt.Errorf("aggregate payments: %w", err)
	}

	return report, nil
}
