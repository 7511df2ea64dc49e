package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/pkg/database"
	apperrors "github.com/avelora/storefront/pkg/errors"
)

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	pool database.DBTX
}

// NewPaymentRepository creates a PostgreSQL-backed payment repository.
func NewPaymentRepository(pool database.DBTX) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Record validates and inserts the payment in one transaction. The order row
// is locked FOR UPDATE so two concurrent payments serialize: the amount must
// equal the order total, a completed payment may exist only once, and a
// completed payment advances a pending order to processing. Returns the
// order's status after recording.
func (r *PaymentRepository) Record(ctx context.Context, p *domain.Payment) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		total  int64
		status string
	)
	err = tx.QueryRow(ctx, `SELECT total, status FROM orders WHERE id = $1 FOR UPDATE`, p.OrderID).
		Scan(&total, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound("order", p.OrderID)
		}
		return "", fmt.Errorf("lock order row: %w", err)
	}

	if p.Amount != total {
		return "", apperrors.InvalidInput("payment amount must match order total")
	}

	var alreadyPaid bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM payments WHERE order_id = $1 AND status = $2)`,
		p.OrderID, domain.PaymentStatusCompleted,
	).Scan(&alreadyPaid)
	if err != nil {
		return "", fmt.Errorf("check existing payments: %w", err)
	}
	if alreadyPaid {
		return "", apperrors.InvalidInput("order has already been paid")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO payments (id, order_id, method, status, amount, transaction_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OrderID, p.Method, p.Status, p.Amount, p.TransactionID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "idx_payments_completed_once") {
			return "", apperrors.InvalidInput("order has already been paid")
		}
		return "", fmt.Errorf("insert payment: %w", err)
	}

	if p.Status == domain.PaymentStatusCompleted && status == domain.OrderStatusPending {
		status = domain.OrderStatusProcessing
		_, err = tx.Exec(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
			status, p.OrderID,
		)
		if err != nil {
			return "", fmt.Errorf("advance order status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}
	return status, nil
}

// GetByID retrieves a payment.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `
		SELECT id, order_id, method, status, amount, transaction_id, created_at, updated_at
		FROM payments
		WHERE id = $1`

	var p domain.Payment
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.OrderID, &p.Method, &p.Status, &p.Amount, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}

// UpdateStatus sets a payment's status.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("payment", id)
	}
	return nil
}

// ListByOrder retrieves all payments for an order, newest first.
func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	query := `
		SELECT id, order_id, method, status, amount, transaction_id, created_at, updated_at
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID, &p.OrderID, &p.Method, &p.Status, &p.Amount, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}
	return payments, nil
}
