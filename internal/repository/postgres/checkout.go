package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/internal/repository"
	"github.com/avelora/storefront/pkg/database"
	apperrors "github.com/avelora/storefront/pkg/errors"
)

// CheckoutRepository converts carts into orders inside a single transaction.
type CheckoutRepository struct {
	pool database.DBTX
}

// NewCheckoutRepository creates a PostgreSQL-backed checkout repository.
func NewCheckoutRepository(pool database.DBTX) *CheckoutRepository {
	return &CheckoutRepository{pool: pool}
}

// lockedLine is a cart line with its catalog rows locked and prices resolved.
type lockedLine struct {
	productName string
	variantName string
	sku         string
	unitPrice   int64
}

// PlaceOrder resolves prices against FOR UPDATE-locked catalog rows,
// snapshots item data, applies guarded inventory decrements and inserts the
// order with its items, all in one transaction.
//
// The caller fills identity, addresses, tax and shipping on the order; this
// method fills Items, Subtotal and Total from the locked catalog state. A
// missing product or variant aborts the whole transaction with ErrNotFound.
// An insufficient-stock guard does NOT abort: the decrement is skipped and
// reported, and stock never goes negative.
func (r *CheckoutRepository) PlaceOrder(ctx context.Context, order *domain.Order, lines []domain.CartLine) ([]repository.DecrementSkip, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		skips    []repository.DecrementSkip
		subtotal int64
	)
	items := make([]domain.OrderItem, 0, len(lines))

	for _, line := range lines {
		locked, err := r.lockLine(ctx, tx, line)
		if err != nil {
			return nil, err
		}

		moreSkips, err := r.decrementStock(ctx, tx, line, order.OrderNumber)
		if err != nil {
			return nil, err
		}
		skips = append(skips, moreSkips...)

		item := domain.OrderItem{
			ID:          uuid.New().String(),
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			Name:        locked.productName,
			VariantName: locked.variantName,
			SKU:         locked.sku,
			UnitPrice:   locked.unitPrice,
			Quantity:    line.Quantity,
		}
		item.TotalPrice = item.LineTotal()
		subtotal += item.TotalPrice
		items = append(items, item)
	}

	order.Items = items
	order.Subtotal = subtotal
	order.Total = subtotal + order.Tax + order.ShippingPrice

	shippingJSON, err := json.Marshal(order.Shipping)
	if err != nil {
		return nil, fmt.Errorf("marshal shipping address: %w", err)
	}

	orderQuery := `
		INSERT INTO orders (id, order_number, owner_key, status, email, phone, shipping_address, subtotal, tax, shipping_price, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = tx.Exec(ctx, orderQuery,
		order.ID, order.OrderNumber, order.OwnerKey, order.Status, order.Email, order.Phone,
		shippingJSON, order.Subtotal, order.Tax, order.ShippingPrice, order.Total,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "orders_order_number_key") {
			return nil, fmt.Errorf("order number collision: %w", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, variant_id, name, variant_name, sku, unit_price, quantity, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for _, item := range order.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID, item.OrderID, nullable(item.ProductID), nullable(item.VariantID),
			item.Name, item.VariantName, item.SKU, item.UnitPrice, item.Quantity, item.TotalPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return skips, nil
}

// lockLine takes FOR UPDATE locks on the line's catalog rows and resolves
// the live unit price and snapshot fields.
func (r *CheckoutRepository) lockLine(ctx context.Context, tx pgx.Tx, line domain.CartLine) (*lockedLine, error) {
	var l lockedLine

	if line.VariantID != "" {
		query := `
			SELECT p.name, p.price, v.name, v.sku, v.price_adjustment
			FROM product_variants v
			JOIN products p ON p.id = v.product_id
			WHERE v.id = $1 AND v.product_id = $2
			FOR UPDATE`

		var (
			basePrice  int64
			adjustment int64
			variantSKU string
		)
		err := tx.QueryRow(ctx, query, line.VariantID, line.ProductID).Scan(
			&l.productName, &basePrice,
			&l.variantName, &variantSKU, &adjustment,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NotFound("variant", line.VariantID)
			}
			return nil, fmt.Errorf("lock variant row: %w", err)
		}
		l.sku = variantSKU
		l.unitPrice = basePrice + adjustment
		return &l, nil
	}

	query := `
		SELECT name, sku, price
		FROM products
		WHERE id = $1
		FOR UPDATE`

	err := tx.QueryRow(ctx, query, line.ProductID).Scan(&l.productName, &l.sku, &l.unitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", line.ProductID)
		}
		return nil, fmt.Errorf("lock product row: %w", err)
	}
	return &l, nil
}

// decrementStock applies the guarded decrements for one line. A variant line
// decrements the variant and then the parent product under independent
// guards. A guard that does not pass produces a skip, never an error.
func (r *CheckoutRepository) decrementStock(ctx context.Context, tx pgx.Tx, line domain.CartLine, orderNumber string) ([]repository.DecrementSkip, error) {
	var skips []repository.DecrementSkip

	if line.VariantID != "" {
		ct, err := tx.Exec(ctx,
			`UPDATE product_variants SET inventory = inventory - $1 WHERE id = $2 AND inventory >= $1`,
			line.Quantity, line.VariantID,
		)
		if err != nil {
			return nil, fmt.Errorf("decrement variant stock: %w", err)
		}
		if ct.RowsAffected() == 0 {
			skips = append(skips, repository.DecrementSkip{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Requested: line.Quantity,
			})
		} else if err := r.recordMovement(ctx, tx, line.ProductID, line.VariantID, -line.Quantity, orderNumber); err != nil {
			return nil, err
		}
	}

	ct, err := tx.Exec(ctx,
		`UPDATE products SET inventory = inventory - $1, updated_at = NOW() WHERE id = $2 AND inventory >= $1`,
		line.Quantity, line.ProductID,
	)
	if err != nil {
		return nil, fmt.Errorf("decrement product stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		skips = append(skips, repository.DecrementSkip{
			ProductID: line.ProductID,
			Requested: line.Quantity,
		})
	} else if err := r.recordMovement(ctx, tx, line.ProductID, "", -line.Quantity, orderNumber); err != nil {
		return nil, err
	}

	return skips, nil
}

func (r *CheckoutRepository) recordMovement(ctx context.Context, tx pgx.Tx, productID, variantID string, delta int, reference string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO inventory_movements (id, product_id, variant_id, delta, reason, reference, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		uuid.New().String(), nullable(productID), nullable(variantID), delta, domain.MovementReasonOrder, reference,
	)
	if err != nil {
		return fmt.Errorf("insert inventory movement: %w", err)
	}
	return nil
}
