package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/internal/repository"
	"github.com/avelora/storefront/pkg/database"
	apperrors "github.com/avelora/storefront/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// orderWithItemsQuery loads an order and its items in one round trip using
// LEFT JOIN + JSONB_AGG.
const orderWithItemsQuery = `
	SELECT
		o.id, o.order_number, o.owner_key, o.status, o.email, o.phone,
		o.shipping_address, o.subtotal, o.tax, o.shipping_price, o.total,
		o.created_at, o.updated_at,
		COALESCE(
			JSONB_AGG(
				JSONB_BUILD_OBJECT(
					'id', oi.id,
					'order_id', oi.order_id,
					'product_id', oi.product_id,
					'variant_id', oi.variant_id,
					'name', oi.name,
					'variant_name', oi.variant_name,
					'sku', oi.sku,
					'unit_price', oi.unit_price,
					'quantity', oi.quantity,
					'total_price', oi.total_price
				) ORDER BY oi.id
			) FILTER (WHERE oi.id IS NOT NULL),
			'[]'::jsonb
		) AS items
	FROM orders o
	LEFT JOIN order_items oi ON o.id = oi.order_id
	%s
	GROUP BY o.id`

// GetByID retrieves an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := fmt.Sprintf(orderWithItemsQuery, "WHERE o.id = $1")
	return r.scanOrderWithItems(r.pool.QueryRow(ctx, query, id))
}

// GetByNumber retrieves an order by its human-facing order number.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	query := fmt.Sprintf(orderWithItemsQuery, "WHERE o.order_number = $1")
	return r.scanOrderWithItems(r.pool.QueryRow(ctx, query, number))
}

func (r *OrderRepository) scanOrderWithItems(row pgx.Row) (*domain.Order, error) {
	var (
		o            domain.Order
		shippingJSON []byte
		itemsJSON    []byte
	)

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.OwnerKey, &o.Status, &o.Email, &o.Phone,
		&shippingJSON, &o.Subtotal, &o.Tax, &o.ShippingPrice, &o.Total,
		&o.CreatedAt, &o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
		if err := json.Unmarshal(shippingJSON, &o.Shipping); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
	}

	if len(itemsJSON) > 0 && string(itemsJSON) != "null" && string(itemsJSON) != "[]" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	} else {
		o.Items = []domain.OrderItem{}
	}

	return &o, nil
}

// List returns orders matching the filter with the total count. Items are
// batch-loaded in a second query to avoid N+1.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.OwnerKey != nil {
		conditions = append(conditions, fmt.Sprintf("owner_key = $%d", argIndex))
		args = append(args, *filter.OwnerKey)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, order_number, owner_key, status, email, phone, shipping_address,
		       subtotal, tax, shipping_price, total, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var (
			o            domain.Order
			shippingJSON []byte
		)
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.OwnerKey, &o.Status, &o.Email, &o.Phone, &shippingJSON,
			&o.Subtotal, &o.Tax, &o.ShippingPrice, &o.Total, &o.CreatedAt, &o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
			if err := json.Unmarshal(shippingJSON, &o.Shipping); err != nil {
				return nil, 0, fmt.Errorf("unmarshal shipping address: %w", err)
			}
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	if len(orders) > 0 {
		orderIDs := make([]string, len(orders))
		for i := range orders {
			orderIDs[i] = orders[i].ID
		}

		itemsQuery := `
			SELECT id, order_id, product_id, variant_id, name, variant_name, sku, unit_price, quantity, total_price
			FROM order_items
			WHERE order_id = ANY($1)
			ORDER BY id`

		itemRows, err := r.pool.Query(ctx, itemsQuery, orderIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("batch load order items: %w", err)
		}
		defer itemRows.Close()

		itemsByOrderID := make(map[string][]domain.OrderItem, len(orders))
		for itemRows.Next() {
			var (
				item      domain.OrderItem
				productID *string
				variantID *string
			)
			if err := itemRows.Scan(
				&item.ID, &item.OrderID, &productID, &variantID,
				&item.Name, &item.VariantName, &item.SKU, &item.UnitPrice, &item.Quantity, &item.TotalPrice,
			); err != nil {
				return nil, 0, fmt.Errorf("scan order item: %w", err)
			}
			item.ProductID = deref(productID)
			item.VariantID = deref(variantID)
			itemsByOrderID[item.OrderID] = append(itemsByOrderID[item.OrderID], item)
		}
		if err := itemRows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate batch order item rows: %w", err)
		}

		for i := range orders {
			if items, ok := itemsByOrderID[orders[i].ID]; ok {
				orders[i].Items = items
			} else {
				orders[i].Items = []domain.OrderItem{}
			}
		}
	}

	return orders, totalCount, nil
}

// UpdateStatus sets the order status unconditionally.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}
