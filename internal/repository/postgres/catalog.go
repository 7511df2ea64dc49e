package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/internal/repository"
	"github.com/avelora/storefront/pkg/database"
	apperrors "github.com/avelora/storefront/pkg/errors"
)

// CatalogRepository implements repository.CatalogRepository using PostgreSQL.
type CatalogRepository struct {
	pool database.DBTX
}

// NewCatalogRepository creates a PostgreSQL-backed catalog repository.
func NewCatalogRepository(pool database.DBTX) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// nullable maps "" to NULL for optional UUID columns.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isUniqueViolation reports whether err is a unique constraint violation,
// optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// CreateCategory inserts a category.
func (r *CatalogRepository) CreateCategory(ctx context.Context, c *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, slug, description, parent_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Slug, c.Description, nullable(c.ParentID), c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return apperrors.AlreadyExists("category", "slug", c.Slug)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// ListCategories returns all active categories ordered by name.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `
		SELECT id, name, slug, description, parent_id, is_active, created_at, updated_at
		FROM categories
		WHERE is_active
		ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var (
			c        domain.Category
			parentID *string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &parentID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.ParentID = deref(parentID)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return categories, nil
}

// CreateProduct inserts a product.
func (r *CatalogRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, name, slug, sku, description, price, compare_price, category_id, inventory, is_available, is_featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Slug, p.SKU, p.Description, p.Price, p.ComparePrice,
		nullable(p.CategoryID), p.Inventory, p.IsAvailable, p.IsFeatured, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return apperrors.AlreadyExists("product", "sku", p.SKU)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateProduct overwrites the mutable columns of a product.
func (r *CatalogRepository) UpdateProduct(ctx context.Context, p *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, price = $4, compare_price = $5,
		    category_id = $6, is_available = $7, is_featured = $8, updated_at = $9
		WHERE id = $10`

	ct, err := r.pool.Exec(ctx, query,
		p.Name, p.Slug, p.Description, p.Price, p.ComparePrice,
		nullable(p.CategoryID), p.IsAvailable, p.IsFeatured, time.Now().UTC(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// DeleteProduct removes a product. Order item references survive via their
// snapshot columns and SET NULL foreign keys.
func (r *CatalogRepository) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// GetProduct loads a product with its variants in a single query using
// JSONB_AGG, avoiding a second round trip.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT
			p.id, p.name, p.slug, p.sku, p.description, p.price, p.compare_price,
			p.category_id, p.inventory, p.is_available, p.is_featured, p.created_at, p.updated_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'id', v.id,
						'product_id', v.product_id,
						'name', v.name,
						'sku', v.sku,
						'price_adjustment', v.price_adjustment,
						'inventory', v.inventory,
						'is_available', v.is_available
					) ORDER BY v.name
				) FILTER (WHERE v.id IS NOT NULL),
				'[]'::jsonb
			) AS variants
		FROM products p
		LEFT JOIN product_variants v ON p.id = v.product_id
		WHERE p.id = $1
		GROUP BY p.id`

	return r.scanProductWithVariants(r.pool.QueryRow(ctx, query, id))
}

func (r *CatalogRepository) scanProductWithVariants(row pgx.Row) (*domain.Product, error) {
	var (
		p            domain.Product
		categoryID   *string
		variantsJSON []byte
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.SKU, &p.Description, &p.Price, &p.ComparePrice,
		&categoryID, &p.Inventory, &p.IsAvailable, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt,
		&variantsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	p.CategoryID = deref(categoryID)
	if len(variantsJSON) > 0 && string(variantsJSON) != "null" {
		if err := json.Unmarshal(variantsJSON, &p.Variants); err != nil {
			return nil, fmt.Errorf("unmarshal variants: %w", err)
		}
	}
	if p.Variants == nil {
		p.Variants = []domain.ProductVariant{}
	}
	return &p, nil
}

// ListProducts returns products matching the filter with a total count.
func (r *CatalogRepository) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}
	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("is_featured = $%d", argIndex))
		args = append(args, *filter.Featured)
		argIndex++
	}
	if filter.Available != nil {
		conditions = append(conditions, fmt.Sprintf("is_available = $%d", argIndex))
		args = append(args, *filter.Available)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, name, slug, sku, description, price, compare_price, category_id,
		       inventory, is_available, is_featured, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM products
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
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var totalCount int
	products := make([]domain.Product, 0)

	for rows.Next() {
		var (
			p          domain.Product
			categoryID *string
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.SKU, &p.Description, &p.Price, &p.ComparePrice,
			&categoryID, &p.Inventory, &p.IsAvailable, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		p.CategoryID = deref(categoryID)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, totalCount, nil
}

// CreateVariant inserts a variant.
func (r *CatalogRepository) CreateVariant(ctx context.Context, v *domain.ProductVariant) error {
	query := `
		INSERT INTO product_variants (id, product_id, name, sku, price_adjustment, inventory, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		v.ID, v.ProductID, v.Name, v.SKU, v.PriceAdjustment, v.Inventory, v.IsAvailable,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return apperrors.AlreadyExists("variant", "sku", v.SKU)
		}
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

// DeleteVariant removes a variant.
func (r *CatalogRepository) DeleteVariant(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM product_variants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("variant", id)
	}
	return nil
}

// AdjustInventory applies a stock delta and records the movement in one
// transaction. Negative deltas are guarded so stock never goes below zero.
// Returns the remaining stock on the adjusted row.
func (r *CatalogRepository) AdjustInventory(ctx context.Context, m *domain.InventoryMovement) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		remaining int
		row       pgx.Row
	)
	if m.VariantID != "" {
		row = tx.QueryRow(ctx,
			`UPDATE product_variants SET inventory = inventory + $1
			 WHERE id = $2 AND inventory + $1 >= 0
			 RETURNING inventory`,
			m.Delta, m.VariantID,
		)
	} else {
		row = tx.QueryRow(ctx,
			`UPDATE products SET inventory = inventory + $1, updated_at = NOW()
			 WHERE id = $2 AND inventory + $1 >= 0
			 RETURNING inventory`,
			m.Delta, m.ProductID,
		)
	}
	if err := row.Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.InvalidInput("inventory adjustment would go below zero or target does not exist")
		}
		return 0, fmt.Errorf("adjust inventory: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO inventory_movements (id, product_id, variant_id, delta, reason, reference, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, nullable(m.ProductID), nullable(m.VariantID), m.Delta, m.Reason, m.Reference, m.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert inventory movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return remaining, nil
}

// LowStock lists available products under the threshold, lowest first.
func (r *CatalogRepository) LowStock(ctx context.Context, threshold, limit int) ([]domain.Product, error) {
	query := `
		SELECT id, name, slug, sku, description, price, compare_price, category_id,
		       inventory, is_available, is_featured, created_at, updated_at
		FROM products
		WHERE inventory < $1 AND is_available
		ORDER BY inventory
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var (
			p          domain.Product
			categoryID *string
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.SKU, &p.Description, &p.Price, &p.ComparePrice,
			&categoryID, &p.Inventory, &p.IsAvailable, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan low stock row: %w", err)
		}
		p.CategoryID = deref(categoryID)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate low stock rows: %w", err)
	}
	return products, nil
}
