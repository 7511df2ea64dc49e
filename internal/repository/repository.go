package repository

import (
	"context"

	"github.com/avelora/storefront/internal/domain"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	CategoryID *string
	Featured   *bool
	Available  *bool
	Page       int
	PerPage    int
}

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	OwnerKey *string
	Status   *string
	Page     int
	PerPage  int
}

// CatalogRepository persists categories, products and variants.
type CatalogRepository interface {
	CreateCategory(ctx context.Context, c *domain.Category) error
	ListCategories(ctx context.Context) ([]domain.Category, error)

	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error

	// GetProduct loads a product with its variants.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	CreateVariant(ctx context.Context, v *domain.ProductVariant) error
	DeleteVariant(ctx context.Context, id string) error

	// AdjustInventory applies a stock delta to a product or variant and
	// records an inventory movement, atomically. It returns the remaining
	// stock on the adjusted row.
	AdjustInventory(ctx context.Context, m *domain.InventoryMovement) (int, error)

	// LowStock lists available products whose inventory fell below threshold.
	LowStock(ctx context.Context, threshold, limit int) ([]domain.Product, error)
}

// CartRepository persists carts keyed by owner.
type CartRepository interface {
	// Get returns the stored cart, or nil when the owner has none.
	Get(ctx context.Context, ownerKey string) (*domain.Cart, error)

	// Save stores the cart only if the stored version still matches
	// expectedVersion (0 for a new cart). A lost race returns
	// apperrors.ErrTransient.
	Save(ctx context.Context, cart *domain.Cart, expectedVersion int) error

	Delete(ctx context.Context, ownerKey string) error
}

// DecrementSkip reports an inventory guard that did not pass during order
// placement. The order still goes through; the skip is logged and published.
type DecrementSkip struct {
	ProductID string
	VariantID string
	Requested int
}

// CheckoutRepository converts a cart into an order in one transaction.
type CheckoutRepository interface {
	// PlaceOrder locks the referenced catalog rows, resolves live prices,
	// snapshots item data, applies guarded inventory decrements and inserts
	// the order with its items. A vanished catalog row aborts with
	// apperrors.ErrNotFound and leaves everything untouched.
	PlaceOrder(ctx context.Context, order *domain.Order, lines []domain.CartLine) ([]DecrementSkip, error)
}

// OrderRepository reads and updates placed orders.
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus sets the status unconditionally; transition legality is
	// the service's concern.
	UpdateStatus(ctx context.Context, id, status string) error
}

// PaymentRepository records charges against orders.
type PaymentRepository interface {
	// Record validates and inserts the payment in one transaction: the order
	// row is locked, the amount must equal the order total, and an existing
	// completed payment rejects the attempt. A completed payment advances a
	// pending order to processing; the returned string is the order's status
	// after recording.
	Record(ctx context.Context, p *domain.Payment) (string, error)

	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error)

	// UpdateStatus sets a payment's status, e.g. after a refund.
	UpdateStatus(ctx context.Context, id, status string) error
}

// ReportRepository serves the read-only admin dashboard.
type ReportRepository interface {
	Sales(ctx context.Context) (*domain.SalesReport, error)
}
