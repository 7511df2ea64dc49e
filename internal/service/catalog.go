package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/internal/event"
	"github.com/avelora/storefront/internal/repository"
	apperrors "github.com/avelora/storefront/pkg/errors"
	"github.com/avelora/storefront/pkg/slug"
)

const defaultLowStockThreshold = 5

// CatalogService manages categories, products, variants and stock levels.
type CatalogService struct {
	repo              repository.CatalogRepository
	producer          *event.Producer
	logger            *slog.Logger
	lowStockThreshold int
}

// NewCatalogService creates a catalog service. A non-positive threshold
// falls back to the default.
func NewCatalogService(repo repository.CatalogRepository, producer *event.Producer, logger *slog.Logger, lowStockThreshold int) *CatalogService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = defaultLowStockThreshold
	}
	return &CatalogService{
		repo:              repo,
		producer:          producer,
		logger:            logger,
		lowStockThreshold: lowStockThreshold,
	}
}

// CreateCategoryInput holds the parameters for creating a category.
type CreateCategoryInput struct {
	Name        string
	Description string
	ParentID    string
	IsActive    bool
}

// CreateCategory creates a category with a slug derived from its name.
func (s *CatalogService) CreateCategory(ctx context.Context, input *CreateCategoryInput) (*domain.Category, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("category name is required")
	}

	now := time.Now().UTC()
	category := &domain.Category{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
		Description: input.Description,
		ParentID:    input.ParentID,
		IsActive:    input.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", category.ID),
		slog.String("slug", category.Slug),
	)
	return category, nil
}

// ListCategories returns all active categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name         string
	SKU          string
	Description  string
	Price        int64
	ComparePrice int64
	CategoryID   string
	Inventory    int
	IsAvailable  bool
	IsFeatured   bool
}

// CreateProduct creates a product with a slug derived from its name.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.SKU == "" {
		return nil, apperrors.InvalidInput("product sku is required")
	}
	if input.Price <= 0 {
		return nil, apperrors.InvalidInput("product price must be positive")
	}
	if input.Inventory < 0 {
		return nil, apperrors.InvalidInput("product inventory cannot be negative")
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Slug:         slug.Make(input.Name),
		SKU:          input.SKU,
		Description:  input.Description,
		Price:        input.Price,
		ComparePrice: input.ComparePrice,
		CategoryID:   input.CategoryID,
		Inventory:    input.Inventory,
		IsAvailable:  input.IsAvailable,
		IsFeatured:   input.IsFeatured,
		Variants:     []domain.ProductVariant{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("sku", product.SKU),
	)
	return product, nil
}

// UpdateProductInput holds the parameters for updating a product. All fields
// overwrite; the slug is re-derived from the name.
type UpdateProductInput struct {
	Name         string
	Description  string
	Price        int64
	ComparePrice int64
	CategoryID   string
	IsAvailable  bool
	IsFeatured   bool
}

// UpdateProduct overwrites a product's mutable fields and returns the fresh
// state with variants.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price <= 0 {
		return nil, apperrors.InvalidInput("product price must be positive")
	}

	product := &domain.Product{
		ID:           id,
		Name:         input.Name,
		Slug:         slug.Make(input.Name),
		Description:  input.Description,
		Price:        input.Price,
		ComparePrice: input.ComparePrice,
		CategoryID:   input.CategoryID,
		IsAvailable:  input.IsAvailable,
		IsFeatured:   input.IsFeatured,
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	updated, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", id))
	return updated, nil
}

// DeleteProduct removes a product. Snapshotted order items keep their data.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// GetProduct loads a product with its variants.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// ListProducts returns products matching the filter with the total count.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	products, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// CreateVariantInput holds the parameters for creating a variant.
type CreateVariantInput struct {
	Name            string
	SKU             string
	PriceAdjustment int64
	Inventory       int
	IsAvailable     bool
}

// CreateVariant attaches a variant to a product. The parent must exist and
// the effective price (base + adjustment) must stay positive.
func (s *CatalogService) CreateVariant(ctx context.Context, productID string, input *CreateVariantInput) (*domain.ProductVariant, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("variant name is required")
	}
	if input.SKU == "" {
		return nil, apperrors.InvalidInput("variant sku is required")
	}
	if input.Inventory < 0 {
		return nil, apperrors.InvalidInput("variant inventory cannot be negative")
	}

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if product.Price+input.PriceAdjustment <= 0 {
		return nil, apperrors.InvalidInput("variant price adjustment makes the price non-positive")
	}

	variant := &domain.ProductVariant{
		ID:              uuid.New().String(),
		ProductID:       product.ID,
		Name:            input.Name,
		SKU:             input.SKU,
		PriceAdjustment: input.PriceAdjustment,
		Inventory:       input.Inventory,
		IsAvailable:     input.IsAvailable,
	}

	if err := s.repo.CreateVariant(ctx, variant); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}

	s.logger.InfoContext(ctx, "variant created",
		slog.String("product_id", product.ID),
		slog.String("variant_id", variant.ID),
	)
	return variant, nil
}

// DeleteVariant removes a variant.
func (s *CatalogService) DeleteVariant(ctx context.Context, id string) error {
	if err := s.repo.DeleteVariant(ctx, id); err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}
	s.logger.InfoContext(ctx, "variant deleted", slog.String("variant_id", id))
	return nil
}

// AdjustInventoryInput holds the parameters for a manual stock adjustment.
type AdjustInventoryInput struct {
	ProductID string
	VariantID string
	Delta     int
	Reason    string
	Reference string
}

// AdjustInventory applies a stock delta with an audit movement. Crossing the
// low-stock threshold publishes a low_stock event.
func (s *CatalogService) AdjustInventory(ctx context.Context, input *AdjustInventoryInput) error {
	if input.ProductID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if input.Delta == 0 {
		return apperrors.InvalidInput("delta cannot be zero")
	}
	reason := input.Reason
	if reason == "" {
		if input.Delta > 0 {
			reason = domain.MovementReasonRestock
		} else {
			reason = domain.MovementReasonAdjustment
		}
	}

	movement := &domain.InventoryMovement{
		ID:        uuid.New().String(),
		ProductID: input.ProductID,
		VariantID: input.VariantID,
		Delta:     input.Delta,
		Reason:    reason,
		Reference: input.Reference,
		CreatedAt: time.Now().UTC(),
	}

	remaining, err := s.repo.AdjustInventory(ctx, movement)
	if err != nil {
		return fmt.Errorf("adjust inventory: %w", err)
	}

	s.logger.InfoContext(ctx, "inventory adjusted",
		slog.String("product_id", input.ProductID),
		slog.String("variant_id", input.VariantID),
		slog.Int("delta", input.Delta),
		slog.Int("remaining", remaining),
	)

	if remaining < s.lowStockThreshold {
		// Do not fail the operation if event publishing fails.
		if err := s.producer.PublishInventoryLowStock(ctx, input.ProductID, input.VariantID, remaining, s.lowStockThreshold); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish low stock event",
				slog.String("product_id", input.ProductID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// LowStock lists available products under the service threshold.
func (s *CatalogService) LowStock(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	products, err := s.repo.LowStock(ctx, s.lowStockThreshold, limit)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return products, nil
}
