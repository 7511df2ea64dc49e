package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avelora/storefront/internal/domain"
	"github.com/avelora/storefront/internal/repository"
	apperrors "github.com/avelora/storefront/pkg/errors"
)

// cartSaveAttempts bounds the optimistic-save retry loop. Conflicts beyond
// that surface as Transient for the caller to retry.
const cartSaveAttempts = 3

// CartService manages the owner's cart. Carts store product references only;
// prices are resolved from the live catalog on every read.
type CartService struct {
	carts   repository.CartRepository
	catalog repository.CatalogRepository
	logger  *slog.Logger
}

// NewCartService creates a cart service.
func NewCartService(carts repository.CartRepository, catalog repository.CatalogRepository, logger *slog.Logger) *CartService {
	return &CartService{
		carts:   carts,
		catalog: catalog,
		logger:  logger,
	}
}

// View returns the owner's cart priced against the live catalog. An owner
// without a stored cart gets an empty view; nothing is written. Lines whose
// product or variant vanished from the catalog are pruned.
func (s *CartService) View(ctx context.Context, ownerKey string) (*domain.CartView, error) {
	cart, err := s.carts.Get(ctx, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart == nil {
		return emptyView(ownerKey), nil
	}

	view, pruned, err := s.buildView(ctx, cart)
	if err != nil {
		return nil, err
	}
	if pruned > 0 {
		s.logger.WarnContext(ctx, "pruned cart lines referencing vanished catalog rows",
			slog.String("owner_key", ownerKey),
			slog.Int("pruned", pruned),
		)
		// Best effort: persist the pruned cart so checkout does not trip over
		// stale lines. A lost race just means another writer already moved on.
		if err := s.carts.Save(ctx, cart, cart.Version); err != nil && !errors.Is(err, apperrors.ErrTransient) {
			return nil, fmt.Errorf("save pruned cart: %w", err)
		}
	}
	return view, nil
}

// AddLineInput holds the parameters for adding a cart line.
type AddLineInput struct {
	ProductID string
	VariantID string
	Quantity  int
}

// AddLine validates the referenced catalog row and adds a line, merging
// quantities when a line for the same product and variant already exists.
func (s *CartService) AddLine(ctx context.Context, ownerKey string, input *AddLineInput) (*domain.CartView, error) {
	if input.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	return s.mutate(ctx, ownerKey, func(cart *domain.Cart) error {
		requested := input.Quantity
		if i := cart.FindMergeTarget(input.ProductID, input.VariantID); i >= 0 {
			requested += cart.Lines[i].Quantity
		}

		if err := s.checkPurchasable(ctx, input.ProductID, input.VariantID, requested); err != nil {
			return err
		}

		if i := cart.FindMergeTarget(input.ProductID, input.VariantID); i >= 0 {
			cart.Lines[i].Quantity = requested
			return nil
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ID:        uuid.New().String(),
			ProductID: input.ProductID,
			VariantID: input.VariantID,
			Quantity:  input.Quantity,
		})
		return nil
	})
}

// SetLineQuantity replaces the quantity of an existing line. A quantity of
// zero or less removes the line.
func (s *CartService) SetLineQuantity(ctx context.Context, ownerKey, lineID string, quantity int) (*domain.CartView, error) {
	return s.mutate(ctx, ownerKey, func(cart *domain.Cart) error {
		i := cart.FindLine(lineID)
		if i < 0 {
			return apperrors.NotFound("cart line", lineID)
		}
		if quantity <= 0 {
			cart.RemoveLine(i)
			return nil
		}

		line := cart.Lines[i]
		if err := s.checkPurchasable(ctx, line.ProductID, line.VariantID, quantity); err != nil {
			return err
		}
		cart.Lines[i].Quantity = quantity
		return nil
	})
}

// RemoveLine deletes a line by ID.
func (s *CartService) RemoveLine(ctx context.Context, ownerKey, lineID string) (*domain.CartView, error) {
	return s.mutate(ctx, ownerKey, func(cart *domain.Cart) error {
		i := cart.FindLine(lineID)
		if i < 0 {
			return apperrors.NotFound("cart line", lineID)
		}
		cart.RemoveLine(i)
		return nil
	})
}

// Clear drops the owner's cart entirely.
func (s *CartService) Clear(ctx context.Context, ownerKey string) error {
	if err := s.carts.Delete(ctx, ownerKey); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	s.logger.InfoContext(ctx, "cart cleared", slog.String("owner_key", ownerKey))
	return nil
}

// mutate runs fn against the current cart under optimistic concurrency,
// retrying version conflicts, and returns the priced view of the result.
func (s *CartService) mutate(ctx context.Context, ownerKey string, fn func(cart *domain.Cart) error) (*domain.CartView, error) {
	var lastErr error
	for attempt := 0; attempt < cartSaveAttempts; attempt++ {
		cart, err := s.carts.Get(ctx, ownerKey)
		if err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}
		if cart == nil {
			cart = &domain.Cart{
				OwnerKey:  ownerKey,
				Lines:     []domain.CartLine{},
				CreatedAt: time.Now().UTC(),
			}
		}

		if err := fn(cart); err != nil {
			return nil, err
		}

		if err := s.carts.Save(ctx, cart, cart.Version); err != nil {
			if errors.Is(err, apperrors.ErrTransient) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("save cart: %w", err)
		}

		view, _, err := s.buildView(ctx, cart)
		if err != nil {
			return nil, err
		}
		return view, nil
	}
	return nil, lastErr
}

// checkPurchasable verifies availability and the stock ceiling for the
// requested total quantity of one product/variant pair.
func (s *CartService) checkPurchasable(ctx context.Context, productID, variantID string, requested int) error {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("product", productID)
		}
		return fmt.Errorf("load product: %w", err)
	}
	if !product.IsAvailable {
		return apperrors.InvalidInput("product is not available")
	}

	available := product.Inventory
	if variantID != "" {
		variant := product.Variant(variantID)
		if variant == nil {
			// The product exists but does not carry this variant: a bad
			// request, not a missing resource.
			return apperrors.InvalidInput("variant does not belong to this product")
		}
		if !variant.IsAvailable {
			return apperrors.InvalidInput("variant is not available")
		}
		available = variant.Inventory
	}

	if requested > available {
		return apperrors.InvalidInput(fmt.Sprintf("only %d units available", available))
	}
	return nil
}

// buildView prices the cart against the live catalog, removing lines whose
// catalog rows vanished. Returns the number of pruned lines.
func (s *CartService) buildView(ctx context.Context, cart *domain.Cart) (*domain.CartView, int, error) {
	view := &domain.CartView{
		OwnerKey:  cart.OwnerKey,
		Lines:     make([]domain.CartLineView, 0, len(cart.Lines)),
		UpdatedAt: cart.UpdatedAt,
	}

	pruned := 0
	kept := cart.Lines[:0]
	for _, line := range cart.Lines {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				pruned++
				continue
			}
			return nil, 0, fmt.Errorf("load product: %w", err)
		}

		lv := domain.CartLineView{
			ID:          line.ID,
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			ProductName: product.Name,
			SKU:         product.SKU,
			UnitPrice:   product.Price,
			Quantity:    line.Quantity,
		}
		if line.VariantID != "" {
			variant := product.Variant(line.VariantID)
			if variant == nil {
				pruned++
				continue
			}
			lv.VariantName = variant.Name
			lv.SKU = variant.SKU
			lv.UnitPrice = variant.Price(product)
		}
		lv.TotalPrice = lv.UnitPrice * int64(lv.Quantity)

		kept = append(kept, line)
		view.Lines = append(view.Lines, lv)
		view.TotalItems += lv.Quantity
		view.TotalPrice += lv.TotalPrice
	}
	cart.Lines = kept

	return view, pruned, nil
}

func emptyView(ownerKey string) *domain.CartView {
	return &domain.CartView{
		OwnerKey: ownerKey,
		Lines:    []domain.CartLineView{},
	}
}
