package domain

import "time"

// Product is a sellable catalog item. Price and ComparePrice are in cents.
// Inventory on the product counts base stock; variants carry their own.
type Product struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Slug         string           `json:"slug"`
	SKU          string           `json:"sku"`
	Description  string           `json:"description"`
	Price        int64            `json:"price"`
	ComparePrice int64            `json:"compare_price,omitempty"`
	CategoryID   string           `json:"category_id,omitempty"`
	Inventory    int              `json:"inventory"`
	IsAvailable  bool             `json:"is_available"`
	IsFeatured   bool             `json:"is_featured"`
	Variants     []ProductVariant `json:"variants,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// DiscountPercentage is the markdown relative to ComparePrice, 0 when there
// is no active discount.
func (p *Product) DiscountPercentage() int {
	if p.ComparePrice > p.Price && p.ComparePrice > 0 {
		return int((p.ComparePrice - p.Price) * 100 / p.ComparePrice)
	}
	return 0
}

// Variant returns the variant with the given ID, or nil.
func (p *Product) Variant(variantID string) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			return &p.Variants[i]
		}
	}
	return nil
}

// ProductVariant is a concrete purchasable option of a product (size, color).
// Its price is the product price plus PriceAdjustment, which may be negative.
type ProductVariant struct {
	ID              string `json:"id"`
	ProductID       string `json:"product_id"`
	Name            string `json:"name"`
	SKU             string `json:"sku"`
	PriceAdjustment int64  `json:"price_adjustment"`
	Inventory       int    `json:"inventory"`
	IsAvailable     bool   `json:"is_available"`
}

// Price resolves the effective unit price against the owning product.
func (v *ProductVariant) Price(p *Product) int64 {
	return p.Price + v.PriceAdjustment
}

// InventoryMovement is an audit row for every stock change.
type InventoryMovement struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	VariantID string    `json:"variant_id,omitempty"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Inventory movement reasons.
const (
	MovementReasonOrder      = "order"
	MovementReasonAdjustment = "adjustment"
	MovementReasonRestock    = "restock"
)
