package domain

import "time"

// Cart holds the lines an owner intends to buy. Lines never store prices;
// unit prices are resolved from the live catalog when the cart is read or
// converted, so a catalog price change is reflected immediately.
type Cart struct {
	OwnerKey  string     `json:"owner_key"`
	Lines     []CartLine `json:"lines"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartLine references a product, optionally narrowed to a variant.
type CartLine struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

// FindLine returns the index of the line with the given ID, or -1.
func (c *Cart) FindLine(lineID string) int {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

// FindMergeTarget returns the index of the line for the same product and
// variant pair, or -1. Adding the same pair twice merges quantities instead
// of creating a second line.
func (c *Cart) FindMergeTarget(productID, variantID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID && c.Lines[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// RemoveLine deletes the line at index i, preserving order.
func (c *Cart) RemoveLine(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

// LineCount is the number of distinct lines.
func (c *Cart) LineCount() int {
	return len(c.Lines)
}

// UnitCount is the total quantity across lines.
func (c *Cart) UnitCount() int {
	var n int
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// CartView is a cart with prices resolved from the catalog at read time.
type CartView struct {
	OwnerKey   string         `json:"owner_key"`
	Lines      []CartLineView `json:"lines"`
	TotalItems int            `json:"total_items"`
	TotalPrice int64          `json:"total_price"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// CartLineView is one priced line of a CartView.
type CartLineView struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id,omitempty"`
	ProductName string `json:"product_name"`
	VariantName string `json:"variant_name,omitempty"`
	SKU         string `json:"sku"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	TotalPrice  int64  `json:"total_price"`
}
