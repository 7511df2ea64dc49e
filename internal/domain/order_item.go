package domain

// OrderItem is a snapshotted order line. Name, VariantName, SKU and
// UnitPrice are copied from the catalog when the order is placed and are
// immutable afterwards; later catalog edits or deletions do not touch them.
type OrderItem struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	ProductID   string `json:"product_id,omitempty"`
	VariantID   string `json:"variant_id,omitempty"`
	Name        string `json:"name"`
	VariantName string `json:"variant_name,omitempty"`
	SKU         string `json:"sku"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	TotalPrice  int64  `json:"total_price"`
}

// LineTotal recomputes unit price times quantity.
func (i *OrderItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}
