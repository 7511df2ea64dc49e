package domain

// SalesBucket aggregates orders over one time window.
type SalesBucket struct {
	OrderCount int   `json:"order_count"`
	Revenue    int64 `json:"revenue"`
}

// StatusCount is one row of the order status breakdown.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// TopProduct ranks a product by snapshotted units sold. Name comes from the
// order item snapshot, so it survives catalog deletion.
type TopProduct struct {
	ProductID string `json:"product_id,omitempty"`
	Name      string `json:"name"`
	UnitsSold int    `json:"units_sold"`
	Revenue   int64  `json:"revenue"`
}

// SalesReport is the admin dashboard read model.
type SalesReport struct {
	Today           SalesBucket   `json:"today"`
	Week            SalesBucket   `json:"week"`
	Month           SalesBucket   `json:"month"`
	AllTime         SalesBucket   `json:"all_time"`
	StatusBreakdown []StatusCount `json:"status_breakdown"`
	TopProducts     []TopProduct  `json:"top_products"`
	PaymentsTotal   int64         `json:"payments_total"`
	PaymentsCount   int           `json:"payments_count"`
}
