package domain

import "time"

// Order status constants.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// Order is a placed order. Item rows snapshot catalog data at placement;
// amounts are in cents and never change after the order is created.
type Order struct {
	ID            string      `json:"id"`
	OrderNumber   string      `json:"order_number"`
	OwnerKey      string      `json:"owner_key"`
	Status        string      `json:"status"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone,omitempty"`
	Shipping      Address     `json:"shipping_address"`
	Items         []OrderItem `json:"items"`
	Subtotal      int64       `json:"subtotal"`
	Tax           int64       `json:"tax"`
	ShippingPrice int64       `json:"shipping_price"`
	Total         int64       `json:"total"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Address is a shipping destination.
type Address struct {
	FullName    string `json:"full_name"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
}

// ValidStatuses returns every recognized order status.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded,
	}
}

// IsValidStatus reports whether status is recognized.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions is the customer-facing status graph. Admin overrides
// bypass it deliberately.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled, OrderStatusRefunded},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
		OrderStatusShipped:    {OrderStatusDelivered, OrderStatusRefunded},
		OrderStatusDelivered:  {OrderStatusRefunded},
		OrderStatusCancelled:  {},
		OrderStatusRefunded:   {},
	}
}

// CanTransitionTo checks the graph for the order's current status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// CanCancel reports whether the customer may still cancel.
func (o *Order) CanCancel() bool {
	return o.CanTransitionTo(OrderStatusCancelled)
}
