package domain

import "time"

// Payment method constants.
const (
	PaymentMethodCreditCard   = "credit_card"
	PaymentMethodPaypal       = "paypal"
	PaymentMethodStripe       = "stripe"
	PaymentMethodBankTransfer = "bank_transfer"
)

// Payment status constants.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment records a charge against an order. Amount is in cents and must
// equal the order total at recording time.
type Payment struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	Amount        int64     `json:"amount"`
	TransactionID string    `json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ValidMethods returns the accepted payment methods.
func ValidMethods() []string {
	return []string{
		PaymentMethodCreditCard,
		PaymentMethodPaypal,
		PaymentMethodStripe,
		PaymentMethodBankTransfer,
	}
}

// IsValidMethod reports whether method is accepted.
func IsValidMethod(method string) bool {
	for _, m := range ValidMethods() {
		if m == method {
			return true
		}
	}
	return false
}
