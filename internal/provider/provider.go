// Package provider abstracts the payment gateway. Only the mock
// implementation ships; a real gateway integration would live alongside it.
package provider

import "context"

// ChargeInput holds the parameters for charging a payment.
type ChargeInput struct {
	Amount      int64
	Method      string
	Description string
}

// ChargeResult is the provider's answer to a charge.
type ChargeResult struct {
	ProviderPaymentID string
	Status            string // "succeeded" or "failed"
	FailureReason     string
}

// RefundInput holds the parameters for refunding a charge.
type RefundInput struct {
	ProviderPaymentID string
	Amount            int64
	Reason            string
}

// RefundResult is the provider's answer to a refund.
type RefundResult struct {
	ProviderRefundID string
	Status           string
	FailureReason    string
}

// Provider is a payment gateway integration.
type Provider interface {
	Name() string
	Charge(ctx context.Context, input *ChargeInput) (*ChargeResult, error)
	Refund(ctx context.Context, input *RefundInput) (*RefundResult, error)
}
