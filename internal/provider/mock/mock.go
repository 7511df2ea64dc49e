// Package mock is a payment provider that always succeeds, for development
// and tests.
package mock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avelora/storefront/internal/provider"
)

// Provider simulates a gateway with a small processing delay.
type Provider struct{}

func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string {
	return "mock"
}

// Charge always succeeds.
func (p *Provider) Charge(_ context.Context, _ *provider.ChargeInput) (*provider.ChargeResult, error) {
	time.Sleep(50 * time.Millisecond)

	return &provider.ChargeResult{
		ProviderPaymentID: "mock_pay_" + uuid.New().String(),
		Status:            "succeeded",
	}, nil
}

// Refund always succeeds.
func (p *Provider) Refund(_ context.Context, _ *provider.RefundInput) (*provider.RefundResult, error) {
	time.Sleep(50 * time.Millisecond)

	return &provider.RefundResult{
		ProviderRefundID: "mock_ref_" + uuid.New().String(),
		Status:           "succeeded",
	}, nil
}
