package mocks

import (
	"context"

	"github.com/cinetex/booking-engine/internal/domain"
)

type MockPaymentProvider struct {
	ChargeFunc func(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResult, error)
}

func (m *MockPaymentProvider) Charge(
	ctx context.Context,
	req domain.PaymentRequest) (*domain.PaymentResult, error) {

	return m.ChargeFunc(ctx, req)
}
