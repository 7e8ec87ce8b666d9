package payment

import (
	"context"
	"sync"

	"github.com/cinetex/booking-engine/internal/domain"
	"github.com/google/uuid"
)

// DeclineToken in the payment details makes the mock provider reject the
// charge, mirroring a gateway card decline.
const DeclineToken = "tok_declined"

// MockProvider is the dev/test payment provider. It approves everything
// except requests carrying DeclineToken and records every charge it saw.
type MockProvider struct {
	mu      sync.Mutex
	charges []domain.PaymentRequest
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Charge(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResult, error) {
	m.mu.Lock()
	m.charges = append(m.charges, req)
	m.mu.Unlock()

	if req.Details["token"] == DeclineToken {
		return nil, domain.ErrPaymentDeclined
	}

	return &domain.PaymentResult{Reference: "mock_" + uuid.NewString()}, nil
}

// Charges returns a copy of every request seen so far.
func (m *MockProvider) Charges() []domain.PaymentRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	charges := make([]domain.PaymentRequest, len(m.charges))
	copy(charges, m.charges)

	return charges
}
