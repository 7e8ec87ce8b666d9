package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentRequest carries everything a provider needs to charge for a hold.
// Details is opaque to the engine and passed through to the provider.
type PaymentRequest struct {
	UserID         int64
	ReservationID  int64
	Amount         decimal.Decimal
	Currency       string
	Method         string
	Details        map[string]string
	IdempotencyKey string
}

type PaymentResult struct {
	Reference string
}

type PaymentProvider interface {
	// Charge returns ErrPaymentDeclined when the charge is rejected by the
	// gateway; any other error is an infrastructure failure.
	Charge(ctx context.Context, req PaymentRequest) (*PaymentResult, error)
}
