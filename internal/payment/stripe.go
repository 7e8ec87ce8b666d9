package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cinetex/booking-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// StripeProvider charges a hold through a confirmed PaymentIntent. The
// payment method id arrives in the opaque details map under
// "paymentMethodId".
type StripeProvider struct{}

func NewStripeProvider() *StripeProvider {
	return &StripeProvider{}
}

func (s *StripeProvider) Charge(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResult, error) {
	amountCents := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.Details["paymentMethodId"]),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
		Metadata: map[string]string{
			"reservation_id": strconv.FormatInt(req.ReservationID, 10),
			"user_id":        strconv.FormatInt(req.UserID, 10),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	intent, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return nil, domain.ErrPaymentDeclined
		}

		return nil, err
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("unexpected payment intent status %q: %w", intent.Status, domain.ErrPaymentDeclined)
	}

	return &domain.PaymentResult{Reference: intent.ID}, nil
}
