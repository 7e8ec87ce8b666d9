package mocks

import (
	"context"

	"github.com/cinetex/booking-engine/internal/domain"
)

type MockBookingRepo struct {
	FinalizeFunc func(ctx context.Context, reservation *domain.Reservation, booking *domain.Booking) error
}

func (m *MockBookingRepo) Finalize(
	ctx context.Context,
	reservation *domain.Reservation,
	booking *domain.Booking) error {

	return m.FinalizeFunc(ctx, reservation, booking)
}
