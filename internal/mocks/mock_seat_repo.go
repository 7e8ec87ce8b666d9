package mocks

import (
	"context"

	"github.com/cinetex/booking-engine/internal/domain"
)

type MockSeatRepo struct {
	GetSeatsByShowtimeFunc           func(ctx context.Context, showtimeID int64) ([]domain.Seat, error)
	GetSeatsByShowtimeAndNumbersFunc func(ctx context.Context, showtimeID int64, seatNumbers []string) ([]domain.Seat, error)
}

func (m *MockSeatRepo) GetSeatsByShowtime(ctx context.Context, showtimeID int64) ([]domain.Seat, error) {
	return m.GetSeatsByShowtimeFunc(ctx, showtimeID)
}

func (m *MockSeatRepo) GetSeatsByShowtimeAndNumbers(
	ctx context.Context,
	showtimeID int64,
	seatNumbers []string) ([]domain.Seat, error) {

	return m.GetSeatsByShowtimeAndNumbersFunc(ctx, showtimeID, seatNumbers)
}
