package mocks

import (
	"context"
	"time"

	"github.com/cinetex/booking-engine/internal/domain"
)

type MockReservationRepo struct {
	CreateFunc      func(ctx context.Context, reservation *domain.Reservation) error
	GetByIDFunc     func(ctx context.Context, id int64) (*domain.Reservation, error)
	CancelFunc      func(ctx context.Context, id int64) error
	FindExpiredFunc func(ctx context.Context, now time.Time, limit int) ([]int64, error)
	ExpireFunc      func(ctx context.Context, id int64, now time.Time) (int64, error)
}

func (m *MockReservationRepo) Create(ctx context.Context, reservation *domain.Reservation) error {
	return m.CreateFunc(ctx, reservation)
}

func (m *MockReservationRepo) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockReservationRepo) Cancel(ctx context.Context, id int64) error {
	return m.CancelFunc(ctx, id)
}

func (m *MockReservationRepo) FindExpired(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	return m.FindExpiredFunc(ctx, now, limit)
}

func (m *MockReservationRepo) Expire(ctx context.Context, id int64, now time.Time) (int64, error) {
	return m.ExpireFunc(ctx, id, now)
}
