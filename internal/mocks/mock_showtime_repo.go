package mocks

import (
	"context"

	"github.com/cinetex/booking-engine/internal/domain"
)

type MockShowtimeRepo struct {
	GetByIDFunc        func(ctx context.Context, id int64) (*domain.Showtime, error)
	GetTicketTypesFunc func(ctx context.Context, ids []int64) (map[int64]domain.TicketType, error)
}

func (m *MockShowtimeRepo) GetByID(ctx context.Context, id int64) (*domain.Showtime, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockShowtimeRepo) GetTicketTypes(
	ctx context.Context,
	ids []int64) (map[int64]domain.TicketType, error) {

	return m.GetTicketTypesFunc(ctx, ids)
}
