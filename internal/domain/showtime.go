package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Showtime and TicketType are catalog data. The engine only reads them;
// their lifecycle belongs to the catalog service.
type Showtime struct {
	ID       int64
	HallID   int64
	StartsAt time.Time
}

type TicketType struct {
	ID       int64
	Name     string
	Modifier decimal.Decimal
}

type ShowtimeRepository interface {
	GetByID(ctx context.Context, id int64) (*Showtime, error)
	GetTicketTypes(ctx context.Context, ids []int64) (map[int64]TicketType, error)
}
