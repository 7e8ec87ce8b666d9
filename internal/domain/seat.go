package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusReserved  SeatStatus = "reserved"
	SeatStatusBooked    SeatStatus = "booked"
	SeatStatusBlocked   SeatStatus = "blocked"
)

// Seat is one row of the per-showtime inventory. Version is the optimistic
// concurrency token: every state-changing write must carry the version it
// read and only succeeds while the stored version is unchanged.
type Seat struct {
	ShowtimeID    int64
	SeatNumber    string
	Type          string
	Price         decimal.Decimal
	Status        SeatStatus
	ReservationID *int64
	ReservedUntil *time.Time
	Version       int
}

type SeatRepository interface {
	GetSeatsByShowtime(ctx context.Context, showtimeID int64) ([]Seat, error)
	GetSeatsByShowtimeAndNumbers(ctx context.Context, showtimeID int64, seatNumbers []string) ([]Seat, error)
}
