package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

// Reservation is a time-boxed hold on a set of seats for one showtime.
// While Pending, every seat it references must itself be Reserved and point
// back to this reservation. Confirmed, Cancelled and Expired are terminal.
type Reservation struct {
	ID          int64
	UserID      int64
	ShowtimeID  int64
	SeatNumbers []string
	Tickets     []ReservationTicket
	TotalAmount decimal.Decimal
	ExpiresAt   time.Time
	Status      ReservationStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ReservationTicket is one priced line item of a hold. UnitPrice is the
// seat's base price with the ticket-type modifier applied.
type ReservationTicket struct {
	SeatNumber   string
	TicketTypeID int64
	SeatPrice    decimal.Decimal
	UnitPrice    decimal.Decimal
}

// Expired reports whether the hold is past its deadline at the given
// instant. Expiry is a wall-clock comparison, not a status check: a hold
// whose deadline has passed is dead even before the sweeper sees it.
func (r *Reservation) Expired(now time.Time) bool {
	return r.Status == ReservationStatusExpired || !now.Before(r.ExpiresAt)
}

func (r *Reservation) Terminal() bool {
	return r.Status != ReservationStatusPending
}

type ReservationRepository interface {
	// Create claims every requested seat and persists the hold with its
	// ticket line items in a single transaction. It fails with
	// *SeatsUnavailableError when any seat cannot be claimed; no seat
	// changes state in that case.
	Create(ctx context.Context, reservation *Reservation) error

	GetByID(ctx context.Context, id int64) (*Reservation, error)

	// Cancel releases the hold's seats and marks it cancelled in one
	// transaction. ErrEditConflict means the reservation stopped being
	// Pending, or a seat write raced, between the caller's read and the
	// transaction's own re-read.
	Cancel(ctx context.Context, id int64) error

	// FindExpired returns ids of Pending reservations whose deadline has
	// passed, oldest first, capped at limit.
	FindExpired(ctx context.Context, now time.Time, limit int) ([]int64, error)

	// Expire releases one overdue hold's seats and marks it expired, in
	// its own transaction, returning the showtime the seats belong to so
	// the caller can refresh anything derived from the seat map.
	// ErrEditConflict means a concurrent confirm or cancel got there first.
	Expire(ctx context.Context, id int64, now time.Time) (int64, error)
}
