package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusRefunded  BookingStatus = "refunded"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is the permanent record of a completed sale. Created exactly once
// per finalized reservation, never mutated afterwards.
type Booking struct {
	ID               int64
	BookingNumber    string
	UserID           int64
	ShowtimeID       int64
	SeatNumbers      []string
	TotalAmount      decimal.Decimal
	PaymentReference string
	Status           BookingStatus
	CreatedAt        time.Time
}

// NewBookingNumber generates a human-readable external identifier, e.g.
// CNX-20260829-7C3A9F. The suffix is uppercased UUID hex, so its alphabet is
// 0-9A-F. The unique index on bookings.booking_number backstops the random
// suffix.
func NewBookingNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("CNX-%s-%s", now.Format("20060102"), suffix)
}

type BookingRepository interface {
	// Finalize converts a still-Pending, unexpired reservation into a
	// booking: it re-validates the reservation inside the transaction,
	// moves every seat Reserved -> Booked under the version check, inserts
	// the booking row and marks the reservation confirmed. ErrEditConflict
	// means the reservation left the Pending state first (sweeper or a
	// concurrent confirm); ErrSeatStateCorrupt means a seat no longer
	// points at this reservation.
	Finalize(ctx context.Context, reservation *Reservation, booking *Booking) error
}
