package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cinetex/booking-engine/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

// Finalize retries only on a booking-number collision; any other failure,
// including CAS conflicts, belongs to the caller.
func (p *PostgresBookingRepository) Finalize(
	ctx context.Context,
	reservation *domain.Reservation,
	booking *domain.Booking) error {

	var err error

	for attempt := 0; attempt < 3; attempt++ {
		err = p.finalizeOnce(ctx, reservation, booking)
		if !isBookingNumberCollision(err) {
			return err
		}

		booking.BookingNumber = domain.NewBookingNumber(time.Now())
	}

	return err
}

func (p *PostgresBookingRepository) finalizeOnce(
	ctx context.Context,
	reservation *domain.Reservation,
	booking *domain.Booking) error {

	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		// Re-validate inside the transaction: the sweeper may have expired
		// the hold between the caller's read and this write.
		query := `
			UPDATE reservations
			SET status = 'confirmed', updated_at = NOW()
			WHERE id = $1 AND status = 'pending' AND expires_at > $2
		`

		tag, err := tx.Exec(ctx, query, reservation.ID, time.Now())
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return domain.ErrEditConflict
		}

		seats, err := seatsInTx(ctx, tx, reservation.ShowtimeID, reservation.SeatNumbers)
		if err != nil {
			return err
		}

		if len(seats) != len(reservation.SeatNumbers) {
			return domain.ErrSeatStateCorrupt
		}

		err = finalizeSeats(ctx, tx, seats, reservation.ID)
		if err != nil {
			return err
		}

		query = `
			INSERT INTO bookings
				(booking_number, user_id, showtime_id, seat_numbers, total_amount, payment_reference, status)
			VALUES ($1, $2, $3, $4, $5, $6, 'confirmed')
			RETURNING id, created_at
		`

		err = tx.QueryRow(
			ctx,
			query,
			booking.BookingNumber,
			booking.UserID,
			booking.ShowtimeID,
			booking.SeatNumbers,
			booking.TotalAmount,
			booking.PaymentReference).Scan(&booking.ID, &booking.CreatedAt)

		if err != nil {
			return err
		}

		booking.Status = domain.BookingStatusConfirmed
		reservation.Status = domain.ReservationStatusConfirmed

		return nil
	})
}

func isBookingNumberCollision(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == "bookings_booking_number_key"
}
