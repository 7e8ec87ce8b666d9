package repository

import (
	"context"
	"time"

	"github.com/cinetex/booking-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresSeatRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSeatRepository(db *pgxpool.Pool) *PostgresSeatRepository {
	return &PostgresSeatRepository{
		db: db,
	}
}

const selectSeatColumns = `
	SELECT showtime_id, seat_number, seat_type, price, status, reservation_id, reserved_until, version
	FROM seats
`

func (p *PostgresSeatRepository) GetSeatsByShowtime(ctx context.Context, showtimeID int64) ([]domain.Seat, error) {
	query := selectSeatColumns + `
		WHERE showtime_id = $1
		ORDER BY seat_number
	`

	rows, err := p.db.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeats(rows)
}

func (p *PostgresSeatRepository) GetSeatsByShowtimeAndNumbers(
	ctx context.Context,
	showtimeID int64,
	seatNumbers []string) ([]domain.Seat, error) {

	query := selectSeatColumns + `
		WHERE showtime_id = $1 AND seat_number = ANY($2)
		ORDER BY seat_number
	`

	rows, err := p.db.Query(ctx, query, showtimeID, seatNumbers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeats(rows)
}

func scanSeats(rows pgx.Rows) ([]domain.Seat, error) {
	seats := make([]domain.Seat, 0)

	for rows.Next() {
		var seat domain.Seat

		err := rows.Scan(
			&seat.ShowtimeID,
			&seat.SeatNumber,
			&seat.Type,
			&seat.Price,
			&seat.Status,
			&seat.ReservationID,
			&seat.ReservedUntil,
			&seat.Version,
		)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

// seatsInTx re-reads the current state of the requested seats inside the
// caller's transaction. Mutations must act only on state read here, never
// on anything the caller read earlier outside the transaction.
func seatsInTx(ctx context.Context, tx pgx.Tx, showtimeID int64, seatNumbers []string) ([]domain.Seat, error) {
	query := selectSeatColumns + `
		WHERE showtime_id = $1 AND seat_number = ANY($2)
		ORDER BY seat_number
	`

	rows, err := tx.Query(ctx, query, showtimeID, seatNumbers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSeats(rows)
}

// claimSeats moves Available seats to Reserved under the version check.
// It returns the seat numbers whose conditional update matched no row,
// i.e. the seats another transaction won between our read and this write.
// The caller must abort its transaction when any conflict is reported:
// claims are all-or-nothing.
func claimSeats(
	ctx context.Context,
	tx pgx.Tx,
	seats []domain.Seat,
	reservationID int64,
	until time.Time) ([]string, error) {

	query := `
		UPDATE seats
		SET status = 'reserved', reservation_id = $1, reserved_until = $2, version = version + 1
		WHERE showtime_id = $3 AND seat_number = $4 AND version = $5 AND status = 'available'
	`

	var conflicts []string

	for _, seat := range seats {
		tag, err := tx.Exec(ctx, query, reservationID, until, seat.ShowtimeID, seat.SeatNumber, seat.Version)
		if err != nil {
			return nil, err
		}

		if tag.RowsAffected() == 0 {
			conflicts = append(conflicts, seat.SeatNumber)
		}
	}

	return conflicts, nil
}

// releaseSeats moves the reservation's seats back to Available, guarded by
// the version read in this transaction. A zero row count means another
// transaction touched the seat first; the whole release must roll back.
func releaseSeats(ctx context.Context, tx pgx.Tx, seats []domain.Seat, reservationID int64) error {
	query := `
		UPDATE seats
		SET status = 'available', reservation_id = NULL, reserved_until = NULL, version = version + 1
		WHERE showtime_id = $1 AND seat_number = $2 AND version = $3
			AND status = 'reserved' AND reservation_id = $4
	`

	for _, seat := range seats {
		tag, err := tx.Exec(ctx, query, seat.ShowtimeID, seat.SeatNumber, seat.Version, reservationID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return domain.ErrEditConflict
		}
	}

	return nil
}

// finalizeSeats moves Reserved seats to Booked. Every seat must still point
// at the reservation being finalized; anything else is an invariant breach,
// reported as ErrSeatStateCorrupt rather than a plain conflict.
func finalizeSeats(ctx context.Context, tx pgx.Tx, seats []domain.Seat, reservationID int64) error {
	query := `
		UPDATE seats
		SET status = 'booked', reserved_until = NULL, version = version + 1
		WHERE showtime_id = $1 AND seat_number = $2 AND version = $3
			AND status = 'reserved' AND reservation_id = $4
	`

	for _, seat := range seats {
		if seat.Status != domain.SeatStatusReserved ||
			seat.ReservationID == nil ||
			*seat.ReservationID != reservationID {
			return domain.ErrSeatStateCorrupt
		}

		tag, err := tx.Exec(ctx, query, seat.ShowtimeID, seat.SeatNumber, seat.Version, reservationID)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return domain.ErrEditConflict
		}
	}

	return nil
}
