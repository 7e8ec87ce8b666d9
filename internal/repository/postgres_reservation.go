package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cinetex/booking-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresReservationRepository struct {
	db *pgxpool.Pool
}

func NewPostgresReservationRepository(db *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{
		db: db,
	}
}

// Create claims the requested seats and persists the hold in one
// transaction. The hold and the inventory mutation commit together or not
// at all.
func (p *PostgresReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		seats, err := seatsInTx(ctx, tx, reservation.ShowtimeID, reservation.SeatNumbers)
		if err != nil {
			return err
		}

		if len(seats) != len(reservation.SeatNumbers) {
			return domain.ErrRecordNotFound
		}

		var unavailable []string
		for _, seat := range seats {
			if seat.Status != domain.SeatStatusAvailable {
				unavailable = append(unavailable, seat.SeatNumber)
			}
		}

		if len(unavailable) > 0 {
			return &domain.SeatsUnavailableError{SeatNumbers: unavailable}
		}

		query := `
			INSERT INTO reservations (user_id, showtime_id, seat_numbers, total_amount, expires_at, status)
			VALUES ($1, $2, $3, $4, $5, 'pending')
			RETURNING id, created_at, updated_at
		`

		err = tx.QueryRow(
			ctx,
			query,
			reservation.UserID,
			reservation.ShowtimeID,
			reservation.SeatNumbers,
			reservation.TotalAmount,
			reservation.ExpiresAt).Scan(&reservation.ID, &reservation.CreatedAt, &reservation.UpdatedAt)

		if err != nil {
			return err
		}

		conflicts, err := claimSeats(ctx, tx, seats, reservation.ID, reservation.ExpiresAt)
		if err != nil {
			return err
		}

		if len(conflicts) > 0 {
			return &domain.SeatsUnavailableError{SeatNumbers: conflicts}
		}

		rows := make([][]any, 0, len(reservation.Tickets))
		for _, ticket := range reservation.Tickets {
			rows = append(rows, []any{
				reservation.ID,
				ticket.SeatNumber,
				ticket.TicketTypeID,
				ticket.SeatPrice,
				ticket.UnitPrice,
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"reservation_tickets"},
			[]string{"reservation_id", "seat_number", "ticket_type_id", "seat_price", "unit_price"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return err
		}

		reservation.Status = domain.ReservationStatusPending

		return nil
	})
}

func (p *PostgresReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	query := `
		SELECT id, user_id, showtime_id, seat_numbers, total_amount, expires_at, status, created_at, updated_at
		FROM reservations
		WHERE id = $1
	`

	var reservation domain.Reservation

	err := p.db.QueryRow(ctx, query, id).Scan(
		&reservation.ID,
		&reservation.UserID,
		&reservation.ShowtimeID,
		&reservation.SeatNumbers,
		&reservation.TotalAmount,
		&reservation.ExpiresAt,
		&reservation.Status,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	tickets, err := p.retrieveTickets(ctx, id)
	if err != nil {
		return nil, err
	}

	reservation.Tickets = tickets

	return &reservation, nil
}

func (p *PostgresReservationRepository) retrieveTickets(
	ctx context.Context,
	reservationID int64) ([]domain.ReservationTicket, error) {

	query := `
		SELECT seat_number, ticket_type_id, seat_price, unit_price
		FROM reservation_tickets
		WHERE reservation_id = $1
		ORDER BY seat_number
	`

	rows, err := p.db.Query(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.ReservationTicket, 0)

	for rows.Next() {
		var ticket domain.ReservationTicket

		err := rows.Scan(
			&ticket.SeatNumber,
			&ticket.TicketTypeID,
			&ticket.SeatPrice,
			&ticket.UnitPrice,
		)
		if err != nil {
			return nil, err
		}

		tickets = append(tickets, ticket)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

func (p *PostgresReservationRepository) Cancel(ctx context.Context, id int64) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE reservations
			SET status = 'cancelled', updated_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING showtime_id, seat_numbers
		`

		var showtimeID int64
		var seatNumbers []string

		err := tx.QueryRow(ctx, query, id).Scan(&showtimeID, &seatNumbers)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrEditConflict
			}

			return err
		}

		seats, err := seatsInTx(ctx, tx, showtimeID, seatNumbers)
		if err != nil {
			return err
		}

		if len(seats) != len(seatNumbers) {
			return domain.ErrSeatStateCorrupt
		}

		return releaseSeats(ctx, tx, seats, id)
	})
}

func (p *PostgresReservationRepository) FindExpired(
	ctx context.Context,
	now time.Time,
	limit int) ([]int64, error) {

	query := `
		SELECT id
		FROM reservations
		WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`

	rows, err := p.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)

	for rows.Next() {
		var id int64

		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (p *PostgresReservationRepository) Expire(ctx context.Context, id int64, now time.Time) (int64, error) {
	var showtimeID int64

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE reservations
			SET status = 'expired', updated_at = NOW()
			WHERE id = $1 AND status = 'pending' AND expires_at <= $2
			RETURNING showtime_id, seat_numbers
		`

		var seatNumbers []string

		err := tx.QueryRow(ctx, query, id, now).Scan(&showtimeID, &seatNumbers)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrEditConflict
			}

			return err
		}

		seats, err := seatsInTx(ctx, tx, showtimeID, seatNumbers)
		if err != nil {
			return err
		}

		if len(seats) != len(seatNumbers) {
			return domain.ErrSeatStateCorrupt
		}

		return releaseSeats(ctx, tx, seats, id)
	})
	if err != nil {
		return 0, err
	}

	return showtimeID, nil
}
