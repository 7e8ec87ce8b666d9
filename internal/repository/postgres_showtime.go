package repository

import (
	"context"
	"errors"

	"github.com/cinetex/booking-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresShowtimeRepository struct {
	db *pgxpool.Pool
}

func NewPostgresShowtimeRepository(db *pgxpool.Pool) *PostgresShowtimeRepository {
	return &PostgresShowtimeRepository{
		db: db,
	}
}

func (p *PostgresShowtimeRepository) GetByID(ctx context.Context, id int64) (*domain.Showtime, error) {
	query := `
		SELECT id, hall_id, starts_at
		FROM showtimes
		WHERE id = $1
	`

	var showtime domain.Showtime

	err := p.db.QueryRow(ctx, query, id).Scan(&showtime.ID, &showtime.HallID, &showtime.StartsAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &showtime, nil
}

func (p *PostgresShowtimeRepository) GetTicketTypes(
	ctx context.Context,
	ids []int64) (map[int64]domain.TicketType, error) {

	query := `
		SELECT id, name, modifier
		FROM ticket_types
		WHERE id = ANY($1)
	`

	rows, err := p.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ticketTypes := make(map[int64]domain.TicketType)

	for rows.Next() {
		var ticketType domain.TicketType

		err := rows.Scan(&ticketType.ID, &ticketType.Name, &ticketType.Modifier)
		if err != nil {
			return nil, err
		}

		ticketTypes[ticketType.ID] = ticketType
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return ticketTypes, nil
}
