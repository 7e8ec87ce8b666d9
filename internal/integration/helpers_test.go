package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"time"
)

func (s *BaseSuite) executeRequest(method, url string, body any) *httptest.ResponseRecorder {
	s.T().Helper()

	var reader *bytes.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(jsonData)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.app.Routes().ServeHTTP(w, r)

	return w
}

func (s *BaseSuite) decodeResponse(w *httptest.ResponseRecorder, dst any) {
	s.T().Helper()

	s.Require().NoError(json.NewDecoder(w.Body).Decode(dst))
}

// seedShowtime inserts a showtime with one Adult ticket type (modifier 1.00)
// and the given seats, all Available at 10.00. Returns the showtime id and
// the ticket type id.
func (s *BaseSuite) seedShowtime(seatNumbers ...string) (int64, int64) {
	s.T().Helper()

	ctx := context.Background()

	var showtimeID int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO showtimes (hall_id, starts_at)
		VALUES (1, $1)
		RETURNING id`,
		time.Now().Add(24*time.Hour),
	).Scan(&showtimeID)
	s.Require().NoError(err)

	var ticketTypeID int64
	err = s.db.QueryRow(ctx, `
		INSERT INTO ticket_types (name, modifier)
		VALUES ('Adult', 1.00)
		RETURNING id`,
	).Scan(&ticketTypeID)
	s.Require().NoError(err)

	for _, seatNumber := range seatNumbers {
		_, err = s.db.Exec(ctx, `
			INSERT INTO seats (showtime_id, seat_number, seat_type, price)
			VALUES ($1, $2, 'standard', 10.00)`,
			showtimeID, seatNumber,
		)
		s.Require().NoError(err)
	}

	return showtimeID, ticketTypeID
}

func (s *BaseSuite) seatState(showtimeID int64, seatNumber string) (status string, reservationID *int64, version int) {
	s.T().Helper()

	err := s.db.QueryRow(context.Background(), `
		SELECT status, reservation_id, version
		FROM seats
		WHERE showtime_id = $1 AND seat_number = $2`,
		showtimeID, seatNumber,
	).Scan(&status, &reservationID, &version)
	s.Require().NoError(err)

	return status, reservationID, version
}

func (s *BaseSuite) reservationStatus(reservationID int64) string {
	s.T().Helper()

	var status string
	err := s.db.QueryRow(context.Background(), `
		SELECT status FROM reservations WHERE id = $1`,
		reservationID,
	).Scan(&status)
	s.Require().NoError(err)

	return status
}

// forceExpiry backdates a hold so the sweeper and the finalizer treat it as
// overdue without waiting out a real TTL.
func (s *BaseSuite) forceExpiry(reservationID int64) {
	s.T().Helper()

	_, err := s.db.Exec(context.Background(), `
		UPDATE reservations
		SET expires_at = NOW() - INTERVAL '1 minute'
		WHERE id = $1`,
		reservationID,
	)
	s.Require().NoError(err)
}

func (s *BaseSuite) countRows(query string, args ...any) int {
	s.T().Helper()

	var count int
	err := s.db.QueryRow(context.Background(), query, args...).Scan(&count)
	s.Require().NoError(err)

	return count
}
