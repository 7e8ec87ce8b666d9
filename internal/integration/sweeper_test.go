package integration_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/cinetex/booking-engine/internal/api"
	"github.com/stretchr/testify/suite"
)

type SweeperSuite struct {
	BaseSuite
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) TestSweepReleasesOverdueHolds() {
	showtimeID, ticketTypeID := s.seedShowtime("A1", "A2", "A3")

	w := s.executeRequest(http.MethodPost, reservationURL(showtimeID), api.CreateReservationRequest{
		UserId: 1,
		Seats: []api.SeatSelection{
			{SeatNumber: "A1", TicketTypeId: ticketTypeID},
			{SeatNumber: "A2", TicketTypeId: ticketTypeID},
		},
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	var overdue api.ReservationResponse
	s.decodeResponse(w, &overdue)

	w = s.executeRequest(http.MethodPost, reservationURL(showtimeID), api.CreateReservationRequest{
		UserId: 2,
		Seats:  []api.SeatSelection{{SeatNumber: "A3", TicketTypeId: ticketTypeID}},
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	var fresh api.ReservationResponse
	s.decodeResponse(w, &fresh)

	s.forceExpiry(overdue.Reservation.Id)

	expired, err := s.app.Sweep(context.Background(), time.Now())
	s.Require().NoError(err)
	s.Equal(1, expired)

	s.Equal("expired", s.reservationStatus(overdue.Reservation.Id))

	for _, seatNumber := range []string{"A1", "A2"} {
		status, reservationID, _ := s.seatState(showtimeID, seatNumber)
		s.Equal("available", status)
		s.Nil(reservationID)
	}

	// The unexpired hold is untouched.
	s.Equal("pending", s.reservationStatus(fresh.Reservation.Id))
	status, _, _ := s.seatState(showtimeID, "A3")
	s.Equal("reserved", status)
}

func (s *SweeperSuite) TestSweptSeatsAreSellableAgain() {
	showtimeID, ticketTypeID := s.seedShowtime("A1")

	w := s.executeRequest(http.MethodPost, reservationURL(showtimeID), api.CreateReservationRequest{
		UserId: 1,
		Seats:  []api.SeatSelection{{SeatNumber: "A1", TicketTypeId: ticketTypeID}},
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	var first api.ReservationResponse
	s.decodeResponse(w, &first)

	s.forceExpiry(first.Reservation.Id)

	expired, err := s.app.Sweep(context.Background(), time.Now())
	s.Require().NoError(err)
	s.Require().Equal(1, expired)

	w = s.executeRequest(http.MethodPost, reservationURL(showtimeID), api.CreateReservationRequest{
		UserId: 2,
		Seats:  []api.SeatSelection{{SeatNumber: "A1", TicketTypeId: ticketTypeID}},
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	var second api.ReservationResponse
	s.decodeResponse(w, &second)

	status, reservationID, _ := s.seatState(showtimeID, "A1")
	s.Equal("reserved", status)
	s.Require().NotNil(reservationID)
	s.Equal(second.Reservation.Id, *reservationID)
}

func (s *SweeperSuite) TestSweepInvalidatesSeatMapCache() {
	showtimeID, ticketTypeID := s.seedShowtime("A1")

	w := s.executeRequest(http.MethodPost, reservationURL(showtimeID), api.CreateReservationRequest{
		UserId: 1,
		Seats:  []api.SeatSelection{{SeatNumber: "A1", TicketTypeId: ticketTypeID}},
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	var resp api.ReservationResponse
	s.decodeResponse(w, &resp)

	// Populate the cache with the seat reserved.
	w = s.executeRequest(http.MethodGet, fmt.Sprintf("/showtimes/%d/seats", showtimeID), nil)
	s.Require().Equal(http.StatusOK, w.Code)

	cacheKey := fmt.Sprintf("seat_map:%d", showtimeID)
	cached, err := s.cache.Exists(context.Background(), cacheKey).Result()
	s.Require().NoError(err)
	s.Require().Equal(int64(1), cached)

	s.forceExpiry(resp.Reservation.Id)

	expired, err := s.app.Sweep(context.Background(), time.Now())
	s.Require().NoError(err)
	s.Require().Equal(1, expired)

	cached, err = s.cache.Exists(context.Background(), cacheKey).Result()
	s.Require().NoError(err)
	s.Equal(int64(0), cached)

	w = s.executeRequest(http.MethodGet, fmt.Sprintf("/showtimes/%d/seats", showtimeID), nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var seatMap api.SeatAvailabilityResponse
	s.decodeResponse(w, &seatMap)
	s.Equal([]string{"A1"}, seatMap.Available)
}

func (s *SweeperSuite) TestSweepIsIdempotent() {
	showtimeID, ticketTypeID := s.seedShowtime("A1")

	w := s.executeRequest(http.MethodPost, reservationURL(showtimeID), api.CreateReservationRequest{
		UserId: 1,
		Seats:  []api.SeatSelection{{SeatNumber: "A1", TicketTypeId: ticketTypeID}},
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	var resp api.ReservationResponse
	s.decodeResponse(w, &resp)

	s.forceExpiry(resp.Reservation.Id)

	expired, err := s.app.Sweep(context.Background(), time.Now())
	s.Require().NoError(err)
	s.Equal(1, expired)

	expired, err = s.app.Sweep(context.Background(), time.Now())
	s.Require().NoError(err)
	s.Equal(0, expired)

	s.Equal("expired", s.reservationStatus(resp.Reservation.Id))
}

func (s *SweeperSuite) TestCancelledHoldIsNotSwept() {
	showtimeID, ticketTypeID := s.seedShowtime("A1")

	w := s.executeRequest(http.MethodPost, reservationURL(showtimeID), api.CreateReservationRequest{
		UserId: 1,
		Seats:  []api.SeatSelection{{SeatNumber: "A1", TicketTypeId: ticketTypeID}},
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	var resp api.ReservationResponse
	s.decodeResponse(w, &resp)

	w = s.executeRequest(http.MethodDelete, fmt.Sprintf("/reservations/%d", resp.Reservation.Id), api.CancelReservationRequest{UserId: 1})
	s.Require().Equal(http.StatusNoContent, w.Code)

	s.forceExpiry(resp.Reservation.Id)

	expired, err := s.app.Sweep(context.Background(), time.Now())
	s.Require().NoError(err)
	s.Equal(0, expired)

	s.Equal("cancelled", s.reservationStatus(resp.Reservation.Id))
}
