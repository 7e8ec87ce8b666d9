package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cinetex/booking-engine/internal/api"
	"github.com/cinetex/booking-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// cancelAttempts bounds the retry loop on a cancel CAS conflict. The target
// state (seat Available) does not depend on what raced us, so retrying is
// safe; claims, by contrast, are never retried here.
const cancelAttempts = 3

func (app *Application) CreateReservationHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showtimeID, err := app.readIDParam(r, "showtimeID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.CreateReservationRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	// Cheap shape checks first, before any inventory access.
	if validationErrs := app.validateSeatSelections(input.Seats); len(validationErrs) > 0 {
		app.validationErrorsResponse(w, r, validationErrs)
		return
	}

	_, err = app.showtimeRepo.GetByID(r.Context(), showtimeID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	seatNumbers := make([]string, len(input.Seats))
	for i, selection := range input.Seats {
		seatNumbers[i] = selection.SeatNumber
	}

	seats, err := app.seatRepo.GetSeatsByShowtimeAndNumbers(r.Context(), showtimeID, seatNumbers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	seatsByNumber := make(map[string]domain.Seat, len(seats))
	for _, seat := range seats {
		seatsByNumber[seat.SeatNumber] = seat
	}

	var unknownSeats []string
	for _, seatNumber := range seatNumbers {
		if _, ok := seatsByNumber[seatNumber]; !ok {
			unknownSeats = append(unknownSeats, seatNumber)
		}
	}

	if len(unknownSeats) > 0 {
		app.validationErrorsResponse(w, r, []api.ValidationError{{
			Field: "seats",
			Issue: fmt.Sprintf("seat(s) not in the hall layout: %s", strings.Join(unknownSeats, ", ")),
		}})
		return
	}

	tickets, totalAmount, validationErrs, err := app.priceSelections(r, input.Seats, seatsByNumber)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if len(validationErrs) > 0 {
		app.validationErrorsResponse(w, r, validationErrs)
		return
	}

	reservation := &domain.Reservation{
		UserID:      input.UserId,
		ShowtimeID:  showtimeID,
		SeatNumbers: seatNumbers,
		Tickets:     tickets,
		TotalAmount: totalAmount,
		ExpiresAt:   time.Now().Add(app.config.ReservationTTL),
	}

	err = app.reservationRepo.Create(r.Context(), reservation)
	if err != nil {
		var seatsUnavailable *domain.SeatsUnavailableError

		switch {
		case errors.As(err, &seatsUnavailable):
			// Normal outcome of concurrent selling, not a system error.
			logger.Warn("seat claim conflict",
				"showtime_id", showtimeID,
				"conflicting_seats", seatsUnavailable.SeatNumbers,
			)
			app.metrics.reservationConflicts.Add(r.Context(), int64(len(seatsUnavailable.SeatNumbers)))
			app.seatsUnavailableResponse(w, r, seatsUnavailable.SeatNumbers)
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	app.metrics.reservationsCreated.Add(r.Context(), 1)
	app.invalidateSeatMap(r.Context(), showtimeID)

	logger.Info("created reservation",
		"reservation_id", reservation.ID,
		"showtime_id", showtimeID,
		"seats", len(reservation.SeatNumbers),
		"expires_at", reservation.ExpiresAt,
	)

	resp := api.ReservationResponse{
		Reservation: toApiReservation(reservation),
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// validateSeatSelections enforces the policy limits the struct tags cannot
// express: the configured seat cap and seat number uniqueness.
func (app *Application) validateSeatSelections(selections []api.SeatSelection) []api.ValidationError {
	var errs []api.ValidationError

	if len(selections) > app.config.MaxSeatsPerReservation {
		errs = append(errs, api.ValidationError{
			Field: "seats",
			Issue: fmt.Sprintf("must not contain more than %d seats", app.config.MaxSeatsPerReservation),
		})
	}

	seen := make(map[string]bool, len(selections))
	for _, selection := range selections {
		if seen[selection.SeatNumber] {
			errs = append(errs, api.ValidationError{
				Field: "seats",
				Issue: fmt.Sprintf("seat %s is selected more than once", selection.SeatNumber),
			})
		}

		seen[selection.SeatNumber] = true
	}

	return errs
}

// priceSelections resolves every selection to a ticket line item: seat base
// price with the ticket-type modifier applied, rounded to cents.
func (app *Application) priceSelections(
	r *http.Request,
	selections []api.SeatSelection,
	seatsByNumber map[string]domain.Seat) ([]domain.ReservationTicket, decimal.Decimal, []api.ValidationError, error) {

	ticketTypeIDs := make([]int64, 0, len(selections))
	seenTypes := make(map[int64]bool)

	for _, selection := range selections {
		if !seenTypes[selection.TicketTypeId] {
			seenTypes[selection.TicketTypeId] = true
			ticketTypeIDs = append(ticketTypeIDs, selection.TicketTypeId)
		}
	}

	ticketTypes, err := app.showtimeRepo.GetTicketTypes(r.Context(), ticketTypeIDs)
	if err != nil {
		return nil, decimal.Zero, nil, err
	}

	var validationErrs []api.ValidationError
	tickets := make([]domain.ReservationTicket, 0, len(selections))
	totalAmount := decimal.Zero

	for _, selection := range selections {
		ticketType, ok := ticketTypes[selection.TicketTypeId]
		if !ok {
			validationErrs = append(validationErrs, api.ValidationError{
				Field: "seats",
				Issue: fmt.Sprintf("unknown ticket type %d", selection.TicketTypeId),
			})
			continue
		}

		seat := seatsByNumber[selection.SeatNumber]
		unitPrice := seat.Price.Mul(ticketType.Modifier).Round(2)

		tickets = append(tickets, domain.ReservationTicket{
			SeatNumber:   selection.SeatNumber,
			TicketTypeID: selection.TicketTypeId,
			SeatPrice:    seat.Price,
			UnitPrice:    unitPrice,
		})

		totalAmount = totalAmount.Add(unitPrice)
	}

	return tickets, totalAmount, validationErrs, nil
}

func (app *Application) CancelReservationHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	reservationID, err := app.readIDParam(r, "reservationID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.CancelReservationRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	reservation, err := app.reservationRepo.GetByID(r.Context(), reservationID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	if reservation.UserID != input.UserId {
		app.forbiddenResponse(w, r)
		return
	}

	if reservation.Terminal() {
		app.editConflictResponse(w, r, "The reservation can no longer be cancelled")
		return
	}

	for attempt := 0; ; attempt++ {
		err = app.reservationRepo.Cancel(r.Context(), reservationID)
		if err == nil {
			break
		}

		if !errors.Is(err, domain.ErrEditConflict) {
			app.serverErrorResponse(w, r, err)
			return
		}

		// Either the reservation left the Pending state, or a seat write
		// raced us. Re-read to tell the two apart.
		reservation, err = app.reservationRepo.GetByID(r.Context(), reservationID)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}

		if reservation.Terminal() {
			app.editConflictResponse(w, r, "The reservation can no longer be cancelled")
			return
		}

		if attempt == cancelAttempts-1 {
			logger.Warn("cancel kept losing the version check", "reservation_id", reservationID)
			app.editConflictResponse(w, r, "The reservation could not be cancelled, please try again")
			return
		}
	}

	app.invalidateSeatMap(r.Context(), reservation.ShowtimeID)

	logger.Info("cancelled reservation", "reservation_id", reservationID)

	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) GetReservationHandler(w http.ResponseWriter, r *http.Request) {
	reservationID, err := app.readIDParam(r, "reservationID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	userID, err := readUserIDQuery(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reservation, err := app.reservationRepo.GetByID(r.Context(), reservationID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	// Another user's reservation is indistinguishable from a missing one.
	if reservation.UserID != userID {
		app.notFoundResponse(w, r)
		return
	}

	holdSecondsLeft := int64(0)
	if reservation.Status == domain.ReservationStatusPending {
		if left := time.Until(reservation.ExpiresAt); left > 0 {
			holdSecondsLeft = int64(left.Seconds())
		}
	}

	resp := api.ReservationDetailResponse{
		Reservation:     toApiReservation(reservation),
		HoldSecondsLeft: holdSecondsLeft,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func readUserIDQuery(r *http.Request) (int64, error) {
	value := r.URL.Query().Get("userId")
	if value == "" {
		return 0, errors.New("userId query parameter is required")
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil || userID < 1 {
		return 0, errors.New("userId query parameter must be a positive integer")
	}

	return userID, nil
}

func toApiReservation(reservation *domain.Reservation) api.Reservation {
	tickets := make([]api.ReservationTicket, len(reservation.Tickets))

	for i, ticket := range reservation.Tickets {
		tickets[i] = api.ReservationTicket{
			SeatNumber:   ticket.SeatNumber,
			TicketTypeId: ticket.TicketTypeID,
			SeatPrice:    ticket.SeatPrice,
			UnitPrice:    ticket.UnitPrice,
		}
	}

	return api.Reservation{
		Id:          reservation.ID,
		ShowtimeId:  reservation.ShowtimeID,
		SeatNumbers: reservation.SeatNumbers,
		Tickets:     tickets,
		TotalAmount: reservation.TotalAmount,
		ExpiresAt:   reservation.ExpiresAt,
		Status:      string(reservation.Status),
		CreatedAt:   reservation.CreatedAt,
	}
}
