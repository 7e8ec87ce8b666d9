package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cinetex/booking-engine/internal/api"
	"github.com/cinetex/booking-engine/internal/domain"
	"github.com/google/uuid"
)

func (app *Application) ConfirmBookingHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	reservationID, err := app.readIDParam(r, "reservationID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.ConfirmBookingRequest

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

	if reservation.Status == domain.ReservationStatusConfirmed ||
		reservation.Status == domain.ReservationStatusCancelled {
		app.editConflictResponse(w, r, "The reservation has already been finalized")
		return
	}

	// Pre-flight check only. The authoritative expiry decision happens
	// inside the finalize transaction, against the database clock.
	if reservation.Expired(time.Now()) {
		app.editConflictResponse(w, r, "The reservation has expired")
		return
	}

	paymentResult, err := app.paymentProvider.Charge(r.Context(), domain.PaymentRequest{
		UserID:        reservation.UserID,
		ReservationID: reservation.ID,
		Amount:        reservation.TotalAmount,
		Currency:      app.config.Currency,
		Method:        input.PaymentMethod,
		Details:       input.PaymentDetails,
		// One fresh key per attempt. Stripe replays whatever outcome it first
		// recorded under a key, so reusing one across confirms would pin a
		// declined charge and block the customer from retrying with another
		// card. Double-charge protection comes from the finalize transaction,
		// not from the key.
		IdempotencyKey: fmt.Sprintf("reservation-%d-%s", reservation.ID, uuid.NewString()),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentDeclined):
			logger.Info("payment declined", "reservation_id", reservation.ID)
			app.paymentRequiredResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	booking := &domain.Booking{
		BookingNumber:    domain.NewBookingNumber(time.Now()),
		UserID:           reservation.UserID,
		ShowtimeID:       reservation.ShowtimeID,
		SeatNumbers:      reservation.SeatNumbers,
		TotalAmount:      reservation.TotalAmount,
		PaymentReference: paymentResult.Reference,
		Status:           domain.BookingStatusConfirmed,
	}

	err = app.bookingRepo.Finalize(r.Context(), reservation, booking)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEditConflict):
			app.handleFinalizeConflict(w, r, reservationID, paymentResult.Reference)
		case errors.Is(err, domain.ErrSeatStateCorrupt):
			logger.Error("seat state inconsistent with reservation, refusing to finalize",
				"reservation_id", reservation.ID,
				"payment_reference", paymentResult.Reference,
			)
			app.serverErrorResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	app.metrics.bookingsConfirmed.Add(r.Context(), 1)
	app.invalidateSeatMap(r.Context(), reservation.ShowtimeID)

	logger.Info("confirmed booking",
		"reservation_id", reservation.ID,
		"booking_id", booking.ID,
		"booking_number", booking.BookingNumber,
	)

	if input.CustomerEmail != "" {
		app.sendBookingConfirmation(input.CustomerEmail, booking)
	}

	resp := api.BookingResponse{
		Booking: api.Booking{
			BookingNumber: booking.BookingNumber,
			ShowtimeId:    booking.ShowtimeID,
			SeatNumbers:   booking.SeatNumbers,
			TotalAmount:   booking.TotalAmount,
			Status:        string(booking.Status),
			CreatedAt:     booking.CreatedAt,
		},
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// handleFinalizeConflict maps a lost finalize race to the caller-facing
// reason. The payment already went through at this point, so the reference is
// logged for reconciliation before the conflict is reported.
func (app *Application) handleFinalizeConflict(w http.ResponseWriter, r *http.Request, reservationID int64, paymentReference string) {
	logger := app.contextGetLogger(r)

	logger.Warn("finalize lost the reservation state race, payment needs reconciliation",
		"reservation_id", reservationID,
		"payment_reference", paymentReference,
	)

	reservation, err := app.reservationRepo.GetByID(r.Context(), reservationID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	stillPending := reservation.Status == domain.ReservationStatusPending

	if reservation.Status == domain.ReservationStatusExpired ||
		(stillPending && reservation.Expired(time.Now())) {
		app.editConflictResponse(w, r, "The reservation has expired")
		return
	}

	app.editConflictResponse(w, r, "The reservation has already been finalized")
}

func (app *Application) sendBookingConfirmation(recipient string, booking *domain.Booking) {
	app.background(func() {
		data := map[string]any{
			"BookingNumber": booking.BookingNumber,
			"SeatNumbers":   booking.SeatNumbers,
			"TotalAmount":   booking.TotalAmount,
			"Currency":      app.config.Currency,
		}

		err := app.mailer.Send(recipient, "booking_confirmation.tmpl", data)
		if err != nil {
			app.logger.Error("failed to send booking confirmation",
				"booking_number", booking.BookingNumber,
				"error", err.Error(),
			)
		}
	})
}
