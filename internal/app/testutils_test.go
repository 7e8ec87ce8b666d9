package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cinetex/booking-engine/internal/api"
	"github.com/cinetex/booking-engine/internal/domain"
	"github.com/cinetex/booking-engine/internal/mailer"
	"github.com/cinetex/booking-engine/internal/mocks"
	"github.com/cinetex/booking-engine/internal/validator"
	"github.com/shopspring/decimal"
)

func newTestApplication(opts ...func(*Application)) *Application {
	metrics, _ := newEngineMetrics()

	app := &Application{
		config: Config{
			Env:                    "test",
			Currency:               "usd",
			ReservationTTL:         10 * time.Minute,
			MaxSeatsPerReservation: 10,
		},
		validator:       validator.NewValidator(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		mailer:          &mailer.MockMailer{},
		showtimeRepo:    &mocks.MockShowtimeRepo{},
		seatRepo:        &mocks.MockSeatRepo{},
		reservationRepo: &mocks.MockReservationRepo{},
		bookingRepo:     &mocks.MockBookingRepo{},
		paymentProvider: &mocks.MockPaymentProvider{},
		metrics:         metrics,
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

func executeRequest(t *testing.T, app *Application, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	app.Routes().ServeHTTP(w, r)

	return w
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantErrMessage string) {
	t.Helper()

	if wantStatus >= 200 && wantStatus < 300 || wantErrMessage == "" {
		return
	}

	switch wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp api.ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", wantErrMessage)
		}

	default:
		var errorResp api.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if errorResp.Message != wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, wantErrMessage)
		}
	}
}

func availableSeat(showtimeID int64, seatNumber string, price string) domain.Seat {
	return domain.Seat{
		ShowtimeID: showtimeID,
		SeatNumber: seatNumber,
		Type:       "standard",
		Price:      decimal.RequireFromString(price),
		Status:     domain.SeatStatusAvailable,
		Version:    1,
	}
}

func pendingReservation(id, userID, showtimeID int64, expiresAt time.Time) *domain.Reservation {
	return &domain.Reservation{
		ID:          id,
		UserID:      userID,
		ShowtimeID:  showtimeID,
		SeatNumbers: []string{"A1", "A2"},
		Tickets: []domain.ReservationTicket{
			{SeatNumber: "A1", TicketTypeID: 1, SeatPrice: decimal.RequireFromString("10.00"), UnitPrice: decimal.RequireFromString("10.00")},
			{SeatNumber: "A2", TicketTypeID: 1, SeatPrice: decimal.RequireFromString("10.00"), UnitPrice: decimal.RequireFromString("10.00")},
		},
		TotalAmount: decimal.RequireFromString("20.00"),
		ExpiresAt:   expiresAt,
		Status:      domain.ReservationStatusPending,
		CreatedAt:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
}

func ptr[T any](v T) *T {
	return &v
}
