// Package api holds the request and response shapes of the engine's HTTP
// surface. The transport is JSON over HTTP but nothing in here assumes chi.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	ValidationErrors []ValidationError `json:"validationErrors"`
	RequestId        string            `json:"requestId,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

// SeatConflictResponse names the seats that could not be claimed so the
// client can re-prompt seat selection.
type SeatConflictResponse struct {
	Message          string   `json:"message"`
	ConflictingSeats []string `json:"conflictingSeats"`
}

type SeatSelection struct {
	SeatNumber   string `json:"seatNumber" validate:"required,seat_number"`
	TicketTypeId int64  `json:"ticketTypeId" validate:"required,min=1"`
}

type CreateReservationRequest struct {
	UserId int64           `json:"userId" validate:"required,min=1"`
	Seats  []SeatSelection `json:"seats" validate:"required,min=1,dive"`
}

type ReservationTicket struct {
	SeatNumber   string          `json:"seatNumber"`
	TicketTypeId int64           `json:"ticketTypeId"`
	SeatPrice    decimal.Decimal `json:"seatPrice"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
}

type Reservation struct {
	Id          int64               `json:"id"`
	ShowtimeId  int64               `json:"showtimeId"`
	SeatNumbers []string            `json:"seatNumbers"`
	Tickets     []ReservationTicket `json:"tickets"`
	TotalAmount decimal.Decimal     `json:"totalAmount"`
	ExpiresAt   time.Time           `json:"expiresAt"`
	Status      string              `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
}

type ReservationResponse struct {
	Reservation Reservation `json:"reservation"`
}

type ReservationDetailResponse struct {
	Reservation     Reservation `json:"reservation"`
	HoldSecondsLeft int64       `json:"holdSecondsLeft"`
}

type CancelReservationRequest struct {
	UserId int64 `json:"userId" validate:"required,min=1"`
}

type ConfirmBookingRequest struct {
	UserId         int64             `json:"userId" validate:"required,min=1"`
	PaymentMethod  string            `json:"paymentMethod" validate:"required"`
	PaymentDetails map[string]string `json:"paymentDetails"`
	CustomerEmail  string            `json:"customerEmail" validate:"omitempty,email"`
}

type Booking struct {
	BookingNumber string          `json:"bookingNumber"`
	ShowtimeId    int64           `json:"showtimeId"`
	SeatNumbers   []string        `json:"seatNumbers"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type BookingResponse struct {
	Booking Booking `json:"booking"`
}

type SeatAvailabilityResponse struct {
	ShowtimeId int64    `json:"showtimeId"`
	Available  []string `json:"available"`
	Reserved   []string `json:"reserved"`
	Booked     []string `json:"booked"`
	Blocked    []string `json:"blocked"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}
