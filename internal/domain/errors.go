package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrEditConflict     = errors.New("edit conflict")
	ErrPaymentDeclined  = errors.New("payment was declined")
	ErrSeatStateCorrupt = errors.New("seat state does not match its reservation")
)

// SeatsUnavailableError reports which requested seats could not be claimed.
// It is an expected outcome of concurrent selling, not a system error: the
// client is expected to re-prompt seat selection.
type SeatsUnavailableError struct {
	SeatNumbers []string
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seat(s) no longer available: %s", strings.Join(e.SeatNumbers, ", "))
}
