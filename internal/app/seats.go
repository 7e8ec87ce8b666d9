package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cinetex/booking-engine/internal/api"
	"github.com/cinetex/booking-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// seatMapTTL keeps the cached seat map short-lived: the map is advisory only,
// every mutation goes through the version check regardless of what a caller
// saw here.
const seatMapTTL = 5 * time.Second

func (app *Application) GetSeatAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := app.readIDParam(r, "showtimeID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if cached, ok := app.cachedSeatMap(r.Context(), showtimeID); ok {
		err = app.writeJSON(w, http.StatusOK, cached, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	seats, err := app.seatRepo.GetSeatsByShowtime(r.Context(), showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if len(seats) == 0 {
		app.notFoundResponse(w, r)
		return
	}

	resp := api.SeatAvailabilityResponse{
		ShowtimeId: showtimeID,
		Available:  []string{},
		Reserved:   []string{},
		Booked:     []string{},
		Blocked:    []string{},
	}

	for _, seat := range seats {
		switch seat.Status {
		case domain.SeatStatusAvailable:
			resp.Available = append(resp.Available, seat.SeatNumber)
		case domain.SeatStatusReserved:
			resp.Reserved = append(resp.Reserved, seat.SeatNumber)
		case domain.SeatStatusBooked:
			resp.Booked = append(resp.Booked, seat.SeatNumber)
		case domain.SeatStatusBlocked:
			resp.Blocked = append(resp.Blocked, seat.SeatNumber)
		}
	}

	app.cacheSeatMap(r.Context(), showtimeID, resp)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func seatMapKey(showtimeID int64) string {
	return fmt.Sprintf("seat_map:%d", showtimeID)
}

func (app *Application) cachedSeatMap(ctx context.Context, showtimeID int64) (api.SeatAvailabilityResponse, bool) {
	var resp api.SeatAvailabilityResponse

	if app.redis == nil {
		return resp, false
	}

	payload, err := app.redis.Get(ctx, seatMapKey(showtimeID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			app.logger.Warn("seat map cache read failed", "showtime_id", showtimeID, "error", err.Error())
		}

		return resp, false
	}

	if err := json.Unmarshal(payload, &resp); err != nil {
		return resp, false
	}

	return resp, true
}

func (app *Application) cacheSeatMap(ctx context.Context, showtimeID int64, resp api.SeatAvailabilityResponse) {
	if app.redis == nil {
		return
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}

	err = app.redis.Set(ctx, seatMapKey(showtimeID), payload, seatMapTTL).Err()
	if err != nil {
		app.logger.Warn("seat map cache write failed", "showtime_id", showtimeID, "error", err.Error())
	}
}

// invalidateSeatMap drops the cached map after any seat state change. Failure
// is tolerable, the short TTL bounds the staleness window.
func (app *Application) invalidateSeatMap(ctx context.Context, showtimeID int64) {
	if app.redis == nil {
		return
	}

	err := app.redis.Del(ctx, seatMapKey(showtimeID)).Err()
	if err != nil {
		app.logger.Warn("seat map cache invalidation failed", "showtime_id", showtimeID, "error", err.Error())
	}
}
