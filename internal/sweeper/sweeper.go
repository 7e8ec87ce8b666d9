// Package sweeper reclaims abandoned holds: a recurring job scans for
// Pending reservations past their deadline and releases their seats.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cinetex/booking-engine/internal/domain"
	"github.com/go-co-op/gocron/v2"
)

const (
	defaultBatchSize = 100

	// A release that keeps losing the version check is abandoned after a
	// few attempts; the target state does not depend on what raced it, so
	// retrying is always safe.
	releaseAttempts = 3
)

type ReservationLedger interface {
	FindExpired(ctx context.Context, now time.Time, limit int) ([]int64, error)
	Expire(ctx context.Context, id int64, now time.Time) (int64, error)
}

type Sweeper struct {
	ledger    ReservationLedger
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	onExpired func(count int64, showtimeIDs []int64)

	scheduler gocron.Scheduler
}

type Option func(*Sweeper)

func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithOnExpired registers a callback invoked after each pass that released
// anything, with the number of holds released and the distinct showtimes
// whose seats changed state.
func WithOnExpired(fn func(count int64, showtimeIDs []int64)) Option {
	return func(s *Sweeper) {
		s.onExpired = fn
	}
}

func New(ledger ReservationLedger, logger *slog.Logger, interval time.Duration, opts ...Option) *Sweeper {
	s := &Sweeper{
		ledger:    ledger,
		logger:    logger,
		interval:  interval,
		batchSize: defaultBatchSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start schedules the recurring sweep. Singleton mode stops passes from
// piling up within one instance; overlap across instances stays safe
// because every release is guarded by the seat version check.
func (s *Sweeper) Start() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			defer cancel()

			_, err := s.Sweep(ctx, time.Now())
			if err != nil {
				s.logger.Error("sweep pass failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	s.scheduler = scheduler
	scheduler.Start()

	s.logger.Info("started expiry sweeper", "interval", s.interval, "batch_size", s.batchSize)

	return nil
}

func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}

	return s.scheduler.Shutdown()
}

// Sweep expires every overdue hold it finds, one transaction per
// reservation so a conflict on one never aborts the batch. Losing a race
// to a concurrent finalize or cancel is a normal outcome, logged at Warn.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.ledger.FindExpired(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	showtimes := make(map[int64]struct{})

	for _, id := range ids {
		showtimeID, err := s.expire(ctx, id, now)

		switch {
		case err == nil:
			expired++
			showtimes[showtimeID] = struct{}{}
		case errors.Is(err, domain.ErrEditConflict):
			s.logger.Warn("expiry lost a race, skipping reservation", "reservation_id", id)
		default:
			s.logger.Error("failed to expire reservation", "reservation_id", id, "error", err)
		}
	}

	if expired > 0 {
		s.logger.Info("released expired holds", "count", expired)

		if s.onExpired != nil {
			showtimeIDs := make([]int64, 0, len(showtimes))
			for id := range showtimes {
				showtimeIDs = append(showtimeIDs, id)
			}

			s.onExpired(int64(expired), showtimeIDs)
		}
	}

	return expired, nil
}

func (s *Sweeper) expire(ctx context.Context, id int64, now time.Time) (int64, error) {
	var showtimeID int64
	var err error

	for attempt := 0; attempt < releaseAttempts; attempt++ {
		showtimeID, err = s.ledger.Expire(ctx, id, now)
		if !errors.Is(err, domain.ErrEditConflict) {
			return showtimeID, err
		}
	}

	return 0, err
}
