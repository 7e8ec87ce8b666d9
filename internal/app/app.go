package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cinetex/booking-engine/internal/domain"
	"github.com/cinetex/booking-engine/internal/mailer"
	"github.com/cinetex/booking-engine/internal/payment"
	"github.com/cinetex/booking-engine/internal/repository"
	"github.com/cinetex/booking-engine/internal/sweeper"
	appvalidator "github.com/cinetex/booking-engine/internal/validator"
	"github.com/cinetex/booking-engine/internal/vcs"
	"github.com/exaring/otelpgx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
	"github.com/stripe/stripe-go/v82"
)

var (
	version = vcs.Version()
)

type Application struct {
	config    Config
	logger    *slog.Logger
	db        *pgxpool.Pool
	redis     *redis.Client
	validator *validator.Validate
	mailer    mailer.Mailer
	wg        sync.WaitGroup

	showtimeRepo    domain.ShowtimeRepository
	seatRepo        domain.SeatRepository
	reservationRepo domain.ReservationRepository
	bookingRepo     domain.BookingRepository
	paymentProvider domain.PaymentProvider

	sweeper *sweeper.Sweeper
	metrics engineMetrics
}

type Config struct {
	Port int
	Env  string

	DB     DBConfig
	Redis  RedisConfig
	SMTP   SMTPConfig
	Stripe StripeConfig

	OtelCollectorUrl string

	// Engine policy. TTL and seat cap are product decisions, not engine
	// invariants, so they stay configurable.
	Currency               string
	ReservationTTL         time.Duration
	MaxSeatsPerReservation int
	SweeperInterval        time.Duration
	SweeperBatchSize       int
	PaymentProvider        string
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type StripeConfig struct {
	SecretKey string
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL (empty disables the seat map cache)")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.SMTP.Host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.SMTP.Port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.SMTP.Username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.SMTP.Password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.SMTP.Sender, "smtp-sender", "CineX <no-reply@cinex.example.com>", "SMTP sender")

	flag.StringVar(&cfg.Stripe.SecretKey, "stripe-key", "", "Stripe secret key")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")

	flag.StringVar(&cfg.Currency, "currency", "usd", "Currency for charges")
	flag.DurationVar(&cfg.ReservationTTL, "reservation-ttl", 10*time.Minute, "How long a hold stays valid")
	flag.IntVar(&cfg.MaxSeatsPerReservation, "max-seats", 10, "Max seats per reservation")
	flag.DurationVar(&cfg.SweeperInterval, "sweeper-interval", 30*time.Second, "Interval between expiry sweeps")
	flag.IntVar(&cfg.SweeperBatchSize, "sweeper-batch-size", 100, "Max reservations expired per sweep")
	flag.StringVar(&cfg.PaymentProvider, "payment-provider", "stripe", "Payment provider (stripe|mock)")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	return app.serve()
}

func New(cfg Config, logger *slog.Logger) (*Application, error) {
	stripe.Key = cfg.Stripe.SecretKey

	db, err := newDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = newRedisClient(cfg)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	showtimeRepo := repository.NewPostgresShowtimeRepository(db)
	seatRepo := repository.NewPostgresSeatRepository(db)
	reservationRepo := repository.NewPostgresReservationRepository(db)
	bookingRepo := repository.NewPostgresBookingRepository(db)

	var paymentProvider domain.PaymentProvider
	switch cfg.PaymentProvider {
	case "mock":
		paymentProvider = payment.NewMockProvider()
	default:
		paymentProvider = payment.NewStripeProvider()
	}

	metrics, err := newEngineMetrics()
	if err != nil {
		db.Close()
		return nil, err
	}

	app := &Application{
		config:          cfg,
		logger:          logger,
		db:              db,
		redis:           redisClient,
		validator:       appvalidator.NewValidator(),
		mailer:          mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender),
		showtimeRepo:    showtimeRepo,
		seatRepo:        seatRepo,
		reservationRepo: reservationRepo,
		bookingRepo:     bookingRepo,
		paymentProvider: paymentProvider,
		metrics:         metrics,
	}

	app.sweeper = sweeper.New(
		reservationRepo,
		logger,
		cfg.SweeperInterval,
		sweeper.WithBatchSize(cfg.SweeperBatchSize),
		sweeper.WithOnExpired(func(count int64, showtimeIDs []int64) {
			ctx := context.Background()

			app.metrics.reservationsExpired.Add(ctx, count)

			for _, showtimeID := range showtimeIDs {
				app.invalidateSeatMap(ctx, showtimeID)
			}
		}),
	)

	return app, nil
}

// Sweep runs one expiry pass immediately, outside the schedule.
func (app *Application) Sweep(ctx context.Context, now time.Time) (int, error) {
	return app.sweeper.Sweep(ctx, now)
}

func (app *Application) Close() {
	app.wg.Wait()
	app.db.Close()

	if app.redis != nil {
		app.redis.Close()
	}
}

func newRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		return nil, err
	}
	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	err := app.sweeper.Start()
	if err != nil {
		return err
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
			return
		}

		shutdownError <- app.sweeper.Stop()
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err = srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.wg.Wait()

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(otelchi.Middleware("booking-engine", otelchi.WithChiRoutes(r)))
	r.Use(app.recoverPanic)
	r.Use(app.requestLogger)

	r.Get("/health", app.HealthcheckHandler)

	r.Route("/showtimes/{showtimeID}", func(r chi.Router) {
		r.Get("/seats", app.GetSeatAvailabilityHandler)
		r.Post("/reservations", app.CreateReservationHandler)
	})

	r.Route("/reservations/{reservationID}", func(r chi.Router) {
		r.Get("/", app.GetReservationHandler)
		r.Delete("/", app.CancelReservationHandler)
		r.Post("/booking", app.ConfirmBookingHandler)
	})

	return r
}
