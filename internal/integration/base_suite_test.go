package integration_test

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/cinetex/booking-engine/internal/app"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	dbName         = "booking_engine"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
)

type BaseSuite struct {
	suite.Suite
	app            *app.Application
	db             *pgxpool.Pool
	cache          *redis.Client
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	redisContainer, err := getCacheContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	s.dbContainer = postgresContainer
	s.cacheContainer = redisContainer

	cfg := app.Config{
		Port: 3000,
		Env:  "test",
		DB: app.DBConfig{
			DSN:          postgresContainer.ConnectionString,
			MaxOpenConns: 25,
			MaxIdleTime:  2 * time.Minute,
		},
		Redis: app.RedisConfig{
			URL:          redisContainer.ConnectionString,
			MaxOpenConns: 10,
			MaxIdleConns: 10,
			MaxIdleTime:  2 * time.Minute,
		},
		Currency:               "usd",
		ReservationTTL:         10 * time.Minute,
		MaxSeatsPerReservation: 10,
		SweeperInterval:        30 * time.Second,
		SweeperBatchSize:       100,
		PaymentProvider:        "mock",
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	testApp, err := app.New(cfg, logger)
	if err != nil {
		log.Printf("cannot initialize app: %s", err)
		return
	}

	s.app = testApp

	pool, err := pgxpool.New(ctx, postgresContainer.ConnectionString)
	if err != nil {
		log.Printf("cannot create test pool: %s", err)
		return
	}

	s.db = pool
	s.cache = redis.NewClient(&redis.Options{Addr: redisContainer.ConnectionString})
}

func (s *BaseSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.app != nil {
		s.app.Close()
	}
	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}

// SetupTest returns every table to a clean slate so tests never depend on
// each other's leftovers.
func (s *BaseSuite) SetupTest() {
	ctx := context.Background()

	_, err := s.db.Exec(ctx, `
		TRUNCATE bookings, reservation_tickets, reservations, seats, ticket_types, showtimes
		RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)

	s.Require().NoError(s.cache.FlushAll(ctx).Err())
}
