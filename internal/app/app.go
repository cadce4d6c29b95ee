package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/extra24/bus-booking-deploy/internal/apperrors"
	"github.com/extra24/bus-booking-deploy/internal/config"
	"github.com/extra24/bus-booking-deploy/internal/repository"
	"github.com/extra24/bus-booking-deploy/internal/service"
	"github.com/extra24/bus-booking-deploy/pkg/postgres"
	"github.com/extra24/bus-booking-deploy/pkg/redis"
)

// Stores holds the counter store client. Exactly one of DB and RDB is set.
type Stores struct {
	DB  postgres.Postgres
	RDB redis.Redis

	StatsRepository service.StatsRepository
}

func initStores(ctx context.Context, log *zap.Logger, cfg *config.Config) (*Stores, error) {
	switch cfg.Stats.Backend {
	case config.StatsBackendRedis:
		rdb, err := initRedis(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}

		log.Debug("Redis initialized")

		repo := repository.NewRedisStatsRepository(rdb.Client(), cfg.Stats.Table, cfg.Stats.RecordID)
		log.Debug("Stats repository initialized", zap.String("backend", cfg.Stats.Backend))

		return &Stores{RDB: rdb, StatsRepository: repo}, nil
	case config.StatsBackendPostgres:
		db, err := initDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}

		log.Debug("Database initialized")

		repo := repository.NewPostgresStatsRepository(db.Pool(), cfg.Stats.Table, cfg.Stats.RecordID)

		if err := repo.EnsureTable(ctx); err != nil {
			db.Close()

			return nil, err
		}

		log.Debug("Stats repository initialized", zap.String("backend", cfg.Stats.Backend))

		return &Stores{DB: db, StatsRepository: repo}, nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownStatsBackend, cfg.Stats.Backend)
	}
}

// Close chains every close failure onto err.
func (s *Stores) Close(log *zap.Logger, err error) error {
	if s == nil {
		return err
	}

	if s.DB != nil {
		s.DB.Close()
		log.Debug("Database closed")
	}

	if s.RDB != nil {
		if rdbErr := s.RDB.Close(); rdbErr != nil {
			err = fmt.Errorf("%w, failed to close RDB: %w", err, rdbErr)
		}

		log.Debug("Redis closed")
	}

	return err
}

func initDB(cfg *config.Database) (postgres.Postgres, error) {
	postgresCfg := &postgres.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Name:     cfg.Name,
		SSLMode:  cfg.SSLMode,
		MaxConns: cfg.MaxConns,
		MinConns: cfg.MinConns,
		Migration: postgres.Migration{
			Path:      cfg.Migration.Path,
			AutoApply: cfg.Migration.AutoApply,
		},
	}

	db, err := postgres.New(postgresCfg)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func initRedis(cfg *config.Redis) (redis.Redis, error) {
	redisCfg := &redis.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	rdb, err := redis.New(redisCfg)
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

// shutdownResult reports nil when nothing was chained onto apperrors.ErrShutdown.
func shutdownResult(err error) error {
	if err == apperrors.ErrShutdown { //nolint:errorlint // identity check, wrapped errors mean a close failed
		return nil
	}

	return err
}
