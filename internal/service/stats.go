package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/extra24/bus-booking-deploy/internal/model"
)

type StatsRepository interface {
	Add(ctx context.Context, deltas model.Deltas) error
	Read(ctx context.Context) (*model.Stats, error)
}

// StatsService is the only path to the counters. Writes are additive deltas,
// never read-modify-write.
type StatsService struct {
	log  *zap.Logger
	repo StatsRepository
}

func NewStatsService(log *zap.Logger, repo StatsRepository) *StatsService {
	return &StatsService{
		log:  log,
		repo: repo,
	}
}

func (s *StatsService) GetStats(ctx context.Context) (*model.Stats, error) {
	stats, err := s.repo.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	return stats, nil
}

// TryGetStats never fails: a read error is logged and returned inside the Readback.
func (s *StatsService) TryGetStats(ctx context.Context) model.Readback {
	stats, err := s.GetStats(ctx)
	if err != nil {
		s.log.Warn("Stats read-back failed, continuing without stats", zap.Error(err))

		return model.Readback{Err: err}
	}

	return model.Readback{Stats: stats}
}

func (s *StatsService) IncrementRequests(ctx context.Context) error {
	if err := s.repo.Add(ctx, model.Deltas{model.FieldRequests: 1}); err != nil {
		return fmt.Errorf("failed to increment requests: %w", err)
	}

	return nil
}

// RecordProcessed adds processed and success in one combined update.
func (s *StatsService) RecordProcessed(ctx context.Context, processed, success int) error {
	deltas := model.Deltas{
		model.FieldProcessed: int64(processed),
		model.FieldSuccess:   int64(success),
	}

	if deltas.IsZero() {
		return nil
	}

	if err := s.repo.Add(ctx, deltas); err != nil {
		return fmt.Errorf("failed to add processed=%d success=%d: %w", processed, success, err)
	}

	return nil
}
