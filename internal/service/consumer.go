package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/extra24/bus-booking-deploy/internal/model"
)

type ConsumerStats interface {
	RecordProcessed(ctx context.Context, processed, success int) error
	TryGetStats(ctx context.Context) model.Readback
}

type SnapshotRepository interface {
	Enabled() bool
	Publish(ctx context.Context, stats *model.Stats) error
}

type ConsumerService struct {
	log       *zap.Logger
	stats     ConsumerStats
	snapshots SnapshotRepository
}

func NewConsumerService(log *zap.Logger, stats ConsumerStats, snapshots SnapshotRepository) *ConsumerService {
	return &ConsumerService{
		log:       log,
		stats:     stats,
		snapshots: snapshots,
	}
}

// HandleBatch counts every delivery as processed and successful, then
// republishes the stats snapshot. Only the counter update can fail the batch.
func (s *ConsumerService) HandleBatch(ctx context.Context, deliveries []model.Delivery) (model.BatchResult, error) {
	count := len(deliveries)
	if count == 0 {
		return model.BatchResult{OK: true}, nil
	}

	if err := s.stats.RecordProcessed(ctx, count, count); err != nil {
		return model.BatchResult{}, fmt.Errorf("failed to record batch of %d: %w", count, err)
	}

	readback := s.stats.TryGetStats(ctx)

	switch {
	case !readback.OK():
		s.log.Warn("Snapshot skipped, stats unavailable", zap.Int("batch_size", count))
	case s.snapshots == nil || !s.snapshots.Enabled():
		s.log.Debug("Snapshot publishing disabled")
	default:
		if err := s.snapshots.Publish(ctx, readback.Stats); err != nil {
			s.log.Error("Failed to publish stats snapshot", zap.Error(err))
		}
	}

	s.log.Info("Batch processed", zap.Int("batch_size", count))

	return model.BatchResult{OK: true, Processed: count}, nil
}
