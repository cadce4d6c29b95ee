package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/extra24/bus-booking-deploy/internal/apperrors"
	"github.com/extra24/bus-booking-deploy/internal/config"
	"github.com/extra24/bus-booking-deploy/internal/msg/inbox"
	"github.com/extra24/bus-booking-deploy/internal/repository"
	"github.com/extra24/bus-booking-deploy/internal/service"
	"github.com/extra24/bus-booking-deploy/pkg/kafka"
	"github.com/extra24/bus-booking-deploy/pkg/s3"
)

const defaultTimeout = 15 * time.Second

// Consumer is the batch process: it counts delivered bookings and republishes
// the stats snapshot.
type Consumer struct {
	Cfg           *config.Config
	Log           *zap.Logger
	Stores        *Stores
	ConsumerGroup kafka.ConsumerGroupRunner
}

func NewConsumer(cfg *config.Config, log *zap.Logger) (*Consumer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	stores, err := initStores(ctx, log, cfg)
	if err != nil {
		log.Error("Failed to initialize stores", zap.Error(err))
		return nil, err
	}

	snapshots, err := initSnapshots(ctx, log, &cfg.Snapshot)
	if err != nil {
		log.Error("Failed to initialize snapshots", zap.Error(err))
		_ = stores.Close(log, apperrors.ErrShutdown)

		return nil, fmt.Errorf("failed to initialize snapshots: %w", err)
	}

	statsSvc := service.NewStatsService(log, stores.StatsRepository)
	log.Debug("Stats service initialized")

	consumerSvc := service.NewConsumerService(log, statsSvc, snapshots)
	log.Debug("Consumer service initialized")

	subscriber := inbox.NewSubscriber(log, consumerSvc)
	log.Debug("Booking subscriber initialized")

	group, err := kafka.NewConsumerGroupRunner(
		cfg.Queue.Brokers,
		cfg.Queue.GroupID,
		[]string{cfg.Queue.Topic()},
		subscriber.Handle,
		kafka.WithBalancerConsumer(kafka.RoundrobinBalanceStrategy),
		kafka.WithBatch(cfg.Queue.BatchSize, cfg.Queue.BatchWindow),
		kafka.WithOldestOffset(),
	)
	if err != nil {
		_ = stores.Close(log, apperrors.ErrShutdown)

		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Debug("Kafka consumer group initialized", zap.String("topic", cfg.Queue.Topic()))

	return &Consumer{
		Cfg:           cfg,
		Log:           log,
		Stores:        stores,
		ConsumerGroup: group,
	}, nil
}

func MustNewConsumer(cfg *config.Config, log *zap.Logger) *Consumer {
	app, err := NewConsumer(cfg, log)
	if err != nil {
		panic(err)
	}

	return app
}

func (a *Consumer) Run(ctx context.Context) error {
	go func() {
		select {
		case info := <-a.ConsumerGroup.Info():
			a.Log.Info(info)
		case <-ctx.Done():
		}
	}()

	return a.ConsumerGroup.Run(ctx)
}

func (a *Consumer) Shutdown() error {
	err := apperrors.ErrShutdown

	if groupErr := a.ConsumerGroup.Shutdown(); groupErr != nil {
		err = fmt.Errorf("%w, failed to close consumer group: %w", err, groupErr)
	}

	a.Log.Debug("Kafka consumer group closed")

	err = a.Stores.Close(a.Log, err)

	return shutdownResult(err)
}

// initSnapshots returns a disabled repository when no bucket is configured.
func initSnapshots(ctx context.Context, log *zap.Logger, cfg *config.Snapshot) (*repository.S3SnapshotRepository, error) {
	if cfg.Bucket == "" {
		log.Info("Snapshot bucket is not configured, publishing disabled")

		return repository.NewS3SnapshotRepository(nil, "", cfg.Key), nil
	}

	client, err := s3.New(ctx, &s3.Config{
		Region:       cfg.Region,
		Endpoint:     cfg.Endpoint,
		UsePathStyle: cfg.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}

	log.Debug("S3 client initialized", zap.String("bucket", cfg.Bucket), zap.String("key", cfg.Key))

	return repository.NewS3SnapshotRepository(client, cfg.Bucket, cfg.Key), nil
}
