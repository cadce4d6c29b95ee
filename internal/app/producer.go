package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/extra24/bus-booking-deploy/internal/api/http/handler"
	"github.com/extra24/bus-booking-deploy/internal/api/http/route"
	"github.com/extra24/bus-booking-deploy/internal/apperrors"
	"github.com/extra24/bus-booking-deploy/internal/config"
	"github.com/extra24/bus-booking-deploy/internal/msg/outbox"
	"github.com/extra24/bus-booking-deploy/internal/service"
	"github.com/extra24/bus-booking-deploy/pkg/kafka"
	"github.com/extra24/bus-booking-deploy/pkg/server"
)

// Producer is the HTTP process: it accepts bookings and serves the counters.
type Producer struct {
	Cfg        *config.Config
	Log        *zap.Logger
	Stores     *Stores
	Queue      *Queue
	HTTPServer server.HTTPServer
}

type Queue struct {
	Producer kafka.Producer
	Lookup   kafka.TopicLookup
}

func NewProducer(cfg *config.Config, log *zap.Logger) (*Producer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	stores, err := initStores(ctx, log, cfg)
	if err != nil {
		log.Error("Failed to initialize stores", zap.Error(err))
		return nil, err
	}

	queue, err := initQueue(log, &cfg.Queue)
	if err != nil {
		log.Error("Failed to initialize queue", zap.Error(err))
		_ = stores.Close(log, apperrors.ErrShutdown)

		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	statsSvc := service.NewStatsService(log, stores.StatsRepository)
	log.Debug("Stats service initialized")

	publisher := outbox.NewPublisher(log, outbox.Config{
		Name: cfg.Queue.Name,
		URL:  cfg.Queue.URL,
	}, queue.Producer, queue.Lookup)
	log.Debug("Booking publisher initialized")

	bookingSvc := service.NewBookingService(log, publisher, statsSvc)
	log.Debug("Booking service initialized")

	httpServer := initHTTPServer(log, cfg,
		handler.NewStatsHandler(log, statsSvc),
		handler.NewBookingHandler(log, bookingSvc),
	)

	return &Producer{
		Cfg:        cfg,
		Log:        log,
		Stores:     stores,
		Queue:      queue,
		HTTPServer: httpServer,
	}, nil
}

func MustNewProducer(cfg *config.Config, log *zap.Logger) *Producer {
	app, err := NewProducer(cfg, log)
	if err != nil {
		panic(err)
	}

	return app
}

func (a *Producer) Run(ctx context.Context) error {
	errs := make(chan error, 1)

	go func() {
		errs <- a.HTTPServer.Run()
	}()

	a.Log.Info("HTTP server started",
		zap.String("host", a.Cfg.HTTPServer.Host),
		zap.Uint16("port", a.Cfg.HTTPServer.Port),
	)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return nil
	}
}

func (a *Producer) Shutdown() error {
	err := apperrors.ErrShutdown

	if srvErr := a.HTTPServer.Shutdown(); srvErr != nil {
		err = fmt.Errorf("%w, failed to shutdown http server: %w", err, srvErr)
	}

	a.Log.Debug("Http server shutdown")

	if prodErr := a.Queue.Producer.Close(); prodErr != nil {
		err = fmt.Errorf("%w, failed to close kafka producer: %w", err, prodErr)
	}

	a.Log.Debug("Kafka producer closed")

	if a.Queue.Lookup != nil {
		if lookupErr := a.Queue.Lookup.Close(); lookupErr != nil {
			err = fmt.Errorf("%w, failed to close kafka metadata client: %w", err, lookupErr)
		}

		a.Log.Debug("Kafka metadata client closed")
	}

	err = a.Stores.Close(a.Log, err)

	return shutdownResult(err)
}

// initQueue skips the metadata client when a pre-resolved address is configured.
func initQueue(log *zap.Logger, cfg *config.Queue) (*Queue, error) {
	producer, err := kafka.NewProducer(
		cfg.Brokers,
		kafka.WithBalancer(kafka.Hash),
		kafka.WithRequiredAcks(kafka.RequireAll),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init kafka producer: %w", err)
	}

	log.Debug("Kafka producer initialized")

	queue := &Queue{Producer: producer}

	if cfg.URL != "" {
		return queue, nil
	}

	lookup, err := kafka.NewTopicLookup(cfg.Brokers)
	if err != nil {
		_ = producer.Close()

		return nil, fmt.Errorf("failed to init kafka metadata client: %w", err)
	}

	log.Debug("Kafka metadata client initialized")

	queue.Lookup = lookup

	return queue, nil
}

func initHTTPServer(log *zap.Logger, cfg *config.Config, statsHdl route.StatsHandler, bookingHdl route.BookingHandler) server.HTTPServer {
	router := route.SetupRouter(log, cfg, statsHdl, bookingHdl)

	httpServer := server.NewHTTPServer(
		server.WithAddr(cfg.HTTPServer.Host, cfg.HTTPServer.Port),
		server.WithTimeout(cfg.HTTPServer.Timeout.Read, cfg.HTTPServer.Timeout.Write, cfg.HTTPServer.Timeout.Idle),
		server.WithHandler(router),
	)

	log.Debug("HTTP server initialized")

	return httpServer
}
