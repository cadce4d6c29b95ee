package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/extra24/bus-booking-deploy/internal/model"
)

const StatusQueued = "queued"

type BookingQueue interface {
	Resolve(ctx context.Context) (string, error)
	Enqueue(ctx context.Context, address string, message model.BookingMessage) error
}

type BookingStats interface {
	IncrementRequests(ctx context.Context) error
	TryGetStats(ctx context.Context) model.Readback
}

type BookingService struct {
	log   *zap.Logger
	queue BookingQueue
	stats BookingStats
}

func NewBookingService(log *zap.Logger, queue BookingQueue, stats BookingStats) *BookingService {
	return &BookingService{
		log:   log,
		queue: queue,
		stats: stats,
	}
}

// Book enqueues the raw JSON body and counts the request. Only a zero-length
// body is treated as {}; whitespace alone is malformed. Nothing is
// compensated if the increment fails after enqueue.
func (s *BookingService) Book(ctx context.Context, rawBody []byte) (*model.BookingStatus, error) {
	message, err := newBookingMessage(rawBody)
	if err != nil {
		return nil, err
	}

	address, err := s.queue.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve queue: %w", err)
	}

	if err := s.queue.Enqueue(ctx, address, message); err != nil {
		return nil, fmt.Errorf("failed to enqueue booking: %w", err)
	}

	s.log.Debug("Booking queued",
		zap.String("message_id", message.ID),
		zap.String("group_key", message.GroupKey),
		zap.String("queue", address),
	)

	if err := s.stats.IncrementRequests(ctx); err != nil {
		return nil, err
	}

	readback := s.stats.TryGetStats(ctx)

	return &model.BookingStatus{
		Status: StatusQueued,
		Stats:  readback.Stats,
	}, nil
}

func newBookingMessage(rawBody []byte) (model.BookingMessage, error) {
	if len(rawBody) == 0 {
		rawBody = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(rawBody))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return model.BookingMessage{}, fmt.Errorf("failed to parse booking body: %w", err)
	}

	if _, err := dec.Token(); err != io.EOF {
		return model.BookingMessage{}, fmt.Errorf("failed to parse booking body: unexpected data after JSON value")
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, rawBody); err != nil {
		return model.BookingMessage{}, fmt.Errorf("failed to compact booking body: %w", err)
	}

	dedupID, err := model.DedupID(body)
	if err != nil {
		return model.BookingMessage{}, err
	}

	return model.BookingMessage{
		ID:       uuid.NewString(),
		GroupKey: model.GroupKey(body),
		DedupID:  dedupID,
		Body:     compact.Bytes(),
	}, nil
}
