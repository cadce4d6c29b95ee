package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/extra24/bus-booking-deploy/internal/apperrors"
	"github.com/extra24/bus-booking-deploy/internal/model"
	"github.com/extra24/bus-booking-deploy/pkg/kafka"
)

const (
	HeaderMessageID   = "message-id"
	HeaderDedupID     = "dedup-id"
	HeaderContentType = "content-type"

	contentTypeJSON = "application/json"
)

type Config struct {
	Name string
	URL  string
}

// Publisher sends booking messages to the booking topic. The message key is
// the group key so one seat always lands on one partition.
type Publisher struct {
	l        *zap.Logger
	cfg      Config
	producer kafka.Producer
	lookup   kafka.TopicLookup
}

func NewPublisher(l *zap.Logger, cfg Config, producer kafka.Producer, lookup kafka.TopicLookup) *Publisher {
	return &Publisher{
		l:        l,
		cfg:      cfg,
		producer: producer,
		lookup:   lookup,
	}
}

// Resolve returns the preconfigured address as is, otherwise looks the queue
// name up on every call.
func (p *Publisher) Resolve(ctx context.Context) (string, error) {
	if p.cfg.URL != "" {
		return p.cfg.URL, nil
	}

	if p.cfg.Name == "" {
		return "", apperrors.ErrQueueIsNotConfigured
	}

	exists, err := p.lookup.TopicExists(ctx, p.cfg.Name)
	if err != nil {
		return "", fmt.Errorf("failed to look up queue %s: %w", p.cfg.Name, err)
	}

	if !exists {
		return "", fmt.Errorf("%w: %s", apperrors.ErrQueueDoesNotExist, p.cfg.Name)
	}

	return p.cfg.Name, nil
}

func (p *Publisher) Enqueue(ctx context.Context, address string, message model.BookingMessage) error {
	partition, offset, err := p.producer.PushMessage(ctx,
		[]byte(message.GroupKey),
		message.Body,
		address,
		kafka.Header{Key: HeaderMessageID, Value: message.ID},
		kafka.Header{Key: HeaderDedupID, Value: message.DedupID},
		kafka.Header{Key: HeaderContentType, Value: contentTypeJSON},
	)
	if err != nil {
		return fmt.Errorf("failed to push message %s: %w", message.ID, err)
	}

	p.l.Info("Message sent",
		zap.String("message_id", message.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)

	return nil
}
