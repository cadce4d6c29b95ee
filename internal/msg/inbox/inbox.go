package inbox

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/extra24/bus-booking-deploy/internal/model"
	"github.com/extra24/bus-booking-deploy/internal/msg/outbox"
)

type BatchService interface {
	HandleBatch(ctx context.Context, deliveries []model.Delivery) (model.BatchResult, error)
}

// Subscriber turns a batch of topic records into deliveries for the consumer
// service. It is used as the kafka batch handler.
type Subscriber struct {
	l   *zap.Logger
	svc BatchService
}

func NewSubscriber(l *zap.Logger, svc BatchService) *Subscriber {
	return &Subscriber{
		l:   l,
		svc: svc,
	}
}

func (s *Subscriber) Handle(ctx context.Context, messages []*sarama.ConsumerMessage) error {
	deliveries := make([]model.Delivery, 0, len(messages))

	for _, msg := range messages {
		deliveries = append(deliveries, toDelivery(msg))
	}

	res, err := s.svc.HandleBatch(ctx, deliveries)
	if err != nil {
		s.l.Error("Batch failed, leaving it for redelivery", zap.Int("batch_size", len(deliveries)), zap.Error(err))

		return err
	}

	s.l.Debug("Batch acknowledged", zap.Int("processed", res.Processed))

	return nil
}

func toDelivery(msg *sarama.ConsumerMessage) model.Delivery {
	d := model.Delivery{
		Key:       msg.Key,
		Body:      msg.Value,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}

	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == outbox.HeaderMessageID {
			d.ID = string(h.Value)
		}
	}

	if d.ID == "" {
		d.ID = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}

	return d
}
