package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
)

type Balancer int

const (
	RoundRobin Balancer = iota
	Hash
	Random
)

type RequiredAcks = sarama.RequiredAcks

const (
	NoResponse   = sarama.NoResponse
	WaitForLocal = sarama.WaitForLocal
	RequireAll   = sarama.WaitForAll
)

type Header struct {
	Key   string
	Value string
}

type Producer interface {
	PushMessage(ctx context.Context, key, value []byte, topic string, headers ...Header) (partition int32, offset int64, err error)
	Close() error
}

type ProducerOption func(*sarama.Config)

func WithBalancer(b Balancer) ProducerOption {
	return func(c *sarama.Config) {
		switch b {
		case Hash:
			c.Producer.Partitioner = sarama.NewHashPartitioner
		case Random:
			c.Producer.Partitioner = sarama.NewRandomPartitioner
		default:
			c.Producer.Partitioner = sarama.NewRoundRobinPartitioner
		}
	}
}

func WithRequiredAcks(acks RequiredAcks) ProducerOption {
	return func(c *sarama.Config) {
		c.Producer.RequiredAcks = acks
	}
}

func WithClientID(id string) ProducerOption {
	return func(c *sarama.Config) {
		c.ClientID = id
	}
}

type producer struct {
	sync sarama.SyncProducer
}

func NewProducer(brokers []string, opts ...ProducerOption) (Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Retry.Max = 0
	cfg.Metadata.AllowAutoTopicCreation = false

	for _, opt := range opts {
		opt(cfg)
	}

	syncProducer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync producer: %w", err)
	}

	return NewProducerFromSync(syncProducer), nil
}

// NewProducerFromSync wraps an already configured sarama producer.
func NewProducerFromSync(syncProducer sarama.SyncProducer) Producer {
	return &producer{sync: syncProducer}
}

func (p *producer) PushMessage(ctx context.Context, key, value []byte, topic string, headers ...Header) (int32, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.ByteEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	for _, h := range headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{
			Key:   []byte(h.Key),
			Value: []byte(h.Value),
		})
	}

	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to send message to %s: %w", topic, err)
	}

	return partition, offset, nil
}

func (p *producer) Close() error {
	return p.sync.Close()
}
