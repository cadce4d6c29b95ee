package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

type BalanceStrategy int

const (
	RangeBalanceStrategy BalanceStrategy = iota
	RoundrobinBalanceStrategy
	StickyBalanceStrategy
)

const (
	defaultBatchSize   = 10
	defaultBatchWindow = time.Second
)

// BatchHandler processes one batch of messages from a single partition.
// Returning an error ends the consumer group session without marking the batch,
// so the group resumes from the last committed offset.
type BatchHandler func(ctx context.Context, messages []*sarama.ConsumerMessage) error

type ConsumerGroupRunner interface {
	Run(ctx context.Context) error
	Info() <-chan string
	Shutdown() error
}

type ConsumerOption func(*consumerGroupRunner)

func WithBalancerConsumer(strategy BalanceStrategy) ConsumerOption {
	return func(r *consumerGroupRunner) {
		switch strategy {
		case RoundrobinBalanceStrategy:
			r.cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
		case StickyBalanceStrategy:
			r.cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
		default:
			r.cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
		}
	}
}

func WithBatch(size int, window time.Duration) ConsumerOption {
	return func(r *consumerGroupRunner) {
		if size > 0 {
			r.handler.size = size
		}

		if window > 0 {
			r.handler.window = window
		}
	}
}

// WithOldestOffset starts a group without committed offsets from the beginning of the topic.
func WithOldestOffset() ConsumerOption {
	return func(r *consumerGroupRunner) {
		r.cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
}

type consumerGroupRunner struct {
	cfg     *sarama.Config
	group   sarama.ConsumerGroup
	groupID string
	topics  []string
	handler *batchGroupHandler
}

func NewConsumerGroupRunner(
	brokers []string,
	groupID string,
	topics []string,
	handler BatchHandler,
	opts ...ConsumerOption,
) (ConsumerGroupRunner, error) {
	r := &consumerGroupRunner{
		cfg:     sarama.NewConfig(),
		groupID: groupID,
		topics:  topics,
		handler: newBatchGroupHandler(groupID, handler, defaultBatchSize, defaultBatchWindow),
	}

	r.cfg.Consumer.Return.Errors = false
	r.cfg.Metadata.AllowAutoTopicCreation = false

	for _, opt := range opts {
		opt(r)
	}

	group, err := sarama.NewConsumerGroup(brokers, groupID, r.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group %s: %w", groupID, err)
	}

	r.group = group

	return r, nil
}

func (r *consumerGroupRunner) Run(ctx context.Context) error {
	for {
		if err := r.group.Consume(ctx, r.topics, r.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}

			return fmt.Errorf("consumer group %s: %w", r.groupID, err)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// Info yields a single message once the first session has been set up.
func (r *consumerGroupRunner) Info() <-chan string {
	return r.handler.info
}

func (r *consumerGroupRunner) Shutdown() error {
	return r.group.Close()
}

type batchGroupHandler struct {
	groupID string
	handle  BatchHandler
	size    int
	window  time.Duration

	info     chan string
	infoOnce sync.Once
}

func newBatchGroupHandler(groupID string, handle BatchHandler, size int, window time.Duration) *batchGroupHandler {
	return &batchGroupHandler{
		groupID: groupID,
		handle:  handle,
		size:    size,
		window:  window,
		info:    make(chan string, 1),
	}
}

func (h *batchGroupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.infoOnce.Do(func() {
		h.info <- fmt.Sprintf("Consumer group %s is up and running, member %s", h.groupID, sess.MemberID())
	})

	return nil
}

func (h *batchGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *batchGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()

	batch := make([]*sarama.ConsumerMessage, 0, h.size)

	var (
		timer  *time.Timer
		expire <-chan time.Time
	)

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			expire = nil
		}
	}
	defer stopTimer()

	flush := func() error {
		stopTimer()

		if len(batch) == 0 {
			return nil
		}

		if err := h.handle(ctx, batch); err != nil {
			return err
		}

		sess.MarkMessage(batch[len(batch)-1], "")
		batch = make([]*sarama.ConsumerMessage, 0, h.size)

		return nil
	}

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return flush()
			}

			batch = append(batch, msg)

			if len(batch) == 1 {
				timer = time.NewTimer(h.window)
				expire = timer.C
			}

			if len(batch) >= h.size {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-expire:
			timer, expire = nil, nil

			if err := flush(); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
