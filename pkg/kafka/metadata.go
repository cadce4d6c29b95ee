package kafka

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/IBM/sarama"
)

type TopicLookup interface {
	TopicExists(ctx context.Context, topic string) (bool, error)
	Close() error
}

// MetadataClient is the part of sarama.Client used for topic lookups.
type MetadataClient interface {
	RefreshMetadata(topics ...string) error
	Topics() ([]string, error)
	Close() error
}

type topicLookup struct {
	client MetadataClient
}

func NewTopicLookup(brokers []string) (TopicLookup, error) {
	cfg := sarama.NewConfig()
	cfg.Metadata.AllowAutoTopicCreation = false

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata client: %w", err)
	}

	return NewTopicLookupFromClient(client), nil
}

func NewTopicLookupFromClient(client MetadataClient) TopicLookup {
	return &topicLookup{client: client}
}

// TopicExists asks the cluster for fresh metadata on every call.
func (l *topicLookup) TopicExists(ctx context.Context, topic string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if err := l.client.RefreshMetadata(topic); err != nil {
		if errors.Is(err, sarama.ErrUnknownTopicOrPartition) {
			return false, nil
		}

		return false, fmt.Errorf("failed to refresh metadata for %s: %w", topic, err)
	}

	topics, err := l.client.Topics()
	if err != nil {
		return false, fmt.Errorf("failed to list topics: %w", err)
	}

	return slices.Contains(topics, topic), nil
}

func (l *topicLookup) Close() error {
	return l.client.Close()
}
