package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/parley-chat/parley/pkg/log"
)

// Handler processes one record. Returning nil acknowledges the record
// (offset committed); returning an error leaves the offset uncommitted
// and the consumer seeks back so the record is redelivered. A handler
// that wants to discard a record (e.g. unparseable input) returns nil.
type Handler func(ctx context.Context, key, value []byte) error

// ConsumerConfig holds the settings for one consumer group subscription.
type ConsumerConfig struct {
	Brokers         string
	Topic           string
	GroupID         string
	AutoOffsetReset string
	RetryBackoff    time.Duration
}

// Consumer is a manual-commit Kafka consumer. Offsets are committed only
// after the handler succeeds, so an unacknowledged record is redelivered
// after a rebalance or restart and retried in place until it succeeds.
type Consumer struct {
	consumer     *kafka.Consumer
	topic        string
	groupID      string
	retryBackoff time.Duration
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	autoOffsetReset := cfg.AutoOffsetReset
	if autoOffsetReset == "" {
		autoOffsetReset = "earliest"
	}

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"group.id":           cfg.GroupID,
		"auto.offset.reset":  autoOffsetReset,
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &Consumer{
		consumer:     c,
		topic:        cfg.Topic,
		groupID:      cfg.GroupID,
		retryBackoff: backoff,
	}, nil
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	l := log.L()

	if err := c.consumer.Subscribe(c.topic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", c.topic, err)
	}

	l.Info().Str(log.FieldTopic, c.topic).Str("group", c.groupID).Msg("kafka consumer started")

	for {
		select {
		case <-ctx.Done():
			l.Info().Str(log.FieldTopic, c.topic).Msg("kafka consumer stopping")
			return nil
		default:
		}

		ev := c.consumer.Poll(500)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if err := handler(ctx, e.Key, e.Value); err != nil {
				l.Error().Err(err).
					Str(log.FieldTopic, c.topic).
					Int32(log.FieldPartition, e.TopicPartition.Partition).
					Str(log.FieldOffset, e.TopicPartition.Offset.String()).
					Msg("handler failed, record will be redelivered")

				// Rewind so the failed record is polled again; retry
				// indefinitely until it succeeds or an operator steps in.
				if serr := c.consumer.Seek(e.TopicPartition, 0); serr != nil {
					l.Error().Err(serr).Msg("failed to seek back to failed offset")
				}

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(c.retryBackoff):
				}
				continue
			}

			if _, err := c.consumer.CommitMessage(e); err != nil {
				l.Error().Err(err).
					Str(log.FieldTopic, c.topic).
					Msg("failed to commit offset")
			}

		case kafka.Error:
			l.Error().
				Str(log.FieldTopic, c.topic).
				Int("code", int(e.Code())).
				Bool("fatal", e.IsFatal()).
				Msgf("kafka error: %v", e)
			if e.IsFatal() {
				return fmt.Errorf("fatal kafka error: %w", e)
			}

		default:
			// Ignore other events (rebalance, stats, etc.)
		}
	}
}

// Close closes the Kafka consumer.
func (c *Consumer) Close() error {
	return c.consumer.Close()
}
