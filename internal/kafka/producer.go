package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/parley-chat/parley/pkg/log"
)

// ConfluentProducer is an idempotent Kafka producer. Publishes are
// confirmed per call through a delivery channel, so a single producer
// retry can never duplicate a record on the broker.
type ConfluentProducer struct {
	producer *kafka.Producer
}

// NewConfluentProducer creates the producer and ensures the given
// topics exist with the desired partition count.
func NewConfluentProducer(brokers string, partitions int, topics ...string) (*ConfluentProducer, error) {
	if err := ensureTopics(brokers, partitions, topics...); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to ensure kafka topics (may already exist)")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"enable.idempotence": true,
		"acks":               "all",
		"linger.ms":          5,
		"compression.type":   "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &ConfluentProducer{producer: p}, nil
}

func ensureTopics(brokers string, partitions int, topics ...string) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	if partitions <= 0 {
		partitions = 8
	}

	specs := make([]kafka.TopicSpecification, 0, len(topics))
	for _, topic := range topics {
		specs = append(specs, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}
	return nil
}

// Publish produces one record keyed for partition routing and blocks
// until the broker confirms delivery or ctx expires. An error means the
// record may not be on the broker; callers surface that to their own
// caller rather than retrying here.
func (p *ConfluentProducer) Publish(ctx context.Context, topic, key string, value []byte) error {
	deliveryCh := make(chan kafka.Event, 1)

	err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(key),
		Value: value,
	}, deliveryCh)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	select {
	case e := <-deliveryCh:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event: %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("kafka delivery failed: %w", m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("kafka delivery not confirmed: %w", ctx.Err())
	}
}

func (p *ConfluentProducer) Close() error {
	p.producer.Flush(5000)
	p.producer.Close()
	return nil
}
