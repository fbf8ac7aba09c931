package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// MessageSource fetches message batches and commits their offsets.
type MessageSource interface {
	Fetch() ([]*kafka.Message, error)
	Commit(offsets []kafka.TopicPartition) error
	Close() error
}

// kafkaSource reads batches from a confluent consumer. A batch closes when it
// reaches the size cap or the wait window elapses, whichever comes first.
type kafkaSource struct {
	consumer  *kafka.Consumer
	batchSize int
	maxWait   time.Duration
}

func newKafkaSource(cfg KafkaConfig) (*kafkaSource, error) {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"group.id":           cfg.GroupID,
		"session.timeout.ms": int(cfg.SessionTimeout.Milliseconds()),
		"auto.offset.reset":  "earliest",
		// Offsets are committed explicitly, once per fully published batch.
		"enable.auto.commit": false,
	}
	if cfg.FetchMaxBytes > 0 {
		if err := configMap.SetKey("fetch.max.bytes", cfg.FetchMaxBytes); err != nil {
			return nil, fmt.Errorf("failed to set fetch.max.bytes: %w", err)
		}
	}
	if cfg.PartitionMaxBytes > 0 {
		if err := configMap.SetKey("max.partition.fetch.bytes", cfg.PartitionMaxBytes); err != nil {
			return nil, fmt.Errorf("failed to set max.partition.fetch.bytes: %w", err)
		}
	}

	consumer, err := kafka.NewConsumer(configMap)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	if err := consumer.SubscribeTopics([]string{cfg.Topics.Input}, nil); err != nil {
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", cfg.Topics.Input, err)
	}

	return &kafkaSource{
		consumer:  consumer,
		batchSize: cfg.FetchBatchSize,
		maxWait:   cfg.FetchMaxWait,
	}, nil
}

func (s *kafkaSource) Fetch() ([]*kafka.Message, error) {
	deadline := time.Now().Add(s.maxWait)
	batch := make([]*kafka.Message, 0, s.batchSize)

	for len(batch) < s.batchSize {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		msg, err := s.consumer.ReadMessage(remaining)
		if err != nil {
			var kafkaErr kafka.Error
			if errors.As(err, &kafkaErr) && kafkaErr.IsTimeout() {
				break
			}
			return batch, fmt.Errorf("failed to read message: %w", err)
		}
		batch = append(batch, msg)
	}

	return batch, nil
}

func (s *kafkaSource) Commit(offsets []kafka.TopicPartition) error {
	if _, err := s.consumer.CommitOffsets(offsets); err != nil {
		return fmt.Errorf("failed to commit offsets: %w", err)
	}
	return nil
}

func (s *kafkaSource) Close() error {
	return s.consumer.Close()
}
