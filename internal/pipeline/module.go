package pipeline

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/replaylab/replay-ingest/internal/tenant"
	"github.com/replaylab/replay-ingest/internal/transform"
	"github.com/replaylab/replay-ingest/pkg/core/worker"
)

// NewModule creates an fx module wiring the Kafka clients, the processor and
// the batch driver, and runs the driver as a background worker.
func NewModule() fx.Option {
	return fx.Module("pipeline",
		fx.Provide(
			NewConfig,
			provideFanOut,
			provideSource,
			provideTransformer,
			provideProcessor,
			NewDriver,
		),
		fx.Invoke(worker.Register[*Driver]("batch consumer")),
	)
}

func provideFanOut(lc fx.Lifecycle, cfg Config, log *zap.Logger) (Publisher, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Kafka.Brokers,
	})
	if err != nil {
		return nil, err
	}

	fanout := NewFanOut(producer, log)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Drain what the driver already enqueued before closing.
			fanout.Flush(cfg.Kafka.FlushTimeout)
			producer.Close()
			return nil
		},
	})

	return fanout, nil
}

func provideSource(lc fx.Lifecycle, cfg Config, log *zap.Logger) (MessageSource, error) {
	source, err := newKafkaSource(cfg.Kafka)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := source.Close(); err != nil {
				log.Error("failed to close consumer", zap.Error(err))
				return err
			}
			return nil
		},
	})

	return source, nil
}

func provideTransformer(cfg Config) *transform.Transformer {
	return transform.New(cfg.Kafka.Topics.SessionRecordings, cfg.Kafka.Topics.Performance)
}

func provideProcessor(teams *tenant.Manager, transformer *transform.Transformer, publisher Publisher, cfg Config, log *zap.Logger) *Processor {
	return NewProcessor(teams, transformer, publisher, cfg.Kafka.Topics, log)
}
