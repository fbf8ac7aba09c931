package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/replaylab/replay-ingest/internal/metrics"
)

// Driver orchestrates the per-batch cycle: fetch, process each message in
// arrival order, flush the producer, await every publish, then commit.
//
// Offsets are committed only after every record of the batch is acknowledged,
// so a crash anywhere before commit redelivers the whole batch (at-least-once;
// downstream must be idempotent). A retriable publish failure after flush is
// fatal on purpose: the producer's internal retries are exhausted, so the
// cleanest recovery is a restart and redelivery.
type Driver struct {
	source    MessageSource
	publisher Publisher
	processor *Processor
	cfg       Config
	log       *zap.Logger
}

func NewDriver(source MessageSource, publisher Publisher, processor *Processor, cfg Config, log *zap.Logger) *Driver {
	return &Driver{
		source:    source,
		publisher: publisher,
		processor: processor,
		cfg:       cfg,
		log:       log.With(zap.String("component", "driver")),
	}
}

// Run consumes batches until ctx is cancelled or a fatal error occurs.
func (d *Driver) Run(ctx context.Context) error {
	d.log.Info("batch consumer started",
		zap.String("topic", d.cfg.Kafka.Topics.Input),
		zap.Int("batch_size", d.cfg.Kafka.FetchBatchSize),
	)

	for ctx.Err() == nil {
		batch, err := d.source.Fetch()
		// A fetch error can arrive with a partial batch already read off the
		// consumer. Those messages must still be published and committed;
		// skipping them would let a later commit acknowledge them unseen.
		if len(batch) > 0 {
			if err := d.processBatch(ctx, batch); err != nil {
				return err
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			d.log.Error("failed to fetch batch", zap.Error(err))
		}
	}

	d.log.Info("batch consumer stopped")
	return nil
}

func (d *Driver) processBatch(ctx context.Context, batch []*kafka.Message) error {
	// Sequential on purpose: cache fills from message N are visible to N+1
	// without synchronization, and the per-message cost is mostly absorbed by
	// the team cache anyway. The publishes collected here are the only true
	// concurrency in the batch.
	pending := make([]*Delivery, 0, len(batch))
	for _, msg := range batch {
		deliveries, err := retryOnDependencyUnavailable(ctx, d.cfg.Retry, d.log, func() ([]*Delivery, error) {
			return d.processor.Process(ctx, msg)
		})
		if err != nil {
			return fmt.Errorf("failed to process message at %s: %w", msg.TopicPartition, err)
		}
		pending = append(pending, deliveries...)
	}

	// Best effort; each delivery is re-verified below.
	d.publisher.Flush(d.cfg.Kafka.FlushTimeout)

	for _, delivery := range pending {
		err := delivery.Wait(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			// Shutting down mid-batch: leave offsets uncommitted for redelivery.
			return ctx.Err()
		}

		retriable := IsRetriablePublishError(err)
		metrics.PublishFailures.WithLabelValues(delivery.Topic(), strconv.FormatBool(retriable)).Inc()
		if retriable {
			return fmt.Errorf("failed to publish record to %s: %w", delivery.Topic(), err)
		}
		// Losing one downstream record beats stalling the whole partition on
		// an error that will never succeed.
		d.log.Error("dropping record after non-retriable publish failure",
			zap.String("topic", delivery.Topic()),
			zap.Error(err),
		)
	}

	if err := d.source.Commit(commitOffsets(batch)); err != nil {
		return err
	}
	metrics.BatchesCommitted.Inc()
	return nil
}

// commitOffsets computes the next offset to commit for each partition seen in
// the batch.
func commitOffsets(batch []*kafka.Message) []kafka.TopicPartition {
	byPartition := lo.GroupBy(batch, func(msg *kafka.Message) int32 {
		return msg.TopicPartition.Partition
	})

	offsets := make([]kafka.TopicPartition, 0, len(byPartition))
	for _, msgs := range byPartition {
		last := lo.MaxBy(msgs, func(a, b *kafka.Message) bool {
			return a.TopicPartition.Offset > b.TopicPartition.Offset
		})
		next := last.TopicPartition
		next.Offset++
		offsets = append(offsets, next)
	}
	return offsets
}
