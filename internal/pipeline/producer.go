package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// Producer is the confluent surface FanOut needs; *kafka.Producer satisfies it.
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
}

// Publisher is what the driver and processor publish through. FanOut
// implements it; tests substitute fakes.
type Publisher interface {
	Publish(topic string, key, value []byte) *Delivery
	Flush(timeout time.Duration) int
}

// Delivery tracks one in-flight publish until the broker acknowledges it.
type Delivery struct {
	topic string
	err   error
	ch    chan kafka.Event
	done  func()
}

// Topic returns the destination topic of the publish.
func (d *Delivery) Topic() string {
	return d.topic
}

// Wait blocks until the publish is acknowledged or ctx is cancelled, and
// returns the delivery error, if any.
func (d *Delivery) Wait(ctx context.Context) error {
	if d.ch == nil {
		return d.err
	}
	select {
	case <-ctx.Done():
		// The ack still arrives on the channel eventually; reap it so the
		// in-flight count comes back down.
		go func() {
			<-d.ch
			if d.done != nil {
				d.done()
			}
		}()
		return ctx.Err()
	case e := <-d.ch:
		if d.done != nil {
			d.done()
		}
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event type %T", e)
		}
		return msg.TopicPartition.Error
	}
}

// retriableError is the surface kafka.Error exposes for transient failures.
type retriableError interface {
	IsRetriable() bool
}

// IsRetriablePublishError reports whether the producer signalled a transient
// failure. The producer's own retry budget is exhausted by the time such an
// error surfaces, so the caller fails the batch and restarts.
func IsRetriablePublishError(err error) bool {
	var re retriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// FanOut publishes records asynchronously, one delivery channel per call, so
// the caller never blocks on broker acknowledgement.
type FanOut struct {
	producer Producer
	log      *zap.Logger
	inFlight atomic.Int64
}

func NewFanOut(producer Producer, log *zap.Logger) *FanOut {
	return &FanOut{
		producer: producer,
		log:      log.With(zap.String("component", "fanout")),
	}
}

// Publish enqueues one record. The returned Delivery resolves on broker
// acknowledgement; a synchronous produce failure resolves it immediately.
func (f *FanOut) Publish(topic string, key, value []byte) *Delivery {
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
	}

	ch := make(chan kafka.Event, 1)
	if err := f.producer.Produce(msg, ch); err != nil {
		return &Delivery{topic: topic, err: fmt.Errorf("failed to enqueue record for %s: %w", topic, err)}
	}

	f.inFlight.Add(1)
	return &Delivery{topic: topic, ch: ch, done: func() { f.inFlight.Add(-1) }}
}

// Flush asks the producer to push out queued records. Best effort: the
// per-delivery results decide what is fatal.
func (f *FanOut) Flush(timeout time.Duration) int {
	remaining := f.producer.Flush(int(timeout.Milliseconds()))
	if remaining > 0 {
		f.log.Warn("producer flush incomplete",
			zap.Int("outstanding", remaining),
			zap.Int64("in_flight", f.inFlight.Load()),
		)
	}
	return remaining
}
