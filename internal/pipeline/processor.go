package pipeline

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/replaylab/replay-ingest/internal/event"
	"github.com/replaylab/replay-ingest/internal/metrics"
	"github.com/replaylab/replay-ingest/internal/tenant"
	"github.com/replaylab/replay-ingest/internal/transform"
)

// eventTypeLabel tags drop metrics with the stream they came from.
const eventTypeLabel = "session_recordings"

// Processor turns one raw message into zero or more publish deliveries.
//
// Malformed input is dead-lettered or dropped here and never escapes; only
// dependency failures and programming errors propagate to the driver.
type Processor struct {
	teams       *tenant.Manager
	transformer *transform.Transformer
	publisher   Publisher
	topics      TopicsConfig
	log         *zap.Logger
}

func NewProcessor(teams *tenant.Manager, transformer *transform.Transformer, publisher Publisher, topics TopicsConfig, log *zap.Logger) *Processor {
	return &Processor{
		teams:       teams,
		transformer: transformer,
		publisher:   publisher,
		topics:      topics,
		log:         log.With(zap.String("component", "processor")),
	}
}

// Process validates the message, resolves its team, transforms the event and
// enqueues the resulting records. Returned deliveries are still in flight;
// the driver awaits them before committing.
func (p *Processor) Process(ctx context.Context, msg *kafka.Message) ([]*Delivery, error) {
	metrics.MessagesProcessed.Inc()

	if len(msg.Value) == 0 || msg.Timestamp.IsZero() {
		p.logInvalid(msg, "empty")
		metrics.DeadLettered.WithLabelValues("empty").Inc()
		return []*Delivery{p.deadLetter(msg)}, nil
	}

	env, ev, err := event.Decode(msg.Value)
	if err != nil {
		p.logInvalid(msg, "invalid_payload", zap.Error(err))
		metrics.DeadLettered.WithLabelValues("invalid_payload").Inc()
		return []*Delivery{p.deadLetter(msg)}, nil
	}

	p.log.Debug("processing event", zap.String("uuid", env.UUID))

	if !env.HasCredentials() {
		// Decodable but unattributable: not worth replaying, so no dead letter.
		p.logInvalid(msg, "no_token")
		metrics.EventsDropped.WithLabelValues(eventTypeLabel, "no_token").Inc()
		return nil, nil
	}

	var team *tenant.Team
	if env.TeamID != nil {
		team, err = p.teams.ByID(ctx, *env.TeamID)
	} else {
		team, err = p.teams.ByToken(ctx, env.Token)
	}
	if err != nil {
		return nil, err
	}
	if team == nil {
		p.logInvalid(msg, "team_not_found")
		metrics.EventsDropped.WithLabelValues(eventTypeLabel, "invalid_token").Inc()
		return nil, nil
	}

	records, dropCause, err := p.transformer.Transform(team, env, ev, msg.Timestamp)
	if err != nil {
		// Bad data in one event must never abort the batch.
		p.log.Error("failed to transform event", zap.String("uuid", env.UUID), zap.Error(err))
		return nil, nil
	}
	if dropCause != "" {
		if dropCause == transform.DropInvalidEventType {
			p.logInvalid(msg, dropCause, zap.String("type", ev.Name))
		}
		metrics.EventsDropped.WithLabelValues(eventTypeLabel, dropCause).Inc()
		return nil, nil
	}

	if err := p.teams.MarkIngestedEvent(ctx, team); err != nil {
		p.log.Warn("failed to mark first ingested event", zap.Int64("team_id", team.ID), zap.Error(err))
	}

	deliveries := make([]*Delivery, 0, len(records))
	for _, record := range records {
		deliveries = append(deliveries, p.publisher.Publish(record.Topic, msg.Key, record.Value))
	}
	return deliveries, nil
}

// deadLetter forwards the original key and value verbatim so the message can
// be replayed once the defect is understood.
func (p *Processor) deadLetter(msg *kafka.Message) *Delivery {
	return p.publisher.Publish(p.topics.DeadLetter, msg.Key, msg.Value)
}

func (p *Processor) logInvalid(msg *kafka.Message, reason string, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("reason", reason),
		zap.Int32("partition", msg.TopicPartition.Partition),
		zap.Int64("offset", int64(msg.TopicPartition.Offset)),
	}, fields...)
	p.log.Warn("invalid message", fields...)
}
