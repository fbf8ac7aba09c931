// Package transform maps validated events and their resolved team into
// downstream records.
package transform

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/replaylab/replay-ingest/internal/event"
	"github.com/replaylab/replay-ingest/internal/tenant"
)

// Drop causes reported when an event yields no records.
const (
	DropDisabled         = "disabled"
	DropInvalidEventType = "invalid_event_type"
)

// Record is one downstream publish: target topic plus serialized value. The
// producer keys it with the original message key.
type Record struct {
	Topic string
	Value []byte
}

// SessionRecordingRecord is the downstream shape of a $snapshot event.
type SessionRecordingRecord struct {
	UUID       string         `json:"uuid"`
	TeamID     int64          `json:"team_id"`
	DistinctID string         `json:"distinct_id"`
	Timestamp  time.Time      `json:"timestamp"`
	IP         string         `json:"ip,omitempty"`
	Properties map[string]any `json:"properties"`
}

// PerformanceRecord is the downstream shape of a $performance_event.
type PerformanceRecord struct {
	UUID       string         `json:"uuid"`
	TeamID     int64          `json:"team_id"`
	DistinctID string         `json:"distinct_id"`
	Properties map[string]any `json:"properties"`
}

// Transformer builds downstream records, applying team-level policy.
type Transformer struct {
	sessionRecordingTopic string
	performanceTopic      string
}

func New(sessionRecordingTopic, performanceTopic string) *Transformer {
	return &Transformer{
		sessionRecordingTopic: sessionRecordingTopic,
		performanceTopic:      performanceTopic,
	}
}

// Transform maps a resolved team plus decoded event to zero or more records.
// A non-empty drop cause explains why no records were produced. An error
// means the event itself could not be serialized; callers log it and drop,
// never abort the batch.
func (t *Transformer) Transform(team *tenant.Team, env *event.Envelope, ev *event.PipelineEvent, brokerTimestamp time.Time) ([]Record, string, error) {
	if !team.SessionRecordingOptIn {
		return nil, DropDisabled, nil
	}

	properties := ev.Properties
	if properties == nil {
		properties = map[string]any{}
	}

	switch ev.Name {
	case event.TypeSnapshot:
		ip := ev.IP
		if team.AnonymizeIPs {
			ip = ""
		}
		record := SessionRecordingRecord{
			UUID:       env.UUID,
			TeamID:     team.ID,
			DistinctID: env.DistinctID,
			Timestamp:  ResolveTimestamp(ev, brokerTimestamp),
			IP:         ip,
			Properties: properties,
		}
		value, err := json.Marshal(record)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal session recording record: %w", err)
		}
		return []Record{{Topic: t.sessionRecordingTopic, Value: value}}, "", nil

	case event.TypePerformance:
		record := PerformanceRecord{
			UUID:       env.UUID,
			TeamID:     team.ID,
			DistinctID: env.DistinctID,
			Properties: properties,
		}
		value, err := json.Marshal(record)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal performance record: %w", err)
		}
		return []Record{{Topic: t.performanceTopic, Value: value}}, "", nil

	default:
		return nil, DropInvalidEventType, nil
	}
}

// ResolveTimestamp picks the event timestamp. An explicit timestamp on the
// payload wins: RFC 3339 strings and epoch-millisecond numbers are accepted.
// Anything else falls back to the broker-delivered timestamp, which is never
// absent for valid messages. Downstream ordering depends on this rule.
func ResolveTimestamp(ev *event.PipelineEvent, brokerTimestamp time.Time) time.Time {
	switch ts := ev.Timestamp.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			return parsed
		}
	case float64:
		return time.UnixMilli(int64(ts)).UTC()
	}
	return brokerTimestamp
}
