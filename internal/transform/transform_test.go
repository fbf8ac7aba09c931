package transform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaylab/replay-ingest/internal/event"
	"github.com/replaylab/replay-ingest/internal/tenant"
)

const (
	sessionTopic = "records.session-recording.out"
	perfTopic    = "records.performance.out"
)

func optedInTeam() *tenant.Team {
	return &tenant.Team{ID: 7, SessionRecordingOptIn: true}
}

func TestTransform_Snapshot(t *testing.T) {
	transformer := New(sessionTopic, perfTopic)
	brokerTS := time.Date(2023, 2, 1, 12, 0, 0, 0, time.UTC)
	env := &event.Envelope{UUID: "ev-1", DistinctID: "user-1"}
	ev := &event.PipelineEvent{
		Name:       event.TypeSnapshot,
		IP:         "203.0.113.7",
		Properties: map[string]any{"x": float64(1)},
	}

	records, dropCause, err := transformer.Transform(optedInTeam(), env, ev, brokerTS)

	require.NoError(t, err)
	assert.Empty(t, dropCause)
	require.Len(t, records, 1)
	assert.Equal(t, sessionTopic, records[0].Topic)

	var record SessionRecordingRecord
	require.NoError(t, json.Unmarshal(records[0].Value, &record))
	assert.Equal(t, "ev-1", record.UUID)
	assert.Equal(t, int64(7), record.TeamID)
	assert.Equal(t, "user-1", record.DistinctID)
	assert.Equal(t, "203.0.113.7", record.IP)
	assert.Equal(t, brokerTS, record.Timestamp)
	assert.Equal(t, map[string]any{"x": float64(1)}, record.Properties)
}

func TestTransform_SnapshotAnonymizesIP(t *testing.T) {
	transformer := New(sessionTopic, perfTopic)
	team := optedInTeam()
	team.AnonymizeIPs = true
	ev := &event.PipelineEvent{Name: event.TypeSnapshot, IP: "203.0.113.7"}

	records, dropCause, err := transformer.Transform(team, &event.Envelope{UUID: "ev-1"}, ev, time.Now())

	require.NoError(t, err)
	assert.Empty(t, dropCause)
	require.Len(t, records, 1)

	var record SessionRecordingRecord
	require.NoError(t, json.Unmarshal(records[0].Value, &record))
	assert.Empty(t, record.IP)
}

func TestTransform_Performance(t *testing.T) {
	transformer := New(sessionTopic, perfTopic)
	env := &event.Envelope{UUID: "ev-2", DistinctID: "user-2"}
	ev := &event.PipelineEvent{
		Name:       event.TypePerformance,
		Properties: map[string]any{"duration": float64(120)},
	}

	records, dropCause, err := transformer.Transform(optedInTeam(), env, ev, time.Now())

	require.NoError(t, err)
	assert.Empty(t, dropCause)
	require.Len(t, records, 1)
	assert.Equal(t, perfTopic, records[0].Topic)

	var record PerformanceRecord
	require.NoError(t, json.Unmarshal(records[0].Value, &record))
	assert.Equal(t, "ev-2", record.UUID)
	assert.Equal(t, int64(7), record.TeamID)
	assert.Equal(t, map[string]any{"duration": float64(120)}, record.Properties)
}

func TestTransform_MissingPropertiesBecomeEmptyMap(t *testing.T) {
	transformer := New(sessionTopic, perfTopic)
	ev := &event.PipelineEvent{Name: event.TypeSnapshot}

	records, _, err := transformer.Transform(optedInTeam(), &event.Envelope{UUID: "ev-3"}, ev, time.Now())

	require.NoError(t, err)
	require.Len(t, records, 1)

	var record SessionRecordingRecord
	require.NoError(t, json.Unmarshal(records[0].Value, &record))
	assert.NotNil(t, record.Properties)
	assert.Empty(t, record.Properties)
}

func TestTransform_OptedOutTeamDrops(t *testing.T) {
	transformer := New(sessionTopic, perfTopic)
	team := &tenant.Team{ID: 7, SessionRecordingOptIn: false}
	ev := &event.PipelineEvent{Name: event.TypeSnapshot}

	records, dropCause, err := transformer.Transform(team, &event.Envelope{UUID: "ev-4"}, ev, time.Now())

	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, DropDisabled, dropCause)
}

func TestTransform_UnsupportedEventTypeDrops(t *testing.T) {
	transformer := New(sessionTopic, perfTopic)
	ev := &event.PipelineEvent{Name: "click"}

	records, dropCause, err := transformer.Transform(optedInTeam(), &event.Envelope{UUID: "ev-5"}, ev, time.Now())

	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, DropInvalidEventType, dropCause)
}

func TestResolveTimestamp(t *testing.T) {
	brokerTS := time.Date(2023, 2, 1, 12, 0, 0, 0, time.UTC)
	payloadTS := time.Date(2023, 1, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		timestamp any
		want      time.Time
	}{
		{name: "rfc3339 string wins", timestamp: payloadTS.Format(time.RFC3339), want: payloadTS},
		{name: "epoch milliseconds win", timestamp: float64(payloadTS.UnixMilli()), want: payloadTS},
		{name: "missing falls back to broker", timestamp: nil, want: brokerTS},
		{name: "unparseable string falls back to broker", timestamp: "yesterday", want: brokerTS},
		{name: "unexpected type falls back to broker", timestamp: true, want: brokerTS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &event.PipelineEvent{Timestamp: tt.timestamp}
			assert.True(t, tt.want.Equal(ResolveTimestamp(ev, brokerTS)))
		})
	}
}
