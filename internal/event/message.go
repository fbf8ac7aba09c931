// Package event defines the wire format of inbound analytics messages and
// decodes them into typed envelopes.
package event

import (
	"encoding/json"
	"fmt"
)

// Event names dispatched by the transformer. Anything else is dropped.
const (
	TypeSnapshot    = "$snapshot"
	TypePerformance = "$performance_event"
)

// Envelope is the outer JSON of a captured event. The capture side may know
// only the API token, so team_id is optional; resolution happens downstream.
type Envelope struct {
	UUID       string `json:"uuid"`
	TeamID     *int64 `json:"team_id"`
	Token      string `json:"token"`
	DistinctID string `json:"distinct_id"`
	// Data is the inner event payload, JSON-encoded as a string.
	Data string `json:"data"`
}

// HasCredentials reports whether the envelope carries anything that could
// resolve to a team.
func (e *Envelope) HasCredentials() bool {
	return e.TeamID != nil || e.Token != ""
}

// PipelineEvent is the decoded inner payload.
type PipelineEvent struct {
	Name string `json:"event"`
	IP   string `json:"ip"`
	// Timestamp is either an RFC 3339 string or epoch milliseconds; see
	// transform.ResolveTimestamp for the precedence rule.
	Timestamp  any            `json:"timestamp"`
	SentAt     string         `json:"sent_at"`
	Properties map[string]any `json:"properties"`
}

// Decode parses a raw message value into its envelope and inner event.
// Any decode failure means the message must be dead-lettered.
func Decode(value []byte) (*Envelope, *PipelineEvent, error) {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}

	var ev PipelineEvent
	if err := json.Unmarshal([]byte(env.Data), &ev); err != nil {
		return nil, nil, fmt.Errorf("failed to decode event payload: %w", err)
	}

	return &env, &ev, nil
}
