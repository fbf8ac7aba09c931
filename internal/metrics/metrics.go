package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Drop accounting, keyed the same way the capture side reports them.
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_ingest_events_dropped_total",
			Help: "Total number of events dropped during ingestion",
		},
		[]string{"event_type", "drop_cause"},
	)

	DeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_ingest_dead_letter_total",
			Help: "Total number of messages routed to the dead letter topic",
		},
		[]string{"reason"},
	)

	// Publish outcome metrics
	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_ingest_publish_failures_total",
			Help: "Total number of failed record publishes",
		},
		[]string{"topic", "retriable"},
	)

	BatchesCommitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_ingest_batches_committed_total",
			Help: "Total number of batches whose offsets were committed",
		},
	)

	MessagesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_ingest_messages_processed_total",
			Help: "Total number of messages pulled from the input topic",
		},
	)

	// Team store metrics
	TeamStoreQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_ingest_team_store_queries_total",
			Help: "Total number of team lookups that reached the database",
		},
		[]string{"lookup"},
	)
)
