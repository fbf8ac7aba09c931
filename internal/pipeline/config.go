package pipeline

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the consumer pipeline configuration.
type Config struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
	Retry RetryConfig `mapstructure:"retry"`
}

type KafkaConfig struct {
	Brokers           string        `mapstructure:"brokers"`
	GroupID           string        `mapstructure:"group-id"`
	Topics            TopicsConfig  `mapstructure:"topics"`
	FetchBatchSize    int           `mapstructure:"fetch-batch-size"`
	FetchMaxWait      time.Duration `mapstructure:"fetch-max-wait"`
	FetchMaxBytes     int           `mapstructure:"fetch-max-bytes"`
	PartitionMaxBytes int           `mapstructure:"partition-max-bytes"`
	SessionTimeout    time.Duration `mapstructure:"session-timeout"`
	FlushTimeout      time.Duration `mapstructure:"flush-timeout"`
}

type TopicsConfig struct {
	Input             string `mapstructure:"input"`
	DeadLetter        string `mapstructure:"dead-letter"`
	SessionRecordings string `mapstructure:"session-recordings"`
	Performance       string `mapstructure:"performance"`
}

// RetryConfig bounds in-place retries of transient dependency failures.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max-attempts"`
	Interval    time.Duration `mapstructure:"interval"`
}

// NewConfig loads the pipeline configuration from the "pipeline" section.
func NewConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.UnmarshalKey("pipeline", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load pipeline config: %w", err)
	}
	if cfg.Kafka.Brokers == "" {
		return cfg, fmt.Errorf("pipeline.kafka.brokers is required")
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "replay-ingest"
	}
	if cfg.Kafka.Topics.Input == "" {
		cfg.Kafka.Topics.Input = "events.in"
	}
	if cfg.Kafka.Topics.DeadLetter == "" {
		cfg.Kafka.Topics.DeadLetter = "events.dead-letter"
	}
	if cfg.Kafka.Topics.SessionRecordings == "" {
		cfg.Kafka.Topics.SessionRecordings = "records.session-recording.out"
	}
	if cfg.Kafka.Topics.Performance == "" {
		cfg.Kafka.Topics.Performance = "records.performance.out"
	}
	if cfg.Kafka.FetchBatchSize == 0 {
		cfg.Kafka.FetchBatchSize = 500
	}
	if cfg.Kafka.FetchMaxWait == 0 {
		cfg.Kafka.FetchMaxWait = time.Second
	}
	if cfg.Kafka.SessionTimeout == 0 {
		cfg.Kafka.SessionTimeout = 30 * time.Second
	}
	if cfg.Kafka.FlushTimeout == 0 {
		cfg.Kafka.FlushTimeout = 15 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.Interval == 0 {
		cfg.Retry.Interval = time.Second
	}
	return cfg, nil
}
