package logger

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration.
type Config struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// NewConfig loads the logger configuration from the "logging" section.
// Missing values fall back to production defaults.
func NewConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.UnmarshalKey("logging", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load logging config: %w", err)
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if _, err := zapcore.ParseLevel(cfg.Level); err != nil {
		return cfg, fmt.Errorf("invalid logging level %q: %w", cfg.Level, err)
	}
	return cfg, nil
}
