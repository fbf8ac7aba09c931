package tenant

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the team store and cache configuration.
type Config struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

type PostgresConfig struct {
	URL     string `mapstructure:"url"`
	Migrate bool   `mapstructure:"migrate"`
}

// CacheConfig bounds the two lookup maps. TTLs count from insertion; entries
// are never renewed on access.
type CacheConfig struct {
	TeamCapacity  int           `mapstructure:"team-capacity"`
	TeamTTL       time.Duration `mapstructure:"team-ttl"`
	TokenCapacity int           `mapstructure:"token-capacity"`
	TokenTTL      time.Duration `mapstructure:"token-ttl"`
	SlowQueryWarn time.Duration `mapstructure:"slow-query-warn"`
}

// NewConfig loads the tenant configuration from the "tenant" section.
func NewConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.UnmarshalKey("tenant", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load tenant config: %w", err)
	}
	if cfg.Postgres.URL == "" {
		return cfg, fmt.Errorf("tenant.postgres.url is required")
	}
	if cfg.Cache.TeamCapacity == 0 {
		cfg.Cache.TeamCapacity = 10_000
	}
	if cfg.Cache.TeamTTL == 0 {
		cfg.Cache.TeamTTL = 2 * time.Minute
	}
	if cfg.Cache.TokenCapacity == 0 {
		// Token entries are small; a high limit keeps bad requests from
		// evicting valid tokens under probing load.
		cfg.Cache.TokenCapacity = 1_000_000
	}
	if cfg.Cache.TokenTTL == 0 {
		cfg.Cache.TokenTTL = 5 * time.Minute
	}
	if cfg.Cache.SlowQueryWarn == 0 {
		cfg.Cache.SlowQueryWarn = 30 * time.Second
	}
	return cfg, nil
}
