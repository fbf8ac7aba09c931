package tenant

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_AppliesCacheDefaults(t *testing.T) {
	v := viper.New()
	v.Set("tenant.postgres.url", "postgres://localhost/replay")

	cfg, err := NewConfig(v)

	require.NoError(t, err)
	assert.Equal(t, 10_000, cfg.Cache.TeamCapacity)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TeamTTL)
	assert.Equal(t, 1_000_000, cfg.Cache.TokenCapacity)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.SlowQueryWarn)
}

func TestNewConfig_RequiresDatabaseURL(t *testing.T) {
	_, err := NewConfig(viper.New())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}
