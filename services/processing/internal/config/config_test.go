package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("CLICKHOUSE_DSN", "clickhouse://ch:9000/wages")
	t.Setenv("PROCESSING_TIMEOUT", "5s")
	t.Setenv("LOG_DEVELOPMENT", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "clickhouse://ch:9000/wages", cfg.ClickHouseDSN)
	assert.Equal(t, "tradewages", cfg.ClickHouseDatabase)
	assert.Equal(t, "processing-service", cfg.NATSQueueGroup)
	assert.Equal(t, 5*time.Second, cfg.ProcessingTimeout)
	assert.True(t, cfg.LogDevelopment)
}
