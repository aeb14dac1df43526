package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.GraphBackend)
	assert.Equal(t, "memory", cfg.StateBackend)
	assert.Equal(t, "memory", cfg.EventBackend)
	assert.Equal(t, 3, cfg.Execution.MaxRetries)
	assert.Equal(t, 20, cfg.Execution.StepLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.Execution.BackoffBase)
	assert.Equal(t, 5, cfg.Workers.PoolSize)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("GRAPH_BACKEND", "dynamodb")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph backend")
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("LOG_LEVEL", "loud")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("PUNTINI_HTTP_PORT", "9999")
	t.Setenv("EXECUTION_MAX_RETRIES", "7")
	t.Setenv("STATE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.HTTPPort)
	assert.Equal(t, 7, cfg.Execution.MaxRetries)
	assert.Equal(t, "redis", cfg.StateBackend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestGetHTTPAddr(t *testing.T) {
	cfg := &Config{HTTPPort: 8081}
	assert.Equal(t, ":8081", cfg.GetHTTPAddr())
}
