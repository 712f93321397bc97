package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:2003", cfg.ListenAddr)
	assert.Equal(t, 100, cfg.FlushSize)
	assert.Equal(t, 15*time.Second, cfg.FlushTimeout)
	assert.Equal(t, StreamModeGRPC, cfg.StreamMode)
	assert.Equal(t, "custom.googleapis.com/neo4j", cfg.MetricTypeRoot)
	assert.Equal(t, 1024, cfg.IngestBuffer)
	assert.True(t, cfg.LogJSON)
	assert.NotEmpty(t, cfg.Hostname)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RELAY_LISTEN_ADDR", "0.0.0.0:2004")
	t.Setenv("RELAY_FLUSH_SIZE", "250")
	t.Setenv("RELAY_FLUSH_TIMEOUT", "3s")
	t.Setenv("RELAY_STREAM_MODE", "WebSocket")
	t.Setenv("RELAY_LOG_JSON", "off")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:2004", cfg.ListenAddr)
	assert.Equal(t, 250, cfg.FlushSize)
	assert.Equal(t, 3*time.Second, cfg.FlushTimeout)
	assert.Equal(t, StreamModeWebSocket, cfg.StreamMode)
	assert.False(t, cfg.LogJSON)
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("RELAY_FLUSH_SIZE", "not-a-number")
	t.Setenv("RELAY_FLUSH_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.FlushSize)
	assert.Equal(t, 15*time.Second, cfg.FlushTimeout)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("zero flush size rejected", func(t *testing.T) {
		cfg := base()
		cfg.FlushSize = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown stream mode rejected", func(t *testing.T) {
		cfg := base()
		cfg.StreamMode = "carrier-pigeon"
		assert.Error(t, cfg.Validate())
	})

	t.Run("websocket mode requires url", func(t *testing.T) {
		cfg := base()
		cfg.StreamMode = StreamModeWebSocket
		cfg.BackendWSURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty listen addr rejected", func(t *testing.T) {
		cfg := base()
		cfg.ListenAddr = " "
		assert.Error(t, cfg.Validate())
	})
}
