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

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, defaultMirrorInstances, cfg.Resolver.MirrorInstances)
	assert.Equal(t, 2, cfg.Batch.FanOut)
	assert.Equal(t, int64(200), cfg.Batch.LargeThresholdMiB)
	assert.Equal(t, 3, cfg.Batch.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Batch.RetryDelay)
	assert.Equal(t, "deepgram", cfg.STT.Backend)
	assert.Equal(t, "pt-BR", cfg.STT.Language)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MIRROR_INSTANCES", "https://a.example.com, https://b.example.com")
	t.Setenv("BATCH_RETRY_DELAY", "250ms")
	t.Setenv("STT_BACKEND", "openai")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Resolver.MirrorInstances)
	assert.Equal(t, 250*time.Millisecond, cfg.Batch.RetryDelay)
	assert.Equal(t, "openai", cfg.STT.Backend)
}

func TestLoadRejectsBadInt(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
}

func TestValidateRequiresBackendKey(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEEPGRAM_API_KEY")

	cfg.STT.DeepgramKey = "dg-key"
	assert.NoError(t, cfg.Validate())

	cfg.STT.Backend = "whisper-local"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown STT_BACKEND")
}
