package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8091, cfg.Server.Port)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "carelog-projector", cfg.NATS.Name)
	assert.Equal(t, "projector", cfg.Stream.Consumer)
	assert.Equal(t, "changes.>", cfg.Stream.Subject)
	assert.Equal(t, 100, cfg.Stream.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Stream.FetchWait)
	assert.Equal(t, 30*time.Second, cfg.Stream.AckWait)
	assert.Equal(t, 5, cfg.Stream.MaxDeliver)
	assert.Equal(t, uint64(5), cfg.Writer.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Writer.InitialInterval)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "rm", cfg.Redis.KeyPrefix)
	assert.Equal(t, 500, cfg.Redis.BatchSize)
	assert.True(t, cfg.Postgres.Enabled)
	assert.Equal(t, "migrations", cfg.Postgres.MigrationsPath)
	assert.False(t, cfg.OpenSearch.Enabled)
	assert.Equal(t, []string{"HISTORY"}, cfg.OpenSearch.Kinds)
	assert.True(t, cfg.DLQ.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9100
stream:
  batch_size: 250
redis:
  enabled: false
postgres:
  kinds:
    - LATEST
    - HISTORY
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 250, cfg.Stream.BatchSize)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"LATEST", "HISTORY"}, cfg.Postgres.Kinds)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, "changes.>", cfg.Stream.Subject)
	assert.True(t, cfg.Postgres.Enabled)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PROJECTOR_NATS_URL", "nats://broker:4222")
	t.Setenv("PROJECTOR_LOGGING_LEVEL", "debug")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
