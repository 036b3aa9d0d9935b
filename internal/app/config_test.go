package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"argoya/internal/app"
	"argoya/internal/services/session"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	cfg, err := app.Load(nil, "")
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:8080", cfg.Relay.URL)
	require.Equal(t, 2*time.Second, cfg.Sync.MessageInterval)
	require.Equal(t, 5*time.Second, cfg.Sync.ParticipantInterval)
	require.True(t, cfg.Sync.KeyExchange)
	require.Equal(t, "info", cfg.Log.Level)
	require.Empty(t, cfg.Metrics.File)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "argoya.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
relay:
  url: http://relay.internal:9000
sync:
  message_interval: 500ms
  key_exchange: false
log:
  level: debug
`), 0o600))

	t.Setenv("ARGOYA_LOG_LEVEL", "warn")

	cfg, err := app.Load(viper.New(), file)
	require.NoError(t, err)
	require.Equal(t, "http://relay.internal:9000", cfg.Relay.URL)
	require.Equal(t, 500*time.Millisecond, cfg.Sync.MessageInterval)
	require.False(t, cfg.Sync.KeyExchange)
	require.Equal(t, "warn", cfg.Log.Level, "environment beats file")
}

func TestLoad_FlagOverride(t *testing.T) {
	isolate(t)
	v := viper.New()
	v.Set("relay.url", "http://flag:1")

	cfg, err := app.Load(v, "")
	require.NoError(t, err)
	require.Equal(t, "http://flag:1", cfg.Relay.URL)
}

func TestLoad_Errors(t *testing.T) {
	dir := isolate(t)

	_, err := app.Load(nil, filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	t.Setenv("ARGOYA_SYNC_MESSAGE_INTERVAL", "0s")
	_, err = app.Load(nil, "")
	require.ErrorContains(t, err, "intervals must be positive")
}

func TestNew_BuildsIdleClient(t *testing.T) {
	dir := isolate(t)
	cfg, err := app.Load(nil, "")
	require.NoError(t, err)
	cfg.Log.File = filepath.Join(dir, "client.log")

	a, err := app.New(cfg)
	require.NoError(t, err)
	require.NotNil(t, a.Relay)
	require.NotNil(t, a.Keys)
	require.Equal(t, session.Idle, a.Lifecycle.State())
	require.Equal(t, cfg.Relay.Timeout, a.HTTP.Timeout)

	require.NoError(t, a.Close(context.Background()))
}
