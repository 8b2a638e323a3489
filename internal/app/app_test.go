package app_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/app"
)

// chdir into an empty dir so a stray keyrelay.yaml cannot leak in.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
}

func TestLoadServerConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := app.LoadServerConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, app.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 10, cfg.Bundle.LowWatermark)
	assert.True(t, cfg.Bundle.VerifyOnFetch)
	assert.Equal(t, 16, cfg.Redis.MaxRetries)
	assert.False(t, cfg.NeedsRedis())
}

func TestLoadServerConfigEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("KEYRELAY_STORE_BACKEND", "file")
	t.Setenv("KEYRELAY_STORE_DIR", "/var/lib/keyrelay")
	t.Setenv("KEYRELAY_BUNDLE_LOW_WATERMARK", "25")
	t.Setenv("KEYRELAY_SERVER_WRITE_TIMEOUT", "3s")

	cfg, err := app.LoadServerConfig("")
	require.NoError(t, err)
	assert.Equal(t, app.BackendFile, cfg.Store.Backend)
	assert.Equal(t, "/var/lib/keyrelay", cfg.Store.Dir)
	assert.Equal(t, 25, cfg.Bundle.LowWatermark)
	assert.Equal(t, 3*time.Second, cfg.Server.WriteTimeout)
}

func TestLoadServerConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: "127.0.0.1:9090"
rate_limit:
  enabled: true
  per_minute: 5
redis:
  addr: "redis:6379"
log:
  level: debug
`), 0o600))

	cfg, err := app.LoadServerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.RateLimit.PerMinute)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.NeedsRedis())
}

func TestLoadServerConfigRejectsBadValues(t *testing.T) {
	isolate(t)

	_, err := app.LoadServerConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("KEYRELAY_STORE_BACKEND", "postgres")
	_, err = app.LoadServerConfig("")
	assert.ErrorContains(t, err, "invalid config")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := app.NewLogger(&buf, "warn")
	require.NoError(t, err)

	level.Info(logger).Log("msg", "hidden")
	level.Warn(logger).Log("msg", "shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "level=warn")

	_, err = app.NewLogger(&buf, "loud")
	assert.Error(t, err)
}

func TestNewServerMemoryBackend(t *testing.T) {
	isolate(t)
	cfg, err := app.LoadServerConfig("")
	require.NoError(t, err)
	cfg.Metrics.Enabled = false

	srv, err := app.NewServer(context.Background(), *cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	w := httptest.NewRecorder()
	srv.HTTP.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.HTTP.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/keys/nobody/1/bundle", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewServerFileBackendHealth(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "keys")
	cfg, err := app.LoadServerConfig("")
	require.NoError(t, err)
	cfg.Store.Backend = app.BackendFile
	cfg.Store.Dir = dir

	srv, err := app.NewServer(context.Background(), *cfg, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.HTTP.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, os.RemoveAll(dir))
	w = httptest.NewRecorder()
	srv.HTTP.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNewWire(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")

	w, err := app.NewWire(app.ClientConfig{Home: home})
	require.NoError(t, err)
	assert.NotNil(t, w.Identity)
	assert.NotNil(t, w.PreKeys)
	assert.Nil(t, w.Relay)
	assert.DirExists(t, home)

	w, err = app.NewWire(app.ClientConfig{Home: home, RelayURL: "http://127.0.0.1:8080", Timeout: time.Second})
	require.NoError(t, err)
	assert.NotNil(t, w.Relay)

	_, err = app.NewWire(app.ClientConfig{})
	assert.Error(t, err)
}
