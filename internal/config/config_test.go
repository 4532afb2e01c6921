package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentz26/sockdo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		config.EnvConfigFile, config.EnvSocketPath, config.EnvPort,
		config.EnvLogLevel, config.EnvLogFormat, config.EnvGatewayURL,
	} {
		t.Setenv(key, "")
	}
}

// TestLoad_Defaults verifies the processes boot with the well-known socket
// path and port when nothing is configured.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/backend.sock", cfg.SocketPath)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, ":3000", cfg.HTTPAddr())
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "http://localhost:3000", cfg.GatewayURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SOCKDO_SOCKET", "/run/sockdo.sock")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/run/sockdo.sock", cfg.SocketPath)
	assert.Equal(t, "http://localhost:8080", cfg.GatewayURL, "gateway url follows PORT")
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sockdo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
socket_path: /var/run/todo.sock
port: "4000"
request_timeout: 2s
gateway_url: http://todo.local:4000
`), 0o644))
	t.Setenv("PORT", "4100")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/run/todo.sock", cfg.SocketPath)
	assert.Equal(t, "4100", cfg.Port, "env wins over file")
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "http://todo.local:4000", cfg.GatewayURL, "an explicit gateway url is kept")
}

func TestLoad_ConfigFromEnvMayBeMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOCKDO_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := config.Load("")
	assert.NoError(t, err)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_FORMAT", "xml")

	_, err := config.Load("")
	assert.ErrorContains(t, err, "log format")
}
