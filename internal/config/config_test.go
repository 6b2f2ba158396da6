package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

func TestLoadRuntime_Defaults(t *testing.T) {
	cfg, err := LoadRuntime()
	require.NoError(t, err)

	def := DefaultRuntime()
	assert.Equal(t, def.ListenAddr, cfg.ListenAddr)
	assert.Equal(t, def.PruneInterval, cfg.PruneInterval)
	assert.Equal(t, def.HeartbeatInterval, cfg.HeartbeatInterval)
	assert.Equal(t, def.HostWindowTitle, cfg.HostWindowTitle)
}

func TestLoadRuntime_EnvOverrides(t *testing.T) {
	t.Setenv("KIOSKD_LISTEN_ADDR", "127.0.0.1:9999")
	t.Setenv("KIOSKD_PRUNE_INTERVAL", "250ms")
	t.Setenv("KIOSKD_HEARTBEAT_INTERVAL", "0s")
	t.Setenv("KIOSKD_LOG_DEV", "true")
	t.Setenv("KIOSKD_CONFIG_DIR", "/tmp/kioskd-test")

	cfg, err := LoadRuntime()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.PruneInterval)
	assert.Zero(t, cfg.HeartbeatInterval)
	assert.True(t, cfg.LogDev)
	assert.Equal(t, "/tmp/kioskd-test", cfg.ConfigDir)
}

func TestLoadRuntime_Invalid(t *testing.T) {
	t.Setenv("KIOSKD_PRUNE_INTERVAL", "0s")
	_, err := LoadRuntime()
	assert.Error(t, err)

	t.Setenv("KIOSKD_PRUNE_INTERVAL", "soon")
	_, err = LoadRuntime()
	assert.Error(t, err)
}

func TestLoadHost_MissingFileUsesDefault(t *testing.T) {
	t.Setenv("KIOSKD_BACKEND_URL", "")

	cfg, err := LoadHost(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
}

func TestSaveAndLoadHost(t *testing.T) {
	t.Setenv("KIOSKD_BACKEND_URL", "")
	dir := filepath.Join(t.TempDir(), "kioskd")

	require.NoError(t, SaveHost(dir, domain.HostConfig{BackendURL: "https://backend.example/"}))
	_, err := os.Stat(HostConfigPath(dir))
	require.NoError(t, err)

	cfg, err := LoadHost(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://backend.example", cfg.BackendURL)
}

func TestLoadHost_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveHost(dir, domain.HostConfig{BackendURL: "https://file.example"}))
	t.Setenv("KIOSKD_BACKEND_URL", "http://127.0.0.1:8080")

	cfg, err := LoadHost(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.BackendURL)
}

func TestLoadHost_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(HostConfigPath(dir), []byte("{oops"), 0o600))

	_, err := LoadHost(dir)
	assert.Error(t, err)
}
