// Package config loads kioskd runtime settings from the environment and the
// persisted host record (config.json) from the per-user config directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// EnvPrefix prefixes every environment variable kioskd reads.
const EnvPrefix = "KIOSKD"

// DefaultBackendURL is used when neither config.json nor the environment set one.
const DefaultBackendURL = "https://api.primustech.in"

// HostConfigFileName is the persisted host record inside the config dir.
const HostConfigFileName = "config.json"

// Runtime holds process settings read once from the environment.
type Runtime struct {
	ListenAddr        string        `envconfig:"LISTEN_ADDR" default:"127.0.0.1:47110"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	LogDev            bool          `envconfig:"LOG_DEV" default:"false"`
	PruneInterval     time.Duration `envconfig:"PRUNE_INTERVAL" default:"5s"`
	HeartbeatInterval time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"60s"`
	HostWindowTitle   string        `envconfig:"HOST_WINDOW_TITLE" default:"kioskd"`
	ConfigDir         string        `envconfig:"CONFIG_DIR"`
}

// LoadRuntime reads KIOSKD_* variables.
func LoadRuntime() (*Runtime, error) {
	var cfg Runtime
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultRuntime returns the runtime defaults.
func DefaultRuntime() *Runtime {
	return &Runtime{
		ListenAddr:        "127.0.0.1:47110",
		LogLevel:          "info",
		PruneInterval:     5 * time.Second,
		HeartbeatInterval: 60 * time.Second,
		HostWindowTitle:   "kioskd",
	}
}

// Validate rejects settings the supervisor can't run with.
func (r *Runtime) Validate() error {
	if r.PruneInterval <= 0 {
		return fmt.Errorf("PRUNE_INTERVAL must be positive, got %s", r.PruneInterval)
	}
	if r.HeartbeatInterval < 0 {
		return fmt.Errorf("HEARTBEAT_INTERVAL must not be negative, got %s", r.HeartbeatInterval)
	}
	if strings.TrimSpace(r.ListenAddr) == "" {
		return errors.New("LISTEN_ADDR must not be empty")
	}
	return nil
}

// LoadHost reads config.json from configDir. A missing file yields defaults.
// KIOSKD_BACKEND_URL overrides the file.
func LoadHost(configDir string) (domain.HostConfig, error) {
	v := newHostViper(configDir)

	if _, err := os.Stat(v.ConfigFileUsed()); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return domain.HostConfig{}, fmt.Errorf("failed to read %s: %w", HostConfigFileName, err)
		}
	}

	var c domain.HostConfig
	if err := v.Unmarshal(&c); err != nil {
		return domain.HostConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	if c.BackendURL == "" {
		c.BackendURL = DefaultBackendURL
	}
	return c, nil
}

// SaveHost writes cfg to config.json, creating configDir if needed.
func SaveHost(configDir string, cfg domain.HostConfig) error {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.Set("backend_url", cfg.BackendURL)

	if err := v.WriteConfigAs(HostConfigPath(configDir)); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// HostConfigPath returns the config.json location for configDir.
func HostConfigPath(configDir string) string {
	return filepath.Join(configDir, HostConfigFileName)
}

func newHostViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetDefault("backend_url", DefaultBackendURL)
	v.SetConfigType("json")
	v.SetConfigFile(HostConfigPath(configDir))
	_ = v.BindEnv("backend_url", EnvPrefix+"_BACKEND_URL")
	return v
}
