package infra

import (
	"fmt"
	"os"
	"path/filepath"
)

// ExecMode represents the privilege level kioskd runs with.
type ExecMode string

const (
	// ExecModeUser runs unelevated; engine, heartbeat and auto-boot work.
	ExecModeUser ExecMode = "user"
	// ExecModeAdmin runs elevated; lockdown setup and teardown also work.
	ExecModeAdmin ExecMode = "admin"
)

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeAdmin:
		return "admin (elevated, lockdown available)"
	case ExecModeUser:
		return "user (not elevated)"
	default:
		return "unknown"
	}
}

// ExecModeConfig holds paths and settings based on execution mode.
type ExecModeConfig struct {
	Mode       ExecMode
	Executable string // Absolute path of the running binary
	ConfigDir  string // device.json and config.json
	LogPath    string // Daemon log file
	IsElevated bool
}

// DetectExecMode resolves per-user paths and elevation.
// configDir overrides the default <UserConfigDir>/kioskd when non-empty.
func DetectExecMode(configDir string) (*ExecModeConfig, error) {
	if configDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config dir: %w", err)
		}
		configDir = filepath.Join(base, "kioskd")
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	elevated := IsElevated()
	mode := ExecModeUser
	if elevated {
		mode = ExecModeAdmin
	}

	return &ExecModeConfig{
		Mode:       mode,
		Executable: exe,
		ConfigDir:  configDir,
		LogPath:    filepath.Join(configDir, "kioskd.log"),
		IsElevated: elevated,
	}, nil
}
