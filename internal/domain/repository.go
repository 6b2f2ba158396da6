package domain

import "context"

// ProcessLivenessInspector answers whether a process still exists.
// Implementation: gopsutil. Polling only; there is no exit notification.
type ProcessLivenessInspector interface {
	// IsAlive reports whether pid refers to a running process.
	IsAlive(ctx context.Context, pid int) bool
}

// ProcessSpawner starts managed applications.
type ProcessSpawner interface {
	// Spawn starts the executable detached from the host and returns its PID.
	Spawn(path string) (int, error)
}

// FileSystemManager handles filesystem checks.
type FileSystemManager interface {
	// Exists checks if a path exists.
	Exists(path string) bool

	// ExpandHome expands ~ to the user's home directory.
	ExpandHome(path string) string
}

// HookPlatform installs the OS low-level keyboard hook.
// This is the only seam with direct OS input-hook exposure.
type HookPlatform interface {
	// Install registers decide as the global keyboard callback.
	// decide runs on an OS-owned thread and must not block.
	Install(decide func(KeyEvent) Verdict) (HookHandle, error)

	// Uninstall removes the hook. Unknown or already-removed handles are a no-op.
	Uninstall(h HookHandle) error
}

// WindowChrome toggles host window presentation.
type WindowChrome interface {
	SetAlwaysOnTop(on bool) error
	SetTaskbarVisible(visible bool) error
}

// KioskEngine is the command surface of the kiosk state machine.
// Every command returns a human-readable result or an error.
type KioskEngine interface {
	EnableSuppression() (string, error)
	DisableSuppression() (string, error)
	SuppressionStatus() (string, error)
	LaunchManagedApp(path string) (string, error)
	PruneDeadManagedApps(ctx context.Context) (string, error)
	ReconcileChromeForFocus() (string, error)
	RequestDialogAllowance() (string, error)

	// Status returns a structured snapshot for the API and metrics.
	Status() EngineStatus

	// AllowHostClose reports whether the host window may close right now.
	AllowHostClose() bool

	// Close releases the hook on shutdown.
	Close() error
}

// CredentialStore persists the device credential record.
type CredentialStore interface {
	Load() (*DeviceCredentials, error)
	Save(creds DeviceCredentials) error
	Reset() error
	Path() string
}

// HeartbeatSender reports device liveness to the backend.
type HeartbeatSender interface {
	Send(ctx context.Context) (map[string]any, error)
}

// PowerController runs OS power and session actions.
type PowerController interface {
	Execute(action PowerAction) (string, error)
}

// ShellManager replaces the OS shell for full lockdown and manages auto-boot.
type ShellManager interface {
	SetupLockdown(execPath string) (string, error)
	TeardownLockdown() (string, error)
	LockdownStatus() (string, error)

	EnableAutoBoot(execPath string) (string, error)
	DisableAutoBoot() (string, error)
	AutoBootStatus() (string, error)
}
