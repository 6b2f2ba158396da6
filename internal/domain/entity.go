// Package domain contains core kiosk entities and interfaces.
// This is the innermost layer - no external dependencies.
package domain

import (
	"fmt"
	"time"
)

// KioskMode is the enforcement level of the kiosk engine.
type KioskMode int

const (
	// ModeDisabled: no suppression, normal desktop.
	ModeDisabled KioskMode = iota
	// ModeStrict: suppression active, no managed apps tracked.
	ModeStrict
	// ModePermissive: suppression relaxed, at least one managed app tracked.
	ModePermissive
)

// String returns the lowercase mode name used in logs and API responses.
func (m KioskMode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeStrict:
		return "strict"
	case ModePermissive:
		return "permissive"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// Enabled reports whether suppression is armed in this mode.
func (m KioskMode) Enabled() bool {
	return m == ModeStrict || m == ModePermissive
}

// LaunchedApp is a managed application spawned by the engine.
type LaunchedApp struct {
	PID        int       `json:"pid"`
	Path       string    `json:"path"`
	LaunchID   string    `json:"launch_id"`
	LaunchedAt time.Time `json:"launched_at"`
}

// PruneResult reports what a registry prune did.
type PruneResult struct {
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

// WindowChromeState is the host window presentation derived from the kiosk mode.
type WindowChromeState struct {
	AlwaysOnTop    bool `json:"always_on_top"`
	TaskbarVisible bool `json:"taskbar_visible"`
}

// ChromeFor derives the chrome state for a mode and dialog allowance.
// Only strict mode without a dialog allowance locks the window.
func ChromeFor(mode KioskMode, dialogAllowance bool) WindowChromeState {
	locked := mode == ModeStrict && !dialogAllowance
	return WindowChromeState{
		AlwaysOnTop:    locked,
		TaskbarVisible: !locked,
	}
}

// HookHandle identifies an installed low-level input hook.
// The zero value means no hook is installed.
type HookHandle uintptr

// Valid reports whether the handle refers to an installed hook.
func (h HookHandle) Valid() bool {
	return h != 0
}

// VirtualKey is a platform virtual-key code.
type VirtualKey uint32

// Virtual-key codes the decision table cares about.
const (
	KeyTab    VirtualKey = 0x09
	KeyEnter  VirtualKey = 0x0D
	KeyEscape VirtualKey = 0x1B
	KeySpace  VirtualKey = 0x20
	KeyLWin   VirtualKey = 0x5B
	KeyRWin   VirtualKey = 0x5C
	KeyF1     VirtualKey = 0x70
	KeyF4     VirtualKey = 0x73
	KeyF24    VirtualKey = 0x87
)

// KeyEvent is a single low-level keyboard event as seen by the hook.
type KeyEvent struct {
	Key     VirtualKey
	Down    bool // key-down (or sys-key-down) rather than key-up
	AltDown bool // Alt held, as reported by the OS for this event
}

// Verdict is the hook's decision for one event.
type Verdict int

const (
	Forward Verdict = iota
	Block
)

func (v Verdict) String() string {
	if v == Block {
		return "block"
	}
	return "forward"
}

// EngineStatus is a point-in-time view of the kiosk engine.
type EngineStatus struct {
	Mode            KioskMode         `json:"-"`
	ModeName        string            `json:"mode"`
	DialogAllowance bool              `json:"dialog_allowance"`
	HookInstalled   bool              `json:"hook_installed"`
	ManagedApps     []LaunchedApp     `json:"managed_apps"`
	Chrome          WindowChromeState `json:"chrome"`
	KeysBlocked     uint64            `json:"keys_blocked"`
}

// DeviceCredentials is the device identity issued by the backend at registration.
// Persisted as device.json in the per-user config directory.
type DeviceCredentials struct {
	PCID         int64  `json:"pc_id"`
	LicenseKey   string `json:"license_key"`
	DeviceSecret string `json:"device_secret"`
}

// HostConfig is the small persisted host configuration record.
type HostConfig struct {
	BackendURL string `json:"backend_url" mapstructure:"backend_url"`
}

// PowerAction is an OS session/power operation.
type PowerAction string

const (
	PowerShutdown       PowerAction = "shutdown"
	PowerRestart        PowerAction = "restart"
	PowerLogoff         PowerAction = "logoff"
	PowerLock           PowerAction = "lock"
	PowerCancelShutdown PowerAction = "cancel-shutdown"
)

// Valid reports whether a is a known power action.
func (a PowerAction) Valid() bool {
	switch a {
	case PowerShutdown, PowerRestart, PowerLogoff, PowerLock, PowerCancelShutdown:
		return true
	}
	return false
}
