// Package engine is the kiosk enforcement engine: the state machine that owns
// the keyboard hook, the managed-app registry and the window chrome.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// Observer receives engine events for metrics. Calls happen under the engine lock.
type Observer interface {
	ModeChanged(mode domain.KioskMode, managedApps int)
	AppLaunched()
	AppsPruned(n int)
}

type nopObserver struct{}

func (nopObserver) ModeChanged(domain.KioskMode, int) {}
func (nopObserver) AppLaunched()                      {}
func (nopObserver) AppsPruned(int)                    {}

// Engine implements domain.KioskEngine.
//
// While kiosk mode is enabled, Permissive holds exactly when the registry is
// non-empty. Every command runs under mu; the hook callback only ever reads the
// interceptor snapshot published at the end of each command.
type Engine struct {
	mu              sync.Mutex
	mode            domain.KioskMode
	dialogAllowance bool

	registry    *Registry
	interceptor *Interceptor
	chrome      *Chrome
	spawner     domain.ProcessSpawner
	fsManager   domain.FileSystemManager
	observer    Observer
	logger      *zap.Logger
	now         func() time.Time
}

// New creates a disabled engine. Nothing touches the OS until EnableSuppression.
func New(
	hooks domain.HookPlatform,
	window domain.WindowChrome,
	inspector domain.ProcessLivenessInspector,
	spawner domain.ProcessSpawner,
	fs domain.FileSystemManager,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		mode:        domain.ModeDisabled,
		registry:    NewRegistry(inspector, logger),
		interceptor: NewInterceptor(hooks),
		chrome:      NewChrome(window, logger),
		spawner:     spawner,
		fsManager:   fs,
		observer:    nopObserver{},
		logger:      logger,
		now:         time.Now,
	}
}

// SetObserver installs o. Must be called before the engine is shared.
func (e *Engine) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	e.observer = o
}

// EnableSuppression installs the hook and arms kiosk mode.
// Calling it while enabled is a no-op that keeps the single live hook.
func (e *Engine) EnableSuppression() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode.Enabled() {
		return fmt.Sprintf("Kiosk shortcuts already enabled (%s mode)", e.mode), nil
	}

	if _, err := e.interceptor.Install(); err != nil {
		e.logger.Error("failed to enable kiosk shortcuts", zap.Error(err))
		return "", err
	}

	e.dialogAllowance = false
	e.mode = e.modeForRegistry()
	e.sync()

	e.logger.Info("kiosk shortcuts enabled",
		zap.String("mode", e.mode.String()),
		zap.Int("managed_apps", e.registry.Count()))
	return fmt.Sprintf("Kiosk shortcuts enabled (%s mode)", e.mode), nil
}

// DisableSuppression removes the hook and returns to a normal desktop.
// The engine ends Disabled even if the OS refuses the unhook.
func (e *Engine) DisableSuppression() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.interceptor.Uninstall()

	e.mode = domain.ModeDisabled
	e.dialogAllowance = false
	e.sync()

	if err != nil {
		e.logger.Warn("kiosk disabled but hook removal failed", zap.Error(err))
		return "", err
	}

	e.logger.Info("kiosk shortcuts disabled", zap.Int("managed_apps", e.registry.Count()))
	return "Kiosk shortcuts disabled", nil
}

// SuppressionStatus describes the current mode in one line.
func (e *Engine) SuppressionStatus() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.registry.Count()
	switch e.mode {
	case domain.ModeStrict:
		return "Kiosk mode active: strict (system shortcuts blocked)", nil
	case domain.ModePermissive:
		return fmt.Sprintf("Kiosk mode active: permissive (%d managed app(s) running, only Windows keys blocked)", n), nil
	default:
		if n > 0 {
			return fmt.Sprintf("Kiosk mode disabled (%d managed app(s) still tracked)", n), nil
		}
		return "Kiosk mode disabled", nil
	}
}

// LaunchManagedApp spawns path and tracks it. Strict relaxes to Permissive.
func (e *Engine) LaunchManagedApp(path string) (string, error) {
	path = e.fsManager.ExpandHome(strings.TrimSpace(path))
	if !e.fsManager.Exists(path) {
		return "", fmt.Errorf("%w: %s", domain.ErrExecutableNotFound, path)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pid, err := e.spawner.Spawn(path)
	if err != nil {
		e.logger.Warn("failed to launch managed app", zap.String("path", path), zap.Error(err))
		return "", err
	}

	app := domain.LaunchedApp{
		PID:        pid,
		Path:       path,
		LaunchID:   uuid.NewString(),
		LaunchedAt: e.now(),
	}
	e.registry.Add(app)
	e.observer.AppLaunched()

	if e.mode.Enabled() {
		e.mode = domain.ModePermissive
	}
	e.sync()

	e.logger.Info("managed app launched",
		zap.Int("pid", pid),
		zap.String("path", path),
		zap.String("launch_id", app.LaunchID),
		zap.String("mode", e.mode.String()))
	return fmt.Sprintf("Launched %s (pid %d)", filepath.Base(path), pid), nil
}

// PruneDeadManagedApps drops exited apps. When none remain, Permissive tightens to Strict.
func (e *Engine) PruneDeadManagedApps(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.mode
	res := e.registry.Prune(ctx)
	e.observer.AppsPruned(res.Removed)

	if e.mode.Enabled() {
		e.mode = e.modeForRegistry()
	}
	e.sync()

	if before != e.mode {
		e.logger.Info("kiosk mode changed after prune",
			zap.String("from", before.String()),
			zap.String("to", e.mode.String()))
	}
	return fmt.Sprintf("Removed %d exited app(s), %d still running", res.Removed, res.Remaining), nil
}

// ReconcileChromeForFocus runs when the host window regains focus.
// It ends any dialog allowance. It never re-arms kiosk mode after a disable.
func (e *Engine) ReconcileChromeForFocus() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.dialogAllowance = false
	if e.mode.Enabled() {
		e.mode = e.modeForRegistry()
	}
	state := e.sync()

	switch {
	case !e.mode.Enabled():
		return "Kiosk mode disabled, window unlocked", nil
	case state.AlwaysOnTop:
		return "Window locked (strict mode)", nil
	default:
		return "Window unlocked (managed apps running)", nil
	}
}

// RequestDialogAllowance relaxes suppression and chrome until the next focus reconcile.
func (e *Engine) RequestDialogAllowance() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.mode.Enabled() {
		return "Kiosk mode disabled, dialogs already allowed", nil
	}

	e.dialogAllowance = true
	e.sync()

	e.logger.Info("dialog allowance granted", zap.String("mode", e.mode.String()))
	return "Dialogs allowed until the window regains focus", nil
}

// Status returns a snapshot for the API and metrics.
func (e *Engine) Status() domain.EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	return domain.EngineStatus{
		Mode:            e.mode,
		ModeName:        e.mode.String(),
		DialogAllowance: e.dialogAllowance,
		HookInstalled:   e.interceptor.Installed(),
		ManagedApps:     e.registry.Snapshot(),
		Chrome:          e.chrome.Current(),
		KeysBlocked:     e.interceptor.Blocked(),
	}
}

// AllowHostClose reports whether the host window may close.
// Closing is refused while kiosk mode is on or any managed app is still tracked.
func (e *Engine) AllowHostClose() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.mode.Enabled() && e.registry.IsEmpty()
}

// KeysBlocked returns the hook's blocked-event counter without taking the engine lock.
func (e *Engine) KeysBlocked() uint64 {
	return e.interceptor.Blocked()
}

// Close releases the hook and restores the desktop. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.interceptor.Uninstall()
	e.mode = domain.ModeDisabled
	e.dialogAllowance = false
	e.sync()
	return err
}

// modeForRegistry is the enabled mode the registry dictates.
func (e *Engine) modeForRegistry() domain.KioskMode {
	if e.registry.IsEmpty() {
		return domain.ModeStrict
	}
	return domain.ModePermissive
}

// sync publishes state to the hook snapshot and the window. Caller holds mu.
func (e *Engine) sync() domain.WindowChromeState {
	empty := e.registry.IsEmpty()
	e.interceptor.Publish(e.mode.Enabled() && !e.dialogAllowance, empty)
	e.observer.ModeChanged(e.mode, e.registry.Count())
	return e.chrome.Apply(e.mode, e.dialogAllowance)
}

// Ensure Engine implements domain.KioskEngine.
var _ domain.KioskEngine = (*Engine)(nil)
