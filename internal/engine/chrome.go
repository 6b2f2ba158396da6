package engine

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// Chrome applies window presentation derived from the kiosk mode.
// OS failures are logged and otherwise ignored; the engine never fails on chrome.
type Chrome struct {
	mu      sync.Mutex
	window  domain.WindowChrome
	logger  *zap.Logger
	current domain.WindowChromeState
	applied bool
}

// NewChrome creates a chrome controller. The initial state is an unlocked desktop.
func NewChrome(window domain.WindowChrome, logger *zap.Logger) *Chrome {
	return &Chrome{
		window:  window,
		logger:  logger,
		current: domain.ChromeFor(domain.ModeDisabled, false),
	}
}

// Apply pushes the chrome state for mode and dialogAllowance to the OS.
func (c *Chrome) Apply(mode domain.KioskMode, dialogAllowance bool) domain.WindowChromeState {
	want := domain.ChromeFor(mode, dialogAllowance)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.report("failed to set always-on-top", c.window.SetAlwaysOnTop(want.AlwaysOnTop),
		zap.Bool("on", want.AlwaysOnTop))
	c.report("failed to toggle taskbar", c.window.SetTaskbarVisible(want.TaskbarVisible),
		zap.Bool("visible", want.TaskbarVisible))

	if !c.applied || c.current != want {
		c.logger.Debug("window chrome applied",
			zap.String("mode", mode.String()),
			zap.Bool("always_on_top", want.AlwaysOnTop),
			zap.Bool("taskbar_visible", want.TaskbarVisible))
	}
	c.current = want
	c.applied = true
	return want
}

func (c *Chrome) report(msg string, err error, field zap.Field) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnsupported):
		c.logger.Debug(msg, field, zap.Error(err))
	default:
		c.logger.Warn(msg, field, zap.Error(err))
	}
}

// Current returns the last state passed to Apply.
func (c *Chrome) Current() domain.WindowChromeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
