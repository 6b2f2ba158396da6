//go:build !windows

package infra

import "github.com/eliteGoblin/focusd/kioskd/internal/domain"

// WindowChromeImpl has no window system to drive outside Windows.
type WindowChromeImpl struct {
	title string
}

// NewWindowChrome returns a chrome controller that reports ErrUnsupported.
func NewWindowChrome(title string) domain.WindowChrome {
	return &WindowChromeImpl{title: title}
}

func (w *WindowChromeImpl) SetAlwaysOnTop(bool) error {
	return domain.ErrUnsupported
}

func (w *WindowChromeImpl) SetTaskbarVisible(bool) error {
	return domain.ErrUnsupported
}

var _ domain.WindowChrome = (*WindowChromeImpl)(nil)
