//go:build windows

package infra

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// WindowChromeImpl drives the host window and the taskbar through user32.
type WindowChromeImpl struct {
	title string
}

// NewWindowChrome controls the top-level window whose caption is title.
func NewWindowChrome(title string) domain.WindowChrome {
	return &WindowChromeImpl{title: title}
}

// SetAlwaysOnTop pins or unpins the host window above all others.
func (w *WindowChromeImpl) SetAlwaysOnTop(on bool) error {
	if w.title == "" {
		return fmt.Errorf("no host window title configured")
	}
	hwnd, err := findWindow("", w.title)
	if err != nil {
		return err
	}

	after := hwndNoTopmost
	if on {
		after = hwndTopmost
	}
	r, _, callErr := procSetWindowPos.Call(hwnd, after, 0, 0, 0, 0, swpNoMove|swpNoSize|swpNoActivate)
	if r == 0 {
		return fmt.Errorf("SetWindowPos: %w", callErr)
	}
	return nil
}

// SetTaskbarVisible shows or hides the shell tray window.
func (w *WindowChromeImpl) SetTaskbarVisible(visible bool) error {
	hwnd, err := findWindow("Shell_TrayWnd", "")
	if err != nil {
		return err
	}
	cmd := uintptr(swHide)
	if visible {
		cmd = swShow
	}
	// ShowWindow returns the previous visibility, not success.
	procShowWindow.Call(hwnd, cmd)
	return nil
}

func findWindow(class, title string) (uintptr, error) {
	var classPtr, titlePtr *uint16
	var err error
	if class != "" {
		if classPtr, err = windows.UTF16PtrFromString(class); err != nil {
			return 0, err
		}
	}
	if title != "" {
		if titlePtr, err = windows.UTF16PtrFromString(title); err != nil {
			return 0, err
		}
	}
	hwnd, _, callErr := procFindWindowW.Call(uintptr(unsafe.Pointer(classPtr)), uintptr(unsafe.Pointer(titlePtr)))
	if hwnd == 0 {
		return 0, fmt.Errorf("window not found (class=%q title=%q): %w", class, title, callErr)
	}
	return hwnd, nil
}

var _ domain.WindowChrome = (*WindowChromeImpl)(nil)
