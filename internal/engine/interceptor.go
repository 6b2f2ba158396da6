package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// Snapshot bits read by the hook callback.
const (
	snapEnabled uint32 = 1 << iota
	snapRegistryEmpty
)

// Decide is the keyboard decision table.
//
// enabled is false in Disabled mode and while a dialog allowance is active.
// Meta keys are blocked on both edges so the Start menu can't open on release.
func Decide(ev domain.KeyEvent, enabled, registryEmpty bool) domain.Verdict {
	if !enabled {
		return domain.Forward
	}

	switch ev.Key {
	case domain.KeyLWin, domain.KeyRWin:
		return domain.Block
	}

	if !registryEmpty {
		return domain.Forward
	}

	if !ev.Down || !ev.AltDown {
		return domain.Forward
	}

	switch {
	case ev.Key == domain.KeyTab,
		ev.Key == domain.KeyEscape,
		ev.Key == domain.KeyEnter,
		ev.Key == domain.KeySpace,
		ev.Key >= domain.KeyF1 && ev.Key <= domain.KeyF24:
		return domain.Block
	}
	return domain.Forward
}

// Interceptor owns the OS keyboard hook and the lock-free snapshot its callback reads.
//
// Install and Uninstall are not safe for concurrent use; Engine serializes them
// under its own mutex. The callback may run concurrently with everything.
type Interceptor struct {
	platform domain.HookPlatform
	handle   domain.HookHandle
	snapshot atomic.Uint32
	blocked  atomic.Uint64
}

// NewInterceptor creates an interceptor over platform. Nothing is installed yet.
func NewInterceptor(platform domain.HookPlatform) *Interceptor {
	i := &Interceptor{platform: platform}
	i.snapshot.Store(snapRegistryEmpty)
	return i
}

// Install registers the hook. When a hook is already live its handle is returned as-is.
func (i *Interceptor) Install() (domain.HookHandle, error) {
	if i.handle.Valid() {
		return i.handle, nil
	}

	h, err := i.platform.Install(i.callback)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrHookInstall, err)
	}
	if !h.Valid() {
		return 0, domain.ErrHookInstall
	}

	i.handle = h
	return h, nil
}

// Uninstall removes the live hook, if any. Safe to call repeatedly.
func (i *Interceptor) Uninstall() error {
	if !i.handle.Valid() {
		return nil
	}
	h := i.handle
	i.handle = 0
	if err := i.platform.Uninstall(h); err != nil {
		return fmt.Errorf("failed to remove keyboard hook: %w", err)
	}
	return nil
}

// Installed reports whether a hook handle is live.
func (i *Interceptor) Installed() bool {
	return i.handle.Valid()
}

// Publish stores the state the callback decides against.
// The next event observes it; no event is ever decided on a torn state.
func (i *Interceptor) Publish(enabled, registryEmpty bool) {
	var s uint32
	if enabled {
		s |= snapEnabled
	}
	if registryEmpty {
		s |= snapRegistryEmpty
	}
	i.snapshot.Store(s)
}

// Blocked returns how many key events the hook has swallowed.
func (i *Interceptor) Blocked() uint64 {
	return i.blocked.Load()
}

// callback runs on the OS hook thread. No locks, no allocation, no logging.
func (i *Interceptor) callback(ev domain.KeyEvent) domain.Verdict {
	s := i.snapshot.Load()
	v := Decide(ev, s&snapEnabled != 0, s&snapRegistryEmpty != 0)
	if v == domain.Block {
		i.blocked.Add(1)
	}
	return v
}
