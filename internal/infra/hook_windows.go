//go:build windows

package infra

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// Callbacks created by syscall.NewCallback are never freed, so there is one
// for the whole process and the active decision function is swapped behind it.
var (
	hookProc     = syscall.NewCallback(lowLevelKeyboardProc)
	activeDecide atomic.Pointer[func(domain.KeyEvent) domain.Verdict]
)

const hookStopTimeout = 2 * time.Second

func lowLevelKeyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode == hcAction {
		if decide := activeDecide.Load(); decide != nil {
			kb := (*kbdllHookStruct)(unsafe.Pointer(lParam))
			ev := domain.KeyEvent{
				Key:     domain.VirtualKey(kb.VkCode),
				Down:    wParam == wmKeyDown || wParam == wmSysKeyDown,
				AltDown: wParam == wmSysKeyDown || kb.Flags&llkhfAltDown != 0,
			}
			if (*decide)(ev) == domain.Block {
				return 1
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

type hookThread struct {
	threadID uint32
	done     chan struct{}
}

// KeyboardHookImpl implements domain.HookPlatform with WH_KEYBOARD_LL.
// Each hook lives on its own locked OS thread that pumps messages, which
// low-level hooks require for their callbacks to be delivered.
type KeyboardHookImpl struct {
	mu      sync.Mutex
	threads map[domain.HookHandle]hookThread
	logger  *zap.Logger
}

// NewKeyboardHook creates the Windows keyboard hook platform.
func NewKeyboardHook(logger *zap.Logger) domain.HookPlatform {
	return &KeyboardHookImpl{
		threads: make(map[domain.HookHandle]hookThread),
		logger:  logger,
	}
}

type installResult struct {
	handle   uintptr
	threadID uint32
	err      error
}

// Install starts the hook thread and waits until SetWindowsHookExW returns.
func (k *KeyboardHookImpl) Install(decide func(domain.KeyEvent) domain.Verdict) (domain.HookHandle, error) {
	activeDecide.Store(&decide)

	ready := make(chan installResult, 1)
	done := make(chan struct{})

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)

		hmod, _, _ := procGetModuleHandleW.Call(0)
		h, _, err := procSetWindowsHookExW.Call(whKeyboardLL, hookProc, hmod, 0)
		if h == 0 {
			ready <- installResult{err: err}
			return
		}
		ready <- installResult{handle: h, threadID: windows.GetCurrentThreadId()}

		var m msg
		for {
			r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(r) <= 0 {
				break
			}
		}

		if ok, _, err := procUnhookWindowsHookEx.Call(h); ok == 0 {
			k.logger.Warn("UnhookWindowsHookEx failed", zap.Error(err))
		}
	}()

	res := <-ready
	if res.err != nil {
		activeDecide.Store(nil)
		return 0, fmt.Errorf("SetWindowsHookExW: %w", res.err)
	}

	handle := domain.HookHandle(res.handle)
	k.mu.Lock()
	k.threads[handle] = hookThread{threadID: res.threadID, done: done}
	k.mu.Unlock()

	k.logger.Debug("keyboard hook installed", zap.Uint32("thread_id", res.threadID))
	return handle, nil
}

// Uninstall stops the hook thread, which unhooks before exiting.
func (k *KeyboardHookImpl) Uninstall(h domain.HookHandle) error {
	k.mu.Lock()
	t, ok := k.threads[h]
	delete(k.threads, h)
	remaining := len(k.threads)
	k.mu.Unlock()

	if !ok {
		return nil
	}
	if remaining == 0 {
		activeDecide.Store(nil)
	}

	if r, _, err := procPostThreadMessageW.Call(uintptr(t.threadID), wmQuit, 0, 0); r == 0 {
		return fmt.Errorf("PostThreadMessageW: %w", err)
	}

	select {
	case <-t.done:
		return nil
	case <-time.After(hookStopTimeout):
		return fmt.Errorf("hook thread %d did not stop within %s", t.threadID, hookStopTimeout)
	}
}

var _ domain.HookPlatform = (*KeyboardHookImpl)(nil)
