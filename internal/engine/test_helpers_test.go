package engine

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// mockHookPlatform records installs and keeps the callback so tests can feed it events.
type mockHookPlatform struct {
	mu           sync.Mutex
	next         domain.HookHandle
	live         map[domain.HookHandle]func(domain.KeyEvent) domain.Verdict
	installCalls int
	failInstall  error
	failRemove   error
}

func newMockHookPlatform() *mockHookPlatform {
	return &mockHookPlatform{live: make(map[domain.HookHandle]func(domain.KeyEvent) domain.Verdict)}
}

func (m *mockHookPlatform) Install(decide func(domain.KeyEvent) domain.Verdict) (domain.HookHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.installCalls++
	if m.failInstall != nil {
		return 0, m.failInstall
	}
	m.next++
	m.live[m.next] = decide
	return m.next, nil
}

func (m *mockHookPlatform) Uninstall(h domain.HookHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, h)
	return m.failRemove
}

func (m *mockHookPlatform) liveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// press feeds ev to the live hook. With no hook the OS forwards everything.
func (m *mockHookPlatform) press(ev domain.KeyEvent) domain.Verdict {
	m.mu.Lock()
	var decide func(domain.KeyEvent) domain.Verdict
	for _, d := range m.live {
		decide = d
	}
	m.mu.Unlock()
	if decide == nil {
		return domain.Forward
	}
	return decide(ev)
}

// mockWindow records the last chrome calls.
type mockWindow struct {
	mu             sync.Mutex
	alwaysOnTop    bool
	taskbarVisible bool
	calls          int
	err            error
}

func newMockWindow() *mockWindow {
	return &mockWindow{taskbarVisible: true}
}

func (w *mockWindow) SetAlwaysOnTop(on bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.err != nil {
		return w.err
	}
	w.alwaysOnTop = on
	return nil
}

func (w *mockWindow) SetTaskbarVisible(visible bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.taskbarVisible = visible
	return nil
}

func (w *mockWindow) state() domain.WindowChromeState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return domain.WindowChromeState{AlwaysOnTop: w.alwaysOnTop, TaskbarVisible: w.taskbarVisible}
}

// mockProcesses is both the spawner and the liveness inspector.
type mockProcesses struct {
	mu       sync.Mutex
	nextPID  int
	alive    map[int]bool
	spawnErr error
	spawned  []string
}

func newMockProcesses() *mockProcesses {
	return &mockProcesses{nextPID: 1000, alive: make(map[int]bool)}
}

func (p *mockProcesses) Spawn(path string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spawnErr != nil {
		return 0, p.spawnErr
	}
	p.nextPID++
	p.alive[p.nextPID] = true
	p.spawned = append(p.spawned, path)
	return p.nextPID, nil
}

func (p *mockProcesses) IsAlive(_ context.Context, pid int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive[pid]
}

func (p *mockProcesses) kill(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alive[pid] = false
}

func (p *mockProcesses) killAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for pid := range p.alive {
		p.alive[pid] = false
	}
}

// mockFS treats every path in files as an existing executable.
type mockFS struct {
	files map[string]bool
}

func newMockFS(paths ...string) *mockFS {
	fs := &mockFS{files: make(map[string]bool)}
	for _, p := range paths {
		fs.files[p] = true
	}
	return fs
}

func (f *mockFS) Exists(path string) bool { return f.files[path] }

func (f *mockFS) ExpandHome(path string) string {
	if len(path) > 1 && path[:2] == "~/" {
		return "/home/kiosk/" + path[2:]
	}
	return path
}

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	mu       sync.Mutex
	modes    []domain.KioskMode
	launched int
	pruned   int
}

func (o *recordingObserver) ModeChanged(mode domain.KioskMode, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.modes = append(o.modes, mode)
}

func (o *recordingObserver) AppLaunched() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.launched++
}

func (o *recordingObserver) AppsPruned(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pruned += n
}

const (
	gamePath  = "/opt/games/game.exe"
	otherPath = "/opt/apps/browser.exe"
)

var errDenied = errors.New("access denied")

type fixture struct {
	hooks  *mockHookPlatform
	window *mockWindow
	procs  *mockProcesses
	fs     *mockFS
	engine *Engine
}

func newFixture() *fixture {
	f := &fixture{
		hooks:  newMockHookPlatform(),
		window: newMockWindow(),
		procs:  newMockProcesses(),
		fs:     newMockFS(gamePath, otherPath, "/home/kiosk/bin/tool.exe"),
	}
	f.engine = New(f.hooks, f.window, f.procs, f.procs, f.fs, zap.NewNop())
	return f
}

var (
	altTab  = domain.KeyEvent{Key: domain.KeyTab, Down: true, AltDown: true}
	altF4   = domain.KeyEvent{Key: domain.KeyF4, Down: true, AltDown: true}
	winDown = domain.KeyEvent{Key: domain.KeyLWin, Down: true}
	winUp   = domain.KeyEvent{Key: domain.KeyLWin, Down: false}
	plainA  = domain.KeyEvent{Key: 0x41, Down: true}
)
