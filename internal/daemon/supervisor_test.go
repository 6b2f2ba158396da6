package daemon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// mockEngine counts the calls the supervisor makes.
type mockEngine struct {
	prunes atomic.Int32
	closed atomic.Bool
}

func (m *mockEngine) EnableSuppression() (string, error)       { return "", nil }
func (m *mockEngine) DisableSuppression() (string, error)      { return "", nil }
func (m *mockEngine) SuppressionStatus() (string, error)       { return "", nil }
func (m *mockEngine) LaunchManagedApp(string) (string, error)  { return "", nil }
func (m *mockEngine) ReconcileChromeForFocus() (string, error) { return "", nil }
func (m *mockEngine) RequestDialogAllowance() (string, error)  { return "", nil }
func (m *mockEngine) Status() domain.EngineStatus              { return domain.EngineStatus{} }
func (m *mockEngine) AllowHostClose() bool                     { return true }

func (m *mockEngine) PruneDeadManagedApps(context.Context) (string, error) {
	m.prunes.Add(1)
	return "ok", nil
}

func (m *mockEngine) Close() error {
	m.closed.Store(true)
	return nil
}

// blockingHeartbeat holds every Send until released.
type blockingHeartbeat struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	release  chan struct{}
	err      error
}

func (b *blockingHeartbeat) Send(ctx context.Context) (map[string]any, error) {
	b.calls.Add(1)
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		cur := b.maxSeen.Load()
		if n <= cur || b.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return map[string]any{"status": "ok"}, b.err
}

type recorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *recorder) RecordHeartbeat(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func TestDefaultSupervisorConfig(t *testing.T) {
	config := DefaultSupervisorConfig()

	assert.Equal(t, 5*time.Second, config.PruneInterval)
	assert.Equal(t, 60*time.Second, config.HeartbeatInterval)
}

func TestSupervisor_PrunesOnTickerAndClosesEngine(t *testing.T) {
	engine := &mockEngine{}
	sup := NewSupervisor(SupervisorConfig{PruneInterval: 10 * time.Millisecond}, engine, nil, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	assert.Eventually(t, func() bool { return engine.prunes.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
	assert.True(t, engine.closed.Load(), "hook must be released on shutdown")
}

func TestSupervisor_HeartbeatsNeverOverlap(t *testing.T) {
	engine := &mockEngine{}
	hb := &blockingHeartbeat{release: make(chan struct{})}
	rec := &recorder{}
	sup := NewSupervisor(SupervisorConfig{
		PruneInterval:     time.Hour,
		HeartbeatInterval: 5 * time.Millisecond,
	}, engine, hb, rec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	// Let many ticks pass while the first heartbeat is stuck
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), hb.calls.Load())

	close(hb.release)
	assert.Eventually(t, func() bool { return hb.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), hb.maxSeen.Load())

	cancel()
	<-done
	assert.GreaterOrEqual(t, rec.count(), 1)
}

func TestSupervisor_HeartbeatDisabled(t *testing.T) {
	engine := &mockEngine{}
	hb := &blockingHeartbeat{release: make(chan struct{}), err: errors.New("unused")}
	sup := NewSupervisor(SupervisorConfig{PruneInterval: time.Hour}, engine, hb, nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := sup.Run(ctx)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, hb.calls.Load())
}
