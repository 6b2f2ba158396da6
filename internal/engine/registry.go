package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// Registry is the set of managed applications the engine spawned.
// All operations hold one exclusive lock. The input callback never touches
// it; it reads emptiness from the interceptor snapshot instead.
type Registry struct {
	mu        sync.Mutex
	apps      map[int]domain.LaunchedApp
	inspector domain.ProcessLivenessInspector
	logger    *zap.Logger
}

// NewRegistry creates an empty registry that prunes with inspector.
func NewRegistry(inspector domain.ProcessLivenessInspector, logger *zap.Logger) *Registry {
	return &Registry{
		apps:      make(map[int]domain.LaunchedApp),
		inspector: inspector,
		logger:    logger,
	}
}

// Add inserts app keyed by PID. Re-adding a PID replaces the entry.
func (r *Registry) Add(app domain.LaunchedApp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[app.PID] = app
}

// Remove drops a PID and reports whether it was tracked.
func (r *Registry) Remove(pid int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apps[pid]; !ok {
		return false
	}
	delete(r.apps, pid)
	return true
}

// Prune asks the inspector about every tracked PID and drops the dead ones.
func (r *Registry) Prune(ctx context.Context) domain.PruneResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for pid, app := range r.apps {
		if r.inspector.IsAlive(ctx, pid) {
			continue
		}
		delete(r.apps, pid)
		removed++
		r.logger.Info("managed app exited",
			zap.Int("pid", pid),
			zap.String("path", app.Path),
			zap.String("launch_id", app.LaunchID),
			zap.Duration("ran_for", time.Since(app.LaunchedAt)))
	}

	return domain.PruneResult{Removed: removed, Remaining: len(r.apps)}
}

// IsEmpty reports whether no managed app is tracked.
func (r *Registry) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apps) == 0
}

// Count returns the number of tracked apps.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apps)
}

// Contains reports whether pid is tracked.
func (r *Registry) Contains(pid int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.apps[pid]
	return ok
}

// Snapshot returns the tracked apps ordered by launch time.
func (r *Registry) Snapshot() []domain.LaunchedApp {
	r.mu.Lock()
	out := make([]domain.LaunchedApp, 0, len(r.apps))
	for _, app := range r.apps {
		out = append(out, app)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LaunchedAt.Equal(out[j].LaunchedAt) {
			return out[i].PID < out[j].PID
		}
		return out[i].LaunchedAt.Before(out[j].LaunchedAt)
	})
	return out
}
