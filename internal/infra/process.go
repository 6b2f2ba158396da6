// Package infra implements infrastructure concerns (process, filesystem, OS hooks, persisted records).
package infra

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// livenessTimeout bounds a single PID probe so a prune can't stall the engine.
const livenessTimeout = 2 * time.Second

// ProcessManagerImpl implements domain.ProcessLivenessInspector and
// domain.ProcessSpawner using gopsutil and os/exec.
type ProcessManagerImpl struct {
	logger *zap.Logger
}

// NewProcessManager creates a new process manager.
func NewProcessManager(logger *zap.Logger) *ProcessManagerImpl {
	return &ProcessManagerImpl{logger: logger}
}

// IsAlive checks if a PID exists.
// Lookup failures count as dead so a stale entry can't pin permissive mode forever.
func (pm *ProcessManagerImpl) IsAlive(ctx context.Context, pid int) bool {
	if pid <= 0 {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, livenessTimeout)
	defer cancel()

	exists, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil {
		pm.logger.Debug("pid lookup failed", zap.Int("pid", pid), zap.Error(err))
		return false
	}
	if !exists {
		return false
	}

	// A reaped-but-not-yet-recycled zombie still has a PID entry on unix.
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}
	statuses, err := p.StatusWithContext(ctx)
	if err != nil {
		return true
	}
	for _, s := range statuses {
		if s == process.Zombie {
			return false
		}
	}
	return true
}

// Spawn starts the executable detached from the host and returns its PID.
// The child is reaped in the background; exit is only observed through IsAlive.
func (pm *ProcessManagerImpl) Spawn(path string) (int, error) {
	cmd := exec.Command(path)
	cmd.Dir = filepath.Dir(path)
	cmd.SysProcAttr = DetachedProcAttr()

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to launch %s: %w", path, err)
	}

	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		pm.logger.Debug("managed process reaped", zap.Int("pid", pid), zap.Error(err))
	}()

	return pid, nil
}

// GetCurrentPID returns the current process PID.
func (pm *ProcessManagerImpl) GetCurrentPID() int {
	return os.Getpid()
}

// Ensure ProcessManagerImpl implements the process interfaces.
var (
	_ domain.ProcessLivenessInspector = (*ProcessManagerImpl)(nil)
	_ domain.ProcessSpawner           = (*ProcessManagerImpl)(nil)
)
