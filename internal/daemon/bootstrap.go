package daemon

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/eliteGoblin/focusd/kioskd/internal/infra"
)

// StartDetached spawns `<executable> serve` detached from the calling terminal.
// The child runs independently and returns its PID.
func StartDetached(executable string, extraArgs ...string) (int, error) {
	if executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return 0, err
		}
		executable = exe
	}

	args := append([]string{"serve"}, extraArgs...)
	cmd := exec.Command(executable, args...)
	cmd.SysProcAttr = infra.DetachedProcAttr()

	// No stdin/stdout/stderr - fully detached
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start kioskd daemon: %w", err)
	}
	pid := cmd.Process.Pid

	// Let the child go; we never wait on it.
	_ = cmd.Process.Release()
	return pid, nil
}
