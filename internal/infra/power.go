package infra

import (
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// CommandRunner abstracts command execution for testing
type CommandRunner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
}

// RealCommandRunner executes real system commands
type RealCommandRunner struct{}

// Run executes a command and waits for it to complete
func (r *RealCommandRunner) Run(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// Output executes a command and returns its stdout
func (r *RealCommandRunner) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

type powerCommand struct {
	name    string
	args    []string
	message string
}

var powerCommands = map[domain.PowerAction]powerCommand{
	domain.PowerShutdown: {
		name:    "shutdown",
		args:    []string{"/s", "/t", "5", "/c", "kioskd: system shutdown initiated"},
		message: "Shutdown initiated in 5 seconds",
	},
	domain.PowerRestart: {
		name:    "shutdown",
		args:    []string{"/r", "/t", "5", "/c", "kioskd: system restart initiated"},
		message: "Restart initiated in 5 seconds",
	},
	domain.PowerLogoff: {
		name:    "shutdown",
		args:    []string{"/l"},
		message: "Logoff initiated",
	},
	domain.PowerLock: {
		name:    "rundll32.exe",
		args:    []string{"user32.dll,LockWorkStation"},
		message: "Workstation locked",
	},
	domain.PowerCancelShutdown: {
		name:    "shutdown",
		args:    []string{"/a"},
		message: "Shutdown cancelled",
	},
}

// PowerControllerImpl implements domain.PowerController with the Windows shutdown tools.
type PowerControllerImpl struct {
	runner CommandRunner
	goos   string
	logger *zap.Logger
}

// NewPowerController creates a power controller for the running OS.
func NewPowerController(logger *zap.Logger) domain.PowerController {
	return &PowerControllerImpl{
		runner: &RealCommandRunner{},
		goos:   runtime.GOOS,
		logger: logger,
	}
}

// NewPowerControllerWithDeps creates a controller with injectable dependencies (for testing)
func NewPowerControllerWithDeps(runner CommandRunner, goos string, logger *zap.Logger) *PowerControllerImpl {
	return &PowerControllerImpl{runner: runner, goos: goos, logger: logger}
}

// Execute runs action and returns the operator-facing result.
func (p *PowerControllerImpl) Execute(action domain.PowerAction) (string, error) {
	cmd, ok := powerCommands[action]
	if !ok {
		return "", fmt.Errorf("unknown power action %q", action)
	}
	if p.goos != "windows" {
		return "", fmt.Errorf("%s: %w", action, domain.ErrUnsupported)
	}

	if err := p.runner.Run(cmd.name, cmd.args...); err != nil {
		p.logger.Warn("power action failed",
			zap.String("action", string(action)),
			zap.Error(err))
		return "", fmt.Errorf("failed to %s: %w", action, err)
	}

	p.logger.Info("power action executed", zap.String("action", string(action)))
	return cmd.message, nil
}

// Ensure PowerControllerImpl implements domain.PowerController.
var _ domain.PowerController = (*PowerControllerImpl)(nil)
