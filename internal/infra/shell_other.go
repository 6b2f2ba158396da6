//go:build !windows

package infra

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// NewShellManager returns a manager whose every operation is ErrUnsupported.
func NewShellManager(logger *zap.Logger) domain.ShellManager {
	return unsupportedShellManager{}
}

type unsupportedShellManager struct{}

func (unsupportedShellManager) SetupLockdown(string) (string, error) {
	return "", domain.ErrUnsupported
}

func (unsupportedShellManager) TeardownLockdown() (string, error) {
	return "", domain.ErrUnsupported
}

func (unsupportedShellManager) LockdownStatus() (string, error) {
	return "", domain.ErrUnsupported
}

func (unsupportedShellManager) EnableAutoBoot(string) (string, error) {
	return "", domain.ErrUnsupported
}

func (unsupportedShellManager) DisableAutoBoot() (string, error) {
	return "", domain.ErrUnsupported
}

func (unsupportedShellManager) AutoBootStatus() (string, error) {
	return "", domain.ErrUnsupported
}
