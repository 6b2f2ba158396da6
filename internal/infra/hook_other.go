//go:build !windows

package infra

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// KeyboardHookImpl reports that global input interception is unavailable.
type KeyboardHookImpl struct {
	logger *zap.Logger
}

// NewKeyboardHook creates the platform hook. Outside Windows every install fails.
func NewKeyboardHook(logger *zap.Logger) domain.HookPlatform {
	return &KeyboardHookImpl{logger: logger}
}

func (k *KeyboardHookImpl) Install(func(domain.KeyEvent) domain.Verdict) (domain.HookHandle, error) {
	return 0, domain.ErrUnsupported
}

func (k *KeyboardHookImpl) Uninstall(domain.HookHandle) error {
	return nil
}

var _ domain.HookPlatform = (*KeyboardHookImpl)(nil)
