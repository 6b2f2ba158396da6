//go:build windows

package infra

import (
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/registry"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// NewShellManager creates a shell manager backed by the Windows registry.
func NewShellManager(logger *zap.Logger) domain.ShellManager {
	return NewShellManagerWithDeps(winRegistry{}, IsElevated, logger)
}

type winRegistry struct{}

func (winRegistry) key(root RegistryRoot) registry.Key {
	if root == RootLocalMachine {
		return registry.LOCAL_MACHINE
	}
	return registry.CURRENT_USER
}

func (w winRegistry) GetString(root RegistryRoot, path, name string) (string, error) {
	k, err := registry.OpenKey(w.key(root), path, registry.QUERY_VALUE)
	if err != nil {
		return "", mapRegistryErr(err)
	}
	defer k.Close()

	v, _, err := k.GetStringValue(name)
	if err != nil {
		return "", mapRegistryErr(err)
	}
	return v, nil
}

func (w winRegistry) SetString(root RegistryRoot, path, name, value string) error {
	k, _, err := registry.CreateKey(w.key(root), path, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.SetStringValue(name, value)
}

func (w winRegistry) SetDWord(root RegistryRoot, path, name string, value uint32) error {
	k, _, err := registry.CreateKey(w.key(root), path, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.SetDWordValue(name, value)
}

func (w winRegistry) DeleteValue(root RegistryRoot, path, name string) error {
	k, err := registry.OpenKey(w.key(root), path, registry.SET_VALUE)
	if err != nil {
		return mapRegistryErr(err)
	}
	defer k.Close()
	return mapRegistryErr(k.DeleteValue(name))
}

func mapRegistryErr(err error) error {
	if errors.Is(err, registry.ErrNotExist) {
		return ErrValueNotFound
	}
	return err
}
