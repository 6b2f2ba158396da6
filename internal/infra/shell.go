package infra

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// RegistryRoot selects a registry hive.
type RegistryRoot int

const (
	RootCurrentUser RegistryRoot = iota
	RootLocalMachine
)

func (r RegistryRoot) String() string {
	if r == RootLocalMachine {
		return "HKLM"
	}
	return "HKCU"
}

// ErrValueNotFound is returned by a RegistryStore for a missing value or key.
var ErrValueNotFound = errors.New("registry value not found")

// RegistryStore is the subset of registry access lockdown needs.
type RegistryStore interface {
	GetString(root RegistryRoot, path, name string) (string, error)
	SetString(root RegistryRoot, path, name, value string) error
	SetDWord(root RegistryRoot, path, name string, value uint32) error
	DeleteValue(root RegistryRoot, path, name string) error
}

const (
	winlogonKey     = `SOFTWARE\Microsoft\Windows NT\CurrentVersion\Winlogon`
	runKey          = `Software\Microsoft\Windows\CurrentVersion\Run`
	systemPolicyKey = `Software\Microsoft\Windows\CurrentVersion\Policies\System`

	shellValue       = "Shell"
	shellBackupValue = "Shell_Backup"
	runValue         = "kioskd"
	defaultShell     = "explorer.exe"
)

var lockdownPolicies = []string{"DisableTaskMgr", "DisableRegistryTools"}

// ShellManagerImpl implements domain.ShellManager over a RegistryStore.
type ShellManagerImpl struct {
	store      RegistryStore
	isElevated func() bool
	logger     *zap.Logger
}

// NewShellManagerWithDeps creates a shell manager with injectable dependencies (for testing)
func NewShellManagerWithDeps(store RegistryStore, isElevated func() bool, logger *zap.Logger) *ShellManagerImpl {
	return &ShellManagerImpl{store: store, isElevated: isElevated, logger: logger}
}

// SetupLockdown makes execPath the login shell and locks down admin tools.
// Only the shell write is mandatory; everything else is logged on failure.
func (s *ShellManagerImpl) SetupLockdown(execPath string) (string, error) {
	if !s.isElevated() {
		return "", domain.ErrNotElevated
	}

	backup := defaultShell
	if current, err := s.store.GetString(RootLocalMachine, winlogonKey, shellValue); err == nil && current != "" && !isKioskShell(current) {
		backup = current
	}
	s.bestEffort("backup shell", s.store.SetString(RootLocalMachine, winlogonKey, shellBackupValue, backup))

	if err := s.store.SetString(RootLocalMachine, winlogonKey, shellValue, execPath); err != nil {
		return "", fmt.Errorf("failed to set shell: %w", err)
	}

	s.bestEffort("user startup entry", s.store.SetString(RootCurrentUser, runKey, runValue, execPath))
	s.bestEffort("machine startup entry", s.store.SetString(RootLocalMachine, runKey, runValue, execPath))
	for _, policy := range lockdownPolicies {
		s.bestEffort(policy, s.store.SetDWord(RootCurrentUser, systemPolicyKey, policy, 1))
	}

	s.logger.Info("lockdown configured", zap.String("shell", execPath), zap.String("backup", backup))
	return fmt.Sprintf("Lockdown enabled. Restart required. Shell set to: %s", execPath), nil
}

// TeardownLockdown restores the backed-up shell and removes lockdown entries.
func (s *ShellManagerImpl) TeardownLockdown() (string, error) {
	if !s.isElevated() {
		return "", domain.ErrNotElevated
	}

	shell := defaultShell
	if backup, err := s.store.GetString(RootLocalMachine, winlogonKey, shellBackupValue); err == nil && backup != "" && !isKioskShell(backup) {
		shell = backup
	}
	if err := s.store.SetString(RootLocalMachine, winlogonKey, shellValue, shell); err != nil {
		return "", fmt.Errorf("failed to restore shell: %w", err)
	}

	s.bestEffort("backup shell", ignoreMissing(s.store.DeleteValue(RootLocalMachine, winlogonKey, shellBackupValue)))
	s.bestEffort("user startup entry", ignoreMissing(s.store.DeleteValue(RootCurrentUser, runKey, runValue)))
	s.bestEffort("machine startup entry", ignoreMissing(s.store.DeleteValue(RootLocalMachine, runKey, runValue)))
	for _, policy := range lockdownPolicies {
		s.bestEffort(policy, ignoreMissing(s.store.DeleteValue(RootCurrentUser, systemPolicyKey, policy)))
	}

	s.logger.Info("lockdown removed", zap.String("shell", shell))
	return fmt.Sprintf("Lockdown disabled. Restart required. Shell restored to %s", shell), nil
}

// LockdownStatus reports which shell the machine boots into.
func (s *ShellManagerImpl) LockdownStatus() (string, error) {
	shell, err := s.store.GetString(RootLocalMachine, winlogonKey, shellValue)
	if err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return "Normal mode (Explorer shell)", nil
		}
		return "Unable to determine shell status", nil
	}

	switch {
	case strings.Contains(strings.ToLower(shell), defaultShell):
		return "Normal mode (Explorer shell)", nil
	case isKioskShell(shell):
		return fmt.Sprintf("Kiosk mode (%s)", shell), nil
	default:
		return fmt.Sprintf("Custom shell detected: %s", shell), nil
	}
}

// EnableAutoBoot starts execPath at user logon.
func (s *ShellManagerImpl) EnableAutoBoot(execPath string) (string, error) {
	if err := s.store.SetString(RootCurrentUser, runKey, runValue, execPath); err != nil {
		return "", fmt.Errorf("failed to enable auto-boot: %w", err)
	}
	return fmt.Sprintf("Auto-boot enabled. kioskd will start with Windows: %s", execPath), nil
}

// DisableAutoBoot removes the logon entry. A missing entry is not an error.
func (s *ShellManagerImpl) DisableAutoBoot() (string, error) {
	if err := ignoreMissing(s.store.DeleteValue(RootCurrentUser, runKey, runValue)); err != nil {
		return "", fmt.Errorf("failed to disable auto-boot: %w", err)
	}
	return "Auto-boot disabled. kioskd will not start with Windows", nil
}

// AutoBootStatus reports whether the logon entry exists.
func (s *ShellManagerImpl) AutoBootStatus() (string, error) {
	v, err := s.store.GetString(RootCurrentUser, runKey, runValue)
	if err != nil || v == "" {
		return "Auto-boot disabled", nil
	}
	return "Auto-boot enabled", nil
}

func (s *ShellManagerImpl) bestEffort(what string, err error) {
	if err != nil {
		s.logger.Warn("lockdown step failed", zap.String("step", what), zap.Error(err))
	}
}

func isKioskShell(shell string) bool {
	return strings.Contains(strings.ToLower(shell), "kioskd")
}

func ignoreMissing(err error) error {
	if errors.Is(err, ErrValueNotFound) {
		return nil
	}
	return err
}

// Ensure ShellManagerImpl implements domain.ShellManager.
var _ domain.ShellManager = (*ShellManagerImpl)(nil)
