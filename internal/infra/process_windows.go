//go:build windows

package infra

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// DetachedProcAttr gives children their own console and process group so host Ctrl+C never reaches them.
func DetachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.CREATE_NEW_CONSOLE,
	}
}
