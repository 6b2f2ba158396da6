//go:build !windows

package infra

import "syscall"

// DetachedProcAttr starts children in their own session so they outlive the host.
func DetachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}
}
