package domain

import "errors"

var (
	// ErrUnsupported is returned when an operation has no meaning on this OS.
	ErrUnsupported = errors.New("not supported on this platform")

	// ErrExecutableNotFound is returned before any spawn attempt when the path does not exist.
	ErrExecutableNotFound = errors.New("executable not found")

	// ErrNotRegistered is returned when no device credential file exists.
	ErrNotRegistered = errors.New("device not registered, please register first")

	// ErrInvalidCredentials is returned when the credential file is malformed or incomplete.
	ErrInvalidCredentials = errors.New("invalid device credentials")

	// ErrNotElevated is returned when an operation needs administrator rights.
	ErrNotElevated = errors.New("administrator privileges required: right-click kioskd, select 'Run as administrator' and try again")

	// ErrUpstream is returned when the backend is unreachable or answers non-2xx.
	ErrUpstream = errors.New("backend request failed")

	// ErrHookInstall is returned when the OS refuses to install the input hook.
	ErrHookInstall = errors.New("failed to install keyboard hook")
)
