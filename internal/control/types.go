// Package control is the loopback HTTP API the host UI and the CLI use to
// drive the kiosk engine.
package control

import "github.com/eliteGoblin/focusd/kioskd/internal/domain"

// MessageResponse is the reply of every command endpoint.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is returned with any non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LaunchRequest asks the engine to spawn a managed app.
type LaunchRequest struct {
	Path string `json:"path" binding:"required"`
}

// LockdownRequest optionally overrides the shell executable.
type LockdownRequest struct {
	ExecPath string `json:"exec_path"`
}

// StatusResponse carries the one-line status and the structured snapshot.
type StatusResponse struct {
	Message string              `json:"message"`
	Status  domain.EngineStatus `json:"status"`
}

// AppsResponse lists tracked managed apps.
type AppsResponse struct {
	Apps []domain.LaunchedApp `json:"apps"`
}

// CloseAllowedResponse tells the host whether its window may close.
type CloseAllowedResponse struct {
	Allowed bool `json:"allowed"`
}

// HeartbeatResponse wraps the backend reply.
type HeartbeatResponse struct {
	Message  string         `json:"message"`
	Response map[string]any `json:"response"`
}
