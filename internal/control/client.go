package control

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client calls a running kioskd control API. The CLI uses it.
type Client struct {
	http *resty.Client
	addr string
}

// NewClient targets the API listening on addr (host:port or a full URL).
func NewClient(addr string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	r := resty.New().
		SetBaseURL(base).
		SetTimeout(30 * time.Second).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &Client{http: r, addr: addr}
}

// Post sends a command and returns its message.
func (c *Client) Post(path string, body any) (string, error) {
	var out MessageResponse
	req := c.http.R().SetResult(&out)
	if body != nil {
		req.SetBody(body)
	}
	if err := c.do(req, http.MethodPost, path); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Get issues a read command and returns its message.
func (c *Client) Get(path string) (string, error) {
	var out MessageResponse
	if err := c.do(c.http.R().SetResult(&out), http.MethodGet, path); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Status fetches the structured engine status.
func (c *Client) Status() (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(c.http.R().SetResult(&out), http.MethodGet, "/v1/suppression/status"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Apps lists tracked managed apps.
func (c *Client) Apps() (*AppsResponse, error) {
	var out AppsResponse
	if err := c.do(c.http.R().SetResult(&out), http.MethodGet, "/v1/apps"); err != nil {
		return nil, err
	}
	return &out, nil
}

// CloseAllowed asks whether the host window may close.
func (c *Client) CloseAllowed() (bool, error) {
	var out CloseAllowedResponse
	if err := c.do(c.http.R().SetResult(&out), http.MethodGet, "/v1/window/close-allowed"); err != nil {
		return false, err
	}
	return out.Allowed, nil
}

// Heartbeat triggers one heartbeat through the daemon.
func (c *Client) Heartbeat() (*HeartbeatResponse, error) {
	var out HeartbeatResponse
	if err := c.do(c.http.R().SetResult(&out), http.MethodPost, "/v1/heartbeat"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *resty.Request, method, path string) error {
	var apiErr ErrorResponse
	resp, err := req.SetError(&apiErr).Execute(method, path)
	if err != nil {
		return fmt.Errorf("kioskd not reachable at %s (is 'kioskd serve' running?): %w", c.addr, err)
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return nil
}

// APIError is a non-2xx reply from the control API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
