package heartbeat

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// Path is the heartbeat endpoint relative to the backend URL.
const Path = "/api/clientpc/heartbeat"

// Header names carried by every heartbeat.
const (
	HeaderPCID      = "X-PC-ID"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
)

const requestTimeout = 15 * time.Second

// Body is the signed heartbeat payload.
type Body struct {
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// Client implements domain.HeartbeatSender.
// One attempt per Send; retry policy belongs to the caller.
type Client struct {
	http       *resty.Client
	store      domain.CredentialStore
	backendURL string
	now        func() time.Time
	logger     *zap.Logger
}

// NewClient creates a heartbeat client for backendURL.
func NewClient(backendURL string, store domain.CredentialStore, logger *zap.Logger) *Client {
	r := resty.New().
		SetTimeout(requestTimeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "kioskd-heartbeat/1.0")
	return NewClientWithDeps(r, backendURL, store, time.Now, logger)
}

// NewClientWithDeps creates a client with injectable dependencies (for testing)
func NewClientWithDeps(r *resty.Client, backendURL string, store domain.CredentialStore, now func() time.Time, logger *zap.Logger) *Client {
	return &Client{
		http:       r,
		store:      store,
		backendURL: strings.TrimRight(backendURL, "/"),
		now:        now,
		logger:     logger,
	}
}

// Send posts one signed heartbeat and returns the backend's JSON reply.
// Credential problems fail before anything is signed or sent.
func (c *Client) Send(ctx context.Context) (map[string]any, error) {
	creds, err := c.store.Load()
	if err != nil {
		return nil, err
	}

	ts := strconv.FormatInt(c.now().Unix(), 10)
	body, err := json.Marshal(Body{Timestamp: ts, Status: "online"})
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(HeaderPCID, strconv.FormatInt(creds.PCID, 10)).
		SetHeader(HeaderSignature, Sign(creds.DeviceSecret, body)).
		SetHeader(HeaderTimestamp, ts).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.backendURL + Path)
	if err != nil {
		c.logger.Warn("heartbeat network error", zap.Error(err))
		return nil, fmt.Errorf("%w: heartbeat network error: %v", domain.ErrUpstream, err)
	}

	if !resp.IsSuccess() {
		c.logger.Warn("heartbeat rejected",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", truncate(resp.String(), 256)))
		return nil, fmt.Errorf("%w: heartbeat failed: HTTP %d - %s", domain.ErrUpstream, resp.StatusCode(), resp.String())
	}

	var reply map[string]any
	if err := json.Unmarshal(resp.Body(), &reply); err != nil || reply == nil {
		reply = map[string]any{"status": "ok"}
	}

	c.logger.Debug("heartbeat sent", zap.Int64("pc_id", creds.PCID), zap.Int("status", resp.StatusCode()))
	return reply, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Ensure Client implements domain.HeartbeatSender.
var _ domain.HeartbeatSender = (*Client)(nil)
