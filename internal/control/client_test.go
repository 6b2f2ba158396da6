package control

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

func TestClient_RoundTrip(t *testing.T) {
	f := newFixture()
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	c := NewClient(strings.TrimPrefix(ts.URL, "http://"))

	msg, err := c.Post("/v1/suppression/enable", nil)
	require.NoError(t, err)
	assert.Contains(t, msg, "enabled")

	msg, err = c.Post("/v1/apps/launch", LaunchRequest{Path: "/opt/game"})
	require.NoError(t, err)
	assert.Equal(t, "Launched /opt/game", msg)

	st, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, "disabled", st.Status.ModeName)

	allowed, err := c.CloseAllowed()
	require.NoError(t, err)
	assert.False(t, allowed)

	apps, err := c.Apps()
	require.NoError(t, err)
	assert.Len(t, apps.Apps, 1)

	hb, err := c.Heartbeat()
	require.NoError(t, err)
	assert.Equal(t, "ok", hb.Response["status"])

	msg, err = c.Get("/v1/lockdown/status")
	require.NoError(t, err)
	assert.Equal(t, "Normal mode (Explorer shell)", msg)
}

func TestClient_APIError(t *testing.T) {
	f := newFixture()
	f.engine.launchErr = domain.ErrExecutableNotFound
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	_, err := NewClient(ts.URL).Post("/v1/apps/launch", LaunchRequest{Path: "/nope"})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.Contains(t, err.Error(), "executable not found")
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.URL
	ts.Close()

	_, err := NewClient(addr).Post("/v1/suppression/enable", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}
