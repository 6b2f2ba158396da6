//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/control"
	"github.com/eliteGoblin/focusd/kioskd/internal/daemon"
	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
	"github.com/eliteGoblin/focusd/kioskd/internal/engine"
	"github.com/eliteGoblin/focusd/kioskd/internal/heartbeat"
	"github.com/eliteGoblin/focusd/kioskd/internal/infra"
	"github.com/eliteGoblin/focusd/kioskd/internal/monitoring"
	"github.com/eliteGoblin/focusd/kioskd/test/fixtures"
)

// recordingHooks stands in for the OS hook and keeps the callback.
type recordingHooks struct {
	mu     sync.Mutex
	decide func(domain.KeyEvent) domain.Verdict
}

func (h *recordingHooks) Install(decide func(domain.KeyEvent) domain.Verdict) (domain.HookHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.decide = decide
	return 1, nil
}

func (h *recordingHooks) Uninstall(domain.HookHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.decide = nil
	return nil
}

func (h *recordingHooks) press(ev domain.KeyEvent) domain.Verdict {
	h.mu.Lock()
	decide := h.decide
	h.mu.Unlock()
	if decide == nil {
		return domain.Forward
	}
	return decide(ev)
}

type nopWindow struct{}

func (nopWindow) SetAlwaysOnTop(bool) error    { return nil }
func (nopWindow) SetTaskbarVisible(bool) error { return nil }

var altTab = domain.KeyEvent{Key: domain.KeyTab, Down: true, AltDown: true}

var _ = Describe("Kiosk engine with real processes", func() {
	var (
		tmpDir  string
		hooks   *recordingHooks
		eng     *engine.Engine
		metrics *monitoring.Metrics
		client  *control.Client
		api     *httptest.Server
		cancel  context.CancelFunc
		done    chan error
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "kioskd-integration-*")
		Expect(err).NotTo(HaveOccurred())

		logger, _ := zap.NewDevelopment()
		pm := infra.NewProcessManager(logger)
		hooks = &recordingHooks{}
		eng = engine.New(hooks, nopWindow{}, pm, pm, infra.NewFileSystemManager(), logger)
		metrics = monitoring.NewMetrics(eng.KeysBlocked)
		eng.SetObserver(metrics)

		server := control.NewServer(control.Deps{
			Engine:    eng,
			Heartbeat: heartbeat.NewClient("http://127.0.0.1:1", infra.NewFileCredentialStore(tmpDir), logger),
			Power:     infra.NewPowerController(logger),
			Shell:     infra.NewShellManager(logger),
			Metrics:   metrics,
			Logger:    logger,
		}, false)
		api = httptest.NewServer(server.Handler())
		client = control.NewClient(api.URL)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		supervisor := daemon.NewSupervisor(daemon.SupervisorConfig{
			PruneInterval: 50 * time.Millisecond,
		}, eng, nil, metrics, logger)
		done = make(chan error, 1)
		go func() { done <- supervisor.Run(ctx) }()
	})

	AfterEach(func() {
		cancel()
		Eventually(done, 5*time.Second).Should(Receive())
		api.Close()
		os.RemoveAll(tmpDir)
	})

	Context("when a managed app runs and exits", func() {
		It("relaxes to permissive and returns to strict on its own", func() {
			app := fixtures.NewFakeApp(filepath.Join(tmpDir, "apps"), "game")
			Expect(app.Create(1)).To(Succeed())

			msg, err := client.Post("/v1/suppression/enable", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal("Kiosk shortcuts enabled (strict mode)"))
			Expect(hooks.press(altTab)).To(Equal(domain.Block))

			msg, err = client.Post("/v1/apps/launch", control.LaunchRequest{Path: app.Path()})
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(HavePrefix("Launched "))

			Expect(eng.Status().Mode).To(Equal(domain.ModePermissive))
			Expect(hooks.press(altTab)).To(Equal(domain.Forward))

			allowed, err := client.CloseAllowed()
			Expect(err).NotTo(HaveOccurred())
			Expect(allowed).To(BeFalse())

			Eventually(func() domain.KioskMode {
				return eng.Status().Mode
			}, 10*time.Second, 100*time.Millisecond).Should(Equal(domain.ModeStrict))
			Expect(hooks.press(altTab)).To(Equal(domain.Block))

			apps, err := client.Apps()
			Expect(err).NotTo(HaveOccurred())
			Expect(apps.Apps).To(BeEmpty())
		})
	})

	Context("when the executable does not exist", func() {
		It("rejects the launch with 400 and stays strict", func() {
			_, err := client.Post("/v1/suppression/enable", nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Post("/v1/apps/launch", control.LaunchRequest{Path: filepath.Join(tmpDir, "missing")})
			Expect(control.IsStatus(err, http.StatusBadRequest)).To(BeTrue())
			Expect(eng.Status().Mode).To(Equal(domain.ModeStrict))
		})
	})

	Context("when kiosk mode is disabled with an app still running", func() {
		It("allows close only after the app exits", func() {
			app := fixtures.NewFakeApp(filepath.Join(tmpDir, "apps"), "tool")
			Expect(app.Create(1)).To(Succeed())

			_, err := client.Post("/v1/suppression/enable", nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = client.Post("/v1/apps/launch", control.LaunchRequest{Path: app.Path()})
			Expect(err).NotTo(HaveOccurred())
			_, err = client.Post("/v1/suppression/disable", nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(eng.AllowHostClose()).To(BeFalse())
			Eventually(eng.AllowHostClose, 10*time.Second, 100*time.Millisecond).Should(BeTrue())
			Expect(eng.Status().Mode).To(Equal(domain.ModeDisabled))
		})
	})

	Context("when the device is not registered", func() {
		It("reports 401 for a manual heartbeat", func() {
			_, err := client.Heartbeat()
			Expect(control.IsStatus(err, http.StatusUnauthorized)).To(BeTrue())
		})
	})

	It("exposes engine metrics", func() {
		_, err := client.Post("/v1/suppression/enable", nil)
		Expect(err).NotTo(HaveOccurred())
		hooks.press(altTab)

		resp, err := http.Get(api.URL + "/metrics")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())

		Expect(string(body)).To(ContainSubstring("kioskd_mode 1"))
		Expect(string(body)).To(ContainSubstring("kioskd_keys_blocked_total 1"))
	})
})

var _ = Describe("Heartbeat against a backend", func() {
	It("sends a signed heartbeat with stored credentials", func() {
		var gotPCID string
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPCID = r.Header.Get(heartbeat.HeaderPCID)
			body, _ := io.ReadAll(r.Body)
			if !heartbeat.Verify("s3cret", body, r.Header.Get(heartbeat.HeaderSignature)) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "command": "none"})
		}))
		defer backend.Close()

		tmpDir := GinkgoT().TempDir()
		store := infra.NewFileCredentialStore(tmpDir)
		Expect(store.Save(domain.DeviceCredentials{PCID: 42, LicenseKey: "LIC", DeviceSecret: "s3cret"})).To(Succeed())

		client := heartbeat.NewClient(backend.URL, store, zap.NewNop())
		resp, err := client.Send(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(gotPCID).To(Equal("42"))
		Expect(resp).To(HaveKeyWithValue("command", "none"))
	})
})
