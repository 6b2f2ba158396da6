package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
	"github.com/eliteGoblin/focusd/kioskd/internal/monitoring"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 5 * time.Second

// Deps are the collaborators the API dispatches to.
type Deps struct {
	Engine    domain.KioskEngine
	Heartbeat domain.HeartbeatSender
	Power     domain.PowerController
	Shell     domain.ShellManager
	Metrics   *monitoring.Metrics
	ExecPath  string // shell and auto-boot target when the request names none
	Logger    *zap.Logger
}

// Server wraps the gin router and its dependencies.
type Server struct {
	router *gin.Engine
	deps   Deps
	logger *zap.Logger
}

// NewServer builds the router. Nothing listens until Run.
func NewServer(deps Deps, development bool) *Server {
	if !development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	s := &Server{router: router, deps: deps, logger: deps.Logger}

	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(monitoring.Middleware(deps.Metrics))
	router.Use(s.accessLog())

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/suppression/enable", s.command(deps.Engine.EnableSuppression))
		v1.POST("/suppression/disable", s.command(deps.Engine.DisableSuppression))
		v1.GET("/suppression/status", s.status)

		v1.POST("/apps/launch", s.launch)
		v1.POST("/apps/prune", s.prune)
		v1.GET("/apps", s.apps)

		v1.POST("/window/focus", s.command(deps.Engine.ReconcileChromeForFocus))
		v1.POST("/window/dialog-allowance", s.command(deps.Engine.RequestDialogAllowance))
		v1.GET("/window/close-allowed", s.closeAllowed)

		v1.POST("/heartbeat", s.heartbeat)

		v1.POST("/system/:action", s.power)

		v1.POST("/lockdown/setup", s.lockdownSetup)
		v1.POST("/lockdown/teardown", s.command(deps.Shell.TeardownLockdown))
		v1.GET("/lockdown/status", s.command(deps.Shell.LockdownStatus))

		v1.POST("/autoboot/enable", s.autoBootEnable)
		v1.POST("/autoboot/disable", s.command(deps.Shell.DisableAutoBoot))
		v1.GET("/autoboot/status", s.command(deps.Shell.AutoBootStatus))
	}

	return s
}

// Handler returns the router (for httptest).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("control API listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down control API: %w", err)
		}
		return nil
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// command adapts a (string, error) operation to a handler.
func (s *Server) command(op func() (string, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.reply(c)(op())
	}
}

func (s *Server) status(c *gin.Context) {
	msg, err := s.deps.Engine.SuppressionStatus()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Message: msg, Status: s.deps.Engine.Status()})
}

func (s *Server) launch(c *gin.Context) {
	var req LaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "request body must be {\"path\": \"<executable>\"}"})
		return
	}
	s.reply(c)(s.deps.Engine.LaunchManagedApp(req.Path))
}

func (s *Server) prune(c *gin.Context) {
	s.reply(c)(s.deps.Engine.PruneDeadManagedApps(c.Request.Context()))
}

func (s *Server) apps(c *gin.Context) {
	c.JSON(http.StatusOK, AppsResponse{Apps: s.deps.Engine.Status().ManagedApps})
}

func (s *Server) closeAllowed(c *gin.Context) {
	c.JSON(http.StatusOK, CloseAllowedResponse{Allowed: s.deps.Engine.AllowHostClose()})
}

func (s *Server) heartbeat(c *gin.Context) {
	reply, err := s.deps.Heartbeat.Send(c.Request.Context())
	s.deps.Metrics.RecordHeartbeat(err)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, HeartbeatResponse{Message: "Heartbeat sent", Response: reply})
}

func (s *Server) power(c *gin.Context) {
	action := domain.PowerAction(c.Param("action"))
	if !action.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unknown power action %q", action)})
		return
	}
	s.reply(c)(s.deps.Power.Execute(action))
}

func (s *Server) lockdownSetup(c *gin.Context) {
	s.reply(c)(s.deps.Shell.SetupLockdown(s.execPath(c)))
}

func (s *Server) autoBootEnable(c *gin.Context) {
	s.reply(c)(s.deps.Shell.EnableAutoBoot(s.execPath(c)))
}

// execPath reads an optional exec_path override; an empty body is fine.
func (s *Server) execPath(c *gin.Context) string {
	var req LockdownRequest
	if c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if req.ExecPath != "" {
		return req.ExecPath
	}
	return s.deps.ExecPath
}

func (s *Server) reply(c *gin.Context) func(string, error) {
	return func(msg string, err error) {
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, MessageResponse{Message: msg})
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("command failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// StatusFor maps an error kind to the HTTP status the API returns.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrExecutableNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotRegistered), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotElevated):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/metrics" || c.FullPath() == "/healthz" {
			return
		}
		s.logger.Debug("control request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")))
	}
}
