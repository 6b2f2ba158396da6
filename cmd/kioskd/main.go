// Package main is the CLI entry point for kioskd.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/kioskd/internal/config"
	"github.com/eliteGoblin/focusd/kioskd/internal/control"
	"github.com/eliteGoblin/focusd/kioskd/internal/daemon"
	"github.com/eliteGoblin/focusd/kioskd/internal/engine"
	"github.com/eliteGoblin/focusd/kioskd/internal/heartbeat"
	"github.com/eliteGoblin/focusd/kioskd/internal/infra"
	"github.com/eliteGoblin/focusd/kioskd/internal/monitoring"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kioskd",
	Short: "Kiosk enforcement daemon",
	Long: `kioskd keeps a kiosk PC locked to its host application.

While kiosk mode is on, system shortcuts (Windows keys, Alt+Tab, Alt+F4, ...)
are swallowed and the host window stays on top. Launching a managed app
relaxes suppression so the app is usable; once every managed app exits the
strict lock comes back on its own.

'kioskd serve' runs the engine and its local control API. Every other
command talks to that API.`,
	Version:       Version,
	SilenceUsage:  true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the kiosk engine and the control API in the foreground",
	RunE:  runServe,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start 'kioskd serve' detached from this terminal",
	RunE:  runStart,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	apiAddr      string
	configDir    string
	enableOnBoot bool
	jsonOutput   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "addr", "", "Control API address (default $KIOSKD_LISTEN_ADDR or 127.0.0.1:47110)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config directory (default $KIOSKD_CONFIG_DIR or <user config>/kioskd)")

	serveCmd.Flags().BoolVar(&enableOnBoot, "enable", false, "Enable kiosk shortcuts as soon as the engine starts")
	startCmd.Flags().BoolVar(&enableOnBoot, "enable", false, "Enable kiosk shortcuts as soon as the engine starts")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	addClientCommands(rootCmd)
	addLocalCommands(rootCmd)
}

// loadRuntime reads the environment and applies the global flags on top.
func loadRuntime() (*config.Runtime, *infra.ExecModeConfig, error) {
	rt, err := config.LoadRuntime()
	if err != nil {
		return nil, nil, err
	}
	if apiAddr != "" {
		rt.ListenAddr = apiAddr
	}
	if configDir != "" {
		rt.ConfigDir = configDir
	}

	execMode, err := infra.DetectExecMode(rt.ConfigDir)
	if err != nil {
		return nil, nil, err
	}
	return rt, execMode, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, execMode, err := loadRuntime()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(execMode.ConfigDir, 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	logger := createLogger(rt, execMode.LogPath)
	defer func() { _ = logger.Sync() }()

	host, err := config.LoadHost(execMode.ConfigDir)
	if err != nil {
		return err
	}

	logger.Info("kioskd starting",
		zap.String("version", Version),
		zap.String("exec_mode", string(execMode.Mode)),
		zap.String("config_dir", execMode.ConfigDir),
		zap.String("backend_url", host.BackendURL),
		zap.String("listen_addr", rt.ListenAddr))

	// Initialize infrastructure
	pm := infra.NewProcessManager(logger)
	fs := infra.NewFileSystemManager()
	store := infra.NewFileCredentialStore(execMode.ConfigDir)

	eng := engine.New(
		infra.NewKeyboardHook(logger),
		infra.NewWindowChrome(rt.HostWindowTitle),
		pm,
		pm,
		fs,
		logger,
	)
	metrics := monitoring.NewMetrics(eng.KeysBlocked)
	eng.SetObserver(metrics)

	hb := heartbeat.NewClient(host.BackendURL, store, logger)

	server := control.NewServer(control.Deps{
		Engine:    eng,
		Heartbeat: hb,
		Power:     infra.NewPowerController(logger),
		Shell:     infra.NewShellManager(logger),
		Metrics:   metrics,
		ExecPath:  execMode.Executable,
		Logger:    logger,
	}, rt.LogDev)

	supervisor := daemon.NewSupervisor(daemon.SupervisorConfig{
		PruneInterval:     rt.PruneInterval,
		HeartbeatInterval: rt.HeartbeatInterval,
	}, eng, hb, metrics, logger)

	if enableOnBoot {
		msg, err := eng.EnableSuppression()
		if err != nil {
			logger.Warn("could not enable kiosk shortcuts at startup", zap.Error(err))
		} else {
			logger.Info(msg)
		}
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	errCh := make(chan error, 2)
	go func() { errCh <- supervisor.Run(ctx) }()
	go func() { errCh <- server.Run(ctx, rt.ListenAddr) }()

	// Whichever stops first takes the other down with it.
	first := <-errCh
	cancel()
	second := <-errCh

	for _, err := range []error{first, second} {
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("kioskd stopped with error", zap.Error(err))
			return err
		}
	}
	logger.Info("kioskd stopped")
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	rt, execMode, err := loadRuntime()
	if err != nil {
		return err
	}

	client := control.NewClient(rt.ListenAddr)
	if _, err := client.Status(); err == nil {
		fmt.Printf("kioskd is already running at %s\n", rt.ListenAddr)
		return nil
	}

	var extra []string
	if apiAddr != "" {
		extra = append(extra, "--addr", apiAddr)
	}
	if configDir != "" {
		extra = append(extra, "--config-dir", configDir)
	}
	if enableOnBoot {
		extra = append(extra, "--enable")
	}

	pid, err := daemon.StartDetached(execMode.Executable, extra...)
	if err != nil {
		return err
	}

	fmt.Println("\n=== kioskd Started ===")
	fmt.Printf("PID: %d\n", pid)
	fmt.Printf("Mode: %s\n", execMode.Mode)
	fmt.Printf("Control API: %s\n", rt.ListenAddr)
	fmt.Printf("Log: %s\n", execMode.LogPath)
	fmt.Println("======================")
	return nil
}

// createLogger writes JSON logs to logPath and stderr.
func createLogger(rt *config.Runtime, logPath string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if rt.LogDev {
		cfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(rt.LogLevel); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	cfg.OutputPaths = []string{logPath, "stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("kioskd %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
