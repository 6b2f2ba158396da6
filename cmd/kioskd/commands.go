package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/config"
	"github.com/eliteGoblin/focusd/kioskd/internal/control"
	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
	"github.com/eliteGoblin/focusd/kioskd/internal/heartbeat"
	"github.com/eliteGoblin/focusd/kioskd/internal/infra"
)

// apiClient returns a control client for the configured address.
func apiClient() (*control.Client, error) {
	rt, err := config.LoadRuntime()
	if err != nil {
		return nil, err
	}
	addr := rt.ListenAddr
	if apiAddr != "" {
		addr = apiAddr
	}
	return control.NewClient(addr), nil
}

// postCmd builds a command that POSTs to path and prints the reply message.
func postCmd(use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := apiClient()
			if err != nil {
				return err
			}
			msg, err := client.Post(path, nil)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
}

// getCmd builds a command that GETs path and prints the reply message.
func getCmd(use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := apiClient()
			if err != nil {
				return err
			}
			msg, err := client.Get(path)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
}

func addClientCommands(root *cobra.Command) {
	root.AddCommand(
		postCmd("enable", "Enable kiosk shortcuts suppression", "/v1/suppression/enable"),
		postCmd("disable", "Disable kiosk shortcuts suppression", "/v1/suppression/disable"),
		statusCmd(),
		launchCmd(),
		postCmd("prune", "Forget managed apps that have exited", "/v1/apps/prune"),
		appsCmd(),
		postCmd("focus", "Reconcile the host window after it regains focus", "/v1/window/focus"),
		postCmd("allow-dialogs", "Relax the lock until the host window regains focus", "/v1/window/dialog-allowance"),
		closeAllowedCmd(),
		heartbeatCmd(),
		powerCmd(),
		lockdownCmd(),
		autoBootCmd(),
	)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the kiosk mode and tracked managed apps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := apiClient()
			if err != nil {
				return err
			}
			resp, err := client.Status()
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(resp)
			}

			st := resp.Status
			fmt.Println("\n=== kioskd Status ===")
			fmt.Println(resp.Message)
			fmt.Printf("Hook installed: %t\n", st.HookInstalled)
			fmt.Printf("Dialog allowance: %t\n", st.DialogAllowance)
			fmt.Printf("Always on top: %t, taskbar visible: %t\n", st.Chrome.AlwaysOnTop, st.Chrome.TaskbarVisible)
			fmt.Printf("Keys blocked: %d\n", st.KeysBlocked)
			printApps(st.ManagedApps)
			fmt.Println("=====================")
			return nil
		},
	}
}

func appsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "List tracked managed apps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := apiClient()
			if err != nil {
				return err
			}
			resp, err := client.Apps()
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(resp)
			}
			printApps(resp.Apps)
			return nil
		},
	}
}

func printApps(apps []domain.LaunchedApp) {
	if len(apps) == 0 {
		fmt.Println("Managed apps: none")
		return
	}
	fmt.Println("Managed apps:")
	for _, app := range apps {
		fmt.Printf("  - [%d] %s (running %s)\n", app.PID, app.Path,
			time.Since(app.LaunchedAt).Round(time.Second))
	}
}

func launchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch <path>",
		Short: "Launch a managed app and relax suppression while it runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := apiClient()
			if err != nil {
				return err
			}
			msg, err := client.Post("/v1/apps/launch", control.LaunchRequest{Path: args[0]})
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
}

func closeAllowedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close-allowed",
		Short: "Report whether the host window may close (exit code 2 when not)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := apiClient()
			if err != nil {
				return err
			}
			allowed, err := client.CloseAllowed()
			if err != nil {
				return err
			}
			if !allowed {
				fmt.Println("Close refused: kiosk mode is on or managed apps are running")
				os.Exit(2)
			}
			fmt.Println("Close allowed")
			return nil
		},
	}
}

var localHeartbeat bool

func heartbeatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Send one signed heartbeat to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if localHeartbeat {
				return sendLocalHeartbeat(cmd.Context())
			}
			client, err := apiClient()
			if err != nil {
				return err
			}
			resp, err := client.Heartbeat()
			if err != nil {
				return err
			}
			fmt.Println(resp.Message)
			return printJSON(resp.Response)
		},
	}
	cmd.Flags().BoolVar(&localHeartbeat, "local", false, "Send from this process instead of through the daemon")
	return cmd
}

func sendLocalHeartbeat(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	execMode, host, err := localConfig()
	if err != nil {
		return err
	}
	store := infra.NewFileCredentialStore(execMode.ConfigDir)
	client := heartbeat.NewClient(host.BackendURL, store, zap.NewNop())

	resp, err := client.Send(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Heartbeat sent")
	return printJSON(resp)
}

func powerCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "power <shutdown|restart|logoff|lock|cancel-shutdown>",
		Short:     "Run a session or power action on the kiosk PC",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"shutdown", "restart", "logoff", "lock", "cancel-shutdown"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := domain.PowerAction(args[0])
			if !action.Valid() {
				return fmt.Errorf("unknown power action %q", args[0])
			}
			client, err := apiClient()
			if err != nil {
				return err
			}
			msg, err := client.Post("/v1/system/"+string(action), nil)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
}

var lockdownExecPath string

func lockdownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lockdown",
		Short: "Replace the Windows shell with kioskd (requires an elevated daemon)",
	}
	setup := &cobra.Command{
		Use:   "setup",
		Short: "Install kioskd as the user shell and disable admin tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := apiClient()
			if err != nil {
				return err
			}
			msg, err := client.Post("/v1/lockdown/setup", control.LockdownRequest{ExecPath: lockdownExecPath})
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
	setup.Flags().StringVar(&lockdownExecPath, "exec-path", "", "Shell executable (default: the daemon's own binary)")

	cmd.AddCommand(
		setup,
		postCmd("teardown", "Restore explorer.exe and re-enable admin tools", "/v1/lockdown/teardown"),
		getCmd("status", "Show whether lockdown is active", "/v1/lockdown/status"),
	)
	return cmd
}

var autoBootExecPath string

func autoBootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autoboot",
		Short: "Start kioskd when the user logs in",
	}
	enable := &cobra.Command{
		Use:   "enable",
		Short: "Register kioskd in the per-user Run key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := apiClient()
			if err != nil {
				return err
			}
			msg, err := client.Post("/v1/autoboot/enable", control.LockdownRequest{ExecPath: autoBootExecPath})
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
	enable.Flags().StringVar(&autoBootExecPath, "exec-path", "", "Executable to start (default: the daemon's own binary)")

	cmd.AddCommand(
		enable,
		postCmd("disable", "Remove kioskd from the Run key", "/v1/autoboot/disable"),
		getCmd("status", "Show whether auto-boot is registered", "/v1/autoboot/status"),
	)
	return cmd
}

// Commands below run in-process and need no daemon.

func addLocalCommands(root *cobra.Command) {
	root.AddCommand(credentialsCmd(), configCmd(), fingerprintCmd())
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print machine-readable output where supported")
}

func localConfig() (*infra.ExecModeConfig, domain.HostConfig, error) {
	dir := configDir
	if dir == "" {
		dir = os.Getenv(config.EnvPrefix + "_CONFIG_DIR")
	}
	execMode, err := infra.DetectExecMode(dir)
	if err != nil {
		return nil, domain.HostConfig{}, err
	}
	host, err := config.LoadHost(execMode.ConfigDir)
	if err != nil {
		return nil, domain.HostConfig{}, err
	}
	return execMode, host, nil
}

var (
	credPCID       int64
	credLicenseKey string
	credSecret     string
)

func credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the device identity used to sign heartbeats",
	}

	save := &cobra.Command{
		Use:   "save",
		Short: "Store device credentials issued at registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			execMode, _, err := localConfig()
			if err != nil {
				return err
			}
			store := infra.NewFileCredentialStore(execMode.ConfigDir)
			if err := store.Save(domain.DeviceCredentials{
				PCID:         credPCID,
				LicenseKey:   credLicenseKey,
				DeviceSecret: credSecret,
			}); err != nil {
				return err
			}
			fmt.Printf("Credentials saved to %s\n", store.Path())
			return nil
		},
	}
	save.Flags().Int64Var(&credPCID, "pc-id", 0, "PC id assigned by the backend")
	save.Flags().StringVar(&credLicenseKey, "license-key", "", "License key")
	save.Flags().StringVar(&credSecret, "device-secret", "", "Shared HMAC secret")
	_ = save.MarkFlagRequired("pc-id")
	_ = save.MarkFlagRequired("device-secret")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the stored device identity (secret masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			execMode, _, err := localConfig()
			if err != nil {
				return err
			}
			store := infra.NewFileCredentialStore(execMode.ConfigDir)
			creds, err := store.Load()
			if errors.Is(err, domain.ErrNotRegistered) {
				fmt.Printf("Not registered (%s missing)\n", store.Path())
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("File: %s\n", store.Path())
			fmt.Printf("PC id: %d\n", creds.PCID)
			fmt.Printf("License key: %s\n", creds.LicenseKey)
			fmt.Printf("Device secret: %s\n", mask(creds.DeviceSecret))
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored device identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			execMode, _, err := localConfig()
			if err != nil {
				return err
			}
			store := infra.NewFileCredentialStore(execMode.ConfigDir)
			if err := store.Reset(); err != nil {
				return err
			}
			fmt.Println("Credentials removed")
			return nil
		},
	}

	cmd.AddCommand(save, show, reset)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the persisted host configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective host configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			execMode, host, err := localConfig()
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(host)
			}
			fmt.Printf("Config file: %s\n", config.HostConfigPath(execMode.ConfigDir))
			fmt.Printf("Backend URL: %s\n", host.BackendURL)
			fmt.Printf("Exec mode: %s\n", execMode.Mode)
			return nil
		},
	}

	setBackend := &cobra.Command{
		Use:   "set-backend-url <url>",
		Short: "Persist the backend base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimRight(strings.TrimSpace(args[0]), "/")
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				return fmt.Errorf("backend URL must start with http:// or https://, got %q", args[0])
			}
			execMode, host, err := localConfig()
			if err != nil {
				return err
			}
			host.BackendURL = url
			if err := config.SaveHost(execMode.ConfigDir, host); err != nil {
				return err
			}
			fmt.Printf("Backend URL set to %s (restart kioskd to apply)\n", url)
			return nil
		},
	}

	cmd.AddCommand(show, setBackend)
	return cmd
}

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the hardware fingerprint used at device registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := infra.Fingerprint(context.Background())
			if err != nil {
				return err
			}
			fmt.Println(fp)
			return nil
		},
	}
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
