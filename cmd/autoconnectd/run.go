package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/autoconnect/internal/daemon"
	"github.com/muurk/autoconnect/internal/logging"
	"github.com/muurk/autoconnect/internal/settings"
)

var (
	runSimulate   bool
	runSSID       string
	runPassphrase string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon",
	Long: `Run the daemon in the foreground, or under the service manager when
started by it.

At startup the daemon joins the most suitable saved network. When none
can be joined it raises the access point and serves the captive portal
until a network is configured.`,
	Example: `  # Run with the settings file defaults
  autoconnectd run

  # Try the portal without touching the real radio
  autoconnectd run --simulate --log-level debug

  # Join a specific network, skipping the saved ones
  autoconnectd run --ssid home --passphrase 'correct horse'`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().BoolVar(&runSimulate, "simulate", false, "Use the simulated radio instead of NetworkManager")
	runCmd.Flags().StringVar(&runSSID, "ssid", "", "Join this network directly")
	runCmd.Flags().StringVar(&runPassphrase, "passphrase", "", "Passphrase for --ssid")
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if runSimulate {
		s.Radio.Driver = settings.DriverSimulator
	}
	if runPassphrase != "" && runSSID == "" {
		return fmt.Errorf("--passphrase requires --ssid")
	}

	level := logLevel
	if level == "" {
		level = s.Log.Level
	}
	if err := logging.InitializeWithFile(level, logging.FileConfig{
		Path:       s.Log.File,
		MaxSizeMB:  s.Log.MaxSizeMB,
		MaxBackups: s.Log.MaxBackups,
		MaxAgeDays: s.Log.MaxAgeDays,
		Compress:   s.Log.Compress,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger := logging.GetLogger()

	var opts []daemon.Option
	if runSSID != "" {
		opts = append(opts, daemon.WithTarget(runSSID, runPassphrase))
	}

	run := func(ctx context.Context) error {
		d, err := daemon.New(s, logger, opts...)
		if err != nil {
			return err
		}
		return d.Run(ctx)
	}

	if daemon.Interactive() {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx)
	}

	svc, err := daemon.NewService(run, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	logger.Info("Running under service manager", zap.String("platform", daemon.Platform()))
	return svc.Run()
}
