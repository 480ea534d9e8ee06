// Autoconnectd keeps a Linux host on Wi-Fi and falls back to a captive
// configuration portal when no saved network is reachable.
//
// Usage:
//
//	autoconnectd [command] [flags]
//
// See 'autoconnectd --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/muurk/autoconnect/internal/logging"
	"github.com/muurk/autoconnect/internal/settings"
	"github.com/muurk/autoconnect/internal/version"
)

// Environment variables read after .env is loaded.
const (
	envSettings = "AUTOCONNECT_SETTINGS"
	envPortal   = "AUTOCONNECT_PORTAL"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	settingsPath string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "autoconnectd",
	Short: "Wi-Fi bootstrap daemon with captive configuration portal",
	Long: `A daemon that joins a saved Wi-Fi network at boot and, when none is
reachable, raises an access point with a captive portal where a new
network can be configured.

Settings are read from the settings file (see 'autoconnectd config path').
A .env file in the working directory is loaded first.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional
		_ = godotenv.Load()
		if settingsPath == "" {
			settingsPath = os.Getenv(envSettings)
		}
		if logLevel != "" {
			return logging.Initialize(logLevel)
		}
		return logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Settings file (default: per-user config directory, or $"+envSettings+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default from $"+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

// loadSettings reads the settings file named by --settings.
func loadSettings() (*settings.Settings, error) {
	return settings.Load(settingsPath)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "autoconnectd "+version.Full())
	},
}
