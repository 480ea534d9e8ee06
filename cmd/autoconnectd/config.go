package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/autoconnect/internal/acconfig"
	"github.com/muurk/autoconnect/internal/daemon"
	"github.com/muurk/autoconnect/internal/logging"
	"github.com/muurk/autoconnect/internal/nvstore"
	"github.com/muurk/autoconnect/internal/settings"
	"github.com/muurk/autoconnect/internal/ui"
)

var (
	showRaw  bool
	resetYes bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the settings and the saved portal configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settingsPath
		if path == "" {
			p, err := settings.Path()
			if err != nil {
				return err
			}
			path = p
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the settings and the saved portal configuration",
	Long: `Show the daemon settings and the portal configuration held in the
store. With --raw the stored archive is dumped as hex instead.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change one settings key and save the file",
	Example: `  autoconnectd config set web.port 8080
  autoconnectd config set radio.driver simulator
  autoconnectd config set defaults.flags.autoReconnect true`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		if err := s.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := s.Save(settingsPath); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).Success("Setting updated", []ui.Field{
			{Key: args[0], Value: args[1]},
		})
		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the settings file with every default filled in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		if err := s.Save(settingsPath); err != nil {
			return err
		}
		path := settingsPath
		if path == "" {
			path, _ = settings.Path()
		}
		ui.NewPrinter(cmd.OutOrStdout()).Success("Settings saved", []ui.Field{{Key: "Path", Value: path}})
		return nil
	},
}

var configPortalCmd = &cobra.Command{
	Use:   "portal KEY VALUE",
	Short: "Change one field of the saved portal configuration",
	Long: `Change one field of the portal configuration held in the store. Keys
are those of the settings 'defaults' section, e.g. title, ap_id, psk,
begin_timeout, portal_timeout, min_rssi, principle or flags.NAME.`,
	Example: `  autoconnectd config portal title Garage
  autoconnectd config portal portal_timeout 5m
  autoconnectd config portal flags.retainPortal true`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigPortal,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the saved portal configuration to its defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes && !ui.Confirm(os.Stdin, cmd.OutOrStdout(), "RESET PORTAL CONFIGURATION", []string{
			"The saved portal configuration is replaced by the defaults",
			"Saved networks are kept",
		}) {
			return nil
		}
		s, err := loadSettings()
		if err != nil {
			return err
		}
		off, err := daemon.OpenOffline(s, logging.GetLogger())
		if err != nil {
			return err
		}
		defer off.Close()

		off.ResetConfig()
		if err := off.SaveConfig(); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).Success("Portal configuration reset", nil)
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&showRaw, "raw", false, "Dump the stored archive bytes")
	configResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")

	configCmd.AddCommand(configPathCmd, configShowCmd, configSetCmd, configSaveCmd, configPortalCmd, configResetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	off, err := daemon.OpenOffline(s, logging.GetLogger())
	if err != nil {
		return err
	}
	defer off.Close()

	p := ui.NewPrinter(cmd.OutOrStdout())

	if showRaw {
		rec, err := nvstore.LoadFramed(off.Store(), acconfig.Selector(s.Storage.ConfigOffset), acconfig.Magic)
		if nvstore.IsNotFound(err) {
			p.Warning("No portal configuration saved", []ui.Field{{Key: "Store", Value: off.Store().Name()}})
			return nil
		}
		if err != nil {
			return err
		}
		logging.LogRawBytes("portal archive", rec)
		p.Fields([]ui.Field{
			{Key: "Store", Value: off.Store().Name()},
			{Key: "Offset", Value: fmt.Sprint(s.Storage.ConfigOffset)},
			{Key: "Length", Value: fmt.Sprint(len(rec))},
			{Key: "Hex", Value: logging.HexDump(rec)},
			{Key: "ASCII", Value: logging.ASCIIDump(rec)},
		})
		return nil
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	p.Header("Settings", "autoconnectd config show", nil)
	p.Println(strings.TrimRight(string(data), "\n"))
	p.Println("")

	cfg := off.Config()
	p.Header("Portal configuration", off.Store().Name(), nil)
	p.Fields(portalFields(cfg))
	return nil
}

func portalFields(cfg acconfig.PortalConfig) []ui.Field {
	hidden := "no"
	if cfg.Hidden != 0 {
		hidden = "yes"
	}
	portalTimeout := "disabled"
	if cfg.PortalTimeout > 0 {
		portalTimeout = fmt.Sprintf("%dms", cfg.PortalTimeout)
	}
	return []ui.Field{
		{Key: "Title", Value: cfg.Title},
		{Key: "AP SSID", Value: cfg.APID},
		{Key: "AP PSK", Value: logging.Redact(cfg.PSK)},
		{Key: "AP address", Value: cfg.APIP.String()},
		{Key: "Channel", Value: fmt.Sprint(cfg.Channel)},
		{Key: "Hidden", Value: hidden},
		{Key: "Flags", Value: cfg.Flags.String()},
		{Key: "Begin timeout", Value: fmt.Sprintf("%dms", cfg.BeginTimeout)},
		{Key: "Portal timeout", Value: portalTimeout},
		{Key: "Min RSSI", Value: fmt.Sprintf("%d dBm", cfg.MinRSSI)},
		{Key: "Principle", Value: cfg.Principle.String()},
		{Key: "Home URI", Value: cfg.HomeURI},
		{Key: "Hostname", Value: cfg.HostName},
	}
}

// parseOverride decodes one "defaults"-style key into an Overrides.
func parseOverride(key, value string) (*settings.Overrides, error) {
	doc := key + ": " + value
	if name, ok := strings.CutPrefix(key, "flags."); ok {
		doc = "flags:\n  " + name + ": " + value
	}
	var o settings.Overrides
	dec := yaml.NewDecoder(strings.NewReader(doc))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &o, nil
}

func runConfigPortal(cmd *cobra.Command, args []string) error {
	o, err := parseOverride(args[0], args[1])
	if err != nil {
		return err
	}
	s, err := loadSettings()
	if err != nil {
		return err
	}
	off, err := daemon.OpenOffline(s, logging.GetLogger())
	if err != nil {
		return err
	}
	defer off.Close()

	cfg := off.Config()
	if err := o.Apply(&cfg); err != nil {
		return err
	}
	if err := off.SetConfig(cfg); err != nil {
		return err
	}
	if err := off.SaveConfig(); err != nil {
		return err
	}
	ui.NewPrinter(cmd.OutOrStdout()).Success("Portal configuration saved", []ui.Field{
		{Key: args[0], Value: args[1]},
		{Key: "Store", Value: off.Store().Name()},
	})
	return nil
}
