package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/autoconnect/internal/clock"
	"github.com/muurk/autoconnect/internal/daemon"
	"github.com/muurk/autoconnect/internal/logging"
	"github.com/muurk/autoconnect/internal/radio"
	"github.com/muurk/autoconnect/internal/ui"
)

var scanMinRSSI int

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for networks with the configured radio",
	Long: `Run one scan with the radio driver from the settings file and list
the networks seen, strongest first. This does not talk to a running
daemon.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		drv, err := daemon.NewRadio(s, clock.Real(), logging.GetLogger())
		if err != nil {
			return err
		}

		start := time.Now()
		results, err := drv.Scan(cmd.Context())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		logging.LogScan(len(results), time.Since(start))

		rows := make([][]string, 0, len(results))
		for _, r := range radio.SortBySignal(results) {
			if r.RSSI < scanMinRSSI {
				continue
			}
			ssid := r.SSID
			if r.Hidden || ssid == "" {
				ssid = "(hidden)"
			}
			rows = append(rows, []string{
				ssid,
				r.BSSID.String(),
				fmt.Sprintf("%d", r.RSSI),
				fmt.Sprintf("%d%%", radio.Quality(r.RSSI)),
				fmt.Sprint(r.Channel),
				r.Encryption.String(),
			})
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		if len(rows) == 0 {
			p.Warning("No networks found", []ui.Field{{Key: "Driver", Value: s.Radio.Driver}})
			return nil
		}
		p.Table([]string{"SSID", "BSSID", "RSSI", "QUALITY", "CH", "SECURITY"}, rows)
		return nil
	},
}

func init() {
	scanCmd.Flags().IntVar(&scanMinRSSI, "min-rssi", -120, "Hide networks weaker than this (dBm)")
	rootCmd.AddCommand(scanCmd)
}
