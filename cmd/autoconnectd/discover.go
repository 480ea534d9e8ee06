package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/autoconnect/internal/announce"
	"github.com/muurk/autoconnect/internal/ui"
)

var discoverTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find portal hosts on the local network via mDNS",
	Long: `Browse the local network for hosts announcing a configuration portal.
Hosts announce themselves once they are connected to a network.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.Header("Discovering portals", "mDNS "+announce.ServiceType+"."+announce.ServiceDomain, []ui.Field{
			{Key: "Timeout", Value: discoverTimeout.String()},
		})

		b := announce.NewBrowser()
		b.Timeout = discoverTimeout
		peers, err := b.Browse(cmd.Context())
		if err != nil {
			p.Failure("Discovery failed", err, []string{
				"Check that multicast traffic is allowed on this interface",
			})
			return err
		}
		if len(peers) == 0 {
			p.Warning("No portals found", nil)
			return nil
		}

		rows := make([][]string, 0, len(peers))
		for _, peer := range peers {
			rows = append(rows, []string{
				peer.Instance,
				net.JoinHostPort(peer.IP, strconv.Itoa(peer.Port)),
				peer.Meta("state"),
				peer.Meta("title"),
				peer.BaseURL(),
			})
		}
		p.Table([]string{"HOST", "ADDRESS", "STATE", "TITLE", "URL"}, rows)
		p.Println(fmt.Sprintf("%d portal(s) found", len(peers)))
		return nil
	},
}

func init() {
	discoverCmd.Flags().DurationVarP(&discoverTimeout, "timeout", "t", announce.DefaultBrowseTimeout, "How long to listen for announcements")
	rootCmd.AddCommand(discoverCmd)
}
