package main

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/autoconnect/internal/acconfig"
	"github.com/muurk/autoconnect/internal/ui"
	"github.com/muurk/autoconnect/internal/webportal"
)

var (
	portalURL      string
	statusNetworks bool
	connectBSSID   string
	connectPass    string
	connectSaved   bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, target, err := portalClient()
		if err != nil {
			return err
		}
		p := ui.NewPrinter(cmd.OutOrStdout())

		st, err := c.Status(cmd.Context())
		if err != nil {
			p.Failure("Portal unreachable", err, portalHints(err))
			return err
		}
		p.Header(st.Title, target, nil)
		p.Fields(statusFields(st))

		if statusNetworks {
			nets, err := c.Networks(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(nets))
			for _, n := range nets {
				saved := ""
				if n.Saved {
					saved = ui.SuccessMarker
				}
				rows = append(rows, []string{n.SSID, n.BSSID, strconv.Itoa(n.RSSI), fmt.Sprint(n.Channel), n.Encryption, saved})
			}
			p.Println("")
			p.Table([]string{"SSID", "BSSID", "RSSI", "CH", "SECURITY", "SAVED"}, rows)
		}
		return nil
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect SSID",
	Short: "Ask a running daemon to join a network",
	Long: `Send a connection request to a running daemon, as the portal's
connect form does. With --saved the SSID names a saved network and no
passphrase is sent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, target, err := portalClient()
		if err != nil {
			return err
		}
		form := url.Values{}
		if connectSaved {
			form.Set("credential", args[0])
		} else {
			form.Set("SSID", args[0])
			form.Set("Passphrase", connectPass)
			if connectBSSID != "" {
				form.Set("BSSID", connectBSSID)
			}
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		if err := c.Connect(cmd.Context(), form); err != nil {
			p.Failure("Connect request rejected", err, portalHints(err))
			return err
		}
		p.Success("Connect request sent", []ui.Field{
			{Key: "SSID", Value: args[0]},
			{Key: "Portal", Value: target},
		})
		p.Println("Follow progress with 'autoconnectd watch'.")
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard for a running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, target, err := portalClient()
		if err != nil {
			return err
		}
		feed, err := c.Subscribe(cmd.Context())
		if err != nil {
			ui.NewPrinter(cmd.ErrOrStderr()).Failure("Portal unreachable", err, portalHints(err))
			return err
		}
		defer feed.Close()
		return ui.RunWatch(cmd.Context(), target, feed, c)
	},
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, connectCmd, watchCmd} {
		c.Flags().StringVarP(&portalURL, "url", "u", "", "Portal address (default: $"+envPortal+", else the local daemon)")
		rootCmd.AddCommand(c)
	}
	statusCmd.Flags().BoolVarP(&statusNetworks, "networks", "n", false, "Also list the last scan")
	connectCmd.Flags().StringVar(&connectBSSID, "bssid", "", "Access point MAC address")
	connectCmd.Flags().StringVarP(&connectPass, "passphrase", "p", "", "Network passphrase")
	connectCmd.Flags().BoolVar(&connectSaved, "saved", false, "Join a saved network by SSID")
}

// portalClient resolves --url, then $AUTOCONNECT_PORTAL, then the
// listen address from the settings file.
func portalClient() (*webportal.Client, string, error) {
	target := portalURL
	if target == "" {
		target = os.Getenv(envPortal)
	}
	if target == "" {
		s, err := loadSettings()
		if err != nil {
			return nil, "", err
		}
		host := s.Web.ListenHost
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "127.0.0.1"
		}
		port := s.Web.Port
		if port <= 0 {
			port = webportal.DefaultPort
		}
		target = net.JoinHostPort(host, strconv.Itoa(port))
	}
	// accept a URL copied from discover, which includes the portal path
	base := strings.TrimSuffix(strings.TrimRight(target, "/"), acconfig.PortalPrefix)
	return webportal.NewClient(base), target, nil
}

func portalHints(err error) []string {
	switch {
	case webportal.IsHTTPStatus(err, 404):
		return []string{"The requested page is disabled in the portal menu"}
	case webportal.IsRetryable(err):
		return []string{
			"Check that the daemon is running: autoconnectd service start",
			"Pass the portal address with --url or $" + envPortal,
		}
	}
	return nil
}

func statusFields(st *webportal.StatusView) []ui.Field {
	fields := []ui.Field{
		{Key: "State", Value: ui.StateStyle(st.State).Render(st.State)},
		{Key: "Saved", Value: strconv.Itoa(st.Credentials)},
	}
	if st.Station != nil {
		fields = append(fields,
			ui.Field{Key: "Network", Value: st.Station.SSID},
			ui.Field{Key: "Address", Value: st.Station.IP},
			ui.Field{Key: "Signal", Value: fmt.Sprintf("%d dBm", st.Station.RSSI)},
		)
	}
	if st.Attempt != "" {
		fields = append(fields, ui.Field{Key: "Attempt", Value: st.Attempt})
	}
	if st.Portal.Up {
		fields = append(fields, ui.Field{Key: "Portal AP", Value: st.Portal.SSID + " " + st.Portal.IP})
	}
	if st.LastError != "" {
		fields = append(fields, ui.Field{Key: "Last error", Value: st.LastError})
	}
	return fields
}
