package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/autoconnect/internal/credential"
	"github.com/muurk/autoconnect/internal/daemon"
	"github.com/muurk/autoconnect/internal/logging"
	"github.com/muurk/autoconnect/internal/radio"
	"github.com/muurk/autoconnect/internal/ui"
)

var (
	addBSSID      string
	addPassphrase string
	addChannel    uint8
	addIP         string
	addGateway    string
	addNetmask    string
	addDNS1       string
	addDNS2       string
)

var credentialsCmd = &cobra.Command{
	Use:     "credentials",
	Aliases: []string{"creds"},
	Short:   "Manage saved networks",
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved networks, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		off, err := openOffline()
		if err != nil {
			return err
		}
		defer off.Close()

		creds := off.Credentials()
		p := ui.NewPrinter(cmd.OutOrStdout())
		if creds.Len() == 0 {
			p.Warning("No saved networks", []ui.Field{
				{Key: "Policy", Value: creds.Policy().String()},
				{Key: "Capacity", Value: fmt.Sprint(creds.Capacity())},
			})
			return nil
		}
		rows := make([][]string, 0, creds.Len())
		for _, c := range creds.List() {
			rows = append(rows, credentialRow(c))
		}
		p.Table([]string{"SSID", "BSSID", "CH", "RECENCY", "ADDRESS"}, rows)
		return nil
	},
}

var credentialsAddCmd = &cobra.Command{
	Use:   "add SSID",
	Short: "Save a network",
	Long: `Save a network so the daemon can join it without the portal. The
passphrase is prompted for when --passphrase is not given. Leave
--ip empty for DHCP.`,
	Example: `  autoconnectd credentials add home --bssid aa:bb:cc:dd:ee:ff
  autoconnectd credentials add lab --bssid 02:00:00:00:00:10 --ip 10.0.0.20 --gateway 10.0.0.1 --netmask 255.255.255.0`,
	Args: cobra.ExactArgs(1),
	RunE: runCredentialsAdd,
}

var credentialsDeleteCmd = &cobra.Command{
	Use:     "delete SSID|BSSID",
	Aliases: []string{"rm"},
	Short:   "Forget a saved network",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		off, err := openOffline()
		if err != nil {
			return err
		}
		defer off.Close()

		creds := off.Credentials()
		c, ok := findCredential(creds, args[0])
		if !ok {
			return fmt.Errorf("%q: %w", args[0], credential.ErrNotFound)
		}
		if err := creds.Delete(creds.Identity(c)); err != nil {
			return err
		}
		if err := off.SaveCredentials(); err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).Success("Network forgotten", []ui.Field{
			{Key: "SSID", Value: c.SSID},
			{Key: "BSSID", Value: c.BSSID.String()},
		})
		return nil
	},
}

func init() {
	f := credentialsAddCmd.Flags()
	f.StringVar(&addBSSID, "bssid", "", "Access point MAC address")
	f.StringVar(&addPassphrase, "passphrase", "", "Network passphrase (prompted when omitted)")
	f.Uint8Var(&addChannel, "channel", 0, "Radio channel, 0 for any")
	f.StringVar(&addIP, "ip", "", "Static station address")
	f.StringVar(&addGateway, "gateway", "", "Static gateway")
	f.StringVar(&addNetmask, "netmask", "", "Static netmask")
	f.StringVar(&addDNS1, "dns1", "", "Primary DNS server")
	f.StringVar(&addDNS2, "dns2", "", "Secondary DNS server")

	credentialsCmd.AddCommand(credentialsListCmd, credentialsAddCmd, credentialsDeleteCmd)
	rootCmd.AddCommand(credentialsCmd)
}

func openOffline() (*daemon.Offline, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return daemon.OpenOffline(s, logging.GetLogger())
}

func credentialRow(c credential.Credential) []string {
	addr := "dhcp"
	if c.IP.IsStatic() {
		addr = c.IP.IP.String()
	}
	ch := "any"
	if c.Channel != 0 {
		ch = fmt.Sprint(c.Channel)
	}
	return []string{c.SSID, c.BSSID.String(), ch, fmt.Sprint(c.Recency), addr}
}

// findCredential matches arg against BSSIDs first, then SSIDs.
func findCredential(creds *credential.Store, arg string) (credential.Credential, bool) {
	if mac, err := net.ParseMAC(arg); err == nil {
		for _, c := range creds.List() {
			if strings.EqualFold(c.BSSID.String(), mac.String()) {
				return c, true
			}
		}
	}
	return creds.LookupSSID(arg)
}

func runCredentialsAdd(cmd *cobra.Command, args []string) error {
	c := credential.Credential{SSID: args[0], Channel: addChannel}
	if addBSSID != "" {
		mac, err := net.ParseMAC(addBSSID)
		if err != nil {
			return fmt.Errorf("invalid --bssid: %w", err)
		}
		c.BSSID = mac
	}

	ip, err := staticIP()
	if err != nil {
		return err
	}
	c.IP = ip

	c.Passphrase = addPassphrase
	if !cmd.Flags().Changed("passphrase") {
		pass, err := readPassphrase(os.Stdin, cmd.ErrOrStderr(), c.SSID)
		if err != nil {
			return err
		}
		c.Passphrase = pass
	}

	off, err := openOffline()
	if err != nil {
		return err
	}
	defer off.Close()

	stored, err := off.Credentials().Remember(c)
	var capErr *credential.CapacityError
	if err != nil && !errors.As(err, &capErr) {
		return err
	}
	if err := off.SaveCredentials(); err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	fields := []ui.Field{
		{Key: "SSID", Value: stored.SSID},
		{Key: "BSSID", Value: stored.BSSID.String()},
		{Key: "Passphrase", Value: logging.Redact(stored.Passphrase)},
	}
	if capErr != nil {
		fields = append(fields, ui.Field{Key: "Evicted", Value: capErr.Evicted.SSID})
		p.Warning("Network saved, oldest entry evicted", fields)
		return nil
	}
	p.Success("Network saved", fields)
	return nil
}

func staticIP() (radio.IPConfig, error) {
	var cfg radio.IPConfig
	for _, f := range []struct {
		name string
		val  string
		dst  *netip.Addr
	}{
		{"ip", addIP, &cfg.IP},
		{"gateway", addGateway, &cfg.Gateway},
		{"netmask", addNetmask, &cfg.Netmask},
		{"dns1", addDNS1, &cfg.DNS1},
		{"dns2", addDNS2, &cfg.DNS2},
	} {
		if f.val == "" {
			continue
		}
		a, err := netip.ParseAddr(f.val)
		if err != nil || !a.Is4() {
			return radio.IPConfig{}, fmt.Errorf("invalid --%s %q: expected an IPv4 address", f.name, f.val)
		}
		*f.dst = a
	}
	if !cfg.IP.IsValid() && (cfg.Gateway.IsValid() || cfg.Netmask.IsValid()) {
		return radio.IPConfig{}, fmt.Errorf("--gateway and --netmask need --ip")
	}
	return cfg, nil
}

// readPassphrase prompts without echo on a terminal and reads one line
// otherwise.
func readPassphrase(in *os.File, out io.Writer, ssid string) (string, error) {
	if term.IsTerminal(int(in.Fd())) {
		fmt.Fprintf(out, "Passphrase for %q (empty for an open network): ", ssid)
		b, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
