package radio

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/netip"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackpal/gateway"
	"go.uber.org/zap"
)

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return stdout.Bytes(), nil
}

// NMCLIConfig holds the configuration for the NetworkManager driver.
type NMCLIConfig struct {
	// Binary is the nmcli executable.
	// Default: "nmcli" (searches PATH)
	Binary string

	// Interface is the wireless device to drive.
	// Default: "wlan0"
	Interface string

	// APConnection is the connection profile name used for the hotspot.
	// Default: "autoconnect-ap"
	APConnection string

	// ConnectTimeout bounds a single nmcli connect invocation.
	// Default: 45 seconds
	ConnectTimeout time.Duration
}

// DefaultNMCLIConfig returns an NMCLIConfig with defaults applied.
func DefaultNMCLIConfig() NMCLIConfig {
	return NMCLIConfig{
		Binary:         "nmcli",
		Interface:      "wlan0",
		APConnection:   "autoconnect-ap",
		ConnectTimeout: 45 * time.Second,
	}
}

// NMCLI drives Linux NetworkManager through the nmcli tool.
type NMCLI struct {
	config NMCLIConfig
	runner Runner
	logger *zap.Logger

	// gateway lookup, replaceable in tests
	discoverGateway func() (net.IP, error)

	mu       sync.Mutex
	status   Status
	lastSSID string
	cancel   context.CancelFunc
}

// NewNMCLI creates an NMCLI driver. A nil runner uses ExecRunner and a
// nil logger discards output.
func NewNMCLI(config NMCLIConfig, runner Runner, logger *zap.Logger) *NMCLI {
	def := DefaultNMCLIConfig()
	if config.Binary == "" {
		config.Binary = def.Binary
	}
	if config.Interface == "" {
		config.Interface = def.Interface
	}
	if config.APConnection == "" {
		config.APConnection = def.APConnection
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = def.ConnectTimeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NMCLI{
		config:          config,
		runner:          runner,
		logger:          logger,
		discoverGateway: gateway.DiscoverGateway,
	}
}

func (n *NMCLI) run(ctx context.Context, args ...string) ([]byte, error) {
	n.logger.Debug("nmcli", zap.Strings("args", redact(args)))
	return n.runner.Run(ctx, n.config.Binary, args...)
}

// Scan rescans and lists visible networks.
func (n *NMCLI) Scan(ctx context.Context) ([]ScanResult, error) {
	out, err := n.run(ctx, "-t", "-f", "SSID,BSSID,SIGNAL,CHAN,SECURITY",
		"device", "wifi", "list", "--rescan", "yes", "ifname", n.config.Interface)
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	results, err := ParseWifiList(out)
	if err != nil {
		return nil, err
	}
	return SortBySignal(results), nil
}

// Connect issues the association in the background. nmcli blocks until
// the link is up or rejected, so the outcome is recorded for Status.
func (n *NMCLI) Connect(ctx context.Context, req ConnectRequest) error {
	if req.SSID == "" && len(req.BSSID) == 0 {
		return fmt.Errorf("connect request has neither SSID nor BSSID")
	}

	args := []string{"device", "wifi", "connect"}
	if req.SSID != "" {
		args = append(args, req.SSID)
	} else {
		args = append(args, req.BSSID.String())
	}
	if req.Passphrase != "" {
		args = append(args, "password", req.Passphrase)
	}
	if len(req.BSSID) > 0 && req.SSID != "" {
		args = append(args, "bssid", req.BSSID.String())
	}
	args = append(args, "ifname", n.config.Interface)

	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	attemptCtx, cancel := context.WithTimeout(context.Background(), n.config.ConnectTimeout)
	n.cancel = cancel
	n.status = StatusConnecting
	n.lastSSID = req.SSID
	n.mu.Unlock()

	go func() {
		defer cancel()
		_, err := n.run(attemptCtx, args...)
		if err == nil && req.IP.IsStatic() && req.SSID != "" {
			err = n.applyStatic(attemptCtx, req.SSID, req.IP)
		}

		n.mu.Lock()
		defer n.mu.Unlock()
		if attemptCtx.Err() == context.Canceled {
			return
		}
		if err != nil {
			n.logger.Warn("nmcli connect failed", zap.String("ssid", req.SSID), zap.Error(err))
			n.status = StatusFailed
			return
		}
		n.status = StatusConnected
	}()
	return nil
}

func (n *NMCLI) applyStatic(ctx context.Context, profile string, ip IPConfig) error {
	args := []string{"connection", "modify", profile,
		"ipv4.method", "manual",
		"ipv4.addresses", fmt.Sprintf("%s/%d", ip.IP, ip.PrefixLen()),
	}
	if ip.Gateway.IsValid() {
		args = append(args, "ipv4.gateway", ip.Gateway.String())
	}
	var dns []string
	for _, d := range []netip.Addr{ip.DNS1, ip.DNS2} {
		if d.IsValid() && !d.IsUnspecified() {
			dns = append(dns, d.String())
		}
	}
	if len(dns) > 0 {
		args = append(args, "ipv4.dns", strings.Join(dns, ","))
	}
	if _, err := n.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to set static address: %w", err)
	}
	if _, err := n.run(ctx, "connection", "up", profile, "ifname", n.config.Interface); err != nil {
		return fmt.Errorf("failed to reactivate %s: %w", profile, err)
	}
	return nil
}

// Status reports the tracked attempt, downgrading a connected link to
// idle when NetworkManager no longer reports the device connected.
func (n *NMCLI) Status() Status {
	n.mu.Lock()
	status := n.status
	n.mu.Unlock()

	if status != StatusConnected {
		return status
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := n.run(ctx, "-t", "-f", "DEVICE,STATE", "device", "status")
	if err != nil {
		return status
	}
	for _, line := range splitLines(out) {
		fields := SplitTerse(line)
		if len(fields) < 2 || fields[0] != n.config.Interface {
			continue
		}
		if fields[1] == "connected" {
			return StatusConnected
		}
		n.mu.Lock()
		n.status = StatusIdle
		n.mu.Unlock()
		return StatusIdle
	}
	return status
}

// Station describes the active association.
func (n *NMCLI) Station() StationInfo {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var info StationInfo
	out, err := n.run(ctx, "-t", "-f", "ACTIVE,SSID,BSSID,SIGNAL,CHAN",
		"device", "wifi", "list", "ifname", n.config.Interface)
	if err == nil {
		for _, line := range splitLines(out) {
			f := SplitTerse(line)
			if len(f) < 5 || f[0] != "yes" {
				continue
			}
			info.SSID = f[1]
			info.BSSID, _ = net.ParseMAC(f[2])
			if q, err := strconv.Atoi(f[3]); err == nil {
				info.RSSI = RSSIFromQuality(q)
			}
			if c, err := strconv.Atoi(f[4]); err == nil {
				info.Channel = uint8(c)
			}
			break
		}
	}

	out, err = n.run(ctx, "-t", "-g", "IP4.ADDRESS", "device", "show", n.config.Interface)
	if err == nil {
		first := strings.SplitN(strings.TrimSpace(string(out)), "|", 2)[0]
		if prefix, err := netip.ParsePrefix(strings.TrimSpace(first)); err == nil {
			info.IP = prefix.Addr()
		}
	}

	if gw, err := n.discoverGateway(); err == nil {
		if addr, ok := netip.AddrFromSlice(gw.To4()); ok {
			info.Gateway = addr
		}
	}
	return info
}

// StartAccessPoint raises a NetworkManager hotspot with shared IPv4.
func (n *NMCLI) StartAccessPoint(ctx context.Context, id APIdentity, ip IPConfig) error {
	args := []string{"device", "wifi", "hotspot",
		"ifname", n.config.Interface,
		"con-name", n.config.APConnection,
		"ssid", id.SSID,
	}
	if id.Passphrase != "" {
		args = append(args, "password", id.Passphrase)
	}
	if id.Channel > 0 {
		band := "bg"
		if id.Channel > 14 {
			band = "a"
		}
		args = append(args, "band", band, "channel", strconv.Itoa(int(id.Channel)))
	}
	if _, err := n.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to start hotspot: %w", err)
	}

	modify := []string{"connection", "modify", n.config.APConnection, "ipv4.method", "shared"}
	if ip.IP.IsValid() {
		modify = append(modify, "ipv4.addresses", fmt.Sprintf("%s/%d", ip.IP, ip.PrefixLen()))
	}
	if id.Hidden {
		modify = append(modify, "802-11-wireless.hidden", "yes")
	}
	if _, err := n.run(ctx, modify...); err != nil {
		return fmt.Errorf("failed to configure hotspot: %w", err)
	}
	if _, err := n.run(ctx, "connection", "up", n.config.APConnection); err != nil {
		return fmt.Errorf("failed to activate hotspot: %w", err)
	}
	return nil
}

// StopAccessPoint deactivates the hotspot profile.
func (n *NMCLI) StopAccessPoint() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := n.run(ctx, "connection", "down", n.config.APConnection); err != nil {
		return fmt.Errorf("failed to stop hotspot: %w", err)
	}
	return nil
}

// Disconnect drops the station link and optionally deletes the profile
// NetworkManager saved for it.
func (n *NMCLI) Disconnect(clearSaved bool) error {
	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.status = StatusIdle
	ssid := n.lastSSID
	n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := n.run(ctx, "device", "disconnect", n.config.Interface); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	if clearSaved && ssid != "" {
		if _, err := n.run(ctx, "connection", "delete", ssid); err != nil {
			return fmt.Errorf("failed to delete profile %s: %w", ssid, err)
		}
	}
	return nil
}

// ParseWifiList parses terse `nmcli -f SSID,BSSID,SIGNAL,CHAN,SECURITY`
// output.
func ParseWifiList(out []byte) ([]ScanResult, error) {
	var results []ScanResult
	for i, line := range splitLines(out) {
		f := SplitTerse(line)
		if len(f) < 5 {
			return nil, fmt.Errorf("line %d: expected 5 fields, got %d", i+1, len(f))
		}
		bssid, err := net.ParseMAC(f[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		quality, err := strconv.Atoi(f[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad signal %q", i+1, f[2])
		}
		channel, err := strconv.Atoi(f[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad channel %q", i+1, f[3])
		}
		results = append(results, ScanResult{
			SSID:       f[0],
			BSSID:      bssid,
			RSSI:       RSSIFromQuality(quality),
			Channel:    uint8(channel),
			Encryption: parseSecurity(f[4]),
			Hidden:     f[0] == "",
		})
	}
	return results, nil
}

// SplitTerse splits one line of nmcli terse output on unescaped colons
// and removes the backslash escapes.
func SplitTerse(line string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}

func parseSecurity(s string) Encryption {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch {
	case s == "" || s == "--":
		return EncryptionOpen
	case strings.Contains(s, "802.1X") || strings.Contains(s, "EAP"):
		return EncryptionEnterprise
	case strings.Contains(s, "WPA3") || strings.Contains(s, "SAE"):
		return EncryptionWPA3
	case strings.Contains(s, "WPA2"):
		return EncryptionWPA2
	case strings.Contains(s, "WPA"):
		return EncryptionWPA
	case strings.Contains(s, "WEP"):
		return EncryptionWEP
	default:
		return EncryptionUnknown
	}
}

func splitLines(out []byte) []string {
	var lines []string
	for _, l := range strings.Split(string(out), "\n") {
		l = strings.TrimRight(l, "\r")
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// redact hides passphrases from debug logs.
func redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i+1 < len(out); i++ {
		if out[i] == "password" {
			out[i+1] = "********"
		}
	}
	return out
}
