package radio

import (
	"bytes"
	"fmt"
	"net"
	"net/netip"
	"sort"
)

// Status is the station connection status reported by the driver.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Encryption identifies the security of a scanned network.
type Encryption uint8

const (
	EncryptionOpen Encryption = iota
	EncryptionWEP
	EncryptionWPA
	EncryptionWPA2
	EncryptionWPA3
	EncryptionEnterprise
	EncryptionUnknown
)

func (e Encryption) String() string {
	switch e {
	case EncryptionOpen:
		return "open"
	case EncryptionWEP:
		return "wep"
	case EncryptionWPA:
		return "wpa"
	case EncryptionWPA2:
		return "wpa2"
	case EncryptionWPA3:
		return "wpa3"
	case EncryptionEnterprise:
		return "enterprise"
	default:
		return "unknown"
	}
}

// ScanResult is one network seen in a scan. It is never persisted.
type ScanResult struct {
	SSID       string
	BSSID      net.HardwareAddr
	RSSI       int // dBm, negative
	Channel    uint8
	Encryption Encryption
	Hidden     bool
}

func (r ScanResult) String() string {
	return fmt.Sprintf("%q %s %ddBm ch%d %s", r.SSID, r.BSSID, r.RSSI, r.Channel, r.Encryption)
}

// SortBySignal returns a copy of results ordered by descending RSSI.
// Results with equal signal keep their scan order.
func SortBySignal(results []ScanResult) []ScanResult {
	sorted := make([]ScanResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RSSI > sorted[j].RSSI
	})
	return sorted
}

// Quality converts an RSSI in dBm to a 0-100 link quality figure.
func Quality(rssi int) int {
	switch {
	case rssi <= -100:
		return 0
	case rssi >= -50:
		return 100
	default:
		return 2 * (rssi + 100)
	}
}

// RSSIFromQuality is the inverse of Quality for drivers that only report
// a percentage.
func RSSIFromQuality(quality int) int {
	if quality < 0 {
		quality = 0
	}
	if quality > 100 {
		quality = 100
	}
	return quality/2 - 100
}

// IPConfig carries static IPv4 addressing. A zero Addr means unset, in
// which case the driver falls back to DHCP for that value.
type IPConfig struct {
	IP      netip.Addr
	Gateway netip.Addr
	Netmask netip.Addr
	DNS1    netip.Addr
	DNS2    netip.Addr
}

// IsStatic reports whether a station address is configured.
func (c IPConfig) IsStatic() bool {
	return c.IP.IsValid() && !c.IP.IsUnspecified()
}

// PrefixLen returns the netmask as a prefix length, 24 when unset.
func (c IPConfig) PrefixLen() int {
	if !c.Netmask.IsValid() || !c.Netmask.Is4() {
		return 24
	}
	b := c.Netmask.As4()
	ones, _ := net.IPv4Mask(b[0], b[1], b[2], b[3]).Size()
	return ones
}

// APIdentity describes the access point raised for the portal.
type APIdentity struct {
	SSID       string
	Passphrase string
	Channel    uint8
	Hidden     bool
	Hostname   string
}

// ConnectRequest asks the driver to join a network in station mode.
type ConnectRequest struct {
	SSID       string
	Passphrase string
	BSSID      net.HardwareAddr // optional, pins the access point
	Channel    uint8            // optional hint
	IP         IPConfig
}

// StationInfo describes the current station association.
type StationInfo struct {
	SSID    string
	BSSID   net.HardwareAddr
	IP      netip.Addr
	Gateway netip.Addr
	RSSI    int
	Channel uint8
}

// SameBSSID reports whether two hardware addresses are equal and set.
func SameBSSID(a, b net.HardwareAddr) bool {
	return len(a) > 0 && bytes.Equal(a, b)
}
