package credential

import (
	"fmt"
	"net"
	"strings"
)

// Policy selects what identifies a credential.
type Policy uint8

const (
	PolicyBSSID Policy = iota
	PolicySSID
)

func (p Policy) String() string {
	switch p {
	case PolicyBSSID:
		return "bssid"
	case PolicySSID:
		return "ssid"
	default:
		return fmt.Sprintf("Policy(%d)", p)
	}
}

// Identity returns the key a network is matched on, or "" when the
// network lacks the attribute the policy uses.
func (p Policy) Identity(ssid string, bssid net.HardwareAddr) string {
	if p == PolicySSID {
		return ssid
	}
	if len(bssid) == 0 {
		return ""
	}
	return strings.ToLower(bssid.String())
}
