package announce

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Peer is a portal host found on the network.
type Peer struct {
	// Instance is the mDNS instance name, normally the host name.
	Instance string

	// Hostname is the mDNS host name (e.g. "esp32ap.local.")
	Hostname string

	// IP is the preferred address, IPv4 when one was advertised.
	IP string

	Port int

	// Metadata holds the TXT records
	Metadata map[string]string

	DiscoveredAt time.Time
}

func (p *Peer) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d state=%s", p.Instance, p.Hostname, p.IP, p.Port, p.Meta("state"))
}

// BaseURL returns the portal root URL of the peer.
func (p *Peer) BaseURL() string {
	return "http://" + net.JoinHostPort(p.IP, strconv.Itoa(p.Port)) + p.Meta("path")
}

// Meta returns a TXT value, "" when absent.
func (p *Peer) Meta(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}
