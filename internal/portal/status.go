package portal

import (
	"net/netip"

	"github.com/muurk/autoconnect/internal/acconfig"
	"github.com/muurk/autoconnect/internal/clock"
	"github.com/muurk/autoconnect/internal/radio"
)

// Status is a point-in-time copy of the controller. It is safe to read
// from any goroutine and to retain.
type Status struct {
	State     State
	Attempt   string // SSID of the network being joined
	Station   radio.StationInfo
	Retries   int
	LastError string
	Pending   bool // a connect request waits for the next poll

	Scan      []radio.ScanResult
	ScannedAt clock.Tick
	Scans     int

	APIP          netip.Addr
	APID          string
	PortalUp      bool
	PortalElapsed uint32 // ms since the portal came up
	PortalTimeout uint32

	Menu        acconfig.MenuItem
	HomeURI     string
	Title       string
	BootURI     acconfig.BootURI
	Uptime      int16
	Credentials int
}

func (s Status) clone() Status {
	out := s
	out.Scan = append([]radio.ScanResult(nil), s.Scan...)
	return out
}

// changed reports whether two snapshots differ in a way observers care
// about. Timer fields are ignored.
func (s Status) changed(o Status) bool {
	return s.State != o.State ||
		s.Attempt != o.Attempt ||
		s.Station.SSID != o.Station.SSID ||
		s.Station.IP != o.Station.IP ||
		s.Retries != o.Retries ||
		s.LastError != o.LastError ||
		s.Pending != o.Pending ||
		s.Scans != o.Scans ||
		s.PortalUp != o.PortalUp ||
		s.Credentials != o.Credentials
}
