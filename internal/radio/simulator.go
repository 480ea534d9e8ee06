package radio

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/muurk/autoconnect/internal/clock"
)

// SimNetwork is a network visible to the Simulator.
type SimNetwork struct {
	SSID       string
	BSSID      net.HardwareAddr
	RSSI       int
	Channel    uint8
	Passphrase string
	Encryption Encryption
	Hidden     bool

	// Unresponsive networks never complete an association, so the
	// caller's timeout is what ends the attempt.
	Unresponsive bool
}

// Simulator is an in-memory Driver. Connection attempts complete after
// ConnectDelay milliseconds on the injected clock.
//
// Simulator is safe for concurrent use.
type Simulator struct {
	mu sync.Mutex

	clock        clock.Clock
	networks     []SimNetwork
	ConnectDelay uint32
	ScanErr      error
	APErr        error

	status    Status
	pending   *SimNetwork
	pendingOK bool
	started   clock.Tick
	station   StationInfo
	request   ConnectRequest

	apActive   bool
	apIdentity APIdentity
	apIP       IPConfig

	// Counters for assertions in tests.
	Scans       int
	Connects    int
	APStarts    int
	APStops     int
	Disconnects int
}

// NewSimulator returns a Simulator driven by c.
func NewSimulator(c clock.Clock, networks ...SimNetwork) *Simulator {
	return &Simulator{
		clock:        c,
		networks:     networks,
		ConnectDelay: 500,
	}
}

// SetNetworks replaces the set of visible networks.
func (s *Simulator) SetNetworks(networks ...SimNetwork) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.networks = networks
}

// Scan returns the visible networks, strongest first.
func (s *Simulator) Scan(ctx context.Context) ([]ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Scans++
	if s.ScanErr != nil {
		return nil, s.ScanErr
	}

	results := make([]ScanResult, 0, len(s.networks))
	for _, n := range s.networks {
		ssid := n.SSID
		if n.Hidden {
			ssid = ""
		}
		results = append(results, ScanResult{
			SSID:       ssid,
			BSSID:      n.BSSID,
			RSSI:       n.RSSI,
			Channel:    n.Channel,
			Encryption: n.Encryption,
			Hidden:     n.Hidden,
		})
	}
	return SortBySignal(results), nil
}

// Connect starts an association attempt.
func (s *Simulator) Connect(ctx context.Context, req ConnectRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.SSID == "" && len(req.BSSID) == 0 {
		return fmt.Errorf("connect request has neither SSID nor BSSID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Connects++
	s.request = req
	s.status = StatusConnecting
	s.started = s.clock.Millis()
	s.pending = nil
	s.pendingOK = false

	for i := range s.networks {
		n := s.networks[i]
		if len(req.BSSID) > 0 && !SameBSSID(req.BSSID, n.BSSID) {
			continue
		}
		if len(req.BSSID) == 0 && req.SSID != n.SSID {
			continue
		}
		s.pending = &n
		s.pendingOK = n.Passphrase == req.Passphrase
		break
	}
	return nil
}

// Status advances any pending attempt and reports the result.
func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusConnecting {
		return s.status
	}
	if !clock.HasTimedOut(s.clock.Millis(), s.started, s.ConnectDelay) {
		return s.status
	}

	switch {
	case s.pending == nil:
		s.status = StatusFailed
	case s.pending.Unresponsive:
		// stays connecting
	case !s.pendingOK:
		s.status = StatusFailed
	default:
		s.status = StatusConnected
		ip := s.request.IP.IP
		if !s.request.IP.IsStatic() {
			ip = netip.AddrFrom4([4]byte{192, 168, 1, 50})
		}
		s.station = StationInfo{
			SSID:    s.pending.SSID,
			BSSID:   s.pending.BSSID,
			IP:      ip,
			Gateway: netip.AddrFrom4([4]byte{192, 168, 1, 1}),
			RSSI:    s.pending.RSSI,
			Channel: s.pending.Channel,
		}
	}
	return s.status
}

// Station returns the current association.
func (s *Simulator) Station() StationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusConnected {
		return StationInfo{}
	}
	return s.station
}

// StartAccessPoint raises the simulated access point.
func (s *Simulator) StartAccessPoint(ctx context.Context, id APIdentity, ip IPConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.APErr != nil {
		return s.APErr
	}
	s.APStarts++
	s.apActive = true
	s.apIdentity = id
	s.apIP = ip
	return nil
}

// StopAccessPoint tears the simulated access point down.
func (s *Simulator) StopAccessPoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apActive {
		s.APStops++
	}
	s.apActive = false
	return nil
}

// Disconnect drops the association.
func (s *Simulator) Disconnect(clearSaved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Disconnects++
	s.status = StatusIdle
	s.station = StationInfo{}
	s.pending = nil
	return nil
}

// DropLink simulates the access point going away while associated.
func (s *Simulator) DropLink() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusIdle
	s.station = StationInfo{}
}

// AccessPoint reports whether the access point is up and its identity.
func (s *Simulator) AccessPoint() (bool, APIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apActive, s.apIdentity
}

// LastRequest returns the most recent connect request.
func (s *Simulator) LastRequest() ConnectRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}
