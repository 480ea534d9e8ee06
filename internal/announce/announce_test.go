package announce

import (
	"errors"
	"net"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/autoconnect/internal/portal"
	"github.com/muurk/autoconnect/internal/radio"
	"go.uber.org/zap"
)

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name: "portal with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "kitchen"},
				HostName:      "kitchen.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
				Text:          []string{"path=/_ac", "state=connected"},
			},
			wantIP:   "192.168.1.50",
			wantPort: 80,
		},
		{
			name: "no port defaults to 80",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "hall"},
				HostName:      "hall.local.",
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
				Text:          []string{"path=/_ac"},
			},
			wantIP:   "10.0.0.5",
			wantPort: 80,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "attic"},
				HostName:      "attic.local.",
				Port:          8080,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
				Text:          []string{"path=/_ac"},
			},
			wantIP:   "fe80::1",
			wantPort: 8080,
		},
		{
			name: "prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "porch"},
				HostName:      "porch.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.60")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
				Text:          []string{"path=/_ac"},
			},
			wantIP:   "192.168.1.60",
			wantPort: 80,
		},
		{
			name: "plain web server",
			entry: &zeroconf.ServiceEntry{
				HostName: "printer.local.",
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.9")},
				Text:     []string{"path=/"},
			},
			wantNil: true,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				HostName: "ghost.local.",
				Text:     []string{"path=/_ac"},
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parseEntry(tt.entry)
			if tt.wantNil {
				if p != nil {
					t.Errorf("parseEntry() = %v, want nil", p)
				}
				return
			}
			if p == nil {
				t.Fatal("parseEntry() = nil")
			}
			if p.IP != tt.wantIP || p.Port != tt.wantPort {
				t.Errorf("peer = %s:%d, want %s:%d", p.IP, p.Port, tt.wantIP, tt.wantPort)
			}
			if time.Since(p.DiscoveredAt) > time.Second {
				t.Errorf("DiscoveredAt not recent: %v", p.DiscoveredAt)
			}
		})
	}
}

func TestParseText(t *testing.T) {
	meta := parseText([]string{"path=/_ac", "title=Kitchen=Main", "flag"})
	want := map[string]string{"path": "/_ac", "title": "Kitchen=Main", "flag": ""}
	if len(meta) != len(want) {
		t.Fatalf("meta = %v", meta)
	}
	for k, v := range want {
		if meta[k] != v {
			t.Errorf("meta[%q] = %q, want %q", k, meta[k], v)
		}
	}
}

func TestPeerURL(t *testing.T) {
	tests := []struct {
		peer Peer
		want string
	}{
		{Peer{IP: "192.168.1.50", Port: 80, Metadata: map[string]string{"path": "/_ac"}}, "http://192.168.1.50:80/_ac"},
		{Peer{IP: "fe80::1", Port: 8080}, "http://[fe80::1]:8080"},
	}
	for _, tt := range tests {
		if got := tt.peer.BaseURL(); got != tt.want {
			t.Errorf("BaseURL() = %q, want %q", got, tt.want)
		}
	}
	p := Peer{Instance: "kitchen", Hostname: "kitchen.local.", IP: "10.0.0.2", Port: 80, Metadata: map[string]string{"state": "connected"}}
	if !strings.Contains(p.String(), "state=connected") {
		t.Errorf("String() = %q", p.String())
	}
}

type fakeRegistration struct{ closed bool }

func (f *fakeRegistration) Shutdown() { f.closed = true }

type recorder struct {
	regs  []*fakeRegistration
	hosts []string
	texts [][]string
	err   error
}

func (r *recorder) register(instance, service, host string, port int, ip netip.Addr, text []string) (Registration, error) {
	if r.err != nil {
		return nil, r.err
	}
	reg := &fakeRegistration{}
	r.regs = append(r.regs, reg)
	r.hosts = append(r.hosts, host)
	r.texts = append(r.texts, text)
	return reg, nil
}

func connectedStatus(ip string) portal.Status {
	return portal.Status{
		State:   portal.StateConnected,
		APID:    "esp32ap",
		Title:   "Kitchen",
		Station: radio.StationInfo{SSID: "home", IP: netip.MustParseAddr(ip)},
	}
}

func TestAnnouncerFollowsState(t *testing.T) {
	rec := &recorder{}
	a := New(Config{}, rec.register, zap.NewNop())

	a.Update(portal.Status{State: portal.StateCaptivePortal})
	if a.Registered() {
		t.Fatal("registered while in the portal")
	}

	a.Update(connectedStatus("192.168.1.50"))
	if !a.Registered() || len(rec.regs) != 1 {
		t.Fatalf("registrations = %d", len(rec.regs))
	}
	if rec.hosts[0] != "esp32ap.local." {
		t.Errorf("host = %q", rec.hosts[0])
	}
	if rec.texts[0][0] != "path=/_ac" {
		t.Errorf("text = %v", rec.texts[0])
	}

	// unchanged snapshot keeps the registration
	a.Update(connectedStatus("192.168.1.50"))
	if len(rec.regs) != 1 {
		t.Errorf("re-registered on identical status")
	}

	a.Update(connectedStatus("192.168.1.51"))
	if len(rec.regs) != 2 || !rec.regs[0].closed {
		t.Errorf("address change: regs %d first closed %v", len(rec.regs), rec.regs[0].closed)
	}

	a.Update(portal.Status{State: portal.StateSeekingSTA})
	if a.Registered() || !rec.regs[1].closed {
		t.Error("registration kept after the link dropped")
	}
}

func TestAnnouncerRegisterFailure(t *testing.T) {
	rec := &recorder{err: errors.New("no multicast")}
	a := New(Config{Hostname: "kitchen"}, rec.register, zap.NewNop())
	a.Update(connectedStatus("192.168.1.50"))
	if a.Registered() {
		t.Error("Registered() after failure")
	}
	a.Close()
}
