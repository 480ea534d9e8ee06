package radio

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/muurk/autoconnect/internal/clock"
)

func mustAddr(t *testing.T, s string) netip.Addr {
	t.Helper()
	a, err := netip.ParseAddr(s)
	if err != nil {
		t.Fatalf("ParseAddr(%q): %v", s, err)
	}
	return a
}

func TestSimulatorConnect(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) ConnectRequest
		wantStatus Status
	}{
		{
			name: "correct passphrase",
			req: func(t *testing.T) ConnectRequest {
				return ConnectRequest{SSID: "home", Passphrase: "secret"}
			},
			wantStatus: StatusConnected,
		},
		{
			name: "wrong passphrase",
			req: func(t *testing.T) ConnectRequest {
				return ConnectRequest{SSID: "home", Passphrase: "nope"}
			},
			wantStatus: StatusFailed,
		},
		{
			name: "unknown network",
			req: func(t *testing.T) ConnectRequest {
				return ConnectRequest{SSID: "elsewhere"}
			},
			wantStatus: StatusFailed,
		},
		{
			name: "pinned bssid",
			req: func(t *testing.T) ConnectRequest {
				return ConnectRequest{BSSID: mustMAC(t, "aa:bb:cc:dd:ee:01"), Passphrase: "secret"}
			},
			wantStatus: StatusConnected,
		},
		{
			name: "unresponsive",
			req: func(t *testing.T) ConnectRequest {
				return ConnectRequest{SSID: "dead"}
			},
			wantStatus: StatusConnecting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.Fake(0)
			sim := NewSimulator(clk,
				SimNetwork{SSID: "home", BSSID: mustMAC(t, "aa:bb:cc:dd:ee:01"), RSSI: -60, Passphrase: "secret"},
				SimNetwork{SSID: "dead", BSSID: mustMAC(t, "aa:bb:cc:dd:ee:09"), RSSI: -70, Unresponsive: true},
			)

			if err := sim.Connect(context.Background(), tt.req(t)); err != nil {
				t.Fatalf("Connect() error = %v", err)
			}
			if got := sim.Status(); got != StatusConnecting {
				t.Fatalf("Status() before delay = %v, want connecting", got)
			}

			clk.Advance(time.Duration(sim.ConnectDelay) * time.Millisecond)
			if got := sim.Status(); got != tt.wantStatus {
				t.Errorf("Status() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestSimulatorStaticIP(t *testing.T) {
	clk := clock.Fake(0)
	sim := NewSimulator(clk, SimNetwork{SSID: "home", RSSI: -60})
	sim.ConnectDelay = 0

	ip := mustAddr(t, "10.0.0.9")
	if err := sim.Connect(context.Background(), ConnectRequest{SSID: "home", IP: IPConfig{IP: ip}}); err != nil {
		t.Fatal(err)
	}
	if sim.Status() != StatusConnected {
		t.Fatal("expected connected")
	}
	if got := sim.Station().IP; got != ip {
		t.Errorf("Station().IP = %v, want %v", got, ip)
	}
}

func TestSimulatorScanHidesHiddenSSID(t *testing.T) {
	sim := NewSimulator(clock.Fake(0),
		SimNetwork{SSID: "visible", RSSI: -80},
		SimNetwork{SSID: "secret", RSSI: -40, Hidden: true},
	)
	results, err := sim.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if results[0].SSID != "" || !results[0].Hidden {
		t.Errorf("hidden network leaked its SSID: %+v", results[0])
	}
	if results[1].SSID != "visible" {
		t.Errorf("results[1] = %+v", results[1])
	}
}

func TestSimulatorAccessPoint(t *testing.T) {
	sim := NewSimulator(clock.Fake(0))
	id := APIdentity{SSID: "esp32ap", Passphrase: "12345678"}

	if err := sim.StartAccessPoint(context.Background(), id, IPConfig{}); err != nil {
		t.Fatal(err)
	}
	active, got := sim.AccessPoint()
	if !active || got.SSID != "esp32ap" {
		t.Errorf("AccessPoint() = %v %+v", active, got)
	}

	if err := sim.StopAccessPoint(); err != nil {
		t.Fatal(err)
	}
	if active, _ := sim.AccessPoint(); active {
		t.Error("access point still active after stop")
	}
	if sim.APStarts != 1 || sim.APStops != 1 {
		t.Errorf("APStarts=%d APStops=%d", sim.APStarts, sim.APStops)
	}
}

func TestSimulatorDropLink(t *testing.T) {
	sim := NewSimulator(clock.Fake(0), SimNetwork{SSID: "home"})
	sim.ConnectDelay = 0
	_ = sim.Connect(context.Background(), ConnectRequest{SSID: "home"})
	if sim.Status() != StatusConnected {
		t.Fatal("expected connected")
	}
	sim.DropLink()
	if sim.Status() != StatusIdle {
		t.Error("expected idle after link drop")
	}
	if sim.Station().SSID != "" {
		t.Error("station info should be cleared")
	}
}
