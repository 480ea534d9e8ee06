package portal

import (
	"context"
	"errors"
	"math"
	"net"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/muurk/autoconnect/internal/acconfig"
	"github.com/muurk/autoconnect/internal/clock"
	"github.com/muurk/autoconnect/internal/credential"
	"github.com/muurk/autoconnect/internal/nvstore"
	"github.com/muurk/autoconnect/internal/radio"
	"go.uber.org/zap"
)

type fakeService struct {
	starts int
	stops  int
	up     bool
	bind   netip.Addr
	err    error
}

func (f *fakeService) Start(bind netip.Addr) error {
	if f.err != nil {
		return f.err
	}
	f.starts++
	f.up = true
	f.bind = bind
	return nil
}

func (f *fakeService) Stop() error {
	f.stops++
	f.up = false
	return nil
}

type fakeWeb struct{ fakeService }

func (f *fakeWeb) Stop(context.Context) error { return f.fakeService.Stop() }

type harness struct {
	clk  *clock.FakeClock
	sim  *radio.Simulator
	dns  *fakeService
	web  *fakeWeb
	ctrl *Controller
	ctx  context.Context

	connected []radio.StationInfo
	resets    int
}

var (
	homeBSSID = net.HardwareAddr{0xaa, 0xbb, 0xcc, 0x00, 0x00, 0x01}
	cafeBSSID = net.HardwareAddr{0xaa, 0xbb, 0xcc, 0x00, 0x00, 0x02}

	homeNet = radio.SimNetwork{SSID: "home", BSSID: homeBSSID, RSSI: -50, Channel: 6, Passphrase: "password1", Encryption: radio.EncryptionWPA2}
	cafeNet = radio.SimNetwork{SSID: "cafe", BSSID: cafeBSSID, RSSI: -60, Channel: 11, Passphrase: "espresso99", Encryption: radio.EncryptionWPA2}
)

func newHarness(t *testing.T, start clock.Tick, mutate func(*acconfig.PortalConfig), nets ...radio.SimNetwork) *harness {
	t.Helper()
	h := &harness{
		clk: clock.Fake(start),
		dns: &fakeService{},
		web: &fakeWeb{},
		ctx: context.Background(),
	}
	h.sim = radio.NewSimulator(h.clk, nets...)

	cfg := acconfig.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	h.ctrl = New(Options{
		Radio:    h.sim,
		DNS:      h.dns,
		Web:      h.web,
		Clock:    h.clk,
		Logger:   zap.NewNop(),
		Defaults: &cfg,
		Hooks: Hooks{
			OnConnect: func(info radio.StationInfo) { h.connected = append(h.connected, info) },
			OnReset:   func() { h.resets++ },
		},
	})
	return h
}

func (h *harness) save(t *testing.T, creds ...credential.Credential) {
	t.Helper()
	for _, c := range creds {
		if _, err := h.ctrl.Credentials().Remember(c); err != nil {
			t.Fatalf("Remember(%s): %v", c.SSID, err)
		}
	}
}

func (h *harness) begin(t *testing.T) {
	t.Helper()
	if err := h.ctrl.Begin(h.ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
}

func (h *harness) poll(t *testing.T, want State) {
	t.Helper()
	if got := h.ctrl.Poll(h.ctx); got != want {
		t.Fatalf("Poll = %s, want %s (last error %q)", got, want, h.ctrl.Status().LastError)
	}
}

func (h *harness) advance(ms uint32) {
	h.clk.Advance(time.Duration(ms) * time.Millisecond)
}

func homeCredential() credential.Credential {
	return credential.Credential{SSID: "home", BSSID: homeBSSID, Passphrase: "password1"}
}

func TestBeginConnectsToSavedNetwork(t *testing.T) {
	h := newHarness(t, 0, nil, homeNet, cafeNet)
	h.save(t, homeCredential())
	h.begin(t)

	if h.ctrl.State() != StateSeekingSTA {
		t.Fatalf("after Begin state = %s", h.ctrl.State())
	}
	h.poll(t, StateSeekingSTA)
	if h.ctrl.Status().Attempt != "home" {
		t.Errorf("Attempt = %q", h.ctrl.Status().Attempt)
	}

	h.advance(h.sim.ConnectDelay)
	h.poll(t, StateConnected)

	if len(h.connected) != 1 || h.connected[0].SSID != "home" {
		t.Errorf("OnConnect calls = %+v", h.connected)
	}
	if h.dns.starts != 0 || h.sim.APStarts != 0 {
		t.Errorf("portal raised on a clean connect: dns %d ap %d", h.dns.starts, h.sim.APStarts)
	}
	st := h.ctrl.Status()
	if st.Station.SSID != "home" || !st.Station.IP.IsValid() {
		t.Errorf("Station = %+v", st.Station)
	}
}

func TestBeginWithoutCredentialsRaisesPortal(t *testing.T) {
	h := newHarness(t, 0, nil, homeNet)
	h.begin(t)
	if h.ctrl.State() != StateStartingAP {
		t.Fatalf("after Begin state = %s", h.ctrl.State())
	}
	h.poll(t, StateCaptivePortal)

	up, id := h.sim.AccessPoint()
	if !up || id.SSID != acconfig.DefaultAPID || id.Passphrase != acconfig.DefaultPSK {
		t.Errorf("AccessPoint = %v %+v", up, id)
	}
	want := netip.AddrFrom4([4]byte{172, 217, 28, 1})
	if h.dns.bind != want || h.web.bind != want {
		t.Errorf("dns bound %s, web bound %s, want %s", h.dns.bind, h.web.bind, want)
	}
	if !h.ctrl.Status().PortalUp {
		t.Error("Status.PortalUp = false")
	}
}

func TestBeginWithoutCredentialsAndAutoRiseOff(t *testing.T) {
	h := newHarness(t, 0, func(c *acconfig.PortalConfig) { c.Flags = 0 }, homeNet)

	err := h.ctrl.Begin(h.ctx)
	if !IsConnectError(err) {
		t.Fatalf("Begin error = %v, want ConnectError", err)
	}
	if h.ctrl.State() != StateStopped {
		t.Errorf("state = %s, want stopped", h.ctrl.State())
	}
	if h.sim.APStarts != 0 {
		t.Error("access point started with auto rise disabled")
	}
}

func TestBeginTwice(t *testing.T) {
	h := newHarness(t, 0, nil)
	h.begin(t)
	if err := h.ctrl.Begin(h.ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Begin = %v", err)
	}
}

func TestImmediateStartSkipsSeek(t *testing.T) {
	h := newHarness(t, 0, func(c *acconfig.PortalConfig) { c.Flags |= acconfig.FlagImmediateStart }, homeNet)
	h.save(t, homeCredential())
	h.begin(t)
	if h.ctrl.State() != StateStartingAP {
		t.Errorf("state = %s, want starting_ap", h.ctrl.State())
	}
	if h.sim.Scans != 0 {
		t.Error("scanned despite immediate start")
	}
}

func TestBeginWithExplicitNetwork(t *testing.T) {
	h := newHarness(t, 0, nil, homeNet, cafeNet)
	if err := h.ctrl.BeginWith(h.ctx, "cafe", "espresso99"); err != nil {
		t.Fatal(err)
	}
	h.poll(t, StateSeekingSTA)
	if h.sim.Scans != 0 {
		t.Error("explicit begin scanned")
	}
	h.advance(h.sim.ConnectDelay)
	h.poll(t, StateConnected)

	saved, ok := h.ctrl.Credentials().LookupSSID("cafe")
	if !ok {
		t.Fatal("explicit network not remembered")
	}
	if !radio.SameBSSID(saved.BSSID, cafeBSSID) || saved.Channel != 11 {
		t.Errorf("saved = %+v", saved)
	}
}

func TestConnectTimeout(t *testing.T) {
	tests := []struct {
		name  string
		start clock.Tick
	}{
		{"from zero", 0},
		{"across wrap", math.MaxUint32 - 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dead := homeNet
			dead.Unresponsive = true
			h := newHarness(t, tt.start, nil, dead)
			h.save(t, homeCredential())
			h.begin(t)
			h.poll(t, StateSeekingSTA)

			h.advance(acconfig.DefaultBeginTimeout - 1)
			h.poll(t, StateSeekingSTA)

			h.advance(1)
			h.poll(t, StateCaptivePortal)

			if h.sim.Disconnects != 1 {
				t.Errorf("Disconnects = %d, want 1", h.sim.Disconnects)
			}
			if !strings.Contains(h.ctrl.Status().LastError, "timeout") {
				t.Errorf("LastError = %q", h.ctrl.Status().LastError)
			}
			if h.ctrl.Status().Retries != 1 {
				t.Errorf("Retries = %d", h.ctrl.Status().Retries)
			}
		})
	}
}

func TestConnectTimeoutWithoutAutoRise(t *testing.T) {
	dead := homeNet
	dead.Unresponsive = true
	h := newHarness(t, 0, func(c *acconfig.PortalConfig) { c.Flags = 0 }, dead)
	h.save(t, homeCredential())
	h.begin(t)
	h.poll(t, StateSeekingSTA)
	h.advance(acconfig.DefaultBeginTimeout)
	h.poll(t, StateStopped)

	if h.sim.APStarts != 0 || h.dns.starts != 0 {
		t.Error("portal raised with auto rise disabled")
	}
}

func TestPortalTimeout(t *testing.T) {
	const timeout = 60000
	tests := []struct {
		name  string
		flags acconfig.Flags
		want  State
	}{
		{"stops", acconfig.FlagAutoRise, StateStopped},
		{"retained", acconfig.FlagAutoRise | acconfig.FlagRetainPortal, StateCaptivePortal},
		{"reconnects", acconfig.FlagAutoRise | acconfig.FlagAutoReconnect, StateSeekingSTA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, math.MaxUint32-10000, func(c *acconfig.PortalConfig) {
				c.Flags = tt.flags
				c.PortalTimeout = timeout
			})
			h.begin(t)
			h.poll(t, StateCaptivePortal)

			h.advance(timeout - 1)
			h.poll(t, StateCaptivePortal)
			h.advance(1)
			h.poll(t, tt.want)

			switch tt.want {
			case StateStopped:
				if h.dns.up || h.web.up {
					t.Error("collaborators still running after stop")
				}
				if up, _ := h.sim.AccessPoint(); up {
					t.Error("access point still up after stop")
				}
			case StateCaptivePortal:
				h.advance(10 * timeout)
				h.poll(t, StateCaptivePortal)
			case StateSeekingSTA:
				// nothing saved, so the seek falls back to the running portal
				h.poll(t, StateCaptivePortal)
				if h.sim.APStarts != 1 {
					t.Errorf("APStarts = %d, want 1", h.sim.APStarts)
				}
			}
		})
	}
}

func TestConnectRequestFromPortal(t *testing.T) {
	h := newHarness(t, 0, nil, homeNet, cafeNet)
	h.begin(t)
	h.poll(t, StateCaptivePortal)

	h.ctrl.RequestConnect(&credential.Credential{SSID: "cafe", Passphrase: "espresso99"})
	h.poll(t, StateSeekingSTA)
	h.advance(h.sim.ConnectDelay)
	h.poll(t, StateConnected)

	if h.ctrl.Credentials().Len() != 1 {
		t.Errorf("credentials = %d, want 1", h.ctrl.Credentials().Len())
	}
	if h.dns.stops != 1 {
		t.Errorf("dns stops = %d, want 1", h.dns.stops)
	}
	if up, _ := h.sim.AccessPoint(); up {
		t.Error("access point kept without preserve AP mode")
	}
	if !h.web.up {
		t.Error("web server stopped on connect")
	}
}

func TestConnectRequestPreservesAP(t *testing.T) {
	h := newHarness(t, 0, func(c *acconfig.PortalConfig) { c.Flags |= acconfig.FlagPreserveAPMode }, cafeNet)
	h.begin(t)
	h.poll(t, StateCaptivePortal)

	h.ctrl.RequestConnect(&credential.Credential{SSID: "cafe", Passphrase: "espresso99"})
	h.poll(t, StateSeekingSTA)
	h.advance(h.sim.ConnectDelay)
	h.poll(t, StateConnected)

	if up, _ := h.sim.AccessPoint(); !up {
		t.Error("access point dropped with preserve AP mode")
	}
	if h.dns.up {
		t.Error("captive DNS kept running")
	}
}

func TestConnectRequestWrongPassphrase(t *testing.T) {
	h := newHarness(t, 0, nil, cafeNet)
	h.begin(t)
	h.poll(t, StateCaptivePortal)

	h.ctrl.RequestConnect(&credential.Credential{SSID: "cafe", Passphrase: "wrongpass"})
	h.poll(t, StateSeekingSTA)
	h.advance(h.sim.ConnectDelay)
	h.poll(t, StateCaptivePortal)

	if !strings.Contains(h.ctrl.Status().LastError, "rejected") {
		t.Errorf("LastError = %q", h.ctrl.Status().LastError)
	}
	if h.ctrl.Credentials().Len() != 0 {
		t.Error("failed credential was remembered")
	}
}

func TestDetectHookVeto(t *testing.T) {
	h := newHarness(t, 0, nil, homeNet)
	var offered []string
	h.ctrl.hooks.OnDetect = func(c credential.Candidate) bool {
		offered = append(offered, c.Credential.SSID)
		return false
	}
	h.save(t, homeCredential())
	h.begin(t)
	h.poll(t, StateCaptivePortal)

	if len(offered) != 1 || offered[0] != "home" {
		t.Errorf("offered = %v", offered)
	}
	if h.sim.Connects != 0 {
		t.Errorf("Connects = %d after veto", h.sim.Connects)
	}
}

func TestMinRSSIFiltersWeakNetworks(t *testing.T) {
	weak := homeNet
	weak.RSSI = -90
	h := newHarness(t, 0, func(c *acconfig.PortalConfig) { c.MinRSSI = -70 }, weak)
	h.save(t, homeCredential())
	h.begin(t)
	h.poll(t, StateCaptivePortal)
	if h.sim.Connects != 0 {
		t.Error("connected to a network below MinRSSI")
	}
}

func TestDisconnectRequest(t *testing.T) {
	tests := []struct {
		name       string
		flags      acconfig.Flags
		want       State
		wantResets int
	}{
		{"auto reset", acconfig.FlagAutoRise | acconfig.FlagAutoReset, StateStopped, 1},
		{"auto rise", acconfig.FlagAutoRise, StateCaptivePortal, 0},
		{"neither", 0, StateStopped, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0, func(c *acconfig.PortalConfig) { c.Flags = tt.flags }, homeNet)
			h.save(t, homeCredential())
			h.begin(t)
			h.poll(t, StateSeekingSTA)
			h.advance(h.sim.ConnectDelay)
			h.poll(t, StateConnected)

			h.ctrl.RequestDisconnect()
			h.poll(t, tt.want)

			if h.resets != tt.wantResets {
				t.Errorf("resets = %d, want %d", h.resets, tt.wantResets)
			}
			if h.sim.Disconnects == 0 {
				t.Error("radio not disconnected")
			}
		})
	}
}

func TestResetRequest(t *testing.T) {
	h := newHarness(t, 0, nil)
	h.begin(t)
	h.poll(t, StateCaptivePortal)

	h.ctrl.RequestReset()
	h.poll(t, StateStopped)

	if h.resets != 1 {
		t.Errorf("resets = %d", h.resets)
	}
	if h.web.stops != 1 || h.dns.stops != 1 || h.sim.APStops != 1 {
		t.Errorf("stops: web %d dns %d ap %d", h.web.stops, h.dns.stops, h.sim.APStops)
	}

	// a stopped controller ignores further resets
	h.ctrl.RequestReset()
	h.poll(t, StateStopped)
	if h.resets != 1 {
		t.Errorf("resets = %d after second request", h.resets)
	}
}

func TestConnectRequestFromStopped(t *testing.T) {
	h := newHarness(t, 0, nil, homeNet)
	h.save(t, homeCredential())
	h.begin(t)
	h.ctrl.End()
	if h.ctrl.State() != StateStopped {
		t.Fatalf("after End state = %s", h.ctrl.State())
	}

	h.ctrl.RequestConnect(nil)
	h.poll(t, StateSeekingSTA)
	h.advance(h.sim.ConnectDelay)
	h.poll(t, StateConnected)
}

func TestScanRequest(t *testing.T) {
	h := newHarness(t, 0, nil, homeNet, cafeNet)
	h.begin(t)
	h.poll(t, StateCaptivePortal)
	before := h.sim.Scans

	h.ctrl.RequestScan()
	h.poll(t, StateCaptivePortal)

	if h.sim.Scans != before+1 {
		t.Errorf("Scans = %d, want %d", h.sim.Scans, before+1)
	}
	st := h.ctrl.Status()
	if len(st.Scan) != 2 || st.Scan[0].SSID != "home" {
		t.Errorf("Scan = %+v", st.Scan)
	}
}

func TestWhileCaptivePortalHook(t *testing.T) {
	h := newHarness(t, 0, nil)
	polls := 0
	h.ctrl.hooks.WhileCaptivePortal = func() bool {
		polls++
		return polls < 3
	}
	h.begin(t)
	h.poll(t, StateCaptivePortal)
	h.poll(t, StateCaptivePortal)
	h.poll(t, StateCaptivePortal)
	h.poll(t, StateStopped)
}

func TestLinkLost(t *testing.T) {
	tests := []struct {
		name  string
		flags acconfig.Flags
		want  State
	}{
		{"reconnect", acconfig.FlagAutoRise | acconfig.FlagAutoReconnect, StateSeekingSTA},
		{"rise", acconfig.FlagAutoRise, StateStartingAP},
		{"stop", 0, StateStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0, func(c *acconfig.PortalConfig) { c.Flags = tt.flags }, homeNet)
			h.save(t, homeCredential())
			h.begin(t)
			h.poll(t, StateSeekingSTA)
			h.advance(h.sim.ConnectDelay)
			h.poll(t, StateConnected)

			h.sim.DropLink()
			h.poll(t, tt.want)
		})
	}
}

func TestAdoptsExternalLink(t *testing.T) {
	h := newHarness(t, 0, nil, homeNet)
	h.begin(t)
	h.poll(t, StateCaptivePortal)

	if err := h.sim.Connect(h.ctx, radio.ConnectRequest{SSID: "home", Passphrase: "password1"}); err != nil {
		t.Fatal(err)
	}
	h.advance(h.sim.ConnectDelay)
	h.poll(t, StateSeekingSTA)
	h.poll(t, StateConnected)

	if len(h.connected) != 1 {
		t.Errorf("OnConnect calls = %d", len(h.connected))
	}
}

func TestReconnectInterval(t *testing.T) {
	h := newHarness(t, 0, func(c *acconfig.PortalConfig) {
		c.Flags |= acconfig.FlagAutoReconnect
		c.ReconnectInterval = 2
	})
	h.save(t, homeCredential())
	h.begin(t)
	h.poll(t, StateCaptivePortal)

	h.sim.SetNetworks(homeNet)
	h.advance(2*acconfig.DefaultBeginTimeout - 1)
	h.poll(t, StateCaptivePortal)
	h.advance(1)
	h.poll(t, StateSeekingSTA)
	h.poll(t, StateSeekingSTA)
	h.advance(h.sim.ConnectDelay)
	h.poll(t, StateConnected)
}

func TestPortalStartRetried(t *testing.T) {
	h := newHarness(t, 0, nil)
	h.dns.err = errors.New("port busy")
	h.begin(t)
	h.poll(t, StateStartingAP)
	h.poll(t, StateStartingAP)

	h.dns.err = nil
	h.poll(t, StateCaptivePortal)
	if h.sim.APStarts != 1 {
		t.Errorf("APStarts = %d, want 1", h.sim.APStarts)
	}
}

func TestStaticIPFromConfig(t *testing.T) {
	ip := netip.AddrFrom4([4]byte{192, 168, 1, 77})
	h := newHarness(t, 0, func(c *acconfig.PortalConfig) {
		c.STAIP = ip
		c.STAGateway = netip.AddrFrom4([4]byte{192, 168, 1, 1})
		c.STANetmask = netip.AddrFrom4([4]byte{255, 255, 255, 0})
	}, homeNet)
	h.save(t, homeCredential())
	h.begin(t)
	h.poll(t, StateSeekingSTA)

	if got := h.sim.LastRequest().IP.IP; got != ip {
		t.Errorf("requested IP = %s, want %s", got, ip)
	}
	h.advance(h.sim.ConnectDelay)
	h.poll(t, StateConnected)
	if h.ctrl.Status().Station.IP != ip {
		t.Errorf("station IP = %s", h.ctrl.Status().Station.IP)
	}
}

func TestObserverSeesTransitions(t *testing.T) {
	clk := clock.Fake(0)
	sim := radio.NewSimulator(clk, homeNet)
	var states []State
	c := New(Options{
		Radio:    sim,
		Clock:    clk,
		Observer: func(s Status) { states = append(states, s.State) },
	})
	if _, err := c.Credentials().Remember(homeCredential()); err != nil {
		t.Fatal(err)
	}
	if err := c.Begin(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Poll(context.Background())
	clk.Advance(time.Duration(sim.ConnectDelay) * time.Millisecond)
	c.Poll(context.Background())

	want := []State{StateSeekingSTA, StateConnected}
	var distinct []State
	for _, s := range states {
		if len(distinct) == 0 || distinct[len(distinct)-1] != s {
			distinct = append(distinct, s)
		}
	}
	if len(distinct) != len(want) {
		t.Fatalf("observed %v, want %v", distinct, want)
	}
	for i := range want {
		if distinct[i] != want[i] {
			t.Fatalf("observed %v, want %v", distinct, want)
		}
	}
}

func TestSetConfigValidates(t *testing.T) {
	h := newHarness(t, 0, nil)
	cfg := h.ctrl.Config()
	cfg.APID = ""
	if err := h.ctrl.SetConfig(cfg); err == nil {
		t.Fatal("SetConfig accepted an empty APID")
	}
	if h.ctrl.Config().APID != acconfig.DefaultAPID {
		t.Error("rejected config was applied")
	}

	cfg = h.ctrl.Config()
	cfg.Title = "Kitchen"
	if err := h.ctrl.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}
	h.ctrl.Poll(h.ctx)
	if h.ctrl.Status().Title != "Kitchen" {
		t.Errorf("Status.Title = %q", h.ctrl.Status().Title)
	}
	h.ctrl.ResetConfig()
	if h.ctrl.Config().Title != acconfig.DefaultTitle {
		t.Error("ResetConfig did not restore defaults")
	}
}

func TestPersistenceAcrossControllers(t *testing.T) {
	store, err := nvstore.OpenFlash("", nvstore.DefaultFlashSize, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	clk := clock.Fake(0)
	sim := radio.NewSimulator(clk, cafeNet)
	first := New(Options{Radio: sim, Clock: clk, Store: store})
	if err := first.SaveConfig(); err != nil {
		t.Fatal(err)
	}
	cfg := first.Config()
	cfg.Title = "Kitchen"
	cfg.Uptime = 90
	if err := first.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if err := first.SaveConfig(); err != nil {
		t.Fatal(err)
	}
	if err := first.BeginWith(context.Background(), "cafe", "espresso99"); err != nil {
		t.Fatal(err)
	}
	first.Poll(context.Background())
	clk.Advance(time.Second)
	if got := first.Poll(context.Background()); got != StateConnected {
		t.Fatalf("first controller state = %s", got)
	}
	first.End()

	second := New(Options{Radio: radio.NewSimulator(clk, cafeNet), Clock: clk, Store: store})
	if err := second.Begin(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := second.Config(); got.Title != "Kitchen" || got.Uptime != 90 {
		t.Errorf("loaded Title %q Uptime %d", got.Title, got.Uptime)
	}
	if second.Credentials().Len() != 1 {
		t.Errorf("loaded %d credentials, want 1", second.Credentials().Len())
	}
	if second.State() != StateSeekingSTA {
		t.Errorf("second state = %s, want seeking_sta", second.State())
	}
}

func TestSaveWithoutStore(t *testing.T) {
	h := newHarness(t, 0, nil)
	if err := h.ctrl.SaveConfig(); !errors.Is(err, nvstore.ErrUnavailable) {
		t.Errorf("SaveConfig = %v", err)
	}
	if err := h.ctrl.SaveCredentials(); !errors.Is(err, nvstore.ErrUnavailable) {
		t.Errorf("SaveCredentials = %v", err)
	}
}

func TestRunStopsWithController(t *testing.T) {
	clk := clock.Fake(0)
	c := New(Options{
		Radio: radio.NewSimulator(clk),
		Clock: clk,
		Hooks: Hooks{WhileCaptivePortal: func() bool { return false }},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Run(ctx, time.Millisecond); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.State() != StateStopped {
		t.Errorf("state = %s", c.State())
	}
}

func TestSetConfigRejectsOverlappingBoundary(t *testing.T) {
	store, err := nvstore.OpenFlash("", nvstore.DefaultFlashSize, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	clk := clock.Fake(0)
	c := New(Options{Radio: radio.NewSimulator(clk, cafeNet), Clock: clk, Store: store})

	for _, boundary := range []uint16{acconfig.DefaultOffset - 9, acconfig.DefaultOffset, acconfig.DefaultOffset + 36} {
		cfg := c.Config()
		cfg.BoundaryOffset = boundary
		if err := c.SetConfig(cfg); err == nil {
			t.Errorf("SetConfig accepted BoundaryOffset %d", boundary)
		}
	}
	if c.Config().BoundaryOffset != 0 {
		t.Fatalf("rejected boundary applied: %d", c.Config().BoundaryOffset)
	}

	cfg := c.Config()
	cfg.Title = "Kitchen"
	cfg.BoundaryOffset = 512
	if err := c.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveConfig(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Credentials().Remember(credential.Credential{SSID: "cafe", BSSID: cafeBSSID, Passphrase: "espresso99"}); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveCredentials(); err != nil {
		t.Fatal(err)
	}

	fresh := New(Options{Radio: radio.NewSimulator(clk, cafeNet), Clock: clk, Store: store})
	if err := fresh.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig after credential save: %v", err)
	}
	if got := fresh.Config(); got.Title != "Kitchen" || got.BoundaryOffset != 512 {
		t.Errorf("loaded Title %q BoundaryOffset %d", got.Title, got.BoundaryOffset)
	}
	if err := fresh.LoadCredentials(); err != nil {
		t.Fatal(err)
	}
	if fresh.Credentials().Len() != 1 {
		t.Errorf("loaded %d credentials, want 1", fresh.Credentials().Len())
	}
}

func TestCredentialsRefuseOverlappingStoredBoundary(t *testing.T) {
	store, err := nvstore.OpenFlash("", nvstore.DefaultFlashSize, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	bad := acconfig.Default()
	bad.BoundaryOffset = acconfig.DefaultOffset
	clk := clock.Fake(0)
	c := New(Options{Radio: radio.NewSimulator(clk), Clock: clk, Store: store, Defaults: &bad})

	if _, err := c.Credentials().Remember(homeCredential()); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveCredentials(); !errors.Is(err, nvstore.ErrOutOfRange) {
		t.Errorf("SaveCredentials = %v, want ErrOutOfRange", err)
	}
	if err := c.LoadCredentials(); !errors.Is(err, nvstore.ErrOutOfRange) {
		t.Errorf("LoadCredentials = %v, want ErrOutOfRange", err)
	}
}

func TestLoadConfigRejectsInvalidRecord(t *testing.T) {
	store, err := nvstore.OpenFlash("", nvstore.DefaultFlashSize, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	stored := acconfig.Default()
	stored.Title = "Broken"
	stored.BeginTimeout = 0
	if err := stored.Save(store, acconfig.DefaultOffset); err != nil {
		t.Fatal(err)
	}

	clk := clock.Fake(0)
	c := New(Options{Radio: radio.NewSimulator(clk), Clock: clk, Store: store, DNS: &fakeService{}, Web: &fakeWeb{}})
	err = c.LoadConfig()
	if !errors.Is(err, acconfig.ErrInvalid) {
		t.Fatalf("LoadConfig = %v, want ErrInvalid", err)
	}
	if c.Config().Title != acconfig.DefaultTitle {
		t.Errorf("rejected record applied: Title %q", c.Config().Title)
	}

	if err := c.Begin(context.Background()); err != nil {
		t.Fatalf("Begin with unusable stored config: %v", err)
	}
	if c.Config().BeginTimeout == 0 {
		t.Error("Begin applied the invalid record")
	}
	if c.State() != StateStartingAP {
		t.Errorf("state = %s, want starting_ap", c.State())
	}
}

func TestConnectRequestPendingUntilPoll(t *testing.T) {
	h := newHarness(t, 0, nil, cafeNet)
	h.begin(t)
	h.poll(t, StateCaptivePortal)
	if h.ctrl.Status().Pending {
		t.Fatal("Pending set before any request")
	}

	h.ctrl.RequestConnect(&credential.Credential{SSID: "cafe", Passphrase: "espresso99"})
	st := h.ctrl.Status()
	if !st.Pending || st.State != StateCaptivePortal {
		t.Fatalf("after request Pending %v state %s", st.Pending, st.State)
	}

	h.poll(t, StateSeekingSTA)
	if h.ctrl.Status().Pending {
		t.Error("Pending still set after the poll took the request")
	}
	h.advance(h.sim.ConnectDelay)
	h.poll(t, StateConnected)
}

func TestConnectRequestDuringPortalRetry(t *testing.T) {
	h := newHarness(t, 0, nil, cafeNet)
	h.save(t, homeCredential())
	h.dns.err = errors.New("port busy")
	h.begin(t)

	// home is out of range, so the seek fails and the portal start is retried
	h.poll(t, StateSeekingSTA)
	if h.ctrl.Status().LastError == "" {
		t.Fatal("no error recorded for the failed portal start")
	}

	h.ctrl.RequestConnect(&credential.Credential{SSID: "cafe", Passphrase: "espresso99"})
	h.poll(t, StateSeekingSTA)
	if got := h.sim.LastRequest().SSID; got != "cafe" {
		t.Fatalf("last connect request SSID = %q, want cafe", got)
	}
	h.advance(h.sim.ConnectDelay)
	h.poll(t, StateConnected)
}
