package webportal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/autoconnect/internal/acconfig"
	"github.com/muurk/autoconnect/internal/portal"
	"github.com/muurk/autoconnect/internal/radio"
)

func newClientServer(t *testing.T, ctrl *fakeController) (*Server, *Client) {
	t.Helper()
	s := newTestServer(ctrl, Options{})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL)
	c.RetryDelay = time.Millisecond
	return s, c
}

func TestNewClientAddsScheme(t *testing.T) {
	tests := []struct{ in, want string }{
		{"172.217.28.1", "http://172.217.28.1"},
		{"device.local:8080/", "http://device.local:8080"},
		{"https://portal.example", "https://portal.example"},
	}
	for _, tt := range tests {
		if got := NewClient(tt.in).BaseURL; got != tt.want {
			t.Errorf("NewClient(%q).BaseURL = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClientStatus(t *testing.T) {
	ctrl := newFakeController(portal.StateConnected)
	ctrl.status.Station.SSID = "home"
	_, c := newClientServer(t, ctrl)

	v, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if v.State != "connected" || v.Station == nil || v.Station.SSID != "home" {
		t.Errorf("Status() = %+v", v)
	}
}

func TestClientNetworks(t *testing.T) {
	ctrl := newFakeController(portal.StateConnected)
	ctrl.status.Scan = []radio.ScanResult{{SSID: "cafe", RSSI: -60, Channel: 11}}
	_, c := newClientServer(t, ctrl)

	nets, err := c.Networks(context.Background())
	if err != nil {
		t.Fatalf("Networks() error = %v", err)
	}
	if len(nets) != 1 || nets[0].SSID != "cafe" {
		t.Errorf("Networks() = %+v", nets)
	}
}

func TestClientActions(t *testing.T) {
	ctrl := newFakeController(portal.StateConnected)
	_, c := newClientServer(t, ctrl)
	ctx := context.Background()

	if err := c.Connect(ctx, url.Values{"SSID": {"home"}, "Passphrase": {"password1"}}); err != nil {
		t.Errorf("Connect() error = %v", err)
	}
	if err := c.Scan(ctx); err != nil {
		t.Errorf("Scan() error = %v", err)
	}
	if err := c.Disconnect(ctx); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
	if err := c.Reset(ctx); err != nil {
		t.Errorf("Reset() error = %v", err)
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.connects) != 1 || ctrl.connects[0].SSID != "home" {
		t.Errorf("connects = %+v", ctrl.connects)
	}
	if ctrl.scans != 1 || ctrl.disconnects != 1 || ctrl.resets != 1 {
		t.Errorf("scans/disconnects/resets = %d/%d/%d", ctrl.scans, ctrl.disconnects, ctrl.resets)
	}
}

func TestClientMenuDisabled(t *testing.T) {
	ctrl := newFakeController(portal.StateConnected)
	ctrl.status.Menu = acconfig.MenuAll &^ acconfig.MenuReset
	_, c := newClientServer(t, ctrl)

	err := c.Reset(context.Background())
	if !IsHTTPStatus(err, http.StatusNotFound) {
		t.Errorf("Reset() error = %v, want 404", err)
	}
	if IsRetryable(err) {
		t.Error("404 must not be retried")
	}
}

func TestClientRetriesUnavailable(t *testing.T) {
	ctrl := newFakeController(portal.StateConnected)
	s := newTestServer(ctrl, Options{})

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		s.Handler().ServeHTTP(w, r)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	c.RetryDelay = time.Millisecond
	if _, err := c.Status(context.Background()); err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
}

func TestClientRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	c := NewClient(base)
	c.MaxRetries = 0
	_, err := c.Status(context.Background())
	if err == nil {
		t.Fatal("Status() succeeded against a closed server")
	}
	if !IsRetryable(err) {
		t.Errorf("transport failure should be retryable: %v", err)
	}
}

func TestClientSubscribe(t *testing.T) {
	ctrl := newFakeController(portal.StateSeekingSTA)
	s, c := newClientServer(t, ctrl)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	feed, err := c.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer feed.Close()

	v, err := feed.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if v.State != "seeking_sta" {
		t.Errorf("initial state = %q", v.State)
	}

	st := ctrl.Status()
	st.State = portal.StateConnected
	s.Publish(st)

	v, err = feed.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if v.State != "connected" {
		t.Errorf("published state = %q", v.State)
	}
}
