package webportal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/muurk/autoconnect/internal/acconfig"
	"github.com/muurk/autoconnect/internal/credential"
	"github.com/muurk/autoconnect/internal/portal"
	"github.com/muurk/autoconnect/internal/version"
	"go.uber.org/zap"
)

// DefaultPort is the captive portal HTTP port.
const DefaultPort = 80

// Controller is the part of portal.Controller the web server drives.
type Controller interface {
	Status() portal.Status
	Credentials() *credential.Store
	RequestConnect(target *credential.Credential)
	RequestDisconnect()
	RequestReset()
	RequestScan()
}

// Options configures the Server.
type Options struct {
	// Port to listen on. 0 means DefaultPort, -1 an ephemeral port.
	Port int

	// ListenHost overrides the bind address passed to Start, e.g.
	// "0.0.0.0" to also serve the station side.
	ListenHost string

	// AllowedHosts are Host values served without a captive redirect in
	// addition to the access point address.
	AllowedHosts []string

	// Home serves the home URI. Without it the status is returned.
	Home http.Handler

	// NotFound serves requests no portal action claims.
	NotFound http.Handler

	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	Logger *zap.Logger
}

// Server is the portal web server.
type Server struct {
	opts    Options
	logger  *zap.Logger
	hub     *hub
	started time.Time

	mu   sync.Mutex
	ctrl Controller
	srv  *http.Server
	ln   net.Listener
}

// New creates a stopped Server.
func New(opts Options) *Server {
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 5 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		opts:    opts,
		logger:  logger,
		hub:     newHub(logger),
		started: time.Now(),
	}
}

// SetController attaches the controller the server reports on and
// forwards requests to.
func (s *Server) SetController(c Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl = c
}

func (s *Server) controller() Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl
}

// Handler returns the portal handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serve)
}

// Start listens on bind (or ListenHost) and serves in the background.
func (s *Server) Start(bind netip.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	host := s.opts.ListenHost
	if host == "" && bind.IsValid() {
		host = bind.String()
	}
	port := s.opts.Port
	if port < 0 {
		port = 0
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
		ErrorLog:          zap.NewStdLog(s.logger),
	}
	s.srv = srv
	s.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("portal web server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("portal web server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down and disconnects event clients.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.hub.closeAll()
	if s.opts.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ShutdownTimeout)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down portal web server: %w", err)
	}
	s.logger.Info("portal web server stopped")
	return nil
}

// Addr returns the listening address, nil when stopped.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	ctrl := s.controller()
	if ctrl == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorView{Error: "portal not ready"})
		return
	}
	st := ctrl.Status()

	if target, ok := s.captiveRedirect(r, st); ok {
		s.logger.Debug("captive redirect",
			zap.String("host", r.Host), zap.String("path", r.URL.Path), zap.String("target", target))
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	action := portal.Classify(r.Method, r.URL.Path, st.Menu, st.HomeURI)
	s.logger.Debug("portal request",
		zap.String("method", r.Method), zap.String("path", r.URL.Path),
		zap.Stringer("action", action), zap.String("remote_addr", r.RemoteAddr))

	switch action {
	case portal.ActionRoot, portal.ActionSuccess, portal.ActionFail:
		if action == portal.ActionRoot && st.Uptime > 0 {
			w.Header().Set("Refresh", strconv.Itoa(int(st.Uptime)))
		}
		writeJSON(w, http.StatusOK, NewStatusView(st))

	case portal.ActionConfigNew:
		writeJSON(w, http.StatusOK, networkViews(st.Scan, ctrl.Credentials()))

	case portal.ActionOpenSSIDs:
		writeJSON(w, http.StatusOK, credentialViews(ctrl.Credentials().List()))

	case portal.ActionConnect:
		s.handleConnect(w, r, ctrl)

	case portal.ActionDisconnect:
		ctrl.RequestDisconnect()
		writeJSON(w, http.StatusAccepted, map[string]string{"requested": "disconnect"})

	case portal.ActionReset:
		ctrl.RequestReset()
		writeJSON(w, http.StatusAccepted, map[string]string{"requested": "reset"})

	case portal.ActionScan:
		ctrl.RequestScan()
		writeJSON(w, http.StatusAccepted, map[string]string{"requested": "scan"})

	case portal.ActionResult:
		s.handleResult(w, r, st)

	case portal.ActionEvents:
		s.serveEvents(w, r, st)

	case portal.ActionDevInfo:
		host, _ := os.Hostname()
		writeJSON(w, http.StatusOK, devInfoView{
			Build:    version.Get(),
			Hostname: host,
			Uptime:   int64(time.Since(s.started).Seconds()),
			Status:   NewStatusView(st),
		})

	case portal.ActionHome:
		if s.opts.Home != nil {
			s.opts.Home.ServeHTTP(w, r)
			return
		}
		writeJSON(w, http.StatusOK, NewStatusView(st))

	case portal.ActionMethodNotAllowed:
		writeJSON(w, http.StatusMethodNotAllowed, errorView{Error: "method not allowed"})

	default:
		switch {
		case s.opts.NotFound != nil:
			s.opts.NotFound.ServeHTTP(w, r)
		case st.State == portal.StateCaptivePortal:
			http.Redirect(w, r, acconfig.PortalPrefix, http.StatusFound)
		default:
			writeJSON(w, http.StatusNotFound, errorView{Error: "not found"})
		}
	}
}

// captiveRedirect sends requests for foreign hosts to the portal while
// the access point is serving.
func (s *Server) captiveRedirect(r *http.Request, st portal.Status) (string, bool) {
	if st.State != portal.StateCaptivePortal || !st.APIP.IsValid() {
		return "", false
	}
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ap := st.APIP.String()
	if host == ap || slices.Contains(s.opts.AllowedHosts, host) {
		return "", false
	}

	target := "http://" + ap + acconfig.PortalPrefix
	if st.BootURI == acconfig.BootURIHome && st.HomeURI != "" {
		target = "http://" + ap + st.HomeURI
	}
	return target, true
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request, ctrl Controller) {
	target, status, err := parseConnectForm(r, ctrl.Credentials())
	if err != nil {
		s.logger.Info("rejected connect form", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		writeJSON(w, status, errorView{Error: err.Error()})
		return
	}

	s.logger.Info("connect requested from portal",
		zap.String("ssid", target.SSID), zap.Bool("static_ip", target.IP.IsStatic()))
	ctrl.RequestConnect(&target)
	http.Redirect(w, r, acconfig.PortalPrefix+"/result", http.StatusSeeOther)
}

// handleResult reports the outcome of the last connect request. While the
// request waits for a poll or the attempt is still running the client is
// asked to poll again.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request, st portal.Status) {
	switch {
	case st.Pending, st.State == portal.StateSeekingSTA:
		w.Header().Set("Refresh", "2; url="+acconfig.PortalPrefix+"/result")
		writeJSON(w, http.StatusAccepted, NewStatusView(st))
	case st.State == portal.StateConnected:
		http.Redirect(w, r, acconfig.PortalPrefix+"/success", http.StatusSeeOther)
	default:
		http.Redirect(w, r, acconfig.PortalPrefix+"/fail", http.StatusSeeOther)
	}
}

// parseConnectForm builds the connect target from the posted form. A
// "credential" field names a saved network; otherwise SSID and
// Passphrase are taken verbatim. Static addressing is read from sip, gw,
// nm, ns1 and ns2 unless dhcp is set.
func parseConnectForm(r *http.Request, creds *credential.Store) (credential.Credential, int, error) {
	if err := r.ParseForm(); err != nil {
		return credential.Credential{}, http.StatusBadRequest, fmt.Errorf("malformed form: %w", err)
	}

	var c credential.Credential
	if saved := r.PostForm.Get("credential"); saved != "" {
		found, ok := creds.LookupSSID(saved)
		if !ok {
			return c, http.StatusNotFound, fmt.Errorf("no saved network %q", saved)
		}
		return found, http.StatusOK, nil
	}

	c.SSID = r.PostForm.Get("SSID")
	c.Passphrase = r.PostForm.Get("Passphrase")
	if err := acconfig.ValidateSSID("SSID", c.SSID); err != nil {
		return c, http.StatusBadRequest, err
	}
	if err := acconfig.ValidatePassphrase("Passphrase", c.Passphrase); err != nil {
		return c, http.StatusBadRequest, err
	}
	if b := r.PostForm.Get("BSSID"); b != "" {
		mac, err := net.ParseMAC(b)
		if err != nil {
			return c, http.StatusBadRequest, fmt.Errorf("BSSID: %w", err)
		}
		c.BSSID = mac
	}
	if c.Passphrase == "" {
		if saved, ok := creds.LookupSSID(c.SSID); ok {
			c.Passphrase = saved.Passphrase
		}
	}

	dhcp := r.PostForm.Get("dhcp")
	if r.PostForm.Get("sip") == "" && dhcp != "false" && dhcp != "off" && dhcp != "0" {
		return c, http.StatusOK, nil
	}

	fields := []struct {
		name string
		dst  *netip.Addr
	}{
		{"sip", &c.IP.IP},
		{"gw", &c.IP.Gateway},
		{"nm", &c.IP.Netmask},
		{"ns1", &c.IP.DNS1},
		{"ns2", &c.IP.DNS2},
	}
	for _, f := range fields {
		v := r.PostForm.Get(f.name)
		if v == "" {
			continue
		}
		a, err := netip.ParseAddr(v)
		if err != nil || !a.Is4() {
			return c, http.StatusBadRequest, fmt.Errorf("%s: invalid IPv4 address %q", f.name, v)
		}
		*f.dst = a
	}
	if !c.IP.IsStatic() {
		return c, http.StatusBadRequest, errors.New("sip: static address required when dhcp is off")
	}
	if err := acconfig.ValidateNetmask("nm", c.IP.Netmask); err != nil {
		return c, http.StatusBadRequest, err
	}
	return c, http.StatusOK, nil
}

var _ portal.WebServer = (*Server)(nil)
