package portal

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/muurk/autoconnect/internal/acconfig"
	"github.com/muurk/autoconnect/internal/clock"
	"github.com/muurk/autoconnect/internal/credential"
	"github.com/muurk/autoconnect/internal/nvstore"
	"github.com/muurk/autoconnect/internal/radio"
	"go.uber.org/zap"
)

// DNSResponder is the captive DNS collaborator.
type DNSResponder interface {
	Start(bind netip.Addr) error
	Stop() error
}

// WebServer is the HTTP collaborator. It is started with the portal and
// keeps running until the controller stops.
type WebServer interface {
	Start(bind netip.Addr) error
	Stop(ctx context.Context) error
}

// Options configures a Controller. Radio is required; every other
// collaborator may be nil.
type Options struct {
	Radio       radio.Driver
	DNS         DNSResponder
	Web         WebServer
	Store       nvstore.Store
	Credentials *credential.Store
	Clock       clock.Clock
	Logger      *zap.Logger
	Hooks       Hooks

	// Defaults is the configuration used when the store holds none.
	// Default: acconfig.Default()
	Defaults *acconfig.PortalConfig

	// ConfigOffset is where the archive lives in an offset-addressed
	// store.
	// Default: acconfig.DefaultOffset
	ConfigOffset int

	// ConnectPollStep is a fixed wait inside Poll while a connection
	// attempt is pending. Zero never waits.
	ConnectPollStep time.Duration

	// Observer is called from Poll whenever the status snapshot changes.
	Observer func(Status)
}

type stopKind int

const (
	stopFull stopKind = iota
	stopStation
	stopReset
)

// Controller is the portal state machine. Poll, Begin, BeginWith and End
// must be called from a single goroutine; the Request* methods, Status
// and the config accessors are safe from any goroutine. Config changes
// reach Status on the next Poll.
type Controller struct {
	radio    radio.Driver
	dns      DNSResponder
	web      WebServer
	store    nvstore.Store
	creds    *credential.Store
	clock    clock.Clock
	logger   *zap.Logger
	hooks    Hooks
	observer func(Status)
	step     time.Duration
	offset   int
	defaults acconfig.PortalConfig

	cfgMu sync.RWMutex
	cfg   acconfig.PortalConfig

	state State

	// connection attempt
	attempting   bool
	adopting     bool
	explicit     bool
	exclude      bool
	target       *credential.Credential
	attempt      credential.Credential
	attemptStart clock.Tick
	retries      int
	lastErr      error

	// portal collaborators
	apUp          bool
	dnsUp         bool
	webUp         bool
	portalStart   clock.Tick
	portalTimerOn bool
	portalPending bool
	reconnectAt   clock.Tick

	lastScan  []radio.ScanResult
	scannedAt clock.Tick
	scans     int

	req requests

	snapMu sync.RWMutex
	snap   Status
}

// New creates a controller in StateInit.
func New(opts Options) *Controller {
	c := &Controller{
		radio:    opts.Radio,
		dns:      opts.DNS,
		web:      opts.Web,
		store:    opts.Store,
		creds:    opts.Credentials,
		clock:    opts.Clock,
		logger:   opts.Logger,
		hooks:    opts.Hooks,
		observer: opts.Observer,
		step:     opts.ConnectPollStep,
		offset:   opts.ConfigOffset,
		state:    StateInit,
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.creds == nil {
		c.creds = credential.NewStore(credential.DefaultCapacity, credential.DefaultPolicy, c.logger)
	}
	if c.offset == 0 {
		c.offset = acconfig.DefaultOffset
	}
	if opts.Defaults != nil {
		c.defaults = *opts.Defaults
	} else {
		c.defaults = acconfig.Default()
	}
	c.cfg = c.defaults
	c.publish()
	return c
}

// State returns the current state. Call it from the polling goroutine;
// other goroutines should use Status.
func (c *Controller) State() State { return c.state }

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap.clone()
}

// Credentials returns the credential store.
func (c *Controller) Credentials() *credential.Store { return c.creds }

// Config returns a copy of the active configuration.
func (c *Controller) Config() acconfig.PortalConfig {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.cfg
}

// SetConfig validates and activates cfg. Access point settings apply the
// next time the portal starts.
func (c *Controller) SetConfig(cfg acconfig.PortalConfig) error {
	if err := c.validate(cfg); err != nil {
		return err
	}
	c.cfgMu.Lock()
	c.cfg = cfg
	c.cfgMu.Unlock()
	return nil
}

func (c *Controller) validate(cfg acconfig.PortalConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.ValidateLayout(c.offset)
}

// ResetConfig restores the defaults the controller was created with.
func (c *Controller) ResetConfig() {
	c.cfgMu.Lock()
	c.cfg = c.defaults
	c.cfgMu.Unlock()
}

// SaveConfig persists the active configuration.
func (c *Controller) SaveConfig() error {
	if c.store == nil {
		return &nvstore.StorageError{Op: "save", Backend: "none", Err: nvstore.ErrUnavailable}
	}
	cfg := c.Config()
	if err := cfg.Save(c.store, c.offset); err != nil {
		return err
	}
	c.logger.Info("configuration saved", zap.String("backend", c.store.Name()))
	return nil
}

// LoadConfig replaces the active configuration with the stored one. A
// record that decodes but fails validation is rejected too. On error the
// active configuration is unchanged.
func (c *Controller) LoadConfig() error {
	if c.store == nil {
		return &nvstore.StorageError{Op: "load", Backend: "none", Err: nvstore.ErrUnavailable}
	}
	var cfg acconfig.PortalConfig
	if err := cfg.Load(c.store, c.offset); err != nil {
		return err
	}
	if err := c.validate(cfg); err != nil {
		return fmt.Errorf("stored configuration: %w", err)
	}
	c.cfgMu.Lock()
	c.cfg = cfg
	c.cfgMu.Unlock()
	return nil
}

// credentialSelector bounds the credential table to the area between
// BoundaryOffset and the archive.
func (c *Controller) credentialSelector(op string) (nvstore.Selector, error) {
	cfg := c.Config()
	boundary := int(cfg.BoundaryOffset)
	sel := credential.Selector(boundary, c.offset-boundary)
	if err := cfg.ValidateLayout(c.offset); err != nil {
		return sel, &nvstore.StorageError{Op: op, Backend: c.store.Name(), Selector: sel,
			Err: fmt.Errorf("%w: %v", nvstore.ErrOutOfRange, err)}
	}
	return sel, nil
}

// SaveCredentials persists the credential table.
func (c *Controller) SaveCredentials() error {
	if c.store == nil {
		return &nvstore.StorageError{Op: "save", Backend: "none", Err: nvstore.ErrUnavailable}
	}
	sel, err := c.credentialSelector("save")
	if err != nil {
		return err
	}
	return c.creds.Save(c.store, sel)
}

// LoadCredentials replaces the credential table with the stored one.
func (c *Controller) LoadCredentials() error {
	if c.store == nil {
		return &nvstore.StorageError{Op: "load", Backend: "none", Err: nvstore.ErrUnavailable}
	}
	sel, err := c.credentialSelector("load")
	if err != nil {
		return err
	}
	return c.creds.Load(c.store, sel)
}

func (c *Controller) transition(next State, reason string) bool {
	cur := c.state
	if cur == next {
		return true
	}
	if !allowedTransition(cur, next) {
		c.logger.Error("rejected state transition",
			zap.Stringer("from", cur), zap.Stringer("to", next), zap.String("reason", reason),
			zap.Error(ErrInvalidTransition))
		return false
	}
	c.state = next
	c.logger.Info("state transition",
		zap.Stringer("from", cur), zap.Stringer("to", next), zap.String("reason", reason))
	if c.hooks.OnTransition != nil {
		c.hooks.OnTransition(cur, next, reason)
	}
	return true
}

// Begin loads the stored configuration and credentials and picks the
// first state. It only succeeds from StateInit.
func (c *Controller) Begin(ctx context.Context) error {
	return c.begin(ctx, nil)
}

// BeginWith is Begin with an explicit network to join instead of a seek.
func (c *Controller) BeginWith(ctx context.Context, ssid, passphrase string) error {
	if ssid == "" {
		return fmt.Errorf("BeginWith requires an SSID")
	}
	return c.begin(ctx, &credential.Credential{SSID: ssid, Passphrase: passphrase})
}

func (c *Controller) begin(ctx context.Context, target *credential.Credential) error {
	if c.state != StateInit {
		return fmt.Errorf("begin from %s: %w", c.state, ErrInvalidTransition)
	}
	if c.radio == nil {
		c.lastErr = errors.New("no radio driver")
		c.transition(StateFailed, "no radio driver")
		c.publish()
		return c.lastErr
	}

	if c.store != nil {
		if err := c.LoadConfig(); err != nil {
			if nvstore.IsNotFound(err) {
				c.logger.Info("no stored configuration, using defaults")
			} else {
				c.logger.Warn("stored configuration unusable, using defaults", zap.Error(err))
			}
		}
		if err := c.LoadCredentials(); err != nil {
			if nvstore.IsNotFound(err) {
				c.logger.Debug("no stored credentials")
			} else {
				c.logger.Warn("stored credentials unusable", zap.Error(err))
			}
		}
	}

	cfg := c.Config()
	switch {
	case target != nil:
		c.enterSeeking(target, false, "begin with explicit network")
	case !cfg.Flags.Has(acconfig.FlagImmediateStart) && c.creds.Len() > 0:
		c.enterSeeking(nil, false, "saved credentials available")
	case cfg.Flags.Has(acconfig.FlagAutoRise) || cfg.Flags.Has(acconfig.FlagImmediateStart):
		c.transition(StateStartingAP, "no usable credential")
	default:
		c.lastErr = &ConnectError{Kind: ConnectNotFound, Err: credential.ErrNotFound}
		c.stop(ctx, stopFull, "no credential and auto rise disabled")
		c.publish()
		return c.lastErr
	}
	c.publish()
	return ctx.Err()
}

// End stops the portal and the web server.
func (c *Controller) End() {
	if c.state == StateStopped || c.state == StateFailed {
		return
	}
	c.stop(context.Background(), stopFull, "end requested")
	c.publish()
}

// Poll advances the controller one step and returns the resulting state.
func (c *Controller) Poll(ctx context.Context) State {
	c.handleRequests(ctx, c.req.take())

	switch c.state {
	case StateStartingAP:
		c.pollStartingAP(ctx)
	case StateSeekingSTA:
		c.pollSeeking(ctx)
	case StateCaptivePortal:
		c.pollPortal(ctx)
	case StateConnected:
		c.pollConnected(ctx)
	}

	c.publish()
	return c.state
}

// Run polls every interval until ctx is done or the controller stops.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if c.state == StateInit {
		if err := c.Begin(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		switch c.Poll(ctx) {
		case StateStopped:
			return nil
		case StateFailed:
			return c.lastErr
		}
		select {
		case <-ctx.Done():
			c.End()
			return nil
		case <-ticker.C:
		}
	}
}

func (c *Controller) handleRequests(ctx context.Context, p pending) {
	switch {
	case p.reset:
		switch c.state {
		case StateInit, StateStopped, StateFailed:
			c.logger.Debug("reset ignored", zap.Stringer("state", c.state))
		default:
			c.stop(ctx, stopReset, "reset requested")
		}
		return
	case p.disconnect:
		switch c.state {
		case StateConnected, StateSeekingSTA, StateCaptivePortal, StateStartingAP:
			c.stop(ctx, stopStation, "disconnect requested")
		}
	}

	if p.connect {
		switch c.state {
		case StateStartingAP, StateCaptivePortal, StateConnected, StateSeekingSTA, StateStopped:
			if c.attempting {
				c.abortAttempt()
			}
			if p.target != nil {
				c.enterSeeking(p.target, false, "connect requested")
			} else {
				c.enterSeeking(nil, true, "reconnect requested")
			}
		}
	}

	if p.scan && !c.attempting {
		if _, err := c.scan(ctx); err != nil {
			c.logger.Warn("requested scan failed", zap.Error(err))
		}
	}
}

func (c *Controller) scan(ctx context.Context) ([]radio.ScanResult, error) {
	start := time.Now()
	results, err := c.radio.Scan(ctx)
	if err != nil {
		return nil, err
	}
	c.lastScan = results
	c.scannedAt = c.clock.Millis()
	c.scans++
	c.logger.Debug("scan complete", zap.Int("networks", len(results)), zap.Duration("elapsed", time.Since(start)))
	return results, nil
}

func (c *Controller) enterSeeking(target *credential.Credential, exclude bool, reason string) {
	if !c.transition(StateSeekingSTA, reason) {
		return
	}
	c.target = target
	c.explicit = target != nil
	c.exclude = exclude
	c.attempting = false
	c.adopting = false
	c.portalPending = false
}

func (c *Controller) abortAttempt() {
	if err := c.radio.Disconnect(false); err != nil {
		c.logger.Debug("abort disconnect failed", zap.Error(err))
	}
	c.attempting = false
}

func (c *Controller) stationIP(cred credential.Credential, cfg acconfig.PortalConfig) radio.IPConfig {
	if cred.IP.IsStatic() {
		return cred.IP
	}
	return radio.IPConfig{
		IP:      cfg.STAIP,
		Gateway: cfg.STAGateway,
		Netmask: cfg.STANetmask,
		DNS1:    cfg.DNS1,
		DNS2:    cfg.DNS2,
	}
}

func (c *Controller) currentIdentity() string {
	if c.radio.Status() != radio.StatusConnected {
		return ""
	}
	st := c.radio.Station()
	return c.creds.Policy().Identity(st.SSID, st.BSSID)
}

func (c *Controller) pollSeeking(ctx context.Context) {
	cfg := c.Config()

	if c.portalPending {
		c.enterPortal(ctx, "retry portal start")
		return
	}

	if c.adopting {
		if c.radio.Status() == radio.StatusConnected {
			c.connected(ctx)
		} else {
			c.adopting = false
		}
		return
	}

	if !c.attempting {
		var cand credential.Credential
		if c.target != nil {
			cand = *c.target
			if cand.Passphrase == "" {
				if saved, ok := c.creds.LookupSSID(cand.SSID); ok {
					cand.Passphrase = saved.Passphrase
					cand.IP = saved.IP
				}
			}
		} else {
			current := ""
			if c.exclude {
				current = c.currentIdentity()
			}
			results, err := c.scan(ctx)
			if err != nil {
				c.connectFailed(ctx, &ConnectError{Kind: ConnectNotFound, Err: err})
				return
			}
			found, err := c.creds.Seek(results, credential.SeekOptions{
				Principle:      cfg.Principle,
				MinRSSI:        int(cfg.MinRSSI),
				ExcludeCurrent: c.exclude,
				Current:        current,
			})
			if err != nil {
				c.connectFailed(ctx, &ConnectError{Kind: ConnectNotFound, Err: err})
				return
			}
			if c.hooks.OnDetect != nil && !c.hooks.OnDetect(found) {
				c.connectFailed(ctx, &ConnectError{Kind: ConnectNotFound, SSID: found.Credential.SSID, Err: errVetoed})
				return
			}
			cand = found.Credential
			if cand.Channel == 0 {
				cand.Channel = found.Scan.Channel
			}
		}

		req := cand.ConnectRequest()
		req.IP = c.stationIP(cand, cfg)
		if err := c.radio.Connect(ctx, req); err != nil {
			c.connectFailed(ctx, &ConnectError{Kind: ConnectRejected, SSID: cand.SSID, Err: err})
			return
		}
		c.attempt = cand
		c.attempting = true
		c.attemptStart = c.clock.Millis()
		c.logger.Info("connecting",
			zap.String("ssid", cand.SSID), zap.Stringer("bssid", cand.BSSID), zap.Bool("static_ip", req.IP.IsStatic()))
	}

	if c.step > 0 {
		c.clock.Sleep(c.step)
	}

	switch c.radio.Status() {
	case radio.StatusConnected:
		c.connected(ctx)
	case radio.StatusFailed:
		c.abortAttempt()
		c.connectFailed(ctx, &ConnectError{Kind: ConnectRejected, SSID: c.attempt.SSID})
	default:
		if clock.HasTimedOut(c.clock.Millis(), c.attemptStart, cfg.BeginTimeout) {
			c.abortAttempt()
			c.connectFailed(ctx, &ConnectError{Kind: ConnectTimeout, SSID: c.attempt.SSID,
				Err: fmt.Errorf("no link after %dms", cfg.BeginTimeout)})
		}
	}
}

func (c *Controller) connected(ctx context.Context) {
	info := c.radio.Station()
	cfg := c.Config()
	if !c.transition(StateConnected, "link established") {
		return
	}
	c.attempting = false
	c.retries = 0
	c.lastErr = nil

	if cfg.AutoSave == acconfig.AutoSaveAuto {
		c.remember(info)
	}

	if c.apUp || c.dnsUp {
		if cfg.Flags.Has(acconfig.FlagRetainPortal) {
			c.logger.Debug("portal retained while connected")
		} else {
			c.closePortal(cfg.Flags.Has(acconfig.FlagPreserveAPMode))
		}
	}

	c.adopting = false
	c.logger.Info("connected",
		zap.String("ssid", info.SSID), zap.Stringer("ip", info.IP), zap.Int("rssi", info.RSSI))
	if c.hooks.OnConnect != nil {
		c.hooks.OnConnect(info)
	}
}

func (c *Controller) remember(info radio.StationInfo) {
	cred := c.attempt
	if c.adopting {
		saved, ok := c.creds.LookupSSID(info.SSID)
		if !ok {
			return
		}
		cred = saved
	}
	if cred.SSID == "" {
		cred.SSID = info.SSID
	}
	if len(info.BSSID) > 0 {
		cred.BSSID = info.BSSID
	}
	if info.Channel > 0 {
		cred.Channel = info.Channel
	}

	_, err := c.creds.Remember(cred)
	if err != nil && !credential.IsCapacityError(err) {
		c.logger.Warn("credential not remembered", zap.String("ssid", cred.SSID), zap.Error(err))
		return
	}
	if c.store == nil {
		return
	}
	if err := c.SaveCredentials(); err != nil {
		c.logger.Warn("failed to persist credentials", zap.Error(err))
	}
}

func (c *Controller) connectFailed(ctx context.Context, err *ConnectError) {
	c.attempting = false
	c.target = nil
	c.lastErr = err
	c.retries++
	c.logger.Warn("connection attempt failed", zap.Error(err), zap.Int("retries", c.retries))

	cfg := c.Config()
	if c.apUp || cfg.Flags.Has(acconfig.FlagAutoRise) {
		c.enterPortal(ctx, err.Kind.String())
		return
	}
	c.stop(ctx, stopFull, "connection failed and auto rise disabled")
}

// startPortal brings up whichever portal collaborators are not running.
func (c *Controller) startPortal(ctx context.Context) error {
	cfg := c.Config()

	if !c.apUp {
		id := radio.APIdentity{
			SSID:       cfg.APID,
			Passphrase: cfg.PSK,
			Channel:    cfg.Channel,
			Hidden:     cfg.Hidden != 0,
			Hostname:   cfg.HostName,
		}
		ip := radio.IPConfig{IP: cfg.APIP, Gateway: cfg.Gateway, Netmask: cfg.Netmask}
		if err := c.radio.StartAccessPoint(ctx, id, ip); err != nil {
			return fmt.Errorf("access point: %w", err)
		}
		c.apUp = true
		c.portalStart = c.clock.Millis()
		c.portalTimerOn = true
		c.logger.Info("access point started", zap.String("ssid", cfg.APID), zap.Stringer("ip", cfg.APIP))
	}
	if !c.dnsUp && c.dns != nil {
		if err := c.dns.Start(cfg.APIP); err != nil {
			return fmt.Errorf("dns: %w", err)
		}
		c.dnsUp = true
	}
	if !c.webUp && c.web != nil {
		if err := c.web.Start(cfg.APIP); err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		c.webUp = true
	}
	return nil
}

// enterPortal starts the portal and moves to CaptivePortal. When a
// collaborator fails the state is kept and the start retried next poll.
func (c *Controller) enterPortal(ctx context.Context, reason string) {
	if err := c.startPortal(ctx); err != nil {
		c.portalPending = true
		c.lastErr = err
		c.logger.Warn("portal start failed, retrying next poll", zap.Error(err))
		return
	}
	c.portalPending = false
	if c.transition(StateCaptivePortal, reason) {
		c.reconnectAt = c.clock.Millis()
	}
}

func (c *Controller) pollStartingAP(ctx context.Context) {
	c.enterPortal(ctx, "portal started")
}

func (c *Controller) pollPortal(ctx context.Context) {
	if c.hooks.WhileCaptivePortal != nil && !c.hooks.WhileCaptivePortal() {
		c.stop(ctx, stopFull, "captive portal loop ended by hook")
		return
	}

	// the station may have been joined without us, e.g. through the
	// operating system
	if c.radio.Status() == radio.StatusConnected {
		c.enterSeeking(nil, false, "station link observed")
		c.adopting = true
		return
	}

	cfg := c.Config()
	now := c.clock.Millis()

	if cfg.PortalTimeout > 0 && c.portalTimerOn && clock.HasTimedOut(now, c.portalStart, cfg.PortalTimeout) {
		switch {
		case cfg.Flags.Has(acconfig.FlagRetainPortal):
			c.portalTimerOn = false
			c.logger.Info("portal timeout elapsed, portal retained")
		case cfg.Flags.Has(acconfig.FlagAutoReconnect):
			c.portalStart = now
			c.enterSeeking(nil, false, "portal timeout, reconnecting")
		default:
			c.lastErr = &ConnectError{Kind: ConnectTimeout, Err: errors.New("portal timeout")}
			c.stop(ctx, stopFull, "portal timeout")
		}
		return
	}

	if cfg.Flags.Has(acconfig.FlagAutoReconnect) && cfg.ReconnectInterval > 0 && c.creds.Len() > 0 {
		interval := uint32(cfg.ReconnectInterval) * cfg.BeginTimeout
		if clock.HasTimedOut(now, c.reconnectAt, interval) {
			c.reconnectAt = now
			c.enterSeeking(nil, false, "reconnect interval")
		}
	}
}

func (c *Controller) pollConnected(ctx context.Context) {
	if c.radio.Status() == radio.StatusConnected {
		return
	}

	cfg := c.Config()
	c.lastErr = errors.New("station link lost")
	c.logger.Warn("station link lost")
	switch {
	case cfg.Flags.Has(acconfig.FlagAutoReconnect):
		c.enterSeeking(nil, false, "link lost, reconnecting")
	case cfg.Flags.Has(acconfig.FlagAutoRise):
		c.transition(StateStartingAP, "link lost")
	default:
		c.stop(ctx, stopFull, "link lost")
	}
}

func (c *Controller) closePortal(keepAP bool) {
	if c.dnsUp && c.dns != nil {
		if err := c.dns.Stop(); err != nil {
			c.logger.Warn("failed to stop captive DNS", zap.Error(err))
		}
	}
	c.dnsUp = false
	if c.apUp && !keepAP {
		if err := c.radio.StopAccessPoint(); err != nil {
			c.logger.Warn("failed to stop access point", zap.Error(err))
		}
		c.apUp = false
	}
	c.portalTimerOn = false
	c.logger.Info("portal closed", zap.Bool("ap_kept", keepAP && c.apUp))
}

func (c *Controller) stopWeb(ctx context.Context) {
	if !c.webUp || c.web == nil {
		return
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.web.Stop(stopCtx); err != nil {
		c.logger.Warn("failed to stop web server", zap.Error(err))
	}
	c.webUp = false
}

// stop runs Stopping and moves on to the state kind implies.
func (c *Controller) stop(ctx context.Context, kind stopKind, reason string) {
	if !c.transition(StateStopping, reason) {
		return
	}
	c.attempting = false
	c.adopting = false
	c.target = nil
	c.portalPending = false
	cfg := c.Config()

	switch kind {
	case stopStation:
		if err := c.radio.Disconnect(false); err != nil {
			c.logger.Warn("disconnect failed", zap.Error(err))
		}
		if cfg.Flags.Has(acconfig.FlagAutoReset) {
			c.stop(ctx, stopReset, "reset after disconnect")
			return
		}
		if c.apUp || cfg.Flags.Has(acconfig.FlagAutoRise) {
			c.transition(StateStartingAP, "disconnected")
			c.enterPortal(ctx, "disconnected")
			return
		}
		c.closePortal(false)
		c.stopWeb(ctx)
		c.transition(StateStopped, "disconnected")

	case stopReset:
		c.closePortal(false)
		c.stopWeb(ctx)
		if err := c.radio.Disconnect(false); err != nil {
			c.logger.Warn("disconnect failed", zap.Error(err))
		}
		c.transition(StateStopped, reason)
		if c.hooks.OnReset != nil {
			c.hooks.OnReset()
		}

	default:
		c.closePortal(false)
		c.stopWeb(ctx)
		c.transition(StateStopped, reason)
	}
}

func (c *Controller) publish() {
	cfg := c.Config()
	var station radio.StationInfo
	if c.state == StateConnected && c.radio != nil {
		station = c.radio.Station()
	}

	s := Status{
		State:         c.state,
		Station:       station,
		Retries:       c.retries,
		Scan:          append([]radio.ScanResult(nil), c.lastScan...),
		ScannedAt:     c.scannedAt,
		Scans:         c.scans,
		APIP:          cfg.APIP,
		APID:          cfg.APID,
		PortalUp:      c.apUp,
		PortalTimeout: cfg.PortalTimeout,
		Menu:          cfg.MenuItems,
		HomeURI:       cfg.HomeURI,
		Title:         cfg.Title,
		BootURI:       cfg.BootURI,
		Uptime:        cfg.Uptime,
		Credentials:   c.creds.Len(),
	}
	if c.attempting {
		s.Attempt = c.attempt.SSID
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	if c.apUp {
		s.PortalElapsed = clock.Elapsed(c.clock.Millis(), c.portalStart)
	}

	c.snapMu.Lock()
	// read under snapMu so a concurrent RequestConnect is never lost
	s.Pending = c.req.connectPending()
	prev := c.snap
	c.snap = s
	c.snapMu.Unlock()

	if c.observer != nil && s.changed(prev) {
		c.observer(s.clone())
	}
}
