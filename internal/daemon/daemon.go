package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/autoconnect/internal/announce"
	"github.com/muurk/autoconnect/internal/captivedns"
	"github.com/muurk/autoconnect/internal/clock"
	"github.com/muurk/autoconnect/internal/credential"
	"github.com/muurk/autoconnect/internal/logging"
	"github.com/muurk/autoconnect/internal/nvstore"
	"github.com/muurk/autoconnect/internal/portal"
	"github.com/muurk/autoconnect/internal/radio"
	"github.com/muurk/autoconnect/internal/settings"
	"github.com/muurk/autoconnect/internal/webportal"
)

// Daemon owns every runtime component.
type Daemon struct {
	settings *settings.Settings
	logger   *zap.Logger

	target *credential.Credential

	store     nvstore.Store
	radio     radio.Driver
	dns       *captivedns.Responder
	web       *webportal.Server
	ctrl      *portal.Controller
	announcer *announce.Announcer

	closeOnce sync.Once
}

// Option adjusts how New builds the daemon.
type Option func(*options)

type options struct {
	clock    clock.Clock
	radio    radio.Driver
	register announce.RegisterFunc
	target   *credential.Credential
}

// WithClock replaces the real millisecond clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithRadio replaces the driver selected by the settings.
func WithRadio(d radio.Driver) Option {
	return func(o *options) { o.radio = d }
}

// WithRegister replaces the zeroconf registration used for mDNS.
func WithRegister(r announce.RegisterFunc) Option {
	return func(o *options) { o.register = r }
}

// WithTarget makes Run join ssid directly instead of seeking a saved
// network.
func WithTarget(ssid, passphrase string) Option {
	return func(o *options) {
		o.target = &credential.Credential{SSID: ssid, Passphrase: passphrase}
	}
}

// New builds a daemon from s. Nothing is started until Run.
func New(s *settings.Settings, logger *zap.Logger, opts ...Option) (*Daemon, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{clock: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}

	defaults, err := s.PortalDefaults()
	if err != nil {
		return nil, fmt.Errorf("invalid portal defaults: %w", err)
	}

	store, err := OpenStore(s, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	drv := o.radio
	if drv == nil {
		drv, err = NewRadio(s, o.clock, logger.Named("radio"))
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	d := &Daemon{
		settings: s,
		logger:   logger,
		target:   o.target,
		store:    store,
		radio:    drv,
	}

	d.dns = captivedns.New(captivedns.Config{
		Port:       s.DNS.Port,
		ListenHost: s.DNS.ListenHost,
		TTL:        s.DNS.TTL,
	}, logger.Named("dns"))

	// The web server exists before the controller; it is attached below.
	d.web = webportal.New(webportal.Options{
		Port:         s.Web.Port,
		ListenHost:   s.Web.ListenHost,
		AllowedHosts: s.Web.AllowedHosts,
		Logger:       logger.Named("web"),
	})

	if s.MDNS.Enabled {
		port := s.Web.Port
		if port <= 0 {
			port = webportal.DefaultPort
		}
		d.announcer = announce.New(announce.Config{
			Hostname: s.MDNS.Hostname,
			Port:     port,
		}, o.register, logger.Named("mdns"))
	}

	creds := credential.NewStore(s.Credentials.Capacity, credential.DefaultPolicy, logger.Named("credentials"))

	d.ctrl = portal.New(portal.Options{
		Radio:        drv,
		DNS:          d.dns,
		Web:          d.web,
		Store:        store,
		Credentials:  creds,
		Clock:        o.clock,
		Logger:       logger.Named("portal"),
		Defaults:     &defaults,
		ConfigOffset: s.Storage.ConfigOffset,
		Hooks: portal.Hooks{
			OnConnect: func(info radio.StationInfo) {
				logger.Info("Station connected",
					zap.String("ssid", info.SSID),
					zap.String("ip", info.IP.String()),
				)
			},
			OnReset: func() {
				logger.Info("Portal reset")
			},
		},
		Observer: d.observe,
	})
	d.web.SetController(d.ctrl)

	return d, nil
}

// observe fans the status snapshot out to the followers.
func (d *Daemon) observe(st portal.Status) {
	d.web.Publish(st)
	if d.announcer != nil {
		d.announcer.Update(st)
	}
}

// Controller returns the portal controller.
func (d *Daemon) Controller() *portal.Controller { return d.ctrl }

// WebAddr returns the web server's listening address, or nil while it is
// stopped.
func (d *Daemon) WebAddr() net.Addr { return d.web.Addr() }

// DNSAddr returns the DNS responder's listening address, or "" while it
// is stopped.
func (d *Daemon) DNSAddr() string { return d.dns.Addr() }

// Run begins the controller and polls it until ctx is done or the
// controller stops. The store is closed on return.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("Starting autoconnect daemon",
		zap.String("storage", d.store.Name()),
		zap.String("radio", d.settings.Radio.Driver),
		zap.Duration("poll_interval", d.settings.PollInterval),
	)
	defer d.Close()

	if d.target != nil {
		if err := d.ctrl.BeginWith(ctx, d.target.SSID, d.target.Passphrase); err != nil {
			return err
		}
	}
	err := d.ctrl.Run(ctx, d.settings.PollInterval)
	if err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error("Controller stopped with error", zap.Error(err))
		return err
	}
	d.logger.Info("Daemon stopped", zap.String("state", d.ctrl.Status().State.String()))
	return nil
}

// Close releases the store and withdraws the mDNS registration. It is
// safe to call more than once.
func (d *Daemon) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if d.announcer != nil {
			d.announcer.Close()
		}
		err = d.store.Close()
		logging.Sync()
	})
	return err
}

// OpenStore opens the persistent store selected by the settings.
func OpenStore(s *settings.Settings, logger *zap.Logger) (nvstore.Store, error) {
	path, err := s.DataPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	if s.Storage.Backend == settings.BackendPrefs {
		prefs, err := nvstore.OpenPrefs(path, s.Storage.Namespace, logger)
		if err != nil {
			return nil, err
		}
		return prefs, nil
	}
	flash, err := nvstore.OpenFlash(path, s.Storage.Size, logger)
	if err != nil {
		return nil, err
	}
	return flash, nil
}

// NewRadio builds the radio driver selected by the settings.
func NewRadio(s *settings.Settings, c clock.Clock, logger *zap.Logger) (radio.Driver, error) {
	switch s.Radio.Driver {
	case settings.DriverSimulator:
		nets, err := s.SimNetworks()
		if err != nil {
			return nil, fmt.Errorf("invalid simulator networks: %w", err)
		}
		logger.Info("Using simulated radio", zap.Int("networks", len(nets)))
		return radio.NewSimulator(c, nets...), nil
	default:
		return radio.NewNMCLI(s.NMCLI(), nil, logger), nil
	}
}

// Offline is a controller over the store only, for inspecting and
// editing the saved configuration and networks while no daemon runs.
type Offline struct {
	*portal.Controller
	store nvstore.Store
}

// OpenOffline opens the store and loads whatever it holds. A store with
// nothing saved, or a record that fails to load, yields the settings
// defaults so the record can be overwritten.
func OpenOffline(s *settings.Settings, logger *zap.Logger) (*Offline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults, err := s.PortalDefaults()
	if err != nil {
		return nil, fmt.Errorf("invalid portal defaults: %w", err)
	}
	store, err := OpenStore(s, logger)
	if err != nil {
		return nil, err
	}
	ctrl := portal.New(portal.Options{
		Store:        store,
		Credentials:  credential.NewStore(s.Credentials.Capacity, credential.DefaultPolicy, logger),
		Logger:       logger,
		Defaults:     &defaults,
		ConfigOffset: s.Storage.ConfigOffset,
	})
	if err := ctrl.LoadConfig(); err != nil && !nvstore.IsNotFound(err) {
		logger.Warn("stored configuration unusable, using defaults", zap.Error(err))
	}
	if err := ctrl.LoadCredentials(); err != nil && !nvstore.IsNotFound(err) {
		logger.Warn("stored credentials unusable", zap.Error(err))
	}
	return &Offline{Controller: ctrl, store: store}, nil
}

// Store returns the underlying store.
func (o *Offline) Store() nvstore.Store { return o.store }

// Close closes the store.
func (o *Offline) Close() error { return o.store.Close() }
