package announce

import (
	"net/netip"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/autoconnect/internal/acconfig"
	"github.com/muurk/autoconnect/internal/portal"
	"github.com/muurk/autoconnect/internal/version"
	"go.uber.org/zap"
)

// Registration is a live mDNS advertisement.
type Registration interface {
	Shutdown()
}

// RegisterFunc publishes a service. The default registers through
// zeroconf on every multicast interface.
type RegisterFunc func(instance, service, host string, port int, ip netip.Addr, text []string) (Registration, error)

func zeroconfRegister(instance, service, host string, port int, ip netip.Addr, text []string) (Registration, error) {
	return zeroconf.RegisterProxy(instance, service, ServiceDomain, port, host, []string{ip.String()}, text, nil)
}

// Config configures an Announcer.
type Config struct {
	// Hostname is the advertised host and instance name. Empty uses the
	// portal's access point SSID.
	Hostname string

	// Port is the advertised web port.
	// Default: DefaultPort
	Port int

	Service string
}

// Announcer keeps an mDNS registration in step with the controller.
type Announcer struct {
	cfg      Config
	logger   *zap.Logger
	register RegisterFunc

	mu    sync.Mutex
	reg   Registration
	ip    netip.Addr
	state string
}

// New creates an Announcer. A nil register uses zeroconf.
func New(cfg Config, register RegisterFunc, logger *zap.Logger) *Announcer {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Service == "" {
		cfg.Service = ServiceType
	}
	if register == nil {
		register = zeroconfRegister
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Announcer{cfg: cfg, logger: logger, register: register}
}

// Update registers the host when st is connected and withdraws the
// registration otherwise. A changed station address or state
// re-registers.
func (a *Announcer) Update(st portal.Status) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if st.State != portal.StateConnected || !st.Station.IP.IsValid() {
		a.withdraw()
		return
	}
	if a.reg != nil && a.ip == st.Station.IP && a.state == st.State.String() {
		return
	}
	a.withdraw()

	host := a.cfg.Hostname
	if host == "" {
		host = st.APID
	}
	text := []string{
		"path=" + acconfig.PortalPrefix,
		"state=" + st.State.String(),
		"title=" + st.Title,
		"ver=" + version.Version,
	}
	reg, err := a.register(host, a.cfg.Service, host+"."+ServiceDomain, a.cfg.Port, st.Station.IP, text)
	if err != nil {
		a.logger.Warn("mDNS registration failed", zap.String("host", host), zap.Error(err))
		return
	}
	a.reg = reg
	a.ip = st.Station.IP
	a.state = st.State.String()
	a.logger.Info("mDNS service registered",
		zap.String("host", host), zap.Stringer("ip", st.Station.IP), zap.Int("port", a.cfg.Port))
}

// Registered reports whether an advertisement is live.
func (a *Announcer) Registered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reg != nil
}

// Close withdraws any advertisement.
func (a *Announcer) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.withdraw()
}

func (a *Announcer) withdraw() {
	if a.reg == nil {
		return
	}
	a.reg.Shutdown()
	a.reg = nil
	a.ip = netip.Addr{}
	a.state = ""
	a.logger.Info("mDNS service withdrawn")
}
