package settings

import (
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/muurk/autoconnect/internal/acconfig"
)

// Apply writes every set field of o into cfg and validates the result.
func (o *Overrides) Apply(cfg *acconfig.PortalConfig) error {
	if o == nil {
		return nil
	}
	if o.APID != nil {
		cfg.APID = *o.APID
	}
	if o.PSK != nil {
		cfg.PSK = *o.PSK
	}
	if o.Channel != nil {
		cfg.Channel = *o.Channel
	}
	if o.Hidden != nil {
		cfg.Hidden = 0
		if *o.Hidden {
			cfg.Hidden = 1
		}
	}

	addrs := []struct {
		name string
		src  *string
		dst  *netip.Addr
	}{
		{"ap_ip", o.APIP, &cfg.APIP},
		{"gateway", o.Gateway, &cfg.Gateway},
		{"netmask", o.Netmask, &cfg.Netmask},
	}
	for _, a := range addrs {
		if a.src == nil {
			continue
		}
		addr, err := netip.ParseAddr(*a.src)
		if err != nil {
			return fmt.Errorf("defaults.%s: %w", a.name, err)
		}
		*a.dst = addr
	}

	if o.BeginTimeout != nil {
		ms, err := millis("begin_timeout", *o.BeginTimeout)
		if err != nil {
			return err
		}
		cfg.BeginTimeout = ms
	}
	if o.PortalTimeout != nil {
		ms, err := millis("portal_timeout", *o.PortalTimeout)
		if err != nil {
			return err
		}
		cfg.PortalTimeout = ms
	}

	for name, on := range o.Flags {
		flag, ok := acconfig.FlagByName(name)
		if !ok {
			return fmt.Errorf("defaults.flags: unknown flag %q", name)
		}
		cfg.Flags.Set(flag, on)
	}

	if o.HostName != nil {
		cfg.HostName = *o.HostName
	}
	if o.HomeURI != nil {
		cfg.HomeURI = *o.HomeURI
	}
	if o.Title != nil {
		cfg.Title = *o.Title
	}
	if o.MinRSSI != nil {
		cfg.MinRSSI = *o.MinRSSI
	}
	if o.Uptime != nil {
		cfg.Uptime = *o.Uptime
	}
	if o.Principle != nil {
		p, err := acconfig.ParsePrinciple(*o.Principle)
		if err != nil {
			return fmt.Errorf("defaults.principle: %w", err)
		}
		cfg.Principle = p
	}
	if o.ReconnectInterval != nil {
		cfg.ReconnectInterval = *o.ReconnectInterval
	}
	if o.BoundaryOffset != nil {
		cfg.BoundaryOffset = *o.BoundaryOffset
	}

	return cfg.Validate()
}

func millis(name string, d time.Duration) (uint32, error) {
	ms := d.Milliseconds()
	if ms < 0 || ms > int64(^uint32(0)) {
		return 0, fmt.Errorf("defaults.%s: %s out of range", name, d)
	}
	return uint32(ms), nil
}

func parseMAC(s string) (net.HardwareAddr, error) {
	mac, err := net.ParseMAC(s)
	if err != nil {
		return nil, err
	}
	if len(mac) != 6 {
		return nil, fmt.Errorf("bssid %q is not a 6-byte address", s)
	}
	return mac, nil
}
