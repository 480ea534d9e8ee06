package acconfig

import (
	"errors"
	"net"
	"net/netip"
	"strings"

	"github.com/muurk/autoconnect/internal/nvstore"
)

// ValidateSSID checks an SSID is non-empty and at most 32 bytes.
func ValidateSSID(field, ssid string) error {
	if ssid == "" {
		return invalid(field, "SSID cannot be empty")
	}
	if len(ssid) > 32 {
		return invalid(field, "SSID too long (max 32 bytes): %d bytes", len(ssid))
	}
	return nil
}

// ValidatePassphrase checks a WPA passphrase. Empty means an open
// network; otherwise 8-63 characters are required.
func ValidatePassphrase(field, psk string) error {
	if psk == "" {
		return nil
	}
	if len(psk) < 8 {
		return invalid(field, "passphrase too short (min 8 chars): %d chars", len(psk))
	}
	if len(psk) > 63 {
		return invalid(field, "passphrase too long (max 63 chars): %d chars", len(psk))
	}
	return nil
}

// ValidateNetmask checks that a set mask is a contiguous IPv4 mask.
func ValidateNetmask(field string, mask netip.Addr) error {
	if !mask.IsValid() {
		return nil
	}
	if !mask.Is4() {
		return invalid(field, "netmask %s is not IPv4", mask)
	}
	b := mask.As4()
	if _, bits := net.IPv4Mask(b[0], b[1], b[2], b[3]).Size(); bits == 0 {
		return invalid(field, "netmask %s is not contiguous", mask)
	}
	return nil
}

func validateIPv4(field string, a netip.Addr) error {
	if a.IsValid() && !a.Is4() {
		return invalid(field, "address %s is not IPv4", a)
	}
	return nil
}

// Validate checks every field and returns all problems joined.
func (c *PortalConfig) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(ValidateSSID("APID", c.APID))
	add(ValidatePassphrase("PSK", c.PSK))
	if c.Channel < 1 || c.Channel > 14 {
		add(invalid("Channel", "must be 1-14, got %d", c.Channel))
	}
	if c.Hidden > 1 {
		add(invalid("Hidden", "must be 0 or 1, got %d", c.Hidden))
	}

	if !c.APIP.IsValid() || c.APIP.IsUnspecified() {
		add(invalid("APIP", "access point address required"))
	}
	for _, a := range []struct {
		field string
		addr  netip.Addr
	}{
		{"APIP", c.APIP}, {"Gateway", c.Gateway},
		{"STAIP", c.STAIP}, {"STAGateway", c.STAGateway},
		{"DNS1", c.DNS1}, {"DNS2", c.DNS2},
	} {
		add(validateIPv4(a.field, a.addr))
	}
	add(ValidateNetmask("Netmask", c.Netmask))
	add(ValidateNetmask("STANetmask", c.STANetmask))

	if c.BeginTimeout == 0 {
		add(invalid("BeginTimeout", "must be positive"))
	}
	if c.MinRSSI < -120 || c.MinRSSI > 0 {
		add(invalid("MinRSSI", "must be between -120 and 0 dBm, got %d", c.MinRSSI))
	}
	if c.Auth > AuthDigest {
		add(invalid("Auth", "unknown method %d", c.Auth))
	}
	if c.Principle > PrincipleAuto {
		add(invalid("Principle", "unknown principle %d", c.Principle))
	}
	if c.AutoSave > AutoSaveNever {
		add(invalid("AutoSave", "unknown mode %d", c.AutoSave))
	}
	if c.BootURI > BootURIHome {
		add(invalid("BootURI", "unknown target %d", c.BootURI))
	}
	if !strings.HasPrefix(c.HomeURI, "/") {
		add(invalid("HomeURI", "must start with /, got %q", c.HomeURI))
	}
	if strings.HasPrefix(c.HomeURI, PortalPrefix+"/") || c.HomeURI == PortalPrefix {
		add(invalid("HomeURI", "must not lie under %s", PortalPrefix))
	}
	if len(c.HostName) > 63 {
		add(invalid("HostName", "too long (max 63 chars): %d chars", len(c.HostName)))
	}

	return errors.Join(errs...)
}

// ValidateLayout checks that the credential area, which runs from
// BoundaryOffset up to configOffset, can hold at least a record header
// and so never reaches into the archive.
func (c *PortalConfig) ValidateLayout(configOffset int) error {
	if configOffset < 0 {
		return invalid("BoundaryOffset", "archive offset %d is negative", configOffset)
	}
	if int(c.BoundaryOffset)+nvstore.HeaderSize > configOffset {
		return invalid("BoundaryOffset",
			"credential area at %d must end below the archive at %d with room for a %d-byte header",
			c.BoundaryOffset, configOffset, nvstore.HeaderSize)
	}
	return nil
}

// PortalPrefix is the URI prefix of the portal's own pages.
const PortalPrefix = "/_ac"
