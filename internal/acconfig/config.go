package acconfig

import (
	"fmt"
	"net/netip"
	"strings"
)

// Flags packs the boolean behaviour switches into the archive ctl byte.
type Flags uint8

const (
	FlagAutoRise Flags = 1 << iota
	FlagAutoReset
	FlagAutoReconnect
	FlagImmediateStart
	FlagRetainPortal
	FlagPreserveAPMode
	FlagTicker
	FlagTickerOn
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagAutoRise, "autoRise"},
	{FlagAutoReset, "autoReset"},
	{FlagAutoReconnect, "autoReconnect"},
	{FlagImmediateStart, "immediateStart"},
	{FlagRetainPortal, "retainPortal"},
	{FlagPreserveAPMode, "preserveAPMode"},
	{FlagTicker, "ticker"},
	{FlagTickerOn, "tickerOn"},
}

// Has reports whether every bit in b is set.
func (f Flags) Has(b Flags) bool { return f&b == b }

// Set turns the bits in b on or off.
func (f *Flags) Set(b Flags, on bool) {
	if on {
		*f |= b
	} else {
		*f &^= b
	}
}

func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// FlagByName looks up a flag by its camel-case name.
func FlagByName(name string) (Flags, bool) {
	for _, fn := range flagNames {
		if strings.EqualFold(fn.name, name) {
			return fn.flag, true
		}
	}
	return 0, false
}

// MenuItem is a bitmask of portal menu entries.
type MenuItem uint16

const (
	MenuConfigNew  MenuItem = 0x0001
	MenuOpenSSIDs  MenuItem = 0x0002
	MenuDisconnect MenuItem = 0x0004
	MenuReset      MenuItem = 0x0008
	MenuHome       MenuItem = 0x0010
	MenuUpdate     MenuItem = 0x0020
	MenuDevInfo    MenuItem = 0x0040

	MenuAll = MenuConfigNew | MenuOpenSSIDs | MenuDisconnect | MenuReset | MenuHome | MenuUpdate | MenuDevInfo
)

// Has reports whether every item in m is enabled.
func (i MenuItem) Has(m MenuItem) bool { return i&m == m }

// AuthMethod is the HTTP authentication scheme for portal pages.
type AuthMethod uint8

const (
	AuthNone AuthMethod = iota
	AuthBasic
	AuthDigest
)

func (a AuthMethod) String() string {
	switch a {
	case AuthNone:
		return "none"
	case AuthBasic:
		return "basic"
	case AuthDigest:
		return "digest"
	default:
		return fmt.Sprintf("AuthMethod(%d)", a)
	}
}

// AuthScope bits select which pages authentication covers.
const (
	AuthScopePartial uint16 = 0x0001
	AuthScopeAux     uint16 = 0x0002
	AuthScopeAC      uint16 = 0x0004
	AuthScopePortal  uint16 = AuthScopeAux | AuthScopeAC
)

// Principle selects how a saved credential is chosen from a scan.
type Principle uint8

const (
	// PrincipleRecent picks the most recently used credential in range.
	PrincipleRecent Principle = iota
	// PrincipleAuto picks the credential with the strongest signal.
	PrincipleAuto
)

func (p Principle) String() string {
	switch p {
	case PrincipleRecent:
		return "recent"
	case PrincipleAuto:
		return "auto"
	default:
		return fmt.Sprintf("Principle(%d)", p)
	}
}

// ParsePrinciple accepts "recent" or "auto".
func ParsePrinciple(s string) (Principle, error) {
	switch strings.ToLower(s) {
	case "recent":
		return PrincipleRecent, nil
	case "auto":
		return PrincipleAuto, nil
	}
	return 0, fmt.Errorf("unknown principle %q", s)
}

// AutoSave controls whether a successful connection is remembered.
type AutoSave uint8

const (
	AutoSaveAuto AutoSave = iota
	AutoSaveNever
)

// BootURI selects where the portal lands after a reset.
type BootURI uint8

const (
	BootURIRoot BootURI = iota
	BootURIHome
)

// OTA selects the update mechanism. Persisted only.
type OTA uint8

const (
	OTAExtra OTA = iota
	OTABuiltin
)

// PortalConfig is the complete portal configuration.
type PortalConfig struct {
	// Access point identity.
	APID    string
	PSK     string
	Channel uint8
	Hidden  uint8

	// Access point addressing.
	APIP    netip.Addr
	Gateway netip.Addr
	Netmask netip.Addr

	// Station addressing. An invalid Addr means DHCP.
	STAIP      netip.Addr
	STAGateway netip.Addr
	STANetmask netip.Addr
	DNS1       netip.Addr
	DNS2       netip.Addr

	BeginTimeout  uint32 // ms
	PortalTimeout uint32 // ms, 0 disables the portal timer

	Flags     Flags
	MenuItems MenuItem

	Auth      AuthMethod
	AuthScope uint16
	Username  string
	Password  string

	HostName string
	HomeURI  string
	Title    string

	MinRSSI        int16 // dBm
	Uptime         int16 // seconds
	BoundaryOffset uint16

	Principle         Principle
	AutoSave          AutoSave
	BootURI           BootURI
	ReconnectInterval uint8
	OTA               OTA
	TickerPort        uint8
}

// Built-in defaults.
const (
	DefaultAPID          = "esp32ap"
	DefaultPSK           = "12345678"
	DefaultChannel       = 1
	DefaultMinRSSI       = -120
	DefaultBeginTimeout  = 30000
	DefaultPortalTimeout = 0
	DefaultHomeURI       = "/"
	DefaultTitle         = "AutoConnect"
	DefaultUptime        = 30
	DefaultTickerPort    = 2

	DefaultMenu = MenuConfigNew | MenuOpenSSIDs | MenuDisconnect | MenuReset | MenuUpdate | MenuHome
)

// Default returns the built-in configuration.
func Default() PortalConfig {
	return PortalConfig{
		APID:          DefaultAPID,
		PSK:           DefaultPSK,
		Channel:       DefaultChannel,
		APIP:          netip.AddrFrom4([4]byte{172, 217, 28, 1}),
		Gateway:       netip.AddrFrom4([4]byte{172, 217, 28, 1}),
		Netmask:       netip.AddrFrom4([4]byte{255, 255, 255, 0}),
		BeginTimeout:  DefaultBeginTimeout,
		PortalTimeout: DefaultPortalTimeout,
		Flags:         FlagAutoRise | FlagAutoReset,
		MenuItems:     DefaultMenu,
		Auth:          AuthNone,
		AuthScope:     AuthScopeAux,
		HomeURI:       DefaultHomeURI,
		Title:         DefaultTitle,
		MinRSSI:       DefaultMinRSSI,
		Uptime:        DefaultUptime,
		Principle:     PrincipleRecent,
		AutoSave:      AutoSaveAuto,
		BootURI:       BootURIRoot,
		OTA:           OTAExtra,
		TickerPort:    DefaultTickerPort,
	}
}

// EnableMenu turns the given menu items on.
func (c *PortalConfig) EnableMenu(items MenuItem) {
	c.MenuItems |= items
}

// DisableMenu turns the given menu items off.
func (c *PortalConfig) DisableMenu(items MenuItem) {
	c.MenuItems &^= items
}
