package settings

import "time"

// Settings is the whole settings file.
type Settings struct {
	Version     int                `yaml:"version"`
	Storage     StorageSettings    `yaml:"storage"`
	Radio       RadioSettings      `yaml:"radio"`
	Credentials CredentialSettings `yaml:"credentials"`
	Web         WebSettings        `yaml:"web"`
	DNS         DNSSettings        `yaml:"dns"`
	MDNS        MDNSSettings       `yaml:"mdns"`
	Log         LogSettings        `yaml:"log"`

	// PollInterval is the controller polling period.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Defaults override the built-in portal configuration until an
	// archive is saved.
	Defaults *Overrides `yaml:"defaults,omitempty"`
}

// StorageSettings selects the persistent store.
type StorageSettings struct {
	Backend      string `yaml:"backend"`             // "flash" or "prefs"
	Path         string `yaml:"path,omitempty"`      // empty uses the data directory
	Size         int    `yaml:"size,omitempty"`      // flash region size in bytes
	Namespace    string `yaml:"namespace,omitempty"` // prefs namespace
	ConfigOffset int    `yaml:"config_offset"`       // archive offset in the flash region
}

// RadioSettings selects the radio driver.
type RadioSettings struct {
	Driver       string       `yaml:"driver"` // "nmcli" or "simulator"
	Interface    string       `yaml:"interface,omitempty"`
	APConnection string       `yaml:"ap_connection,omitempty"`
	Networks     []SimNetwork `yaml:"networks,omitempty"` // simulator only
}

// SimNetwork is a network the simulator driver pretends to see.
type SimNetwork struct {
	SSID         string `yaml:"ssid"`
	BSSID        string `yaml:"bssid,omitempty"`
	RSSI         int    `yaml:"rssi"`
	Channel      uint8  `yaml:"channel,omitempty"`
	Passphrase   string `yaml:"passphrase,omitempty"`
	Hidden       bool   `yaml:"hidden,omitempty"`
	Unresponsive bool   `yaml:"unresponsive,omitempty"`
}

// CredentialSettings sizes the credential table.
type CredentialSettings struct {
	Capacity int `yaml:"capacity"`
}

// WebSettings configures the portal web server.
type WebSettings struct {
	Port         int      `yaml:"port"`
	ListenHost   string   `yaml:"listen_host,omitempty"`
	AllowedHosts []string `yaml:"allowed_hosts,omitempty"`
}

// DNSSettings configures the captive DNS responder.
type DNSSettings struct {
	Port       int    `yaml:"port"`
	ListenHost string `yaml:"listen_host,omitempty"`
	TTL        uint32 `yaml:"ttl,omitempty"`
}

// MDNSSettings configures the station-side announcement.
type MDNSSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname,omitempty"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level      string `yaml:"level,omitempty"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// Overrides are optional replacements for portal defaults. Unset fields
// keep the built-in value.
type Overrides struct {
	APID              *string         `yaml:"ap_id,omitempty"`
	PSK               *string         `yaml:"psk,omitempty"`
	Channel           *uint8          `yaml:"channel,omitempty"`
	Hidden            *bool           `yaml:"hidden,omitempty"`
	APIP              *string         `yaml:"ap_ip,omitempty"`
	Gateway           *string         `yaml:"gateway,omitempty"`
	Netmask           *string         `yaml:"netmask,omitempty"`
	BeginTimeout      *time.Duration  `yaml:"begin_timeout,omitempty"`
	PortalTimeout     *time.Duration  `yaml:"portal_timeout,omitempty"`
	Flags             map[string]bool `yaml:"flags,omitempty"`
	HostName          *string         `yaml:"hostname,omitempty"`
	HomeURI           *string         `yaml:"home_uri,omitempty"`
	Title             *string         `yaml:"title,omitempty"`
	MinRSSI           *int16          `yaml:"min_rssi,omitempty"`
	Uptime            *int16          `yaml:"uptime,omitempty"`
	Principle         *string         `yaml:"principle,omitempty"`
	ReconnectInterval *uint8          `yaml:"reconnect_interval,omitempty"`
	BoundaryOffset    *uint16         `yaml:"boundary_offset,omitempty"`
}
