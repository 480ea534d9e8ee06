package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muurk/autoconnect/internal/acconfig"
	"github.com/muurk/autoconnect/internal/credential"
	"github.com/muurk/autoconnect/internal/nvstore"
	"github.com/muurk/autoconnect/internal/radio"
)

const (
	appName      = "autoconnect"
	settingsFile = "settings.yaml"

	// CurrentVersion is the settings schema version written by Save.
	CurrentVersion = 1

	// DefaultPollInterval is the controller polling period.
	DefaultPollInterval = 100 * time.Millisecond
)

// Storage back-ends.
const (
	BackendFlash = "flash"
	BackendPrefs = "prefs"
)

// Radio drivers.
const (
	DriverNMCLI     = "nmcli"
	DriverSimulator = "simulator"
)

// Mutex for file operations
var fileMutex sync.Mutex

// Dir returns the OS-appropriate settings directory:
//   - Linux: $XDG_CONFIG_HOME/autoconnect or $HOME/.config/autoconnect
//   - macOS: $HOME/.config/autoconnect
//   - Windows: %LOCALAPPDATA%\autoconnect
func Dir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, appName), nil
		}
		profile := os.Getenv("USERPROFILE")
		if profile == "" {
			return "", errors.New("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(profile, "AppData", "Local", appName), nil

	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(home, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(home, ".config", appName), nil
	}
}

// Path returns the full path of the settings file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, settingsFile), nil
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	nm := radio.DefaultNMCLIConfig()
	return &Settings{
		Version: CurrentVersion,
		Storage: StorageSettings{
			Backend:      BackendFlash,
			Size:         nvstore.DefaultFlashSize,
			Namespace:    nvstore.DefaultNamespace,
			ConfigOffset: acconfig.DefaultOffset,
		},
		Radio: RadioSettings{
			Driver:       DriverNMCLI,
			Interface:    nm.Interface,
			APConnection: nm.APConnection,
		},
		Credentials:  CredentialSettings{Capacity: credential.DefaultCapacity},
		Web:          WebSettings{Port: 80},
		DNS:          DNSSettings{Port: 53},
		MDNS:         MDNSSettings{Enabled: true},
		Log:          LogSettings{Level: "info", MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28},
		PollInterval: DefaultPollInterval,
	}
}

// Load reads the settings file at path. An empty path uses Path(). A
// missing file yields Default().
func Load(path string) (*Settings, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, fmt.Errorf("failed to get settings path: %w", err)
		}
		path = p
	}

	fileMutex.Lock()
	data, err := os.ReadFile(path)
	fileMutex.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	// Decode over the defaults so omitted keys keep their value.
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if s.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported settings version: %d (expected %d)", s.Version, CurrentVersion)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes s to path atomically. An empty path uses Path().
func (s *Settings) Save(path string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if path == "" {
		p, err := Path()
		if err != nil {
			return fmt.Errorf("failed to get settings path: %w", err)
		}
		path = p
	}

	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	s.Version = CurrentVersion
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	header := "# autoconnect daemon settings\n" +
		"# Saved networks are stored in the credential table, not here.\n\n"
	data = append([]byte(header), data...)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save settings file: %w", err)
	}
	return nil
}

// DataPath resolves the storage file. A relative or empty Storage.Path
// is placed under Dir().
func (s *Settings) DataPath() (string, error) {
	p := s.Storage.Path
	if filepath.IsAbs(p) {
		return p, nil
	}
	if p == "" {
		switch s.Storage.Backend {
		case BackendPrefs:
			p = "prefs.db"
		default:
			p = "flash.bin"
		}
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

// Validate checks the settings for values the daemon cannot use.
func (s *Settings) Validate() error {
	switch s.Storage.Backend {
	case BackendFlash:
		if s.Storage.Size <= 0 {
			return fmt.Errorf("storage.size must be positive, got %d", s.Storage.Size)
		}
		if s.Storage.ConfigOffset < 0 || s.Storage.ConfigOffset >= s.Storage.Size {
			return fmt.Errorf("storage.config_offset %d outside region of %d bytes", s.Storage.ConfigOffset, s.Storage.Size)
		}
	case BackendPrefs:
	default:
		return fmt.Errorf("unknown storage backend %q (want %s or %s)", s.Storage.Backend, BackendFlash, BackendPrefs)
	}

	switch s.Radio.Driver {
	case DriverNMCLI, DriverSimulator:
	default:
		return fmt.Errorf("unknown radio driver %q (want %s or %s)", s.Radio.Driver, DriverNMCLI, DriverSimulator)
	}
	for i, n := range s.Radio.Networks {
		if err := acconfig.ValidateSSID(fmt.Sprintf("radio.networks[%d].ssid", i), n.SSID); err != nil {
			return err
		}
		if n.BSSID != "" {
			if _, err := parseMAC(n.BSSID); err != nil {
				return fmt.Errorf("radio.networks[%d].bssid: %w", i, err)
			}
		}
	}

	if s.Credentials.Capacity <= 0 {
		return fmt.Errorf("credentials.capacity must be positive, got %d", s.Credentials.Capacity)
	}
	if s.Web.Port < -1 || s.Web.Port > 65535 {
		return fmt.Errorf("web.port %d out of range", s.Web.Port)
	}
	if s.DNS.Port < -1 || s.DNS.Port > 65535 {
		return fmt.Errorf("dns.port %d out of range", s.DNS.Port)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", s.PollInterval)
	}
	cfg, err := s.PortalDefaults()
	if err != nil {
		return err
	}
	if s.Storage.Backend == BackendFlash {
		if err := cfg.ValidateLayout(s.Storage.ConfigOffset); err != nil {
			return fmt.Errorf("defaults: %w", err)
		}
	}
	return nil
}

// PortalDefaults returns the built-in portal configuration with the
// settings overrides applied.
func (s *Settings) PortalDefaults() (acconfig.PortalConfig, error) {
	cfg := acconfig.Default()
	if s.Defaults == nil {
		return cfg, nil
	}
	if err := s.Defaults.Apply(&cfg); err != nil {
		return acconfig.PortalConfig{}, err
	}
	return cfg, nil
}

// NMCLI returns the NetworkManager driver configuration.
func (s *Settings) NMCLI() radio.NMCLIConfig {
	cfg := radio.DefaultNMCLIConfig()
	if s.Radio.Interface != "" {
		cfg.Interface = s.Radio.Interface
	}
	if s.Radio.APConnection != "" {
		cfg.APConnection = s.Radio.APConnection
	}
	return cfg
}

// SimNetworks converts the configured simulator networks.
func (s *Settings) SimNetworks() ([]radio.SimNetwork, error) {
	out := make([]radio.SimNetwork, 0, len(s.Radio.Networks))
	for _, n := range s.Radio.Networks {
		sn := radio.SimNetwork{
			SSID:         n.SSID,
			RSSI:         n.RSSI,
			Channel:      n.Channel,
			Passphrase:   n.Passphrase,
			Hidden:       n.Hidden,
			Unresponsive: n.Unresponsive,
		}
		if n.Passphrase != "" {
			sn.Encryption = radio.EncryptionWPA2
		}
		if n.BSSID != "" {
			mac, err := parseMAC(n.BSSID)
			if err != nil {
				return nil, err
			}
			sn.BSSID = mac
		}
		out = append(out, sn)
	}
	return out, nil
}

// Set assigns one dotted key from a string value, as used by the
// "config set" command. Only scalar settings are supported.
func (s *Settings) Set(key, value string) error {
	node := map[string]any{}
	parts := strings.Split(key, ".")
	cur := node
	for _, p := range parts[:len(parts)-1] {
		next := map[string]any{}
		cur[p] = next
		cur = next
	}
	var v any
	if err := yaml.Unmarshal([]byte(value), &v); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	cur[parts[len(parts)-1]] = v

	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	// Work on a deep copy so a rejected value leaves s untouched.
	current, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	next := &Settings{}
	if err := yaml.Unmarshal(current, next); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, next); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*s = *next
	return nil
}
