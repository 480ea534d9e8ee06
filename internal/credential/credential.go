package credential

import (
	"fmt"
	"net"

	"github.com/muurk/autoconnect/internal/acconfig"
	"github.com/muurk/autoconnect/internal/radio"
)

// Credential is one saved network.
type Credential struct {
	SSID       string
	BSSID      net.HardwareAddr
	Passphrase string
	Channel    uint8
	Recency    uint32
	IP         radio.IPConfig // zero for DHCP
}

func (c Credential) String() string {
	return fmt.Sprintf("%q %s ch%d recency %d", c.SSID, c.BSSID, c.Channel, c.Recency)
}

// ConnectRequest converts the credential into a radio request.
func (c Credential) ConnectRequest() radio.ConnectRequest {
	return radio.ConnectRequest{
		SSID:       c.SSID,
		Passphrase: c.Passphrase,
		BSSID:      c.BSSID,
		Channel:    c.Channel,
		IP:         c.IP,
	}
}

// Validate checks the credential can be stored under policy p.
func (c Credential) Validate(p Policy) error {
	if c.SSID != "" {
		if err := acconfig.ValidateSSID("SSID", c.SSID); err != nil {
			return err
		}
	}
	if err := acconfig.ValidatePassphrase("Passphrase", c.Passphrase); err != nil {
		return err
	}
	if len(c.BSSID) != 0 && len(c.BSSID) != 6 {
		return fmt.Errorf("BSSID %s is not a 6-byte address", c.BSSID)
	}
	if p.Identity(c.SSID, c.BSSID) == "" {
		return fmt.Errorf("credential has no %s to identify it", p)
	}
	return nil
}
