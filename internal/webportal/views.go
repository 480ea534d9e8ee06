package webportal

import (
	"encoding/json"
	"net/http"
	"net/netip"

	"github.com/muurk/autoconnect/internal/acconfig"
	"github.com/muurk/autoconnect/internal/credential"
	"github.com/muurk/autoconnect/internal/portal"
	"github.com/muurk/autoconnect/internal/radio"
	"github.com/muurk/autoconnect/internal/version"
)

// StatusView is the JSON shape of a status snapshot. It is also the
// message format of the events feed.
type StatusView struct {
	State       string       `json:"state"`
	Title       string       `json:"title"`
	Attempt     string       `json:"attempt,omitempty"`
	Pending     bool         `json:"pending,omitempty"`
	Station     *StationView `json:"station,omitempty"`
	Retries     int          `json:"retries"`
	LastError   string       `json:"last_error,omitempty"`
	Portal      PortalView   `json:"portal"`
	Menu        []string     `json:"menu"`
	HomeURI     string       `json:"home_uri"`
	Uptime      int16        `json:"uptime"`
	Credentials int          `json:"credentials"`
}

// StationView describes the station link.
type StationView struct {
	SSID    string `json:"ssid"`
	BSSID   string `json:"bssid,omitempty"`
	IP      string `json:"ip,omitempty"`
	Gateway string `json:"gateway,omitempty"`
	RSSI    int    `json:"rssi"`
	Channel uint8  `json:"channel,omitempty"`
}

// PortalView describes the access point side.
type PortalView struct {
	SSID      string `json:"ssid"`
	IP        string `json:"ip,omitempty"`
	Up        bool   `json:"up"`
	ElapsedMS uint32 `json:"elapsed_ms"`
	TimeoutMS uint32 `json:"timeout_ms"`
}

// NetworkView is one scan result.
type NetworkView struct {
	SSID       string `json:"ssid"`
	BSSID      string `json:"bssid"`
	RSSI       int    `json:"rssi"`
	Quality    int    `json:"quality"`
	Channel    uint8  `json:"channel"`
	Encryption string `json:"encryption"`
	Hidden     bool   `json:"hidden,omitempty"`
	Saved      bool   `json:"saved"`
}

// CredentialView is a saved network. The passphrase is never served.
type CredentialView struct {
	SSID     string `json:"ssid"`
	BSSID    string `json:"bssid,omitempty"`
	Channel  uint8  `json:"channel,omitempty"`
	StaticIP string `json:"static_ip,omitempty"`
	Recency  uint32 `json:"recency"`
}

type devInfoView struct {
	Build    version.Info `json:"build"`
	Hostname string       `json:"hostname,omitempty"`
	Uptime   int64        `json:"uptime_seconds"`
	Status   StatusView   `json:"status"`
}

type errorView struct {
	Error string `json:"error"`
}

var menuNames = []struct {
	item acconfig.MenuItem
	name string
}{
	{acconfig.MenuConfigNew, "config_new"},
	{acconfig.MenuOpenSSIDs, "open_ssids"},
	{acconfig.MenuDisconnect, "disconnect"},
	{acconfig.MenuReset, "reset"},
	{acconfig.MenuHome, "home"},
	{acconfig.MenuUpdate, "update"},
	{acconfig.MenuDevInfo, "dev_info"},
}

func addrString(a netip.Addr) string {
	if !a.IsValid() {
		return ""
	}
	return a.String()
}

// NewStatusView converts a controller snapshot to its JSON shape.
func NewStatusView(st portal.Status) StatusView {
	v := StatusView{
		State:     st.State.String(),
		Title:     st.Title,
		Attempt:   st.Attempt,
		Pending:   st.Pending,
		Retries:   st.Retries,
		LastError: st.LastError,
		Portal: PortalView{
			SSID:      st.APID,
			IP:        addrString(st.APIP),
			Up:        st.PortalUp,
			ElapsedMS: st.PortalElapsed,
			TimeoutMS: st.PortalTimeout,
		},
		Menu:        []string{},
		HomeURI:     st.HomeURI,
		Uptime:      st.Uptime,
		Credentials: st.Credentials,
	}
	if st.State == portal.StateConnected {
		v.Station = &StationView{
			SSID:    st.Station.SSID,
			BSSID:   st.Station.BSSID.String(),
			IP:      addrString(st.Station.IP),
			Gateway: addrString(st.Station.Gateway),
			RSSI:    st.Station.RSSI,
			Channel: st.Station.Channel,
		}
	}
	for _, m := range menuNames {
		if st.Menu.Has(m.item) {
			v.Menu = append(v.Menu, m.name)
		}
	}
	return v
}

func networkViews(results []radio.ScanResult, creds *credential.Store) []NetworkView {
	out := make([]NetworkView, 0, len(results))
	for _, r := range results {
		saved := false
		if creds != nil {
			if id := creds.Policy().Identity(r.SSID, r.BSSID); id != "" {
				_, saved = creds.Lookup(id)
			}
		}
		out = append(out, NetworkView{
			SSID:       r.SSID,
			BSSID:      r.BSSID.String(),
			RSSI:       r.RSSI,
			Quality:    radio.Quality(r.RSSI),
			Channel:    r.Channel,
			Encryption: r.Encryption.String(),
			Hidden:     r.Hidden,
			Saved:      saved,
		})
	}
	return out
}

func credentialViews(creds []credential.Credential) []CredentialView {
	out := make([]CredentialView, 0, len(creds))
	for _, c := range creds {
		v := CredentialView{
			SSID:    c.SSID,
			Channel: c.Channel,
			Recency: c.Recency,
		}
		if len(c.BSSID) > 0 {
			v.BSSID = c.BSSID.String()
		}
		if c.IP.IsStatic() {
			v.StaticIP = c.IP.IP.String()
		}
		out = append(out, v)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}
