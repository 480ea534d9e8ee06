package credential

import (
	"fmt"
	"net"
	"net/netip"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/muurk/autoconnect/internal/nvstore"
	"github.com/muurk/autoconnect/internal/radio"
	"go.uber.org/zap"
)

// Magic identifies a persisted credential table.
const Magic = "AC_CREDT"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("credential: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("credential: CBOR decoder initialization failed: " + err.Error())
	}
}

type tableRecord struct {
	Policy  Policy        `cbor:"1,keyasint"`
	Entries []entryRecord `cbor:"2,keyasint"`
}

type entryRecord struct {
	SSID       string `cbor:"1,keyasint"`
	BSSID      []byte `cbor:"2,keyasint,omitempty"`
	Passphrase string `cbor:"3,keyasint,omitempty"`
	Channel    uint8  `cbor:"4,keyasint,omitempty"`
	Recency    uint32 `cbor:"5,keyasint"`
	IP         []byte `cbor:"6,keyasint,omitempty"` // 5 IPv4 addresses, 20 bytes
}

func encodeIP(c radio.IPConfig) []byte {
	if !c.IsStatic() {
		return nil
	}
	out := make([]byte, 0, 20)
	for _, a := range []netip.Addr{c.IP, c.Gateway, c.Netmask, c.DNS1, c.DNS2} {
		if a.IsValid() && a.Is4() {
			b := a.As4()
			out = append(out, b[:]...)
		} else {
			out = append(out, 0, 0, 0, 0)
		}
	}
	return out
}

func decodeIP(b []byte) radio.IPConfig {
	if len(b) != 20 {
		return radio.IPConfig{}
	}
	addr := func(i int) netip.Addr {
		var v [4]byte
		copy(v[:], b[i*4:i*4+4])
		if v == [4]byte{} {
			return netip.Addr{}
		}
		return netip.AddrFrom4(v)
	}
	return radio.IPConfig{IP: addr(0), Gateway: addr(1), Netmask: addr(2), DNS1: addr(3), DNS2: addr(4)}
}

// Selector addresses the credential table. On an offset-addressed store
// the table occupies the limit bytes starting at offset.
func Selector(offset, limit int) nvstore.Selector {
	return nvstore.Selector{Offset: offset, Key: Magic, Length: limit}
}

// Marshal encodes the store as a framed record.
func (s *Store) Marshal() ([]byte, error) {
	s.mu.Lock()
	rec := tableRecord{Policy: s.policy}
	for _, c := range s.creds {
		rec.Entries = append(rec.Entries, entryRecord{
			SSID:       c.SSID,
			BSSID:      []byte(c.BSSID),
			Passphrase: c.Passphrase,
			Channel:    c.Channel,
			Recency:    c.Recency,
			IP:         encodeIP(c.IP),
		})
	}
	s.mu.Unlock()

	payload, err := encMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding credentials: %w", err)
	}
	return nvstore.Frame(Magic, payload)
}

// Unmarshal replaces the store contents with a framed record. The store
// is unchanged on error.
func (s *Store) Unmarshal(data []byte) error {
	total, err := nvstore.ParseHeader(Magic, data)
	if err != nil {
		return fmt.Errorf("credential table: %w", err)
	}
	if total > len(data) {
		return fmt.Errorf("credential table: declared %d bytes, have %d: %w", total, len(data), nvstore.ErrOutOfRange)
	}
	var rec tableRecord
	if err := decMode.Unmarshal(data[nvstore.HeaderSize:total], &rec); err != nil {
		return fmt.Errorf("decoding credentials: %w", err)
	}

	if rec.Policy != s.policy {
		s.logger.Warn("credential table written under a different identity policy",
			zap.Stringer("stored", rec.Policy), zap.Stringer("active", s.policy))
	}

	sort.SliceStable(rec.Entries, func(i, j int) bool {
		return rec.Entries[i].Recency > rec.Entries[j].Recency
	})

	seen := make(map[string]bool)
	var creds []Credential
	for _, e := range rec.Entries {
		c := Credential{
			SSID:       e.SSID,
			BSSID:      net.HardwareAddr(e.BSSID),
			Passphrase: e.Passphrase,
			Channel:    e.Channel,
			Recency:    e.Recency,
			IP:         decodeIP(e.IP),
		}
		id := s.policy.Identity(c.SSID, c.BSSID)
		if id == "" || seen[id] {
			s.logger.Debug("dropping unusable stored credential", zap.String("ssid", c.SSID))
			continue
		}
		if len(creds) == s.capacity {
			s.logger.Warn("stored credentials exceed capacity, dropping oldest",
				zap.Int("capacity", s.capacity), zap.Int("stored", len(rec.Entries)))
			break
		}
		seen[id] = true
		creds = append(creds, c)
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	return nil
}

// Load reads the table from st. A missing table leaves the store empty
// and reports an nvstore not-found error.
func (s *Store) Load(st nvstore.Store, sel nvstore.Selector) error {
	data, err := nvstore.LoadFramed(st, sel, Magic)
	if err != nil {
		return err
	}
	if err := s.Unmarshal(data); err != nil {
		return &nvstore.StorageError{Op: "load", Backend: st.Name(), Selector: sel, Err: err}
	}
	s.logger.Debug("loaded credentials", zap.Int("count", s.Len()), zap.String("backend", st.Name()))
	return nil
}

// Save writes the table to st.
func (s *Store) Save(st nvstore.Store, sel nvstore.Selector) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	return st.Save(sel, data)
}
