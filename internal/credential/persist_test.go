package credential

import (
	"errors"
	"net/netip"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/muurk/autoconnect/internal/nvstore"
	"github.com/muurk/autoconnect/internal/radio"
)

func TestPersistBothBackends(t *testing.T) {
	dir := t.TempDir()
	flash, err := nvstore.OpenFlash(filepath.Join(dir, "flash.img"), 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	prefs, err := nvstore.OpenPrefs(filepath.Join(dir, "prefs.db"), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer prefs.Close()

	static := radio.IPConfig{
		IP:      netip.MustParseAddr("192.168.4.10"),
		Gateway: netip.MustParseAddr("192.168.4.1"),
		Netmask: netip.MustParseAddr("255.255.255.0"),
		DNS1:    netip.MustParseAddr("192.168.4.1"),
	}

	for _, st := range []nvstore.Store{flash, prefs} {
		t.Run(st.Name(), func(t *testing.T) {
			src := NewStore(5, PolicyBSSID, nil)
			src.Remember(Credential{SSID: "home", BSSID: mac(t, "02:00:00:00:00:01"), Passphrase: "password1", Channel: 6})
			src.Remember(Credential{SSID: "lab", BSSID: mac(t, "02:00:00:00:00:02"), IP: static})

			sel := Selector(0, 1024)
			if err := src.Save(st, sel); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			dst := NewStore(5, PolicyBSSID, nil)
			if err := dst.Load(st, sel); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reflect.DeepEqual(dst.List(), src.List()) {
				t.Errorf("Load() = %v, want %v", dst.List(), src.List())
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	flash, _ := nvstore.OpenFlash("", 0, nil)
	s := NewStore(5, PolicySSID, nil)
	s.Remember(Credential{SSID: "kept"})

	err := s.Load(flash, Selector(0, 1024))
	if !nvstore.IsNotFound(err) {
		t.Fatalf("Load() error = %v, want not found", err)
	}
	if s.Len() != 1 {
		t.Error("failed Load changed the store")
	}
}

func TestSaveExceedsSlot(t *testing.T) {
	flash, _ := nvstore.OpenFlash("", 0, nil)
	s := NewStore(5, PolicySSID, nil)
	s.Remember(Credential{SSID: "a-rather-long-network-name", Passphrase: "an even longer passphrase value"})

	err := s.Save(flash, Selector(0, 16))
	if !errors.Is(err, nvstore.ErrOutOfRange) {
		t.Errorf("Save() error = %v, want ErrOutOfRange", err)
	}
}

func TestUnmarshalTrimsToCapacity(t *testing.T) {
	big := NewStore(5, PolicySSID, nil)
	for _, ssid := range []string{"a", "b", "c", "d"} {
		big.Remember(Credential{SSID: ssid})
	}
	data, err := big.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	small := NewStore(2, PolicySSID, nil)
	if err := small.Unmarshal(data); err != nil {
		t.Fatal(err)
	}
	list := small.List()
	if len(list) != 2 || list[0].SSID != "d" || list[1].SSID != "c" {
		t.Errorf("kept %v, want the two most recent", list)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	s := NewStore(5, PolicySSID, nil)
	s.Remember(Credential{SSID: "kept"})

	bad, _ := nvstore.Frame(Magic, []byte{0xff, 0x00, 0x13})
	for _, data := range [][]byte{nil, []byte("AC_CONFG\x02\x00"), bad} {
		if err := s.Unmarshal(data); err == nil {
			t.Errorf("Unmarshal(%q) expected error", data)
		}
	}
	if s.Len() != 1 {
		t.Error("failed Unmarshal changed the store")
	}
}
