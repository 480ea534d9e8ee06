package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/autoconnect/internal/webportal"
)

type fakeFeed struct {
	views []webportal.StatusView
	err   error
}

func (f *fakeFeed) Next() (webportal.StatusView, error) {
	if len(f.views) == 0 {
		return webportal.StatusView{}, f.err
	}
	v := f.views[0]
	f.views = f.views[1:]
	return v, nil
}

type fakeActions struct {
	scans, disconnects, resets int
	err                        error
}

func (a *fakeActions) Scan(context.Context) error       { a.scans++; return a.err }
func (a *fakeActions) Disconnect(context.Context) error { a.disconnects++; return a.err }
func (a *fakeActions) Reset(context.Context) error      { a.resets++; return a.err }

func TestRenderTableAligns(t *testing.T) {
	out := RenderTable([]string{"SSID", "RSSI"}, [][]string{
		{"home", "-50"},
		{"a-much-longer-name", "-80"},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "home                ") {
		t.Errorf("row not padded: %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "-80") {
		t.Errorf("last column misplaced: %q", lines[2])
	}
}

func TestRenderFieldsKeepsOrder(t *testing.T) {
	out := RenderFields([]Field{{"Zeta", "1"}, {"Alpha", "2"}, {"", "bare"}})
	z := strings.Index(out, "Zeta")
	a := strings.Index(out, "Alpha")
	if z < 0 || a < 0 || z > a {
		t.Errorf("fields out of order:\n%s", out)
	}
	if !strings.Contains(out, "bare") {
		t.Errorf("keyless field dropped:\n%s", out)
	}
}

func TestPrinterBoxes(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(80)

	p.Success("Settings saved", []Field{{"Path", "/tmp/settings.yaml"}})
	p.Failure("Connect failed", errors.New("timeout"), []string{"check the passphrase"})
	p.Header("Credentials", "autoconnectd credentials list", []Field{{"Store", "flash"}})

	out := buf.String()
	for _, want := range []string{"Settings saved", "/tmp/settings.yaml", "Error: timeout", "check the passphrase", "CREDENTIALS"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"YES\n", true},
		{"no\n", false},
		{"", false},
		{"yes", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := Confirm(strings.NewReader(tt.input), &out, "Erase", []string{"all saved networks"}); got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWatchModelFollowsFeed(t *testing.T) {
	feed := &fakeFeed{views: []webportal.StatusView{{State: "captive_portal"}}}
	m := NewWatchModel("http://172.217.28.1", feed, &fakeActions{})

	if !strings.Contains(m.View(), "waiting for status") {
		t.Errorf("initial view:\n%s", m.View())
	}

	msg := waitForStatus(feed)()
	next, cmd := m.Update(msg)
	m = next.(WatchModel)
	if m.Status() == nil || m.Status().State != "captive_portal" {
		t.Fatalf("status = %+v", m.Status())
	}
	if cmd == nil {
		t.Error("status message should wait for the next one")
	}
	if !strings.Contains(m.View(), "captive_portal") {
		t.Errorf("view lacks state:\n%s", m.View())
	}
}

func TestWatchModelFeedError(t *testing.T) {
	feed := &fakeFeed{err: errors.New("closed")}
	m := NewWatchModel("x", feed, &fakeActions{})

	next, _ := m.Update(waitForStatus(feed)())
	m = next.(WatchModel)
	if m.Err() == nil || m.Err().Error() != "closed" {
		t.Errorf("Err() = %v", m.Err())
	}
}

func TestWatchModelKeys(t *testing.T) {
	actions := &fakeActions{}
	m := NewWatchModel("x", &fakeFeed{}, actions)

	keys := []struct {
		key  tea.KeyMsg
		name string
	}{
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")}, "scan"},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")}, "disconnect"},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("R")}, "reset"},
	}
	for _, k := range keys {
		next, cmd := m.Update(k.key)
		m = next.(WatchModel)
		if cmd == nil {
			t.Fatalf("%s: no command", k.name)
		}
		next, _ = m.Update(cmd())
		m = next.(WatchModel)
		if m.note != k.name+" accepted" {
			t.Errorf("%s: note = %q", k.name, m.note)
		}
	}
	if actions.scans != 1 || actions.disconnects != 1 || actions.resets != 1 {
		t.Errorf("actions = %+v", actions)
	}

	actions.err = errors.New("404")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	m = next.(WatchModel)
	next, _ = m.Update(cmd())
	m = next.(WatchModel)
	if !strings.Contains(m.note, "scan failed") {
		t.Errorf("note = %q", m.note)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("quit key produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key did not quit")
	}
}

func TestStateStyleRendersName(t *testing.T) {
	for _, s := range []string{"connected", "captive_portal", "seeking_sta", "failed", "stopped"} {
		if got := StateStyle(s).Render(s); !strings.Contains(got, s) {
			t.Errorf("StateStyle(%q).Render = %q", s, got)
		}
	}
}
