package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/autoconnect/internal/webportal"
)

// actionTimeout bounds one portal request from the dashboard.
const actionTimeout = 5 * time.Second

// StatusFeed delivers status snapshots, blocking until the next one.
type StatusFeed interface {
	Next() (webportal.StatusView, error)
}

// PortalActions are the requests the dashboard can send.
type PortalActions interface {
	Scan(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Reset(ctx context.Context) error
}

type statusMsg webportal.StatusView

type feedErrMsg struct{ err error }

type actionMsg struct {
	name string
	err  error
}

type watchKeyMap struct {
	Scan       key.Binding
	Disconnect key.Binding
	Reset      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Scan, k.Disconnect, k.Reset, k.Help, k.Quit}
}

func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Scan, k.Disconnect, k.Reset},
		{k.Help, k.Quit},
	}
}

func newWatchKeyMap() watchKeyMap {
	return watchKeyMap{
		Scan: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "scan"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "disconnect"),
		),
		Reset: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reset"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// WatchModel is the live dashboard of one portal.
type WatchModel struct {
	target  string
	feed    StatusFeed
	actions PortalActions

	status *webportal.StatusView
	note   string
	err    error

	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    watchKeyMap
	width   int
}

// NewWatchModel creates a dashboard for the portal at target.
func NewWatchModel(target string, feed StatusFeed, actions PortalActions) WatchModel {
	return WatchModel{
		target:  target,
		feed:    feed,
		actions: actions,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(StateStyle("seeking_sta")),
		),
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:  help.New(),
		keys:  newWatchKeyMap(),
		width: GetTerminalWidth(),
	}
}

// Status returns the last snapshot received, or nil.
func (m WatchModel) Status() *webportal.StatusView { return m.status }

// Err returns the error that ended the feed.
func (m WatchModel) Err() error { return m.err }

func waitForStatus(feed StatusFeed) tea.Cmd {
	return func() tea.Msg {
		v, err := feed.Next()
		if err != nil {
			return feedErrMsg{err: err}
		}
		return statusMsg(v)
	}
}

func runAction(name string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionMsg{name: name, err: fn(ctx)}
	}
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForStatus(m.feed))
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)
		m.help.Width = m.width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Scan):
			m.note = "scan requested"
			return m, runAction("scan", m.actions.Scan)
		case key.Matches(msg, m.keys.Disconnect):
			m.note = "disconnect requested"
			return m, runAction("disconnect", m.actions.Disconnect)
		case key.Matches(msg, m.keys.Reset):
			m.note = "reset requested"
			return m, runAction("reset", m.actions.Reset)
		}
		return m, nil

	case statusMsg:
		v := webportal.StatusView(msg)
		m.status = &v
		return m, waitForStatus(m.feed)

	case feedErrMsg:
		m.err = msg.err
		return m, tea.Quit

	case actionMsg:
		if msg.err != nil {
			m.note = fmt.Sprintf("%s failed: %v", msg.name, msg.err)
		} else {
			m.note = msg.name + " accepted"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m WatchModel) View() string {
	var b strings.Builder
	b.WriteString(RenderHeader("AutoConnect", m.target, nil, m.width))
	b.WriteString("\n\n")

	if m.status == nil {
		b.WriteString("  " + m.spinner.View() + " waiting for status...\n")
	} else {
		b.WriteString(m.renderStatus(*m.status))
	}

	if m.note != "" {
		b.WriteString("\n  " + NoteStyle.Render(m.note) + "\n")
	}
	if m.err != nil {
		b.WriteString("\n  " + ErrorMessageStyle.Render("feed closed: "+m.err.Error()) + "\n")
	}
	b.WriteString("\n  " + m.help.View(m.keys) + "\n")
	return b.String()
}

func (m WatchModel) renderStatus(v webportal.StatusView) string {
	state := StateStyle(v.State).Render(v.State)
	if v.State == "seeking_sta" || v.State == "starting_ap" {
		state = m.spinner.View() + " " + state
	}
	fields := []Field{{"State", state}}

	if v.Attempt != "" {
		fields = append(fields, Field{"Joining", v.Attempt})
	}
	if v.Station != nil {
		fields = append(fields,
			Field{"Network", v.Station.SSID},
			Field{"Address", v.Station.IP},
			Field{"Signal", fmt.Sprintf("%d dBm", v.Station.RSSI)},
		)
	}
	if v.Portal.Up {
		fields = append(fields, Field{"Portal", v.Portal.SSID + " @ " + v.Portal.IP})
		if v.Portal.TimeoutMS > 0 {
			pct := float64(v.Portal.ElapsedMS) / float64(v.Portal.TimeoutMS)
			if pct > 1 {
				pct = 1
			}
			fields = append(fields, Field{"Timeout", m.bar.ViewAs(pct)})
		}
	}
	fields = append(fields,
		Field{"Retries", fmt.Sprint(v.Retries)},
		Field{"Saved", fmt.Sprint(v.Credentials)},
	)
	if v.LastError != "" {
		fields = append(fields, Field{"Last error", ErrorMessageStyle.Render(v.LastError)})
	}

	out := RenderFields(fields)
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n") + "\n"
}

// RunWatch runs the dashboard until the user quits, ctx ends, or the
// feed fails. A feed failure is returned.
func RunWatch(ctx context.Context, target string, feed StatusFeed, actions PortalActions) error {
	p := tea.NewProgram(NewWatchModel(target, feed, actions), tea.WithContext(ctx), tea.WithAltScreen())
	final, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return err
	}
	if m, ok := final.(WatchModel); ok {
		return m.Err()
	}
	return nil
}
