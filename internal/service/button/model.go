package button

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oshokin/sos-button/internal/logger"
	"github.com/oshokin/sos-button/internal/trigger"
)

// DefaultReleaseGrace is how long the space bar may stay silent before the
// hold counts as released. Terminals report a held key as repeated presses,
// and the first repeat arrives after roughly half a second.
const DefaultReleaseGrace = 700 * time.Millisecond

// snapshotMsg carries a machine snapshot into the program.
type snapshotMsg trigger.Snapshot

// releaseMsg fires when the space bar may have been released.
type releaseMsg struct {
	// press is the press counter value when the timer was started.
	press uint64
}

// styles holds the view styles.
type styles struct {
	title   lipgloss.Style
	button  lipgloss.Style
	armed   lipgloss.Style
	body    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	help    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#B00020")).
			Padding(0, 1),
		button: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF5555")).
			Padding(1, 4),
		armed: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#FF5555")).
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("#FF5555")).
			Padding(1, 4),
		body:    lipgloss.NewStyle().Padding(1, 0),
		success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#50FA7B")),
		failure: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5555")),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	}
}

// model is the interactive trigger view.
type model struct {
	ctx      context.Context
	ctl      controls
	snapshot trigger.Snapshot
	spinner  spinner.Model
	styles   styles

	// grace is the release delay.
	grace time.Duration
	// keyDown is set while the space bar is considered held.
	keyDown bool
	// presses counts space key events, so only the last release timer counts.
	presses uint64
	// spinning is set while a spinner tick is scheduled.
	spinning bool
}

func newModel(ctx context.Context, ctl controls, grace time.Duration) model {
	if grace <= 0 {
		grace = DefaultReleaseGrace
	}

	return model{
		ctx:     ctx,
		ctl:     ctl,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		styles:  defaultStyles(),
		grace:   grace,
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snapshot = trigger.Snapshot(msg)

		if busy(m.snapshot.State) && !m.spinning {
			m.spinning = true

			return m, m.spinner.Tick
		}

		return m, nil
	case spinner.TickMsg:
		if !busy(m.snapshot.State) {
			m.spinning = false

			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case releaseMsg:
		if msg.press == m.presses && m.keyDown {
			m.release()
		}

		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey maps keys to machine operations. Rejected operations are ignored.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case " ":
		if !m.keyDown {
			m.keyDown = true
			m.do("begin_hold", m.ctl.BeginHold)
		}

		m.presses++
		press := m.presses

		return m, tea.Tick(m.grace, func(time.Time) tea.Msg {
			return releaseMsg{press: press}
		})
	case "x":
		if m.keyDown {
			m.release()
		}
	case "enter", "y":
		m.do("confirm", m.ctl.Confirm)
	case "s":
		m.do("send_without_location", m.ctl.SendWithoutLocation)
	case "r":
		m.do("retry_location", m.ctl.RetryLocation)
	case "esc", "n":
		m.do("cancel", m.ctl.Cancel)
	}

	return m, nil
}

// release ends the gesture. EndHold outside Holding is a no-op.
func (m *model) release() {
	m.keyDown = false
	m.do("end_hold", m.ctl.EndHold)
}

func (m *model) do(op string, fn func() error) {
	if err := fn(); err != nil {
		logger.DebugKV(m.ctx, "Key ignored", "operation", op, "error", err)
	}
}

// busy reports whether the state waits for a collaborator.
func busy(s trigger.State) bool {
	return s == trigger.Locating || s == trigger.Dispatching
}

// View implements tea.Model.
func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("SOS"))
	b.WriteString("\n")

	s := m.snapshot

	var body, help string

	switch s.State {
	case trigger.Idle:
		body = m.styles.button.Render("SOS") + "\n\nHold SPACE to send an emergency alert."
		help = "space hold · q quit"
	case trigger.Holding:
		body = m.styles.armed.Render(fmt.Sprintf("SOS  %d", s.Remaining)) +
			fmt.Sprintf("\n\nKeep holding. Sending in %d...", s.Remaining)
		help = "release or x to abort"
	case trigger.Locating:
		body = m.spinner.View() + " Getting your location..."
		help = "q quit"
	case trigger.AwaitingConfirmation:
		body = "Your location: " + s.Coordinate.String() + "\n\nSend the alert with this location?"
		help = "enter send · esc cancel"
	case trigger.LocationUnavailable:
		body = m.styles.failure.Render(s.Message())
		help = "r retry · s send without location · esc cancel"
	case trigger.Dispatching:
		body = m.spinner.View() + " Sending alert..."
		help = "q quit"
	case trigger.Sent:
		body = m.styles.success.Render(s.Message())
		help = "space hold to send again · q quit"
	case trigger.Failed:
		body = m.styles.failure.Render(s.Message())
		help = "space hold to try again · q quit"
	}

	b.WriteString(m.styles.body.Render(body))
	b.WriteString("\n")
	b.WriteString(m.styles.help.Render(help))
	b.WriteString("\n")

	return b.String()
}
