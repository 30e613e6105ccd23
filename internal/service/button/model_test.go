package button

import (
	"context"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/sos-button/internal/domain/sos"
	"github.com/oshokin/sos-button/internal/trigger"
)

// fakeControls records the operations the view asked for.
type fakeControls struct {
	calls []string
}

func (f *fakeControls) record(op string) error {
	f.calls = append(f.calls, op)
	return nil
}

func (f *fakeControls) BeginHold() error           { return f.record("begin_hold") }
func (f *fakeControls) EndHold() error             { return f.record("end_hold") }
func (f *fakeControls) Confirm() error             { return f.record("confirm") }
func (f *fakeControls) SendWithoutLocation() error { return f.record("send_without_location") }
func (f *fakeControls) RetryLocation() error       { return f.record("retry_location") }
func (f *fakeControls) Cancel() error              { return f.record("cancel") }

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func space() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
}

// update applies msg and returns the concrete model.
func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()

	next, cmd := m.Update(msg)

	nm, ok := next.(model)
	require.True(t, ok)

	return nm, cmd
}

// TestModel_HoldWithAutoRepeat begins the hold once and releases after the last repeat.
func TestModel_HoldWithAutoRepeat(t *testing.T) {
	t.Parallel()

	ctl := &fakeControls{}
	m := newModel(context.Background(), ctl, 0)
	require.Equal(t, DefaultReleaseGrace, m.grace)

	m, cmd := update(t, m, space())
	require.NotNil(t, cmd)

	m, _ = update(t, m, space())
	m, _ = update(t, m, space())
	require.Equal(t, []string{"begin_hold"}, ctl.calls)

	// Timers from earlier presses are superseded.
	m, _ = update(t, m, releaseMsg{press: 1})
	m, _ = update(t, m, releaseMsg{press: 2})
	require.Equal(t, []string{"begin_hold"}, ctl.calls)
	require.True(t, m.keyDown)

	m, _ = update(t, m, releaseMsg{press: 3})
	require.Equal(t, []string{"begin_hold", "end_hold"}, ctl.calls)
	require.False(t, m.keyDown)

	// A late timer after release does nothing.
	_, _ = update(t, m, releaseMsg{press: 3})
	require.Equal(t, []string{"begin_hold", "end_hold"}, ctl.calls)
}

// TestModel_ExplicitRelease aborts with x.
func TestModel_ExplicitRelease(t *testing.T) {
	t.Parallel()

	ctl := &fakeControls{}
	m := newModel(context.Background(), ctl, time.Second)
	require.Equal(t, time.Second, m.grace)

	m, _ = update(t, m, space())
	m, _ = update(t, m, runeKey('x'))
	require.Equal(t, []string{"begin_hold", "end_hold"}, ctl.calls)

	// x without a hold is ignored.
	_, _ = update(t, m, runeKey('x'))
	require.Equal(t, []string{"begin_hold", "end_hold"}, ctl.calls)
}

// TestModel_KeyBindings maps keys to machine operations.
func TestModel_KeyBindings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  tea.KeyMsg
		want string
	}{
		{name: "enter confirms", key: tea.KeyMsg{Type: tea.KeyEnter}, want: "confirm"},
		{name: "y confirms", key: runeKey('y'), want: "confirm"},
		{name: "s sends without location", key: runeKey('s'), want: "send_without_location"},
		{name: "r retries", key: runeKey('r'), want: "retry_location"},
		{name: "esc cancels", key: tea.KeyMsg{Type: tea.KeyEsc}, want: "cancel"},
		{name: "n cancels", key: runeKey('n'), want: "cancel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctl := &fakeControls{}
			_, cmd := update(t, newModel(context.Background(), ctl, 0), tt.key)
			require.Nil(t, cmd)
			require.Equal(t, []string{tt.want}, ctl.calls)
		})
	}
}

// TestModel_Quit exits the program without touching the machine.
func TestModel_Quit(t *testing.T) {
	t.Parallel()

	for _, key := range []tea.KeyMsg{runeKey('q'), {Type: tea.KeyCtrlC}} {
		ctl := &fakeControls{}
		_, cmd := update(t, newModel(context.Background(), ctl, 0), key)
		require.NotNil(t, cmd)
		require.IsType(t, tea.QuitMsg{}, cmd())
		require.Empty(t, ctl.calls)
	}
}

// TestModel_Spinner runs only while a collaborator is pending.
func TestModel_Spinner(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), &fakeControls{}, 0)

	m, cmd := update(t, m, snapshotMsg{State: trigger.Locating})
	require.NotNil(t, cmd)
	require.True(t, m.spinning)

	// A second busy snapshot does not start another tick loop.
	m, cmd = update(t, m, snapshotMsg{State: trigger.Dispatching})
	require.Nil(t, cmd)

	m, cmd = update(t, m, m.spinner.Tick())
	require.NotNil(t, cmd)

	m, _ = update(t, m, snapshotMsg{State: trigger.Sent})

	m, cmd = update(t, m, spinner.TickMsg{})
	require.Nil(t, cmd)
	require.False(t, m.spinning)
}

// TestModel_View renders the text of each state.
func TestModel_View(t *testing.T) {
	t.Parallel()

	coordinate := &domain.Coordinate{Latitude: 6.5244, Longitude: 3.3792}

	tests := []struct {
		name     string
		snapshot trigger.Snapshot
		want     []string
		absent   []string
	}{
		{
			name:     "idle",
			snapshot: trigger.Snapshot{State: trigger.Idle},
			want:     []string{"Hold SPACE"},
		},
		{
			name:     "holding",
			snapshot: trigger.Snapshot{State: trigger.Holding, Remaining: 2},
			want:     []string{"Sending in 2"},
		},
		{
			name:     "locating",
			snapshot: trigger.Snapshot{State: trigger.Locating},
			want:     []string{"Getting your location", "q quit"},
			absent:   []string{"esc"},
		},
		{
			name:     "dispatching",
			snapshot: trigger.Snapshot{State: trigger.Dispatching},
			want:     []string{"Sending alert", "q quit"},
			absent:   []string{"esc"},
		},
		{
			name:     "awaiting confirmation",
			snapshot: trigger.Snapshot{State: trigger.AwaitingConfirmation, Coordinate: coordinate},
			want:     []string{coordinate.String(), "enter send"},
		},
		{
			name: "location unavailable",
			snapshot: trigger.Snapshot{
				State:           trigger.LocationUnavailable,
				LocationFailure: domain.LocationFailurePermissionDenied,
			},
			want: []string{domain.LocationFailurePermissionDenied.Message(), "send without location"},
		},
		{
			name:     "sent",
			snapshot: trigger.Snapshot{State: trigger.Sent},
			want:     []string{"Alert sent"},
		},
		{
			name:     "failed",
			snapshot: trigger.Snapshot{State: trigger.Failed, Err: &domain.DispatchError{Err: errTestBackend}},
			want:     []string{"emergency number"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, _ := update(t, newModel(context.Background(), &fakeControls{}, 0), snapshotMsg(tt.snapshot))

			view := m.View()
			for _, want := range tt.want {
				require.Contains(t, view, want)
			}

			for _, absent := range tt.absent {
				require.NotContains(t, view, absent)
			}
		})
	}
}
