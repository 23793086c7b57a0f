package watch

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattjoyce/retracer/internal/events"
	"github.com/mattjoyce/retracer/internal/protocol"
)

const maxEventLog = 50

// Model is the BubbleTea model for watching one replay run.
type Model struct {
	width  int
	height int
	now    time.Time

	// Run state
	runID      string
	command    string
	status     RunStatus
	summary    string
	state      *protocol.CapturedState
	snapshots  int
	startedAt  time.Time
	finishedAt time.Time
	eventLog   []events.Event

	// Live indicators
	spinner  spinner.Model
	activity Activity
	errTable table.Model

	theme Theme

	// Communication
	sub    <-chan events.Event
	cancel func()
}

// New creates a monitor reading run events from sub. cancel is invoked when
// the user quits before the run has finished.
func New(sub <-chan events.Event, cancel func()) *Model {
	return &Model{
		now:       time.Now(),
		snapshots: -1,
		eventLog:  make([]events.Event, 0),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		errTable:  newErrorTable(),
		theme:     newTheme(),
		sub:       sub,
		cancel:    cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		receiveNextEvent(m.sub),
		m.spinner.Tick,
		tick(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.done() {
				return m, tea.Quit
			}
			if m.status != StatusCancelling {
				m.status = StatusCancelling
				if m.cancel != nil {
					m.cancel()
				}
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.errTable, cmd = m.errTable.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.errTable.SetColumns(errorColumns(msg.Width - 8))

	case tickMsg:
		m.now = time.Time(msg)
		m.activity.Decay(m.now)
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.apply(events.Event(msg))
		if m.done() {
			return m, tea.Quit
		}
		return m, receiveNextEvent(m.sub)

	case subscriptionClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

// apply folds one run event into the model.
func (m *Model) apply(e events.Event) {
	m.eventLog = append([]events.Event{e}, m.eventLog...)
	if len(m.eventLog) > maxEventLog {
		m.eventLog = m.eventLog[:maxEventLog]
	}
	m.activity.OnEvent(e.At)

	switch e.Type {
	case events.TypeRunStarted:
		m.runID = e.RunID
		m.command = e.Message
		m.startedAt = e.At
		if m.status == StatusWaiting {
			m.status = StatusRunning
		}
	case events.TypeStateCaptured:
		m.state = e.State
	case events.TypeSnapshotsCaptured:
		m.snapshots = len(e.Snapshots)
	case events.TypeReplayErrors:
		m.errTable.SetRows(append(m.errTable.Rows(), errorRows(e.Errors)...))
	case events.TypeRunFailed:
		m.status = StatusFailed
	case events.TypeRunFinished:
		m.summary = e.Message
		m.finishedAt = e.At
		if m.status != StatusFailed {
			m.status = StatusFinished
		}
	}
}

func (m Model) done() bool {
	return !m.finishedAt.IsZero()
}

// Summary returns the finished event's message, or "" if the run has not finished.
func (m Model) Summary() string {
	return m.summary
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing retracer watch..."
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render(" [q] Cancel replay / quit • [↑/↓] Scroll errors")

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.renderHeader(),
			m.renderResults(),
			m.renderEventStream(),
			help,
		),
	)
}
