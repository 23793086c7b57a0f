package watch

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattjoyce/retracer/internal/events"
)

// --- Message types ---

type eventMsg events.Event

type tickMsg time.Time

// subscriptionClosedMsg is sent when the event channel is closed.
type subscriptionClosedMsg struct{}

// --- Commands ---

// receiveNextEvent waits for the next event on ch.
func receiveNextEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return subscriptionClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}
