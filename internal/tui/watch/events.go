package watch

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattjoyce/retracer/internal/events"
)

const maxStreamLines = 10

func (m Model) renderEventStream() string {
	innerWidth := m.width - 4

	if len(m.eventLog) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			m.theme.Title.Render("EVENT STREAM"),
			m.theme.Muted.Render("  Waiting for events..."),
		)
		return m.theme.Panel.Width(innerWidth).Render(content)
	}

	var lines []string
	for i, e := range m.eventLog {
		if i >= maxStreamLines {
			break
		}
		lines = append(lines, formatEvent(e, m.theme, innerWidth-30))
	}

	eventsText := lipgloss.NewStyle().Padding(0, 1).Render(strings.Join(lines, "\n"))
	content := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.Title.Render("EVENT STREAM"),
		eventsText,
	)
	return m.theme.Panel.Width(innerWidth).Render(content)
}

func formatEvent(e events.Event, theme Theme, descWidth int) string {
	ts := theme.Muted.Render(e.At.Format("15:04:05"))

	var typeStyle lipgloss.Style
	switch e.Type {
	case events.TypeRunFinished, events.TypeStateCaptured, events.TypeSnapshotsCaptured:
		typeStyle = theme.Completed
	case events.TypeRunFailed, events.TypeReplayErrors:
		typeStyle = theme.Failed
	case events.TypeRunStarted:
		typeStyle = theme.Replaying
	default:
		typeStyle = theme.Muted
	}

	typeName := typeStyle.Render(fmt.Sprintf("%-20s", e.Type))
	return fmt.Sprintf("%s %s %s", ts, typeName, truncate(describeEvent(e), descWidth))
}

// describeEvent returns a one-line summary of the event payload.
func describeEvent(e events.Event) string {
	switch e.Type {
	case events.TypeStateCaptured:
		if e.State == nil {
			return "empty state"
		}
		return fmt.Sprintf("%d top-level keys, %s", e.State.Len(), humanize.Bytes(uint64(len(e.State.Raw()))))
	case events.TypeSnapshotsCaptured:
		var total int
		for _, s := range e.Snapshots {
			total += len(s.Pixels)
		}
		return fmt.Sprintf("%d frame(s), %s", len(e.Snapshots), humanize.Bytes(uint64(total)))
	case events.TypeReplayErrors:
		return fmt.Sprintf("%d error line(s)", len(e.Errors))
	default:
		return firstLine(e.Message)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
