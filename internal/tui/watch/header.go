package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// RunStatus is the monitor's view of the run lifecycle.
type RunStatus int

const (
	StatusWaiting RunStatus = iota
	StatusRunning
	StatusCancelling
	StatusFinished
	StatusFailed
)

func (s RunStatus) String() string {
	switch s {
	case StatusRunning:
		return "RUNNING"
	case StatusCancelling:
		return "CANCELLING"
	case StatusFinished:
		return "FINISHED"
	case StatusFailed:
		return "FAILED"
	default:
		return "WAITING"
	}
}

func (m Model) renderHeader() string {
	innerWidth := m.width - 4

	var statusText string
	switch m.status {
	case StatusFinished:
		statusText = m.theme.Completed.Render(m.status.String())
	case StatusFailed:
		statusText = m.theme.Failed.Render(m.status.String())
	case StatusWaiting:
		statusText = m.theme.Waiting.Render(m.status.String())
	default:
		statusText = m.theme.Replaying.Render(m.status.String())
	}

	spin := " "
	if m.status == StatusRunning || m.status == StatusCancelling {
		spin = m.spinner.View()
	}

	titleText := fmt.Sprintf(" RETRACER WATCH %s", spin)
	clock := m.theme.Muted.Render(m.now.Format("15:04:05"))
	pad := innerWidth - lipgloss.Width(titleText) - lipgloss.Width(clock) - 4
	if pad < 1 {
		pad = 1
	}
	titleLine := titleText + strings.Repeat(" ", pad) + clock + " "

	elapsed := "-"
	if !m.startedAt.IsZero() {
		end := m.now
		if !m.finishedAt.IsZero() {
			end = m.finishedAt
		}
		elapsed = formatDuration(end.Sub(m.startedAt))
	}

	runID := m.runID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	statsLine := fmt.Sprintf(" %s  ⏱ %s  Run: %s", statusText, elapsed, m.theme.Accent.Render(runID))
	cmdLine := " " + m.theme.Muted.Render(truncate(m.command, innerWidth-4))

	lastEventStr := "never"
	if !m.activity.LastEvent().IsZero() {
		lastEventStr = fmt.Sprintf("%s ago", m.now.Sub(m.activity.LastEvent()).Round(time.Second))
	}
	activityLine := fmt.Sprintf(" Last event: %s %s", lastEventStr, m.activity.Render(m.theme))

	content := lipgloss.JoinVertical(lipgloss.Left, titleLine, statsLine, cmdLine, activityLine)
	return m.theme.Panel.Width(innerWidth).Render(content)
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func truncate(s string, n int) string {
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
