package watch

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattjoyce/retracer/internal/protocol"
)

func newErrorTable() table.Model {
	t := table.New(
		table.WithColumns(errorColumns(80)),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func errorColumns(width int) []table.Column {
	msgWidth := width - 10 - 16 - 8
	if msgWidth < 20 {
		msgWidth = 20
	}
	return []table.Column{
		{Title: "Call", Width: 10},
		{Title: "Kind", Width: 16},
		{Title: "Message", Width: msgWidth},
	}
}

func errorRows(errs []protocol.ReplayError) []table.Row {
	rows := make([]table.Row, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, table.Row{strconv.FormatInt(e.CallIndex, 10), e.Kind, e.Message})
	}
	return rows
}

func (m Model) renderResults() string {
	innerWidth := m.width - 4

	var lines []string
	if m.summary != "" {
		style := m.theme.Completed
		if m.status == StatusFailed {
			style = m.theme.Failed
		}
		lines = append(lines, " "+style.Render(firstLine(m.summary)))
	}
	if m.state != nil {
		lines = append(lines, fmt.Sprintf(" State: %d parameter(s), %d shader(s), %d texture(s)",
			len(m.state.Parameters()), len(m.state.Shaders()), len(m.state.Textures())))
	}
	if m.snapshots >= 0 {
		lines = append(lines, fmt.Sprintf(" Snapshots: %d", m.snapshots))
	}

	parts := []string{m.theme.Title.Render("RESULT")}
	if len(lines) == 0 {
		parts = append(parts, m.theme.Muted.Render("  Replay in progress..."))
	} else {
		parts = append(parts, lines...)
	}
	if len(m.errTable.Rows()) > 0 {
		parts = append(parts,
			m.theme.ColumnHeader.Render(fmt.Sprintf(" REPLAY ERRORS (%d)", len(m.errTable.Rows()))),
			m.errTable.View(),
		)
	}

	return m.theme.Panel.Width(innerWidth).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
