package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"dualfm/internal/pane"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	activePanelStyle = panelStyle.
				BorderForeground(lipgloss.Color("#7D56F4"))

	fileSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#7D56F4")).
				Foreground(lipgloss.Color("#FFFFFF"))

	dirStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#56D1F4")).
			Bold(true)

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	unknownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777")).
			Italic(true)

	moveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F4D156"))

	copyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#56F47D"))

	deleteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	processingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#AAAAAA")).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#444444"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	errorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF5555")).
			Padding(1, 3)

	errorTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))
)

// entryStyle picks the style for an entry: marks win over kind.
func entryStyle(e pane.Entry) lipgloss.Style {
	switch e.State {
	case pane.ToMove:
		return moveStyle
	case pane.ToCopy:
		return copyStyle
	case pane.ToDelete:
		return deleteStyle
	case pane.Processing:
		return processingStyle
	}
	switch e.Kind {
	case pane.KindDirectory:
		return dirStyle
	case pane.KindUnknown:
		return unknownStyle
	default:
		return fileStyle
	}
}

// entryLine renders one row without styling: cursor marker, name and tag.
func entryLine(e pane.Entry, selected bool, width int) string {
	prefix := "  "
	if selected {
		prefix = "> "
	}
	tag := e.State.Tag()
	nameWidth := width - len(prefix)
	if tag != "" {
		nameWidth -= len(tag) + 1
	}
	if nameWidth < 1 {
		nameWidth = 1
	}
	line := prefix + truncate(e.Name, nameWidth)
	if tag != "" {
		line += " " + tag
	}
	return line
}

// visibleHeight is the number of entry rows that fit in a panel.
func visibleHeight(panelHeight int) int {
	h := panelHeight - 4
	if h < 1 {
		h = 1
	}
	return h
}

// scrollStart keeps the cursor inside the visible window.
func scrollStart(cursor, visible int) int {
	if cursor >= visible {
		return cursor - visible + 1
	}
	return 0
}

func renderPanel(data pane.RenderData, active bool, panelWidth, panelHeight int) string {
	style := panelStyle
	if active {
		style = activePanelStyle
	}

	inner := panelWidth - 4
	if inner < 1 {
		inner = 1
	}
	header := headerStyle.Width(inner).Render(truncatePath(data.Title(), inner))

	rows := visibleHeight(panelHeight)
	start := scrollStart(data.Cursor, rows)

	var lines []string
	for i := start; i < len(data.Entries) && i < start+rows; i++ {
		e := data.Entries[i]
		line := entryLine(e, i == data.Cursor, inner)
		if i == data.Cursor {
			line = fileSelectedStyle.Width(inner).Render(line)
		} else {
			line = entryStyle(e).Render(line)
		}
		lines = append(lines, line)
	}
	if len(data.Entries) == 0 {
		lines = append(lines, unknownStyle.Render("  (empty)"))
	}

	content := header + "\n" + strings.Join(lines, "\n")
	return style.Width(panelWidth).Height(panelHeight).Render(content)
}

func renderErrors(records []string, width, height int) string {
	var b strings.Builder
	b.WriteString(errorTitleStyle.Render(fmt.Sprintf("%d error(s)", len(records))))
	b.WriteString("\n\n")
	for _, r := range records {
		b.WriteString(r)
		b.WriteString("\n")
	}
	b.WriteString("\nPress ENTER to continue")
	box := errorBoxStyle.Render(b.String())
	if width == 0 || height == 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func truncatePath(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n+1:])
}
