package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var helpSections = []string{"Cursor", "Directories", "Selection", "Program"}

var helpStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#7D56F4")).
	Padding(1, 3).
	Bold(false)

// RenderHelp returns the help overlay listing every binding of keys.
func RenderHelp(keys KeyMap, width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	for i, group := range keys.FullHelp() {
		if i > 0 {
			b.WriteString("\n")
		}
		if i < len(helpSections) {
			fmt.Fprintf(&b, "  %s\n", helpSections[i])
		}
		for _, k := range group {
			h := k.Help()
			fmt.Fprintf(&b, "  %-10s %s\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\n  Marked files are processed in both directions on enter.\n")
	b.WriteString("  Pressing a mark key again clears the mark.\n")

	box := helpStyle.Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
