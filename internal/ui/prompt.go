package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	promptTitleStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("62")).
				Foreground(lipgloss.Color("230")).
				Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(12)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1, 2).
			Width(50)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555"))
)

// PasswordPrompt asks for the password of an SSH login before the browser
// starts. It quits its program on enter or esc.
type PasswordPrompt struct {
	target    string
	input     textinput.Model
	submitted bool
	width     int
	height    int
}

// NewPasswordPrompt returns a prompt for user@host.
func NewPasswordPrompt(user, host string) PasswordPrompt {
	t := textinput.New()
	t.Placeholder = "password"
	t.EchoMode = textinput.EchoPassword
	t.EchoCharacter = '•'
	t.CharLimit = 256
	t.Focus()
	return PasswordPrompt{target: fmt.Sprintf("%s@%s", user, host), input: t}
}

// Password returns the typed password and whether the user confirmed it.
func (m PasswordPrompt) Password() (string, bool) {
	return m.input.Value(), m.submitted
}

func (m PasswordPrompt) Init() tea.Cmd {
	return textinput.Blink
}

func (m PasswordPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.submitted = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m PasswordPrompt) View() string {
	rows := lipgloss.JoinVertical(lipgloss.Left,
		promptTitleStyle.Render("SSH login"),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center, labelStyle.Render("Target:"), m.target),
		lipgloss.JoinHorizontal(lipgloss.Center, labelStyle.Render("Password:"), m.input.View()),
		"",
		hintStyle.Render("enter: connect • esc: cancel"),
	)
	box := inputBoxStyle.Render(rows)
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
