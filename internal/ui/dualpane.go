// Package ui is the bubbletea front end of the dual-pane browser.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dualfm/internal/fault"
	"dualfm/internal/logging"
	"dualfm/internal/pane"
	"dualfm/internal/transfer"
)

// TickInterval is how often the view is redrawn to pick up changes made by
// background tasks.
const TickInterval = 75 * time.Millisecond

type side int

const (
	sideLeft side = iota
	sideRight
)

func (s side) String() string {
	if s == sideLeft {
		return "left"
	}
	return "right"
}

type tickMsg time.Time

// refreshedMsg reports that a refresh or navigation command finished. Any
// failure has already been pushed to the fault stack.
type refreshedMsg struct{}

// executedMsg reports that every task of a batch has been issued.
type executedMsg struct{}

// DualPaneModel is the root model: two panes, the focus between them, the
// fault stack and the task runner.
type DualPaneModel struct {
	ctx    context.Context
	panes  [2]*pane.Pane
	focus  side
	stack  *fault.Stack
	runner *transfer.Runner

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	showHelp bool
	// executing is set from Enter until every task of the batch is issued.
	executing bool

	width  int
	height int
}

// NewDualPaneModel wires left and right to a shared fault stack and runner.
func NewDualPaneModel(ctx context.Context, left, right *pane.Pane, stack *fault.Stack, runner *transfer.Runner) DualPaneModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return DualPaneModel{
		ctx:     ctx,
		panes:   [2]*pane.Pane{left, right},
		focus:   sideLeft,
		stack:   stack,
		runner:  runner,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: s,
	}
}

func (m DualPaneModel) Init() tea.Cmd {
	return tea.Batch(tick(), m.spinner.Tick)
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m DualPaneModel) focused() *pane.Pane {
	return m.panes[m.focus]
}

func (m DualPaneModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshedMsg:
		return m, nil

	case executedMsg:
		m.executing = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m DualPaneModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		logging.L().Info().Int64("in_flight", m.runner.InFlight()).Msg("shutdown requested")
		return m, tea.Quit
	}

	// While errors are waiting, enter acknowledges them and nothing else runs.
	if !m.stack.Empty() {
		if key.Matches(msg, m.keys.Execute) {
			m.stack.Clear()
		}
		return m, nil
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Execute) {
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		m.focused().Next()
	case key.Matches(msg, m.keys.Up):
		m.focused().Previous()
	case key.Matches(msg, m.keys.FocusLeft):
		m.focus = sideLeft
	case key.Matches(msg, m.keys.FocusRight):
		m.focus = sideRight
	case key.Matches(msg, m.keys.Switch):
		m.focus = 1 - m.focus
	case key.Matches(msg, m.keys.Move):
		m.focused().Toggle(pane.ToMove)
	case key.Matches(msg, m.keys.Copy):
		m.focused().Toggle(pane.ToCopy)
	case key.Matches(msg, m.keys.Delete):
		m.focused().Toggle(pane.ToDelete)
	case key.Matches(msg, m.keys.Execute):
		if m.executing {
			return m, nil
		}
		m.executing = true
		return m, m.executeCmd()
	case key.Matches(msg, m.keys.Into):
		return m, m.navigateInto(m.focused())
	case key.Matches(msg, m.keys.Out):
		return m, m.navigateOut(m.focused())
	case key.Matches(msg, m.keys.Refresh):
		return m, m.RefreshAll()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	}
	return m, nil
}

// RefreshAll returns a command re-listing both panes.
func (m DualPaneModel) RefreshAll() tea.Cmd {
	return tea.Batch(m.refreshCmd(m.panes[sideLeft]), m.refreshCmd(m.panes[sideRight]))
}

func (m DualPaneModel) refreshCmd(p *pane.Pane) tea.Cmd {
	ctx, stack := m.ctx, m.stack
	return func() tea.Msg {
		if err := p.Refresh(ctx); err != nil {
			stack.Push(p.Domain(), err)
		}
		return refreshedMsg{}
	}
}

// navigateInto applies the move into the directory under the cursor right
// away and lists it in the background. A failed listing steps back out,
// unless the user has navigated elsewhere in the meantime.
func (m DualPaneModel) navigateInto(p *pane.Pane) tea.Cmd {
	prev := p.Location()
	if !p.NavigateIntoSelected() {
		return nil
	}
	return m.listOrRollback(p, p.Location(), prev)
}

// navigateOut moves to the parent and lists it. A failed listing restores
// the previous location under the same rule as navigateInto.
func (m DualPaneModel) navigateOut(p *pane.Pane) tea.Cmd {
	prev := p.Location()
	if !p.NavigateOut() {
		return nil
	}
	return m.listOrRollback(p, p.Location(), prev)
}

func (m DualPaneModel) listOrRollback(p *pane.Pane, target, prev string) tea.Cmd {
	ctx, stack := m.ctx, m.stack
	return func() tea.Msg {
		if err := p.Refresh(ctx); err != nil {
			if !p.RestoreIf(target, prev) {
				logging.L().Debug().Str("pane", p.Name()).Str("location", target).Msg("rollback skipped, pane moved on")
			}
			stack.Push(p.Domain(), err)
		}
		return refreshedMsg{}
	}
}

// executeCmd issues every marked operation in both directions, then lists
// both panes again. Tasks still running at that point patch the panes as
// they finish.
func (m DualPaneModel) executeCmd() tea.Cmd {
	ctx, runner, stack := m.ctx, m.runner, m.stack
	left, right := m.panes[sideLeft], m.panes[sideRight]
	return func() tea.Msg {
		if err := runner.Execute(ctx, left, right); err != nil {
			stack.Push("Transfer", err)
		}
		for _, p := range []*pane.Pane{left, right} {
			if err := p.Refresh(ctx); err != nil {
				stack.Push(p.Domain(), err)
			}
		}
		return executedMsg{}
	}
}

func (m DualPaneModel) View() string {
	if !m.stack.Empty() {
		records := m.stack.Records()
		lines := make([]string, len(records))
		for i, r := range records {
			lines[i] = r.Error()
		}
		return renderErrors(lines, m.width, m.height)
	}

	if m.width == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return RenderHelp(m.keys, m.width, m.height)
	}

	panelWidth := m.width/2 - 2
	panelHeight := m.height - 4
	if panelHeight < 4 {
		panelHeight = 4
	}

	left := renderPanel(m.panes[sideLeft].View(), m.focus == sideLeft, panelWidth, panelHeight)
	right := renderPanel(m.panes[sideRight].View(), m.focus == sideRight, panelWidth, panelHeight)
	panels := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	return lipgloss.JoinVertical(lipgloss.Left, panels, m.statusLine())
}

func (m DualPaneModel) statusLine() string {
	activity := "idle"
	if m.executing {
		activity = m.spinner.View() + " issuing tasks"
	}
	if n := m.runner.InFlight(); n > 0 {
		activity = fmt.Sprintf("%s %d task(s) running", m.spinner.View(), n)
	}
	return statusBarStyle.Render(fmt.Sprintf(" %s | %s", activity, m.help.ShortHelpView(m.keys.ShortHelp())))
}
