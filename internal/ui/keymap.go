package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings of the dual-pane browser.
type KeyMap struct {
	Down       key.Binding
	Up         key.Binding
	FocusLeft  key.Binding
	FocusRight key.Binding
	Switch     key.Binding
	Move       key.Binding
	Copy       key.Binding
	Delete     key.Binding
	Execute    key.Binding
	Into       key.Binding
	Out        key.Binding
	Refresh    key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next entry"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous entry"),
		),
		FocusLeft: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "left pane"),
		),
		FocusRight: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "right pane"),
		),
		Switch: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Move: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mark move"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "mark copy"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "mark delete"),
		),
		Execute: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run marked"),
		),
		Into: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "open dir"),
		),
		Out: key.NewBinding(
			key.WithKeys("backspace"),
			key.WithHelp("backspace", "parent dir"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// ShortHelp is shown in the status line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Switch, k.Move, k.Copy, k.Delete, k.Execute, k.Help, k.Quit}
}

// FullHelp is shown in the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.FocusLeft, k.FocusRight, k.Switch},
		{k.Into, k.Out, k.Refresh},
		{k.Move, k.Copy, k.Delete, k.Execute},
		{k.Help, k.Quit},
	}
}
