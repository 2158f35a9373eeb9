package monitor

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the dashboard's keyboard shortcuts. It implements the
// help.KeyMap interface for automatic help text generation.
type KeyMap struct {
	// Up scrolls the event feed up
	Up key.Binding

	// Down scrolls the event feed down
	Down key.Binding

	// Pause freezes the event feed
	Pause key.Binding

	// Clear empties the event feed
	Clear key.Binding

	// Help toggles the full help view
	Help key.Binding

	// Quit exits the dashboard
	Quit key.Binding
}

// DefaultKeyMap returns the default keyboard shortcuts.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p/space", "pause feed"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear feed"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the one-line help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Pause, k.Clear},
		{k.Help, k.Quit},
	}
}
