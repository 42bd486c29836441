package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keys the terminal handles itself. Every other key is
// forwarded to the run.
type KeyMap struct {
	Quit key.Binding
}

// DefaultKeyMap provides the default key bindings for the TUI.
var DefaultKeyMap = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys(KeyCtrlC),
		key.WithHelp("ctrl+c", "abort run"),
	),
}
