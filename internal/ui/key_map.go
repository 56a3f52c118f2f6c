package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the TUI key bindings and satisfies [help.KeyMap].
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      bind("↑/k", "up", "up", "k"),
		down:    bind("↓/j", "down", "down", "j"),
		enter:   bind("enter", "select", "enter"),
		back:    bind("esc", "back", "esc"),
		yes:     bind("y", "yes", "y"),
		no:      bind("n", "no", "n"),
		restart: bind("r", "restart", "r"),
		quit:    bind("q", "quit", "q", "ctrl+c"),
	}
}

func bind(helpKey, helpDesc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(helpKey, helpDesc))
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.yes, k.no},
		{k.restart, k.quit},
	}
}
