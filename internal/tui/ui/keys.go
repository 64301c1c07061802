package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap contains the indicator's key bindings.
type KeyMap struct {
	Quit   key.Binding
	Detail key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Detail: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "toggle downloads"),
		),
	}
}

// Matches reports whether msg matches any of the bindings.
func Matches(msg tea.KeyMsg, bindings ...key.Binding) bool {
	return key.Matches(msg, bindings...)
}

// ShortHelp renders bindings as "key action" pairs.
func ShortHelp(s Styles, bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += s.Help.Render(" • ")
		}
		h := b.Help()
		out += s.HelpKey.Render(h.Key) + " " + s.Help.Render(h.Desc)
	}
	return out
}
