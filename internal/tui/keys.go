package tui

import (
	"charm.land/bubbles/v2/key"
)

type KeyMap struct {
	Quit           key.Binding
	Help           key.Binding
	ToggleFocus    key.Binding
	ToggleReadOnly key.Binding
	Preview        key.Binding
	Copy           key.Binding
	PastePrimary   key.Binding
	OpenEditor     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "more"),
		),
		ToggleFocus: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "focus/blur"),
		),
		ToggleReadOnly: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "read-only"),
		),
		Preview: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "preview"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy"),
		),
		PastePrimary: key.NewBinding(
			key.WithKeys("alt+v"),
			key.WithHelp("alt+v", "paste selection"),
		),
		OpenEditor: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "open $EDITOR"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.ToggleFocus, k.Preview, k.Help}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Help, k.ToggleFocus, k.ToggleReadOnly},
		{k.Preview, k.Copy, k.PastePrimary, k.OpenEditor},
	}
}
