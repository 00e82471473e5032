package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all application key bindings
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Actions
	Enter  key.Binding
	Escape key.Binding
	Quit   key.Binding
	Help   key.Binding
	Theme  key.Binding

	// Reader specific
	NextPage    key.Binding
	PrevPage    key.Binding
	NextChapter key.Binding
	PrevChapter key.Binding
	Zoom        key.Binding
}

// DefaultKeyMap returns the default vim-like key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("^u", "half screen up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("^d", "half screen down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("Home/g", "top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("End/G", "bottom"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "open chapter"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit/back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Theme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "next theme"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("j", " ", "pgdown", "right", "l"),
			key.WithHelp("j/l/Space", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("k", "pgup", "left", "h"),
			key.WithHelp("k/h", "previous page"),
		),
		NextChapter: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next chapter"),
		),
		PrevChapter: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "previous chapter"),
		),
		Zoom: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "zoom current page"),
		),
	}
}

// helpSection is one titled group of the help overlay
type helpSection struct {
	title    string
	bindings []key.Binding
}

// helpSections groups bindings for the help overlay
func (k KeyMap) helpSections() []helpSection {
	return []helpSection{
		{"Reader", []key.Binding{k.NextPage, k.PrevPage, k.NextChapter, k.PrevChapter, k.Zoom}},
		{"Scrolling", []key.Binding{k.Up, k.Down, k.PageDown, k.PageUp, k.Home, k.End}},
		{"General", []key.Binding{k.Enter, k.Theme, k.Quit, k.Escape, k.Help}},
	}
}
