package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings of the grid view.
type KeyMap struct {
	// Up moves the row cursor up.
	Up key.Binding

	// Down moves the row cursor down.
	Down key.Binding

	// NextPage loads the next display page.
	NextPage key.Binding

	// PrevPage loads the previous display page.
	PrevPage key.Binding

	// Toggle adds or removes the row under the cursor from the selection.
	Toggle key.Binding

	// Bulk opens the "select first N rows" overlay.
	Bulk key.Binding

	// Submit confirms the overlay input.
	Submit key.Binding

	// Cancel closes the overlay.
	Cancel key.Binding

	// Help toggles the full help.
	Help key.Binding

	// Quit exits the application.
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "l", "n"),
			key.WithHelp("→/n", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left", "h", "p"),
			key.WithHelp("←/p", "prev page"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle row"),
		),
		Bulk: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "select first N"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPage, k.PrevPage, k.Toggle, k.Bulk, k.Help, k.Quit}
}

// FullHelp returns the full list of keybindings for the help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextPage, k.PrevPage},
		{k.Toggle, k.Bulk, k.Submit, k.Cancel},
		{k.Help, k.Quit},
	}
}

// OverlayHelp returns the bindings active while the overlay is open.
func (k KeyMap) OverlayHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel}
}
