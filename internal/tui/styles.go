package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour palette of the grid.
type Theme struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Border  lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.Color("#B50938"), // museum red
		Muted:   lipgloss.Color("#6C7086"),
		Success: lipgloss.Color("#A6E3A1"),
		Error:   lipgloss.Color("#F38BA8"),
		Border:  lipgloss.Color("#45475A"),
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	Title   lipgloss.Style
	Status  lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Box     lipgloss.Style
	Overlay lipgloss.Style
	Table   table.Styles
}

// DefaultStyles returns styles built from DefaultTheme.
func DefaultStyles() Styles {
	t := DefaultTheme()

	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(t.Primary).
		Bold(false)

	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Status:  lipgloss.NewStyle().Foreground(t.Muted),
		Muted:   lipgloss.NewStyle().Foreground(t.Muted),
		Error:   lipgloss.NewStyle().Foreground(t.Error),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Box: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		Overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(t.Primary).
			Padding(1, 2),
		Table: ts,
	}
}
