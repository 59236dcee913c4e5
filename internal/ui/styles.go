package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles groups the styles used for diagnostic output.
type Styles struct {
	Label   lipgloss.Style
	Name    lipgloss.Style
	Failure lipgloss.Style
	Key     lipgloss.Style
}

// NewStyles builds styles rendered for out. Writers that are not a color
// terminal get plain text.
func NewStyles(out io.Writer) Styles {
	r := lipgloss.NewRenderer(out)
	return Styles{
		Label: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B61FF")),
		Name: r.NewStyle().
			Foreground(lipgloss.Color("#73F59F")),
		Failure: r.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		Key: r.NewStyle().
			Foreground(lipgloss.Color("#666666")),
	}
}
