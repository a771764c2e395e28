package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the view.
type Styles struct {
	Title       lipgloss.Style
	Hash        lipgloss.Style
	Box         lipgloss.Style
	Label       lipgloss.Style
	Dim         lipgloss.Style
	Hint        lipgloss.Style
	Cursor      lipgloss.Style
	Saved       lipgloss.Style
	Cell        lipgloss.Style
	Selected    lipgloss.Style
	Hovered     lipgloss.Style
	StatusError lipgloss.Style
	StatusOK    lipgloss.Style
	Loading     lipgloss.Style
}

// NewStyles returns the default styles.
func NewStyles() *Styles {
	border := lipgloss.Color("#243141")
	return &Styles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Hash:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Box:         lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1),
		Label:       lipgloss.NewStyle().Bold(true),
		Dim:         lipgloss.NewStyle().Faint(true),
		Hint:        lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Cursor:      lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true),
		Saved:       lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Cell:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Selected:    lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")),
		Hovered:     lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("#7C3AED")),
		StatusError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		StatusOK:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Loading:     lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
	}
}
