package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorAccent = lipgloss.Color("86")
	ColorFav    = lipgloss.Color("212")
	ColorDim    = lipgloss.Color("242")
	ColorText   = lipgloss.Color("255")
	ColorError  = lipgloss.Color("196")
)

// Styles holds the Lip Gloss styles of the browser.
type Styles struct {
	Title     lipgloss.Style
	Chip      lipgloss.Style
	ChipOn    lipgloss.Style
	Sort      lipgloss.Style
	Row       lipgloss.Style
	Selected  lipgloss.Style
	Meta      lipgloss.Style
	Favourite lipgloss.Style
	Year      lipgloss.Style
	Help      lipgloss.Style
	Error     lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			Padding(0, 1),
		Chip:   lipgloss.NewStyle().Foreground(ColorDim).Padding(0, 1),
		ChipOn: lipgloss.NewStyle().Foreground(ColorText).Background(lipgloss.Color("62")).Padding(0, 1),
		Sort:   lipgloss.NewStyle().Foreground(ColorDim).Italic(true),
		Row:    lipgloss.NewStyle().PaddingLeft(2),
		Selected: lipgloss.NewStyle().
			PaddingLeft(1).
			Bold(true).
			Foreground(ColorText).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorAccent),
		Meta:      lipgloss.NewStyle().Foreground(ColorDim),
		Favourite: lipgloss.NewStyle().Foreground(ColorFav),
		Year:      lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).MarginTop(1),
		Help:      lipgloss.NewStyle().Foreground(ColorDim).MarginTop(1),
		Error:     lipgloss.NewStyle().Foreground(ColorError),
	}
}
