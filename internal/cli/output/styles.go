package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Pending lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Label   lipgloss.Style
	Marker  lipgloss.Style
	Plain   lipgloss.Style
}

// newStyles binds the styles to lg so colors follow its color profile.
func newStyles(lg *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: lg.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Underline(true),
		Header2: lg.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Success: lg.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   lg.NewStyle().Foreground(lipgloss.Color("9")),
		Warning: lg.NewStyle().Foreground(lipgloss.Color("11")),
		Pending: lg.NewStyle().Foreground(lipgloss.Color("13")).Italic(true),
		Muted:   lg.NewStyle().Foreground(lipgloss.Color("8")),
		Bold:    lg.NewStyle().Bold(true),
		Label:   lg.NewStyle().Foreground(lipgloss.Color("6")),
		Marker:  lg.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Plain:   lg.NewStyle(),
	}
}

// Tone returns the style for a message tone name.
func (s *Styles) Tone(tone string) lipgloss.Style {
	switch tone {
	case "success":
		return s.Success
	case "error":
		return s.Error
	case "pending":
		return s.Pending
	default:
		return s.Plain
	}
}
