package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette colors shared by terminal styles.
const (
	colorAccent  = lipgloss.Color("#6E49FF")
	colorMuted   = lipgloss.Color("#787878")
	colorSuccess = lipgloss.Color("#2E9E5B")
	colorWarning = lipgloss.Color("#D9A400")
	colorError   = lipgloss.Color("#D0413E")
)

// Styles holds the lipgloss styles used by the text renderer.
type Styles struct {
	Header1   lipgloss.Style
	Header2   lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

// NewStyles builds styles bound to r so color support follows the writer.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:   r.NewStyle().Bold(true).Foreground(colorAccent),
		Header2:   r.NewStyle().Bold(true),
		Bold:      r.NewStyle().Bold(true),
		Muted:     r.NewStyle().Foreground(colorMuted),
		Success:   r.NewStyle().Foreground(colorSuccess),
		Warning:   r.NewStyle().Foreground(colorWarning),
		Error:     r.NewStyle().Foreground(colorError),
		Highlight: r.NewStyle().Bold(true).Foreground(colorAccent),

		StatusSuccess: r.NewStyle().Foreground(colorSuccess).SetString("✓"),
		StatusFailed:  r.NewStyle().Foreground(colorError).SetString("✗"),
	}
}
