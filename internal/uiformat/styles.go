// Package uiformat is the CLI output layer: a build-progress renderer
// (plain text or an interactive bubbletea spinner) and a results
// formatter (aligned table or --json), chosen by TTY detection.
// Grounded on the host CLI's internal/ui and internal/output.
package uiformat

import "github.com/charmbracelet/lipgloss"

const (
	ColorAccent = "154" // bright lime green, matching the host CLI's palette
	ColorDim    = "245"
	ColorBorder = "238"
	ColorError  = "196"
	ColorWarn   = "220"
)

// Styles holds the lipgloss styles used by the interactive renderer.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Active  lipgloss.Style
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarn)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBorder)),
		Active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
	}
}

// NoColorStyles returns an unstyled set, for --no-color or non-TTY output.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Active:  lipgloss.NewStyle(),
	}
}

// GetStyles returns NoColorStyles when noColor is set, DefaultStyles otherwise.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
