package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// StyleManager holds the styles used to print run reports
type StyleManager struct {
	Header  lipgloss.Style
	Path    lipgloss.Style
	Count   lipgloss.Style
	Warn    lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Divider lipgloss.Style
}

// DefaultStyles returns styles rendered for w. Colors are dropped when w is
// not a terminal.
func DefaultStyles(w io.Writer) *StyleManager {
	r := lipgloss.NewRenderer(w)
	return &StyleManager{
		Header:  r.NewStyle().Bold(true),
		Path:    r.NewStyle().Foreground(parseANSIColor("36")),
		Count:   r.NewStyle().Foreground(parseANSIColor("32")).Bold(true),
		Warn:    r.NewStyle().Foreground(parseANSIColor("33")),
		Error:   r.NewStyle().Foreground(parseANSIColor("91")),
		Dim:     r.NewStyle().Foreground(lipgloss.Color("241")),
		Divider: r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// parseANSIColor converts ANSI color codes to lipgloss colors
func parseANSIColor(code string) lipgloss.Color {
	ansiToLipgloss := map[string]string{
		"30": "0", "31": "1", "32": "2", "33": "3",
		"34": "4", "35": "5", "36": "6", "37": "7",
		"90": "8", "91": "9", "92": "10", "93": "11",
		"94": "12", "95": "13", "96": "14", "97": "15",
	}
	if mapped, ok := ansiToLipgloss[code]; ok {
		return lipgloss.Color(mapped)
	}
	return lipgloss.Color(code)
}
