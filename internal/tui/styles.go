// Package tui holds terminal presentation helpers: lipgloss styles, result
// views and TTY detection.
package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette.
const (
	ColorHeader  = lipgloss.Color("39")
	ColorLabel   = lipgloss.Color("245")
	ColorValue   = lipgloss.Color("255")
	ColorMuted   = lipgloss.Color("240")
	ColorWarning = lipgloss.Color("214")
	ColorError   = lipgloss.Color("196")
	ColorLink    = lipgloss.Color("75")
)

// IconWarning prefixes warnings on styled output.
const IconWarning = "⚠"

// NotAvailable stands in for empty result fields.
const NotAvailable = "N/A"

// Shared styles.
//
//nolint:gochecknoglobals // Immutable style definitions.
var (
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	LabelStyle   = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	LinkStyle    = lipgloss.NewStyle().Foreground(ColorLink).Underline(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// Painter renders text with a style only when styling is enabled, so piped
// output stays plain.
type Painter struct {
	Styled bool
}

// Paint renders s with style if p is styled.
func (p Painter) Paint(style lipgloss.Style, s string) string {
	if !p.Styled {
		return s
	}
	return style.Render(s)
}
