// Package ui provides terminal styling for command output.
//
// Styling degrades automatically: when stdout is not a terminal or the
// terminal reports no color support, every Render helper returns its input
// unchanged, so piped output stays clean.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	// Colors
	accent  = lipgloss.Color("#7C3AED") // Purple
	pass    = lipgloss.Color("#10B981") // Green
	warn    = lipgloss.Color("#F59E0B") // Amber
	fail    = lipgloss.Color("#EF4444") // Red
	muted   = lipgloss.Color("#6B7280") // Gray
	pending = lipgloss.Color("#60A5FA") // Blue

	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	passStyle    = lipgloss.NewStyle().Foreground(pass).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warn).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(fail).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	pendingStyle = lipgloss.NewStyle().Foreground(pending)
	titleStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true).Underline(true)

	colorEnabled = detectColor()
)

// detectColor reports whether styled output should be produced.
func detectColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

// SetColorEnabled overrides color detection, for --no-color flags and tests.
func SetColorEnabled(enabled bool) {
	colorEnabled = enabled
}

// ColorEnabled reports whether styled output is active.
func ColorEnabled() bool {
	return colorEnabled
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

// RenderAccent highlights a heading or symbol.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderPass formats a success marker.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderWarn formats a warning marker.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderFail formats a failure marker.
func RenderFail(s string) string { return render(failStyle, s) }

// RenderMuted formats secondary detail text.
func RenderMuted(s string) string { return render(mutedStyle, s) }

// RenderPending formats a queued-for-sync marker.
func RenderPending(s string) string { return render(pendingStyle, s) }

// RenderTitle formats a section title.
func RenderTitle(s string) string { return render(titleStyle, s) }
