package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/espelita/portfolio/backend/internal/reveal"
)

var (
	nameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F2F2F2"))
	prefixStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9AA5B1"))
	roleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E53935"))
)

// heroLines renders a frame as two terminal lines.
func heroLines(f reveal.HeroFrame) [2]string {
	name := nameStyle.Render(terminalText(f.Name))

	var second string
	if f.PrefixVisible {
		second = prefixStyle.Render(terminalText(f.Prefix))
		if f.PrefixDone {
			second += " " + roleStyle.Render(f.Role.Typed)
			if f.Cursor {
				second += cursorStyle.Render("|")
			}
		}
	}
	return [2]string{name, second}
}

// terminalText swaps the non-breaking blanks for plain spaces.
func terminalText(s string) string {
	return strings.ReplaceAll(s, string(reveal.Blank), " ")
}
