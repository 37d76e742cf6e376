package tui

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/parley0/parley/internal/i18n"
)

// Accent color for the PARLEY branding.
const accentBlue = "#4285F4"

// PARLEY ASCII art (filled block style).
var parleyArt = []string{
	"    ██████╗  █████╗ ██████╗ ██╗     ███████╗██╗   ██╗",
	"    ██╔══██╗██╔══██╗██╔══██╗██║     ██╔════╝╚██╗ ██╔╝",
	"    ██████╔╝███████║██████╔╝██║     █████╗   ╚████╔╝ ",
	"    ██╔═══╝ ██╔══██║██╔══██╗██║     ██╔══╝    ╚██╔╝  ",
	"    ██║     ██║  ██║██║  ██║███████╗███████╗   ██║   ",
	"    ╚═╝     ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚══════╝   ╚═╝   ",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner    lipgloss.Style
	Header    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Tips      lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
	StatusBar lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentBlue)),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentBlue)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

// RenderBanner returns the PARLEY ASCII art banner as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range parleyArt {
		_, _ = b.WriteString(s.Banner.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// RenderWelcomeTips returns styled getting-started tips for an empty
// session.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, line := range strings.Split(i18n.T("tui.tips"), "\n") {
		_, _ = b.WriteString(s.Tips.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
