package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.AdaptiveColor{Light: "#C25E00", Dark: "#F28C28"}
	muted  = lipgloss.AdaptiveColor{Light: "250", Dark: "240"}
)

// modeStyles colors the status line for each stream state.
var modeStyles = map[mode]lipgloss.Style{
	modeStreaming: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	modeDone:      lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
	modeCancelled: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	modeFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

var (
	promptMark = lipgloss.NewStyle().Foreground(accent).Bold(true).Render("❯ ")
	ruleStyle  = lipgloss.NewStyle().Foreground(muted)
	hintStyle  = lipgloss.NewStyle().Foreground(muted).Italic(true)
)
