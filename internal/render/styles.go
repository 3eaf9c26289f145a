package render

import "github.com/charmbracelet/lipgloss"

// ─── Colors ─────────────────────────────────────────────────────────────────

var (
	colorOrange  = lipgloss.Color("#F28C28")
	colorGreen   = lipgloss.Color("78")
	colorYellow  = lipgloss.Color("220")
	colorRed     = lipgloss.Color("196")
	colorMagenta = lipgloss.Color("213")
	colorBlue    = lipgloss.Color("111")
	colorTeal    = lipgloss.Color("73")
	colorGray    = lipgloss.Color("242")
	colorDimGray = lipgloss.Color("238")
	colorBody    = lipgloss.Color("252")
)

// ─── Widgets ────────────────────────────────────────────────────────────────

var titleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorBlue)

var barStyle = lipgloss.NewStyle().
	Foreground(colorOrange)

var dimStyle = lipgloss.NewStyle().
	Foreground(colorGray)

var bodyStyle = lipgloss.NewStyle().
	Foreground(colorBody)

var headerCellStyle = lipgloss.NewStyle().
	Bold(true)

var borderStyle = lipgloss.NewStyle().
	Foreground(colorTeal)

var kpiCardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorDimGray).
	Padding(0, 2)

var kpiValueStyle = lipgloss.NewStyle().
	Bold(true)

var trendUpStyle = lipgloss.NewStyle().
	Foreground(colorGreen)

var trendDownStyle = lipgloss.NewStyle().
	Foreground(colorRed)

// ─── Chains ─────────────────────────────────────────────────────────────────

var chainHeaderStyle = lipgloss.NewStyle().
	Foreground(colorMagenta).
	Bold(true)

var stepDoneStyle = lipgloss.NewStyle().
	Foreground(colorGreen)

var stepActiveStyle = lipgloss.NewStyle().
	Foreground(colorYellow).
	Bold(true)

var stepErrorStyle = lipgloss.NewStyle().
	Foreground(colorRed)
