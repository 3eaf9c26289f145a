// Package render turns a block list into terminal output: prose through
// glamour, structured blocks as compact lipgloss widgets.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"blockstream/internal/blocks"
)

// Style names accepted by New. StyleAuto picks dark or light from the
// terminal background; StylePlain emits no escape codes.
const (
	StyleAuto  = "auto"
	StylePlain = "notty"
)

// Renderer renders block lists at a fixed width.
type Renderer struct {
	width int
	md    *glamour.TermRenderer
}

// New creates a Renderer wrapping prose at width.
func New(width int, style string) (*Renderer, error) {
	if width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == StyleAuto {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}
	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	return &Renderer{width: width, md: md}, nil
}

// Blocks renders bs at width with the terminal's style.
func Blocks(bs []blocks.Block, width int) string {
	r, err := New(width, StyleAuto)
	if err != nil {
		return Plain(bs)
	}
	return r.Render(bs)
}

// Render renders every block, separated by a blank line.
func (r *Renderer) Render(bs []blocks.Block) string {
	parts := make([]string, 0, len(bs))
	for _, b := range bs {
		if s := r.Block(b); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Block renders a single block.
func (r *Renderer) Block(b blocks.Block) string {
	if b.IsText() {
		return r.text(b.Text)
	}
	if b.Marker == nil {
		return ""
	}
	switch p := b.Marker.Payload.(type) {
	case blocks.Chart:
		return renderChart(p, r.width)
	case blocks.KPI:
		return renderKPI(p)
	case blocks.Gantt:
		return renderGantt(p, r.width)
	case blocks.Chain:
		return renderChain(b.Kind, p)
	case blocks.Table:
		return renderTable(p, r.width)
	}
	return ""
}

func (r *Renderer) text(s string) string {
	out, err := r.md.Render(s)
	if err != nil {
		return s
	}
	return strings.Trim(out, "\n")
}

// Plain is a style-free fallback listing one line per block.
func Plain(bs []blocks.Block) string {
	var b strings.Builder
	for i, blk := range bs {
		if i > 0 {
			b.WriteString("\n")
		}
		if blk.IsText() {
			b.WriteString(blk.Text)
			continue
		}
		fmt.Fprintf(&b, "[%s]", blk.Kind)
	}
	return b.String()
}

// ─── KPI ────────────────────────────────────────────────────────────────────

func renderKPI(k blocks.KPI) string {
	value := formatValue(k.Value)
	if k.Unit != "" {
		value += " " + k.Unit
	}
	lines := []string{
		dimStyle.Render(k.Label),
		kpiValueStyle.Render(value),
	}
	if trend := renderTrend(k.Trend, k.Change); trend != "" {
		lines = append(lines, trend)
	}
	return kpiCardStyle.Render(strings.Join(lines, "\n"))
}

func renderTrend(trend string, change any) string {
	c := ""
	if change != nil {
		c = formatValue(change)
	}
	switch strings.ToLower(trend) {
	case "up":
		return trendUpStyle.Render(strings.TrimSpace("▲ " + c))
	case "down":
		return trendDownStyle.Render(strings.TrimSpace("▼ " + c))
	}
	if c != "" {
		return dimStyle.Render(c)
	}
	return ""
}

// ─── Chains ─────────────────────────────────────────────────────────────────

func renderChain(kind blocks.Kind, c blocks.Chain) string {
	header := "Thinking"
	if kind == blocks.KindToolCallChain {
		header = "Tools"
	}
	var b strings.Builder
	b.WriteString(chainHeaderStyle.Render(header))
	for _, it := range c.Items {
		b.WriteString("\n  ")
		b.WriteString(stepIcon(it))
		b.WriteString(" ")
		title := it.Title
		if title == "" {
			title = it.ToolDisplayName
		}
		if title == "" {
			title = it.ToolName
		}
		if it.Blink {
			b.WriteString(stepActiveStyle.Render(title))
		} else {
			b.WriteString(bodyStyle.Render(title))
		}
		if it.ToolName != "" && it.ToolName != title {
			b.WriteString(" " + dimStyle.Render("("+it.ToolName+")"))
		}
		if it.Description != "" {
			b.WriteString("\n    " + dimStyle.Render(it.Description))
		}
	}
	return b.String()
}

func stepIcon(it blocks.ChainItem) string {
	switch {
	case it.Status == blocks.StatusSuccess:
		return stepDoneStyle.Render("✓")
	case it.Status == blocks.StatusError:
		return stepErrorStyle.Render("✗")
	case it.Blink:
		return stepActiveStyle.Render("●")
	}
	return dimStyle.Render("○")
}
