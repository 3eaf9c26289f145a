package render

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"blockstream/internal/blocks"
)

const (
	maxLabelWidth = 20
	minBarWidth   = 10
)

// ─── Chart ──────────────────────────────────────────────────────────────────

// renderChart draws any chart type as a horizontal bar listing, one bar per
// row and series.
func renderChart(c blocks.Chart, width int) string {
	var b strings.Builder
	title := c.Title
	if title == "" {
		title = "Chart"
	}
	b.WriteString(titleStyle.Render(title))
	if c.Type != "" {
		b.WriteString(dimStyle.Render(" · " + c.Type))
	}

	series := chartSeries(c)
	if len(series) == 0 || len(c.Data) == 0 {
		for _, row := range c.Data {
			b.WriteString("\n  " + bodyStyle.Render(formatRow(row)))
		}
		return b.String()
	}

	labels := make([]string, len(c.Data))
	labelW := 0
	for i, row := range c.Data {
		labels[i] = truncate(formatValue(row[c.XKey]), maxLabelWidth)
		labelW = max(labelW, lipgloss.Width(labels[i]))
	}
	seriesW := 0
	if len(series) > 1 {
		for _, s := range series {
			seriesW = max(seriesW, lipgloss.Width(s))
		}
	}

	peak, total := 0.0, 0.0
	for _, row := range c.Data {
		for _, s := range series {
			if v, ok := numeric(row[s]); ok {
				peak = math.Max(peak, math.Abs(v))
				total += v
			}
		}
	}
	barMax := max(width-labelW-seriesW-16, minBarWidth)

	for i, row := range c.Data {
		for j, s := range series {
			label := labels[i]
			if j > 0 {
				label = ""
			}
			b.WriteString("\n  " + padRight(label, labelW) + " ")
			if seriesW > 0 {
				b.WriteString(dimStyle.Render(padRight(s, seriesW)) + " ")
			}
			v, ok := numeric(row[s])
			if !ok {
				b.WriteString(dimStyle.Render("n/a"))
				continue
			}
			n := 0
			if peak > 0 {
				n = int(math.Round(math.Abs(v) / peak * float64(barMax)))
			}
			b.WriteString(barStyle.Render(strings.Repeat("█", n)))
			b.WriteString(" " + formatValue(row[s]))
			if c.Type == "pie" && total != 0 {
				b.WriteString(dimStyle.Render(fmt.Sprintf(" (%.0f%%)", v/total*100)))
			}
		}
	}
	return b.String()
}

// chartSeries lists the keys plotted as values.
func chartSeries(c blocks.Chart) []string {
	if len(c.YKeys) > 0 {
		out := make([]string, 0, len(c.YKeys))
		for _, k := range c.YKeys {
			out = append(out, k.Key)
		}
		return out
	}
	if c.YKey != "" {
		return []string{c.YKey}
	}
	return nil
}

// ─── Gantt ──────────────────────────────────────────────────────────────────

var (
	ganttLabelKeys = []string{"task", "name", "label", "title"}
	ganttStartKeys = []string{"start", "startDate", "start_date", "from"}
	ganttEndKeys   = []string{"end", "endDate", "end_date", "to"}
	dateLayouts    = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04"}
)

type ganttRow struct {
	label      string
	start, end string
	from, to   time.Time
	dated      bool
}

// renderGantt draws one row per task. When every row has parseable start
// and end dates the bars are placed on a shared time axis.
func renderGantt(g blocks.Gantt, width int) string {
	var b strings.Builder
	title := g.Title
	if title == "" {
		title = "Timeline"
	}
	b.WriteString(titleStyle.Render(title))

	rows := make([]ganttRow, len(g.Data))
	labelW := 0
	allDated := true
	var lo, hi time.Time
	for i, raw := range g.Data {
		r := ganttRow{
			label: truncate(firstString(raw, ganttLabelKeys), maxLabelWidth),
			start: firstString(raw, ganttStartKeys),
			end:   firstString(raw, ganttEndKeys),
		}
		if r.label == "" {
			r.label = truncate(formatRow(raw), maxLabelWidth)
		}
		from, okFrom := parseDate(r.start)
		to, okTo := parseDate(r.end)
		if okFrom && okTo && !to.Before(from) {
			r.from, r.to, r.dated = from, to, true
			if lo.IsZero() || from.Before(lo) {
				lo = from
			}
			if to.After(hi) {
				hi = to
			}
		} else {
			allDated = false
		}
		labelW = max(labelW, lipgloss.Width(r.label))
		rows[i] = r
	}

	span := hi.Sub(lo)
	barMax := max(width-labelW-30, minBarWidth)
	for _, r := range rows {
		b.WriteString("\n  " + padRight(r.label, labelW) + " ")
		if allDated && span > 0 {
			offset := int(float64(r.from.Sub(lo)) / float64(span) * float64(barMax))
			n := max(int(float64(r.to.Sub(r.from))/float64(span)*float64(barMax)), 1)
			b.WriteString(strings.Repeat(" ", offset) + barStyle.Render(strings.Repeat("█", n)) + " ")
		}
		b.WriteString(dimStyle.Render(strings.TrimSpace(r.start + " → " + r.end)))
	}
	return b.String()
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ─── Value helpers ──────────────────────────────────────────────────────────

func firstString(row map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return formatValue(v)
		}
	}
	return ""
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// formatRow lists a row's fields in key order.
func formatRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + formatValue(row[k])
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, w int) string {
	if lipgloss.Width(s) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > w {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

func padRight(s string, w int) string {
	if d := w - lipgloss.Width(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}
