package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"blockstream/internal/blocks"
)

const minColWidth = 8 // never shrink a column below this

// renderTable draws a box table. Column widths are capped to fit width and
// cell content wraps across lines when needed.
func renderTable(t blocks.Table, width int) string {
	// cells beyond the header row are dropped
	numCols := len(t.Headers)
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	measure := func(cells []string) {
		for i, c := range cells {
			if i >= numCols {
				break
			}
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}
	measure(t.Headers)
	for _, r := range t.Rows {
		measure(r)
	}
	capWidths(widths, width)

	sepLine := func(left, mid, right string) string {
		var sb strings.Builder
		sb.WriteString(left)
		for i, w := range widths {
			sb.WriteString(strings.Repeat("─", w+2))
			if i < len(widths)-1 {
				sb.WriteString(mid)
			}
		}
		sb.WriteString(right)
		return borderStyle.Render(sb.String())
	}

	var out strings.Builder
	out.WriteString(sepLine("┌", "┬", "┐"))
	writeRow(&out, t.Headers, widths, headerCellStyle)
	out.WriteString("\n" + sepLine("├", "┼", "┤"))
	for _, r := range t.Rows {
		writeRow(&out, r, widths, bodyStyle)
	}
	out.WriteString("\n" + sepLine("└", "┴", "┘"))
	return out.String()
}

// capWidths shrinks the widest columns until the table fits in total,
// using the smallest common cap that does.
func capWidths(widths []int, total int) {
	// 1 border + 2 padding per column, plus the closing border
	available := total - (3*len(widths) + 1)
	available = max(available, len(widths)*minColWidth)

	sum, widest := 0, 0
	for _, w := range widths {
		sum += w
		widest = max(widest, w)
	}
	if sum <= available {
		return
	}

	lo, hi := minColWidth, widest
	colCap := widest
	for lo <= hi {
		mid := (lo + hi) / 2
		n := 0
		for _, w := range widths {
			n += min(w, mid)
		}
		if n <= available {
			colCap = mid
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	for i := range widths {
		widths[i] = min(widths[i], colCap)
	}
}

func writeRow(out *strings.Builder, cells []string, widths []int, style lipgloss.Style) {
	wrapped := make([][]string, len(widths))
	lines := 1
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		wrapped[i] = wrapCell(cell, widths[i])
		lines = max(lines, len(wrapped[i]))
	}

	bar := borderStyle.Render("│")
	for l := 0; l < lines; l++ {
		out.WriteString("\n" + bar)
		for i, w := range widths {
			cell := ""
			if l < len(wrapped[i]) {
				cell = wrapped[i][l]
			}
			out.WriteString(" " + style.Render(padRight(cell, w)) + " " + bar)
		}
	}
}

// wrapCell splits text into lines of at most maxWidth runes, breaking at a
// space in the second half of the line when there is one.
func wrapCell(text string, maxWidth int) []string {
	r := []rune(text)
	if maxWidth <= 0 || len(r) <= maxWidth {
		return []string{text}
	}
	var lines []string
	for len(r) > maxWidth {
		split := maxWidth
		for split > maxWidth/2 && r[split] != ' ' {
			split--
		}
		if split <= maxWidth/2 {
			split = maxWidth
		}
		lines = append(lines, string(r[:split]))
		r = []rune(strings.TrimLeft(string(r[split:]), " "))
	}
	if len(r) > 0 {
		lines = append(lines, string(r))
	}
	return lines
}
