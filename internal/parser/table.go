package parser

import (
	"strings"

	"blockstream/internal/blocks"
)

// TableSpan is a Markdown pipe table found in a buffer.
type TableSpan struct {
	Start int
	End   int
	Table blocks.Table
}

type line struct {
	start int
	end   int // one past the newline, or len(buf) on the last line
	text  string
}

func splitLines(buf string) []line {
	var out []line
	pos := 0
	for pos < len(buf) {
		nl := strings.IndexByte(buf[pos:], '\n')
		if nl < 0 {
			out = append(out, line{start: pos, end: len(buf), text: buf[pos:]})
			break
		}
		out = append(out, line{start: pos, end: pos + nl + 1, text: buf[pos : pos+nl]})
		pos += nl + 1
	}
	return out
}

// FindTables returns every pipe table in buf: a header row, a separator row
// of dashes, colons and pipes, then one or more data rows. Tables inside
// fenced code blocks are left alone.
func FindTables(buf string) []TableSpan {
	lines := splitLines(buf)
	var out []TableSpan

	inFence := false
	for i := 0; i < len(lines); i++ {
		if isFence(lines[i].text) {
			inFence = !inFence
			continue
		}
		if inFence || i+2 >= len(lines) {
			continue
		}
		if !isPipeRow(lines[i].text) || !isSeparator(lines[i+1].text) {
			continue
		}

		j := i + 2
		for j < len(lines) && isPipeRow(lines[j].text) {
			j++
		}
		if j == i+2 {
			continue
		}

		t := blocks.Table{Headers: cells(lines[i].text)}
		for _, l := range lines[i+2 : j] {
			row := cells(l.text)
			if !allEmpty(row) {
				t.Rows = append(t.Rows, row)
			}
		}
		if len(t.Headers) == 0 || len(t.Rows) == 0 {
			continue
		}

		out = append(out, TableSpan{Start: lines[i].start, End: lines[j-1].end, Table: t})
		i = j - 1
	}
	return out
}

func isFence(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "```")
}

func isPipeRow(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 2 && s[0] == '|' && s[len(s)-1] == '|'
}

func isSeparator(s string) bool {
	if !isPipeRow(s) {
		return false
	}
	dash := false
	for _, c := range strings.TrimSpace(s) {
		switch c {
		case '-':
			dash = true
		case ':', '|', ' ', '\t':
		default:
			return false
		}
	}
	return dash
}

// cells splits a row on pipes, dropping the empty cells outside the outer
// pipes.
func cells(s string) []string {
	parts := strings.Split(strings.TrimSpace(s), "|")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func allEmpty(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
