// Package parser turns an accumulated model response into an ordered list of
// text and structured blocks. Every function here is total: malformed or
// truncated input degrades to plain text, it never errors.
package parser

import (
	"blockstream/internal/blocks"
)

// Span is one complete [type:{...}] directive found in a buffer.
// Start is the offset of '[', End is one past the closing ']'.
type Span struct {
	Start int
	End   int
	Inner string // the outermost {...} object
}

// scanResult describes how a balanced-brace scan ended.
type scanResult int

const (
	scanComplete   scanResult = iota // braces balanced
	scanIncomplete                   // buffer ended first
)

// FindAll returns every complete directive of the given kind in buf, in
// source order. A directive is complete when its outermost object closes and
// is immediately followed by ']'. Directives cut off by the end of the buffer
// are skipped silently; they may complete on a later pass.
func FindAll(buf string, kind blocks.Kind) []Span {
	prefix := "[" + string(kind) + ":"
	var out []Span

	from := 0
	for from < len(buf) {
		i := indexFold(buf[from:], prefix)
		if i < 0 {
			break
		}
		start := from + i
		from = start + 1

		open := skipSpace(buf, start+len(prefix))
		if open >= len(buf) || buf[open] != '{' {
			continue
		}
		end, res := scanBalanced(buf, open)
		if res != scanComplete {
			continue
		}
		if end >= len(buf) || buf[end] != ']' {
			continue
		}
		out = append(out, Span{Start: start, End: end + 1, Inner: buf[open:end]})
		from = end + 1
	}
	return out
}

// scanBalanced scans forward from the '{' at open and returns the offset just
// past its matching '}'. Braces inside JSON string literals are not counted.
// When that scan runs off the end, usually because of a stray quote in a
// malformed payload, a plain brace count that closes right before ']' still
// ends the directive, so the text after it is not swallowed.
func scanBalanced(s string, open int) (int, scanResult) {
	if end, res := scanString(s, open); res == scanComplete {
		return end, res
	}
	if end, ok := countBraces(s, open); ok && end < len(s) && s[end] == ']' {
		return end, scanComplete
	}
	return len(s), scanIncomplete
}

// countBraces counts '{' and '}' with no notion of strings.
func countBraces(s string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return len(s), false
}

func scanString(s string, open int) (int, scanResult) {
	depth := 0
	inString := false
	escaped := false

	for i := open; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, scanComplete
			}
		}
	}
	return len(s), scanIncomplete
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// indexFold is strings.Index with ASCII case folding. Offsets stay byte
// offsets into s, which strings.ToLower does not guarantee for non-ASCII.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if hasPrefixFold(s[i:], substr) {
			return i
		}
	}
	return -1
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for j := 0; j < len(prefix); j++ {
		if foldByte(s[j]) != foldByte(prefix[j]) {
			return false
		}
	}
	return true
}

func foldByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
