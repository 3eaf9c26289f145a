package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"blockstream/internal/blocks"
)

// maxSanitizePasses bounds the fixed-point loop in Sanitize.
const maxSanitizePasses = 8

// roleRe matches role attribution such as "[Analyst says]:" or "[助手说]:".
var roleRe = regexp.MustCompile(`\[[^\[\]\n]{1,40}?(?: says|说)\]:?[ \t]*`)

// minPartialPrefix is the shortest trailing "[kind" fragment treated as the
// start of a directive still being streamed.
const minPartialPrefix = 3

// Sanitize strips directive syntax from prose: complete directive spans
// that decode, directives opened but not closed before the end of text,
// and role markers. Complete spans whose payload is malformed are kept so
// that content is not lost. Interactive directives such as [choices:...]
// are never touched.
func Sanitize(text string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		next := sanitizeOnce(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func sanitizeOnce(text string) string {
	text = removeComplete(text)
	text = removeIncomplete(text)
	text = roleRe.ReplaceAllString(text, "")
	return removePartialPrefix(text)
}

func removeComplete(text string) string {
	for _, kind := range blocks.DirectiveKinds {
		spans := FindAll(text, kind)
		for i := len(spans) - 1; i >= 0; i-- {
			s := spans[i]
			if consumable(kind, s.Inner, s.Start) {
				text = text[:s.Start] + text[s.End:]
			}
		}
	}
	return text
}

// consumable reports whether a complete span is removed from prose. Spans
// that decode are removed, as are chains that are valid JSON but list no
// usable items; anything else stays visible.
func consumable(kind blocks.Kind, inner string, start int) bool {
	if _, ok := Decode(kind, inner, start); ok {
		return true
	}
	return kind.IsChain() && json.Valid([]byte(inner))
}

// removeIncomplete cuts from the first directive opening that never closes
// through the end of text. An object that closes at the very end but still
// lacks its ']' counts as unclosed.
func removeIncomplete(text string) string {
	for _, kind := range blocks.DirectiveKinds {
		prefix := "[" + string(kind) + ":"
		from := 0
		for from < len(text) {
			i := indexFold(text[from:], prefix)
			if i < 0 {
				break
			}
			start := from + i
			from = start + 1

			open := skipSpace(text, start+len(prefix))
			if open >= len(text) {
				text = text[:start]
				break
			}
			if text[open] != '{' {
				continue
			}
			end, res := scanBalanced(text, open)
			if res == scanIncomplete || strings.TrimSpace(text[end:]) == "" {
				text = text[:start]
				break
			}
		}
	}
	return text
}

// removePartialPrefix drops a trailing fragment such as "[thought-ch" that
// can only be the beginning of a directive.
func removePartialPrefix(text string) string {
	i := strings.LastIndexByte(text, '[')
	if i < 0 || len(text)-i < minPartialPrefix {
		return text
	}
	tail := text[i:]
	for _, kind := range blocks.DirectiveKinds {
		if len(tail) < len(kind)+2 && hasPrefixFold("["+string(kind)+":", tail) {
			return text[:i]
		}
	}
	return text
}
