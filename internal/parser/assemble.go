package parser

import (
	"strings"

	"blockstream/internal/blocks"
)

// Markers runs every extractor over buf and returns the registered marker
// list. Candidates whose payload does not decode are dropped here and stay
// in the surrounding text.
func Markers(buf string) []blocks.Marker {
	var found []blocks.Marker
	for _, kind := range blocks.DirectiveKinds {
		for _, s := range FindAll(buf, kind) {
			payload, ok := Decode(kind, s.Inner, s.Start)
			if !ok {
				continue
			}
			found = append(found, blocks.Marker{Kind: kind, Start: s.Start, End: s.End, Payload: payload})
		}
	}
	for _, t := range FindTables(buf) {
		found = append(found, blocks.Marker{Kind: blocks.KindTable, Start: t.Start, End: t.End, Payload: t.Table})
	}
	return Register(found)
}

// Assemble interleaves sanitized prose with the structured markers, in
// buffer order. markers must already be registered.
func Assemble(buf string, markers []blocks.Marker) []blocks.Block {
	var out []blocks.Block
	cursor := 0

	emitText := func(from, to int) {
		if from >= to {
			return
		}
		text := strings.TrimSpace(Sanitize(buf[from:to]))
		if text != "" {
			out = append(out, blocks.NewText(from, text))
		}
	}

	for _, m := range markers {
		if m.Start < cursor || m.End > len(buf) {
			continue
		}
		emitText(cursor, m.Start)
		out = append(out, blocks.NewStructured(m))
		cursor = m.End
	}
	emitText(cursor, len(buf))
	return out
}

// Parse is one full pass over buf.
func Parse(buf string) []blocks.Block {
	return Assemble(buf, Markers(buf))
}
