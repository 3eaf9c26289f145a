// Package blocks holds the parsed form of a streamed response: an ordered list
// of prose and structured blocks, their payloads, and the rule that decides
// whether two lists differ enough to re-render.
package blocks

import "strconv"

// ─── Kinds ──────────────────────────────────────────────────────────────────

// Kind identifies what a block renders as.
type Kind string

const (
	KindText          Kind = "text"
	KindChart         Kind = "chart"
	KindKPI           Kind = "kpi"
	KindGantt         Kind = "gantt"
	KindThoughtChain  Kind = "thought-chain"
	KindToolCallChain Kind = "tool-call-chain"
	KindTable         Kind = "table"
)

// DirectiveKinds are the tag types that appear as [type:{...}] in a buffer.
var DirectiveKinds = []Kind{
	KindChart,
	KindKPI,
	KindGantt,
	KindThoughtChain,
	KindToolCallChain,
}

// IsChain reports whether k carries a Chain payload.
func (k Kind) IsChain() bool {
	return k == KindThoughtChain || k == KindToolCallChain
}

// ─── Markers and blocks ─────────────────────────────────────────────────────

// Marker is a decoded structured candidate positioned in the buffer.
// Start is inclusive, End exclusive.
type Marker struct {
	Kind    Kind `json:"kind"`
	Start   int  `json:"start"`
	End     int  `json:"end"`
	Payload any  `json:"payload"`
}

// Block is the unit handed to the rendering collaborator.
type Block struct {
	ID     string  `json:"id"`
	Kind   Kind    `json:"kind"`
	Offset int     `json:"offset"`           // source offset the block originated from
	Text   string  `json:"text,omitempty"`   // text blocks only
	Marker *Marker `json:"marker,omitempty"` // structured blocks only
}

// NewText builds a text block that originated at offset.
func NewText(offset int, text string) Block {
	return Block{
		ID:     blockID(KindText, offset),
		Kind:   KindText,
		Offset: offset,
		Text:   text,
	}
}

// NewStructured wraps a marker as a block.
func NewStructured(m Marker) Block {
	mk := m
	return Block{
		ID:     blockID(m.Kind, m.Start),
		Kind:   m.Kind,
		Offset: m.Start,
		Marker: &mk,
	}
}

func blockID(k Kind, offset int) string {
	return string(k) + "_" + strconv.Itoa(offset)
}

// IsText reports whether b is a prose block.
func (b Block) IsText() bool {
	return b.Kind == KindText
}

// Chain returns the chain payload of a chain block.
func (b Block) Chain() (Chain, bool) {
	if b.Marker == nil {
		return Chain{}, false
	}
	c, ok := b.Marker.Payload.(Chain)
	return c, ok
}

// WithChain returns a copy of b carrying c as its payload.
func (b Block) WithChain(c Chain) Block {
	if b.Marker == nil {
		return b
	}
	mk := *b.Marker
	mk.Payload = c
	b.Marker = &mk
	return b
}
