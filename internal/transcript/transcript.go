// Package transcript loads recorded chunk sequences and replays them as if a
// model were streaming them.
package transcript

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"blockstream/internal/llm"
)

// Demo is the built-in transcript used when replay is given no file.
//
//go:embed demo.yaml
var Demo []byte

// Chunk is one delta and the pause before it is delivered.
type Chunk struct {
	Text    string `yaml:"text"`
	DelayMS int    `yaml:"delay_ms"`
}

// Transcript is a named, ordered list of chunks.
type Transcript struct {
	Name   string  `yaml:"name"`
	Chunks []Chunk `yaml:"chunks"`
}

// Text returns the concatenation of every chunk.
func (t *Transcript) Text() string {
	n := 0
	for _, c := range t.Chunks {
		n += len(c.Text)
	}
	b := make([]byte, 0, n)
	for _, c := range t.Chunks {
		b = append(b, c.Text...)
	}
	return string(b)
}

// Parse decodes a YAML transcript.
func Parse(raw []byte) (*Transcript, error) {
	var t Transcript
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parsing transcript: %w", err)
	}
	if len(t.Chunks) == 0 {
		return nil, fmt.Errorf("transcript %q has no chunks", t.Name)
	}
	for i, c := range t.Chunks {
		if c.DelayMS < 0 {
			return nil, fmt.Errorf("chunk %d: delay_ms must not be negative", i)
		}
	}
	return &t, nil
}

// Load reads a YAML transcript from path. When path is empty the built-in
// Demo transcript is used.
func Load(path string) (*Transcript, error) {
	if path == "" {
		return Parse(Demo)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	t, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if t.Name == "" {
		t.Name = path
	}
	return t, nil
}

// FromText splits text into chunks of at most size bytes without cutting a
// UTF-8 sequence, each delivered after delay.
func FromText(name, text string, size int, delay time.Duration) *Transcript {
	if size <= 0 {
		size = len(text)
	}
	t := &Transcript{Name: name}
	ms := int(delay / time.Millisecond)
	for len(text) > 0 {
		n := min(size, len(text))
		for n < len(text) && !utf8.RuneStart(text[n]) {
			n++
		}
		t.Chunks = append(t.Chunks, Chunk{Text: text[:n], DelayMS: ms})
		text = text[n:]
	}
	return t
}

// ─── Player ─────────────────────────────────────────────────────────────────

// Player replays a Transcript through the llm.Provider interface. Speed
// scales every delay; zero replays without pauses.
type Player struct {
	T     *Transcript
	Speed float64
}

// NewPlayer replays t in real time.
func NewPlayer(t *Transcript) *Player {
	return &Player{T: t, Speed: 1}
}

func (p *Player) Name() string { return "transcript" }

// Stream ignores req and emits the recorded chunks.
func (p *Player) Stream(ctx context.Context, _ llm.Request, onDelta llm.DeltaFunc) error {
	for _, c := range p.T.Chunks {
		if d := p.delay(c); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		onDelta(c.Text)
	}
	return nil
}

func (p *Player) delay(c Chunk) time.Duration {
	return time.Duration(float64(c.DelayMS) * p.Speed * float64(time.Millisecond))
}
