package transcript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockstream/internal/blocks"
	"blockstream/internal/llm"
	"blockstream/internal/parser"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		chunks  int
		wantErr bool
	}{
		{
			name:   "two chunks",
			raw:    "name: t\nchunks:\n  - text: a\n    delay_ms: 5\n  - text: b\n",
			chunks: 2,
		},
		{
			name:    "no chunks",
			raw:     "name: empty\n",
			wantErr: true,
		},
		{
			name:    "negative delay",
			raw:     "chunks:\n  - text: a\n    delay_ms: -1\n",
			wantErr: true,
		},
		{
			name:    "not yaml",
			raw:     "chunks: [",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Parse([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(tr.Chunks) != tt.chunks {
				t.Errorf("chunks = %d, want %d", len(tr.Chunks), tt.chunks)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunks:\n  - text: hi\n"), 0600))

	tr, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, tr.Name)
	assert.Equal(t, "hi", tr.Text())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDemoParses(t *testing.T) {
	tr, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "quarterly-review", tr.Name)

	bs := parser.Parse(tr.Text())
	kinds := map[blocks.Kind]bool{}
	for _, b := range bs {
		kinds[b.Kind] = true
	}
	for _, k := range []blocks.Kind{blocks.KindText, blocks.KindThoughtChain, blocks.KindKPI, blocks.KindTable, blocks.KindChart, blocks.KindGantt} {
		assert.True(t, kinds[k], "demo should produce a %s block", k)
	}
}

func TestFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{"even split", "abcdef", 2, []string{"ab", "cd", "ef"}},
		{"remainder", "abcde", 2, []string{"ab", "cd", "e"}},
		{"zero size is one chunk", "abc", 0, []string{"abc"}},
		{"empty", "", 3, nil},
		{"multibyte kept whole", "héllo", 2, []string{"hé", "ll", "o"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := FromText("x", tt.text, tt.size, 0)
			var got []string
			for _, c := range tr.Chunks {
				if !utf8.ValidString(c.Text) {
					t.Errorf("chunk %q is not valid UTF-8", c.Text)
				}
				got = append(got, c.Text)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, tr.Text())
		})
	}
}

func TestPlayerStream(t *testing.T) {
	tr := FromText("x", "hello world", 3, 0)
	var got strings.Builder
	err := NewPlayer(tr).Stream(context.Background(), llm.Request{}, func(d string) { got.WriteString(d) })
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.String())
}

func TestPlayerCancel(t *testing.T) {
	tr := &Transcript{Chunks: []Chunk{{Text: "a"}, {Text: "b", DelayMS: 60_000}}}
	ctx, cancel := context.WithCancel(context.Background())

	var got []string
	done := make(chan error, 1)
	go func() {
		done <- NewPlayer(tr).Stream(ctx, llm.Request{}, func(d string) { got = append(got, d) })
	}()
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("Stream did not return after cancel")
	}
	assert.NotContains(t, got, "b")
}

func TestPlayerSpeed(t *testing.T) {
	p := &Player{T: &Transcript{}, Speed: 0.5}
	assert.Equal(t, 50*time.Millisecond, p.delay(Chunk{DelayMS: 100}))
	p.Speed = 0
	assert.Equal(t, time.Duration(0), p.delay(Chunk{DelayMS: 100}))
}
