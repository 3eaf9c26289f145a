package display

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"blockstream/internal/blocks"
	"blockstream/internal/scheduler"
)

const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Gray    = "\033[90m"
)

func Header(text string) {
	fmt.Printf("\n%s%s%s\n", Bold+Cyan, text, Reset)
	fmt.Println(strings.Repeat("─", min(len(text)+4, 80)))
}

func Success(text string) {
	fmt.Printf("%s✓%s %s\n", Green, Reset, text)
}

func Error(text string) {
	fmt.Fprintf(os.Stderr, "%s✗%s %s\n", Red, Reset, text)
}

func Warn(text string) {
	fmt.Printf("%s!%s %s\n", Yellow, Reset, text)
}

func Info(label, value string) {
	fmt.Printf("  %s%-20s%s %s\n", Dim, label, Reset, value)
}

func Spinner(text string) {
	fmt.Printf("\r%s⟳%s %s", Yellow, Reset, text)
}

func ClearLine() {
	fmt.Print("\r\033[K")
}

// Block kind display
func KindLabel(k blocks.Kind) string {
	labels := map[blocks.Kind]string{
		blocks.KindText:          White + "¶ Text" + Reset,
		blocks.KindChart:         Cyan + "📊 Chart" + Reset,
		blocks.KindKPI:           Green + "◆ KPI" + Reset,
		blocks.KindGantt:         Blue + "▤ Gantt" + Reset,
		blocks.KindThoughtChain:  Magenta + "🧠 Thinking" + Reset,
		blocks.KindToolCallChain: Yellow + "🔧 Tools" + Reset,
		blocks.KindTable:         Cyan + "▦ Table" + Reset,
	}
	if label, ok := labels[k]; ok {
		return label
	}
	return Gray + string(k) + Reset
}

// Chain step status display
func StatusLabel(s blocks.Status) string {
	labels := map[blocks.Status]string{
		blocks.StatusLoading: Yellow + "⟳ Loading" + Reset,
		blocks.StatusSuccess: Green + "✓ Done" + Reset,
		blocks.StatusError:   Red + "✗ Error" + Reset,
	}
	if label, ok := labels[s]; ok {
		return label
	}
	return string(s)
}

// OutcomeLabel describes how a stream ended.
func OutcomeLabel(err error) string {
	switch {
	case err == nil:
		return Green + "Completed" + Reset
	case errors.Is(err, scheduler.ErrCancelled):
		return Gray + "Cancelled" + Reset
	}
	return Red + "Failed" + Reset
}

// Summary is a one-line description of a block.
func Summary(b blocks.Block) string {
	if b.IsText() {
		return KindLabel(b.Kind) + "  " + Truncate(strings.Join(strings.Fields(b.Text), " "), 60)
	}
	if b.Marker == nil {
		return KindLabel(b.Kind)
	}
	var detail string
	switch p := b.Marker.Payload.(type) {
	case blocks.Chart:
		detail = fmt.Sprintf("%s %q, %d rows", p.Type, p.Title, len(p.Data))
	case blocks.KPI:
		detail = fmt.Sprintf("%s = %v%s", p.Label, p.Value, p.Unit)
	case blocks.Gantt:
		detail = fmt.Sprintf("%d tasks", len(p.Data))
	case blocks.Chain:
		parts := make([]string, len(p.Items))
		for i, it := range p.Items {
			parts[i] = StatusLabel(it.Status)
		}
		detail = fmt.Sprintf("%d steps  %s", len(p.Items), strings.Join(parts, " "))
	case blocks.Table:
		detail = fmt.Sprintf("%d cols × %d rows", len(p.Headers), len(p.Rows))
	}
	return KindLabel(b.Kind) + "  " + Dim + detail + Reset
}

func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}
