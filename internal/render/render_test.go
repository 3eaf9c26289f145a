package render

import (
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"blockstream/internal/blocks"
	"blockstream/internal/parser"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func newRenderer(t *testing.T, width int) *Renderer {
	t.Helper()
	r, err := New(width, StylePlain)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func structured(kind blocks.Kind, payload any) blocks.Block {
	return blocks.NewStructured(blocks.Marker{Kind: kind, Start: 0, End: 1, Payload: payload})
}

func lineWith(out, needle string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, needle) {
			return line
		}
	}
	return ""
}

// ─── Text ───────────────────────────────────────────────────────────────────

func TestRenderText(t *testing.T) {
	r := newRenderer(t, 80)
	out := r.Block(blocks.NewText(0, "# Summary\n\nRevenue is **up** this quarter."))
	for _, want := range []string{"Summary", "Revenue is", "up", "this quarter."} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q\nOutput:\n%s", want, out)
		}
	}
	if strings.HasSuffix(out, "\n") {
		t.Error("rendered text should not end with a newline")
	}
}

// ─── Chart ──────────────────────────────────────────────────────────────────

func TestRenderChart(t *testing.T) {
	c := blocks.Chart{
		Type:  "bar",
		Title: "Sales",
		XKey:  "month",
		YKey:  "sales",
		Data: []map[string]any{
			{"month": "Jan", "sales": 10.0},
			{"month": "Feb", "sales": 12.0},
		},
	}
	out := renderChart(c, 80)

	if !strings.Contains(out, "Sales") || !strings.Contains(out, "bar") {
		t.Errorf("chart header missing:\n%s", out)
	}
	jan, feb := lineWith(out, "Jan"), lineWith(out, "Feb")
	if jan == "" || feb == "" {
		t.Fatalf("chart rows missing:\n%s", out)
	}
	// the peak row gets the full bar
	if got, want := strings.Count(feb, "█"), 80-3-16; got != want {
		t.Errorf("Feb bar = %d cells, want %d", got, want)
	}
	if strings.Count(jan, "█") >= strings.Count(feb, "█") {
		t.Errorf("Jan bar should be shorter than Feb:\n%s", out)
	}
	if !strings.HasSuffix(feb, " 12") {
		t.Errorf("Feb row should end with its value: %q", feb)
	}
}

func TestRenderChartMultiSeries(t *testing.T) {
	c := blocks.Chart{
		Type:  "line",
		XKey:  "day",
		YKeys: []blocks.SeriesKey{{Key: "a"}, {Key: "b"}},
		Data:  []map[string]any{{"day": "Mon", "a": 1.0, "b": "oops"}},
	}
	out := renderChart(c, 60)
	if !strings.Contains(out, "Mon") || !strings.Contains(out, "n/a") {
		t.Errorf("multi-series output:\n%s", out)
	}
	if got := strings.Count(out, "\n"); got != 2 {
		t.Errorf("want one line per series, got %d lines:\n%s", got, out)
	}
}

func TestRenderChartPie(t *testing.T) {
	c := blocks.Chart{
		Type: "pie",
		XKey: "name",
		YKey: "value",
		Data: []map[string]any{{"name": "A", "value": 1.0}, {"name": "B", "value": 3.0}},
	}
	out := renderChart(c, 60)
	if !strings.Contains(out, "(25%)") || !strings.Contains(out, "(75%)") {
		t.Errorf("pie shares missing:\n%s", out)
	}
}

func TestRenderChartNoSeries(t *testing.T) {
	c := blocks.Chart{Type: "map", Data: []map[string]any{{"region": "EU", "score": 3.0}}}
	out := renderChart(c, 60)
	if !strings.Contains(out, "region=EU, score=3") {
		t.Errorf("rows should be listed as fields:\n%s", out)
	}
}

// ─── KPI ────────────────────────────────────────────────────────────────────

func TestRenderKPI(t *testing.T) {
	tests := []struct {
		name string
		kpi  blocks.KPI
		want []string
	}{
		{
			name: "trend up",
			kpi:  blocks.KPI{Label: "Revenue", Value: 1200.0, Unit: "$", Trend: "up", Change: "+12%"},
			want: []string{"Revenue", "1200 $", "▲ +12%", "╭"},
		},
		{
			name: "trend down numeric change",
			kpi:  blocks.KPI{Label: "Churn", Value: 0.5, Trend: "down", Change: -0.25},
			want: []string{"Churn", "0.5", "▼ -0.25"},
		},
		{
			name: "string value",
			kpi:  blocks.KPI{Label: "Status", Value: "green"},
			want: []string{"Status", "green"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := renderKPI(tt.kpi)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("KPI card missing %q\nOutput:\n%s", w, out)
				}
			}
		})
	}
}

// ─── Gantt ──────────────────────────────────────────────────────────────────

func TestRenderGantt(t *testing.T) {
	g := blocks.Gantt{
		Title: "Q2",
		Data: []map[string]any{
			{"task": "Pilot", "start": "2024-04-01", "end": "2024-04-30"},
			{"task": "Pricing", "start": "2024-05-01", "end": "2024-05-20"},
		},
	}
	out := renderGantt(g, 80)
	pilot, pricing := lineWith(out, "Pilot"), lineWith(out, "Pricing")
	if !strings.Contains(pilot, "█") || !strings.Contains(pilot, "2024-04-01 → 2024-04-30") {
		t.Errorf("pilot row = %q", pilot)
	}
	// later tasks start further right
	if strings.Index(pricing, "█") <= strings.Index(pilot, "█") {
		t.Errorf("Pricing bar should start after Pilot:\n%s", out)
	}
}

func TestRenderGanttUndated(t *testing.T) {
	g := blocks.Gantt{Data: []map[string]any{{"name": "Launch", "start": "soon"}}}
	out := renderGantt(g, 80)
	if strings.Contains(out, "█") {
		t.Errorf("undated rows should not draw bars:\n%s", out)
	}
	if !strings.Contains(out, "Launch") || !strings.Contains(out, "Timeline") {
		t.Errorf("gantt output:\n%s", out)
	}
}

// ─── Chains ─────────────────────────────────────────────────────────────────

func TestRenderChain(t *testing.T) {
	c := blocks.Chain{Items: []blocks.ChainItem{
		{Key: "1", Title: "Plan", Status: blocks.StatusSuccess},
		{Key: "2", Title: "Query", Status: blocks.StatusLoading, Blink: true},
		{Key: "3", Title: "Report", Status: blocks.StatusLoading},
		{Key: "4", Title: "Retry", Status: blocks.StatusError, Description: "timed out"},
	}}
	out := renderChain(blocks.KindThoughtChain, c)
	for _, want := range []string{"Thinking", "✓ Plan", "● Query", "○ Report", "✗ Retry", "timed out"} {
		if !strings.Contains(out, want) {
			t.Errorf("chain output missing %q\nOutput:\n%s", want, out)
		}
	}

	tools := renderChain(blocks.KindToolCallChain, blocks.Chain{Items: []blocks.ChainItem{
		{Key: "q", ToolName: "sql", Status: blocks.StatusSuccess},
	}})
	if !strings.Contains(tools, "Tools") || !strings.Contains(tools, "✓ sql") {
		t.Errorf("tool chain output:\n%s", tools)
	}
}

// ─── Table ──────────────────────────────────────────────────────────────────

func TestRenderTable_Basic(t *testing.T) {
	out := renderTable(blocks.Table{Headers: []string{"Name", "Value"}, Rows: [][]string{{"foo", "bar"}}}, 80)
	for _, want := range []string{"┌", "├", "└", "Name", "Value", "foo", "bar"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderTable output missing %q\nOutput:\n%s", want, out)
		}
	}
}

func TestRenderTable_LastRowPresent(t *testing.T) {
	out := renderTable(blocks.Table{
		Headers: []string{"Col"},
		Rows:    [][]string{{"row1"}, {"row2"}, {"last row"}},
	}, 80)
	if !strings.Contains(out, "last row") || !strings.Contains(out, "row1") {
		t.Errorf("rows missing from rendered table:\n%s", out)
	}
}

func TestRenderTable_WideColumnCapped(t *testing.T) {
	long := strings.Repeat("x", 120)
	out := renderTable(blocks.Table{Headers: []string{"Short", "Long"}, Rows: [][]string{{"v", long}}}, 60)
	for _, line := range strings.Split(out, "\n") {
		if w := lipgloss.Width(line); w > 60 {
			t.Errorf("line width %d exceeds 60: %q", w, line)
		}
	}
	if strings.Count(out, "x") != 120 {
		t.Error("wrapped cell content should survive in full")
	}
}

func TestRenderTable_Empty(t *testing.T) {
	if renderTable(blocks.Table{}, 80) != "" {
		t.Error("table without headers should render empty")
	}
}

func TestRenderTable_ExtraColumnsIgnored(t *testing.T) {
	out := renderTable(blocks.Table{
		Headers: []string{"Col1", "Col2"},
		Rows:    [][]string{{"a", "b", "extra", "more"}},
	}, 80)
	if strings.Contains(out, "extra") {
		t.Errorf("cells past the header should be dropped:\n%s", out)
	}
	row := lineWith(out, " a ")
	if count := strings.Count(row, "│"); count != 3 {
		t.Errorf("data row should have 3 vertical bars for 2 columns, got %d: %s", count, row)
	}
}

func TestRenderTable_TopBorderMatchesColumns(t *testing.T) {
	out := renderTable(blocks.Table{
		Headers: []string{"Pattern", "Frequency", "Example"},
		Rows:    [][]string{{"a", "b", "c"}},
	}, 80)
	top := strings.Split(out, "\n")[0]
	if n := strings.Count(top, "┬"); n != 2 {
		t.Errorf("top border should have 2 ┬ separators for 3 columns, got %d: %s", n, top)
	}
	if n := strings.Count(top, "┐"); n != 1 {
		t.Errorf("top border should have exactly 1 ┐, got %d: %s", n, top)
	}
}

func TestCapWidths(t *testing.T) {
	widths := []int{5, 100, 40}
	capWidths(widths, 60)
	sum := 0
	for _, w := range widths {
		sum += w
	}
	if sum > 60-10 {
		t.Errorf("capped widths %v sum to %d, want <= 50", widths, sum)
	}
	if widths[0] != 5 {
		t.Errorf("narrow column should keep its width, got %d", widths[0])
	}
}

// ─── wrapCell ───────────────────────────────────────────────────────────────

func TestWrapCell(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"no wrap needed", "hello", 10, []string{"hello"}},
		{"exactly max width", "hello", 5, []string{"hello"}},
		{"word boundary", "hello world foo", 11, []string{"hello world", "foo"}},
		{"hard wrap", "abcdefghij", 5, []string{"abcde", "fghij"}},
		{"zero width", "text", 0, []string{"text"}},
		{"multibyte", "ééééé", 2, []string{"éé", "éé", "é"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapCell(tt.text, tt.width)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("wrapCell(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

// ─── Whole responses ────────────────────────────────────────────────────────

func TestRenderParsedResponse(t *testing.T) {
	buf := "Intro text.\n\n| A | B |\n|---|---|\n| 1 | 2 |\n\n" +
		`[kpi:{"label":"Users","value":42}]` + "\nDone."
	out := newRenderer(t, 80).Render(parser.Parse(buf))
	for _, want := range []string{"Intro text.", "┌", "Users", "42", "Done."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\nOutput:\n%s", want, out)
		}
	}
	if strings.Contains(out, "[kpi:") {
		t.Errorf("directive source leaked into output:\n%s", out)
	}
}

func TestPlain(t *testing.T) {
	bs := []blocks.Block{
		blocks.NewText(0, "hello"),
		structured(blocks.KindKPI, blocks.KPI{Label: "x", Value: 1.0}),
	}
	if got, want := Plain(bs), "hello\n[kpi]"; got != want {
		t.Errorf("Plain() = %q, want %q", got, want)
	}
}
