package blocks

// ─── Chart ──────────────────────────────────────────────────────────────────

// SeriesKey names one plotted series of a multi-series chart.
type SeriesKey struct {
	Key   string `json:"key"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

// Chart is the payload of a [chart:{...}] directive.
type Chart struct {
	Type  string           `json:"type"`
	Title string           `json:"title,omitempty"`
	XKey  string           `json:"xKey,omitempty"`
	YKey  string           `json:"yKey,omitempty"`
	YKeys []SeriesKey      `json:"yKeys,omitempty"`
	Data  []map[string]any `json:"data"`
	Extra map[string]any   `json:"-"` // unrecognized top-level fields
}

// ─── KPI ────────────────────────────────────────────────────────────────────

// KPI is the payload of a [kpi:{...}] directive.
type KPI struct {
	ID     string         `json:"id"`
	Label  string         `json:"label"`
	Value  any            `json:"value"`
	Unit   string         `json:"unit,omitempty"`
	Trend  string         `json:"trend,omitempty"`
	Change any            `json:"change,omitempty"`
	Extra  map[string]any `json:"-"`
}

// ─── Gantt ──────────────────────────────────────────────────────────────────

// Gantt is the payload of a [gantt:{...}] directive.
type Gantt struct {
	Title string           `json:"title,omitempty"`
	Data  []map[string]any `json:"data"`
}

// ─── Chains ─────────────────────────────────────────────────────────────────

// Status is the progress state of a chain item.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ChainItem is one step of a thought-chain or tool-call-chain.
type ChainItem struct {
	Key             string `json:"key"`
	Title           string `json:"title"`
	Status          Status `json:"status"`
	Description     string `json:"description,omitempty"`
	Blink           bool   `json:"blink,omitempty"`
	ToolName        string `json:"toolName,omitempty"`
	ToolDisplayName string `json:"toolDisplayName,omitempty"`
}

// Chain is the payload of both chain directive kinds.
type Chain struct {
	Items []ChainItem `json:"items"`
}

// Loading reports whether any item is still loading.
func (c Chain) Loading() bool {
	for _, it := range c.Items {
		if it.Status == StatusLoading {
			return true
		}
	}
	return false
}

// Resolve returns a copy with every loading item marked success.
func (c Chain) Resolve() Chain {
	items := make([]ChainItem, len(c.Items))
	for i, it := range c.Items {
		if it.Status == StatusLoading {
			it.Status = StatusSuccess
			it.Blink = false
		}
		items[i] = it
	}
	return Chain{Items: items}
}

// ─── Table ──────────────────────────────────────────────────────────────────

// Table is a Markdown pipe table lifted out of prose.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ResolveChains marks all loading chain items in bs as complete.
func ResolveChains(bs []Block) []Block {
	out := make([]Block, len(bs))
	for i, b := range bs {
		if c, ok := b.Chain(); ok && c.Loading() {
			b = b.WithChain(c.Resolve())
		}
		out[i] = b
	}
	return out
}

// HasLoading reports whether any chain block has a loading item.
func HasLoading(bs []Block) bool {
	for _, b := range bs {
		if c, ok := b.Chain(); ok && c.Loading() {
			return true
		}
	}
	return false
}
