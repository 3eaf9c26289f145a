package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"blockstream/internal/blocks"
)

// Decode validates and decodes the inner object of a directive. It returns
// false for anything that is not valid JSON of the expected shape and never
// panics.
func Decode(kind blocks.Kind, inner string, start int) (payload any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			payload, ok = nil, false
		}
	}()

	switch kind {
	case blocks.KindChart:
		return decodeChart(inner)
	case blocks.KindKPI:
		return decodeKPI(inner, start)
	case blocks.KindGantt:
		return decodeGantt(inner)
	case blocks.KindThoughtChain:
		return decodeChain(inner, thoughtItem)
	case blocks.KindToolCallChain:
		return decodeChain(inner, toolCallItem)
	}
	return nil, false
}

func decodeObject(inner string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(inner), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// ─── Chart ──────────────────────────────────────────────────────────────────

var (
	plusAfterColon = regexp.MustCompile(`:\s*\+(\d+\.?\d*)`)
	plusAfterComma = regexp.MustCompile(`,\s*\+(\d+\.?\d*)`)
	plusAfterOpen  = regexp.MustCompile(`\[\s*\+(\d+\.?\d*)`)
	adjacentObject = regexp.MustCompile(`\}\s*\{`)
	trailingArray  = regexp.MustCompile(`,\s*\]`)
	trailingObject = regexp.MustCompile(`,\s*\}`)
	bareKey        = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][A-Za-z0-9_$]*)\s*:`)
)

var chartKinds = map[string]bool{
	"line": true, "bar": true, "pie": true, "area": true, "funnel": true,
	"scatter": true, "radar": true, "box-plot": true, "map": true,
	"quadrant": true, "combo": true,
}

var (
	xKeyCandidates = []string{"date", "month", "time", "name", "region", "category", "x", "label", "key"}
	yKeyCandidates = []string{"value", "sales", "amount", "count", "y", "data"}
)

// repairChartJSON fixes the mistakes models commonly make in chart payloads.
// String literals are copied through untouched.
func repairChartJSON(s string) string {
	var out strings.Builder
	plain := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '"' {
			continue
		}
		out.WriteString(repairOutsideStrings(s[plain:i]))
		end := closingQuote(s, i)
		out.WriteString(s[i:end])
		plain = end
		i = end - 1
	}
	out.WriteString(repairOutsideStrings(s[plain:]))
	return out.String()
}

// closingQuote returns the offset just past the string literal opened at
// s[open], or len(s) when it never closes.
func closingQuote(s string, open int) int {
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(s)
}

func repairOutsideStrings(s string) string {
	s = plusAfterColon.ReplaceAllString(s, ": ${1}")
	s = plusAfterComma.ReplaceAllString(s, ", ${1}")
	s = plusAfterOpen.ReplaceAllString(s, "[${1}")
	s = adjacentObject.ReplaceAllString(s, "},{")
	s = trailingArray.ReplaceAllString(s, "]")
	s = trailingObject.ReplaceAllString(s, "}")
	s = bareKey.ReplaceAllString(s, `${1}"${2}":`)
	return s
}

func decodeChart(inner string) (any, bool) {
	obj, ok := decodeObject(inner)
	if !ok {
		if obj, ok = decodeObject(repairChartJSON(inner)); !ok {
			return nil, false
		}
	}

	rows, ok := objectRows(obj["data"])
	if !ok {
		return nil, false
	}

	c := blocks.Chart{Data: rows, Extra: map[string]any{}}
	c.Title, _ = obj["title"].(string)
	c.XKey, _ = obj["xKey"].(string)
	c.YKey, _ = obj["yKey"].(string)
	c.YKeys = seriesKeys(obj["yKeys"])

	c.Type, _ = obj["type"].(string)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if c.Type == "" {
		c.Type = inferChartType(c, rows[0])
	}
	if !chartKinds[strings.TrimSuffix(c.Type, "-chart")] {
		return nil, false
	}

	first := rows[0]
	if c.XKey == "" {
		c.XKey = pickKey(first, xKeyCandidates, false, "")
	}
	if c.YKey == "" && len(c.YKeys) == 0 {
		y := pickKey(first, yKeyCandidates, true, c.XKey)
		if y != "" {
			switch strings.TrimSuffix(c.Type, "-chart") {
			case "line", "area", "combo", "radar":
				c.YKeys = []blocks.SeriesKey{{Key: y, Name: y}}
			default:
				c.YKey = y
			}
		}
	}

	for k, v := range obj {
		switch k {
		case "type", "title", "xKey", "yKey", "yKeys", "data":
		default:
			c.Extra[k] = v
		}
	}
	return c, true
}

func inferChartType(c blocks.Chart, first map[string]any) string {
	switch {
	case c.XKey != "" && len(c.YKeys) > 0:
		return "line"
	case c.XKey != "" && c.YKey != "":
		return "bar"
	}
	_, hasName := first["name"]
	_, hasValue := first["value"]
	if hasName && hasValue {
		return "pie"
	}
	if _, ok := first["stage"]; ok {
		return "funnel"
	}
	return "line"
}

// pickKey chooses the first candidate present in row, falling back to the
// first numeric (or any) key other than skip.
func pickKey(row map[string]any, candidates []string, numeric bool, skip string) string {
	for _, k := range candidates {
		v, ok := row[k]
		if !ok || k == skip {
			continue
		}
		if numeric {
			if _, isNum := v.(float64); !isNum {
				continue
			}
		}
		return k
	}
	var fallback string
	for k, v := range row {
		if k == skip {
			continue
		}
		if numeric {
			if _, isNum := v.(float64); !isNum {
				continue
			}
		}
		// map order is random; take the smallest key so results are stable
		if fallback == "" || k < fallback {
			fallback = k
		}
	}
	return fallback
}

func seriesKeys(v any) []blocks.SeriesKey {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []blocks.SeriesKey
	for _, e := range arr {
		switch x := e.(type) {
		case string:
			if x != "" {
				out = append(out, blocks.SeriesKey{Key: x, Name: x})
			}
		case map[string]any:
			key, _ := x["key"].(string)
			if key == "" {
				continue
			}
			sk := blocks.SeriesKey{Key: key, Name: key}
			if name, ok := x["name"].(string); ok && name != "" {
				sk.Name = name
			}
			sk.Color, _ = x["color"].(string)
			out = append(out, sk)
		}
	}
	return out
}

func objectRows(v any) ([]map[string]any, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	rows := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		row, ok := e.(map[string]any)
		if !ok {
			return nil, false
		}
		rows = append(rows, row)
	}
	return rows, true
}

// ─── KPI ────────────────────────────────────────────────────────────────────

func decodeKPI(inner string, start int) (any, bool) {
	obj, ok := decodeObject(inner)
	if !ok {
		return nil, false
	}

	label, ok := primitiveString(obj["label"])
	if !ok {
		return nil, false
	}
	value, present := obj["value"]
	if !present || value == nil || !isPrimitive(value) {
		return nil, false
	}

	k := blocks.KPI{Label: label, Value: value, Change: obj["change"], Extra: map[string]any{}}
	k.Unit, _ = obj["unit"].(string)
	k.Trend, _ = obj["trend"].(string)
	if id, ok := primitiveString(obj["id"]); ok && id != "" {
		k.ID = id
	} else {
		k.ID = kpiID(start, inner)
	}

	for key, v := range obj {
		switch key {
		case "id", "label", "value", "unit", "trend", "change":
		default:
			k.Extra[key] = v
		}
	}
	return k, true
}

// kpiID derives a stable id from the directive's position and content so
// that parsing the same buffer twice yields the same id.
func kpiID(start int, inner string) string {
	name := fmt.Sprintf("%d:%s", start, inner)
	return "kpi-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case string, float64, bool:
		return true
	}
	return false
}

func primitiveString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64, bool:
		return fmt.Sprint(x), true
	}
	return "", false
}

// ─── Gantt ──────────────────────────────────────────────────────────────────

func decodeGantt(inner string) (any, bool) {
	obj, ok := decodeObject(inner)
	if !ok {
		return nil, false
	}
	rows, ok := objectRows(obj["data"])
	if !ok {
		return nil, false
	}
	g := blocks.Gantt{Data: rows}
	g.Title, _ = obj["title"].(string)
	return g, true
}

// ─── Chains ─────────────────────────────────────────────────────────────────

type itemDecoder func(obj map[string]any) (blocks.ChainItem, bool)

func decodeChain(inner string, item itemDecoder) (any, bool) {
	obj, ok := decodeObject(inner)
	if !ok {
		return nil, false
	}
	raw, ok := obj["items"].([]any)
	if !ok {
		return nil, false
	}

	var items []blocks.ChainItem
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if it, ok := item(m); ok {
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		return nil, false
	}
	return blocks.Chain{Items: items}, true
}

func thoughtItem(m map[string]any) (blocks.ChainItem, bool) {
	key, _ := m["key"].(string)
	key = strings.TrimSpace(key)
	title, ok := titleText(m["title"])
	if key == "" || !ok {
		return blocks.ChainItem{}, false
	}
	return blocks.ChainItem{
		Key:         key,
		Title:       title,
		Status:      itemStatus(m),
		Description: looseText(m["description"]),
		Blink:       m["blink"] == true,
	}, true
}

func toolCallItem(m map[string]any) (blocks.ChainItem, bool) {
	key, _ := primitiveString(m["key"])
	if strings.TrimSpace(key) == "" {
		key, _ = primitiveString(m["id"])
	}
	key = strings.TrimSpace(key)

	toolName, _ := m["toolName"].(string)
	display, _ := m["toolDisplayName"].(string)

	title, ok := titleText(m["title"])
	if !ok {
		switch {
		case strings.TrimSpace(display) != "":
			title, ok = strings.TrimSpace(display), true
		case strings.TrimSpace(toolName) != "":
			title, ok = strings.TrimSpace(toolName), true
		}
	}
	if key == "" || !ok {
		return blocks.ChainItem{}, false
	}
	return blocks.ChainItem{
		Key:             key,
		Title:           title,
		Status:          itemStatus(m),
		Description:     looseText(m["description"]),
		Blink:           m["blink"] == true,
		ToolName:        toolName,
		ToolDisplayName: display,
	}, true
}

// titleText accepts a non-blank string or any other non-null value, which
// is shown in its JSON form.
func titleText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		x = strings.TrimSpace(x)
		return x, x != ""
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func looseText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func itemStatus(m map[string]any) blocks.Status {
	s, _ := m["status"].(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return blocks.StatusLoading
	}
	return blocks.Status(s)
}
