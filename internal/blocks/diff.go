package blocks

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"
)

// Bounds of the shallow comparison. Structured payloads can be large and
// are re-decoded on every pass, so only a prefix sample is compared.
const (
	chartSampleRows  = 5
	tableSampleRows  = 3
	textSamplePrefix = 100
	textGrowthSlack  = 10
)

var interactiveRe = regexp.MustCompile(`(?i)\[(choices|actions|rating|switch|query):|\[[^\]\n]+\|[^\]\n]+\]`)

// Equal reports whether two block lists render the same under the shallow
// diff rule: same length, pairwise same kind and id, then a bounded
// type-specific payload comparison.
func Equal(a, b []Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !blockEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// EqualExact is the full deep comparison used for the final flush.
func EqualExact(a, b []Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Kind != b[i].Kind || a[i].Text != b[i].Text {
			return false
		}
		if (a[i].Marker == nil) != (b[i].Marker == nil) {
			return false
		}
		if a[i].Marker != nil && !reflect.DeepEqual(*a[i].Marker, *b[i].Marker) {
			return false
		}
	}
	return true
}

func blockEqual(a, b Block) bool {
	if a.Kind != b.Kind || a.ID != b.ID {
		return false
	}
	if a.Kind == KindText {
		return textEqual(a.Text, b.Text)
	}
	if a.Marker == nil || b.Marker == nil {
		return a.Marker == b.Marker
	}
	pa, pb := a.Marker.Payload, b.Marker.Payload

	switch va := pa.(type) {
	case Chart:
		vb, ok := pb.(Chart)
		if !ok || va.Type != vb.Type {
			return false
		}
		return rowsEqual(va.Data, vb.Data, chartSampleRows)
	case Gantt:
		vb, ok := pb.(Gantt)
		if !ok {
			return false
		}
		return rowsEqual(va.Data, vb.Data, chartSampleRows)
	case Table:
		vb, ok := pb.(Table)
		if !ok || !stringsEqual(va.Headers, vb.Headers) || len(va.Rows) != len(vb.Rows) {
			return false
		}
		for i := 0; i < len(va.Rows) && i < tableSampleRows; i++ {
			if !stringsEqual(va.Rows[i], vb.Rows[i]) {
				return false
			}
		}
		return true
	case KPI:
		vb, ok := pb.(KPI)
		if !ok {
			return false
		}
		return va.ID == vb.ID &&
			va.Label == vb.Label &&
			va.Unit == vb.Unit &&
			va.Trend == vb.Trend &&
			sameJSON(va.Value, vb.Value) &&
			sameJSON(va.Change, vb.Change)
	case Chain:
		vb, ok := pb.(Chain)
		if !ok || len(va.Items) != len(vb.Items) {
			return false
		}
		for i := range va.Items {
			x, y := va.Items[i], vb.Items[i]
			if x.Key != y.Key || x.Title != y.Title || x.Status != y.Status ||
				x.Description != y.Description || x.Blink != y.Blink {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(pa, pb)
	}
}

// textEqual compares prose. Text carrying interactive directives must match
// exactly; plain prose is treated as unchanged while its first bytes match
// and it has not grown noticeably.
func textEqual(a, b string) bool {
	if a == b {
		return true
	}
	if HasInteractive(a) || HasInteractive(b) {
		return false
	}
	if len(a) > len(b)+textGrowthSlack || len(b) > len(a)+textGrowthSlack {
		return false
	}
	return prefix(a, textSamplePrefix) == prefix(b, textSamplePrefix)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func rowsEqual(a, b []map[string]any, sample int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a) && i < sample; i++ {
		if !sameJSON(a[i], b[i]) {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sameJSON compares two decoded JSON values by their canonical encoding.
// encoding/json sorts map keys, so equal maps encode identically.
func sameJSON(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return string(ja) == string(jb)
}

// HasInteractive reports whether text carries a choice/action style
// directive that the renderer turns into interactive UI.
func HasInteractive(text string) bool {
	return interactiveRe.MatchString(text)
}

// InteractiveKinds lists the interactive directive kinds present in the text
// blocks of bs. Option lists of the form [a|b] report as "options".
func InteractiveKinds(bs []Block) map[string]bool {
	kinds := make(map[string]bool)
	for _, b := range bs {
		if b.Kind == KindText {
			scanInteractive(b.Text, kinds)
		}
	}
	return kinds
}

// ScanInteractive is InteractiveKinds over raw text.
func ScanInteractive(text string) map[string]bool {
	kinds := make(map[string]bool)
	scanInteractive(text, kinds)
	return kinds
}

func scanInteractive(text string, into map[string]bool) {
	for _, m := range interactiveRe.FindAllStringSubmatch(text, -1) {
		k := m[1]
		if k == "" {
			k = "options"
		}
		into[strings.ToLower(k)] = true
	}
}
