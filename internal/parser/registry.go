package parser

import (
	"sort"

	"blockstream/internal/blocks"
)

// Register deduplicates markers by start offset (first seen wins), sorts
// them by start, and drops any marker that begins inside an earlier one.
func Register(markers []blocks.Marker) []blocks.Marker {
	seen := make(map[int]bool, len(markers))
	uniq := make([]blocks.Marker, 0, len(markers))
	for _, m := range markers {
		if seen[m.Start] {
			continue
		}
		seen[m.Start] = true
		uniq = append(uniq, m)
	}

	sort.SliceStable(uniq, func(i, j int) bool {
		return uniq[i].Start < uniq[j].Start
	})

	out := uniq[:0]
	end := -1
	for _, m := range uniq {
		if m.Start < end {
			continue
		}
		out = append(out, m)
		end = m.End
	}
	return out
}
