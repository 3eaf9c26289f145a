package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockstream/internal/blocks"
)

func TestFindTables(t *testing.T) {
	buf := "Intro\n| Name | Qty |\n|:-----|----:|\n| a | 1 |\n| b | 2 |\nAfter"
	got := FindTables(buf)
	require.Len(t, got, 1)

	assert.Equal(t, blocks.Table{
		Headers: []string{"Name", "Qty"},
		Rows:    [][]string{{"a", "1"}, {"b", "2"}},
	}, got[0].Table)
	assert.Equal(t, len("Intro\n"), got[0].Start)
	assert.Equal(t, "After", buf[got[0].End:])
}

func TestFindTablesRejects(t *testing.T) {
	tests := map[string]string{
		"bad separator":   "|a|b|\n|x|y|\n|1|2|",
		"no data rows":    "|a|b|\n|-|-|\n",
		"no dash":         "|a|b|\n|:|:|\n|1|2|",
		"only empty rows": "|a|b|\n|-|-|\n| | |",
		"inside fence":    "```\n|a|b|\n|-|-|\n|1|2|\n```",
		"not a row":       "a|b\n-|-\n1|2",
	}
	for name, buf := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, FindTables(buf))
		})
	}
}

func TestFindTablesTwo(t *testing.T) {
	buf := "|a|\n|-|\n|1|\n\ntext\n\n|b|\n|-|\n|2|\n"
	got := FindTables(buf)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a"}, got[0].Table.Headers)
	assert.Equal(t, []string{"b"}, got[1].Table.Headers)
	assert.Equal(t, len(buf), got[1].End)
}

func TestFindTablesDropsEmptyRows(t *testing.T) {
	got := FindTables("|a|b|\n|-|-|\n|1|2|\n| | |\n|3|4|")
	require.Len(t, got, 1)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, got[0].Table.Rows)
}
