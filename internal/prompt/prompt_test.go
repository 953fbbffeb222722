package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ginjaninja78/journal-csv-converter/internal/journal"
	"github.com/ginjaninja78/journal-csv-converter/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *source.Table {
	return source.NewTable("取引",
		[]string{"日付", "取引内容", "金額", "科目", "相手科目"},
		[][]string{
			{"2025-11-01", "商品売上", "110000", "売上高", "現金"},
			{"2025-11-02", "消耗品購入", "5500", "消耗品費", "現金"},
			{"2025-11-05", "オフィス家賃支払", "150000", "地代家賃", "普通預金"},
			{"2025-11-08", "通信費支払", "12100", "通信費", "普通預金"},
			{"2025-11-10", "コンサルティング売上", "220000", "売上高", "売掛金"},
		})
}

func wideTable(rows int) *source.Table {
	data := make([][]string, rows)
	for i := range data {
		data[i] = []string{fmt.Sprintf("2025-11-%02d", i%28+1), "行\n内容", fmt.Sprintf("end-%d", i)}
	}
	return source.NewTable("big", []string{"日付", "内容", "tail"}, data)
}

func TestBuildIncludesInstructionsAndAllRows(t *testing.T) {
	p := Build(sampleTable(), DefaultMaxRows)

	for _, c := range journal.Columns() {
		assert.Contains(t, p, "- "+c.Name+": "+c.Rule)
	}
	assert.Contains(t, p, "YYYYMMDD")
	assert.Contains(t, p, "借方と貸方の金額は必ず一致させる")
	assert.Contains(t, p, "CSVのヘッダー行も出力する")
	assert.Contains(t, p, "説明文は不要")

	for _, desc := range []string{"商品売上", "消耗品購入", "オフィス家賃支払", "通信費支払", "コンサルティング売上"} {
		assert.Contains(t, p, desc)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	assert.Equal(t, Build(sampleTable(), 3), Build(sampleTable(), 3))
}

func TestRenderTableCapsRowsWithoutSplittingThem(t *testing.T) {
	rendered := RenderTable(wideTable(80), 50)
	lines := strings.Split(rendered, "\n")

	require.Len(t, lines, 51, "header plus capped rows")
	for i, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, fmt.Sprintf("%d ", i)), line)
		assert.True(t, strings.HasSuffix(line, fmt.Sprintf("end-%d", i)), line)
	}
	assert.NotContains(t, rendered, "end-50")
}

func TestRenderTableDefaultsCap(t *testing.T) {
	lines := strings.Split(RenderTable(wideTable(60), 0), "\n")
	assert.Len(t, lines, DefaultMaxRows+1)
}

func TestRowLimit(t *testing.T) {
	assert.Equal(t, DefaultMaxRows, RowLimit(0))
	assert.Equal(t, DefaultMaxRows, RowLimit(-3))
	assert.Equal(t, 7, RowLimit(7))
}

func TestRenderTableAlignsWideCharacters(t *testing.T) {
	table := source.NewTable("t", []string{"科目", "x"}, [][]string{{"売上高", "1"}, {"ab", "2"}})
	lines := strings.Split(RenderTable(table, 10), "\n")
	require.Len(t, lines, 3)

	// "売上高" is six cells wide, so "ab" is padded with four spaces.
	assert.Equal(t, "0  売上高  1", lines[1])
	assert.Equal(t, "1  ab      2", lines[2])
}

func TestRenderTableEmpty(t *testing.T) {
	assert.Equal(t, "(empty table)", RenderTable(&source.Table{Name: "x"}, 5))

	rendered := RenderTable(source.NewTable("t", []string{"a"}, nil), 5)
	assert.True(t, strings.HasSuffix(rendered, "(no rows)"))
}
