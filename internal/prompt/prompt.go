// =============================================================================
// Journal CSV Converter - Prompt Builder
// =============================================================================
//
// The prompt has two parts: a fixed instruction block describing every
// journal column and its formatting rules, and a plain-text rendering of a
// bounded sample of the source table. Building a prompt has no side effects
// and the same table and row cap always produce the same text.
//
// =============================================================================

package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/journal-csv-converter/internal/journal"
	"github.com/ginjaninja78/journal-csv-converter/internal/source"
	"github.com/mattn/go-runewidth"
)

// DefaultMaxRows is the row cap used when the caller passes a non-positive cap.
const DefaultMaxRows = 50

// SystemInstruction is sent as the system message of every conversion request.
const SystemInstruction = "あなたは会計データ変換の専門家です。Excelデータを会計王の仕訳データ形式に正確に変換してください。"

const instructionTemplate = `
以下のExcelデータを、会計王の仕訳データ受入形式のCSVに変換してください。

【Excelデータ】
%s

【出力形式】
以下の列を持つCSV形式で出力してください:
%s

【注意事項】
1. 日付がある場合はYYYYMMDD形式に変換
2. 金額は数値のみにして、カンマや円マークは除去
3. 借方と貸方の金額は必ず一致させる
4. CSVのヘッダー行も出力する
5. 出力はCSV形式のテキストのみで、説明文は不要

上記データを変換してCSVテキストを出力してください。
`

// columnSpec is the column list section of the instructions. It is derived
// from the journal layout so the prompt and the parser cannot drift apart.
var columnSpec = func() string {
	var b strings.Builder
	for i, c := range journal.Columns() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s", c.Name, c.Rule)
	}
	return b.String()
}()

// RowLimit returns the number of rows a prompt built with maxRows carries
// at most.
func RowLimit(maxRows int) int {
	if maxRows <= 0 {
		return DefaultMaxRows
	}
	return maxRows
}

// Build returns the conversion prompt for table, embedding at most maxRows
// rows.
func Build(table *source.Table, maxRows int) string {
	return fmt.Sprintf(instructionTemplate, RenderTable(table, maxRows), columnSpec)
}

// RenderTable renders at most maxRows rows of table as aligned text, one
// line per row, preceded by a header line. The leftmost column is the
// zero-based row index.
func RenderTable(table *source.Table, maxRows int) string {
	maxRows = RowLimit(maxRows)
	if table == nil || len(table.Columns) == 0 {
		return "(empty table)"
	}

	rows := table.Head(maxRows)

	// cells[0] is the header line; column 0 is the index.
	cells := make([][]string, 0, len(rows)+1)
	header := append([]string{""}, table.Columns...)
	cells = append(cells, sanitize(header))
	for i, row := range rows {
		line := make([]string, 0, len(table.Columns)+1)
		line = append(line, strconv.Itoa(i))
		for _, col := range table.Columns {
			line = append(line, row[col].String())
		}
		cells = append(cells, sanitize(line))
	}

	widths := make([]int, len(header))
	for _, line := range cells {
		for j, cell := range line {
			if w := runewidth.StringWidth(cell); w > widths[j] {
				widths[j] = w
			}
		}
	}

	var b strings.Builder
	for i, line := range cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, cell := range line {
			if j > 0 {
				b.WriteString("  ")
			}
			if j == len(line)-1 {
				b.WriteString(cell)
				continue
			}
			b.WriteString(runewidth.FillRight(cell, widths[j]))
		}
	}

	if len(rows) == 0 {
		b.WriteString("\n(no rows)")
	}
	return b.String()
}

// sanitize keeps every cell on one line so a row is never split.
func sanitize(cells []string) []string {
	for i, c := range cells {
		if strings.ContainsAny(c, "\r\n\t") {
			c = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(c)
		}
		cells[i] = c
	}
	return cells
}
