package exporter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/journal-csv-converter/internal/journal"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

func makeEntry(day, number int, debitCode, debitName, creditCode, creditName string, amount int64, desc string) journal.Entry {
	return journal.Entry{
		VoucherDate:   time.Date(2025, 11, day, 0, 0, 0, 0, time.UTC),
		VoucherNumber: number,
		Debit: journal.Side{
			AccountCode: debitCode,
			AccountName: debitName,
			Amount:      decimal.NewFromInt(amount),
			TaxAmount:   decimal.Zero,
		},
		Credit: journal.Side{
			AccountCode: creditCode,
			AccountName: creditName,
			TaxCategory: journal.TaxCategoryTaxable,
			Amount:      decimal.NewFromInt(amount),
			TaxAmount:   decimal.NewFromInt(amount / 11),
		},
		Description: desc,
	}
}

func fiveRowTable() journal.Table {
	return journal.Table{
		makeEntry(1, 1, "111", "現金", "811", "売上高", 110000, "商品売上"),
		makeEntry(2, 2, "741", "消耗品費", "111", "現金", 5500, "消耗品購入"),
		makeEntry(5, 3, "751", "地代家賃", "131", "普通預金", 150000, "オフィス家賃支払"),
		makeEntry(8, 4, "744", "通信費", "131", "普通預金", 12100, "通信費支払"),
		makeEntry(10, 5, "135", "売掛金", "811", "売上高", 220000, "ｺﾝｻﾙﾃｨﾝｸﾞ売上, A社"),
	}
}

func TestExportRoundTrip(t *testing.T) {
	table := fiveRowTable()

	data, err := Export(table)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded, 5)

	if diff := cmp.Diff(table.Records(), decoded.Records()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, table.Totals().Debit.Equal(decoded.Totals().Debit))
}

func TestExportFormat(t *testing.T) {
	data, err := Export(fiveRowTable())
	require.NoError(t, err)

	assert.False(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}), "no UTF-8 BOM")

	text, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(text), "\r\n"), "\r\n")
	require.Len(t, lines, 6)
	assert.Equal(t, strings.Join(journal.Header(), ","), lines[0])
	assert.Equal(t, "20251101,1,,,111,現金,,,0,0,110000,0,,,811,売上高,,,10,0,110000,10000,商品売上", lines[1])
	assert.True(t, strings.HasSuffix(lines[5], `"ｺﾝｻﾙﾃｨﾝｸﾞ売上, A社"`))

	// 現 is 0x8CBB in Shift_JIS.
	assert.True(t, bytes.Contains(data, []byte{0x8C, 0xBB}))
}

func TestExportEmptyTable(t *testing.T) {
	data, err := Export(journal.Table{})
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestExportRejectsUnencodableCharacters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *journal.Entry)
		column string
		r      rune
	}{
		{"emoji in description", func(e *journal.Entry) { e.Description = "寿司🍣代" }, "摘要", '🍣'},
		{"hangul account name", func(e *journal.Entry) { e.Credit.AccountName = "매출" }, "貸方科目名", '매'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := fiveRowTable()
			tt.mutate(&table[3])

			var buf bytes.Buffer
			err := Write(&buf, table)

			var encErr *EncodingError
			require.ErrorAs(t, err, &encErr)
			assert.Equal(t, 3, encErr.Row)
			assert.Equal(t, tt.column, encErr.Column)
			assert.Equal(t, tt.r, encErr.Rune)
			assert.Zero(t, buf.Len(), "nothing written")
		})
	}
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, 11, 10, 9, 30, 15, 0, time.UTC)
	assert.Equal(t, "kaikei_journal_20251110_093015.csv", FileName("", now))
	assert.Equal(t, "export_20251110.csv", FileName("export_{date}", now))

	later := FileName("", now.Add(time.Second))
	assert.NotEqual(t, FileName("", now), later)
}

func TestExportUndatedRowDecodes(t *testing.T) {
	table := fiveRowTable()
	table[1].VoucherDate = time.Time{}

	data, err := Export(table)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded, 5)
	assert.True(t, decoded[1].VoucherDate.IsZero())
	assert.Equal(t, table.Records(), decoded.Records())
}
