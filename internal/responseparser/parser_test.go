package responseparser

import (
	"strings"
	"testing"

	"github.com/ginjaninja78/journal-csv-converter/internal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleRows = []string{
	"20251101,1,,,111,現金,,,0,0,110000,0,,,811,売上高,,,10,0,110000,10000,商品売上",
	"20251102,2,,,741,消耗品費,,,10,0,5500,500,,,111,現金,,,0,0,5500,0,消耗品購入",
	"20251105,3,,,751,地代家賃,,,0,0,150000,0,,,131,普通預金,,,0,0,150000,0,オフィス家賃支払",
}

func sampleCSV() string {
	return strings.Join(journal.Header(), ",") + "\n" + strings.Join(sampleRows, "\n") + "\n"
}

func TestExtractPayload(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"bare", "  a,b\n1,2\n", "a,b\n1,2"},
		{"fenced with tag", "Here you go:\n```csv\na,b\n1,2\n```\nThanks", "a,b\n1,2"},
		{"fenced without tag", "```\na,b\n1,2\n```", "a,b\n1,2"},
		{"unclosed fence", "```csv\na,b\n1,2\n", "a,b\n1,2"},
		{"header on fence line", "```a,b\n1,2```", "a,b\n1,2"},
		{"tag then header on one line", "```csv 伝票日付,伝票番号\n20251101,1\n```", "伝票日付,伝票番号\n20251101,1"},
		{"tag with trailing space", "```csv \na,b\n```", "a,b"},
		{"alias header is not a tag", "```voucher_date,voucher_number\n20251101,1```", "voucher_date,voucher_number\n20251101,1"},
		{"only first block", "```csv\na\n```\n```csv\nb\n```", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPayload(tt.response))
		})
	}
}

func TestParse_TagOnHeaderLine(t *testing.T) {
	table, err := Parse("```csv " + sampleCSV() + "```")
	require.NoError(t, err)
	assert.Len(t, table, 3)
}

func TestParse_FencedResponse(t *testing.T) {
	table, err := Parse("```csv\n" + sampleCSV() + "```")
	require.NoError(t, err)
	require.Len(t, table, 3)

	first := table[0]
	assert.Equal(t, "20251101", first.Field(journal.ColVoucherDate))
	assert.Equal(t, 1, first.VoucherNumber)
	assert.Equal(t, "現金", first.Debit.AccountName)
	assert.Equal(t, "811", first.Credit.AccountCode)
	assert.Equal(t, 10, first.Credit.TaxCategory)
	assert.Equal(t, "10000", first.Credit.TaxAmount.String())
	assert.Equal(t, "商品売上", first.Description)
	assert.True(t, first.Balanced())

	assert.Equal(t, "265500", table.Totals().Debit.String())
}

func TestParse_RoundTripsRecords(t *testing.T) {
	table, err := ParseText(sampleCSV())
	require.NoError(t, err)

	records := table.Records()
	require.Len(t, records, 4)
	assert.Equal(t, journal.Header(), records[0])
	for i, row := range sampleRows {
		assert.Equal(t, row, strings.Join(records[i+1], ","))
	}
}

func TestParse_ReorderedAndAliasedHeader(t *testing.T) {
	header := journal.Header()
	header[0], header[len(header)-1] = header[len(header)-1], "voucher_date"

	fields := strings.Split(sampleRows[0], ",")
	fields[0], fields[len(fields)-1] = fields[len(fields)-1], fields[0]

	table, err := ParseText(strings.Join(header, ",") + "\n" + strings.Join(fields, ","))
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "20251101", table[0].Field(journal.ColVoucherDate))
	assert.Equal(t, "商品売上", table[0].Description)
}

func TestParse_QuotedDescription(t *testing.T) {
	row := strings.Replace(sampleRows[0], "商品売上", `"商品売上, A社"`, 1)
	table, err := ParseText(strings.Join(journal.Header(), ",") + "\n" + row)
	require.NoError(t, err)
	assert.Equal(t, "商品売上, A社", table[0].Description)
}

func TestParse_Failures(t *testing.T) {
	header := strings.Join(journal.Header(), ",")
	shortHeader := strings.Join(journal.Header()[:21], ",")

	tests := []struct {
		name     string
		response string
		line     int
		reason   string
	}{
		{"empty", "```csv\n```", 0, "no data"},
		{"prose only", "申し訳ありませんが変換できません。", 1, "expected 23 columns"},
		{"missing columns", shortHeader + "\n" + strings.Join(strings.Split(sampleRows[0], ",")[:21], ","), 1, "expected 23 columns, got 21"},
		{"unknown column", strings.Replace(header, "摘要", "備考", 1), 1, "unknown column"},
		{"duplicate column", strings.Replace(header, "摘要", "伝票日付", 1), 1, "duplicate column"},
		{"short row", header + "\n" + sampleRows[0] + "\n20251102,2", 3, "expected 23 fields, got 2"},
		{"thousands separator", header + "\n" + strings.Replace(sampleRows[0], ",110000,0,,,811", `,"110,000",0,,,811`, 1), 2, "not a plain number"},
		{"bad date", header + "\n" + strings.Replace(sampleRows[0], "20251101", "2025/11/01", 1), 2, "YYYYMMDD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(tt.response)
			assert.Nil(t, table)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.response, parseErr.Raw)
			assert.Equal(t, tt.line, parseErr.Line)
			assert.Contains(t, parseErr.Reason, tt.reason)
		})
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	table, err := ParseText(strings.Join(journal.Header(), ","))
	require.NoError(t, err)
	assert.Empty(t, table)
}
