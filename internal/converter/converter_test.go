package converter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/journal-csv-converter/internal/config"
	"github.com/ginjaninja78/journal-csv-converter/internal/exporter"
	"github.com/ginjaninja78/journal-csv-converter/internal/journal"
	"github.com/ginjaninja78/journal-csv-converter/internal/llm"
	"github.com/ginjaninja78/journal-csv-converter/internal/prompt"
	"github.com/ginjaninja78/journal-csv-converter/internal/responseparser"
	"github.com/ginjaninja78/journal-csv-converter/internal/source"
	"github.com/ginjaninja78/journal-csv-converter/internal/store"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var sourceRows = [][]string{
	{"2025-11-01", "商品売上", "110000", "現金", "売上高"},
	{"2025-11-02", "消耗品購入", "5500", "消耗品費", "現金"},
	{"2025-11-05", "オフィス家賃支払", "150000", "地代家賃", "普通預金"},
	{"2025-11-08", "通信費支払", "12100", "通信費", "普通預金"},
	{"2025-11-10", "コンサルティング売上", "220000", "売掛金", "売上高"},
}

var journalRows = []string{
	"20251101,1,,,111,現金,,,0,0,110000,0,,,811,売上高,,,10,0,110000,10000,商品売上",
	"20251102,2,,,741,消耗品費,,,10,0,5500,500,,,111,現金,,,0,0,5500,0,消耗品購入",
	"20251105,3,,,751,地代家賃,,,0,0,150000,0,,,131,普通預金,,,0,0,150000,0,オフィス家賃支払",
	"20251108,4,,,744,通信費,,,10,0,12100,1100,,,131,普通預金,,,0,0,12100,0,通信費支払",
	"20251110,5,,,135,売掛金,,,0,0,220000,0,,,811,売上高,,,10,0,220000,20000,コンサルティング売上",
}

func sourceTable() *source.Table {
	return source.NewTable("取引", []string{"日付", "取引内容", "金額", "借方科目", "貸方科目"}, sourceRows)
}

func modelResponse(rows ...string) string {
	return "```csv\n" + strings.Join(journal.Header(), ",") + "\n" + strings.Join(rows, "\n") + "\n```"
}

func testConfig(t *testing.T) *config.MainConfig {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	return cfg
}

func TestConvert_FiveRowScenario(t *testing.T) {
	var got llm.Request
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		got = req
		return modelResponse(journalRows...), nil
	})

	wc := store.New()
	conv := New(testConfig(t), client, wc, nil)

	result, err := conv.Convert(context.Background(), sourceTable())
	require.NoError(t, err)

	// Prompt carries every source row and the schema instructions.
	for _, row := range sourceRows {
		assert.Contains(t, got.Prompt, row[1])
	}
	for _, name := range journal.Header() {
		assert.Contains(t, got.Prompt, name)
	}
	assert.Equal(t, config.DefaultModel, got.Model)
	assert.Equal(t, config.DefaultTemperature, got.Temperature)
	assert.NotEmpty(t, got.System)

	require.Len(t, result.Table, 5)
	assert.Equal(t, 5, result.Stats.SourceRows)
	assert.Equal(t, 5, result.Stats.PromptRows)
	assert.True(t, result.Validation.IsValid)
	assert.Equal(t, store.StateReady, wc.State())

	stored, ok := wc.Get()
	require.True(t, ok)
	assert.Equal(t, result.Table.Records(), stored.Records())

	// Export decodes back to the same five rows.
	_, data, err := conv.Export(false, time.Now())
	require.NoError(t, err)
	decoded, err := exporter.Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(stored.Records(), decoded.Records()); diff != "" {
		t.Errorf("export mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, store.StateExported, wc.State())
}

func TestConvert_FailureKeepsWorkingCopy(t *testing.T) {
	responses := []string{modelResponse(journalRows...)}
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		if len(responses) == 0 {
			return "", &llm.AuthenticationError{Provider: "openai", StatusCode: 401, Message: "invalid key"}
		}
		r := responses[0]
		responses = responses[1:]
		return r, nil
	})

	wc := store.New()
	conv := New(testConfig(t), client, wc, nil)

	_, err := conv.Convert(context.Background(), sourceTable())
	require.NoError(t, err)
	before, _ := wc.Get()

	_, err = conv.Convert(context.Background(), sourceTable())
	var authErr *llm.AuthenticationError
	require.ErrorAs(t, err, &authErr)

	after, ok := wc.Get()
	require.True(t, ok)
	assert.Equal(t, before.Records(), after.Records())
	assert.Equal(t, store.StateReady, wc.State())
}

func TestConvert_ParseErrorOnFirstRun(t *testing.T) {
	header := journal.Header()[:21]
	raw := "```csv\n" + strings.Join(header, ",") + "\n```"
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return raw, nil
	})

	wc := store.New()
	conv := New(testConfig(t), client, wc, nil)

	_, err := conv.Convert(context.Background(), sourceTable())
	var parseErr *responseparser.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, raw, parseErr.Raw)

	_, ok := wc.Get()
	assert.False(t, ok)
	assert.Equal(t, store.StateEmpty, wc.State())
}

func TestConvert_ShortResponseKeepsWorkingCopy(t *testing.T) {
	short := make([]string, len(journalRows))
	for i, row := range journalRows {
		fields := strings.Split(row, ",")
		short[i] = strings.Join(fields[:21], ",")
	}
	shortResponse := "```csv\n" + strings.Join(journal.Header()[:21], ",") + "\n" + strings.Join(short, "\n") + "\n```"

	responses := []string{modelResponse(journalRows...), shortResponse}
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		r := responses[0]
		responses = responses[1:]
		return r, nil
	})

	wc := store.New()
	conv := New(testConfig(t), client, wc, nil)

	_, err := conv.Convert(context.Background(), sourceTable())
	require.NoError(t, err)
	before, _ := wc.Get()

	_, err = conv.Convert(context.Background(), sourceTable())
	var parseErr *responseparser.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, shortResponse, parseErr.Raw)
	assert.Equal(t, 1, parseErr.Line)

	after, ok := wc.Get()
	require.True(t, ok)
	assert.Equal(t, before.Records(), after.Records())
	assert.Equal(t, store.StateReady, wc.State())
}

func TestConvert_AppliesTimeout(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		<-ctx.Done()
		return "", &llm.TransportError{Provider: "test", Err: ctx.Err()}
	})

	cfg := testConfig(t)
	cfg.LLM.Timeout = 10 * time.Millisecond
	conv := New(cfg, client, store.New(), nil)

	_, err := conv.Convert(context.Background(), sourceTable())
	var transportErr *llm.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConvert_CapsPromptRows(t *testing.T) {
	data := make([][]string, 80)
	for i := range data {
		data[i] = []string{"2025-11-01", "row", "100", "現金", "売上高"}
	}
	table := source.NewTable("big", []string{"日付", "取引内容", "金額", "借方科目", "貸方科目"}, data)

	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return modelResponse(journalRows[0]), nil
	})
	result, err := New(testConfig(t), client, store.New(), nil).Convert(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, 80, result.Stats.SourceRows)
	assert.Equal(t, config.DefaultMaxRows, result.Stats.PromptRows)
}

func TestConvert_NonPositiveRowCapUsesDefault(t *testing.T) {
	data := make([][]string, 80)
	for i := range data {
		data[i] = []string{"2025-11-01", "row", "100", "現金", "売上高"}
	}
	table := source.NewTable("big", []string{"日付", "取引内容", "金額", "借方科目", "貸方科目"}, data)

	for _, maxRows := range []int{0, -1} {
		var got llm.Request
		client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
			got = req
			return modelResponse(journalRows[0]), nil
		})
		cfg := testConfig(t)
		cfg.Prompt.MaxRows = maxRows

		result, err := New(cfg, client, store.New(), nil).Convert(context.Background(), table)
		require.NoError(t, err)
		assert.Equal(t, prompt.DefaultMaxRows, result.Stats.PromptRows)
		assert.Contains(t, got.Prompt, "\n49  ")
		assert.NotContains(t, got.Prompt, "\n50  ")
	}
}

func TestConvert_RejectsEmptyTable(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		t.Fatal("model must not be called")
		return "", nil
	})
	_, err := New(testConfig(t), client, store.New(), nil).Convert(context.Background(), &source.Table{Name: "empty"})
	var inputErr *source.InputFormatError
	assert.ErrorAs(t, err, &inputErr)
}

func TestExport_StrictRejectsUnbalanced(t *testing.T) {
	unbalanced := strings.Replace(journalRows[0], ",110000,10000,", ",100000,10000,", 1)
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return modelResponse(unbalanced), nil
	})

	conv := New(testConfig(t), client, store.New(), nil)
	result, err := conv.Convert(context.Background(), sourceTable())
	require.NoError(t, err)
	assert.False(t, result.Validation.IsValid)
	assert.Equal(t, 1, result.Validation.ErrorCount)

	_, _, err = conv.Export(true, time.Now())
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, _, err = conv.Export(false, time.Now())
	assert.NoError(t, err)
}

func TestExportToFile(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return modelResponse(journalRows...), nil
	})
	cfg := testConfig(t)
	conv := New(cfg, client, store.New(), nil)

	_, err := conv.ExportToFile(false)
	assert.ErrorIs(t, err, store.ErrNoWorkingCopy)

	_, err = conv.Convert(context.Background(), sourceTable())
	require.NoError(t, err)

	path, err := conv.ExportToFile(false)
	require.NoError(t, err)
	assert.Equal(t, cfg.OutputDir, filepath.Dir(path))
	assert.Regexp(t, `^kaikei_journal_\d{8}_\d{6}\.csv$`, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	decoded, err := exporter.Decode(data)
	require.NoError(t, err)
	assert.Len(t, decoded, 5)
}

func TestLoadSource(t *testing.T) {
	dir := t.TempDir()

	xlsxPath := filepath.Join(dir, "book.xlsx")
	f := excelize.NewFile()
	_, err := f.NewSheet("取引")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("取引", "A1", &[]string{"日付", "取引内容", "金額"}))
	require.NoError(t, f.SetSheetRow("取引", "A2", &[]interface{}{"2025-11-01", "商品売上", 110000}))
	require.NoError(t, f.SaveAs(xlsxPath))
	require.NoError(t, f.Close())

	table, err := LoadSource(xlsxPath, "", config.Default().CSVSettings)
	require.NoError(t, err)
	assert.Equal(t, "取引", table.Name)
	assert.Equal(t, 1, table.RowCount())

	_, err = LoadSource(xlsxPath, "missing", config.Default().CSVSettings)
	var inputErr *source.InputFormatError
	assert.ErrorAs(t, err, &inputErr)

	csvPath := filepath.Join(dir, "ledger.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("日付,金額\n2025-11-01,100\n"), 0644))
	table, err = LoadSource(csvPath, "", config.Default().CSVSettings)
	require.NoError(t, err)
	assert.Equal(t, "ledger", table.Name)
	assert.Equal(t, []string{"日付", "金額"}, table.Columns)

	_, err = LoadSource(filepath.Join(dir, "old.xls"), "", config.Default().CSVSettings)
	assert.ErrorAs(t, err, &inputErr)
}
