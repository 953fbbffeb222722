package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOutputFileName(t *testing.T) {
	now := time.Date(2025, 11, 10, 9, 30, 15, 0, time.Local)

	tests := []struct {
		name   string
		format string
		ext    string
		params map[string]string
		want   string
	}{
		{"default pattern", "kaikei_journal_{timestamp}.csv", ".csv", nil, "kaikei_journal_20251110_093015.csv"},
		{"extension appended", "journal_{date}", ".csv", nil, "journal_20251110.csv"},
		{"extension case insensitive", "JOURNAL_{time}.CSV", ".csv", nil, "JOURNAL_093015.CSV"},
		{"custom params", "{sheet}_{date}", ".csv", map[string]string{"sheet": "取引"}, "取引_20251110.csv"},
		{"no extension", "log_{date}", "", nil, "log_20251110"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateOutputFileName(tt.format, tt.ext, now, tt.params))
		})
	}

	got := GenerateOutputFileName("journal_{uuid}", ".csv", now, nil)
	assert.Regexp(t, regexp.MustCompile(`^journal_[0-9a-f-]{36}\.csv$`), got)
}

func TestWriteOutputNeverOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	fm := NewFileManager(dir)

	first, err := fm.WriteOutput("journal.csv", []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "journal.csv"), first)

	second, err := fm.WriteOutput("journal.csv", []byte("two"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "journal_1.csv"), second)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteErrorLog([]ErrorLogEntry{{
		Timestamp:    time.Now(),
		FileName:     "取引.xlsx",
		ErrorType:    "ParseError",
		ErrorMessage: "expected 23 columns, got 21",
		RowNumber:    2,
		Detail:       "```csv\n伝票日付\n```",
	}}, dir)
	require.NoError(t, err)
	require.True(t, FileExists(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Total Errors: 1")
	assert.Contains(t, content, "Error Type:     ParseError")
	assert.Contains(t, content, "Row Number:     2")
	assert.Contains(t, content, "    伝票日付\n")
}
