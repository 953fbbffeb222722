// =============================================================================
// Journal CSV Converter - Exporter
// =============================================================================
//
// The exporter produces the file the accounting product imports: a header
// row followed by one comma-separated record per entry, CRLF line endings,
// encoded as Shift_JIS.
//
// ENCODING:
//   Shift_JIS cannot represent every Unicode character (emoji, many
//   symbols, some rare kanji). A field containing such a character fails
//   the export with an EncodingError naming the row, column and character.
//   Characters are never replaced with "?" or dropped.
//
// =============================================================================

package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/ginjaninja78/journal-csv-converter/internal/journal"
	"github.com/ginjaninja78/journal-csv-converter/internal/responseparser"
	"github.com/ginjaninja78/journal-csv-converter/pkg/utils"
	"golang.org/x/text/encoding/japanese"
)

// EncodingName names the export encoding in messages and headers.
const EncodingName = "Shift_JIS"

// DefaultFileNamePattern is the export file name pattern.
const DefaultFileNamePattern = "kaikei_journal_{timestamp}.csv"

// EncodingError reports a character that Shift_JIS cannot represent.
// Row is the 0-based entry index.
type EncodingError struct {
	Row    int
	Column string
	Value  string
	Rune   rune
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("row %d, column %s: character %q (U+%04X) cannot be encoded as %s",
		e.Row, e.Column, e.Rune, e.Rune, EncodingName)
}

// Export returns the table as Shift_JIS encoded CSV.
func Export(table journal.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes the table as Shift_JIS encoded CSV to w. Nothing is written
// when a field cannot be encoded.
func Write(w io.Writer, table journal.Table) error {
	records := table.Records()
	header := records[0]

	for i, record := range records[1:] {
		for col, value := range record {
			if r, ok := unencodable(value); ok {
				return &EncodingError{Row: i, Column: header[col], Value: value, Rune: r}
			}
		}
	}

	var text bytes.Buffer
	writer := csv.NewWriter(&text)
	writer.UseCRLF = true
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}

	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes(text.Bytes())
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// unencodable returns the first rune of s that Shift_JIS cannot represent.
func unencodable(s string) (rune, bool) {
	encoder := japanese.ShiftJIS.NewEncoder()
	if _, err := encoder.String(s); err == nil {
		return 0, false
	}
	for _, r := range s {
		encoder.Reset()
		if _, err := encoder.String(string(r)); err != nil {
			return r, true
		}
	}
	return 0, false
}

// Decode reads an exported file back into a table.
func Decode(data []byte) (journal.Table, error) {
	text, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", EncodingName, err)
	}
	return responseparser.ParseText(string(text))
}

// FileName returns the export file name for the pattern at now. An empty
// pattern uses DefaultFileNamePattern.
func FileName(pattern string, now time.Time) string {
	if pattern == "" {
		pattern = DefaultFileNamePattern
	}
	return utils.GenerateOutputFileName(pattern, ".csv", now, nil)
}
