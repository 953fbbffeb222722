// =============================================================================
// Journal CSV Converter - CSV Source Reader
// =============================================================================
//
// This module reads transaction data that arrives as a CSV file instead of a
// workbook. It produces the same source.Table the XLSX reader does, so the
// rest of the pipeline does not care which format the user supplied.
//
// FEATURES:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Multi-line headers, merged into one header per column
//   - UTF-8 or Shift_JIS input (the encoding most Japanese tools export)
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/journal-csv-converter/internal/config"
	"github.com/ginjaninja78/journal-csv-converter/internal/source"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// utf8BOM is stripped from the start of UTF-8 input.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns it as a source table named after the
// file.
func Parse(filePath string, settings config.CSVSettings) (*source.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, &source.InputFormatError{Path: filePath, Reason: "failed to open file", Err: err}
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	return Read(file, name, settings)
}

// Read parses CSV data from r.
//
// PARSING PROCESS:
//   1. Decode the input if it is not UTF-8
//   2. Configure the CSV reader with the specified delimiter
//   3. Read and merge header rows (for multi-line headers)
//   4. Convert each remaining non-empty row to a typed source row
func Read(r io.Reader, name string, settings config.CSVSettings) (*source.Table, error) {
	var reader io.Reader = bufio.NewReader(r)
	if settings.IsShiftJIS() {
		reader = transform.NewReader(reader, japanese.ShiftJIS.NewDecoder())
	} else {
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, &source.InputFormatError{Path: name, Reason: "failed to read input", Err: err}
		}
		reader = bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, &source.InputFormatError{Path: name, Reason: "failed to read CSV", Err: err}
	}

	if len(allRows) == 0 {
		return nil, &source.InputFormatError{Path: name, Reason: "CSV file is empty"}
	}

	headers, err := extractHeaders(allRows, settings)
	if err != nil {
		return nil, &source.InputFormatError{Path: name, Reason: "failed to extract headers", Err: err}
	}

	return source.NewTable(name, headers, allRows[headerRowCount(settings):]), nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	// Handle special cases for common delimiters.
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Source exports are rarely rectangular.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

func headerRowCount(settings config.CSVSettings) int {
	if settings.HeaderRows <= 0 {
		return 1
	}
	return settings.HeaderRows
}

// extractHeaders extracts and merges headers from the CSV.
//
// MULTI-LINE HEADER HANDLING:
//   Some CSV files have headers that span multiple rows. This function
//   merges them into a single set of headers.
//
//   Example:
//   Row 1: "取引", "", "金額", ""
//   Row 2: "日付", "内容", "税込", "税額"
//   Result: "取引 日付", "内容", "金額 税込", "税額"
func extractHeaders(allRows [][]string, settings config.CSVSettings) ([]string, error) {
	headerRows := headerRowCount(settings)

	if len(allRows) < headerRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	if headerRows == 1 {
		return allRows[0], nil
	}

	// Determine the maximum number of columns.
	maxCols := 0
	for i := 0; i < headerRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string

		for row := 0; row < headerRows; row++ {
			if col < len(allRows[row]) {
				value := strings.TrimSpace(allRows[row][col])
				if value != "" {
					parts = append(parts, value)
				}
			}
		}

		headers[col] = strings.Join(parts, " ")
	}

	return headers, nil
}
