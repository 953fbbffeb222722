// =============================================================================
// Journal CSV Converter - Source Tables
// =============================================================================
//
// A source table is the free-form transaction data a user uploads: an
// ordered list of rows, each mapping a column header to a scalar value.
// Tables are produced by the input adapters (xlsxparser, csvparser) and are
// read-only to the rest of the pipeline.
//
// =============================================================================

package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the scalar type of a cell.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindDate
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	}
	return "empty"
}

// Value is a single typed cell.
type Value struct {
	Kind   Kind
	Text   string
	Number float64
	Date   time.Time
}

// dateLayouts are the renderings spreadsheets commonly produce for dates,
// including excelize's default for the built-in "mm-dd-yy" format.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006/1/2",
	"2006/01/02 15:04:05",
	"2006年1月2日",
	"01-02-06",
	"1/2/06",
	"1/2/06 15:04",
}

// Infer types a rendered cell.
func Infer(text string) Value {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Value{Kind: KindEmpty}
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Value{Kind: KindNumber, Text: trimmed, Number: n}
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, trimmed); err == nil {
			return Value{Kind: KindDate, Text: trimmed, Date: d}
		}
	}
	return Value{Kind: KindText, Text: text}
}

// String renders the value for display. Dates are normalised to ISO form
// and numbers drop a trailing ".0".
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindDate:
		if v.Date.Hour() == 0 && v.Date.Minute() == 0 && v.Date.Second() == 0 {
			return v.Date.Format("2006-01-02")
		}
		return v.Date.Format("2006-01-02 15:04:05")
	case KindText:
		return v.Text
	}
	return ""
}

// Row maps a column header to its cell.
type Row map[string]Value

// Table is a named sheet of rows with an ordered header.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int {
	return len(t.Columns)
}

// Head returns at most n rows from the top of the table.
func (t *Table) Head(n int) []Row {
	if n < 0 || n >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[:n]
}

// NewTable builds a table from a header row and raw data rows. Empty
// header cells are named Column_N and fully empty rows are dropped.
func NewTable(name string, header []string, data [][]string) *Table {
	columns := CleanHeaders(header)
	table := &Table{Name: name, Columns: columns, Rows: make([]Row, 0, len(data))}

	for _, raw := range data {
		if IsRowEmpty(raw) {
			continue
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(raw) {
				row[col] = Infer(raw[i])
			} else {
				row[col] = Value{Kind: KindEmpty}
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// CleanHeaders trims header cells, names blank ones by position, and
// disambiguates duplicates with a numeric suffix.
func CleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	seen := make(map[string]int, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		if n := seen[header]; n > 0 {
			seen[header] = n + 1
			header = fmt.Sprintf("%s.%d", header, n)
		} else {
			seen[header] = 1
		}
		cleaned[i] = header
	}
	return cleaned
}

// IsRowEmpty checks if a row contains only empty values.
func IsRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// ERRORS
// =============================================================================

// InputFormatError reports a workbook or file the adapters cannot read.
type InputFormatError struct {
	Path   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *InputFormatError) Error() string {
	msg := fmt.Sprintf("cannot read input %q: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *InputFormatError) Unwrap() error {
	return e.Err
}
