// =============================================================================
// Journal CSV Converter - Response Parser
// =============================================================================
//
// The model is asked for bare CSV but commonly wraps it in a markdown code
// fence, sometimes with a language tag. The parser extracts the payload,
// reads it as delimited text and maps each record onto a journal entry.
//
// Values are validated, never repaired: a malformed amount or date fails the
// whole response with a ParseError that carries the raw completion.
//
// =============================================================================

package responseparser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ginjaninja78/journal-csv-converter/internal/journal"
)

const fence = "```"

// ParseError reports a completion that could not be read as a journal
// table. Raw holds the unmodified completion; Line is the 1-based line of
// the extracted payload where the problem was found, or 0.
type ParseError struct {
	Raw    string
	Line   int
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to parse response at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("failed to parse response: %s", e.Reason)
}

// languageTag matches a tag such as "csv" directly after the opening fence,
// followed by a space or the end of the line.
var languageTag = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_+\-]*\s`)

// ExtractPayload returns the delimited text inside the first code fence of
// response, or the whole response when it has no fence. An unclosed fence
// runs to the end of the text. A language tag on the opening fence line is
// dropped, whether or not the header follows on the same line.
func ExtractPayload(response string) string {
	start := strings.Index(response, fence)
	if start < 0 {
		return strings.TrimSpace(response)
	}

	body := response[start+len(fence):]
	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}

	if tag := languageTag.FindString(body); tag != "" {
		body = body[len(tag):]
	}
	return strings.TrimSpace(body)
}

// Parse extracts the payload from a completion and parses it.
func Parse(response string) (journal.Table, error) {
	table, err := ParseText(ExtractPayload(response))
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			parseErr.Raw = response
		}
		return nil, err
	}
	return table, nil
}

// ParseText parses delimited text whose first record is the header. The
// header must name every journal column exactly once, in any order.
func ParseText(text string) (journal.Table, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Raw: text, Reason: "response contains no data"}
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, csvError(text, err)
	}
	columns, err := mapHeader(header)
	if err != nil {
		return nil, &ParseError{Raw: text, Line: 1, Reason: err.Error()}
	}

	table := journal.Table{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(text, err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}
		if len(record) != len(columns) {
			return nil, &ParseError{
				Raw:    text,
				Line:   line,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(columns), len(record)),
			}
		}

		var entry journal.Entry
		for i, value := range record {
			if err := entry.SetField(columns[i], value); err != nil {
				return nil, &ParseError{Raw: text, Line: line, Reason: err.Error()}
			}
		}
		table = append(table, entry)
	}
	return table, nil
}

// mapHeader resolves each header cell to a column.
func mapHeader(header []string) ([]journal.ColumnID, error) {
	if len(header) != journal.ColumnCount {
		return nil, fmt.Errorf("expected %d columns, got %d", journal.ColumnCount, len(header))
	}

	seen := make(map[journal.ColumnID]bool, len(header))
	columns := make([]journal.ColumnID, len(header))
	for i, name := range header {
		id, ok := journal.LookupColumn(name)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", strings.TrimSpace(name))
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate column %q", id.Name())
		}
		seen[id] = true
		columns[i] = id
	}
	return columns, nil
}

func csvError(text string, err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Raw: text, Line: csvErr.Line, Reason: csvErr.Err.Error()}
	}
	return &ParseError{Raw: text, Reason: err.Error()}
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
