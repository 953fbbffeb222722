// =============================================================================
// Journal CSV Converter - XLSX Workbook Reader
// =============================================================================
//
// This module loads an uploaded spreadsheet workbook into one source table per
// sheet. It is the input adapter for the conversion pipeline: the caller picks
// one of the returned tables and hands it to the prompt builder.
//
// SHEET LAYOUT:
//   The first non-empty row of a sheet is its header. Every following
//   non-empty row is a data row. Cells are typed by inspecting the value
//   excelize renders for them (text, number, or date).
//
//   | 日付       | 取引内容   | 金額   | 科目     | 相手科目 |
//   |------------|------------|--------|----------|----------|
//   | 2025-11-01 | 商品売上   | 110000 | 売上高   | 現金     |
//   | 2025-11-02 | 消耗品購入 | 5500   | 消耗品費 | 現金     |
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/journal-csv-converter/internal/source"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// WORKBOOK STRUCTURE
// =============================================================================

// Workbook is a loaded spreadsheet.
type Workbook struct {
	// Path is the file the workbook was read from, or the upload name.
	Path string

	// Sheets holds one table per worksheet, in workbook order.
	Sheets []*source.Table
}

// SheetInfo summarises a sheet for selection.
type SheetInfo struct {
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// supportedExtensions are the OOXML formats excelize can open. The legacy
// binary .xls format is not among them.
var supportedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Open reads the workbook at path.
func Open(path string) (*Workbook, error) {
	if err := checkExtension(path); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &source.InputFormatError{Path: path, Reason: "failed to open workbook", Err: err}
	}
	defer f.Close()

	return load(f, path)
}

// Read reads a workbook from r. name is used for extension checks and
// error messages (usually the uploaded file name).
func Read(r io.Reader, name string) (*Workbook, error) {
	if err := checkExtension(name); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &source.InputFormatError{Path: name, Reason: "failed to open workbook", Err: err}
	}
	defer f.Close()

	return load(f, name)
}

func checkExtension(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" || supportedExtensions[ext] {
		return nil
	}
	return &source.InputFormatError{
		Path:   path,
		Reason: fmt.Sprintf("unsupported workbook format %q (save as .xlsx)", ext),
	}
}

// load converts every sheet of an open workbook to a source table.
func load(f *excelize.File, path string) (*Workbook, error) {
	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, &source.InputFormatError{Path: path, Reason: "workbook has no sheets"}
	}

	wb := &Workbook{Path: path, Sheets: make([]*source.Table, 0, len(names))}
	for _, name := range names {
		table, err := parseSheet(f, name)
		if err != nil {
			return nil, &source.InputFormatError{Path: path, Reason: fmt.Sprintf("sheet %q", name), Err: err}
		}
		wb.Sheets = append(wb.Sheets, table)
	}

	return wb, nil
}

// parseSheet reads a single sheet. Leading blank rows are skipped and the
// first non-empty row becomes the header.
func parseSheet(f *excelize.File, sheetName string) (*source.Table, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	headerIndex := -1
	for i, row := range rows {
		if !source.IsRowEmpty(row) {
			headerIndex = i
			break
		}
	}
	if headerIndex < 0 {
		return &source.Table{Name: sheetName}, nil
	}

	return source.NewTable(sheetName, rows[headerIndex], rows[headerIndex+1:]), nil
}

// =============================================================================
// SHEET SELECTION
// =============================================================================

// Sheet returns the sheet with the given name.
func (w *Workbook) Sheet(name string) (*source.Table, error) {
	for _, t := range w.Sheets {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, &source.InputFormatError{Path: w.Path, Reason: fmt.Sprintf("sheet %q not found", name)}
}

// FirstUsable returns the first sheet that has at least one data row.
func (w *Workbook) FirstUsable() (*source.Table, error) {
	for _, t := range w.Sheets {
		if t.RowCount() > 0 {
			return t, nil
		}
	}
	return nil, &source.InputFormatError{Path: w.Path, Reason: "no sheet contains data rows"}
}

// Select returns the named sheet, or the first usable one when name is empty.
func (w *Workbook) Select(name string) (*source.Table, error) {
	if name == "" {
		return w.FirstUsable()
	}
	return w.Sheet(name)
}

// Info lists the sheets with their sizes.
func (w *Workbook) Info() []SheetInfo {
	infos := make([]SheetInfo, len(w.Sheets))
	for i, t := range w.Sheets {
		infos[i] = SheetInfo{Name: t.Name, Rows: t.RowCount(), Columns: t.ColumnCount()}
	}
	return infos
}
