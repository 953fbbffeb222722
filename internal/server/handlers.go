package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ginjaninja78/journal-csv-converter/internal/converter"
	"github.com/ginjaninja78/journal-csv-converter/internal/exporter"
	"github.com/ginjaninja78/journal-csv-converter/internal/journal"
	"github.com/ginjaninja78/journal-csv-converter/internal/llm"
	"github.com/ginjaninja78/journal-csv-converter/internal/responseparser"
	"github.com/ginjaninja78/journal-csv-converter/internal/source"
	"github.com/ginjaninja78/journal-csv-converter/internal/store"
	"github.com/ginjaninja78/journal-csv-converter/internal/validation"
	"github.com/ginjaninja78/journal-csv-converter/internal/xlsxparser"
	"go.uber.org/zap"
)

// errorBody is the JSON body of every failed request.
type errorBody struct {
	Error  string      `json:"error"`
	Kind   string      `json:"kind"`
	Detail interface{} `json:"detail,omitempty"`
}

// fail maps err to a status code and writes it.
func (s *Server) fail(c *gin.Context, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, body)
}

func classify(err error) (int, errorBody) {
	body := errorBody{Error: err.Error(), Kind: "internal"}

	var (
		authErr      *llm.AuthenticationError
		transportErr *llm.TransportError
		parseErr     *responseparser.ParseError
		inputErr     *source.InputFormatError
		encodingErr  *exporter.EncodingError
		indexErr     *store.IndexError
		fieldErr     *journal.FieldError
	)

	switch {
	case errors.As(err, &authErr):
		body.Kind = "authentication"
		return http.StatusUnauthorized, body
	case errors.As(err, &transportErr):
		body.Kind = "transport"
		return http.StatusBadGateway, body
	case errors.As(err, &parseErr):
		body.Kind = "parse"
		body.Detail = gin.H{"line": parseErr.Line, "reason": parseErr.Reason, "raw": parseErr.Raw}
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &inputErr):
		body.Kind = "input_format"
		return http.StatusBadRequest, body
	case errors.As(err, &encodingErr):
		body.Kind = "encoding"
		body.Detail = gin.H{
			"row":    encodingErr.Row,
			"column": encodingErr.Column,
			"value":  encodingErr.Value,
			"char":   string(encodingErr.Rune),
		}
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, converter.ErrValidationFailed):
		body.Kind = "validation"
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &indexErr):
		body.Kind = "not_found"
		return http.StatusNotFound, body
	case errors.As(err, &fieldErr):
		body.Kind = "invalid_field"
		body.Detail = gin.H{"column": fieldErr.Column.Name(), "value": fieldErr.Value, "reason": fieldErr.Reason}
		return http.StatusBadRequest, body
	case errors.Is(err, store.ErrNoWorkingCopy):
		body.Kind = "no_working_copy"
		return http.StatusConflict, body
	case errors.Is(err, store.ErrConversionInProgress):
		body.Kind = "busy"
		return http.StatusConflict, body
	}
	return http.StatusInternalServerError, body
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorBody{Error: msg, Kind: "bad_request"})
}

// =============================================================================
// UPLOAD AND CONVERSION
// =============================================================================

// Upload reads a workbook or CSV file and keeps its tables for conversion.
func (s *Server) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "missing form file \"file\"")
		return
	}
	defer file.Close()

	limit := int64(s.config.Server.MaxUploadMB) << 20
	if header.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, errorBody{
			Error: fmt.Sprintf("file exceeds %d MB", s.config.Server.MaxUploadMB),
			Kind:  "too_large",
		})
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		badRequest(c, "failed to read upload")
		return
	}

	uploaded, err := s.readUpload(header.Filename, content)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.uploadMu.Lock()
	s.upload = uploaded
	s.uploadMu.Unlock()

	s.logger.Info("file uploaded", zap.String("file", header.Filename), zap.Int("sheets", len(uploaded.Sheets)))
	c.JSON(http.StatusOK, gin.H{"file": uploaded.FileName, "sheets": uploaded.Sheets})
}

func (s *Server) readUpload(name string, content []byte) (*uploadedFile, error) {
	table, wb, err := converter.ReadSource(bytes.NewReader(content), name, "", s.config.CSVSettings)
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return &uploadedFile{
			FileName: name,
			Tables:   []*source.Table{table},
			Sheets:   []xlsxparser.SheetInfo{{Name: table.Name, Rows: table.RowCount(), Columns: table.ColumnCount()}},
		}, nil
	}
	return &uploadedFile{FileName: name, Tables: wb.Sheets, Sheets: wb.Info()}, nil
}

type convertRequest struct {
	Sheet string `json:"sheet"`
}

// Convert runs the pipeline on the selected sheet of the uploaded file.
func (s *Server) Convert(c *gin.Context) {
	var req convertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	s.uploadMu.RLock()
	uploaded := s.upload
	s.uploadMu.RUnlock()
	if uploaded == nil {
		badRequest(c, "no file uploaded")
		return
	}

	wb := &xlsxparser.Workbook{Path: uploaded.FileName, Sheets: uploaded.Tables}
	table, err := wb.Select(req.Sheet)
	if err != nil {
		s.fail(c, err)
		return
	}

	result, err := s.converter.Convert(c.Request.Context(), table)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"source":     result.Source,
		"header":     journal.Header(),
		"rows":       recordsOnly(result.Table),
		"totals":     result.Table.Totals(),
		"validation": result.Validation,
		"stats": gin.H{
			"source_rows": result.Stats.SourceRows,
			"prompt_rows": result.Stats.PromptRows,
			"entries":     result.Stats.Entries,
			"elapsed_ms":  result.Stats.ProcessingTime.Milliseconds(),
		},
	})
}

// =============================================================================
// WORKING COPY
// =============================================================================

// GetJournal returns the working copy with its totals and findings.
func (s *Server) GetJournal(c *gin.Context) {
	wc := s.converter.Store()
	snapshot := wc.Snapshot()

	table, ok := wc.Get()
	var findings *validation.ValidationResult
	if ok {
		findings = validation.Validate(table)
	}

	c.JSON(http.StatusOK, gin.H{
		"session":    snapshot,
		"header":     journal.Header(),
		"rows":       recordsOnly(table),
		"validation": findings,
	})
}

// rowRequest carries column values keyed by header name or snake_case key.
type rowRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

func applyFields(entry *journal.Entry, fields map[string]string) error {
	for name, value := range fields {
		id, ok := journal.LookupColumn(name)
		if !ok {
			return &journal.FieldError{Column: -1, Value: value, Reason: fmt.Sprintf("unknown column %q", name)}
		}
		if err := entry.SetField(id, value); err != nil {
			return err
		}
	}
	return nil
}

// InsertRow appends a row built from the given fields.
func (s *Server) InsertRow(c *gin.Context) {
	var req rowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	var entry journal.Entry
	if err := applyFields(&entry, req.Fields); err != nil {
		s.fail(c, err)
		return
	}

	index, err := s.converter.Store().InsertRow(entry)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"index": index, "row": entry.Record()})
}

// UpdateRow changes the given fields of one row.
func (s *Server) UpdateRow(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	var req rowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	wc := s.converter.Store()
	table, present := wc.Get()
	if !present {
		s.fail(c, store.ErrNoWorkingCopy)
		return
	}
	if index >= len(table) {
		s.fail(c, &store.IndexError{Index: index, Len: len(table)})
		return
	}

	entry := table[index]
	if err := applyFields(&entry, req.Fields); err != nil {
		s.fail(c, err)
		return
	}
	if err := wc.ReplaceRow(index, entry); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "row": entry.Record()})
}

// DeleteRow removes one row.
func (s *Server) DeleteRow(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	if err := s.converter.Store().DeleteRow(index); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Commit ends the current edit.
func (s *Server) Commit(c *gin.Context) {
	wc := s.converter.Store()
	if err := wc.Commit(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wc.Snapshot())
}

func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		badRequest(c, "row index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

func recordsOnly(table journal.Table) [][]string {
	records := make([][]string, len(table))
	for i, e := range table {
		records[i] = e.Record()
	}
	return records
}

// =============================================================================
// EXPORT
// =============================================================================

// Export downloads the working copy as a Shift_JIS CSV file.
func (s *Server) Export(c *gin.Context) {
	strict := c.Query("strict") == "true"

	name, data, err := s.converter.Export(strict, time.Now())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/csv; charset="+exporter.EncodingName, data)
}
