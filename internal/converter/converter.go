// =============================================================================
// Journal CSV Converter - Converter Module
// =============================================================================
//
// This module orchestrates the conversion pipeline for one source table,
// from prompt construction to the working copy, and the export of the
// working copy afterwards.
//
// CONVERSION PIPELINE:
//   1. Build the prompt from the first rows of the source table
//   2. Send it to the configured model (bounded by the configured timeout)
//   3. Parse the completion into journal entries
//   4. Validate the entries (findings are reported, never fixed)
//   5. Store the entries as the session's working copy
//
// Any failure in steps 1-3 leaves the previous working copy untouched. The
// typed errors of each stage (AuthenticationError, TransportError,
// ParseError) are returned unwrapped so the caller can present them.
//
// EXPORT:
//   The working copy is encoded as Shift_JIS CSV and written to the output
//   directory under a timestamped name.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/journal-csv-converter/internal/config"
	"github.com/ginjaninja78/journal-csv-converter/internal/csvparser"
	"github.com/ginjaninja78/journal-csv-converter/internal/exporter"
	"github.com/ginjaninja78/journal-csv-converter/internal/journal"
	"github.com/ginjaninja78/journal-csv-converter/internal/llm"
	"github.com/ginjaninja78/journal-csv-converter/internal/logging"
	"github.com/ginjaninja78/journal-csv-converter/internal/prompt"
	"github.com/ginjaninja78/journal-csv-converter/internal/responseparser"
	"github.com/ginjaninja78/journal-csv-converter/internal/source"
	"github.com/ginjaninja78/journal-csv-converter/internal/store"
	"github.com/ginjaninja78/journal-csv-converter/internal/validation"
	"github.com/ginjaninja78/journal-csv-converter/internal/xlsxparser"
	"github.com/ginjaninja78/journal-csv-converter/pkg/utils"
	"go.uber.org/zap"
)

// ErrValidationFailed is returned by strict exports of a working copy that
// has validation errors.
var ErrValidationFailed = errors.New("working copy has validation errors")

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one conversion.
type Result struct {
	// Source is the name of the converted sheet or file.
	Source string

	// Prompt is the exact text sent to the model.
	Prompt string

	// Raw is the unmodified completion.
	Raw string

	// Table is the parsed journal, also stored as the working copy.
	Table journal.Table

	// Validation holds the post-parse findings.
	Validation *validation.ValidationResult

	Stats ProcessingStats
}

// ProcessingStats contains statistics about a conversion.
type ProcessingStats struct {
	// SourceRows is the number of data rows in the source table.
	SourceRows int

	// PromptRows is the number of rows embedded in the prompt.
	PromptRows int

	// Entries is the number of journal entries parsed.
	Entries int

	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs conversions and exports for one session.
type Converter struct {
	config    *config.MainConfig
	client    llm.Client
	store     *store.WorkingCopy
	validator *validation.Validator
	logger    *zap.Logger
}

// New creates a Converter. A nil logger discards log output.
func New(cfg *config.MainConfig, client llm.Client, wc *store.WorkingCopy, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		config:    cfg,
		client:    client,
		store:     wc,
		validator: validation.NewValidator(),
		logger:    logger,
	}
}

// Store returns the session's working copy.
func (c *Converter) Store() *store.WorkingCopy {
	return c.store
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Convert runs the pipeline for table and stores the result as the working
// copy.
func (c *Converter) Convert(ctx context.Context, table *source.Table) (*Result, error) {
	if table == nil || table.ColumnCount() == 0 {
		return nil, &source.InputFormatError{Path: tableName(table), Reason: "table has no columns"}
	}
	if err := c.store.BeginConversion(); err != nil {
		return nil, err
	}

	result, err := c.convert(ctx, table)
	if err != nil {
		if failErr := c.store.FailConversion(); failErr != nil {
			c.logger.Warn("failed to reset session state", zap.Error(failErr))
		}
		c.logger.Error("conversion failed",
			zap.String("session", c.store.ID()),
			zap.String("source", table.Name),
			zap.Error(err))
		return nil, err
	}

	if err := c.store.FinishConversion(table.Name, result.Table); err != nil {
		return nil, err
	}
	c.logger.Info("conversion complete",
		zap.String("session", c.store.ID()),
		zap.String("source", table.Name),
		zap.Int("entries", result.Stats.Entries),
		zap.Int("validation_errors", result.Validation.ErrorCount),
		zap.Int("validation_warnings", result.Validation.WarningCount),
		zap.Duration("elapsed", result.Stats.ProcessingTime))
	return result, nil
}

func (c *Converter) convert(ctx context.Context, table *source.Table) (*Result, error) {
	startTime := time.Now()
	maxRows := prompt.RowLimit(c.config.Prompt.MaxRows)

	// =========================================================================
	// STEP 1: BUILD PROMPT
	// =========================================================================

	text := prompt.Build(table, maxRows)
	result := &Result{
		Source: table.Name,
		Prompt: text,
		Stats: ProcessingStats{
			SourceRows: table.RowCount(),
			PromptRows: len(table.Head(maxRows)),
		},
	}
	if result.Stats.SourceRows > result.Stats.PromptRows {
		c.logger.Warn("source table truncated for prompt",
			zap.Int("rows", result.Stats.SourceRows),
			zap.Int("sent", result.Stats.PromptRows))
	}

	// =========================================================================
	// STEP 2: CALL THE MODEL
	// =========================================================================

	if timeout := c.config.LLM.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	raw, err := c.client.Complete(ctx, llm.Request{
		Model:       c.config.LLM.Model,
		System:      prompt.SystemInstruction,
		Prompt:      text,
		Temperature: c.config.LLM.TemperatureValue(),
	})
	if err != nil {
		return nil, err
	}
	result.Raw = raw
	c.logger.Debug("model response", zap.String("preview", logging.Preview(raw, 500)))

	// =========================================================================
	// STEP 3: PARSE
	// =========================================================================

	parsed, err := responseparser.Parse(raw)
	if err != nil {
		return nil, err
	}
	result.Table = parsed
	result.Stats.Entries = len(parsed)

	// =========================================================================
	// STEP 4: VALIDATE
	// =========================================================================

	result.Validation = c.validator.ValidateAll(parsed)
	for _, finding := range result.Validation.Errors {
		c.logger.Warn("validation finding", zap.String("detail", finding.Error()))
	}

	result.Stats.ProcessingTime = time.Since(startTime)
	return result, nil
}

// Validate checks the current working copy.
func (c *Converter) Validate() (*validation.ValidationResult, error) {
	table, ok := c.store.Get()
	if !ok {
		return nil, store.ErrNoWorkingCopy
	}
	return c.validator.ValidateAll(table), nil
}

// =============================================================================
// EXPORT
// =============================================================================

// Export encodes the working copy. With strict set, a working copy with
// validation errors is not exported. The returned name is the suggested
// file name for now.
func (c *Converter) Export(strict bool, now time.Time) (name string, data []byte, err error) {
	table, ok := c.store.Get()
	if !ok {
		return "", nil, store.ErrNoWorkingCopy
	}

	if strict {
		if res := c.validator.ValidateAll(table); res.ErrorCount > 0 {
			return "", nil, fmt.Errorf("%w: %d error(s)", ErrValidationFailed, res.ErrorCount)
		}
	}

	data, err = exporter.Export(table)
	if err != nil {
		return "", nil, err
	}
	if err := c.store.MarkExported(); err != nil {
		return "", nil, err
	}
	return exporter.FileName(c.config.FileNameFormat, now), data, nil
}

// ExportToFile exports the working copy into the configured output
// directory and returns the path written.
func (c *Converter) ExportToFile(strict bool) (string, error) {
	name, data, err := c.Export(strict, time.Now())
	if err != nil {
		return "", err
	}

	path, err := utils.NewFileManager(c.config.OutputDir).WriteOutput(name, data)
	if err != nil {
		return "", err
	}
	c.logger.Info("wrote journal file", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

// =============================================================================
// SOURCE LOADING
// =============================================================================

var csvExtensions = map[string]bool{
	".csv": true,
	".tsv": true,
	".txt": true,
}

// LoadSource reads the table to convert from a workbook or a CSV file. For
// workbooks, sheet selects the sheet; empty means the first sheet with data.
func LoadSource(path, sheet string, settings config.CSVSettings) (*source.Table, error) {
	if csvExtensions[strings.ToLower(filepath.Ext(path))] {
		return csvparser.Parse(path, settings)
	}
	wb, err := xlsxparser.Open(path)
	if err != nil {
		return nil, err
	}
	return wb.Select(sheet)
}

// ReadSource is LoadSource for uploaded content. name is the original file
// name and decides the format.
func ReadSource(r io.Reader, name, sheet string, settings config.CSVSettings) (*source.Table, *xlsxparser.Workbook, error) {
	if csvExtensions[strings.ToLower(filepath.Ext(name))] {
		table, err := csvparser.Read(r, strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)), settings)
		return table, nil, err
	}
	wb, err := xlsxparser.Read(r, name)
	if err != nil {
		return nil, nil, err
	}
	table, err := wb.Select(sheet)
	if err != nil {
		return nil, wb, err
	}
	return table, wb, nil
}

func tableName(t *source.Table) string {
	if t == nil {
		return ""
	}
	return t.Name
}
