// =============================================================================
// Journal CSV Converter - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which runs the whole pipeline
// for one sheet or CSV file and writes the journal file.
//
// COMMAND USAGE:
//   journal-converter convert --input <file> [flags]
//
// FLAGS:
//   --input       : Workbook (.xlsx, .xlsm) or CSV file to convert
//   --sheet       : Sheet to convert (default: first sheet with data)
//   --output-dir  : Overrides output_dir from the config file
//   --max-rows    : Overrides prompt.max_rows from the config file
//   --strict      : Refuse to export when validation finds errors
//   --dry-run     : Print the prompt without calling the model
//
// On a parse failure or validation findings an error log is written to the
// output directory next to the journal file.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/journal-csv-converter/internal/converter"
	"github.com/ginjaninja78/journal-csv-converter/internal/llm"
	"github.com/ginjaninja78/journal-csv-converter/internal/prompt"
	"github.com/ginjaninja78/journal-csv-converter/internal/responseparser"
	"github.com/ginjaninja78/journal-csv-converter/internal/store"
	"github.com/ginjaninja78/journal-csv-converter/internal/validation"
	"github.com/ginjaninja78/journal-csv-converter/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	inputPath string
	sheetName string
	outputDir string
	maxRows   int
	strict    bool
	dryRun    bool
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a spreadsheet into a 会計王 journal CSV file",
	Long: `The convert command reads one sheet of a workbook (or a CSV file), asks the
configured model to turn its rows into journal entries, validates them, and
writes a Shift_JIS CSV file to the output directory.

Validation findings are reported but never block the export unless --strict
is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("output-dir") {
			mainConfig.OutputDir = outputDir
		}
		if cmd.Flags().Changed("max-rows") {
			if maxRows <= 0 {
				return fmt.Errorf("--max-rows must be positive, got %d", maxRows)
			}
			mainConfig.Prompt.MaxRows = maxRows
		}
		return runConvert(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Workbook or CSV file to convert")
	convertCmd.Flags().StringVarP(&sheetName, "sheet", "s", "", "Sheet to convert (default: first sheet with data)")
	convertCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the journal file")
	convertCmd.Flags().IntVar(&maxRows, "max-rows", 0, "Maximum number of source rows sent to the model")
	convertCmd.Flags().BoolVar(&strict, "strict", false, "Refuse to export when validation finds errors")
	convertCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the prompt without calling the model")
	_ = convertCmd.MarkFlagRequired("input")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConvert(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD THE SOURCE TABLE
	// =========================================================================

	table, err := converter.LoadSource(inputPath, sheetName, mainConfig.CSVSettings)
	if err != nil {
		return err
	}
	fmt.Printf("Source: %s (%d rows, %d columns)\n", table.Name, table.RowCount(), table.ColumnCount())

	if dryRun {
		fmt.Println(prompt.Build(table, mainConfig.Prompt.MaxRows))
		return nil
	}

	// =========================================================================
	// STEP 2: CONVERT
	// =========================================================================

	client, err := llm.New(ctx, mainConfig.LLM, logger)
	if err != nil {
		return err
	}
	conv := converter.New(mainConfig, client, store.New(), logger)

	fmt.Printf("Converting with %s (%s)...\n", mainConfig.LLM.Provider, mainConfig.LLM.Model)
	result, err := conv.Convert(ctx, table)
	if err != nil {
		var parseErr *responseparser.ParseError
		if errors.As(err, &parseErr) {
			writeErrorLog([]utils.ErrorLogEntry{{
				Timestamp:    time.Now(),
				FileName:     filepath.Base(inputPath),
				ErrorType:    "Parse Error",
				ErrorMessage: parseErr.Error(),
				RowNumber:    parseErr.Line,
				Detail:       parseErr.Raw,
			}})
		}
		return err
	}

	// =========================================================================
	// STEP 3: REPORT
	// =========================================================================

	totals := result.Table.Totals()
	fmt.Printf("Entries:         %d\n", totals.Entries)
	fmt.Printf("Debit total:     %s\n", totals.Debit.String())
	fmt.Printf("Credit total:    %s\n", totals.Credit.String())
	if !totals.Balanced() {
		fmt.Println("  ✗ debit and credit totals differ")
	}

	if len(result.Validation.Errors) > 0 {
		fmt.Printf("Validation:      %d error(s), %d warning(s)\n",
			result.Validation.ErrorCount, result.Validation.WarningCount)
		for _, finding := range result.Validation.Errors {
			fmt.Printf("  %s\n", finding.Error())
		}
		writeErrorLog(findingsLog(result.Validation))
	}

	// =========================================================================
	// STEP 4: EXPORT
	// =========================================================================

	path, err := conv.ExportToFile(strict)
	if err != nil {
		return err
	}

	fmt.Println("\n=== Conversion Complete ===")
	fmt.Printf("Output:          %s\n", path)
	fmt.Printf("Time elapsed:    %s\n", time.Since(startTime).Round(time.Millisecond))
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func findingsLog(res *validation.ValidationResult) []utils.ErrorLogEntry {
	now := time.Now()
	entries := make([]utils.ErrorLogEntry, 0, len(res.Errors))
	for _, finding := range res.Errors {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     filepath.Base(inputPath),
			ErrorType:    "Validation " + finding.Severity,
			ErrorMessage: finding.Message,
			RowNumber:    finding.Row,
			FieldName:    finding.Field,
			FieldValue:   finding.Value,
		})
	}
	return entries
}

// writeErrorLog reports but does not fail on a log that cannot be written.
func writeErrorLog(entries []utils.ErrorLogEntry) {
	path, err := utils.WriteErrorLog(entries, mainConfig.OutputDir)
	if err != nil {
		logger.Warn("failed to write error log", zap.Error(err))
		return
	}
	fmt.Printf("Error log:       %s\n", path)
}
