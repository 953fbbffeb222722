// =============================================================================
// Journal CSV Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (journal-converter)
//   ├── convertCmd (journal-converter convert)
//   ├── sheetsCmd  (journal-converter sheets)
//   ├── serveCmd   (journal-converter serve)
//   └── versionCmd (journal-converter version)
//
// The root command loads the configuration and builds the logger before any
// subcommand runs, and flushes the logger afterwards.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/journal-csv-converter/internal/config"
	"github.com/ginjaninja78/journal-csv-converter/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// mainConfig and logger are set by PersistentPreRunE.
var (
	mainConfig *config.MainConfig
	logger     *zap.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "journal-converter",
	Short: "Convert transaction spreadsheets into 会計王 journal CSV files",
	Long: `journal-converter sends a spreadsheet of transactions to a language model,
parses the returned journal entries, and writes them as a Shift_JIS CSV
file that 会計王 can import.

The API key is read from OPENAI_API_KEY or GEMINI_API_KEY (a .env file in
the working directory is honoured).

Example Usage:
  journal-converter sheets --input book.xlsx
  journal-converter convert --input book.xlsx --sheet 11月
  journal-converter convert --input ledger.csv --dry-run
  journal-converter serve`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadMainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		log, err := logging.New(cfg.LogLevel, verbose)
		if err != nil {
			return err
		}
		mainConfig = cfg
		logger = log
		logger.Debug("configuration loaded",
			zap.String("config", cfgFile),
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model))
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}
