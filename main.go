// =============================================================================
// Journal CSV Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   journal-converter convert   - Convert a sheet into a 会計王 journal CSV file
//   journal-converter sheets    - List the sheets of a workbook
//   journal-converter serve     - Serve the upload, edit and export API
//   journal-converter version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Conversion pipeline, model clients, session store, server
//   - pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/journal-csv-converter/cmd"
)

func main() {
	cmd.Execute()
}
