package cmd

import (
	"fmt"

	"github.com/ginjaninja78/journal-csv-converter/internal/xlsxparser"
	"github.com/spf13/cobra"
)

var sheetsInput string

// sheetsCmd lists the sheets of a workbook so one can be chosen for convert.
var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "List the sheets of a workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		wb, err := xlsxparser.Open(sheetsInput)
		if err != nil {
			return err
		}
		fmt.Printf("%-24s %8s %8s\n", "SHEET", "ROWS", "COLUMNS")
		for _, info := range wb.Info() {
			fmt.Printf("%-24s %8d %8d\n", info.Name, info.Rows, info.Columns)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
	sheetsCmd.Flags().StringVarP(&sheetsInput, "input", "i", "", "Workbook to inspect")
	_ = sheetsCmd.MarkFlagRequired("input")
}
