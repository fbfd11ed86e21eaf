package commands

import (
	"github.com/spf13/cobra"

	"github.com/logc/scorecard-ocr/internal/convert"
)

var (
	convertInput  string
	convertOutput string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the tracking workbook to JSON for the visualiser",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := convert.ExcelToJSON(convertInput, convertOutput); err != nil {
			return err
		}
		console.Success("Wrote JSON to %s", convertOutput)
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertInput, "input", "i", "LOGC_Tracker.xlsx", "Excel workbook to read")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "react-app/public/logc_tracker.json", "JSON file to write")
	rootCmd.AddCommand(convertCmd)
}
