package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/logc/scorecard-ocr/api"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		console.Info("scorecard-ocr %s (%s %s/%s)", api.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
