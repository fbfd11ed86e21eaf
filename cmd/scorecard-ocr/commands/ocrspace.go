package commands

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	spaceInput    string
	spaceOutput   string
	spaceAPIKey   string
	spaceDelay    time.Duration
	spaceLanguage string
	spaceEngine   int
)

var ocrspaceCmd = &cobra.Command{
	Use:   "ocrspace",
	Short: "Recognise images with the OCR.space API",
	Long: `Upload every image to OCR.space, one request at a time with a pause between
requests. Without a key the public free-tier key is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("api-key") {
			cfg.OCRSpace.APIKey = spaceAPIKey
		}
		if flags.Changed("delay") {
			cfg.OCRSpace.Delay = spaceDelay
		}
		if flags.Changed("language") {
			cfg.OCRSpace.Language = spaceLanguage
		}
		if flags.Changed("engine") {
			cfg.OCRSpace.Engine = spaceEngine
		}
		return runBatch(cmd.Context(), BackendOCRSpace, spaceInput, spaceOutput)
	},
}

func init() {
	addIOFlags(ocrspaceCmd, &spaceInput, &spaceOutput)
	ocrspaceCmd.Flags().StringVar(&spaceAPIKey, "api-key", "", "OCR.space API key (default $OCRSPACE_API_KEY, else the public key)")
	ocrspaceCmd.Flags().DurationVar(&spaceDelay, "delay", time.Second, "pause between requests")
	ocrspaceCmd.Flags().StringVar(&spaceLanguage, "language", "eng", "OCR.space language code")
	ocrspaceCmd.Flags().IntVar(&spaceEngine, "engine", 2, "OCR.space engine (1 or 2)")
	rootCmd.AddCommand(ocrspaceCmd)
}
