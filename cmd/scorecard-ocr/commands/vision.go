package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/logc/scorecard-ocr/internal/config"
)

var (
	visionInput    string
	visionOutput   string
	visionAPIKey   string
	visionModel    string
	visionProvider string
	visionDelay    time.Duration
)

var visionCmd = &cobra.Command{
	Use:   "vision",
	Short: "Extract the scorecard table with a vision-language model",
	Long: `Send every image to a vision-language model with the fixed table layout
and member list, and store the returned JSON table as the image's text.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("provider") {
			cfg.Vision.Provider = visionProvider
			if err := config.Validate(cfg); err != nil {
				return err
			}
		}
		if flags.Changed("api-key") {
			if cfg.Vision.Provider == config.ProviderGemini {
				cfg.Vision.Gemini.APIKey = visionAPIKey
			} else {
				cfg.Vision.OpenAI.APIKey = visionAPIKey
			}
		}
		if flags.Changed("model") {
			if cfg.Vision.Provider == config.ProviderGemini {
				cfg.Vision.Gemini.Model = visionModel
			} else {
				cfg.Vision.OpenAI.Model = visionModel
			}
		}
		if flags.Changed("delay") {
			cfg.Vision.Delay = visionDelay
		}
		return runBatch(cmd.Context(), BackendVision, visionInput, visionOutput)
	},
}

func init() {
	addIOFlags(visionCmd, &visionInput, &visionOutput)
	visionCmd.Flags().StringVar(&visionAPIKey, "api-key", "", "API key (default $OPENAI_API_KEY or $GEMINI_API_KEY)")
	visionCmd.Flags().StringVar(&visionModel, "model", "", "model name (default gpt-4o or gemini-1.5-flash)")
	visionCmd.Flags().StringVar(&visionProvider, "provider", "openai", "openai or gemini")
	visionCmd.Flags().DurationVar(&visionDelay, "delay", time.Second, "pause between requests")
	rootCmd.AddCommand(visionCmd)
}
