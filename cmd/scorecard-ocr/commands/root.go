package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/logc/scorecard-ocr/internal/config"
	"github.com/logc/scorecard-ocr/internal/logging"
	"github.com/logc/scorecard-ocr/internal/models"
	"github.com/logc/scorecard-ocr/internal/ui"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	workers   int
	maxImages int

	// set up by the root pre-run for every subcommand
	cfg     *models.Config
	logger  *logging.Logger
	console = ui.NewConsole()
)

var rootCmd = &cobra.Command{
	Use:   "scorecard-ocr",
	Short: "Extract text and tables from scanned hunting-club scorecards",
	Long: `scorecard-ocr runs a directory of scanned scorecards through one recognition
backend (local tesseract, an EasyOCR sidecar, the OCR.space API or a
vision-language model) and writes one text file per image plus a CSV summary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			ui.DisableColor()
		}
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Log.Level = "debug"
		}
		if cmd.Flags().Changed("workers") {
			loaded.Workers = workers
		}
		if cmd.Flags().Changed("max-images") {
			loaded.MaxImages = maxImages
		}
		if err := config.Validate(loaded); err != nil {
			return err
		}

		cfg = loaded
		logger = logging.New(logging.Config{
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			Output:  console.Err,
			NoColor: noColor,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default config.yaml, or $SCORECARD_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "images recognised concurrently (ignored when a request delay is set)")
	rootCmd.PersistentFlags().IntVar(&maxImages, "max-images", 0, "process at most N images, 0 for all")
}

// Execute runs the root command. Interrupts cancel the running batch. The
// error, with its hint, is printed before it is returned.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		console.Error(err)
	}
	return err
}
