package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logc/scorecard-ocr/internal/batch"
	"github.com/logc/scorecard-ocr/internal/config"
	"github.com/logc/scorecard-ocr/internal/imageset"
	"github.com/logc/scorecard-ocr/internal/models"
	"github.com/logc/scorecard-ocr/internal/storage"
)

// addIOFlags registers --input and --output on a batch command.
func addIOFlags(cmd *cobra.Command, input, output *string) {
	cmd.Flags().StringVarP(input, "input", "i", "", "directory of scanned images (default from config, else .)")
	cmd.Flags().StringVarP(output, "output", "o", "", "output directory (default from config, else output)")
}

// resolveImages lists the input images and applies --max-images. A missing
// directory and an empty one are both fatal.
func resolveImages(input string) ([]models.ImageRef, error) {
	if input != "" {
		cfg.Input = input
	}
	images, err := imageset.Resolve(cfg.Input)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, models.EmptyInputError(fmt.Sprintf("no images found in %s", cfg.Input)).
			WithHint("Supported: " + imageset.SupportedList())
	}

	if limited := imageset.Limit(images, cfg.MaxImages); len(limited) < len(images) {
		logger.Info().Int("found", len(images)).Int("limit", len(limited)).Msg("limiting images")
		images = limited
	}
	return images, nil
}

// runBatch resolves the images, builds the backend and runs it over them,
// then prints the report. Command flags have been applied to cfg by now, so
// it is validated again.
func runBatch(ctx context.Context, name, input, output string) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}
	images, err := resolveImages(input)
	if err != nil {
		return err
	}
	if output != "" {
		cfg.Output = output
	}

	b, err := newBackend(ctx, name)
	if err != nil {
		return err
	}
	defer b.Close()

	writer, err := storage.NewWriter(cfg.Output, b.withPDF)
	if err != nil {
		return err
	}

	console.Info("Found %d images in %s, using %s", len(images), cfg.Input, b.recognizer.Name())
	runner := batch.NewRunner(b.recognizer, writer, console.NewBatchProgress(), batch.Options{
		Delay:   b.delay,
		Workers: cfg.Workers,
		Schema:  b.schema,
	}, logger)

	summary, err := runner.Run(ctx, images)
	if err != nil {
		return err
	}
	console.Report(summary)
	return nil
}
