// Package batch drives one recognition backend across a set of images,
// isolating per-image failures and writing the artifacts and summary.
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/logc/scorecard-ocr/internal/logging"
	"github.com/logc/scorecard-ocr/internal/models"
)

// Recognizer is one OCR backend.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, ref models.ImageRef) (models.Recognition, error)
}

// ArtifactWriter persists per-image outputs and the summary.
type ArtifactWriter interface {
	WriteText(stem, text string) (string, error)
	WritePDF(stem string, data []byte) (string, error)
	WriteSummary(summary *models.BatchSummary) (string, error)
}

// Progress receives one Step per finished image.
type Progress interface {
	Start(total int)
	Step(result models.ExtractionResult)
	Finish()
}

// Options tune a run.
type Options struct {
	// Delay is waited between consecutive requests, after failures too.
	// A positive delay forces sequential processing.
	Delay time.Duration
	// Workers above 1 recognise that many images concurrently.
	Workers int
	// Schema, when set, is used to report table shape mismatches.
	Schema models.TableSchema
}

// Runner is the batch aggregator.
type Runner struct {
	recognizer Recognizer
	writer     ArtifactWriter
	progress   Progress
	opts       Options
	log        *logging.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a runner. progress may be nil.
func NewRunner(recognizer Recognizer, writer ArtifactWriter, progress Progress, opts Options, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.Nop()
	}
	return &Runner{
		recognizer: recognizer,
		writer:     writer,
		progress:   progress,
		opts:       opts,
		log:        log.WithComponent("batch").WithBackend(recognizer.Name()),
		sleep:      sleepContext,
	}
}

// Run processes every image and writes the summary. It records one result
// per image in input order; only a failure to write the summary, or a
// cancelled context, is returned as an error.
func (r *Runner) Run(ctx context.Context, images []models.ImageRef) (*models.BatchSummary, error) {
	summary := &models.BatchSummary{Results: make([]models.ExtractionResult, len(images))}
	r.warnStemCollisions(images)

	if r.progress != nil {
		r.progress.Start(len(images))
		defer r.progress.Finish()
	}

	var err error
	if r.workers() > 1 {
		err = r.runConcurrent(ctx, images, summary.Results)
	} else {
		err = r.runSequential(ctx, images, summary.Results)
	}
	if err != nil {
		return summary, err
	}

	path, err := r.writer.WriteSummary(summary)
	if err != nil {
		return summary, err
	}

	r.log.Info().
		Int("succeeded", summary.Succeeded()).
		Int("total", summary.Total()).
		Str("summary", path).
		Msg("batch complete")
	return summary, nil
}

// warnStemCollisions reports images whose per-image outputs share a file
// name. The later image in input order overwrites the earlier one.
func (r *Runner) warnStemCollisions(images []models.ImageRef) {
	seen := make(map[string]string, len(images))
	for _, ref := range images {
		stem := ref.Stem()
		if first, ok := seen[stem]; ok {
			r.log.Warn().
				Str("file", ref.Name).
				Str("overwrites", first).
				Str("stem", stem).
				Msg("images share an output name; text output will be overwritten")
			continue
		}
		seen[stem] = ref.Name
	}
}

func (r *Runner) workers() int {
	if r.opts.Delay > 0 {
		return 1
	}
	return r.opts.Workers
}

func (r *Runner) runSequential(ctx context.Context, images []models.ImageRef, results []models.ExtractionResult) error {
	for i, ref := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		results[i] = r.processOne(ctx, i, ref)
		r.step(results[i])

		if r.opts.Delay > 0 && i < len(images)-1 {
			if err := r.sleep(ctx, r.opts.Delay); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) runConcurrent(ctx context.Context, images []models.ImageRef, results []models.ExtractionResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i, ref := range images {
		i, ref := i, ref
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.processOne(gctx, i, ref)
			r.step(results[i])
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) step(result models.ExtractionResult) {
	if r.progress != nil {
		r.progress.Step(result)
	}
}

// processOne never returns an error: every failure becomes an ERROR row.
func (r *Runner) processOne(ctx context.Context, index int, ref models.ImageRef) (result models.ExtractionResult) {
	defer func() {
		if p := recover(); p != nil {
			err := models.RecognitionError("recognizer panicked", fmt.Errorf("%v", p))
			r.logFailure(index, ref, err)
			result = models.FailedResult(ref.Name, err)
		}
	}()

	start := time.Now()
	rec, err := r.recognizer.Recognize(ctx, ref)
	if err != nil {
		r.logFailure(index, ref, err)
		return models.FailedResult(ref.Name, err)
	}

	if rec.Table != nil && !r.opts.Schema.IsZero() {
		for _, issue := range rec.Table.ShapeIssues(r.opts.Schema) {
			r.log.Warn().Str("file", ref.Name).Str("issue", issue).Msg("table shape mismatch")
		}
	}

	result = models.ExtractionResult{
		Filename: ref.Name,
		Text:     rec.Text,
		Table:    rec.Table,
		Success:  true,
	}

	if result.TextPath, err = r.writer.WriteText(ref.Stem(), rec.Text); err != nil {
		r.logFailure(index, ref, err)
		return models.FailedResult(ref.Name, err)
	}
	if rec.PDF != nil {
		if result.PDFPath, err = r.writer.WritePDF(ref.Stem(), rec.PDF); err != nil {
			r.logFailure(index, ref, err)
			return models.FailedResult(ref.Name, err)
		}
	}

	r.log.Info().
		Str("file", ref.Name).
		Int("index", index+1).
		Int("chars", len([]rune(rec.Text))).
		Dur("took", time.Since(start)).
		Msg("recognized")
	return result
}

func (r *Runner) logFailure(index int, ref models.ImageRef, err error) {
	r.log.Error().
		Err(err).
		Str("file", ref.Name).
		Int("index", index+1).
		Str("kind", string(models.KindOf(err))).
		Msg("image failed")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
