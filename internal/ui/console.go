// Package ui renders progress and status lines for the command-line tools.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/logc/scorecard-ocr/internal/models"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// DisableColor turns off ANSI colouring for every console.
func DisableColor() {
	color.NoColor = true
}

// Console writes the human-facing report. Out carries results, Err carries
// progress so results can be piped.
type Console struct {
	Out   io.Writer
	Err   io.Writer
	Quiet bool
}

// NewConsole returns a console on stdout/stderr.
func NewConsole() *Console {
	return &Console{Out: os.Stdout, Err: os.Stderr}
}

// Info prints an informational line.
func (c *Console) Info(format string, args ...any) {
	fmt.Fprintf(c.Out, format+"\n", args...)
}

// Success prints a green check line.
func (c *Console) Success(format string, args ...any) {
	fmt.Fprintf(c.Out, "%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

// Warning prints a yellow warning line.
func (c *Console) Warning(format string, args ...any) {
	fmt.Fprintf(c.Err, "%s %s\n", yellow("⚠"), fmt.Sprintf(format, args...))
}

// Error prints a fatal error and its remediation hint, if any.
func (c *Console) Error(err error) {
	fmt.Fprintf(c.Err, "%s %v\n", red("✗"), err)
	if hint := models.HintOf(err); hint != "" {
		fmt.Fprintf(c.Err, "  %s\n", hint)
	}
}

// Report prints the end-of-run counts, the failed files and where the
// summary was written.
func (c *Console) Report(summary *models.BatchSummary) {
	ok, total := summary.Succeeded(), summary.Total()
	line := fmt.Sprintf("Processed %d/%d images successfully", ok, total)
	if ok == total {
		c.Success("%s", line)
	} else {
		fmt.Fprintf(c.Out, "%s %s\n", yellow("⚠"), line)
		for _, r := range summary.Failed() {
			fmt.Fprintf(c.Out, "  %s %s\n", red(r.Filename), strings.TrimPrefix(r.Text, models.ErrorPrefix+": "))
		}
	}
	if summary.SummaryPath != "" {
		fmt.Fprintf(c.Out, "CSV summary: %s\n", bold(summary.SummaryPath))
	}
}

// Spinner shows indeterminate progress, for example while a backend
// initialises.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a spinner writing to the console's error stream.
func (c *Console) NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(c.Err))
	s.Suffix = " " + message
	return &Spinner{spinner: s}
}

func (s *Spinner) Start() {
	s.spinner.Start()
}

func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// BatchProgress is a progress bar advanced once per processed image.
type BatchProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewBatchProgress creates a progress reporter for a batch run.
func (c *Console) NewBatchProgress() *BatchProgress {
	return &BatchProgress{out: c.Err}
}

// Start sizes the bar for total images.
func (p *BatchProgress) Start(total int) {
	p.bar = progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("Recognizing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
	)
}

// Step advances the bar by one image and names the file just finished.
func (p *BatchProgress) Step(result models.ExtractionResult) {
	if p.bar == nil {
		return
	}
	p.bar.Describe(result.Filename)
	_ = p.bar.Add(1)
}

// Finish completes the bar.
func (p *BatchProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
