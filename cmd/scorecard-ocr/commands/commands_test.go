package commands

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/logc/scorecard-ocr/internal/models"
	"github.com/logc/scorecard-ocr/internal/storage"
	"github.com/logc/scorecard-ocr/internal/ui"
)

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the CLI with args and returns what it printed to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SCORECARD_CONFIG", "")
	resetFlags(rootCmd)

	var out bytes.Buffer
	prev := console
	console = &ui.Console{Out: &out, Err: io.Discard}
	t.Cleanup(func() { console = prev })

	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func imageDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("img"), 0644))
	}
	return dir
}

func TestOCRSpaceCommandEndToEnd(t *testing.T) {
	t.Setenv("OCRSPACE_API_KEY", "test-key")

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.FormValue("apikey"))
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 2 {
			w.Write([]byte(`{"OCRExitCode":3,"IsErroredOnProcessing":true,"ErrorMessage":["Unable to recognize the file type"]}`))
			return
		}
		w.Write([]byte(`{"OCRExitCode":1,"ParsedResults":[{"ParsedText":"Kevin Harvey 3"}]}`))
	}))
	defer srv.Close()

	cfgPath := writeConfig(t, "ocrspace:\n  endpoint: "+srv.URL+"\n")
	input := imageDir(t, "a.jpg", "b.png", "c.jpg", "notes.txt")
	output := filepath.Join(t.TempDir(), "out")

	stdout, err := run(t, "ocrspace", "-c", cfgPath, "-i", input, "-o", output, "--delay", "0s", "--max-images", "2")
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.Contains(t, stdout, "Found 2 images")
	assert.Contains(t, stdout, "Processed 1/2 images successfully")
	assert.Contains(t, stdout, "Unable to recognize the file type")

	text, err := storage.ReadText(filepath.Join(output, storage.TextDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Kevin Harvey 3", text)

	rows, err := storage.ReadSummary(filepath.Join(output, storage.SummaryFile))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a.jpg", rows[0].Filename)
	assert.Equal(t, "b.png", rows[1].Filename)
	assert.Contains(t, rows[1].Text, models.ErrorPrefix)
}

func TestBatchMissingInputDirectory(t *testing.T) {
	cfgPath := writeConfig(t, "")
	_, err := run(t, "tesseract", "-c", cfgPath, "-i", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestBatchEmptyInputDirectory(t *testing.T) {
	cfgPath := writeConfig(t, "")
	_, err := run(t, "ocrspace", "-c", cfgPath, "-i", imageDir(t, "readme.md"))
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindEmptyInput))
	assert.Contains(t, models.HintOf(err), "Supported: jpg")
}

func TestVisionWithoutKeyFailsAtStartup(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfgPath := writeConfig(t, "")
	output := filepath.Join(t.TempDir(), "out")

	_, err := run(t, "vision", "-c", cfgPath, "-i", imageDir(t, "card.jpg"), "-o", output)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindBackendInit))
	assert.Contains(t, models.HintOf(err), "OPENAI_API_KEY")

	// nothing written before the backend is ready
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestVisionUnknownProvider(t *testing.T) {
	cfgPath := writeConfig(t, "")
	_, err := run(t, "vision", "-c", cfgPath, "-i", imageDir(t, "card.jpg"), "--provider", "claude")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindConfig))
}

func TestBatchFlagsAreValidated(t *testing.T) {
	cfgPath := writeConfig(t, "")
	input := imageDir(t, "card.jpg")

	_, err := run(t, "tesseract", "-c", cfgPath, "-i", input, "--psm", "99")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindConfig))
	assert.Contains(t, err.Error(), "psm must be 0-13")

	_, err = run(t, "tesseract", "-c", cfgPath, "-i", input, "--oem", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oem must be 0-3")

	_, err = run(t, "ocrspace", "-c", cfgPath, "-i", input, "--delay=-1s")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindConfig))
}

func TestServeUnknownBackend(t *testing.T) {
	cfgPath := writeConfig(t, "")
	_, err := run(t, "serve", "-c", cfgPath, "--backend", "abbyy")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindConfig))
}

func TestExplicitConfigMustExist(t *testing.T) {
	_, err := run(t, "version", "-c", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindConfig))
}

func TestConvertCommand(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Member", "Guns"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Kevin Harvey", 2}))
	in := filepath.Join(t.TempDir(), "LOGC_Tracker.xlsx")
	require.NoError(t, f.SaveAs(in))
	require.NoError(t, f.Close())

	out := filepath.Join(t.TempDir(), "public", "logc_tracker.json")
	stdout, err := run(t, "convert", "-c", writeConfig(t, ""), "-i", in, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote JSON to "+out)
	assert.FileExists(t, out)
}

func TestVersionCommand(t *testing.T) {
	stdout, err := run(t, "version", "-c", writeConfig(t, ""))
	require.NoError(t, err)
	assert.Contains(t, stdout, "scorecard-ocr 1.0.0")
}
