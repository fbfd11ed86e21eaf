// Package storage lays out the output directory and persists per-image
// artifacts and the combined CSV summary.
package storage

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/logc/scorecard-ocr/internal/models"
)

// Output layout below the output root.
const (
	TextDir     = "text"
	PDFDir      = "pdf"
	SummaryFile = "ocr_results.csv"
)

// SummaryHeader is the first row of the summary CSV.
var SummaryHeader = []string{"filename", "text"}

// Writer persists artifacts under one output root.
type Writer struct {
	Root        string
	TextDir     string
	PDFDir      string
	SummaryPath string
}

// NewWriter creates the output root and its text directory, plus the pdf
// directory when withPDF is set.
func NewWriter(root string, withPDF bool) (*Writer, error) {
	w := &Writer{
		Root:        root,
		TextDir:     filepath.Join(root, TextDir),
		SummaryPath: filepath.Join(root, SummaryFile),
	}
	dirs := []string{root, w.TextDir}
	if withPDF {
		w.PDFDir = filepath.Join(root, PDFDir)
		dirs = append(dirs, w.PDFDir)
	}

	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, models.WriteError(fmt.Sprintf("cannot create output directory %s", d), err)
		}
	}
	return w, nil
}

// WriteText stores text as <stem>.txt and returns the path.
func (w *Writer) WriteText(stem, text string) (string, error) {
	path := filepath.Join(w.TextDir, stem+".txt")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", models.WriteError("cannot write "+path, err)
	}
	return path, nil
}

// WritePDF stores a searchable PDF as <stem>.pdf and returns the path.
func (w *Writer) WritePDF(stem string, data []byte) (string, error) {
	if w.PDFDir == "" {
		return "", models.WriteError("pdf output was not enabled", nil)
	}
	path := filepath.Join(w.PDFDir, stem+".pdf")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", models.WriteError("cannot write "+path, err)
	}
	return path, nil
}

// WriteSummary writes one row per result, every field quoted.
func (w *Writer) WriteSummary(summary *models.BatchSummary) (string, error) {
	f, err := os.Create(w.SummaryPath)
	if err != nil {
		return "", models.WriteError("cannot create "+w.SummaryPath, err)
	}

	buf := bufio.NewWriter(f)
	writeQuotedRow(buf, SummaryHeader)
	for _, r := range summary.Results {
		writeQuotedRow(buf, []string{r.Filename, r.Text})
	}

	if err := buf.Flush(); err != nil {
		f.Close()
		return "", models.WriteError("cannot write "+w.SummaryPath, err)
	}
	if err := f.Close(); err != nil {
		return "", models.WriteError("cannot write "+w.SummaryPath, err)
	}
	summary.SummaryPath = w.SummaryPath
	return w.SummaryPath, nil
}

// writeQuotedRow quotes every field, doubling embedded quotes, so embedded
// commas and newlines survive. encoding/csv only quotes when it must.
func writeQuotedRow(w *bufio.Writer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(field, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

// ReadText returns a text artifact's contents.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadSummary parses a summary CSV back into filename/text rows.
func ReadSummary(path string) ([]models.ExtractionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(SummaryHeader)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s has no header", path)
	}

	results := make([]models.ExtractionResult, 0, len(records)-1)
	for _, rec := range records[1:] {
		results = append(results, models.ExtractionResult{
			Filename: rec[0],
			Text:     rec[1],
			Success:  !strings.HasPrefix(rec[1], models.ErrorPrefix),
		})
	}
	return results, nil
}
