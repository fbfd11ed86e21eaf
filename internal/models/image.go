package models

import (
	"path/filepath"
	"strings"
)

// ErrorPrefix marks a summary row whose image could not be processed.
const ErrorPrefix = "ERROR"

// ImageRef points at one input image on disk.
type ImageRef struct {
	Path string `json:"path"`
	Name string `json:"filename"`
}

// NewImageRef builds an ImageRef from a path.
func NewImageRef(path string) ImageRef {
	return ImageRef{Path: path, Name: filepath.Base(path)}
}

// Stem returns the filename without its extension.
func (r ImageRef) Stem() string {
	return strings.TrimSuffix(r.Name, filepath.Ext(r.Name))
}

// Ext returns the lower-cased extension without the leading dot.
func (r ImageRef) Ext() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(r.Name), "."))
}

// Point is one vertex of a fragment's bounding polygon.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Fragment is one piece of text reported by a detail-mode recognizer.
type Fragment struct {
	Box        []Point `json:"box"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// AverageY returns the mean vertical coordinate of the fragment's polygon.
func (f Fragment) AverageY() float64 {
	if len(f.Box) == 0 {
		return 0
	}
	var sum float64
	for _, p := range f.Box {
		sum += p.Y
	}
	return sum / float64(len(f.Box))
}

// LineRecord is one reconstructed line of text.
type LineRecord struct {
	Text       string  `json:"text"`
	Y          float64 `json:"y"`
	Fragments  int     `json:"fragments"`
	Confidence float64 `json:"confidence"`
}

// Recognition is what a backend produced for a single image.
type Recognition struct {
	Text  string
	Lines []LineRecord
	Table *TableResult
	// PDF holds a searchable PDF rendering when one was requested.
	PDF []byte
}

// ExtractionResult is the per-image outcome recorded in the summary.
type ExtractionResult struct {
	Filename string       `json:"filename"`
	Text     string       `json:"text"`
	Table    *TableResult `json:"table,omitempty"`
	Success  bool         `json:"success"`
	Error    string       `json:"error,omitempty"`
	TextPath string       `json:"textPath,omitempty"`
	PDFPath  string       `json:"pdfPath,omitempty"`
}

// FailedResult builds the record for an image that could not be processed.
func FailedResult(filename string, err error) ExtractionResult {
	return ExtractionResult{
		Filename: filename,
		Text:     ErrorPrefix + ": " + err.Error(),
		Success:  false,
		Error:    err.Error(),
	}
}

// Succeeded reports whether the row counts as a success in the run report.
func (r ExtractionResult) Succeeded() bool {
	return r.Success && !strings.HasPrefix(r.Text, ErrorPrefix)
}

// BatchSummary holds one result per input image in enumeration order.
type BatchSummary struct {
	Results     []ExtractionResult `json:"results"`
	SummaryPath string             `json:"summaryPath,omitempty"`
}

// Total returns the number of recorded images.
func (s *BatchSummary) Total() int {
	return len(s.Results)
}

// Succeeded returns the number of images processed without error.
func (s *BatchSummary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the results that carry an error marker.
func (s *BatchSummary) Failed() []ExtractionResult {
	var failed []ExtractionResult
	for _, r := range s.Results {
		if !r.Succeeded() {
			failed = append(failed, r)
		}
	}
	return failed
}
