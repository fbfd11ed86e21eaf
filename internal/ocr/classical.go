package ocr

import (
	"context"

	"github.com/logc/scorecard-ocr/internal/logging"
	"github.com/logc/scorecard-ocr/internal/models"
)

// ClassicalRecognizer is the local tesseract path: preprocess, run the
// selector and optionally render a searchable PDF.
type ClassicalRecognizer struct {
	pre      *Preprocessor
	selector *Selector
	pdf      PDFRenderer
	profile  Profile
	log      *logging.Logger
}

// NewClassicalRecognizer wires the tesseract path. pdf may be nil when no
// searchable PDF is wanted.
func NewClassicalRecognizer(engine TextEngine, pdf PDFRenderer, profile Profile, log *logging.Logger) *ClassicalRecognizer {
	if log == nil {
		log = logging.Nop()
	}
	return &ClassicalRecognizer{
		pre:      NewPreprocessor(log),
		selector: NewSelector(engine, profile, log),
		pdf:      pdf,
		profile:  profile,
		log:      log,
	}
}

func (r *ClassicalRecognizer) Name() string {
	return "tesseract"
}

// Recognize returns the selected text and, when enabled, the PDF rendering.
// The PDF is rendered from a fresh preprocessing pass of the same image.
func (r *ClassicalRecognizer) Recognize(ctx context.Context, ref models.ImageRef) (models.Recognition, error) {
	img, err := r.pre.Prepare(ref)
	if err != nil {
		return models.Recognition{}, err
	}

	text, err := r.selector.Select(ctx, img)
	if err != nil {
		return models.Recognition{}, err
	}
	rec := models.Recognition{Text: text}

	if r.pdf != nil {
		again, err := r.pre.Prepare(ref)
		if err != nil {
			return models.Recognition{}, err
		}
		data, err := r.pdf.RenderPDF(ctx, again, r.profile)
		if err != nil {
			return models.Recognition{}, err
		}
		rec.PDF = data
	}
	return rec, nil
}
