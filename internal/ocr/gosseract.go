//go:build gosseract

package ocr

import (
	"context"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/logc/scorecard-ocr/internal/models"
)

// LibraryEnabled reports whether the gosseract driver was compiled in.
const LibraryEnabled = true

// TesseractLibrary drives libtesseract in-process through gosseract. The
// engine mode is fixed when the library initialises, so Profile.OEM is
// ignored here; use the CLI driver when the mode matters.
type TesseractLibrary struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseractLibrary creates an in-process engine. Close must be called to
// release the tesseract handle.
func NewTesseractLibrary() (*TesseractLibrary, error) {
	return &TesseractLibrary{client: gosseract.NewClient()}, nil
}

// Text recognises img with the profile's language and segmentation mode.
func (t *TesseractLibrary) Text(ctx context.Context, img image.Image, p Profile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := EncodePNG(img)
	if err != nil {
		return "", models.PreprocessError("cannot encode image", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	lang := p.Language
	if lang == "" {
		lang = "eng"
	}
	if err := t.client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		return "", models.RecognitionError("failed to set language", err)
	}
	if err := t.client.SetPageSegMode(gosseract.PageSegMode(p.PSM)); err != nil {
		return "", models.RecognitionError("failed to set page segmentation mode", err)
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return "", models.RecognitionError("failed to set image", err)
	}

	text, err := t.client.Text()
	if err != nil {
		return "", models.RecognitionError("tesseract failed ("+p.String()+")", err)
	}
	return text, nil
}

// Close releases the tesseract handle.
func (t *TesseractLibrary) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}
