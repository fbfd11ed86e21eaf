//go:build !gosseract

package ocr

import (
	"context"
	"errors"
	"image"

	"github.com/logc/scorecard-ocr/internal/models"
)

// LibraryEnabled reports whether the gosseract driver was compiled in.
const LibraryEnabled = false

// ErrLibraryNotEnabled is returned when the in-process driver is requested
// from a binary built without it.
var ErrLibraryNotEnabled = errors.New("gosseract driver not enabled; rebuild with -tags gosseract")

// TesseractLibrary is the placeholder used without the gosseract build tag.
type TesseractLibrary struct{}

// NewTesseractLibrary always fails in this build.
func NewTesseractLibrary() (*TesseractLibrary, error) {
	return nil, models.BackendInitError("library driver unavailable", ErrLibraryNotEnabled).
		WithHint("Use --driver cli, or rebuild with -tags gosseract (requires libtesseract headers)")
}

func (t *TesseractLibrary) Text(context.Context, image.Image, Profile) (string, error) {
	return "", ErrLibraryNotEnabled
}

func (t *TesseractLibrary) Close() error {
	return nil
}
