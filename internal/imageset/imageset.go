// Package imageset enumerates the scanned images in an input directory.
package imageset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/logc/scorecard-ocr/internal/models"
)

// Extensions lists the accepted image extensions.
var Extensions = []string{"jpg", "jpeg", "png", "tif", "tiff", "bmp", "webp"}

// Supported reports whether name carries an accepted image extension,
// ignoring case.
func Supported(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// SupportedList returns the extensions formatted for user messages.
func SupportedList() string {
	return strings.Join(Extensions, ", ")
}

// Resolve returns the images in dir sorted by filename. Subdirectories are
// not descended into. A missing or non-directory path yields a not-found
// error; a directory without images yields an empty slice and no error.
func Resolve(dir string) ([]models.ImageRef, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, models.NotFoundError(fmt.Sprintf("input directory not found: %s", dir), err)
	}
	if !info.IsDir() {
		return nil, models.NotFoundError(fmt.Sprintf("input path is not a directory: %s", dir), nil)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, models.NotFoundError(fmt.Sprintf("cannot read input directory: %s", dir), err)
	}

	refs := make([]models.ImageRef, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		refs = append(refs, models.NewImageRef(filepath.Join(dir, entry.Name())))
	}

	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Name < refs[j].Name
	})
	return refs, nil
}

// Limit caps refs at max entries. A max of zero or less means no cap.
func Limit(refs []models.ImageRef, max int) []models.ImageRef {
	if max <= 0 || len(refs) <= max {
		return refs
	}
	return refs[:max]
}
