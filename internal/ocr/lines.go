package ocr

import (
	"math"
	"strings"

	"github.com/logc/scorecard-ocr/internal/models"
)

// DefaultLineThreshold is the vertical distance, in pixels, under which two
// consecutive fragments are treated as the same line. It is a tuning value;
// tightly spaced rows can merge.
const DefaultLineThreshold = 20.0

// ReconstructLines groups fragments into lines by walking them in recognition
// order. A fragment stays on the current line while its average Y is within
// threshold of the previous fragment's; otherwise the line is closed.
func ReconstructLines(fragments []models.Fragment, threshold float64) []models.LineRecord {
	if threshold <= 0 {
		threshold = DefaultLineThreshold
	}

	var (
		lines   []models.LineRecord
		current []models.Fragment
		lastY   float64
	)

	for i, f := range fragments {
		y := f.AverageY()
		if i > 0 && math.Abs(y-lastY) >= threshold {
			lines = append(lines, closeLine(current))
			current = nil
		}
		current = append(current, f)
		lastY = y
	}
	if len(current) > 0 {
		lines = append(lines, closeLine(current))
	}
	return lines
}

func closeLine(frags []models.Fragment) models.LineRecord {
	texts := make([]string, len(frags))
	var ySum, confSum float64
	for i, f := range frags {
		texts[i] = f.Text
		ySum += f.AverageY()
		confSum += f.Confidence
	}
	n := float64(len(frags))
	return models.LineRecord{
		Text:       strings.Join(texts, " "),
		Y:          ySum / n,
		Fragments:  len(frags),
		Confidence: confSum / n,
	}
}

// JoinLines renders reconstructed lines as newline-separated text.
func JoinLines(lines []models.LineRecord) string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n")
}
