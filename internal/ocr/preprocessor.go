package ocr

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/logc/scorecard-ocr/internal/logging"
	"github.com/logc/scorecard-ocr/internal/models"
)

// Enhancement factors applied by the preprocessing pipeline.
const (
	AutocontrastCutoff = 2.0 // percent of pixels clipped at each end
	SharpenFactor      = 2.0
	ContrastFactor     = 1.5
	BrightnessFactor   = 1.1
	MedianWindow       = 3
)

// smoothKernel is the 3x3 blur the sharpen step extrapolates away from.
var smoothKernel = [9]float64{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}

// Preprocessor handles image preprocessing for optimal OCR results
type Preprocessor struct {
	log *logging.Logger
}

// NewPreprocessor creates a new image preprocessor
func NewPreprocessor(log *logging.Logger) *Preprocessor {
	if log == nil {
		log = logging.Nop()
	}
	return &Preprocessor{log: log.WithComponent("preprocessor")}
}

// Prepare decodes the image file and runs it through the enhancement
// pipeline.
func (p *Preprocessor) Prepare(ref models.ImageRef) (*image.Gray, error) {
	img, err := imaging.Open(ref.Path)
	if err != nil {
		return nil, models.PreprocessError("cannot decode "+ref.Name, err)
	}

	out := p.PrepareImage(img)
	p.log.Debug().
		Str("file", ref.Name).
		Int("width", out.Bounds().Dx()).
		Int("height", out.Bounds().Dy()).
		Msg("image enhanced")
	return out, nil
}

// PrepareImage applies, in order: luminance conversion, 2% autocontrast,
// sharpening, contrast, brightness and a 3x3 median filter. The order
// matters; reordering the stages changes the output.
func (p *Preprocessor) PrepareImage(img image.Image) *image.Gray {
	gray := imaging.Grayscale(img)
	gray = Autocontrast(gray, AutocontrastCutoff)
	gray = Sharpen(gray, SharpenFactor)
	gray = Contrast(gray, ContrastFactor)
	gray = Brightness(gray, BrightnessFactor)
	return MedianFilter(toGray(gray), MedianWindow)
}

// EncodePNG serialises an image for engines that take files or bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Autocontrast stretches the luminance histogram after discarding cutoff
// percent of the darkest and of the lightest pixels.
func Autocontrast(img *image.NRGBA, cutoff float64) *image.NRGBA {
	var hist [256]int
	total := 0
	for i := 0; i < len(img.Pix); i += 4 {
		hist[img.Pix[i]]++
		total++
	}
	if total == 0 {
		return img
	}

	cut := int(float64(total) * cutoff / 100)
	for lo := 0; lo < 256 && cut > 0; lo++ {
		if cut > hist[lo] {
			cut -= hist[lo]
			hist[lo] = 0
		} else {
			hist[lo] -= cut
			cut = 0
		}
	}
	cut = int(float64(total) * cutoff / 100)
	for hi := 255; hi >= 0 && cut > 0; hi-- {
		if cut > hist[hi] {
			cut -= hist[hi]
			hist[hi] = 0
		} else {
			hist[hi] -= cut
			cut = 0
		}
	}

	lo, hi := 0, 255
	for lo < 256 && hist[lo] == 0 {
		lo++
	}
	for hi >= 0 && hist[hi] == 0 {
		hi--
	}
	if hi <= lo {
		return img
	}

	scale := 255.0 / float64(hi-lo)
	offset := -float64(lo) * scale
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp(float64(i)*scale + offset)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// Sharpen extrapolates the image away from a smoothed copy of itself. A
// factor of 1 returns the original.
func Sharpen(img *image.NRGBA, factor float64) *image.NRGBA {
	smooth := imaging.Convolve3x3(img, smoothKernel, &imaging.ConvolveOptions{Normalize: true})
	out := imaging.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			base := float64(smooth.Pix[i+c])
			out.Pix[i+c] = clamp(base + factor*(float64(img.Pix[i+c])-base))
		}
	}
	return out
}

// Contrast scales each pixel's distance from the mean luminance.
func Contrast(img *image.NRGBA, factor float64) *image.NRGBA {
	var sum, n float64
	for i := 0; i < len(img.Pix); i += 4 {
		sum += float64(img.Pix[i])
		n++
	}
	if n == 0 {
		return img
	}
	mean := float64(int(sum/n + 0.5))
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clamp(mean + factor*(float64(c.R)-mean)),
			G: clamp(mean + factor*(float64(c.G)-mean)),
			B: clamp(mean + factor*(float64(c.B)-mean)),
			A: c.A,
		}
	})
}

// Brightness multiplies every channel by factor.
func Brightness(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clamp(float64(c.R) * factor),
			G: clamp(float64(c.G) * factor),
			B: clamp(float64(c.B) * factor),
			A: c.A,
		}
	})
}

// MedianFilter replaces each pixel by the median of its size x size
// neighbourhood, replicating edge pixels at the border.
func MedianFilter(src *image.Gray, size int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	if size < 2 {
		copy(dst.Pix, src.Pix)
		return dst
	}

	r := size / 2
	window := make([]uint8, 0, size*size)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			window = window[:0]
			for dy := -r; dy <= r; dy++ {
				yy := clampInt(y+dy, b.Min.Y, b.Max.Y-1)
				for dx := -r; dx <= r; dx++ {
					xx := clampInt(x+dx, b.Min.X, b.Max.X-1)
					window = append(window, src.GrayAt(xx, yy).Y)
				}
			}
			dst.SetGray(x, y, color.Gray{Y: median(window)})
		}
	}
	return dst
}

// median sorts the window in place; windows are at most a few dozen bytes.
func median(w []uint8) uint8 {
	for i := 1; i < len(w); i++ {
		for j := i; j > 0 && w[j] < w[j-1]; j-- {
			w[j], w[j-1] = w[j-1], w[j]
		}
	}
	return w[len(w)/2]
}

func toGray(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for i, j := 0, 0; i < len(img.Pix); i, j = i+4, j+1 {
		gray.Pix[j] = img.Pix[i]
	}
	return gray
}

func clamp(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
