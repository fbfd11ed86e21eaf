package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/logc/scorecard-ocr/internal/models"
)

// Page segmentation modes tried by the selector besides the user's own.
const (
	PSMSingleColumn = 4
	PSMUniformBlock = 6
)

// Profile is one classical-engine configuration.
type Profile struct {
	Language string
	OEM      int
	PSM      int
}

// WithPSM returns a copy of the profile using a different segmentation mode.
func (p Profile) WithPSM(psm int) Profile {
	p.PSM = psm
	return p
}

// Args renders the profile as tesseract command-line flags.
func (p Profile) Args() []string {
	lang := p.Language
	if lang == "" {
		lang = "eng"
	}
	return []string{
		"-l", lang,
		"--oem", strconv.Itoa(p.OEM),
		"--psm", strconv.Itoa(p.PSM),
	}
}

func (p Profile) String() string {
	return fmt.Sprintf("%s/oem%d/psm%d", p.Language, p.OEM, p.PSM)
}

// TextEngine recognises plain text in an image under one profile.
type TextEngine interface {
	Text(ctx context.Context, img image.Image, p Profile) (string, error)
}

// PDFRenderer produces a searchable PDF for an image.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, img image.Image, p Profile) ([]byte, error)
}

// TesseractCLI drives the tesseract executable. It implements both
// TextEngine and PDFRenderer.
type TesseractCLI struct {
	exe Executable
}

// NewTesseractCLI creates an engine bound to a resolved executable.
func NewTesseractCLI(exe Executable) *TesseractCLI {
	return &TesseractCLI{exe: exe}
}

// Text runs tesseract with its output sent to stdout.
func (t *TesseractCLI) Text(ctx context.Context, img image.Image, p Profile) (string, error) {
	input, cleanup, err := writeTempPNG(img)
	if err != nil {
		return "", err
	}
	defer cleanup()

	args := append([]string{input, "stdout"}, p.Args()...)
	out, err := t.run(ctx, args)
	if err != nil {
		return "", models.RecognitionError(fmt.Sprintf("tesseract failed (%s)", p), err)
	}
	return string(out), nil
}

// RenderPDF runs tesseract with the pdf renderer and returns the document.
func (t *TesseractCLI) RenderPDF(ctx context.Context, img image.Image, p Profile) ([]byte, error) {
	input, cleanup, err := writeTempPNG(img)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	base := strings.TrimSuffix(input, filepath.Ext(input)) + "_out"
	defer os.Remove(base + ".pdf")

	args := append([]string{input, base}, p.Args()...)
	args = append(args, "pdf")
	if _, err := t.run(ctx, args); err != nil {
		return nil, models.RecognitionError("tesseract pdf rendering failed", err)
	}

	data, err := os.ReadFile(base + ".pdf")
	if err != nil {
		return nil, models.RecognitionError("tesseract produced no pdf", err)
	}
	return data, nil
}

func (t *TesseractCLI) run(ctx context.Context, args []string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.exe.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func writeTempPNG(img image.Image) (string, func(), error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", nil, models.PreprocessError("cannot encode image", err)
	}

	f, err := os.CreateTemp("", "scorecard-*.png")
	if err != nil {
		return "", nil, models.RecognitionError("cannot create temp image", err)
	}
	name := f.Name()
	cleanup := func() { os.Remove(name) }

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, models.RecognitionError("cannot write temp image", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, models.RecognitionError("cannot write temp image", err)
	}
	return name, cleanup, nil
}
