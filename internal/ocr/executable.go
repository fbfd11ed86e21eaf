package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/logc/scorecard-ocr/internal/models"
)

// WindowsDefaultTesseract is where the official Windows installer puts the
// engine.
const WindowsDefaultTesseract = `C:\Program Files\Tesseract-OCR\tesseract.exe`

// InstallHint is shown when no tesseract executable can be found.
const InstallHint = "Install Tesseract (https://github.com/tesseract-ocr/tesseract) or point TESSERACT_PATH / --tesseract-path at the executable"

// ErrExecutableNotFound is returned when no tesseract binary can be located.
var ErrExecutableNotFound = errors.New("tesseract executable not found")

// Lookup hooks, replaced in tests.
var (
	lookPath = exec.LookPath
	statFile = os.Stat
)

// Executable is a resolved tesseract binary, produced once at startup and
// handed to the engines that shell out to it.
type Executable struct {
	Path    string
	Version string
}

// ResolveExecutable locates tesseract: an explicit override first, then the
// search path, then the Windows default install location.
func ResolveExecutable(override string) (Executable, error) {
	if override != "" {
		if info, err := statFile(override); err != nil || info.IsDir() {
			return Executable{}, models.BackendInitError(
				fmt.Sprintf("tesseract not found at %s", override), ErrExecutableNotFound,
			).WithHint(InstallHint)
		}
		return Executable{Path: override}, nil
	}

	if path, err := lookPath("tesseract"); err == nil {
		return Executable{Path: path}, nil
	}

	if _, err := statFile(WindowsDefaultTesseract); err == nil {
		return Executable{Path: WindowsDefaultTesseract}, nil
	}

	return Executable{}, models.BackendInitError("tesseract is not installed or not on PATH", ErrExecutableNotFound).
		WithHint(InstallHint)
}

// Probe runs `tesseract --version` and records the first line.
func (e *Executable) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Path, "--version")
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return models.BackendInitError("tesseract --version failed", err).WithHint(InstallHint)
	}

	line, _, _ := strings.Cut(out.String(), "\n")
	e.Version = strings.TrimSpace(line)
	return nil
}

// Found reports whether the executable was resolved.
func (e Executable) Found() bool {
	return e.Path != ""
}
