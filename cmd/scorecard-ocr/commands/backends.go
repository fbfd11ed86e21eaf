package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/logc/scorecard-ocr/api"
	"github.com/logc/scorecard-ocr/internal/ai"
	"github.com/logc/scorecard-ocr/internal/batch"
	"github.com/logc/scorecard-ocr/internal/config"
	"github.com/logc/scorecard-ocr/internal/models"
	"github.com/logc/scorecard-ocr/internal/ocr"
)

// Backend names accepted by serve.
const (
	BackendTesseract = "tesseract"
	BackendEasyOCR   = "easyocr"
	BackendOCRSpace  = "ocrspace"
	BackendVision    = "vision"
)

// backend is a ready recognizer with the settings the batch runner and the
// server need from it.
type backend struct {
	recognizer batch.Recognizer
	status     api.ServiceStatus
	delay      time.Duration
	withPDF    bool
	schema     models.TableSchema
	close      func() error
}

func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

func newBackend(ctx context.Context, name string) (*backend, error) {
	switch name {
	case BackendTesseract:
		return newTesseractBackend(ctx)
	case BackendEasyOCR:
		return newEasyOCRBackend(ctx)
	case BackendOCRSpace:
		return newOCRSpaceBackend()
	case BackendVision:
		return newVisionBackend(ctx)
	default:
		return nil, models.ConfigError(fmt.Sprintf("unknown backend %q", name), nil).
			WithHint("Use one of: tesseract, easyocr, ocrspace, vision")
	}
}

// newTesseractBackend resolves the engine once at startup. The executable is
// needed for the cli driver and for PDF output.
func newTesseractBackend(ctx context.Context) (*backend, error) {
	tc := cfg.Tesseract
	profile := ocr.Profile{Language: tc.Language, OEM: tc.OEM, PSM: tc.PSM}
	b := &backend{withPDF: tc.PDF}

	var cli *ocr.TesseractCLI
	if tc.Driver != "library" || tc.PDF {
		spin := console.NewSpinner("Checking tesseract...")
		spin.Start()
		exe, err := ocr.ResolveExecutable(tc.Path)
		if err == nil {
			err = exe.Probe(ctx)
		}
		spin.Stop()
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", exe.Path).Str("version", exe.Version).Msg("tesseract found")
		cli = ocr.NewTesseractCLI(exe)
		b.status = api.ServiceStatus{Available: true, Path: exe.Path, Version: exe.Version}
	}

	var engine ocr.TextEngine = cli
	if tc.Driver == "library" {
		lib, err := ocr.NewTesseractLibrary()
		if err != nil {
			return nil, err
		}
		engine = lib
		b.close = lib.Close
		b.status = api.ServiceStatus{Available: true, Version: "gosseract"}
	}

	var pdf ocr.PDFRenderer
	if tc.PDF {
		pdf = cli
	}

	logger.Debug().Str("profile", profile.String()).Str("driver", tc.Driver).Msg("tesseract backend")
	b.recognizer = ocr.NewClassicalRecognizer(engine, pdf, profile, logger)
	return b, nil
}

func newEasyOCRBackend(ctx context.Context) (*backend, error) {
	ec := cfg.EasyOCR
	client := ocr.NewEasyOCRClient(ec.URL, ec.Timeout)

	spin := console.NewSpinner("Connecting to EasyOCR at " + ec.URL + "...")
	spin.Start()
	rec, err := ocr.NewNeuralRecognizer(ctx, client, ocr.NeuralConfig{
		ReadOptions: ocr.ReadOptions{
			Languages: ec.Languages,
			GPU:       ec.GPU,
			Detail:    ec.Detail,
		},
		LineThreshold: ec.LineThreshold,
		Preprocess:    ec.Preprocess,
	}, logger)
	spin.Stop()
	if err != nil {
		return nil, err
	}

	return &backend{
		recognizer: rec,
		status:     api.ServiceStatus{Available: true, Path: ec.URL},
	}, nil
}

func newOCRSpaceBackend() (*backend, error) {
	oc := cfg.OCRSpace
	key := config.OCRSpaceKey(cfg)
	if key == config.PublicOCRSpaceKey {
		console.Warning("Using the public OCR.space key; requests are rate limited. Set OCRSPACE_API_KEY for your own quota.")
	}

	client := ocr.NewOCRSpaceClient(ocr.OCRSpaceConfig{
		Endpoint:          oc.Endpoint,
		APIKey:            key,
		Language:          oc.Language,
		Engine:            oc.Engine,
		DetectOrientation: oc.DetectOrientation,
		Scale:             oc.Scale,
		Timeout:           oc.Timeout,
	})
	return &backend{
		recognizer: ocr.NewRemoteRecognizer(client),
		status:     api.ServiceStatus{Available: true, Path: oc.Endpoint},
		delay:      oc.Delay,
	}, nil
}

func newVisionBackend(ctx context.Context) (*backend, error) {
	vc := cfg.Vision
	key, err := config.VisionCredential(cfg)
	if err != nil {
		return nil, err
	}

	opts := ai.ProviderOptions{APIKey: key, MaxTokens: vc.MaxTokens, Timeout: vc.Timeout}
	switch vc.Provider {
	case config.ProviderGemini:
		opts.Model = vc.Gemini.Model
	default:
		opts.BaseURL = vc.OpenAI.BaseURL
		opts.Model = vc.OpenAI.Model
	}

	provider, err := ai.NewProvider(ctx, vc.Provider, opts)
	if err != nil {
		return nil, err
	}
	extractor := ai.NewTableExtractor(provider, vc.Schema, logger)

	b := &backend{
		recognizer: ai.NewVisionRecognizer(extractor),
		status:     api.ServiceStatus{Available: true, Version: provider.Name()},
		delay:      vc.Delay,
		schema:     extractor.Schema(),
	}
	if closer, ok := provider.(interface{ Close() error }); ok {
		b.close = closer.Close
	}
	return b, nil
}
