package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/logc/scorecard-ocr/internal/logging"
	"github.com/logc/scorecard-ocr/internal/models"
	"github.com/logc/scorecard-ocr/internal/storage"
)

// EasyOCRHint is shown when the neural sidecar cannot be reached.
const EasyOCRHint = "Start the EasyOCR sidecar (pip install -r tools/easyocr-sidecar/requirements.txt, then python tools/easyocr-sidecar/server.py) and point EASYOCR_URL / --url at it"

// EasyOCRClient talks to the neural OCR sidecar over HTTP. The sidecar keeps
// the model loaded between requests.
type EasyOCRClient struct {
	baseURL string
	client  *http.Client
}

// NewEasyOCRClient creates a sidecar client. A zero timeout means 60s.
func NewEasyOCRClient(baseURL string, timeout time.Duration) *EasyOCRClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &EasyOCRClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SidecarStatus is the sidecar's health payload.
type SidecarStatus struct {
	Status    string   `json:"status"`
	Languages []string `json:"languages,omitempty"`
	GPU       bool     `json:"gpu"`
}

// ReadOptions are passed through to the neural reader.
type ReadOptions struct {
	Languages []string
	GPU       bool
	Detail    bool
}

type sidecarFragment struct {
	Box        [][2]float64 `json:"box"`
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
}

type sidecarResponse struct {
	Fragments  []sidecarFragment `json:"fragments"`
	Paragraphs []string          `json:"paragraphs"`
	Error      string            `json:"error,omitempty"`
}

// ReadResult is the sidecar output for one image.
type ReadResult struct {
	Fragments  []models.Fragment
	Paragraphs []string
}

// Health checks that the sidecar is up and its model is loaded.
func (c *EasyOCRClient) Health(ctx context.Context) (*SidecarStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, models.BackendInitError("invalid EasyOCR url", err).WithHint(EasyOCRHint)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, models.BackendInitError("EasyOCR sidecar unreachable", err).WithHint(EasyOCRHint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.BackendInitError(fmt.Sprintf("EasyOCR sidecar returned %d", resp.StatusCode), nil).WithHint(EasyOCRHint)
	}

	var status SidecarStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, models.BackendInitError("EasyOCR sidecar sent an invalid health payload", err).WithHint(EasyOCRHint)
	}
	return &status, nil
}

// ReadText uploads one image and returns fragments (detail mode) or
// paragraph strings.
func (c *EasyOCRClient) ReadText(ctx context.Context, filename string, data []byte, opts ReadOptions) (*ReadResult, error) {
	detail := "0"
	if opts.Detail {
		detail = "1"
	}
	body, contentType, err := multipartBody(filename, data, map[string]string{
		"languages": strings.Join(opts.Languages, ","),
		"gpu":       strconv.FormatBool(opts.GPU),
		"detail":    detail,
		"paragraph": "true",
	})
	if err != nil {
		return nil, models.RecognitionError("cannot build EasyOCR request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/readtext", body)
	if err != nil {
		return nil, models.RecognitionError("cannot build EasyOCR request", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, models.RecognitionError("EasyOCR request failed", err)
	}
	defer resp.Body.Close()

	var out sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && resp.StatusCode == http.StatusOK {
		return nil, models.RecognitionError("EasyOCR returned invalid JSON", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, models.RecognitionError("EasyOCR error: "+msg, nil)
	}

	result := &ReadResult{Paragraphs: out.Paragraphs}
	for _, f := range out.Fragments {
		box := make([]models.Point, len(f.Box))
		for i, p := range f.Box {
			box[i] = models.Point{X: p[0], Y: p[1]}
		}
		result.Fragments = append(result.Fragments, models.Fragment{Box: box, Text: f.Text, Confidence: f.Confidence})
	}
	return result, nil
}

// multipartBody builds a form with one file part and the given fields.
func multipartBody(filename string, data []byte, fields map[string]string) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", storage.ContentType(filename))
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

// NeuralRecognizer is the EasyOCR path.
type NeuralRecognizer struct {
	client     *EasyOCRClient
	opts       ReadOptions
	threshold  float64
	preprocess bool
	pre        *Preprocessor
	log        *logging.Logger
}

// NeuralConfig configures the EasyOCR path.
type NeuralConfig struct {
	ReadOptions
	LineThreshold float64
	// Preprocess runs the enhancement pipeline before upload.
	Preprocess bool
}

// NewNeuralRecognizer checks the sidecar and returns a recognizer. An
// unreachable sidecar is a startup failure.
func NewNeuralRecognizer(ctx context.Context, client *EasyOCRClient, cfg NeuralConfig, log *logging.Logger) (*NeuralRecognizer, error) {
	if log == nil {
		log = logging.Nop()
	}
	status, err := client.Health(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Strs("languages", cfg.Languages).Bool("gpu", status.GPU).Msg("EasyOCR sidecar ready")

	if cfg.LineThreshold <= 0 {
		cfg.LineThreshold = DefaultLineThreshold
	}
	return &NeuralRecognizer{
		client:     client,
		opts:       cfg.ReadOptions,
		threshold:  cfg.LineThreshold,
		preprocess: cfg.Preprocess,
		pre:        NewPreprocessor(log),
		log:        log,
	}, nil
}

func (r *NeuralRecognizer) Name() string {
	return "easyocr"
}

// Recognize uploads the image and rebuilds its lines.
func (r *NeuralRecognizer) Recognize(ctx context.Context, ref models.ImageRef) (models.Recognition, error) {
	name := ref.Name
	var data []byte
	if r.preprocess {
		img, err := r.pre.Prepare(ref)
		if err != nil {
			return models.Recognition{}, err
		}
		if data, err = EncodePNG(img); err != nil {
			return models.Recognition{}, models.PreprocessError("cannot encode image", err)
		}
		name = ref.Stem() + ".png"
	} else {
		var err error
		if data, err = os.ReadFile(ref.Path); err != nil {
			return models.Recognition{}, models.RecognitionError("cannot read "+ref.Name, err)
		}
	}

	result, err := r.client.ReadText(ctx, name, data, r.opts)
	if err != nil {
		return models.Recognition{}, err
	}

	if !r.opts.Detail {
		return models.Recognition{Text: strings.Join(result.Paragraphs, "\n")}, nil
	}

	lines := ReconstructLines(result.Fragments, r.threshold)
	return models.Recognition{Text: JoinLines(lines), Lines: lines}, nil
}
