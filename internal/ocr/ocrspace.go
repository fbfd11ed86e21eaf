package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/logc/scorecard-ocr/internal/models"
)

// OCR.space defaults.
const (
	OCRSpaceEndpoint  = "https://api.ocr.space/parse/image"
	OCRSpacePublicKey = "helloworld"
	ocrSpaceSuccess   = 1
)

// OCRSpaceConfig configures the OCR.space client.
type OCRSpaceConfig struct {
	Endpoint          string
	APIKey            string
	Language          string
	Engine            int
	DetectOrientation bool
	Scale             bool
	Timeout           time.Duration
}

// OCRSpaceClient calls the OCR.space parse endpoint.
type OCRSpaceClient struct {
	cfg    OCRSpaceConfig
	client *http.Client
}

// NewOCRSpaceClient creates a client, filling unset fields with the public
// key, English, engine 2 and a 60s timeout.
func NewOCRSpaceClient(cfg OCRSpaceConfig) *OCRSpaceClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = OCRSpaceEndpoint
	}
	if cfg.APIKey == "" {
		cfg.APIKey = OCRSpacePublicKey
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Engine == 0 {
		cfg.Engine = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OCRSpaceClient{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type ocrSpaceResponse struct {
	OCRExitCode           int             `json:"OCRExitCode"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
	ParsedResults         []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
}

// Parse uploads the image and returns the first parsed text block.
func (c *OCRSpaceClient) Parse(ctx context.Context, ref models.ImageRef) (string, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return "", models.RecognitionError("cannot read "+ref.Name, err)
	}
	return c.ParseBytes(ctx, ref.Name, data)
}

// ParseBytes is Parse for an in-memory image.
func (c *OCRSpaceClient) ParseBytes(ctx context.Context, filename string, data []byte) (string, error) {
	body, contentType, err := multipartBody(filename, data, map[string]string{
		"apikey":            c.cfg.APIKey,
		"language":          c.cfg.Language,
		"isOverlayRequired": "false",
		"detectOrientation": strconv.FormatBool(c.cfg.DetectOrientation),
		"scale":             strconv.FormatBool(c.cfg.Scale),
		"OCREngine":         strconv.Itoa(c.cfg.Engine),
	})
	if err != nil {
		return "", models.RemoteServiceError("cannot build OCR.space request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", models.RemoteServiceError("cannot build OCR.space request", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", models.RemoteServiceError("network error", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.RemoteServiceError("cannot read OCR.space response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", models.RemoteServiceError(fmt.Sprintf("OCR.space returned %s: %s", resp.Status, snippet(string(raw), 200)), nil)
	}

	var result ocrSpaceResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", models.RemoteServiceError("OCR.space returned invalid JSON", err)
	}

	if result.OCRExitCode != ocrSpaceSuccess {
		return "", models.RemoteServiceError("OCR.space API error: "+errorMessage(result.ErrorMessage), nil)
	}
	if len(result.ParsedResults) == 0 {
		return "", nil
	}
	return result.ParsedResults[0].ParsedText, nil
}

// errorMessage flattens OCR.space's ErrorMessage, which is either a string
// or a list of strings.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "Unknown error"
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return one
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return strings.Join(many, "; ")
	}
	return string(raw)
}

func snippet(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}

// RemoteRecognizer is the OCR.space path.
type RemoteRecognizer struct {
	client *OCRSpaceClient
}

// NewRemoteRecognizer wraps an OCR.space client.
func NewRemoteRecognizer(client *OCRSpaceClient) *RemoteRecognizer {
	return &RemoteRecognizer{client: client}
}

func (r *RemoteRecognizer) Name() string {
	return "ocrspace"
}

// Recognize sends the original image file; the service does its own
// enhancement.
func (r *RemoteRecognizer) Recognize(ctx context.Context, ref models.ImageRef) (models.Recognition, error) {
	text, err := r.client.Parse(ctx, ref)
	if err != nil {
		return models.Recognition{}, err
	}
	return models.Recognition{Text: text}, nil
}
