package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/logc/scorecard-ocr/internal/logging"
	"github.com/logc/scorecard-ocr/internal/models"
	"github.com/logc/scorecard-ocr/internal/storage"
)

// TableExtractor asks a vision model for the scorecard table and enforces
// that the answer is well-formed JSON.
type TableExtractor struct {
	provider Provider
	schema   models.TableSchema
	log      *logging.Logger
}

// NewTableExtractor creates a new table extractor
func NewTableExtractor(provider Provider, schema models.TableSchema, log *logging.Logger) *TableExtractor {
	if schema.IsZero() {
		schema = models.DefaultTableSchema()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &TableExtractor{provider: provider, schema: schema, log: log.WithComponent("extractor")}
}

// Schema returns the schema the prompt is built from.
func (e *TableExtractor) Schema() models.TableSchema {
	return e.schema
}

// Extract sends the image and returns the decoded table together with the
// cleaned JSON text. An answer that is not valid JSON is a schema
// violation. Valid JSON of an unexpected shape yields a nil table and the
// text is still returned.
func (e *TableExtractor) Extract(ctx context.Context, ref models.ImageRef) (*models.TableResult, string, error) {
	image, err := os.ReadFile(ref.Path)
	if err != nil {
		return nil, "", models.RecognitionError("cannot read "+ref.Name, err)
	}

	start := time.Now()
	response, err := e.provider.Complete(ctx, SystemPrompt, BuildPrompt(e.schema), image, storage.ContentType(ref.Name))
	if err != nil {
		if models.KindOf(err) == "" {
			err = models.RemoteServiceError("vision request failed", err)
		}
		return nil, "", err
	}

	e.log.Debug().
		Str("file", ref.Name).
		Str("provider", e.provider.Name()).
		Int("length", len(response)).
		Dur("took", time.Since(start)).
		Msg("vision response")

	cleaned := cleanResponse(response)
	if !json.Valid([]byte(cleaned)) {
		return nil, "", models.SchemaViolationError(
			fmt.Sprintf("model output was not valid JSON: %q", truncate(cleaned, 200)), nil)
	}

	table, err := decodeTable(cleaned)
	if err != nil {
		e.log.Warn().Err(err).Str("file", ref.Name).Msg("response is JSON but not a table")
		return nil, cleaned, nil
	}
	return table, cleaned, nil
}

const codeFence = "```"

// cleanResponse strips one markdown code fence wrapping the whole answer.
// Backticks inside the JSON itself are kept.
func cleanResponse(response string) string {
	cleaned := strings.TrimSpace(response)
	if !strings.HasPrefix(cleaned, codeFence) {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, codeFence)
	cleaned = strings.TrimPrefix(cleaned, "json")
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), codeFence)
	return strings.TrimSpace(cleaned)
}

func decodeTable(text string) (*models.TableResult, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var table models.TableResult
	if err := dec.Decode(&table); err != nil {
		return nil, err
	}
	return &table, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// VisionRecognizer is the vision-language model path.
type VisionRecognizer struct {
	extractor *TableExtractor
}

// NewVisionRecognizer wraps a table extractor.
func NewVisionRecognizer(extractor *TableExtractor) *VisionRecognizer {
	return &VisionRecognizer{extractor: extractor}
}

func (r *VisionRecognizer) Name() string {
	return "vision"
}

// Recognize stores the model's JSON as the image's text.
func (r *VisionRecognizer) Recognize(ctx context.Context, ref models.ImageRef) (models.Recognition, error) {
	table, text, err := r.extractor.Extract(ctx, ref)
	if err != nil {
		return models.Recognition{}, err
	}
	return models.Recognition{Text: text, Table: table}, nil
}
