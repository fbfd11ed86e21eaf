package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"github.com/logc/scorecard-ocr/internal/models"
)

// Provider sends one image plus instructions to a vision-language model and
// returns the raw text of its answer.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string, image []byte, mime string) (string, error)
}

// ProviderOptions are shared by all providers.
type ProviderOptions struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// NewProvider creates the provider named in the vision config.
func NewProvider(ctx context.Context, name string, opts ProviderOptions) (Provider, error) {
	switch name {
	case "openai", "":
		return NewOpenAIProvider(opts), nil
	case "gemini":
		p, err := NewGeminiProvider(ctx, opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, models.ConfigError(fmt.Sprintf("unknown vision provider: %s", name), nil)
	}
}

// OpenAIProvider talks to OpenAI or any endpoint speaking its chat API.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIProvider creates an OpenAI chat-completions provider.
func NewOpenAIProvider(opts ProviderOptions) *OpenAIProvider {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai/" + p.model
}

// Complete asks for a JSON object, attaching the image inline as a data URL
// at high detail.
func (p *OpenAIProvider) Complete(ctx context.Context, system, prompt string, image []byte, mime string) (string, error) {
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", models.RemoteServiceError("OpenAI request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", models.RemoteServiceError("OpenAI returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// GeminiProvider talks to Google Gemini.
type GeminiProvider struct {
	client    *genai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewGeminiProvider creates a Gemini provider. Close releases the client.
func NewGeminiProvider(ctx context.Context, opts ProviderOptions) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, models.BackendInitError("failed to create Gemini client", err)
	}
	if opts.Model == "" {
		opts.Model = "gemini-1.5-flash"
	}
	return &GeminiProvider{
		client:    client,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini/" + p.model
}

// Complete sends the image and prompt with a JSON response MIME type.
func (p *GeminiProvider) Complete(ctx context.Context, system, prompt string, image []byte, mime string) (string, error) {
	model := p.client.GenerativeModel(p.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	model.ResponseMIMEType = "application/json"
	if p.maxTokens > 0 {
		model.SetMaxOutputTokens(int32(p.maxTokens))
	}

	ctx, cancel := p.requestContext(ctx)
	defer cancel()

	format := strings.TrimPrefix(mime, "image/")
	resp, err := model.GenerateContent(ctx, genai.ImageData(format, image), genai.Text(prompt))
	if err != nil {
		return "", models.RemoteServiceError("Gemini request failed", err)
	}
	text := geminiText(resp)
	if text == "" {
		return "", models.RemoteServiceError("Gemini returned no content", nil)
	}
	return text, nil
}

// requestContext bounds one call by the configured request timeout. The genai
// client has no HTTP timeout of its own.
func (p *GeminiProvider) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// Close releases the Gemini client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
