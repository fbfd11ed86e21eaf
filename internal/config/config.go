// Package config loads the YAML configuration, applies environment overrides
// and resolves backend credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/logc/scorecard-ocr/internal/models"
)

const (
	// DefaultConfigFile is read from the working directory when no path is given.
	DefaultConfigFile = "config.yaml"

	// PublicOCRSpaceKey is the shared free-tier key accepted by OCR.space.
	PublicOCRSpaceKey = "helloworld"

	DefaultOCRSpaceEndpoint = "https://api.ocr.space/parse/image"
	DefaultEasyOCRURL       = "http://127.0.0.1:8866"
	DefaultRemoteDelay      = time.Second
	DefaultRemoteTimeout    = 60 * time.Second
	DefaultOpenAIModel      = "gpt-4o"
	DefaultGeminiModel      = "gemini-1.5-flash"
	DefaultVisionMaxTokens  = 2000

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Default returns the configuration used when no file is present.
func Default() *models.Config {
	return &models.Config{
		Input:  ".",
		Output: "output",
		Log: models.LogConfig{
			Level:  "info",
			Format: "console",
		},
		Tesseract: models.TesseractConfig{
			Driver:   "cli",
			Language: "eng",
			OEM:      3,
			PSM:      6,
		},
		EasyOCR: models.EasyOCRConfig{
			URL:           DefaultEasyOCRURL,
			Languages:     []string{"en"},
			Detail:        true,
			LineThreshold: 20,
			Timeout:       DefaultRemoteTimeout,
		},
		OCRSpace: models.OCRSpaceConfig{
			APIKey:            PublicOCRSpaceKey,
			Endpoint:          DefaultOCRSpaceEndpoint,
			Language:          "eng",
			Engine:            2,
			DetectOrientation: true,
			Scale:             true,
			Delay:             DefaultRemoteDelay,
			Timeout:           DefaultRemoteTimeout,
		},
		Vision: models.VisionConfig{
			Provider:  ProviderOpenAI,
			OpenAI:    models.OpenAIConfig{Model: DefaultOpenAIModel},
			Gemini:    models.GeminiConfig{Model: DefaultGeminiModel},
			MaxTokens: DefaultVisionMaxTokens,
			Delay:     DefaultRemoteDelay,
			Timeout:   DefaultRemoteTimeout,
			Schema:    models.DefaultTableSchema(),
		},
		Server: models.ServerConfig{
			Host:    "127.0.0.1",
			Port:    8080,
			Backend: "tesseract",
		},
	}
}

// LoadDotEnv reads a .env file into the process environment. A missing file
// is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return models.ConfigError(fmt.Sprintf("failed to load %s", p), err)
		}
	}
	return nil
}

// Load reads the configuration file, falling back to SCORECARD_CONFIG and
// then config.yaml, and applies environment overrides on top. Only an
// explicitly named file has to exist.
func Load(path string) (*models.Config, error) {
	config := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("SCORECARD_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, models.ConfigError(fmt.Sprintf("failed to parse config %s", path), err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, models.ConfigError("failed to read config file", err)
	}

	if err := ApplyEnv(config, os.Getenv); err != nil {
		return nil, err
	}
	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides config values with any non-empty environment variables.
func ApplyEnv(config *models.Config, getenv func(string) string) error {
	if apiKey := getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Vision.OpenAI.APIKey = apiKey
	}
	if baseURL := getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.Vision.OpenAI.BaseURL = baseURL
	}
	if model := getenv("OPENAI_MODEL"); model != "" {
		config.Vision.OpenAI.Model = model
	}
	if apiKey := getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Vision.Gemini.APIKey = apiKey
	}
	if model := getenv("GEMINI_MODEL"); model != "" {
		config.Vision.Gemini.Model = model
	}
	if provider := getenv("VISION_PROVIDER"); provider != "" {
		config.Vision.Provider = strings.ToLower(provider)
	}
	if apiKey := getenv("OCRSPACE_API_KEY"); apiKey != "" {
		config.OCRSpace.APIKey = apiKey
	}
	if url := getenv("EASYOCR_URL"); url != "" {
		config.EasyOCR.URL = url
	}
	if path := getenv("TESSERACT_PATH"); path != "" {
		config.Tesseract.Path = path
	}
	if level := getenv("SCORECARD_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
	if port := getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return models.ConfigError(fmt.Sprintf("invalid PORT %q", port), err)
		}
		config.Server.Port = p
	}
	return nil
}

// Validate rejects settings no backend can run with.
func Validate(config *models.Config) error {
	if config.Workers < 0 {
		return models.ConfigError(fmt.Sprintf("workers must be >= 0, got %d", config.Workers), nil)
	}
	if config.Tesseract.PSM < 0 || config.Tesseract.PSM > 13 {
		return models.ConfigError(fmt.Sprintf("tesseract psm must be 0-13, got %d", config.Tesseract.PSM), nil)
	}
	if config.Tesseract.OEM < 0 || config.Tesseract.OEM > 3 {
		return models.ConfigError(fmt.Sprintf("tesseract oem must be 0-3, got %d", config.Tesseract.OEM), nil)
	}
	switch config.Tesseract.Driver {
	case "", "cli", "library":
	default:
		return models.ConfigError(fmt.Sprintf("unknown tesseract driver %q", config.Tesseract.Driver), nil)
	}
	switch config.Vision.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return models.ConfigError(fmt.Sprintf("unknown vision provider %q", config.Vision.Provider), nil)
	}
	if config.OCRSpace.Delay < 0 || config.Vision.Delay < 0 {
		return models.ConfigError("delay must not be negative", nil)
	}
	return nil
}

// OCRSpaceKey returns the configured OCR.space key or the public one.
func OCRSpaceKey(config *models.Config) string {
	if config.OCRSpace.APIKey == "" {
		return PublicOCRSpaceKey
	}
	return config.OCRSpace.APIKey
}

// VisionCredential returns the API key for the selected vision provider.
// A missing key is a startup failure carrying a remediation hint.
func VisionCredential(config *models.Config) (string, error) {
	switch config.Vision.Provider {
	case ProviderGemini:
		if config.Vision.Gemini.APIKey == "" {
			return "", models.BackendInitError("Gemini API key not provided", nil).
				WithHint("Set GEMINI_API_KEY or pass --api-key. Keys are issued at https://aistudio.google.com/app/apikey")
		}
		return config.Vision.Gemini.APIKey, nil
	default:
		if config.Vision.OpenAI.APIKey == "" {
			return "", models.BackendInitError("OpenAI API key not provided", nil).
				WithHint("Set OPENAI_API_KEY or pass --api-key. Keys are issued at https://platform.openai.com/api-keys")
		}
		return config.Vision.OpenAI.APIKey, nil
	}
}
