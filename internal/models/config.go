package models

import "time"

// Config represents the tool configuration
type Config struct {
	// Batch config
	Input     string `yaml:"input"`
	Output    string `yaml:"output"`
	MaxImages int    `yaml:"max_images"`
	Workers   int    `yaml:"workers"`

	Log LogConfig `yaml:"log"`

	// Backends
	Tesseract TesseractConfig `yaml:"tesseract"`
	EasyOCR   EasyOCRConfig   `yaml:"easyocr"`
	OCRSpace  OCRSpaceConfig  `yaml:"ocrspace"`
	Vision    VisionConfig    `yaml:"vision"`

	// Server config
	Server ServerConfig `yaml:"server"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // "console" or "json"
}

// TesseractConfig for the classical engine
type TesseractConfig struct {
	Path     string `yaml:"path"`   // Explicit executable, skips PATH lookup
	Driver   string `yaml:"driver"` // "cli" or "library"
	Language string `yaml:"lang"`
	OEM      int    `yaml:"oem"`
	PSM      int    `yaml:"psm"`
	PDF      bool   `yaml:"pdf"`
}

// EasyOCRConfig for the neural engine sidecar
type EasyOCRConfig struct {
	URL           string        `yaml:"url"`
	Languages     []string      `yaml:"langs"`
	GPU           bool          `yaml:"gpu"`
	Detail        bool          `yaml:"detail"`
	Preprocess    bool          `yaml:"preprocess"`
	LineThreshold float64       `yaml:"line_threshold"`
	Timeout       time.Duration `yaml:"timeout"`
}

// OCRSpaceConfig for the OCR.space REST API
type OCRSpaceConfig struct {
	APIKey            string        `yaml:"api_key"`
	Endpoint          string        `yaml:"endpoint"`
	Language          string        `yaml:"language"`
	Engine            int           `yaml:"engine"`
	DetectOrientation bool          `yaml:"detect_orientation"`
	Scale             bool          `yaml:"scale"`
	Delay             time.Duration `yaml:"delay"`
	Timeout           time.Duration `yaml:"timeout"`
}

// VisionConfig for the vision-language model path
type VisionConfig struct {
	Provider  string        `yaml:"provider"` // "openai" or "gemini"
	OpenAI    OpenAIConfig  `yaml:"openai"`
	Gemini    GeminiConfig  `yaml:"gemini"`
	MaxTokens int           `yaml:"max_tokens"`
	Delay     time.Duration `yaml:"delay"`
	Timeout   time.Duration `yaml:"timeout"`
	Schema    TableSchema   `yaml:"schema"`
}

// OpenAIConfig for OpenAI or any compatible endpoint
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // For custom endpoints
	Model   string `yaml:"model"`              // Default: "gpt-4o"
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-1.5-flash"
}

// ServerConfig for serve mode
type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Backend string `yaml:"backend"` // tesseract, easyocr, ocrspace, vision
}
