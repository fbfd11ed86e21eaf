package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logc/scorecard-ocr/internal/models"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("SCORECARD_CONFIG", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "output", cfg.Output)
	assert.Equal(t, "eng", cfg.Tesseract.Language)
	assert.Equal(t, 3, cfg.Tesseract.OEM)
	assert.Equal(t, 6, cfg.Tesseract.PSM)
	assert.Equal(t, PublicOCRSpaceKey, cfg.OCRSpace.APIKey)
	assert.Equal(t, time.Second, cfg.OCRSpace.Delay)
	assert.Equal(t, 60*time.Second, cfg.OCRSpace.Timeout)
	assert.Equal(t, 2000, cfg.Vision.MaxTokens)
	assert.Len(t, cfg.Vision.Schema.Members, 14)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindConfig))
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scorecard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output: results
max_images: 5
tesseract:
  lang: eng+spa
  psm: 4
ocrspace:
  delay: 2s
vision:
  provider: gemini
`), 0644))
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "results", cfg.Output)
	assert.Equal(t, 5, cfg.MaxImages)
	assert.Equal(t, "eng+spa", cfg.Tesseract.Language)
	assert.Equal(t, 4, cfg.Tesseract.PSM)
	assert.Equal(t, 3, cfg.Tesseract.OEM)
	assert.Equal(t, 2*time.Second, cfg.OCRSpace.Delay)
	assert.Equal(t, ProviderGemini, cfg.Vision.Provider)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tesseract:\n  psm: 42\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, models.IsFatal(err))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY":      "sk-test",
		"OPENAI_BASE_URL":     "http://localhost:1234/v1",
		"VISION_PROVIDER":     "OpenAI",
		"OCRSPACE_API_KEY":    "K123",
		"EASYOCR_URL":         "http://sidecar:9000",
		"TESSERACT_PATH":      "/opt/tesseract",
		"SCORECARD_LOG_LEVEL": "debug",
		"PORT":                "9090",
	}
	cfg := Default()
	require.NoError(t, ApplyEnv(cfg, func(k string) string { return env[k] }))

	assert.Equal(t, "sk-test", cfg.Vision.OpenAI.APIKey)
	assert.Equal(t, "http://localhost:1234/v1", cfg.Vision.OpenAI.BaseURL)
	assert.Equal(t, ProviderOpenAI, cfg.Vision.Provider)
	assert.Equal(t, "K123", cfg.OCRSpace.APIKey)
	assert.Equal(t, "http://sidecar:9000", cfg.EasyOCR.URL)
	assert.Equal(t, "/opt/tesseract", cfg.Tesseract.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestApplyEnvBadPort(t *testing.T) {
	err := ApplyEnv(Default(), func(k string) string {
		if k == "PORT" {
			return "eighty"
		}
		return ""
	})
	assert.True(t, models.IsKind(err, models.KindConfig))
}

func TestVisionCredential(t *testing.T) {
	cfg := Default()

	_, err := VisionCredential(cfg)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindBackendInit))
	assert.Contains(t, models.HintOf(err), "OPENAI_API_KEY")

	cfg.Vision.OpenAI.APIKey = "sk-abc"
	key, err := VisionCredential(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sk-abc", key)

	cfg.Vision.Provider = ProviderGemini
	_, err = VisionCredential(cfg)
	assert.Contains(t, models.HintOf(err), "GEMINI_API_KEY")
}

func TestOCRSpaceKeyFallsBackToPublicKey(t *testing.T) {
	cfg := Default()
	cfg.OCRSpace.APIKey = ""
	assert.Equal(t, PublicOCRSpaceKey, OCRSpaceKey(cfg))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SCORECARD_TEST_DOTENV=loaded\n"), 0644))
	t.Setenv("SCORECARD_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("SCORECARD_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("SCORECARD_TEST_DOTENV"))
}
