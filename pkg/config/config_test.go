package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)

	// Test Scrape defaults
	assert.Equal(t, "./documents", cfg.Scrape.OutputDirectory)
	assert.NotEmpty(t, cfg.Scrape.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.Scrape.Timeout)
	assert.False(t, cfg.Scrape.OverwriteLocal)

	// Test Process defaults
	assert.Equal(t, "auto", cfg.Process.Mode)
	assert.Equal(t, "text", cfg.Process.TextColumn)
	assert.Equal(t, "file", cfg.Process.IDColumn)
	assert.False(t, cfg.Process.RetryFailed)

	// Test Translate defaults
	assert.Equal(t, "en", cfg.Translate.TargetLanguage)
	assert.Equal(t, 1000, cfg.Translate.SampleSize)
	assert.NotEmpty(t, cfg.Translate.Endpoint)

	// Test RateLimit defaults
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 10, cfg.RateLimit.BurstSize)

	// Test Retry defaults
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1*time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 60*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 2.0, cfg.Retry.Multiplier)
	assert.Equal(t, 0.1, cfg.Retry.JitterFactor)

	// Test Embed defaults
	assert.Equal(t, "gemini-embedding-001", cfg.Embed.Model)
	assert.Equal(t, 200, cfg.Embed.ChunkSize)
	assert.Equal(t, 75, cfg.Embed.ChunkOverlap)
	assert.Equal(t, 16, cfg.Embed.BatchSize)

	// Test Summarize defaults
	assert.Equal(t, "gemini-1.5-flash", cfg.Summarize.Model)
	assert.Equal(t, 128000, cfg.Summarize.MaxDocTokens)

	// Test Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.File)
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadFromEnv(t *testing.T) {
	envVars := map[string]string{
		"GEMINI_API_KEY":                 "test-key",
		"POLICYPIPE_OUTPUT_DIR":          "/tmp/docs",
		"POLICYPIPE_REQUESTS_PER_MINUTE": "30",
		"POLICYPIPE_MODE":                "filter",
		"POLICYPIPE_TARGET_LANGUAGE":     "fr",
		"POLICYPIPE_LOG_LEVEL":           "debug",
	}
	for k, v := range envVars {
		t.Setenv(k, v)
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, "/tmp/docs", cfg.Scrape.OutputDirectory)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "filter", cfg.Process.Mode)
	assert.Equal(t, "fr", cfg.Translate.TargetLanguage)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
scrape:
  output_directory: /data/policy-docs
process:
  mode: translate
  retry_failed: true
translate:
  target_language: en
  sample_size: 500
rate_limit:
  requests_per_minute: 20
  burst_size: 5
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "/data/policy-docs", cfg.Scrape.OutputDirectory)
	assert.Equal(t, "translate", cfg.Process.Mode)
	assert.True(t, cfg.Process.RetryFailed)
	assert.Equal(t, 500, cfg.Translate.SampleSize)
	assert.Equal(t, 20, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Values not in the file keep their defaults
	assert.Equal(t, "text", cfg.Process.TextColumn)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"invalid mode", func(c *Config) { c.Process.Mode = "yolo" }, true},
		{"empty text column", func(c *Config) { c.Process.TextColumn = "" }, true},
		{"empty id column", func(c *Config) { c.Process.IDColumn = "" }, true},
		{"empty target language", func(c *Config) { c.Translate.TargetLanguage = "" }, true},
		{"zero sample size", func(c *Config) { c.Translate.SampleSize = 0 }, true},
		{"zero rate limit", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }, true},
		{"negative retries", func(c *Config) { c.Retry.MaxAttempts = -1 }, true},
		{"empty output dir", func(c *Config) { c.Scrape.OutputDirectory = "" }, true},
		{"overlap exceeds chunk", func(c *Config) { c.Embed.ChunkOverlap = 300 }, true},
		{"negative embedding dimension", func(c *Config) { c.Embed.Dimension = -1 }, true},
		{"embedding dimension over pgvector cap", func(c *Config) { c.Embed.Dimension = 16001 }, true},
		{"typed embedding dimension", func(c *Config) { c.Embed.Dimension = 768 }, false},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()

	cfg.MergeCommandLineFlags(map[string]interface{}{
		"mode":         "detect_only",
		"text-column":  "body",
		"id-column":    "source",
		"retry-failed": true,
		"rate-limit":   15,
		"log-level":    "error",
	})

	assert.Equal(t, "detect_only", cfg.Process.Mode)
	assert.Equal(t, "body", cfg.Process.TextColumn)
	assert.Equal(t, "source", cfg.Process.IDColumn)
	assert.True(t, cfg.Process.RetryFailed)
	assert.Equal(t, 15, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Process.Mode = "filter"
	cfg.RateLimit.RequestsPerMinute = 42
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "filter", loaded.Process.Mode)
	assert.Equal(t, 42, loaded.RateLimit.RequestsPerMinute)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("process:\n  mode: translate\n"), 0644))

	t.Setenv("POLICYPIPE_MODE", "filter")

	// Flags beat env, env beats file
	cfg, err := Load(path, map[string]interface{}{"mode": "detect_only"})
	require.NoError(t, err)
	assert.Equal(t, "detect_only", cfg.Process.Mode)

	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "filter", cfg.Process.Mode)
}
