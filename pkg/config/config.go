package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the policypipe tool
type Config struct {
	// Scraping settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Text processing settings
	Process ProcessConfig `yaml:"process" json:"process"`

	// Translation settings
	Translate TranslateConfig `yaml:"translate" json:"translate"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry configuration
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Embedding settings
	Embed EmbedConfig `yaml:"embed" json:"embed"`

	// Summarization settings
	Summarize SummarizeConfig `yaml:"summarize" json:"summarize"`

	// Gemini API settings
	Gemini GeminiConfig `yaml:"gemini" json:"gemini"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ScrapeConfig holds document download configuration
type ScrapeConfig struct {
	OutputDirectory string        `yaml:"output_directory" json:"output_directory"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	OverwriteLocal  bool          `yaml:"overwrite_local" json:"overwrite_local"`
}

// ProcessConfig holds row-processor configuration
type ProcessConfig struct {
	Mode        string `yaml:"mode" json:"mode"`
	TextColumn  string `yaml:"text_column" json:"text_column"`
	IDColumn    string `yaml:"id_column" json:"id_column"`
	RetryFailed bool   `yaml:"retry_failed" json:"retry_failed"`
}

// TranslateConfig holds translation endpoint configuration
type TranslateConfig struct {
	Endpoint       string `yaml:"endpoint" json:"endpoint"`
	TargetLanguage string `yaml:"target_language" json:"target_language"`
	SampleSize     int    `yaml:"sample_size" json:"sample_size"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds retry behavior configuration
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// EmbedConfig holds chunking and vector store configuration
type EmbedConfig struct {
	Model        string `yaml:"model" json:"model"`
	Dimension    int    `yaml:"dimension" json:"dimension"`
	ChunkSize    int    `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap" json:"chunk_overlap"`
	BatchSize    int    `yaml:"batch_size" json:"batch_size"`
	DatabaseURL  string `yaml:"database_url" json:"database_url"`
}

// SummarizeConfig holds summarization configuration
type SummarizeConfig struct {
	Model        string `yaml:"model" json:"model"`
	MaxDocTokens int    `yaml:"max_doc_tokens" json:"max_doc_tokens"`
	SafetyMargin int    `yaml:"safety_margin" json:"safety_margin"`
}

// GeminiConfig holds Gemini API credentials
type GeminiConfig struct {
	APIKey string `yaml:"api_key" json:"api_key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			OutputDirectory: "./documents",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
				"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
			Timeout:        30 * time.Second,
			OverwriteLocal: false,
		},
		Process: ProcessConfig{
			Mode:        "auto",
			TextColumn:  "text",
			IDColumn:    "file",
			RetryFailed: false,
		},
		Translate: TranslateConfig{
			Endpoint:       "https://translate.googleapis.com/translate_a/single",
			TargetLanguage: "en",
			SampleSize:     1000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			BaseDelay:    1 * time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Embed: EmbedConfig{
			Model:        "gemini-embedding-001",
			Dimension:    0, // 0 stores untyped vectors, whatever the model emits
			ChunkSize:    200,
			ChunkOverlap: 75,
			BatchSize:    16,
			DatabaseURL:  "",
		},
		Summarize: SummarizeConfig{
			Model:        "gemini-1.5-flash",
			MaxDocTokens: 128000,
			SafetyMargin: 1024,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		c.Gemini.APIKey = apiKey
	}
	if dbURL := os.Getenv("POLICYPIPE_DATABASE_URL"); dbURL != "" {
		c.Embed.DatabaseURL = dbURL
	}
	if outputDir := os.Getenv("POLICYPIPE_OUTPUT_DIR"); outputDir != "" {
		c.Scrape.OutputDirectory = outputDir
	}
	if rpm := os.Getenv("POLICYPIPE_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if mode := os.Getenv("POLICYPIPE_MODE"); mode != "" {
		c.Process.Mode = mode
	}
	if target := os.Getenv("POLICYPIPE_TARGET_LANGUAGE"); target != "" {
		c.Translate.TargetLanguage = target
	}
	if logLevel := os.Getenv("POLICYPIPE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".policypipe.yaml",
		".policypipe.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "policypipe", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "policypipe", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".policypipe.yaml"),
		filepath.Join(os.Getenv("HOME"), ".policypipe.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	validModes := map[string]bool{
		"auto": true, "translate": true, "filter": true, "detect_only": true,
	}
	if !validModes[c.Process.Mode] {
		errs = append(errs, fmt.Errorf("invalid processing mode: %q", c.Process.Mode))
	}
	if c.Process.TextColumn == "" {
		errs = append(errs, errors.New("text column name is required"))
	}
	if c.Process.IDColumn == "" {
		errs = append(errs, errors.New("id column name is required"))
	}

	if c.Translate.TargetLanguage == "" {
		errs = append(errs, errors.New("target language is required"))
	}
	if c.Translate.SampleSize <= 0 {
		errs = append(errs, errors.New("detection sample size must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}
	if c.Retry.Multiplier < 1.0 {
		errs = append(errs, errors.New("retry multiplier must be at least 1.0"))
	}

	if c.Scrape.OutputDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Scrape.Timeout <= 0 {
		errs = append(errs, errors.New("scrape timeout must be positive"))
	}

	if c.Embed.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk size must be positive"))
	}
	if c.Embed.ChunkOverlap < 0 || c.Embed.ChunkOverlap >= c.Embed.ChunkSize {
		errs = append(errs, errors.New("chunk overlap must be non-negative and smaller than chunk size"))
	}
	if c.Embed.BatchSize <= 0 {
		errs = append(errs, errors.New("embedding batch size must be positive"))
	}
	// pgvector caps typed columns at 16000 dimensions; 0 leaves the
	// column untyped
	if c.Embed.Dimension < 0 || c.Embed.Dimension > 16000 {
		errs = append(errs, errors.New("embedding dimension must be between 0 and 16000"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if mode, ok := flags["mode"].(string); ok && mode != "" {
		c.Process.Mode = mode
	}
	if textColumn, ok := flags["text-column"].(string); ok && textColumn != "" {
		c.Process.TextColumn = textColumn
	}
	if idColumn, ok := flags["id-column"].(string); ok && idColumn != "" {
		c.Process.IDColumn = idColumn
	}
	if retryFailed, ok := flags["retry-failed"].(bool); ok {
		c.Process.RetryFailed = retryFailed
	}
	if outputDir, ok := flags["output-dir"].(string); ok && outputDir != "" {
		c.Scrape.OutputDirectory = outputDir
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if dbURL, ok := flags["database-url"].(string); ok && dbURL != "" {
		c.Embed.DatabaseURL = dbURL
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".policypipe.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
