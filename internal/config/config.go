// =============================================================================
// Journal CSV Converter - Configuration Module
// =============================================================================
//
// This module loads the application configuration. Settings come from three
// places, later ones winning:
//   1. Built-in defaults (applyMainConfigDefaults)
//   2. The YAML config file (config.yaml by default; optional)
//   3. Environment variables, including a .env file in the working directory
//
// ENVIRONMENT VARIABLES:
//   OPENAI_API_KEY        - API key for the openai provider
//   GEMINI_API_KEY        - API key for the gemini provider
//   JOURNAL_LLM_PROVIDER  - "openai" or "gemini"
//   JOURNAL_LLM_MODEL     - model identifier
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported model providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Defaults.
const (
	DefaultModel          = "gpt-4o-mini"
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultTemperature    = 0.3
	DefaultMaxRows        = 50
	DefaultTimeout        = 2 * time.Minute
	DefaultFileNameFormat = "kaikei_journal_{timestamp}.csv"
	DefaultOpenAIBaseURL  = "https://api.openai.com/v1"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// OutputDir is where the convert command writes exported journal files.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// FileNameFormat names exported files.
	// Placeholders:
	//   {timestamp} - Generation time (YYYYMMDD_HHMMSS)
	//   {date}      - Generation date (YYYYMMDD)
	//   {uuid}      - A random UUID
	// Default: "kaikei_journal_{timestamp}.csv"
	FileNameFormat string `yaml:"file_name_format"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	LLM         LLMConfig    `yaml:"llm"`
	Prompt      PromptConfig `yaml:"prompt"`
	CSVSettings CSVSettings  `yaml:"csv_settings"`
	Server      ServerConfig `yaml:"server"`
}

// LLMConfig selects and configures the model used for conversion.
type LLMConfig struct {
	// Provider is "openai" or "gemini".
	Provider string `yaml:"provider"`

	// Model is the model identifier sent with every request.
	Model string `yaml:"model"`

	// APIKey is normally supplied through the environment rather than the
	// config file.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the OpenAI-compatible endpoint.
	BaseURL string `yaml:"base_url"`

	// Temperature is the sampling temperature. Low values favour
	// repeatable output. Default: 0.3
	Temperature *float64 `yaml:"temperature"`

	// Timeout bounds a single model call.
	// Default: 2m
	Timeout time.Duration `yaml:"timeout"`
}

// PromptConfig controls prompt construction.
type PromptConfig struct {
	// MaxRows caps the number of source rows embedded in the prompt.
	// Default: 50
	MaxRows int `yaml:"max_rows"`
}

// CSVSettings contains settings for reading CSV source files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows in the CSV file.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// Encoding is the character encoding of the CSV file.
	// Supported values: "UTF-8", "Shift_JIS"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: "127.0.0.1:8501"
	Addr string `yaml:"addr"`

	// MaxUploadMB limits the size of uploaded workbooks.
	// Default: 20
	MaxUploadMB int `yaml:"max_upload_mb"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the configuration from a YAML file. A missing file is
// not an error: defaults and the environment are used instead.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// A missing .env file is fine.
	_ = godotenv.Load()

	config.applyEnvOverrides()
	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied and no
// environment overrides.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// applyEnvOverrides copies settings from the environment. The API key for
// the selected provider is only taken from the environment when the config
// file did not set one.
func (c *MainConfig) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("JOURNAL_LLM_PROVIDER")); v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("JOURNAL_LLM_MODEL")); v != "" {
		c.LLM.Model = v
	}

	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case ProviderGemini:
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	case ProviderOpenAI, "":
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.FileNameFormat == "" {
		config.FileNameFormat = DefaultFileNameFormat
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = ProviderOpenAI
	}
	if config.LLM.Model == "" {
		config.LLM.Model = DefaultModel
		if config.LLM.Provider == ProviderGemini {
			config.LLM.Model = DefaultGeminiModel
		}
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == ProviderOpenAI {
		config.LLM.BaseURL = DefaultOpenAIBaseURL
	}
	if config.LLM.Temperature == nil {
		t := DefaultTemperature
		config.LLM.Temperature = &t
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = DefaultTimeout
	}

	if config.Prompt.MaxRows == 0 {
		config.Prompt.MaxRows = DefaultMaxRows
	}

	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.HeaderRows == 0 {
		config.CSVSettings.HeaderRows = 1
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = "127.0.0.1:8501"
	}
	if config.Server.MaxUploadMB == 0 {
		config.Server.MaxUploadMB = 20
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch config.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown llm provider %q", config.LLM.Provider)
	}

	if t := *config.LLM.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("llm temperature %v out of range [0, 2]", t)
	}
	if config.LLM.Timeout < 0 {
		return fmt.Errorf("llm timeout must not be negative")
	}
	if config.Prompt.MaxRows < 0 {
		return fmt.Errorf("prompt max_rows must be positive")
	}
	if config.CSVSettings.HeaderRows < 0 {
		return fmt.Errorf("csv header_rows must be at least 1")
	}

	switch strings.ToUpper(strings.ReplaceAll(config.CSVSettings.Encoding, "-", "_")) {
	case "UTF_8", "UTF8", "SHIFT_JIS", "SJIS":
	default:
		return fmt.Errorf("unsupported csv encoding %q", config.CSVSettings.Encoding)
	}

	return nil
}

// TemperatureValue returns the configured sampling temperature.
func (c LLMConfig) TemperatureValue() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// IsShiftJIS reports whether the CSV source encoding is Shift_JIS.
func (s CSVSettings) IsShiftJIS() bool {
	enc := strings.ToUpper(strings.ReplaceAll(s.Encoding, "-", "_"))
	return enc == "SHIFT_JIS" || enc == "SJIS"
}
