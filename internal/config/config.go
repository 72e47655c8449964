// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Environment variables read by FromEnv
const (
	EnvAPIKey   = "GEMINI_API_KEY"
	EnvModel    = "GEMINI_MODEL"
	EnvCurrency = "INVOICE_CURRENCY"
	EnvLogLevel = "LOG_LEVEL"
	EnvPort     = "PORT"
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or come from CLI flags.
type Config struct {
	// Model
	APIKey         string `json:"api_key,omitempty"`                                        // Gemini API key
	Model          string `json:"model,omitempty"`                                          // Model override for every tier
	RetryAttempts  int    `json:"retry_attempts,omitempty" validate:"omitempty,min=1,max=10"` // Attempts per model call
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" validate:"omitempty,min=1"`     // Per-call timeout

	// Reconciliation and comparison
	Currency            string  `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`             // ISO 4217 code for normalization
	Tolerance           float64 `json:"tolerance,omitempty" validate:"omitempty,gt=0,lt=1000"`           // Numeric equality tolerance
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty" validate:"omitempty,gt=0,lte=1"` // Minimum fuzzy score
	ModelReview         bool    `json:"model_review,omitempty"`                                          // Cross-check comparisons with the model

	// Runtime
	Verbose     bool   `json:"verbose,omitempty"`                                   // Print detailed debug information
	LogLevel    string `json:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	Concurrency int    `json:"concurrency,omitempty" validate:"omitempty,min=1,max=32"` // Parallel pairs in batch mode
	Port        int    `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`     // HTTP server port
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		RetryAttempts:       3,
		TimeoutSeconds:      120,
		Currency:            "INR",
		Tolerance:           0.01,
		SimilarityThreshold: 0.6,
		LogLevel:            "info",
		Concurrency:         2,
		Port:                8080,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a Config from environment variables. Unset or unparsable values are left zero.
func FromEnv() Config {
	cfg := Config{
		APIKey:   os.Getenv(EnvAPIKey),
		Model:    os.Getenv(EnvModel),
		Currency: strings.ToUpper(strings.TrimSpace(os.Getenv(EnvCurrency))),
		LogLevel: strings.ToLower(strings.TrimSpace(os.Getenv(EnvLogLevel))),
	}
	if port, err := strconv.Atoi(os.Getenv(EnvPort)); err == nil {
		cfg.Port = port
	}
	return cfg
}

// Validate checks that the configuration has valid values.
// Required values such as the API key are checked by the commands that need them.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
// Calling it in order file, env, built-ins gives file > env > built-in precedence.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.Currency == "" {
		result.Currency = defaults.Currency
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}

	if result.RetryAttempts == 0 {
		result.RetryAttempts = defaults.RetryAttempts
	}
	if result.TimeoutSeconds == 0 {
		result.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	if result.Tolerance == 0 {
		result.Tolerance = defaults.Tolerance
	}
	if result.SimilarityThreshold == 0 {
		result.SimilarityThreshold = defaults.SimilarityThreshold
	}

	// Bool fields: cannot distinguish unset from false, so true wins
	result.ModelReview = result.ModelReview || defaults.ModelReview
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// Resolve loads the optional config file and layers it over the environment and the
// built-in defaults. CLI flags are applied on top by the caller.
func Resolve(path string) (Config, error) {
	file := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		file = loaded
	}

	env := FromEnv()
	withEnv := env.MergeWithDefaults(Defaults())
	cfg := file.MergeWithDefaults(withEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
