package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jonathan/invoice-reconciler/internal/config"
	"github.com/jonathan/invoice-reconciler/internal/extract"
	"github.com/jonathan/invoice-reconciler/internal/llm"
	"github.com/jonathan/invoice-reconciler/internal/logger"
	"github.com/jonathan/invoice-reconciler/internal/pipeline"
	"github.com/jonathan/invoice-reconciler/internal/schemas"
	"github.com/jonathan/invoice-reconciler/internal/types"
)

// loadSettings resolves config file, environment and defaults, then applies the flags
// that were set explicitly, and initializes logging.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("api-key") {
		cfg.APIKey = apiKey
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if flags.Changed("currency") {
		cfg.Currency = strings.ToUpper(currency)
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if flags.Changed("threshold") {
		cfg.SimilarityThreshold = threshold
	}
	if flags.Changed("model-review") {
		cfg.ModelReview = modelReview
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	level := cfg.LogLevel
	if cfg.Verbose && level == "info" {
		level = "debug"
	}
	logger.Init(logger.Options{
		Level:  level,
		Pretty: cfg.Verbose || isatty.IsTerminal(os.Stderr.Fd()),
	})

	if configPath != "" && cfg.Verbose {
		_, _ = fmt.Fprintf(os.Stderr, "Loaded config from: %s\n", configPath)
	}
	return cfg, nil
}

// newClient builds the retrying Gemini client described by cfg
func newClient(ctx context.Context, cfg config.Config) (llm.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s environment variable or --api-key flag is required", config.EnvAPIKey)
	}

	llmCfg := llm.DefaultConfig()
	if cfg.Model != "" {
		for tier := range llmCfg.Models {
			llmCfg.Models[tier] = cfg.Model
		}
	}
	llmCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, err
	}

	retry := llm.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryAttempts
	return llm.NewRetryingClient(client, retry), nil
}

// pipelineOptions maps the resolved config onto pipeline options
func pipelineOptions(cfg config.Config) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Currency = cfg.Currency
	opts.Tolerance = cfg.Tolerance
	opts.SimilarityThreshold = cfg.SimilarityThreshold
	opts.ModelReview = cfg.ModelReview
	if cfg.Verbose {
		opts.OnProgress = printProgress
	}
	return opts
}

func printProgress(ev pipeline.ProgressEvent) {
	_, _ = fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Step, ev.Message)
}

// writeJSON writes v as indented JSON to path, or to stdout when path is empty or "-"
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// readPayload loads a normalized payload from a file holding either the bare payload
// or a normalize envelope.
func readPayload(path string) (*types.NormalizationPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var probe struct {
		Format  string          `json:"format"`
		Success *bool           `json:"success"`
		Error   string          `json:"error"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if probe.Success != nil {
		if !*probe.Success || probe.Format != types.FormatJSON {
			return nil, fmt.Errorf("%s holds an unsuccessful normalization: %s", path, probe.Error)
		}
		data = probe.Data
	}

	var payload types.NormalizationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse normalized payload in %s: %w", path, err)
	}
	return &payload, nil
}

// describeError turns the typed pipeline errors into exit messages
func describeError(err error) string {
	var (
		extractErr  *extract.ErrorBundle
		unavailable *pipeline.ModelUnavailableError
		validation  *pipeline.ValidationError
		schemaErr   *schemas.ValidationError
		apiErr      *llm.APIError
	)
	switch {
	case errors.As(err, &extractErr):
		return fmt.Sprintf("could not read %s: %s", extractErr.File, extractErr.Message)
	case errors.As(err, &unavailable) && errors.As(err, &apiErr):
		return fmt.Sprintf("the model is unavailable (%s); try again later: %s", apiErr.Category, apiErr.Message)
	case errors.As(err, &unavailable):
		return unavailable.Error()
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &schemaErr):
		return schemaErr.Error()
	default:
		return err.Error()
	}
}
