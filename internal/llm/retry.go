package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/invoice-reconciler/internal/logger"
)

// RetryConfig defines backoff behavior for transient model failures
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig returns three attempts with 1s, 2s backoff capped at 8s
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        8 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// Backoff returns the delay before the attempt following attempt (1-based)
func (c RetryConfig) Backoff(attempt int) time.Duration {
	delay := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= c.BackoffMultiple
	}
	if d := time.Duration(delay); d < c.MaxDelay || c.MaxDelay == 0 {
		return d
	}
	return c.MaxDelay
}

// RetryingClient wraps a Client and retries calls that fail with a retryable APIError.
// Rate-limit failures wait twice the computed backoff.
type RetryingClient struct {
	inner  Client
	config RetryConfig
	log    zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryingClient wraps inner with the given retry policy
func NewRetryingClient(inner Client, config RetryConfig) *RetryingClient {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &RetryingClient{
		inner:  inner,
		config: config,
		log:    logger.WithComponent("llm"),
		sleep:  sleepContext,
	}
}

// GenerateContent retries inner.GenerateContent
func (c *RetryingClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.do(ctx, tier, func() (string, error) {
		return c.inner.GenerateContent(ctx, prompt, tier)
	})
}

// GenerateJSON retries inner.GenerateJSON
func (c *RetryingClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return c.do(ctx, tier, func() (string, error) {
		return c.inner.GenerateJSON(ctx, prompt, tier)
	})
}

// GetModel delegates to the wrapped client
func (c *RetryingClient) GetModel(tier ModelTier) string {
	return c.inner.GetModel(tier)
}

// Close delegates to the wrapped client
func (c *RetryingClient) Close() error {
	return c.inner.Close()
}

func (c *RetryingClient) do(ctx context.Context, tier ModelTier, call func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		text, err := call()
		if err == nil {
			if attempt > 1 {
				c.log.Info().Int("attempt", attempt).Str("model", c.inner.GetModel(tier)).Msg("model call succeeded after retry")
			}
			return text, nil
		}

		lastErr = CategorizeError(err)
		c.log.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", c.config.MaxAttempts).
			Msg("model call failed")

		if !IsRetryable(lastErr) || attempt == c.config.MaxAttempts {
			break
		}

		delay := c.config.Backoff(attempt)
		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && apiErr.Category == CategoryRateLimit {
			delay *= 2
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", CategorizeError(err)
		}
	}
	return "", lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
