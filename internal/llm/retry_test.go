package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/jonathan/invoice-reconciler/internal/logger"
)

// scriptedClient returns the queued results in order
type scriptedClient struct {
	results []error
	calls   int
}

func (s *scriptedClient) GenerateContent(_ context.Context, _ string, _ ModelTier) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.results) && s.results[i] != nil {
		return "", s.results[i]
	}
	return `{"ok": true}`, nil
}

func (s *scriptedClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return s.GenerateContent(ctx, prompt, tier)
}

func (s *scriptedClient) GetModel(_ ModelTier) string { return "scripted" }
func (s *scriptedClient) Close() error                { return nil }

func newTestRetryingClient(inner Client, cfg RetryConfig) (*RetryingClient, *[]time.Duration) {
	c := NewRetryingClient(inner, cfg)
	c.log = logger.Nop()
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestRetryingClient_RetriesTransientErrors(t *testing.T) {
	inner := &scriptedClient{results: []error{&googleapi.Error{Code: 503}, &googleapi.Error{Code: 500}}}
	c, slept := newTestRetryingClient(inner, DefaultRetryConfig())

	text, err := c.GenerateJSON(context.Background(), "prompt", TierStandard)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, text)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *slept)
}

func TestRetryingClient_StopsOnPermanentError(t *testing.T) {
	inner := &scriptedClient{results: []error{&googleapi.Error{Code: 401}}}
	c, slept := newTestRetryingClient(inner, DefaultRetryConfig())

	_, err := c.GenerateContent(context.Background(), "prompt", TierStandard)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, CategoryUnauthorized, apiErr.Category)
	assert.Equal(t, 1, inner.calls)
	assert.Empty(t, *slept)
}

func TestRetryingClient_GivesUpAfterMaxAttempts(t *testing.T) {
	transient := &googleapi.Error{Code: 503}
	inner := &scriptedClient{results: []error{transient, transient, transient, transient}}
	c, _ := newTestRetryingClient(inner, DefaultRetryConfig())

	_, err := c.GenerateContent(context.Background(), "prompt", TierStandard)
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls)
	assert.True(t, IsRetryable(err))
}

func TestRetryingClient_RateLimitDoublesDelay(t *testing.T) {
	inner := &scriptedClient{results: []error{&googleapi.Error{Code: 429}}}
	c, slept := newTestRetryingClient(inner, DefaultRetryConfig())

	_, err := c.GenerateContent(context.Background(), "prompt", TierStandard)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second}, *slept)
}

func TestRetryingClient_ContextCanceledDuringBackoff(t *testing.T) {
	inner := &scriptedClient{results: []error{&googleapi.Error{Code: 503}}}
	c := NewRetryingClient(inner, DefaultRetryConfig())
	c.log = logger.Nop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GenerateContent(ctx, "prompt", TierStandard)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 1*time.Second, cfg.Backoff(1))
	assert.Equal(t, 2*time.Second, cfg.Backoff(2))
	assert.Equal(t, 4*time.Second, cfg.Backoff(3))
	assert.Equal(t, 8*time.Second, cfg.Backoff(4))
	assert.Equal(t, 8*time.Second, cfg.Backoff(6))
}

func TestNewRetryingClient_ClampsAttempts(t *testing.T) {
	inner := &scriptedClient{}
	c := NewRetryingClient(inner, RetryConfig{})
	assert.Equal(t, 1, c.config.MaxAttempts)
	assert.Equal(t, "scripted", c.GetModel(TierLite))
	assert.NoError(t, c.Close())
}
