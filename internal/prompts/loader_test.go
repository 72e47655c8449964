package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get(NormalizationFile, NormalizeKey)
	require.NoError(t, err)
	assert.Contains(t, prompt, "standard business keys")

	prompt, err = Get(ComparisonFile, CompareKey)
	require.NoError(t, err)
	assert.Contains(t, prompt, "numeric-only substring")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get(NormalizationFile, "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestFormat(t *testing.T) {
	template := "Currency {{.Currency}}, tolerance {{.Tolerance}}"
	result := Format(template, map[string]string{
		"Currency":  "INR",
		"Tolerance": "0.01",
	})
	assert.Equal(t, "Currency INR, tolerance 0.01", result)
}

func TestFormat_ValuesAreNotReexpanded(t *testing.T) {
	template := "{{.RawData}} / {{.Currency}}"
	result := Format(template, map[string]string{
		"RawData":  "cell says {{.Currency}}",
		"Currency": "INR",
	})
	assert.Equal(t, "cell says {{.Currency}} / INR", result)
}

func TestFormat_MissingKeyLeavesPlaceholder(t *testing.T) {
	assert.Equal(t, "Hello {{.Name}}", Format("Hello {{.Name}}", map[string]string{}))
}

func TestKeys(t *testing.T) {
	ClearCache()

	keys, err := Keys(ComparisonFile)
	require.NoError(t, err)
	assert.Equal(t, []string{CompareKey}, keys)
}

func TestCaching(t *testing.T) {
	ClearCache()

	first, err := Get(NormalizationFile, NormalizeKey)
	require.NoError(t, err)
	second, err := Get(NormalizationFile, NormalizeKey)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
