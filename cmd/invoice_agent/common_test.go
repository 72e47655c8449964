package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/invoice-reconciler/internal/config"
	"github.com/jonathan/invoice-reconciler/internal/extract"
	"github.com/jonathan/invoice-reconciler/internal/llm"
	"github.com/jonathan/invoice-reconciler/internal/llm/llmtest"
	"github.com/jonathan/invoice-reconciler/internal/pipeline"
)

const poPayload = `{"document_type": "purchase_order", "documents": [{"purchase_order_id": "PO-100", "line_items": [
  {"product_number": "PO-100", "product_name": "Gate valve", "units": 10, "unit_price": 5, "tax_rate": 0.18, "tax_amount": 9, "total_value": 59, "currency": "INR"}]}]}`

const invoiceEnvelope = `{"run_id": "r1", "success": true, "format": "json", "data":
  {"document_type": "invoice", "documents": [{"invoice_id": "INV-1", "line_items": [
  {"product_number": "100", "product_name": "Gate valve", "units": 12, "unit_price": 5, "tax_rate": 0.18, "tax_amount": 10.8, "total_value": 70.8, "currency": "INR"}]}]}}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadPayload(t *testing.T) {
	dir := t.TempDir()

	po, err := readPayload(writeFile(t, dir, "po.json", poPayload))
	require.NoError(t, err)
	assert.Equal(t, "purchase_order", po.DocumentType)
	require.Len(t, po.LineItems(), 1)

	inv, err := readPayload(writeFile(t, dir, "inv.json", invoiceEnvelope))
	require.NoError(t, err)
	assert.Equal(t, "invoice", inv.DocumentType)
	assert.Equal(t, 12.0, *inv.LineItems()[0].Units)
}

func TestReadPayload_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"raw text envelope", `{"success": false, "format": "raw_text", "error": "invalid JSON response from model"}`, "unsuccessful normalization"},
		{"not JSON", `hello`, "failed to parse"},
		{"wrong shape", `{"documents": "nope"}`, "failed to parse normalized payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readPayload(writeFile(t, dir, tt.name+".json", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := readPayload(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	require.NoError(t, writeJSON(path, map[string]int{"a": 1}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}\n", string(data))
}

func TestPipelineOptions(t *testing.T) {
	cfg := config.Defaults()
	cfg.Currency = "USD"
	cfg.Tolerance = 0.5
	cfg.ModelReview = true

	opts := pipelineOptions(cfg)
	assert.Equal(t, "USD", opts.Currency)
	assert.Equal(t, 0.5, opts.Tolerance)
	assert.Equal(t, 0.6, opts.SimilarityThreshold)
	assert.True(t, opts.ModelReview)
	assert.Nil(t, opts.OnProgress)
	assert.NoError(t, opts.Validate())
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := newClient(context.Background(), config.Defaults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "extraction",
			err:  &extract.ErrorBundle{File: "a.doc", Message: `unsupported file format ".doc"`},
			want: `could not read a.doc: unsupported file format ".doc"`,
		},
		{
			name: "model unavailable",
			err:  &pipeline.ModelUnavailableError{Stage: "normalize", Cause: &llm.APIError{Category: llm.CategoryQuota, Message: "quota exhausted"}},
			want: "the model is unavailable (quota_exceeded); try again later: quota exhausted",
		},
		{
			name: "other",
			err:  errors.New("boom"),
			want: "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeError(tt.err))
		})
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "batch/manifest.json", `[
  {"name": "acme march", "po": "po/acme.xlsx", "invoice": "/abs/inv.pdf"},
  {"po": "b.xlsx", "invoice": "b.pdf"}
]`)

	items, err := loadManifest(path)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "acme_march", items[0].Name)
	assert.Equal(t, filepath.Join(dir, "batch", "po", "acme.xlsx"), items[0].PO)
	assert.Equal(t, "/abs/inv.pdf", items[0].Invoice)
	assert.Equal(t, "pair-2", items[1].Name)
}

func TestLoadManifest_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", `[]`, "lists no pairs"},
		{"missing invoice", `[{"po": "a.xlsx"}]`, "Invoice"},
		{"duplicate names", `[{"name": "x", "po": "a", "invoice": "b"}, {"name": "x", "po": "c", "invoice": "d"}]`, "duplicate name"},
		{"not a list", `{"po": "a"}`, "failed to parse manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadManifest(writeFile(t, dir, tt.name+".json", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestProcessBatch(t *testing.T) {
	dir := t.TempDir()
	invoice := writeFile(t, dir, "inv.json", `{"items": [{"code": "100"}]}`)
	po := writeFile(t, dir, "po.json", `{"items": [{"code": "PO-100"}]}`)

	var inFlight, maxInFlight atomic.Int32
	client := &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			return poPayload, nil
		},
	}

	items := []BatchItem{
		{Name: "one", PO: po, Invoice: invoice},
		{Name: "two", PO: po, Invoice: invoice},
		{Name: "broken", PO: filepath.Join(dir, "missing.xlsx"), Invoice: invoice},
	}
	opts := pipeline.DefaultOptions()
	outDir := filepath.Join(dir, "out")

	outcomes := processBatch(context.Background(), client, items, outDir, 2, opts)
	require.Len(t, outcomes, 3)

	assert.Equal(t, "one", outcomes[0].Name)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, "ALL GOOD: 1 of 1 items match", outcomes[0].Summary)
	assert.FileExists(t, filepath.Join(outDir, "one.json"))
	assert.FileExists(t, filepath.Join(outDir, "two.json"))

	var extractErr *extract.ErrorBundle
	assert.True(t, errors.As(outcomes[2].Err, &extractErr))
	assert.NoFileExists(t, filepath.Join(outDir, "broken.json"))

	assert.LessOrEqual(t, maxInFlight.Load(), int32(2))
}
