package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/invoice-reconciler/internal/llm"
	"github.com/jonathan/invoice-reconciler/internal/llm/llmtest"
	"github.com/jonathan/invoice-reconciler/internal/pipeline"
	"github.com/jonathan/invoice-reconciler/internal/server/ratelimit"
)

const modelInvoice = `{"document_type": "invoice", "documents": [{"purchase_order_id": "PO-100", "invoice_id": "INV-7", "vendor_name": null, "vendor_id": null, "customer_name": null, "customer_id": null, "issue_date": null, "due_date": null, "payment_terms": null,
  "line_items": [{"product_number": "VI-3423", "product_name": "Pump", "units": 30, "unit_price": 3389, "tax_rate": 18, "tax_amount": null, "total_value": null, "currency": "INR"}]}]}`

const modelPO = `{"document_type": "purchase_order", "documents": [{"purchase_order_id": "PO-100", "invoice_id": null, "vendor_name": null, "vendor_id": null, "customer_name": null, "customer_id": null, "issue_date": null, "due_date": null, "payment_terms": null,
  "line_items": [{"product_number": "3423", "product_name": "Pump", "units": 30, "unit_price": 3400, "tax_rate": 0.18, "tax_amount": null, "total_value": null, "currency": "INR"}]}]}`

type upload struct {
	field, name, content string
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestServer(client llm.Client) *Server {
	rl := ratelimit.DefaultConfig()
	rl.Enabled = false
	return New(Config{Port: 0, Pipeline: pipeline.DefaultOptions(), RateLimit: rl}, client)
}

func modelClient() *llmtest.MockClient {
	return &llmtest.MockClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			if strings.Contains(prompt, "purchase order document") {
				return modelPO, nil
			}
			return modelInvoice, nil
		},
	}
}

func do(t *testing.T, s *Server, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	rec := do(t, newTestServer(&llmtest.MockClient{}), "GET", "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	rec := do(t, newTestServer(&llmtest.MockClient{}), "OPTIONS", "/normalize", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleNormalize(t *testing.T) {
	s := newTestServer(modelClient())
	body, ct := multipartBody(t, map[string]string{"document_type": "invoice"},
		upload{"file", "invoice.json", `{"items": [{"code": "VI-3423", "qty": 30}]}`})

	rec := do(t, s, "POST", "/normalize", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		RunID   string `json:"run_id"`
		Success bool   `json:"success"`
		Format  string `json:"format"`
		Data    struct {
			Documents []struct {
				LineItems []struct {
					TaxRate    float64 `json:"tax_rate"`
					TotalValue float64 `json:"total_value"`
				} `json:"line_items"`
			} `json:"documents"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "json", env.Format)
	assert.NotEmpty(t, env.RunID)
	assert.InDelta(t, 0.18, env.Data.Documents[0].LineItems[0].TaxRate, 1e-9)
	assert.InDelta(t, 119970.60, env.Data.Documents[0].LineItems[0].TotalValue, 1e-9)
}

func TestHandleNormalize_Errors(t *testing.T) {
	failing := &llmtest.MockClient{
		GenerateJSONFunc: func(context.Context, string, llm.ModelTier) (string, error) {
			return "", &llm.APIError{Category: llm.CategoryTimeout, Message: "deadline exceeded"}
		},
	}

	tests := []struct {
		name       string
		client     llm.Client
		fields     map[string]string
		files      []upload
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing file",
			client:     modelClient(),
			wantStatus: http.StatusBadRequest,
			wantError:  "file",
		},
		{
			name:       "bad document type",
			client:     modelClient(),
			fields:     map[string]string{"document_type": "receipt"},
			files:      []upload{{"file", "a.json", `{}`}},
			wantStatus: http.StatusBadRequest,
			wantError:  "document_type",
		},
		{
			name:       "unsupported format",
			client:     modelClient(),
			files:      []upload{{"file", "notes.txt", "plain words only"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "unsupported file format",
		},
		{
			name:       "model timeout",
			client:     failing,
			files:      []upload{{"file", "a.json", `{"items": []}`}},
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "model unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.fields, tt.files...)
			rec := do(t, newTestServer(tt.client), "POST", "/normalize", body, ct)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp["error"], tt.wantError)
		})
	}
}

func TestHandleNormalize_NotMultipart(t *testing.T) {
	rec := do(t, newTestServer(modelClient()), "POST", "/normalize", bytes.NewBufferString(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCompare(t *testing.T) {
	client := modelClient()
	body, ct := multipartBody(t, nil,
		upload{"po", "po.json", `{"items": [{"code": "3423"}]}`},
		upload{"invoice", "invoice.json", `{"items": [{"code": "VI-3423"}]}`})

	rec := do(t, newTestServer(client), "POST", "/compare", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		RunID      string `json:"run_id"`
		Comparison struct {
			Success bool `json:"success"`
			Data    struct {
				ComparisonResults []struct {
					Status             string `json:"status"`
					DiscrepancyDetails string `json:"discrepancy_details"`
				} `json:"comparison_results"`
				Summary struct {
					TotalItems      int `json:"total_items"`
					MismatchedItems int `json:"mismatched_items"`
				} `json:"summary"`
			} `json:"data"`
		} `json:"comparison"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.RunID)
	assert.True(t, result.Comparison.Success)
	assert.Equal(t, 1, result.Comparison.Data.Summary.TotalItems)
	assert.Equal(t, 1, result.Comparison.Data.Summary.MismatchedItems)
	require.Len(t, result.Comparison.Data.ComparisonResults, 1)
	assert.Contains(t, result.Comparison.Data.ComparisonResults[0].DiscrepancyDetails, "unit_price: PO=3400, Invoice=3389")

	// invoice first, then PO
	prompts := client.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], "invoice document")
}

func TestHandleCompare_MissingPO(t *testing.T) {
	body, ct := multipartBody(t, nil, upload{"invoice", "invoice.json", `{}`})
	rec := do(t, newTestServer(modelClient()), "POST", "/compare", body, ct)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "po")
}

func TestHandleCompareStream(t *testing.T) {
	body, ct := multipartBody(t, nil,
		upload{"po", "po.json", `{"items": [{"code": "3423"}]}`},
		upload{"invoice", "invoice.json", `{"items": [{"code": "VI-3423"}]}`})

	rec := do(t, newTestServer(modelClient()), "POST", "/compare/stream", body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	out := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(out, "id: 1\nevent: step\n"), out)
	assert.Contains(t, out, "Normalizing invoice")
	assert.Contains(t, out, "event: result\n")
	assert.NotContains(t, out, "event: error")
}

func TestRateLimit(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.Rules = []ratelimit.Rule{{Path: "/normalize", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1}}
	s := New(Config{Pipeline: pipeline.DefaultOptions(), RateLimit: cfg}, modelClient())

	send := func() *httptest.ResponseRecorder {
		body, ct := multipartBody(t, nil, upload{"file", "a.json", `{"items": []}`})
		return do(t, s, "POST", "/normalize", body, ct)
	}

	first := send()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	health := do(t, s, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestUploadName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		want     string
	}{
		{"keeps supported extension", "PO 100.xlsx", "anything", "PO 100.xlsx"},
		{"sniffs pdf", "scan", "%PDF-1.4\n%âãÏÓ\n1 0 obj\n", "scan.pdf"},
		{"sniffs json", "export", `{"invoice_data": []}`, "export.json"},
		{"unknown stays", "notes.txt", "plain words", "notes.txt"},
		{"strips directories", "../../etc/invoice.json", `{}`, "invoice.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := uploadName(&multipart.FileHeader{Filename: tt.filename}, []byte(tt.content))
			assert.Equal(t, tt.want, got)
		})
	}
}
