package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathan/invoice-reconciler/internal/compare"
	"github.com/jonathan/invoice-reconciler/internal/llm"
	"github.com/jonathan/invoice-reconciler/internal/logger"
	"github.com/jonathan/invoice-reconciler/internal/prompts"
	"github.com/jonathan/invoice-reconciler/internal/sanitize"
	"github.com/jonathan/invoice-reconciler/internal/schemas"
	"github.com/jonathan/invoice-reconciler/internal/types"
)

// Compare matches the PO against the invoice and returns the comparison envelope.
// The rows always come from the deterministic matcher. With ModelReview set the model's
// own comparison is collected as warnings only; client may be nil otherwise.
func Compare(ctx context.Context, client llm.Client, po, invoice *types.NormalizationPayload, opts Options) (*types.Envelope, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return comparePayloads(ctx, client, po, invoice, opts, uuid.NewString())
}

func comparePayloads(ctx context.Context, client llm.Client, po, invoice *types.NormalizationPayload, opts Options, runID string) (*types.Envelope, error) {
	log := logger.WithComponent("pipeline").With().Str("run_id", runID).Logger()

	opts.emitProgress(runID, "compare", "match", "Matching line items", nil)
	report := opts.matcher().Compare(po, invoice)

	env := &types.Envelope{
		RunID:   runID,
		Success: true,
		Format:  types.FormatJSON,
		Data:    report,
	}

	if !opts.SkipSchemaValidation {
		if err := schemas.ValidateComparison(report); err != nil {
			log.Warn().Err(err).Msg("comparison report does not match schema")
			env.Warnings = append(env.Warnings, err.Error())
		}
	}

	if opts.ModelReview {
		if client == nil {
			return nil, &ValidationError{Field: "client", Message: "model review requires a model client"}
		}
		if err := review(ctx, client, po, invoice, report, env, opts, log); err != nil {
			return nil, err
		}
	}

	opts.emitProgress(runID, "compare", "summary", summaryLine(report.Summary), report.Summary)
	return env, nil
}

// review sends the comparison prompt and records where the model disagrees with the matcher
func review(ctx context.Context, client llm.Client, po, invoice *types.NormalizationPayload, report *types.ComparisonReport, env *types.Envelope, opts Options, log zerolog.Logger) error {
	prompt, err := prompts.BuildComparisonPrompt(invoice, po, opts.buildOptions())
	if err != nil {
		return fmt.Errorf("failed to build comparison prompt: %w", err)
	}

	opts.emitProgress(env.RunID, "compare", "review", "Requesting model review", nil)
	log.Info().Int("prompt_length", len(prompt)).Msg("sending comparison to model for review")

	raw, err := client.GenerateJSON(ctx, prompt, opts.ReviewTier)
	if err != nil {
		log.Warn().Err(err).Msg("model review unavailable")
		env.Warnings = append(env.Warnings, (&ModelUnavailableError{Stage: "review", Cause: err}).Error())
		return nil
	}
	env.RawResponseLength = len(raw)

	var reviewed types.ComparisonReport
	if _, err := sanitize.SanitizeInto(raw, &reviewed); err != nil {
		var malformed *sanitize.MalformedResponseError
		if !errors.As(err, &malformed) {
			return err
		}
		log.Warn().Str("detail", malformed.Detail).Msg("model review response is not valid JSON")
		env.Warnings = append(env.Warnings, "model review ignored: "+malformed.Error())
		env.RawResponse = malformed.RawExcerpt
		return nil
	}

	disagreements := Disagreements(report, &reviewed)
	if len(disagreements) > 0 {
		log.Warn().Int("disagreements", len(disagreements)).Msg("model review disagrees with matcher")
	}
	env.Warnings = append(env.Warnings, disagreements...)
	return nil
}

// Disagreements lists the reviewed rows whose status differs from the matcher row with
// the same normalized product key. Rows the matcher never produced are ignored.
func Disagreements(report, reviewed *types.ComparisonReport) []string {
	if report == nil || reviewed == nil {
		return nil
	}

	statuses := make(map[string]string, len(report.ComparisonResults))
	for _, row := range report.ComparisonResults {
		key := compare.NormalizeKey(row.ProductNumber)
		if _, seen := statuses[key]; !seen && key != "" {
			statuses[key] = row.Status
		}
	}

	var out []string
	seen := make(map[string]bool)
	for _, row := range reviewed.ComparisonResults {
		key := compare.NormalizeKey(row.ProductNumber)
		want, ok := statuses[key]
		if !ok || seen[key] || row.Status == want {
			continue
		}
		seen[key] = true
		out = append(out, fmt.Sprintf("model review disagrees on product %s: model=%s, matcher=%s", key, row.Status, want))
	}
	return out
}

func summaryLine(s types.ComparisonSummary) string {
	return fmt.Sprintf("%d matched, %d mismatched, %d PO only, %d invoice only",
		s.MatchedItems, s.MismatchedItems, s.POOnlyItems, s.InvoiceOnlyItems)
}
