// Package pipeline runs extraction bundles through the model and the deterministic
// reconciliation and comparison stages, producing result envelopes.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/invoice-reconciler/internal/extract"
	"github.com/jonathan/invoice-reconciler/internal/llm"
	"github.com/jonathan/invoice-reconciler/internal/logger"
	"github.com/jonathan/invoice-reconciler/internal/prompts"
	"github.com/jonathan/invoice-reconciler/internal/reconcile"
	"github.com/jonathan/invoice-reconciler/internal/sanitize"
	"github.com/jonathan/invoice-reconciler/internal/schemas"
	"github.com/jonathan/invoice-reconciler/internal/types"
)

// NormalizeDocument maps one extraction bundle onto the canonical schema.
//
// A model failure is returned as a *ModelUnavailableError. A response that cannot be
// parsed is not an error: the envelope comes back with format raw_text and the bounded
// excerpt so the caller always has something to show.
func NormalizeDocument(ctx context.Context, client llm.Client, bundle extract.Bundle, documentType string, opts Options) (*types.Envelope, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return normalize(ctx, client, bundle, documentType, opts, uuid.NewString())
}

func normalize(ctx context.Context, client llm.Client, bundle extract.Bundle, documentType string, opts Options, runID string) (*types.Envelope, error) {
	if bundle == nil {
		return nil, &ValidationError{Field: "bundle", Message: "extraction bundle is required"}
	}
	if extractErr, ok := bundle.(*extract.ErrorBundle); ok {
		return nil, extractErr
	}
	if client == nil {
		return nil, &ValidationError{Field: "client", Message: "model client is required"}
	}

	log := logger.WithComponent("pipeline").With().
		Str("run_id", runID).
		Str("file_name", bundle.FileName()).
		Logger()

	opts.emitProgress(runID, "normalize", "prompt", fmt.Sprintf("Building prompt for %s", bundle.FileName()), nil)
	prompt, err := prompts.BuildNormalizationPrompt(bundle.ToMap(), documentType, opts.buildOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to build normalization prompt: %w", err)
	}

	log.Info().
		Str("document_type", documentType).
		Int("prompt_length", len(prompt)).
		Msg("sending document to model")
	opts.emitProgress(runID, "normalize", "model", "Waiting for model response", nil)

	raw, err := client.GenerateJSON(ctx, prompt, opts.Tier)
	if err != nil {
		log.Error().Err(err).Msg("model call failed")
		return nil, &ModelUnavailableError{Stage: "normalize", Cause: err}
	}

	var payload types.NormalizationPayload
	res, err := sanitize.SanitizeInto(raw, &payload)
	if err != nil {
		var malformed *sanitize.MalformedResponseError
		if !errors.As(err, &malformed) {
			return nil, err
		}
		log.Warn().Str("detail", malformed.Detail).Int("raw_response_length", len(raw)).Msg("model response is not valid JSON")
		opts.emitProgress(runID, "normalize", "sanitize", "Model response could not be parsed", nil)
		return rawTextEnvelope(runID, malformed), nil
	}
	log.Debug().Bool("repaired", res.Repaired).Int("documents", len(payload.Documents)).Msg("parsed model response")

	reconciled := reconcile.Reconcile(&payload, bundle.FinancialInfo(), opts.reconcileOptions())
	opts.emitProgress(runID, "normalize", "reconcile", fmt.Sprintf("Reconciled %d line items", len(reconciled.LineItems())), reconciled)

	env := &types.Envelope{
		RunID:             runID,
		Success:           true,
		Format:            types.FormatJSON,
		Data:              reconciled,
		RawResponseLength: len(raw),
	}
	if !opts.SkipSchemaValidation {
		if err := schemas.ValidateNormalized(reconciled); err != nil {
			log.Warn().Err(err).Msg("normalized payload does not match schema")
			env.Warnings = append(env.Warnings, err.Error())
		}
	}
	return env, nil
}

func rawTextEnvelope(runID string, malformed *sanitize.MalformedResponseError) *types.Envelope {
	return &types.Envelope{
		RunID:             runID,
		Success:           false,
		Format:            types.FormatRawText,
		Data:              malformed.RawExcerpt,
		Error:             malformed.Error(),
		RawResponse:       malformed.RawExcerpt,
		RawResponseLength: malformed.RawLength,
	}
}
