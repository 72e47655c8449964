package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/invoice-reconciler/internal/extract"
	"github.com/jonathan/invoice-reconciler/internal/llm"
	"github.com/jonathan/invoice-reconciler/internal/logger"
	"github.com/jonathan/invoice-reconciler/internal/types"
)

// RunResult holds the envelopes produced for one PO/invoice pair
type RunResult struct {
	RunID         string          `json:"run_id"`
	Invoice       *types.Envelope `json:"invoice"`
	PurchaseOrder *types.Envelope `json:"purchase_order"`
	Comparison    *types.Envelope `json:"comparison"`
}

// Run extracts, normalizes and compares a PO file against an invoice file
func Run(ctx context.Context, client llm.Client, poPath, invoicePath string, opts Options) (*RunResult, error) {
	invoice, err := extract.Extract(ctx, invoicePath)
	if err != nil {
		return nil, err
	}
	po, err := extract.Extract(ctx, poPath)
	if err != nil {
		return nil, err
	}
	return RunBundles(ctx, client, po, invoice, opts)
}

// RunBundles normalizes the invoice, then the PO, then compares them.
// When either normalization yields raw text the comparison envelope is unsuccessful
// and carries the reason; the normalization envelopes are still returned.
func RunBundles(ctx context.Context, client llm.Client, po, invoice extract.Bundle, opts Options) (*RunResult, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := logger.WithComponent("pipeline").With().Str("run_id", runID).Logger()
	result := &RunResult{RunID: runID}

	opts.emitProgress(runID, "run", "lifecycle", "Normalizing invoice", nil)
	invEnv, err := normalize(ctx, client, invoice, types.DocumentTypeInvoice, opts, runID)
	if err != nil {
		return nil, fmt.Errorf("invoice: %w", err)
	}
	result.Invoice = invEnv

	opts.emitProgress(runID, "run", "lifecycle", "Normalizing purchase order", nil)
	poEnv, err := normalize(ctx, client, po, types.DocumentTypePurchaseOrder, opts, runID)
	if err != nil {
		return nil, fmt.Errorf("purchase order: %w", err)
	}
	result.PurchaseOrder = poEnv

	if !invEnv.Success || !poEnv.Success {
		result.Comparison = &types.Envelope{
			RunID:   runID,
			Success: false,
			Format:  types.FormatRawText,
			Error:   notComparableReason(invEnv, poEnv),
		}
		log.Warn().Msg(result.Comparison.Error)
		return result, nil
	}

	cmpEnv, err := comparePayloads(ctx, client, poEnv.Normalized(), invEnv.Normalized(), opts, runID)
	if err != nil {
		return nil, fmt.Errorf("comparison: %w", err)
	}
	result.Comparison = cmpEnv

	s := cmpEnv.Report().Summary
	log.Info().
		Int("total_items", s.TotalItems).
		Int("mismatched_items", s.MismatchedItems).
		Msg("run complete")
	opts.emitProgress(runID, "run", "lifecycle", "Run complete", nil)
	return result, nil
}

func notComparableReason(invoice, po *types.Envelope) string {
	switch {
	case !invoice.Success && !po.Success:
		return "cannot compare: neither document could be normalized"
	case !invoice.Success:
		return "cannot compare: invoice could not be normalized"
	default:
		return "cannot compare: purchase order could not be normalized"
	}
}
