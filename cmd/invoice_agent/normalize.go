package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jonathan/invoice-reconciler/internal/extract"
	"github.com/jonathan/invoice-reconciler/internal/pipeline"
	"github.com/jonathan/invoice-reconciler/internal/report"
	"github.com/jonathan/invoice-reconciler/internal/types"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize one document into the canonical schema",
	Long: `Extract a document, map it onto the canonical purchase order / invoice schema with the model,
reconcile line-item taxes and totals, and validate the result against the schema.`,
	RunE: runNormalize,
}

var (
	normalizeInputFile  string
	normalizeOutputFile string
	normalizeDocType    string
)

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeInputFile, "in", "i", "", "Path to the document (required)")
	normalizeCmd.Flags().StringVarP(&normalizeOutputFile, "out", "o", "", "Path to output JSON file (required)")
	normalizeCmd.Flags().StringVarP(&normalizeDocType, "type", "t", "", "Document type hint: invoice or purchase_order")
	_ = normalizeCmd.MarkFlagRequired("in")
	_ = normalizeCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	if !slices.Contains([]string{"", types.DocumentTypeInvoice, types.DocumentTypePurchaseOrder}, normalizeDocType) {
		return fmt.Errorf("--type must be invoice or purchase_order, got %q", normalizeDocType)
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	bundle, err := extract.Extract(ctx, normalizeInputFile)
	if err != nil {
		return err
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	env, err := pipeline.NormalizeDocument(ctx, client, bundle, normalizeDocType, pipelineOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to normalize %s: %w", normalizeInputFile, err)
	}

	if err := writeJSON(normalizeOutputFile, env); err != nil {
		return err
	}

	report.NewPrinter(os.Stdout).PrintEnvelope(env)
	if !env.Success {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: model response could not be structured; raw excerpt saved to %s\n", normalizeOutputFile)
		return nil
	}
	_, _ = fmt.Fprintf(os.Stdout, "Successfully normalized %s\nOutput: %s\n", bundle.FileName(), normalizeOutputFile)
	return nil
}
