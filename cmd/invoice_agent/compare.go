package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/invoice-reconciler/internal/llm"
	"github.com/jonathan/invoice-reconciler/internal/pipeline"
	"github.com/jonathan/invoice-reconciler/internal/report"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare two normalized documents line by line",
	Long: `Compare a normalized purchase order against a normalized invoice (as written by the normalize command).
No model call is made unless --model-review is set.`,
	RunE: runCompare,
}

var (
	comparePOFile      string
	compareInvoiceFile string
	compareOutputFile  string
)

func init() {
	compareCmd.Flags().StringVar(&comparePOFile, "po", "", "Path to the normalized purchase order JSON (required)")
	compareCmd.Flags().StringVar(&compareInvoiceFile, "invoice", "", "Path to the normalized invoice JSON (required)")
	compareCmd.Flags().StringVarP(&compareOutputFile, "out", "o", "", "Path to output JSON file")
	_ = compareCmd.MarkFlagRequired("po")
	_ = compareCmd.MarkFlagRequired("invoice")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	po, err := readPayload(comparePOFile)
	if err != nil {
		return err
	}
	invoice, err := readPayload(compareInvoiceFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var client llm.Client
	if cfg.ModelReview {
		if client, err = newClient(ctx, cfg); err != nil {
			return err
		}
		defer client.Close()
	}

	env, err := pipeline.Compare(ctx, client, po, invoice, pipelineOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to compare: %w", err)
	}

	report.NewPrinter(os.Stdout).PrintEnvelope(env)
	if compareOutputFile == "" {
		return nil
	}
	if err := writeJSON(compareOutputFile, env); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "Output: %s\n", compareOutputFile)
	return nil
}
