package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/invoice-reconciler/internal/pipeline"
	"github.com/jonathan/invoice-reconciler/internal/report"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Normalize and compare a purchase order and an invoice end-to-end",
	Long: `Runs the whole flow: extract both files, normalize the invoice then the purchase order,
reconcile totals, and compare line items.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

var (
	runPOFile      string
	runInvoiceFile string
	runOutputFile  string
)

func init() {
	runCommand.Flags().StringVar(&runPOFile, "po", "", "Path to the purchase order document (required)")
	runCommand.Flags().StringVar(&runInvoiceFile, "invoice", "", "Path to the invoice document (required)")
	runCommand.Flags().StringVarP(&runOutputFile, "out", "o", "", "Path to output JSON file with all envelopes")
	_ = runCommand.MarkFlagRequired("po")
	_ = runCommand.MarkFlagRequired("invoice")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := pipeline.Run(ctx, client, runPOFile, runInvoiceFile, pipelineOptions(cfg))
	if err != nil {
		return err
	}

	printer := report.NewPrinter(os.Stdout)
	if !result.Comparison.Success {
		printer.PrintEnvelope(result.Invoice)
		printer.PrintEnvelope(result.PurchaseOrder)
		_, _ = fmt.Fprintf(os.Stderr, "Warning: %s\n", result.Comparison.Error)
	} else {
		printer.PrintEnvelope(result.Comparison)
	}

	if runOutputFile != "" {
		if err := writeJSON(runOutputFile, result); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(os.Stdout, "Output: %s\n", runOutputFile)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Run ID: %s\n", result.RunID)
	return nil
}
