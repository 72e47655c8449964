// Package main provides the invoice_agent CLI: extraction, normalization, comparison
// and the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "invoice_agent",
	Short:         "Purchase order and invoice reconciler",
	Long:          "invoice_agent normalizes purchase orders and invoices from spreadsheets, Word, PDF, HTML or JSON exports into one schema with a language model, reconciles their totals, and reports line-item discrepancies.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Flags shared by every command
var (
	configPath  string
	apiKey      string
	verbose     bool
	currency    string
	tolerance   float64
	threshold   float64
	modelReview bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	pf.StringVar(&apiKey, "api-key", "", "Gemini API key (optional, defaults to GEMINI_API_KEY env var)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Print progress and debug logs")
	pf.StringVar(&currency, "currency", "", "Currency code amounts are normalized to (default INR)")
	pf.Float64Var(&tolerance, "tolerance", 0, "Largest difference at which two numbers are equal (default 0.01)")
	pf.Float64Var(&threshold, "threshold", 0, "Minimum description similarity for fuzzy pairing (default 0.6)")
	pf.BoolVar(&modelReview, "model-review", false, "Also ask the model to compare the documents and report disagreements")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		os.Exit(1)
	}
}
