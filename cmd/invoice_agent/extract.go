package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/invoice-reconciler/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a document into its raw bundle JSON",
	Long:  "Read an .xlsx, .xlsm, .docx, .pdf, .html or .json file and print the extraction bundle that would be sent to the model.",
	RunE:  runExtract,
}

var (
	extractInputFile  string
	extractOutputFile string
)

func init() {
	extractCmd.Flags().StringVarP(&extractInputFile, "in", "i", "", "Path to the document (required)")
	extractCmd.Flags().StringVarP(&extractOutputFile, "out", "o", "", "Path to output JSON file (default stdout)")
	_ = extractCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	if _, err := loadSettings(cmd); err != nil {
		return err
	}

	bundle, err := extract.Extract(context.Background(), extractInputFile)
	if err != nil {
		return err
	}

	if err := writeJSON(extractOutputFile, bundle.ToMap()); err != nil {
		return err
	}
	if extractOutputFile != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Extracted %s (%s)\nOutput: %s\n", bundle.FileName(), bundle.DocumentType(), extractOutputFile)
	}
	return nil
}
