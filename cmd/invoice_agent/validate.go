package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/invoice-reconciler/internal/schemas"
	rootschemas "github.com/jonathan/invoice-reconciler/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON file against a bundled schema",
	Long:  "Validate a normalized payload (--schema normalized) or a comparison report (--schema comparison) against its JSON Schema.",
	RunE:  runValidate,
}

var (
	validateSchema    string
	validateInputFile string
)

var schemaNames = map[string]string{
	"normalized": rootschemas.NormalizedDocument,
	"comparison": rootschemas.ComparisonReport,
}

func init() {
	validateCmd.Flags().StringVarP(&validateSchema, "schema", "s", "", "Schema to validate against: normalized or comparison (required)")
	validateCmd.Flags().StringVarP(&validateInputFile, "in", "i", "", "Path to JSON file (required)")
	_ = validateCmd.MarkFlagRequired("schema")
	_ = validateCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	name, ok := schemaNames[validateSchema]
	if !ok {
		return fmt.Errorf("--schema must be normalized or comparison, got %q", validateSchema)
	}

	if err := schemas.ValidateFile(name, validateInputFile); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			_, _ = fmt.Fprintf(os.Stdout, "✗ %s does not match %s\n", validateInputFile, validateSchema)
		}
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "✓ %s is a valid %s document\n", validateInputFile, validateSchema)
	return nil
}
