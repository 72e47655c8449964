// Package schemas embeds the JSON Schemas for the documents the reconciler produces.
package schemas

import (
	"embed"
	"fmt"
)

// Schema file names
const (
	NormalizedDocument = "normalized_document.schema.json"
	ComparisonReport   = "comparison_report.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Load returns the content of an embedded schema
func Load(name string) ([]byte, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("schema %s not embedded: %w", name, err)
	}
	return data, nil
}

// Names lists the embedded schemas
func Names() []string {
	return []string{NormalizedDocument, ComparisonReport}
}
