package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/invoice-reconciler/internal/logger"
)

// SupportedExtensions lists the file extensions Extract accepts
var SupportedExtensions = []string{".xlsx", ".xlsm", ".docx", ".pdf", ".html", ".htm", ".json"}

// Extract reads the file at path and builds the bundle for its format.
// On failure the returned error is an *ErrorBundle, which is also returned as the bundle.
func Extract(ctx context.Context, path string) (Bundle, error) {
	name := filepath.Base(path)
	data, err := os.ReadFile(path)
	if err != nil {
		eb := newErrorBundle(name, sourceFor(name), fmt.Errorf("failed to read file: %w", err))
		return eb, eb
	}
	return FromBytes(ctx, name, data)
}

// FromBytes builds a bundle from file content, dispatching on the extension of name
func FromBytes(ctx context.Context, name string, data []byte) (Bundle, error) {
	log := logger.WithComponent("extract")
	source := sourceFor(name)

	if err := ctx.Err(); err != nil {
		eb := newErrorBundle(name, source, err)
		return eb, eb
	}

	var (
		bundle Bundle
		err    error
	)
	switch source {
	case SourceExcel:
		bundle, err = parseExcel(name, data)
	case SourceWord:
		bundle, err = parseWord(name, data)
	case SourcePDF:
		bundle, err = parsePDF(name, data)
	case SourceHTML:
		bundle, err = parseHTML(name, data)
	case SourceJSON:
		bundle, err = parseJSON(name, data)
	default:
		err = fmt.Errorf("unsupported file format %q", strings.ToLower(filepath.Ext(name)))
	}

	if err != nil {
		log.Error().Err(err).Str("file", name).Str("source", source).Msg("extraction failed")
		eb := newErrorBundle(name, source, err)
		return eb, eb
	}

	log.Info().
		Str("file", name).
		Str("source", source).
		Int("bytes", len(data)).
		Bool("financial_info", !bundle.FinancialInfo().IsEmpty()).
		Msg("file extracted")
	return bundle, nil
}

func sourceFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return SourceExcel
	case ".docx":
		return SourceWord
	case ".pdf":
		return SourcePDF
	case ".html", ".htm":
		return SourceHTML
	case ".json":
		return SourceJSON
	default:
		return ""
	}
}
