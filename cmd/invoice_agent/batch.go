package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/invoice-reconciler/internal/llm"
	"github.com/jonathan/invoice-reconciler/internal/pipeline"
	"github.com/jonathan/invoice-reconciler/internal/report"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run many purchase order / invoice pairs concurrently",
	Long: `Run the full flow for every pair in a manifest file:

  [{"name": "acme-march", "po": "po/acme.xlsx", "invoice": "inv/acme.pdf"}]

Relative paths are resolved against the manifest's directory. Each pair writes <out-dir>/<name>.json.
A failing pair does not stop the others.`,
	RunE: runBatch,
}

var (
	batchManifest    string
	batchOutDir      string
	batchConcurrency int
)

func init() {
	batchCmd.Flags().StringVarP(&batchManifest, "manifest", "m", "", "Path to manifest JSON (required)")
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "Directory for per-pair results (required)")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 0, "Pairs processed at once (default 2)")
	_ = batchCmd.MarkFlagRequired("manifest")
	_ = batchCmd.MarkFlagRequired("out-dir")

	rootCmd.AddCommand(batchCmd)
}

// BatchItem is one pair in a batch manifest
type BatchItem struct {
	Name    string `json:"name"`
	PO      string `json:"po" validate:"required"`
	Invoice string `json:"invoice" validate:"required"`
}

type batchOutcome struct {
	Name    string
	Output  string
	Summary string
	Err     error
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// loadManifest reads and validates a manifest, resolving paths and filling in names
func loadManifest(path string) ([]BatchItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var items []BatchItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("manifest %s lists no pairs", path)
	}

	validate := validator.New()
	base := filepath.Dir(path)
	seen := make(map[string]bool, len(items))
	for i := range items {
		item := &items[i]
		if err := validate.Struct(item); err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", i+1, err)
		}
		if !filepath.IsAbs(item.PO) {
			item.PO = filepath.Join(base, item.PO)
		}
		if !filepath.IsAbs(item.Invoice) {
			item.Invoice = filepath.Join(base, item.Invoice)
		}

		name := strings.Trim(unsafeName.ReplaceAllString(item.Name, "_"), "_")
		if name == "" {
			name = fmt.Sprintf("pair-%d", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("manifest entry %d: duplicate name %q", i+1, name)
		}
		seen[name] = true
		item.Name = name
	}
	return items, nil
}

func runBatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = batchConcurrency
	}
	if cfg.Concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}

	items, err := loadManifest(batchManifest)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx := context.Background()
	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	outcomes := processBatch(ctx, client, items, batchOutDir, cfg.Concurrency, pipelineOptions(cfg))

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			_, _ = fmt.Fprintf(os.Stderr, "✗ %s: %s\n", o.Name, describeError(o.Err))
			continue
		}
		_, _ = fmt.Fprintf(os.Stdout, "✓ %s: %s (%s)\n", o.Name, o.Summary, o.Output)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pairs failed", failed, len(items))
	}
	return nil
}

// processBatch runs every pair with at most limit in flight. Outcomes keep manifest order.
func processBatch(ctx context.Context, client llm.Client, items []BatchItem, outDir string, limit int, opts pipeline.Options) []batchOutcome {
	outcomes := make([]batchOutcome, len(items))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			o := batchOutcome{Name: item.Name, Output: filepath.Join(outDir, item.Name+".json")}

			result, err := pipeline.Run(ctx, client, item.PO, item.Invoice, opts)
			switch {
			case err != nil:
				o.Err = err
			case !result.Comparison.Success:
				o.Summary = result.Comparison.Error
				o.Err = writeJSON(o.Output, result)
			default:
				o.Summary = report.Banner(result.Comparison.Report().Summary)
				o.Err = writeJSON(o.Output, result)
			}

			mu.Lock()
			outcomes[i] = o
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
