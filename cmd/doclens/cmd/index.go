package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doclens/doclens/internal/api"
	"github.com/doclens/doclens/internal/store"
	"github.com/doclens/doclens/internal/ui"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	workers int
	format  string // "text", "json"
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index <document>...",
		Short: "Index one or more documents",
		Long: `Index documents into per-document stores.

Each document is extracted page by page (with OCR fallback for
image-only pages), embedded, and written next to the document as
<document>.db. Re-indexing replaces the store atomically.

Examples:
  doclens index report.pdf
  doclens index uploads/*.pdf --workers 4
  doclens index notes.txt --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Concurrent documents (0 = from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runIndex(cmd *cobra.Command, docs []string, opts indexOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc := buildService(cfg)

	workers := opts.workers
	if workers <= 0 {
		workers = cfg.Indexing.Workers
	}

	renderer := ui.NewRenderer(cmd.OutOrStdout(), noColor)

	if len(docs) == 1 {
		resp, err := svc.Index(cmd.Context(), api.IndexRequest{DocPath: docs[0]})
		if err != nil {
			return err
		}
		if opts.format == "json" {
			return writeJSON(cmd, resp)
		}
		renderer.IndexResult(resp)
		return nil
	}

	// Multi-document runs report per-document outcomes; one failure does
	// not abort the batch.
	var failures int
	for _, res := range svc.IndexAll(cmd.Context(), docs, workers) {
		if res.Err != nil {
			failures++
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s: %v\n", res.Doc, res.Err)
			continue
		}
		resp := api.IndexResponse{
			DocPath:   res.Doc,
			StorePath: store.PathFor(res.Doc),
			Segments:  res.Segments,
		}
		if opts.format == "json" {
			if err := writeJSON(cmd, resp); err != nil {
				return err
			}
			continue
		}
		renderer.IndexResult(resp)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d document(s) failed to index", failures, len(docs))
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
