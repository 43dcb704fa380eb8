package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/doclens/doclens/internal/api"
	"github.com/doclens/doclens/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	semantic bool
	topK     int
	format   string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <document> <query>...",
		Short: "Search an indexed document",
		Long: `Search an indexed document.

The default mode is exact-phrase lookup: results contain the query
as a contiguous phrase, with matched words bracketed in the snippet.
With --semantic, results are ranked by embedding similarity instead.

Examples:
  doclens search report.pdf "net operating income"
  doclens search report.pdf "what was revenue" --semantic
  doclens search report.pdf "lease term" --semantic -n 10 --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := args[0]
			query := strings.Join(args[1:], " ")
			return runSearch(cmd, doc, query, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.semantic, "semantic", false, "Rank by embedding similarity instead of phrase match")
	cmd.Flags().IntVarP(&opts.topK, "limit", "n", 0, "Semantic results to return (0 = from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, doc, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc := buildService(cfg)
	renderer := ui.NewRenderer(cmd.OutOrStdout(), noColor)

	if opts.semantic {
		topK := opts.topK
		if topK <= 0 {
			topK = cfg.Search.TopK
		}
		resp, err := svc.SemanticSearch(cmd.Context(), api.SemanticSearchRequest{
			DocPath: doc,
			Query:   query,
			TopK:    topK,
		})
		if err != nil {
			return err
		}
		if opts.format == "json" {
			return writeJSON(cmd, resp)
		}
		renderer.SemanticResults(resp)
		return nil
	}

	resp, err := svc.Search(cmd.Context(), api.SearchRequest{DocPath: doc, Query: query})
	if err != nil {
		return err
	}
	if opts.format == "json" {
		return writeJSON(cmd, resp)
	}
	renderer.SearchResults(resp)
	return nil
}
