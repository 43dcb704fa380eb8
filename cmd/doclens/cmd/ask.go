package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/doclens/doclens/internal/api"
	"github.com/doclens/doclens/internal/ui"
)

// askOptions holds CLI flags for ask.
type askOptions struct {
	threshold float64
	format    string // "text", "json"
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <document> <question>...",
		Short: "Ask a question about an indexed document",
		Long: `Ask a natural-language question about an indexed document.

The answer is generated strictly from retrieved document context and
cites its sources. When no retrieved segment clears the confidence
threshold, no generation is attempted and a fixed refusal is printed.

Examples:
  doclens ask lease.pdf "when does the lease expire"
  doclens ask lease.pdf "what is the monthly rent" --threshold 0.5
  doclens ask lease.pdf "who are the parties" --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := args[0]
			question := strings.Join(args[1:], " ")
			return runAsk(cmd, doc, question, opts)
		},
	}

	cmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", 0, "Minimum similarity before generating (0 = from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runAsk(cmd *cobra.Command, doc, question string, opts askOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc := buildService(cfg)

	threshold := opts.threshold
	if threshold <= 0 {
		threshold = cfg.Search.AnswerThreshold
	}

	resp, err := svc.Ask(cmd.Context(), api.AskRequest{
		DocPath:   doc,
		Question:  question,
		Threshold: threshold,
	})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return writeJSON(cmd, resp)
	}
	ui.NewRenderer(cmd.OutOrStdout(), noColor).Answer(resp)
	return nil
}
