// Package ui renders DocLens results for the terminal. Output degrades
// to plain text when stdout is not a TTY or color is disabled.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/doclens/doclens/internal/api"
	"github.com/doclens/doclens/internal/repair"
)

// Renderer writes human-readable results.
type Renderer struct {
	out    io.Writer
	styles Styles
}

// NewRenderer creates a renderer. Color is used only when enabled and
// writing to a terminal.
func NewRenderer(out io.Writer, noColor bool) *Renderer {
	if !noColor {
		f, ok := out.(*os.File)
		if !ok || !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
			noColor = true
		}
	}
	return &Renderer{out: out, styles: GetStyles(noColor)}
}

// IndexResult reports a completed indexing run.
func (r *Renderer) IndexResult(resp api.IndexResponse) {
	fmt.Fprintf(r.out, "%s %s\n",
		r.styles.Success.Render("Indexed"),
		resp.DocPath)
	fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("segments:"), resp.Segments)
	fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("store:"), resp.StorePath)
}

// SearchResults lists phrase matches with their bracketed snippets.
func (r *Renderer) SearchResults(resp api.SearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Fprintf(r.out, "%s\n", r.styles.Dim.Render("No matches."))
		return
	}

	fmt.Fprintf(r.out, "%s\n", r.styles.Header.Render(
		fmt.Sprintf("%d match(es) for %q", len(resp.Results), resp.Query)))
	for _, hit := range resp.Results {
		fmt.Fprintf(r.out, "  %s %s\n",
			r.styles.Label.Render(fmt.Sprintf("p%d:%d", hit.Page, hit.Line)),
			hit.Snippet)
	}
}

// SemanticResults lists similarity hits, best first.
func (r *Renderer) SemanticResults(resp api.SemanticSearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Fprintf(r.out, "%s\n", r.styles.Dim.Render("No results."))
		return
	}

	fmt.Fprintf(r.out, "%s\n", r.styles.Header.Render(
		fmt.Sprintf("Top %d result(s) for %q", len(resp.Results), resp.Query)))
	for _, hit := range resp.Results {
		fmt.Fprintf(r.out, "  %s %s %s\n",
			r.styles.Score.Render(fmt.Sprintf("%.4f", hit.Score)),
			r.styles.Label.Render(fmt.Sprintf("p%d:%d", hit.Page, hit.Line)),
			hit.Text)
	}
}

// Answer prints a synthesized answer and its sources.
func (r *Renderer) Answer(resp api.AskResponse) {
	fmt.Fprintf(r.out, "%s\n", r.styles.Text.Render(resp.Answer))
	if len(resp.Sources) == 0 {
		return
	}

	fmt.Fprintf(r.out, "\n%s\n", r.styles.Header.Render("Sources"))
	for _, src := range resp.Sources {
		fmt.Fprintf(r.out, "  %s %s\n",
			r.styles.Label.Render(fmt.Sprintf("p%d:%d", src.Page, src.Line)),
			r.styles.Score.Render(fmt.Sprintf("%.3f", src.Score)))
	}
}

// RepairReport summarizes a repair run, one line per store.
func (r *Renderer) RepairReport(resp api.RepairResponse) {
	for _, rec := range resp.Records {
		switch rec.Outcome {
		case repair.OutcomeSkipped:
			fmt.Fprintf(r.out, "%s %s\n", r.styles.Dim.Render("skip"), rec.StorePath)
		case repair.OutcomeRepaired:
			fmt.Fprintf(r.out, "%s %s -> %s\n",
				r.styles.Success.Render("repaired"), rec.StorePath, rec.RepairedPath)
		case repair.OutcomeReset:
			fmt.Fprintf(r.out, "%s %s (quarantined: %s)\n",
				r.styles.Warning.Render("reset"), rec.StorePath, rec.QuarantinePath)
		case repair.OutcomeUnrecoverable:
			fmt.Fprintf(r.out, "%s %s: %v\n",
				r.styles.Error.Render("failed"), rec.StorePath, rec.Err)
		}
	}

	fmt.Fprintf(r.out, "%s %d repaired, %d reset, %d skipped, %d failed\n",
		r.styles.Header.Render("Summary:"),
		resp.Repaired, resp.Reset, resp.Skipped, resp.Failed)
}
