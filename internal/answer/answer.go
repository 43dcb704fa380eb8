// Package answer synthesizes a grounded answer to a question from
// retrieved context, gated by a confidence threshold. Generation is
// strictly cost-gated: the generator is never invoked when retrieval
// confidence is below threshold.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	doclenserr "github.com/doclens/doclens/internal/errors"
	"github.com/doclens/doclens/internal/generate"
	"github.com/doclens/doclens/internal/search"
)

// DefaultThreshold is the minimum top-result similarity for the
// generator to be consulted at all.
const DefaultThreshold = 0.35

// Fixed responses. Generation failures degrade to these; they are never
// surfaced as errors to the caller.
const (
	NoConfidentAnswer = "No confident answer found in the document."
	GenerationFailed  = "LLM failed to generate an answer."
	GenerationTimeout = "LLM timed out due to system limits."
)

// promptTemplate instructs the model to answer strictly from context.
const promptTemplate = `
You are answering strictly from the context.
If the answer is not present, say "Not found in document".

Context:
%s

Question:
%s

Answer:
`

// Source cites one retrieved segment backing an answer.
type Source struct {
	Page  int     `json:"page"`
	Line  int     `json:"line"`
	Score float64 `json:"score"`
}

// Response is a synthesized answer with its citations. Sources list the
// full retrieved top-k, not only the lines quoted in the context block.
type Response struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Synthesizer combines semantic retrieval with the generation
// collaborator.
type Synthesizer struct {
	retriever *search.Retriever
	generator generate.Generator
}

// New creates a synthesizer.
func New(retriever *search.Retriever, generator generate.Generator) *Synthesizer {
	return &Synthesizer{retriever: retriever, generator: generator}
}

// Answer retrieves context for the question and synthesizes an answer.
// threshold <= 0 selects DefaultThreshold. Retrieval errors (missing
// store, embedding failure) are returned; generation failures are not —
// they degrade to a fixed answer string.
func (s *Synthesizer) Answer(ctx context.Context, storePath, question string, threshold float64) (Response, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	results, err := s.retriever.Semantic(ctx, storePath, question, search.DefaultTopK)
	if err != nil {
		return Response{}, err
	}

	if len(results) == 0 || results[0].Score < threshold {
		return Response{Answer: NoConfidentAnswer, Sources: []Source{}}, nil
	}

	// Context holds only the above-threshold subset, best first, each
	// line tagged with its page.
	var ctxLines []string
	for _, r := range results {
		if r.Score >= threshold {
			ctxLines = append(ctxLines, fmt.Sprintf("(Page %d) %s", r.Page, r.Text))
		}
	}

	prompt := fmt.Sprintf(promptTemplate, strings.Join(ctxLines, "\n"), question)
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("generation_degraded",
			slog.String("store", storePath),
			slog.String("error", err.Error()))
		text = failureText(err)
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{Page: r.Page, Line: r.Line, Score: roundScore(r.Score, 3)}
	}
	return Response{Answer: strings.TrimSpace(text), Sources: sources}, nil
}

// failureText maps a generation error to its fixed degraded answer.
func failureText(err error) string {
	if doclenserr.GetCode(err) == doclenserr.ErrCodeGenerationTimedOut {
		return GenerationTimeout
	}
	return GenerationFailed
}

// roundScore rounds to the given number of decimal places for the
// serving contract.
func roundScore(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
