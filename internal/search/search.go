// Package search implements the hybrid retriever: lexical phrase queries
// against a store's FTS index and semantic queries by brute-force cosine
// scan over stored embeddings. The two modes are independent; nothing
// here blends their scores.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/doclens/doclens/internal/embed"
	doclenserr "github.com/doclens/doclens/internal/errors"
	"github.com/doclens/doclens/internal/store"
)

// Retrieval defaults.
const (
	// DefaultTopK is the semantic result count when the caller passes none.
	DefaultTopK = 6

	// LexicalLimit caps lexical query results.
	LexicalLimit = 20
)

// LexicalResult is one phrase-containment hit.
type LexicalResult struct {
	Page    int    `json:"page"`
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
}

// SemanticResult is one similarity-ranked hit.
type SemanticResult struct {
	Score float64 `json:"score"`
	Page  int     `json:"page"`
	Line  int     `json:"line"`
	Text  string  `json:"text"`
}

// Retriever answers lexical and semantic queries against index stores.
// It holds the process-wide embedder by reference; construct once at
// startup and share.
type Retriever struct {
	embedder embed.Embedder
}

// NewRetriever creates a retriever using the given embedder for queries.
func NewRetriever(embedder embed.Embedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// Lexical runs a whole-phrase containment query against the store's
// lexical index. Results arrive in the index's native relevance order,
// capped at LexicalLimit, each with a bounded snippet. An empty store
// yields an empty result list, not an error.
func (r *Retriever) Lexical(ctx context.Context, storePath, query string) ([]LexicalResult, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, doclenserr.New(doclenserr.ErrCodeQueryEmpty, "lexical query is empty", nil)
	}

	s, err := store.Open(storePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	hits, err := s.SearchPhrase(ctx, query, LexicalLimit)
	if err != nil {
		return nil, doclenserr.StoreUnavailableError(
			fmt.Sprintf("lexical query against %s", storePath), err)
	}

	results := make([]LexicalResult, len(hits))
	for i, h := range hits {
		results[i] = LexicalResult{Page: h.Page, Line: h.Line, Snippet: h.Snippet}
	}
	return results, nil
}

// Semantic embeds the query and scores it against every stored segment
// embedding by dot product (cosine similarity over unit vectors), full
// scan. Results are sorted by descending score; exact ties keep their
// storage order. k <= 0 selects DefaultTopK.
func (r *Retriever) Semantic(ctx context.Context, storePath, query string, k int) ([]SemanticResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, doclenserr.New(doclenserr.ErrCodeQueryEmpty, "semantic query is empty", nil)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(storePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	var scored []SemanticResult
	err = s.ScanSegments(ctx, func(seg store.Segment) error {
		if len(seg.Embedding) != len(queryVec) {
			return doclenserr.New(doclenserr.ErrCodeDimensionMismatch,
				fmt.Sprintf("stored vector has %d dimensions, query has %d; re-index with the current model",
					len(seg.Embedding), len(queryVec)), nil)
		}
		scored = append(scored, SemanticResult{
			Score: store.Dot(queryVec, seg.Embedding),
			Page:  seg.Page,
			Line:  seg.Line,
			Text:  seg.Text,
		})
		return nil
	})
	if err != nil {
		if doclenserr.GetCode(err) != "" {
			return nil, err
		}
		return nil, doclenserr.StoreUnavailableError(
			fmt.Sprintf("semantic scan of %s", storePath), err)
	}

	// Stable sort keeps storage order for exact score ties.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
