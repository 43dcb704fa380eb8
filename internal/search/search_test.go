package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doclens/doclens/internal/embed"
	doclenserr "github.com/doclens/doclens/internal/errors"
	"github.com/doclens/doclens/internal/store"
)

// buildStore indexes the given page/line texts with the static embedder
// and returns the store path.
func buildStore(t *testing.T, lines []store.Segment) (string, embed.Embedder) {
	t.Helper()
	ctx := context.Background()
	embedder := embed.NewStaticEmbedder()
	t.Cleanup(func() { _ = embedder.Close() })

	path := filepath.Join(t.TempDir(), "doc.pdf.db")
	s, err := store.Create(path)
	require.NoError(t, err)

	for _, seg := range lines {
		vec, err := embedder.Embed(ctx, seg.Text)
		require.NoError(t, err)
		seg.DocID = "doc.pdf"
		seg.Embedding = vec
		require.NoError(t, s.InsertSegment(ctx, seg))
	}
	require.NoError(t, s.RebuildLexical(ctx))
	require.NoError(t, s.Close())
	return path, embedder
}

func corpus() []store.Segment {
	return []store.Segment{
		{Page: 1, Line: 1, Text: "the payment is due in thirty days"},
		{Page: 1, Line: 2, Text: "late fees accrue after the due date"},
		{Page: 2, Line: 1, Text: "shipping is free for orders over fifty"},
		{Page: 2, Line: 2, Text: "returns accepted within two weeks"},
		{Page: 3, Line: 1, Text: "the warranty covers manufacturing defects"},
	}
}

func TestLexical_PhrasePresentInOneSegment(t *testing.T) {
	path, embedder := buildStore(t, corpus())
	r := NewRetriever(embedder)

	results, err := r.Lexical(context.Background(), path, "manufacturing defects")
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 3, results[0].Page)
	assert.Equal(t, 1, results[0].Line)
	assert.Contains(t, results[0].Snippet, "[manufacturing defects]")
}

func TestLexical_QueryLowercased(t *testing.T) {
	path, embedder := buildStore(t, corpus())
	r := NewRetriever(embedder)

	results, err := r.Lexical(context.Background(), path, "MANUFACTURING Defects")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestLexical_MissingStore(t *testing.T) {
	r := NewRetriever(embed.NewStaticEmbedder())

	_, err := r.Lexical(context.Background(), filepath.Join(t.TempDir(), "gone.db"), "anything")
	require.Error(t, err)
	assert.Equal(t, doclenserr.ErrCodeStoreUnavailable, doclenserr.GetCode(err))
}

func TestLexical_EmptyQuery(t *testing.T) {
	path, embedder := buildStore(t, corpus())
	r := NewRetriever(embedder)

	_, err := r.Lexical(context.Background(), path, "   ")
	require.Error(t, err)
	assert.Equal(t, doclenserr.ErrCodeQueryEmpty, doclenserr.GetCode(err))
}

func TestSemantic_ExactTextIsTopResult(t *testing.T) {
	path, embedder := buildStore(t, corpus())
	r := NewRetriever(embedder)

	results, err := r.Semantic(context.Background(), path,
		"shipping is free for orders over fifty", 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, 2, top.Page)
	assert.Equal(t, 1, top.Line)
	assert.InDelta(t, 1.0, top.Score, 1e-5)
}

func TestSemantic_KLargerThanStoreReturnsAllSorted(t *testing.T) {
	path, embedder := buildStore(t, corpus())
	r := NewRetriever(embedder)

	results, err := r.Semantic(context.Background(), path, "payment terms", 50)
	require.NoError(t, err)
	assert.Len(t, results, len(corpus()))

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score,
			"scores must be non-increasing at position %d", i)
	}
}

func TestSemantic_DefaultK(t *testing.T) {
	// Ten segments with distinct text; k=0 must fall back to 6.
	var lines []store.Segment
	texts := []string{
		"alpha section of the agreement",
		"beta clause covering liability",
		"gamma annex with payment schedules",
		"delta terms for early termination",
		"epsilon rules on confidentiality",
		"zeta provisions about governing law",
		"eta clause on dispute resolution",
		"theta annex listing deliverables",
		"iota terms covering amendments",
		"kappa section about notices",
	}
	for i, text := range texts {
		lines = append(lines, store.Segment{Page: 1, Line: i + 1, Text: text})
	}
	path, embedder := buildStore(t, lines)
	r := NewRetriever(embedder)

	results, err := r.Semantic(context.Background(), path, "termination terms", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
}

func TestSemantic_TiesKeepStorageOrder(t *testing.T) {
	// Two identical segments produce identical scores; the earlier
	// stored row must come first.
	lines := []store.Segment{
		{Page: 1, Line: 1, Text: "identical tie line"},
		{Page: 2, Line: 1, Text: "identical tie line"},
		{Page: 3, Line: 1, Text: "something else entirely"},
	}
	path, embedder := buildStore(t, lines)
	r := NewRetriever(embedder)

	results, err := r.Semantic(context.Background(), path, "identical tie line", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Equal(t, 1, results[0].Page)
	assert.Equal(t, 2, results[1].Page)
}

func TestSemantic_EmptyStore(t *testing.T) {
	path, embedder := buildStore(t, nil)
	r := NewRetriever(embedder)

	results, err := r.Semantic(context.Background(), path, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSemantic_MissingStore(t *testing.T) {
	r := NewRetriever(embed.NewStaticEmbedder())

	_, err := r.Semantic(context.Background(), filepath.Join(t.TempDir(), "gone.db"), "q", 5)
	require.Error(t, err)
	assert.Equal(t, doclenserr.ErrCodeStoreUnavailable, doclenserr.GetCode(err))
}
