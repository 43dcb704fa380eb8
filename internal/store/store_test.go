package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	doclenserr "github.com/doclens/doclens/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf.db")
	s, err := Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insertSegments(t *testing.T, s *Store, segs []Segment) {
	t.Helper()
	ctx := context.Background()
	for _, seg := range segs {
		require.NoError(t, s.InsertSegment(ctx, seg))
	}
	require.NoError(t, s.RebuildLexical(ctx))
}

func TestPathFor(t *testing.T) {
	assert.Equal(t, "uploads/report.pdf.db", PathFor("uploads/report.pdf"))
}

func TestCreate_RemovesPreviousStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "doc.pdf.db")

	s, err := Create(path)
	require.NoError(t, err)
	insertSegments(t, s, []Segment{
		{DocID: "doc.pdf", Page: 1, Line: 1, Text: "stale row", Embedding: []float32{1, 0}},
	})
	require.NoError(t, s.Close())

	// Re-creating starts from scratch; no stale rows survive.
	s2, err := Create(path)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	n, err := s2.SegmentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpen_MissingStore(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.pdf.db"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, doclenserr.New(doclenserr.ErrCodeStoreUnavailable, "", nil)))
}

func TestInsertAndCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	insertSegments(t, s, []Segment{
		{DocID: "d", Page: 1, Line: 1, Text: "first line", Embedding: []float32{1, 0, 0}},
		{DocID: "d", Page: 1, Line: 2, Text: "second line", Embedding: []float32{0, 1, 0}},
		{DocID: "d", Page: 2, Line: 1, Text: "third line", Embedding: []float32{0, 0, 1}},
	})

	n, err := s.SegmentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSearchPhrase(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	insertSegments(t, s, []Segment{
		{DocID: "d", Page: 1, Line: 1, Text: "the quick brown fox jumps", Embedding: []float32{1}},
		{DocID: "d", Page: 2, Line: 1, Text: "a brown dog sleeps", Embedding: []float32{1}},
		{DocID: "d", Page: 3, Line: 1, Text: "quick thinking saves time", Embedding: []float32{1}},
	})

	// Whole-phrase containment: "quick brown" must appear as a unit.
	hits, err := s.SearchPhrase(ctx, "quick brown", 20)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Page)
	assert.Equal(t, 1, hits[0].Line)
	assert.Contains(t, hits[0].Snippet, "[quick brown]")
}

func TestSearchPhrase_NotTokenUnion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	insertSegments(t, s, []Segment{
		{DocID: "d", Page: 1, Line: 1, Text: "alpha omega", Embedding: []float32{1}},
		{DocID: "d", Page: 2, Line: 1, Text: "omega alpha", Embedding: []float32{1}},
	})

	hits, err := s.SearchPhrase(ctx, "alpha omega", 20)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Page)
}

func TestSearchPhrase_EmptyStore(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RebuildLexical(context.Background()))

	hits, err := s.SearchPhrase(context.Background(), "anything", 20)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRebuildLexical_ReflectsFinalSegmentSet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	insertSegments(t, s, []Segment{
		{DocID: "d", Page: 1, Line: 1, Text: "only row here", Embedding: []float32{1}},
	})

	// A second bulk rebuild stays in sync and does not duplicate rows.
	require.NoError(t, s.RebuildLexical(ctx))
	hits, err := s.SearchPhrase(ctx, "only row", 20)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestScanSegments_StorageOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	segs := []Segment{
		{DocID: "d", Page: 2, Line: 1, Text: "inserted first", Embedding: []float32{0.5, 0.5}},
		{DocID: "d", Page: 1, Line: 1, Text: "inserted second", Embedding: []float32{1, 0}},
	}
	insertSegments(t, s, segs)

	var seen []Segment
	require.NoError(t, s.ScanSegments(ctx, func(seg Segment) error {
		seen = append(seen, seg)
		return nil
	}))

	// Storage order is insertion order, not key order.
	require.Len(t, seen, 2)
	assert.Equal(t, "inserted first", seen[0].Text)
	assert.Equal(t, "inserted second", seen[1].Text)
	assert.Equal(t, []float32{0.5, 0.5}, seen[0].Embedding)
}

func TestVectorCodec_RoundTrip(t *testing.T) {
	vecs := [][]float32{
		{},
		{0},
		{1, -1, 0.5},
		{0.12345678, -3.1415927, 1e-20, 1e20},
	}

	for _, v := range vecs {
		b := EncodeVector(v)
		assert.Len(t, b, len(v)*4)
		assert.Equal(t, v, DecodeVector(b))
		// Byte-exact both ways.
		assert.Equal(t, b, EncodeVector(DecodeVector(b)))
	}
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 1.0, Dot([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, Dot([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Dot([]float32{0, 1}, []float32{0, -1}), 1e-9)
}

func TestCheckHealth_HealthyStore(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.CheckHealth(context.Background()))
}

func TestCheckHealth_GarbageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a database at all"), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	err = s.CheckHealth(context.Background())
	require.Error(t, err)
	assert.Equal(t, doclenserr.ErrCodeStoreCorrupt, doclenserr.GetCode(err))
}

func TestDumpAndReplay_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Create(filepath.Join(dir, "doc.pdf.db"))
	require.NoError(t, err)
	insertSegments(t, s, []Segment{
		{DocID: "doc.pdf", Page: 1, Line: 1, Text: "it's a \"quoted\" line", Embedding: []float32{0.6, 0.8}},
		{DocID: "doc.pdf", Page: 2, Line: 1, Text: "plain second line", Embedding: []float32{1, 0}},
	})

	var dump strings.Builder
	require.NoError(t, s.DumpAll(ctx, &dump))
	require.NoError(t, s.Close())

	assert.Contains(t, dump.String(), "BEGIN TRANSACTION;")
	assert.Contains(t, dump.String(), "COMMIT;")
	assert.Contains(t, dump.String(), `INSERT INTO "segments"`)

	replayed := filepath.Join(dir, "doc.pdf_repaired.db")
	require.NoError(t, Replay(ctx, replayed, dump.String()))

	r, err := Open(replayed)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	n, err := r.SegmentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Embedding bytes survive the dump byte-exact.
	var got []Segment
	require.NoError(t, r.ScanSegments(ctx, func(seg Segment) error {
		got = append(got, seg)
		return nil
	}))
	require.Len(t, got, 2)
	assert.Equal(t, []float32{0.6, 0.8}, got[0].Embedding)
	assert.Equal(t, `it's a "quoted" line`, got[0].Text)

	// The lexical index is queryable in the replayed store.
	hits, err := r.SearchPhrase(ctx, "second line", 20)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestReplay_FailureDeletesHalfBuiltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.db")

	err := Replay(context.Background(), path, "CREATE TABLE t (a); THIS IS NOT SQL;")
	require.Error(t, err)
	assert.Equal(t, doclenserr.ErrCodeReplayFailed, doclenserr.GetCode(err))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCreatePlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	require.NoError(t, CreatePlaceholder(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotNil(t, info)

	// The placeholder opens cleanly and passes the structural check.
	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.NoError(t, s.CheckHealth(context.Background()))
}
