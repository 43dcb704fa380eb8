// Package store provides the per-document index store: one SQLite file
// holding a document's segments, their embeddings, and the FTS5 lexical
// index. Uses modernc.org/sqlite (pure Go, no CGO).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	doclenserr "github.com/doclens/doclens/internal/errors"
)

// Suffix is appended to a document path to name its index store.
const Suffix = ".db"

// schema is the segment table. The primary key makes
// (doc_id, page_num, line_num) a unique key.
const schema = `
CREATE TABLE IF NOT EXISTS segments (
    doc_id TEXT,
    page_num INTEGER,
    line_num INTEGER,
    content TEXT,
    embedding BLOB,
    PRIMARY KEY(doc_id, page_num, line_num)
);
`

// ftsSchema is the lexical index over segment content. It is a derived
// projection, rebuilt in bulk after indexing, never maintained row by row.
const ftsSchema = `
CREATE VIRTUAL TABLE segments_fts USING fts5(
    content,
    doc_id UNINDEXED,
    page_num UNINDEXED,
    line_num UNINDEXED
);
`

// Segment is the unit of retrieval: one normalized line within a page.
type Segment struct {
	DocID     string
	Page      int // 1-based
	Line      int // 1-based, dense within a page's survivors
	Text      string
	Embedding []float32
}

// LexicalHit is one phrase-match result from the lexical index.
type LexicalHit struct {
	Page    int
	Line    int
	Snippet string
}

// Store is an open per-document index store.
type Store struct {
	db   *sql.DB
	path string
}

// PathFor returns the deterministic store path for a document path.
func PathFor(docPath string) string {
	return docPath + Suffix
}

// Create creates a fresh, empty store at path with its schema.
// Any existing file at path is removed first, so no stale rows can
// survive a re-index. Sidecar WAL/SHM files are removed as well.
func Create(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove previous store: %w", err)
	}
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{db: db, path: path}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create segment table: %w", err)
	}
	if _, err := db.Exec(ftsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create lexical index: %w", err)
	}
	return s, nil
}

// Open opens an existing store for reading and writing.
// A missing file is reported as StoreUnavailable, not created.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, doclenserr.StoreUnavailableError(
			fmt.Sprintf("no index store at %s", path), err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, doclenserr.StoreUnavailableError(
			fmt.Sprintf("cannot open index store at %s", path), err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the store's file path.
func (s *Store) Path() string {
	return s.path
}

// InsertSegment persists one segment with its embedding bytes.
func (s *Store) InsertSegment(ctx context.Context, seg Segment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO segments (doc_id, page_num, line_num, content, embedding)
		 VALUES (?, ?, ?, ?, ?)`,
		seg.DocID, seg.Page, seg.Line, seg.Text, EncodeVector(seg.Embedding))
	if err != nil {
		return fmt.Errorf("insert segment p%d l%d: %w", seg.Page, seg.Line, err)
	}
	return nil
}

// RebuildLexical rebuilds the lexical index in one bulk pass from all
// persisted segments, so it reflects exactly the final segment set.
func (s *Store) RebuildLexical(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM segments_fts`); err != nil {
		return fmt.Errorf("clear lexical index: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO segments_fts (content, doc_id, page_num, line_num)
		SELECT content, doc_id, page_num, line_num FROM segments`)
	if err != nil {
		return fmt.Errorf("rebuild lexical index: %w", err)
	}
	return nil
}

// SegmentCount returns the number of persisted segments.
func (s *Store) SegmentCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM segments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count segments: %w", err)
	}
	return n, nil
}

// SearchPhrase matches the query as a whole phrase against the lexical
// index and returns up to limit hits in the index's native relevance
// order, each with a bounded snippet around the match.
func (s *Store) SearchPhrase(ctx context.Context, query string, limit int) ([]LexicalHit, error) {
	// Quoting makes FTS5 treat the query as a unit, not a token union.
	// Embedded quotes are doubled per SQL string rules.
	phrase := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`

	rows, err := s.db.QueryContext(ctx, `
		SELECT page_num, line_num,
		       snippet(segments_fts, -1, '[', ']', '...', 12)
		FROM segments_fts
		WHERE segments_fts MATCH ?
		LIMIT ?`, phrase, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []LexicalHit
	for rows.Next() {
		var h LexicalHit
		if err := rows.Scan(&h.Page, &h.Line, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scan lexical hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ScanSegments visits every segment in storage order (insertion order),
// decoding its embedding. The visit order is the semantic tie-break
// order for equal similarity scores.
func (s *Store) ScanSegments(ctx context.Context, visit func(seg Segment) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, page_num, line_num, content, embedding
		FROM segments ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("scan segments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var seg Segment
		var blob []byte
		if err := rows.Scan(&seg.DocID, &seg.Page, &seg.Line, &seg.Text, &blob); err != nil {
			return fmt.Errorf("scan segment row: %w", err)
		}
		seg.Embedding = DecodeVector(blob)
		if err := visit(seg); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
