package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	doclenserr "github.com/doclens/doclens/internal/errors"
)

// healthOK is the sentinel PRAGMA integrity_check reports for a sound
// database. Anything else, including a failure to run the check at all,
// means the store is corrupt.
const healthOK = "ok"

// CheckHealth runs the store's structural self-check. It returns nil for
// a healthy store and a StoreCorrupt error otherwise.
func (s *Store) CheckHealth(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return doclenserr.New(doclenserr.ErrCodeStoreCorrupt,
			fmt.Sprintf("integrity check failed for %s", s.path), err)
	}
	if result != healthOK {
		return doclenserr.New(doclenserr.ErrCodeStoreCorrupt,
			fmt.Sprintf("store %s corrupt: %s", s.path, result), nil)
	}
	return nil
}

// DumpAll serializes the whole store into a textual SQL statement log:
// schema statements followed by one INSERT per recoverable row. The dump
// is schema-agnostic; it walks sqlite_master, so the caller never needs
// to know the segment layout. Replaying the log into an empty database
// reproduces the store.
func (s *Store) DumpAll(ctx context.Context, w io.Writer) error {
	if _, err := io.WriteString(w, "BEGIN TRANSACTION;\n"); err != nil {
		return err
	}

	type master struct {
		name, kind, sql string
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, sql FROM sqlite_master
		WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite_%'
		ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	var entries []master
	for rows.Next() {
		var m master
		if err := rows.Scan(&m.name, &m.kind, &m.sql); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan schema row: %w", err)
		}
		entries = append(entries, m)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	// Virtual tables own shadow tables named <vt>_<suffix>; those are
	// managed by the module and must not be dumped or replayed directly.
	virtual := map[string]bool{}
	for _, m := range entries {
		if m.kind == "table" && strings.HasPrefix(strings.ToUpper(m.sql), "CREATE VIRTUAL TABLE") {
			virtual[m.name] = true
		}
	}
	isShadow := func(name string) bool {
		for vt := range virtual {
			if strings.HasPrefix(name, vt+"_") {
				return true
			}
		}
		return false
	}

	// Tables first: schema then rows, preserving storage (rowid) order so
	// a replayed store keeps the original tie-break ordering.
	for _, m := range entries {
		if m.kind != "table" || isShadow(m.name) {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s;\n", m.sql); err != nil {
			return err
		}
		if err := s.dumpRows(ctx, w, m.name, !virtual[m.name]); err != nil {
			return err
		}
	}

	// Indexes, triggers, and views after the data they depend on.
	for _, m := range entries {
		if m.kind == "table" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s;\n", m.sql); err != nil {
			return err
		}
	}

	_, err = io.WriteString(w, "COMMIT;\n")
	return err
}

// dumpRows writes one INSERT statement per row of table. Values are
// rendered by sqlite's quote() so text, blobs, and NULLs are emitted as
// valid SQL literals.
func (s *Store) dumpRows(ctx context.Context, w io.Writer, table string, byRowid bool) error {
	cols, err := s.tableColumns(ctx, table)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf(`quote("%s")`, c)
	}
	q := fmt.Sprintf(`SELECT %s FROM "%s"`, strings.Join(quoted, ", "), table)
	if byRowid {
		q += " ORDER BY rowid"
	}

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("dump rows of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	vals := make([]string, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("dump row of %s: %w", table, err)
		}
		if _, err := fmt.Fprintf(w, "INSERT INTO \"%s\" VALUES(%s);\n",
			table, strings.Join(vals, ",")); err != nil {
			return err
		}
	}
	return rows.Err()
}

// tableColumns returns the declared column names of a table.
func (s *Store) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, table))
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// Replay executes a statement log into a brand-new database at path and
// compacts it. On failure the half-built file is deleted.
func Replay(ctx context.Context, path string, statements string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return doclenserr.Wrap(doclenserr.ErrCodeReplayFailed, err)
	}

	fail := func(cause error) error {
		_ = db.Close()
		_ = os.Remove(path)
		return doclenserr.Wrap(doclenserr.ErrCodeReplayFailed, cause)
	}

	if _, err := db.ExecContext(ctx, statements); err != nil {
		return fail(err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		return fail(err)
	}
	return db.Close()
}

// CreatePlaceholder creates an empty, schema-less store file at path.
// Dependent lookups will open it and find no data; callers must treat
// this as "needs re-indexing", not as a working index.
func CreatePlaceholder(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// A no-op statement forces the file into existence.
	var v int
	return db.QueryRow("PRAGMA schema_version").Scan(&v)
}
