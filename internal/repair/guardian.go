// Package repair implements the integrity guardian: an out-of-band
// maintenance pass that finds corrupt index stores, backs them up, and
// either rebuilds them from a dump or quarantines them behind an empty
// placeholder. It is safe to run repeatedly: healthy stores are skipped
// untouched, and quarantined files are never reprocessed as stores.
package repair

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/doclens/doclens/internal/doclock"
	doclenserr "github.com/doclens/doclens/internal/errors"
	"github.com/doclens/doclens/internal/store"
)

// Outcome is the terminal state of one store's repair attempt.
type Outcome string

const (
	// OutcomeSkipped means the store passed its structural check (or is
	// locked by an in-flight indexing operation) and was left untouched.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeRepaired means a rebuilt store exists at a new path.
	OutcomeRepaired Outcome = "repaired"
	// OutcomeReset means the corrupt original was quarantined and an
	// empty placeholder created at the original path.
	OutcomeReset Outcome = "quarantined-and-reset"
	// OutcomeUnrecoverable means the guardian could not even back up or
	// quarantine the store; it was left as found.
	OutcomeUnrecoverable Outcome = "unrecoverable"
)

// TimestampLayout is shared by backup, dump, repaired, and quarantine
// names. One value per run, not per store, so a batch correlates.
const TimestampLayout = "20060102150405"

// Record describes what happened to one discovered store.
type Record struct {
	StorePath      string  `json:"store"`
	Healthy        bool    `json:"healthy"`
	Outcome        Outcome `json:"outcome"`
	BackupPath     string  `json:"backup,omitempty"`
	DumpPath       string  `json:"dump,omitempty"`
	RepairedPath   string  `json:"repaired,omitempty"`
	QuarantinePath string  `json:"quarantine,omitempty"`
	Err            error   `json:"-"`
	Detail         string  `json:"detail,omitempty"`
}

// Checker is the capability surface the guardian needs from a store:
// a structural self-check and a full dump. The guardian never depends
// on the store's internal schema.
type Checker interface {
	CheckHealth(ctx context.Context) error
	DumpAll(ctx context.Context, w io.Writer) error
	Close() error
}

// Config wires the guardian's store capabilities. Zero values select the
// SQLite-backed implementations; tests substitute fakes.
type Config struct {
	// OpenStore opens a store for checking and dumping.
	OpenStore func(path string) (Checker, error)
	// Replay rebuilds a store at path from a statement log.
	Replay func(ctx context.Context, path, statements string) error
	// Placeholder creates an empty schema-less store at path.
	Placeholder func(path string) error
	// Now supplies the run timestamp.
	Now func() time.Time
	// Workers bounds concurrent store processing. 0 = NumCPU.
	Workers int
}

// Guardian scans for corrupt stores and repairs or quarantines them.
type Guardian struct {
	openStore   func(path string) (Checker, error)
	replay      func(ctx context.Context, path, statements string) error
	placeholder func(path string) error
	now         func() time.Time
	workers     int
}

// New creates a guardian from the config.
func New(cfg Config) *Guardian {
	g := &Guardian{
		openStore:   cfg.OpenStore,
		replay:      cfg.Replay,
		placeholder: cfg.Placeholder,
		now:         cfg.Now,
		workers:     cfg.Workers,
	}
	if g.openStore == nil {
		g.openStore = func(path string) (Checker, error) { return store.Open(path) }
	}
	if g.replay == nil {
		g.replay = store.Replay
	}
	if g.placeholder == nil {
		g.placeholder = store.CreatePlaceholder
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.workers <= 0 {
		g.workers = runtime.NumCPU()
	}
	return g
}

// Run discovers every store under scanRoot and processes each one,
// several stores at a time. All artifact names in one run share a
// single timestamp. Records come back in discovery order.
func (g *Guardian) Run(ctx context.Context, scanRoot string) ([]Record, error) {
	stores, err := Discover(scanRoot)
	if err != nil {
		return nil, err
	}

	ts := g.now().Format(TimestampLayout)
	records := make([]Record, len(stores))

	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for i, path := range stores {
		eg.Go(func() error {
			rec := g.processStore(ctx, path, ts)
			if rec.Err != nil {
				slog.Warn("store_repair_issue",
					slog.String("store", path),
					slog.String("outcome", string(rec.Outcome)),
					slog.String("error", rec.Err.Error()))
			} else {
				slog.Info("store_processed",
					slog.String("store", path),
					slog.String("outcome", string(rec.Outcome)))
			}
			records[i] = rec
			return nil
		})
	}
	_ = eg.Wait()

	return records, nil
}

// Discover locates every store file under root. Sidecars (backups,
// quarantined originals, locks, in-progress builds) do not carry the
// store suffix and are never treated as stores.
func Discover(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("scan root %s: %w", root, err)
	}

	var stores []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), store.Suffix) {
			stores = append(stores, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return stores, nil
}

// processStore drives one store through the repair state machine.
func (g *Guardian) processStore(ctx context.Context, path, ts string) Record {
	rec := Record{StorePath: path, Outcome: OutcomeSkipped}

	// Never repair a store that is the live target of an indexing
	// operation; the next run will see it again.
	lock := doclock.ForStore(path)
	acquired, err := lock.TryLock()
	if err != nil {
		rec.Detail = fmt.Sprintf("lock unavailable: %v", err)
		return rec
	}
	if !acquired {
		rec.Detail = "locked by an in-flight indexing operation"
		return rec
	}
	defer func() { _ = lock.Unlock() }()

	c, err := g.openStore(path)
	if err != nil {
		rec.Outcome = OutcomeUnrecoverable
		rec.Err = err
		return rec
	}

	healthErr := c.CheckHealth(ctx)
	if healthErr == nil {
		_ = c.Close()
		rec.Healthy = true
		return rec
	}
	rec.Detail = healthErr.Error()

	// Before any mutation: byte-for-byte backup. A failed backup aborts
	// repair for this store; it is left untouched.
	backupPath, err := copyFile(path, path+".bak_"+ts)
	if err != nil {
		_ = c.Close()
		rec.Outcome = OutcomeUnrecoverable
		rec.Err = doclenserr.Wrap(doclenserr.ErrCodeBackupFailed, err)
		return rec
	}
	rec.BackupPath = backupPath

	stem := strings.TrimSuffix(path, store.Suffix)
	rec.DumpPath = stem + "_dump_" + ts + ".sql"
	repairedPath := stem + "_repaired_" + ts + store.Suffix

	dumpErr := g.dumpTo(ctx, c, rec.DumpPath)
	_ = c.Close()
	if dumpErr != nil {
		rec.Err = doclenserr.Wrap(doclenserr.ErrCodeDumpFailed, dumpErr)
		return g.quarantine(rec, path, ts)
	}

	statements, err := os.ReadFile(rec.DumpPath)
	if err != nil {
		rec.Err = doclenserr.Wrap(doclenserr.ErrCodeDumpFailed, err)
		return g.quarantine(rec, path, ts)
	}

	if err := g.replay(ctx, repairedPath, string(statements)); err != nil {
		rec.Err = err
		return g.quarantine(rec, path, ts)
	}

	// Original corrupt file is intentionally left in place; the rebuilt
	// store lives at a new path.
	rec.Outcome = OutcomeRepaired
	rec.RepairedPath = repairedPath
	return rec
}

// dumpTo writes the store's statement log to dumpPath. A store corrupt
// enough to block full serialization fails here.
func (g *Guardian) dumpTo(ctx context.Context, c Checker, dumpPath string) error {
	f, err := os.Create(dumpPath)
	if err != nil {
		return err
	}
	if err := c.DumpAll(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// quarantine moves the corrupt original aside and installs an empty
// placeholder at the original path, so dependent lookups do not
// hard-fail. Callers must treat the placeholder as "needs re-indexing".
func (g *Guardian) quarantine(rec Record, path, ts string) Record {
	quarantinePath := path + ".corrupt_" + ts
	if err := os.Rename(path, quarantinePath); err != nil {
		rec.Outcome = OutcomeUnrecoverable
		rec.Err = fmt.Errorf("quarantine %s: %w", path, err)
		return rec
	}
	rec.QuarantinePath = quarantinePath

	if err := g.placeholder(path); err != nil {
		rec.Outcome = OutcomeUnrecoverable
		rec.Err = fmt.Errorf("create placeholder at %s: %w", path, err)
		return rec
	}
	rec.Outcome = OutcomeReset
	return rec
}

// copyFile copies src to dst byte-for-byte and returns dst.
func copyFile(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dst, nil
}
