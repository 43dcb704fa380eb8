// Package doclock serializes mutation of a document's index store.
// Indexing and repair both acquire the document's lock before touching
// its store file, so at most one writer is active per document identity
// even across processes. Locking uses gofrs/flock and works on all
// platforms.
package doclock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockSuffix is appended to a store path to name its lock file.
const LockSuffix = ".lock"

// Lock guards one document's index store.
type Lock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// ForStore creates a lock for the given store path. The lock file is a
// sibling of the store so that scans of the store directory can see it.
func ForStore(storePath string) *Lock {
	lockPath := storePath + LockSuffix
	return &Lock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock acquires the exclusive lock, blocking until it is available.
func (l *Lock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire document lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if acquired, false if another writer holds it.
func (l *Lock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire document lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an unlocked Lock.
func (l *Lock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		l.locked = false
		return fmt.Errorf("release document lock: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the path to the lock file.
func (l *Lock) Path() string {
	return l.path
}

// IsLockFile reports whether a file name is a lock sidecar rather than
// a store. Scans must never treat lock files as stores.
func IsLockFile(name string) bool {
	return filepath.Ext(name) == LockSuffix
}
