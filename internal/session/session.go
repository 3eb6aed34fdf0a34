// Package session identifies one pix360 run and guards the single watcher.
//
// Every run gets a random session id that is sent as X-Client-Session and
// stamped on log lines and history entries. Only one `pix360 watch` may poll
// at a time per state directory; the lock is an advisory flock on
// <state_dir>/watch.lock.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrAlreadyWatching is returned when another process holds the watch lock.
var ErrAlreadyWatching = errors.New("another pix360 watch is already running")

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// Lock is a held watch lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the watch lock at path without blocking.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyWatching, path)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. Releasing a nil lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
