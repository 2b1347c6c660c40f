// Package file provides the file-based lock backend. Each key maps to an
// advisory exclusive flock on a file named after the key inside a configured
// lock directory, so the lock is visible to every process on the host that
// shares the directory.
//
// There is no arbiter that can reclaim a held lock, so `expires` is not
// honored: expiration safety rests entirely on the OS releasing the flock
// when the holder process exits. Acquisition blocks until the flock is taken
// or the caller's context is cancelled; `timeout` is not otherwise applied.
package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/stevearc/worklock/pkg/lock"
)

type LockFactory struct {
	dir string
	lg  *slog.Logger
}

var _ lock.LockFactory = (*LockFactory)(nil)

// NewLockFactory creates the lock directory if absent. A directory that
// cannot be created is fatal at construction time.
func NewLockFactory(dir string, lg *slog.Logger) (*LockFactory, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create lock directory %q: %v", lock.ErrBackendUnavailable, dir, err)
	}
	return &LockFactory{
		dir: dir,
		lg:  lg,
	}, nil
}

func (f *LockFactory) path(key string) string {
	return filepath.Join(f.dir, sanitizeKey(key)+".lock")
}

// Acquire opens or creates the key's lock file and blocks until the advisory
// lock is taken. The file stays open for the duration of the hold; closing
// it at release drops the lock.
func (f *LockFactory) Acquire(ctx context.Context, key string, opts ...lock.AcquireOption) (lock.Lock, error) {
	options := lock.DefaultAcquireOptions()
	options.Apply(opts...)
	if options.Expires != lock.DefaultExpires {
		f.lg.With("key", key, "expires", options.Expires).Debug("expires is not enforced by the file backend")
	}

	fl := flock.New(f.path(key))
	acquired, err := fl.TryLockContext(ctx, lock.DefaultRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %q: %w", fl.Path(), err)
	}
	if !acquired {
		return nil, fmt.Errorf("failed to lock %q: %w", fl.Path(), ctx.Err())
	}
	f.lg.With("key", key, "path", fl.Path()).Debug("acquired file lock")
	return &fileLock{key: key, fl: fl}, nil
}

type fileLock struct {
	key  string
	fl   *flock.Flock
	once lock.OnceErr
}

var _ lock.Lock = (*fileLock)(nil)

func (l *fileLock) Key() string {
	return l.key
}

func (l *fileLock) Release() error {
	return l.once.Do(func() error {
		return l.fl.Unlock()
	})
}

// Keys are used verbatim as file names; path separators would escape the
// lock directory.
func sanitizeKey(key string) string {
	out := []rune(key)
	for i, r := range out {
		if r == '/' || r == os.PathSeparator {
			out[i] = '-'
		}
	}
	return string(out)
}
