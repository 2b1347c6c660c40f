// Package process provides the in-process lock backend. Keys map to
// reentrant locks held in a shared table guarded by the factory's own mutex,
// so concurrent first touches of distinct keys never race on insertion.
//
// Visibility scope is a single process only. There is no external arbiter,
// so `expires` is not honored, and `timeout` is not applied by the backend:
// an acquisition blocks until the holder releases or the caller's context is
// cancelled. These are documented limitations of this backend, not bugs.
package process

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stevearc/worklock/pkg/lock"
)

type LockFactory struct {
	lg *slog.Logger

	mu    sync.Mutex
	locks map[string]*keyedLock
}

var _ lock.LockFactory = (*LockFactory)(nil)

func NewLockFactory(lg *slog.Logger) *LockFactory {
	return &LockFactory{
		lg:    lg,
		locks: make(map[string]*keyedLock),
	}
}

// keyedLock is a reentrant lock for one key. The baton channel is the
// blocking primitive; holder/depth track reentrancy for a logical holder.
type keyedLock struct {
	baton chan struct{}

	mu     sync.Mutex
	holder string
	depth  int
}

func (f *LockFactory) keyed(key string) *keyedLock {
	f.mu.Lock()
	defer f.mu.Unlock()
	kl, ok := f.locks[key]
	if !ok {
		kl = &keyedLock{baton: make(chan struct{}, 1)}
		f.locks[key] = kl
	}
	return kl
}

// Acquire blocks until the lock for key is held. Re-acquisition by the same
// holder token succeeds without blocking; acquisitions without a holder
// token are never treated as reentrant.
func (f *LockFactory) Acquire(ctx context.Context, key string, opts ...lock.AcquireOption) (lock.Lock, error) {
	options := lock.DefaultAcquireOptions()
	options.Apply(opts...)
	if options.Expires != lock.DefaultExpires {
		f.lg.With("key", key, "expires", options.Expires).Debug("expires is not enforced by the process backend")
	}

	kl := f.keyed(key)

	if options.Holder != "" {
		kl.mu.Lock()
		if kl.holder == options.Holder {
			kl.depth++
			kl.mu.Unlock()
			f.lg.With("key", key, "holder", options.Holder).Debug("reentrant acquisition")
			return &processLock{key: key, kl: kl}, nil
		}
		kl.mu.Unlock()
	}

	select {
	case kl.baton <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquiring %q: %w", key, ctx.Err())
	}

	kl.mu.Lock()
	kl.holder = options.Holder
	kl.depth = 1
	kl.mu.Unlock()
	return &processLock{key: key, kl: kl}, nil
}

type processLock struct {
	key  string
	kl   *keyedLock
	once lock.OnceErr
}

var _ lock.Lock = (*processLock)(nil)

func (l *processLock) Key() string {
	return l.key
}

func (l *processLock) Release() error {
	return l.once.Do(func() error {
		l.kl.mu.Lock()
		l.kl.depth--
		released := l.kl.depth == 0
		if released {
			l.kl.holder = ""
		}
		l.kl.mu.Unlock()
		if released {
			<-l.kl.baton
		}
		return nil
	})
}
