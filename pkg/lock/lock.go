package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrAcquireTimeout is returned when the acquisition wait window elapses
	// before the lock is obtained, on backends that honor timeouts.
	ErrAcquireTimeout = errors.New("lock acquisition timed out")
	// ErrBackendUnavailable is returned at factory construction when the
	// backend's required resource cannot be set up.
	ErrBackendUnavailable = errors.New("lock backend unavailable")
	// ErrAlreadyReleased is returned when Release is called more than once on
	// the same lock handle.
	ErrAlreadyReleased = errors.New("lock already released")
)

var (
	// DefaultExpires is the maximum hold duration before an arbiter-backed
	// backend considers the lock stale.
	DefaultExpires = 120 * time.Second
	// DefaultTimeout bounds how long an acquisition attempt may block on
	// backends that honor timeouts.
	DefaultTimeout = 60 * time.Second
	// DefaultRetryDelay is the polling cadence used by backends that acquire
	// by retrying a non-blocking primitive.
	DefaultRetryDelay = 10 * time.Millisecond
)

// Lock is a held mutual-exclusion slot for a single key. A Lock is created
// per acquisition attempt and must be released exactly once, on every exit
// path of the section it protects.
//
// A single acquisition moves UNLOCKED -> ACQUIRING -> HELD -> UNLOCKED, or
// ACQUIRING -> FAILED with no transition to HELD.
type Lock interface {
	// Key returns the mutual-exclusion domain this lock was acquired for.
	Key() string
	// Release releases the lock. Calling Release a second time returns
	// ErrAlreadyReleased without touching the backend.
	Release() error
}

// LockFactory produces Locks for keys. A factory is constructed exactly once
// per process from its backend settings and shared for the process lifetime.
//
// For a given factory and key, at most one Lock is held at any time within
// the backend's visibility scope (process, host filesystem, or shared store).
// Whether Expires and Timeout are honored is backend specific; each
// implementation documents its own limitations.
type LockFactory interface {
	Acquire(ctx context.Context, key string, opts ...AcquireOption) (Lock, error)
}

type AcquireOptions struct {
	// Expires is the intended maximum hold duration. Only enforceable by
	// backends with an external arbiter.
	Expires time.Duration
	// Timeout is the maximum duration an acquisition attempt may block.
	Timeout time.Duration
	// Holder identifies the logical holder for reentrancy purposes. Only
	// meaningful to the process backend; empty means never reentrant.
	Holder string
}

func DefaultAcquireOptions() *AcquireOptions {
	return &AcquireOptions{
		Expires: DefaultExpires,
		Timeout: DefaultTimeout,
	}
}

func (o *AcquireOptions) Apply(opts ...AcquireOption) {
	for _, op := range opts {
		op(o)
	}
}

type AcquireOption func(o *AcquireOptions)

func WithExpires(expires time.Duration) AcquireOption {
	return func(o *AcquireOptions) {
		o.Expires = expires
	}
}

func WithTimeout(timeout time.Duration) AcquireOption {
	return func(o *AcquireOptions) {
		o.Timeout = timeout
	}
}

func WithHolder(holder string) AcquireOption {
	return func(o *AcquireOptions) {
		o.Holder = holder
	}
}

// Modified sync.Once primitive, used by lock handles to guarantee the
// backend release runs at most once.
type OnceErr struct {
	done uint32
	m    sync.Mutex
}

func (o *OnceErr) Do(f func() error) error {
	if atomic.LoadUint32(&o.done) == 0 {
		return o.doSlow(f)
	}
	return ErrAlreadyReleased
}

func (o *OnceErr) doSlow(f func() error) error {
	o.m.Lock()
	defer o.m.Unlock()
	if o.done == 0 {
		defer atomic.StoreUint32(&o.done, 1)
		return f()
	}
	return ErrAlreadyReleased
}
