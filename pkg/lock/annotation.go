package lock

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stevearc/worklock/pkg/logger"
)

// Annotation is the caller-facing surface for bracketing critical sections
// with a shared LockFactory. It supports wrapping an entire function
// (decorator mode) and scoped inline acquisition for dynamically computed
// keys.
//
// The wrapped section's own failure is never swallowed: the lock is released
// and the original error (or panic) propagates unchanged.
type Annotation struct {
	factory LockFactory
	lg      *slog.Logger
}

func NewAnnotation(factory LockFactory, lg *slog.Logger) *Annotation {
	return &Annotation{
		factory: factory,
		lg:      lg,
	}
}

// Wrap returns a function that acquires the lock for key before every call
// to fn and releases it on every outcome, including fn panicking.
func (a *Annotation) Wrap(key string, fn func(ctx context.Context) error, opts ...AcquireOption) func(ctx context.Context) error {
	return func(ctx context.Context) (err error) {
		l, acquireErr := a.factory.Acquire(ctx, key, opts...)
		if acquireErr != nil {
			return acquireErr
		}
		defer func() {
			relErr := l.Release()
			if relErr != nil && !errors.Is(relErr, ErrAlreadyReleased) {
				if err == nil {
					err = relErr
					return
				}
				a.lg.With("key", key, logger.Err(relErr)).Warn("failed to release lock")
			}
		}()
		return fn(ctx)
	}
}

// Inline acquires a lock for a caller-chosen block. The caller owns the
// returned Lock and must release it when the block exits.
func (a *Annotation) Inline(ctx context.Context, key string, opts ...AcquireOption) (Lock, error) {
	return a.factory.Acquire(ctx, key, opts...)
}

// Do brackets fn in an acquire/release pair for key.
func (a *Annotation) Do(ctx context.Context, key string, fn func() error, opts ...AcquireOption) error {
	wrapped := a.Wrap(key, func(context.Context) error {
		return fn()
	}, opts...)
	return wrapped(ctx)
}
