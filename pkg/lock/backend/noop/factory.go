// Package noop provides the backend used when synchronization is disabled by
// configuration. Every acquisition succeeds immediately and nothing is ever
// contended; expires and timeout are ignored.
package noop

import (
	"context"

	"github.com/stevearc/worklock/pkg/lock"
)

type LockFactory struct{}

var _ lock.LockFactory = (*LockFactory)(nil)

func NewLockFactory() *LockFactory {
	return &LockFactory{}
}

func (f *LockFactory) Acquire(_ context.Context, key string, _ ...lock.AcquireOption) (lock.Lock, error) {
	return &noopLock{key: key}, nil
}

type noopLock struct {
	key  string
	once lock.OnceErr
}

var _ lock.Lock = (*noopLock)(nil)

func (l *noopLock) Key() string {
	return l.key
}

func (l *noopLock) Release() error {
	return l.once.Do(func() error {
		return nil
	})
}
