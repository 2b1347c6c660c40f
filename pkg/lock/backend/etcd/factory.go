// Package etcd provides the second arbiter-backed lock backend. Each
// acquisition takes a mutex on a lease whose TTL equals `expires`, so the
// store reclaims the lock once a dead holder's lease lapses. Acquisition is
// bounded by `timeout` and fails with lock.ErrAcquireTimeout when it elapses.
package etcd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stevearc/worklock/pkg/lock"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type LockFactory struct {
	client *clientv3.Client
	prefix string

	lg *slog.Logger
}

var _ lock.LockFactory = (*LockFactory)(nil)

func NewLockFactory(
	client *clientv3.Client,
	prefix string,
	lg *slog.Logger,
) *LockFactory {
	return &LockFactory{
		client: client,
		prefix: prefix,
		lg:     lg,
	}
}

// Health checks the status of every configured endpoint. The broker calls it
// once at resolution; degraded endpoints come back as conditions.
func (f *LockFactory) Health(ctx context.Context) (conditions []string, err error) {
	conditions = make([]string, 0)
	remoteEndpoints := f.client.Endpoints()
	for _, endp := range remoteEndpoints {
		resp, stErr := f.client.Status(ctx, endp)
		if stErr != nil {
			err = errors.Join(err, stErr)
			continue
		}
		if len(resp.Errors) > 0 {
			conditions = append(conditions, fmt.Sprintf("%s : %s", endp, strings.Join(resp.Errors, ",")))
		}
	}
	return
}

// !! Sessions cannot be shared across locks: a shared session would send
// keepalives for every lock at once and closing it to revoke one lock's
// lease would revoke them all. Each acquisition owns its session.
func (f *LockFactory) Acquire(ctx context.Context, key string, opts ...lock.AcquireOption) (lock.Lock, error) {
	options := lock.DefaultAcquireOptions()
	options.Apply(opts...)
	m := newEtcdMutex(f.lg, f.client, f.prefix, key, options)
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	return &etcdLock{key: key, m: m}, nil
}

type etcdLock struct {
	key  string
	m    *etcdMutex
	once lock.OnceErr
}

var _ lock.Lock = (*etcdLock)(nil)

func (l *etcdLock) Key() string {
	return l.key
}

func (l *etcdLock) Release() error {
	return l.once.Do(l.m.unlock)
}
