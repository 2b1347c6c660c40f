// Package redis provides the shared-store lock backend. Keys map to values
// set across one or more redis nodes with a TTL equal to the acquisition's
// `expires`, so a crashed or hung holder's lock becomes reclaimable once the
// TTL lapses. Acquisition polls up to `timeout` before giving up with
// lock.ErrAcquireTimeout. This is the only backend family offering cross-host
// mutual exclusion with automatic recovery from a dead holder.
package redis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-redsync/redsync/v4/redis"
	"github.com/stevearc/worklock/pkg/lock"
)

var pingScript = redis.NewScript(0, `
	return redis.call("PING")
`)

type LockFactory struct {
	pools  []redis.Pool
	quorum int

	prefix string

	lg *slog.Logger
}

var _ lock.LockFactory = (*LockFactory)(nil)

func NewLockFactory(
	prefix string,
	pools []redis.Pool,
	lg *slog.Logger,
) *LockFactory {
	return &LockFactory{
		pools:  pools,
		prefix: prefix,
		quorum: len(pools)/2 + 1,
		lg:     lg,
	}
}

// Health probes every pool. The broker calls it once at resolution so a
// misconfigured store fails at startup instead of on first acquisition.
func (f *LockFactory) Health(ctx context.Context) (conditions []string, err error) {
	for _, pool := range f.pools {
		conn, poolErr := pool.Get(ctx)
		if poolErr != nil {
			err = errors.Join(err, poolErr)
			continue
		}
		_, evalErr := conn.Eval(pingScript)
		conn.Close()
		if evalErr != nil {
			err = errors.Join(err, evalErr)
			continue
		}
	}
	return []string{}, err
}

func (f *LockFactory) Acquire(ctx context.Context, key string, opts ...lock.AcquireOption) (lock.Lock, error) {
	options := lock.DefaultAcquireOptions()
	options.Apply(opts...)
	m := newRedisMutex(f.prefix, key, f.quorum, f.pools, f.lg, options)
	if err := m.lock(ctx); err != nil {
		return nil, err
	}
	return &redisLock{key: key, m: m}, nil
}

type redisLock struct {
	key  string
	m    *redisMutex
	once lock.OnceErr
}

var _ lock.Lock = (*redisLock)(nil)

func (l *redisLock) Key() string {
	return l.key
}

func (l *redisLock) Release() error {
	return l.once.Do(l.m.unlock)
}
