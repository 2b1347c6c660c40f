package etcd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/stevearc/worklock/pkg/lock"
	"github.com/stevearc/worklock/pkg/logger"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

// encapsulates stateful information and tasks required for holding a lock
type etcdMutex struct {
	lg *slog.Logger

	client *clientv3.Client
	prefix string
	key    string

	session *concurrency.Session
	mutex   *concurrency.Mutex

	*lock.AcquireOptions
}

func newEtcdMutex(
	lg *slog.Logger,
	client *clientv3.Client,
	prefix, key string,
	opts *lock.AcquireOptions,
) *etcdMutex {
	return &etcdMutex{
		lg:             lg.With("prefix", prefix, "key", key),
		client:         client,
		prefix:         prefix,
		key:            key,
		AcquireOptions: opts,
	}
}

// leaseTTL converts `expires` to the session lease TTL in whole seconds.
// etcd leases have one-second granularity.
func (e *etcdMutex) leaseTTL() int {
	ttl := int(e.Expires / time.Second)
	if ttl < 1 {
		ttl = 1
	}
	return ttl
}

// lock takes the mutex on a fresh session whose lease TTL is `expires`. The
// session keepalive stops when the holder process dies, at which point the
// store reclaims the lock after the TTL. A live holder is kept alive past
// `expires`; only dead holders are expired.
func (e *etcdMutex) lock(ctx context.Context) error {
	session, err := concurrency.NewSession(
		e.client,
		concurrency.WithTTL(e.leaseTTL()),
		concurrency.WithContext(context.WithoutCancel(ctx)),
	)
	if err != nil {
		return fmt.Errorf("failed to create etcd session: %w", err)
	}

	mutex := concurrency.NewMutex(session, path.Join(e.prefix, e.key))
	lockCtx, ca := context.WithTimeout(ctx, e.Timeout)
	defer ca()
	if err := mutex.Lock(lockCtx); err != nil {
		session.Close()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: key %q after %s", lock.ErrAcquireTimeout, e.key, e.Timeout)
		}
		return err
	}
	e.session = session
	e.mutex = mutex
	return nil
}

// unlock releases the mutex and closes the session, revoking the lease so
// the key is freed server-side even if the unlock RPC itself fails.
func (e *etcdMutex) unlock() error {
	if e.mutex == nil {
		return errors.New("mutex not acquired")
	}
	ctx, ca := context.WithTimeout(context.Background(), 60*time.Second)
	defer ca()
	err := e.mutex.Unlock(ctx)
	if err != nil {
		e.lg.With(logger.Err(err)).Warn("failed to unlock mutex, revoking lease instead")
	}
	e.mutex = nil
	closeErr := e.session.Close()
	e.session = nil
	return errors.Join(err, closeErr)
}
