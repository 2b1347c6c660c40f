package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4/redis"
	"github.com/google/uuid"
	"github.com/lestrrat-go/backoff/v2"
	"github.com/stevearc/worklock/pkg/lock"
	"github.com/stevearc/worklock/pkg/logger"
)

// LockDriftFactor compensates for clock drift between nodes when computing
// how long an acquired lock remains valid.
var LockDriftFactor = 0.01

type redisMutex struct {
	lg       *slog.Logger
	prefix   string
	mutexKey string

	*lock.AcquireOptions

	quorum int
	pools  []redis.Pool

	uuid  string
	until time.Time
}

func newRedisMutex(
	prefix, key string,
	quorum int,
	pools []redis.Pool,
	lg *slog.Logger,
	opts *lock.AcquireOptions,
) *redisMutex {
	return &redisMutex{
		lg:             lg.With("prefix", prefix, "key", key, "quorum", quorum),
		prefix:         prefix,
		mutexKey:       key,
		AcquireOptions: opts,
		quorum:         quorum,
		pools:          pools,
	}
}

func (m *redisMutex) key() string {
	return m.prefix + "-" + m.mutexKey
}

func (m *redisMutex) scopedToken() string {
	return uuid.New().String()
}

func (m *redisMutex) actOnPoolsAsync(actFn func(redis.Pool) (bool, error)) (int, error) {
	type result struct {
		Node   int
		Status bool
		Err    error
	}

	ch := make(chan result)
	for node, pool := range m.pools {
		go func(node int, pool redis.Pool) {
			r := result{Node: node}
			r.Status, r.Err = actFn(pool)
			ch <- r
		}(node, pool)
	}
	n := 0
	var taken []int
	var err error
	for range m.pools {
		r := <-ch
		if r.Status {
			n++
		} else if r.Err != nil {
			err = errors.Join(err, &RedisError{Node: r.Node, Err: r.Err})
		} else {
			taken = append(taken, r.Node)
			err = errors.Join(err, &ErrNodeTaken{Node: r.Node})
		}
	}
	if len(taken) >= m.quorum {
		m.lg.With("taken", taken).Debug("consensus reached elsewhere on given operation")
		return n, ErrTaken
	}
	return n, err
}

func (m *redisMutex) acquire(ctx context.Context, pool redis.Pool, value string) (bool, error) {
	conn, err := pool.Get(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	reply, err := conn.SetNX(m.key(), value, m.Expires)
	if err != nil {
		m.lg.With("fenced", value).Error("failed to acquire lock", logger.Err(err))
		return false, err
	}
	return reply, nil
}

// lock polls every pool for the key with a TTL of `expires` until quorum is
// reached or `timeout` elapses. Partial acquisitions are rolled back before
// each retry so a contender never wedges the key.
func (m *redisMutex) lock(ctx context.Context) error {
	token := m.scopedToken()

	ctx, ca := context.WithTimeout(ctx, m.Timeout)
	defer ca()

	var lastErr error
	// retries are bounded by the deadline, not a count
	p := backoff.Constant(
		backoff.WithInterval(lock.DefaultRetryDelay),
		backoff.WithMaxRetries(0),
	)
	b := p.Start(ctx)
	for backoff.Continue(b) {
		start := time.Now()
		n, lockErr := m.actOnPoolsAsync(func(pool redis.Pool) (bool, error) {
			return m.acquire(ctx, pool, token)
		})

		now := time.Now()
		until := now.Add(m.Expires - now.Sub(start) - expiryDrift(m.Expires))
		if n >= m.quorum && now.Before(until) {
			m.lg.Debug("lock acquired and valid")
			m.uuid = token
			m.until = until
			return nil
		}
		lastErr = lockErr

		// roll back any partial acquisition, then retry
		m.releaseAll(token)
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: key %q after %s", lock.ErrAcquireTimeout, m.key(), m.Timeout)
	}
	return errors.Join(ctx.Err(), lastErr)
}

func (m *redisMutex) releaseAll(value string) (int, error) {
	ctx, ca := context.WithTimeout(context.Background(), m.Expires)
	defer ca()
	return m.actOnPoolsAsync(func(pool redis.Pool) (bool, error) {
		return m.release(ctx, pool, value)
	})
}

func (m *redisMutex) unlock() error {
	m.lg.With("valid_until", m.until).Debug("unlock requested")
	n, err := m.releaseAll(m.uuid)
	if n < m.quorum {
		m.lg.With(logger.Err(err)).Warn("failed to release lock, no consensus")
		return err
	}
	return nil
}

var deleteScript = redis.NewScript(1, `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

func (m *redisMutex) release(ctx context.Context, pool redis.Pool, value string) (bool, error) {
	conn, err := pool.Get(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	status, err := conn.Eval(deleteScript, m.key(), value)
	if err != nil {
		return false, err
	}
	return status != int64(0), nil
}

func expiryDrift(expiry time.Duration) time.Duration {
	return time.Duration(int64(float64(expiry) * LockDriftFactor))
}
