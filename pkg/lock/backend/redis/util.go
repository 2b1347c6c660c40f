package redis

import (
	"context"
	"fmt"

	"github.com/go-redsync/redsync/v4/redis"
	goredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/stevearc/worklock/pkg/config/v1alpha1"
	"github.com/stevearc/worklock/pkg/lock"
)

// NewPools dials every configured redis node and verifies it is reachable.
// An unreachable node is fatal at construction time.
func NewPools(ctx context.Context, conf *v1alpha1.RedisClientSpec) ([]redis.Pool, error) {
	pools := make([]redis.Pool, 0, len(conf.Addrs))
	for _, addr := range conf.Addrs {
		cli := goredislib.NewClient(&goredislib.Options{
			Addr:     addr,
			Network:  conf.Network,
			Username: conf.Username,
			Password: conf.Password,
			DB:       conf.DB,
		})
		if err := cli.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("%w: redis node %q unreachable: %v", lock.ErrBackendUnavailable, addr, err)
		}
		pools = append(pools, goredis.NewPool(cli))
	}
	return pools, nil
}
