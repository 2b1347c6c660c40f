package broker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/stevearc/worklock/pkg/constants"
	"github.com/stevearc/worklock/pkg/lock"
	"github.com/stevearc/worklock/pkg/lock/backend/etcd"
	"github.com/stevearc/worklock/pkg/lock/backend/file"
	"github.com/stevearc/worklock/pkg/lock/backend/noop"
	"github.com/stevearc/worklock/pkg/lock/backend/process"
	"github.com/stevearc/worklock/pkg/lock/backend/redis"
)

type factoryConstructor func(context.Context, LockBroker) (lock.LockFactory, error)

// The registry is static: every recognized backend is bound here and nothing
// registers at runtime.
var constructors = map[string]factoryConstructor{
	constants.NoneBackend: func(_ context.Context, _ LockBroker) (lock.LockFactory, error) {
		return noop.NewLockFactory(), nil
	},
	constants.ProcessBackend: func(_ context.Context, b LockBroker) (lock.LockFactory, error) {
		return process.NewLockFactory(b.Lg), nil
	},
	constants.FileBackend: func(_ context.Context, b LockBroker) (lock.LockFactory, error) {
		return file.NewLockFactory(b.Config.LockDir(), b.Lg)
	},
	constants.RedisBackend: func(ctx context.Context, b LockBroker) (lock.LockFactory, error) {
		if b.Config.Redis == nil {
			return nil, errors.New("redis backend selected but no redis settings provided")
		}
		pools, err := redis.NewPools(ctx, b.Config.Redis)
		if err != nil {
			return nil, err
		}
		f := redis.NewLockFactory("lock", pools, b.Lg)
		if _, err := f.Health(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", lock.ErrBackendUnavailable, err)
		}
		return f, nil
	},
	constants.EtcdBackend: func(ctx context.Context, b LockBroker) (lock.LockFactory, error) {
		if b.Config.Etcd == nil || len(b.Config.Etcd.Endpoints) == 0 {
			return nil, errors.New("etcd backend selected but no endpoints provided")
		}
		cli, err := etcd.NewEtcdClient(ctx, b.Config.Etcd)
		if err != nil {
			return nil, err
		}
		prefix := b.Config.Etcd.Prefix
		if prefix == "" {
			prefix = "lock"
		}
		f := etcd.NewLockFactory(cli, prefix, b.Lg)
		conditions, err := f.Health(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", lock.ErrBackendUnavailable, err)
		}
		if len(conditions) > 0 {
			b.Lg.With("conditions", conditions).Warn("etcd backend reports degraded endpoints")
		}
		return f, nil
	},
}

func getConstructor(name string) (factoryConstructor, bool) {
	constructor, ok := constructors[name]
	return constructor, ok
}

// Backends lists the recognized backend identifiers.
func Backends() []string {
	keys := lo.Keys(constructors)
	sort.Strings(keys)
	return keys
}
