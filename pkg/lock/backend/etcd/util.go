package etcd

import (
	"context"
	"fmt"
	"time"

	"github.com/stevearc/worklock/pkg/config/v1alpha1"
	"github.com/stevearc/worklock/pkg/lock"
	clientv3 "go.etcd.io/etcd/client/v3"
)

var DefaultDialTimeout = 5 * time.Second

// NewEtcdClient dials the configured endpoints and verifies at least the
// first one answers a status probe. Unreachable endpoints are fatal at
// construction time.
func NewEtcdClient(
	ctx context.Context,
	conf *v1alpha1.EtcdClientSpec,
) (*clientv3.Client, error) {
	dialTimeout := DefaultDialTimeout
	if conf.DialTimeoutSeconds > 0 {
		dialTimeout = time.Duration(conf.DialTimeoutSeconds) * time.Second
	}
	clientConfig := clientv3.Config{
		Endpoints:   conf.Endpoints,
		Username:    conf.Username,
		Password:    conf.Password,
		DialTimeout: dialTimeout,
		Context:     context.WithoutCancel(ctx),
	}
	cli, err := clientv3.New(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create etcd client: %v", lock.ErrBackendUnavailable, err)
	}

	statusCtx, ca := context.WithTimeout(ctx, dialTimeout)
	defer ca()
	if _, err := cli.Status(statusCtx, conf.Endpoints[0]); err != nil {
		cli.Close()
		return nil, fmt.Errorf("%w: etcd endpoint %q unreachable: %v", lock.ErrBackendUnavailable, conf.Endpoints[0], err)
	}
	return cli, nil
}
