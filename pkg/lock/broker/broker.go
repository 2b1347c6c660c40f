// Package broker resolves a configured backend identifier to a constructed
// lock.LockFactory. The identifier set is closed and enumerated in
// pkg/constants; resolution happens exactly once at configuration time and
// the resulting factory is injected into call sites, never swapped in place.
package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stevearc/worklock/pkg/config/v1alpha1"
	"github.com/stevearc/worklock/pkg/constants"
	"github.com/stevearc/worklock/pkg/lock"
)

type LockBroker struct {
	Lg     *slog.Logger
	Config *v1alpha1.LockConfig
}

func NewLockBroker(lg *slog.Logger, config *v1alpha1.LockConfig) LockBroker {
	return LockBroker{
		Lg:     lg,
		Config: config,
	}
}

// LockFactory constructs the factory selected by the configuration. Backend
// construction failures (bad lock directory, unreachable store) surface here,
// at startup.
func (b LockBroker) LockFactory(ctx context.Context) (lock.LockFactory, error) {
	name := b.Config.Backend
	switch name {
	case "":
		name = constants.NoneBackend
	case constants.ExternalBackend:
		name = constants.RedisBackend
	}
	constructor, ok := getConstructor(name)
	if !ok {
		return nil, fmt.Errorf("unrecognized lock backend %q (known backends: %v)", b.Config.Backend, Backends())
	}
	b.Lg.With("backend", name).Debug("constructing lock factory")
	factory, err := constructor(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to construct %q lock factory: %w", name, err)
	}
	return factory, nil
}
