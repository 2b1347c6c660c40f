package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stevearc/worklock/pkg/config/v1alpha1"
	"github.com/stevearc/worklock/pkg/lock"
	"github.com/stevearc/worklock/pkg/lock/broker"
)

// Runner wires the whole subsystem together once at process start: config
// selects a backend, the broker constructs the factory, and the factory is
// handed to an annotation and an executor as explicit values. Nothing is
// mutated in place after construction.
type Runner struct {
	Annotation *lock.Annotation
	Executor   *Executor
	Registry   *Registry

	lg *slog.Logger
}

func NewRunner(
	ctx context.Context,
	config *v1alpha1.LockConfig,
	poolSize int,
	lg *slog.Logger,
	callbacks ...Callback,
) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	factory, err := broker.NewLockBroker(lg, config).LockFactory(ctx)
	if err != nil {
		return nil, err
	}
	ann := lock.NewAnnotation(factory, lg)
	executor, err := NewExecutor(poolSize, ann, lg, callbacks...)
	if err != nil {
		return nil, err
	}
	return &Runner{
		Annotation: ann,
		Executor:   executor,
		Registry:   NewRegistry(),
		lg:         lg,
	}, nil
}

// Submit schedules one run of a registered job by name.
func (r *Runner) Submit(ctx context.Context, name string) error {
	job, ok := r.Registry.Get(name)
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return r.Executor.Submit(ctx, job)
}

func (r *Runner) Close() {
	r.Executor.Close()
}
