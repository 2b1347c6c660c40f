package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/stevearc/worklock/pkg/lock"
	"github.com/stevearc/worklock/pkg/logger"
)

// Executor runs jobs on a bounded goroutine pool. Jobs declaring a lock key
// have their handler wrapped with the shared annotation, so overlapping
// submissions of the same job serialize according to the configured backend.
type Executor struct {
	pool      *ants.Pool
	ann       *lock.Annotation
	callbacks []Callback
	lg        *slog.Logger

	wg sync.WaitGroup
}

func NewExecutor(poolSize int, ann *lock.Annotation, lg *slog.Logger, callbacks ...Callback) (*Executor, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor pool: %w", err)
	}
	return &Executor{
		pool:      pool,
		ann:       ann,
		callbacks: callbacks,
		lg:        lg,
	}, nil
}

// Submit schedules one run of the job. It returns an error only when the
// pool rejects the submission; job outcomes are reported to the callbacks.
func (e *Executor) Submit(ctx context.Context, job Job) error {
	e.wg.Add(1)
	err := e.pool.Submit(func() {
		defer e.wg.Done()
		e.run(ctx, job)
	})
	if err != nil {
		e.wg.Done()
		return err
	}
	return nil
}

func (e *Executor) run(ctx context.Context, job Job) {
	fn := job.Handler
	if job.LockKey != "" {
		var opts []lock.AcquireOption
		if job.Expires > 0 {
			opts = append(opts, lock.WithExpires(job.Expires))
		}
		if job.Timeout > 0 {
			opts = append(opts, lock.WithTimeout(job.Timeout))
		}
		fn = e.ann.Wrap(job.LockKey, fn, opts...)
	}

	err := e.call(ctx, fn)
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
		e.lg.With("job", job.Name, logger.Err(err)).Warn("job failed")
	}
	for _, cb := range e.callbacks {
		cb.AfterRun(ctx, job, status, err)
	}
}

func (e *Executor) call(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Wait blocks until every submitted job has finished.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Close waits for in-flight jobs and releases the pool.
func (e *Executor) Close() {
	e.wg.Wait()
	e.pool.Release()
}
