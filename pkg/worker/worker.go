// Package worker is the thin job-execution glue around the lock provider: a
// job registry, an executor pool, and ordered completion callbacks. It
// supplies configuration to the lock subsystem and invokes it; it does not
// retry, route, or store results.
package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

type Job struct {
	Name    string
	Handler func(ctx context.Context) error

	// LockKey, when non-empty, serializes runs of this job through the
	// process-wide lock annotation.
	LockKey string
	// Expires and Timeout override the lock defaults when positive.
	Expires time.Duration
	Timeout time.Duration
}

// Callback observes every completed run. Callbacks are held in an ordered
// list on the executor and invoked in registration order, on success and on
// failure alike.
type Callback interface {
	AfterRun(ctx context.Context, job Job, status Status, err error)
}

type CallbackFunc func(ctx context.Context, job Job, status Status, err error)

func (f CallbackFunc) AfterRun(ctx context.Context, job Job, status Status, err error) {
	f(ctx, job, status, err)
}

// Registry maps job names to their definitions.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]Job),
	}
}

func (r *Registry) Register(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if job.Handler == nil {
		return fmt.Errorf("job %q has no handler", job.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Name]; ok {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	r.jobs[job.Name] = job
	return nil
}

func (r *Registry) Get(name string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[name]
	return job, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.jobs)
	sort.Strings(names)
	return names
}
