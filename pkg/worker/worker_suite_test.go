package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stevearc/worklock/pkg/config/v1alpha1"
	"github.com/stevearc/worklock/pkg/constants"
	"github.com/stevearc/worklock/pkg/lock"
	"github.com/stevearc/worklock/pkg/lock/backend/process"
	"github.com/stevearc/worklock/pkg/logger"
	"github.com/stevearc/worklock/pkg/worker"
)

func TestWorker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Worker Suite")
}

type recordedRun struct {
	callback string
	job      string
	status   worker.Status
	err      error
}

type recorder struct {
	mu   *sync.Mutex
	name string
	runs *[]recordedRun
}

func (r *recorder) AfterRun(_ context.Context, job worker.Job, status worker.Status, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.runs = append(*r.runs, recordedRun{
		callback: r.name,
		job:      job.Name,
		status:   status,
		err:      err,
	})
}

var _ = Describe("Job Executor", Label("unit"), func() {
	var ctx context.Context
	var ann *lock.Annotation

	BeforeEach(func() {
		ctxca, ca := context.WithCancel(context.Background())
		DeferCleanup(ca)
		ctx = ctxca
		ann = lock.NewAnnotation(process.NewLockFactory(logger.NewNop()), logger.NewNop())
	})

	When("jobs complete", func() {
		It("should invoke completion callbacks in order, on success and failure", func() {
			var runs []recordedRun
			var mu sync.Mutex
			first := &recorder{mu: &mu, name: "first", runs: &runs}
			second := &recorder{mu: &mu, name: "second", runs: &runs}

			e, err := worker.NewExecutor(2, ann, logger.NewNop(), first, second)
			Expect(err).To(Succeed())
			DeferCleanup(e.Close)

			boom := errors.New("boom")
			Expect(e.Submit(ctx, worker.Job{
				Name: "ok",
				Handler: func(context.Context) error {
					return nil
				},
			})).To(Succeed())
			e.Wait()
			Expect(e.Submit(ctx, worker.Job{
				Name: "bad",
				Handler: func(context.Context) error {
					return boom
				},
			})).To(Succeed())
			e.Wait()

			Expect(runs).To(HaveLen(4))
			Expect(runs[0]).To(Equal(recordedRun{callback: "first", job: "ok", status: worker.StatusSuccess}))
			Expect(runs[1]).To(Equal(recordedRun{callback: "second", job: "ok", status: worker.StatusSuccess}))
			Expect(runs[2]).To(Equal(recordedRun{callback: "first", job: "bad", status: worker.StatusFailure, err: boom}))
			Expect(runs[3]).To(Equal(recordedRun{callback: "second", job: "bad", status: worker.StatusFailure, err: boom}))
		})

		It("should report a panicking job as failed", func() {
			var runs []recordedRun
			var mu sync.Mutex
			rec := &recorder{mu: &mu, name: "only", runs: &runs}
			e, err := worker.NewExecutor(1, ann, logger.NewNop(), rec)
			Expect(err).To(Succeed())
			DeferCleanup(e.Close)

			Expect(e.Submit(ctx, worker.Job{
				Name: "panics",
				Handler: func(context.Context) error {
					panic("kaboom")
				},
			})).To(Succeed())
			e.Wait()

			Expect(runs).To(HaveLen(1))
			Expect(runs[0].status).To(Equal(worker.StatusFailure))
			Expect(runs[0].err).To(MatchError(ContainSubstring("kaboom")))
		})
	})

	When("jobs declare a lock key", func() {
		It("should serialize overlapping runs of the same key", func() {
			e, err := worker.NewExecutor(4, ann, logger.NewNop())
			Expect(err).To(Succeed())
			DeferCleanup(e.Close)

			var mu sync.Mutex
			inside := 0
			maxInside := 0
			job := worker.Job{
				Name:    "exclusive",
				LockKey: "exclusive",
				Handler: func(context.Context) error {
					mu.Lock()
					inside++
					if inside > maxInside {
						maxInside = inside
					}
					mu.Unlock()
					time.Sleep(20 * time.Millisecond)
					mu.Lock()
					inside--
					mu.Unlock()
					return nil
				},
			}
			for i := 0; i < 4; i++ {
				Expect(e.Submit(ctx, job)).To(Succeed())
			}
			e.Wait()
			Expect(maxInside).To(Equal(1))
		})
	})
})

var _ = Describe("Job Registry", Label("unit"), func() {
	It("should reject duplicate and invalid registrations", func() {
		r := worker.NewRegistry()
		noop := func(context.Context) error { return nil }
		Expect(r.Register(worker.Job{Name: "a", Handler: noop})).To(Succeed())
		Expect(r.Register(worker.Job{Name: "a", Handler: noop})).To(MatchError(ContainSubstring("already registered")))
		Expect(r.Register(worker.Job{Handler: noop})).To(MatchError(ContainSubstring("name is required")))
		Expect(r.Register(worker.Job{Name: "b"})).To(MatchError(ContainSubstring("no handler")))
		Expect(r.Names()).To(Equal([]string{"a"}))
	})
})

var _ = Describe("Runner", Label("unit"), func() {
	It("should wire config through broker, annotation, and executor once", func() {
		ctx := context.Background()
		r, err := worker.NewRunner(ctx, &v1alpha1.LockConfig{
			Backend: constants.ProcessBackend,
		}, 2, logger.NewNop())
		Expect(err).To(Succeed())
		DeferCleanup(r.Close)

		ran := make(chan struct{})
		Expect(r.Registry.Register(worker.Job{
			Name:    "hello",
			LockKey: "hello",
			Handler: func(context.Context) error {
				close(ran)
				return nil
			},
		})).To(Succeed())
		Expect(r.Submit(ctx, "hello")).To(Succeed())
		Eventually(ran).Should(BeClosed())

		Expect(r.Submit(ctx, "missing")).To(MatchError(ContainSubstring("unknown job")))
	})

	It("should surface misconfiguration at construction", func() {
		_, err := worker.NewRunner(context.Background(), &v1alpha1.LockConfig{
			Backend: "consul",
		}, 2, logger.NewNop())
		Expect(err).To(MatchError(ContainSubstring("unrecognized lock backend")))
	})
})
