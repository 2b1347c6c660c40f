// Package conformance holds the backend-independent lock factory test
// suite. Backend packages run it against their own factory to verify the
// shared acquisition contract.
package conformance

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"
	"github.com/stevearc/worklock/pkg/lock"
	"github.com/stevearc/worklock/pkg/logger"
	"github.com/stevearc/worklock/pkg/util/future"
)

// LockFactoryTestSuite verifies mutual exclusion, sequential reacquisition,
// and guaranteed release on protected-section failure for any factory.
func LockFactoryTestSuite(
	fF *future.Future[lock.LockFactory],
	opts ...lock.AcquireOption,
) func() {
	return func() {
		var f lock.LockFactory
		var ctx context.Context

		BeforeAll(func() {
			ctxca, ca := context.WithCancel(context.Background())
			DeferCleanup(ca)
			ctx = ctxca
			f = fF.Get()
		})

		newKey := func() string {
			return "conformance-" + uuid.New().String()
		}

		When("a single holder uses a key", func() {
			It("should acquire and release the same key repeatedly", func() {
				key := newKey()
				for i := 0; i < 3; i++ {
					l, err := f.Acquire(ctx, key, opts...)
					Expect(err).To(Succeed())
					Expect(l.Key()).To(Equal(key))
					Expect(l.Release()).To(Succeed())
				}
			})

			It("should reject a second release of the same handle", func() {
				l, err := f.Acquire(ctx, newKey(), opts...)
				Expect(err).To(Succeed())
				Expect(l.Release()).To(Succeed())
				Expect(l.Release()).To(MatchError(lock.ErrAlreadyReleased))
			})
		})

		When("two holders contend for the same key", func() {
			It("should never let both reach the held state", func() {
				key := newKey()
				l1, err := f.Acquire(ctx, key, opts...)
				Expect(err).To(Succeed())

				acquiredC := make(chan lock.Lock, 1)
				go func() {
					defer GinkgoRecover()
					l2, err := f.Acquire(ctx, key, opts...)
					Expect(err).To(Succeed())
					acquiredC <- l2
				}()

				Consistently(acquiredC, 200*time.Millisecond).ShouldNot(Receive())

				Expect(l1.Release()).To(Succeed())
				var l2 lock.Lock
				Eventually(acquiredC, 5*time.Second).Should(Receive(&l2))
				Expect(l2.Release()).To(Succeed())
			})

			It("should leave distinct keys uncontended", func() {
				l1, err := f.Acquire(ctx, newKey(), opts...)
				Expect(err).To(Succeed())
				l2, err := f.Acquire(ctx, newKey(), opts...)
				Expect(err).To(Succeed())
				Expect(l1.Release()).To(Succeed())
				Expect(l2.Release()).To(Succeed())
			})
		})

		When("a protected section fails", func() {
			It("should release the lock and propagate the original error", func() {
				key := newKey()
				ann := lock.NewAnnotation(f, logger.NewNop())
				boom := errors.New("boom")

				err := ann.Do(ctx, key, func() error {
					return boom
				}, opts...)
				Expect(err).To(MatchError(boom))

				// no residual hold
				l, err := f.Acquire(ctx, key, opts...)
				Expect(err).To(Succeed())
				Expect(l.Release()).To(Succeed())
			})

			It("should release the lock when the section panics", func() {
				key := newKey()
				ann := lock.NewAnnotation(f, logger.NewNop())

				Expect(func() {
					_ = ann.Do(ctx, key, func() error {
						panic(fmt.Errorf("kaboom"))
					}, opts...)
				}).To(PanicWith(MatchError("kaboom")))

				l, err := f.Acquire(ctx, key, opts...)
				Expect(err).To(Succeed())
				Expect(l.Release()).To(Succeed())
			})
		})
	}
}
