package redis_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alicebob/miniredis/v2"
	"github.com/stevearc/worklock/pkg/config/v1alpha1"
	"github.com/stevearc/worklock/pkg/lock"
	"github.com/stevearc/worklock/pkg/lock/backend/redis"
	"github.com/stevearc/worklock/pkg/logger"
	"github.com/stevearc/worklock/pkg/test/conformance"
	"github.com/stevearc/worklock/pkg/util/future"
)

func TestRedis(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Redis Backend Suite")
}

var fF = future.New[lock.LockFactory]()
var mrF = future.New[*miniredis.Miniredis]()

var _ = BeforeSuite(func() {
	mr, err := miniredis.Run()
	Expect(err).To(Succeed())
	DeferCleanup(mr.Close)
	mrF.Set(mr)

	pools, err := redis.NewPools(context.Background(), &v1alpha1.RedisClientSpec{
		Addrs: []string{mr.Addr()},
	})
	Expect(err).To(Succeed())
	fF.Set(redis.NewLockFactory("test", pools, logger.NewNop()))
})

var _ = Describe("Redis Lock Factory", Ordered, Label("unit"),
	conformance.LockFactoryTestSuite(fF, lock.WithExpires(30*time.Second), lock.WithTimeout(10*time.Second)))

var _ = Describe("Redis Backend", Label("unit"), func() {
	var f lock.LockFactory
	var mr *miniredis.Miniredis
	var ctx context.Context

	BeforeEach(func() {
		f = fF.Get()
		mr = mrF.Get()
		ctxca, ca := context.WithCancel(context.Background())
		DeferCleanup(ca)
		ctx = ctxca
	})

	When("a holder dies without releasing", func() {
		It("should make the key acquirable once the expiry lapses", func() {
			_, err := f.Acquire(ctx, "nightly",
				lock.WithExpires(5*time.Second),
				lock.WithTimeout(time.Second),
			)
			Expect(err).To(Succeed())
			// the holder is gone; nobody releases

			_, err = f.Acquire(ctx, "nightly",
				lock.WithExpires(5*time.Second),
				lock.WithTimeout(200*time.Millisecond),
			)
			Expect(err).To(MatchError(lock.ErrAcquireTimeout))

			mr.FastForward(6 * time.Second)

			l, err := f.Acquire(ctx, "nightly",
				lock.WithExpires(5*time.Second),
				lock.WithTimeout(time.Second),
			)
			Expect(err).To(Succeed())
			Expect(l.Release()).To(Succeed())
		})
	})

	When("the wait window elapses while contending", func() {
		It("should fail with an acquisition timeout", func() {
			held, err := f.Acquire(ctx, "busy",
				lock.WithExpires(30*time.Second),
				lock.WithTimeout(time.Second),
			)
			Expect(err).To(Succeed())
			defer held.Release()

			start := time.Now()
			_, err = f.Acquire(ctx, "busy",
				lock.WithExpires(30*time.Second),
				lock.WithTimeout(150*time.Millisecond),
			)
			Expect(err).To(MatchError(lock.ErrAcquireTimeout))
			Expect(time.Since(start)).To(BeNumerically(">=", 150*time.Millisecond))
		})
	})

	When("the backend is probed", func() {
		It("should report healthy pools", func() {
			_, err := f.(*redis.LockFactory).Health(ctx)
			Expect(err).To(Succeed())
		})

		It("should surface pools that stopped responding", func() {
			dead, err := miniredis.Run()
			Expect(err).To(Succeed())
			pools, err := redis.NewPools(ctx, &v1alpha1.RedisClientSpec{
				Addrs: []string{dead.Addr()},
			})
			Expect(err).To(Succeed())
			probe := redis.NewLockFactory("probe", pools, logger.NewNop())
			dead.Close()

			_, err = probe.Health(ctx)
			Expect(err).To(HaveOccurred())
		})
	})

	When("the store is unreachable", func() {
		It("should fail fatally at construction", func() {
			_, err := redis.NewPools(ctx, &v1alpha1.RedisClientSpec{
				Addrs: []string{"127.0.0.1:1"},
			})
			Expect(err).To(MatchError(lock.ErrBackendUnavailable))
		})
	})
})
