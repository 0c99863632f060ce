package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fastrag/pkg/logger"
	"github.com/papercomputeco/fastrag/pkg/worker"
)

// newTestPool creates a small worker pool.
// Callers should "wp.Close()" to drain enqueued jobs before asserting state.
func newTestPool(workers uint) *worker.Pool {
	wp, err := worker.NewPool(&worker.Config{
		NumWorkers: workers,
		QueueSize:  8,
		Logger:     logger.Nop(),
	})
	Expect(err).NotTo(HaveOccurred())
	return wp
}

var _ = Describe("Worker Pool", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("NewPool", func() {
		It("defaults the number of workers", func() {
			wp, err := worker.NewPool(nil)
			Expect(err).NotTo(HaveOccurred())
			defer wp.Close()
			Expect(wp.Size()).To(BeNumerically(">", 0))
		})
	})

	Describe("Submit", func() {
		It("runs every submitted job before Close returns", func() {
			wp := newTestPool(2)

			var count atomic.Int32
			for range 20 {
				Expect(wp.Submit(ctx, func(context.Context) {
					count.Add(1)
				})).To(Succeed())
			}

			wp.Close()
			Expect(count.Load()).To(Equal(int32(20)))
		})

		It("rejects jobs after Close", func() {
			wp := newTestPool(1)
			wp.Close()

			err := wp.Submit(ctx, func(context.Context) {})
			Expect(err).To(MatchError(worker.ErrPoolClosed))
		})

		It("tolerates Close being called twice", func() {
			wp := newTestPool(1)
			wp.Close()
			Expect(wp.Close).NotTo(Panic())
		})

		It("keeps serving after a job panics", func() {
			wp := newTestPool(1)
			defer wp.Close()

			Expect(wp.Submit(ctx, func(context.Context) { panic("boom") })).To(Succeed())

			got, err := worker.Do(ctx, wp, func(context.Context) (string, error) {
				return "still alive", nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("still alive"))
		})
	})

	Describe("Do", func() {
		It("returns the function's value", func() {
			wp := newTestPool(2)
			defer wp.Close()

			got, err := worker.Do(ctx, wp, func(context.Context) (int, error) {
				return 42, nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(42))
		})

		It("returns the function's error", func() {
			wp := newTestPool(2)
			defer wp.Close()

			sentinel := errors.New("nope")
			_, err := worker.Do(ctx, wp, func(context.Context) (int, error) {
				return 0, sentinel
			})
			Expect(err).To(MatchError(sentinel))
		})

		It("converts a panic into ErrPanic", func() {
			wp := newTestPool(1)
			defer wp.Close()

			_, err := worker.Do(ctx, wp, func(context.Context) (int, error) {
				panic("kaboom")
			})
			Expect(err).To(MatchError(worker.ErrPanic))
			Expect(err.Error()).To(ContainSubstring("kaboom"))
		})

		It("runs inline on a nil pool", func() {
			got, err := worker.Do(ctx, nil, func(context.Context) (string, error) {
				return "inline", nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("inline"))
		})

		It("returns the context error when the caller gives up", func() {
			wp := newTestPool(1)
			defer wp.Close()

			release := make(chan struct{})
			defer close(release)

			cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()

			_, err := worker.Do(cctx, wp, func(context.Context) (int, error) {
				<-release
				return 1, nil
			})
			Expect(err).To(MatchError(context.DeadlineExceeded))
		})

		It("bounds concurrency to the pool size", func() {
			wp := newTestPool(2)
			defer wp.Close()

			var (
				running atomic.Int32
				peak    atomic.Int32
				wg      sync.WaitGroup
			)

			for range 10 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := worker.Do(ctx, wp, func(context.Context) (struct{}, error) {
						n := running.Add(1)
						for {
							p := peak.Load()
							if n <= p || peak.CompareAndSwap(p, n) {
								break
							}
						}
						time.Sleep(5 * time.Millisecond)
						running.Add(-1)
						return struct{}{}, nil
					})
					Expect(err).NotTo(HaveOccurred())
				}()
			}

			wg.Wait()
			Expect(peak.Load()).To(BeNumerically("<=", 2))
		})
	})
})
