package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"eduplatform-backend/scheduler"
)

var _ = Describe("Scheduler", func() {
	var s *scheduler.Scheduler

	BeforeEach(func() {
		s = scheduler.New(context.Background())
	})

	Specify("run now reports the job error", func() {
		boom := errors.New("boom")
		err := s.RunNow(scheduler.Job{Name: "sweep", Run: func(context.Context) error { return boom }})
		Expect(err).To(MatchError(boom))
	})

	Specify("timeout bounds the job context", func() {
		err := s.RunNow(scheduler.Job{
			Name:    "slow",
			Timeout: 10 * time.Millisecond,
			Run: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		})
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})

	Specify("scheduled jobs fire", func() {
		var runs int32
		Expect(s.Add(scheduler.Job{
			Name:     "tick",
			Schedule: "@every 1s",
			Run: func(context.Context) error {
				atomic.AddInt32(&runs, 1)
				return nil
			},
		})).To(Succeed())

		s.Start()
		defer s.Stop()
		Eventually(func() int32 { return atomic.LoadInt32(&runs) }, 3*time.Second, 50*time.Millisecond).Should(BeNumerically(">=", 1))
	})

	Specify("sad path - bad schedule", func() {
		err := s.Add(scheduler.Job{Name: "bad", Schedule: "every tuesday", Run: func(context.Context) error { return nil }})
		Expect(err).NotTo(BeNil())
	})
})
