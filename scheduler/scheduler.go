// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"eduplatform-backend/log"
	"eduplatform-backend/metrics"
)

type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// zapLogger adapts the global logger to cron.Logger.
type zapLogger struct{}

func (zapLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Logger.Sugar().Debugw(msg, keysAndValues...)
}

func (zapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

func New(ctx context.Context) *Scheduler {
	l := zapLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		ctx: ctx,
	}
}

func (s *Scheduler) Add(j Job) error {
	_, err := s.cron.AddFunc(j.Schedule, func() {
		s.RunNow(j)
	})
	if err != nil {
		return err
	}
	log.Logger.Info("job scheduled", zap.String("job", j.Name), zap.String("schedule", j.Schedule))
	return nil
}

// RunNow executes j once on the calling goroutine.
func (s *Scheduler) RunNow(j Job) error {
	ctx := s.ctx
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := j.Run(ctx)
	metrics.RecordJobRun(j.Name, err)

	logger := log.Logger.With(zap.String("job", j.Name), zap.Duration("took", time.Since(start)))
	if err != nil {
		logger.Error("job failed", zap.Error(err))
		return err
	}
	logger.Info("job finished")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
