package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/branchpos-backend/pkg/logger"
	"github.com/angelmondragon/branchpos-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// LockFactory returns the lock guarding one job across instances.
type LockFactory func(job string) (Lock, error)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Jobs     []Entry
	Locks    LockFactory
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	Now      func() time.Time
}

// Service runs each job on its own cadence. A job runs on whichever instance
// takes its lock; the others skip that turn.
type Service struct {
	logg     *logger.Logger
	schedule *schedule
	locks    map[string]Lock
	metrics  *metrics.JobMetrics
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock factory required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	sched, err := newSchedule(params.Jobs, interval, now())
	if err != nil {
		return nil, err
	}
	locks := make(map[string]Lock, len(sched.entries))
	for _, job := range sched.jobs() {
		lock, err := params.Locks(job.Name())
		if err != nil {
			return nil, fmt.Errorf("lock for job %q: %w", job.Name(), err)
		}
		locks[job.Name()] = lock
	}
	return &Service{
		logg:     params.Logger,
		schedule: sched,
		locks:    locks,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// Run executes due jobs until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if len(s.schedule.entries) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		for _, job := range s.schedule.due(s.now()) {
			s.runLocked(ctx, job)
		}
		timer.Reset(s.schedule.wait(s.now()))
	}
}

// RunOnce executes every job a single time regardless of cadence, for
// one-shot invocations from an external scheduler.
func (s *Service) RunOnce(ctx context.Context) {
	for _, job := range s.schedule.jobs() {
		s.runLocked(ctx, job)
	}
}

func (s *Service) runLocked(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	lock := s.locks[job.Name()]
	held, err := lock.Acquire(jobCtx)
	if err != nil {
		s.logg.Error(jobCtx, "job lock unavailable", err)
		return
	}
	if !held {
		s.logg.Debug(jobCtx, "job running elsewhere, skipping")
		return
	}
	defer func() {
		if err := lock.Release(jobCtx); err != nil {
			s.logg.Error(jobCtx, "failed to release job lock", err)
		}
	}()

	start := s.now()
	affected, err := job.Run(jobCtx)
	took := s.now().Sub(start)
	s.metrics.ObserveRun(job.Name(), took, affected, err)

	jobCtx = s.logg.WithFields(jobCtx, map[string]any{"duration_ms": took.Milliseconds(), "affected": affected})
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Info(jobCtx, "job completed")
}
