package scheduler

import (
	"context"
	"sync"
	"time"

	"niena/internal/config"
	"niena/internal/errors"

	"github.com/robfig/cron/v3"
)

// Job is a unit of periodic work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Locker makes sure a job runs on one replica at a time.
// TryRun reports false without calling fn when the lock is held elsewhere.
type Locker interface {
	TryRun(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) (bool, error)
}

// Scheduler runs Jobs on cron specs, guarded by a Locker
type Scheduler struct {
	cron    *cron.Cron
	locker  Locker
	lockTTL time.Duration
	logger  *errors.Logger
	jobs    []Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler; a nil locker falls back to an in-process one
func New(cfg config.SchedulerConfig, locker Locker, logger *errors.Logger) *Scheduler {
	if locker == nil {
		locker = NewLocalLocker()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		locker:  locker,
		lockTTL: cfg.LockTTL,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job on spec. A positive timeout bounds each run.
func (s *Scheduler) Add(spec string, job Job, timeout time.Duration) error {
	if _, err := s.cron.AddJob(spec, s.build(job, timeout)); err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid cron spec", err).
			WithContext("job", job.Name()).
			WithContext("spec", spec)
	}
	s.jobs = append(s.jobs, job)
	s.logger.Info("Scheduled job", "job", job.Name(), "spec", spec)
	return nil
}

func (s *Scheduler) build(job Job, timeout time.Duration) cron.Job {
	return cronJobAdapterFunc(func() {
		s.wg.Add(1)
		defer s.wg.Done()

		ctx := s.ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		_, _ = s.RunNow(ctx, job)
	})
}

// Jobs returns the registered jobs in the order they were added
func (s *Scheduler) Jobs() []Job {
	return append([]Job(nil), s.jobs...)
}

// RunNow runs job immediately under its lock and reports whether it ran
func (s *Scheduler) RunNow(ctx context.Context, job Job) (bool, error) {
	name := job.Name()
	start := time.Now()
	s.logger.Debug("Job starting", "job", name)

	ran, err := s.locker.TryRun(ctx, name, s.lockTTL, job.Run)
	duration := time.Since(start)
	if err != nil {
		s.logger.LogError(err, "Job failed", "job", name, "duration", duration)
		return ran, err
	}
	if !ran {
		s.logger.Debug("Job skipped, lock held elsewhere", "job", name)
		return false, nil
	}
	s.logger.Info("Job finished", "job", name, "duration", duration)
	return true, nil
}

// Start begins firing scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs until ctx expires,
// then cancels them
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

type cronJobAdapterFunc func()

func (c cronJobAdapterFunc) Run() {
	c()
}

// LocalLocker serializes jobs within one process, used when Redis is disabled
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

// TryRun implements Locker
func (l *LocalLocker) TryRun(ctx context.Context, name string, _ time.Duration, fn func(context.Context) error) (bool, error) {
	l.mu.Lock()
	if l.held[name] {
		l.mu.Unlock()
		return false, nil
	}
	l.held[name] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, name)
		l.mu.Unlock()
	}()
	return true, fn(ctx)
}
