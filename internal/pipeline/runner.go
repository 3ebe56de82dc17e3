package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"niena/internal/config"
	"niena/internal/errors"

	"github.com/lithammer/shortuuid/v4"
)

// Task is a named unit of background work
type Task struct {
	ID   string
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes tasks on a fixed pool of workers fed by a bounded queue.
// At most Workers tasks are in flight; Submit fails fast when the queue is full.
type Runner struct {
	queue   chan Task
	workers int
	timeout time.Duration
	logger  *errors.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool

	inFlight  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// NewRunner creates a runner sized by the pipeline config
func NewRunner(cfg config.PipelineConfig, logger *errors.Logger) *Runner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		queue:   make(chan Task, queueSize),
		workers: workers,
		timeout: cfg.WorkflowTimeout,
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work(i)
	}
	r.logger.Info("Workflow runner started", "workers", r.workers, "queue_size", cap(r.queue))
}

func (r *Runner) work(id int) {
	defer r.wg.Done()
	for task := range r.queue {
		r.execute(id, task)
	}
}

func (r *Runner) execute(worker int, task Task) {
	r.inFlight.Add(1)
	defer r.inFlight.Add(-1)

	ctx := r.baseCtx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	err := r.runSafely(ctx, task)
	duration := time.Since(start)

	if err != nil {
		r.failed.Add(1)
		r.logger.LogError(err, "Workflow failed",
			"task", task.Name, "task_id", task.ID, "worker", worker, "duration", duration)
		return
	}
	r.completed.Add(1)
	r.logger.Info("Workflow completed",
		"task", task.Name, "task_id", task.ID, "worker", worker, "duration", duration)
}

func (r *Runner) runSafely(ctx context.Context, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.NewInternalError("WORKFLOW_PANIC", "workflow panicked", nil).
				WithContext("panic", rec)
		}
	}()
	return task.Run(ctx)
}

// Submit queues fn under name and returns the task id
func (r *Runner) Submit(name string, fn func(ctx context.Context) error) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return "", errors.NewUnavailableError(errors.ErrCodeShuttingDown, "workflow runner is shutting down")
	}

	task := Task{ID: shortuuid.New(), Name: name, Run: fn}
	select {
	case r.queue <- task:
		r.logger.Debug("Workflow queued", "task", name, "task_id", task.ID)
		return task.ID, nil
	default:
		return "", errors.NewUnavailableError(errors.ErrCodeQueueFull, "workflow queue is full").
			WithContext("queue_size", cap(r.queue))
	}
}

// Shutdown stops accepting tasks and waits for queued and running ones to finish.
// When ctx expires first, running tasks are cancelled and ctx's error is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	close(r.queue)
	r.mu.Unlock()

	if !started {
		// Nothing will ever consume the queue
		r.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		r.logger.Info("Workflow runner drained", "completed", r.completed.Load(), "failed", r.failed.Load())
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		r.logger.Warn("Workflow runner shutdown deadline exceeded, in-flight workflows cancelled")
		return ctx.Err()
	}
}

// Stats reports queue depth and outcome counters
func (r *Runner) Stats() map[string]any {
	return map[string]any{
		"workers":   r.workers,
		"queued":    len(r.queue),
		"capacity":  cap(r.queue),
		"in_flight": r.inFlight.Load(),
		"completed": r.completed.Load(),
		"failed":    r.failed.Load(),
	}
}
