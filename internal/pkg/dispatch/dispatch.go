// Package dispatch runs fire-and-forget side effects (email, notifications,
// artifact refreshes) on a bounded worker pool. Submit never blocks the
// caller; a task's outcome is reported on the Failures channel and never
// flows back into the request that submitted it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/presswire-api/internal/pkg/metrics"
	"golang.org/x/time/rate"
)

// Job is one unit of background work.
type Job func(ctx context.Context) error

// Failure describes a task that returned an error, panicked or timed out.
type Failure struct {
	TaskID string
	Kind   string
	Err    error
}

type task struct {
	id   string
	kind string
	job  Job
}

// Options sizes a Dispatcher. Zero values fall back to sane minimums.
type Options struct {
	Workers     int
	QueueSize   int
	Rate        float64       // tasks per second across all workers, 0 disables pacing
	TaskTimeout time.Duration // per task, 0 means 30s
	Logger      *slog.Logger
}

// Dispatcher is an in-process task queue with a fixed worker pool.
type Dispatcher struct {
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	limiter  *rate.Limiter
	tasks    chan task
	failures chan Failure

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Dispatcher. Call Start to begin processing.
func New(opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), opts.Workers)
	}
	return &Dispatcher{
		logger:   opts.Logger,
		workers:  opts.Workers,
		timeout:  opts.TaskTimeout,
		limiter:  limiter,
		tasks:    make(chan task, opts.QueueSize),
		failures: make(chan Failure, opts.QueueSize),
	}
}

// Start launches the workers. They exit when ctx is cancelled or Shutdown drains the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Submit enqueues job without blocking. It returns false when the queue is
// full or closed; the drop is logged and counted.
func (d *Dispatcher) Submit(kind string, job Job) bool {
	if job == nil {
		return false
	}
	t := task{id: uuid.NewString(), kind: kind, job: job}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("dispatch closed, task dropped", "kind", kind, "task_id", t.id)
		metrics.DispatchTasks.WithLabelValues(kind, "dropped").Inc()
		return false
	}
	select {
	case d.tasks <- t:
		metrics.DispatchQueueDepth.Set(float64(len(d.tasks)))
		return true
	default:
		d.logger.Warn("dispatch queue full, task dropped", "kind", kind, "task_id", t.id, "capacity", cap(d.tasks))
		metrics.DispatchTasks.WithLabelValues(kind, "dropped").Inc()
		return false
	}
}

// Failures reports failed tasks. Reports are dropped if nobody drains the channel.
func (d *Dispatcher) Failures() <-chan Failure { return d.failures }

// Shutdown stops accepting tasks and waits for queued ones to finish.
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("dispatch shutdown timed out after %s", timeout)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-d.tasks:
			if !ok {
				return
			}
			metrics.DispatchQueueDepth.Set(float64(len(d.tasks)))
			d.run(ctx, t, id)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, t task, workerID int) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			d.fail(t, err)
			return
		}
	}

	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("dispatch task panic", "kind", t.kind, "task_id", t.id, "panic", r, "stack", string(debug.Stack()))
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return t.job(tctx)
	}()
	if err == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		err = tctx.Err()
	}
	if err != nil {
		d.logger.Warn("dispatch task failed", "kind", t.kind, "task_id", t.id, "worker_id", workerID, "err", err)
		d.fail(t, err)
		return
	}
	metrics.DispatchTasks.WithLabelValues(t.kind, "ok").Inc()
}

func (d *Dispatcher) fail(t task, err error) {
	metrics.DispatchTasks.WithLabelValues(t.kind, "failed").Inc()
	select {
	case d.failures <- Failure{TaskID: t.id, Kind: t.kind, Err: err}:
	default:
	}
}

// Immediate runs each job synchronously on Submit with a background context.
// It satisfies the same Submit contract and is used in tests and tooling.
type Immediate struct {
	Errors []error
}

// Submit runs job immediately and records any error.
func (i *Immediate) Submit(_ string, job Job) bool {
	if err := job(context.Background()); err != nil {
		i.Errors = append(i.Errors, err)
	}
	return true
}
