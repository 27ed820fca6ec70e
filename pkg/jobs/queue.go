package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotRunning is returned when submitting to a pool that is not started or already stopped.
	ErrNotRunning = errors.New("jobs: pool not running")
	// ErrFull is returned when the backlog is at capacity.
	ErrFull = errors.New("jobs: backlog full")
)

const maxBackoff = 30 * time.Second

// Job is one unit of background work.
type Job struct {
	ID         string
	Kind       string
	Payload    interface{}
	Attempt    int
	EnqueuedAt time.Time
}

// Handler runs a job. A returned error triggers a retry until the budget is spent.
type Handler func(context.Context, Job) error

// Options tunes a Pool.
type Options struct {
	Workers  int
	Capacity int
	Retries  int
	Backoff  time.Duration
	Logger   *zap.Logger
}

// Stats counts outcomes since the pool was created.
type Stats struct {
	Succeeded uint64
	Failed    uint64
	Retried   uint64
	Pending   int
}

// Pool runs submitted jobs on a fixed set of goroutines. Retries happen on the worker that
// picked the job up, with doubling backoff.
type Pool struct {
	name    string
	handler Handler
	opts    Options
	logger  *zap.Logger
	backlog chan Job

	succeeded atomic.Uint64
	failed    atomic.Uint64
	retried   atomic.Uint64

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool builds an idle pool; call Start before submitting.
func NewPool(name string, handler Handler, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Capacity <= 0 {
		opts.Capacity = opts.Workers * 8
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		name:    name,
		handler: handler,
		opts:    opts,
		logger:  logger.With(zap.String("pool", name)),
		backlog: make(chan Job, opts.Capacity),
	}
}

// Start launches the workers. They exit when ctx is cancelled or Stop is called.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true
	p.wg.Add(p.opts.Workers)
	for i := 0; i < p.opts.Workers; i++ {
		go p.work()
	}
	p.logger.Info("pool started", zap.Int("workers", p.opts.Workers))
}

// Stop cancels in-flight work and waits for the workers to return. Queued jobs are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("pool stopped", zap.Int("dropped", len(p.backlog)))
}

// Submit queues job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return ErrNotRunning
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	select {
	case p.backlog <- job:
		return nil
	default:
		return ErrFull
	}
}

// Stats reports outcome counters and the current backlog length.
func (p *Pool) Stats() Stats {
	return Stats{
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
		Retried:   p.retried.Load(),
		Pending:   len(p.backlog),
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.backlog:
			p.run(job)
		}
	}
}

func (p *Pool) run(job Job) {
	log := p.logger.With(zap.String("job_id", job.ID), zap.String("kind", job.Kind))
	delay := p.opts.Backoff
	for {
		job.Attempt++
		err := p.handler(p.ctx, job)
		if err == nil {
			p.succeeded.Add(1)
			return
		}
		if job.Attempt > p.opts.Retries || p.ctx.Err() != nil {
			p.failed.Add(1)
			log.Error("job failed", zap.Int("attempts", job.Attempt), zap.Error(err))
			return
		}
		p.retried.Add(1)
		log.Warn("job failed, retrying", zap.Int("attempt", job.Attempt), zap.Duration("backoff", delay), zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-p.ctx.Done():
			timer.Stop()
			p.failed.Add(1)
			return
		case <-timer.C:
		}
		if delay *= 2; delay > maxBackoff {
			delay = maxBackoff
		}
	}
}
