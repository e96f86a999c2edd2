package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Handler processes one claimed job. A returned error triggers a retry
// with backoff until the job's attempt budget is spent.
type Handler func(ctx context.Context, job *Job) error

// Pool runs a fixed number of workers against one queue. Each worker
// polls for due jobs and drains the queue before sleeping again; the
// worker count is the stage's concurrency cap.
type Pool struct {
	queue       *Queue
	name        string
	workers     int
	poll        time.Duration
	handler     Handler
	onExhausted func(ctx context.Context, job *Job)
	backoff     func(attempt int) time.Duration
	log         *logrus.Entry

	stop chan struct{}
	wg   sync.WaitGroup
}

type PoolOption func(*Pool)

func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.poll = d
		}
	}
}

func WithBackoff(fn func(attempt int) time.Duration) PoolOption {
	return func(p *Pool) { p.backoff = fn }
}

// WithOnExhausted registers a hook invoked after a job burns its last
// attempt, so a stage can flag the underlying entity for manual review.
func WithOnExhausted(fn func(ctx context.Context, job *Job)) PoolOption {
	return func(p *Pool) { p.onExhausted = fn }
}

func NewPool(q *Queue, name string, workers int, handler Handler, opts ...PoolOption) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		queue:   q,
		name:    name,
		workers: workers,
		poll:    500 * time.Millisecond,
		handler: handler,
		backoff: ExponentialBackoff(30*time.Second, 15*time.Minute),
		log:     logrus.WithField("pool", name),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ExponentialBackoff doubles the delay per attempt, capped at max.
func ExponentialBackoff(base, max time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		return d
	}
}

func (p *Pool) Start() {
	p.log.Infof("Starting %d workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop()
	}
}

// Stop tells workers to stop claiming new jobs and waits for in-flight
// jobs to finish, or for ctx to expire.
func (p *Pool) Stop(ctx context.Context) error {
	close(p.stop)
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.log.Info("Workers drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pool %s did not drain: %w", p.name, ctx.Err())
	}
}

func (p *Pool) loop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.drain()
		}
	}
}

func (p *Pool) drain() {
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		job, err := p.queue.Claim(context.Background(), p.name)
		if err != nil {
			p.log.Errorf("Failed to claim job: %v", err)
			return
		}
		if job == nil {
			return
		}
		p.run(job)
	}
}

func (p *Pool) run(job *Job) {
	ctx := context.Background()

	err := p.invoke(ctx, job)
	if err == nil {
		if cerr := p.queue.Complete(ctx, job); cerr != nil {
			p.log.Errorf("Failed to complete job %s: %v", job.ID, cerr)
		}
		return
	}

	if job.Attempts >= job.MaxAttempts {
		p.log.Errorf("Job %s failed after %d attempts: %v", job.ID, job.Attempts, err)
		if ferr := p.queue.Fail(ctx, job, err); ferr != nil {
			p.log.Errorf("Failed to mark job %s failed: %v", job.ID, ferr)
		}
		if p.onExhausted != nil {
			p.onExhausted(ctx, job)
		}
		return
	}

	delay := p.backoff(job.Attempts)
	p.log.Warnf("Job %s attempt %d/%d failed, retrying in %v: %v",
		job.ID, job.Attempts, job.MaxAttempts, delay, err)
	if rerr := p.queue.Retry(ctx, job, err, delay); rerr != nil {
		p.log.Errorf("Failed to requeue job %s: %v", job.ID, rerr)
	}
}

func (p *Pool) invoke(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return p.handler(ctx, job)
}
