package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roller/internal/services"
	"github.com/desertthunder/roller/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers   = 2
	maxWorkers       = 8
	defaultRateLimit = 5.0
)

// Job is a unit of background work.
type Job interface {
	Name() string
	Perform(ctx context.Context) error
}

// Enqueuer accepts jobs for later execution.
type Enqueuer interface {
	Enqueue(job Job) error
}

// Event reports the outcome of a single job.
type Event struct {
	Job      string
	Err      error
	Duration time.Duration
}

// QueueOpts contains configuration for a [Queue].
type QueueOpts struct {
	Workers   int          // Concurrent workers (default: 2, max: 8)
	RateLimit float64      // Jobs started per second (default: 5)
	Logger    *log.Logger  // Defaults to a stderr logger
	Events    chan<- Event // Optional; sends never block
}

// Queue runs jobs on a fixed pool of workers.
type Queue struct {
	workers int
	limiter *rate.Limiter
	logger  *log.Logger
	events  chan<- Event

	mu      sync.Mutex
	pending []Job
	notify  chan struct{}
	closed  bool
	started bool

	jobs   chan Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewQueue creates a stopped queue. Jobs enqueued before [Queue.Start] wait for it.
func NewQueue(opts QueueOpts) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Queue{
		workers: opts.Workers,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		logger:  opts.Logger.WithPrefix("jobs"),
		events:  opts.Events,
		notify:  make(chan struct{}, 1),
		jobs:    make(chan Job),
		done:    make(chan struct{}),
	}
}

// NewQueueFromConfig creates a queue from the [jobs] config section.
func NewQueueFromConfig(cfg shared.JobsConfig, logger *log.Logger) *Queue {
	return NewQueue(QueueOpts{Workers: cfg.Workers, RateLimit: cfg.RateLimit, Logger: logger})
}

// Workers returns the size of the worker pool.
func (q *Queue) Workers() int { return q.workers }

// Start launches the dispatcher and workers. Cancelling ctx abandons jobs still pending.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	go q.dispatch(ctx)
	go func() {
		q.wg.Wait()
		close(q.done)
	}()

	q.logger.Debugf("started %d workers", q.workers)
}

// Enqueue adds job to the queue without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("%w: %s", shared.ErrQueueClosed, job.Name())
	}
	q.pending = append(q.pending, job)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns how many jobs are waiting for a worker.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stop refuses new jobs and waits for pending ones to finish. If ctx ends first the
// remaining jobs are abandoned and ctx's error is returned.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	started := q.started
	q.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case q.notify <- struct{}{}:
	default:
	}

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		q.cancel()
		<-q.done
		return ctx.Err()
	}
}

// dispatch feeds pending jobs to workers, one per limiter token.
func (q *Queue) dispatch(ctx context.Context) {
	defer close(q.jobs)

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-q.notify:
				continue
			case <-ctx.Done():
				return
			}
		}
		job := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		if err := q.limiter.Wait(ctx); err != nil {
			return
		}

		select {
		case q.jobs <- job:
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()

	for job := range q.jobs {
		q.run(ctx, job)
	}
}

// run performs one job, converting panics into errors.
func (q *Queue) run(ctx context.Context, job Job) {
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		return job.Perform(ctx)
	}()

	elapsed := time.Since(start)
	switch {
	case services.IsRateLimited(err):
		q.logger.Warn("job dropped, GitHub rate limit reached", "job", job.Name(), "err", err)
	case err != nil:
		q.logger.Error("job failed", "job", job.Name(), "duration", elapsed, "err", err)
	default:
		q.logger.Debug("job finished", "job", job.Name(), "duration", elapsed)
	}

	q.sendEvent(Event{Job: job.Name(), Err: err, Duration: elapsed})
}

// sendEvent sends a non-blocking event.
func (q *Queue) sendEvent(e Event) {
	if q.events == nil {
		return
	}
	select {
	case q.events <- e:
	default:
	}
}
