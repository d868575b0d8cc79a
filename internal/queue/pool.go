package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mediabutler/internal/logging"
	"mediabutler/internal/recovery"
)

// Pool drains a Queue with a fixed number of workers. Handler failures are
// classified; transient ones are re-enqueued after the recommended delay
// until the retry ceiling, everything else is dropped after logging.
type Pool struct {
	queue    *Queue
	handler  Handler
	recovery *recovery.Classifier
	logger   *slog.Logger
	workers  int
	timeout  time.Duration

	mu        sync.Mutex
	running   bool
	inFlight  int
	completed int64
	failed    int64
	retried   int64

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool wires a worker pool over queue. workers below one is clamped to
// one; timeout bounds how long Stop waits for in-flight jobs.
func NewPool(queue *Queue, handler Handler, errorClassifier *recovery.Classifier, workers int, timeout time.Duration, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		queue:    queue,
		handler:  handler,
		recovery: errorClassifier,
		logger:   logging.NewComponentLogger(logger, "queue"),
		workers:  workers,
		timeout:  timeout,
	}
}

// Start launches the workers. It is a no-op when the pool already runs.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.running = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.Info("worker pool started", slog.Int("workers", p.workers))
}

// Stop closes the queue and waits up to the shutdown timeout for the
// workers to drain it, then cancels whatever is still in flight.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.queue.close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(p.timeout):
		p.logger.Warn("shutdown timeout reached, cancelling in-flight jobs")
		p.cancel()
		<-done
	}
	p.cancel()
	p.logger.Info("worker pool stopped")
}

// Running reports whether workers are accepting jobs.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats snapshots queue depth and processing counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Depth:     p.queue.Depth(),
		Capacity:  p.queue.Capacity(),
		InFlight:  p.inFlight,
		Completed: p.completed,
		Failed:    p.failed,
		Retried:   p.retried,
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for job := range p.queue.jobs {
		if ctx.Err() != nil {
			return
		}
		p.run(ctx, job)
	}
}

func (p *Pool) run(ctx context.Context, job *Job) {
	p.mu.Lock()
	p.inFlight++
	p.mu.Unlock()

	job.Attempts++
	err := p.handler.Handle(ctx, job)

	p.mu.Lock()
	p.inFlight--
	if err == nil {
		p.completed++
	}
	p.mu.Unlock()

	if err == nil {
		return
	}
	p.onFailure(job, err)
}

func (p *Pool) onFailure(job *Job, cause error) {
	cls := p.recovery.Classify(recovery.ErrorContext{
		Err:           cause,
		OperationType: string(job.Kind),
		FileHash:      job.FileHash,
		RetryAttempts: job.Attempts,
	})
	if cls.CanRetry && job.Attempts < cls.MaxRetryAttempts {
		p.mu.Lock()
		p.retried++
		p.mu.Unlock()
		p.logger.Warn("job failed, scheduling retry",
			slog.String(logging.FieldJobID, job.ID),
			slog.String(logging.FieldFileHash, job.FileHash),
			slog.Int("attempt", job.Attempts),
			slog.Duration("delay", cls.RecommendedDelay),
			slog.String("error", cause.Error()))
		time.AfterFunc(cls.RecommendedDelay, func() {
			if err := p.queue.Enqueue(job); err != nil {
				p.logger.Warn("retry enqueue rejected",
					slog.String(logging.FieldJobID, job.ID),
					slog.String("error", err.Error()))
			}
		})
		return
	}

	p.mu.Lock()
	p.failed++
	p.mu.Unlock()
	p.logger.Error("job failed",
		slog.String(logging.FieldJobID, job.ID),
		slog.String(logging.FieldFileHash, job.FileHash),
		slog.String("kind", string(job.Kind)),
		slog.Int("attempts", job.Attempts),
		slog.String("error", cause.Error()))
}
