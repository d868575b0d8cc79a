package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediabutler/internal/recovery"
)

// Kind identifies what a job asks the workers to do.
type Kind string

const (
	KindClassify      Kind = "CLASSIFY"
	KindOrganize      Kind = "ORGANIZE"
	KindBatchOrganize Kind = "BATCH_ORGANIZE"
)

// Job is one unit of queued work. FileHash addresses single-file jobs,
// BatchID addresses batch jobs. Attempts counts handler runs so far.
type Job struct {
	ID         string
	Kind       Kind
	FileHash   string
	BatchID    string
	Category   string
	Attempts   int
	EnqueuedAt time.Time
}

// NewJob builds a job with a fresh identifier.
func NewJob(kind Kind, fileHash string) *Job {
	return &Job{
		ID:       uuid.NewString(),
		Kind:     kind,
		FileHash: fileHash,
	}
}

// Stats is a point-in-time snapshot of queue activity.
type Stats struct {
	Depth     int   `json:"depth"`
	Capacity  int   `json:"capacity"`
	InFlight  int   `json:"in_flight"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Retried   int64 `json:"retried"`
}

// Queue is a bounded FIFO of jobs. Enqueue never blocks: a full queue
// rejects the job so callers can surface backpressure instead of hanging.
type Queue struct {
	mu       sync.Mutex
	jobs     chan *Job
	capacity int
	closed   bool
}

// NewQueue builds a queue holding at most capacity jobs.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		jobs:     make(chan *Job, capacity),
		capacity: capacity,
	}
}

// Enqueue appends a job. A full or closed queue rejects it.
func (q *Queue) Enqueue(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return recovery.Wrap(recovery.ErrUnavailable, "queue", "enqueue", "queue is shut down", nil)
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return recovery.Wrap(recovery.ErrUnavailable, "queue", "enqueue", "queue full", nil)
	}
}

// Depth reports how many jobs are waiting.
func (q *Queue) Depth() int { return len(q.jobs) }

// Capacity reports the configured bound.
func (q *Queue) Capacity() int { return q.capacity }

// close stops accepting jobs and lets consumers drain what remains.
func (q *Queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
}

// Handler processes one job. Errors are classified by the pool to decide
// between retry and drop.
type Handler interface {
	Handle(ctx context.Context, job *Job) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *Job) error

func (f HandlerFunc) Handle(ctx context.Context, job *Job) error { return f(ctx, job) }
