package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediabutler/internal/events"
	"mediabutler/internal/files"
	"mediabutler/internal/fsx"
	"mediabutler/internal/logging"
	"mediabutler/internal/organizer"
	"mediabutler/internal/paths"
	"mediabutler/internal/recovery"
	"mediabutler/internal/store"
)

// State is the lifecycle of one submitted batch.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Request names one file in a batch. An empty category falls back to the
// file's confirmed or suggested category.
type Request struct {
	Hash     string `json:"hash"`
	Category string `json:"category,omitempty"`
}

// Progress is a snapshot of one batch.
type Progress struct {
	ID                 string            `json:"id"`
	State              State             `json:"state"`
	Total              int               `json:"total"`
	Completed          int               `json:"completed"`
	Failed             int               `json:"failed"`
	CancelledRemaining int               `json:"cancelled_remaining"`
	Errors             map[string]string `json:"errors,omitempty"`
	SubmittedAt        time.Time         `json:"submitted_at"`
	FinishedAt         *time.Time        `json:"finished_at,omitempty"`
}

type batch struct {
	id        string
	requests  []Request
	state     State
	completed int
	failed    int
	remaining int
	errors    map[string]string
	submitted time.Time
	finished  *time.Time
	cancelled bool
}

// Orchestrator runs organize batches with bounded parallelism per batch.
// Cancellation is checked between files; work already in flight completes.
type Orchestrator struct {
	files       *files.Service
	organizer   *organizer.Organizer
	builder     *paths.Builder
	fs          fsx.FileSystem
	sink        events.Sink
	logger      *slog.Logger
	maxSize     int
	concurrency int

	mu      sync.Mutex
	batches map[string]*batch
}

// NewOrchestrator wires batch processing. maxSize caps how many files one
// batch may hold; concurrency bounds parallel moves inside one batch.
func NewOrchestrator(
	fileService *files.Service,
	fileOrganizer *organizer.Organizer,
	builder *paths.Builder,
	fsys fsx.FileSystem,
	sink events.Sink,
	logger *slog.Logger,
	maxSize, concurrency int,
) *Orchestrator {
	if sink == nil {
		sink = events.NopSink{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if maxSize < 1 {
		maxSize = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		files:       fileService,
		organizer:   fileOrganizer,
		builder:     builder,
		fs:          fsys,
		sink:        sink,
		logger:      logging.NewComponentLogger(logger, "batch"),
		maxSize:     maxSize,
		concurrency: concurrency,
		batches:     make(map[string]*batch),
	}
}

// Validate checks a batch without submitting it: every file must be
// eligible, targets must not collide inside the batch, and the library
// volume must hold the combined size.
func (o *Orchestrator) Validate(ctx context.Context, requests []Request) error {
	if len(requests) == 0 {
		return recovery.Wrap(recovery.ErrValidation, "batch", "validate", "batch is empty", nil)
	}
	if len(requests) > o.maxSize {
		return recovery.Wrap(recovery.ErrValidation, "batch", "validate",
			fmt.Sprintf("batch holds %d files, limit is %d", len(requests), o.maxSize), nil)
	}

	seen := make(map[string]struct{}, len(requests))
	targets := make(map[string]string, len(requests))
	var totalSize int64
	var probe string

	for _, req := range requests {
		if _, dup := seen[req.Hash]; dup {
			return recovery.Wrap(recovery.ErrValidation, "batch", "validate",
				fmt.Sprintf("file %s listed twice", req.Hash), nil)
		}
		seen[req.Hash] = struct{}{}

		file, err := o.files.Get(ctx, req.Hash)
		if err != nil {
			return err
		}
		if file.Status != store.StatusClassified && file.Status != store.StatusReadyToMove {
			return recovery.Wrap(recovery.ErrValidation, "batch", "validate",
				fmt.Sprintf("file %s is %s, batches accept classified or ready files", req.Hash, file.Status), nil)
		}

		target := file.TargetPath
		if target == "" {
			category := req.Category
			if category == "" {
				category = file.SuggestedCategory
			}
			built, _, err := o.builder.Build(file, category)
			if err != nil {
				return err
			}
			target = built
		}
		if other, clash := targets[target]; clash {
			return recovery.Wrap(recovery.ErrConflict, "batch", "validate",
				fmt.Sprintf("files %s and %s resolve to the same target %s", other, req.Hash, target), nil)
		}
		targets[target] = req.Hash
		totalSize += file.FileSize
		probe = target
	}

	if probe != "" {
		if free, err := o.fs.FreeSpace(probe); err == nil {
			required := uint64(float64(totalSize) * 1.1)
			if free < required {
				return recovery.Wrap(recovery.ErrSpace, "batch", "validate",
					fmt.Sprintf("insufficient disk space: need %d bytes, %d available", required, free), nil)
			}
		}
	}
	return nil
}

// Submit validates and registers a batch, returning its identifier. The
// batch stays pending until Run picks it up.
func (o *Orchestrator) Submit(ctx context.Context, requests []Request) (string, error) {
	if err := o.Validate(ctx, requests); err != nil {
		return "", err
	}
	b := &batch{
		id:        uuid.NewString(),
		requests:  append([]Request(nil), requests...),
		state:     StatePending,
		remaining: len(requests),
		errors:    make(map[string]string),
		submitted: time.Now().UTC(),
	}
	o.mu.Lock()
	o.batches[b.id] = b
	o.mu.Unlock()

	o.logger.Info("batch submitted",
		slog.String(logging.FieldBatchID, b.id),
		slog.Int("files", len(requests)))
	return b.id, nil
}

// Run executes one submitted batch to completion or cancellation.
func (o *Orchestrator) Run(ctx context.Context, batchID string) error {
	o.mu.Lock()
	b, ok := o.batches[batchID]
	if !ok {
		o.mu.Unlock()
		return recovery.Wrap(recovery.ErrNotFound, "batch", "run",
			fmt.Sprintf("no batch %s", batchID), nil)
	}
	if b.state != StatePending {
		state := b.state
		o.mu.Unlock()
		return recovery.Wrap(recovery.ErrValidation, "batch", "run",
			fmt.Sprintf("batch %s is %s, not pending", batchID, state), nil)
	}
	b.state = StateRunning
	requests := b.requests
	o.mu.Unlock()

	_ = o.sink.Publish(ctx, events.New(events.BatchStarted, map[string]any{
		"batch_id": batchID,
		"total":    len(requests),
	}))

	slots := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup
	for _, req := range requests {
		if o.isCancelled(batchID) || ctx.Err() != nil {
			break
		}
		slots <- struct{}{}
		// Cancellation may have landed while waiting for a slot.
		if o.isCancelled(batchID) || ctx.Err() != nil {
			<-slots
			break
		}
		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			defer func() { <-slots }()
			o.runOne(ctx, b, req)
		}(req)
	}
	wg.Wait()

	return o.finish(ctx, b)
}

func (o *Orchestrator) runOne(ctx context.Context, b *batch, req Request) {
	_, err := o.organizer.Organize(ctx, req.Hash, req.Category)

	o.mu.Lock()
	b.remaining--
	if err != nil {
		b.failed++
		b.errors[req.Hash] = err.Error()
	} else {
		b.completed++
	}
	completed, total := b.completed, len(b.requests)
	o.mu.Unlock()

	_ = o.sink.Publish(ctx, events.New(events.BatchProgress, map[string]any{
		"batch_id":  b.id,
		"completed": completed,
		"total":     total,
	}))
}

func (o *Orchestrator) finish(ctx context.Context, b *batch) error {
	o.mu.Lock()
	now := time.Now().UTC()
	b.finished = &now
	cancelled := b.cancelled
	if cancelled {
		b.state = StateCancelled
	} else {
		b.state = StateCompleted
	}
	completed, failed, remaining := b.completed, b.failed, b.remaining
	o.mu.Unlock()

	if cancelled {
		_ = o.sink.Publish(ctx, events.New(events.BatchCancelled, map[string]any{
			"batch_id":            b.id,
			"completed":           completed,
			"cancelled_remaining": remaining,
		}))
		o.logger.Info("batch cancelled",
			slog.String(logging.FieldBatchID, b.id),
			slog.Int("completed", completed),
			slog.Int("cancelled_remaining", remaining))
		return nil
	}

	_ = o.sink.Publish(ctx, events.New(events.BatchCompleted, map[string]any{
		"batch_id":  b.id,
		"completed": completed,
		"failed":    failed,
	}))
	o.logger.Info("batch completed",
		slog.String(logging.FieldBatchID, b.id),
		slog.Int("completed", completed),
		slog.Int("failed", failed))
	return nil
}

// Cancel flags a batch. A pending batch finishes immediately; a running
// batch stops dispatching after the files already in flight complete.
func (o *Orchestrator) Cancel(ctx context.Context, batchID string) error {
	o.mu.Lock()
	b, ok := o.batches[batchID]
	if !ok {
		o.mu.Unlock()
		return recovery.Wrap(recovery.ErrNotFound, "batch", "cancel",
			fmt.Sprintf("no batch %s", batchID), nil)
	}
	if b.state == StateCompleted || b.state == StateCancelled {
		state := b.state
		o.mu.Unlock()
		return recovery.Wrap(recovery.ErrValidation, "batch", "cancel",
			fmt.Sprintf("batch %s already %s", batchID, state), nil)
	}
	b.cancelled = true
	pending := b.state == StatePending
	o.mu.Unlock()

	if pending {
		o.mu.Lock()
		now := time.Now().UTC()
		b.state = StateCancelled
		b.finished = &now
		remaining := b.remaining
		completed := b.completed
		o.mu.Unlock()
		_ = o.sink.Publish(ctx, events.New(events.BatchCancelled, map[string]any{
			"batch_id":            batchID,
			"completed":           completed,
			"cancelled_remaining": remaining,
		}))
	}
	return nil
}

func (o *Orchestrator) isCancelled(batchID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.batches[batchID]
	return ok && b.cancelled
}

// Status reports one batch.
func (o *Orchestrator) Status(batchID string) (*Progress, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.batches[batchID]
	if !ok {
		return nil, recovery.Wrap(recovery.ErrNotFound, "batch", "status",
			fmt.Sprintf("no batch %s", batchID), nil)
	}
	return snapshot(b), nil
}

// List reports all known batches, newest first.
func (o *Orchestrator) List() []*Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*Progress, 0, len(o.batches))
	for _, b := range o.batches {
		out = append(out, snapshot(b))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

func snapshot(b *batch) *Progress {
	errs := make(map[string]string, len(b.errors))
	for hash, msg := range b.errors {
		errs[hash] = msg
	}
	p := &Progress{
		ID:          b.id,
		State:       b.state,
		Total:       len(b.requests),
		Completed:   b.completed,
		Failed:      b.failed,
		Errors:      errs,
		SubmittedAt: b.submitted,
	}
	if b.state == StateCancelled {
		p.CancelledRemaining = b.remaining
	}
	if b.finished != nil {
		finished := *b.finished
		p.FinishedAt = &finished
	}
	return p
}
