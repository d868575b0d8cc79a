package batch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mediabutler/internal/batch"
	"mediabutler/internal/config"
	"mediabutler/internal/events"
	"mediabutler/internal/files"
	"mediabutler/internal/fsx"
	"mediabutler/internal/mover"
	"mediabutler/internal/organizer"
	"mediabutler/internal/paths"
	"mediabutler/internal/recovery"
	"mediabutler/internal/rollback"
	"mediabutler/internal/store"
	"mediabutler/internal/testsupport"
)

type fixture struct {
	cfg   *config.Config
	store *store.Store
	fs    fsx.FileSystem
	mem   *fsx.MemFS
	files *files.Service
	sink  *captureSink
}

type captureSink struct {
	mu        sync.Mutex
	published []events.Event
}

func (c *captureSink) Publish(_ context.Context, event events.Event) error {
	c.mu.Lock()
	c.published = append(c.published, event)
	c.mu.Unlock()
	return nil
}

func (c *captureSink) byKind(kind events.Kind) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, ev := range c.published {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func newFixture(t *testing.T, fs fsx.FileSystem, mem *fsx.MemFS) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	builder := paths.NewBuilder(fs, cfg.Paths.LibraryRoot)
	return &fixture{
		cfg:   cfg,
		store: st,
		fs:    fs,
		mem:   mem,
		files: files.NewService(cfg, st, fs, builder, nil),
		sink:  &captureSink{},
	}
}

func (f *fixture) orchestrator(t *testing.T, concurrency int) *batch.Orchestrator {
	t.Helper()
	builder := paths.NewBuilder(f.fs, f.cfg.Paths.LibraryRoot)
	fileMover := mover.New(f.fs, builder, nil)
	rollbackService := rollback.NewService(f.store, f.fs, nil)
	errorClassifier := recovery.NewClassifier([]int{1, 1, 1}, 3)
	org := organizer.New(f.files, fileMover, builder, rollbackService, errorClassifier, f.fs, nil, nil)
	return batch.NewOrchestrator(f.files, org, builder, f.fs, f.sink, nil,
		f.cfg.Processing.MaxBatchSize, concurrency)
}

func (f *fixture) seedClassified(t *testing.T, name, category string) string {
	t.Helper()
	ctx := context.Background()
	f.mem.WriteFile("/downloads/"+name, []byte("payload "+name))
	file, err := f.files.Register(ctx, "/downloads/"+name)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := f.files.UpdateClassification(ctx, file.Hash, category, 0.9); err != nil {
		t.Fatalf("UpdateClassification: %v", err)
	}
	return file.Hash
}

func TestSubmitAndRunBatch(t *testing.T) {
	mem := fsx.NewMemFS()
	f := newFixture(t, mem, mem)
	orc := f.orchestrator(t, 2)
	ctx := context.Background()

	var requests []batch.Request
	for i := 0; i < 4; i++ {
		hash := f.seedClassified(t, fmt.Sprintf("ep%d.mkv", i), "SHOW")
		requests = append(requests, batch.Request{Hash: hash, Category: "SHOW"})
	}

	id, err := orc.Submit(ctx, requests)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := orc.Run(ctx, id); err != nil {
		t.Fatalf("Run: %v", err)
	}

	progress, err := orc.Status(id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if progress.State != batch.StateCompleted {
		t.Fatalf("state = %s", progress.State)
	}
	if progress.Completed != 4 || progress.Failed != 0 {
		t.Fatalf("completed = %d, failed = %d", progress.Completed, progress.Failed)
	}
	for _, req := range requests {
		file, _ := f.store.GetTracked(ctx, req.Hash)
		if file.Status != store.StatusMoved {
			t.Fatalf("file %s is %s", req.Hash, file.Status)
		}
	}
	if got := len(f.sink.byKind(events.BatchProgress)); got != 4 {
		t.Fatalf("progress events = %d", got)
	}
	if got := len(f.sink.byKind(events.BatchCompleted)); got != 1 {
		t.Fatalf("completed events = %d", got)
	}
}

func TestValidateRejectsIneligibleFile(t *testing.T) {
	mem := fsx.NewMemFS()
	f := newFixture(t, mem, mem)
	orc := f.orchestrator(t, 1)
	ctx := context.Background()

	mem.WriteFile("/downloads/raw.mkv", []byte("raw"))
	file, err := f.files.Register(ctx, "/downloads/raw.mkv")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	err = orc.Validate(ctx, []batch.Request{{Hash: file.Hash, Category: "SHOW"}})
	if !errors.Is(err, recovery.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateRejectsTargetCollision(t *testing.T) {
	mem := fsx.NewMemFS()
	f := newFixture(t, mem, mem)
	orc := f.orchestrator(t, 1)
	ctx := context.Background()

	mem.WriteFile("/a/ep.mkv", []byte("first"))
	mem.WriteFile("/b/ep.mkv", []byte("second"))
	first, _ := f.files.Register(ctx, "/a/ep.mkv")
	second, _ := f.files.Register(ctx, "/b/ep.mkv")
	_, _ = f.files.UpdateClassification(ctx, first.Hash, "SHOW", 0.9)
	_, _ = f.files.UpdateClassification(ctx, second.Hash, "SHOW", 0.9)

	err := orc.Validate(ctx, []batch.Request{
		{Hash: first.Hash, Category: "SHOW"},
		{Hash: second.Hash, Category: "SHOW"},
	})
	if !errors.Is(err, recovery.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestValidateRejectsInsufficientSpace(t *testing.T) {
	mem := fsx.NewMemFS()
	f := newFixture(t, mem, mem)
	orc := f.orchestrator(t, 1)
	ctx := context.Background()

	hash := f.seedClassified(t, "ep.mkv", "SHOW")
	mem.SetFreeSpace(1)

	err := orc.Validate(ctx, []batch.Request{{Hash: hash, Category: "SHOW"}})
	if !errors.Is(err, recovery.ErrSpace) {
		t.Fatalf("expected space error, got %v", err)
	}
}

func TestValidateRejectsOversizedBatch(t *testing.T) {
	mem := fsx.NewMemFS()
	f := newFixture(t, mem, mem)
	f.cfg.Processing.MaxBatchSize = 2
	orc := f.orchestrator(t, 1)

	requests := []batch.Request{{Hash: "a"}, {Hash: "b"}, {Hash: "c"}}
	err := orc.Validate(context.Background(), requests)
	if !errors.Is(err, recovery.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// gatedFS blocks every rename on a token so tests control when each file
// in a batch actually moves.
type gatedFS struct {
	*fsx.MemFS
	gate chan struct{}

	mu       sync.Mutex
	attempts int
}

func (g *gatedFS) Rename(oldPath, newPath string) error {
	g.mu.Lock()
	g.attempts++
	g.mu.Unlock()
	<-g.gate
	return g.MemFS.Rename(oldPath, newPath)
}

func (g *gatedFS) renameAttempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestCancelMidBatchLetsInFlightComplete(t *testing.T) {
	mem := fsx.NewMemFS()
	gated := &gatedFS{MemFS: mem, gate: make(chan struct{})}
	f := newFixture(t, gated, mem)
	orc := f.orchestrator(t, 1)
	ctx := context.Background()

	var requests []batch.Request
	for i := 0; i < 10; i++ {
		hash := f.seedClassified(t, fmt.Sprintf("ep%02d.mkv", i), "SHOW")
		requests = append(requests, batch.Request{Hash: hash, Category: "SHOW"})
	}

	id, err := orc.Submit(ctx, requests)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- orc.Run(ctx, id) }()

	// Let two files through, then cancel while the third is in flight.
	gated.gate <- struct{}{}
	gated.gate <- struct{}{}
	waitFor(t, 2*time.Second, func() bool { return gated.renameAttempts() == 3 })
	if err := orc.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	close(gated.gate)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	progress, _ := orc.Status(id)
	if progress.State != batch.StateCancelled {
		t.Fatalf("state = %s", progress.State)
	}
	if progress.Completed != 3 {
		t.Fatalf("completed = %d", progress.Completed)
	}
	if progress.CancelledRemaining != 7 {
		t.Fatalf("cancelled_remaining = %d", progress.CancelledRemaining)
	}

	// Nothing may be left mid-move.
	moving, err := f.store.ListByStatus(ctx, store.StatusMoving)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(moving) != 0 {
		t.Fatalf("%d files left moving", len(moving))
	}
	cancelledEvents := f.sink.byKind(events.BatchCancelled)
	if len(cancelledEvents) != 1 {
		t.Fatalf("cancelled events = %d", len(cancelledEvents))
	}
	if got := cancelledEvents[0].Payload["cancelled_remaining"]; got != 7 {
		t.Fatalf("cancelled_remaining payload = %v", got)
	}
}

func TestCancelPendingBatch(t *testing.T) {
	mem := fsx.NewMemFS()
	f := newFixture(t, mem, mem)
	orc := f.orchestrator(t, 1)
	ctx := context.Background()

	hash := f.seedClassified(t, "ep.mkv", "SHOW")
	id, err := orc.Submit(ctx, []batch.Request{{Hash: hash, Category: "SHOW"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := orc.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	progress, _ := orc.Status(id)
	if progress.State != batch.StateCancelled {
		t.Fatalf("state = %s", progress.State)
	}
	if progress.CancelledRemaining != 1 {
		t.Fatalf("cancelled_remaining = %d", progress.CancelledRemaining)
	}
	if err := orc.Run(ctx, id); !errors.Is(err, recovery.ErrValidation) {
		t.Fatalf("expected run of cancelled batch to fail, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	mem := fsx.NewMemFS()
	f := newFixture(t, mem, mem)
	orc := f.orchestrator(t, 1)
	ctx := context.Background()

	first := f.seedClassified(t, "a.mkv", "A")
	second := f.seedClassified(t, "b.mkv", "B")
	if _, err := orc.Submit(ctx, []batch.Request{{Hash: first, Category: "A"}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	newest, err := orc.Submit(ctx, []batch.Request{{Hash: second, Category: "B"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	list := orc.List()
	if len(list) != 2 {
		t.Fatalf("list = %d", len(list))
	}
	if list[0].ID != newest {
		t.Fatalf("newest not first: %v", list[0].ID)
	}
}
