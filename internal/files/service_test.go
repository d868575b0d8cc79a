package files_test

import (
	"context"
	"errors"
	"testing"

	"mediabutler/internal/classifier"
	"mediabutler/internal/config"
	"mediabutler/internal/files"
	"mediabutler/internal/fsx"
	"mediabutler/internal/paths"
	"mediabutler/internal/recovery"
	"mediabutler/internal/store"
	"mediabutler/internal/testsupport"
)

func newService(t *testing.T) (*files.Service, *fsx.MemFS, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	fs := fsx.NewMemFS()
	builder := paths.NewBuilder(fs, cfg.Paths.LibraryRoot)
	return files.NewService(cfg, st, fs, builder, nil), fs, cfg
}

func TestRegisterIsIdempotentByContent(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()

	fs.WriteFile("/downloads/ep.mkv", []byte("identical content"))
	fs.WriteFile("/other/copy.mkv", []byte("identical content"))

	first, err := svc.Register(ctx, "/downloads/ep.mkv")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if first.Status != store.StatusNew {
		t.Fatalf("status = %s", first.Status)
	}

	again, err := svc.Register(ctx, "/downloads/ep.mkv")
	if err != nil {
		t.Fatalf("Register again: %v", err)
	}
	if again.Hash != first.Hash || again.OriginalPath != first.OriginalPath {
		t.Fatal("re-registering the same path changed the row")
	}

	copied, err := svc.Register(ctx, "/other/copy.mkv")
	if err != nil {
		t.Fatalf("Register copy: %v", err)
	}
	if copied.Hash != first.Hash {
		t.Fatal("same content at a second path produced a second row")
	}
	if copied.OriginalPath != "/downloads/ep.mkv" {
		t.Fatalf("original path rewritten to %s", copied.OriginalPath)
	}
}

func TestRegisterMissingFile(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Register(context.Background(), "/downloads/ghost.mkv")
	if !errors.Is(err, recovery.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestClassificationFlow(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()

	fs.WriteFile("/downloads/ep.mkv", []byte("content"))
	file, err := svc.Register(ctx, "/downloads/ep.mkv")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.BeginProcessing(ctx, file.Hash); err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}

	classified, err := svc.UpdateClassification(ctx, file.Hash, "THE WALKING DEAD", 0.92)
	if err != nil {
		t.Fatalf("UpdateClassification: %v", err)
	}
	if classified.Status != store.StatusClassified {
		t.Fatalf("status = %s", classified.Status)
	}
	if classified.SuggestedCategory != "THE WALKING DEAD" || classified.Confidence == nil || *classified.Confidence != 0.92 {
		t.Fatalf("classification fields = %q/%v", classified.SuggestedCategory, classified.Confidence)
	}
	if classified.ClassifiedAt == nil {
		t.Fatal("classified_at not stamped")
	}
}

func TestLowConfidenceDegradesToUnknown(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()

	fs.WriteFile("/downloads/ep.mkv", []byte("content"))
	file, _ := svc.Register(ctx, "/downloads/ep.mkv")

	classified, err := svc.UpdateClassification(ctx, file.Hash, "MAYBE", 0.31)
	if err != nil {
		t.Fatalf("UpdateClassification: %v", err)
	}
	if classified.SuggestedCategory != classifier.Unknown {
		t.Fatalf("suggested = %q, want UNKNOWN", classified.SuggestedCategory)
	}
}

func TestUpdateClassificationRejectsBadConfidence(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()
	fs.WriteFile("/downloads/ep.mkv", []byte("content"))
	file, _ := svc.Register(ctx, "/downloads/ep.mkv")

	if _, err := svc.UpdateClassification(ctx, file.Hash, "X", 1.5); !errors.Is(err, recovery.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfirmComputesTarget(t *testing.T) {
	svc, fs, cfg := newService(t)
	ctx := context.Background()

	fs.WriteFile("/downloads/ep.mkv", []byte("content"))
	file, _ := svc.Register(ctx, "/downloads/ep.mkv")
	if _, err := svc.UpdateClassification(ctx, file.Hash, "FRIENDS", 0.9); err != nil {
		t.Fatalf("UpdateClassification: %v", err)
	}

	confirmed, err := svc.Confirm(ctx, file.Hash, "FRIENDS")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != store.StatusReadyToMove {
		t.Fatalf("status = %s", confirmed.Status)
	}
	want := cfg.Paths.LibraryRoot + "/FRIENDS/ep.mkv"
	if confirmed.TargetPath != want {
		t.Fatalf("target = %q, want %q", confirmed.TargetPath, want)
	}
}

func TestConfirmFailureLeavesFileClassified(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()

	fs.WriteFile("/downloads/ep.mkv", []byte("content"))
	file, _ := svc.Register(ctx, "/downloads/ep.mkv")
	if _, err := svc.UpdateClassification(ctx, file.Hash, "FRIENDS", 0.9); err != nil {
		t.Fatalf("UpdateClassification: %v", err)
	}

	if _, err := svc.Confirm(ctx, file.Hash, "   "); !errors.Is(err, recovery.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	reloaded, err := svc.Get(ctx, file.Hash)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reloaded.Status != store.StatusClassified || reloaded.TargetPath != "" {
		t.Fatalf("rolled-back file = %s/%q", reloaded.Status, reloaded.TargetPath)
	}
}

func TestMoveFlow(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()

	fs.WriteFile("/downloads/ep.mkv", []byte("content"))
	file, _ := svc.Register(ctx, "/downloads/ep.mkv")
	_, _ = svc.UpdateClassification(ctx, file.Hash, "FRIENDS", 0.9)
	_, _ = svc.Confirm(ctx, file.Hash, "FRIENDS")

	if _, err := svc.BeginMove(ctx, file.Hash); err != nil {
		t.Fatalf("BeginMove: %v", err)
	}
	moved, err := svc.MarkMoved(ctx, file.Hash, "/library/FRIENDS/ep.mkv")
	if err != nil {
		t.Fatalf("MarkMoved: %v", err)
	}
	if moved.Status != store.StatusMoved || moved.MovedToPath != "/library/FRIENDS/ep.mkv" || moved.MovedAt == nil {
		t.Fatalf("moved = %+v", moved)
	}

	// MOVED is terminal.
	if _, err := svc.Ignore(ctx, file.Hash); !errors.Is(err, recovery.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
}

func TestIllegalTransitionRejected(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()

	fs.WriteFile("/downloads/ep.mkv", []byte("content"))
	file, _ := svc.Register(ctx, "/downloads/ep.mkv")

	// NEW cannot go straight to MOVING.
	if _, err := svc.BeginMove(ctx, file.Hash); !errors.Is(err, recovery.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
}

func TestRecordErrorRetryBound(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()

	fs.WriteFile("/downloads/ep.mkv", []byte("content"))
	file, _ := svc.Register(ctx, "/downloads/ep.mkv")
	_, _ = svc.BeginProcessing(ctx, file.Hash)

	// Default max_retry is 3: two failures park in RETRY, the third is ERROR.
	for i := 1; i <= 2; i++ {
		failed, err := svc.RecordError(ctx, file.Hash, "classifier unreachable", nil)
		if err != nil {
			t.Fatalf("RecordError %d: %v", i, err)
		}
		if failed.Status != store.StatusRetry || failed.RetryCount != i {
			t.Fatalf("after failure %d: %s retry=%d", i, failed.Status, failed.RetryCount)
		}
	}
	failed, err := svc.RecordError(ctx, file.Hash, "classifier unreachable", nil)
	if err != nil {
		t.Fatalf("RecordError final: %v", err)
	}
	if failed.Status != store.StatusError || failed.RetryCount != 3 {
		t.Fatalf("final = %s retry=%d", failed.Status, failed.RetryCount)
	}

	// Beyond the ceiling record_error is a no-op.
	again, err := svc.RecordError(ctx, file.Hash, "still failing", nil)
	if err != nil {
		t.Fatalf("RecordError past ceiling: %v", err)
	}
	if again.RetryCount != 3 || again.Status != store.StatusError {
		t.Fatalf("no-op violated: %s retry=%d", again.Status, again.RetryCount)
	}
}

func TestResetErrorReturnsToNew(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()

	fs.WriteFile("/downloads/ep.mkv", []byte("content"))
	file, _ := svc.Register(ctx, "/downloads/ep.mkv")
	_, _ = svc.BeginProcessing(ctx, file.Hash)
	for i := 0; i < 3; i++ {
		_, _ = svc.RecordError(ctx, file.Hash, "boom", nil)
	}

	reset, err := svc.ResetError(ctx, file.Hash)
	if err != nil {
		t.Fatalf("ResetError: %v", err)
	}
	if reset.Status != store.StatusNew || reset.RetryCount != 0 || reset.LastError != "" || reset.LastErrorAt != nil {
		t.Fatalf("reset = %+v", reset)
	}
}

func TestIgnoreAndSoftDelete(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()

	fs.WriteFile("/downloads/ep.mkv", []byte("content"))
	file, _ := svc.Register(ctx, "/downloads/ep.mkv")

	ignored, err := svc.Ignore(ctx, file.Hash)
	if err != nil {
		t.Fatalf("Ignore: %v", err)
	}
	if ignored.Status != store.StatusIgnored {
		t.Fatalf("status = %s", ignored.Status)
	}

	if err := svc.SoftDelete(ctx, file.Hash, "user request"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := svc.Get(ctx, file.Hash); !errors.Is(err, recovery.ErrNotFound) {
		t.Fatalf("expected hidden after soft delete, got %v", err)
	}
}

func TestListPendingExcludesSettledFiles(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()

	fs.WriteFile("/downloads/new.mkv", []byte("new content"))
	fs.WriteFile("/downloads/moved.mkv", []byte("moved content"))
	fs.WriteFile("/downloads/ignored.mkv", []byte("ignored content"))

	fresh, _ := svc.Register(ctx, "/downloads/new.mkv")

	moved, _ := svc.Register(ctx, "/downloads/moved.mkv")
	_, _ = svc.UpdateClassification(ctx, moved.Hash, "FRIENDS", 0.9)
	_, _ = svc.Confirm(ctx, moved.Hash, "FRIENDS")
	_, _ = svc.BeginMove(ctx, moved.Hash)
	if _, err := svc.MarkMoved(ctx, moved.Hash, "/library/FRIENDS/moved.mkv"); err != nil {
		t.Fatalf("MarkMoved: %v", err)
	}

	ignored, _ := svc.Register(ctx, "/downloads/ignored.mkv")
	if _, err := svc.Ignore(ctx, ignored.Hash); err != nil {
		t.Fatalf("Ignore: %v", err)
	}

	pending, err := svc.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].Hash != fresh.Hash {
		t.Fatalf("pending = %v, want only the new file", pending)
	}
}

func TestListReadyForClassificationHonorsLimit(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()

	hashes := make([]string, 0, 3)
	for _, name := range []string{"a.mkv", "b.mkv", "c.mkv"} {
		fs.WriteFile("/downloads/"+name, []byte("content of "+name))
		file, err := svc.Register(ctx, "/downloads/"+name)
		if err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
		hashes = append(hashes, file.Hash)
	}

	ready, err := svc.ListReadyForClassification(ctx, 2)
	if err != nil {
		t.Fatalf("ListReadyForClassification: %v", err)
	}
	if len(ready) != 2 {
		t.Fatalf("ready = %d files, want 2", len(ready))
	}

	all, err := svc.ListReadyForClassification(ctx, 0)
	if err != nil {
		t.Fatalf("ListReadyForClassification unbounded: %v", err)
	}
	if len(all) != len(hashes) {
		t.Fatalf("unbounded = %d files, want %d", len(all), len(hashes))
	}
}

func TestEveryOperationLogs(t *testing.T) {
	svc, fs, _ := newService(t)
	ctx := context.Background()

	fs.WriteFile("/downloads/ep.mkv", []byte("content"))
	file, _ := svc.Register(ctx, "/downloads/ep.mkv")
	_, _ = svc.UpdateClassification(ctx, file.Hash, "FRIENDS", 0.9)
	_, _ = svc.Confirm(ctx, file.Hash, "FRIENDS")
	_, _ = svc.BeginMove(ctx, file.Hash)
	_, _ = svc.MarkMoved(ctx, file.Hash, "/library/FRIENDS/ep.mkv")

	logs, err := svc.Store().LogsForFile(ctx, file.Hash)
	if err != nil {
		t.Fatalf("LogsForFile: %v", err)
	}
	if len(logs) != 5 {
		for _, entry := range logs {
			t.Logf("%s: %s", entry.Category, entry.Message)
		}
		t.Fatalf("expected 5 log entries, got %d", len(logs))
	}
}
