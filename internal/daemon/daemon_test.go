package daemon_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediabutler/internal/config"
	"mediabutler/internal/daemon"
	"mediabutler/internal/recovery"
	"mediabutler/internal/store"
	"mediabutler/internal/testsupport"
)

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	cfg.Discovery.DebounceSeconds = 0
	cfg.Discovery.ScanIntervalMinutes = 0
	cfg.Discovery.MinFileSizeMB = 0
	cfg.Processing.ShutdownTimeoutSeconds = 5
	return cfg
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestStartAndStop(t *testing.T) {
	cfg := newConfig(t)
	d := daemon.New(cfg, nil)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if !d.Running() {
		t.Fatal("daemon not running after Start")
	}
	status := d.Status(context.Background())
	if !status.Running {
		t.Fatal("status reports not running")
	}
	if status.DatabasePath != cfg.DatabasePath() {
		t.Fatalf("database path = %s", status.DatabasePath)
	}

	// Start is idempotent while running.
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon still running after Stop")
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	cfg := newConfig(t)
	first := daemon.New(cfg, nil)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second := daemon.New(cfg, nil)
	err := second.Start(context.Background())
	if !errors.Is(err, recovery.ErrConflict) {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestPipelineClassifiesDiscoveredFile(t *testing.T) {
	cfg := newConfig(t)
	d := daemon.New(cfg, nil)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	testsupport.WriteEpisode(t, cfg.Paths.WatchFolders[0], "Unknown.Show.S01E01.mkv")

	waitFor(t, 5*time.Second, func() bool {
		classified, err := d.Store().ListByStatus(context.Background(), store.StatusClassified)
		return err == nil && len(classified) == 1
	})

	classified, _ := d.Store().ListByStatus(context.Background(), store.StatusClassified)
	if classified[0].SuggestedCategory != "UNKNOWN" {
		t.Fatalf("suggested = %q with empty library", classified[0].SuggestedCategory)
	}
}

func TestStartReclaimsStuckFiles(t *testing.T) {
	cfg := newConfig(t)

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	file := &store.TrackedFile{
		Hash:         testsupport.FakeHash("stuck"),
		OriginalPath: "/downloads/stuck.mkv",
		FileName:     "stuck.mkv",
		FileSize:     100,
		Status:       store.StatusProcessing,
	}
	if err := st.WithScope(ctx, func(sc *store.Scope) error {
		return sc.InsertTracked(ctx, file)
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d := daemon.New(cfg, nil)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	// The reclaimed file goes back to new and the watcher-free queue
	// leaves it there until classification picks it up again.
	waitFor(t, 3*time.Second, func() bool {
		reloaded, err := d.Store().GetTracked(ctx, file.Hash)
		return err == nil && reloaded != nil && reloaded.Status != store.StatusProcessing
	})
}

func TestCleanupRollbackPointsUsesRetentionWindow(t *testing.T) {
	cfg := newConfig(t)
	d := daemon.New(cfg, nil)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	ctx := context.Background()
	hash := testsupport.FakeHash("rollback")
	if err := d.Store().WithScope(ctx, func(sc *store.Scope) error {
		if err := sc.InsertRollbackPoint(ctx, &store.RollbackPoint{
			ID:           "stale-point",
			FileHash:     hash,
			OriginalPath: "/downloads/a.mkv",
			TargetPath:   "/library/SHOW/a.mkv",
			CreatedAt:    time.Now().UTC().Add(-48 * time.Hour),
		}); err != nil {
			return err
		}
		return sc.InsertRollbackPoint(ctx, &store.RollbackPoint{
			ID:           "fresh-point",
			FileHash:     hash,
			OriginalPath: "/downloads/b.mkv",
			TargetPath:   "/library/SHOW/b.mkv",
		})
	}); err != nil {
		t.Fatalf("insert rollback points: %v", err)
	}

	removed, err := d.CleanupRollbackPoints(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupRollbackPoints: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	stale, err := d.Store().GetRollbackPoint(ctx, "stale-point")
	if err != nil {
		t.Fatalf("GetRollbackPoint: %v", err)
	}
	if stale.Active {
		t.Fatal("stale point survived cleanup")
	}
	fresh, err := d.Store().GetRollbackPoint(ctx, "fresh-point")
	if err != nil {
		t.Fatalf("GetRollbackPoint: %v", err)
	}
	if !fresh.Active {
		t.Fatal("fresh point was retired inside the retention window")
	}
}

func TestReloadLibraryPicksUpCategories(t *testing.T) {
	cfg := newConfig(t)
	d := daemon.New(cfg, nil)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	testsupport.WriteEpisode(t, cfg.Paths.LibraryRoot+"/THE WIRE", "placeholder.mkv")
	count, err := d.ReloadLibrary(context.Background())
	if err != nil {
		t.Fatalf("ReloadLibrary: %v", err)
	}
	if count != 1 {
		t.Fatalf("titles = %d", count)
	}
}
