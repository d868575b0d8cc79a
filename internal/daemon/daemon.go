package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"mediabutler/internal/api"
	"mediabutler/internal/batch"
	"mediabutler/internal/classifier"
	"mediabutler/internal/config"
	"mediabutler/internal/events"
	"mediabutler/internal/files"
	"mediabutler/internal/fsx"
	"mediabutler/internal/logging"
	"mediabutler/internal/mover"
	"mediabutler/internal/organizer"
	"mediabutler/internal/paths"
	"mediabutler/internal/queue"
	"mediabutler/internal/recovery"
	"mediabutler/internal/rollback"
	"mediabutler/internal/store"
	"mediabutler/internal/watcher"
)

// Daemon composes the pipeline: store, watcher, queue workers, batch
// orchestrator, and the HTTP API, guarded by a lock file so only one
// instance runs per data directory.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	lock      *flock.Flock
	store     *store.Store
	fs        fsx.FileSystem
	hub       *events.Hub
	files     *files.Service
	organizer *organizer.Organizer
	rollback  *rollback.Service
	batches   *batch.Orchestrator
	library   *classifier.Library
	queue     *queue.Queue
	pool      *queue.Pool
	watcher   *watcher.Watcher
	apiServer *api.Server

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// Status is a point-in-time snapshot for control-plane callers.
type Status struct {
	Running       bool
	PID           int
	DatabasePath  string
	LockFilePath  string
	SocketPath    string
	APIBind       string
	FilesByStatus map[string]int
	Queue         queue.Stats
}

// New prepares a daemon. Nothing is opened until Start.
func New(cfg *config.Config, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Daemon{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "daemon"),
		fs:     fsx.OS{},
	}
}

// Start acquires the instance lock, opens the store, reclaims files left
// mid-flight by a crash, and brings up every subsystem.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock := flock.New(d.cfg.LockFilePath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return recovery.Wrap(recovery.ErrConflict, "daemon", "start",
			fmt.Sprintf("another instance holds %s", d.cfg.LockFilePath()), nil)
	}
	d.lock = lock

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	fail := func(err error) error {
		cancel()
		_ = lock.Unlock()
		if d.store != nil {
			_ = d.store.Close()
			d.store = nil
		}
		return err
	}

	d.hub = events.NewHub(d.logger, 256)
	d.hub.Register(events.NewNtfySink(d.cfg))
	d.hub.Start(runCtx)

	st, err := store.Open(d.cfg, store.WithEventSink(d.hub))
	if err != nil {
		return fail(err)
	}
	d.store = st

	// Files stranded in processing or moving by a previous crash go back
	// to their last stable state before any new work starts.
	reclaimed, err := st.ResetStuck(runCtx)
	if err != nil {
		return fail(err)
	}
	if reclaimed > 0 {
		d.logger.Info("reclaimed stuck files", slog.Int64("count", reclaimed))
	}

	builder := paths.NewBuilder(d.fs, d.cfg.Paths.LibraryRoot)
	d.files = files.NewService(d.cfg, st, d.fs, builder, d.logger)
	d.rollback = rollback.NewService(st, d.fs, d.logger)
	errorClassifier := recovery.NewClassifier(d.cfg.Processing.RetryDelaysMS, d.cfg.Processing.MaxRetry)
	fileMover := mover.New(d.fs, builder, d.logger)
	d.organizer = organizer.New(d.files, fileMover, builder, d.rollback, errorClassifier, d.fs, d.hub, d.logger)
	d.batches = batch.NewOrchestrator(d.files, d.organizer, builder, d.fs, d.hub, d.logger,
		d.cfg.Processing.MaxBatchSize, d.cfg.Processing.MaxBatchConcurrency)

	titles, err := d.knownTitles(runCtx)
	if err != nil {
		return fail(err)
	}
	d.library = classifier.NewLibrary(titles, d.cfg.Classification.MaxAlternatives)
	timeout := time.Duration(d.cfg.Classification.MaxClassificationMS) * time.Millisecond
	bounded := classifier.WithTimeout(d.library, timeout)

	d.queue = queue.NewQueue(d.cfg.Processing.QueueCapacity)
	dispatcher := queue.NewDispatcher(d.files, bounded, d.organizer, d.batches, d.hub, d.logger)
	shutdown := time.Duration(d.cfg.Processing.ShutdownTimeoutSeconds) * time.Second
	d.pool = queue.NewPool(d.queue, dispatcher, errorClassifier, d.cfg.Processing.WorkerCount, shutdown, d.logger)
	d.pool.Start(runCtx)

	w, err := watcher.New(d.cfg, d.files, d.queue, d.fs, d.hub, d.logger)
	if err != nil {
		return fail(err)
	}
	d.watcher = w
	if err := w.Start(runCtx); err != nil {
		return fail(err)
	}

	if bind := strings.TrimSpace(d.cfg.Paths.APIBind); bind != "" {
		d.apiServer = api.NewServer(bind, d.files, d.organizer, d.batches, d.queue, d.pool, d.logger)
		if err := d.apiServer.Start(runCtx); err != nil {
			return fail(err)
		}
	}

	d.mu.Lock()
	d.running = true
	d.cancel = cancel
	d.mu.Unlock()

	d.logger.Info("daemon started",
		slog.String("database", d.cfg.DatabasePath()),
		slog.Int("workers", d.cfg.Processing.WorkerCount))
	return nil
}

// Stop tears the daemon down in reverse order: no new discoveries, drain
// the queue, close the API, then release the store and lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel := d.cancel
	d.mu.Unlock()

	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.pool != nil {
		d.pool.Stop()
	}
	if d.apiServer != nil {
		d.apiServer.Stop()
	}
	cancel()
	if d.hub != nil {
		d.hub.Close()
	}
	if d.store != nil {
		_ = d.store.Close()
		d.store = nil
	}
	if d.lock != nil {
		_ = d.lock.Unlock()
		d.lock = nil
	}
	d.logger.Info("daemon stopped")
}

// Running reports whether Start has completed and Stop has not.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Status snapshots daemon state for the control plane.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.Running(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.cfg.LockFilePath(),
		SocketPath:   d.cfg.Paths.SocketPath,
		APIBind:      d.cfg.Paths.APIBind,
	}
	if d.pool != nil {
		status.Queue = d.pool.Stats()
	}
	if d.store != nil {
		if stats, err := d.store.Stats(ctx); err == nil {
			status.FilesByStatus = make(map[string]int, len(stats))
			for s, count := range stats {
				status.FilesByStatus[string(s)] = count
			}
		}
	}
	return status
}

// Files exposes the file service for control-plane callers.
func (d *Daemon) Files() *files.Service { return d.files }

// Store exposes the store for read paths.
func (d *Daemon) Store() *store.Store { return d.store }

// Batches exposes the batch orchestrator.
func (d *Daemon) Batches() *batch.Orchestrator { return d.batches }

// Organizer returns the move pipeline, nil until Start.
func (d *Daemon) Organizer() *organizer.Organizer { return d.organizer }

// Rollback exposes the rollback service.
func (d *Daemon) Rollback() *rollback.Service { return d.rollback }

// Enqueue hands a job to the worker pool.
func (d *Daemon) Enqueue(job *queue.Job) error {
	if d.queue == nil {
		return recovery.Wrap(recovery.ErrUnavailable, "daemon", "enqueue", "daemon is not running", nil)
	}
	return d.queue.Enqueue(job)
}

// ReloadLibrary rebuilds the classifier corpus from the library on disk
// and the categories already recorded in the database.
func (d *Daemon) ReloadLibrary(ctx context.Context) (int, error) {
	titles, err := d.knownTitles(ctx)
	if err != nil {
		return 0, err
	}
	d.library.Reload(titles)
	d.logger.Info("classifier library reloaded", slog.Int("titles", len(titles)))
	return len(titles), nil
}

// knownTitles merges category directories under the library root with the
// distinct categories recorded in the store.
func (d *Daemon) knownTitles(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{})

	entries, err := d.fs.ReadDir(d.cfg.Paths.LibraryRoot)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
				set[strings.ToUpper(entry.Name())] = struct{}{}
			}
		}
	}

	if d.store != nil {
		categories, err := d.store.DistinctCategories(ctx)
		if err != nil {
			return nil, err
		}
		for _, category := range categories {
			if category != "" && category != classifier.Unknown {
				set[strings.ToUpper(category)] = struct{}{}
			}
		}
	}

	titles := make([]string, 0, len(set))
	for title := range set {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles, nil
}

// CleanupRollbackPoints removes rollback points older than the retention
// window and returns how many were dropped.
func (d *Daemon) CleanupRollbackPoints(ctx context.Context, olderThan time.Duration) (int64, error) {
	if d.rollback == nil {
		return 0, recovery.Wrap(recovery.ErrUnavailable, "daemon", "cleanup", "daemon is not running", nil)
	}
	return d.rollback.Cleanup(ctx, time.Now().UTC().Add(-olderThan))
}

// LogPath reports the daemon log file location, empty when file logging is
// disabled.
func (d *Daemon) LogPath() string {
	if strings.TrimSpace(d.cfg.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(d.cfg.Paths.LogDir, "mediabutler.log")
}
