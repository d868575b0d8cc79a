package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mediabutler/internal/config"
	"mediabutler/internal/events"
	"mediabutler/internal/files"
	"mediabutler/internal/fsx"
	"mediabutler/internal/logging"
	"mediabutler/internal/queue"
	"mediabutler/internal/recovery"
)

// Watcher discovers candidate files in the watch folders. Two sources feed
// it: filesystem notifications and a periodic full scan. Both funnel into a
// shared debounce map so a file still being written is only registered once
// it has settled.
type Watcher struct {
	folders   []string
	files     *files.Service
	queue     *queue.Queue
	fs        fsx.FileSystem
	sink      events.Sink
	logger    *slog.Logger
	notify    *fsnotify.Watcher
	debounce  time.Duration
	interval  time.Duration
	minSize   int64
	exts      map[string]struct{}
	excludes  []*regexp.Regexp
	scanSlots chan struct{}
	useEvents bool

	mu      sync.Mutex
	pending map[string]*time.Timer
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Watcher from the discovery configuration. Exclude patterns
// are compiled up front so a bad pattern fails configuration, not a scan.
func New(cfg *config.Config, fileService *files.Service, jobQueue *queue.Queue, fsys fsx.FileSystem, sink events.Sink, logger *slog.Logger) (*Watcher, error) {
	if sink == nil {
		sink = events.NopSink{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	exts := make(map[string]struct{}, len(cfg.Discovery.FileExtensions))
	for _, ext := range cfg.Discovery.FileExtensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[strings.ToLower(ext)] = struct{}{}
	}

	excludes := make([]*regexp.Regexp, 0, len(cfg.Discovery.ExcludePatterns))
	for _, pattern := range cfg.Discovery.ExcludePatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, recovery.Wrap(recovery.ErrValidation, "watcher", "configure",
				fmt.Sprintf("invalid exclude pattern %q", pattern), err)
		}
		excludes = append(excludes, compiled)
	}

	slots := cfg.Discovery.MaxConcurrentScans
	if slots < 1 {
		slots = 1
	}

	return &Watcher{
		folders:   cfg.Paths.WatchFolders,
		files:     fileService,
		queue:     jobQueue,
		fs:        fsys,
		sink:      sink,
		logger:    logging.NewComponentLogger(logger, "watcher"),
		debounce:  time.Duration(cfg.Discovery.DebounceSeconds) * time.Second,
		interval:  time.Duration(cfg.Discovery.ScanIntervalMinutes) * time.Minute,
		minSize:   int64(cfg.Discovery.MinFileSizeMB) * 1024 * 1024,
		exts:      exts,
		excludes:  excludes,
		scanSlots: make(chan struct{}, slots),
		useEvents: cfg.Discovery.EnableEventWatcher,
		pending:   make(map[string]*time.Timer),
	}, nil
}

// Start launches the notification loop and the periodic scan, plus one
// immediate scan to pick up files that arrived while the daemon was down.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.running = true
	w.mu.Unlock()

	if w.useEvents {
		notify, err := fsnotify.NewWatcher()
		if err != nil {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			w.cancel()
			return fmt.Errorf("create fsnotify watcher: %w", err)
		}
		w.notify = notify
		for _, folder := range w.folders {
			if err := notify.Add(folder); err != nil {
				w.logger.Warn("cannot watch folder",
					slog.String("folder", folder),
					slog.String("error", err.Error()))
			}
		}
		w.wg.Add(1)
		go w.eventLoop(ctx)
	}

	w.wg.Add(1)
	go w.scanLoop(ctx)
	return nil
}

// Stop shuts down both loops and drops pending debounce timers.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	cancel()
	if w.notify != nil {
		_ = w.notify.Close()
	}
	w.wg.Wait()
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.notify.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if info, err := w.fs.Stat(ev.Name); err == nil && info.IsDir() {
				// New subdirectories are watched as they appear.
				if ev.Op&fsnotify.Create != 0 {
					_ = w.notify.Add(ev.Name)
				}
				continue
			}
			if w.accept(ev.Name) {
				w.schedule(ctx, ev.Name)
			}
		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) scanLoop(ctx context.Context) {
	defer w.wg.Done()
	w.ScanOnce(ctx)

	interval := w.interval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ScanOnce(ctx)
		}
	}
}

// ScanOnce walks every watch folder and schedules accepted files. Folder
// walks run under the concurrent-scan bound.
func (w *Watcher) ScanOnce(ctx context.Context) {
	_ = w.sink.Publish(ctx, events.New(events.ScanStarted, map[string]any{
		"folders": len(w.folders),
	}))
	start := time.Now()

	var wg sync.WaitGroup
	var found int64
	var foundMu sync.Mutex
	for _, folder := range w.folders {
		select {
		case w.scanSlots <- struct{}{}:
		case <-ctx.Done():
			return
		}
		wg.Add(1)
		go func(folder string) {
			defer wg.Done()
			defer func() { <-w.scanSlots }()
			count := w.scanFolder(ctx, folder)
			foundMu.Lock()
			found += count
			foundMu.Unlock()
		}(folder)
	}
	wg.Wait()

	_ = w.sink.Publish(ctx, events.New(events.ScanCompleted, map[string]any{
		"found":       found,
		"duration_ms": time.Since(start).Milliseconds(),
	}))
}

func (w *Watcher) scanFolder(ctx context.Context, folder string) int64 {
	var found int64
	var walk func(dir string)
	walk = func(dir string) {
		if ctx.Err() != nil {
			return
		}
		entries, err := w.fs.ReadDir(dir)
		if err != nil {
			w.logger.Warn("scan folder unreadable",
				slog.String("folder", dir),
				slog.String("error", err.Error()))
			return
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				walk(path)
				continue
			}
			if !w.accept(path) {
				continue
			}
			found++
			_ = w.sink.Publish(ctx, events.New(events.ScanFound, map[string]any{
				"path": path,
			}))
			w.schedule(ctx, path)
		}
	}
	walk(folder)
	return found
}

// accept applies the extension, size, and exclude filters.
func (w *Watcher) accept(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if len(w.exts) > 0 {
		ext := strings.ToLower(filepath.Ext(base))
		if _, ok := w.exts[ext]; !ok {
			return false
		}
	}
	for _, pattern := range w.excludes {
		if pattern.MatchString(base) {
			return false
		}
	}
	if w.minSize > 0 {
		info, err := w.fs.Stat(path)
		if err != nil || info.Size() < w.minSize {
			return false
		}
	}
	return true
}

// schedule arms or resets the debounce timer for path. Repeated writes keep
// pushing the timer back until the file settles.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.register(ctx, path)
	})
}

// register hashes and tracks a settled file, then queues classification.
func (w *Watcher) register(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if !w.accept(path) {
		return
	}
	file, err := w.files.Register(ctx, path)
	if err != nil {
		w.logger.Warn("register failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	if err := w.queue.Enqueue(queue.NewJob(queue.KindClassify, file.Hash)); err != nil {
		w.logger.Warn("classify enqueue rejected",
			slog.String(logging.FieldFileHash, file.Hash),
			slog.String("error", err.Error()))
	}
}
