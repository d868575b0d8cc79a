package fsx

import (
	"bytes"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"
)

// MemFS is an in-memory FileSystem used by tests. Paths are treated as
// slash-separated absolute paths; directories spring into existence with
// MkdirAll or implicitly when files are written.
type MemFS struct {
	mu    sync.Mutex
	files map[string]*memFile
	dirs  map[string]bool

	free  uint64
	syncs int

	// RenameErr, when set, is returned by every Rename call. Tests use it to
	// force the cross-volume copy fallback (syscall.EXDEV) or transient
	// failures.
	RenameErr error
}

type memFile struct {
	data    []byte
	modTime time.Time
}

// NewMemFS creates an empty in-memory file system with effectively unlimited
// free space.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string]*memFile),
		dirs:  map[string]bool{"/": true},
		free:  1 << 62,
	}
}

// SetFreeSpace fixes the value reported by FreeSpace.
func (m *MemFS) SetFreeSpace(bytes uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.free = bytes
}

// WriteFile stores content at path, creating parent directories.
func (m *MemFS) WriteFile(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureDirLocked(filepath.Dir(path))
	m.files[filepath.Clean(path)] = &memFile{data: append([]byte(nil), data...), modTime: time.Now()}
}

// ReadFile returns the content stored at path.
func (m *MemFS) ReadFile(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), file.data...), true
}

// Exists reports whether a file exists at path.
func (m *MemFS) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[filepath.Clean(path)]
	return ok
}

func (m *MemFS) ensureDirLocked(dir string) {
	dir = filepath.Clean(dir)
	for dir != "/" && dir != "." && !m.dirs[dir] {
		m.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cleaned := filepath.Clean(path)
	if file, ok := m.files[cleaned]; ok {
		return memInfo{name: filepath.Base(cleaned), size: int64(len(file.data)), modTime: file.modTime}, nil
	}
	if m.dirs[cleaned] {
		return memInfo{name: filepath.Base(cleaned), dir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

func (m *MemFS) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), file.data...))), nil
}

func (m *MemFS) Create(path string) (io.WriteCloser, error) {
	return &memWriter{fs: m, path: filepath.Clean(path)}, nil
}

func (m *MemFS) ReadDir(path string) ([]fs.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cleaned := filepath.Clean(path)
	if !m.dirs[cleaned] {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: fs.ErrNotExist}
	}
	var entries []fs.DirEntry
	seen := map[string]bool{}
	for name, file := range m.files {
		if filepath.Dir(name) == cleaned {
			entries = append(entries, memEntry{info: memInfo{name: filepath.Base(name), size: int64(len(file.data)), modTime: file.modTime}})
		}
	}
	for dir := range m.dirs {
		if dir != cleaned && filepath.Dir(dir) == cleaned && !seen[dir] {
			seen[dir] = true
			entries = append(entries, memEntry{info: memInfo{name: filepath.Base(dir), dir: true}})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (m *MemFS) MkdirAll(path string, _ fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureDirLocked(path)
	return nil
}

func (m *MemFS) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RenameErr != nil {
		return m.RenameErr
	}
	oldClean, newClean := filepath.Clean(oldPath), filepath.Clean(newPath)
	file, ok := m.files[oldClean]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldPath, Err: fs.ErrNotExist}
	}
	if !m.dirs[filepath.Dir(newClean)] {
		return &fs.PathError{Op: "rename", Path: newPath, Err: fs.ErrNotExist}
	}
	m.files[newClean] = file
	delete(m.files, oldClean)
	return nil
}

func (m *MemFS) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cleaned := filepath.Clean(path)
	if _, ok := m.files[cleaned]; ok {
		delete(m.files, cleaned)
		return nil
	}
	if m.dirs[cleaned] {
		delete(m.dirs, cleaned)
		return nil
	}
	return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
}

func (m *MemFS) FreeSpace(string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.free, nil
}

// SyncCount reports how many times a writer flushed via Sync.
func (m *MemFS) SyncCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncs
}

// CrossDeviceRename configures Rename to fail with EXDEV, as the kernel does
// for moves across volumes.
func (m *MemFS) CrossDeviceRename() {
	m.RenameErr = &fs.PathError{Op: "rename", Err: syscall.EXDEV}
}

type memWriter struct {
	fs   *MemFS
	path string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

// Sync commits the buffered data, mirroring fsync on a real file, and counts
// the call so tests can assert writers were flushed before sources vanish.
func (w *memWriter) Sync() error {
	w.commit()
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.syncs++
	return nil
}

func (w *memWriter) Close() error {
	w.commit()
	return nil
}

func (w *memWriter) commit() {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.ensureDirLocked(filepath.Dir(w.path))
	w.fs.files[w.path] = &memFile{data: append([]byte(nil), w.buf.Bytes()...), modTime: time.Now()}
}

type memInfo struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
}

func (i memInfo) Name() string { return i.name }

func (i memInfo) Size() int64 { return i.size }

func (i memInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}

func (i memInfo) ModTime() time.Time { return i.modTime }

func (i memInfo) IsDir() bool { return i.dir }

func (i memInfo) Sys() any { return nil }

type memEntry struct {
	info memInfo
}

func (e memEntry) Name() string { return e.info.name }

func (e memEntry) IsDir() bool { return e.info.dir }

func (e memEntry) Type() fs.FileMode { return e.info.Mode().Type() }

func (e memEntry) Info() (fs.FileInfo, error) { return e.info, nil }

var _ FileSystem = (*MemFS)(nil)
