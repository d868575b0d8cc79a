package fsx

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// FileSystem is the narrow file-system surface the pipeline depends on.
// Writers returned by Create may implement Syncer; CopyVerified flushes
// through it before reporting success.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	MkdirAll(path string, perm fs.FileMode) error
	Rename(oldPath, newPath string) error
	Remove(path string) error
	FreeSpace(path string) (uint64, error)
}

// Syncer is implemented by writers that can flush buffered data to stable
// storage. os.File satisfies it.
type Syncer interface {
	Sync() error
}

// OS implements FileSystem against the real file system.
type OS struct{}

func (OS) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

func (OS) Open(path string) (io.ReadCloser, error) { return os.Open(path) }

func (OS) Create(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
}

func (OS) ReadDir(path string) ([]fs.DirEntry, error) { return os.ReadDir(path) }

func (OS) MkdirAll(path string, perm fs.FileMode) error { return os.MkdirAll(path, perm) }

func (OS) Rename(oldPath, newPath string) error { return os.Rename(oldPath, newPath) }

func (OS) Remove(path string) error { return os.Remove(path) }

// FreeSpace reports the bytes available to unprivileged users on the volume
// holding path. The nearest existing ancestor is consulted when path itself
// does not exist yet.
func (OS) FreeSpace(path string) (uint64, error) {
	probe := path
	for {
		var stat unix.Statfs_t
		err := unix.Statfs(probe, &stat)
		if err == nil {
			return stat.Bavail * uint64(stat.Bsize), nil
		}
		if !os.IsNotExist(err) {
			return 0, fmt.Errorf("statfs %s: %w", probe, err)
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			return 0, fmt.Errorf("statfs %s: %w", path, err)
		}
		probe = parent
	}
}

// HashFile computes the SHA-256 of a file's content on a streaming read and
// returns it as 64 lowercase hex characters. Files are never loaded whole.
func HashFile(fsys FileSystem, path string) (string, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	buf := make([]byte, 64*1024)
	if _, err := io.CopyBuffer(hasher, file, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// CopyVerified streams src to dst with SHA-256 + size integrity verification.
// Removes dst on mismatch so a torn copy never survives.
func CopyVerified(fsys FileSystem, src, dst string) error {
	srcInfo, err := fsys.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fsys.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		_ = out.Close()
		_ = fsys.Remove(dst)
		return err
	}
	// The copy must be on stable storage before Close returns: the caller
	// deletes the source on success, and a power loss in between would
	// otherwise lose both copies.
	if syncer, ok := out.(Syncer); ok {
		if err := syncer.Sync(); err != nil {
			_ = out.Close()
			_ = fsys.Remove(dst)
			return fmt.Errorf("sync %s: %w", dst, err)
		}
	}
	if err := out.Close(); err != nil {
		_ = fsys.Remove(dst)
		return err
	}

	if written != srcSize {
		_ = fsys.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = fsys.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}
