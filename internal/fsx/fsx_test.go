package fsx

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestHashFileStreams(t *testing.T) {
	mem := NewMemFS()
	content := []byte("the wire s01e01")
	mem.WriteFile("/watch/episode.mkv", content)

	got, err := HashFile(mem, "/watch/episode.mkv")
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	sum := sha256.Sum256(content)
	if want := hex.EncodeToString(sum[:]); got != want {
		t.Fatalf("hash = %s, want %s", got, want)
	}

	if _, err := HashFile(mem, "/watch/missing.mkv"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestCopyVerified(t *testing.T) {
	mem := NewMemFS()
	content := []byte("payload bytes")
	mem.WriteFile("/src/file.mkv", content)
	mem.MkdirAll("/dst", 0o755)

	if err := CopyVerified(mem, "/src/file.mkv", "/dst/file.mkv"); err != nil {
		t.Fatalf("CopyVerified: %v", err)
	}
	copied, ok := mem.ReadFile("/dst/file.mkv")
	if !ok {
		t.Fatal("destination file missing after copy")
	}
	if string(copied) != string(content) {
		t.Fatalf("copied content %q, want %q", copied, content)
	}
	if _, ok := mem.ReadFile("/src/file.mkv"); !ok {
		t.Fatal("source should survive a copy")
	}
	if mem.SyncCount() != 1 {
		t.Fatalf("sync count = %d, want 1", mem.SyncCount())
	}
}

func TestCopyVerifiedMissingSource(t *testing.T) {
	mem := NewMemFS()
	if err := CopyVerified(mem, "/src/missing.mkv", "/dst/file.mkv"); err == nil {
		t.Fatal("expected error for missing source")
	}
	if mem.Exists("/dst/file.mkv") {
		t.Fatal("no destination should be left behind")
	}
}

func TestMemFSRenameAndCrossDevice(t *testing.T) {
	mem := NewMemFS()
	mem.WriteFile("/a/file.mkv", []byte("x"))
	mem.MkdirAll("/b", 0o755)

	if err := mem.Rename("/a/file.mkv", "/b/file.mkv"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if mem.Exists("/a/file.mkv") || !mem.Exists("/b/file.mkv") {
		t.Fatal("rename left the tree in the wrong state")
	}

	mem.CrossDeviceRename()
	mem.WriteFile("/a/other.mkv", []byte("y"))
	err := mem.Rename("/a/other.mkv", "/b/other.mkv")
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected PathError, got %v", err)
	}
}

func TestMemFSReadDirSorted(t *testing.T) {
	mem := NewMemFS()
	mem.WriteFile("/watch/b.mkv", []byte("b"))
	mem.WriteFile("/watch/a.mkv", []byte("a"))
	mem.MkdirAll("/watch/nested", 0o755)

	entries, err := mem.ReadDir("/watch")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"a.mkv", "b.mkv", "nested"}
	if len(names) != len(want) {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("entries = %v, want %v", names, want)
		}
	}
	if !entries[2].IsDir() {
		t.Fatal("nested should be reported as a directory")
	}
}

func TestOSFreeSpaceFallsBackToAncestor(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does", "not", "exist")

	free, err := OS{}.FreeSpace(missing)
	if err != nil {
		t.Fatalf("FreeSpace: %v", err)
	}
	if free == 0 {
		t.Fatal("expected nonzero free space on the temp volume")
	}
}

func TestOSRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "file.bin")

	fsys := OS{}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	out, err := fsys.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := out.Write([]byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := fsys.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 4 {
		t.Fatalf("size = %d, want 4", info.Size())
	}

	moved := filepath.Join(dir, "moved.bin")
	if err := fsys.Rename(path, moved); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	data, err := os.ReadFile(moved)
	if err != nil || string(data) != "data" {
		t.Fatalf("read after rename: %q, %v", data, err)
	}
}
