package mover_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mediabutler/internal/fsx"
	"mediabutler/internal/mover"
	"mediabutler/internal/paths"
	"mediabutler/internal/recovery"
)

func newMover(fs *fsx.MemFS) *mover.Mover {
	builder := paths.NewBuilder(fs, "/library")
	return mover.New(fs, builder, nil)
}

func TestMoveRenamesWithinVolume(t *testing.T) {
	fs := fsx.NewMemFS()
	fs.WriteFile("/downloads/ep.mkv", []byte("episode content"))
	m := newMover(fs)

	receipt, err := m.Move(context.Background(), "/downloads/ep.mkv", "/library/FRIENDS/ep.mkv")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if receipt.TargetPath != "/library/FRIENDS/ep.mkv" {
		t.Fatalf("target = %q", receipt.TargetPath)
	}
	if receipt.FileSizeBytes != int64(len("episode content")) {
		t.Fatalf("size = %d", receipt.FileSizeBytes)
	}
	if fs.Exists("/downloads/ep.mkv") {
		t.Fatal("source still exists after move")
	}
	if !fs.Exists("/library/FRIENDS/ep.mkv") {
		t.Fatal("target missing after move")
	}
}

func TestMoveCrossVolumeCopiesAndDeletes(t *testing.T) {
	fs := fsx.NewMemFS()
	fs.WriteFile("/downloads/ep.mkv", []byte("cross volume payload"))
	fs.CrossDeviceRename()
	m := newMover(fs)

	receipt, err := m.Move(context.Background(), "/downloads/ep.mkv", "/library/FRIENDS/ep.mkv")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	data, ok := fs.ReadFile(receipt.TargetPath)
	if !ok || string(data) != "cross volume payload" {
		t.Fatalf("target content = %q, ok=%v", data, ok)
	}
	if fs.Exists("/downloads/ep.mkv") {
		t.Fatal("source survived cross-volume move")
	}
	if fs.SyncCount() == 0 {
		t.Fatal("copy was not flushed to stable storage before the source was deleted")
	}
}

func TestMoveResolvesConflicts(t *testing.T) {
	fs := fsx.NewMemFS()
	fs.WriteFile("/downloads/ep.mkv", []byte("second file"))
	fs.WriteFile("/library/FRIENDS/ep.mkv", []byte("already here"))
	m := newMover(fs)

	receipt, err := m.Move(context.Background(), "/downloads/ep.mkv", "/library/FRIENDS/ep.mkv")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if receipt.TargetPath != "/library/FRIENDS/ep (1).mkv" {
		t.Fatalf("target = %q", receipt.TargetPath)
	}
	original, _ := fs.ReadFile("/library/FRIENDS/ep.mkv")
	if string(original) != "already here" {
		t.Fatal("existing file was overwritten")
	}
}

func TestMoveCarriesSiblingsUnderNewBasename(t *testing.T) {
	fs := fsx.NewMemFS()
	fs.WriteFile("/downloads/ep.mkv", []byte("video"))
	fs.WriteFile("/downloads/ep.srt", []byte("subtitles"))
	fs.WriteFile("/downloads/ep.nfo", []byte("metadata"))
	fs.WriteFile("/downloads/other.srt", []byte("unrelated"))
	fs.WriteFile("/library/FRIENDS/ep.mkv", []byte("occupied"))
	m := newMover(fs)

	receipt, err := m.Move(context.Background(), "/downloads/ep.mkv", "/library/FRIENDS/ep.mkv")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if receipt.TargetPath != "/library/FRIENDS/ep (1).mkv" {
		t.Fatalf("target = %q", receipt.TargetPath)
	}
	if len(receipt.SiblingsMoved) != 2 {
		t.Fatalf("siblings moved = %v", receipt.SiblingsMoved)
	}
	if !fs.Exists("/library/FRIENDS/ep (1).srt") || !fs.Exists("/library/FRIENDS/ep (1).nfo") {
		t.Fatal("siblings did not follow the conflict-resolved basename")
	}
	if !fs.Exists("/downloads/other.srt") {
		t.Fatal("unrelated file was moved")
	}
}

// failSrtRenames fails every rename whose source ends in .srt so sibling
// failures can be observed without failing the primary move.
type failSrtRenames struct {
	*fsx.MemFS
}

func (f failSrtRenames) Rename(oldPath, newPath string) error {
	if strings.HasSuffix(oldPath, ".srt") {
		return errors.New("subtitle file in use")
	}
	return f.MemFS.Rename(oldPath, newPath)
}

func TestMoveSiblingFailureIsWarning(t *testing.T) {
	mem := fsx.NewMemFS()
	mem.WriteFile("/downloads/ep.mkv", []byte("video"))
	mem.WriteFile("/downloads/ep.srt", []byte("subtitles"))
	mem.WriteFile("/downloads/ep.nfo", []byte("metadata"))
	fs := failSrtRenames{mem}
	builder := paths.NewBuilder(fs, "/library")
	m := mover.New(fs, builder, nil)

	receipt, err := m.Move(context.Background(), "/downloads/ep.mkv", "/library/SHOW/ep.mkv")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if len(receipt.SiblingsFailed) != 1 || receipt.SiblingsFailed[0].Path != "/downloads/ep.srt" {
		t.Fatalf("sibling failures = %v", receipt.SiblingsFailed)
	}
	if len(receipt.SiblingsMoved) != 1 {
		t.Fatalf("siblings moved = %v", receipt.SiblingsMoved)
	}
	if !mem.Exists("/library/SHOW/ep.mkv") {
		t.Fatal("primary move should survive sibling failure")
	}
}

func TestMoveInsufficientSpace(t *testing.T) {
	fs := fsx.NewMemFS()
	fs.WriteFile("/downloads/ep.mkv", make([]byte, 1024))
	fs.SetFreeSpace(512)
	m := newMover(fs)

	_, err := m.Move(context.Background(), "/downloads/ep.mkv", "/library/SHOW/ep.mkv")
	if !errors.Is(err, recovery.ErrSpace) {
		t.Fatalf("expected space error, got %v", err)
	}
	if fs.Exists("/library/SHOW/ep.mkv") {
		t.Fatal("partial file at target after space failure")
	}
}

func TestMoveMissingSource(t *testing.T) {
	m := newMover(fsx.NewMemFS())

	_, err := m.Move(context.Background(), "/downloads/ghost.mkv", "/library/SHOW/ghost.mkv")
	if !errors.Is(err, recovery.ErrPath) {
		t.Fatalf("expected path error, got %v", err)
	}
}

func TestMoveHonorsCancellation(t *testing.T) {
	fs := fsx.NewMemFS()
	fs.WriteFile("/downloads/ep.mkv", []byte("video"))
	m := newMover(fs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Move(ctx, "/downloads/ep.mkv", "/library/SHOW/ep.mkv")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if !fs.Exists("/downloads/ep.mkv") {
		t.Fatal("source mutated despite cancellation")
	}
}

func TestSiblingsDiscovery(t *testing.T) {
	fs := fsx.NewMemFS()
	fs.WriteFile("/downloads/ep.mkv", []byte("video"))
	fs.WriteFile("/downloads/ep.srt", []byte("x"))
	fs.WriteFile("/downloads/ep.jpg", []byte("x"))
	fs.WriteFile("/downloads/ep.txt", []byte("not a sibling extension"))
	fs.WriteFile("/downloads/ep2.srt", []byte("different basename"))
	m := newMover(fs)

	siblings := m.Siblings("/downloads/ep.mkv")
	if len(siblings) != 2 {
		t.Fatalf("siblings = %v", siblings)
	}
}
