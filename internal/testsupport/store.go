package testsupport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"mediabutler/internal/config"
	"mediabutler/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...store.Option) *store.Store {
	t.Helper()

	st, err := store.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// FakeHash returns a deterministic 64-char hex hash derived from the seed.
// Handy when a test needs a valid-looking content hash without hashing bytes.
func FakeHash(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// NewTracked inserts a tracked file in status NEW and returns it reloaded.
func NewTracked(t testing.TB, st *store.Store, fileName string) *store.TrackedFile {
	t.Helper()

	ctx := context.Background()
	hash := FakeHash(fileName)
	file := &store.TrackedFile{
		Hash:         hash,
		OriginalPath: fmt.Sprintf("/downloads/%s", fileName),
		FileName:     fileName,
		FileSize:     700 * 1024 * 1024,
		Status:       store.StatusNew,
	}
	err := st.WithScope(ctx, func(sc *store.Scope) error {
		return sc.InsertTracked(ctx, file)
	})
	if err != nil {
		t.Fatalf("insert tracked file: %v", err)
	}
	loaded, err := st.GetTracked(ctx, hash)
	if err != nil {
		t.Fatalf("reload tracked file: %v", err)
	}
	if loaded == nil {
		t.Fatalf("tracked file %s missing after insert", hash)
	}
	return loaded
}
