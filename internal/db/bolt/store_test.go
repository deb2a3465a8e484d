package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/tickerdex/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "blobs.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewStore_RequiresPath(t *testing.T) {
	if _, err := NewStore(""); err == nil {
		t.Fatal("expected error")
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.WaitForReady(context.Background(), time.Second); err != nil {
		t.Fatalf("WaitForReady: %v", err)
	}
}

func TestBlob_PutGetOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutBlob(ctx, "financial-data", "MSFT_index.bin", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := s.PutBlob(ctx, "financial-data", "MSFT_index.bin", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	data, err := s.GetBlob(ctx, "financial-data", "MSFT_index.bin")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v2" {
		t.Errorf("GetBlob = %q, want v2", data)
	}
}

func TestBlob_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetBlob(ctx, "missing-container", "x"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("missing container: expected ErrKeyNotFound, got %v", err)
	}
	if err := s.PutBlob(ctx, "c", "a", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetBlob(ctx, "c", "b"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("missing blob: expected ErrKeyNotFound, got %v", err)
	}
}

func TestBlob_ContainersAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutBlob(ctx, "a", "AAPL_index.bin", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := s.PutBlob(ctx, "b", "MSFT_index.bin", []byte("y")); err != nil {
		t.Fatal(err)
	}
	names, err := s.ListBlobs(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "AAPL_index.bin" {
		t.Errorf("ListBlobs(a) = %v", names)
	}
	names, err = s.ListBlobs(ctx, "empty")
	if err != nil || len(names) != 0 {
		t.Errorf("ListBlobs(empty) = %v, %v", names, err)
	}
}

func TestKV_SetGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	data, err := s.Get(ctx, "k")
	if err != nil || string(data) != "v" {
		t.Errorf("Get = %q, %v", data, err)
	}
}

func TestKV_TTLExpires(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	if err := s.SetWithTTL(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("before expiry: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("after expiry: expected ErrKeyNotFound, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.PutBlob(ctx, "c", "n", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
