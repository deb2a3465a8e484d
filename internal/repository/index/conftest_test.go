package index

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/db"
	"github.com/kailas-cloud/tickerdex/internal/repository/localfs"
)

const testContainer = "financial-data"

var _ localStorage = (*localfs.Storage)(nil)

// memBlobStore is an in-memory blobStore with optional per-call overrides.
type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	putFn  func(ctx context.Context, container, name string, data []byte) error
	getFn  func(ctx context.Context, container, name string) ([]byte, error)
	listFn func(ctx context.Context, container string) ([]string, error)
	puts   []string
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (m *memBlobStore) PutBlob(ctx context.Context, container, name string, data []byte) error {
	m.mu.Lock()
	m.puts = append(m.puts, name)
	m.mu.Unlock()
	if m.putFn != nil {
		if err := m.putFn(ctx, container, name, data); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[container+"/"+name] = append([]byte{}, data...)
	return nil
}

func (m *memBlobStore) GetBlob(ctx context.Context, container, name string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, container, name)
	}
	return m.stored(container, name)
}

func (m *memBlobStore) stored(container, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[container+"/"+name]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte{}, data...), nil
}

func (m *memBlobStore) ListBlobs(ctx context.Context, container string) ([]string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, container)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for k := range m.blobs {
		if name, ok := strings.CutPrefix(k, container+"/"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// failingStorage wraps local storage and fails writes of selected names.
type failingStorage struct {
	localStorage
	failWrite func(name string) bool
}

func (f *failingStorage) Write(name string, data []byte) error {
	if f.failWrite != nil && f.failWrite(name) {
		return errors.New("disk full")
	}
	return f.localStorage.Write(name, data)
}

func newTestLocal() *localfs.Storage {
	return localfs.New(afero.NewMemMapFs(), "/index")
}

func newTestStore(t *testing.T, remote blobStore) *Store {
	t.Helper()
	return newTestStoreWith(t, newTestLocal(), remote, DefaultCacheSize)
}

func newTestStoreWith(t *testing.T, local localStorage, remote blobStore, cacheSize int) *Store {
	t.Helper()
	return New(local, remote, Config{Container: testContainer, CacheSize: cacheSize}, zap.NewNop())
}

func vecs(vs ...[]float32) [][]float32 { return vs }

func docs(ds ...string) []string { return ds }

func zapNop() *zap.Logger { return zap.NewNop() }
