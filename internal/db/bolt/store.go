// Package bolt implements db.Store on a single bbolt file for single-node setups.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kailas-cloud/tickerdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const (
	kvBucket         = "kv"
	blobBucketPrefix = "blob:"
	expiryHeaderSize = 8
	fileMode         = 0o600
	openTimeout      = time.Second
)

// Store keeps blobs in one bucket per container and KV entries in a shared bucket.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// NewStore opens (or creates) the bolt file at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	bdb, err := bbolt.Open(path, fileMode, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(kvBucket))
		return err
	})
	if err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("failed to create kv bucket: %w", err)
	}

	return &Store{db: bdb, now: time.Now}, nil
}

// Ping checks that the file is open and readable.
func (s *Store) Ping(_ context.Context) error {
	if err := s.db.View(func(*bbolt.Tx) error { return nil }); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the file lock.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady returns as soon as Ping succeeds; a local file is ready once opened.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("bolt not ready: %w", err)
	}
	return nil
}

// PutBlob stores data under name in the container bucket.
func (s *Store) PutBlob(ctx context.Context, container, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(blobBucket(container))
		if err != nil {
			return err
		}
		return b.Put([]byte(name), data)
	})
	if err != nil {
		return &db.Error{Op: db.OpUpdate, Err: err}
	}
	return nil
}

// GetBlob returns a copy of the blob or db.ErrKeyNotFound.
func (s *Store) GetBlob(ctx context.Context, container, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(blobBucket(container))
		if b == nil {
			return db.ErrKeyNotFound
		}
		v := b.Get([]byte(name))
		if v == nil {
			return db.ErrKeyNotFound
		}
		out = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, err
		}
		return nil, &db.Error{Op: db.OpView, Err: err}
	}
	return out, nil
}

// ListBlobs returns blob names in key order.
func (s *Store) ListBlobs(ctx context.Context, container string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(blobBucket(container))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpView, Err: err}
	}
	return names, nil
}

// Get returns a KV value or db.ErrKeyNotFound. Expired entries count as missing.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(kvBucket)).Get([]byte(key))
		if len(v) < expiryHeaderSize {
			return db.ErrKeyNotFound
		}
		if exp := int64(binary.BigEndian.Uint64(v[:expiryHeaderSize])); exp != 0 && s.now().UnixNano() >= exp {
			return db.ErrKeyNotFound
		}
		out = append([]byte{}, v[expiryHeaderSize:]...)
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, err
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return out, nil
}

// Set stores a value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.put(ctx, key, value, 0)
}

// SetWithTTL stores a value that Get ignores once ttl has passed.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.put(ctx, key, value, s.now().Add(ttl).UnixNano())
}

func (s *Store) put(ctx context.Context, key string, value []byte, expiresAt int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, expiryHeaderSize+len(value))
	binary.BigEndian.PutUint64(buf, uint64(expiresAt))
	copy(buf[expiryHeaderSize:], value)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(kvBucket)).Put([]byte(key), buf)
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

func blobBucket(container string) []byte {
	return []byte(blobBucketPrefix + container)
}
