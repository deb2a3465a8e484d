package db

import (
	"context"
	"time"
)

// Store is the main storage facade combining all sub-interfaces.
type Store interface {
	Pinger
	BlobStore
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks storage connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BlobStore holds named byte blobs grouped into containers.
// GetBlob returns ErrKeyNotFound when the blob does not exist.
type BlobStore interface {
	PutBlob(ctx context.Context, container, name string, data []byte) error
	GetBlob(ctx context.Context, container, name string) ([]byte, error)
	ListBlobs(ctx context.Context, container string) ([]string, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
