package health

import "context"

// BlobPinger checks remote blob store availability.
type BlobPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// LocalChecker checks that the local index directory is usable.
type LocalChecker interface {
	Init() error
}
