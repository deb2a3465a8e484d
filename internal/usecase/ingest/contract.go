package ingest

import (
	"context"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	domidx "github.com/kailas-cloud/tickerdex/internal/domain/index"
)

// Appender adds embedded documents to a ticker's index.
type Appender interface {
	Append(ctx context.Context, symbol string, embeddings [][]float32, documents []string) (domidx.AppendResult, error)
}

// Pusher mirrors a ticker's index to remote storage.
type Pusher interface {
	Push(ctx context.Context, symbol string) domidx.SyncReport
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
