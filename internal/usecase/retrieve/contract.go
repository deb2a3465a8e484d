package retrieve

import (
	"context"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	"github.com/kailas-cloud/tickerdex/internal/domain/search/result"
)

// Searcher runs nearest-neighbour search over a ticker's index.
type Searcher interface {
	Search(ctx context.Context, symbol string, query []float32, k int) ([]result.Hit, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
