// Package index holds the per-ticker flat L2 index aggregate.
//
// An Index is an immutable value: slots are stored as a flat vector buffer
// plus a parallel ordered document list, positions are contiguous from 0,
// and every vector shares the dimension fixed by the first insert.
// Append returns a new Index and never touches the receiver's buffers.
package index

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	"github.com/kailas-cloud/tickerdex/internal/domain/search/result"
)

// Index is the ordered slot collection of one ticker. The zero value is an empty index.
type Index struct {
	dimension int
	vectors   []float32
	documents []string
}

// New creates an index from parallel embeddings and documents, keyed 0..n-1.
func New(embeddings [][]float32, documents []string) (Index, error) {
	return Index{}.Append(embeddings, documents)
}

// Reconstruct creates an Index from persisted state (storage hydration).
// flat holds len(documents)*dimension values in position order.
func Reconstruct(dimension int, flat []float32, documents []string) (Index, error) {
	if len(documents) == 0 {
		if len(flat) != 0 {
			return Index{}, fmt.Errorf("%d vector values without documents: %w", len(flat), domain.ErrCorruptArtifact)
		}
		return Index{}, nil
	}
	if dimension <= 0 {
		return Index{}, fmt.Errorf("invalid dimension %d: %w", dimension, domain.ErrCorruptArtifact)
	}
	if len(flat) != len(documents)*dimension {
		return Index{}, fmt.Errorf("slot count mismatch: %d values for %d documents of dimension %d: %w",
			len(flat), len(documents), dimension, domain.ErrCorruptArtifact)
	}
	return Index{
		dimension: dimension,
		vectors:   slices.Clone(flat),
		documents: slices.Clone(documents),
	}, nil
}

// Append validates the batch and returns a new index with the batch appended
// after the current last position. On error the receiver is unchanged and
// nothing is returned.
func (x Index) Append(embeddings [][]float32, documents []string) (Index, error) {
	dim, err := validateBatch(x.dimension, embeddings, documents)
	if err != nil {
		return Index{}, err
	}

	vectors := make([]float32, 0, len(x.vectors)+len(embeddings)*dim)
	vectors = append(vectors, x.vectors...)
	for _, e := range embeddings {
		vectors = append(vectors, e...)
	}

	docs := make([]string, 0, len(x.documents)+len(documents))
	docs = append(docs, x.documents...)
	docs = append(docs, documents...)

	return Index{dimension: dim, vectors: vectors, documents: docs}, nil
}

// Len returns the number of slots.
func (x Index) Len() int { return len(x.documents) }

// IsEmpty reports whether the index has no slots.
func (x Index) IsEmpty() bool { return len(x.documents) == 0 }

// Dimension returns the established vector dimension (0 for an empty index).
func (x Index) Dimension() int { return x.dimension }

// Document returns the document stored at position.
func (x Index) Document(position int) (string, bool) {
	if position < 0 || position >= len(x.documents) {
		return "", false
	}
	return x.documents[position], true
}

// Vector returns a copy of the vector stored at position.
func (x Index) Vector(position int) ([]float32, bool) {
	if position < 0 || position >= len(x.documents) {
		return nil, false
	}
	return slices.Clone(x.slot(position)), true
}

// Documents returns a copy of the documents in position order.
func (x Index) Documents() []string { return slices.Clone(x.documents) }

// Flat returns the flat vector buffer in position order. Callers must not modify it.
func (x Index) Flat() []float32 { return x.vectors }

// Search returns up to k slots nearest to query by squared Euclidean distance,
// ascending, ties broken by ascending position. An empty index yields no hits.
func (x Index) Search(query []float32, k int) ([]result.Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidInput)
	}
	if x.IsEmpty() {
		return []result.Hit{}, nil
	}
	if len(query) != x.dimension {
		return nil, domain.NewDimensionMismatch(x.dimension, len(query), 0)
	}

	type scored struct {
		position int
		distance float64
	}
	scores := make([]scored, len(x.documents))
	for i := range x.documents {
		scores[i] = scored{position: i, distance: SquaredL2(query, x.slot(i))}
	}

	slices.SortFunc(scores, func(a, b scored) int {
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return cmp.Compare(a.position, b.position)
	})

	if k > len(scores) {
		k = len(scores)
	}
	hits := make([]result.Hit, k)
	for i := range k {
		s := scores[i]
		hits[i] = result.New(x.documents[s.position], s.distance, s.position)
	}
	return hits, nil
}

func (x Index) slot(position int) []float32 {
	start := position * x.dimension
	return x.vectors[start : start+x.dimension : start+x.dimension]
}

// SquaredL2 is the squared Euclidean distance between equal-length vectors.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// validateBatch checks a create/append batch against the established dimension
// (0 when the index is empty) and returns the dimension the batch establishes.
func validateBatch(dimension int, embeddings [][]float32, documents []string) (int, error) {
	if len(embeddings) == 0 || len(documents) == 0 {
		return 0, fmt.Errorf("embeddings and documents must be non-empty: %w", domain.ErrInvalidInput)
	}
	if len(embeddings) != len(documents) {
		return 0, fmt.Errorf("%d embeddings for %d documents: %w",
			len(embeddings), len(documents), domain.ErrInvalidInput)
	}

	dim := dimension
	if dim == 0 {
		dim = len(embeddings[0])
	}
	if dim == 0 {
		return 0, fmt.Errorf("empty embedding vector: %w", domain.ErrInvalidInput)
	}

	for i, e := range embeddings {
		if len(e) != dim {
			return 0, domain.NewDimensionMismatch(dim, len(e), i)
		}
		for _, v := range e {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return 0, fmt.Errorf("non-finite value in embedding %d: %w", i, domain.ErrInvalidInput)
			}
		}
	}
	return dim, nil
}
