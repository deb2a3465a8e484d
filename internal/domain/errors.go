package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals empty, blank or mismatched-length input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDimensionMismatch signals a vector whose length disagrees with the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrCorruptArtifact signals an unreadable or inconsistent persisted artifact.
	ErrCorruptArtifact = errors.New("corrupt index artifact")
	// ErrArtifactMissing signals a local artifact that should exist but does not.
	ErrArtifactMissing = errors.New("local artifact missing")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingRateLimited signals a provider rate-limit response (HTTP 429).
	ErrEmbeddingRateLimited = errors.New("embedding provider rate limited")
	// ErrEmbeddingUnavailable signals that a text could not be embedded.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrNoEmbeddings signals that every document of a batch failed to embed.
	ErrNoEmbeddings = fmt.Errorf("no document could be embedded: %w", ErrEmbeddingUnavailable)

	// ErrRemoteArtifactMissing signals a blob absent from the remote store.
	ErrRemoteArtifactMissing = errors.New("remote artifact missing")
	// ErrRemoteTransport signals a network or auth failure talking to the remote store.
	ErrRemoteTransport = errors.New("remote transport error")
)

// DimensionMismatchError carries the expected and actual vector lengths.
type DimensionMismatchError struct {
	Expected int
	Got      int
	Position int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d at input %d",
		ErrDimensionMismatch.Error(), e.Expected, e.Got, e.Position)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error for the i-th input vector.
func NewDimensionMismatch(expected, got, i int) error {
	return &DimensionMismatchError{Expected: expected, Got: got, Position: i}
}
