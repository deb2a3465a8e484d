package tickerdex

import (
	"errors"

	"github.com/kailas-cloud/tickerdex/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput          = domain.ErrInvalidInput
	ErrDimensionMismatch     = domain.ErrDimensionMismatch
	ErrCorruptArtifact       = domain.ErrCorruptArtifact
	ErrEmbeddingUnavailable  = domain.ErrEmbeddingUnavailable
	ErrNoEmbeddings          = domain.ErrNoEmbeddings
	ErrRemoteArtifactMissing = domain.ErrRemoteArtifactMissing
	ErrRemoteTransport       = domain.ErrRemoteTransport

	// ErrRemoteNotConfigured is returned by sync calls on a local-only client.
	ErrRemoteNotConfigured = errors.New("tickerdex: no blob store configured")
)
