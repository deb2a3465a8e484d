package index

import (
	"errors"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	"github.com/kailas-cloud/tickerdex/internal/domain/ticker"
)

// AppendResult describes a completed append.
type AppendResult struct {
	FirstPosition int
	Added         int
	Total         int
	Created       bool
}

// Direction of a sync.
type Direction string

// Sync directions.
const (
	DirectionPush Direction = "push"
	DirectionPull Direction = "pull"
)

// ArtifactResult is the outcome of transferring one artifact.
type ArtifactResult struct {
	Name string
	Err  error
}

// OK reports whether the transfer succeeded.
func (r ArtifactResult) OK() bool { return r.Err == nil }

// SyncReport collects the independent per-artifact outcomes of a sync.
type SyncReport struct {
	Ticker    ticker.Symbol
	Direction Direction
	Index     ArtifactResult
	Mapping   ArtifactResult
	// Reload is set when a pull did not replace the local index: one half
	// failed, the pair did not decode, or the local write failed.
	Reload error
}

// OK is true only if both artifacts transferred (and, on pull, were applied).
func (r SyncReport) OK() bool {
	return r.Index.OK() && r.Mapping.OK() && r.Reload == nil
}

// Err joins every failure of the report, nil when OK.
func (r SyncReport) Err() error {
	return errors.Join(r.Index.Err, r.Mapping.Err, r.Reload)
}

// HasTransportError reports whether any half failed on the transport.
func (r SyncReport) HasTransportError() bool {
	return errors.Is(r.Index.Err, domain.ErrRemoteTransport) ||
		errors.Is(r.Mapping.Err, domain.ErrRemoteTransport)
}

// RemoteMissing reports whether both halves are absent from the remote store.
func (r SyncReport) RemoteMissing() bool {
	return errors.Is(r.Index.Err, domain.ErrRemoteArtifactMissing) &&
		errors.Is(r.Mapping.Err, domain.ErrRemoteArtifactMissing)
}
