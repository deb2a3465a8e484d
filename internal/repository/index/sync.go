package index

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/db"
	"github.com/kailas-cloud/tickerdex/internal/domain"
	domidx "github.com/kailas-cloud/tickerdex/internal/domain/index"
	"github.com/kailas-cloud/tickerdex/internal/domain/ticker"
	"github.com/kailas-cloud/tickerdex/internal/metrics"
	"github.com/kailas-cloud/tickerdex/internal/repository/artifact"
)

var errRemoteDisabled = errors.New("remote storage is not configured")

func invalidReport(raw string, dir domidx.Direction, err error) domidx.SyncReport {
	return domidx.SyncReport{
		Ticker:    ticker.Symbol(raw),
		Direction: dir,
		Index:     domidx.ArtifactResult{Err: err},
		Mapping:   domidx.ArtifactResult{Err: err},
	}
}

// SyncToRemote uploads both local artifacts of the ticker. Each artifact is
// handled independently: a failure of one never prevents the other.
func (s *Store) SyncToRemote(ctx context.Context, symbol string) domidx.SyncReport {
	sym, err := ticker.Parse(symbol)
	if err != nil {
		return invalidReport(symbol, domidx.DirectionPush, err)
	}

	mu := s.locks.get(sym)
	mu.RLock()
	defer mu.RUnlock()

	report := domidx.SyncReport{
		Ticker:    sym,
		Direction: domidx.DirectionPush,
		Index:     s.upload(ctx, sym.ArtifactName(s.cfg.IndexArtifact)),
		Mapping:   s.upload(ctx, sym.ArtifactName(s.cfg.MappingArtifact)),
	}
	s.logReport(report)
	return report
}

func (s *Store) upload(ctx context.Context, name string) domidx.ArtifactResult {
	res := domidx.ArtifactResult{Name: name}

	data, err := s.local.Read(name)
	if err != nil {
		res.Err = fmt.Errorf("read %s: %w", name, err)
		s.countArtifact(domidx.DirectionPush, res.Err)
		return res
	}

	if s.remote == nil {
		res.Err = fmt.Errorf("upload %s: %w: %w", name, domain.ErrRemoteTransport, errRemoteDisabled)
		s.countArtifact(domidx.DirectionPush, res.Err)
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
	defer cancel()

	if err := s.remote.PutBlob(ctx, s.cfg.Container, name, data); err != nil {
		res.Err = fmt.Errorf("upload %s: %w: %w", name, domain.ErrRemoteTransport, err)
	}
	s.countArtifact(domidx.DirectionPush, res.Err)
	return res
}

// SyncFromRemote downloads both artifacts of the ticker into memory and
// applies them only when both arrived and decode into a consistent index.
// Otherwise both local files and the cached index stay as they were and the
// report carries the per-artifact failures.
func (s *Store) SyncFromRemote(ctx context.Context, symbol string) domidx.SyncReport {
	sym, err := ticker.Parse(symbol)
	if err != nil {
		return invalidReport(symbol, domidx.DirectionPull, err)
	}

	mu := s.locks.get(sym)
	mu.Lock()
	defer mu.Unlock()

	vectorsName := sym.ArtifactName(s.cfg.IndexArtifact)
	mappingName := sym.ArtifactName(s.cfg.MappingArtifact)
	vectors, indexRes := s.download(ctx, vectorsName)
	mapping, mappingRes := s.download(ctx, mappingName)

	report := domidx.SyncReport{
		Ticker:    sym,
		Direction: domidx.DirectionPull,
		Index:     indexRes,
		Mapping:   mappingRes,
	}

	switch {
	case indexRes.OK() && mappingRes.OK():
		report.Reload = s.apply(sym, vectors, mapping)
	case indexRes.OK() || mappingRes.OK():
		report.Reload = fmt.Errorf("apply %s: %w", sym, errIncompletePull)
	}

	s.logReport(report)
	return report
}

var errIncompletePull = errors.New("one artifact failed to download, local index kept")

func (s *Store) download(ctx context.Context, name string) ([]byte, domidx.ArtifactResult) {
	res := domidx.ArtifactResult{Name: name}
	if s.remote == nil {
		res.Err = fmt.Errorf("download %s: %w: %w", name, domain.ErrRemoteTransport, errRemoteDisabled)
		s.countArtifact(domidx.DirectionPull, res.Err)
		return nil, res
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
	defer cancel()

	data, err := s.remote.GetBlob(ctx, s.cfg.Container, name)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		res.Err = fmt.Errorf("download %s: %w", name, domain.ErrRemoteArtifactMissing)
	case err != nil:
		res.Err = fmt.Errorf("download %s: %w: %w", name, domain.ErrRemoteTransport, err)
	}
	s.countArtifact(domidx.DirectionPull, res.Err)
	return data, res
}

// apply validates a downloaded pair and replaces the local artifacts with it.
// Callers hold the write lock.
func (s *Store) apply(sym ticker.Symbol, vectors, mapping []byte) error {
	idx, err := artifact.Decode(vectors, mapping)
	if err != nil {
		return fmt.Errorf("apply %s: %w", sym, err)
	}

	prev, _, err := s.load(sym)
	if err != nil {
		s.logger.Warn("Replacing unreadable local index with pulled copy",
			zap.String("ticker", sym.String()), zap.Error(err))
	}
	if err := s.persist(sym, idx, prev); err != nil {
		s.cache.remove(sym)
		return fmt.Errorf("apply %s: %w", sym, err)
	}
	s.cache.put(sym, idx)
	return nil
}

// RemoteTickers lists the tickers that have a vector-index artifact in the container.
func (s *Store) RemoteTickers(ctx context.Context) ([]ticker.Symbol, error) {
	if s.remote == nil {
		return nil, fmt.Errorf("list remote: %w: %w", domain.ErrRemoteTransport, errRemoteDisabled)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
	defer cancel()

	names, err := s.remote.ListBlobs(ctx, s.cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("list remote: %w: %w", domain.ErrRemoteTransport, err)
	}
	return s.tickersFromNames(names), nil
}

func (s *Store) countArtifact(dir domidx.Direction, err error) {
	status := "ok"
	switch {
	case errors.Is(err, domain.ErrRemoteArtifactMissing), errors.Is(err, domain.ErrArtifactMissing):
		status = "missing"
	case err != nil:
		status = "error"
	}
	metrics.SyncArtifactsTotal.WithLabelValues(string(dir), status).Inc()
}

func (s *Store) logReport(r domidx.SyncReport) {
	fields := []zap.Field{
		zap.String("ticker", r.Ticker.String()),
		zap.String("direction", string(r.Direction)),
	}
	if r.OK() {
		s.logger.Info("Synced index artifacts", fields...)
		return
	}

	for _, a := range []domidx.ArtifactResult{r.Index, r.Mapping} {
		if a.OK() {
			continue
		}
		f := append(fields, zap.String("artifact", a.Name), zap.Error(a.Err))
		if errors.Is(a.Err, domain.ErrRemoteArtifactMissing) || errors.Is(a.Err, domain.ErrArtifactMissing) {
			s.logger.Warn("Artifact not available for sync", f...)
		} else {
			s.logger.Error("Artifact sync failed", f...)
		}
	}
	if r.Reload != nil {
		s.logger.Error("Pulled index not applied", append(fields, zap.Error(r.Reload))...)
	}
}
