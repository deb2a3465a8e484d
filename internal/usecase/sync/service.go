// Package sync orchestrates index transfers between local and remote storage.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/domain"
	domidx "github.com/kailas-cloud/tickerdex/internal/domain/index"
	"github.com/kailas-cloud/tickerdex/internal/domain/ticker"
)

// Retry defaults.
const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
)

var errTransport = errors.New("transport failure")

// Config controls retries of transport failures.
type Config struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = DefaultInitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultMaxInterval
	}
	if c.MaxInterval < c.InitialInterval {
		c.MaxInterval = c.InitialInterval
	}
	return c
}

// Service pushes and pulls ticker indexes with retries.
type Service struct {
	store  Store
	cfg    Config
	logger *zap.Logger
}

// New creates a sync service.
func New(store Store, cfg Config, logger *zap.Logger) *Service {
	return &Service{store: store, cfg: cfg.withDefaults(), logger: logger}
}

// Push uploads the ticker's artifacts, retrying while a half fails on the transport.
func (s *Service) Push(ctx context.Context, symbol string) domidx.SyncReport {
	return s.retry(ctx, symbol, domidx.DirectionPush, s.store.SyncToRemote)
}

// Pull downloads the ticker's artifacts, retrying while a half fails on the transport.
// Missing remote artifacts are not retried.
func (s *Service) Pull(ctx context.Context, symbol string) domidx.SyncReport {
	return s.retry(ctx, symbol, domidx.DirectionPull, s.store.SyncFromRemote)
}

func (s *Service) retry(
	ctx context.Context,
	symbol string,
	dir domidx.Direction,
	op func(context.Context, string) domidx.SyncReport,
) domidx.SyncReport {
	var last domidx.SyncReport

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialInterval
	b.MaxInterval = s.cfg.MaxInterval

	_, _ = backoff.Retry(ctx, func() (struct{}, error) {
		last = op(ctx, symbol)
		if last.HasTransportError() {
			return struct{}{}, errTransport
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.cfg.MaxAttempts),
		backoff.WithNotify(func(_ error, d time.Duration) {
			s.logger.Warn("Retrying index sync after transport failure",
				zap.String("ticker", symbol),
				zap.String("direction", string(dir)),
				zap.Duration("backoff", d),
				zap.Error(last.Err()),
			)
		}),
	)
	return last
}

// Ensure makes sure the ticker has data locally, pulling it when absent or
// unreadable. It reports whether a non-empty index is available afterwards.
func (s *Service) Ensure(ctx context.Context, symbol string) (bool, error) {
	sym, err := ticker.Parse(symbol)
	if err != nil {
		return false, err
	}

	idx, found, err := s.store.Load(ctx, sym.String())
	switch {
	case errors.Is(err, domain.ErrCorruptArtifact):
		s.logger.Warn("Local index unreadable, pulling from remote",
			zap.String("ticker", sym.String()),
			zap.Error(err),
		)
	case err != nil:
		return false, fmt.Errorf("ensure %s: %w", sym, err)
	case found && !idx.IsEmpty():
		return true, nil
	}

	report := s.Pull(ctx, sym.String())
	if report.RemoteMissing() {
		return false, nil
	}
	if report.HasTransportError() {
		return false, fmt.Errorf("ensure %s: %w", sym, report.Err())
	}

	idx, found, err = s.store.Load(ctx, sym.String())
	if err != nil {
		return false, fmt.Errorf("ensure %s: %w", sym, err)
	}
	return found && !idx.IsEmpty(), nil
}

// PullAll discovers every ticker in remote storage and pulls each one.
func (s *Service) PullAll(ctx context.Context) (map[ticker.Symbol]domidx.SyncReport, error) {
	syms, err := s.store.RemoteTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remote tickers: %w", err)
	}
	return s.each(ctx, syms, s.Pull)
}

// PushAll uploads every ticker found in local storage.
func (s *Service) PushAll(ctx context.Context) (map[ticker.Symbol]domidx.SyncReport, error) {
	syms, err := s.store.LocalTickers()
	if err != nil {
		return nil, fmt.Errorf("list local tickers: %w", err)
	}
	return s.each(ctx, syms, s.Push)
}

func (s *Service) each(
	ctx context.Context,
	syms []ticker.Symbol,
	op func(context.Context, string) domidx.SyncReport,
) (map[ticker.Symbol]domidx.SyncReport, error) {
	reports := make(map[ticker.Symbol]domidx.SyncReport, len(syms))
	failed := 0
	for _, sym := range syms {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r := op(ctx, sym.String())
		reports[sym] = r
		if !r.OK() {
			failed++
		}
	}

	s.logger.Info("Synced tickers",
		zap.Int("tickers", len(syms)),
		zap.Int("failed", failed),
	)
	return reports, nil
}
