package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/tickerdex/internal/transport/chi"
	"github.com/kailas-cloud/tickerdex/internal/version"
)

type serveCommander struct {
	root    *rootOptions
	pullAll bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	cmder := &serveCommander{root: root}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ops HTTP server (/healthz, /metrics)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&cmder.pullAll, "pull-all", false, "Pull every remote index before serving")
	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	cfg, logger := c.root.cfg, c.root.logger

	logger.Info("Starting tickerdex ops server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", c.root.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("blob_driver", cfg.Blob.Driver),
		zap.String("index_root", cfg.Index.RootDir),
	)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if c.pullAll {
		s, err := a.requireSync()
		if err != nil {
			return err
		}
		reports, err := s.PullAll(ctx)
		if err != nil {
			// Warm start is best effort: serve whatever is local.
			logger.Warn("Warm start failed", zap.Error(err))
		} else {
			logger.Info("Warm start complete", zap.Int("tickers", len(reports)))
		}
	}

	server := chiTransport.NewServer(a.health, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.HTTP.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
