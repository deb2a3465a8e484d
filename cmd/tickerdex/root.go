package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tickerdex/internal/config"
	logpkg "github.com/kailas-cloud/tickerdex/internal/logger"
	"github.com/kailas-cloud/tickerdex/internal/metrics"
	"github.com/kailas-cloud/tickerdex/internal/version"
)

const rootLongDesc = `tickerdex keeps a vector index of research documents per stock ticker.

  tickerdex serve                 Run the ops server (health, metrics)
  tickerdex ingest MSFT -f docs   Embed documents and append them to the MSFT index
  tickerdex query MSFT "..."      Print the context retrieved for a question
  tickerdex sync push|pull|list   Mirror indexes to and from the blob store`

// rootOptions are resolved once in PersistentPreRunE and shared by subcommands.
type rootOptions struct {
	env        string
	configPath string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "tickerdex",
		Short:         "Ticker-scoped vector index and retrieval",
		Long:          rootLongDesc,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.init()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "Environment (local, dev, docker, prod)")
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override logging.level")

	cmd.AddCommand(
		newServeCmd(opts),
		newIngestCmd(opts),
		newQueryCmd(opts),
		newSyncCmd(opts),
	)
	return cmd
}

func (o *rootOptions) init() error {
	var err error
	if o.configPath != "" {
		o.cfg, err = config.LoadFile(o.configPath)
	} else {
		o.cfg, err = config.Load(o.env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := o.cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	o.logger, err = logpkg.NewLogger(o.env, logpkg.Config{Level: level, Format: o.cfg.Logging.Format})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	// Register metrics explicitly (no init())
	metrics.Register()
	return nil
}
