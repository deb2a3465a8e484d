package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type queryCommander struct {
	root   *rootOptions
	k      int
	ensure bool
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	cmder := &queryCommander{root: root}

	cmd := &cobra.Command{
		Use:   "query TICKER QUESTION...",
		Short: "Print the context retrieved from the ticker's index for a question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args[0], strings.Join(args[1:], " "))
		},
	}

	cmd.Flags().IntVarP(&cmder.k, "top-k", "k", 0, "Number of documents (default index.default_top_k)")
	cmd.Flags().BoolVar(&cmder.ensure, "ensure", true, "Pull the index from remote storage when missing locally")
	return cmd
}

func (c *queryCommander) run(ctx context.Context, out io.Writer, ticker, question string) error {
	k := c.k
	if k == 0 {
		k = c.root.cfg.Index.DefaultTopK
	}

	a, err := newApp(ctx, c.root.cfg, c.root.logger)
	if err != nil {
		return err
	}
	defer a.close()

	if c.ensure && a.sync != nil {
		if _, err := a.sync.Ensure(ctx, ticker); err != nil {
			// Local data may still answer; retrieval reports absence itself.
			c.root.logger.Warn("Could not ensure index is available", zap.String("ticker", ticker), zap.Error(err))
		}
	}

	text, err := a.retrieve.Retrieve(ctx, ticker, question, k)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text)
	return nil
}
