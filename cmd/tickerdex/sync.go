package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	domidx "github.com/kailas-cloud/tickerdex/internal/domain/index"
	"github.com/kailas-cloud/tickerdex/internal/domain/ticker"
)

type syncCommander struct {
	root   *rootOptions
	all    bool
	remote bool
}

func newSyncCmd(root *rootOptions) *cobra.Command {
	cmder := &syncCommander{root: root}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror ticker indexes to and from the blob store",
	}

	push := &cobra.Command{
		Use:   "push [TICKER...]",
		Short: "Upload local indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.transfer(cmd.Context(), cmd.OutOrStdout(), domidx.DirectionPush, args)
		},
	}
	pull := &cobra.Command{
		Use:   "pull [TICKER...]",
		Short: "Download remote indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.transfer(cmd.Context(), cmd.OutOrStdout(), domidx.DirectionPull, args)
		},
	}
	for _, c := range []*cobra.Command{push, pull} {
		c.Flags().BoolVar(&cmder.all, "all", false, "Transfer every ticker on the source side")
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tickers with an index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.list(cmd.Context(), cmd.OutOrStdout())
		},
	}
	list.Flags().BoolVar(&cmder.remote, "remote", false, "List the blob store instead of local storage")

	cmd.AddCommand(push, pull, list)
	return cmd
}

func (c *syncCommander) transfer(ctx context.Context, out io.Writer, dir domidx.Direction, args []string) error {
	if c.all == (len(args) > 0) {
		return fmt.Errorf("pass either tickers or --all")
	}

	a, err := newApp(ctx, c.root.cfg, c.root.logger)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.requireSync()
	if err != nil {
		return err
	}

	var reports map[ticker.Symbol]domidx.SyncReport
	switch {
	case c.all && dir == domidx.DirectionPush:
		reports, err = s.PushAll(ctx)
	case c.all:
		reports, err = s.PullAll(ctx)
	default:
		reports = make(map[ticker.Symbol]domidx.SyncReport, len(args))
		for _, raw := range args {
			var r domidx.SyncReport
			if dir == domidx.DirectionPush {
				r = s.Push(ctx, raw)
			} else {
				r = s.Pull(ctx, raw)
			}
			reports[r.Ticker] = r
		}
	}
	if err != nil {
		return err
	}

	return printReports(out, reports)
}

func printReports(out io.Writer, reports map[ticker.Symbol]domidx.SyncReport) error {
	syms := make([]ticker.Symbol, 0, len(reports))
	for s := range reports {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })

	failed := 0
	for _, s := range syms {
		r := reports[s]
		if r.OK() {
			fmt.Fprintf(out, "%-10s %s ok\n", s, r.Direction)
			continue
		}
		failed++
		fmt.Fprintf(out, "%-10s %s failed: %v\n", s, r.Direction, r.Err())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tickers failed to sync", failed, len(syms))
	}
	return nil
}

func (c *syncCommander) list(ctx context.Context, out io.Writer) error {
	a, err := newApp(ctx, c.root.cfg, c.root.logger)
	if err != nil {
		return err
	}
	defer a.close()

	var syms []ticker.Symbol
	if c.remote {
		if a.blob == nil {
			return errRemoteNotConfigured
		}
		syms, err = a.index.RemoteTickers(ctx)
	} else {
		syms, err = a.index.LocalTickers()
	}
	if err != nil {
		return err
	}

	for _, s := range syms {
		fmt.Fprintln(out, s)
	}
	return nil
}
