package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type ingestCommander struct {
	root *rootOptions
	file string
}

func newIngestCmd(root *rootOptions) *cobra.Command {
	cmder := &ingestCommander{root: root}

	cmd := &cobra.Command{
		Use:   "ingest TICKER",
		Short: "Embed documents and append them to the ticker's index",
		Long: `Reads documents from --file (or stdin with "-") and appends them to the
ticker's index. The input is either a JSON array of strings or plain text with
one document per non-empty line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.file, "file", "f", "-", "Documents file, - for stdin")
	return cmd
}

func (c *ingestCommander) run(ctx context.Context, out io.Writer, in io.Reader, ticker string) error {
	if c.file != "-" {
		f, err := os.Open(c.file)
		if err != nil {
			return fmt.Errorf("open documents: %w", err)
		}
		defer f.Close()
		in = f
	}

	docs, err := readDocuments(in)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, c.root.cfg, c.root.logger)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.ingest.Ingest(ctx, ticker, docs)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %d/%d documents embedded, positions %d..%d, index size %d\n",
		res.Ticker, res.Embedded(), res.Submitted,
		res.Append.FirstPosition, res.Append.FirstPosition+res.Append.Added-1, res.Append.Total)
	for _, d := range res.Dropped {
		fmt.Fprintf(out, "  dropped document %d: %v\n", d.Position, d.Err)
	}
	if res.Push != nil {
		if res.Push.OK() {
			fmt.Fprintln(out, "  pushed to remote")
		} else {
			fmt.Fprintf(out, "  push failed: %v\n", res.Push.Err())
		}
	}
	return nil
}

// readDocuments accepts a JSON array of strings or one document per non-empty line.
func readDocuments(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var docs []string
		if err := json.Unmarshal([]byte(trimmed), &docs); err != nil {
			return nil, fmt.Errorf("parse documents: %w", err)
		}
		return docs, nil
	}

	var docs []string
	sc := bufio.NewScanner(strings.NewReader(trimmed))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			docs = append(docs, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	return docs, nil
}
