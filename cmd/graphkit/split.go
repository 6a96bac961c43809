package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/graphkit"
	"github.com/zero-day-ai/graphkit/component"
	"github.com/zero-day-ai/graphkit/graph"
	"github.com/zero-day-ai/graphkit/plugin"
	"github.com/zero-day-ai/graphkit/queue"
	"github.com/zero-day-ai/graphkit/recordstore"
	"github.com/zero-day-ai/graphkit/splitnodes"
)

type splitFlags struct {
	delimiter       string
	transactionType string
	all             bool
	input           string
	merge           bool
	neo4j           bool
	graphID         string
	enqueue         bool
}

func newSplitCmd(a *app) *cobra.Command {
	var f splitFlags
	cmd := &cobra.Command{
		Use:   "split [identifier...]",
		Short: "Split identifiers on a delimiter into linked vertices",
		Long: `Split every identifier on a literal delimiter. The text before the delimiter
becomes a source vertex and the text after it a destination vertex, linked by
a transaction. Identifiers are read from the arguments, or one per line from
--input or standard input.

By default the proposed records are printed. --merge merges them into a graph
(in memory, or Neo4j with --neo4j); --enqueue hands them to a merge worker
through Redis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSplit(cmd, f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.delimiter, "delimiter", "d", "", "literal delimiter (default from config)")
	fl.StringVarP(&f.transactionType, "transaction-type", "t", "", "type of the link between fragments (default from config, then Correlation)")
	fl.BoolVarP(&f.all, "all", "a", false, "split on every occurrence instead of the first")
	fl.StringVarP(&f.input, "input", "i", "", "file with one identifier per line, - for stdin")
	fl.BoolVar(&f.merge, "merge", false, "merge the proposals into a graph")
	fl.BoolVar(&f.neo4j, "neo4j", false, "merge into the configured Neo4j database (implies --merge)")
	fl.StringVar(&f.graphID, "graph-id", "", "neo4j graph id to merge into")
	fl.BoolVar(&f.enqueue, "enqueue", false, "submit the proposals to the merge queue")
	cmd.MarkFlagsMutuallyExclusive("merge", "enqueue")
	cmd.MarkFlagsMutuallyExclusive("neo4j", "enqueue")
	return cmd
}

func (a *app) runSplit(cmd *cobra.Command, f splitFlags, args []string) error {
	ctx := cmd.Context()

	opts := a.cfg.Split.Options()
	fl := cmd.Flags()
	if fl.Changed("delimiter") {
		opts.Delimiter = f.delimiter
	}
	if fl.Changed("transaction-type") {
		opts.TransactionType = f.transactionType
	}
	if fl.Changed("all") {
		opts.AllOccurrences = f.all
	}

	in, err := readIdentifiers(cmd.InOrStdin(), f.input, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case f.enqueue:
		return a.enqueue(cmd, in, opts)
	case f.merge || f.neo4j:
		sink, closeSink, err := a.openSink(ctx, f.neo4j, f.graphID)
		if err != nil {
			return err
		}
		defer closeSink()
		res, err := a.kit.SplitInto(ctx, sink, in, opts)
		if err != nil {
			return err
		}
		if mem, ok := sink.(*graph.MemoryGraph); ok {
			return writeJSON(out, mem)
		}
		return writeJSON(out, res)
	default:
		proposals, err := a.kit.Split(ctx, in, opts)
		if err != nil {
			return err
		}
		return writeJSON(out, proposals.Plain())
	}
}

func (a *app) enqueue(cmd *cobra.Command, in *recordstore.Store, opts splitnodes.Options) error {
	ctx := cmd.Context()
	if a.cfg.Queue == nil {
		return plugin.NewConfigurationError("graphkit.split", component.ErrQueueNotConfigured)
	}

	proposals, err := a.kit.Split(ctx, in, opts)
	if err != nil {
		return err
	}

	client, err := queue.NewRedisClient(a.cfg.Queue.RedisOptions(a.kit.Logger()))
	if err != nil {
		return err
	}
	defer graphkit.CloseWithLog(client, a.kit.Logger(), "redis client")

	id, err := queue.Submit(ctx, client, a.cfg.Queue.GetList(), "graphkit-cli", proposals)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), map[string]any{
		"batch_id": id,
		"list":     a.cfg.Queue.GetList(),
		"records":  proposals.Len(),
	})
}

// readIdentifiers builds one row per identifier. Arguments win over input.
func readIdentifiers(stdin io.Reader, path string, args []string) (*recordstore.Store, error) {
	store := recordstore.New()
	add := func(id string) error {
		return store.Set(store.Add(), recordstore.SourceIdentifier, id)
	}

	if len(args) > 0 {
		for _, id := range args {
			if err := add(id); err != nil {
				return nil, err
			}
		}
		return store, nil
	}

	r := stdin
	if path != "" && path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		r = file
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := add(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return store, nil
}
