package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sseqchart/pkg/cache"
	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/protocol"
)

// replayOpts holds the command-line flags for the replay command.
type replayOpts struct {
	output  string // output snapshot path, stdout when empty
	newFlag bool   // start from an empty chart instead of a snapshot
	noCache bool
	resolve bool // fail when edges are still pending at the end
	strict  bool // abort on the first rejected message
}

func (c *CLI) replayCommand() *cobra.Command {
	var opts replayOpts

	cmd := &cobra.Command{
		Use:   "replay [snapshot.json] <messages.jsonl>",
		Short: "Apply a stream of chart messages to a snapshot",
		Long: `Replay applies a JSON-lines stream of chart messages to a snapshot and writes the
resulting snapshot. Each line holds one message or a JSON array of messages; blank
lines and lines starting with # are skipped.

With --new the stream is applied to an empty chart and only the messages file is
given. Results are cached by the hash of the inputs.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := replayInput{chartOpts: c.chartOptions(), resolve: opts.resolve, strict: opts.strict}

			msgPath := args[len(args)-1]
			switch {
			case opts.newFlag && len(args) != 1:
				return fmt.Errorf("--new takes only the messages file")
			case !opts.newFlag && len(args) != 2:
				return fmt.Errorf("need a snapshot and a messages file (or --new)")
			case !opts.newFlag:
				data, err := readInput(args[0])
				if err != nil {
					return err
				}
				in.snapshot = data
			}
			msgs, err := readInput(msgPath)
			if err != nil {
				return err
			}
			in.messages = msgs

			cch, err := c.newCache(ctx, opts.noCache)
			if err != nil {
				return err
			}
			defer cch.Close()

			res, err := replay(ctx, in, cch, c.Config.Cache.TTL.Std())
			if err != nil {
				return err
			}
			for _, le := range res.rejected {
				printError("line %d: %s", le.line, errors.UserMessage(le.err))
			}
			if err := writeOutput(opts.output, res.snapshot); err != nil {
				return err
			}
			if opts.output != "" && opts.output != stdio {
				printSuccess("Replayed %d messages (%d rejected)", res.applied+len(res.rejected), len(res.rejected))
				printStats(res.classes, res.edges, res.cached)
				printFile(opts.output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output snapshot (default: stdout)")
	cmd.Flags().BoolVar(&opts.newFlag, "new", false, "start from an empty chart")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.resolve, "resolve", false, "fail if edges reference classes that never arrived")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "abort on the first rejected message")

	return cmd
}

type replayInput struct {
	snapshot  []byte // nil starts an empty chart
	messages  []byte
	chartOpts chart.Options
	resolve   bool
	strict    bool
}

type lineError struct {
	line int
	err  error
}

type replayResult struct {
	snapshot []byte
	applied  int
	rejected []lineError
	classes  int
	edges    int
	cached   bool
}

// replay applies in.messages line by line. A line that fails leaves the
// chart as it was and replay continues, unless in.strict is set. Only
// results without rejected lines are cached.
func replay(ctx context.Context, in replayInput, cch cache.Cache, ttl time.Duration) (replayResult, error) {
	logger := loggerFromContext(ctx)
	key := cache.NewDefaultKeyer().ReplayKey(cache.Hash(in.snapshot), cache.Hash(in.messages), cache.ReplayKeyOpts{
		NumGradings: in.chartOpts.NumGradings,
		Resolve:     in.resolve,
	})

	if data, ok, err := cache.Lookup(ctx, cch, cache.KeyTypeReplay, key); err != nil {
		logger.Warn("cache lookup failed", "err", err)
	} else if ok {
		c, err := chart.Decode(data)
		if err == nil {
			logger.Debug("replay cache hit", "key", key)
			return replayResult{snapshot: data, classes: c.NumClasses(), edges: c.NumEdges(), cached: true}, nil
		}
		logger.Warn("discarding corrupt cache entry", "key", key, "err", err)
	}

	var c *chart.Chart
	if in.snapshot == nil {
		c = chart.New(in.chartOpts)
	} else {
		var err error
		if c, err = chart.Decode(in.snapshot); err != nil {
			return replayResult{}, err
		}
		c.SetLogger(in.chartOpts.Logger)
	}

	prog := newProgress(logger)
	d := protocol.NewDispatcher(c, protocol.WithLogger(logger))
	lines, nums := splitLines(in.messages)
	var res replayResult
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return replayResult{}, err
		}
		if err := d.HandleRaw(ctx, line); err != nil {
			if in.strict {
				return replayResult{}, fmt.Errorf("line %d: %w", nums[i], err)
			}
			res.rejected = append(res.rejected, lineError{line: nums[i], err: err})
			continue
		}
		res.applied++
	}
	if in.resolve {
		if err := c.ResolvePending(); err != nil {
			return replayResult{}, err
		}
	}
	prog.done(fmt.Sprintf("Replayed %d lines", len(lines)))

	data, err := encodeSnapshot(c)
	if err != nil {
		return replayResult{}, err
	}
	res.snapshot = data
	res.classes, res.edges = c.NumClasses(), c.NumEdges()

	if len(res.rejected) == 0 {
		if err := cache.Store(ctx, cch, cache.KeyTypeReplay, key, data, ttl); err != nil {
			logger.Warn("cache write failed", "err", err)
		}
	}
	return res, nil
}
