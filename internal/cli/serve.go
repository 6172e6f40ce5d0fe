package cli

import (
	stderrors "errors"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sseqchart/internal/server"
	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/store"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		snapshot string
		resume   string
		metrics  bool
		noStore  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a chart over HTTP and WebSocket",
		Long: `Serve a chart over HTTP and WebSocket.

Endpoints:
  GET  /chart      current snapshot
  POST /messages   apply one message or a JSON array of messages
  GET  /draw       uuids drawn for ?page= and the box xmin, xmax, ymin, ymax
  GET  /render     ?format=dot|svg|pdf|png rendering of a page
  GET  /ws         live updates; chart.state.reset on connect, then chart.batched
  GET  /metrics    Prometheus metrics (with --metrics)
  GET  /healthz    liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.Config.Server
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("metrics") {
				cfg.Metrics = metrics
			}
			if snapshot != "" {
				cfg.Snapshot = snapshot
			}

			var st store.Store
			if !noStore {
				s, err := c.newStore(ctx)
				if err != nil {
					return err
				}
				defer s.Close()
				st = s
			}

			var ch *chart.Chart
			switch {
			case resume != "":
				if st == nil {
					return stderrors.New("--resume needs a store")
				}
				loaded, err := store.LoadChart(ctx, st, resume)
				if err != nil {
					return err
				}
				ch = loaded
			case cfg.Snapshot != "":
				loaded, _, err := loadSnapshot(cfg.Snapshot)
				if err != nil {
					return err
				}
				ch = loaded
			default:
				ch = chart.New(c.chartOptions())
			}
			ch.SetLogger(c.Logger)

			opts := server.Options{Store: st, Logger: c.Logger}
			if cfg.Metrics {
				m := server.NewMetrics()
				m.Install()
				opts.Metrics = m
			}

			printInfo("Serving chart %s", StyleHighlight.Render(ch.UUID))
			printKeyValue("Address", "http://"+cfg.Addr)
			printKeyValue("WebSocket", "ws://"+cfg.Addr+"/ws")
			printStats(ch.NumClasses(), ch.NumEdges(), false)
			return server.New(ch, opts).ListenAndServe(ctx, cfg.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: config server.addr)")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "snapshot to serve (default: empty chart)")
	cmd.Flags().StringVar(&resume, "resume", "", "resume the stored chart with this uuid")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "serve Prometheus metrics on /metrics")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not persist snapshots")

	return cmd
}
