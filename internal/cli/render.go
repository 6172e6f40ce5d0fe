package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sseqchart/pkg/cache"
	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/page"
	"github.com/matzehuels/sseqchart/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string    // output file, stdout when empty
	format   string    // dot, svg, pdf or png
	page     string    // page or page range
	box      []float64 // xmin,xmax,ymin,ymax
	scale    float64   // PNG scale factor
	detailed bool      // label every class
	noCache  bool
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{page: "2", scale: 2}

	cmd := &cobra.Command{
		Use:   "render <snapshot.json>",
		Short: "Render a chart page with Graphviz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format == "" {
				opts.format = formatFromPath(opts.output)
			}
			if err := errors.ValidateFormat(opts.format, render.Formats...); err != nil {
				return err
			}
			opts.format = strings.ToLower(opts.format)

			ctx := cmd.Context()
			ch, raw, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}
			cch, err := c.newCache(ctx, opts.noCache)
			if err != nil {
				return err
			}
			defer cch.Close()

			out, cached, err := renderPage(ctx, ch, raw, &opts, cch, c.Config.Cache.TTL.Std())
			if err != nil {
				return err
			}
			if err := writeOutput(opts.output, out); err != nil {
				return err
			}
			if opts.output != "" && opts.output != stdio {
				status := iconFresh
				if cached {
					status = iconCached
				}
				printSuccess("Rendered page %s as %s %s", opts.page, strings.ToUpper(opts.format), StyleDim.Render(status))
				printFile(opts.output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: dot, svg, pdf, png (default: from --output, else svg)")
	cmd.Flags().StringVarP(&opts.page, "page", "p", opts.page, "page or page range lo:hi")
	cmd.Flags().Float64SliceVar(&opts.box, "box", nil, "xmin,xmax,ymin,ymax (default: chart x and y ranges)")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label every class with its degree")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

// formatFromPath infers the output format from a file extension.
func formatFromPath(path string) string {
	switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext {
	case "dot", "gv":
		return "dot"
	case "svg", "pdf", "png":
		return ext
	}
	return "svg"
}

// renderPage renders one page of ch. raw is the snapshot the chart was
// decoded from and keys the cache.
func renderPage(ctx context.Context, ch *chart.Chart, raw []byte, opts *renderOpts, cch cache.Cache, ttl time.Duration) ([]byte, bool, error) {
	logger := loggerFromContext(ctx)

	r, err := page.ParseRange(opts.page)
	if err != nil {
		return nil, false, err
	}
	box, err := viewBox(ch, opts.box)
	if err != nil {
		return nil, false, err
	}

	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "chart:"+ch.UUID+":")
	key := keyer.RenderKey(cache.Hash(raw), cache.RenderKeyOpts{
		Format: fmt.Sprintf("%s@%g/%t", opts.format, opts.scale, opts.detailed),
		Page:   r.String(),
		Box:    box[:],
	})
	if data, ok, err := cache.Lookup(ctx, cch, cache.KeyTypeRender, key); err != nil {
		logger.Warn("cache lookup failed", "err", err)
	} else if ok {
		return data, true, nil
	}

	dot, err := render.ToDOT(ch, render.Options{Page: r, Box: box, Detailed: opts.detailed})
	if err != nil {
		return nil, false, err
	}

	var spin *Spinner
	if opts.format == "pdf" || opts.format == "png" {
		spin = newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", strings.ToUpper(opts.format)))
		spin.Start()
	}
	prog := newProgress(logger)
	out, err := render.Render(ctx, dot, opts.format, opts.scale)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return nil, false, err
	}
	prog.done(fmt.Sprintf("Rendered page %s (%d bytes)", r, len(out)))

	if err := cache.Store(ctx, cch, cache.KeyTypeRender, key, out, ttl); err != nil {
		logger.Warn("cache write failed", "err", err)
	}
	return out, false, nil
}
