package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"
)

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="(-?[0-9.]+)\s+(-?[0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's root element with one that scales
// to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	x, _ := strconv.ParseFloat(string(match[1]), 64)
	y, _ := strconv.ParseFloat(string(match[2]), 64)
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.2f %.2f %.2f %.2f" width="%.0f" height="%.0f">`,
		x, y, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// Render produces the chart page in format: "dot", "svg", "pdf" or "png".
func Render(ctx context.Context, dot, format string, scale float64) ([]byte, error) {
	switch format {
	case "dot":
		return []byte(dot), nil
	case "svg":
		return RenderSVG(ctx, dot)
	case "pdf":
		svg, err := RenderSVG(ctx, dot)
		if err != nil {
			return nil, err
		}
		return ToPDF(ctx, svg)
	case "png":
		svg, err := RenderSVG(ctx, dot)
		if err != nil {
			return nil, err
		}
		return ToPNG(ctx, svg, scale)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// Formats lists the formats accepted by Render.
var Formats = []string{"dot", "svg", "pdf", "png"}
