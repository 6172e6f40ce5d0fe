// Package render draws one page of a chart with Graphviz.
//
// # Overview
//
// [ToDOT] turns the elements a display would draw for a page range (see
// [chart.Chart.ElementsToDraw]) into Graphviz DOT source. Every class is
// pinned to its chart position, shifted by its in-degree offset, so the
// neato engine only routes edges. [RenderSVG] runs Graphviz in-process.
//
//	dot, err := render.ToDOT(c, render.Options{Page: page.Range{2, 2}})
//	svg, err := render.RenderSVG(dot)
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert SVG with the external rsvg-convert tool
// (from librsvg).
//
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// # Styling
//
// Class fill and border colors, edge colors, dash patterns, line widths and
// arrow tips are read from the page-dependent properties on the lower
// bound of the page range. Differentials are drawn as edges only on the
// pages where they are relevant; structlines disappear with their
// endpoints.
package render
