// Package pkg provides the libraries behind sseqchart.
//
// # Overview
//
// sseqchart models spectral sequence charts: classes placed by degree and
// joined by structlines, differentials and extensions, whose display
// properties vary from page to page. The pkg directory is organized as:
//
//  1. [page] - pages, page ranges and page-dependent properties
//  2. [walker] - the typed JSON reviver used to decode snapshots
//  3. [chart] - classes, edges and the chart container
//  4. [protocol] - wire messages, command dispatch and batching
//  5. [render] - Graphviz rendering of a page
//  6. [cache] and [store] - derived artifacts and persisted snapshots
//  7. [errors] and [observability] - coded errors and instrumentation hooks
//
// # Data Flow
//
//	chart messages (JSON)
//	         ↓
//	    [protocol] Dispatcher (decode, route by command prefix)
//	         ↓
//	    [chart] ApplyMessages (atomic batch, pending edges)
//	         ↓
//	    snapshot JSON → [store] / [cache]
//	         ↓
//	    [render] ElementsToDraw → DOT → SVG/PDF/PNG
//
// # Quick Start
//
//	c := chart.New(chart.Options{Name: "S"})
//	d := protocol.NewDispatcher(c)
//	err := d.HandleRaw(ctx, []byte(`{"cmd": "chart.class.add",
//	    "kwargs": {"new_class": {"type": "ChartClass", "degree": [0, 0]}}}`))
//
//	dot, err := render.ToDOT(c, render.Options{Page: page.Range{2, 2}})
//	svg, err := render.RenderSVG(ctx, dot)
package pkg
