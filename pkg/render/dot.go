package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/page"
)

// Options configures DOT generation.
type Options struct {
	// Page is the page range to draw.
	Page page.Range

	// Box limits the drawn classes to [xmin, xmax, ymin, ymax]. The zero
	// box uses the chart's x and y ranges.
	Box [4]float64

	// Unit is the distance in points between adjacent degrees. Defaults
	// to 72.
	Unit float64

	// Detailed labels classes with their name and degree instead of the
	// name alone.
	Detailed bool
}

// DefaultUnit is the default grid spacing in points.
const DefaultUnit = 72

func (o Options) withDefaults(c *chart.Chart) Options {
	if o.Box == [4]float64{} {
		o.Box = [4]float64{c.XRange[0], c.XRange[1], c.YRange[0], c.YRange[1]}
	}
	if o.Unit <= 0 {
		o.Unit = DefaultUnit
	}
	return o
}

// ToDOT converts the elements of c drawn on opts.Page into Graphviz DOT.
func ToDOT(c *chart.Chart, opts Options) (string, error) {
	opts = opts.withDefaults(c)
	p := opts.Page.Lo()
	classes, edges := c.ElementsToDraw(opts.Page, opts.Box[0], opts.Box[1], opts.Box[2], opts.Box[3])

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", graphName(c, opts.Page))
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  notranslate=true;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  node [shape=circle, style=filled, fixedsize=true, width=0.15, fontsize=10, label=\"\"];\n")
	buf.WriteString("  edge [arrowhead=none];\n")
	buf.WriteString("\n")

	for _, cl := range classes {
		attrs, err := classAttrs(cl, p, opts)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", cl.UUID(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.SourceUUID(), e.TargetUUID(), strings.Join(edgeAttrs(e, p), ", "))
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func graphName(c *chart.Chart, r page.Range) string {
	name := c.Name
	if name == "" {
		name = "chart"
	}
	return fmt.Sprintf("%s E%s", name, r)
}

func classAttrs(cl *chart.Class, p page.Page, opts Options) ([]string, error) {
	// Unindexed classes sit on their grid position.
	dx, err := cl.XOffset(p)
	if err != nil {
		dx = 0
	}
	x := cl.X()*opts.Unit + dx
	y := cl.Y()*opts.Unit + cl.YOffset(p)
	if math.IsNaN(x) || math.IsNaN(y) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "class %s has no finite position", cl.UUID())
	}

	scale := cl.Scale.Get(p)
	attrs := []string{
		fmt.Sprintf("pos=\"%.2f,%.2f!\"", x, y),
		fmt.Sprintf("width=%.3f", 0.15*scale),
		fmt.Sprintf("fillcolor=%q", hex(cl.BackgroundColor.Get(p))),
		fmt.Sprintf("color=%q", hex(cl.BorderColor.Get(p))),
		fmt.Sprintf("penwidth=%.2f", cl.BorderWidth.Get(p)/chart.DefaultLineWidth),
		fmt.Sprintf("tooltip=%q", tooltip(cl)),
	}
	if name := cl.Name.Get(p); name != "" || opts.Detailed {
		attrs = append(attrs, fmt.Sprintf("xlabel=%q", classLabel(cl, name, opts.Detailed)), fmt.Sprintf("fontcolor=%q", hex(cl.ForegroundColor.Get(p))))
	}
	return attrs, nil
}

func classLabel(cl *chart.Class, name string, detailed bool) string {
	if !detailed {
		return name
	}
	parts := make([]string, len(cl.Degree()))
	for i, d := range cl.Degree() {
		parts[i] = fmt.Sprint(d)
	}
	deg := "(" + strings.Join(parts, ", ") + ")"
	if name == "" {
		return deg
	}
	return name + " " + deg
}

func tooltip(cl *chart.Class) string {
	if idx, ok := cl.Idx(); ok {
		return fmt.Sprintf("%s #%d", cl.UUID(), idx)
	}
	return cl.UUID()
}

func edgeAttrs(e chart.Edge, p page.Page) []string {
	st := e.Style(p)
	attrs := []string{
		fmt.Sprintf("id=%q", e.UUID()),
		fmt.Sprintf("color=%q", hex(st.Color)),
		fmt.Sprintf("penwidth=%.2f", st.LineWidth/chart.DefaultLineWidth),
		"class=" + fmt.Sprintf("%q", strings.TrimPrefix(e.Kind().String(), "Chart")),
	}
	if len(st.DashPattern) > 0 {
		attrs = append(attrs, "style=dashed")
	}
	if !st.EndTip.IsNone() {
		attrs = append(attrs, "arrowhead=normal")
	}
	if !st.StartTip.IsNone() {
		attrs = append(attrs, "arrowtail=normal", "dir=both")
	}
	return attrs
}

// hex formats an RGBA color as #rrggbbaa.
func hex(c chart.Color) string {
	var b [4]int
	for i, v := range c {
		b[i] = int(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", b[0], b[1], b[2], b[3])
}
