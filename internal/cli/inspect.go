package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/page"
)

func (c *CLI) inspectCommand() *cobra.Command {
	var (
		pageFlag string
		box      []float64
	)

	cmd := &cobra.Command{
		Use:   "inspect <snapshot.json>",
		Short: "List the classes and edges drawn on a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, _, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}
			r, err := page.ParseRange(pageFlag)
			if err != nil {
				return err
			}
			b, err := viewBox(ch, box)
			if err != nil {
				return err
			}
			fmt.Print(inspectReport(ch, r, b))
			return nil
		},
	}

	cmd.Flags().StringVarP(&pageFlag, "page", "p", "2", "page or page range lo:hi")
	cmd.Flags().Float64SliceVar(&box, "box", nil, "xmin,xmax,ymin,ymax (default: chart x and y ranges)")

	return cmd
}

// viewBox returns the drawing box: the four values of box, or the chart
// ranges when box is empty.
func viewBox(c *chart.Chart, box []float64) ([4]float64, error) {
	switch len(box) {
	case 0:
		return [4]float64{c.XRange[0], c.XRange[1], c.YRange[0], c.YRange[1]}, nil
	case 4:
		return [4]float64{box[0], box[1], box[2], box[3]}, nil
	}
	return [4]float64{}, fmt.Errorf("--box needs 4 values, got %d", len(box))
}

// inspectReport renders the header, the class table and the edge table
// for page range r.
func inspectReport(c *chart.Chart, r page.Range, box [4]float64) string {
	classes, edges := c.ElementsToDraw(r, box[0], box[1], box[2], box[3])
	p := r.Lo()

	var b strings.Builder
	name := c.Name
	if name == "" {
		name = c.UUID
	}
	b.WriteString(StyleTitle.Render(name))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  page %s  x %g..%g  y %g..%g", r, box[0], box[1], box[2], box[3])))
	b.WriteString("\n")
	b.WriteString(statsLine(len(classes), len(edges), false))
	b.WriteString("\n\n")

	if len(classes) > 0 {
		rows := make([][]string, 0, len(classes))
		for _, cl := range classes {
			off := "?"
			if dx, err := cl.XOffset(p); err == nil {
				off = strconv.FormatFloat(dx, 'g', 4, 64)
			}
			rows = append(rows, []string{
				cl.UUID(),
				formatDegree(cl.Degree()),
				cl.Name.Get(p),
				strconv.FormatFloat(cl.X(), 'g', 4, 64),
				strconv.FormatFloat(cl.Y(), 'g', 4, 64),
				off,
			})
		}
		b.WriteString(renderTable([]string{"Class", "Degree", "Name", "X", "Y", "Offset"}, rows))
		b.WriteString("\n")
	}

	if len(edges) > 0 {
		rows := make([][]string, 0, len(edges))
		for _, e := range edges {
			rows = append(rows, []string{e.UUID(), e.Kind().String(), e.SourceUUID(), e.TargetUUID()})
		}
		b.WriteString(renderTable([]string{"Edge", "Kind", "Source", "Target"}, rows))
		b.WriteString("\n")
	}
	return b.String()
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleHeader
			case col == 0:
				return StyleHighlight
			}
			return StyleValue
		}).
		Render()
}

func formatDegree(d []int) string {
	parts := make([]string, len(d))
	for i, v := range d {
		parts[i] = strconv.Itoa(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
