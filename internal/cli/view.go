package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/page"
)

func (c *CLI) viewCommand() *cobra.Command {
	var box []float64

	cmd := &cobra.Command{
		Use:   "view <snapshot.json>",
		Short: "Browse a chart page by page in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, _, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}
			b, err := viewBox(ch, box)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(newPageModel(ch, b), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().Float64SliceVar(&box, "box", nil, "xmin,xmax,ymin,ymax (default: chart x and y ranges)")
	return cmd
}

var (
	pageTabStyle    = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)
	pageActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
)

// pageModel is the bubbletea model that steps through a chart's page list.
type pageModel struct {
	chart  *chart.Chart
	pages  []page.Range
	box    [4]float64
	cursor int // index into pages
	offset int // first class row shown
	height int // class rows shown

	classes []*chart.Class
	edges   []chart.Edge
}

func newPageModel(c *chart.Chart, box [4]float64) pageModel {
	pages := c.PageList
	if len(pages) == 0 {
		pages = []page.Range{{2, page.Infinity}}
	}
	m := pageModel{chart: c, pages: pages, box: box, height: 15}
	m.refresh()
	return m
}

func (m *pageModel) refresh() {
	m.classes, m.edges = m.chart.ElementsToDraw(m.pages[m.cursor], m.box[0], m.box[1], m.box[2], m.box[3])
	m.offset = 0
}

func (m pageModel) Init() tea.Cmd {
	return nil
}

func (m pageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			if m.cursor > 0 {
				m.cursor--
				m.refresh()
			}
		case "right", "l":
			if m.cursor < len(m.pages)-1 {
				m.cursor++
				m.refresh()
			}
		case "up", "k":
			if m.offset > 0 {
				m.offset--
			}
		case "down", "j":
			if m.offset+m.height < len(m.classes) {
				m.offset++
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 10
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m pageModel) View() string {
	var b strings.Builder

	name := m.chart.Name
	if name == "" {
		name = m.chart.UUID
	}
	b.WriteString(StyleTitle.Render(name))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("←/→ page  ↑/↓ scroll  q quit"))
	b.WriteString("\n\n")

	tabs := make([]string, len(m.pages))
	for i, r := range m.pages {
		label := "E" + r.String()
		if i == m.cursor {
			tabs[i] = pageActiveStyle.Render(label)
		} else {
			tabs[i] = pageTabStyle.Render(label)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n")
	b.WriteString(statsLine(len(m.classes), len(m.edges), false))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(edgeSummary(m.edges)))
	b.WriteString("\n\n")

	if len(m.classes) == 0 {
		b.WriteString(StyleDim.Render("  nothing drawn on this page"))
		b.WriteString("\n")
		return b.String()
	}

	p := m.pages[m.cursor].Lo()
	end := min(m.offset+m.height, len(m.classes))
	rows := make([][]string, 0, end-m.offset)
	for _, cl := range m.classes[m.offset:end] {
		rows = append(rows, []string{cl.UUID(), formatDegree(cl.Degree()), cl.Name.Get(p)})
	}
	b.WriteString(renderTable([]string{"Class", "Degree", "Name"}, rows))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d-%d/%d]", m.offset+1, end, len(m.classes))))
	return b.String()
}

// edgeSummary counts edges by kind, e.g. "2 ChartStructline, 1 ChartDifferential".
func edgeSummary(edges []chart.Edge) string {
	var (
		order  []chart.Kind
		counts = make(map[chart.Kind]int)
	)
	for _, e := range edges {
		if counts[e.Kind()] == 0 {
			order = append(order, e.Kind())
		}
		counts[e.Kind()]++
	}
	parts := make([]string, len(order))
	for i, k := range order {
		parts[i] = fmt.Sprintf("%d %s", counts[k], k)
	}
	return strings.Join(parts, ", ")
}
