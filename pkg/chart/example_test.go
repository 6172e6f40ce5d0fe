package chart_test

import (
	"fmt"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/page"
)

func Example() {
	c := chart.New(chart.Options{Name: "toy"})

	h0, _ := c.AddClass(chart.ClassOptions{UUID: "h0", Degree: []int{0, 1}})
	one, _ := c.AddClass(chart.ClassOptions{UUID: "1", Degree: []int{0, 0}})
	h1, _ := c.AddClass(chart.ClassOptions{UUID: "h1", Degree: []int{1, 1}})

	_, _ = c.AddStructline(chart.StructlineOptions{EdgeOptions: chart.EdgeOptions{
		UUID: "h0-mult", SourceUUID: one.UUID(), TargetUUID: h0.UUID(),
	}})
	_, _ = c.AddDifferential(chart.DifferentialOptions{
		EdgeOptions: chart.EdgeOptions{UUID: "d2", SourceUUID: h1.UUID(), TargetUUID: h0.UUID()},
		Page:        2,
		Auto:        true,
	})

	for _, r := range []page.Range{{2, 2}, {3, 3}} {
		classes, edges := c.ElementsToDraw(r, 0, 10, 0, 10)
		fmt.Printf("page %s: %d classes, %d edges\n", r, len(classes), len(edges))
	}
	// Output:
	// page 2: 3 classes, 2 edges
	// page 3: 1 classes, 0 edges
}
