package chart

import "github.com/matzehuels/sseqchart/pkg/page"

// ElementsToDraw returns what a renderer draws for the page range r inside
// the box [xmin, xmax] x [ymin, ymax].
//
// A class is drawn when it is in the box and drawn on r's lower page. An
// edge is drawn when it is relevant to r, both endpoints are drawn on the
// lower page and at least one endpoint is in the box. Endpoints of drawn
// edges that lie outside the box are appended to the class list.
func (c *Chart) ElementsToDraw(r page.Range, xmin, xmax, ymin, ymax float64) ([]*Class, []Edge) {
	lo := r.Lo()
	displayed := make(map[string]bool)
	var classes []*Class
	for _, cl := range c.Classes() {
		if cl.InRangeQ(xmin, xmax, ymin, ymax) && cl.DrawOnPageQ(lo) {
			classes = append(classes, cl)
			displayed[cl.uuid] = true
		}
	}

	var edges []Edge
	for _, e := range c.Edges() {
		src, err := e.Source()
		if err != nil {
			continue
		}
		tgt, err := e.Target()
		if err != nil {
			continue
		}
		if !e.DrawOnPageQ(r) || !src.DrawOnPageQ(lo) || !tgt.DrawOnPageQ(lo) {
			continue
		}
		if !src.InRangeQ(xmin, xmax, ymin, ymax) && !tgt.InRangeQ(xmin, xmax, ymin, ymax) {
			continue
		}
		edges = append(edges, e)
	}

	for _, e := range edges {
		for _, id := range []string{e.SourceUUID(), e.TargetUUID()} {
			if !displayed[id] {
				displayed[id] = true
				classes = append(classes, c.classes[id])
			}
		}
	}
	return classes, edges
}
