package chart

import "slices"

// The journal records how to undo each mutation made inside ApplyMessages.
// Entries capture the state they overwrite and run in reverse order on
// rollback, so a batch costs time proportional to what it touches rather
// than to the size of the chart. Outside a batch every keep* call is a
// no-op.

func (c *Chart) record(undo func()) {
	if c.journal != nil {
		*c.journal = append(*c.journal, undo)
	}
}

func rollback(journal []func()) {
	for i := len(journal) - 1; i >= 0; i-- {
		journal[i]()
	}
}

// keepChartFields records the chart-wide display state.
func (c *Chart) keepChartFields() {
	if c.journal == nil {
		return
	}
	name, pages := c.Name, slices.Clone(c.PageList)
	xr, yr, ixr, iyr := c.XRange, c.YRange, c.InitialXRange, c.InitialYRange
	off := c.OffsetSize
	xp, yp := c.xProjection, c.yProjection
	c.record(func() {
		c.Name, c.PageList = name, pages
		c.XRange, c.YRange, c.InitialXRange, c.InitialYRange = xr, yr, ixr, iyr
		c.OffsetSize = off
		if !slices.Equal(c.xProjection, xp) || !slices.Equal(c.yProjection, yp) {
			c.xProjection, c.yProjection = xp, yp
			for _, cl := range c.classes {
				cl.updateProjection(xp, yp)
			}
		}
	})
}

// keepGroup records the members of one degree.
func (c *Chart) keepGroup(key string) {
	if c.journal == nil {
		return
	}
	group, ok := c.byDegree[key]
	saved := slices.Clone(group)
	c.record(func() {
		if ok {
			c.byDegree[key] = saved
		} else {
			delete(c.byDegree, key)
		}
	})
}

// keepClassEntry records whether id is registered and, if so, which class
// it names.
func (c *Chart) keepClassEntry(id string) {
	if c.journal == nil {
		return
	}
	cl, ok := c.classes[id]
	c.record(func() {
		if !ok {
			delete(c.classes, id)
			return
		}
		c.classes[id] = cl
		cl.chart = c
	})
}

// keepClass records the contents of cl. Restoring keeps cl's identity.
func (c *Chart) keepClass(cl *Class) {
	if c.journal == nil {
		return
	}
	snap := cl.clone()
	c.record(func() { *cl = *snap })
}

// keepEdgeEntry records whether id is a resolved edge, a pending edge or
// absent.
func (c *Chart) keepEdgeEntry(id string) {
	if c.journal == nil {
		return
	}
	resolved, isResolved := c.edges[id]
	pending, isPending := c.pending[id]
	c.record(func() {
		delete(c.edges, id)
		delete(c.pending, id)
		if isResolved {
			c.edges[id] = resolved
			resolved.base().chart = c
		}
		if isPending {
			c.pending[id] = pending
			pending.base().chart = c
		}
	})
}

// keepEdge records the contents of e. Restoring keeps e's identity.
func (c *Chart) keepEdge(e Edge) {
	if c.journal == nil {
		return
	}
	snap := e.clone()
	c.record(func() { overwriteEdge(e, snap) })
}

func (c *Chart) keepPendingOrder() {
	if c.journal == nil {
		return
	}
	saved := slices.Clone(c.pendingOrder)
	c.record(func() { c.pendingOrder = saved })
}

// overwriteEdge copies snap into cur when both are the same variant.
func overwriteEdge(cur, snap Edge) bool {
	switch x := cur.(type) {
	case *Structline:
		s, ok := snap.(*Structline)
		if ok {
			*x = *s
		}
		return ok
	case *Differential:
		s, ok := snap.(*Differential)
		if ok {
			*x = *s
		}
		return ok
	case *Extension:
		s, ok := snap.(*Extension)
		if ok {
			*x = *s
		}
		return ok
	}
	return false
}
