package chart

import (
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/page"
)

const (
	// DefaultNumGradings is the number of degree components of a new chart.
	DefaultNumGradings = 2
	// DefaultOffsetSize is the horizontal spacing of classes sharing a degree.
	DefaultOffsetSize = 45
)

// Options configures a new chart.
type Options struct {
	Name        string
	UUID        string      // fresh uuid when empty
	NumGradings int         // at least 2; DefaultNumGradings when smaller
	OffsetSize  float64     // DefaultOffsetSize when zero
	Logger      *log.Logger // discard when nil
}

// Chart owns the classes and edges of a spectral sequence chart, keyed by
// uuid, together with its display state.
//
// A Chart is not safe for concurrent use; callers serialize access.
type Chart struct {
	Name          string
	UUID          string
	PageList      []page.Range
	XRange        [2]float64
	YRange        [2]float64
	InitialXRange [2]float64
	InitialYRange [2]float64
	OffsetSize    float64

	numGradings int
	xProjection []float64
	yProjection []float64

	classes      map[string]*Class
	edges        map[string]Edge
	pending      map[string]Edge
	pendingOrder []string
	byDegree     map[string][]*Class

	logger  *log.Logger
	subs    map[int]func(Event)
	nextSub int
	buffer  *[]Event
	journal *[]func()
}

// New returns an empty chart.
func New(opts Options) *Chart {
	n := opts.NumGradings
	if n < 2 {
		n = DefaultNumGradings
	}
	off := opts.OffsetSize
	if off == 0 {
		off = DefaultOffsetSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	id := opts.UUID
	if id == "" {
		id = uuid.NewString()
	}
	xp := make([]float64, n)
	yp := make([]float64, n)
	xp[0], yp[1] = 1, 1

	return &Chart{
		Name:          opts.Name,
		UUID:          id,
		PageList:      []page.Range{{2, page.Infinity}, {page.Infinity, page.Infinity}},
		XRange:        [2]float64{0, 10},
		YRange:        [2]float64{0, 10},
		InitialXRange: [2]float64{0, 10},
		InitialYRange: [2]float64{0, 10},
		OffsetSize:    off,
		numGradings:   n,
		xProjection:   xp,
		yProjection:   yp,
		classes:       make(map[string]*Class),
		edges:         make(map[string]Edge),
		pending:       make(map[string]Edge),
		byDegree:      make(map[string][]*Class),
		logger:        logger,
	}
}

// SetLogger replaces the chart's logger.
func (c *Chart) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard)
	}
	c.logger = l
}

// NumGradings returns the number of degree components.
func (c *Chart) NumGradings() int { return c.numGradings }

// XProjection returns a copy of the vector projecting degrees onto x.
func (c *Chart) XProjection() []float64 { return slices.Clone(c.xProjection) }

// YProjection returns a copy of the vector projecting degrees onto y.
func (c *Chart) YProjection() []float64 { return slices.Clone(c.yProjection) }

// SetProjections replaces both projection vectors and recomputes every
// class position.
func (c *Chart) SetProjections(x, y []float64) error {
	if err := c.setProjections(x, y); err != nil {
		return err
	}
	c.changed()
	return nil
}

func (c *Chart) setProjections(x, y []float64) error {
	if len(x) != c.numGradings {
		return errors.New(errors.ErrCodeInvalidInput, "projection has %d components, chart has %d gradings", len(x), c.numGradings).WithField("x_projection")
	}
	if len(y) != c.numGradings {
		return errors.New(errors.ErrCodeInvalidInput, "projection has %d components, chart has %d gradings", len(y), c.numGradings).WithField("y_projection")
	}
	c.xProjection = slices.Clone(x)
	c.yProjection = slices.Clone(y)
	for _, cl := range c.classes {
		cl.updateProjection(c.xProjection, c.yProjection)
	}
	return nil
}

// ==========================================================================
// Read access
// ==========================================================================

// Class returns the class with the given uuid.
func (c *Chart) Class(id string) (*Class, bool) {
	cl, ok := c.classes[id]
	return cl, ok
}

// Edge returns the resolved edge with the given uuid.
func (c *Chart) Edge(id string) (Edge, bool) {
	e, ok := c.edges[id]
	return e, ok
}

// Classes returns every class sorted by uuid.
func (c *Chart) Classes() []*Class {
	out := make([]*Class, 0, len(c.classes))
	for _, id := range sortedKeys(c.classes) {
		out = append(out, c.classes[id])
	}
	return out
}

// Edges returns every resolved edge sorted by uuid.
func (c *Chart) Edges() []Edge {
	out := make([]Edge, 0, len(c.edges))
	for _, id := range sortedKeys(c.edges) {
		out = append(out, c.edges[id])
	}
	return out
}

// Pending returns the edges whose endpoints are not all present yet, in
// the order they were added.
func (c *Chart) Pending() []Edge {
	out := make([]Edge, 0, len(c.pendingOrder))
	for _, id := range c.pendingOrder {
		out = append(out, c.pending[id])
	}
	return out
}

// NumClasses returns the number of classes.
func (c *Chart) NumClasses() int { return len(c.classes) }

// NumEdges returns the number of resolved edges.
func (c *Chart) NumEdges() int { return len(c.edges) }

func degreeKey(degree []int) string {
	parts := make([]string, len(degree))
	for i, d := range degree {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// ClassesInDegree returns the classes of the given degree ordered by index.
func (c *Chart) ClassesInDegree(degree ...int) []*Class {
	if len(degree) != c.numGradings {
		return nil
	}
	return slices.Clone(c.byDegree[degreeKey(degree)])
}

// ClassByIndex returns the class at a position within a degree. The last
// argument is the position; the others are the degree.
func (c *Chart) ClassByIndex(args ...int) (*Class, error) {
	if len(args) != c.numGradings+1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected %d arguments (degree and index), got %d", c.numGradings+1, len(args))
	}
	degree, idx := args[:len(args)-1], args[len(args)-1]
	group := c.byDegree[degreeKey(degree)]
	if idx < 0 || idx >= len(group) {
		return nil, errors.New(errors.ErrCodeNotFound, "fewer than %d classes in degree %v", idx+1, degree)
	}
	return group[idx], nil
}

func (c *Chart) incidentEdges(classID string) []Edge {
	var out []Edge
	for _, id := range sortedKeys(c.edges) {
		e := c.edges[id]
		if e.SourceUUID() == classID || e.TargetUUID() == classID {
			out = append(out, e)
		}
	}
	return out
}

// ==========================================================================
// Classes
// ==========================================================================

// AddClass creates a class and registers it.
func (c *Chart) AddClass(opts ClassOptions) (*Class, error) {
	cl, err := NewClass(opts)
	if err != nil {
		return nil, err
	}
	if err := c.commitClass(cl); err != nil {
		return nil, err
	}
	c.changed(Event{Type: EventClassAdded, UUID: cl.uuid})
	return cl, nil
}

// commitClass registers cl, assigning its index within its degree.
func (c *Chart) commitClass(cl *Class) error {
	if len(cl.degree) != c.numGradings {
		return errors.New(errors.ErrCodeInvalidInput, "degree %v has %d components, chart has %d gradings", cl.degree, len(cl.degree), c.numGradings).WithField("degree")
	}
	if _, dup := c.classes[cl.uuid]; dup {
		return errors.New(errors.ErrCodeInvalidInput, "class %s already exists", cl.uuid).WithField("uuid")
	}
	key := degreeKey(cl.degree)
	group := c.byDegree[key]
	if cl.idx < 0 {
		next := 0
		for _, g := range group {
			if g.idx >= next {
				next = g.idx + 1
			}
		}
		cl.idx = next
	} else {
		for _, g := range group {
			if g.idx == cl.idx {
				return errors.New(errors.ErrCodeInvalidInput, "index %d already used in degree %v", cl.idx, cl.degree).WithField("idx")
			}
		}
	}
	c.keepGroup(key)
	c.keepClassEntry(cl.uuid)
	pos := sort.Search(len(group), func(i int) bool { return group[i].idx > cl.idx })
	c.byDegree[key] = slices.Insert(group, pos, cl)

	cl.chart = c
	cl.updateProjection(c.xProjection, c.yProjection)
	c.classes[cl.uuid] = cl
	return nil
}

// DeleteClass removes a class together with every edge that references it.
func (c *Chart) DeleteClass(id string) error {
	cl, ok := c.classes[id]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "no class with uuid %s", id).WithField("uuid")
	}
	var evs []Event
	for _, e := range c.incidentEdges(id) {
		c.removeEdge(e.UUID())
		evs = append(evs, Event{Type: EventEdgeDeleted, UUID: e.UUID()})
	}
	for _, pid := range slices.Clone(c.pendingOrder) {
		e := c.pending[pid]
		if e.SourceUUID() == id || e.TargetUUID() == id {
			c.removeEdge(pid)
		}
	}

	key := degreeKey(cl.degree)
	c.keepGroup(key)
	c.keepClassEntry(id)
	group := slices.DeleteFunc(c.byDegree[key], func(g *Class) bool { return g == cl })
	if len(group) == 0 {
		delete(c.byDegree, key)
	} else {
		c.byDegree[key] = group
	}
	delete(c.classes, id)
	cl.chart = nil

	c.changed(append(evs, Event{Type: EventClassDeleted, UUID: id})...)
	return nil
}

// UpdateClass applies a patch to the class named by id.
func (c *Chart) UpdateClass(id string, fields map[string]any) error {
	cl, ok := c.classes[id]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "no class with uuid %s", id).WithField("uuid")
	}
	c.keepClass(cl)
	return cl.Update(fields)
}

// ==========================================================================
// Edges
// ==========================================================================

// AddStructline creates a structline between two registered classes.
func (c *Chart) AddStructline(opts StructlineOptions) (*Structline, error) {
	e, err := NewStructline(opts)
	if err != nil {
		return nil, err
	}
	return e, c.addEdge(e)
}

// AddDifferential creates a differential between two registered classes.
func (c *Chart) AddDifferential(opts DifferentialOptions) (*Differential, error) {
	e, err := NewDifferential(opts)
	if err != nil {
		return nil, err
	}
	return e, c.addEdge(e)
}

// AddExtension creates an extension between two registered classes.
func (c *Chart) AddExtension(opts ExtensionOptions) (*Extension, error) {
	e, err := NewExtension(opts)
	if err != nil {
		return nil, err
	}
	return e, c.addEdge(e)
}

// AddEdge decodes wire fields, choosing the variant from "type", and
// registers the edge. Both endpoints must already be present.
func (c *Chart) AddEdge(fields map[string]any) (Edge, error) {
	e, err := DecodeEdge(fields)
	if err != nil {
		return nil, err
	}
	if err := c.addEdge(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (c *Chart) addEdge(e Edge) error {
	added, err := c.commitEdge(e, false)
	if err != nil {
		return err
	}
	if added {
		c.changed()
	}
	return nil
}

// commitEdge registers e. An edge with a missing endpoint is an error, or
// is parked in the pending set when allowPending is set. It reports whether
// the edge was added to the resolved set.
func (c *Chart) commitEdge(e Edge, allowPending bool) (bool, error) {
	id := e.UUID()
	if _, dup := c.edges[id]; dup {
		return false, errors.New(errors.ErrCodeInvalidInput, "edge %s already exists", id).WithField("uuid")
	}
	if _, dup := c.pending[id]; dup {
		return false, errors.New(errors.ErrCodeInvalidInput, "edge %s already exists", id).WithField("uuid")
	}
	e.base().chart = c
	if err := c.checkEndpoints(e); err != nil {
		if !allowPending {
			e.base().chart = nil
			return false, err
		}
		c.keepEdgeEntry(id)
		c.keepPendingOrder()
		c.pending[id] = e
		c.pendingOrder = append(c.pendingOrder, id)
		c.logger.Debug("edge pending", "uuid", id, "source", e.SourceUUID(), "target", e.TargetUUID())
		return false, nil
	}
	c.keepEdgeEntry(id)
	c.resolveEdge(e)
	return true, nil
}

func (c *Chart) checkEndpoints(e Edge) error {
	if _, err := e.Source(); err != nil {
		return err
	}
	_, err := e.Target()
	return err
}

// resolveEdge moves e into the resolved set. Auto differentials lower the
// max page of their endpoints and register their page.
func (c *Chart) resolveEdge(e Edge) {
	c.edges[e.UUID()] = e
	if d, ok := e.(*Differential); ok && d.auto {
		for _, id := range []string{d.source, d.target} {
			if cl := c.classes[id]; cl.MaxPage > d.page {
				c.keepClass(cl)
				cl.MaxPage = d.page
			}
		}
		c.insertPageRange(page.Range{d.page, d.page})
	}
	c.emit(Event{Type: EventEdgeAdded, UUID: e.UUID()})
}

// ResolvePending retries every pending edge. Edges whose endpoints are
// still missing stay pending; their DANGLING_REFERENCE errors are joined.
func (c *Chart) ResolvePending() error {
	resolved, err := c.resolvePending()
	if resolved > 0 {
		c.changed()
	}
	return err
}

func (c *Chart) resolvePending() (int, error) {
	var (
		errs     []error
		resolved int
		still    []string
	)
	c.keepPendingOrder()
	for _, id := range c.pendingOrder {
		e := c.pending[id]
		if err := c.checkEndpoints(e); err != nil {
			errs = append(errs, errors.Wrap(errors.ErrCodeDanglingReference, err, "edge %s", id))
			still = append(still, id)
			continue
		}
		c.keepEdgeEntry(id)
		delete(c.pending, id)
		c.resolveEdge(e)
		resolved++
	}
	c.pendingOrder = still
	return resolved, joinErrors(errs)
}

// DeleteEdge removes an edge, resolved or pending.
func (c *Chart) DeleteEdge(id string) error {
	_, resolved := c.edges[id]
	if _, pending := c.pending[id]; !resolved && !pending {
		return errors.New(errors.ErrCodeNotFound, "no edge with uuid %s", id).WithField("uuid")
	}
	c.removeEdge(id)
	if resolved {
		c.changed(Event{Type: EventEdgeDeleted, UUID: id})
	}
	return nil
}

// UpdateEdge applies a patch to the edge named by id, resolved or pending.
func (c *Chart) UpdateEdge(id string, fields map[string]any) error {
	e, ok := c.edges[id]
	if !ok {
		e, ok = c.pending[id]
	}
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "no edge with uuid %s", id).WithField("uuid")
	}
	c.keepEdge(e)
	return e.Update(fields)
}

func (c *Chart) removeEdge(id string) {
	c.keepEdgeEntry(id)
	if _, ok := c.pending[id]; ok {
		c.keepPendingOrder()
	}
	var e Edge
	if x, ok := c.edges[id]; ok {
		e = x
		delete(c.edges, id)
	} else if x, ok := c.pending[id]; ok {
		e = x
		delete(c.pending, id)
		c.pendingOrder = slices.DeleteFunc(c.pendingOrder, func(p string) bool { return p == id })
	}
	if e != nil {
		e.base().chart = nil
	}
}

// ==========================================================================
// Chart-wide state
// ==========================================================================

// AddPageRange inserts r into the page list, keeping it ordered by lower
// bound. It reports whether r was new.
func (c *Chart) AddPageRange(r page.Range) bool {
	if !c.insertPageRange(r) {
		return false
	}
	c.changed()
	return true
}

func (c *Chart) insertPageRange(r page.Range) bool {
	if slices.Contains(c.PageList, r) {
		return false
	}
	c.keepChartFields()
	pos := len(c.PageList)
	for i, p := range c.PageList {
		if p.Lo() > r.Lo() {
			pos = i
			break
		}
	}
	c.PageList = slices.Insert(c.PageList, pos, r)
	return true
}

// SetXRange sets the x extent of the chart.
func (c *Chart) SetXRange(lo, hi float64) { c.XRange = [2]float64{lo, hi}; c.changed() }

// SetYRange sets the y extent of the chart.
func (c *Chart) SetYRange(lo, hi float64) { c.YRange = [2]float64{lo, hi}; c.changed() }

// SetInitialXRange sets the x extent shown when a display opens the chart.
func (c *Chart) SetInitialXRange(lo, hi float64) { c.InitialXRange = [2]float64{lo, hi}; c.changed() }

// SetInitialYRange sets the y extent shown when a display opens the chart.
func (c *Chart) SetInitialYRange(lo, hi float64) { c.InitialYRange = [2]float64{lo, hi}; c.changed() }

// Update applies a patch of chart-wide fields. uuid and num_gradings may
// only repeat their current values; classes and edges are changed through
// their own messages.
func (c *Chart) Update(fields map[string]any) error {
	fields, err := revive(fields)
	if err != nil {
		return err
	}
	next := *c
	var xp, yp []float64
	for _, key := range sortedKeys(fields) {
		v := fields[key]
		var err error
		switch key {
		case "type":
			if s, _ := v.(string); s != KindChart.String() {
				err = errors.New(errors.ErrCodeInconsistentField, "expected %q, got %v", KindChart, v)
			}
		case "uuid":
			var s string
			if s, err = toString(v); err == nil && s != c.UUID {
				err = errors.New(errors.ErrCodeInconsistentField, "inconsistent values %q and %q", c.UUID, s)
			}
		case "num_gradings":
			var f float64
			if f, err = toFloat(v); err == nil && int(f) != c.numGradings {
				err = errors.New(errors.ErrCodeInconsistentField, "inconsistent values %d and %v", c.numGradings, f)
			}
		case "name":
			next.Name, err = toString(v)
		case "page_list":
			next.PageList, err = toPageList(v)
		case "x_range":
			next.XRange, err = toInterval(v)
		case "y_range":
			next.YRange, err = toInterval(v)
		case "initial_x_range":
			next.InitialXRange, err = toInterval(v)
		case "initial_y_range":
			next.InitialYRange, err = toInterval(v)
		case "offset_size":
			next.OffsetSize, err = toFloat(v)
		case "x_projection":
			xp, err = toFloats(v)
		case "y_projection":
			yp, err = toFloats(v)
		default:
			err = errUnknownField("chart")
		}
		if err != nil {
			return fieldError(key, err)
		}
	}
	c.keepChartFields()
	if xp != nil || yp != nil {
		if xp == nil {
			xp = c.xProjection
		}
		if yp == nil {
			yp = c.yProjection
		}
		if err := c.setProjections(xp, yp); err != nil {
			return err
		}
	}
	c.Name = next.Name
	c.PageList = next.PageList
	c.XRange, c.YRange = next.XRange, next.YRange
	c.InitialXRange, c.InitialYRange = next.InitialXRange, next.InitialYRange
	c.OffsetSize = next.OffsetSize
	c.changed()
	return nil
}

func toPageList(v any) ([]page.Range, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected a list of page ranges, got %s", describe(v))
	}
	out := make([]page.Range, len(list))
	for i, item := range list {
		r, err := toRange(item)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Reset replaces the whole state of c with that of other, keeping c's
// subscribers and logger. other must not be used afterwards.
func (c *Chart) Reset(other *Chart) {
	c.adopt(other)
	c.changed(Event{Type: EventReset, UUID: c.UUID})
}

// adopt takes over other's state, re-pointing its entities at c.
func (c *Chart) adopt(other *Chart) {
	c.Name, c.UUID = other.Name, other.UUID
	c.PageList = other.PageList
	c.XRange, c.YRange = other.XRange, other.YRange
	c.InitialXRange, c.InitialYRange = other.InitialXRange, other.InitialYRange
	c.OffsetSize = other.OffsetSize
	c.numGradings = other.numGradings
	c.xProjection, c.yProjection = other.xProjection, other.yProjection
	c.classes, c.edges, c.pending = other.classes, other.edges, other.pending
	c.pendingOrder, c.byDegree = other.pendingOrder, other.byDegree
	for _, cl := range c.classes {
		cl.chart = c
	}
	for _, e := range c.edges {
		e.base().chart = c
	}
	for _, e := range c.pending {
		e.base().chart = c
	}
}

// Clone returns a deep copy of c without subscribers.
func (c *Chart) Clone() *Chart {
	cp := &Chart{
		Name:          c.Name,
		UUID:          c.UUID,
		PageList:      slices.Clone(c.PageList),
		XRange:        c.XRange,
		YRange:        c.YRange,
		InitialXRange: c.InitialXRange,
		InitialYRange: c.InitialYRange,
		OffsetSize:    c.OffsetSize,
		numGradings:   c.numGradings,
		xProjection:   slices.Clone(c.xProjection),
		yProjection:   slices.Clone(c.yProjection),
		classes:       make(map[string]*Class, len(c.classes)),
		edges:         make(map[string]Edge, len(c.edges)),
		pending:       make(map[string]Edge, len(c.pending)),
		pendingOrder:  slices.Clone(c.pendingOrder),
		byDegree:      make(map[string][]*Class, len(c.byDegree)),
		logger:        c.logger,
	}
	for id, cl := range c.classes {
		x := cl.clone()
		x.chart = cp
		cp.classes[id] = x
	}
	for key, group := range c.byDegree {
		g := make([]*Class, len(group))
		for i, cl := range group {
			g[i] = cp.classes[cl.uuid]
		}
		cp.byDegree[key] = g
	}
	for id, e := range c.edges {
		x := e.clone()
		x.base().chart = cp
		cp.edges[id] = x
	}
	for id, e := range c.pending {
		x := e.clone()
		x.base().chart = cp
		cp.pending[id] = x
	}
	return cp
}
