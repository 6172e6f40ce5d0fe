package chart

import (
	"encoding/json"
	stderrors "errors"
	"maps"
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/page"
)

// ErrInvalidOffset is the cause reported by [Class.XOffset] when no offset
// can be computed.
var ErrInvalidOffset = stderrors.New("invalid class offset")

// ClassOptions configures a new class. Every optional attribute is a
// pointer; nil selects the default, so an explicit false or zero is kept.
type ClassOptions struct {
	UUID   string // fresh uuid when empty
	Degree []int  // mandatory
	Idx    *int   // position within the degree; assigned by the chart when nil

	Name            *page.Property[string]  // ""
	Visible         *page.Property[bool]    // true
	Shape           *page.Property[Shape]   // {"ty": "empty"}
	Scale           *page.Property[float64] // 1
	XNudge          *page.Property[float64] // 0
	YNudge          *page.Property[float64] // 0
	BackgroundColor *page.Property[Color]   // Black
	BorderColor     *page.Property[Color]   // Black
	ForegroundColor *page.Property[Color]   // Black
	BorderWidth     *page.Property[float64] // 3
	MaxPage         *page.Page              // Infinity
	UserData        map[string]any
}

// Class is a node of the chart at a fixed multi-degree.
type Class struct {
	chart  *Chart
	uuid   string
	degree []int
	idx    int // -1 until indexed
	x, y   float64

	Name            *page.Property[string]
	Visible         *page.Property[bool]
	Shape           *page.Property[Shape]
	Scale           *page.Property[float64]
	XNudge          *page.Property[float64]
	YNudge          *page.Property[float64]
	BackgroundColor *page.Property[Color]
	BorderColor     *page.Property[Color]
	ForegroundColor *page.Property[Color]
	BorderWidth     *page.Property[float64]
	MaxPage         page.Page
	UserData        map[string]any
}

// NewClass builds a detached class. Degree is mandatory.
func NewClass(opts ClassOptions) (*Class, error) {
	if opts.Degree == nil {
		return nil, errors.New(errors.ErrCodeConstruction, "missing mandatory field").WithField("degree")
	}
	c := &Class{
		uuid:            opts.UUID,
		degree:          slices.Clone(opts.Degree),
		idx:             -1,
		Name:            orDefault(opts.Name, ""),
		Visible:         orDefault(opts.Visible, true),
		Shape:           orDefault(opts.Shape, DefaultShape()),
		Scale:           orDefault(opts.Scale, 1.0),
		XNudge:          orDefault(opts.XNudge, 0.0),
		YNudge:          orDefault(opts.YNudge, 0.0),
		BackgroundColor: orDefault(opts.BackgroundColor, Black),
		BorderColor:     orDefault(opts.BorderColor, Black),
		ForegroundColor: orDefault(opts.ForegroundColor, Black),
		BorderWidth:     orDefault(opts.BorderWidth, 3.0),
		MaxPage:         page.Infinity,
		UserData:        map[string]any{},
	}
	if c.uuid == "" {
		c.uuid = uuid.NewString()
	}
	if opts.Idx != nil {
		if *opts.Idx < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "negative index %d", *opts.Idx).WithField("idx")
		}
		c.idx = *opts.Idx
	}
	if opts.MaxPage != nil {
		c.MaxPage = *opts.MaxPage
	}
	if opts.UserData != nil {
		c.UserData = maps.Clone(opts.UserData)
	}
	return c, nil
}

func orDefault[V any](p *page.Property[V], def V) *page.Property[V] {
	if p != nil {
		return p.Clone()
	}
	return page.New(def)
}

// UUID returns the class identity.
func (c *Class) UUID() string { return c.uuid }

// Degree returns a copy of the multi-degree.
func (c *Class) Degree() []int { return slices.Clone(c.degree) }

// Idx returns the position among classes of the same degree and whether
// one has been assigned.
func (c *Class) Idx() (int, bool) { return c.idx, c.idx >= 0 }

// Chart returns the owning chart, or nil for a detached class.
func (c *Class) Chart() *Chart { return c.chart }

// X returns the projected x coordinate.
func (c *Class) X() float64 { return c.x }

// Y returns the projected y coordinate.
func (c *Class) Y() float64 { return c.y }

// DrawOnPageQ reports whether the class is drawn on page p.
func (c *Class) DrawOnPageQ(p page.Page) bool {
	return p <= c.MaxPage && c.Visible.Get(p)
}

// InRangeQ reports whether the projected position lies in the box.
func (c *Class) InRangeQ(xmin, xmax, ymin, ymax float64) bool {
	return xmin <= c.x && c.x <= xmax && ymin <= c.y && c.y <= ymax
}

// XOffset returns the horizontal display offset on page p. Classes of one
// degree are spread symmetrically around the degree's position.
func (c *Class) XOffset(p page.Page) (float64, error) {
	if c.chart == nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, ErrInvalidOffset, "class %s is not in a chart", c.uuid)
	}
	if c.idx < 0 {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, ErrInvalidOffset, "class %s has no index", c.uuid)
	}
	n := len(c.chart.ClassesInDegree(c.degree...))
	out := (float64(c.idx)-float64(n-1)/2)*c.chart.OffsetSize + c.XNudge.Get(p)
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, ErrInvalidOffset, "class %s offset is %v", c.uuid, out)
	}
	return out, nil
}

// YOffset returns the vertical display offset on page p.
func (c *Class) YOffset(p page.Page) float64 {
	return c.YNudge.Get(p)
}

// Edges returns the edges incident to c, sorted by uuid. The list is
// computed from the owning chart on every call.
func (c *Class) Edges() []Edge {
	if c.chart == nil {
		return nil
	}
	return c.chart.incidentEdges(c.uuid)
}

// Delete removes the class and its incident edges from the owning chart.
func (c *Class) Delete() error {
	if c.chart == nil {
		return errors.New(errors.ErrCodeNotFound, "class %s is not in a chart", c.uuid)
	}
	return c.chart.DeleteClass(c.uuid)
}

// Update applies a partial patch of wire fields. uuid, degree and idx
// identify the class and may only repeat their current values. The whole
// patch is validated before anything is assigned.
func (c *Class) Update(fields map[string]any) error {
	opts, err := classOptionsFromFields(fields)
	if err != nil {
		return err
	}
	if opts.UUID != "" && opts.UUID != c.uuid {
		return errors.New(errors.ErrCodeInconsistentField, "inconsistent values %q and %q", c.uuid, opts.UUID).WithField("uuid")
	}
	if opts.Degree != nil && !slices.Equal(opts.Degree, c.degree) {
		return errors.New(errors.ErrCodeInconsistentField, "inconsistent values %v and %v", c.degree, opts.Degree).WithField("degree")
	}
	if opts.Idx != nil && *opts.Idx != c.idx {
		return errors.New(errors.ErrCodeInconsistentField, "inconsistent values %d and %d", c.idx, *opts.Idx).WithField("idx")
	}

	assign(&c.Name, opts.Name)
	assign(&c.Visible, opts.Visible)
	assign(&c.Shape, opts.Shape)
	assign(&c.Scale, opts.Scale)
	assign(&c.XNudge, opts.XNudge)
	assign(&c.YNudge, opts.YNudge)
	assign(&c.BackgroundColor, opts.BackgroundColor)
	assign(&c.BorderColor, opts.BorderColor)
	assign(&c.ForegroundColor, opts.ForegroundColor)
	assign(&c.BorderWidth, opts.BorderWidth)
	if opts.MaxPage != nil {
		c.MaxPage = *opts.MaxPage
	}
	if opts.UserData != nil {
		c.UserData = opts.UserData
	}

	if c.chart != nil {
		c.chart.emit(Event{Type: EventUpdate, UUID: c.uuid})
	}
	return nil
}

func assign[V any](dst **page.Property[V], src *page.Property[V]) {
	if src != nil {
		*dst = src
	}
}

func (c *Class) clone() *Class {
	cp := *c
	cp.degree = slices.Clone(c.degree)
	cp.Name = c.Name.Clone()
	cp.Visible = c.Visible.Clone()
	cp.Shape = c.Shape.Clone()
	cp.Scale = c.Scale.Clone()
	cp.XNudge = c.XNudge.Clone()
	cp.YNudge = c.YNudge.Clone()
	cp.BackgroundColor = c.BackgroundColor.Clone()
	cp.BorderColor = c.BorderColor.Clone()
	cp.ForegroundColor = c.ForegroundColor.Clone()
	cp.BorderWidth = c.BorderWidth.Clone()
	cp.UserData = maps.Clone(c.UserData)
	return &cp
}

func (c *Class) updateProjection(xProj, yProj []float64) {
	c.x, c.y = 0, 0
	for i, d := range c.degree {
		if i < len(xProj) {
			c.x += xProj[i] * float64(d)
		}
		if i < len(yProj) {
			c.y += yProj[i] * float64(d)
		}
	}
}

// classOptionsFromFields reads wire fields into options. Unknown fields
// are rejected.
func classOptionsFromFields(fields map[string]any) (ClassOptions, error) {
	fields, err := revive(fields)
	if err != nil {
		return ClassOptions{}, err
	}
	var opts ClassOptions
	for _, key := range sortedKeys(fields) {
		v := fields[key]
		var err error
		switch key {
		case "type":
			if s, _ := v.(string); s != KindClass.String() {
				err = errors.New(errors.ErrCodeInconsistentField, "expected %q, got %v", KindClass, v)
			}
		case "uuid":
			opts.UUID, err = toString(v)
		case "degree":
			opts.Degree, err = toDegree(v)
		case "idx":
			if v != nil {
				var f float64
				if f, err = toFloat(v); err == nil {
					i := int(f)
					opts.Idx = &i
				}
			}
		case "name":
			opts.Name, err = propertyOf(v, toString)
		case "visible":
			opts.Visible, err = propertyOf(v, toBool)
		case "shape":
			opts.Shape, err = propertyOf(v, toShape)
		case "scale":
			opts.Scale, err = propertyOf(v, toFloat)
		case "x_nudge":
			opts.XNudge, err = propertyOf(v, toFloat)
		case "y_nudge":
			opts.YNudge, err = propertyOf(v, toFloat)
		case "background_color":
			opts.BackgroundColor, err = propertyOf(v, toColor)
		case "border_color":
			opts.BorderColor, err = propertyOf(v, toColor)
		case "foreground_color":
			opts.ForegroundColor, err = propertyOf(v, toColor)
		case "border_width":
			opts.BorderWidth, err = propertyOf(v, toFloat)
		case "max_page":
			var p page.Page
			if p, err = toPage(v); err == nil {
				opts.MaxPage = &p
			}
		case "user_data":
			opts.UserData, err = toUserData(v)
		default:
			err = errors.New(errors.ErrCodeInvalidInput, "unknown class field")
		}
		if err != nil {
			return ClassOptions{}, fieldError(key, err)
		}
	}
	return opts, nil
}

type classJSON struct {
	Type            string                  `json:"type"`
	UUID            string                  `json:"uuid"`
	Degree          []int                   `json:"degree"`
	Idx             *int                    `json:"idx,omitempty"`
	Name            *page.Property[string]  `json:"name"`
	MaxPage         page.Page               `json:"max_page"`
	Shape           *page.Property[Shape]   `json:"shape"`
	BackgroundColor *page.Property[Color]   `json:"background_color"`
	BorderColor     *page.Property[Color]   `json:"border_color"`
	BorderWidth     *page.Property[float64] `json:"border_width"`
	ForegroundColor *page.Property[Color]   `json:"foreground_color"`
	Scale           *page.Property[float64] `json:"scale"`
	Visible         *page.Property[bool]    `json:"visible"`
	XNudge          *page.Property[float64] `json:"x_nudge"`
	YNudge          *page.Property[float64] `json:"y_nudge"`
	UserData        map[string]any          `json:"user_data"`
}

// MarshalJSON encodes the class as a tagged "ChartClass" object.
func (c *Class) MarshalJSON() ([]byte, error) {
	w := classJSON{
		Type:            KindClass.String(),
		UUID:            c.uuid,
		Degree:          c.degree,
		Name:            c.Name,
		MaxPage:         c.MaxPage,
		Shape:           c.Shape,
		BackgroundColor: c.BackgroundColor,
		BorderColor:     c.BorderColor,
		BorderWidth:     c.BorderWidth,
		ForegroundColor: c.ForegroundColor,
		Scale:           c.Scale,
		Visible:         c.Visible,
		XNudge:          c.XNudge,
		YNudge:          c.YNudge,
		UserData:        c.UserData,
	}
	if c.idx >= 0 {
		idx := c.idx
		w.Idx = &idx
	}
	if w.UserData == nil {
		w.UserData = map[string]any{}
	}
	return json.Marshal(w)
}
