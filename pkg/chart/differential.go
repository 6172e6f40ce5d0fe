package chart

import (
	"encoding/json"

	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/page"
)

// StyleOptions configures the fixed style of a differential or extension.
// nil fields take the defaults of [DefaultEdgeStyle].
type StyleOptions struct {
	StartTip    *ArrowTip
	EndTip      *ArrowTip
	Bend        *float64
	Color       *Color
	DashPattern DashPattern
	LineWidth   *float64
	Visible     *bool
	Action      *string
}

func (o StyleOptions) applyTo(s *EdgeStyle) {
	if o.StartTip != nil {
		s.StartTip = *o.StartTip
	}
	if o.EndTip != nil {
		s.EndTip = *o.EndTip
	}
	if o.Bend != nil {
		s.Bend = *o.Bend
	}
	if o.Color != nil {
		s.Color = *o.Color
	}
	if o.DashPattern != nil {
		s.DashPattern = append(DashPattern{}, o.DashPattern...)
	}
	if o.LineWidth != nil {
		s.LineWidth = *o.LineWidth
	}
	if o.Visible != nil {
		s.Visible = *o.Visible
	}
	if o.Action != nil {
		s.Action = *o.Action
	}
}

// readStyleField consumes key if it is a style attribute.
func (o *StyleOptions) readStyleField(key string, v any) (bool, error) {
	var err error
	switch key {
	case "start_tip":
		var t ArrowTip
		if t, err = toArrowTip(v); err == nil {
			o.StartTip = &t
		}
	case "end_tip":
		var t ArrowTip
		if t, err = toArrowTip(v); err == nil {
			o.EndTip = &t
		}
	case "bend":
		var f float64
		if f, err = toFloat(v); err == nil {
			o.Bend = &f
		}
	case "color":
		var c Color
		if c, err = toColor(v); err == nil {
			o.Color = &c
		}
	case "dash_pattern":
		o.DashPattern, err = toDash(v)
	case "line_width":
		var f float64
		if f, err = toFloat(v); err == nil {
			o.LineWidth = &f
		}
	case "visible":
		var b bool
		if b, err = toBool(v); err == nil {
			o.Visible = &b
		}
	case "action":
		var s string
		if s, err = toString(v); err == nil {
			o.Action = &s
		}
	default:
		return false, nil
	}
	return true, err
}

// singlePageEdge carries the style shared by differentials and extensions,
// which does not vary by page.
type singlePageEdge struct {
	edgeBase
	style EdgeStyle
}

func newSinglePageEdge(eo EdgeOptions, so StyleOptions) (singlePageEdge, error) {
	b, err := newEdgeBase(eo)
	if err != nil {
		return singlePageEdge{}, err
	}
	e := singlePageEdge{edgeBase: b, style: DefaultEdgeStyle()}
	so.applyTo(&e.style)
	return e, nil
}

// Style returns the edge style, which is the same on every page.
func (e *singlePageEdge) Style(page.Page) EdgeStyle {
	s := e.style
	s.DashPattern = append(DashPattern{}, e.style.DashPattern...)
	return s
}

func (e *singlePageEdge) cloneSingle() singlePageEdge {
	return singlePageEdge{edgeBase: e.cloneBase(), style: e.Style(0)}
}

func readSinglePageFields(kind Kind, fields map[string]any, extra func(key string, v any) (bool, error)) (edgeFields, StyleOptions, error) {
	fields, err := revive(fields)
	if err != nil {
		return edgeFields{}, StyleOptions{}, err
	}
	var (
		f  edgeFields
		so StyleOptions
	)
	for _, key := range sortedKeys(fields) {
		v := fields[key]
		known, err := f.readBaseField(kind, key, v)
		if !known {
			known, err = so.readStyleField(key, v)
		}
		if !known && extra != nil {
			known, err = extra(key, v)
		}
		if !known {
			err = errUnknownField(kind.String())
		}
		if err != nil {
			return edgeFields{}, StyleOptions{}, fieldError(key, err)
		}
	}
	return f, so, nil
}

type singlePageJSON struct {
	Type       string `json:"type"`
	UUID       string `json:"uuid"`
	SourceUUID string `json:"source_uuid"`
	TargetUUID string `json:"target_uuid"`
	EdgeStyle
	UserData map[string]any `json:"user_data"`
	Page     *page.Page     `json:"page,omitempty"`
	Auto     *bool          `json:"auto,omitempty"`
}

func (e *singlePageEdge) wire(kind Kind) singlePageJSON {
	return singlePageJSON{
		Type:       kind.String(),
		UUID:       e.uuid,
		SourceUUID: e.source,
		TargetUUID: e.target,
		EdgeStyle:  e.Style(0),
		UserData:   nonNil(e.userData),
	}
}

// DifferentialOptions configures a differential.
type DifferentialOptions struct {
	EdgeOptions
	StyleOptions
	// Page is the page the differential acts on. It must be positive.
	Page page.Page
	// Auto lowers the max page of both endpoints to Page and adds
	// [Page, Page] to the chart's page list when the edge is added.
	Auto bool
}

// Differential is an edge that acts on a single page.
type Differential struct {
	singlePageEdge
	page page.Page
	auto bool
}

// NewDifferential builds a detached differential.
func NewDifferential(opts DifferentialOptions) (*Differential, error) {
	if opts.Page <= 0 {
		return nil, errors.New(errors.ErrCodeConstruction, "differential page must be positive, got %d", opts.Page).WithField("page")
	}
	e, err := newSinglePageEdge(opts.EdgeOptions, opts.StyleOptions)
	if err != nil {
		return nil, err
	}
	return &Differential{singlePageEdge: e, page: opts.Page, auto: opts.Auto}, nil
}

func (d *Differential) Kind() Kind { return KindDifferential }

// Page returns the page the differential acts on.
func (d *Differential) Page() page.Page { return d.page }

// Auto reports whether adding the differential adjusts its endpoints and
// the page list.
func (d *Differential) Auto() bool { return d.auto }

// DrawOnPageQ is true for the all-differentials range (lower bound 0) and
// for every range containing the differential's page.
func (d *Differential) DrawOnPageQ(r page.Range) bool {
	return r.Lo() == 0 || r.Contains(d.page)
}

// Update applies style fields. The page may only repeat its current value.
func (d *Differential) Update(fields map[string]any) error {
	var (
		pg   *page.Page
		auto *bool
	)
	f, so, err := readSinglePageFields(KindDifferential, fields, func(key string, v any) (bool, error) {
		switch key {
		case "page":
			p, err := toPage(v)
			pg = &p
			return true, err
		case "auto":
			b, err := toBool(v)
			auto = &b
			return true, err
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	if err := d.checkIdentity(f); err != nil {
		return err
	}
	if pg != nil && *pg != d.page {
		return errors.New(errors.ErrCodeInconsistentField, "inconsistent values %d and %d", d.page, *pg).WithField("page")
	}
	if auto != nil && *auto != d.auto {
		return errors.New(errors.ErrCodeInconsistentField, "inconsistent values %t and %t", d.auto, *auto).WithField("auto")
	}
	so.applyTo(&d.style)
	if f.hasUserData {
		d.userData = f.UserData
	}
	d.changed()
	return nil
}

func (d *Differential) clone() Edge {
	return &Differential{singlePageEdge: d.cloneSingle(), page: d.page, auto: d.auto}
}

func differentialOptionsFromFields(fields map[string]any) (DifferentialOptions, error) {
	var (
		opts    DifferentialOptions
		hasPage bool
	)
	f, so, err := readSinglePageFields(KindDifferential, fields, func(key string, v any) (bool, error) {
		var err error
		switch key {
		case "page":
			opts.Page, err = toPage(v)
			hasPage = true
		case "auto":
			opts.Auto, err = toBool(v)
		default:
			return false, nil
		}
		return true, err
	})
	if err != nil {
		return DifferentialOptions{}, err
	}
	if !hasPage {
		return DifferentialOptions{}, errors.New(errors.ErrCodeConstruction, "missing mandatory field").WithField("page")
	}
	opts.EdgeOptions = f.EdgeOptions
	opts.StyleOptions = so
	return opts, nil
}

// MarshalJSON encodes the differential as a tagged "ChartDifferential" object.
func (d *Differential) MarshalJSON() ([]byte, error) {
	w := d.wire(KindDifferential)
	pg := d.page
	w.Page = &pg
	if d.auto {
		w.Auto = &d.auto
	}
	return json.Marshal(w)
}

// ExtensionOptions configures an extension.
type ExtensionOptions struct {
	EdgeOptions
	StyleOptions
}

// Extension is an edge drawn only on the limit page.
type Extension struct {
	singlePageEdge
}

// NewExtension builds a detached extension.
func NewExtension(opts ExtensionOptions) (*Extension, error) {
	e, err := newSinglePageEdge(opts.EdgeOptions, opts.StyleOptions)
	if err != nil {
		return nil, err
	}
	return &Extension{singlePageEdge: e}, nil
}

func (x *Extension) Kind() Kind { return KindExtension }

// DrawOnPageQ is true only when the range starts at the limit page.
func (x *Extension) DrawOnPageQ(r page.Range) bool {
	return r.Lo() == page.Infinity
}

// Update applies style fields.
func (x *Extension) Update(fields map[string]any) error {
	f, so, err := readSinglePageFields(KindExtension, fields, nil)
	if err != nil {
		return err
	}
	if err := x.checkIdentity(f); err != nil {
		return err
	}
	so.applyTo(&x.style)
	if f.hasUserData {
		x.userData = f.UserData
	}
	x.changed()
	return nil
}

func (x *Extension) clone() Edge {
	return &Extension{singlePageEdge: x.cloneSingle()}
}

func extensionOptionsFromFields(fields map[string]any) (ExtensionOptions, error) {
	f, so, err := readSinglePageFields(KindExtension, fields, nil)
	if err != nil {
		return ExtensionOptions{}, err
	}
	return ExtensionOptions{EdgeOptions: f.EdgeOptions, StyleOptions: so}, nil
}

// MarshalJSON encodes the extension as a tagged "ChartExtension" object.
func (x *Extension) MarshalJSON() ([]byte, error) {
	return json.Marshal(x.wire(KindExtension))
}
