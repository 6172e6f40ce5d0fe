package chart

import (
	"encoding/json"

	"github.com/matzehuels/sseqchart/pkg/page"
)

// StructlineOptions configures a structline. nil properties take the
// defaults of [DefaultEdgeStyle].
type StructlineOptions struct {
	EdgeOptions
	StartTip    *page.Property[ArrowTip]
	EndTip      *page.Property[ArrowTip]
	Bend        *page.Property[float64]
	Color       *page.Property[Color]
	DashPattern *page.Property[DashPattern]
	LineWidth   *page.Property[float64]
	Visible     *page.Property[bool]
	Action      *page.Property[string]
}

// Structline is an edge whose style varies by page.
type Structline struct {
	edgeBase
	StartTip    *page.Property[ArrowTip]
	EndTip      *page.Property[ArrowTip]
	Bend        *page.Property[float64]
	Color       *page.Property[Color]
	DashPattern *page.Property[DashPattern]
	LineWidth   *page.Property[float64]
	Visible     *page.Property[bool]
	Action      *page.Property[string]
}

// NewStructline builds a detached structline.
func NewStructline(opts StructlineOptions) (*Structline, error) {
	b, err := newEdgeBase(opts.EdgeOptions)
	if err != nil {
		return nil, err
	}
	def := DefaultEdgeStyle()
	return &Structline{
		edgeBase:    b,
		StartTip:    orDefault(opts.StartTip, def.StartTip),
		EndTip:      orDefault(opts.EndTip, def.EndTip),
		Bend:        orDefault(opts.Bend, def.Bend),
		Color:       orDefault(opts.Color, def.Color),
		DashPattern: orDefault(opts.DashPattern, def.DashPattern),
		LineWidth:   orDefault(opts.LineWidth, def.LineWidth),
		Visible:     orDefault(opts.Visible, def.Visible),
		Action:      orDefault(opts.Action, def.Action),
	}, nil
}

func (s *Structline) Kind() Kind { return KindStructline }

// DrawOnPageQ reports whether the structline is visible on the range's
// lower page and both endpoints are drawn there.
func (s *Structline) DrawOnPageQ(r page.Range) bool {
	lo := r.Lo()
	if !s.Visible.Get(lo) {
		return false
	}
	src, err := s.Source()
	if err != nil {
		return false
	}
	tgt, err := s.Target()
	if err != nil {
		return false
	}
	return src.DrawOnPageQ(lo) && tgt.DrawOnPageQ(lo)
}

func (s *Structline) Style(p page.Page) EdgeStyle {
	return EdgeStyle{
		StartTip:    s.StartTip.Get(p),
		EndTip:      s.EndTip.Get(p),
		Bend:        s.Bend.Get(p),
		Color:       s.Color.Get(p),
		DashPattern: s.DashPattern.Get(p),
		LineWidth:   s.LineWidth.Get(p),
		Visible:     s.Visible.Get(p),
		Action:      s.Action.Get(p),
	}
}

// Update replaces every style property named in fields. Bare values are
// wrapped into constant properties.
func (s *Structline) Update(fields map[string]any) error {
	opts, f, err := readStructlineFields(fields)
	if err != nil {
		return err
	}
	if err := s.checkIdentity(f); err != nil {
		return err
	}
	assign(&s.StartTip, opts.StartTip)
	assign(&s.EndTip, opts.EndTip)
	assign(&s.Bend, opts.Bend)
	assign(&s.Color, opts.Color)
	assign(&s.DashPattern, opts.DashPattern)
	assign(&s.LineWidth, opts.LineWidth)
	assign(&s.Visible, opts.Visible)
	assign(&s.Action, opts.Action)
	if f.hasUserData {
		s.userData = f.UserData
	}
	s.changed()
	return nil
}

func (s *Structline) clone() Edge {
	return &Structline{
		edgeBase:    s.cloneBase(),
		StartTip:    s.StartTip.Clone(),
		EndTip:      s.EndTip.Clone(),
		Bend:        s.Bend.Clone(),
		Color:       s.Color.Clone(),
		DashPattern: s.DashPattern.Clone(),
		LineWidth:   s.LineWidth.Clone(),
		Visible:     s.Visible.Clone(),
		Action:      s.Action.Clone(),
	}
}

func structlineOptionsFromFields(fields map[string]any) (StructlineOptions, error) {
	opts, _, err := readStructlineFields(fields)
	return opts, err
}

func readStructlineFields(fields map[string]any) (StructlineOptions, edgeFields, error) {
	fields, err := revive(fields)
	if err != nil {
		return StructlineOptions{}, edgeFields{}, err
	}
	var (
		opts StructlineOptions
		f    edgeFields
	)
	for _, key := range sortedKeys(fields) {
		v := fields[key]
		known, err := f.readBaseField(KindStructline, key, v)
		if !known {
			switch key {
			case "start_tip":
				opts.StartTip, err = propertyOf(v, toArrowTip)
			case "end_tip":
				opts.EndTip, err = propertyOf(v, toArrowTip)
			case "bend":
				opts.Bend, err = propertyOf(v, toFloat)
			case "color":
				opts.Color, err = propertyOf(v, toColor)
			case "dash_pattern":
				opts.DashPattern, err = propertyOf(v, toDash)
			case "line_width":
				opts.LineWidth, err = propertyOf(v, toFloat)
			case "visible":
				opts.Visible, err = propertyOf(v, toBool)
			case "action":
				opts.Action, err = propertyOf(v, toString)
			default:
				err = errUnknownField("structline")
			}
		}
		if err != nil {
			return StructlineOptions{}, edgeFields{}, fieldError(key, err)
		}
	}
	opts.EdgeOptions = f.EdgeOptions
	return opts, f, nil
}

type structlineJSON struct {
	Type        string                      `json:"type"`
	UUID        string                      `json:"uuid"`
	SourceUUID  string                      `json:"source_uuid"`
	TargetUUID  string                      `json:"target_uuid"`
	Visible     *page.Property[bool]        `json:"visible"`
	Color       *page.Property[Color]       `json:"color"`
	DashPattern *page.Property[DashPattern] `json:"dash_pattern"`
	LineWidth   *page.Property[float64]     `json:"line_width"`
	Bend        *page.Property[float64]     `json:"bend"`
	StartTip    *page.Property[ArrowTip]    `json:"start_tip"`
	EndTip      *page.Property[ArrowTip]    `json:"end_tip"`
	UserData    map[string]any              `json:"user_data"`
	Action      *page.Property[string]      `json:"action"`
}

// MarshalJSON encodes the structline as a tagged "ChartStructline" object.
func (s *Structline) MarshalJSON() ([]byte, error) {
	return json.Marshal(structlineJSON{
		Type:        KindStructline.String(),
		UUID:        s.uuid,
		SourceUUID:  s.source,
		TargetUUID:  s.target,
		Visible:     s.Visible,
		Color:       s.Color,
		DashPattern: s.DashPattern,
		LineWidth:   s.LineWidth,
		Bend:        s.Bend,
		StartTip:    s.StartTip,
		EndTip:      s.EndTip,
		UserData:    nonNil(s.userData),
		Action:      s.Action,
	})
}
