package chart

import (
	"encoding/json"
	"strconv"

	"github.com/matzehuels/sseqchart/pkg/errors"
)

// Color is an RGBA color with components in [0, 1]. It encodes as a bare
// four-element array.
type Color [4]float64

// Black is the default color of classes and edges.
var Black = Color{0, 0, 0, 1}

// UnmarshalJSON accepts a bare array or a tagged Color object carrying
// either "rgba" components or a "color" hex string.
func (c *Color) UnmarshalJSON(data []byte) error {
	var arr [4]float64
	if err := json.Unmarshal(data, &arr); err == nil {
		*c = arr
		return nil
	}
	var tagged struct {
		Type  string      `json:"type"`
		RGBA  *[4]float64 `json:"rgba"`
		Color *string     `json:"color"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid color")
	}
	if tagged.Type != KindColor.String() {
		return errors.New(errors.ErrCodeInvalidInput, "invalid color tag %q", tagged.Type)
	}
	switch {
	case tagged.RGBA != nil:
		*c = *tagged.RGBA
	case tagged.Color != nil:
		parsed, err := ParseHexColor(*tagged.Color)
		if err != nil {
			return err
		}
		*c = parsed
	default:
		return errors.New(errors.ErrCodeInvalidInput, "color needs rgba or color")
	}
	return nil
}

// ParseHexColor parses "#rrggbb" or "#rrggbbaa". A missing alpha channel is
// opaque.
func ParseHexColor(s string) (Color, error) {
	if len(s) != 7 && len(s) != 9 || s[0] != '#' {
		return Color{}, errors.New(errors.ErrCodeInvalidInput, "invalid hex color %q", s)
	}
	out := Color{0, 0, 0, 1}
	for i := 0; 1+2*i < len(s); i++ {
		n, err := strconv.ParseUint(s[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return Color{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid hex color %q", s)
		}
		out[i] = float64(n) / 255
	}
	return out, nil
}

// DashPattern lists alternating dash and gap lengths. Empty means solid.
type DashPattern []float64

// ArrowTip names the decoration at one end of an edge. The zero value is
// no tip.
type ArrowTip struct {
	Tip string
}

// NoTip is the absent arrow tip.
var NoTip = ArrowTip{}

// IsNone reports whether a is the absent tip.
func (a ArrowTip) IsNone() bool { return a.Tip == "" || a.Tip == "None" }

// MarshalJSON encodes the absent tip as null.
func (a ArrowTip) MarshalJSON() ([]byte, error) {
	if a.IsNone() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		Tip  string `json:"tip"`
	}{KindArrowTip.String(), a.Tip})
}

// UnmarshalJSON accepts null or a tagged ArrowTip object.
func (a *ArrowTip) UnmarshalJSON(data []byte) error {
	var w *struct {
		Tip string `json:"tip"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid arrow tip")
	}
	if w == nil {
		*a = NoTip
		return nil
	}
	*a = ArrowTip{Tip: w.Tip}
	return nil
}

// Shape is an opaque glyph description owned by the renderer.
type Shape = any

// DefaultShape returns the shape of a class created without one.
func DefaultShape() Shape {
	return map[string]any{"ty": "empty"}
}

// EdgeStyle is the style of an edge on one page.
type EdgeStyle struct {
	StartTip    ArrowTip    `json:"start_tip"`
	EndTip      ArrowTip    `json:"end_tip"`
	Bend        float64     `json:"bend"`
	Color       Color       `json:"color"`
	DashPattern DashPattern `json:"dash_pattern"`
	LineWidth   float64     `json:"line_width"`
	Visible     bool        `json:"visible"`
	Action      string      `json:"action"`
}

// DefaultLineWidth is the line width of edges created without one.
const DefaultLineWidth = 3

// DefaultEdgeStyle returns the style of an edge created without options.
func DefaultEdgeStyle() EdgeStyle {
	return EdgeStyle{
		Color:       Black,
		DashPattern: DashPattern{},
		LineWidth:   DefaultLineWidth,
		Visible:     true,
	}
}
