package chart

import (
	"encoding/json"
	"sort"

	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/page"
	"github.com/matzehuels/sseqchart/pkg/walker"
)

var registry *walker.Registry

func init() {
	registry = walker.NewRegistry(
		walker.Entry{Name: KindChart.String(), Decode: func(f map[string]any) (any, error) { return decodeChart(f) }},
		walker.Entry{Name: KindClass.String(), Skip: []string{"user_data"}, Decode: func(f map[string]any) (any, error) { return decodeClass(f) }},
		walker.Entry{Name: KindStructline.String(), Skip: []string{"user_data"}, Decode: edgeDecoder(KindStructline)},
		walker.Entry{Name: KindDifferential.String(), Skip: []string{"user_data"}, Decode: edgeDecoder(KindDifferential)},
		walker.Entry{Name: KindExtension.String(), Skip: []string{"user_data"}, Decode: edgeDecoder(KindExtension)},
		walker.Entry{Name: KindPageProperty.String(), Decode: func(f map[string]any) (any, error) { return page.Decode(f) }},
		walker.Entry{Name: KindColor.String(), Decode: func(f map[string]any) (any, error) { return decodeColor(f) }},
		walker.Entry{Name: KindArrowTip.String(), Decode: func(f map[string]any) (any, error) {
			tip, _ := f["tip"].(string)
			return ArrowTip{Tip: tip}, nil
		}},
		walker.Entry{Name: KindShape.String(), Decode: func(f map[string]any) (any, error) {
			f["type"] = KindShape.String()
			return f, nil
		}},
	)
}

func decodeColor(f map[string]any) (Color, error) {
	if rgba, ok := f["rgba"]; ok {
		return toColor(rgba)
	}
	hex, ok := f["color"].(string)
	if !ok {
		return Color{}, errors.New(errors.ErrCodeInvalidInput, "color needs rgba or color, got %s", describe(f["color"]))
	}
	return ParseHexColor(hex)
}

func edgeDecoder(kind Kind) walker.DecodeFunc {
	return func(f map[string]any) (any, error) { return decodeEdge(kind, f) }
}

// Registry returns the closed registry of every chart type tag.
func Registry() *walker.Registry { return registry }

// revive walks the values of a wire patch so that tagged sub-objects
// (page properties, colors, arrow tips) become typed values. The top-level
// "type" tag and user data are left alone. Already revived values pass
// through unchanged.
func revive(fields map[string]any) (map[string]any, error) {
	in := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != "type" && k != "user_data" {
			in[k] = v
		}
	}
	out, err := registry.Walk(in)
	if err != nil {
		return nil, err
	}
	m := out.(map[string]any)
	for _, k := range []string{"type", "user_data"} {
		if v, ok := fields[k]; ok {
			m[k] = v
		}
	}
	return m, nil
}

// DecodeClass builds a detached class from wire fields.
func DecodeClass(fields map[string]any) (*Class, error) {
	return decodeClass(fields)
}

func decodeClass(fields map[string]any) (*Class, error) {
	opts, err := classOptionsFromFields(fields)
	if err != nil {
		return nil, err
	}
	return NewClass(opts)
}

// Decode rebuilds a chart from its JSON snapshot.
func Decode(data []byte) (*Chart, error) {
	v, err := registry.Parse(data)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*Chart)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected a %s payload, got %s", KindChart, describe(v))
	}
	return c, nil
}

// DecodeValue decodes a walked snapshot tree into a chart.
func DecodeValue(v any) (*Chart, error) {
	if m, ok := v.(map[string]any); ok {
		out, err := registry.Walk(m)
		if err != nil {
			return nil, err
		}
		v = out
	}
	c, ok := v.(*Chart)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected a %s payload, got %s", KindChart, describe(v))
	}
	return c, nil
}

func decodeChart(fields map[string]any) (*Chart, error) {
	opts := Options{}
	var err error
	if v, ok := fields["name"]; ok {
		if opts.Name, err = toString(v); err != nil {
			return nil, fieldError("name", err)
		}
	}
	if v, ok := fields["uuid"]; ok {
		if opts.UUID, err = toString(v); err != nil {
			return nil, fieldError("uuid", err)
		}
	}
	if v, ok := fields["num_gradings"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return nil, fieldError("num_gradings", err)
		}
		opts.NumGradings = int(f)
	}
	if v, ok := fields["offset_size"]; ok {
		if opts.OffsetSize, err = toFloat(v); err != nil {
			return nil, fieldError("offset_size", err)
		}
	}
	c := New(opts)

	intervals := []struct {
		key string
		dst *[2]float64
	}{
		{"x_range", &c.XRange},
		{"y_range", &c.YRange},
		{"initial_x_range", &c.InitialXRange},
		{"initial_y_range", &c.InitialYRange},
	}
	for _, iv := range intervals {
		if v, ok := fields[iv.key]; ok {
			if *iv.dst, err = toInterval(v); err != nil {
				return nil, fieldError(iv.key, err)
			}
		}
	}
	if v, ok := fields["page_list"]; ok {
		if c.PageList, err = toPageList(v); err != nil {
			return nil, fieldError("page_list", err)
		}
	}
	xp, yp := c.xProjection, c.yProjection
	if v, ok := fields["x_projection"]; ok {
		if xp, err = toFloats(v); err != nil {
			return nil, fieldError("x_projection", err)
		}
	}
	if v, ok := fields["y_projection"]; ok {
		if yp, err = toFloats(v); err != nil {
			return nil, fieldError("y_projection", err)
		}
	}
	if err := c.setProjections(xp, yp); err != nil {
		return nil, err
	}

	classes, _ := fields["classes"].([]any)
	for i, v := range classes {
		cl, ok := v.(*Class)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "entry %d is %s, want a %s", i, describe(v), KindClass).WithField("classes")
		}
		if err := c.commitClass(cl); err != nil {
			return nil, err
		}
	}
	// Edges may precede their classes in other encoders; anything that
	// cannot be resolved stays pending.
	edges, _ := fields["edges"].([]any)
	for i, v := range edges {
		e, ok := v.(Edge)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "entry %d is %s, want an edge", i, describe(v)).WithField("edges")
		}
		if _, err := c.commitEdge(e, true); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type chartJSON struct {
	Type          string       `json:"type"`
	UUID          string       `json:"uuid"`
	Name          string       `json:"name"`
	InitialXRange [2]float64   `json:"initial_x_range"`
	InitialYRange [2]float64   `json:"initial_y_range"`
	XRange        [2]float64   `json:"x_range"`
	YRange        [2]float64   `json:"y_range"`
	PageList      []page.Range `json:"page_list"`
	NumGradings   int          `json:"num_gradings"`
	XProjection   []float64    `json:"x_projection"`
	YProjection   []float64    `json:"y_projection"`
	OffsetSize    float64      `json:"offset_size"`
	Classes       []*Class     `json:"classes"`
	Edges         []Edge       `json:"edges"`
}

// MarshalJSON encodes the chart as a tagged "SseqChart" snapshot. Classes
// and edges are sorted by uuid; pending edges are included so a snapshot
// loses nothing.
func (c *Chart) MarshalJSON() ([]byte, error) {
	edges := c.Edges()
	edges = append(edges, c.Pending()...)
	sort.Slice(edges, func(i, j int) bool { return edges[i].UUID() < edges[j].UUID() })
	pages := c.PageList
	if pages == nil {
		pages = []page.Range{}
	}
	return json.Marshal(chartJSON{
		Type:          KindChart.String(),
		UUID:          c.UUID,
		Name:          c.Name,
		InitialXRange: c.InitialXRange,
		InitialYRange: c.InitialYRange,
		XRange:        c.XRange,
		YRange:        c.YRange,
		PageList:      pages,
		NumGradings:   c.numGradings,
		XProjection:   c.xProjection,
		YProjection:   c.yProjection,
		OffsetSize:    c.OffsetSize,
		Classes:       c.Classes(),
		Edges:         edges,
	})
}
