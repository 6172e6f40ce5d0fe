package chart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/page"
)

func TestEdgeRequiresEndpoints(t *testing.T) {
	_, err := NewStructline(StructlineOptions{EdgeOptions: EdgeOptions{TargetUUID: "b"}})
	assert.True(t, errors.Is(err, errors.ErrCodeConstruction))
	assert.Equal(t, "source_uuid", errors.GetField(err))

	_, err = NewExtension(ExtensionOptions{EdgeOptions: EdgeOptions{SourceUUID: "a"}})
	assert.Equal(t, "target_uuid", errors.GetField(err))

	_, err = DecodeEdge(map[string]any{"type": "ChartDifferential", "source_uuid": "a", "target_uuid": "b"})
	assert.True(t, errors.Is(err, errors.ErrCodeConstruction))
	assert.Equal(t, "page", errors.GetField(err))

	_, err = DecodeEdge(map[string]any{"type": "ChartClass"})
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownType))
}

func TestDifferentialDrawOnPageQ(t *testing.T) {
	d, err := NewDifferential(DifferentialOptions{EdgeOptions: EdgeOptions{SourceUUID: "a", TargetUUID: "b"}, Page: 5})
	require.NoError(t, err)

	tests := []struct {
		r    page.Range
		want bool
	}{
		{page.Range{0, 0}, true},
		{page.Range{5, 5}, true},
		{page.Range{3, 7}, true},
		{page.Range{2, 5}, true},
		{page.Range{6, 6}, false},
		{page.Range{2, 4}, false},
		{page.Range{page.Infinity, page.Infinity}, false},
	}
	for _, tt := range tests {
		t.Run(tt.r.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, d.DrawOnPageQ(tt.r))
		})
	}
}

func TestExtensionDrawOnPageQ(t *testing.T) {
	x, err := NewExtension(ExtensionOptions{EdgeOptions: EdgeOptions{SourceUUID: "a", TargetUUID: "b"}})
	require.NoError(t, err)
	assert.True(t, x.DrawOnPageQ(page.Range{page.Infinity, page.Infinity}))
	assert.False(t, x.DrawOnPageQ(page.Range{2, page.Infinity}))
	assert.False(t, x.DrawOnPageQ(page.Range{0, 0}))
}

func TestStructlineStyle(t *testing.T) {
	s, err := NewStructline(StructlineOptions{EdgeOptions: EdgeOptions{SourceUUID: "a", TargetUUID: "b"}})
	require.NoError(t, err)
	s.Color.SetRange(3, page.Infinity, Color{1, 0, 0, 1})
	s.EndTip.SetPoint(2, ArrowTip{Tip: "stealth"})

	st := s.Style(2)
	assert.Equal(t, Black, st.Color)
	assert.Equal(t, ArrowTip{Tip: "stealth"}, st.EndTip)
	assert.Equal(t, NoTip, st.StartTip)
	assert.Equal(t, 3.0, st.LineWidth)
	assert.True(t, st.Visible)
	assert.Equal(t, Color{1, 0, 0, 1}, s.Style(7).Color)
}

func TestSinglePageUpdate(t *testing.T) {
	d, err := NewDifferential(DifferentialOptions{EdgeOptions: EdgeOptions{UUID: "d", SourceUUID: "a", TargetUUID: "b"}, Page: 3})
	require.NoError(t, err)

	require.NoError(t, d.Update(map[string]any{"color": []any{0.0, 0.0, 1.0, 1.0}, "visible": false, "page": 3.0}))
	st := d.Style(100)
	assert.Equal(t, Color{0, 0, 1, 1}, st.Color)
	assert.False(t, st.Visible)

	err = d.Update(map[string]any{"page": 4.0})
	assert.True(t, errors.Is(err, errors.ErrCodeInconsistentField))
	err = d.Update(map[string]any{"target_uuid": "c"})
	assert.True(t, errors.Is(err, errors.ErrCodeInconsistentField))
	err = d.Update(map[string]any{"dash": []any{}})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	assert.Equal(t, "dash", errors.GetField(err))
}

func TestEdgeJSONRoundTrip(t *testing.T) {
	base := EdgeOptions{SourceUUID: "a", TargetUUID: "b", UserData: map[string]any{"k": "v"}}

	s, err := NewStructline(StructlineOptions{EdgeOptions: base})
	require.NoError(t, err)
	s.Visible.SetRange(5, page.Infinity, false)
	s.DashPattern.SetPoint(3, DashPattern{2, 1})
	s.StartTip.SetPoint(4, ArrowTip{Tip: "hook"})

	tip := ArrowTip{Tip: "stealth"}
	bend := 15.0
	d, err := NewDifferential(DifferentialOptions{
		EdgeOptions:  base,
		StyleOptions: StyleOptions{EndTip: &tip, Bend: &bend, DashPattern: DashPattern{1, 1}},
		Page:         3,
	})
	require.NoError(t, err)

	x, err := NewExtension(ExtensionOptions{EdgeOptions: base})
	require.NoError(t, err)

	for _, e := range []Edge{s, d, x} {
		t.Run(e.Kind().String(), func(t *testing.T) {
			data, err := json.Marshal(e)
			require.NoError(t, err)

			v, err := Registry().Parse(data)
			require.NoError(t, err)
			back, ok := v.(Edge)
			require.True(t, ok)
			assert.Equal(t, e, back)
		})
	}
}

func TestAutoDifferentialJSON(t *testing.T) {
	d, err := NewDifferential(DifferentialOptions{EdgeOptions: EdgeOptions{UUID: "d", SourceUUID: "a", TargetUUID: "b"}, Page: 3, Auto: true})
	require.NoError(t, err)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"auto":true`)

	back, err := DecodeEdge(mustFields(t, data))
	require.NoError(t, err)
	assert.True(t, back.(*Differential).Auto())
	assert.Equal(t, d, back)

	// A serialized differential can be sent back as an update.
	require.NoError(t, back.Update(mustFields(t, data)))
	err = back.Update(map[string]any{"auto": false})
	assert.True(t, errors.Is(err, errors.ErrCodeInconsistentField))

	plain, err := NewDifferential(DifferentialOptions{EdgeOptions: EdgeOptions{SourceUUID: "a", TargetUUID: "b"}, Page: 3})
	require.NoError(t, err)
	data, err = json.Marshal(plain)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"auto"`)
}

func mustFields(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	return fields
}

func TestArrowTipJSON(t *testing.T) {
	data, err := json.Marshal(NoTip)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	data, err = json.Marshal(ArrowTip{Tip: "hook"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ArrowTip","tip":"hook"}`, string(data))

	var a ArrowTip
	require.NoError(t, json.Unmarshal(data, &a))
	assert.Equal(t, "hook", a.Tip)

	var c Color
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Color","rgba":[1,0,0,0.5]}`), &c))
	assert.Equal(t, Color{1, 0, 0, 0.5}, c)

	v, err := Registry().Parse([]byte(`{"type":"Color","rgba":[0,1,0,1]}`))
	require.NoError(t, err)
	assert.Equal(t, Color{0, 1, 0, 1}, v)
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{in: "#000000", want: Color{0, 0, 0, 1}},
		{in: "#ff0000", want: Color{1, 0, 0, 1}},
		{in: "#0000ff00", want: Color{0, 0, 1, 0}},
		{in: "ff0000", wantErr: true},
		{in: "#fff", wantErr: true},
		{in: "#gg0000", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	var c Color
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Color","color":"#00ff00"}`), &c))
	assert.Equal(t, Color{0, 1, 0, 1}, c)

	v, err := Registry().Parse([]byte(`{"type":"Color","name":"blue","color":"#0000ff"}`))
	require.NoError(t, err)
	assert.Equal(t, Color{0, 0, 1, 1}, v)

	_, err = Registry().Parse([]byte(`{"type":"Color","name":"blue"}`))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}
