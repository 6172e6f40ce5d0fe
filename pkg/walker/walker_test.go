package walker

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sseqchart/pkg/errors"
)

type point struct{ X, Y float64 }

type wrapper struct {
	Inner any
	Raw   any
}

func testRegistry() *Registry {
	return NewRegistry(
		Entry{Name: "Point", Decode: func(f map[string]any) (any, error) {
			x, ok := f["x"].(float64)
			if !ok {
				return nil, errors.New(errors.ErrCodeConstruction, "missing mandatory field").WithField("x")
			}
			y, _ := f["y"].(float64)
			return point{X: x, Y: y}, nil
		}},
		Entry{Name: "Wrapper", Skip: []string{"raw"}, Decode: func(f map[string]any) (any, error) {
			return wrapper{Inner: f["inner"], Raw: f["raw"]}, nil
		}},
	)
}

func TestWalkPassThrough(t *testing.T) {
	reg := testRegistry()
	tests := []any{
		nil,
		true,
		3.5,
		"text",
		[]any{1.0, "a"},
		map[string]any{"a": 1.0, "b": []any{}},
		map[string]any{"type": 4.0},
	}
	for _, in := range tests {
		t.Run(fmt.Sprintf("%v", in), func(t *testing.T) {
			out, err := reg.Walk(in)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestWalkDecodesNested(t *testing.T) {
	reg := testRegistry()
	out, err := reg.Parse([]byte(`{
		"points": [{"type": "Point", "x": 1, "y": 2}, {"type": "Point", "x": 3}],
		"w": {"type": "Wrapper", "inner": {"type": "Point", "x": 5}, "raw": {"type": "Point"}}
	}`))
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.Equal(t, []any{point{1, 2}, point{3, 0}}, m["points"])

	w := m["w"].(wrapper)
	assert.Equal(t, point{5, 0}, w.Inner)
	// Skipped fields reach the decoder unwalked.
	assert.Equal(t, map[string]any{"type": "Point"}, w.Raw)
}

func TestWalkUnknownType(t *testing.T) {
	reg := testRegistry()
	_, err := reg.Parse([]byte(`{"items": [{"type": "Point", "x": 1}, {"type": "NotRegistered"}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUnknownType))
	assert.True(t, stderrors.Is(err, ErrUnknownType))
	assert.Contains(t, err.Error(), `"NotRegistered" at $.items[1]`)
}

func TestWalkDoesNotMutateInput(t *testing.T) {
	reg := testRegistry()
	in := map[string]any{
		"a": map[string]any{"type": "Point", "x": 1.0},
		"b": []any{map[string]any{"type": "Point", "x": 2.0}},
	}
	_, err := reg.Walk(in)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "Point", "x": 1.0}, in["a"])
	assert.Equal(t, []any{map[string]any{"type": "Point", "x": 2.0}}, in["b"])

	// A failing sibling leaves earlier input untouched as well.
	in["c"] = map[string]any{"type": "NotRegistered"}
	_, err = reg.Walk(in)
	require.Error(t, err)
	assert.Equal(t, map[string]any{"type": "Point", "x": 1.0}, in["a"])
}

func TestWalkDecodeErrorKeepsCode(t *testing.T) {
	reg := testRegistry()
	_, err := reg.Parse([]byte(`[{"type": "Point"}]`))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConstruction, errors.GetCode(err))
	assert.Equal(t, "x", errors.GetField(err))
	assert.Contains(t, err.Error(), "at $[0]")
}

func TestParseMalformed(t *testing.T) {
	_, err := testRegistry().Parse([]byte(`{"type":`))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestNewRegistryPanics(t *testing.T) {
	dec := func(map[string]any) (any, error) { return nil, nil }
	assert.Panics(t, func() { NewRegistry(Entry{Decode: dec}) })
	assert.Panics(t, func() { NewRegistry(Entry{Name: "A"}) })
	assert.Panics(t, func() { NewRegistry(Entry{Name: "A", Decode: dec}, Entry{Name: "A", Decode: dec}) })

	reg := NewRegistry(Entry{Name: "B", Decode: dec}, Entry{Name: "A", Decode: dec})
	assert.Equal(t, []string{"A", "B"}, reg.Names())
	_, ok := reg.Lookup("C")
	assert.False(t, ok)
}
