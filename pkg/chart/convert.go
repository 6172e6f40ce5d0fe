package chart

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/page"
)

// Converters from walked JSON values (float64, string, bool, []any,
// map[string]any, revived chart values) to typed attribute values.

func toBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.New(errors.ErrCodeInvalidInput, "expected a boolean, got %s", describe(v))
	}
	return b, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "expected a number")
		}
		return f, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidInput, "expected a number, got %s", describe(v))
	}
}

func toString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "expected a string, got %s", describe(v))
	}
	return s, nil
}

func toShape(v any) (Shape, error) {
	if v == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected a shape, got null")
	}
	return v, nil
}

func toColor(v any) (Color, error) {
	switch c := v.(type) {
	case Color:
		return c, nil
	case []any:
		if len(c) != 4 {
			return Color{}, errors.New(errors.ErrCodeInvalidInput, "expected an [r, g, b, a] color, got %d components", len(c))
		}
		var out Color
		for i, x := range c {
			f, err := toFloat(x)
			if err != nil {
				return Color{}, err
			}
			out[i] = f
		}
		return out, nil
	default:
		return Color{}, errors.New(errors.ErrCodeInvalidInput, "expected an [r, g, b, a] color, got %s", describe(v))
	}
}

func toDash(v any) (DashPattern, error) {
	switch d := v.(type) {
	case DashPattern:
		return d, nil
	case []any:
		out := make(DashPattern, len(d))
		for i, x := range d {
			f, err := toFloat(x)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected a dash pattern, got %s", describe(v))
	}
}

func toArrowTip(v any) (ArrowTip, error) {
	switch a := v.(type) {
	case nil:
		return NoTip, nil
	case ArrowTip:
		return a, nil
	case string:
		return ArrowTip{Tip: a}, nil
	default:
		return NoTip, errors.New(errors.ErrCodeInvalidInput, "expected an arrow tip, got %s", describe(v))
	}
}

func toPage(v any) (page.Page, error) {
	return page.Of(v)
}

func toDegree(v any) ([]int, error) {
	switch d := v.(type) {
	case []int:
		return append([]int(nil), d...), nil
	case []any:
		out := make([]int, len(d))
		for i, x := range d {
			f, err := toFloat(x)
			if err != nil {
				return nil, err
			}
			if f != math.Trunc(f) {
				return nil, errors.New(errors.ErrCodeInvalidInput, "degree component %v is not an integer", f)
			}
			out[i] = int(f)
		}
		return out, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected a list of integers, got %s", describe(v))
	}
}

func toFloats(v any) ([]float64, error) {
	switch d := v.(type) {
	case []float64:
		return append([]float64(nil), d...), nil
	case []any:
		out := make([]float64, len(d))
		for i, x := range d {
			f, err := toFloat(x)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected a list of numbers, got %s", describe(v))
	}
}

func toInterval(v any) ([2]float64, error) {
	fs, err := toFloats(v)
	if err != nil {
		return [2]float64{}, err
	}
	if len(fs) != 2 {
		return [2]float64{}, errors.New(errors.ErrCodeInvalidInput, "expected a [min, max] pair, got %d numbers", len(fs))
	}
	return [2]float64{fs[0], fs[1]}, nil
}

func toRange(v any) (page.Range, error) {
	switch r := v.(type) {
	case page.Range:
		return r, nil
	case []any:
		if len(r) != 2 {
			return page.Range{}, errors.New(errors.ErrCodeInvalidInput, "expected a [lo, hi] page range, got %d elements", len(r))
		}
		lo, err := page.Of(r[0])
		if err != nil {
			return page.Range{}, err
		}
		hi, err := page.Of(r[1])
		if err != nil {
			return page.Range{}, err
		}
		return page.Range{lo, hi}, nil
	default:
		return page.Range{}, errors.New(errors.ErrCodeInvalidInput, "expected a [lo, hi] page range, got %s", describe(v))
	}
}

func toUserData(v any) (map[string]any, error) {
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, x := range m {
			out[k] = x
		}
		return out, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected an object, got %s", describe(v))
	}
}

// propertyOf turns a walked field value into a typed property. A revived
// *page.Property[any] has every value converted; anything else is a bare
// value and is wrapped.
func propertyOf[V any](v any, conv func(any) (V, error)) (*page.Property[V], error) {
	switch p := v.(type) {
	case *page.Property[V]:
		return p.Clone(), nil
	case *page.Property[any]:
		return page.Convert(p, conv)
	default:
		x, err := conv(v)
		if err != nil {
			return nil, err
		}
		return page.New(x), nil
	}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case float64, int, json.Number:
		return "a number"
	case string:
		return "a string"
	case []any:
		return "a list"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
