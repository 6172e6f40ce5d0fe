package page

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/matzehuels/sseqchart/pkg/errors"
)

// TypeName is the "type" tag of a serialized Property.
const TypeName = "PageProperty"

// Breakpoint is a (page, value) pair. It encodes as a two-element JSON array.
type Breakpoint[V any] struct {
	Page  Page
	Value V
}

// MarshalJSON encodes the breakpoint as [page, value].
func (b Breakpoint[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{b.Page, b.Value})
}

// UnmarshalJSON decodes a [page, value] array.
func (b *Breakpoint[V]) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return errors.New(errors.ErrCodeInvalidInput, "breakpoint must be a [page, value] pair, got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &b.Page); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "breakpoint page")
	}
	return json.Unmarshal(raw[1], &b.Value)
}

// Property is a piecewise-constant function from pages to values of type V.
//
// The zero value is not usable; create properties with [New] or
// [FromBreakpoints].
type Property[V any] struct {
	values []Breakpoint[V]
}

// New returns a property that is v on every page.
func New[V any](v V) *Property[V] {
	return &Property[V]{values: []Breakpoint[V]{{Page: NegInfinity, Value: v}}}
}

// FromBreakpoints builds a property from an explicit breakpoint list.
// The list must be non-empty, start at NegInfinity and be strictly increasing.
// Redundant breakpoints are merged.
func FromBreakpoints[V any](bps []Breakpoint[V]) (*Property[V], error) {
	if len(bps) == 0 {
		return nil, errors.New(errors.ErrCodeConstruction, "page property needs at least one breakpoint")
	}
	values := make([]Breakpoint[V], len(bps))
	for i, bp := range bps {
		bp.Page = bp.Page.clamp()
		if i == 0 && bp.Page != NegInfinity {
			return nil, errors.New(errors.ErrCodeConstruction, "first breakpoint is %s, want -∞", bp.Page)
		}
		if i > 0 && bp.Page <= values[i-1].Page {
			return nil, errors.New(errors.ErrCodeConstruction, "breakpoints not strictly increasing at index %d (%s after %s)", i, bp.Page, values[i-1].Page)
		}
		values[i] = bp
	}
	p := &Property[V]{values: values}
	p.mergeRedundant()
	return p, nil
}

// Get returns the value on page pg (valueOnPage).
func (p *Property[V]) Get(pg Page) V {
	if len(p.values) == 0 {
		panic("page: property has no breakpoints")
	}
	idx, _ := p.findIndex(pg.clamp())
	return p.values[idx].Value
}

// SetPoint sets the value on exactly page pg. It returns the index of the
// breakpoint written and whether a breakpoint already existed at pg; both
// describe the list before redundant breakpoints are merged.
func (p *Property[V]) SetPoint(pg Page, v V) (int, bool) {
	idx, hit := p.setSingle(pg.clamp(), v)
	p.mergeRedundant()
	return idx, hit
}

// SetRange sets v on every page of the half-open span [start, stop).
// Use NegInfinity and Infinity for open ends. An empty span is a no-op.
func (p *Property[V]) SetRange(start, stop Page, v V) {
	start, stop = start.clamp(), stop.clamp()
	if stop <= start {
		return
	}
	// The value in effect at stop must survive past the span.
	orig := p.Get(stop)
	startIdx, _ := p.setSingle(start, v)

	endIdx, hitEnd := p.findIndex(stop)
	switch {
	case hitEnd:
	case stop < Infinity:
		endIdx, _ = p.setSingle(stop, orig)
	default:
		endIdx++
	}
	p.values = append(p.values[:startIdx+1], p.values[endIdx:]...)
	p.mergeRedundant()
}

// Set applies v at the page or span addressed by k.
func (p *Property[V]) Set(k Key, v V) {
	if k.Span {
		p.SetRange(k.Lo, k.Hi, v)
		return
	}
	p.SetPoint(k.Lo, v)
}

// SetKey parses key with [ParseKey] and applies v. On a parse error the
// property is left unmodified.
func (p *Property[V]) SetKey(key string, v V) error {
	k, err := ParseKey(key)
	if err != nil {
		return err
	}
	p.Set(k, v)
	return nil
}

// Breakpoints returns a copy of the breakpoint list.
func (p *Property[V]) Breakpoints() []Breakpoint[V] {
	out := make([]Breakpoint[V], len(p.values))
	copy(out, p.values)
	return out
}

// Len returns the number of breakpoints.
func (p *Property[V]) Len() int { return len(p.values) }

// Equal reports whether p and other describe the same function.
func (p *Property[V]) Equal(other *Property[V]) bool {
	if p == nil || other == nil {
		return p == other
	}
	if len(p.values) != len(other.values) {
		return false
	}
	for i := range p.values {
		if p.values[i].Page != other.values[i].Page || !equalValues(p.values[i].Value, other.values[i].Value) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of p. Values are copied shallowly.
func (p *Property[V]) Clone() *Property[V] {
	if p == nil {
		return nil
	}
	return &Property[V]{values: p.Breakpoints()}
}

func (p *Property[V]) String() string {
	parts := make([]string, len(p.values))
	for i, bp := range p.values {
		parts[i] = fmt.Sprintf("[%s %v]", bp.Page, bp.Value)
	}
	return "PageProperty(" + strings.Join(parts, " ") + ")"
}

// findIndex returns the index of the greatest breakpoint <= target and whether
// that breakpoint sits exactly on target.
func (p *Property[V]) findIndex(target Page) (int, bool) {
	idx := 0
	for i, bp := range p.values {
		if bp.Page > target {
			break
		}
		idx = i
	}
	return idx, p.values[idx].Page == target
}

func (p *Property[V]) setSingle(pg Page, v V) (int, bool) {
	idx, hit := p.findIndex(pg)
	if hit {
		p.values[idx].Value = v
		return idx, true
	}
	idx++
	p.values = append(p.values, Breakpoint[V]{})
	copy(p.values[idx+1:], p.values[idx:])
	p.values[idx] = Breakpoint[V]{Page: pg, Value: v}
	return idx, false
}

// mergeRedundant drops every breakpoint whose value equals its predecessor's.
func (p *Property[V]) mergeRedundant() {
	for i := len(p.values) - 1; i >= 1; i-- {
		if equalValues(p.values[i].Value, p.values[i-1].Value) {
			p.values = append(p.values[:i], p.values[i+1:]...)
		}
	}
}

func equalValues[V any](a, b V) bool {
	return reflect.DeepEqual(a, b)
}

type wireProperty[V any] struct {
	Type string          `json:"type"`
	Data []Breakpoint[V] `json:"data"`
}

// MarshalJSON encodes p as {"type": "PageProperty", "data": [[page, value], ...]}.
func (p *Property[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireProperty[V]{Type: TypeName, Data: p.values})
}

// UnmarshalJSON accepts either a tagged property object or a bare value,
// which is wrapped as if by [New].
func (p *Property[V]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var tag struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(trimmed, &tag); err == nil && tag.Type == TypeName {
			var w wireProperty[V]
			if err := json.Unmarshal(trimmed, &w); err != nil {
				return err
			}
			q, err := FromBreakpoints(w.Data)
			if err != nil {
				return err
			}
			*p = *q
			return nil
		}
	}
	var v V
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*p = *New(v)
	return nil
}

// Decode builds an untyped property from the fields of a decoded
// {"type": "PageProperty", "data": [...]} object.
func Decode(fields map[string]any) (*Property[any], error) {
	raw, ok := fields["data"]
	if !ok {
		return nil, errors.New(errors.ErrCodeConstruction, "missing mandatory field").WithField("data")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected a list of [page, value] pairs, got %T", raw).WithField("data")
	}
	bps := make([]Breakpoint[any], len(list))
	for i, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "entry %d is not a [page, value] pair", i).WithField("data")
		}
		pg, err := Of(pair[0])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "entry %d", i).WithField("data")
		}
		bps[i] = Breakpoint[any]{Page: pg, Value: pair[1]}
	}
	return FromBreakpoints(bps)
}

// Convert maps an untyped property to a typed one, converting every value with conv.
func Convert[V any](src *Property[any], conv func(any) (V, error)) (*Property[V], error) {
	bps := make([]Breakpoint[V], len(src.values))
	for i, bp := range src.values {
		v, err := conv(bp.Value)
		if err != nil {
			return nil, fmt.Errorf("value on page %s: %w", bp.Page, err)
		}
		bps[i] = Breakpoint[V]{Page: bp.Page, Value: v}
	}
	return FromBreakpoints(bps)
}
