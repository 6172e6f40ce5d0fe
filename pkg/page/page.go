package page

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/sseqchart/pkg/errors"
)

// Page is a page number, extended with the ±∞ sentinels.
type Page int

const (
	// Infinity is the limit page. Every page >= Infinity behaves as +∞.
	Infinity Page = 65535
	// NegInfinity is the first breakpoint of every property.
	NegInfinity Page = -Infinity
)

// clamp folds pages beyond the sentinels onto them.
func (p Page) clamp() Page {
	switch {
	case p >= Infinity:
		return Infinity
	case p <= NegInfinity:
		return NegInfinity
	default:
		return p
	}
}

// IsInfinite reports whether p is one of the sentinels.
func (p Page) IsInfinite() bool {
	return p >= Infinity || p <= NegInfinity
}

// String formats p, rendering the sentinels as ∞ and -∞.
func (p Page) String() string {
	switch {
	case p >= Infinity:
		return "∞"
	case p <= NegInfinity:
		return "-∞"
	default:
		return strconv.Itoa(int(p))
	}
}

// Of converts a decoded JSON number to a Page.
// It accepts Go integers, json.Number and integral float64 values. Values
// beyond the sentinels are clamped to ±∞ before conversion.
func Of(v any) (Page, error) {
	switch n := v.(type) {
	case Page:
		return n.clamp(), nil
	case int:
		return fromInt64(int64(n)), nil
	case int64:
		return fromInt64(n), nil
	case float64:
		return fromFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return fromInt64(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "page %q is not an integer", n.String())
		}
		return fromFloat(f)
	default:
		return 0, errors.New(errors.ErrCodeInvalidInput, "expected an integer page, got %T", v)
	}
}

func fromInt64(n int64) Page {
	switch {
	case n >= int64(Infinity):
		return Infinity
	case n <= int64(NegInfinity):
		return NegInfinity
	}
	return Page(n)
}

func fromFloat(n float64) (Page, error) {
	switch {
	case math.IsNaN(n):
		return 0, errors.New(errors.ErrCodeInvalidInput, "page is NaN")
	case n >= float64(Infinity):
		return Infinity, nil
	case n <= float64(NegInfinity):
		return NegInfinity, nil
	case n != math.Trunc(n):
		return 0, errors.New(errors.ErrCodeInvalidInput, "page %v is not an integer", n)
	}
	return Page(n), nil
}

// Range is a closed page range [lo, hi].
//
// Two ranges carry special meaning for edges: Range{0, 0} selects every
// differential, and Range{Infinity, Infinity} is the limit page where
// extensions are drawn.
type Range [2]Page

// Lo returns the lower bound.
func (r Range) Lo() Page { return r[0] }

// Hi returns the upper bound.
func (r Range) Hi() Page { return r[1] }

// Contains reports whether lo <= p <= hi.
func (r Range) Contains(p Page) bool { return r[0] <= p && p <= r[1] }

func (r Range) String() string {
	if r[0] == r[1] {
		return r[0].String()
	}
	return r[0].String() + ":" + r[1].String()
}

// ParseRange parses a page range as typed on a command line: "N", "N:M" or
// "N:inf". "inf" and "∞" denote Infinity.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	lo, hi, isSpan := strings.Cut(s, ":")
	a, err := parseBound(lo)
	if err != nil {
		return Range{}, err
	}
	if !isSpan {
		return Range{a, a}, nil
	}
	b, err := parseBound(hi)
	if err != nil {
		return Range{}, err
	}
	if b < a {
		return Range{}, errors.New(errors.ErrCodeInvalidPageKey, "page range %q is empty", s)
	}
	return Range{a, b}, nil
}

func parseBound(s string) (Page, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inf", "infinity", "∞":
		return Infinity, nil
	case "-inf", "-infinity", "-∞":
		return NegInfinity, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidPageKey, err, "invalid page %q", s)
	}
	return Page(n).clamp(), nil
}
