package page

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/matzehuels/sseqchart/pkg/errors"
)

// Key addresses an assignment to a Property: either a single page or a
// half-open span [Lo, Hi). Open ends of a span are NegInfinity and Infinity.
type Key struct {
	Span bool
	Lo   Page
	Hi   Page
}

// PointKey addresses exactly page p.
func PointKey(p Page) Key { return Key{Lo: p, Hi: p} }

// SpanKey addresses the half-open span [lo, hi).
func SpanKey(lo, hi Page) Key { return Key{Span: true, Lo: lo, Hi: hi} }

func (k Key) String() string {
	if !k.Span {
		return k.Lo.String()
	}
	var b strings.Builder
	if k.Lo > NegInfinity {
		b.WriteString(k.Lo.String())
	}
	b.WriteByte(':')
	if k.Hi < Infinity {
		b.WriteString(k.Hi.String())
	}
	return b.String()
}

var (
	pointKeyRe = regexp.MustCompile(`^-?\d+$`)
	spanKeyRe  = regexp.MustCompile(`^(-?\d+)?:(-?\d+)?$`)
)

// ParseKey parses the string forms "N", "N:M", ":M", "N:" and ":".
// All whitespace is ignored and commas are read as colons, so "2, 5" is the
// span [2, 5). Anything else is an INVALID_PAGE_KEY error.
func ParseKey(s string) (Key, error) {
	norm := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		if r == ',' {
			return ':'
		}
		return r
	}, s)

	if pointKeyRe.MatchString(norm) {
		p, err := atoiPage(norm, s)
		if err != nil {
			return Key{}, err
		}
		return PointKey(p), nil
	}

	m := spanKeyRe.FindStringSubmatch(norm)
	if m == nil {
		return Key{}, errors.New(errors.ErrCodeInvalidPageKey, "invalid page key %q (want N, N:M, :M, N: or :)", s)
	}
	k := SpanKey(NegInfinity, Infinity)
	if m[1] != "" {
		p, err := atoiPage(m[1], s)
		if err != nil {
			return Key{}, err
		}
		k.Lo = p
	}
	if m[2] != "" {
		p, err := atoiPage(m[2], s)
		if err != nil {
			return Key{}, err
		}
		k.Hi = p
	}
	return k, nil
}

func atoiPage(digits, orig string) (Page, error) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidPageKey, err, "invalid page key %q", orig)
	}
	return Page(n).clamp(), nil
}
