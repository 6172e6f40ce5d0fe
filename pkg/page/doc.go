// Package page models values that vary with the page of a spectral sequence.
//
// A spectral sequence chart is viewed one page at a time, and almost every
// visual attribute of a class or edge (visibility, color, nudges, ...) may change
// from one page to the next. [Property] stores such an attribute compactly as a
// piecewise-constant function from pages to values.
//
// # Pages
//
// [Page] is an integer extended with two sentinels, [NegInfinity] and [Infinity].
// The sentinels are the integers ±65535, which is also how they travel on the wire.
// [Range] is a closed page range [lo, hi] as stored in a chart's page list.
//
// # Properties
//
// A property is a list of breakpoints. The value on page p is the value of the
// greatest breakpoint <= p, and the first breakpoint is always -∞:
//
//	p := page.New(0)          // [[-∞ 0]]
//	p.SetPoint(2, 2)          // [[-∞ 0] [2 2]]
//	p.SetRange(5, 10, 7)      // [[-∞ 0] [2 2] [5 7] [10 2]]
//	p.Get(6)                  // 7
//
// Adjacent breakpoints never carry equal values: every mutation ends by merging
// redundant breakpoints, so two properties describing the same function always
// have the same breakpoint list.
//
// # Keys
//
// Assignments can also be addressed with a [Key] parsed from the string forms
// "N", "N:M", ":M", "N:" and ":". Whitespace is ignored and commas act as colons.
//
// # Serialization
//
// Properties encode as {"type": "PageProperty", "data": [[page, value], ...]}.
//
// # Concurrency
//
// A Property is not safe for concurrent mutation. It is owned by exactly one
// chart attribute and mutated only through its methods.
package page
