package chart

// Kind identifies a serializable chart type. Its String form is the "type"
// tag used on the wire.
type Kind int

const (
	KindChart Kind = iota
	KindClass
	KindStructline
	KindDifferential
	KindExtension
	KindPageProperty
	KindColor
	KindArrowTip
	KindShape
)

var kindNames = [...]string{
	KindChart:        "SseqChart",
	KindClass:        "ChartClass",
	KindStructline:   "ChartStructline",
	KindDifferential: "ChartDifferential",
	KindExtension:    "ChartExtension",
	KindPageProperty: "PageProperty",
	KindColor:        "Color",
	KindArrowTip:     "ArrowTip",
	KindShape:        "Shape",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(?)"
	}
	return kindNames[k]
}

// IsEdge reports whether k is one of the edge variants.
func (k Kind) IsEdge() bool {
	return k == KindStructline || k == KindDifferential || k == KindExtension
}

// ParseKind returns the kind whose wire tag is s.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}
