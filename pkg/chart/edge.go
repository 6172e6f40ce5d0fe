package chart

import (
	"encoding/json"
	"maps"

	"github.com/google/uuid"

	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/page"
)

// Edge is a directed relation between two classes. The variants are
// [*Structline], [*Differential] and [*Extension].
//
// Edges refer to their endpoints by uuid only; [Edge.Source] and
// [Edge.Target] look the classes up in the owning chart.
type Edge interface {
	UUID() string
	Kind() Kind
	SourceUUID() string
	TargetUUID() string
	Source() (*Class, error)
	Target() (*Class, error)
	// DrawOnPageQ reports whether the edge is relevant to the page range.
	DrawOnPageQ(r page.Range) bool
	// Style returns a snapshot of the style on page p.
	Style(p page.Page) EdgeStyle
	Update(fields map[string]any) error
	Delete() error
	UserData() map[string]any
	json.Marshaler

	base() *edgeBase
	clone() Edge
}

// EdgeOptions are the options common to every edge variant.
type EdgeOptions struct {
	UUID       string // fresh uuid when empty
	SourceUUID string // mandatory
	TargetUUID string // mandatory
	UserData   map[string]any
}

type edgeBase struct {
	chart    *Chart
	uuid     string
	source   string
	target   string
	userData map[string]any
}

func newEdgeBase(opts EdgeOptions) (edgeBase, error) {
	if opts.SourceUUID == "" {
		return edgeBase{}, errors.New(errors.ErrCodeConstruction, "missing mandatory field").WithField("source_uuid")
	}
	if opts.TargetUUID == "" {
		return edgeBase{}, errors.New(errors.ErrCodeConstruction, "missing mandatory field").WithField("target_uuid")
	}
	b := edgeBase{
		uuid:     opts.UUID,
		source:   opts.SourceUUID,
		target:   opts.TargetUUID,
		userData: map[string]any{},
	}
	if b.uuid == "" {
		b.uuid = uuid.NewString()
	}
	if opts.UserData != nil {
		b.userData = maps.Clone(opts.UserData)
	}
	return b, nil
}

func (b *edgeBase) base() *edgeBase { return b }

// UUID returns the edge identity.
func (b *edgeBase) UUID() string { return b.uuid }

// SourceUUID returns the uuid of the source class.
func (b *edgeBase) SourceUUID() string { return b.source }

// TargetUUID returns the uuid of the target class.
func (b *edgeBase) TargetUUID() string { return b.target }

// UserData returns the free-form data attached to the edge.
func (b *edgeBase) UserData() map[string]any { return b.userData }

// Source resolves the source class through the owning chart.
func (b *edgeBase) Source() (*Class, error) { return b.resolve(b.source, "source_uuid") }

// Target resolves the target class through the owning chart.
func (b *edgeBase) Target() (*Class, error) { return b.resolve(b.target, "target_uuid") }

func (b *edgeBase) resolve(id, field string) (*Class, error) {
	if b.chart == nil {
		return nil, errors.New(errors.ErrCodeDanglingReference, "edge %s is not in a chart", b.uuid).WithField(field)
	}
	c, ok := b.chart.classes[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeDanglingReference, "no class with uuid %s", id).WithField(field)
	}
	return c, nil
}

// Delete removes the edge from the owning chart.
func (b *edgeBase) Delete() error {
	if b.chart == nil {
		return errors.New(errors.ErrCodeNotFound, "edge %s is not in a chart", b.uuid)
	}
	return b.chart.DeleteEdge(b.uuid)
}

func (b *edgeBase) cloneBase() edgeBase {
	cp := *b
	cp.userData = maps.Clone(b.userData)
	return cp
}

// edgeFields holds the wire fields shared by all variants.
type edgeFields struct {
	EdgeOptions
	hasUserData bool
}

// readBaseField consumes key if it is common to all edges. It reports
// whether the key was recognized.
func (f *edgeFields) readBaseField(kind Kind, key string, v any) (bool, error) {
	var err error
	switch key {
	case "type":
		if s, _ := v.(string); s != kind.String() {
			err = errors.New(errors.ErrCodeInconsistentField, "expected %q, got %v", kind, v)
		}
	case "uuid":
		f.UUID, err = toString(v)
	case "source_uuid":
		f.SourceUUID, err = toString(v)
	case "target_uuid":
		f.TargetUUID, err = toString(v)
	case "user_data":
		f.UserData, err = toUserData(v)
		f.hasUserData = true
	default:
		return false, nil
	}
	return true, err
}

// checkIdentity rejects a patch that names a different uuid or endpoint.
func (b *edgeBase) checkIdentity(f edgeFields) error {
	if f.UUID != "" && f.UUID != b.uuid {
		return errors.New(errors.ErrCodeInconsistentField, "inconsistent values %q and %q", b.uuid, f.UUID).WithField("uuid")
	}
	if f.SourceUUID != "" && f.SourceUUID != b.source {
		return errors.New(errors.ErrCodeInconsistentField, "inconsistent values %q and %q", b.source, f.SourceUUID).WithField("source_uuid")
	}
	if f.TargetUUID != "" && f.TargetUUID != b.target {
		return errors.New(errors.ErrCodeInconsistentField, "inconsistent values %q and %q", b.target, f.TargetUUID).WithField("target_uuid")
	}
	return nil
}

func (b *edgeBase) changed() {
	if b.chart != nil {
		b.chart.emit(Event{Type: EventUpdate, UUID: b.uuid})
	}
}

// DecodeEdge builds a detached edge from walked wire fields, choosing the
// variant from the "type" field.
func DecodeEdge(fields map[string]any) (Edge, error) {
	name, _ := fields["type"].(string)
	kind, ok := ParseKind(name)
	if !ok || !kind.IsEdge() {
		return nil, errors.New(errors.ErrCodeUnknownType, "%q is not an edge type", name).WithField("type")
	}
	return decodeEdge(kind, fields)
}

func decodeEdge(kind Kind, fields map[string]any) (Edge, error) {
	switch kind {
	case KindStructline:
		opts, err := structlineOptionsFromFields(fields)
		if err != nil {
			return nil, err
		}
		return NewStructline(opts)
	case KindDifferential:
		opts, err := differentialOptionsFromFields(fields)
		if err != nil {
			return nil, err
		}
		return NewDifferential(opts)
	case KindExtension:
		opts, err := extensionOptionsFromFields(fields)
		if err != nil {
			return nil, err
		}
		return NewExtension(opts)
	default:
		return nil, errors.New(errors.ErrCodeUnknownType, "%q is not an edge type", kind)
	}
}
