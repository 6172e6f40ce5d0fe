package walker

import (
	"fmt"
	"sort"
)

// DecodeFunc builds a typed value from the walked fields of a tagged object.
// The "type" field has already been removed.
type DecodeFunc func(fields map[string]any) (any, error)

// Entry registers one type tag.
type Entry struct {
	// Name is the value of the "type" field this entry decodes.
	Name string
	// Decode builds the typed value.
	Decode DecodeFunc
	// Skip lists fields passed to Decode without being walked.
	Skip []string
}

// Registry is an immutable map from type tag to decoder.
type Registry struct {
	entries map[string]Entry
	skip    map[string]map[string]bool
}

// NewRegistry builds a registry from entries. It panics on an empty name,
// a nil decoder or a duplicate name, since registries are assembled at
// package initialization from fixed tables.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{
		entries: make(map[string]Entry, len(entries)),
		skip:    make(map[string]map[string]bool, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" {
			panic("walker: entry with empty name")
		}
		if e.Decode == nil {
			panic(fmt.Sprintf("walker: entry %q has no decoder", e.Name))
		}
		if _, dup := r.entries[e.Name]; dup {
			panic(fmt.Sprintf("walker: duplicate entry %q", e.Name))
		}
		r.entries[e.Name] = e
		if len(e.Skip) > 0 {
			set := make(map[string]bool, len(e.Skip))
			for _, f := range e.Skip {
				set[f] = true
			}
			r.skip[e.Name] = set
		}
	}
	return r
}

// Lookup returns the entry registered for name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered type tags in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
