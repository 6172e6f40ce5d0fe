// Package walker rebuilds typed values from a generic JSON tree.
//
// Every serialized chart entity is a JSON object tagged with a "type"
// field. A [Registry] maps each known tag to a decoder; [Registry.Walk]
// descends a tree produced by encoding/json, decodes children first and
// then hands the already-revived fields of each tagged object to its
// decoder.
//
// # Closed Registry
//
// The registry is built once with [NewRegistry] and never changes. A tag
// that is not registered is an error (code UNKNOWN_TYPE, wrapping
// [ErrUnknownType]); the walker never guesses a type from an object's shape.
//
//	reg := walker.NewRegistry(
//	    walker.Entry{Name: "PageProperty", Decode: decodeProperty},
//	    walker.Entry{Name: "ChartClass", Decode: decodeClass},
//	)
//	v, err := reg.Parse(data)
//
// # Skipped Fields
//
// An [Entry] may list fields the walker must hand to the decoder untouched,
// for sub-trees the decoder validates itself.
//
// There is no write-side walker: serialization is plain json.Marshal over
// values whose MarshalJSON methods emit the tagged form.
package walker
