package walker

import (
	"encoding/json"
	stderrors "errors"
	"sort"
	"strconv"

	"github.com/matzehuels/sseqchart/pkg/errors"
)

// ErrUnknownType is the cause of every error reported for a "type" tag that
// has no registry entry.
var ErrUnknownType = stderrors.New("unknown type")

// Parse decodes data with encoding/json and walks the result.
func (r *Registry) Parse(data []byte) (any, error) {
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "malformed JSON")
	}
	return r.Walk(tree)
}

// Walk revives every tagged object in v. Values without a string "type"
// field pass through, although their children are still walked. The input
// is never modified; containers holding revived values are fresh copies.
func (r *Registry) Walk(v any) (any, error) {
	return r.walk(v, "$")
}

func (r *Registry) walk(v any, path string) (any, error) {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			w, err := r.walk(item, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			out[i] = w
		}
		return out, nil
	case map[string]any:
		name, tagged := x["type"].(string)
		if !tagged {
			return r.walkFields(x, nil, path)
		}
		entry, ok := r.entries[name]
		if !ok {
			return nil, errors.Wrap(errors.ErrCodeUnknownType, ErrUnknownType, "%q at %s", name, path)
		}
		fields, err := r.walkFields(x, r.skip[name], path)
		if err != nil {
			return nil, err
		}
		delete(fields, "type")
		out, err := entry.Decode(fields)
		if err != nil {
			code := errors.GetCode(err)
			if code == "" {
				code = errors.ErrCodeInvalidInput
			}
			return nil, errors.Wrap(code, err, "decoding %s at %s", name, path)
		}
		return out, nil
	default:
		return v, nil
	}
}

// walkFields copies m, walking every field except "type" and those in skip.
// Keys are visited in sorted order so the first reported error is stable.
func (r *Registry) walkFields(m map[string]any, skip map[string]bool, path string) (map[string]any, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(m))
	for _, k := range keys {
		if k == "type" || skip[k] {
			out[k] = m[k]
			continue
		}
		w, err := r.walk(m[k], path+"."+k)
		if err != nil {
			return nil, err
		}
		out[k] = w
	}
	return out, nil
}
