package protocol

import "github.com/google/uuid"

// AssignUUIDs returns msg with a uuid written into every class or edge it
// creates without one. Relaying the result lets every receiver build the
// entity under the same uuid. chart.batched messages are handled
// recursively. msg itself is not modified; messages that do not create
// entities, or that are malformed, come back unchanged.
func AssignUUIDs(msg Message) Message {
	switch msg.Cmd.String() {
	case CmdClassAdd:
		if fields, ok := msg.Kwargs["new_class"].(map[string]any); ok && idOf(fields) == "" {
			msg.Kwargs = withEntry(msg.Kwargs, "new_class", withUUID(fields))
		}
	case CmdEdgeAdd:
		if raw, ok := msg.Kwargs["new_edge"]; ok {
			if fields, ok := raw.(map[string]any); ok && idOf(fields) == "" {
				msg.Kwargs = withEntry(msg.Kwargs, "new_edge", withUUID(fields))
			}
		} else if msg.Kwargs != nil && idOf(msg.Kwargs) == "" {
			msg.Kwargs = withUUID(msg.Kwargs)
		}
	case CmdBatched:
		nested, err := Nested(msg)
		if err != nil {
			return msg
		}
		list := make([]any, len(nested))
		for i, m := range nested {
			list[i] = AssignUUIDs(m)
		}
		msg.Kwargs = withEntry(msg.Kwargs, "messages", list)
	}
	return msg
}

func withUUID(fields map[string]any) map[string]any {
	return withEntry(fields, "uuid", uuid.NewString())
}

// withEntry returns a shallow copy of m with key set to v.
func withEntry(m map[string]any, key string, v any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, x := range m {
		out[k] = x
	}
	out[key] = v
	return out
}
