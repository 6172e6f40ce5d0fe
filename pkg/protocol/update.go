package protocol

import (
	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/errors"
)

// Command names understood by the chart handlers.
const (
	CmdClassAdd         = "chart.class.add"
	CmdClassUpdate      = "chart.class.update"
	CmdClassDelete      = "chart.class.delete"
	CmdEdgeAdd          = "chart.edge.add"
	CmdEdgeUpdate       = "chart.edge.update"
	CmdEdgeDelete       = "chart.edge.delete"
	CmdStateReset       = "chart.state.reset"
	CmdBatched          = "chart.batched"
	CmdInsertPageRange  = "chart.insert_page_range"
	CmdSetXRange        = "chart.set_x_range"
	CmdSetYRange        = "chart.set_y_range"
	CmdSetInitialXRange = "chart.set_initial_x_range"
	CmdSetInitialYRange = "chart.set_initial_y_range"
	CmdUpdate           = "chart.update"
)

// ToUpdate converts a chart command into the batch update it describes.
// chart.state.reset and chart.batched have no single-update form and are
// rejected with UNSUPPORTED.
func ToUpdate(msg Message) (chart.Update, error) {
	kw := msg.Kwargs
	switch msg.Cmd.String() {
	case CmdClassAdd:
		fields, err := object(kw, "new_class")
		return chart.Update{Op: chart.OpAdd, Target: chart.TargetClass, Fields: fields}, err
	case CmdClassUpdate:
		fields, err := object(kw, "class_to_update")
		return chart.Update{Op: chart.OpUpdate, Target: chart.TargetClass, UUID: idOf(fields), Fields: fields}, err
	case CmdClassDelete:
		id, err := reference(kw, "class_to_delete")
		return chart.Update{Op: chart.OpDelete, Target: chart.TargetClass, UUID: id}, err
	case CmdEdgeAdd:
		fields := kw
		if _, ok := kw["new_edge"]; ok {
			var err error
			if fields, err = object(kw, "new_edge"); err != nil {
				return chart.Update{}, err
			}
		}
		return chart.Update{Op: chart.OpAdd, Target: chart.TargetEdge, Fields: fields}, nil
	case CmdEdgeUpdate:
		fields, err := object(kw, "edge_to_update")
		return chart.Update{Op: chart.OpUpdate, Target: chart.TargetEdge, UUID: idOf(fields), Fields: fields}, err
	case CmdEdgeDelete:
		id, err := reference(kw, "edge_to_delete")
		return chart.Update{Op: chart.OpDelete, Target: chart.TargetEdge, UUID: id}, err
	case CmdInsertPageRange:
		r, ok := kw["page_range"]
		if !ok {
			return chart.Update{}, missing("page_range")
		}
		return chart.Update{Op: chart.OpAdd, Target: chart.TargetChart, Fields: map[string]any{"page_range": r}}, nil
	case CmdSetXRange:
		return rangeUpdate(kw, "x_range", "x_range", "x_min", "x_max")
	case CmdSetYRange:
		return rangeUpdate(kw, "y_range", "y_range", "y_min", "y_max")
	case CmdSetInitialXRange:
		return rangeUpdate(kw, "initial_x_range", "x_range", "x_min", "x_max")
	case CmdSetInitialYRange:
		return rangeUpdate(kw, "initial_y_range", "y_range", "y_min", "y_max")
	case CmdUpdate:
		return chart.Update{Op: chart.OpUpdate, Target: chart.TargetChart, Fields: kw}, nil
	}
	return chart.Update{}, errors.New(errors.ErrCodeUnsupported, "command %q has no update form", msg.Cmd.String()).WithField("cmd")
}

// ToUpdates flattens msg into updates; chart.batched contributes each of
// its nested messages in order.
func ToUpdates(msg Message) ([]chart.Update, error) {
	if msg.Cmd.String() != CmdBatched {
		u, err := ToUpdate(msg)
		if err != nil {
			return nil, err
		}
		return []chart.Update{u}, nil
	}
	nested, err := Nested(msg)
	if err != nil {
		return nil, err
	}
	var out []chart.Update
	for i, m := range nested {
		us, err := ToUpdates(m)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "messages[%d] (%s)", i, m.Cmd)
		}
		out = append(out, us...)
	}
	return out, nil
}

// Nested returns the messages carried by a chart.batched message.
func Nested(msg Message) ([]Message, error) {
	raw, ok := msg.Kwargs["messages"]
	if !ok {
		return nil, missing("messages")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected a list of messages, got %T", raw).WithField("messages")
	}
	out := make([]Message, len(list))
	for i, item := range list {
		m, err := fromValue(item)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "messages[%d]", i).WithField("messages")
		}
		out[i] = m
	}
	return out, nil
}

// fromValue rebuilds a message from its generic JSON form.
func fromValue(v any) (Message, error) {
	switch m := v.(type) {
	case Message:
		return m, nil
	case map[string]any:
		var msg Message
		switch cmd := m["cmd"].(type) {
		case string:
			msg.Cmd = ParseCommand(cmd)
		case []any:
			for _, p := range cmd {
				s, ok := p.(string)
				if !ok {
					return Message{}, errors.New(errors.ErrCodeInvalidInput, "cmd entries must be strings").WithField("cmd")
				}
				msg.Cmd = append(msg.Cmd, s)
			}
			if len(msg.Cmd) == 1 {
				msg.Cmd = ParseCommand(msg.Cmd[0])
			}
		}
		msg.Args, _ = m["args"].([]any)
		msg.Kwargs, _ = m["kwargs"].(map[string]any)
		msg.UUID, _ = m["uuid"].(string)
		if err := msg.validate(); err != nil {
			return Message{}, err
		}
		return msg, nil
	}
	return Message{}, errors.New(errors.ErrCodeInvalidInput, "expected a message object, got %T", v)
}

func object(kw map[string]any, key string) (map[string]any, error) {
	v, ok := kw[key]
	if !ok {
		return nil, missing(key)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected an object, got %T", v).WithField(key)
	}
	return m, nil
}

// reference accepts either a uuid string or an object carrying one.
func reference(kw map[string]any, key string) (string, error) {
	v, ok := kw[key]
	if !ok {
		return "", missing(key)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case map[string]any:
		if id := idOf(x); id != "" {
			return id, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "expected a uuid or an object with a uuid").WithField(key)
}

func idOf(fields map[string]any) string {
	id, _ := fields["uuid"].(string)
	return id
}

func rangeUpdate(kw map[string]any, field, pairKey, minKey, maxKey string) (chart.Update, error) {
	var v any
	if pair, ok := kw[field]; ok {
		v = pair
	} else if pair, ok := kw[pairKey]; ok {
		v = pair
	} else {
		lo, okLo := kw[minKey]
		hi, okHi := kw[maxKey]
		if !okLo || !okHi {
			return chart.Update{}, missing(field)
		}
		v = []any{lo, hi}
	}
	return chart.Update{Op: chart.OpUpdate, Target: chart.TargetChart, Fields: map[string]any{field: v}}, nil
}

func missing(key string) error {
	return errors.New(errors.ErrCodeConstruction, "missing mandatory field").WithField(key)
}
