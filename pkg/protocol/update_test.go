package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/errors"
)

func TestToUpdate(t *testing.T) {
	cls := map[string]any{"type": "ChartClass", "uuid": "a", "degree": []any{1.0, 2.0}}
	edge := map[string]any{"type": "ChartStructline", "uuid": "e", "source_uuid": "a", "target_uuid": "b"}

	tests := []struct {
		name string
		msg  Message
		want chart.Update
	}{
		{
			name: "class add",
			msg:  NewMessage(CmdClassAdd, map[string]any{"new_class": cls}),
			want: chart.Update{Op: chart.OpAdd, Target: chart.TargetClass, Fields: cls},
		},
		{
			name: "class update",
			msg:  NewMessage(CmdClassUpdate, map[string]any{"class_to_update": cls}),
			want: chart.Update{Op: chart.OpUpdate, Target: chart.TargetClass, UUID: "a", Fields: cls},
		},
		{
			name: "class delete by uuid",
			msg:  NewMessage(CmdClassDelete, map[string]any{"class_to_delete": "a"}),
			want: chart.Update{Op: chart.OpDelete, Target: chart.TargetClass, UUID: "a"},
		},
		{
			name: "class delete by object",
			msg:  NewMessage(CmdClassDelete, map[string]any{"class_to_delete": cls}),
			want: chart.Update{Op: chart.OpDelete, Target: chart.TargetClass, UUID: "a"},
		},
		{
			name: "edge add wrapped",
			msg:  NewMessage(CmdEdgeAdd, map[string]any{"new_edge": edge}),
			want: chart.Update{Op: chart.OpAdd, Target: chart.TargetEdge, Fields: edge},
		},
		{
			name: "edge add bare",
			msg:  NewMessage(CmdEdgeAdd, edge),
			want: chart.Update{Op: chart.OpAdd, Target: chart.TargetEdge, Fields: edge},
		},
		{
			name: "edge update",
			msg:  NewMessage(CmdEdgeUpdate, map[string]any{"edge_to_update": edge}),
			want: chart.Update{Op: chart.OpUpdate, Target: chart.TargetEdge, UUID: "e", Fields: edge},
		},
		{
			name: "edge delete",
			msg:  NewMessage(CmdEdgeDelete, map[string]any{"edge_to_delete": "e"}),
			want: chart.Update{Op: chart.OpDelete, Target: chart.TargetEdge, UUID: "e"},
		},
		{
			name: "insert page range",
			msg:  NewMessage(CmdInsertPageRange, map[string]any{"page_range": []any{3.0, 3.0}, "idx": 1.0}),
			want: chart.Update{Op: chart.OpAdd, Target: chart.TargetChart, Fields: map[string]any{"page_range": []any{3.0, 3.0}}},
		},
		{
			name: "x range pair",
			msg:  NewMessage(CmdSetXRange, map[string]any{"x_range": []any{0.0, 20.0}}),
			want: chart.Update{Op: chart.OpUpdate, Target: chart.TargetChart, Fields: map[string]any{"x_range": []any{0.0, 20.0}}},
		},
		{
			name: "y range bounds",
			msg:  NewMessage(CmdSetYRange, map[string]any{"y_min": -1.0, "y_max": 5.0}),
			want: chart.Update{Op: chart.OpUpdate, Target: chart.TargetChart, Fields: map[string]any{"y_range": []any{-1.0, 5.0}}},
		},
		{
			name: "initial x range sent as x_range",
			msg:  NewMessage(CmdSetInitialXRange, map[string]any{"x_range": []any{0.0, 8.0}}),
			want: chart.Update{Op: chart.OpUpdate, Target: chart.TargetChart, Fields: map[string]any{"initial_x_range": []any{0.0, 8.0}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToUpdate(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToUpdateErrors(t *testing.T) {
	tests := []struct {
		name  string
		msg   Message
		code  errors.Code
		field string
	}{
		{"missing payload", NewMessage(CmdClassAdd, nil), errors.ErrCodeConstruction, "new_class"},
		{"payload not an object", NewMessage(CmdClassUpdate, map[string]any{"class_to_update": 4.0}), errors.ErrCodeInvalidInput, "class_to_update"},
		{"delete without uuid", NewMessage(CmdEdgeDelete, map[string]any{"edge_to_delete": map[string]any{}}), errors.ErrCodeInvalidInput, "edge_to_delete"},
		{"half a range", NewMessage(CmdSetXRange, map[string]any{"x_min": 1.0}), errors.ErrCodeConstruction, "x_range"},
		{"reset", NewMessage(CmdStateReset, nil), errors.ErrCodeUnsupported, "cmd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToUpdate(tt.msg)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
			assert.Equal(t, tt.field, errors.GetField(err))
		})
	}
}

func TestToUpdatesFlattensBatches(t *testing.T) {
	inner := NewMessage(CmdBatched, map[string]any{"messages": []any{
		NewMessage(CmdClassDelete, map[string]any{"class_to_delete": "c"}),
	}})
	msg := NewMessage(CmdBatched, map[string]any{"messages": []any{
		map[string]any{"cmd": []any{"chart.class.delete", "chart.class", "chart"}, "args": []any{}, "kwargs": map[string]any{"class_to_delete": "a"}},
		map[string]any{"cmd": "chart.edge.delete", "kwargs": map[string]any{"edge_to_delete": "b"}},
		inner,
	}})
	got, err := ToUpdates(msg)
	require.NoError(t, err)
	assert.Equal(t, []chart.Update{
		{Op: chart.OpDelete, Target: chart.TargetClass, UUID: "a"},
		{Op: chart.OpDelete, Target: chart.TargetEdge, UUID: "b"},
		{Op: chart.OpDelete, Target: chart.TargetClass, UUID: "c"},
	}, got)

	_, err = ToUpdates(NewMessage(CmdBatched, map[string]any{"messages": []any{"nope"}}))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = ToUpdates(NewMessage(CmdBatched, nil))
	assert.True(t, errors.Is(err, errors.ErrCodeConstruction))
}
