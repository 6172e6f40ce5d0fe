package protocol

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/observability"
	"github.com/matzehuels/sseqchart/pkg/page"
)

type recordingHooks struct {
	observability.NoopChartHooks
	mu       sync.Mutex
	handled  []string
	rejected []string
	batches  []int
}

func (h *recordingHooks) OnMessageHandled(_ context.Context, cmd string, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, cmd)
}

func (h *recordingHooks) OnMessageRejected(_ context.Context, cmd string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejected = append(h.rejected, cmd)
}

func (h *recordingHooks) OnBatchApplied(_ context.Context, n int, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.batches = append(h.batches, n)
}

func withHooks(t *testing.T) *recordingHooks {
	t.Helper()
	h := &recordingHooks{}
	observability.SetChartHooks(h)
	t.Cleanup(observability.Reset)
	return h
}

func newClass(id string, x, y float64) map[string]any {
	return map[string]any{"type": "ChartClass", "uuid": id, "degree": []any{x, y}}
}

func TestDispatcherLongestPrefix(t *testing.T) {
	d := NewDispatcher(chart.New(chart.Options{}))
	var got []string
	d.Register("chart.class", func(context.Context, *chart.Chart, Message) error {
		got = append(got, "chart.class")
		return nil
	})
	d.Register("display", func(context.Context, *chart.Chart, Message) error {
		got = append(got, "display")
		return nil
	})

	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, NewMessage("chart.class.set_name", nil)))
	require.NoError(t, d.Handle(ctx, NewMessage("display.set_background_color", nil)))
	assert.Equal(t, []string{"chart.class", "display"}, got)

	key, _, ok := d.Lookup(ParseCommand("chart.class.add"))
	require.True(t, ok)
	assert.Equal(t, CmdClassAdd, key, "an exact handler beats the prefix")

	_, _, ok = d.Lookup(ParseCommand("interact.alert"))
	assert.False(t, ok)
	err := d.Handle(ctx, NewMessage("interact.alert", nil))
	assert.True(t, errors.Is(err, errors.ErrCodeUnsupported))
}

func TestDispatcherAppliesChartCommands(t *testing.T) {
	hooks := withHooks(t)
	c := chart.New(chart.Options{})
	d := NewDispatcher(c)
	ctx := context.Background()

	msgs := []Message{
		NewMessage(CmdClassAdd, map[string]any{"new_class": newClass("a", 0, 0)}),
		NewMessage(CmdClassAdd, map[string]any{"new_class": newClass("b", 1, 1)}),
		NewMessage(CmdEdgeAdd, map[string]any{"type": "ChartStructline", "uuid": "ab", "source_uuid": "a", "target_uuid": "b"}),
		NewMessage(CmdClassUpdate, map[string]any{"class_to_update": map[string]any{
			"uuid": "a",
			"name": map[string]any{"type": "PageProperty", "data": []any{[]any{-65535.0, "x"}, []any{3.0, "y"}}},
		}}),
		NewMessage(CmdInsertPageRange, map[string]any{"page_range": []any{3.0, 3.0}}),
		NewMessage(CmdSetXRange, map[string]any{"x_min": -2.0, "x_max": 12.0}),
	}
	for _, m := range msgs {
		require.NoError(t, d.Handle(ctx, m), m.Cmd.String())
	}

	require.NoError(t, d.View(func(c *chart.Chart) error {
		a, ok := c.Class("a")
		require.True(t, ok)
		assert.Equal(t, "x", a.Name.Get(2))
		assert.Equal(t, "y", a.Name.Get(3))
		assert.Equal(t, 1, c.NumEdges())
		assert.Equal(t, []page.Range{{2, page.Infinity}, {3, 3}, {page.Infinity, page.Infinity}}, c.PageList)
		assert.Equal(t, [2]float64{-2, 12}, c.XRange)
		return nil
	}))

	require.NoError(t, d.Handle(ctx, NewMessage(CmdClassDelete, map[string]any{"class_to_delete": "b"})))
	assert.Equal(t, 0, c.NumEdges())
	assert.Len(t, hooks.handled, len(msgs)+1)
	assert.Empty(t, hooks.rejected)
}

func TestDispatcherBatched(t *testing.T) {
	hooks := withHooks(t)
	c := chart.New(chart.Options{})
	d := NewDispatcher(c)
	var updates int
	c.Subscribe(func(ev chart.Event) {
		if ev.Type == chart.EventUpdate {
			updates++
		}
	})

	// The edge arrives before its endpoints.
	raw := `{"cmd": ["chart.batched", "chart"], "args": [], "kwargs": {"messages": [
		{"cmd": ["chart.edge.add", "chart.edge", "chart"], "args": [], "kwargs": {"new_edge":
			{"type": "ChartDifferential", "uuid": "d", "source_uuid": "s", "target_uuid": "t", "page": 2}}},
		{"cmd": ["chart.class.add", "chart.class", "chart"], "args": [], "kwargs": {"new_class":
			{"type": "ChartClass", "uuid": "s", "degree": [1, 0]}}},
		{"cmd": ["chart.class.add", "chart.class", "chart"], "args": [], "kwargs": {"new_class":
			{"type": "ChartClass", "uuid": "t", "degree": [0, 2]}}}
	]}}`
	require.NoError(t, d.HandleRaw(context.Background(), []byte(raw)))
	assert.Equal(t, 2, c.NumClasses())
	assert.Equal(t, 1, c.NumEdges())
	assert.Equal(t, 1, updates, "a batch notifies once")
	assert.Equal(t, []int{3}, hooks.batches)
}

func TestDispatcherRejectsWithoutSideEffects(t *testing.T) {
	hooks := withHooks(t)
	c := chart.New(chart.Options{})
	d := NewDispatcher(c)
	ctx := context.Background()
	require.NoError(t, d.Handle(ctx, NewMessage(CmdClassAdd, map[string]any{"new_class": newClass("a", 0, 0)})))
	before, err := json.Marshal(c)
	require.NoError(t, err)

	bad := []Message{
		// unknown type tag nested in a property
		NewMessage(CmdClassUpdate, map[string]any{"class_to_update": map[string]any{
			"uuid": "a", "name": map[string]any{"type": "Mystery"},
		}}),
		// identity change
		NewMessage(CmdClassUpdate, map[string]any{"class_to_update": map[string]any{"uuid": "a", "degree": []any{5.0, 5.0}}}),
		// batch whose last message fails
		NewMessage(CmdBatched, map[string]any{"messages": []any{
			NewMessage(CmdClassAdd, map[string]any{"new_class": newClass("b", 1, 1)}),
			NewMessage(CmdClassDelete, map[string]any{"class_to_delete": "missing"}),
		}}),
		// reset with an unknown type
		NewMessage(CmdStateReset, map[string]any{"state": map[string]any{"type": "Nope"}}),
	}
	for _, m := range bad {
		assert.Error(t, d.Handle(ctx, m), m.Cmd.String())
	}

	after, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Equal(t, []string{CmdClassUpdate, CmdClassUpdate, CmdBatched, CmdStateReset}, hooks.rejected)

	err = d.HandleRaw(ctx, []byte(`{"cmd": 7}`))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestDispatcherStateReset(t *testing.T) {
	src := chart.New(chart.Options{Name: "source"})
	_, err := src.AddClass(chart.ClassOptions{UUID: "a", Degree: []int{0, 0}})
	require.NoError(t, err)
	data, err := json.Marshal(src)
	require.NoError(t, err)
	var state any
	require.NoError(t, json.Unmarshal(data, &state))

	c := chart.New(chart.Options{})
	var events []chart.Event
	c.Subscribe(func(ev chart.Event) { events = append(events, ev) })
	d := NewDispatcher(c)
	require.NoError(t, d.Handle(context.Background(), NewMessage(CmdStateReset, map[string]any{"state": state})))

	assert.Equal(t, "source", c.Name)
	assert.Equal(t, src.UUID, c.UUID)
	assert.Equal(t, 1, c.NumClasses())
	require.NotEmpty(t, events)
	assert.Equal(t, chart.EventReset, events[0].Type)
}

func TestHandleRawContinuesAfterFailure(t *testing.T) {
	c := chart.New(chart.Options{})
	d := NewDispatcher(c)
	raw := `[
		{"cmd": "chart.class.delete", "kwargs": {"class_to_delete": "ghost"}},
		{"cmd": "chart.class.add", "kwargs": {"new_class": {"type": "ChartClass", "uuid": "a", "degree": [0, 0]}}}
	]`
	err := d.HandleRaw(context.Background(), []byte(raw))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
	assert.Equal(t, 1, c.NumClasses())
}

func TestHandleCanceledContext(t *testing.T) {
	d := NewDispatcher(chart.New(chart.Options{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.Handle(ctx, NewMessage(CmdClassAdd, map[string]any{"new_class": newClass("a", 0, 0)}))
	assert.ErrorIs(t, err, context.Canceled)
}
