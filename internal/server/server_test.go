package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/observability"
	"github.com/matzehuels/sseqchart/pkg/protocol"
	"github.com/matzehuels/sseqchart/pkg/store"
)

func classAdd(id string, x, y float64) protocol.Message {
	return protocol.NewMessage(protocol.CmdClassAdd, map[string]any{
		"new_class": map[string]any{"type": "ChartClass", "uuid": id, "degree": []any{x, y}},
	})
}

func structlineAdd(id, src, tgt string) protocol.Message {
	return protocol.NewMessage(protocol.CmdEdgeAdd, map[string]any{
		"new_edge": map[string]any{"type": "ChartStructline", "uuid": id, "source_uuid": src, "target_uuid": tgt},
	})
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s := New(chart.New(chart.Options{Name: "test", UUID: "chart-1"}), opts)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return s, ts
}

func post(t *testing.T, url string, msgs ...protocol.Message) (*http.Response, map[string][]result) {
	t.Helper()
	body, err := json.Marshal(msgs)
	require.NoError(t, err)
	resp, err := http.Post(url+"/messages", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string][]result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostMessages(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	s, ts := newTestServer(t, Options{Store: st})

	resp, out := post(t, ts.URL, classAdd("a", 0, 0), classAdd("b", 1, 1), structlineAdd("e", "a", "b"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out["results"], 3)
	for _, r := range out["results"] {
		assert.True(t, r.OK, r.Message)
	}

	_ = s.Dispatcher().View(func(c *chart.Chart) error {
		assert.Equal(t, 2, c.NumClasses())
		assert.Equal(t, 1, c.NumEdges())
		return nil
	})

	saved, err := store.LoadChart(context.Background(), st, "chart-1")
	require.NoError(t, err)
	assert.Equal(t, 2, saved.NumClasses())
}

func TestPostMessagesPartialFailure(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	bad := protocol.NewMessage(protocol.CmdClassUpdate, map[string]any{
		"class_to_update": map[string]any{"type": "ChartClass", "uuid": "missing", "degree": []any{0, 0}},
	})
	resp, out := post(t, ts.URL, classAdd("a", 0, 0), bad, classAdd("b", 1, 0))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Len(t, out["results"], 3)
	assert.True(t, out["results"][0].OK)
	assert.False(t, out["results"][1].OK)
	assert.NotEmpty(t, out["results"][1].Code)
	assert.True(t, out["results"][2].OK, "a failing message does not stop the rest")

	resp2, err := http.Get(ts.URL + "/chart")
	require.NoError(t, err)
	defer resp2.Body.Close()
	data, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)
	c, err := chart.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 2, c.NumClasses())
}

func TestPostMalformed(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	resp, err := http.Post(ts.URL+"/messages", "application/json", strings.NewReader(`{"cmd":`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDraw(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	post(t, ts.URL, classAdd("a", 0, 0), classAdd("b", 1, 1), classAdd("far", 50, 0), structlineAdd("e", "a", "b"))

	resp, err := http.Get(ts.URL + "/draw?page=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	var got drawResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "2", got.Page)
	assert.ElementsMatch(t, []string{"a", "b"}, got.Classes)
	assert.Equal(t, []string{"e"}, got.Edges)

	resp2, err := http.Get(ts.URL + "/draw?page=2&xmax=100")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&got))
	assert.Contains(t, got.Classes, "far")

	resp3, err := http.Get(ts.URL + "/draw?page=x")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp3.StatusCode)
}

func TestRenderDOT(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	post(t, ts.URL, classAdd("a", 0, 0))

	resp, err := http.Get(ts.URL + "/render?format=dot&page=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "digraph")
	assert.Contains(t, string(data), `"a"`)

	resp2, err := http.Get(ts.URL + "/render?format=gif")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := protocol.Decode(data)
	require.NoError(t, err)
	return msg
}

func TestWebSocketRelay(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	post(t, ts.URL, classAdd("a", 0, 0))

	conn := dial(t, ts)
	first := read(t, conn)
	assert.Equal(t, protocol.CmdStateReset, first.Cmd.String())

	follower := chart.New(chart.Options{})
	d := protocol.NewDispatcher(follower)
	require.NoError(t, d.Handle(context.Background(), first))
	assert.Equal(t, 1, follower.NumClasses())

	post(t, ts.URL, classAdd("b", 1, 0), structlineAdd("e", "a", "b"))
	batch := read(t, conn)
	assert.Equal(t, protocol.CmdBatched, batch.Cmd.String())
	nested, err := protocol.Nested(batch)
	require.NoError(t, err)
	assert.Len(t, nested, 2)

	require.NoError(t, d.Handle(context.Background(), batch))
	assert.Equal(t, 2, follower.NumClasses())
	assert.Equal(t, 1, follower.NumEdges())
}

func classUUIDs(c *chart.Chart) []string {
	var ids []string
	for _, cl := range c.Classes() {
		ids = append(ids, cl.UUID())
	}
	return ids
}

func TestWebSocketRelayKeepsAssignedUUIDs(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	conn := dial(t, ts)
	follower := chart.New(chart.Options{})
	d := protocol.NewDispatcher(follower)
	require.NoError(t, d.Handle(context.Background(), read(t, conn)))

	bare := protocol.NewMessage(protocol.CmdClassAdd, map[string]any{
		"new_class": map[string]any{"type": "ChartClass", "degree": []any{0.0, 0.0}},
	})
	nested := protocol.NewMessage(protocol.CmdBatched, map[string]any{"messages": []any{
		protocol.NewMessage(protocol.CmdClassAdd, map[string]any{
			"new_class": map[string]any{"type": "ChartClass", "degree": []any{1.0, 0.0}},
		}),
	}})
	resp, _ := post(t, ts.URL, bare, nested)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, d.Handle(context.Background(), read(t, conn)))

	var serverIDs []string
	_ = s.Dispatcher().View(func(c *chart.Chart) error {
		serverIDs = classUUIDs(c)
		return nil
	})
	require.Len(t, serverIDs, 2)
	assert.Equal(t, serverIDs, classUUIDs(follower))

	// Later messages addressing the server's uuid apply on the follower too.
	update := protocol.NewMessage(protocol.CmdClassUpdate, map[string]any{
		"class_to_update": map[string]any{"uuid": serverIDs[0], "name": "x"},
	})
	resp, _ = post(t, ts.URL, update)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, d.Handle(context.Background(), read(t, conn)))
	cl, ok := follower.Class(serverIDs[0])
	require.True(t, ok)
	assert.Equal(t, "x", cl.Name.Get(2))
}

func TestWebSocketRelayRepeatedCorrelationUUID(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	conn := dial(t, ts)
	read(t, conn)

	a, b := classAdd("a", 0, 0), classAdd("b", 1, 0)
	b.UUID = a.UUID
	post(t, ts.URL, a, b)

	batch := read(t, conn)
	nested, err := protocol.Nested(batch)
	require.NoError(t, err)
	assert.Len(t, nested, 2)
	_ = s.Dispatcher().View(func(c *chart.Chart) error {
		assert.Equal(t, 2, c.NumClasses())
		return nil
	})
}

func TestWebSocketClientMessages(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	sender := dial(t, ts)
	watcher := dial(t, ts)
	read(t, sender)
	read(t, watcher)

	data, err := json.Marshal(classAdd("a", 0, 0))
	require.NoError(t, err)
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, data))

	msg := read(t, watcher)
	assert.Equal(t, protocol.CmdBatched, msg.Cmd.String())
	_ = s.Dispatcher().View(func(c *chart.Chart) error {
		_, ok := c.Class("a")
		assert.True(t, ok)
		return nil
	})
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.Install()
	t.Cleanup(observability.Reset)
	_, ts := newTestServer(t, Options{Metrics: m})

	post(t, ts.URL, classAdd("a", 0, 0), protocol.NewMessage("chart.unknown", nil))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, `sseqchart_chart_messages_handled_total{cmd="chart.class.add"} 1`)
	assert.Contains(t, body, `sseqchart_chart_messages_rejected_total{code="UNSUPPORTED"} 1`)
	assert.Contains(t, body, "sseqchart_chart_batch_updates_count 1")
}
