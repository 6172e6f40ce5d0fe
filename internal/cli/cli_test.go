package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/sseqchart/internal/config"
	"github.com/matzehuels/sseqchart/pkg/cache"
	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/page"
)

// toyChart has three classes, a structline and an auto d2 that removes
// h0 and h1 after page 2.
func toyChart(t *testing.T) *chart.Chart {
	t.Helper()
	c := chart.New(chart.Options{Name: "toy", UUID: "toy"})
	for _, o := range []chart.ClassOptions{
		{UUID: "1", Degree: []int{0, 0}},
		{UUID: "h0", Degree: []int{0, 1}},
		{UUID: "h1", Degree: []int{1, 1}},
	} {
		_, err := c.AddClass(o)
		require.NoError(t, err)
	}
	_, err := c.AddStructline(chart.StructlineOptions{EdgeOptions: chart.EdgeOptions{UUID: "h0-mult", SourceUUID: "1", TargetUUID: "h0"}})
	require.NoError(t, err)
	_, err = c.AddDifferential(chart.DifferentialOptions{
		EdgeOptions: chart.EdgeOptions{UUID: "d2", SourceUUID: "h1", TargetUUID: "h0"},
		Page:        2,
		Auto:        true,
	})
	require.NoError(t, err)
	return c
}

func writeSnapshot(t *testing.T, c *chart.Chart) (string, []byte) {
	t.Helper()
	data, err := encodeSnapshot(c)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "chart.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path, data
}

func testContext() context.Context {
	return withLogger(context.Background(), newLogger(&bytes.Buffer{}, log.DebugLevel))
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)
	l.Debug("hidden")
	assert.Zero(t, buf.Len())
	l.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Replayed 3 lines")
	assert.Contains(t, buf.String(), "Replayed 3 lines (")
}

func TestLoggerFromContext(t *testing.T) {
	assert.Equal(t, log.Default(), loggerFromContext(context.Background()))
	l := newLogger(&bytes.Buffer{}, log.InfoLevel)
	assert.Same(t, l, loggerFromContext(withLogger(context.Background(), l)))
}

func TestSplitLines(t *testing.T) {
	lines, nums := splitLines([]byte("{\"a\":1}\n\n# comment\n  [1]  \n"))
	require.Len(t, lines, 2)
	assert.Equal(t, `{"a":1}`, string(lines[0]))
	assert.Equal(t, "[1]", string(lines[1]))
	assert.Equal(t, []int{1, 4}, nums)
}

const replayStream = `
{"cmd": "chart.class.add", "kwargs": {"new_class": {"type": "ChartClass", "uuid": "a", "degree": [0, 0]}}}
# the edge arrives before its target
{"cmd": "chart.edge.add", "kwargs": {"new_edge": {"type": "ChartStructline", "uuid": "e", "source_uuid": "a", "target_uuid": "b"}}}
{"cmd": "chart.class.add", "kwargs": {"new_class": {"type": "ChartClass", "uuid": "b", "degree": [1, 1]}}}
`

func TestReplay(t *testing.T) {
	ctx := testContext()
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	in := replayInput{messages: []byte(replayStream), chartOpts: chart.Options{UUID: "fresh"}, resolve: true}
	res, err := replay(ctx, in, fc, 0)
	require.NoError(t, err)
	assert.False(t, res.cached)
	assert.Equal(t, 3, res.applied)
	assert.Empty(t, res.rejected)
	assert.Equal(t, 2, res.classes)
	assert.Equal(t, 1, res.edges)

	c, err := chart.Decode(res.snapshot)
	require.NoError(t, err)
	assert.Equal(t, "fresh", c.UUID)
	_, ok := c.Edge("e")
	assert.True(t, ok)

	again, err := replay(ctx, in, fc, 0)
	require.NoError(t, err)
	assert.True(t, again.cached)
	assert.Equal(t, res.snapshot, again.snapshot)
}

func TestReplayOntoSnapshot(t *testing.T) {
	_, data := writeSnapshot(t, toyChart(t))
	stream := `{"cmd": "chart.class.delete", "kwargs": {"class_to_delete": "h1"}}
{"cmd": "chart.class.update", "kwargs": {"class_to_update": {"type": "ChartClass", "uuid": "missing", "degree": [0, 0]}}}
`
	res, err := replay(testContext(), replayInput{snapshot: data, messages: []byte(stream)}, cache.NewNullCache(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.applied)
	require.Len(t, res.rejected, 1)
	assert.Equal(t, 2, res.rejected[0].line)
	assert.Equal(t, 2, res.classes)
	assert.Equal(t, 1, res.edges, "deleting h1 drops d2")
}

func TestReplayStrictAndResolve(t *testing.T) {
	ctx := testContext()
	bad := replayStream + "{\"cmd\": \"chart.nope\"}\n"
	_, err := replay(ctx, replayInput{messages: []byte(bad), strict: true}, cache.NewNullCache(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 6")

	dangling := `{"cmd": "chart.edge.add", "kwargs": {"new_edge": {"type": "ChartStructline", "source_uuid": "x", "target_uuid": "y"}}}`
	_, err = replay(ctx, replayInput{messages: []byte(dangling), resolve: true}, cache.NewNullCache(), 0)
	require.Error(t, err)

	res, err := replay(ctx, replayInput{messages: []byte(dangling)}, cache.NewNullCache(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.edges, "unresolved edges stay pending")
}

func TestInspectReport(t *testing.T) {
	c := toyChart(t)
	out := inspectReport(c, page.Range{2, 2}, [4]float64{0, 10, 0, 10})
	for _, want := range []string{"toy", "h0", "h1", "h0-mult", "d2", "(1, 1)"} {
		assert.Contains(t, out, want)
	}

	out = inspectReport(c, page.Range{3, 3}, [4]float64{0, 10, 0, 10})
	assert.NotContains(t, out, "h1")
	assert.NotContains(t, out, "Edge")
}

func TestViewBox(t *testing.T) {
	c := toyChart(t)
	b, err := viewBox(c, nil)
	require.NoError(t, err)
	assert.Equal(t, [4]float64{0, 10, 0, 10}, b)
	b, err = viewBox(c, []float64{-1, 1, -2, 2})
	require.NoError(t, err)
	assert.Equal(t, [4]float64{-1, 1, -2, 2}, b)
	_, err = viewBox(c, []float64{1})
	assert.Error(t, err)
}

func TestRenderPageCachesDOT(t *testing.T) {
	ctx := testContext()
	c := toyChart(t)
	_, raw := writeSnapshot(t, c)
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	opts := &renderOpts{format: "dot", page: "2", scale: 1}
	out, cached, err := renderPage(ctx, c, raw, opts, fc, 0)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Contains(t, string(out), `"h0-mult"`)

	again, cached, err := renderPage(ctx, c, raw, opts, fc, 0)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, out, again)

	_, _, err = renderPage(ctx, c, raw, &renderOpts{format: "dot", page: "3:2"}, fc, 0)
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"":          "svg",
		"out.PNG":   "png",
		"chart.gv":  "dot",
		"chart.pdf": "pdf",
		"chart.txt": "svg",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatFromPath(in), in)
	}
}

func TestPageModel(t *testing.T) {
	m := newPageModel(toyChart(t), [4]float64{0, 10, 0, 10})
	// The auto differential registers E2 between E2:∞ and E∞.
	require.Len(t, m.pages, 3)
	assert.Len(t, m.classes, 3)
	assert.Contains(t, m.View(), "E2:∞")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(pageModel)
	assert.Equal(t, 1, m.cursor)
	assert.Equal(t, page.Range{2, 2}, m.pages[m.cursor])
	assert.Len(t, m.classes, 3)
	assert.Len(t, m.edges, 2)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(pageModel)
	assert.Equal(t, 2, m.cursor)
	assert.Len(t, m.classes, 1)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(pageModel)
	assert.Equal(t, 2, m.cursor, "cursor stops at the last page")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 1, next.(pageModel).cursor)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestEdgeSummary(t *testing.T) {
	c := toyChart(t)
	// Edges come back sorted by uuid: d2 before h0-mult.
	assert.Equal(t, "1 ChartDifferential, 1 ChartStructline", edgeSummary(c.Edges()))
}

func TestRootCommandReplayToFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sseqchart.toml")
	cfg := config.DefaultConfig()
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	cfg.Store.Dir = filepath.Join(dir, "charts")
	require.NoError(t, cfg.Save(cfgPath))

	msgs := filepath.Join(dir, "msgs.jsonl")
	require.NoError(t, os.WriteFile(msgs, []byte(replayStream), 0644))
	out := filepath.Join(dir, "out", "chart.json")

	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"--config", cfgPath, "replay", "--new", msgs, "-o", out})
	require.NoError(t, root.ExecuteContext(context.Background()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	ch, err := chart.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 2, ch.NumClasses())

	entries, err := os.ReadDir(cfg.Cache.Dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "replay result is cached")

	root = New(&bytes.Buffer{}, LogInfo).RootCommand()
	root.SetArgs([]string{"--config", cfgPath, "charts", "save", out})
	require.NoError(t, root.ExecuteContext(context.Background()))
	_, err = os.Stat(filepath.Join(cfg.Store.Dir, ch.UUID+".json"))
	assert.NoError(t, err)
}

func TestRootCommandRejectsBadArgs(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	root.SetArgs([]string{"replay", "--new", "a.jsonl", "b.jsonl"})
	root.SetErr(&bytes.Buffer{})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--new")
}

func TestCompletion(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"completion", "bash"})
	require.NoError(t, root.Execute())
	assert.True(t, strings.Contains(out.String(), "sseqchart"))
}
