package render

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/page"
)

func sample(t *testing.T) *chart.Chart {
	t.Helper()
	c := chart.New(chart.Options{Name: "sample"})
	add := func(id string, x, y int) {
		if _, err := c.AddClass(chart.ClassOptions{UUID: id, Degree: []int{x, y}}); err != nil {
			t.Fatalf("AddClass(%s): %v", id, err)
		}
	}
	add("a", 0, 0)
	add("b", 1, 1)
	add("c", 1, 1)
	add("d", 0, 2)
	name := page.New("h_0")
	if err := c.UpdateClass("a", map[string]any{"name": name}); err != nil {
		t.Fatal(err)
	}
	dash := chart.DashPattern{2, 2}
	if _, err := c.AddStructline(chart.StructlineOptions{EdgeOptions: chart.EdgeOptions{UUID: "ab", SourceUUID: "a", TargetUUID: "b"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddDifferential(chart.DifferentialOptions{
		EdgeOptions:  chart.EdgeOptions{UUID: "d2", SourceUUID: "c", TargetUUID: "d"},
		StyleOptions: chart.StyleOptions{DashPattern: dash},
		Page:         2,
	}); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestToDOT(t *testing.T) {
	c := sample(t)
	dot, err := ToDOT(c, Options{Page: page.Range{2, 2}})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}

	for _, want := range []string{
		`digraph "sample E2"`,
		`"a" [pos="0.00,0.00!"`,
		`xlabel="h_0"`,
		`"a" -> "b" [id="ab"`,
		`"c" -> "d"`,
		`style=dashed`,
		`class="Differential"`,
		`fillcolor="#000000ff"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %s\n%s", want, dot)
		}
	}
	if got := strings.Count(dot, "pos="); got != 4 {
		t.Errorf("ToDOT() drew %d classes, want 4", got)
	}
	// b and c share a degree and are spread by the offset size.
	if !strings.Contains(dot, `"b" [pos="49.50,72.00!"`) || !strings.Contains(dot, `"c" [pos="94.50,72.00!"`) {
		t.Errorf("ToDOT() did not offset classes in a shared degree:\n%s", dot)
	}
}

func TestToDOTPageFilter(t *testing.T) {
	c := sample(t)
	dot, err := ToDOT(c, Options{Page: page.Range{3, 3}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(dot, `"c" -> "d"`) {
		t.Error("a d2 differential is not drawn on page 3")
	}
	if !strings.Contains(dot, `"a" -> "b"`) {
		t.Error("structline should survive to page 3")
	}
}

func TestToDOTBox(t *testing.T) {
	c := sample(t)
	dot, err := ToDOT(c, Options{Page: page.Range{2, 2}, Box: [4]float64{0, 0, 0, 0.5}, Unit: 10})
	if err != nil {
		t.Fatal(err)
	}
	// a is in the box; b is pulled in as the far end of a drawn structline.
	if !strings.Contains(dot, `"a" [`) || !strings.Contains(dot, `"b" [`) {
		t.Errorf("ToDOT() box filter:\n%s", dot)
	}
	if strings.Contains(dot, `"d" [`) {
		t.Errorf("d lies outside the box:\n%s", dot)
	}
}

func TestToDOTDetailed(t *testing.T) {
	c := sample(t)
	dot, err := ToDOT(c, Options{Page: page.Range{2, 2}, Detailed: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dot, `xlabel="h_0 (0, 0)"`) || !strings.Contains(dot, `xlabel="(1, 1)"`) {
		t.Errorf("detailed labels missing:\n%s", dot)
	}
}

func TestHex(t *testing.T) {
	tests := []struct {
		in   chart.Color
		want string
	}{
		{chart.Black, "#000000ff"},
		{chart.Color{1, 0.5, 0, 0}, "#ff8000" + "00"},
		{chart.Color{2, -1, 1, 1}, "#ff00ffff"},
	}
	for _, tt := range tests {
		if got := hex(tt.in); got != tt.want {
			t.Errorf("hex(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0.00 0.00 100.00 50.00" width="100" height="50"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("normalizeViewBox() without viewBox changed input: %s", got)
	}
}

func TestRenderDOTPassThrough(t *testing.T) {
	out, err := Render(context.Background(), "digraph {}", "dot", 1)
	if err != nil || string(out) != "digraph {}" {
		t.Errorf("Render(dot) = %q, %v", out, err)
	}
	if _, err := Render(context.Background(), "digraph {}", "gif", 1); err == nil {
		t.Error("Render(gif) should fail")
	}
}
