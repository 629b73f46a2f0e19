package main

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chazu/greeble/pkg/config"
	"github.com/chazu/greeble/pkg/scene"
	"go.uber.org/zap"
)

func evalFile(t *testing.T, app *App, path string) EvalResult {
	t.Helper()
	source, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	result := app.Evaluate(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	return result
}

func nodeByPath(t *testing.T, app *App, path string) NodeData {
	t.Helper()
	for _, n := range app.Nodes() {
		if n.Path == path {
			return n
		}
	}
	t.Fatalf("no node at %q", path)
	return NodeData{}
}

// TestE2ECrateExample exercises the full pipeline: script → engine → scene →
// meshes. This is the same path that the Wails Evaluate binding takes, but
// without the Wails runtime.
func TestE2ECrateExample(t *testing.T) {
	app := NewApp()
	result := evalFile(t, app, "examples/crate.greeble")

	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}

	expected := map[string]string{
		"crate/front":                        "hole",
		"crate/front/0:dial":                 "dial",
		"crate/front/1:buttons":              "buttons",
		"crate/top/0:bevel":                  "bevel",
		"crate/top/0:bevel/4:hole":           "hole",
		"crate/top/0:bevel/4:hole/0:buttons": "buttons",
		"crate/left/0:handle":                "handle",
		"crate/right/0:handle":               "handle",
	}
	byPath := make(map[string]MeshData, len(result.Meshes))
	var tris int
	for _, m := range result.Meshes {
		byPath[m.PartName] = m
		tris += len(m.Indices) / 3

		if len(m.Vertices) == 0 || len(m.Vertices) != len(m.Normals) {
			t.Errorf("part %q: %d vertex floats, %d normal floats", m.PartName, len(m.Vertices), len(m.Normals))
		}
		if len(m.Indices) == 0 || len(m.Indices)%3 != 0 {
			t.Errorf("part %q: bad index count %d", m.PartName, len(m.Indices))
		}
		if m.Color == "" || m.NodeID == "" {
			t.Errorf("part %q: missing color or node id", m.PartName)
		}
	}
	for path, kind := range expected {
		m, ok := byPath[path]
		if !ok {
			t.Errorf("missing mesh for %q", path)
			continue
		}
		if m.Kind != kind {
			t.Errorf("%q: kind %q, want %q", path, m.Kind, kind)
		}
	}
	if result.Stats.Triangles != tris {
		t.Errorf("stats report %d triangles, meshes hold %d", result.Stats.Triangles, tris)
	}
}

func TestE2EPanelExample(t *testing.T) {
	app := NewApp()
	result := evalFile(t, app, "examples/panel.greeble")

	a := nodeByPath(t, app, "plate/0:dial")
	b := nodeByPath(t, app, "plate/1:dial")
	nodeByPath(t, app, "plate/2:bevel")

	get := func(n NodeData, name string) float64 {
		for _, p := range n.Params {
			if p.Name == name {
				return p.Value
			}
		}
		t.Fatalf("%s has no %s", n.Path, name)
		return 0
	}
	if v := get(a, "needlePos"); v != 0.2 {
		t.Errorf("meter a needlePos = %g, want 0.2", v)
	}
	if v := get(b, "facets"); v != 24 {
		t.Errorf("meter b facets = %g, want 24", v)
	}
	if result.Stats.Nodes != len(app.Nodes()) {
		t.Errorf("stats report %d nodes, scene has %d", result.Stats.Nodes, len(app.Nodes()))
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := NewApp()
	result := app.Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes for empty source, got %d", len(result.Meshes))
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	app := NewApp()
	result := app.Evaluate(`(box "crate"`)

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on error, got %d", len(result.Meshes))
	}
}

func TestEditBindings(t *testing.T) {
	app := NewApp()
	if _, err := app.AddHole("x", 0, 0, 1, 1); !errors.Is(err, ErrNoScene) {
		t.Fatalf("expected ErrNoScene before evaluation, got %v", err)
	}

	app.Evaluate(`(box "crate")`)
	front := nodeByPath(t, app, "crate/front")
	if !front.Holes {
		t.Fatal("box faces should take holes")
	}
	if err := app.SetFeatureKind(front.ID, "dial"); err != nil {
		t.Fatalf("SetFeatureKind: %v", err)
	}
	if err := app.SetFeatureKind(front.ID, "sprocket"); err == nil {
		t.Error("expected an error for an unknown kind")
	}

	child, err := app.AddHole(front.ID, 2, 2, 8, 8)
	if err != nil {
		t.Fatalf("AddHole: %v", err)
	}
	if child != scene.NodeID("crate/front/0:dial").String() {
		t.Errorf("unexpected child id %s", child)
	}

	v, err := app.SetParam(child, "needlePos", 2)
	if err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if v != 1 {
		t.Errorf("needlePos should clamp to 1, got %g", v)
	}
	ps, err := app.GetParams(child)
	if err != nil {
		t.Fatalf("GetParams: %v", err)
	}
	if len(ps) != 9 {
		t.Errorf("dial has 9 parameters, got %d", len(ps))
	}

	if _, err := app.GetParams("not-a-uuid"); err == nil {
		t.Error("expected an error for a malformed id")
	}
	if _, err := app.SetParam(scene.NodeID("crate/nowhere").String(), "x", 1); !errors.Is(err, scene.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRandomizeNeedle(t *testing.T) {
	source := `(def crate (box "crate" :fill :dial)) (hole (face crate :front) 2 2 8 8)`
	needle := func() float64 {
		app := NewApp()
		app.Evaluate(source)
		dial := nodeByPath(t, app, "crate/front/0:dial")
		v, err := app.RandomizeNeedle(dial.ID)
		if err != nil {
			t.Fatalf("RandomizeNeedle: %v", err)
		}
		if v < 0 || v > 1 {
			t.Fatalf("needle out of range: %g", v)
		}
		if _, err := app.RandomizeNeedle(nodeByPath(t, app, "crate/front").ID); err == nil {
			t.Error("expected an error for a non-dial")
		}
		return v
	}
	if a, b := needle(), needle(); a != b {
		t.Errorf("needle is not reproducible: %g then %g", a, b)
	}
}

func TestExport(t *testing.T) {
	cfg := config.Default()
	cfg.Export.Dir = t.TempDir()
	app, err := NewAppWithConfig(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := app.Export("early.stl"); !errors.Is(err, ErrNoScene) {
		t.Fatalf("expected ErrNoScene, got %v", err)
	}
	app.Evaluate(`(def crate (box "crate")) (hole (face crate :front) 2 2 8 8 :fill :buttons)`)

	for _, name := range []string{"crate.stl", "crate.dxf", "crate"} {
		if err := app.Export(name); err != nil {
			t.Fatalf("Export(%q): %v", name, err)
		}
	}
	for _, name := range []string{"crate.stl", "crate.dxf", "crate.stl"} {
		info, err := os.Stat(filepath.Join(cfg.Export.Dir, name))
		if err != nil || info.Size() == 0 {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestRunBuild(t *testing.T) {
	out := filepath.Join(t.TempDir(), "crate.stl")
	res, err := runBuild(config.Default(), zap.NewNop(), "examples/crate.greeble", out)
	if err != nil {
		t.Fatalf("runBuild: %v", err)
	}
	if res.Stats.Triangles == 0 {
		t.Error("expected triangles")
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.greeble")
	if err := os.WriteFile(bad, []byte("\n(box \"crate\" :fill :sprocket)"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runBuild(config.Default(), zap.NewNop(), bad, out); err == nil {
		t.Error("expected a build error")
	}
}

// TestConcurrentEditsAndReads mirrors the Wails runtime, which calls bound
// methods from separate goroutines. Run with -race.
func TestConcurrentEditsAndReads(t *testing.T) {
	app := NewApp()
	app.Evaluate(`(def crate (box "crate")) (hole (face crate :front) 2 2 8 8 :fill :buttons)`)
	keypad := nodeByPath(t, app, "crate/front/0:buttons")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := app.SetParam(keypad.ID, "radius", 0.2+float64(i%5)/10); err != nil {
				t.Errorf("SetParam: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			for _, n := range app.Nodes() {
				if n.Kind == "buttons" && len(n.Params) != 3 {
					t.Errorf("keypad has %d params", len(n.Params))
				}
			}
			for _, m := range app.Meshes() {
				if len(m.Indices)%3 != 0 {
					t.Errorf("%s: torn index buffer", m.PartName)
				}
			}
			if _, err := app.GetParams(keypad.ID); err != nil {
				t.Errorf("GetParams: %v", err)
			}
		}
	}()
	wg.Wait()
}
