package sdfx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/greeble/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// cube returns a closed unit cube offset by o.
func cube(name string, o v3.Vec) *kernel.Mesh {
	var vs []v3.Vec
	for i := 0; i < 8; i++ {
		vs = append(vs, v3.Vec{X: float64(i & 1), Y: float64(i >> 1 & 1), Z: float64(i >> 2 & 1)}.Add(o))
	}
	return &kernel.Mesh{
		Name:     name,
		Vertices: vs,
		Triangles: []kernel.Triangle{
			{0, 2, 1}, {1, 2, 3}, // -Z
			{4, 5, 6}, {5, 7, 6}, // +Z
			{0, 1, 4}, {1, 5, 4}, // -Y
			{2, 6, 3}, {3, 6, 7}, // +Y
			{0, 4, 2}, {2, 4, 6}, // -X
			{1, 3, 5}, {3, 7, 5}, // +X
		},
	}
}

func TestTriangles(t *testing.T) {
	tris := Triangles(cube("a", v3.Vec{}), nil, &kernel.Mesh{}, cube("b", v3.Vec{X: 2}))
	if len(tris) != 24 {
		t.Fatalf("expected 24 triangles, got %d", len(tris))
	}
	// first triangle of the second cube
	want := v3.Vec{X: 2}
	if tris[12][0] != want {
		t.Errorf("tris[12][0] = %v, want %v", tris[12][0], want)
	}
	n := tris[0].Normal()
	if n.Z > -0.99 {
		t.Errorf("bottom face should point down, got normal %v", n)
	}
}

func TestBounds(t *testing.T) {
	if _, ok := Bounds(nil, &kernel.Mesh{}); ok {
		t.Fatal("expected no bounds for empty meshes")
	}
	box, ok := Bounds(cube("a", v3.Vec{X: -1, Y: -2, Z: -3}), cube("b", v3.Vec{X: 4}))
	if !ok {
		t.Fatal("expected bounds")
	}
	if box.Min != (v3.Vec{X: -1, Y: -2, Z: -3}) {
		t.Errorf("min = %v", box.Min)
	}
	if box.Max != (v3.Vec{X: 5, Y: 1, Z: 1}) {
		t.Errorf("max = %v", box.Max)
	}
}

func TestSaveSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.stl")
	if err := SaveSTL(path, cube("a", v3.Vec{})); err != nil {
		t.Fatalf("SaveSTL failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	// binary STL: 80 byte header, a uint32 count, 50 bytes per triangle
	if want := int64(84 + 50*12); info.Size() != want {
		t.Errorf("file size = %d, want %d", info.Size(), want)
	}
}

func TestSaveSTLEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.stl")
	if err := SaveSTL(path, &kernel.Mesh{}); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should be written for an empty export")
	}
}

func TestSaveDXF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.dxf")
	a := cube("crate/front", v3.Vec{})
	b := cube("crate/front", v3.Vec{X: 3})
	if err := SaveDXF(path, PlaneXZ, a, b); err != nil {
		t.Fatalf("SaveDXF failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "LINE") {
		t.Error("expected LINE entities")
	}
	for _, layer := range []string{"crate_front", "crate_front_1"} {
		if !strings.Contains(s, layer) {
			t.Errorf("expected layer %q", layer)
		}
	}
}

func TestSaveDXFEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dxf")
	if err := SaveDXF(path, PlaneXY, nil); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
}

func TestUniqueEdges(t *testing.T) {
	// a closed cube has 12 triangles and 18 distinct edges
	if got := len(uniqueEdges(cube("a", v3.Vec{}))); got != 18 {
		t.Errorf("expected 18 edges, got %d", got)
	}
}

func TestSaveUnknownFormat(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "x.obj"), Format("obj"), cube("a", v3.Vec{}))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"stl", FormatSTL, false},
		{"DXF", FormatDXF, false},
		{"out/model.stl", FormatSTL, false},
		{"panel.Dxf", FormatDXF, false},
		{"obj", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLayerName(t *testing.T) {
	if got := layerName("crate/front/0:dial", 0); got != "crate_front_0_dial" {
		t.Errorf("layerName = %q", got)
	}
	if got := layerName("", 3); got != "mesh_3" {
		t.Errorf("layerName = %q", got)
	}
}
