// Package sdfx writes greeble meshes out through the
// github.com/deadsy/sdfx render package (STL) and github.com/yofu/dxf
// (flat wireframe layouts).
package sdfx

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/greeble/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
)

// ErrUnknownFormat is returned for file formats Save does not write.
var ErrUnknownFormat = errors.New("sdfx: unknown export format")

// ErrNothingToExport is returned when every mesh handed to an exporter is
// empty.
var ErrNothingToExport = errors.New("sdfx: nothing to export")

// Format names an output file format.
type Format string

const (
	FormatSTL Format = "stl"
	FormatDXF Format = "dxf"
)

// ParseFormat reads a format name, or the extension of a file path.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimPrefix(filepath.Ext("x."+s), "."))
	switch Format(s) {
	case FormatSTL, FormatDXF:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Plane picks the two world axes a DXF layout is drawn on.
type Plane int

const (
	PlaneXY Plane = iota // looking down -Z
	PlaneXZ              // looking along +Y
	PlaneZY              // looking along -X
)

func (p Plane) project(v v3.Vec) (float64, float64) {
	switch p {
	case PlaneXZ:
		return v.X, v.Z
	case PlaneZY:
		return v.Z, v.Y
	}
	return v.X, v.Y
}

// Triangles converts meshes to sdfx triangles, skipping empty meshes.
func Triangles(meshes ...*kernel.Mesh) []*sdf.Triangle3 {
	var n int
	for _, m := range meshes {
		if m != nil {
			n += m.TriangleCount()
		}
	}
	out := make([]*sdf.Triangle3, 0, n)
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for _, t := range m.Triangles {
			c := m.Corners(t)
			out = append(out, &sdf.Triangle3{c[0], c[1], c[2]})
		}
	}
	return out
}

// Bounds returns the box enclosing every vertex of meshes. ok is false when
// there are no vertices.
func Bounds(meshes ...*kernel.Mesh) (box sdf.Box3, ok bool) {
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for _, v := range m.Vertices {
			if !ok {
				box = sdf.Box3{Min: v, Max: v}
				ok = true
				continue
			}
			box.Min = box.Min.Min(v)
			box.Max = box.Max.Max(v)
		}
	}
	return box, ok
}

// SaveSTL writes meshes as a single binary STL file.
func SaveSTL(path string, meshes ...*kernel.Mesh) error {
	tris := Triangles(meshes...)
	if len(tris) == 0 {
		return ErrNothingToExport
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("sdfx: save stl %s: %w", path, err)
	}
	return nil
}

// SaveDXF writes the edges of meshes projected onto plane, one layer per
// mesh. Edges shared by two triangles are drawn once.
func SaveDXF(path string, plane Plane, meshes ...*kernel.Mesh) error {
	d := dxf.NewDrawing()
	used := make(map[string]bool, len(meshes))
	var drawn int
	for i, m := range meshes {
		if m == nil || m.IsEmpty() {
			continue
		}
		layer := layerName(m.Name, i)
		if used[layer] {
			layer = fmt.Sprintf("%s_%d", layer, i)
		}
		used[layer] = true
		if _, err := d.AddLayer(layer, color.ColorNumber(i%254+1), dxf.DefaultLineType, true); err != nil {
			return fmt.Errorf("sdfx: dxf layer %s: %w", layer, err)
		}
		for _, e := range uniqueEdges(m) {
			x0, y0 := plane.project(m.Vertices[e[0]])
			x1, y1 := plane.project(m.Vertices[e[1]])
			if x0 == x1 && y0 == y1 {
				continue
			}
			if _, err := d.Line(x0, y0, 0, x1, y1, 0); err != nil {
				return fmt.Errorf("sdfx: dxf line: %w", err)
			}
			drawn++
		}
	}
	if drawn == 0 {
		return ErrNothingToExport
	}
	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("sdfx: save dxf %s: %w", path, err)
	}
	return nil
}

// Save writes meshes to path in format. DXF layouts are drawn on PlaneXY.
func Save(path string, format Format, meshes ...*kernel.Mesh) error {
	switch format {
	case FormatSTL:
		return SaveSTL(path, meshes...)
	case FormatDXF:
		return SaveDXF(path, PlaneXY, meshes...)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// uniqueEdges lists each undirected edge of m once, in first-seen order.
func uniqueEdges(m *kernel.Mesh) []kernel.Edge {
	seen := make(map[kernel.Edge]struct{}, len(m.Triangles)*3/2)
	out := make([]kernel.Edge, 0, len(m.Triangles)*3/2)
	for _, t := range m.Triangles {
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			e := kernel.Edge{a, b}
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// layerName turns a scene path into a DXF-safe layer name.
func layerName(name string, i int) string {
	if name == "" {
		return fmt.Sprintf("mesh_%d", i)
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', ':', '<', '>', '\\', '"', ';', '?', '*', '|', '=', '\'', ' ':
			return '_'
		}
		return r
	}, name)
}
