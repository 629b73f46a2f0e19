package kernel

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is an immutable triangle mesh snapshot. Vertices are in insertion
// order; triangle indices refer into Vertices. Normals has one smoothed
// normal per vertex.
type Mesh struct {
	Name      string
	Vertices  []v3.Vec
	Normals   []v3.Vec
	Triangles []Triangle
}

// FlatMesh is the render-ready form of a Mesh.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type FlatMesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which panel or feature produced it
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// IsEmpty returns true if the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return len(m.Triangles) == 0
}

// Validate checks that every triangle references an existing vertex and
// that no triangle repeats an index.
func (m *Mesh) Validate() error {
	n := uint32(len(m.Vertices))
	for i, t := range m.Triangles {
		for _, v := range t {
			if v >= n {
				return fmt.Errorf("kernel: triangle %d index %d out of range [0,%d)", i, v, n)
			}
		}
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			return fmt.Errorf("kernel: triangle %d repeats a vertex: %v", i, t)
		}
	}
	return nil
}

// Corners returns the positions of a triangle's vertices.
func (m *Mesh) Corners(t Triangle) [3]v3.Vec {
	return [3]v3.Vec{m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]}
}

// Area returns the summed area of all triangles.
func (m *Mesh) Area() float64 {
	var sum float64
	for _, t := range m.Triangles {
		c := m.Corners(t)
		sum += c[1].Sub(c[0]).Cross(c[2].Sub(c[0])).Length() / 2
	}
	return sum
}

// Flatten converts the mesh to flat float32/uint32 arrays for rendering.
func (m *Mesh) Flatten() FlatMesh {
	out := FlatMesh{
		Vertices: make([]float32, 0, len(m.Vertices)*3),
		Normals:  make([]float32, 0, len(m.Normals)*3),
		Indices:  make([]uint32, 0, len(m.Triangles)*3),
		PartName: m.Name,
	}
	for _, v := range m.Vertices {
		out.Vertices = append(out.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
	}
	for _, n := range m.Normals {
		out.Normals = append(out.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	}
	for _, t := range m.Triangles {
		out.Indices = append(out.Indices, t[0], t[1], t[2])
	}
	return out
}

// computeNormals accumulates unnormalized face normals (area weighted) into
// each vertex and normalizes the sums.
func computeNormals(vertices []v3.Vec, tris []Triangle) []v3.Vec {
	normals := make([]v3.Vec, len(vertices))
	for _, t := range tris {
		a, b, c := vertices[t[0]], vertices[t[1]], vertices[t[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range t {
			normals[idx] = normals[idx].Add(n)
		}
	}
	for i, n := range normals {
		if n.Length() > 1e-12 {
			normals[i] = n.Normalize()
		}
	}
	return normals
}
