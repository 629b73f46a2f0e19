package kernel

import (
	"math"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Edge is an undirected or directed vertex pair depending on context.
type Edge [2]uint32

// EdgeReport summarises the edge topology of a mesh.
type EdgeReport struct {
	// Boundary edges are used by exactly one triangle.
	Boundary []Edge
	// NonManifold edges are used by more than two triangles.
	NonManifold []Edge
	// Flipped directed edges appear more than once, meaning two neighbouring
	// triangles disagree on winding.
	Flipped []Edge
	// Degenerate counts triangles with a repeated index.
	Degenerate int
}

// Closed reports whether every edge is shared by exactly two triangles with
// consistent winding.
func (r EdgeReport) Closed() bool {
	return len(r.Boundary) == 0 && len(r.NonManifold) == 0 && len(r.Flipped) == 0 && r.Degenerate == 0
}

// Edges computes the edge report for m.
func Edges(m *Mesh) EdgeReport {
	var rep EdgeReport
	undirected := make(map[Edge]int)
	directed := make(map[Edge]int)

	for _, t := range m.Triangles {
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			rep.Degenerate++
			continue
		}
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			directed[Edge{a, b}]++
			if a > b {
				a, b = b, a
			}
			undirected[Edge{a, b}]++
		}
	}

	for e, n := range undirected {
		switch {
		case n == 1:
			rep.Boundary = append(rep.Boundary, e)
		case n > 2:
			rep.NonManifold = append(rep.NonManifold, e)
		}
	}
	for e, n := range directed {
		if n > 1 {
			rep.Flipped = append(rep.Flipped, e)
		}
	}
	sortEdges(rep.Boundary)
	sortEdges(rep.NonManifold)
	sortEdges(rep.Flipped)
	return rep
}

func sortEdges(es []Edge) {
	sort.Slice(es, func(i, j int) bool {
		if es[i][0] != es[j][0] {
			return es[i][0] < es[j][0]
		}
		return es[i][1] < es[j][1]
	})
}

// weldScale quantizes positions to 1e-6 when welding.
const weldScale = 1e6

type weldKey [3]int64

func keyOf(v v3.Vec) weldKey {
	return weldKey{
		int64(math.Round(v.X * weldScale)),
		int64(math.Round(v.Y * weldScale)),
		int64(math.Round(v.Z * weldScale)),
	}
}

// Weld merges meshes into one index space, unifying vertices that share a
// position. Sibling meshes (a feature and the panels it spawned) only meet
// along copied vertices, so welding them exposes whether together they
// close up.
func Weld(name string, meshes ...*Mesh) *Mesh {
	out := &Mesh{Name: name}
	index := make(map[weldKey]uint32)
	for _, m := range meshes {
		if m == nil {
			continue
		}
		remap := make([]uint32, len(m.Vertices))
		for i, v := range m.Vertices {
			k := keyOf(v)
			idx, ok := index[k]
			if !ok {
				idx = uint32(len(out.Vertices))
				index[k] = idx
				out.Vertices = append(out.Vertices, v)
			}
			remap[i] = idx
		}
		for _, t := range m.Triangles {
			out.Triangles = append(out.Triangles, Triangle{remap[t[0]], remap[t[1]], remap[t[2]]})
		}
	}
	out.Normals = computeNormals(out.Vertices, out.Triangles)
	return out
}

// BoundaryPositions maps a report's boundary edges back to positions.
func BoundaryPositions(m *Mesh, rep EdgeReport) [][2]v3.Vec {
	out := make([][2]v3.Vec, len(rep.Boundary))
	for i, e := range rep.Boundary {
		out[i] = [2]v3.Vec{m.Vertices[e[0]], m.Vertices[e[1]]}
	}
	return out
}
