package kernel

import (
	"fmt"
	"math"

	"github.com/chazu/greeble/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Builder accumulates vertices and triangles for one regeneration pass. It is
// seeded with the quad's four corners at indices 0-3. Nothing it holds is
// visible outside the generator until Finalize.
type Builder struct {
	frame *geom.Frame
	verts []v3.Vec
	tris  []Triangle
}

// NewBuilder returns a builder over the given frame, already reset.
func NewBuilder(frame *geom.Frame) *Builder {
	b := &Builder{frame: frame}
	b.Reset()
	return b
}

// Base is the ring of the four quad corners.
var Base = Ring{Start: 0, Count: 4}

// Reset drops everything but the four base corners.
func (b *Builder) Reset() {
	c := b.frame.Corners()
	b.verts = append(b.verts[:0], c[:]...)
	b.tris = b.tris[:0]
}

// Frame returns the frame vertices are placed in.
func (b *Builder) Frame() *geom.Frame { return b.frame }

// Len is the number of vertices so far; the next vertex gets this index.
func (b *Builder) Len() int { return len(b.verts) }

// TriangleCount is the number of triangles so far.
func (b *Builder) TriangleCount() int { return len(b.tris) }

// Vertex returns the position of vertex i.
func (b *Builder) Vertex(i int) v3.Vec { return b.verts[i] }

// Vertices returns copies of the positions of the given indices.
func (b *Builder) Vertices(idx ...int) []v3.Vec {
	out := make([]v3.Vec, len(idx))
	for i, v := range idx {
		out[i] = b.verts[v]
	}
	return out
}

// AddVertex appends one vertex and returns its index.
func (b *Builder) AddVertex(p v3.Vec) int {
	b.verts = append(b.verts, p)
	return len(b.verts) - 1
}

// AddVertices appends vertices and returns the ring they occupy.
func (b *Builder) AddVertices(ps ...v3.Vec) Ring {
	r := Ring{Start: len(b.verts), Count: len(ps)}
	b.verts = append(b.verts, ps...)
	return r
}

// Extrude appends a copy of every vertex of r moved by d in frame axes and
// returns the new ring.
func (b *Builder) Extrude(r Ring, d [3]float64) Ring {
	out := Ring{Start: len(b.verts), Count: r.Count}
	for i := 0; i < r.Count; i++ {
		b.verts = append(b.verts, b.frame.MovePoint(b.verts[r.Start+i], d))
	}
	return out
}

// AddCircleVerts appends segments vertices evenly spaced on a circle of the
// given radius around center in the local XY plane, tilted about the local X
// axis by rotation radians. Vertex 0 lies on +X and the circle runs
// counter-clockwise.
func (b *Builder) AddCircleVerts(center v3.Vec, radius float64, segments int, rotation float64) Ring {
	r := Ring{Start: len(b.verts), Count: segments}
	slice := 2 * math.Pi / float64(segments)
	cr, sr := math.Cos(rotation), math.Sin(rotation)
	for i := 0; i < segments; i++ {
		x := math.Cos(float64(i)*slice) * radius
		y := math.Sin(float64(i)*slice) * radius
		b.verts = append(b.verts, b.frame.MovePoint(center, [3]float64{x, y * cr, y * sr}))
	}
	return r
}

// AddFace appends one triangle.
func (b *Builder) AddFace(i, j, k int) {
	b.tris = append(b.tris, Triangle{uint32(i), uint32(j), uint32(k)})
}

// AddQuad appends the quad a,b,c,d as triangles (a,d,b) and (b,d,c). Every
// generator's index layout relies on this diagonal.
func (b *Builder) AddQuad(a0, a1, a2, a3 int) {
	b.AddFace(a0, a3, a1)
	b.AddFace(a1, a3, a2)
}

// AddBaseFaces covers the whole quad with two triangles sharing the
// top-right to bottom-left diagonal.
func (b *Builder) AddBaseFaces() {
	b.AddFace(geom.TopRight, geom.TopLeft, geom.BottomLeft)
	b.AddFace(geom.TopRight, geom.BottomLeft, geom.BottomRight)
}

// Finalize validates the accumulated geometry, computes vertex normals and
// returns an immutable snapshot. The builder may be reset and reused.
func (b *Builder) Finalize(name string) (*Mesh, error) {
	m := &Mesh{
		Name:      name,
		Vertices:  append([]v3.Vec(nil), b.verts...),
		Triangles: append([]Triangle(nil), b.tris...),
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("kernel: finalize %s: %w", name, err)
	}
	m.Normals = computeNormals(m.Vertices, m.Triangles)
	return m, nil
}
