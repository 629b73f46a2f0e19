package panel

import (
	"sort"

	"github.com/chazu/greeble/pkg/geom"
	"github.com/chazu/greeble/pkg/kernel"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/samber/lo"
)

// Rect is an axis-aligned hole in panel-local space.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Width of the rectangle.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height of the rectangle.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Area of the rectangle.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// holeVertex is the builder index of corner c (geom.TopLeft..BottomLeft) of
// hole h. Hole corners follow the four base corners.
func holeVertex(h, c int) uint32 {
	return uint32(4 + 4*h + c)
}

// holeOf maps a vertex index to its hole number; base corners map to -1.
func holeOf(v uint32) int {
	if v < 4 {
		return -1
	}
	return int(v-4) / 4
}

// sweepPoint is a local 2D point tagged with its vertex index. Leading
// points sit on a hole's left edge and are never fanned away as concave.
type sweepPoint struct {
	pt      v2.Vec
	index   uint32
	leading bool
}

func (p sweepPoint) sameY(q sweepPoint) bool {
	d := p.pt.Y - q.pt.Y
	return d < geom.Epsilon && d > -geom.Epsilon
}

// sweepEdge is a vertical hole edge, listed bottom point first.
type sweepEdge struct {
	pts [2]sweepPoint
}

func (e sweepEdge) x() float64 { return e.pts[0].pt.X }

// front is the ordered (by Y) list of boundary points exposed to the sweep.
type front struct {
	points []sweepPoint
}

// insert places p before the first point strictly above it.
func (f *front) insert(p sweepPoint) {
	for i, q := range f.points {
		if q.pt.Y > p.pt.Y {
			f.points = append(f.points, sweepPoint{})
			copy(f.points[i+1:], f.points[i:])
			f.points[i] = p
			return
		}
	}
	f.points = append(f.points, p)
}

// near returns the front points around p's height: (below, above) when p
// falls between two points, or (below, equal, above) when p shares its Y
// with a front point. Missing neighbours at the ends are left out.
func (f *front) near(p sweepPoint) []sweepPoint {
	for i, q := range f.points {
		if q.sameY(p) {
			var out []sweepPoint
			if i > 0 {
				out = append(out, f.points[i-1])
			}
			out = append(out, q)
			if i < len(f.points)-1 {
				out = append(out, f.points[i+1])
			}
			return out
		}
		if q.pt.Y > p.pt.Y {
			var out []sweepPoint
			if i > 0 {
				out = append(out, f.points[i-1])
			}
			return append(out, q)
		}
	}
	return nil
}

func (f *front) remove(index uint32) {
	f.points = lo.Reject(f.points, func(p sweepPoint, _ int) bool { return p.index == index })
}

// concave finds the first interior front point P with predecessor A and
// successor B such that (P-A) x (B-A) < 0 and P is not a leading point. It
// returns the fan triangle (B, P, A).
func (f *front) concave() (kernel.Triangle, bool) {
	for i := 1; i < len(f.points)-1; i++ {
		a, p, b := f.points[i-1], f.points[i], f.points[i+1]
		line := p.pt.Sub(a.pt)
		toB := b.pt.Sub(a.pt)
		if line.X*toB.Y-line.Y*toB.X < 0 && !p.leading {
			return kernel.Triangle{b.index, p.index, a.index}, true
		}
	}
	return kernel.Triangle{}, false
}

// triangulation collects the output triangles of one sweep.
type triangulation struct {
	tris []kernel.Triangle
}

func (t *triangulation) add(a, b, c uint32) {
	t.tris = append(t.tris, kernel.Triangle{a, b, c})
}

// addUnlessInterior drops triangles whose corners all belong to one hole;
// those would cover the hole itself.
func (t *triangulation) addUnlessInterior(a, b, c uint32) {
	h := holeOf(a)
	if h == holeOf(b) && h == holeOf(c) {
		return
	}
	t.add(a, b, c)
}

// fanConcave removes concave points from the front until none remain.
func (t *triangulation) fanConcave(f *front) {
	for {
		tri, ok := f.concave()
		if !ok {
			return
		}
		t.add(tri[0], tri[1], tri[2])
		f.remove(tri[1])
	}
}

// Triangulate covers a width x height rectangle minus the given holes.
// Indices 0-3 are the panel corners (top-left, top-right, bottom-right,
// bottom-left) and hole h occupies 4+4h..4+4h+3 in the same corner order.
// Holes must lie strictly inside the panel and must not overlap.
//
// Hole corners whose Y values differ by less than geom.Epsilon are merged
// as equal, so the triangulation can leave a sliver up to Epsilon tall
// uncovered next to them.
func Triangulate(width, height float64, holes []Rect) []kernel.Triangle {
	var t triangulation
	if len(holes) == 0 {
		t.add(geom.TopRight, geom.TopLeft, geom.BottomLeft)
		t.add(geom.TopRight, geom.BottomLeft, geom.BottomRight)
		return t.tris
	}

	edges := make([]sweepEdge, 0, 2*len(holes))
	for h, r := range holes {
		// left edge bottom to top, then right edge bottom to top
		edges = append(edges,
			sweepEdge{pts: [2]sweepPoint{
				{pt: v2.Vec{X: r.MinX, Y: r.MinY}, index: holeVertex(h, geom.BottomLeft), leading: true},
				{pt: v2.Vec{X: r.MinX, Y: r.MaxY}, index: holeVertex(h, geom.TopLeft), leading: true},
			}},
			sweepEdge{pts: [2]sweepPoint{
				{pt: v2.Vec{X: r.MaxX, Y: r.MinY}, index: holeVertex(h, geom.BottomRight)},
				{pt: v2.Vec{X: r.MaxX, Y: r.MaxY}, index: holeVertex(h, geom.TopRight)},
			}},
		)
	}
	// Edges sharing an X run bottom-up so a stacked column of holes never
	// brackets a new point between two points on its own vertical line.
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].x() != edges[j].x() {
			return edges[i].x() < edges[j].x()
		}
		return edges[i].pts[0].pt.Y < edges[j].pts[0].pt.Y
	})

	var f front
	f.insert(sweepPoint{pt: v2.Vec{X: 0, Y: 0}, index: geom.BottomLeft})
	f.insert(sweepPoint{pt: v2.Vec{X: 0, Y: height}, index: geom.TopLeft})

	for _, e := range edges {
		var drop []uint32
		for _, p := range e.pts {
			near := f.near(p)
			switch len(near) {
			case 2:
				t.addUnlessInterior(near[0].index, p.index, near[1].index)
			case 3:
				t.addUnlessInterior(p.index, near[1].index, near[0].index)
				t.addUnlessInterior(near[2].index, near[1].index, p.index)
				drop = append(drop, near[1].index)
			}
			f.insert(p)
		}
		for _, idx := range drop {
			f.remove(idx)
		}
		t.fanConcave(&f)
	}

	// close against the right side of the panel
	n := len(f.points)
	t.add(geom.TopRight, geom.TopLeft, f.points[n-2].index)
	t.add(geom.BottomRight, f.points[1].index, geom.BottomLeft)

	f.points[0] = sweepPoint{pt: v2.Vec{X: width, Y: 0}, index: geom.BottomRight}
	f.points[n-1] = sweepPoint{pt: v2.Vec{X: width, Y: height}, index: geom.TopRight}
	t.fanConcave(&f)

	return t.tris
}
