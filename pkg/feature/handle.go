package feature

import (
	"math"

	"github.com/chazu/greeble/pkg/kernel"
	"github.com/chazu/greeble/pkg/panel"
	"github.com/chazu/greeble/pkg/params"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var handleParams = params.List{
	params.NewFloat("radius", 0.4, params.AtLeast(0.2), params.Describe("bar radius")),
	params.NewInt("handleSegments", 32, params.Between(4, 256), params.MultipleOf(4), params.Describe("vertices around the bar")),
	params.NewFloat("handleHeight", 0.5, params.AtLeast(0.1), params.Describe("height of the straight posts")),
	params.NewFloat("turnRadius", 0.5, params.AtLeast(0.4), params.Describe("radius of the elbows")),
	params.NewFloat("separation", 0.1, params.AtLeast(0.1), params.Describe("gap between a post and the rim")),
	params.NewInt("turnSegments", 8, params.Between(1, 128), params.Describe("rings per elbow")),
}

type handleConfig struct {
	radius     float64
	segments   int
	height     float64
	turnRadius float64
	separation float64
	turns      int
}

func readHandle(s params.Snapshot) handleConfig {
	return handleConfig{
		radius:     s.Float("radius"),
		segments:   s.Int("handleSegments"),
		height:     s.Float("handleHeight"),
		turnRadius: s.Float("turnRadius"),
		separation: s.Float("separation"),
		turns:      s.Int("turnSegments"),
	}
}

// postOffsets point from each corner towards the inside of the quad.
var postOffsets = [4][2]float64{{1, -1}, {-1, -1}, {-1, 1}, {1, 1}}

// Handle raises two bar handles, one on the left and one on the right of
// the hole: a post at every corner bends through an elbow into a bar that
// joins the post above or below it. The floor between the posts is left
// open and handed to a child hole panel.
type Handle struct {
	*quad
}

// NewHandle builds a pair of handles over corners.
func NewHandle(corners [4]v3.Vec, opts ...Option) (*Handle, error) {
	q, err := newQuad(panel.KindHandle, corners, handleParams, newConfig(opts))
	if err != nil {
		return nil, err
	}
	g := &Handle{quad: q}
	if err := g.Regenerate(); err != nil {
		return nil, err
	}
	return g, nil
}

// SetParam stores raw, regenerates and returns the clamped value.
func (g *Handle) SetParam(name string, raw float64) (float64, error) {
	return g.setParam(name, raw, g.Regenerate)
}

// Regenerate rebuilds both handles and the floor panel between them.
func (g *Handle) Regenerate() error {
	return g.regenerate(func(s params.Snapshot) ([][4]int, error) {
		return g.build(readHandle(s)), nil
	})
}

// build lays out a base ring per corner, the same rings raised by
// handleHeight, then turnSegments elbow rings per corner. Corners 0 and 1
// bend down towards 3 and 2; corners 2 and 3 bend up to meet them.
func (g *Handle) build(c handleConfig) [][4]int {
	b, fr := g.b, g.frame
	s := c.segments
	q := s / 4
	reach := c.radius + c.separation

	var centres [4]v3.Vec
	var posts [4]kernel.Ring
	for i := range posts {
		centres[i] = fr.MovePoint(fr.Corner(i), [3]float64{reach * postOffsets[i][0], reach * postOffsets[i][1], 0})
		posts[i] = b.AddCircleVerts(centres[i], c.radius, s, 0)
	}
	raised := b.Extrude(kernel.Ring{Start: posts[0].Start, Count: 4 * s}, [3]float64{0, 0, c.height})
	var tops [4]kernel.Ring
	for i := range tops {
		tops[i] = raised.Sub(i*s, s)
	}

	theta := (math.Pi / 2) / float64(c.turns)
	elbows := make([][]kernel.Ring, 4)
	for i := range elbows {
		dy := -c.turnRadius
		if i >= 2 {
			dy = c.turnRadius
		}
		pivot := fr.MovePoint(centres[i], [3]float64{0, dy, c.height})
		elbows[i] = make([]kernel.Ring, c.turns)
		for j := 0; j < c.turns; j++ {
			angle := float64(j+1) * theta
			y := math.Cos(angle) * c.turnRadius
			z := math.Sin(angle) * c.turnRadius
			if i >= 2 {
				angle = math.Pi - angle
				y = -y
			}
			elbows[i][j] = b.AddCircleVerts(fr.MovePoint(pivot, [3]float64{0, y, z}), c.radius, s, angle)
		}
	}

	// floor: a fan from each corner to the quarter of its post facing it,
	// rim strips between corners, then ladders between the posts
	for i := 0; i < 4; i++ {
		off := ((5 - i) % 4) * q
		for j := 0; j < q; j++ {
			b.AddFace(posts[i].At(off+j), kernel.Base.At(i), posts[i].At(off+j+1))
		}
	}
	for i := 0; i < 4; i++ {
		n := (i + 1) % 4
		off := q * ((5 - i) % 4)
		b.AddQuad(kernel.Base.At(i), kernel.Base.At(n), posts[n].At(off), posts[i].At(off))
	}
	for i := 0; i < 2; i++ {
		from, to := posts[2*i], posts[2*i+1]
		off := q * (2*i + 1)
		for j := 0; j < q; j++ {
			b.AddQuad(from.At(off-j), to.At(off+j), to.At(off+j+1), from.At(off-j-1))
		}
	}
	half := s / 2
	for i, end := range []int{3, 2} {
		from, to := posts[i], posts[end]
		for j := 0; j < half; j++ {
			b.AddQuad(from.At(half+j), from.At(half+j+1), to.At(half-j-1), to.At(half-j))
		}
	}

	// posts
	for i := 0; i < 4; i++ {
		for k := 0; k < s; k++ {
			b.AddQuad(posts[i].At(k+1), posts[i].At(k), tops[i].At(k), tops[i].At(k+1))
		}
	}

	// elbows; the bending-up pair walks its first ring backwards because
	// the rotation flips its circle over
	for i := 0; i < 4; i++ {
		top, first := tops[i], elbows[i][0]
		for k := 0; k < s; k++ {
			if i < 2 {
				b.AddQuad(top.At(k+1), top.At(k), first.At(k), first.At(k+1))
			} else {
				b.AddQuad(first.At(s-k), first.At(s-k-1), top.At(k+1), top.At(k))
			}
		}
		for j := 0; j < c.turns-1; j++ {
			cur, next := elbows[i][j], elbows[i][j+1]
			for k := 0; k < s; k++ {
				if i < 2 {
					b.AddQuad(cur.At(k+1), cur.At(k), next.At(k), next.At(k+1))
				} else {
					b.AddQuad(cur.At(k), cur.At(k+1), next.At(k+1), next.At(k))
				}
			}
		}
	}

	// bars
	last := c.turns - 1
	for i, end := range []int{3, 2} {
		from, to := elbows[i][last], elbows[end][last]
		for k := 0; k < s; k++ {
			b.AddQuad(from.At(k+1), from.At(k), to.At(k), to.At(k+1))
		}
	}

	p := posts[0]
	return [][4]int{{p.First(), p.First() + s*3/2, p.First() + s*5/2, p.First() + 3*s}}
}
