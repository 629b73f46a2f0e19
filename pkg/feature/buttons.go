package feature

import (
	"math"

	"github.com/chazu/greeble/pkg/geom"
	"github.com/chazu/greeble/pkg/kernel"
	"github.com/chazu/greeble/pkg/panel"
	"github.com/chazu/greeble/pkg/params"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// buttonPitch is the centre-to-centre spacing of buttons in radii.
const buttonPitch = 2 * 1.8

var buttonsParams = params.List{
	params.NewFloat("radius", 0.4, params.AtLeast(0.2), params.Describe("button radius")),
	params.NewInt("segments", 32, params.Between(4, 256), params.MultipleOf(4), params.Describe("vertices around each button")),
	params.NewFloat("buttonHeight", 0.2, params.Describe("button height; negative sinks the buttons")),
}

type buttonsConfig struct {
	radius   float64
	segments int
	height   float64
}

func readButtons(s params.Snapshot) buttonsConfig {
	return buttonsConfig{
		radius:   s.Float("radius"),
		segments: s.Int("segments"),
		height:   s.Float("buttonHeight"),
	}
}

// gridSize is how many buttons fit along a side of the given length.
func gridSize(length, radius float64) int {
	return max(1, int(math.Floor(length/(radius*buttonPitch))))
}

// Buttons fills the hole with a grid of round buttons. The surface between
// buttons is stitched ring to ring so the whole feature is one closed piece
// against the hole's rim.
type Buttons struct {
	*quad
	numX, numY int
}

// NewButtons builds a button grid over corners.
func NewButtons(corners [4]v3.Vec, opts ...Option) (*Buttons, error) {
	q, err := newQuad(panel.KindButtons, corners, buttonsParams, newConfig(opts))
	if err != nil {
		return nil, err
	}
	g := &Buttons{quad: q}
	if err := g.Regenerate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Grid returns the number of buttons along X and Y from the last
// regeneration.
func (g *Buttons) Grid() (int, int) { return g.numX, g.numY }

// SetParam stores raw, regenerates and returns the clamped value.
func (g *Buttons) SetParam(name string, raw float64) (float64, error) {
	return g.setParam(name, raw, g.Regenerate)
}

// Regenerate rebuilds the button grid.
func (g *Buttons) Regenerate() error {
	return g.regenerate(func(s params.Snapshot) ([][4]int, error) {
		g.build(readButtons(s))
		return nil, nil
	})
}

// buttonRing is one button's base circle with its compass landmarks: right
// (element 0), top, left and bottom, a quarter turn apart.
type buttonRing struct {
	kernel.Ring
}

func (r buttonRing) right() int  { return 0 }
func (r buttonRing) top() int    { return r.Count / 4 }
func (r buttonRing) left() int   { return r.Count / 2 }
func (r buttonRing) bottom() int { return 3 * r.Count / 4 }

func (g *Buttons) build(c buttonsConfig) {
	b, fr := g.b, g.frame
	s := c.segments
	nx := gridSize(fr.Width(), c.radius)
	ny := gridSize(fr.Height(), c.radius)
	g.numX, g.numY = nx, ny
	sx, sy := fr.Width()/float64(nx), fr.Height()/float64(ny)

	// base rings row by row from the bottom-left, then the raised copies
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			centre := fr.Local(sx*(float64(x)+0.5), sy*(float64(y)+0.5), 0)
			b.AddCircleVerts(centre, c.radius, s, 0)
		}
	}
	bases := kernel.Ring{Start: 4, Count: nx * ny * s}
	tops := b.Extrude(bases, [3]float64{0, 0, c.height})

	base := func(x, y int) buttonRing {
		return buttonRing{bases.Sub((y*nx+x)*s, s)}
	}
	top := func(x, y int) kernel.Ring {
		return tops.Sub((y*nx+x)*s, s)
	}

	// caps and walls
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			br, tr := base(x, y), top(x, y)
			for j := 2; j < s; j++ {
				b.AddFace(tr.First(), tr.At(j-1), tr.At(j))
			}
			for j := 0; j < s; j++ {
				b.AddFace(tr.At(j), br.At(j), br.At(j+1))
				b.AddFace(tr.At(j), br.At(j+1), tr.At(j+1))
			}
		}
	}

	g.stitchBorder(nx, ny, base)
	g.stitchBetween(nx, ny, base)
}

// stitchBorder joins the outer buttons to the four rim corners: a fan from
// each corner over the quarter arc facing it, then one fan per side.
func (g *Buttons) stitchBorder(nx, ny int, base func(x, y int) buttonRing) {
	b := g.b
	lastX, lastY := nx-1, ny-1
	q := base(0, 0).Count / 4

	fans := []struct {
		ring   buttonRing
		corner int
		from   int
	}{
		{base(lastX, lastY), geom.TopRight, base(lastX, lastY).right()},
		{base(0, lastY), geom.TopLeft, base(0, lastY).top()},
		{base(0, 0), geom.BottomLeft, base(0, 0).left()},
		{base(lastX, 0), geom.BottomRight, base(lastX, 0).bottom()},
	}
	for _, f := range fans {
		for k := 0; k < q; k++ {
			b.AddFace(f.ring.At(f.from+k), f.corner, f.ring.At(f.from+k+1))
		}
	}

	// top side, fanned from the top-right corner
	b.AddFace(base(0, lastY).At(base(0, lastY).top()), geom.TopRight, geom.TopLeft)
	for x := 1; x < nx; x++ {
		prev, cur := base(x-1, lastY), base(x, lastY)
		b.AddFace(prev.At(prev.top()), cur.At(cur.top()), geom.TopRight)
	}
	// right side, fanned from the bottom-right corner
	b.AddFace(base(lastX, lastY).At(0), geom.BottomRight, geom.TopRight)
	for y := 1; y < ny; y++ {
		cur, prev := base(lastX, y), base(lastX, y-1)
		b.AddFace(cur.At(cur.right()), prev.At(prev.right()), geom.BottomRight)
	}
	// bottom side, fanned from the bottom-left corner
	b.AddFace(base(lastX, 0).At(base(lastX, 0).bottom()), geom.BottomLeft, geom.BottomRight)
	for x := 1; x < nx; x++ {
		cur, prev := base(x, 0), base(x-1, 0)
		b.AddFace(cur.At(cur.bottom()), prev.At(prev.bottom()), geom.BottomLeft)
	}
	// left side, fanned from the top-left corner
	b.AddFace(base(0, 0).At(base(0, 0).left()), geom.TopLeft, geom.BottomLeft)
	for y := 1; y < ny; y++ {
		prev, cur := base(0, y-1), base(0, y)
		b.AddFace(prev.At(prev.left()), cur.At(cur.left()), geom.TopLeft)
	}
}

// stitchBetween fills the gaps between neighbouring buttons: ladders of
// quads between horizontal neighbours, a quad in the middle of every four
// buttons, and ladders up the outer columns.
func (g *Buttons) stitchBetween(nx, ny int, base func(x, y int) buttonRing) {
	b := g.b
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			cur := base(x, y)
			s := cur.Count
			if x < nx-1 {
				next := base(x+1, y)
				t := cur.top()
				for k := 0; k < s/2; k++ {
					b.AddQuad(cur.At(t-k), next.At(t+k), next.At(t+k+1), cur.At(t-k-1))
				}
				if y < ny-1 {
					ul, ur := base(x, y+1), base(x+1, y+1)
					b.AddQuad(ul.At(ul.bottom()), ur.At(ur.bottom()), next.At(next.top()), cur.At(cur.top()))
				}
			}
			if y == ny-1 {
				continue
			}
			up := base(x, y+1)
			if x == 0 {
				l := cur.left()
				for k := 0; k < s/4; k++ {
					b.AddQuad(up.At(l+k), up.At(l+k+1), cur.At(l-k-1), cur.At(l-k))
				}
			}
			if x == nx-1 {
				bt, t := up.bottom(), cur.top()
				for k := 0; k < s/4; k++ {
					b.AddQuad(up.At(bt+k), up.At(bt+k+1), cur.At(t-k-1), cur.At(t-k))
				}
			}
		}
	}
}
