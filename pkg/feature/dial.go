package feature

import (
	"math"

	"github.com/chazu/greeble/pkg/kernel"
	"github.com/chazu/greeble/pkg/panel"
	"github.com/chazu/greeble/pkg/params"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var dialParams = params.List{
	params.NewInt("facets", 16, params.Between(4, 256), params.MultipleOf(2), params.Describe("segments along each arc")),
	params.NewFloat("depth", 1, params.AtLeast(0.01), params.Describe("depth of the recess")),
	params.NewFloat("width1", 0.8, params.Between(0.05, 0.95), params.Describe("width of the dial face, as a fraction of the hole")),
	params.NewFloat("width2", 0.6, params.Between(0.05, 0.95), params.Describe("width of the bottom of the face; never wider than width1")),
	params.NewFloat("height1", 0.7, params.Between(0.2, 0.95), params.Describe("height of the needle pivot line")),
	params.NewFloat("height2", 0.1, params.Between(0.02, 0.5), params.Describe("height of the bottom edge; at most half of height1")),
	params.NewFloat("needleThick", 0.8, params.Between(0.05, 0.95), params.Describe("needle and bezel height, as a fraction of depth")),
	params.NewFloat("needleWidth", 0.4, params.AtLeast(0.01), params.Describe("width of the needle tip")),
	params.NewFloat("needlePos", 0.5, params.Between(0, 1), params.Describe("needle sweep position from left to right")),
}

type dialConfig struct {
	facets      int
	depth       float64
	width1      float64
	width2      float64
	height1     float64
	height2     float64
	needleThick float64
	needleWidth float64
	needlePos   float64
}

func readDial(s params.Snapshot) dialConfig {
	return dialConfig{
		facets:      s.Int("facets"),
		depth:       s.Float("depth"),
		width1:      s.Float("width1"),
		width2:      s.Float("width2"),
		height1:     s.Float("height1"),
		height2:     s.Float("height2"),
		needleThick: s.Float("needleThick"),
		needleWidth: s.Float("needleWidth"),
		needlePos:   s.Float("needlePos"),
	}
}

// fit applies the limits that depend on each other or on the hole size, so
// the face, bezel and needle never touch.
func (c dialConfig) fit(w, h float64) dialConfig {
	c.width2 = math.Min(c.width2, c.width1)
	c.height2 = math.Min(c.height2, c.height1/2)
	c.needleWidth = math.Min(c.needleWidth, math.Min(w*c.width1/4, h*(1-c.height1)*0.8))
	return c
}

// Dial recesses a meter face into the hole: an arched outline sunk to depth,
// a half-round bezel against its bottom edge and a needle rising from the
// bezel towards the arch.
type Dial struct {
	*quad
}

// NewDial builds a dial over corners.
func NewDial(corners [4]v3.Vec, opts ...Option) (*Dial, error) {
	q, err := newQuad(panel.KindDial, corners, dialParams, newConfig(opts))
	if err != nil {
		return nil, err
	}
	g := &Dial{quad: q}
	if err := g.Regenerate(); err != nil {
		return nil, err
	}
	return g, nil
}

// SetParam stores raw, regenerates and returns the clamped value.
func (g *Dial) SetParam(name string, raw float64) (float64, error) {
	return g.setParam(name, raw, g.Regenerate)
}

// Regenerate rebuilds the dial.
func (g *Dial) Regenerate() error {
	return g.regenerate(func(s params.Snapshot) ([][4]int, error) {
		g.build(readDial(s).fit(g.frame.Width(), g.frame.Height()))
		return nil, nil
	})
}

// dialLayout names the rings of a dial. The outline runs top-left, along
// the arch, top-right, bottom-right, bottom-left; floor is the outline sunk
// to depth. Bezel and needle arcs have facets+1 points, each with a raised
// copy.
type dialLayout struct {
	facets        int
	outline       kernel.Ring
	floor         kernel.Ring
	bezel, bezelT kernel.Ring
	tip, tipT     kernel.Ring
}

// outline landmarks
func (l dialLayout) tl() int { return 0 }
func (l dialLayout) tr() int { return l.facets }
func (l dialLayout) br() int { return l.facets + 1 }
func (l dialLayout) bl() int { return l.facets + 2 }

func (g *Dial) build(c dialConfig) {
	b, fr := g.b, g.frame
	w, h := fr.Width(), fr.Height()
	f := c.facets
	half := f / 2

	x1 := w * (0.5 - c.width1/2)
	x2 := w * (0.5 - c.width2/2)
	y1 := h * c.height1
	y2 := h * c.height2

	outline := []v3.Vec{fr.Local(x1, y1, 0)}
	rx, ry := w*c.width1/2, h*(1-c.height1)*0.8
	for i := 1; i < f; i++ {
		a := math.Pi - float64(i)*math.Pi/float64(f)
		outline = append(outline, fr.Local(w/2+math.Cos(a)*rx, y1+math.Sin(a)*ry, 0))
	}
	outline = append(outline, fr.Local(w-x1, y1, 0), fr.Local(w-x2, y2, 0), fr.Local(x2, y2, 0))

	l := dialLayout{facets: f}
	l.outline = b.AddVertices(outline...)
	l.floor = b.Extrude(l.outline, [3]float64{0, 0, -c.depth})

	rise := [3]float64{0, 0, c.depth * c.needleThick}
	bx, by := w*c.width2*0.8/2, h*c.height2*0.8
	l.bezel = kernel.Ring{Start: b.Len(), Count: f + 1}
	for i := 0; i <= f; i++ {
		a := float64(i) * math.Pi / float64(f)
		b.AddVertex(fr.Local(w/2+math.Cos(a)*bx, y2+math.Sin(a)*by, -c.depth))
	}
	l.bezelT = b.Extrude(l.bezel, rise)

	nr := c.needleWidth / 2
	cx := w*(1-c.width1)/2 + (w*c.width1-4*c.needleWidth)*c.needlePos + 2*c.needleWidth
	l.tip = kernel.Ring{Start: b.Len(), Count: f + 1}
	for i := 0; i <= f; i++ {
		a := math.Pi - (float64(i)*0.8*math.Pi/float64(f) + 0.1*math.Pi)
		b.AddVertex(fr.Local(cx+math.Cos(a)*nr, y1+math.Sin(a)*nr, -c.depth))
	}
	l.tipT = b.Extrude(l.tip, rise)

	g.face(l)
	g.walls(l)
	g.floor(l, half)
	g.needle(l, half)
}

// face covers the rim between the hole edge and the outline.
func (g *Dial) face(l dialLayout) {
	b, o := g.b, l.outline
	f := l.facets
	b.AddQuad(0, o.At(l.tl()), o.At(l.bl()), 3)
	b.AddQuad(o.At(l.br()), o.At(l.tr()), 1, 2)
	b.AddQuad(o.At(l.bl()), o.At(l.br()), 2, 3)
	for i := 1; i <= f; i++ {
		corner := 0
		if i > f/2 {
			corner = 1
		}
		b.AddFace(o.At(i-1), o.At(i), corner)
	}
	b.AddFace(1, 0, o.At(f/2))
}

// walls drops the outline to the floor. The bottom wall goes around the
// flat back of the bezel.
func (g *Dial) walls(l dialLayout) {
	b, o, d := g.b, l.outline, l.floor
	f := l.facets
	for i := 0; i < o.Count; i++ {
		if i == l.br() {
			continue
		}
		b.AddQuad(o.At(i), o.At(i+1), d.At(i+1), d.At(i))
	}
	bl, br := o.At(l.bl()), o.At(l.br())
	b.AddFace(bl, l.bezel.At(f), d.At(l.bl()))
	b.AddFace(bl, l.bezelT.At(f), l.bezel.At(f))
	b.AddFace(bl, l.bezelT.First(), l.bezelT.At(f))
	b.AddFace(bl, br, l.bezelT.First())
	b.AddFace(br, l.bezel.First(), l.bezelT.First())
	b.AddFace(br, d.At(l.br()), l.bezel.First())
}

// floor fills the recess bottom around the bezel and needle footprint: a
// band from the arch to the needle tip and a fan from each top corner of
// the outline down to the bezel.
func (g *Dial) floor(l dialLayout, half int) {
	b, d, a, n := g.b, l.floor, l.bezel, l.tip
	f := l.facets
	for i := 0; i < f; i++ {
		b.AddQuad(d.At(i), d.At(i+1), n.At(i+1), n.At(i))
	}

	tr, tl := d.At(l.tr()), d.At(l.tl())
	b.AddFace(tr, a.First(), d.At(l.br()))
	for i := 0; i < half-1; i++ {
		b.AddFace(tr, a.At(i+1), a.At(i))
	}
	b.AddFace(tr, n.At(f), a.At(half-1))

	b.AddFace(tl, a.At(half+1), n.First())
	for i := half + 1; i < f; i++ {
		b.AddFace(tl, a.At(i+1), a.At(i))
	}
	b.AddFace(tl, d.At(l.bl()), a.At(f))
}

// needle closes the raised bezel and needle: risers along both arcs, the
// needle's sides and one cap over the lot. The bezel midpoint under the
// needle root has no riser.
func (g *Dial) needle(l dialLayout, half int) {
	b := g.b
	a, u, n, m := l.bezel, l.bezelT, l.tip, l.tipT
	f := l.facets

	for i := 1; i <= f; i++ {
		if i == half || i == half+1 {
			continue
		}
		b.AddQuad(a.At(i), a.At(i-1), u.At(i-1), u.At(i))
	}
	b.AddQuad(a.At(half+1), n.First(), m.First(), u.At(half+1))
	b.AddQuad(m.At(f), n.At(f), a.At(half-1), u.At(half-1))
	for i := 1; i <= f; i++ {
		b.AddQuad(n.At(i-1), n.At(i), m.At(i), m.At(i-1))
	}

	mid := u.At(half)
	for i := 0; i < half-1; i++ {
		b.AddFace(u.At(i), u.At(i+1), mid)
	}
	b.AddFace(u.At(half-1), m.At(f), mid)
	b.AddFace(m.At(f), m.First(), mid)
	b.AddFace(m.First(), u.At(half+1), mid)
	for i := half + 1; i < f; i++ {
		b.AddFace(u.At(i), u.At(i+1), mid)
	}
	b.AddFace(u.At(f), u.First(), mid)
	for i := 0; i < f-1; i++ {
		b.AddFace(m.At(i+1), m.At(i), m.At(f))
	}
}
