package feature

import (
	"math"

	"github.com/chazu/greeble/pkg/kernel"
	"github.com/chazu/greeble/pkg/panel"
	"github.com/chazu/greeble/pkg/params"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// bevelInset pulls the rounded corners slightly off the rim so the corner
// fans never collapse onto the base corner.
const bevelInset = 0.01

var bevelParams = params.List{
	params.NewFloat("extrude", 1, params.Describe("distance along the panel normal; negative recesses")),
	params.NewFloat("bevel", 0.4, params.AtLeast(0.1), params.Describe("corner rounding radius")),
	params.NewInt("bevelFacets", 8, params.Between(2, 128), params.Describe("vertices per rounded corner")),
}

type bevelConfig struct {
	extrude float64
	bevel   float64
	facets  int
}

func readBevel(s params.Snapshot) bevelConfig {
	return bevelConfig{
		extrude: s.Float("extrude"),
		bevel:   s.Float("bevel"),
		facets:  s.Int("bevelFacets"),
	}
}

// Bevel pushes the hole's face out (or in) with rounded corners. The four
// side walls and the pushed face are left open and handed to child hole
// panels, so they can take features of their own.
type Bevel struct {
	*quad
}

// NewBevel builds a bevel over corners.
func NewBevel(corners [4]v3.Vec, opts ...Option) (*Bevel, error) {
	q, err := newQuad(panel.KindBevel, corners, bevelParams, newConfig(opts))
	if err != nil {
		return nil, err
	}
	g := &Bevel{quad: q}
	if err := g.Regenerate(); err != nil {
		return nil, err
	}
	return g, nil
}

// SetParam stores raw, regenerates and returns the clamped value.
func (g *Bevel) SetParam(name string, raw float64) (float64, error) {
	return g.setParam(name, raw, g.Regenerate)
}

// Regenerate rebuilds the mesh and its five child panels.
func (g *Bevel) Regenerate() error {
	return g.regenerate(func(s params.Snapshot) ([][4]int, error) {
		return g.build(readBevel(s)), nil
	})
}

// build lays out one rounded ring per corner on the rim, the same rings
// pushed by extrude, and a centre vertex per corner on the pushed face.
// Vertex layout: rings at 4+i*f, pushed rings at 4+4f+i*f, centres at 4+8f+i.
func (g *Bevel) build(c bevelConfig) [][4]int {
	b, fr := g.b, g.frame
	f := c.facets
	r := c.bevel - bevelInset
	slice := (math.Pi / 2) / float64(f-1)

	// each corner's arc, expressed as a local offset from that corner
	arc := func(corner, j int) [3]float64 {
		ox := math.Cos(slice*float64(j)) * r
		oy := math.Sin(slice*float64(j)) * r
		switch corner {
		case 0:
			return [3]float64{c.bevel - ox, -c.bevel + oy, 0}
		case 1:
			return [3]float64{-c.bevel + oy, -c.bevel + ox, 0}
		case 2:
			return [3]float64{-c.bevel + ox, c.bevel - oy, 0}
		default:
			return [3]float64{c.bevel - oy, c.bevel - ox, 0}
		}
	}

	var rings [4]kernel.Ring
	for i := range rings {
		rings[i] = kernel.Ring{Start: b.Len(), Count: f}
		for j := 0; j < f; j++ {
			b.AddVertex(fr.MovePoint(fr.Corner(i), arc(i, j)))
		}
	}
	all := kernel.Ring{Start: rings[0].Start, Count: 4 * f}
	pushed := b.Extrude(all, [3]float64{0, 0, c.extrude})
	var tops [4]kernel.Ring
	for i := range tops {
		tops[i] = pushed.Sub(i*f, f)
	}

	centres := kernel.Ring{Start: b.Len(), Count: 4}
	for i := 0; i < 4; i++ {
		mid := b.Vertex(tops[i].First()).Add(b.Vertex(tops[i].Last())).MulScalar(0.5)
		b.AddVertex(mid)
	}

	for i := 0; i < 4; i++ {
		n := (i + 1) % 4
		ring, top := rings[i], tops[i]
		for j := 1; j < f; j++ {
			b.AddFace(kernel.Base.At(i), ring.At(j-1), ring.At(j))
			b.AddFace(centres.At(i), top.At(j), top.At(j-1))
			b.AddQuad(ring.At(j-1), ring.At(j), top.At(j), top.At(j-1))
		}
		// rim strip between neighbouring corners
		b.AddQuad(kernel.Base.At(i), kernel.Base.At(n), rings[n].First(), ring.Last())
		// pushed face strip towards the centre quad
		b.AddQuad(top.Last(), tops[n].First(), centres.At(n), centres.At(i))
	}

	holes := make([][4]int, 0, 5)
	for i := 0; i < 4; i++ {
		n := (i + 1) % 4
		holes = append(holes, [4]int{rings[i].Last(), rings[n].First(), tops[n].First(), tops[i].Last()})
	}
	holes = append(holes, [4]int{centres.At(0), centres.At(1), centres.At(2), centres.At(3)})
	return holes
}
