// Package geom provides the per-quad local coordinate frame used by every
// panel and feature generator. Points are sdfx vectors; local 2D positions
// are measured from the quad's bottom-left corner.
package geom

import (
	"errors"
	"fmt"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Corner indices of a quad, clockwise from the top-left.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// Epsilon is the tolerance used for "same coordinate" comparisons in local
// space.
const Epsilon = 1e-4

var (
	// ErrDegenerateQuad is returned for quads with a zero-length or
	// collapsed axis.
	ErrDegenerateQuad = errors.New("geom: degenerate quad")
	// ErrNonPlanar is returned when the bottom-left corner is off the plane
	// of the other three.
	ErrNonPlanar = errors.New("geom: quad corners are not coplanar")
)

// Frame is the local basis of a quad: X runs top-left to top-right, Y runs
// bottom-right to top-right and Z is X cross Y. It is immutable once built.
type Frame struct {
	corners [4]v3.Vec
	axes    [3]v3.Vec
	bounds  [2]float64
}

// NewFrame derives the frame of the quad given as top-left, top-right,
// bottom-right, bottom-left.
func NewFrame(corners [4]v3.Vec) (*Frame, error) {
	x := corners[TopRight].Sub(corners[TopLeft])
	y := corners[TopRight].Sub(corners[BottomRight])
	z := x.Cross(y)

	w, h := x.Length(), y.Length()
	if w < Epsilon || h < Epsilon {
		return nil, fmt.Errorf("%w: bounds %gx%g", ErrDegenerateQuad, w, h)
	}
	// sin of the angle between the axes
	if z.Length()/(w*h) < Epsilon {
		return nil, fmt.Errorf("%w: parallel edges", ErrDegenerateQuad)
	}

	zn := z.Normalize()
	off := corners[BottomLeft].Sub(corners[TopRight]).Dot(zn)
	if math.Abs(off) > Epsilon*math.Max(w, h) {
		return nil, fmt.Errorf("%w: bottom-left is %g off plane", ErrNonPlanar, off)
	}

	return &Frame{
		corners: corners,
		axes:    [3]v3.Vec{x.Normalize(), y.Normalize(), zn},
		bounds:  [2]float64{w, h},
	}, nil
}

// Corners returns the four corners the frame was built from.
func (f *Frame) Corners() [4]v3.Vec {
	return f.corners
}

// Corner returns one corner by index.
func (f *Frame) Corner(i int) v3.Vec {
	return f.corners[i]
}

// Axis returns the normalized axis 0 (X), 1 (Y) or 2 (Z).
func (f *Frame) Axis(i int) v3.Vec {
	return f.axes[i]
}

// Width is the length of the top edge.
func (f *Frame) Width() float64 { return f.bounds[0] }

// Height is the length of the right edge.
func (f *Frame) Height() float64 { return f.bounds[1] }

// Origin is the bottom-left corner, the zero of local 2D space.
func (f *Frame) Origin() v3.Vec {
	return f.corners[BottomLeft]
}

// MovePoint translates p by d[0] along X, d[1] along Y and d[2] along Z.
func (f *Frame) MovePoint(p v3.Vec, d [3]float64) v3.Vec {
	for i := 0; i < 3; i++ {
		p = p.Add(f.axes[i].MulScalar(d[i]))
	}
	return p
}

// MovePointPercent translates p by fractions of the frame bounds.
func (f *Frame) MovePointPercent(p v3.Vec, pct [2]float64) v3.Vec {
	return f.MovePoint(p, [3]float64{pct[0] * f.bounds[0], pct[1] * f.bounds[1], 0})
}

// Local returns the point at local coordinates (x, y, z) measured from the
// origin.
func (f *Frame) Local(x, y, z float64) v3.Vec {
	return f.MovePoint(f.Origin(), [3]float64{x, y, z})
}

// NormalizePoint converts a world point on the quad into local 2D space:
// the lengths of the projections of p-origin onto X and Y.
func (f *Frame) NormalizePoint(p v3.Vec) v2.Vec {
	d := p.Sub(f.Origin())
	return v2.Vec{
		X: math.Abs(d.Dot(f.axes[0])),
		Y: math.Abs(d.Dot(f.axes[1])),
	}
}

// CornersFromPoints returns the axis-aligned local rectangle spanned by two
// world points, as world corners ordered top-left, top-right, bottom-right,
// bottom-left.
func (f *Frame) CornersFromPoints(p1, p2 v3.Vec) [4]v3.Vec {
	a, b := f.NormalizePoint(p1), f.NormalizePoint(p2)
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return [4]v3.Vec{
		f.Local(minX, maxY, 0),
		f.Local(maxX, maxY, 0),
		f.Local(maxX, minY, 0),
		f.Local(minX, minY, 0),
	}
}

// Quad builds four world corners from local rectangle bounds.
func (f *Frame) Quad(minX, minY, maxX, maxY float64) [4]v3.Vec {
	return [4]v3.Vec{
		f.Local(minX, maxY, 0),
		f.Local(maxX, maxY, 0),
		f.Local(maxX, minY, 0),
		f.Local(minX, minY, 0),
	}
}
