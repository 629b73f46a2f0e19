package geom

import (
	"errors"
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func rect(w, h float64) [4]v3.Vec {
	return [4]v3.Vec{{X: 0, Y: h}, {X: w, Y: h}, {X: w, Y: 0}, {X: 0, Y: 0}}
}

// tilted is a 6x4 quad standing in the XZ plane rotated 30 degrees about Z.
func tilted() [4]v3.Vec {
	c, s := math.Cos(math.Pi/6), math.Sin(math.Pi/6)
	x := v3.Vec{X: c, Y: s}
	z := v3.Vec{Z: 1}
	o := v3.Vec{X: 1, Y: 2, Z: 3}
	at := func(u, v float64) v3.Vec { return o.Add(x.MulScalar(u)).Add(z.MulScalar(v)) }
	return [4]v3.Vec{at(0, 4), at(6, 4), at(6, 0), at(0, 0)}
}

func TestNewFrameBoundsAndAxes(t *testing.T) {
	f, err := NewFrame(rect(20, 10))
	require.NoError(t, err)

	assert.InDelta(t, 20.0, f.Width(), 1e-12)
	assert.InDelta(t, 10.0, f.Height(), 1e-12)
	assertVecNear(t, v3.Vec{X: 1}, f.Axis(0))
	assertVecNear(t, v3.Vec{Y: 1}, f.Axis(1))
	assertVecNear(t, v3.Vec{Z: 1}, f.Axis(2))
	assert.Equal(t, v3.Vec{}, f.Origin())
}

func TestNewFrameRejectsBadQuads(t *testing.T) {
	tests := []struct {
		name    string
		corners [4]v3.Vec
		want    error
	}{
		{
			name:    "collapsed top edge",
			corners: [4]v3.Vec{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1}, {}},
			want:    ErrDegenerateQuad,
		},
		{
			name:    "zero height",
			corners: [4]v3.Vec{{}, {X: 1}, {X: 1}, {}},
			want:    ErrDegenerateQuad,
		},
		{
			name:    "parallel edges",
			corners: [4]v3.Vec{{}, {X: 1}, {X: -1}, {X: -2}},
			want:    ErrDegenerateQuad,
		},
		{
			name:    "non planar",
			corners: [4]v3.Vec{{Y: 1}, {X: 1, Y: 1}, {X: 1}, {Z: 0.5}},
			want:    ErrNonPlanar,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFrame(tt.corners)
			if !errors.Is(err, tt.want) {
				t.Fatalf("NewFrame() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMovePointFollowsFrame(t *testing.T) {
	f, err := NewFrame(tilted())
	require.NoError(t, err)

	p := f.MovePoint(f.Origin(), [3]float64{6, 4, 0})
	assertVecNear(t, f.Corner(TopRight), p)

	up := f.MovePoint(f.Origin(), [3]float64{0, 0, 2})
	assert.InDelta(t, 2.0, up.Sub(f.Origin()).Length(), 1e-9)
	assert.InDelta(t, 0.0, up.Sub(f.Origin()).Dot(f.Axis(0)), 1e-9)
	assert.InDelta(t, 0.0, up.Sub(f.Origin()).Dot(f.Axis(1)), 1e-9)
}

func TestMovePointPercent(t *testing.T) {
	f, err := NewFrame(rect(20, 10))
	require.NoError(t, err)

	p := f.MovePointPercent(f.Origin(), [2]float64{0.25, 0.5})
	assertVecNear(t, v3.Vec{X: 5, Y: 5}, p)
}

func TestNormalizePointRoundTrip(t *testing.T) {
	f, err := NewFrame(tilted())
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		dx := rapid.Float64Range(0, f.Width()).Draw(rt, "dx")
		dy := rapid.Float64Range(0, f.Height()).Draw(rt, "dy")

		got := f.NormalizePoint(f.MovePoint(f.Origin(), [3]float64{dx, dy, 0}))
		if math.Abs(got.X-dx) > 1e-9 || math.Abs(got.Y-dy) > 1e-9 {
			rt.Fatalf("round trip (%g,%g) -> (%g,%g)", dx, dy, got.X, got.Y)
		}
	})
}

func TestCornersFromPoints(t *testing.T) {
	f, err := NewFrame(rect(20, 20))
	require.NoError(t, err)

	tests := []struct {
		name   string
		p1, p2 v3.Vec
	}{
		{"top-left to bottom-right", v3.Vec{X: 8, Y: 12}, v3.Vec{X: 12, Y: 8}},
		{"bottom-right to top-left", v3.Vec{X: 12, Y: 8}, v3.Vec{X: 8, Y: 12}},
		{"bottom-left to top-right", v3.Vec{X: 8, Y: 8}, v3.Vec{X: 12, Y: 12}},
	}
	want := [4]v3.Vec{{X: 8, Y: 12}, {X: 12, Y: 12}, {X: 12, Y: 8}, {X: 8, Y: 8}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.CornersFromPoints(tt.p1, tt.p2)
			for i := range want {
				assertVecNear(t, want[i], got[i])
			}
		})
	}
}

func TestQuadMatchesCornerOrder(t *testing.T) {
	f, err := NewFrame(tilted())
	require.NoError(t, err)

	q := f.Quad(1, 1, 3, 2)
	hole, err := NewFrame(q)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, hole.Width(), 1e-9)
	assert.InDelta(t, 1.0, hole.Height(), 1e-9)
	assertVecNear(t, f.Axis(2), hole.Axis(2))
}

func assertVecNear(t *testing.T, want, got v3.Vec) {
	t.Helper()
	if got.Sub(want).Length() > 1e-9 {
		t.Errorf("got %v, want %v", got, want)
	}
}
