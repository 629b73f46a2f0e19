package feature

import (
	"fmt"

	"github.com/chazu/greeble/pkg/panel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Default box size.
const (
	DefaultBoxWidth  = 10
	DefaultBoxHeight = 10
	DefaultBoxDepth  = 10
)

// boxFaces index the eight box corners per side, each quad wound so its
// normal points out of the box.
var boxFaces = []struct {
	name    string
	corners [4]int
}{
	{"front", [4]int{3, 2, 5, 4}},
	{"top", [4]int{0, 1, 2, 3}},
	{"bottom", [4]int{4, 5, 6, 7}},
	{"back", [4]int{1, 0, 7, 6}},
	{"left", [4]int{0, 3, 4, 7}},
	{"right", [4]int{2, 1, 6, 5}},
}

// NewBox builds the six hole panels of a w x h x d box centred on the
// origin. Non-positive sizes fall back to the defaults.
func NewBox(w, h, d float64, opts ...Option) ([]*panel.Panel, error) {
	if w <= 0 {
		w = DefaultBoxWidth
	}
	if h <= 0 {
		h = DefaultBoxHeight
	}
	if d <= 0 {
		d = DefaultBoxDepth
	}
	pts := [8]v3.Vec{
		{X: -w / 2, Y: h / 2, Z: -d / 2},
		{X: w / 2, Y: h / 2, Z: -d / 2},
		{X: w / 2, Y: h / 2, Z: d / 2},
		{X: -w / 2, Y: h / 2, Z: d / 2},
		{X: -w / 2, Y: -h / 2, Z: d / 2},
		{X: w / 2, Y: -h / 2, Z: d / 2},
		{X: w / 2, Y: -h / 2, Z: -d / 2},
		{X: -w / 2, Y: -h / 2, Z: -d / 2},
	}

	out := make([]*panel.Panel, 0, len(boxFaces))
	for _, face := range boxFaces {
		var corners [4]v3.Vec
		for i, idx := range face.corners {
			corners[i] = pts[idx]
		}
		p, err := NewHoleQuad(corners, append(append([]Option(nil), opts...), WithName(face.name))...)
		if err != nil {
			return nil, fmt.Errorf("feature: box %s: %w", face.name, err)
		}
		out = append(out, p)
	}
	return out, nil
}
