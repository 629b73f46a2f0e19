// Package panel implements the hole-bearing quad: a planar panel whose
// surface is triangulated around rectangular holes, each hole spawning a
// child feature. It also defines the Feature contract every generator
// implements.
package panel

import (
	"fmt"
	"strings"

	"github.com/chazu/greeble/pkg/geom"
	"github.com/chazu/greeble/pkg/kernel"
	"github.com/chazu/greeble/pkg/params"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Kind tags a feature variant.
type Kind int

const (
	KindNone Kind = iota
	KindHole
	KindBevel
	KindButtons
	KindHandle
	KindDial
)

var kindNames = map[Kind]string{
	KindNone:    "none",
	KindHole:    "hole",
	KindBevel:   "bevel",
	KindButtons: "buttons",
	KindHandle:  "handle",
	KindDial:    "dial",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a kind name. "extrude" is accepted for bevel.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "extrude" {
		return KindBevel, nil
	}
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("panel: unknown feature kind %q", s)
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Feature is a quad-based mesh generator. Every implementation follows the
// same lifecycle on Regenerate: reset to the four base corners, snapshot its
// clamped parameters, build, finalize. Regenerate is deterministic: the same
// state always yields the same mesh.
type Feature interface {
	Kind() Kind
	Name() string
	Frame() *geom.Frame
	// Mesh is the snapshot from the last regeneration.
	Mesh() *kernel.Mesh
	// Children are the features spawned by this one, in creation order.
	Children() []Feature
	Params() *params.Values
	// SetParam stores a raw value, regenerates and returns the clamped value.
	SetParam(name string, raw float64) (float64, error)
	Regenerate() error
}

// HoleCutter is a feature that accepts new holes.
type HoleCutter interface {
	Feature
	AddHole(p1, p2 v3.Vec) error
	SetFeatureKind(k Kind)
	FeatureKind() Kind
}

// Factory builds the child feature of kind k over the given corners.
type Factory func(k Kind, corners [4]v3.Vec) (Feature, error)

// Walk visits f and all its descendants depth first, parents before
// children. Returning false from fn stops the descent into that subtree.
func Walk(f Feature, fn func(Feature) bool) {
	if f == nil || !fn(f) {
		return
	}
	for _, c := range f.Children() {
		Walk(c, fn)
	}
}
