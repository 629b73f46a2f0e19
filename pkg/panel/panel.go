package panel

import (
	"errors"
	"fmt"

	"github.com/chazu/greeble/pkg/geom"
	"github.com/chazu/greeble/pkg/kernel"
	"github.com/chazu/greeble/pkg/params"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"
)

// MinHoleSize is the smallest accepted hole, both as the drag distance
// between its two defining points and as each of its sides.
const MinHoleSize = 0.01

// ErrHoleTooSmall is returned by AddHole for rejected gestures. The panel is
// left unchanged.
var ErrHoleTooSmall = errors.New("panel: hole below minimum size")

// Hole is one rectangular cutout: its world corners (top-left, top-right,
// bottom-right, bottom-left), local rectangle and the kind it was filled
// with.
type Hole struct {
	Corners [4]v3.Vec
	Rect    Rect
	Kind    Kind
}

// Panel is a planar quad triangulated around its holes.
type Panel struct {
	name     string
	frame    *geom.Frame
	b        *kernel.Builder
	values   *params.Values
	holes    []Hole
	children []Feature
	kind     Kind
	factory  Factory
	log      *zap.Logger
	mesh     *kernel.Mesh
}

// Option configures a Panel.
type Option func(*Panel)

// WithName sets the mesh name.
func WithName(name string) Option {
	return func(p *Panel) { p.name = name }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Panel) { p.log = l }
}

// WithFeatureKind sets the kind spawned into new holes.
func WithFeatureKind(k Kind) Option {
	return func(p *Panel) { p.kind = k }
}

// New builds a panel over corners (top-left, top-right, bottom-right,
// bottom-left) and generates its initial two-triangle mesh. factory creates
// the child feature for each new hole; nil leaves holes empty.
func New(corners [4]v3.Vec, factory Factory, opts ...Option) (*Panel, error) {
	frame, err := geom.NewFrame(corners)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}
	p := &Panel{
		name:    "panel",
		frame:   frame,
		b:       kernel.NewBuilder(frame),
		values:  params.NewValues(nil),
		kind:    KindBevel,
		factory: factory,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	if err := p.Regenerate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Kind is always KindHole.
func (p *Panel) Kind() Kind { return KindHole }

// Name is the name given by WithName.
func (p *Panel) Name() string { return p.name }

// Frame is the frame built from the panel's corners.
func (p *Panel) Frame() *geom.Frame { return p.frame }

// Mesh is the triangulation from the last regeneration.
func (p *Panel) Mesh() *kernel.Mesh { return p.mesh }

// Params is the panel's parameter set, which is empty.
func (p *Panel) Params() *params.Values { return p.values }

// FeatureKind is the kind that fills the next hole.
func (p *Panel) FeatureKind() Kind { return p.kind }

// SetFeatureKind sets the kind that fills holes added from now on.
func (p *Panel) SetFeatureKind(k Kind) { p.kind = k }

// Holes returns a copy of the holes in creation order.
func (p *Panel) Holes() []Hole { return append([]Hole(nil), p.holes...) }

// Children returns the features filling the holes, in hole order.
func (p *Panel) Children() []Feature { return append([]Feature(nil), p.children...) }

// SetParam fails with params.ErrUnknownParam: a bare panel has no
// parameters.
func (p *Panel) SetParam(name string, raw float64) (float64, error) {
	return p.values.Set(name, raw)
}

// AddHole cuts the axis-aligned rectangle spanned by two world points, fills
// it with a child of the panel's current feature kind and regenerates.
// Gestures below MinHoleSize return ErrHoleTooSmall and change nothing.
func (p *Panel) AddHole(p1, p2 v3.Vec) error {
	if p1.Sub(p2).Length() < MinHoleSize {
		return ErrHoleTooSmall
	}
	corners := p.frame.CornersFromPoints(p1, p2)
	bl := p.frame.NormalizePoint(corners[geom.BottomLeft])
	tr := p.frame.NormalizePoint(corners[geom.TopRight])
	r := Rect{MinX: bl.X, MinY: bl.Y, MaxX: tr.X, MaxY: tr.Y}
	if r.Width() < MinHoleSize || r.Height() < MinHoleSize {
		return ErrHoleTooSmall
	}

	var child Feature
	if p.factory != nil && p.kind != KindNone {
		c, err := p.factory(p.kind, corners)
		if err != nil {
			return fmt.Errorf("panel: fill hole with %s: %w", p.kind, err)
		}
		child = c
	}

	p.holes = append(p.holes, Hole{Corners: corners, Rect: r, Kind: p.kind})
	if err := p.Regenerate(); err != nil {
		p.holes = p.holes[:len(p.holes)-1]
		return err
	}
	if child != nil {
		p.children = append(p.children, child)
	}

	p.log.Debug("hole added",
		zap.String("panel", p.name),
		zap.String("kind", p.kind.String()),
		zap.Float64("width", r.Width()),
		zap.Float64("height", r.Height()),
		zap.Int("holes", len(p.holes)),
	)
	return nil
}

// Regenerate rebuilds the panel surface from its holes.
func (p *Panel) Regenerate() error {
	p.b.Reset()

	rects := make([]Rect, len(p.holes))
	for i, h := range p.holes {
		p.b.AddVertices(h.Corners[:]...)
		rects[i] = h.Rect
	}
	for _, t := range Triangulate(p.frame.Width(), p.frame.Height(), rects) {
		p.b.AddFace(int(t[0]), int(t[1]), int(t[2]))
	}

	m, err := p.b.Finalize(p.name)
	if err != nil {
		return fmt.Errorf("panel: regenerate %s: %w", p.name, err)
	}
	p.mesh = m
	return nil
}
