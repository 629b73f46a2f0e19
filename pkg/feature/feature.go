// Package feature holds the parametric generators that fill a panel hole:
// bevel, buttons, handle and dial. Each is a tagged variant over a shared
// quad base and implements panel.Feature; New dispatches on panel.Kind.
package feature

import (
	"errors"
	"fmt"

	"github.com/chazu/greeble/pkg/geom"
	"github.com/chazu/greeble/pkg/kernel"
	"github.com/chazu/greeble/pkg/panel"
	"github.com/chazu/greeble/pkg/params"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"
)

// ErrUnknownKind is returned for kinds that have no generator.
var ErrUnknownKind = errors.New("feature: unknown kind")

type config struct {
	log       *zap.Logger
	name      string
	holeKind  panel.Kind
	overrides map[panel.Kind]map[string]float64
}

// Option configures generators built by New and the hole panels they spawn.
type Option func(*config)

// WithLogger sets the logger handed to every generator and child panel.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithName overrides the mesh name of the generator being built. It is not
// inherited by children.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithHoleKind sets the kind spawned into holes cut in child panels.
func WithHoleKind(k panel.Kind) Option {
	return func(c *config) { c.holeKind = k }
}

// WithParams sets raw starting values for kind k. Names unknown to the
// generator are ignored; values go through the usual clamping on read.
func WithParams(k panel.Kind, vals map[string]float64) Option {
	return func(c *config) {
		if c.overrides == nil {
			c.overrides = make(map[panel.Kind]map[string]float64)
		}
		c.overrides[k] = vals
	}
}

func newConfig(opts []Option) config {
	c := config{log: zap.NewNop(), holeKind: panel.KindBevel}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// childOpts drops the per-generator name so children get their own.
func (c config) childOpts() []Option {
	return []Option{
		WithLogger(c.log),
		WithHoleKind(c.holeKind),
		func(cc *config) { cc.overrides = c.overrides },
	}
}

// quad is the state every generator shares: the frame of the hole it fills,
// a builder seeded with the hole's corners, its parameter values and the
// child panels spawned by the last regeneration.
type quad struct {
	kind     panel.Kind
	name     string
	frame    *geom.Frame
	b        *kernel.Builder
	values   *params.Values
	children []panel.Feature
	cfg      config
	mesh     *kernel.Mesh
}

func newQuad(k panel.Kind, corners [4]v3.Vec, list params.List, cfg config) (*quad, error) {
	frame, err := geom.NewFrame(corners)
	if err != nil {
		return nil, fmt.Errorf("feature: %s: %w", k, err)
	}
	q := &quad{
		kind:   k,
		name:   k.String(),
		frame:  frame,
		b:      kernel.NewBuilder(frame),
		values: params.NewValues(list),
		cfg:    cfg,
	}
	if cfg.name != "" {
		q.name = cfg.name
	}
	for name, raw := range cfg.overrides[k] {
		if _, err := q.values.Set(name, raw); err != nil {
			cfg.log.Debug("ignoring parameter override", zap.String("kind", k.String()), zap.String("param", name))
		}
	}
	return q, nil
}

func (q *quad) Kind() panel.Kind          { return q.kind }
func (q *quad) Name() string              { return q.name }
func (q *quad) Frame() *geom.Frame        { return q.frame }
func (q *quad) Mesh() *kernel.Mesh        { return q.mesh }
func (q *quad) Params() *params.Values    { return q.values }
func (q *quad) Children() []panel.Feature { return append([]panel.Feature(nil), q.children...) }

// regenerate runs the shared lifecycle around build: reset to the base
// corners, snapshot parameters, build, spawn children, finalize. A failed
// pass leaves the previous mesh and children in place.
func (q *quad) regenerate(build func(s params.Snapshot) ([][4]int, error)) error {
	q.b.Reset()
	s := q.values.Snapshot()

	holes, err := build(s)
	if err != nil {
		return fmt.Errorf("feature: build %s: %w", q.name, err)
	}
	m, err := q.b.Finalize(q.name)
	if err != nil {
		return fmt.Errorf("feature: %w", err)
	}

	children := make([]panel.Feature, 0, len(holes))
	for i, h := range holes {
		var corners [4]v3.Vec
		for c, idx := range h {
			corners[c] = q.b.Vertex(idx)
		}
		child, err := NewHoleQuad(corners, append(q.cfg.childOpts(), WithName(fmt.Sprintf("%s/face%d", q.name, i)))...)
		if errors.Is(err, geom.ErrDegenerateQuad) {
			// a zero-height wall, e.g. a bevel with no extrusion
			q.cfg.log.Debug("skipping degenerate child", zap.String("name", q.name), zap.Int("child", i))
			continue
		}
		if err != nil {
			return fmt.Errorf("feature: %s child %d: %w", q.name, i, err)
		}
		children = append(children, child)
	}

	q.mesh = m
	q.children = children
	q.cfg.log.Debug("feature regenerated",
		zap.String("kind", q.kind.String()),
		zap.String("name", q.name),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("triangles", m.TriangleCount()),
		zap.Int("children", len(children)),
	)
	return nil
}

// setParam stores raw and regenerates, returning the clamped value.
func (q *quad) setParam(name string, raw float64, regen func() error) (float64, error) {
	v, err := q.values.Set(name, raw)
	if err != nil {
		return 0, err
	}
	return v, regen()
}

// NewHoleQuad builds a hole-bearing panel whose holes are filled by New.
func NewHoleQuad(corners [4]v3.Vec, opts ...Option) (*panel.Panel, error) {
	cfg := newConfig(opts)
	popts := []panel.Option{
		panel.WithLogger(cfg.log),
		panel.WithFeatureKind(cfg.holeKind),
	}
	if cfg.name != "" {
		popts = append(popts, panel.WithName(cfg.name))
	}
	return panel.New(corners, Factory(cfg.childOpts()...), popts...)
}

// New builds the generator of kind k over corners and runs its first
// regeneration.
func New(k panel.Kind, corners [4]v3.Vec, opts ...Option) (panel.Feature, error) {
	switch k {
	case panel.KindHole:
		return NewHoleQuad(corners, opts...)
	case panel.KindBevel:
		return NewBevel(corners, opts...)
	case panel.KindButtons:
		return NewButtons(corners, opts...)
	case panel.KindHandle:
		return NewHandle(corners, opts...)
	case panel.KindDial:
		return NewDial(corners, opts...)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, k)
}

// Factory adapts New to the panel.Factory signature.
func Factory(opts ...Option) panel.Factory {
	return func(k panel.Kind, corners [4]v3.Vec) (panel.Feature, error) {
		return New(k, corners, opts...)
	}
}

// Params returns the parameter declarations of kind k. Hole panels have
// none.
func Params(k panel.Kind) (params.List, error) {
	switch k {
	case panel.KindHole:
		return nil, nil
	case panel.KindBevel:
		return bevelParams, nil
	case panel.KindButtons:
		return buttonsParams, nil
	case panel.KindHandle:
		return handleParams, nil
	case panel.KindDial:
		return dialParams, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, k)
}

// Entry describes one generator for feature pickers.
type Entry struct {
	Kind   panel.Kind    `json:"kind" yaml:"kind"`
	Name   string        `json:"name" yaml:"name"`
	Desc   string        `json:"desc" yaml:"desc"`
	Params []params.Info `json:"params" yaml:"params"`
}

// Catalog lists the hole-filling generators in menu order.
func Catalog() []Entry {
	return []Entry{
		{panel.KindBevel, "extrude", "Extrude a panel either in or out with beveled edges", bevelParams.Infos()},
		{panel.KindButtons, "buttons", "Fill an area with buttons", buttonsParams.Infos()},
		{panel.KindHandle, "handle", "Add handles at the left and right of the region", handleParams.Infos()},
		{panel.KindDial, "dial", "Add a single meter dial", dialParams.Infos()},
	}
}
