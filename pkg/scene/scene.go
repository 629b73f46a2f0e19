// Package scene holds the live panels of a model and gives every feature in
// their trees a stable id. It is the object lookup the host uses to route
// hole gestures and parameter edits, and it collects the meshes to draw.
package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/greeble/pkg/feature"
	"github.com/chazu/greeble/pkg/kernel"
	"github.com/chazu/greeble/pkg/panel"
	"github.com/chazu/greeble/pkg/params"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Namespace seeds node ids. An id is derived from the node's path, so a
// feature that is rebuilt in place keeps its id.
var Namespace = uuid.MustParse("0c3f8a52-6e1d-4b7a-9f2e-5d8c1a7b3e90")

var (
	ErrNotFound      = errors.New("scene: no such node")
	ErrNotHoleCutter = errors.New("scene: node does not take holes")
	ErrNotRoot       = errors.New("scene: only top-level nodes can be removed")
	ErrDuplicateName = errors.New("scene: name already in use")
)

// Node is one feature in the scene.
type Node struct {
	ID      uuid.UUID
	Path    string
	Parent  uuid.UUID
	Depth   int
	Feature panel.Feature
}

type root struct {
	name string
	f    panel.Feature
}

// Scene is a set of named top-level features and the trees under them. It is
// safe for concurrent use.
type Scene struct {
	mu      sync.RWMutex
	roots   []root
	nodes   map[uuid.UUID]*Node
	order   []uuid.UUID
	paths   map[string]uuid.UUID
	opts    []feature.Option
	log     *zap.Logger
	version uint64
}

// Option configures a Scene.
type Option func(*Scene)

// WithLogger sets the logger, which is also handed to every feature.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scene) { s.log = l }
}

// WithFeatureOptions sets options applied to every feature the scene builds.
func WithFeatureOptions(opts ...feature.Option) Option {
	return func(s *Scene) { s.opts = append(s.opts, opts...) }
}

// New returns an empty scene.
func New(opts ...Option) *Scene {
	s := &Scene{
		nodes: make(map[uuid.UUID]*Node),
		paths: make(map[string]uuid.UUID),
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NodeID is the id a node at path gets.
func NodeID(path string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(path))
}

func (s *Scene) featureOpts(name string) []feature.Option {
	opts := append([]feature.Option{feature.WithLogger(s.log)}, s.opts...)
	return append(opts, feature.WithName(name))
}

// AddPanel adds a hole-bearing panel over corners.
func (s *Scene) AddPanel(name string, corners [4]v3.Vec) (uuid.UUID, error) {
	return s.AddFeature(name, panel.KindHole, corners)
}

// AddFeature adds a top-level generator of kind k over corners.
func (s *Scene) AddFeature(name string, k panel.Kind, corners [4]v3.Vec) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paths[name]; ok {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	f, err := feature.New(k, corners, s.featureOpts(name)...)
	if err != nil {
		return uuid.Nil, fmt.Errorf("scene: add %s %q: %w", k, name, err)
	}
	s.roots = append(s.roots, root{name: name, f: f})
	s.reindex()
	s.log.Debug("feature added", zap.String("name", name), zap.String("kind", k.String()))
	return NodeID(name), nil
}

// AddBox adds the six sides of a w x h x d box as panels named
// name/front, name/top and so on. Non-positive sizes fall back to the
// defaults.
func (s *Scene) AddBox(name string, w, h, d float64) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	faces, err := feature.NewBox(w, h, d, s.featureOpts("")...)
	if err != nil {
		return nil, fmt.Errorf("scene: add box %q: %w", name, err)
	}
	ids := make([]uuid.UUID, len(faces))
	for i, f := range faces {
		path := name + "/" + f.Name()
		if _, ok := s.paths[path]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, path)
		}
		ids[i] = NodeID(path)
	}
	for _, f := range faces {
		s.roots = append(s.roots, root{name: name + "/" + f.Name(), f: f})
	}
	s.reindex()
	s.log.Debug("box added", zap.String("name", name), zap.Float64("width", w), zap.Float64("height", h), zap.Float64("depth", d))
	return ids, nil
}

// reindex rebuilds the node table by walking every root. Children are named
// by their position and kind under their parent.
func (s *Scene) reindex() {
	s.nodes = make(map[uuid.UUID]*Node, len(s.nodes))
	s.paths = make(map[string]uuid.UUID, len(s.paths))
	s.order = s.order[:0]

	var visit func(f panel.Feature, path string, parent uuid.UUID, depth int)
	visit = func(f panel.Feature, path string, parent uuid.UUID, depth int) {
		n := &Node{ID: NodeID(path), Path: path, Parent: parent, Depth: depth, Feature: f}
		s.nodes[n.ID] = n
		s.paths[path] = n.ID
		s.order = append(s.order, n.ID)
		for i, c := range f.Children() {
			visit(c, fmt.Sprintf("%s/%d:%s", path, i, c.Kind()), n.ID, depth+1)
		}
	}
	for _, r := range s.roots {
		visit(r.f, r.name, uuid.Nil, 0)
	}
	s.version++
}

// Get returns the node with id.
func (s *Scene) Get(id uuid.UUID) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Lookup returns the node at path.
func (s *Scene) Lookup(path string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.paths[path]
	if !ok {
		return nil, false
	}
	return s.nodes[id], true
}

// Nodes returns every node, parents before children, roots in insertion
// order.
func (s *Scene) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Map(s.order, func(id uuid.UUID, _ int) *Node { return s.nodes[id] })
}

// Roots returns the ids of the top-level nodes.
func (s *Scene) Roots() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Map(s.roots, func(r root, _ int) uuid.UUID { return NodeID(r.name) })
}

// Children returns the ids of the direct children of id. uuid.Nil lists the
// roots.
func (s *Scene) Children(id uuid.UUID) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.order, func(c uuid.UUID, _ int) bool { return s.nodes[c].Parent == id })
}

// Len is the number of nodes.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Version increases on every change to the scene.
func (s *Scene) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Scene) node(id uuid.UUID) (*Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, nil
}

func (s *Scene) cutter(id uuid.UUID) (panel.HoleCutter, *Node, error) {
	n, err := s.node(id)
	if err != nil {
		return nil, nil, err
	}
	hc, ok := n.Feature.(panel.HoleCutter)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is a %s", ErrNotHoleCutter, n.Path, n.Feature.Kind())
	}
	return hc, n, nil
}

// AddHole cuts the rectangle spanned by two world points into the panel id
// and returns the id of the feature filling it, or uuid.Nil when the panel's
// fill kind is none. Rejected gestures return panel.ErrHoleTooSmall.
func (s *Scene) AddHole(id uuid.UUID, p1, p2 v3.Vec) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hc, n, err := s.cutter(id)
	if err != nil {
		return uuid.Nil, err
	}
	before := len(hc.Children())
	if err := hc.AddHole(p1, p2); err != nil {
		return uuid.Nil, fmt.Errorf("scene: %s: %w", n.Path, err)
	}
	path := n.Path
	s.reindex()

	children := hc.Children()
	if len(children) == before {
		return uuid.Nil, nil
	}
	last := len(children) - 1
	return NodeID(fmt.Sprintf("%s/%d:%s", path, last, children[last].Kind())), nil
}

// AddHoleLocal is AddHole with the corners given in the panel's local
// coordinates.
func (s *Scene) AddHoleLocal(id uuid.UUID, minX, minY, maxX, maxY float64) (uuid.UUID, error) {
	s.mu.RLock()
	n, err := s.node(id)
	s.mu.RUnlock()
	if err != nil {
		return uuid.Nil, err
	}
	fr := n.Feature.Frame()
	return s.AddHole(id, fr.Local(minX, minY, 0), fr.Local(maxX, maxY, 0))
}

// SetFeatureKind sets the kind that fills holes added to panel id from now
// on.
func (s *Scene) SetFeatureKind(id uuid.UUID, k panel.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hc, _, err := s.cutter(id)
	if err != nil {
		return err
	}
	hc.SetFeatureKind(k)
	return nil
}

// SetParam sets a parameter on node id and returns the clamped value. The
// node's children are rebuilt, so ids below it may now name new features.
func (s *Scene) SetParam(id uuid.UUID, name string, raw float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.node(id)
	if err != nil {
		return 0, err
	}
	v, err := n.Feature.SetParam(name, raw)
	if err != nil {
		return 0, fmt.Errorf("scene: %s: %w", n.Path, err)
	}
	s.reindex()
	s.log.Debug("param set",
		zap.String("path", n.Path),
		zap.String("param", name),
		zap.Float64("raw", raw),
		zap.Float64("value", v),
	)
	return v, nil
}

// Remove drops the top-level node id and everything under it.
func (s *Scene) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.node(id)
	if err != nil {
		return err
	}
	if n.Parent != uuid.Nil {
		return fmt.Errorf("%w: %s", ErrNotRoot, n.Path)
	}
	s.roots = lo.Reject(s.roots, func(r root, _ int) bool { return r.name == n.Path })
	s.reindex()
	s.log.Debug("node removed", zap.String("path", n.Path))
	return nil
}

// NodeInfo is a copy of a node's state taken under the scene lock. Unlike
// Node, it stays valid while other goroutines edit the scene.
type NodeInfo struct {
	ID     uuid.UUID
	Path   string
	Parent uuid.UUID
	Depth  int
	Kind   panel.Kind
	Holes  bool
	Mesh   *kernel.Mesh
	Params params.List
	Values map[string]float64
}

func (s *Scene) info(n *Node) NodeInfo {
	_, holes := n.Feature.(panel.HoleCutter)
	ni := NodeInfo{
		ID:     n.ID,
		Path:   n.Path,
		Parent: n.Parent,
		Depth:  n.Depth,
		Kind:   n.Feature.Kind(),
		Holes:  holes,
		Mesh:   n.Feature.Mesh(),
	}
	if v := n.Feature.Params(); v != nil {
		ni.Params = v.List()
		ni.Values = v.Snapshot().Map()
	}
	return ni
}

// Info returns a snapshot of node id.
func (s *Scene) Info(id uuid.UUID) (NodeInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return NodeInfo{}, false
	}
	return s.info(n), true
}

// Infos returns a snapshot of every node in Nodes order.
func (s *Scene) Infos() []NodeInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Map(s.order, func(id uuid.UUID, _ int) NodeInfo { return s.info(s.nodes[id]) })
}

// Meshes returns the mesh of every node in Nodes order. Together they form
// the model.
func (s *Scene) Meshes() []*kernel.Mesh {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.FilterMap(s.order, func(id uuid.UUID, _ int) (*kernel.Mesh, bool) {
		m := s.nodes[id].Feature.Mesh()
		return m, m != nil && !m.IsEmpty()
	})
}

// Stats summarises the scene for logs and the host.
type Stats struct {
	Nodes     int `json:"nodes"`
	Vertices  int `json:"vertices"`
	Triangles int `json:"triangles"`
}

// Stats counts nodes, vertices and triangles.
func (s *Scene) Stats() Stats {
	var st Stats
	for _, m := range s.Meshes() {
		st.Vertices += m.VertexCount()
		st.Triangles += m.TriangleCount()
	}
	st.Nodes = s.Len()
	return st
}
