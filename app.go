package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"

	"github.com/chazu/greeble/pkg/config"
	"github.com/chazu/greeble/pkg/engine"
	"github.com/chazu/greeble/pkg/feature"
	"github.com/chazu/greeble/pkg/kernel/sdfx"
	"github.com/chazu/greeble/pkg/panel"
	"github.com/chazu/greeble/pkg/params"
	"github.com/chazu/greeble/pkg/scene"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"
)

// SceneChangedEvent is emitted to the frontend after every edit, with the
// new scene Stats.
const SceneChangedEvent = "scene:changed"

// ErrNoScene is returned by edits made before a successful Evaluate.
var ErrNoScene = errors.New("no scene: evaluate a script first")

// colorPalette colours meshes by feature kind.
var colorPalette = map[panel.Kind]string{
	panel.KindHole:    "#9AA5B1",
	panel.KindBevel:   "#4A90D9",
	panel.KindButtons: "#E67E22",
	panel.KindHandle:  "#2ECC71",
	panel.KindDial:    "#9B59B6",
}

const fallbackColor = "#E74C3C"

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	cfg    *config.Config
	log    *zap.Logger
	engine *engine.Engine

	mu    sync.Mutex
	scene *scene.Scene
	rng   *rand.Rand
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	NodeID   string    `json:"nodeId"`
	Kind     string    `json:"kind"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
	NodeID  string `json:"nodeId,omitempty"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
	Stats    scene.Stats     `json:"stats"`
}

// NodeData describes one scene node for the outliner.
type NodeData struct {
	ID     string  `json:"id"`
	Path   string  `json:"path"`
	Parent string  `json:"parent,omitempty"`
	Depth  int     `json:"depth"`
	Kind   string  `json:"kind"`
	Holes  bool    `json:"holes"`
	Params []Param `json:"params"`
}

// Param is a parameter's declaration and current value.
type Param struct {
	params.Info
	Value float64 `json:"value"`
}

// NewApp creates an App with the default configuration and no logging.
func NewApp() *App {
	a, err := NewAppWithConfig(config.Default(), zap.NewNop())
	if err != nil {
		// the defaults always validate
		panic(err)
	}
	return a
}

// NewAppWithConfig creates an App from cfg.
func NewAppWithConfig(cfg *config.Config, log *zap.Logger) (*App, error) {
	opts, err := cfg.EngineOptions(log)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:    cfg,
		log:    log,
		engine: engine.NewEngine(opts...),
		rng:    rand.New(rand.NewSource(1)),
	}, nil
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown flushes the logger.
func (a *App) shutdown(ctx context.Context) {
	_ = a.log.Sync()
}

// Evaluate takes greeble source and returns mesh data + errors. On success
// the new scene replaces the one later edits apply to.
// This is the primary binding called by the frontend editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	res, err := a.engine.Run(source)
	if err != nil {
		// Fatal error (panic, timeout, superseded)
		a.log.Warn("evaluate failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	for _, e := range res.Errors {
		result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{
			Line:    w.Line,
			Col:     w.Col,
			Message: w.Message,
			NodeID:  idString(w.NodeID),
		})
	}
	if len(res.Errors) > 0 {
		return result
	}

	a.mu.Lock()
	a.scene = res.Scene
	a.mu.Unlock()

	result.Meshes = meshData(res.Scene)
	result.Stats = res.Scene.Stats()
	a.emit(result.Stats)
	return result
}

// Meshes returns the meshes of the current scene.
func (a *App) Meshes() []MeshData {
	sc, err := a.current()
	if err != nil {
		return []MeshData{}
	}
	return meshData(sc)
}

// Nodes lists the current scene in depth-first order.
func (a *App) Nodes() []NodeData {
	sc, err := a.current()
	if err != nil {
		return []NodeData{}
	}
	return lo.Map(sc.Infos(), func(n scene.NodeInfo, _ int) NodeData {
		return NodeData{
			ID:     n.ID.String(),
			Path:   n.Path,
			Parent: idString(n.Parent),
			Depth:  n.Depth,
			Kind:   n.Kind.String(),
			Holes:  n.Holes,
			Params: paramData(n),
		}
	})
}

// Features lists the generators a hole can be filled with.
func (a *App) Features() []feature.Entry {
	return feature.Catalog()
}

// AddHole cuts a hole spanning two corners, given in node's local
// coordinates, and returns the new child's id. The id is empty when the
// node's fill kind is none.
func (a *App) AddHole(nodeID string, minX, minY, maxX, maxY float64) (string, error) {
	sc, id, err := a.resolve(nodeID)
	if err != nil {
		return "", err
	}
	child, err := sc.AddHoleLocal(id, minX, minY, maxX, maxY)
	if err != nil {
		return "", err
	}
	a.emit(sc.Stats())
	return idString(child), nil
}

// SetFeatureKind sets what fills holes cut in node from now on.
func (a *App) SetFeatureKind(nodeID, kind string) error {
	sc, id, err := a.resolve(nodeID)
	if err != nil {
		return err
	}
	k, err := panel.ParseKind(kind)
	if err != nil {
		return err
	}
	return sc.SetFeatureKind(id, k)
}

// SetParam sets one parameter and returns the value it was clamped to.
func (a *App) SetParam(nodeID, name string, value float64) (float64, error) {
	sc, id, err := a.resolve(nodeID)
	if err != nil {
		return 0, err
	}
	v, err := sc.SetParam(id, name, value)
	if err != nil {
		return 0, err
	}
	a.emit(sc.Stats())
	return v, nil
}

// GetParams returns node's parameters with their current values.
func (a *App) GetParams(nodeID string) ([]Param, error) {
	sc, id, err := a.resolve(nodeID)
	if err != nil {
		return nil, err
	}
	n, ok := sc.Info(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", scene.ErrNotFound, nodeID)
	}
	return paramData(n), nil
}

// RandomizeNeedle moves a dial's needle to a random position.
func (a *App) RandomizeNeedle(nodeID string) (float64, error) {
	sc, id, err := a.resolve(nodeID)
	if err != nil {
		return 0, err
	}
	n, ok := sc.Info(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", scene.ErrNotFound, nodeID)
	}
	if n.Kind != panel.KindDial {
		return 0, fmt.Errorf("%s is a %s, not a dial", n.Path, n.Kind)
	}
	a.mu.Lock()
	pos := a.rng.Float64()
	a.mu.Unlock()
	return a.SetParam(nodeID, "needlePos", pos)
}

// Export writes the current scene to path. The format comes from the file
// extension, falling back to the configured format.
func (a *App) Export(path string) error {
	sc, err := a.current()
	if err != nil {
		return err
	}
	format, err := sdfx.ParseFormat(path)
	if err != nil {
		if format, err = a.cfg.Export.ParsedFormat(); err != nil {
			return err
		}
		path += "." + string(format)
	}
	if !filepath.IsAbs(path) && a.cfg.Export.Dir != "" {
		path = filepath.Join(a.cfg.Export.Dir, path)
	}

	meshes := sc.Meshes()
	if format == sdfx.FormatDXF {
		err = sdfx.SaveDXF(path, a.cfg.Export.ParsedPlane(), meshes...)
	} else {
		err = sdfx.Save(path, format, meshes...)
	}
	if err != nil {
		return err
	}
	a.log.Info("exported", zap.String("path", path), zap.String("format", string(format)), zap.Int("meshes", len(meshes)))
	return nil
}

func (a *App) current() (*scene.Scene, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scene == nil {
		return nil, ErrNoScene
	}
	return a.scene, nil
}

// resolve finds the current scene and checks nodeID names one of its nodes.
func (a *App) resolve(nodeID string) (*scene.Scene, uuid.UUID, error) {
	sc, err := a.current()
	if err != nil {
		return nil, uuid.Nil, err
	}
	id, err := uuid.Parse(nodeID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("bad node id %q: %w", nodeID, err)
	}
	if _, ok := sc.Get(id); !ok {
		return nil, uuid.Nil, fmt.Errorf("%w: %s", scene.ErrNotFound, nodeID)
	}
	return sc, id, nil
}

// emit tells the frontend the scene changed. It is a no-op outside Wails.
func (a *App) emit(st scene.Stats) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, SceneChangedEvent, st)
}

// meshData reads node snapshots, so it never sees a feature mid-rebuild.
func meshData(sc *scene.Scene) []MeshData {
	return lo.FilterMap(sc.Infos(), func(n scene.NodeInfo, _ int) (MeshData, bool) {
		if n.Mesh == nil || n.Mesh.IsEmpty() {
			return MeshData{}, false
		}
		flat := n.Mesh.Flatten()
		return MeshData{
			Vertices: flat.Vertices,
			Normals:  flat.Normals,
			Indices:  flat.Indices,
			PartName: n.Path,
			NodeID:   n.ID.String(),
			Kind:     n.Kind.String(),
			Color:    lo.ValueOr(colorPalette, n.Kind, fallbackColor),
		}, true
	})
}

func paramData(n scene.NodeInfo) []Param {
	return lo.Map(n.Params, func(p params.Param, _ int) Param {
		return Param{Info: p.Info(), Value: n.Values[p.Name]}
	})
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
