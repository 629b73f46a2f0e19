package scene

import (
	"errors"
	"sync"
	"testing"

	"github.com/chazu/greeble/pkg/feature"
	"github.com/chazu/greeble/pkg/panel"
	"github.com/chazu/greeble/pkg/params"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBox(t *testing.T) (*Scene, []uuid.UUID) {
	t.Helper()
	s := New()
	ids, err := s.AddBox("crate", 0, 0, 0)
	require.NoError(t, err)
	return s, ids
}

func TestAddBox(t *testing.T) {
	s, ids := newBox(t)
	require.Len(t, ids, 6)
	assert.Equal(t, ids, s.Roots())
	assert.Equal(t, 6, s.Len())

	front, ok := s.Lookup("crate/front")
	require.True(t, ok)
	assert.Equal(t, ids[0], front.ID)
	assert.Equal(t, uuid.Nil, front.Parent)
	assert.Equal(t, panel.KindHole, front.Feature.Kind())

	meshes := s.Meshes()
	require.Len(t, meshes, 6)
	for _, m := range meshes {
		assert.Equal(t, 2, m.TriangleCount())
	}

	_, err := s.AddBox("crate", 1, 1, 1)
	assert.True(t, errors.Is(err, ErrDuplicateName))
	assert.Equal(t, 6, s.Len())
}

func TestAddHoleSpawnsChild(t *testing.T) {
	s, ids := newBox(t)
	front := ids[0]

	child, err := s.AddHoleLocal(front, 2, 2, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, NodeID("crate/front/0:bevel"), child)

	n, ok := s.Get(child)
	require.True(t, ok)
	assert.Equal(t, front, n.Parent)
	assert.Equal(t, 1, n.Depth)
	assert.Equal(t, panel.KindBevel, n.Feature.Kind())

	// the bevel's four walls and its front face
	assert.Len(t, s.Children(child), 5)
	_, ok = s.Lookup("crate/front/0:bevel/4:hole")
	assert.True(t, ok)
	assert.Equal(t, 6+1+5, s.Len())
	assert.Equal(t, []uuid.UUID{child}, s.Children(front))
}

func TestAddHoleErrors(t *testing.T) {
	s, ids := newBox(t)
	front := ids[0]
	bevel, err := s.AddHoleLocal(front, 2, 2, 8, 8)
	require.NoError(t, err)

	_, err = s.AddHoleLocal(bevel, 1, 1, 2, 2)
	assert.True(t, errors.Is(err, ErrNotHoleCutter))

	_, err = s.AddHoleLocal(uuid.New(), 1, 1, 2, 2)
	assert.True(t, errors.Is(err, ErrNotFound))

	v := s.Version()
	_, err = s.AddHole(ids[1], v3.Vec{X: 1, Y: 5, Z: 1}, v3.Vec{X: 1.001, Y: 5, Z: 1})
	assert.True(t, errors.Is(err, panel.ErrHoleTooSmall))
	assert.Equal(t, v, s.Version())
}

func TestSetFeatureKind(t *testing.T) {
	s, ids := newBox(t)
	top := ids[1]

	require.NoError(t, s.SetFeatureKind(top, panel.KindDial))
	child, err := s.AddHoleLocal(top, 1, 1, 5, 4)
	require.NoError(t, err)
	n, _ := s.Get(child)
	assert.Equal(t, panel.KindDial, n.Feature.Kind())
	assert.Equal(t, "crate/top/0:dial", n.Path)

	require.NoError(t, s.SetFeatureKind(top, panel.KindNone))
	child, err = s.AddHoleLocal(top, 6, 6, 9, 9)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, child)

	assert.True(t, errors.Is(s.SetFeatureKind(n.ID, panel.KindBevel), ErrNotHoleCutter))
}

func TestSetParamKeepsIDs(t *testing.T) {
	s, ids := newBox(t)
	bevel, err := s.AddHoleLocal(ids[0], 2, 2, 8, 8)
	require.NoError(t, err)

	faceID := NodeID("crate/front/0:bevel/4:hole")
	before, ok := s.Get(faceID)
	require.True(t, ok)

	v, err := s.SetParam(bevel, "bevelFacets", 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	after, ok := s.Get(faceID)
	require.True(t, ok)
	assert.NotSame(t, before.Feature, after.Feature, "children are rebuilt")
	assert.Equal(t, before.Path, after.Path)

	_, err = s.SetParam(bevel, "nope", 1)
	assert.True(t, errors.Is(err, params.ErrUnknownParam))
}

func TestRemove(t *testing.T) {
	s, ids := newBox(t)
	bevel, err := s.AddHoleLocal(ids[0], 2, 2, 8, 8)
	require.NoError(t, err)

	assert.True(t, errors.Is(s.Remove(bevel), ErrNotRoot))
	require.NoError(t, s.Remove(ids[0]))
	assert.Equal(t, 5, s.Len())
	_, ok := s.Get(bevel)
	assert.False(t, ok)
	assert.True(t, errors.Is(s.Remove(ids[0]), ErrNotFound))
}

func TestAddFeature(t *testing.T) {
	s := New(WithFeatureOptions(feature.WithParams(panel.KindButtons, map[string]float64{"radius": 1.2, "segments": 8})))
	corners := [4]v3.Vec{{Y: 5}, {X: 10, Y: 5}, {X: 10}, {}}
	id, err := s.AddFeature("keypad", panel.KindButtons, corners)
	require.NoError(t, err)

	n, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, 66, n.Feature.Mesh().TriangleCount())

	_, err = s.AddFeature("bad", panel.KindButtons, [4]v3.Vec{})
	assert.Error(t, err)
	_, err = s.AddFeature("keypad", panel.KindDial, corners)
	assert.True(t, errors.Is(err, ErrDuplicateName))
}

func TestStats(t *testing.T) {
	s, ids := newBox(t)
	st := s.Stats()
	assert.Equal(t, Stats{Nodes: 6, Vertices: 24, Triangles: 12}, st)

	_, err := s.AddHoleLocal(ids[0], 2, 2, 8, 8)
	require.NoError(t, err)
	st = s.Stats()
	assert.Equal(t, 12, st.Nodes)
	assert.Greater(t, st.Triangles, 12+6)
}

func TestConcurrentUse(t *testing.T) {
	s, ids := newBox(t)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.AddHoleLocal(id, 1, 1, 3+float64(i)/10, 3)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_ = s.Meshes()
			_ = s.Nodes()
		}()
	}
	wg.Wait()
	assert.Equal(t, 6+6*6, s.Len())
}

func TestInfosDuringSetParam(t *testing.T) {
	s, ids := newBox(t)
	require.NoError(t, s.SetFeatureKind(ids[0], panel.KindDial))
	dial, err := s.AddHoleLocal(ids[0], 1, 1, 9, 9)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := s.SetParam(dial, "needlePos", float64(i%10)/10)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			for _, n := range s.Infos() {
				if n.Kind == panel.KindDial {
					assert.Len(t, n.Values, 9)
					assert.NoError(t, n.Mesh.Validate())
				}
			}
		}
	}()
	wg.Wait()

	info, ok := s.Info(dial)
	require.True(t, ok)
	assert.Equal(t, 0.9, info.Values["needlePos"])
	assert.Equal(t, "crate/front/0:dial", info.Path)
	assert.Equal(t, ids[0], info.Parent)
	assert.False(t, info.Holes)

	face, ok := s.Info(ids[0])
	require.True(t, ok)
	assert.True(t, face.Holes)

	_, ok = s.Info(uuid.New())
	assert.False(t, ok)
}
