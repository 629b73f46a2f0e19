package params

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestClamp(t *testing.T) {
	seg := NewInt("segments", 32, AtLeast(4), MultipleOf(4))
	ratio := NewFloat("width", 0.8, Between(0, 1))
	free := NewFloat("extrude", 1)
	capped := NewInt("segments", 32, Between(4, 256), MultipleOf(4))

	tests := []struct {
		name string
		p    Param
		raw  float64
		want float64
	}{
		{"in range float", ratio, 0.5, 0.5},
		{"above max", ratio, 3, 1},
		{"below min zero is kept", ratio, -0.2, 0},
		{"NaN becomes zero", free, math.NaN(), 0},
		{"NaN then clamped", seg, math.NaN(), 4},
		{"unbounded negative", free, -7.5, -7.5},
		{"int truncates", seg, 17.9, 16},
		{"int below min", seg, 1, 4},
		{"int rounds down to step", seg, 31, 28},
		{"int on step", seg, 32, 32},
		{"int +Inf takes max", capped, math.Inf(1), 256},
		{"int -Inf takes min", capped, math.Inf(-1), 4},
		{"int huge takes max", capped, 1e300, 256},
		{"unbounded int huge", seg, 1e300, IntLimit},
		{"unbounded int +Inf", seg, math.Inf(1), IntLimit},
		{"unbounded int -Inf", NewInt("n", 0), math.Inf(-1), -IntLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Clamp(tt.raw); got != tt.want {
				t.Errorf("Clamp(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestClampAlwaysInRange(t *testing.T) {
	p := NewInt("facets", 16, Between(4, 64), MultipleOf(2))
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.Float64().Draw(rt, "raw")
		v := p.Clamp(raw)
		if v < 4 || v > 64 {
			rt.Fatalf("Clamp(%v) = %v outside [4,64]", raw, v)
		}
		if math.Mod(v, 2) != 0 {
			rt.Fatalf("Clamp(%v) = %v is not even", raw, v)
		}
	})
}

func TestSnapshotIntNeverOverflows(t *testing.T) {
	v := NewValues(List{NewInt("segments", 32, AtLeast(4), MultipleOf(4))})
	for _, raw := range []float64{1e300, -1e300, math.Inf(1), math.Inf(-1), math.MaxFloat64} {
		_, err := v.Set("segments", raw)
		require.NoError(t, err)
		n := v.Snapshot().Int("segments")
		if n < 4 || n > IntLimit || n%4 != 0 {
			t.Errorf("Set(%v) gave %d", raw, n)
		}
	}
}

func TestInfoOmitsUnboundedLimits(t *testing.T) {
	info := NewFloat("extrude", 1, Describe("height")).Info()
	assert.Nil(t, info.Min)
	assert.Nil(t, info.Max)
	assert.Equal(t, "float", info.Type)
	assert.Equal(t, "height", info.Desc)

	bounded := NewInt("n", 2, Between(1, 3)).Info()
	require.NotNil(t, bounded.Min)
	require.NotNil(t, bounded.Max)
	assert.Equal(t, 1.0, *bounded.Min)
	assert.Equal(t, 3.0, *bounded.Max)
	assert.Equal(t, "int", bounded.Type)
}

func TestValues(t *testing.T) {
	l := List{
		NewFloat("bevel", 0.4, AtLeast(0.1)),
		NewInt("bevelFacets", 8, AtLeast(2)),
	}
	v := NewValues(l)

	assert.Equal(t, []string{"bevel", "bevelFacets"}, l.Names())
	assert.Equal(t, 0.4, v.Get("bevel"))

	got, err := v.Set("bevel", 0.01)
	require.NoError(t, err)
	assert.Equal(t, 0.1, got)
	assert.Equal(t, 0.1, v.Get("bevel"), "reads are clamped")

	_, err = v.Set("nope", 1)
	assert.True(t, errors.Is(err, ErrUnknownParam))

	snap := v.Snapshot()
	_, _ = v.Set("bevelFacets", 12)
	assert.Equal(t, 8, snap.Int("bevelFacets"), "snapshot is immutable")
	assert.Equal(t, 12, v.Snapshot().Int("bevelFacets"))

	v.Reset()
	assert.Equal(t, 0.4, v.Get("bevel"))
	assert.Equal(t, map[string]float64{"bevel": 0.4, "bevelFacets": 8}, v.Snapshot().Map())
}
