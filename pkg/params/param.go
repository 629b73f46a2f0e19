// Package params defines the named numeric parameters feature generators
// expose, and clamps raw host input against them on every read.
package params

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"
)

// ErrUnknownParam is returned when a name is not in a generator's list.
var ErrUnknownParam = errors.New("params: unknown parameter")

// Type is the declared numeric type of a parameter.
type Type int

const (
	Float Type = iota
	Int
)

func (t Type) String() string {
	if t == Int {
		return "int"
	}
	return "float"
}

// Param declares one parameter: its default, type and optional bounds.
// Step, when positive, rounds integer values down to a multiple of it.
type Param struct {
	Name    string
	Desc    string
	Default float64
	Type    Type
	Min     float64
	Max     float64
	Step    int
}

// Option adjusts a Param declaration.
type Option func(*Param)

// AtLeast sets the lower bound.
func AtLeast(min float64) Option {
	return func(p *Param) { p.Min = min }
}

// AtMost sets the upper bound.
func AtMost(max float64) Option {
	return func(p *Param) { p.Max = max }
}

// Between sets both bounds.
func Between(min, max float64) Option {
	return func(p *Param) { p.Min, p.Max = min, max }
}

// MultipleOf rounds integer values down to a multiple of n.
func MultipleOf(n int) Option {
	return func(p *Param) { p.Step = n }
}

// Describe sets the help text shown by parameter editors.
func Describe(desc string) Option {
	return func(p *Param) { p.Desc = desc }
}

func newParam(name string, def float64, typ Type, opts []Option) Param {
	p := Param{
		Name:    name,
		Default: def,
		Type:    typ,
		Min:     math.Inf(-1),
		Max:     math.Inf(1),
	}
	for _, o := range opts {
		o(&p)
	}
	return p
}

// NewFloat declares a float parameter.
func NewFloat(name string, def float64, opts ...Option) Param {
	return newParam(name, def, Float, opts)
}

// NewInt declares an integer parameter.
func NewInt(name string, def int, opts ...Option) Param {
	return newParam(name, float64(def), Int, opts)
}

// IntLimit bounds integer parameters that declare no limit of their own, so
// every clamped int converts to an int without overflow.
const IntLimit = 1 << 16

// Clamp validates a raw value: NaN becomes zero, integers are pulled into
// [-IntLimit, IntLimit] and truncate, the value is clamped to [Min, Max] and
// integer steps round down without leaving the range.
func (p Param) Clamp(raw float64) float64 {
	v := raw
	if math.IsNaN(v) {
		v = 0
	}
	if p.Type == Int {
		v = math.Trunc(math.Max(-IntLimit, math.Min(v, IntLimit)))
	}
	if v > p.Max {
		v = p.Max
	}
	if v < p.Min {
		v = p.Min
	}
	if p.Type == Int && p.Step > 1 {
		step := float64(p.Step)
		v = math.Floor(v/step) * step
		if v < p.Min {
			v += step
		}
	}
	return v
}

// Info is the host-facing description of a parameter. Unbounded limits are
// omitted.
type Info struct {
	Name    string   `json:"name" yaml:"name"`
	Desc    string   `json:"desc,omitempty" yaml:"desc,omitempty"`
	Default float64  `json:"default" yaml:"default"`
	Type    string   `json:"type" yaml:"type"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Info returns the description of p.
func (p Param) Info() Info {
	info := Info{Name: p.Name, Desc: p.Desc, Default: p.Default, Type: p.Type.String()}
	if !math.IsInf(p.Min, 0) {
		info.Min = lo.ToPtr(p.Min)
	}
	if !math.IsInf(p.Max, 0) {
		info.Max = lo.ToPtr(p.Max)
	}
	return info
}

// List is a generator's fixed, ordered parameter list.
type List []Param

// Lookup finds a parameter by name.
func (l List) Lookup(name string) (Param, bool) {
	return lo.Find(l, func(p Param) bool { return p.Name == name })
}

// Infos describes every parameter in order.
func (l List) Infos() []Info {
	return lo.Map(l, func(p Param, _ int) Info { return p.Info() })
}

// Names returns the parameter names in order.
func (l List) Names() []string {
	return lo.Map(l, func(p Param, _ int) string { return p.Name })
}

// Values holds the raw values set for a List. Reads always go through
// Clamp, so out-of-range input never reaches a generator.
type Values struct {
	list List
	raw  map[string]float64
}

// NewValues starts a value set at the list's defaults.
func NewValues(l List) *Values {
	v := &Values{list: l, raw: make(map[string]float64, len(l))}
	for _, p := range l {
		v.raw[p.Name] = p.Default
	}
	return v
}

// List returns the declarations behind v.
func (v *Values) List() List { return v.list }

// Set stores a raw value and returns the value it clamps to.
func (v *Values) Set(name string, raw float64) (float64, error) {
	p, ok := v.list.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	v.raw[name] = raw
	return p.Clamp(raw), nil
}

// Get returns the clamped value of name, or 0 if it is not declared.
func (v *Values) Get(name string) float64 {
	p, ok := v.list.Lookup(name)
	if !ok {
		return 0
	}
	return p.Clamp(v.raw[name])
}

// Reset restores every value to its default.
func (v *Values) Reset() {
	for _, p := range v.list {
		v.raw[p.Name] = p.Default
	}
}

// Snapshot reads every parameter once, clamped.
func (v *Values) Snapshot() Snapshot {
	vals := make(map[string]float64, len(v.list))
	for _, p := range v.list {
		vals[p.Name] = p.Clamp(v.raw[p.Name])
	}
	return Snapshot{vals: vals}
}

// Snapshot is an immutable set of clamped values taken at the start of a
// regeneration.
type Snapshot struct {
	vals map[string]float64
}

// Float returns the value of name.
func (s Snapshot) Float(name string) float64 {
	return s.vals[name]
}

// Int returns the value of name as an int.
func (s Snapshot) Int(name string) int {
	return int(s.vals[name])
}

// Map copies the snapshot into a plain map.
func (s Snapshot) Map() map[string]float64 {
	return lo.Assign(s.vals)
}
