package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/greeble/pkg/panel"
	"github.com/chazu/greeble/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites greeble source before zygomys sees it:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal), so
//     keywords never collide with user variables of the same name.
//
//  2. Kebab-case to underscore: get-param -> get_param. zygomys reads a
//     hyphen inside an identifier as subtraction.
//
//  3. ; line comments become // comments.
//
// String literals are copied through untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := skipQuoted(b, i, '"', true)
			result = append(result, b[i:j]...)
			i = j
		case b[i] == '`':
			j := skipQuoted(b, i, '`', false)
			result = append(result, b[i:j]...)
			i = j
		case b[i] == ';':
			result = append(result, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			result = append(result, ':', '=')
			i += 2
		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			result = append(result, '"')
			result = append(result, kwPrefix...)
			result = append(result, b[i+1:j]...)
			result = append(result, '"')
			i = j
		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			// a hyphen between identifier characters, never a minus
			result = append(result, '_')
			i++
		default:
			result = append(result, b[i])
			i++
		}
	}
	return string(result)
}

// skipQuoted returns the index just past the literal opening at b[i].
func skipQuoted(b []byte, i int, quote byte, escapes bool) int {
	i++
	for i < len(b) && b[i] != quote {
		if escapes && b[i] == '\\' && i+1 < len(b) {
			i++
		}
		i++
	}
	if i < len(b) {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpRef names a scene node. Refs hold ids, not features, so a ref to a
// child stays valid when its parent is rebuilt.
type sexpRef struct {
	id   uuid.UUID
	path string
}

func (r *sexpRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(node %q)", r.path)
}
func (r *sexpRef) Type() *zygo.RegisteredType { return nil }

// sexpBox is the six panels made by one (box ...) call.
type sexpBox struct {
	name string
}

func (b *sexpBox) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(box %q)", b.name)
}
func (b *sexpBox) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A keyword
// with no value after it maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if _, seen := result.kw[name]; !seen {
			result.order = append(result.order, name)
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	if name, ok := isKW(s); ok {
		return name, nil
	}
	str, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected keyword or string: %w", err)
	}
	return str, nil
}

// toKind converts a keyword such as :dial to a feature kind.
func toKind(s zygo.Sexp) (panel.Kind, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return panel.KindNone, err
	}
	return panel.ParseKind(name)
}

// toVec3 extracts a point from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toCorners reads four positional vec3 corners: top-left, top-right,
// bottom-right, bottom-left.
func toCorners(args []zygo.Sexp) ([4]v3.Vec, error) {
	var c [4]v3.Vec
	if len(args) != 4 {
		return c, fmt.Errorf("expected 4 corners, got %d", len(args))
	}
	for i, a := range args {
		v, err := toVec3(a)
		if err != nil {
			return c, fmt.Errorf("corner %d: %w", i, err)
		}
		c[i] = v
	}
	return c, nil
}

// toRef extracts a node reference and checks it is still in the scene.
func toRef(sc *scene.Scene, s zygo.Sexp) (*scene.Node, error) {
	r, ok := s.(*sexpRef)
	if !ok {
		return nil, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
	}
	n, ok := sc.Get(r.id)
	if !ok {
		return nil, fmt.Errorf("node %q no longer exists", r.path)
	}
	return n, nil
}

func refTo(n *scene.Node) *sexpRef {
	return &sexpRef{id: n.ID, path: n.Path}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the greeble DSL into a zygomys environment. The
// builtins build into sc and append rejected requests to warnings.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, sc *scene.Scene, warnings *[]EvalWarning) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (box "crate" :width 10 :height 10 :depth 10 :fill :buttons)
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("box requires a name argument")
		}
		boxName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: name: %w", err)
		}
		var size [3]float64
		for i, key := range []string{"width", "height", "depth"} {
			if v, ok := pa.kw[key]; ok {
				f, err := toFloat64(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("box: %s: %w", key, err)
				}
				size[i] = f
			}
		}
		ids, err := sc.AddBox(boxName, size[0], size[1], size[2])
		if err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["fill"]; ok {
			k, err := toKind(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: fill: %w", err)
			}
			for _, id := range ids {
				if err := sc.SetFeatureKind(id, k); err != nil {
					return zygo.SexpNull, err
				}
			}
		}
		return &sexpBox{name: boxName}, nil
	})

	// -----------------------------------------------------------------------
	// (face crate :front)
	// -----------------------------------------------------------------------
	env.AddFunction("face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("face requires a box and a side")
		}
		b, ok := args[0].(*sexpBox)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("face: expected box, got %T (%s)", args[0], args[0].SexpString(nil))
		}
		side, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: side: %w", err)
		}
		n, ok := sc.Lookup(b.name + "/" + side)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("face: box %q has no side %q, expected front/top/bottom/back/left/right", b.name, side)
		}
		return refTo(n), nil
	})

	// -----------------------------------------------------------------------
	// (panel "plate" tl tr br bl :fill :dial)
	// (feature "meter" tl tr br bl :kind :dial)
	// -----------------------------------------------------------------------
	addRoot := func(fn string, defKind panel.Kind, kindKey string) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) != 5 {
				return zygo.SexpNull, fmt.Errorf("%s requires a name and 4 corners", fn)
			}
			rootName, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: name: %w", fn, err)
			}
			corners, err := toCorners(pa.positional[1:])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			k := defKind
			var fill *panel.Kind
			if v, ok := pa.kw[kindKey]; ok {
				parsed, err := toKind(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %s: %w", fn, kindKey, err)
				}
				if defKind == panel.KindHole {
					fill = &parsed
				} else {
					k = parsed
				}
			}
			id, err := sc.AddFeature(rootName, k, corners)
			if err != nil {
				return zygo.SexpNull, err
			}
			if fill != nil {
				if err := sc.SetFeatureKind(id, *fill); err != nil {
					return zygo.SexpNull, err
				}
			}
			n, _ := sc.Get(id)
			return refTo(n), nil
		}
	}
	env.AddFunction("panel", addRoot("panel", panel.KindHole, "fill"))
	env.AddFunction("feature", addRoot("feature", panel.KindBevel, "kind"))

	// -----------------------------------------------------------------------
	// (node "crate/front/0:bevel")
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("node requires a path argument")
		}
		path, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: path: %w", err)
		}
		n, ok := sc.Lookup(path)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("node: no node at %q", path)
		}
		return refTo(n), nil
	})

	// -----------------------------------------------------------------------
	// (fill ref :buttons)
	// -----------------------------------------------------------------------
	env.AddFunction("fill", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("fill requires a panel and a kind")
		}
		n, err := toRef(sc, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fill: %w", err)
		}
		k, err := toKind(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fill: %w", err)
		}
		if err := sc.SetFeatureKind(n.ID, k); err != nil {
			return zygo.SexpNull, err
		}
		return args[0], nil
	})

	// -----------------------------------------------------------------------
	// (hole ref 2 2 8 6 :fill :dial)
	// -----------------------------------------------------------------------
	env.AddFunction("hole", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 5 {
			return zygo.SexpNull, fmt.Errorf("hole requires a panel and min-x min-y max-x max-y")
		}
		n, err := toRef(sc, pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("hole: %w", err)
		}
		var r [4]float64
		for i, a := range pa.positional[1:] {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("hole: bound %d: %w", i, err)
			}
			r[i] = f
		}
		if v, ok := pa.kw["fill"]; ok {
			k, err := toKind(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("hole: fill: %w", err)
			}
			if err := sc.SetFeatureKind(n.ID, k); err != nil {
				return zygo.SexpNull, err
			}
		}

		child, err := sc.AddHoleLocal(n.ID, r[0], r[1], r[2], r[3])
		if errors.Is(err, panel.ErrHoleTooSmall) {
			*warnings = append(*warnings, EvalWarning{Message: err.Error(), NodeID: n.ID})
			return zygo.SexpNull, nil
		}
		if err != nil {
			return zygo.SexpNull, err
		}
		if child == uuid.Nil {
			return zygo.SexpNull, nil
		}
		c, _ := sc.Get(child)
		return refTo(c), nil
	})

	// -----------------------------------------------------------------------
	// (param ref :radius 1.2 :segments 8)
	// -----------------------------------------------------------------------
	env.AddFunction("param", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("param requires a node reference")
		}
		n, err := toRef(sc, pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("param: %w", err)
		}
		for _, key := range pa.order {
			raw, err := toFloat64(pa.kw[key])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("param: %s: %w", key, err)
			}
			v, err := sc.SetParam(n.ID, key, raw)
			if err != nil {
				return zygo.SexpNull, err
			}
			if v != raw {
				*warnings = append(*warnings, EvalWarning{
					Message: fmt.Sprintf("%s: %s clamped from %g to %g", n.Path, key, raw, v),
					NodeID:  n.ID,
				})
			}
		}
		return pa.positional[0], nil
	})

	// -----------------------------------------------------------------------
	// (get-param ref :radius)
	// -----------------------------------------------------------------------
	env.AddFunction("get_param", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("get-param requires a node reference and a name")
		}
		n, err := toRef(sc, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("get-param: %w", err)
		}
		key, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("get-param: %w", err)
		}
		if _, ok := n.Feature.Params().List().Lookup(key); !ok {
			return zygo.SexpNull, fmt.Errorf("get-param: %s has no parameter %q", n.Path, key)
		}
		return &zygo.SexpFloat{Val: n.Feature.Params().Get(key)}, nil
	})

	// -----------------------------------------------------------------------
	// (child ref 4)
	// -----------------------------------------------------------------------
	env.AddFunction("child", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("child requires a node reference and an index")
		}
		n, err := toRef(sc, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("child: %w", err)
		}
		idx, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("child: index: %w", err)
		}
		children := sc.Children(n.ID)
		i := int(idx)
		if i < 0 || i >= len(children) {
			return zygo.SexpNull, fmt.Errorf("child: %s has %d children, no index %d", n.Path, len(children), i)
		}
		c, _ := sc.Get(children[i])
		return refTo(c), nil
	})

	// -----------------------------------------------------------------------
	// (children ref)
	// -----------------------------------------------------------------------
	env.AddFunction("children", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("children requires a node reference")
		}
		n, err := toRef(sc, args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("children: %w", err)
		}
		var out []zygo.Sexp
		for _, id := range sc.Children(n.ID) {
			c, _ := sc.Get(id)
			out = append(out, refTo(c))
		}
		return zygo.MakeList(out), nil
	})
}
