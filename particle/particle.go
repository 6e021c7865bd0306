// Package particle defines the particle type descriptor and the contiguous
// fixed-layout particle buffer shared between the interpreted evaluator and
// compiled kernel code.
package particle

import (
	"fmt"
	"strings"
)

// DType enumerates the attribute types a particle record may carry.
type DType int

const (
	Float32 DType = iota
	Float64
	Int32
)

// Size returns the attribute's width in bytes, which is also its alignment.
func (d DType) Size() int {
	switch d {
	case Float64:
		return 8
	default:
		return 4
	}
}

// CType returns the C type name used when the record layout is emitted.
func (d DType) CType() string {
	switch d {
	case Float32:
		return "float"
	case Float64:
		return "double"
	case Int32:
		return "int"
	}
	return "float"
}

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	}
	return "unknown"
}

// Var is one named attribute of a particle record.
type Var struct {
	Name string
	Type DType
}

// Built-in attribute names present on every particle type, in layout order.
// xi and yi cache the particle's last grid cell for the compiled index
// search; state carries the activity flag and per-particle error codes.
const (
	VarLon   = "lon"
	VarLat   = "lat"
	VarXi    = "xi"
	VarYi    = "yi"
	VarState = "state"
)

// Particle state codes. The compiled loop and the interpreted evaluator
// write the same codes, so both execution modes report failures identically.
const (
	StateOK             int32 = 0
	StateInactive       int32 = -1
	StateErrOutOfRange  int32 = 1
	StateErrDegenerate  int32 = 2
)

var builtins = []Var{
	{VarLon, Float32},
	{VarLat, Float32},
	{VarXi, Int32},
	{VarYi, Int32},
	{VarState, Int32},
}

// Type describes a particle record: its ordered attribute list, the packed
// byte layout derived from it, and whether records of this type may be run
// through the compiled execution path. Immutable after construction.
type Type struct {
	Name string
	Vars []Var

	jit     bool
	offsets map[string]int
	size    int
}

// NewType builds a particle type with the built-in attributes followed by
// userVars. Attributes are packed in declaration order with natural
// alignment, matching the struct layout a C compiler produces for the same
// member order.
func NewType(name string, jit bool, userVars ...Var) (*Type, error) {
	t := &Type{
		Name:    name,
		Vars:    make([]Var, 0, len(builtins)+len(userVars)),
		jit:     jit,
		offsets: make(map[string]int, len(builtins)+len(userVars)),
	}
	t.Vars = append(t.Vars, builtins...)
	for _, v := range builtins {
		t.offsets[v.Name] = -1 // reserve for duplicate detection
	}
	for _, v := range userVars {
		if _, exists := t.offsets[v.Name]; exists {
			return nil, fmt.Errorf("particle type %q: duplicate attribute %q", name, v.Name)
		}
		t.offsets[v.Name] = -1 // reserve for duplicate detection
		t.Vars = append(t.Vars, v)
	}

	off := 0
	maxAlign := 1
	for _, v := range t.Vars {
		align := v.Type.Size()
		if align > maxAlign {
			maxAlign = align
		}
		off = alignUp(off, align)
		t.offsets[v.Name] = off
		off += v.Type.Size()
	}
	t.size = alignUp(off, maxAlign)
	return t, nil
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

// JITCapable reports whether this type may run through the compiled path.
func (t *Type) JITCapable() bool { return t.jit }

// Size returns the byte size of one packed record.
func (t *Type) Size() int { return t.size }

// Offset returns the byte offset of the named attribute within a record.
func (t *Type) Offset(name string) (int, bool) {
	off, ok := t.offsets[name]
	return off, ok
}

// Lookup returns the attribute descriptor for name.
func (t *Type) Lookup(name string) (Var, bool) {
	for _, v := range t.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return Var{}, false
}

// CacheKey identifies the type for compiled-artifact cache keys: any change
// to the name, attribute order, or attribute types produces a new key.
func (t *Type) CacheKey() string {
	parts := make([]string, 0, len(t.Vars)+1)
	parts = append(parts, t.Name)
	for _, v := range t.Vars {
		parts = append(parts, v.Name+":"+v.Type.String())
	}
	return strings.Join(parts, ",")
}
