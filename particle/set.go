package particle

import (
	"fmt"
	"unsafe"
)

// Set is an ordered collection of particle records in one contiguous
// buffer. The byte layout matches the C struct emitted for the type, so the
// compiled loop mutates the same storage the interpreted evaluator reads.
type Set struct {
	typ *Type
	n   int
	buf []byte
}

// NewSet allocates n zeroed records. A zeroed record is active (StateOK)
// with all attributes zero.
func NewSet(typ *Type, n int) *Set {
	return &Set{
		typ: typ,
		n:   n,
		buf: make([]byte, n*typ.Size()),
	}
}

// Len returns the number of records, active or not.
func (s *Set) Len() int { return s.n }

// Type returns the set's particle type descriptor.
func (s *Set) Type() *Type { return s.typ }

// Buffer returns the raw record buffer for the FFI boundary.
func (s *Set) Buffer() unsafe.Pointer { return unsafe.Pointer(&s.buf[0]) }

func (s *Set) attr(i int, name string) unsafe.Pointer {
	off, ok := s.typ.Offset(name)
	if !ok {
		panic(fmt.Sprintf("particle: type %q has no attribute %q", s.typ.Name, name))
	}
	return unsafe.Pointer(&s.buf[i*s.typ.Size()+off])
}

// Float reads a float-typed attribute, widening float32 as needed.
func (s *Set) Float(i int, name string) float64 {
	v, ok := s.typ.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("particle: type %q has no attribute %q", s.typ.Name, name))
	}
	p := s.attr(i, name)
	switch v.Type {
	case Float64:
		return *(*float64)(p)
	case Int32:
		return float64(*(*int32)(p))
	default:
		return float64(*(*float32)(p))
	}
}

// SetFloat writes a float-typed attribute, narrowing as the layout demands.
func (s *Set) SetFloat(i int, name string, val float64) {
	v, ok := s.typ.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("particle: type %q has no attribute %q", s.typ.Name, name))
	}
	p := s.attr(i, name)
	switch v.Type {
	case Float64:
		*(*float64)(p) = val
	case Int32:
		*(*int32)(p) = int32(val)
	default:
		*(*float32)(p) = float32(val)
	}
}

// Int reads an int32 attribute.
func (s *Set) Int(i int, name string) int32 {
	return *(*int32)(s.attr(i, name))
}

// SetInt writes an int32 attribute.
func (s *Set) SetInt(i int, name string, val int32) {
	*(*int32)(s.attr(i, name)) = val
}

// Lon returns the particle's longitude.
func (s *Set) Lon(i int) float64 { return float64(*(*float32)(s.attr(i, VarLon))) }

// Lat returns the particle's latitude.
func (s *Set) Lat(i int) float64 { return float64(*(*float32)(s.attr(i, VarLat))) }

// SetLon sets the particle's longitude.
func (s *Set) SetLon(i int, v float64) { *(*float32)(s.attr(i, VarLon)) = float32(v) }

// SetLat sets the particle's latitude.
func (s *Set) SetLat(i int, v float64) { *(*float32)(s.attr(i, VarLat)) = float32(v) }

// State returns the particle's state code.
func (s *Set) State(i int) int32 { return s.Int(i, VarState) }

// SetState sets the particle's state code.
func (s *Set) SetState(i int, v int32) { s.SetInt(i, VarState, v) }

// Active reports whether the particle participates in execution. Inactive
// and errored particles are skipped by both execution modes.
func (s *Set) Active(i int) bool { return s.State(i) == StateOK }

// Deactivate marks a particle as intentionally inactive.
func (s *Set) Deactivate(i int) { s.SetState(i, StateInactive) }
