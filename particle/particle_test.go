package particle

import "testing"

func TestNewTypeBuiltinLayout(t *testing.T) {
	typ, err := NewType("drifter", true)
	if err != nil {
		t.Fatal(err)
	}

	// lon, lat float32 then xi, yi, state int32: 20 bytes, 4-aligned.
	if got := typ.Size(); got != 20 {
		t.Errorf("Size = %d, want 20", got)
	}

	wantOffsets := map[string]int{
		VarLon: 0, VarLat: 4, VarXi: 8, VarYi: 12, VarState: 16,
	}
	for name, want := range wantOffsets {
		got, ok := typ.Offset(name)
		if !ok {
			t.Fatalf("missing builtin %q", name)
		}
		if got != want {
			t.Errorf("offset of %s = %d, want %d", name, got, want)
		}
	}
}

func TestNewTypeUserVarAlignment(t *testing.T) {
	typ, err := NewType("tracer", true,
		Var{"age", Float64},
		Var{"mass", Float32},
	)
	if err != nil {
		t.Fatal(err)
	}

	// Builtins end at 20; age (8 bytes) aligns up to 24, mass follows at 32.
	if off, _ := typ.Offset("age"); off != 24 {
		t.Errorf("offset of age = %d, want 24", off)
	}
	if off, _ := typ.Offset("mass"); off != 32 {
		t.Errorf("offset of mass = %d, want 32", off)
	}
	// Record pads out to the 8-byte max alignment.
	if got := typ.Size(); got != 40 {
		t.Errorf("Size = %d, want 40", got)
	}
}

func TestNewTypeRejectsDuplicates(t *testing.T) {
	tests := []struct {
		name string
		vars []Var
	}{
		{"duplicate user var", []Var{{"age", Float32}, {"age", Float64}}},
		{"shadowed builtin", []Var{{VarLon, Float64}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewType("t", true, tt.vars...); err == nil {
				t.Error("expected duplicate attribute error")
			}
		})
	}
}

func TestTypeCacheKey(t *testing.T) {
	a1, _ := NewType("drifter", true)
	a2, _ := NewType("drifter", true)
	b, _ := NewType("drifter", true, Var{"age", Float32})
	c, _ := NewType("drifter", true, Var{"age", Float64})

	if a1.CacheKey() != a2.CacheKey() {
		t.Error("identical types should share a cache key")
	}
	if a1.CacheKey() == b.CacheKey() {
		t.Error("extra attribute should change the cache key")
	}
	if b.CacheKey() == c.CacheKey() {
		t.Error("attribute dtype should change the cache key")
	}
}

func TestSetAccessors(t *testing.T) {
	typ, err := NewType("tracer", true, Var{"age", Float64}, Var{"hits", Int32})
	if err != nil {
		t.Fatal(err)
	}
	s := NewSet(typ, 3)

	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}

	s.SetLon(1, 12.25)
	s.SetLat(1, -3.5)
	s.SetFloat(1, "age", 86400.5)
	s.SetInt(1, "hits", 7)

	if got := s.Lon(1); got != 12.25 {
		t.Errorf("Lon = %v, want 12.25", got)
	}
	if got := s.Lat(1); got != -3.5 {
		t.Errorf("Lat = %v, want -3.5", got)
	}
	if got := s.Float(1, "age"); got != 86400.5 {
		t.Errorf("age = %v, want 86400.5", got)
	}
	if got := s.Int(1, "hits"); got != 7 {
		t.Errorf("hits = %d, want 7", got)
	}

	// Neighbours stay zeroed: records do not overlap.
	for _, i := range []int{0, 2} {
		if s.Lon(i) != 0 || s.Float(i, "age") != 0 || s.Int(i, "hits") != 0 {
			t.Errorf("record %d was clobbered", i)
		}
	}
}

func TestSetFloat32Narrowing(t *testing.T) {
	typ, _ := NewType("drifter", true)
	s := NewSet(typ, 1)

	// lon is float32 storage; reads observe the narrowed value.
	s.SetLon(0, 1.00000001)
	if got := s.Lon(0); got != float64(float32(1.00000001)) {
		t.Errorf("Lon = %v, want float32-narrowed value", got)
	}
}

func TestSetStates(t *testing.T) {
	typ, _ := NewType("drifter", true)
	s := NewSet(typ, 2)

	if !s.Active(0) {
		t.Error("fresh particle should be active")
	}
	s.Deactivate(0)
	if s.Active(0) {
		t.Error("deactivated particle should not be active")
	}
	if got := s.State(0); got != StateInactive {
		t.Errorf("State = %d, want %d", got, StateInactive)
	}

	s.SetState(1, StateErrOutOfRange)
	if s.Active(1) {
		t.Error("errored particle should not be active")
	}
}
