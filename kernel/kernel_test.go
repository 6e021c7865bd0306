package kernel

import (
	"errors"
	"testing"

	"github.com/pthm-cable/drift/field"
	"github.com/pthm-cable/drift/particle"
)

func testParticleType(t *testing.T) *particle.Type {
	t.Helper()
	typ, err := particle.NewType("drifter", true)
	if err != nil {
		t.Fatal(err)
	}
	return typ
}

// uniformField builds a 3x3 two-frame field holding the constant v with the
// given converter. Extent is [-1, 1] in both axes, times 0 and 100.
func uniformField(t *testing.T, name string, v float64, conv field.Converter) *field.Field {
	t.Helper()
	data := make([]float32, 2*3*3)
	for i := range data {
		data[i] = float32(v)
	}
	f, err := field.New(field.Spec{
		Name: name, Data: data,
		Lon:  []float32{-1, 0, 1},
		Lat:  []float32{-1, 0, 1},
		Time: []float64{0, 100},
		Converter: conv,
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestNewRejectsOutOfSubsetConstructs(t *testing.T) {
	typ := testParticleType(t)
	f := uniformField(t, "U", 1, nil)
	fields := map[string]*field.Field{"U": f}

	tests := []struct {
		name string
		body Stmt
	}{
		{"undeclared local", Assign{Target: Local{"nope"}, Value: FloatLit{1}}},
		{"unknown attribute", Assign{Target: Attr{"ghost"}, Value: FloatLit{1}}},
		{"bad assign target", Assign{Target: FloatLit{1}, Value: FloatLit{2}}},
		{"bad arithmetic op", Assign{Target: Attr{particle.VarLon}, Value: Binary{Op: "%", Left: FloatLit{1}, Right: FloatLit{2}}}},
		{"bad param", Assign{Target: Attr{particle.VarLon}, Value: Param{"depth"}}},
		{"unknown function", Assign{Target: Attr{particle.VarLon}, Value: Call{Fn: "gamma", Args: []Expr{FloatLit{1}}}}},
		{"wrong arity", Assign{Target: Attr{particle.VarLon}, Value: Call{Fn: "pow", Args: []Expr{FloatLit{1}}}}},
		{"unbound field", Assign{Target: Attr{particle.VarLon}, Value: FieldAt{Field: "V", Time: Param{"time"}, X: Attr{particle.VarLon}, Y: Attr{particle.VarLat}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("K", typ, fields, nil, tt.body)
			var terr *TranslationError
			if !errors.As(err, &terr) {
				t.Errorf("err = %v, want TranslationError", err)
			}
		})
	}
}

func TestNewAcceptsSupportedSubset(t *testing.T) {
	typ := testParticleType(t)
	f := uniformField(t, "U", 1, nil)

	_, err := New("K", typ, map[string]*field.Field{"U": f}, []string{"u"},
		Assign{Target: Local{"u"}, Value: FieldAt{Field: "U", Time: Param{"time"}, X: Attr{particle.VarLon}, Y: Attr{particle.VarLat}}},
		If{
			Cond: Logical{Op: "&&",
				Left:  Compare{Op: ">", Left: Local{"u"}, Right: FloatLit{0}},
				Right: Not{X: Compare{Op: "==", Left: Local{"u"}, Right: FloatLit{1}}},
			},
			Then: []Stmt{Assign{Target: Attr{particle.VarLon}, Value: Call{Fn: "fmin", Args: []Expr{Local{"u"}, FloatLit{1}}}}},
			Else: []Stmt{Assign{Target: Attr{particle.VarLat}, Value: IntLit{0}}},
		},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestMergeConcatenatesAndUnions(t *testing.T) {
	typ := testParticleType(t)
	f := uniformField(t, "U", 1, nil)
	fields := map[string]*field.Field{"U": f}

	s1 := Assign{Target: Local{"a"}, Value: FloatLit{1}}
	s2 := Assign{Target: Local{"b"}, Value: FloatLit{2}}

	k1, _ := New("K1", typ, fields, []string{"a"}, s1)
	k2, _ := New("K2", typ, fields, []string{"b"}, s2)

	m, err := Merge(k1, k2)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "K1K2" {
		t.Errorf("Name = %q, want K1K2", m.Name)
	}
	if len(m.Body) != 2 {
		t.Fatalf("Body length = %d, want 2", len(m.Body))
	}
	if len(m.Locals) != 2 || m.Locals[0] != "a" || m.Locals[1] != "b" {
		t.Errorf("Locals = %v, want [a b]", m.Locals)
	}
}

func TestMergeAssociativeInExecutionOrder(t *testing.T) {
	typ := testParticleType(t)
	f := uniformField(t, "U", 1, nil)
	fields := map[string]*field.Field{"U": f}

	mk := func(name string, v float64) *Kernel {
		k, err := New(name, typ, fields, []string{"x"},
			Assign{Target: Local{"x"}, Value: FloatLit{v}})
		if err != nil {
			t.Fatal(err)
		}
		return k
	}
	k1, k2, k3 := mk("K1", 1), mk("K2", 2), mk("K3", 3)

	left, err := Merge(k1, k2)
	if err != nil {
		t.Fatal(err)
	}
	left, err = Merge(left, k3)
	if err != nil {
		t.Fatal(err)
	}
	right, err := Merge(k2, k3)
	if err != nil {
		t.Fatal(err)
	}
	right, err = Merge(k1, right)
	if err != nil {
		t.Fatal(err)
	}

	if len(left.Body) != 3 || len(right.Body) != 3 {
		t.Fatalf("body lengths = %d, %d, want 3, 3", len(left.Body), len(right.Body))
	}
	for i := range left.Body {
		lv := left.Body[i].(Assign).Value.(FloatLit).Value
		rv := right.Body[i].(Assign).Value.(FloatLit).Value
		if lv != rv {
			t.Errorf("statement %d: left=%g right=%g", i, lv, rv)
		}
		if want := float64(i + 1); lv != want {
			t.Errorf("statement %d executes literal %g, want %g", i, lv, want)
		}
	}
	if len(left.Locals) != 1 || len(right.Locals) != 1 {
		t.Errorf("locals = %v, %v, want single shared x", left.Locals, right.Locals)
	}
}

func TestMergeRejectsDifferentParticleTypes(t *testing.T) {
	f := uniformField(t, "U", 1, nil)
	fields := map[string]*field.Field{"U": f}
	ta := testParticleType(t)
	tb, _ := particle.NewType("other", true)

	ka, _ := New("A", ta, fields, nil)
	kb, _ := New("B", tb, fields, nil)
	if _, err := Merge(ka, kb); err == nil {
		t.Error("expected error merging kernels over different particle types")
	}
}

func TestCacheKeyStability(t *testing.T) {
	typ := testParticleType(t)
	body := func() Stmt {
		return Assign{Target: Attr{particle.VarLon}, Value: FloatLit{1}}
	}

	mkKernel := func(conv field.Converter) *Kernel {
		f := uniformField(t, "U", 1, conv)
		k, err := New("K", typ, map[string]*field.Field{"U": f}, nil, body())
		if err != nil {
			t.Fatal(err)
		}
		return k
	}

	k1 := mkKernel(field.Geographic{})
	k2 := mkKernel(field.Geographic{})
	k3 := mkKernel(field.GeographicPolar{})

	if k1.CacheKey() != k2.CacheKey() {
		t.Error("identical kernels should share a cache key")
	}
	if k1.CacheKey() == k3.CacheKey() {
		t.Error("changing a field's converter kind must change the cache key")
	}
}
