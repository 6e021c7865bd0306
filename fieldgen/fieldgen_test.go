package fieldgen

import (
	"math"
	"testing"

	"github.com/pthm-cable/drift/field"
)

func testGrid() Grid {
	return Grid{
		Nx: 8, Ny: 6, Nt: 3,
		LonMin: -2, LonMax: 2,
		LatMin: -1, LatMax: 1,
		Duration: 3600,
	}
}

func TestUniformStream(t *testing.T) {
	u, v, err := UniformStream(testGrid(), 1.5, -0.5)
	if err != nil {
		t.Fatal(err)
	}

	if len(u.Lon) != 8 || len(u.Lat) != 6 || len(u.Time) != 3 {
		t.Fatalf("grid shape = %dx%dx%d, want 8x6x3", len(u.Lon), len(u.Lat), len(u.Time))
	}
	if u.Lon[0] != -2 || u.Lon[7] != 2 {
		t.Errorf("lon span = [%g, %g], want [-2, 2]", u.Lon[0], u.Lon[7])
	}
	if u.Time[2] != 3600 {
		t.Errorf("last time = %g, want 3600", u.Time[2])
	}

	for ti := 0; ti < 3; ti++ {
		for j := 0; j < 6; j++ {
			for i := 0; i < 8; i++ {
				if got := u.At(ti, j, i); got != 1.5 {
					t.Fatalf("U at (%d,%d,%d) = %g, want 1.5", ti, j, i, got)
				}
				if got := v.At(ti, j, i); got != -0.5 {
					t.Fatalf("V at (%d,%d,%d) = %g, want -0.5", ti, j, i, got)
				}
			}
		}
	}
}

func TestVelocityFieldConverters(t *testing.T) {
	u, v, err := UniformStream(testGrid(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if u.Conv.Kind() != (field.GeographicPolar{}).Kind() {
		t.Errorf("U converter = %q, want geographicpolar", u.Conv.Kind())
	}
	if v.Conv.Kind() != (field.Geographic{}).Kind() {
		t.Errorf("V converter = %q, want geographic", v.Conv.Kind())
	}
}

func TestMovingEddyCirculation(t *testing.T) {
	e := Eddy{Lon: 0, Lat: 0, Sigma: 0.5, Speed: 1}
	g := Grid{
		Nx: 81, Ny: 41, Nt: 1,
		LonMin: -2, LonMax: 2,
		LatMin: -1, LatMax: 1,
	}
	u, v, err := MovingEddies(g, e)
	if err != nil {
		t.Fatal(err)
	}

	// At (sigma, 0) east of the centre, a counter-clockwise eddy flows
	// due north at peak speed.
	eu, err := u.Sample(0, 0.5, 0)
	if err != nil {
		t.Fatal(err)
	}
	ev, err := v.Sample(0, 0.5, 0)
	if err != nil {
		t.Fatal(err)
	}
	evMS := v.Conv.ToSource(ev, 0.5, 0)
	if math.Abs(evMS-1) > 0.05 {
		t.Errorf("northward speed at (sigma, 0) = %g m/s, want ~1", evMS)
	}
	euMS := u.Conv.ToSource(eu, 0.5, 0)
	if math.Abs(euMS) > 0.05 {
		t.Errorf("eastward speed at (sigma, 0) = %g m/s, want ~0", euMS)
	}
}

func TestMovingEddyDrift(t *testing.T) {
	e := Eddy{Lon: -1, Lat: 0, Sigma: 0.5, Speed: 1, DriftU: 2.0 / 3600}
	u, _, err := MovingEddies(testGrid(), e)
	if err != nil {
		t.Fatal(err)
	}

	// After the full duration the centre moved 2 degrees east; velocity at
	// the old centre location should have changed between frames.
	first := u.At(0, 3, 2)
	last := u.At(2, 3, 2)
	if first == last {
		t.Error("drifting eddy should change the field between frames")
	}
}

func TestTurbulenceProperties(t *testing.T) {
	u, v, err := Turbulence(testGrid(), 42, 1.0, 0.5, 1.0/3600)
	if err != nil {
		t.Fatal(err)
	}

	var nonzero bool
	for ti := 0; ti < 3; ti++ {
		for j := 0; j < 6; j++ {
			for i := 0; i < 8; i++ {
				uVal, vVal := float64(u.At(ti, j, i)), float64(v.At(ti, j, i))
				if math.IsNaN(uVal) || math.IsInf(uVal, 0) || math.IsNaN(vVal) || math.IsInf(vVal, 0) {
					t.Fatalf("non-finite velocity at (%d,%d,%d)", ti, j, i)
				}
				if uVal != 0 || vVal != 0 {
					nonzero = true
				}
			}
		}
	}
	if !nonzero {
		t.Error("turbulence field is identically zero")
	}

	// Deterministic for a fixed seed.
	u2, _, err := Turbulence(testGrid(), 42, 1.0, 0.5, 1.0/3600)
	if err != nil {
		t.Fatal(err)
	}
	for i, val := range u.Data() {
		if u2.Data()[i] != val {
			t.Fatal("same seed must reproduce the same field")
		}
	}

	u3, _, err := Turbulence(testGrid(), 43, 1.0, 0.5, 1.0/3600)
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i, val := range u.Data() {
		if u3.Data()[i] != val {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds should produce different fields")
	}
}

func TestSingleFrameGrid(t *testing.T) {
	g := testGrid()
	g.Nt = 1
	u, _, err := UniformStream(g, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Time) != 1 || u.Time[0] != 0 {
		t.Errorf("time coords = %v, want [0]", u.Time)
	}
}
