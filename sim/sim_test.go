package sim

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/drift/config"
	"github.com/pthm-cable/drift/particle"
)

// scriptedRunConfig builds a small deterministic run: a uniform 1 m/s
// eastward stream, a 2x2 release, ten one-minute steps, scripted execution.
func scriptedRunConfig(t *testing.T, outDir string) *config.Config {
	t.Helper()
	body := fmt.Sprintf(`runtime:
  mode: scripted
grid:
  nx: 16
  ny: 16
  nt: 3
  lon_min: -2.0
  lon_max: 2.0
  lat_min: -2.0
  lat_max: 2.0
  duration: 1200.0
scenario:
  name: uniform
  uniform:
    u: 1.0
    v: 0.0
particles:
  nx: 2
  ny: 2
  lon_min: -0.5
  lon_max: 0.5
  lat_min: -0.5
  lat_max: 0.5
run:
  dt: 60.0
  duration: 600.0
  sample_interval: 300.0
output:
  dir: %q
telemetry:
  stats_window: 300.0
  perf_collector_window: 8
`, outDir)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestScriptedUniformRun(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	cfg := scriptedRunConfig(t, outDir)

	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if s.Compiled() {
		t.Fatal("scripted mode must not bind a native entry point")
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}

	set := s.Set()
	if set.Len() != 4 {
		t.Fatalf("set size = %d, want 4", set.Len())
	}

	// 1 m/s east for 600 s: about 600/(1000*1.852*60) degrees, stretched
	// slightly by 1/cos(lat) off the equator.
	base := 600.0 / (1000.0 * 1.852 * 60.0)
	for i := 0; i < set.Len(); i++ {
		if set.State(i) != particle.StateOK {
			t.Errorf("particle %d state = %d, want OK", i, set.State(i))
			continue
		}
		lat := set.Lat(i)
		want := base / math.Cos(lat*math.Pi/180)
		got := set.Lon(i) - s.releaseLon[i]
		if math.Abs(got-want) > want*1e-3 {
			t.Errorf("particle %d displacement = %g, want %g", i, got, want)
		}
		if math.Abs(set.Lat(i)-s.releaseLat[i]) > 1e-9 {
			t.Errorf("particle %d drifted in latitude", i)
		}
	}
}

func TestRunWritesOutputs(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	cfg := scriptedRunConfig(t, outDir)

	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"trajectories.csv", "stats.csv", "perf.csv", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(outDir, "trajectories.csv"))
	if err != nil {
		t.Fatal(err)
	}
	// Header plus 4 particles at release and after each of two segments.
	if len(data) == 0 {
		t.Fatal("empty trajectories.csv")
	}
}

func TestRunWithoutOutputDir(t *testing.T) {
	cfg := scriptedRunConfig(t, "ignored")
	cfg.Output.Dir = ""

	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestNewRejectsEmptyRelease(t *testing.T) {
	cfg := scriptedRunConfig(t, "")
	cfg.Particles.Nx = 0
	cfg.Derived.ParticleCount = 0

	if _, err := New(cfg); err == nil {
		t.Error("expected error for empty release grid")
	}
}
