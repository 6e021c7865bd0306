package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatal(err)
	}
	if om != nil {
		t.Fatal("empty dir should disable output")
	}

	// All writes on a nil manager are no-ops.
	if err := om.WriteTrajectories([]TrajectoryRecord{{}}); err != nil {
		t.Error(err)
	}
	if err := om.WriteStats(WindowStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManagerTrajectoryAppend(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	recs := []TrajectoryRecord{
		{Step: 0, Time: 0, Particle: 0, Lon: 1.5, Lat: -0.5},
		{Step: 0, Time: 0, Particle: 1, Lon: 2.5, Lat: 0.5},
	}
	if err := om.WriteTrajectories(recs); err != nil {
		t.Fatal(err)
	}
	recs[0].Step = 10
	if err := om.WriteTrajectories(recs[:1]); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "trajectories.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	// One header plus three records; the header appears exactly once.
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "lon") || !strings.Contains(lines[0], "lat") {
		t.Errorf("header = %q, want lon/lat columns", lines[0])
	}
	for _, line := range lines[1:] {
		if strings.Contains(line, "lon") {
			t.Errorf("header repeated in data row %q", line)
		}
	}
}

func TestOutputManagerCreatesFiles(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := om.WriteStats(WindowStats{WindowEndStep: 1}); err != nil {
		t.Fatal(err)
	}
	if err := om.WritePerf(PerfStats{}, 1); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"trajectories.csv", "stats.csv", "perf.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
