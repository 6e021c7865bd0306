package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	// Simulate a few steps
	for i := 0; i < 5; i++ {
		pc.StartStep()
		pc.StartPhase(PhaseExecute)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseRecord)
		time.Sleep(200 * time.Microsecond)
		pc.EndStep()
	}

	stats := pc.Stats()

	if stats.AvgStepDuration <= 0 {
		t.Error("expected positive average step duration")
	}

	if len(stats.PhaseAvg) == 0 {
		t.Error("expected phase averages to be populated")
	}

	if _, ok := stats.PhaseAvg[PhaseExecute]; !ok {
		t.Error("expected execute phase to be tracked")
	}

	if _, ok := stats.PhaseAvg[PhaseRecord]; !ok {
		t.Error("expected record phase to be tracked")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5) // Small window

	// Fill window completely
	for i := 0; i < 10; i++ {
		pc.StartStep()
		pc.StartPhase(PhaseExecute)
		pc.EndStep()
	}

	stats := pc.Stats()
	if stats.AvgStepDuration < 0 {
		t.Error("expected non-negative average after window wrap")
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)
	stats := pc.Stats()

	if stats.AvgStepDuration != 0 {
		t.Error("expected zero average with no samples")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected initialized maps with no samples")
	}
}

func TestPerfCollector_PhasePercentagesSum(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.StartStep()
	pc.StartPhase(PhaseExecute)
	time.Sleep(500 * time.Microsecond)
	pc.StartPhase(PhaseRecord)
	time.Sleep(500 * time.Microsecond)
	pc.EndStep()

	stats := pc.Stats()
	var total float64
	for _, pct := range stats.PhasePct {
		total += pct
	}
	// Phases cover the whole step, so percentages should roughly sum to 100.
	if total < 80 || total > 105 {
		t.Errorf("phase percentages sum to %v, want ~100", total)
	}
}

func TestPerfStatsCSV(t *testing.T) {
	pc := NewPerfCollector(10)
	pc.StartStep()
	pc.StartPhase(PhaseExecute)
	time.Sleep(100 * time.Microsecond)
	pc.EndStep()

	rec := pc.Stats().ToCSV(42)
	if rec.WindowEnd != 42 {
		t.Errorf("WindowEnd = %d, want 42", rec.WindowEnd)
	}
	if rec.AvgStepUS <= 0 {
		t.Error("expected positive average in CSV record")
	}
}
