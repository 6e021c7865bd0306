// Package sim orchestrates a drift run: it builds the configured scenario
// fields, releases the particle grid, selects and builds the kernel, and
// drives execution segment by segment while recording trajectories and
// telemetry.
package sim

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pthm-cable/drift/config"
	"github.com/pthm-cable/drift/field"
	"github.com/pthm-cable/drift/fieldgen"
	"github.com/pthm-cable/drift/kernel"
	"github.com/pthm-cable/drift/particle"
	"github.com/pthm-cable/drift/telemetry"
)

// Simulation owns the state of one run.
type Simulation struct {
	cfg  *config.Config
	u, v *field.Field
	set  *particle.Set
	kern *kernel.Kernel
	perf *telemetry.PerfCollector
	out  *telemetry.OutputManager

	releaseLon []float64
	releaseLat []float64

	step    int
	simTime float64
}

// New builds a fully wired simulation from the configuration: scenario
// fields, particle release grid, and the kernel in the configured execution
// mode.
func New(cfg *config.Config) (*Simulation, error) {
	s := &Simulation{
		cfg:  cfg,
		perf: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
	}
	if err := s.buildFields(); err != nil {
		return nil, err
	}
	if err := s.release(); err != nil {
		return nil, err
	}
	if err := s.buildKernel(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulation) buildFields() error {
	g := fieldgen.Grid{
		Nx:       s.cfg.Grid.Nx,
		Ny:       s.cfg.Grid.Ny,
		Nt:       s.cfg.Grid.Nt,
		LonMin:   s.cfg.Grid.LonMin,
		LonMax:   s.cfg.Grid.LonMax,
		LatMin:   s.cfg.Grid.LatMin,
		LatMax:   s.cfg.Grid.LatMax,
		Duration: s.cfg.Grid.Duration,
	}

	var err error
	switch s.cfg.Scenario.Name {
	case "uniform":
		s.u, s.v, err = fieldgen.UniformStream(g, s.cfg.Scenario.Uniform.U, s.cfg.Scenario.Uniform.V)
	case "eddies":
		eddies := make([]fieldgen.Eddy, len(s.cfg.Scenario.Eddies))
		for i, e := range s.cfg.Scenario.Eddies {
			eddies[i] = fieldgen.Eddy{
				Lon: e.Lon, Lat: e.Lat,
				Sigma: e.Sigma, Speed: e.Speed,
				DriftU: e.DriftU, DriftV: e.DriftV,
			}
		}
		s.u, s.v, err = fieldgen.MovingEddies(g, eddies...)
	case "turbulence":
		t := s.cfg.Scenario.Turbulence
		s.u, s.v, err = fieldgen.Turbulence(g, t.Seed, t.Scale, t.Speed, t.TimeScale)
	default:
		err = fmt.Errorf("sim: unknown scenario %q", s.cfg.Scenario.Name)
	}
	if err != nil {
		return err
	}

	slog.Info("fields generated",
		"scenario", s.cfg.Scenario.Name,
		"grid", fmt.Sprintf("%dx%dx%d", s.cfg.Grid.Nt, s.cfg.Grid.Ny, s.cfg.Grid.Nx))
	return nil
}

// release seeds the particle grid inside the configured release box and
// remembers the release positions for displacement statistics.
func (s *Simulation) release() error {
	p := s.cfg.Particles
	n := p.Nx * p.Ny
	if n == 0 {
		return fmt.Errorf("sim: empty particle release grid")
	}

	typ, err := particle.NewType("drifter", true)
	if err != nil {
		return err
	}
	s.set = particle.NewSet(typ, n)
	s.releaseLon = make([]float64, n)
	s.releaseLat = make([]float64, n)

	i := 0
	for iy := 0; iy < p.Ny; iy++ {
		for ix := 0; ix < p.Nx; ix++ {
			lon := p.LonMin
			if p.Nx > 1 {
				lon += (p.LonMax - p.LonMin) * float64(ix) / float64(p.Nx-1)
			}
			lat := p.LatMin
			if p.Ny > 1 {
				lat += (p.LatMax - p.LatMin) * float64(iy) / float64(p.Ny-1)
			}
			s.set.SetLon(i, lon)
			s.set.SetLat(i, lat)
			s.releaseLon[i] = lon
			s.releaseLat[i] = lat
			i++
		}
	}

	slog.Info("particles released", "count", n)
	return nil
}

func (s *Simulation) buildKernel() error {
	var err error
	switch s.cfg.Runtime.Kernel {
	case "euler":
		s.kern, err = kernel.AdvectionEuler(s.set.Type(), s.u, s.v)
	default:
		s.kern, err = kernel.AdvectionRK4(s.set.Type(), s.u, s.v)
	}
	if err != nil {
		return err
	}

	cc := kernel.NewCCompiler(s.cfg.Runtime.Compiler, s.cfg.Runtime.CompilerFlags...)
	switch s.cfg.Runtime.Mode {
	case "scripted":
		slog.Info("kernel ready", "kernel", s.kern.Name, "mode", "scripted")
		return nil
	case "jit":
		if !cc.Available() {
			return fmt.Errorf("sim: jit mode requires a C compiler, %q not found", cc.Cmd)
		}
		if err := s.kern.Build(s.cfg.Runtime.CacheDir, cc); err != nil {
			return err
		}
	default: // auto
		if !cc.Available() {
			slog.Info("no C compiler found, falling back to scripted execution", "compiler", cc.Cmd)
			return nil
		}
		if err := s.kern.Build(s.cfg.Runtime.CacheDir, cc); err != nil {
			slog.Warn("kernel build failed, falling back to scripted execution", "error", err)
			return nil
		}
	}
	slog.Info("kernel ready", "kernel", s.kern.Name, "mode", "jit", "artifact", s.kern.LibPath())
	return nil
}

// Compiled reports whether the run executes natively.
func (s *Simulation) Compiled() bool { return s.kern.Compiled() }

// Set exposes the particle set for inspection after a run.
func (s *Simulation) Set() *particle.Set { return s.set }

// Run advances the simulation to the configured duration, sampling
// trajectories and telemetry as it goes. Per-particle sampling failures
// deactivate the affected particles and the run continues; only I/O
// failures abort.
func (s *Simulation) Run() error {
	var err error
	s.out, err = telemetry.NewOutputManager(s.cfg.Output.Dir)
	if err != nil {
		return err
	}
	defer s.out.Close()

	if err := s.out.WriteConfig(s.cfg); err != nil {
		return err
	}
	if err := s.recordTrajectories(); err != nil {
		return err
	}

	steps := s.cfg.Derived.Steps
	dt := s.cfg.Run.DT
	nextWindow := s.cfg.Derived.StepsPerWindow
	windowStart := 0
	start := time.Now()

	for s.step < steps {
		n := s.cfg.Derived.StepsPerSample
		if rem := steps - s.step; n > rem {
			n = rem
		}

		s.perf.StartStep()
		s.perf.StartPhase(telemetry.PhaseExecute)
		if execErr := s.kern.Execute(s.set, n, s.simTime, dt); execErr != nil {
			slog.Warn("particles deactivated during segment", "step", s.step, "error", execErr)
		}
		s.step += n
		s.simTime += float64(n) * dt

		s.perf.StartPhase(telemetry.PhaseRecord)
		if err := s.recordTrajectories(); err != nil {
			return err
		}

		s.perf.StartPhase(telemetry.PhaseTelemetry)
		if s.step >= nextWindow {
			stats := s.windowStats(windowStart)
			stats.LogStats()
			if err := s.out.WriteStats(stats); err != nil {
				return err
			}
			if err := s.out.WritePerf(s.perf.Stats(), int32(s.step)); err != nil {
				return err
			}
			windowStart = s.step
			nextWindow += s.cfg.Derived.StepsPerWindow
		}
		s.perf.EndStep()
	}

	active, errored := s.census()
	slog.Info("run complete",
		"steps", s.step,
		"sim_time", s.simTime,
		"active", active,
		"errored", errored,
		"wall_time", time.Since(start).Round(time.Millisecond),
	)
	Logf("Run complete: %d steps, %d/%d particles active", s.step, active, s.set.Len())
	return nil
}

func (s *Simulation) census() (active, errored int) {
	for i := 0; i < s.set.Len(); i++ {
		switch st := s.set.State(i); {
		case st == particle.StateOK:
			active++
		case st > 0:
			errored++
		}
	}
	return active, errored
}

func (s *Simulation) recordTrajectories() error {
	records := make([]telemetry.TrajectoryRecord, s.set.Len())
	for i := range records {
		records[i] = telemetry.TrajectoryRecord{
			Step:     int32(s.step),
			Time:     s.simTime,
			Particle: int32(i),
			Lon:      s.set.Lon(i),
			Lat:      s.set.Lat(i),
			State:    s.set.State(i),
		}
	}
	return s.out.WriteTrajectories(records)
}

func (s *Simulation) windowStats(windowStart int) telemetry.WindowStats {
	var disp, lons, lats []float64
	errored := 0
	for i := 0; i < s.set.Len(); i++ {
		if st := s.set.State(i); st > 0 {
			errored++
			continue
		} else if st != particle.StateOK {
			continue
		}
		lon, lat := s.set.Lon(i), s.set.Lat(i)
		dx := lon - s.releaseLon[i]
		dy := lat - s.releaseLat[i]
		disp = append(disp, math.Sqrt(dx*dx+dy*dy))
		lons = append(lons, lon)
		lats = append(lats, lat)
	}

	mean, std, p10, p50, p90 := telemetry.ComputeDisplacementStats(disp)
	lonMin, lonMax, latMin, latMax := telemetry.BoundingBox(lons, lats)

	return telemetry.WindowStats{
		WindowStartStep: int32(windowStart),
		WindowEndStep:   int32(s.step),
		SimTimeSec:      s.simTime,
		ActiveCount:     len(disp),
		ErroredCount:    errored,
		DispMean:        mean,
		DispStd:         std,
		DispP10:         p10,
		DispP50:         p50,
		DispP90:         p90,
		LonMin:          lonMin,
		LonMax:          lonMax,
		LatMin:          latMin,
		LatMax:          latMax,
	}
}
