// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Runtime   RuntimeConfig   `yaml:"runtime"`
	Grid      GridConfig      `yaml:"grid"`
	Scenario  ScenarioConfig  `yaml:"scenario"`
	Particles ParticlesConfig `yaml:"particles"`
	Run       RunConfig       `yaml:"run"`
	Output    OutputConfig    `yaml:"output"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// RuntimeConfig selects the kernel execution mode and toolchain.
type RuntimeConfig struct {
	Mode          string   `yaml:"mode"`           // auto | jit | scripted
	Compiler      string   `yaml:"compiler"`       // C compiler command; empty = $CC then cc
	CompilerFlags []string `yaml:"compiler_flags"` // empty = -shared -fPIC -O2 -std=c99
	CacheDir      string   `yaml:"cache_dir"`      // compiled artifact directory
	Kernel        string   `yaml:"kernel"`         // euler | rk4
}

// GridConfig holds the generated field grid shape and extent (degrees).
type GridConfig struct {
	Nx       int     `yaml:"nx"`
	Ny       int     `yaml:"ny"`
	Nt       int     `yaml:"nt"`
	LonMin   float64 `yaml:"lon_min"`
	LonMax   float64 `yaml:"lon_max"`
	LatMin   float64 `yaml:"lat_min"`
	LatMax   float64 `yaml:"lat_max"`
	Duration float64 `yaml:"duration"` // grid time span in seconds
}

// ScenarioConfig selects and parameterizes the synthetic current field.
type ScenarioConfig struct {
	Name       string           `yaml:"name"` // uniform | eddies | turbulence
	Uniform    UniformConfig    `yaml:"uniform"`
	Eddies     []EddyConfig     `yaml:"eddies"`
	Turbulence TurbulenceConfig `yaml:"turbulence"`
}

// UniformConfig holds the uniform stream velocity in m/s.
type UniformConfig struct {
	U float64 `yaml:"u"`
	V float64 `yaml:"v"`
}

// EddyConfig holds one Gaussian eddy for the eddies scenario.
type EddyConfig struct {
	Lon    float64 `yaml:"lon"`
	Lat    float64 `yaml:"lat"`
	Sigma  float64 `yaml:"sigma"`   // radius of peak speed, degrees
	Speed  float64 `yaml:"speed"`   // peak tangential speed, m/s
	DriftU float64 `yaml:"drift_u"` // centre drift, degrees per second
	DriftV float64 `yaml:"drift_v"`
}

// TurbulenceConfig holds the simplex turbulence parameters.
type TurbulenceConfig struct {
	Seed      int64   `yaml:"seed"`
	Scale     float64 `yaml:"scale"`      // noise wavelength, degrees
	Speed     float64 `yaml:"speed"`      // peak magnitude, m/s
	TimeScale float64 `yaml:"time_scale"` // pattern evolution rate, 1/s
}

// ParticlesConfig holds the release configuration: an NxM grid of particles
// inside the release box.
type ParticlesConfig struct {
	Nx     int     `yaml:"nx"`
	Ny     int     `yaml:"ny"`
	LonMin float64 `yaml:"lon_min"`
	LonMax float64 `yaml:"lon_max"`
	LatMin float64 `yaml:"lat_min"`
	LatMax float64 `yaml:"lat_max"`
}

// RunConfig holds integration parameters.
type RunConfig struct {
	DT             float64 `yaml:"dt"`              // timestep, seconds
	Duration       float64 `yaml:"duration"`        // total run, seconds
	SampleInterval float64 `yaml:"sample_interval"` // trajectory sampling, seconds
}

// OutputConfig holds run output settings.
type OutputConfig struct {
	Dir string `yaml:"dir"` // empty disables file output
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // seconds per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Steps            int // total integration steps
	StepsPerSample   int // steps between trajectory samples
	StepsPerWindow   int // steps between stats windows
	ParticleCount    int // Particles.Nx * Particles.Ny
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Runtime.Mode {
	case "auto", "jit", "scripted":
	default:
		return fmt.Errorf("config: unknown runtime mode %q", c.Runtime.Mode)
	}
	switch c.Runtime.Kernel {
	case "euler", "rk4":
	default:
		return fmt.Errorf("config: unknown kernel %q", c.Runtime.Kernel)
	}
	switch c.Scenario.Name {
	case "uniform", "eddies", "turbulence":
	default:
		return fmt.Errorf("config: unknown scenario %q", c.Scenario.Name)
	}
	if c.Run.DT <= 0 {
		return fmt.Errorf("config: run.dt must be positive, got %g", c.Run.DT)
	}
	if c.Grid.Nx < 2 || c.Grid.Ny < 2 {
		return fmt.Errorf("config: grid needs at least 2x2 points, got %dx%d", c.Grid.Nx, c.Grid.Ny)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Steps = int(c.Run.Duration / c.Run.DT)
	c.Derived.StepsPerSample = int(c.Run.SampleInterval / c.Run.DT)
	if c.Derived.StepsPerSample < 1 {
		c.Derived.StepsPerSample = 1
	}
	c.Derived.StepsPerWindow = int(c.Telemetry.StatsWindow / c.Run.DT)
	if c.Derived.StepsPerWindow < 1 {
		c.Derived.StepsPerWindow = 1
	}
	c.Derived.ParticleCount = c.Particles.Nx * c.Particles.Ny
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
