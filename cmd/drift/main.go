package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/pthm-cable/drift/config"
	"github.com/pthm-cable/drift/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	mode := flag.String("mode", "", "Execution mode: auto, jit, or scripted (empty = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot (empty = use config)")
	scenario := flag.String("scenario", "", "Scenario: uniform, eddies, or turbulence (empty = use config)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// CLI overrides
	if *mode != "" {
		cfg.Runtime.Mode = *mode
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *scenario != "" {
		cfg.Scenario.Name = *scenario
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	slog.Info("starting drift run",
		"scenario", cfg.Scenario.Name,
		"mode", cfg.Runtime.Mode,
		"kernel", cfg.Runtime.Kernel,
		"particles", cfg.Derived.ParticleCount,
		"steps", cfg.Derived.Steps,
	)

	s, err := sim.New(cfg)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}

	if err := s.Run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}
