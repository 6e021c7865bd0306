package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/drift/config"
)

// TrajectoryRecord is one sampled particle position.
type TrajectoryRecord struct {
	Step     int32   `csv:"step"`
	Time     float64 `csv:"time"`
	Particle int32   `csv:"particle"`
	Lon      float64 `csv:"lon"`
	Lat      float64 `csv:"lat"`
	State    int32   `csv:"state"`
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir            string
	trajectoryFile *os.File
	statsFile      *os.File
	perfFile       *os.File

	// Track if headers have been written
	trajectoryHeaderWritten bool
	statsHeaderWritten      bool
	perfHeaderWritten       bool
}

// NewOutputManager creates a new output manager and initializes the output
// directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "trajectories.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating trajectories.csv: %w", err)
	}
	om.trajectoryFile = f

	f, err = os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		om.trajectoryFile.Close()
		return nil, fmt.Errorf("creating stats.csv: %w", err)
	}
	om.statsFile = f

	f, err = os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		om.trajectoryFile.Close()
		om.statsFile.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteTrajectories appends sampled positions to trajectories.csv.
func (om *OutputManager) WriteTrajectories(records []TrajectoryRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}

	if !om.trajectoryHeaderWritten {
		if err := gocsv.Marshal(records, om.trajectoryFile); err != nil {
			return fmt.Errorf("writing trajectories: %w", err)
		}
		om.trajectoryHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.trajectoryFile); err != nil {
			return fmt.Errorf("writing trajectories: %w", err)
		}
	}

	return nil
}

// WriteStats writes a window stats record to stats.csv.
func (om *OutputManager) WriteStats(stats WindowStats) error {
	if om == nil {
		return nil
	}

	records := []WindowStats{stats}

	if !om.statsHeaderWritten {
		if err := gocsv.Marshal(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		om.statsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
	}

	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}

	records := []PerfStatsCSV{stats.ToCSV(windowEnd)}

	if !om.perfHeaderWritten {
		if err := gocsv.Marshal(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		om.perfHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
	}

	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	for _, f := range []*os.File{om.trajectoryFile, om.statsFile, om.perfFile} {
		if f != nil {
			if err := f.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
