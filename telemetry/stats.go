package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated run statistics for a time window.
type WindowStats struct {
	WindowStartStep int32   `csv:"-"`
	WindowEndStep   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	ActiveCount  int `csv:"active"`
	ErroredCount int `csv:"errored"`

	// Displacement from release positions, in degrees
	DispMean float64 `csv:"disp_mean"`
	DispStd  float64 `csv:"disp_std"`
	DispP10  float64 `csv:"disp_p10"`
	DispP50  float64 `csv:"disp_p50"`
	DispP90  float64 `csv:"disp_p90"`

	// Bounding box of the active population
	LonMin float64 `csv:"lon_min"`
	LonMax float64 `csv:"lon_max"`
	LatMin float64 `csv:"lat_min"`
	LatMax float64 `csv:"lat_max"`
}

// ComputeDisplacementStats calculates mean, stddev, and percentiles from
// per-particle displacement magnitudes.
func ComputeDisplacementStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)
	if n > 1 {
		std = stat.StdDev(values, nil)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)

	return mean, std, p10, p50, p90
}

// BoundingBox computes the extent of the given positions. Returns NaNs for
// an empty input.
func BoundingBox(lons, lats []float64) (lonMin, lonMax, latMin, latMax float64) {
	if len(lons) == 0 {
		nan := math.NaN()
		return nan, nan, nan, nan
	}
	lonMin, lonMax = lons[0], lons[0]
	for _, v := range lons[1:] {
		lonMin = math.Min(lonMin, v)
		lonMax = math.Max(lonMax, v)
	}
	latMin, latMax = lats[0], lats[0]
	for _, v := range lats[1:] {
		latMin = math.Min(latMin, v)
		latMax = math.Max(latMax, v)
	}
	return lonMin, lonMax, latMin, latMax
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartStep)),
		slog.Int("window_end", int(s.WindowEndStep)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("active", s.ActiveCount),
		slog.Int("errored", s.ErroredCount),
		slog.Float64("disp_mean", s.DispMean),
		slog.Float64("disp_std", s.DispStd),
		slog.Float64("disp_p10", s.DispP10),
		slog.Float64("disp_p50", s.DispP50),
		slog.Float64("disp_p90", s.DispP90),
		slog.Float64("lon_min", s.LonMin),
		slog.Float64("lon_max", s.LonMax),
		slog.Float64("lat_min", s.LatMin),
		slog.Float64("lat_max", s.LatMax),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndStep,
		"sim_time", s.SimTimeSec,
		"active", s.ActiveCount,
		"errored", s.ErroredCount,
		"disp_mean", s.DispMean,
		"disp_std", s.DispStd,
		"disp_p50", s.DispP50,
	)
}
