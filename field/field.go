// Package field provides grid-backed scalar fields sampled on a
// longitude/latitude/time grid, with temporal and spatial interpolation,
// bounded per-field caching, and pluggable unit conversion.
package field

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
)

var (
	// ErrOutOfRange reports a spatial query outside the grid extent.
	// Sampling never reads out of bounds silently.
	ErrOutOfRange = errors.New("field: spatial query outside grid extent")

	// ErrDegenerateInterval reports a temporal interpolation with zero time
	// delta between the bracketing frames.
	ErrDegenerateInterval = errors.New("field: zero time delta between bracketing frames")
)

// timeIndexLast is the timeIndex sentinel for queries past the final grid
// time: sample the last frame flat, without temporal interpolation.
const timeIndexLast = -1

// cacheCapacity bounds the per-field interpolator and time index caches.
// A particle population straddles at most two frames per timestep.
const cacheCapacity = 2

// Spec describes a field to construct. Data is row-major [time][lat][lon]
// and must have len(Time)*len(Lat)*len(Lon) elements. Exactly one of Data
// and Data64 must be set; Data64 is cast down to float32 with a warning.
type Spec struct {
	Name   string
	Data   []float32
	Data64 []float64
	Lon    []float32
	Lat    []float32
	Time   []float64

	// Depth is optional and currently always length 1.
	Depth []float32

	// TimeOrigin is the reference value Time coordinates are relative to.
	TimeOrigin float64

	// Converter applied by Sample; nil means Identity.
	Converter Converter

	// VMin/VMax bound the physically valid sample range. Values outside
	// the bounds are masked. Nil disables the respective bound.
	VMin, VMax *float64
}

// Field is one scalar quantity on a discretized (time, lat, lon) grid.
// Immutable after construction apart from its two bounded caches.
type Field struct {
	Name       string
	Lon        []float32
	Lat        []float32
	Depth      []float32
	Time       []float64
	TimeOrigin float64
	Conv       Converter

	data []float32 // [t][lat][lon] row-major

	interpCache  *lruCache[int, *bilinearSlice]
	timeIdxCache *lruCache[float64, int]
}

// New constructs a Field from raw arrays.
//
// Invalid samples (outside [VMin, VMax], or non-finite) are masked to NaN at
// construction. NaN propagates through interpolation, so a trajectory that
// touches masked cells becomes visibly invalid instead of being silently
// biased; callers that prefer clamping must sanitize their input up front.
//
// Time coordinates must be strictly increasing.
func New(s Spec) (*Field, error) {
	data := s.Data
	if data == nil && s.Data64 != nil {
		slog.Warn("casting field data to float32", "field", s.Name)
		data = make([]float32, len(s.Data64))
		for i, v := range s.Data64 {
			data[i] = float32(v)
		}
	}
	if data == nil {
		return nil, fmt.Errorf("field %q: no data", s.Name)
	}
	if len(s.Lon) < 2 || len(s.Lat) < 2 {
		return nil, fmt.Errorf("field %q: grid needs at least 2x2 spatial points, got %dx%d",
			s.Name, len(s.Lon), len(s.Lat))
	}
	times := s.Time
	if len(times) == 0 {
		times = []float64{0}
	}
	if want := len(times) * len(s.Lat) * len(s.Lon); len(data) != want {
		return nil, fmt.Errorf("field %q: data length %d does not match %d x %d x %d grid",
			s.Name, len(data), len(times), len(s.Lat), len(s.Lon))
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("field %q: time coordinates not strictly increasing at index %d", s.Name, i)
		}
	}

	masked := 0
	for i, v := range data {
		v64 := float64(v)
		bad := math.IsInf(v64, 0)
		if s.VMin != nil && v64 < *s.VMin {
			bad = true
		}
		if s.VMax != nil && v64 > *s.VMax {
			bad = true
		}
		if bad {
			data[i] = float32(math.NaN())
			masked++
		}
	}
	if masked > 0 {
		slog.Warn("masked invalid field samples", "field", s.Name, "count", masked)
	}

	depth := s.Depth
	if depth == nil {
		depth = []float32{0}
	}
	conv := s.Converter
	if conv == nil {
		conv = Identity{}
	}

	return &Field{
		Name:         s.Name,
		Lon:          s.Lon,
		Lat:          s.Lat,
		Depth:        depth,
		Time:         times,
		TimeOrigin:   s.TimeOrigin,
		Conv:         conv,
		data:         data,
		interpCache:  newLRUCache[int, *bilinearSlice](cacheCapacity),
		timeIdxCache: newLRUCache[float64, int](cacheCapacity),
	}, nil
}

// At returns the stored value at grid indices (tIdx, yIdx, xIdx).
func (f *Field) At(tIdx, yIdx, xIdx int) float32 {
	return f.data[(tIdx*len(f.Lat)+yIdx)*len(f.Lon)+xIdx]
}

// Data exposes the backing array for marshalling. Callers must not write
// through it.
func (f *Field) Data() []float32 { return f.data }

// Sample evaluates the field at (t, x, y): time index resolution, spatial
// interpolation, temporal interpolation when the query time is bracketed by
// two frames, then the unit converter's target transform. This is the
// canonical point-sampling contract the generated C code mirrors.
func (f *Field) Sample(t, x, y float64) (float64, error) {
	idx := f.timeIndex(t)
	var v float64
	var err error
	if idx > 0 {
		v, err = f.temporalInterp(idx, t, y, x)
	} else {
		v, err = f.spatialInterp(f.frame(idx), y, x)
	}
	if err != nil {
		return 0, err
	}
	return f.Conv.ToTarget(v, x, y), nil
}

// timeIndex returns the first grid time index not less than t. Queries past
// the final grid time return timeIndexLast; queries at or before the first
// grid time return 0, sampling the first frame flat.
func (f *Field) timeIndex(t float64) int {
	if idx, ok := f.timeIdxCache.get(t); ok {
		return idx
	}
	idx := sort.SearchFloat64s(f.Time, t)
	if idx == len(f.Time) {
		idx = timeIndexLast
	}
	f.timeIdxCache.put(t, idx)
	return idx
}

// frame maps a timeIndex result onto the frame to sample flat.
func (f *Field) frame(idx int) int {
	if idx == timeIndexLast {
		return len(f.Time) - 1
	}
	return idx
}

// temporalInterp linearly interpolates in time between the spatial samples
// at idx-1 and idx.
func (f *Field) temporalInterp(idx int, t, y, x float64) (float64, error) {
	t0, t1 := f.Time[idx-1], f.Time[idx]
	if t1 == t0 {
		return 0, fmt.Errorf("%w: frames %d and %d at t=%g", ErrDegenerateInterval, idx-1, idx, t0)
	}
	f0, err := f.spatialInterp(idx-1, y, x)
	if err != nil {
		return 0, err
	}
	f1, err := f.spatialInterp(idx, y, x)
	if err != nil {
		return 0, err
	}
	return f0 + (f1-f0)*((t-t0)/(t1-t0)), nil
}

// spatialInterp evaluates the cached bilinear interpolator for the grid
// slice at tIdx. Building the interpolator is the expensive step; evaluation
// is cheap and repeated once per particle.
func (f *Field) spatialInterp(tIdx int, y, x float64) (float64, error) {
	interp, ok := f.interpCache.get(tIdx)
	if !ok {
		interp = newBilinearSlice(f, tIdx)
		f.interpCache.put(tIdx, interp)
	}
	return interp.eval(y, x)
}
