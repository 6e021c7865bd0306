package field

import (
	"fmt"
	"math"
)

// earthRadius in meters, used to convert coordinate spacing to metric
// distance for finite differencing.
const earthRadius = 6.371e6

// Range selects an inclusive index window along one grid axis. The zero
// value selects the full axis.
type Range struct {
	Lo, Hi int
	set    bool
}

// NewRange builds an explicit index range.
func NewRange(lo, hi int) Range { return Range{Lo: lo, Hi: hi, set: true} }

func (r Range) bounds(n int) (int, int) {
	if !r.set {
		return 0, n - 1
	}
	return r.Lo, r.Hi
}

// Gradient produces two new Fields holding the central-difference
// derivatives of f along longitude and latitude, in units per meter.
// Interior points use centered differencing; the longitude cell widths are
// scaled by cos(lat) to true metric distance. Boundary points fall back to
// one-sided differences. Optional ranges restrict the time slices and the
// spatial window.
//
// Both returned fields carry Identity converters: the cos(lat) correction is
// already folded into the longitude spacing, so a polar converter on the
// x-derivative would apply it twice.
func (f *Field) Gradient(trange, latrange, lonrange Range) (*Field, *Field, error) {
	tLo, tHi := trange.bounds(len(f.Time))
	yLo, yHi := latrange.bounds(len(f.Lat))
	xLo, xHi := lonrange.bounds(len(f.Lon))
	if tLo < 0 || tHi >= len(f.Time) || yLo < 0 || yHi >= len(f.Lat) || xLo < 0 || xHi >= len(f.Lon) {
		return nil, nil, fmt.Errorf("field %q: gradient range outside grid", f.Name)
	}
	nx, ny, nt := xHi-xLo+1, yHi-yLo+1, tHi-tLo+1
	if nx < 2 || ny < 2 {
		return nil, nil, fmt.Errorf("field %q: gradient window needs at least 2x2 points", f.Name)
	}

	lon := f.Lon[xLo : xHi+1]
	lat := f.Lat[yLo : yHi+1]
	times := f.Time[tLo : tHi+1]

	// Metric spacing. Longitude spacing varies with latitude.
	degToRad := math.Pi / 180.0
	dy := make([]float64, ny) // meters between lat[j] and lat[j+1]
	for j := 0; j < ny-1; j++ {
		dy[j] = float64(lat[j+1]-lat[j]) * degToRad * earthRadius
	}
	dx := make([]float64, ny*nx) // meters between lon[i] and lon[i+1] at lat[j]
	for j := 0; j < ny; j++ {
		cosLat := math.Cos(float64(lat[j]) * degToRad)
		for i := 0; i < nx-1; i++ {
			dx[j*nx+i] = float64(lon[i+1]-lon[i]) * degToRad * earthRadius * cosLat
		}
	}

	gradX := make([]float32, nt*ny*nx)
	gradY := make([]float32, nt*ny*nx)
	for ts := 0; ts < nt; ts++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				v := func(jj, ii int) float64 {
					return float64(f.At(tLo+ts, yLo+jj, xLo+ii))
				}
				out := (ts*ny + j) * nx

				// d/dlon: centered over unequal widths, one-sided at the rim.
				var ddx float64
				switch {
				case i == 0:
					ddx = (v(j, 1) - v(j, 0)) / dx[j*nx]
				case i == nx-1:
					ddx = (v(j, nx-1) - v(j, nx-2)) / dx[j*nx+nx-2]
				default:
					ddx = (v(j, i+1) - v(j, i-1)) / (dx[j*nx+i-1] + dx[j*nx+i])
				}
				gradX[out+i] = float32(ddx)

				var ddy float64
				switch {
				case j == 0:
					ddy = (v(1, i) - v(0, i)) / dy[0]
				case j == ny-1:
					ddy = (v(ny-1, i) - v(ny-2, i)) / dy[ny-2]
				default:
					ddy = (v(j+1, i) - v(j-1, i)) / (dy[j-1] + dy[j])
				}
				gradY[out+i] = float32(ddy)
			}
		}
	}

	fx, err := New(Spec{
		Name: f.Name + "_dx", Data: gradX,
		Lon: lon, Lat: lat, Time: times,
		TimeOrigin: f.TimeOrigin, Converter: Identity{},
	})
	if err != nil {
		return nil, nil, err
	}
	fy, err := New(Spec{
		Name: f.Name + "_dy", Data: gradY,
		Lon: lon, Lat: lat, Time: times,
		TimeOrigin: f.TimeOrigin, Converter: Identity{},
	})
	if err != nil {
		return nil, nil, err
	}
	return fx, fy, nil
}
