// Package fieldgen builds synthetic current fields for simulation runs:
// a uniform stream, a pair of translating Gaussian eddies, and
// divergence-free simplex turbulence.
package fieldgen

import (
	"math"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/drift/field"
)

// Grid describes the shared discretization of a generated field pair.
// Extent is in degrees, duration in seconds.
type Grid struct {
	Nx, Ny, Nt int
	LonMin     float64
	LonMax     float64
	LatMin     float64
	LatMax     float64
	Duration   float64
}

func (g Grid) coords() (lon, lat []float32, times []float64) {
	lonF := floats.Span(make([]float64, g.Nx), g.LonMin, g.LonMax)
	latF := floats.Span(make([]float64, g.Ny), g.LatMin, g.LatMax)
	lon = make([]float32, g.Nx)
	lat = make([]float32, g.Ny)
	for i, v := range lonF {
		lon[i] = float32(v)
	}
	for j, v := range latF {
		lat[j] = float32(v)
	}
	if g.Nt <= 1 {
		return lon, lat, []float64{0}
	}
	return lon, lat, floats.Span(make([]float64, g.Nt), 0, g.Duration)
}

// velocityAt evaluates a flow in m/s at (lon, lat, t).
type velocityAt func(lon, lat, t float64) (u, v float64)

// build samples fn over the grid and wraps the result in a U/V field pair
// with the geographic unit converters: the zonal component corrects for
// meridian convergence, the meridional component does not.
func build(g Grid, fn velocityAt) (*field.Field, *field.Field, error) {
	lon, lat, times := g.coords()
	n := len(times) * g.Ny * g.Nx
	uData := make([]float32, n)
	vData := make([]float32, n)
	i := 0
	for _, t := range times {
		for _, y := range lat {
			for _, x := range lon {
				u, v := fn(float64(x), float64(y), t)
				uData[i] = float32(u)
				vData[i] = float32(v)
				i++
			}
		}
	}

	uf, err := field.New(field.Spec{
		Name: "U", Data: uData, Lon: lon, Lat: lat, Time: times,
		Converter: field.GeographicPolar{},
	})
	if err != nil {
		return nil, nil, err
	}
	vf, err := field.New(field.Spec{
		Name: "V", Data: vData, Lon: lon, Lat: lat, Time: times,
		Converter: field.Geographic{},
	})
	if err != nil {
		return nil, nil, err
	}
	return uf, vf, nil
}

// UniformStream generates a constant flow of (u, v) m/s everywhere.
func UniformStream(g Grid, u, v float64) (*field.Field, *field.Field, error) {
	return build(g, func(_, _, _ float64) (float64, float64) {
		return u, v
	})
}

// Eddy is one Gaussian vortex: peak tangential speed in m/s at radius
// sigma degrees from the centre, drifting at (driftU, driftV) degrees per
// second. Positive speed spins counter-clockwise.
type Eddy struct {
	Lon, Lat       float64
	Sigma          float64
	Speed          float64
	DriftU, DriftV float64
}

func (e Eddy) velocity(lon, lat, t float64) (float64, float64) {
	cx := e.Lon + e.DriftU*t
	cy := e.Lat + e.DriftV*t
	dx := lon - cx
	dy := lat - cy
	r := math.Sqrt(dx*dx + dy*dy)
	if r == 0 {
		return 0, 0
	}
	// Tangential profile peaking at r = sigma.
	mag := e.Speed * (r / e.Sigma) * math.Exp(0.5*(1-(r*r)/(e.Sigma*e.Sigma)))
	return -mag * dy / r, mag * dx / r
}

// MovingEddies generates the superposition of the given vortices.
func MovingEddies(g Grid, eddies ...Eddy) (*field.Field, *field.Field, error) {
	return build(g, func(lon, lat, t float64) (float64, float64) {
		var u, v float64
		for _, e := range eddies {
			eu, ev := e.velocity(lon, lat, t)
			u += eu
			v += ev
		}
		return u, v
	})
}

// Turbulence generates a divergence-free flow as the curl of a simplex
// noise streamfunction: u = dpsi/dy, v = -dpsi/dx, evaluated by central
// differences. Scale sets the noise wavelength in degrees, speed the peak
// magnitude in m/s, and tScale the evolution rate of the pattern.
func Turbulence(g Grid, seed int64, scale, speed, tScale float64) (*field.Field, *field.Field, error) {
	noise := opensimplex.New(seed)
	psi := func(lon, lat, t float64) float64 {
		return noise.Eval3(lon/scale, lat/scale, t*tScale)
	}
	const h = 1e-3
	return build(g, func(lon, lat, t float64) (float64, float64) {
		u := (psi(lon, lat+h, t) - psi(lon, lat-h, t)) / (2 * h)
		v := -(psi(lon+h, lat, t) - psi(lon-h, lat, t)) / (2 * h)
		return u * speed * scale, v * speed * scale
	})
}
