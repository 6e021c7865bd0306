package field

import (
	"fmt"
	"sort"
)

// bilinearSlice is a bilinear patch evaluator over one full (lat, lon) grid
// slice. Construction promotes the slice's coordinates and values to float64
// once so that per-particle evaluation is a cell lookup and four
// multiply-adds; the arithmetic matches the generated C helper exactly.
type bilinearSlice struct {
	lon  []float64
	lat  []float64
	vals []float64 // [lat][lon] row-major
}

func newBilinearSlice(f *Field, tIdx int) *bilinearSlice {
	nx, ny := len(f.Lon), len(f.Lat)
	b := &bilinearSlice{
		lon:  make([]float64, nx),
		lat:  make([]float64, ny),
		vals: make([]float64, nx*ny),
	}
	for i, v := range f.Lon {
		b.lon[i] = float64(v)
	}
	for j, v := range f.Lat {
		b.lat[j] = float64(v)
	}
	base := tIdx * ny * nx
	for i := range b.vals {
		b.vals[i] = float64(f.data[base+i])
	}
	return b
}

// eval interpolates the slice at (y, x).
func (b *bilinearSlice) eval(y, x float64) (float64, error) {
	xi, err := cellIndex(b.lon, x)
	if err != nil {
		return 0, fmt.Errorf("%w: lon=%g outside [%g, %g]", ErrOutOfRange, x, b.lon[0], b.lon[len(b.lon)-1])
	}
	yi, err := cellIndex(b.lat, y)
	if err != nil {
		return 0, fmt.Errorf("%w: lat=%g outside [%g, %g]", ErrOutOfRange, y, b.lat[0], b.lat[len(b.lat)-1])
	}

	nx := len(b.lon)
	x0, x1 := b.lon[xi], b.lon[xi+1]
	y0, y1 := b.lat[yi], b.lat[yi+1]
	sw := b.vals[yi*nx+xi]
	se := b.vals[yi*nx+xi+1]
	nw := b.vals[(yi+1)*nx+xi]
	ne := b.vals[(yi+1)*nx+xi+1]

	return (sw*(x1-x)*(y1-y) +
		se*(x-x0)*(y1-y) +
		nw*(x1-x)*(y-y0) +
		ne*(x-x0)*(y-y0)) /
		((x1 - x0) * (y1 - y0)), nil
}

// cellIndex locates the cell i with coords[i] <= v <= coords[i+1] in an
// ascending coordinate array. Queries outside the extent are an explicit
// error, never an out-of-bounds read.
func cellIndex(coords []float64, v float64) (int, error) {
	n := len(coords)
	if v < coords[0] || v > coords[n-1] {
		return 0, ErrOutOfRange
	}
	// First index with coords[i] > v, minus one; clamp so that a query on
	// the last node still has an upper neighbour.
	i := sort.Search(n, func(i int) bool { return coords[i] > v }) - 1
	if i > n-2 {
		i = n - 2
	}
	return i, nil
}
