package kernel

import (
	"github.com/pthm-cable/drift/field"
	"github.com/pthm-cable/drift/particle"
)

// Velocity field keys the built-in advection kernels sample.
const (
	FieldU = "U"
	FieldV = "V"
)

func sampleAt(fieldKey string, t, x, y Expr) FieldAt {
	return FieldAt{Field: fieldKey, Time: t, X: x, Y: y}
}

func local(n string) Local  { return Local{Name: n} }
func attr(n string) Attr    { return Attr{Name: n} }
func param(n string) Param  { return Param{Name: n} }
func lit(v float64) FloatLit { return FloatLit{Value: v} }

func add(a, b Expr) Binary { return Binary{Op: "+", Left: a, Right: b} }
func mul(a, b Expr) Binary { return Binary{Op: "*", Left: a, Right: b} }
func div(a, b Expr) Binary { return Binary{Op: "/", Left: a, Right: b} }

// AdvectionEuler builds the explicit Euler advection kernel: both velocity
// components are sampled at the particle's current position before either
// coordinate is updated.
func AdvectionEuler(ptype *particle.Type, u, v *field.Field) (*Kernel, error) {
	fields := map[string]*field.Field{FieldU: u, FieldV: v}
	lon, lat := attr(particle.VarLon), attr(particle.VarLat)
	t, dt := param("time"), param("dt")

	return New("AdvectionEuler", ptype, fields,
		[]string{"u1", "v1"},
		Assign{Target: local("u1"), Value: sampleAt(FieldU, t, lon, lat)},
		Assign{Target: local("v1"), Value: sampleAt(FieldV, t, lon, lat)},
		Assign{Target: lon, Value: add(lon, mul(local("u1"), dt))},
		Assign{Target: lat, Value: add(lat, mul(local("v1"), dt))},
	)
}

// AdvectionRK4 builds the classic fourth-order Runge-Kutta advection
// kernel over a 2D velocity field pair.
func AdvectionRK4(ptype *particle.Type, u, v *field.Field) (*Kernel, error) {
	fields := map[string]*field.Field{FieldU: u, FieldV: v}
	lon, lat := attr(particle.VarLon), attr(particle.VarLat)
	t, dt := param("time"), param("dt")
	halfdt := mul(lit(0.5), dt)
	thalf := add(t, halfdt)
	tfull := add(t, dt)

	stage := func(uk, vk string, at Expr, x, y Expr) []Stmt {
		return []Stmt{
			Assign{Target: local(uk), Value: sampleAt(FieldU, at, x, y)},
			Assign{Target: local(vk), Value: sampleAt(FieldV, at, x, y)},
		}
	}
	shift := func(xk, yk string, uk, vk string, step Expr) []Stmt {
		return []Stmt{
			Assign{Target: local(xk), Value: add(lon, mul(local(uk), step))},
			Assign{Target: local(yk), Value: add(lat, mul(local(vk), step))},
		}
	}

	var body []Stmt
	body = append(body, stage("u1", "v1", t, lon, lat)...)
	body = append(body, shift("lon1", "lat1", "u1", "v1", halfdt)...)
	body = append(body, stage("u2", "v2", thalf, local("lon1"), local("lat1"))...)
	body = append(body, shift("lon2", "lat2", "u2", "v2", halfdt)...)
	body = append(body, stage("u3", "v3", thalf, local("lon2"), local("lat2"))...)
	body = append(body, shift("lon3", "lat3", "u3", "v3", dt)...)
	body = append(body, stage("u4", "v4", tfull, local("lon3"), local("lat3"))...)

	weight := func(k1, k2, k3, k4 string) Expr {
		sum := add(add(local(k1), mul(lit(2), local(k2))), add(mul(lit(2), local(k3)), local(k4)))
		return mul(div(sum, lit(6)), dt)
	}
	body = append(body,
		Assign{Target: lon, Value: add(lon, weight("u1", "u2", "u3", "u4"))},
		Assign{Target: lat, Value: add(lat, weight("v1", "v2", "v3", "v4"))},
	)

	locals := []string{
		"u1", "v1", "u2", "v2", "u3", "v3", "u4", "v4",
		"lon1", "lat1", "lon2", "lat2", "lon3", "lat3",
	}
	return New("AdvectionRK4", ptype, fields, locals, body...)
}
