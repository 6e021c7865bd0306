package field

import (
	"fmt"
	"math"
)

// metersPerDegree is the length of one degree of longitude at the equator,
// in meters, under the nautical-mile approximation (1 degree = 60 minutes,
// 1 minute = 1 nautical mile = 1852 m).
const metersPerDegree = 1000.0 * 1.852 * 60.0

// Converter transforms sampled field values between the grid's storage unit
// and the unit consumer code works in, and emits the matching coefficient
// expression for generated C. The runtime transform and the generated
// coefficient must be numerically equivalent for the same (x, y); the
// compiled and interpreted execution paths rely on that parity.
type Converter interface {
	// ToTarget converts a raw grid value sampled at (x, y) into target units.
	ToTarget(v, x, y float64) float64
	// ToSource converts a target-unit value at (x, y) back to grid units.
	ToSource(v, x, y float64) float64
	// CodeToTarget returns a C expression for the ToTarget coefficient,
	// with xExpr and yExpr substituted for the sample coordinates.
	CodeToTarget(xExpr, yExpr string) string
	// CodeToSource returns the inverse coefficient expression.
	CodeToSource(xExpr, yExpr string) string
	// Kind identifies the converter variant for kernel cache keys.
	Kind() string
}

// Identity passes values through unchanged.
type Identity struct{}

func (Identity) ToTarget(v, x, y float64) float64     { return v }
func (Identity) ToSource(v, x, y float64) float64     { return v }
func (Identity) CodeToTarget(xExpr, yExpr string) string { return "1.0" }
func (Identity) CodeToSource(xExpr, yExpr string) string { return "1.0" }
func (Identity) Kind() string                         { return "identity" }

// Geographic converts meters to degrees at the equator approximation.
// Appropriate for meridional (north-south) velocity components, where a
// degree of latitude has constant metric length.
type Geographic struct{}

func (Geographic) ToTarget(v, x, y float64) float64 { return v / metersPerDegree }
func (Geographic) ToSource(v, x, y float64) float64 { return v * metersPerDegree }

func (Geographic) CodeToTarget(xExpr, yExpr string) string {
	return "(1.0 / (1000.0 * 1.852 * 60.0))"
}

func (Geographic) CodeToSource(xExpr, yExpr string) string {
	return "(1000.0 * 1.852 * 60.0)"
}

func (Geographic) Kind() string { return "geographic" }

// GeographicPolar converts meters to degrees of longitude, correcting for
// the convergence of meridians toward the poles: a degree of longitude at
// latitude y spans cos(y) times its equatorial length.
type GeographicPolar struct{}

func (GeographicPolar) ToTarget(v, x, y float64) float64 {
	return v / metersPerDegree / math.Cos(y*math.Pi/180.0)
}

func (GeographicPolar) ToSource(v, x, y float64) float64 {
	return v * metersPerDegree * math.Cos(y*math.Pi/180.0)
}

func (GeographicPolar) CodeToTarget(xExpr, yExpr string) string {
	return fmt.Sprintf("(1.0 / (1000.0 * 1.852 * 60.0) / cos(%s * M_PI / 180.0))", yExpr)
}

func (GeographicPolar) CodeToSource(xExpr, yExpr string) string {
	return fmt.Sprintf("((1000.0 * 1.852 * 60.0) * cos(%s * M_PI / 180.0))", yExpr)
}

func (GeographicPolar) Kind() string { return "geographicpolar" }
