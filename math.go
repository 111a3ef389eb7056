package spacesim

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

const (
	deg2rad = math.Pi / 180
	// GravitationalConstant is G in m^3/(kg s^2).
	GravitationalConstant = 6.67430e-11
	// StandardGravity is g0 in m/s^2, used to convert specific impulse to exhaust velocity.
	StandardGravity = 9.80665
)

// norm returns the norm of a given vector which is supposed to be 3x1.
func norm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// unit returns the unit vector of a given vector.
func unit(a []float64) (b []float64) {
	n := norm(a)
	if scalar.EqualWithinAbs(n, 0, 1e-12) {
		return []float64{0, 0, 0}
	}
	b = make([]float64, len(a))
	for i, val := range a {
		b[i] = val / n
	}
	return
}

// sign returns the sign of a given number.
func sign(v float64) float64 {
	if scalar.EqualWithinAbs(v, 0, 1e-12) {
		return 1
	}
	return v / math.Abs(v)
}

// dot performs the inner product via mat/BLAS.
func dot(a, b []float64) float64 {
	return mat.Dot(mat.NewVecDense(len(a), a), mat.NewVecDense(len(b), b))
}

// cross performs the cross product.
func cross(a, b []float64) []float64 {
	return []float64{a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0]} // Cross product R x V.
}

// add returns a+b without touching either operand.
func add(a, b []float64) []float64 {
	c := make([]float64, len(a))
	floats.AddTo(c, a, b)
	return c
}

// sub returns a-b without touching either operand.
func sub(a, b []float64) []float64 {
	c := make([]float64, len(a))
	floats.SubTo(c, a, b)
	return c
}

// scale returns f*a as a new vector.
func scale(f float64, a []float64) []float64 {
	c := make([]float64, len(a))
	floats.ScaleTo(c, f, a)
	return c
}

// copyVec returns a copy of the vector, or a zero 3-vector if nil.
func copyVec(a []float64) []float64 {
	if a == nil {
		return []float64{0, 0, 0}
	}
	c := make([]float64, len(a))
	copy(c, a)
	return c
}

// finite returns whether every component is a finite number.
func finite(a []float64) bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Deg2rad converts degrees to radians, and enforced only positive numbers.
func Deg2rad(a float64) float64 {
	if a < 0 {
		a += 360
	}
	return math.Mod(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts radians to degrees, and enforced only positive numbers.
func Rad2deg(a float64) float64 {
	if a < 0 {
		a += 2 * math.Pi
	}
	return math.Mod(a/deg2rad, 360)
}
