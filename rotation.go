package spacesim

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R2 rotation about the 2nd axis.
func R2(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, 0, -s, 0, 1, 0, s, 0, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// PQW2ECI converts a perifocal vector to the inertial frame of the primary body.
func PQW2ECI(i, ω, Ω float64, vI []float64) []float64 {
	var m1, m2 mat.Dense
	m1.Mul(R3(-Ω), R1(-i))
	m2.Mul(&m1, R3(-ω))
	return MxV33(&m2, vI)
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m mat.Matrix, v []float64) (o []float64) {
	vVec := mat.NewVecDense(len(v), v)
	var rVec mat.VecDense
	rVec.MulVec(m, vVec)
	return []float64{rVec.AtVec(0), rVec.AtVec(1), rVec.AtVec(2)}
}

/* Attitude helpers. Orientations are unit quaternions mapping body to inertial frame. */

// IdentityAttitude is the orientation aligned with the inertial frame.
var IdentityAttitude = quat.Number{Real: 1}

// AxisAngle returns the rotation of angle θ (radians) about the provided axis.
func AxisAngle(axis []float64, θ float64) quat.Number {
	u := unit(axis)
	s, c := math.Sincos(θ / 2)
	return quat.Number{Real: c, Imag: s * u[0], Jmag: s * u[1], Kmag: s * u[2]}
}

// RotateVec rotates v by the unit quaternion q.
func RotateVec(q quat.Number, v []float64) []float64 {
	p := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return []float64{r.Imag, r.Jmag, r.Kmag}
}

// normalizeAttitude returns q scaled to unit norm, or the identity for a null quaternion.
func normalizeAttitude(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) {
		return IdentityAttitude
	}
	return quat.Scale(1/n, q)
}
