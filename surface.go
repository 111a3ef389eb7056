package spacesim

import "gonum.org/v1/gonum/num/quat"

// SurfaceStep returns the state of an object resting on the surface of its primary body
// Δt seconds later: it rigidly rotates with the primary.
func SurfaceStep(primary Configuration, s ObjectState, Δt float64) ObjectState {
	rate := primary.RotationRate()
	if rate == 0 {
		return NewObjectState(s.Time+Δt, s.Position, []float64{0, 0, 0}, s.Orientation, s.AngularMomentum)
	}
	axis := primary.Axis()
	rot := AxisAngle(axis, rate*Δt)
	R := RotateVec(rot, s.Position)
	V := cross(scale(rate, axis), R)
	return NewObjectState(s.Time+Δt, R, V, quat.Mul(rot, s.Orientation), s.AngularMomentum)
}

// Altitude returns the height of a state above the mean surface of its primary body.
func Altitude(primary Configuration, s ObjectState) float64 {
	return s.RNorm() - primary.Radius
}
