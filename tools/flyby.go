package tools

import (
	"math"

	"github.com/ChristopherRabotin/spacesim"
	"gonum.org/v1/gonum/spatial/r3"
)

// Flyby is the hyperbolic geometry of a gravity assist about a body. Angles are in radians.
type Flyby struct {
	TurnAngle float64 // ψ, between the incoming and outgoing excess velocities
	Periapsis float64 // m
	BT, BR, B float64 // B-plane components, m
	θ         float64 // angle of the B vector from the R axis
}

// Angle returns the angle of the B vector from the R axis of the B-plane.
func (f Flyby) Angle() float64 {
	return f.θ
}

// TurnAngle computes the turn angle about a body of gravitational parameter μ based on the
// radius of periapsis.
func TurnAngle(vInf, rP, μ float64) float64 {
	ρ := math.Acos(1 / (1 + vInf*vInf*(rP/μ)))
	return math.Pi - 2*ρ
}

// FlybyFromVinf computes the gravity assist about a body from the V infinity vectors, expressed
// in the inertial frame of the body.
func FlybyFromVinf(vInfInVec, vInfOutVec []float64, body spacesim.CelestialObject) Flyby {
	μ := body.GM()
	in := r3.Vec{X: vInfInVec[0], Y: vInfInVec[1], Z: vInfInVec[2]}
	out := r3.Vec{X: vInfOutVec[0], Y: vInfOutVec[1], Z: vInfOutVec[2]}
	vInfIn := r3.Norm(in)
	ψ := math.Acos(clampUnit(r3.Dot(in, out) / (vInfIn * r3.Norm(out))))
	rP := (μ / (vInfIn * vInfIn)) * (1/math.Cos((math.Pi-ψ)/2) - 1)
	sHat := r3.Unit(in)
	tHat := r3.Unit(r3.Cross(sHat, r3.Vec{Z: 1}))
	rHat := r3.Unit(r3.Cross(sHat, tHat))
	hHat := r3.Unit(r3.Cross(in, out))
	bVal := (μ / (vInfIn * vInfIn)) * math.Sqrt(math.Pow(1+vInfIn*vInfIn*(rP/μ), 2)-1)
	bVec := r3.Scale(bVal, r3.Unit(r3.Cross(sHat, hHat)))
	f := Flyby{TurnAngle: ψ, Periapsis: rP, BT: r3.Dot(bVec, tHat), BR: r3.Dot(bVec, rHat), B: r3.Norm(bVec)}
	f.θ = math.Atan2(f.BT, f.BR)
	return f
}

func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}
