package spacesim

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Perturbations defines which non Keplerian accelerations act on an object during Cowell propagation.
type Perturbations struct {
	J2        bool                                     // Use the J2 zonal harmonic of the primary body
	Arbitrary func(t float64, s ObjectState) []float64 // Additional arbitrary acceleration, in m/s^2.
}

func (p Perturbations) isEmpty() bool {
	return !p.J2 && p.Arbitrary == nil
}

// Perturb returns the perturbing acceleration on a state relative to the provided primary body.
func (p Perturbations) Perturb(primary Configuration, s ObjectState) []float64 {
	pert := make([]float64, 3)
	if p.isEmpty() {
		return pert
	}
	if p.J2 && primary.J2 != 0 {
		floats.Add(pert, J2Acceleration(primary, s.Position))
	}
	if p.Arbitrary != nil {
		// Add the arbitrary perturbations
		floats.Add(pert, p.Arbitrary(s.Time, s))
	}
	return pert
}

// J2Acceleration returns the acceleration due to the oblateness of the primary body,
// assuming its equator is the XY plane of the frame.
func J2Acceleration(primary Configuration, R []float64) []float64 {
	x := R[0]
	y := R[1]
	z := R[2]
	z2 := z * z
	z3 := z2 * z
	r2 := x*x + y*y + z2
	r252 := math.Pow(r2, 5/2.)
	r272 := math.Pow(r2, 7/2.)
	accJ2 := (3 / 2.) * primary.J2 * primary.Radius * primary.Radius * primary.GM()
	return []float64{
		accJ2 * (5*x*z2/r272 - x/r252),
		accJ2 * (5*y*z2/r272 - y/r252),
		accJ2 * (5*z3/r272 - 3*z/r252),
	}
}

// ThirdBodyAcceleration returns the differential pull of a perturbing body of parameter μ
// at position pertR on an object at scR, both relative to the main body.
func ThirdBodyAcceleration(μ float64, scR, pertR []float64) []float64 {
	scPert := sub(pertR, scR) // r_{i/sc} of spacecraft to pertubing body.
	relPertRNorm3 := math.Pow(norm(pertR), 3)
	scPertNorm3 := math.Pow(norm(scPert), 3)
	pert := make([]float64, 3)
	for i := 0; i < 3; i++ {
		pert[i] = μ * (scPert[i]/scPertNorm3 - pertR[i]/relPertRNorm3)
	}
	return pert
}
