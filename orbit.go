package spacesim

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
)

const (
	eccentricityε = 5e-5                         // 0.00005
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
	distanceε     = 1e3                          // 1 km
)

// OrbitClass is the conic section described by an orbit.
type OrbitClass uint8

const (
	// Elliptical orbits have e < 1 (circular included).
	Elliptical OrbitClass = iota + 1
	// Parabolic orbits have e = 1 within eccentricityε.
	Parabolic
	// Hyperbolic orbits have e > 1 and a negative semi-major axis.
	Hyperbolic
)

func (c OrbitClass) String() string {
	switch c {
	case Elliptical:
		return "elliptical"
	case Parabolic:
		return "parabolic"
	case Hyperbolic:
		return "hyperbolic"
	default:
		panic(fmt.Errorf("unknown orbit class %d", c))
	}
}

// Orbit defines an osculating orbit via its orbital elements.
// For parabolic orbits the semi-major axis is infinite and p defines the size.
type Orbit struct {
	a, p, e, i, Ω, ω, ν float64
	μ                   float64
	Primary             Handle // Body this orbit is reckoned relative to
}

// Class returns the conic class of this orbit.
func (o Orbit) Class() OrbitClass {
	switch {
	case scalar.EqualWithinAbs(o.e, 1, eccentricityε):
		return Parabolic
	case o.e < 1:
		return Elliptical
	default:
		return Hyperbolic
	}
}

// GM returns the gravitational parameter of the primary body.
func (o Orbit) GM() float64 {
	return o.μ
}

// SemiMajorAxis returns a, which is +Inf for parabolic orbits and negative for hyperbolic ones.
func (o Orbit) SemiMajorAxis() float64 {
	return o.a
}

// Eccentricity returns e.
func (o Orbit) Eccentricity() float64 {
	return o.e
}

// Energyξ returns the specific mechanical energy ξ.
func (o Orbit) Energyξ() float64 {
	if o.Class() == Parabolic {
		return 0
	}
	return -o.μ / (2 * o.a)
}

// Tildeω returns the longitude of periapsis.
func (o Orbit) Tildeω() float64 {
	return math.Mod(o.ω+o.Ω, 2*math.Pi)
}

// TrueLongλ returns the *approximate* true longitude (cf. Vallado page 103).
// NOTE: One should only need this for equatorial orbits.
func (o Orbit) TrueLongλ() float64 {
	return math.Mod(o.ω+o.Ω+o.ν, 2*math.Pi)
}

// ArgLatitudeU returns the argument of latitude.
func (o Orbit) ArgLatitudeU() float64 {
	return math.Mod(o.ν+o.ω, 2*math.Pi)
}

// H returns the orbital angular momentum vector.
func (o Orbit) H() []float64 {
	return cross(o.RV())
}

// HNorm returns the norm of orbital angular momentum.
func (o Orbit) HNorm() float64 {
	return math.Sqrt(o.μ * o.p)
}

// SemiParameter returns the semi-latus rectum p.
func (o Orbit) SemiParameter() float64 {
	return o.p
}

// Apoapsis returns the apoapsis radius, or +Inf for open orbits.
func (o Orbit) Apoapsis() float64 {
	if o.Class() != Elliptical {
		return math.Inf(1)
	}
	return o.a * (1 + o.e)
}

// Periapsis returns the periapsis radius.
func (o Orbit) Periapsis() float64 {
	return o.p / (1 + o.e)
}

// Period returns the period of this orbit, which only exists for closed orbits.
func (o Orbit) Period() (time.Duration, error) {
	if o.Class() != Elliptical {
		return 0, fmt.Errorf("%s orbit has no period: %w", o.Class(), ErrUnsupportedOrbitClass)
	}
	seconds := 2 * math.Pi * math.Sqrt(math.Pow(o.a, 3)/o.μ)
	return time.Duration(seconds * float64(time.Second)), nil
}

// EccentricAnomaly returns E for elliptical orbits.
func (o Orbit) EccentricAnomaly() (float64, error) {
	if o.Class() != Elliptical {
		return 0, fmt.Errorf("eccentric anomaly of %s orbit: %w", o.Class(), ErrUnsupportedOrbitClass)
	}
	sinν, cosν := math.Sincos(o.ν)
	denom := 1 + o.e*cosν
	E := math.Atan2(math.Sqrt(1-o.e*o.e)*sinν/denom, (o.e+cosν)/denom)
	if E < 0 {
		E += 2 * math.Pi
	}
	return E, nil
}

// HyperbolicAnomaly returns F for hyperbolic orbits. The Acosh argument is only
// guaranteed to be at least one in that branch.
func (o Orbit) HyperbolicAnomaly() (float64, error) {
	if o.Class() != Hyperbolic {
		return 0, fmt.Errorf("hyperbolic anomaly of %s orbit: %w", o.Class(), ErrUnsupportedOrbitClass)
	}
	cosν := math.Cos(o.ν)
	F := math.Acosh(math.Max(1, (o.e+cosν)/(1+o.e*cosν)))
	if math.Sin(o.ν) < 0 {
		F = -F
	}
	return F, nil
}

// TimeSincePeriapsis returns the time elapsed since the last periapsis passage
// (or until the periapsis passage when negative, for open orbits).
func (o Orbit) TimeSincePeriapsis() float64 {
	switch o.Class() {
	case Elliptical:
		E, _ := o.EccentricAnomaly()
		return (E - o.e*math.Sin(E)) * math.Sqrt(math.Pow(o.a, 3)/o.μ)
	case Hyperbolic:
		F, _ := o.HyperbolicAnomaly()
		return (o.e*math.Sinh(F) - F) * math.Sqrt(math.Pow(-o.a, 3)/o.μ)
	default:
		D := math.Tan(o.ν / 2)
		return 0.5 * math.Sqrt(math.Pow(o.p, 3)/o.μ) * (D + D*D*D/3)
	}
}

// RV returns the position and velocity vectors in the inertial frame of the primary.
func (o Orbit) RV() ([]float64, []float64) {
	sinν, cosν := math.Sincos(o.ν)
	r := o.p / (1 + o.e*cosν)
	R := PQW2ECI(o.i, o.ω, o.Ω, []float64{r * cosν, r * sinν, 0})
	vf := math.Sqrt(o.μ / o.p)
	V := PQW2ECI(o.i, o.ω, o.Ω, []float64{-vf * sinν, vf * (o.e + cosν), 0})
	return R, V
}

// RNorm returns the norm of the radius vector, but without computing the radius vector.
func (o Orbit) RNorm() float64 {
	return o.p / (1 + o.e*math.Cos(o.ν))
}

// VNorm returns the norm of the velocity vector, but without computing the velocity vector.
func (o Orbit) VNorm() float64 {
	return math.Sqrt(2 * (o.μ/o.RNorm() + o.Energyξ()))
}

// State returns the state at time t corresponding to this orbit.
func (o Orbit) State(t float64) ObjectState {
	R, V := o.RV()
	return NewStateRV(t, R, V)
}

// Elements returns the classical elements, angles in radians.
func (o Orbit) Elements() (a, e, i, Ω, ω, ν float64) {
	return o.a, o.e, o.i, o.Ω, o.ω, o.ν
}

// String implements the stringer interface (hence the value receiver)
func (o Orbit) String() string {
	if o.e < eccentricityε {
		// Circular orbit
		if o.i > angleε {
			return fmt.Sprintf("a=%.1f e=%.4f i=%.3f Ω=%.3f u=%.3f", o.a, o.e, Rad2deg(o.i), Rad2deg(o.Ω), Rad2deg(o.ArgLatitudeU()))
		}
		// Equatorial
		return fmt.Sprintf("a=%.1f e=%.4f i=%.3f Ω=%.3f λ=%.3f", o.a, o.e, Rad2deg(o.i), Rad2deg(o.Ω), Rad2deg(o.TrueLongλ()))
	}
	if o.Class() == Parabolic {
		return fmt.Sprintf("p=%.1f e=%.4f i=%.3f Ω=%.3f ω=%.3f ν=%.3f", o.p, o.e, Rad2deg(o.i), Rad2deg(o.Ω), Rad2deg(o.ω), Rad2deg(o.ν))
	}
	return fmt.Sprintf("a=%.1f e=%.4f i=%.3f Ω=%.3f ω=%.3f ν=%.3f", o.a, o.e, Rad2deg(o.i), Rad2deg(o.Ω), Rad2deg(o.ω), Rad2deg(o.ν))
}

// Equals returns whether two orbits are identical with free true anomaly.
// Use StrictlyEquals to also check true anomaly.
func (o Orbit) Equals(o1 Orbit) (bool, error) {
	if o.Primary != o1.Primary {
		return false, errors.New("different primary")
	}
	if !scalar.EqualWithinRel(o.μ, o1.μ, 1e-12) {
		return false, errors.New("different gravitational parameter")
	}
	if !scalar.EqualWithinAbs(o.p, o1.p, distanceε) {
		return false, errors.New("semi parameter invalid")
	}
	if !scalar.EqualWithinAbs(o.e, o1.e, eccentricityε) {
		return false, errors.New("eccentricity invalid")
	}
	if !scalar.EqualWithinAbs(o.i, o1.i, angleε) {
		return false, errors.New("inclination invalid")
	}
	if o.i > angleε && !scalar.EqualWithinAbs(o.Ω, o1.Ω, angleε) {
		return false, errors.New("RAAN invalid")
	}
	if o.e < eccentricityε {
		// Circular orbit
		if o.i > angleε {
			// Inclined
			if ok, _ := anglesMatch(o.ArgLatitudeU(), o1.ArgLatitudeU()); !ok {
				return false, errors.New("argument of latitude invalid")
			}
		} else if ok, _ := anglesMatch(o.TrueLongλ(), o1.TrueLongλ()); !ok {
			// Equatorial
			return false, errors.New("true longitude invalid")
		}
	} else if ok, _ := anglesMatch(o.ω, o1.ω); !ok {
		return false, errors.New("argument of perigee invalid")
	}
	return true, nil
}

// StrictlyEquals returns whether two orbits are identical.
func (o Orbit) StrictlyEquals(o1 Orbit) (bool, error) {
	// Only check for non circular orbits
	if o.e > eccentricityε {
		if ok, _ := anglesMatch(o.ν, o1.ν); !ok {
			return false, errors.New("true anomaly invalid")
		}
	}
	return o.Equals(o1)
}

// anglesMatch compares two angles modulo 2π.
func anglesMatch(a, b float64) (bool, float64) {
	δ := math.Mod(a-b+3*math.Pi, 2*math.Pi) - math.Pi
	if δ < -math.Pi {
		δ += 2 * math.Pi
	}
	return math.Abs(δ) < angleε, δ
}

// NewOrbitFromOE creates an orbit from the orbital elements.
// a is the semi-major axis for non parabolic orbits and the semi parameter otherwise.
// WARNING: Angles must be in degrees not radian.
func NewOrbitFromOE(a, e, i, Ω, ω, ν, μ float64, primary Handle) Orbit {
	o := Orbit{a: a, e: e, i: Deg2rad(i), Ω: Deg2rad(Ω), ω: Deg2rad(ω), ν: Deg2rad(ν), μ: μ, Primary: primary}
	if o.Class() == Parabolic {
		o.p = a
		o.a = math.Inf(1)
	} else {
		o.p = a * (1 - e*e)
	}
	return o
}

// NewOrbitFromRV returns orbital elements from the R and V vectors.
func NewOrbitFromRV(R, V []float64, μ float64, primary Handle) Orbit {
	// From Vallado's RV2COE, page 113
	hVec := cross(R, V)
	h := norm(hVec)
	n := cross([]float64{0, 0, 1}, hVec)
	v := norm(V)
	r := norm(R)
	rv := dot(R, V)
	ξ := (v*v)/2 - μ/r
	eVec := make([]float64, 3)
	for i := 0; i < 3; i++ {
		eVec[i] = ((v*v-μ/r)*R[i] - rv*V[i]) / μ
	}
	e := norm(eVec)
	p := h * h / μ
	a := -μ / (2 * ξ)
	if scalar.EqualWithinAbs(e, 1, eccentricityε) {
		a = math.Inf(1)
	}
	i := math.Acos(clamp(hVec[2]/h, -1, 1))
	equatorial := norm(n) < 1e-9*h
	circular := e < eccentricityε

	var Ω, ω, ν float64
	if !equatorial {
		Ω = math.Acos(clamp(n[0]/norm(n), -1, 1))
		if n[1] < 0 {
			Ω = 2*math.Pi - Ω
		}
	}
	switch {
	case circular && equatorial:
		// True longitude stored as ν.
		ν = math.Acos(clamp(R[0]/r, -1, 1))
		if R[1]*sign(hVec[2]) < 0 {
			ν = 2*math.Pi - ν
		}
	case circular:
		// Argument of latitude stored as ν.
		ν = math.Acos(clamp(dot(n, R)/(norm(n)*r), -1, 1))
		if R[2] < 0 {
			ν = 2*math.Pi - ν
		}
	default:
		if equatorial {
			ω = math.Atan2(eVec[1], eVec[0]) * sign(hVec[2])
			if ω < 0 {
				ω += 2 * math.Pi
			}
		} else {
			ω = math.Acos(clamp(dot(n, eVec)/(norm(n)*e), -1, 1))
			if eVec[2] < 0 {
				ω = 2*math.Pi - ω
			}
		}
		ν = math.Acos(clamp(dot(eVec, R)/(e*r), -1, 1))
		if rv < 0 {
			ν = 2*math.Pi - ν
		}
	}
	// Fix rounding errors.
	return Orbit{a: a, p: p, e: e, i: math.Mod(i, 2*math.Pi), Ω: math.Mod(Ω, 2*math.Pi), ω: math.Mod(ω, 2*math.Pi), ν: math.Mod(ν, 2*math.Pi), μ: μ, Primary: primary}
}

// NewOrbitFromState returns the osculating orbit of a state relative to a primary of parameter μ.
func NewOrbitFromState(s ObjectState, μ float64, primary Handle) Orbit {
	return NewOrbitFromRV(s.Position, s.Velocity, μ, primary)
}

// Helper functions go here.

// Radii2ae returns the semi major axis and the eccentricty from the radii.
func Radii2ae(rA, rP float64) (a, e float64) {
	if rA < rP {
		panic("periapsis cannot be greater than apoapsis")
	}
	a = (rP + rA) / 2
	e = (rA - rP) / (rA + rP)
	return
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
