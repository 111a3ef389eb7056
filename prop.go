package spacesim

import (
	"fmt"
	"math"
)

// ControlLaw defines an enum of control laws.
type ControlLaw uint8

const (
	coast ControlLaw = iota + 1
	prograde
	retrograde
	radial
	normal
	inertial
	inversion
	// OptiΔaCL allows to optimize thrust for semi major axis change
	OptiΔaCL
	// OptiΔiCL allows to optimize thrust for inclination change
	OptiΔiCL
	// OptiΔeCL allows to optimize thrust for eccentricity change
	OptiΔeCL
	// OptiΔΩCL allows to optimize thrust forRAAN change
	OptiΔΩCL
	// OptiΔωCL allows to optimize thrust for argument of perigee change
	OptiΔωCL
)

func (cl ControlLaw) String() string {
	switch cl {
	case coast:
		return "coast"
	case prograde:
		return "prograde"
	case retrograde:
		return "retrograde"
	case radial:
		return "radial"
	case normal:
		return "normal"
	case inertial:
		return "inertial"
	case inversion:
		return "inversion"
	case OptiΔaCL:
		return "optiΔa"
	case OptiΔeCL:
		return "optiΔe"
	case OptiΔiCL:
		return "optiΔi"
	case OptiΔΩCL:
		return "optiΔΩ"
	case OptiΔωCL:
		return "optiΔω"
	}
	panic("cannot stringify unknown control law")
}

// ThrustControl defines a thrust control interface. Control returns the unit thrust
// direction in the inertial frame of the primary body of gravitational parameter μ.
type ThrustControl interface {
	Control(s ObjectState, μ float64) []float64
	Type() ControlLaw
	Reason() string
}

// GenericCL partially defines a ThrustControl.
type GenericCL struct {
	reason string
	cl     ControlLaw
}

// Reason implements the ThrustControl interface.
func (cl GenericCL) Reason() string {
	return cl.reason
}

// Type implements the ThrustControl interface.
func (cl GenericCL) Type() ControlLaw {
	return cl.cl
}

func newGenericCLFromCL(cl ControlLaw) GenericCL {
	return GenericCL{cl.String(), cl}
}

// RCN2Inertial converts a vector from the radial, circumferential, normal frame of a state
// to the inertial frame.
func RCN2Inertial(s ObjectState, v []float64) []float64 {
	r := unit(s.Position)
	n := unit(s.H())
	if norm(n) == 0 {
		// Purely radial motion: pick any normal.
		n = unit(cross(r, []float64{0, 0, 1}))
		if norm(n) == 0 {
			n = unit(cross(r, []float64{1, 0, 0}))
		}
	}
	c := cross(n, r)
	o := make([]float64, 3)
	for i := 0; i < 3; i++ {
		o[i] = v[0]*r[i] + v[1]*c[i] + v[2]*n[i]
	}
	return o
}

/* Let's define some control laws. */

// Coast defines an thrust control law which does not thrust.
type Coast struct{}

// Reason implements the ThrustControl interface.
func (cl Coast) Reason() string {
	return "coast"
}

// Type implements the ThrustControl interface.
func (cl Coast) Type() ControlLaw {
	return coast
}

// Control implements the ThrustControl interface.
func (cl Coast) Control(s ObjectState, μ float64) []float64 {
	return []float64{0, 0, 0}
}

// Prograde thrusts along the velocity vector, or radially outward when at rest.
type Prograde struct{}

// Reason implements the ThrustControl interface.
func (cl Prograde) Reason() string {
	return "prograde"
}

// Type implements the ThrustControl interface.
func (cl Prograde) Type() ControlLaw {
	return prograde
}

// Control implements the ThrustControl interface.
func (cl Prograde) Control(s ObjectState, μ float64) []float64 {
	if s.VNorm() == 0 {
		return unit(s.Position)
	}
	return unit(s.Velocity)
}

// Retrograde thrusts against the velocity vector.
type Retrograde struct{}

// Reason implements the ThrustControl interface.
func (cl Retrograde) Reason() string {
	return "retrograde"
}

// Type implements the ThrustControl interface.
func (cl Retrograde) Type() ControlLaw {
	return retrograde
}

// Control implements the ThrustControl interface.
func (cl Retrograde) Control(s ObjectState, μ float64) []float64 {
	return scale(-1, Prograde{}.Control(s, μ))
}

// Radial thrusts away from the primary body, or toward it if Inward is set.
type Radial struct {
	Inward bool
}

// Reason implements the ThrustControl interface.
func (cl Radial) Reason() string {
	if cl.Inward {
		return "anti-radial"
	}
	return "radial"
}

// Type implements the ThrustControl interface.
func (cl Radial) Type() ControlLaw {
	return radial
}

// Control implements the ThrustControl interface.
func (cl Radial) Control(s ObjectState, μ float64) []float64 {
	if cl.Inward {
		return RCN2Inertial(s, []float64{-1, 0, 0})
	}
	return RCN2Inertial(s, []float64{1, 0, 0})
}

// Normal thrusts along the orbital angular momentum, or against it if Anti is set.
type Normal struct {
	Anti bool
}

// Reason implements the ThrustControl interface.
func (cl Normal) Reason() string {
	if cl.Anti {
		return "anti-normal"
	}
	return "normal"
}

// Type implements the ThrustControl interface.
func (cl Normal) Type() ControlLaw {
	return normal
}

// Control implements the ThrustControl interface.
func (cl Normal) Control(s ObjectState, μ float64) []float64 {
	if cl.Anti {
		return RCN2Inertial(s, []float64{0, 0, -1})
	}
	return RCN2Inertial(s, []float64{0, 0, 1})
}

// FixedInertial thrusts in a constant inertial direction.
type FixedInertial struct {
	Direction []float64
	GenericCL
}

// Control implements the ThrustControl interface.
func (cl FixedInertial) Control(s ObjectState, μ float64) []float64 {
	return unit(cl.Direction)
}

// NewFixedInertial returns a control law thrusting along the provided direction.
func NewFixedInertial(direction []float64) FixedInertial {
	return FixedInertial{copyVec(direction), newGenericCLFromCL(inertial)}
}

// Inversion keeps the thrust as tangential but inverts its direction within an angle from the orbit apogee.
// This leads to collisions with main body if the orbit isn't circular enough.
// cf. Izzo et al. (https://arxiv.org/pdf/1602.00849v2.pdf)
type Inversion struct {
	ν float64
	GenericCL
}

// Control implements the ThrustControl interface.
func (cl Inversion) Control(s ObjectState, μ float64) []float64 {
	o := NewOrbitFromState(s, μ, NoHandle)
	f := o.ν
	if o.e > 0.01 || (f > cl.ν-math.Pi && f < math.Pi-cl.ν) {
		return RCN2Inertial(s, []float64{0, 1, 0})
	}
	return RCN2Inertial(s, []float64{0, -1, 0})
}

// NewInversionCL defines a new inversion control law.
func NewInversionCL(ν float64) Inversion {
	return Inversion{ν, newGenericCLFromCL(inversion)}
}

/* Following optimal thrust change are from IEPC 2011's paper:
Low-Thrust Maneuvers for the Efficient Correction of Orbital Elements
A. Ruggiero, S. Marcuccio and M. Andrenucci */

func unitΔvFromAngles(α, β float64) []float64 {
	sinα, cosα := math.Sincos(α)
	sinβ, cosβ := math.Sincos(β)
	return []float64{sinα * cosβ, cosα * cosβ, sinβ}
}

// OptimalThrust is an optimal thrust.
type OptimalThrust struct {
	ctrl func(o Orbit) []float64
	GenericCL
}

// Control implements the ThrustControl interface.
func (cl OptimalThrust) Control(s ObjectState, μ float64) []float64 {
	return RCN2Inertial(s, cl.ctrl(NewOrbitFromState(s, μ, NoHandle)))
}

// NewOptimalThrust returns a new optimal thrust for the provided orbital element.
func NewOptimalThrust(cl ControlLaw, reason string) ThrustControl {
	var ctrl func(o Orbit) []float64
	switch cl {
	case OptiΔaCL:
		ctrl = func(o Orbit) []float64 {
			sinν, cosν := math.Sincos(o.ν)
			return unitΔvFromAngles(math.Atan2(o.e*sinν, 1+o.e*cosν), 0.0)
		}
	case OptiΔeCL:
		ctrl = func(o Orbit) []float64 {
			E, err := o.EccentricAnomaly()
			if err != nil {
				return []float64{0, 0, 0}
			}
			sinν, cosν := math.Sincos(o.ν)
			return unitΔvFromAngles(math.Atan2(sinν, cosν+math.Cos(E)), 0.0)
		}
	case OptiΔiCL:
		ctrl = func(o Orbit) []float64 {
			return unitΔvFromAngles(0.0, sign(math.Cos(o.ω+o.ν))*math.Pi/2)
		}
	case OptiΔΩCL:
		ctrl = func(o Orbit) []float64 {
			return unitΔvFromAngles(0.0, sign(math.Sin(o.ω+o.ν))*math.Pi/2)
		}
	case OptiΔωCL:
		// The argument of periapsis control is from Petropoulos and in plane.
		// The out of plane will change other orbital elements at the same time.
		// We determine which one to use based on the efficiency of each.
		ctrl = func(o Orbit) []float64 {
			oe2 := 1 - math.Pow(o.e, 2)
			e3 := math.Pow(o.e, 3)
			νOptiα := math.Acos(math.Pow(oe2/(2*e3)+math.Sqrt(0.25*math.Pow(oe2/e3, 2)+1/27.), 1/3.) - math.Pow(-oe2/(2*e3)+math.Sqrt(0.25*math.Pow(oe2/e3, 2)+1/27.), 1/3.) - 1/o.e)
			νOptiβ := math.Acos(-o.e*math.Cos(o.ω)) - o.ω
			if math.Abs(o.ν-νOptiα) < math.Abs(o.ν-νOptiβ) {
				// The true anomaly is closer to the optimal in plane thrust, so let's do an in-plane thrust.
				p := o.SemiParameter()
				sinν, cosν := math.Sincos(o.ν)
				return unitΔvFromAngles(math.Atan2(-p*cosν, (p+o.RNorm())*sinν), 0.0)
			}
			return unitΔvFromAngles(0.0, sign(-math.Sin(o.ω+o.ν))*math.Cos(o.i)*math.Pi/2)
		}
	default:
		panic(fmt.Errorf("optmized %s not yet implemented", cl))
	}
	return OptimalThrust{ctrl, GenericCL{reason, cl}}
}

// ControlFromString returns a thrust control law from its name.
func ControlFromString(name string) (ThrustControl, error) {
	switch name {
	case "coast":
		return Coast{}, nil
	case "prograde", "":
		return Prograde{}, nil
	case "retrograde":
		return Retrograde{}, nil
	case "radial":
		return Radial{}, nil
	case "antiradial":
		return Radial{Inward: true}, nil
	case "normal":
		return Normal{}, nil
	case "antinormal":
		return Normal{Anti: true}, nil
	case "optiΔa", "optida":
		return NewOptimalThrust(OptiΔaCL, "Δa"), nil
	case "optiΔe", "optide":
		return NewOptimalThrust(OptiΔeCL, "Δe"), nil
	case "optiΔi", "optidi":
		return NewOptimalThrust(OptiΔiCL, "Δi"), nil
	default:
		return nil, fmt.Errorf("unknown control law '%s'", name)
	}
}
