package spacesim

import "fmt"

// Engine defines anything which produces thrust by expelling propellant.
type Engine interface {
	// Returns the thrust in Newtons and isp in seconds.
	Thrust() (thrust, isp float64)
}

// MassFlowRate returns the propellant consumption of an engine in kg/s.
func MassFlowRate(e Engine) float64 {
	thrust, isp := e.Thrust()
	if isp <= 0 {
		return 0
	}
	return thrust / (StandardGravity * isp)
}

// ExhaustVelocity returns the effective exhaust velocity of a given specific impulse.
func ExhaustVelocity(isp float64) float64 {
	return isp * StandardGravity
}

// EPThruster defines an electric propulsion thruster which operates at discrete set points.
type EPThruster interface {
	// Returns the minimum power and voltage requirements for this EPThruster.
	Min() (voltage, power uint)
	// Returns the max power and voltage requirements for this EPThruster.
	Max() (voltage, power uint)
	// Returns the thrust in Newtons and isp consumed in seconds.
	ThrustAt(voltage, power uint) (thrust, isp float64)
}

// EPEngine is an electric thruster running at a fixed set point.
type EPEngine struct {
	Thruster       EPThruster
	Voltage, Power uint
}

// Thrust implements the Engine interface.
func (e EPEngine) Thrust() (thrust, isp float64) {
	return e.Thruster.ThrustAt(e.Voltage, e.Power)
}

// NewEPEngine returns an engine running the thruster at its maximum set point.
func NewEPEngine(t EPThruster) EPEngine {
	v, p := t.Max()
	return EPEngine{t, v, p}
}

/* Available EPThrusters */

// PPS1350 is the Snecma EPThruster used on SMART-1.
type PPS1350 struct{}

// Min implements the EPThruster interface.
func (t *PPS1350) Min() (voltage, power uint) {
	return t.Max()
}

// Max implements the EPThruster interface.
func (t *PPS1350) Max() (voltage, power uint) {
	return 350, 2500
}

// ThrustAt implements the EPThruster interface.
func (t *PPS1350) ThrustAt(voltage, power uint) (thrust, isp float64) {
	if voltage == 350 && power == 2500 {
		return 89e-3, 1650
	}
	panic("unsupported voltage or power provided")
}

// HERMeS is based on the NASA & Rocketdyne 12.5kW demo
type HERMeS struct{}

// Min implements the EPThruster interface.
func (t *HERMeS) Min() (voltage, power uint) {
	return t.Max()
}

// Max implements the EPThruster interface.
func (t *HERMeS) Max() (voltage, power uint) {
	return 800, 12500
}

// ThrustAt implements the EPThruster interface.
func (t *HERMeS) ThrustAt(voltage, power uint) (thrust, isp float64) {
	if voltage == 800 && power == 12500 {
		return 0.680, 2960
	}
	panic("unsupported voltage or power provided")
}

// GenericEngine is an engine of constant thrust and isp, chemical or electric.
type GenericEngine struct {
	Name   string
	thrust float64
	isp    float64
}

// Thrust implements the Engine interface.
func (t GenericEngine) Thrust() (thrust, isp float64) {
	return t.thrust, t.isp
}

func (t GenericEngine) String() string {
	return fmt.Sprintf("%s (%.1f N, %.0f s)", t.Name, t.thrust, t.isp)
}

// NewGenericEngine returns an engine of constant performance.
func NewGenericEngine(name string, thrust, isp float64) GenericEngine {
	return GenericEngine{name, thrust, isp}
}

/* Chemical engines, vacuum performance. */

// Merlin1D is the first stage engine of the Falcon 9.
var Merlin1D = NewGenericEngine("Merlin 1D", 914e3, 311)

// Merlin1DVac is the second stage engine of the Falcon 9.
var Merlin1DVac = NewGenericEngine("Merlin 1D Vacuum", 981e3, 348)

// RL10 is the Centaur upper stage engine.
var RL10 = NewGenericEngine("RL10", 110e3, 465)

// EngineFromString returns a catalogued engine from its name.
func EngineFromString(name string) (Engine, error) {
	switch name {
	case "merlin1d":
		return Merlin1D, nil
	case "merlin1dvac":
		return Merlin1DVac, nil
	case "rl10":
		return RL10, nil
	case "pps1350":
		return NewEPEngine(new(PPS1350)), nil
	case "hermes":
		return NewEPEngine(new(HERMeS)), nil
	default:
		return nil, fmt.Errorf("unknown engine '%s'", name)
	}
}
