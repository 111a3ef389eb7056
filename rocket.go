package spacesim

import (
	"fmt"
	"math"
)

// RocketStage is a set of engines fed by a common tank. Stages are values: burning fuel
// returns a new stage and never modifies the receiver.
type RocketStage struct {
	Name              string
	DryMass           float64 // kg
	FuelMass          float64 // kg, at ignition
	FuelMassRemaining float64 // kg
	Engines           []Engine
}

// NewRocketStage returns a fully fueled stage.
func NewRocketStage(name string, dryMass, fuelMass float64, engines ...Engine) RocketStage {
	return RocketStage{name, dryMass, fuelMass, fuelMass, engines}
}

// TotalThrust returns the sum of the thrust of all engines, in Newtons.
func (s RocketStage) TotalThrust() (thrust float64) {
	for _, e := range s.Engines {
		t, _ := e.Thrust()
		thrust += t
	}
	return
}

// TotalMassFlowRate returns the sum of the mass flow rate of all engines, in kg/s.
func (s RocketStage) TotalMassFlowRate() (rate float64) {
	for _, e := range s.Engines {
		rate += MassFlowRate(e)
	}
	return
}

// Isp returns the effective specific impulse of the stage.
func (s RocketStage) Isp() float64 {
	rate := s.TotalMassFlowRate()
	if rate == 0 {
		return 0
	}
	return s.TotalThrust() / (StandardGravity * rate)
}

// ExhaustVelocity returns the effective exhaust velocity of the stage.
func (s RocketStage) ExhaustVelocity() float64 {
	return ExhaustVelocity(s.Isp())
}

// Mass returns the current mass of the stage.
func (s RocketStage) Mass() float64 {
	return s.DryMass + s.FuelMassRemaining
}

// BurnTime returns how long the engines can fire on the remaining fuel.
func (s RocketStage) BurnTime() float64 {
	rate := s.TotalMassFlowRate()
	if rate == 0 {
		return math.Inf(1)
	}
	return s.FuelMassRemaining / rate
}

// UseFuel burns the fuel needed to fire all engines for t seconds. If there is not enough
// fuel left, the returned stage is the receiver and ok is false.
func (s RocketStage) UseFuel(t float64) (stage RocketStage, consumed float64, ok bool) {
	consumed = s.TotalMassFlowRate() * t
	if t < 0 || consumed > s.FuelMassRemaining {
		return s, 0, false
	}
	s.FuelMassRemaining -= consumed
	return s, consumed, true
}

// Drained returns a copy of this stage without any fuel left.
func (s RocketStage) Drained() RocketStage {
	s.FuelMassRemaining = 0
	return s
}

// DeltaV returns the Δv this stage can impart on top of the provided extra mass (Tsiolkovsky).
func (s RocketStage) DeltaV(extraMass float64) float64 {
	m0 := s.Mass() + extraMass
	mf := s.DryMass + extraMass
	if mf <= 0 {
		return math.Inf(1)
	}
	return s.ExhaustVelocity() * math.Log(m0/mf)
}

func (s RocketStage) String() string {
	return fmt.Sprintf("%s: %.1f kg dry, %.1f/%.1f kg fuel, %.1f N", s.Name, s.DryMass, s.FuelMassRemaining, s.FuelMass, s.TotalThrust())
}

// Rocket is an ordered stack of stages carrying a payload. The first stage fires first.
type Rocket struct {
	Stages      []RocketStage
	PayloadMass float64 // kg
	Control     ThrustControl
}

// NewRocket returns a rocket flying prograde.
func NewRocket(payloadMass float64, stages ...RocketStage) Rocket {
	return Rocket{Stages: stages, PayloadMass: payloadMass, Control: Prograde{}}
}

// Mass returns the total mass of the rocket.
func (r Rocket) Mass() float64 {
	m := r.PayloadMass
	for _, s := range r.Stages {
		m += s.Mass()
	}
	return m
}

// Current returns the stage currently firing, if any.
func (r Rocket) Current() (RocketStage, bool) {
	if len(r.Stages) == 0 {
		return RocketStage{}, false
	}
	return r.Stages[0], true
}

// WithCurrent returns a copy of the rocket where the current stage is replaced.
func (r Rocket) WithCurrent(s RocketStage) Rocket {
	stages := make([]RocketStage, len(r.Stages))
	copy(stages, r.Stages)
	stages[0] = s
	r.Stages = stages
	return r
}

// Stage separates the current stage and returns the remaining rocket with the shed stage.
func (r Rocket) Stage() (Rocket, RocketStage, bool) {
	if len(r.Stages) == 0 {
		return r, RocketStage{}, false
	}
	shed := r.Stages[0]
	stages := make([]RocketStage, len(r.Stages)-1)
	copy(stages, r.Stages[1:])
	r.Stages = stages
	return r, shed, true
}

// Thrust returns the thrust and mass flow rate of the current stage.
func (r Rocket) Thrust() (thrust, massFlowRate float64) {
	s, ok := r.Current()
	if !ok {
		return 0, 0
	}
	return s.TotalThrust(), s.TotalMassFlowRate()
}

// DeltaV returns the total Δv of the rocket, burning each stage to depletion in order.
func (r Rocket) DeltaV() (Δv float64) {
	for i, s := range r.Stages {
		above := r.PayloadMass
		for _, upper := range r.Stages[i+1:] {
			above += upper.Mass()
		}
		Δv += s.DeltaV(above)
	}
	return
}
