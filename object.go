package spacesim

import "fmt"

// Mode is the propagation mode of an object.
type Mode uint8

const (
	// Unperturbed objects are propagated analytically from their reference state.
	Unperturbed Mode = iota + 1
	// Perturbed objects are integrated with Cowell's method at every step.
	Perturbed
	// Impacted objects rest on the surface of their primary body until cleared.
	Impacted
)

func (m Mode) String() string {
	switch m {
	case Unperturbed:
		return "unperturbed"
	case Perturbed:
		return "perturbed"
	case Impacted:
		return "impacted"
	default:
		panic(fmt.Errorf("unknown mode %d", m))
	}
}

// PhysicsObject is a node of the primary body tree. The primary is a non owning handle.
type PhysicsObject struct {
	Name          string
	Primary       Handle
	Config        Configuration
	State         ObjectState // relative to the primary body
	Reference     ObjectState // baseline of the analytic propagation
	Drag          *AtmosphericProperties
	Atmosphere    AtmosphericModel // of this body, felt by the objects orbiting it
	Perturbations Perturbations
	rocket        *Rocket
	engineOn      bool
	maneuvers     maneuverQueue
	impacted      bool
	mode          Mode
}

// IsRocket returns whether this object carries stages.
func (o *PhysicsObject) IsRocket() bool {
	return o.rocket != nil
}

// Rocket returns a copy of the rocket of this object, if any.
func (o *PhysicsObject) Rocket() (Rocket, bool) {
	if o.rocket == nil {
		return Rocket{}, false
	}
	return *o.rocket, true
}

// EngineOn returns whether the engines of this object are firing.
func (o *PhysicsObject) EngineOn() bool {
	return o.engineOn
}

// Maneuvers returns the pending maneuvers.
func (o *PhysicsObject) Maneuvers() []Maneuver {
	return append([]Maneuver(nil), o.maneuvers...)
}

// rebase makes the current state the reference of the analytic propagation.
func (o *PhysicsObject) rebase() {
	o.Reference = o.State
}

func (o *PhysicsObject) String() string {
	return fmt.Sprintf("%s (%s) %s", o.Name, o.mode, o.State)
}
