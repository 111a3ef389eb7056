package spacesim

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/num/quat"
)

// attractor is an ancestor of the primary body, positioned relative to that primary.
type attractor struct {
	μ float64
	R []float64
}

// acceleration returns the acceleration function of o about its primary body. Ancestors of the
// primary only contribute their gravity, taken from the snapshot at the start of the step.
func (sim *Simulation) acceleration(o *PhysicsObject, burning bool, snap []ObjectState) AccelerationFunc {
	primary := sim.objects[o.Primary]
	μ := primary.Config.GM()
	var chain []attractor
	if sim.conf.FullChainGravity {
		origin := snap[o.Primary].Position
		for a := primary.Primary; a != NoHandle; a = sim.objects[a].Primary {
			chain = append(chain, attractor{sim.objects[a].Config.GM(), sub(snap[a].Position, origin)})
		}
	}
	var thrust, mdot float64
	var control ThrustControl
	if burning {
		thrust, mdot = o.rocket.Thrust()
		if control = o.rocket.Control; control == nil {
			control = Prograde{}
		}
	}
	perts := o.Perturbations
	drag := o.Drag
	return func(t float64, s ObjectState, mass float64) ([]float64, float64, []float64) {
		r := s.RNorm()
		acc := scale(-μ/(r*r*r), s.Position)
		for _, a := range chain {
			floats.Add(acc, ThirdBodyAcceleration(a.μ, s.Position, a.R))
		}
		floats.Add(acc, perts.Perturb(primary.Config, s))
		massRate := 0.
		if thrust > 0 && mass > 0 {
			floats.Add(acc, scale(thrust/mass, control.Control(s, μ)))
			massRate = -mdot
		}
		if drag != nil && primary.Atmosphere != nil {
			floats.Add(acc, drag.Drag(primary.Atmosphere, primary.Config, s, mass))
		}
		return acc, massRate, nil
	}
}

// freeRotation returns the orientation of a torque free object Δt seconds after its reference.
func freeRotation(c Configuration, ref ObjectState, Δt float64) quat.Number {
	var ω []float64
	if rate := c.RotationRate(); rate != 0 {
		ω = scale(rate, c.Axis())
	} else if I := c.MomentOfInertia(); I > 0 && norm(ref.AngularMomentum) > 0 {
		ω = scale(1/I, ref.AngularMomentum)
	} else {
		return ref.Orientation
	}
	return normalizeAttitude(quat.Mul(AxisAngle(ω, norm(ω)*Δt), ref.Orientation))
}
