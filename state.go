package spacesim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Handle identifies a tracked object within a Simulation. Handles are never reused.
type Handle int

// NoHandle is the primary body handle of the object of reference.
const NoHandle Handle = -1

// Configuration defines the physical properties of an object.
type Configuration struct {
	Mass             float64   // kg
	Radius           float64   // m
	RotationalPeriod float64   // s, zero if the object does not spin at a fixed rate
	AxisOfRotation   []float64 // unit vector in the inertial frame
	J2               float64   // zonal harmonic, zero to ignore oblateness
}

// NewConfigurationFromGM returns a configuration whose mass matches the provided μ.
func NewConfigurationFromGM(μ, radius, rotationalPeriod float64) Configuration {
	return Configuration{Mass: μ / GravitationalConstant, Radius: radius, RotationalPeriod: rotationalPeriod, AxisOfRotation: []float64{0, 0, 1}}
}

// GM returns the standard gravitational parameter μ.
func (c Configuration) GM() float64 {
	return GravitationalConstant * c.Mass
}

// RotationRate returns the spin rate in rad/s, or zero if not spinning at a fixed rate.
func (c Configuration) RotationRate() float64 {
	if c.RotationalPeriod == 0 {
		return 0
	}
	return 2 * math.Pi / c.RotationalPeriod
}

// Axis returns the rotation axis, defaulting to the inertial Z axis.
func (c Configuration) Axis() []float64 {
	if c.AxisOfRotation == nil || norm(c.AxisOfRotation) == 0 {
		return []float64{0, 0, 1}
	}
	return unit(c.AxisOfRotation)
}

// MomentOfInertia returns the scalar moment of inertia of a uniform sphere.
func (c Configuration) MomentOfInertia() float64 {
	return 0.4 * c.Mass * c.Radius * c.Radius
}

// WithMass returns a copy of this configuration with another mass.
func (c Configuration) WithMass(m float64) Configuration {
	c.AxisOfRotation = copyVec(c.Axis())
	c.Mass = m
	return c
}

// ObjectState is a time stamped kinematic snapshot. Position and velocity are relative
// to the primary body of the object. An ObjectState is never mutated after creation.
type ObjectState struct {
	Time            float64 // simulated seconds since the simulation epoch
	Position        []float64
	Velocity        []float64
	Orientation     quat.Number
	AngularMomentum []float64
}

// NewObjectState returns a new state, copying all the provided vectors.
func NewObjectState(t float64, R, V []float64, orientation quat.Number, L []float64) ObjectState {
	return ObjectState{t, copyVec(R), copyVec(V), normalizeAttitude(orientation), copyVec(L)}
}

// NewStateRV returns a non rotating state with identity attitude.
func NewStateRV(t float64, R, V []float64) ObjectState {
	return NewObjectState(t, R, V, IdentityAttitude, nil)
}

// WithRV returns a copy of the state at time t with another position and velocity.
func (s ObjectState) WithRV(t float64, R, V []float64) ObjectState {
	return NewObjectState(t, R, V, s.Orientation, s.AngularMomentum)
}

// WithVelocity returns a copy of the state with another velocity (e.g. after an impulse).
func (s ObjectState) WithVelocity(V []float64) ObjectState {
	return NewObjectState(s.Time, s.Position, V, s.Orientation, s.AngularMomentum)
}

// Add returns the state shifted by a frame origin's state (relative to absolute).
func (s ObjectState) Add(origin ObjectState) ObjectState {
	return NewObjectState(s.Time, add(s.Position, origin.Position), add(s.Velocity, origin.Velocity), s.Orientation, s.AngularMomentum)
}

// Sub returns the state expressed relative to the provided origin (absolute to relative).
func (s ObjectState) Sub(origin ObjectState) ObjectState {
	return NewObjectState(s.Time, sub(s.Position, origin.Position), sub(s.Velocity, origin.Velocity), s.Orientation, s.AngularMomentum)
}

// RNorm returns the distance to the frame origin.
func (s ObjectState) RNorm() float64 {
	return norm(s.Position)
}

// VNorm returns the speed in the frame.
func (s ObjectState) VNorm() float64 {
	return norm(s.Velocity)
}

// Energyξ returns the specific mechanical energy about a body of parameter μ.
func (s ObjectState) Energyξ(μ float64) float64 {
	v := s.VNorm()
	return v*v/2 - μ/s.RNorm()
}

// H returns the specific angular momentum vector.
func (s ObjectState) H() []float64 {
	return cross(s.Position, s.Velocity)
}

func (s ObjectState) String() string {
	return fmt.Sprintf("t=%.3f R=%+v V=%+v", s.Time, s.Position, s.Velocity)
}
