package spacesim

import (
	"fmt"

	"github.com/ChristopherRabotin/spacesim/integrator"
	"gonum.org/v1/gonum/num/quat"
)

// AccelerationFunc returns the total acceleration (m/s^2) on an object of a given mass, the rate
// of change of that mass (kg/s) and the torque (N.m) acting on it.
type AccelerationFunc func(t float64, s ObjectState, mass float64) (acc []float64, massRate float64, torque []float64)

// Cowell integrates the motion of an object about its primary body with an arbitrary
// acceleration function, one RK4 step at a time.
type Cowell struct {
	Primary  Configuration
	Config   Configuration // Configuration of the integrated object
	Accel    AccelerationFunc
	Impacted bool
}

// Step returns the state Δt seconds after s, whose time is totalTime, and the mass change of the
// object over the step.
func (c Cowell) Step(s ObjectState, totalTime, Δt float64) (ObjectState, float64, error) {
	if c.Impacted {
		return SurfaceStep(c.Primary, s, Δt), 0, nil
	}
	if Δt == 0 {
		return s, 0, nil
	}
	ci := &cowellIntegrable{c: c, state: c.pack(s)}
	if _, _, err := integrator.NewRK4(totalTime, Δt, ci).Solve(); err != nil {
		return s, 0, err
	}
	if !finite(ci.state) {
		return s, 0, fmt.Errorf("cowell step at t=%f: %w", totalTime, ErrNumericalInstability)
	}
	return c.unpack(totalTime+Δt, ci.state), ci.state[13] - c.Config.Mass, nil
}

// spin returns the inertial angular velocity of the object.
func (c Cowell) spin(L []float64) []float64 {
	if rate := c.Config.RotationRate(); rate != 0 {
		return scale(rate, c.Config.Axis())
	}
	if I := c.Config.MomentOfInertia(); I > 0 {
		return scale(1/I, L)
	}
	return []float64{0, 0, 0}
}

// pack returns the integration vector [R, V, q, L, m].
func (c Cowell) pack(s ObjectState) []float64 {
	q := s.Orientation
	L := copyVec(s.AngularMomentum)
	if rate := c.Config.RotationRate(); rate != 0 {
		L = scale(c.Config.MomentOfInertia()*rate, c.Config.Axis())
	}
	y := make([]float64, 0, 14)
	y = append(y, s.Position...)
	y = append(y, s.Velocity...)
	y = append(y, q.Real, q.Imag, q.Jmag, q.Kmag)
	y = append(y, L...)
	return append(y, c.Config.Mass)
}

func (c Cowell) unpack(t float64, y []float64) ObjectState {
	q := quat.Number{Real: y[6], Imag: y[7], Jmag: y[8], Kmag: y[9]}
	return NewObjectState(t, y[0:3], y[3:6], q, y[10:13])
}

// cowellIntegrable performs a single step of Cowell's method.
type cowellIntegrable struct {
	c     Cowell
	state []float64
}

func (ci *cowellIntegrable) GetState() []float64 {
	return ci.state
}

func (ci *cowellIntegrable) SetState(i uint64, s []float64) {
	ci.state = s
}

func (ci *cowellIntegrable) Stop(i uint64) bool {
	return i > 0
}

func (ci *cowellIntegrable) Func(t float64, y []float64) []float64 {
	fDot := make([]float64, 14)
	q := quat.Number{Real: y[6], Imag: y[7], Jmag: y[8], Kmag: y[9]}
	L := y[10:13]
	s := ObjectState{Time: t, Position: y[0:3], Velocity: y[3:6], Orientation: q, AngularMomentum: L}
	acc, massRate, torque := ci.c.Accel(t, s, y[13])
	// d\vec{R}/dt
	copy(fDot[0:3], y[3:6])
	// d\vec{V}/dt
	copy(fDot[3:6], acc)
	// dq/dt = ½ ω ⊗ q
	ω := ci.c.spin(L)
	qDot := quat.Scale(0.5, quat.Mul(quat.Number{Imag: ω[0], Jmag: ω[1], Kmag: ω[2]}, q))
	fDot[6], fDot[7], fDot[8], fDot[9] = qDot.Real, qDot.Imag, qDot.Jmag, qDot.Kmag
	// dL/dt, the spin rate is imposed when the rotational period is fixed.
	if ci.c.Config.RotationRate() == 0 && torque != nil {
		copy(fDot[10:13], torque)
	}
	// d(mass)/dt
	fDot[13] = massRate
	return fDot
}
