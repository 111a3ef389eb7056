package spacesim

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/soniakeys/meeus/v3/julian"
	"gonum.org/v1/gonum/floats/scalar"
)

// Simulation owns the tracked objects and advances them in discrete steps of simulated time.
// It is not safe for concurrent use.
type Simulation struct {
	objects []*PhysicsObject // arena indexed by Handle, nil once removed or until inserted
	root    Handle
	time    float64
	conf    Config
	kepler  *KeplerSolver
	funcQ   []func() // executed between steps
	logger  kitlog.Logger
	metrics *Metrics
}

// NewDefaultLogger returns the logfmt logger used by the command line tools.
func NewDefaultLogger() kitlog.Logger {
	return kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
}

// NewSimulation returns a simulation whose object of reference is the provided body.
func NewSimulation(rootName string, rootConfig Configuration, conf Config, logger kitlog.Logger) *Simulation {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	root := &PhysicsObject{Name: rootName, Primary: NoHandle, Config: rootConfig, mode: Unperturbed}
	root.State = NewStateRV(0, nil, nil)
	root.rebase()
	sim := &Simulation{objects: []*PhysicsObject{root}, conf: conf, kepler: conf.KeplerSolver(), logger: kitlog.With(logger, "sim", rootName)}
	sim.logger.Log("level", "info", "subsys", "sim", "status", "created", "epoch", conf.Epoch.Format(time.RFC3339))
	return sim
}

// NewSimulationFromBody returns a simulation whose object of reference is a catalogued body.
func NewSimulationFromBody(body CelestialObject, conf Config, logger kitlog.Logger) *Simulation {
	sim := NewSimulation(body.Name, body.Config, conf, logger)
	sim.objects[sim.root].Atmosphere = body.Atmosphere
	return sim
}

// AddBodyInOrbit tracks a catalogued body on its mean circular orbit about its primary, at
// the true longitude λ (degrees).
func (sim *Simulation) AddBodyInOrbit(body CelestialObject, primary Handle, λ float64) (Handle, error) {
	p, err := sim.object(primary)
	if err != nil {
		return NoHandle, fmt.Errorf("primary of %s: %w", body.Name, ErrInvalidPrimary)
	}
	o, err := body.MeanOrbit(λ, p.Config.GM(), primary)
	if err != nil {
		return NoHandle, err
	}
	h, err := sim.AddObjectInOrbit(body.Name, body.Config, o)
	if err != nil {
		return h, err
	}
	sim.objects[h].Atmosphere = body.Atmosphere
	return h, nil
}

// SetMetrics makes the simulation record its activity in m.
func (sim *Simulation) SetMetrics(m *Metrics) {
	sim.metrics = m
}

// Root returns the handle of the object of reference.
func (sim *Simulation) Root() Handle {
	return sim.root
}

// Time returns the simulated seconds elapsed since the epoch.
func (sim *Simulation) Time() float64 {
	return sim.time
}

// Date returns the calendar date of the current simulated time.
func (sim *Simulation) Date() time.Time {
	return sim.conf.Epoch.Add(time.Duration(sim.time * float64(time.Second)))
}

// JulianDate returns the Julian date of the current simulated time.
func (sim *Simulation) JulianDate() float64 {
	return julian.TimeToJD(sim.Date())
}

// Config returns the configuration of this simulation.
func (sim *Simulation) Config() Config {
	return sim.conf
}

func (sim *Simulation) object(h Handle) (*PhysicsObject, error) {
	if h < 0 || int(h) >= len(sim.objects) || sim.objects[h] == nil {
		return nil, fmt.Errorf("handle %d: %w", h, ErrUnknownObject)
	}
	return sim.objects[h], nil
}

func (sim *Simulation) reserve() Handle {
	sim.objects = append(sim.objects, nil)
	return Handle(len(sim.objects) - 1)
}

// AddObject tracks a new object at the provided state relative to its primary body.
func (sim *Simulation) AddObject(name string, config Configuration, primary Handle, s ObjectState) (Handle, error) {
	if _, err := sim.object(primary); err != nil {
		return NoHandle, fmt.Errorf("primary of %s: %w", name, ErrInvalidPrimary)
	}
	o := &PhysicsObject{Name: name, Primary: primary, Config: config, mode: Unperturbed}
	o.State = s.WithRV(sim.time, s.Position, s.Velocity)
	o.rebase()
	h := sim.reserve()
	sim.objects[h] = o
	sim.logger.Log("level", "info", "subsys", "sim", "added", name, "handle", h, "primary", sim.objects[primary].Name)
	return h, nil
}

// AddObjectInOrbit tracks a new object on the provided orbit, whose primary must be tracked.
func (sim *Simulation) AddObjectInOrbit(name string, config Configuration, o Orbit) (Handle, error) {
	primary, err := sim.object(o.Primary)
	if err != nil {
		return NoHandle, fmt.Errorf("primary of %s: %w", name, ErrInvalidPrimary)
	}
	if !scalar.EqualWithinRel(primary.Config.GM(), o.GM(), 1e-9) {
		return NoHandle, fmt.Errorf("orbit of %s uses μ=%e but %s has μ=%e: %w", name, o.GM(), primary.Name, primary.Config.GM(), ErrInvalidPrimary)
	}
	return sim.AddObject(name, config, o.Primary, o.State(sim.time))
}

// AddRocketInOrbit tracks a new rocket on the provided orbit. The mass of the configuration is
// that of the rocket.
func (sim *Simulation) AddRocketInOrbit(name string, config Configuration, rocket Rocket, o Orbit) (Handle, error) {
	config.Mass = rocket.Mass()
	h, err := sim.AddObjectInOrbit(name, config, o)
	if err != nil {
		return h, err
	}
	if rocket.Control == nil {
		rocket.Control = Prograde{}
	}
	sim.objects[h].rocket = &rocket
	return h, nil
}

// Deploy separates a new object of the provided configuration from its parent with a relative
// velocity ΔV. The object is tracked at the end of the next step and its handle is reserved now.
func (sim *Simulation) Deploy(parent Handle, name string, config Configuration, ΔV []float64) (Handle, error) {
	p, err := sim.object(parent)
	if err != nil {
		return NoHandle, err
	}
	if parent == sim.root {
		return NoHandle, fmt.Errorf("cannot deploy from the object of reference: %w", ErrInvalidPrimary)
	}
	if config.Mass >= p.Config.Mass {
		return NoHandle, fmt.Errorf("%s cannot carry %s (%.1f kg >= %.1f kg)", p.Name, name, config.Mass, p.Config.Mass)
	}
	h := sim.reserve()
	ΔV = copyVec(ΔV)
	sim.funcQ = append(sim.funcQ, func() {
		// The parent may have been removed in the meantime.
		p, err := sim.object(parent)
		if err != nil {
			sim.logger.Log("level", "warning", "subsys", "sim", "deploy", name, "err", err)
			return
		}
		o := &PhysicsObject{Name: name, Primary: p.Primary, Config: config, Drag: p.Drag, mode: Unperturbed}
		o.State = p.State.WithVelocity(add(p.State.Velocity, ΔV))
		o.rebase()
		p.Config.Mass -= config.Mass
		if p.rocket != nil {
			r := *p.rocket
			r.PayloadMass = math.Max(0, r.PayloadMass-config.Mass)
			p.rocket = &r
		}
		sim.objects[h] = o
		sim.logger.Log("level", "notice", "subsys", "sim", "deployed", name, "from", p.Name, "handle", h)
	})
	return h, nil
}

// Remove stops tracking an object. Objects which are the primary of another cannot be removed.
func (sim *Simulation) Remove(h Handle) error {
	o, err := sim.object(h)
	if err != nil {
		return err
	}
	if h == sim.root {
		return fmt.Errorf("cannot remove the object of reference: %w", ErrInvalidPrimary)
	}
	for _, other := range sim.objects {
		if other != nil && other.Primary == h {
			return fmt.Errorf("%s is the primary of %s: %w", o.Name, other.Name, ErrInvalidPrimary)
		}
	}
	sim.objects[h] = nil
	sim.logger.Log("level", "info", "subsys", "sim", "removed", o.Name, "handle", h)
	return nil
}

// Handles returns the handles of all tracked objects in propagation order.
func (sim *Simulation) Handles() []Handle {
	var handles []Handle
	for h, o := range sim.objects {
		if o != nil {
			handles = append(handles, Handle(h))
		}
	}
	return handles
}

// Object returns a copy of a tracked object.
func (sim *Simulation) Object(h Handle) (PhysicsObject, error) {
	o, err := sim.object(h)
	if err != nil {
		return PhysicsObject{}, err
	}
	return *o, nil
}

// State returns the state of an object relative to its primary body.
func (sim *Simulation) State(h Handle) (ObjectState, error) {
	o, err := sim.object(h)
	if err != nil {
		return ObjectState{}, err
	}
	return o.State, nil
}

// AbsoluteState returns the state of an object relative to the object of reference.
func (sim *Simulation) AbsoluteState(h Handle) (ObjectState, error) {
	o, err := sim.object(h)
	if err != nil {
		return ObjectState{}, err
	}
	s := o.State
	for p := o.Primary; p != NoHandle; p = sim.objects[p].Primary {
		s = s.Add(sim.objects[p].State)
	}
	return s, nil
}

// Orbit returns the osculating orbit of an object about its primary body.
func (sim *Simulation) Orbit(h Handle) (Orbit, error) {
	o, err := sim.object(h)
	if err != nil {
		return Orbit{}, err
	}
	if o.Primary == NoHandle {
		return Orbit{}, fmt.Errorf("%s does not orbit anything: %w", o.Name, ErrInvalidPrimary)
	}
	return NewOrbitFromState(o.State, sim.objects[o.Primary].Config.GM(), o.Primary), nil
}

// PrimaryBody returns the handle of the primary body of an object.
func (sim *Simulation) PrimaryBody(h Handle) (Handle, error) {
	o, err := sim.object(h)
	if err != nil {
		return NoHandle, err
	}
	return o.Primary, nil
}

// Impacted returns whether an object rests on the surface of its primary body.
func (sim *Simulation) Impacted(h Handle) (bool, error) {
	o, err := sim.object(h)
	if err != nil {
		return false, err
	}
	return o.impacted, nil
}

// Mode returns the propagation mode of an object.
func (sim *Simulation) Mode(h Handle) (Mode, error) {
	o, err := sim.object(h)
	if err != nil {
		return 0, err
	}
	return o.mode, nil
}

// SetAtmosphere sets the atmosphere of a body, felt by the objects orbiting it.
func (sim *Simulation) SetAtmosphere(h Handle, model AtmosphericModel) error {
	o, err := sim.object(h)
	if err != nil {
		return err
	}
	o.Atmosphere = model
	return nil
}

// SetDrag sets how an object interacts with the atmosphere of its primary body.
func (sim *Simulation) SetDrag(h Handle, props AtmosphericProperties) error {
	o, err := sim.object(h)
	if err != nil {
		return err
	}
	o.Drag = &props
	return nil
}

// SetPerturbations sets the additional accelerations acting on an object.
func (sim *Simulation) SetPerturbations(h Handle, perts Perturbations) error {
	o, err := sim.object(h)
	if err != nil {
		return err
	}
	o.Perturbations = perts
	return nil
}

// ScheduleManeuver queues an impulsive maneuver, which is executed when the simulated time reaches it.
func (sim *Simulation) ScheduleManeuver(h Handle, m Maneuver) error {
	o, err := sim.object(h)
	if err != nil {
		return err
	}
	if h == sim.root {
		return fmt.Errorf("cannot maneuver the object of reference: %w", ErrInvalidPrimary)
	}
	o.maneuvers = o.maneuvers.with(m)
	if !o.impacted {
		o.mode = Perturbed
	}
	sim.logger.Log("level", "info", "subsys", "sim", "object", o.Name, "scheduled", m)
	return nil
}

// ClearManeuvers drops all the pending maneuvers of an object.
func (sim *Simulation) ClearManeuvers(h Handle) error {
	o, err := sim.object(h)
	if err != nil {
		return err
	}
	o.maneuvers = nil
	return nil
}

// StartEngine starts the engines of the current stage of a rocket.
func (sim *Simulation) StartEngine(h Handle) error {
	o, err := sim.object(h)
	if err != nil {
		return err
	}
	if o.rocket == nil {
		return fmt.Errorf("%s: %w", o.Name, ErrNotARocket)
	}
	fuel := 0.
	for _, s := range o.rocket.Stages {
		fuel += s.FuelMassRemaining
	}
	if fuel <= 0 {
		return fmt.Errorf("%s: %w", o.Name, ErrInsufficientFuel)
	}
	o.engineOn = true
	if !o.impacted {
		o.mode = Perturbed
	}
	sim.logger.Log("level", "info", "subsys", "prop", "object", o.Name, "engine", "on", "mass(kg)", o.Config.Mass)
	return nil
}

// StopEngine stops the engines of a rocket.
func (sim *Simulation) StopEngine(h Handle) error {
	o, err := sim.object(h)
	if err != nil {
		return err
	}
	if o.rocket == nil {
		return fmt.Errorf("%s: %w", o.Name, ErrNotARocket)
	}
	o.engineOn = false
	sim.logger.Log("level", "info", "subsys", "prop", "object", o.Name, "engine", "off", "mass(kg)", o.Config.Mass)
	return nil
}

// SetThrustControl sets the thrust direction law of a rocket.
func (sim *Simulation) SetThrustControl(h Handle, cl ThrustControl) error {
	o, err := sim.object(h)
	if err != nil {
		return err
	}
	if o.rocket == nil {
		return fmt.Errorf("%s: %w", o.Name, ErrNotARocket)
	}
	r := *o.rocket
	r.Control = cl
	o.rocket = &r
	return nil
}

// CheckImpact flags the object as impacted if it is below the surface of its primary body.
// It must be called by the caller after each step, impacts are not detected automatically.
func (sim *Simulation) CheckImpact(h Handle) (bool, error) {
	o, err := sim.object(h)
	if err != nil {
		return false, err
	}
	if o.impacted || o.Primary == NoHandle {
		return o.impacted, nil
	}
	primary := sim.objects[o.Primary]
	if o.State.RNorm() >= primary.Config.Radius {
		return false, nil
	}
	// Rest on the surface, corotating with the primary.
	R := scale(primary.Config.Radius, unit(o.State.Position))
	V := cross(scale(primary.Config.RotationRate(), primary.Config.Axis()), R)
	sim.logger.Log("level", "critical", "subsys", "astro", "collided", primary.Name, "object", o.Name, "t", sim.time, "r", o.State.RNorm(), "radius", primary.Config.Radius, "v", o.State.VNorm())
	o.State = NewObjectState(o.State.Time, R, V, o.State.Orientation, o.State.AngularMomentum)
	o.rebase()
	sim.metrics.recordImpact(o.Name, primary.Name)
	o.impacted = true
	o.engineOn = false
	o.mode = Impacted
	return true, nil
}

// ClearImpact allows an impacted object to be propagated as an orbiting object again.
func (sim *Simulation) ClearImpact(h Handle) error {
	o, err := sim.object(h)
	if err != nil {
		return err
	}
	if !o.impacted {
		return nil
	}
	o.impacted = false
	o.mode = Unperturbed
	o.rebase()
	sim.logger.Log("level", "notice", "subsys", "astro", "revived", o.Name, "t", sim.time)
	return nil
}

// snapshot returns the absolute state of every object at the start of a step.
func (sim *Simulation) snapshot() []ObjectState {
	snap := make([]ObjectState, len(sim.objects))
	for h, o := range sim.objects {
		if o == nil {
			continue
		}
		snap[h], _ = sim.AbsoluteState(Handle(h))
	}
	return snap
}

// Step advances every tracked object by Δt seconds. Objects which fail to propagate keep their
// previous state and the failures are returned together.
func (sim *Simulation) Step(Δt float64) error {
	if !(Δt > 0) || math.IsInf(Δt, 0) {
		return fmt.Errorf("invalid time step %f", Δt)
	}
	started := time.Now()
	snap := sim.snapshot()
	var errs []error
	for h, o := range sim.objects {
		if o == nil || Handle(h) == sim.root {
			continue
		}
		next, pending, err := sim.stepObject(o, Δt, snap)
		if err != nil {
			sim.logger.Log("level", "warning", "subsys", "sim", "object", o.Name, "t", sim.time, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", o.Name, err))
			sim.metrics.recordFailure(o.Name)
			continue
		}
		*o = next
		sim.funcQ = append(sim.funcQ, pending...)
	}
	sim.time += Δt
	// Let's execute any function which is in the queue of this time step.
	for _, f := range sim.funcQ {
		f()
	}
	sim.funcQ = nil // Clear the queue.
	sim.metrics.recordStep(sim, started)
	return errors.Join(errs...)
}

// stepObject returns the object Δt seconds later and the insertions it requires, without
// modifying the tracked object.
func (sim *Simulation) stepObject(o *PhysicsObject, Δt float64, snap []ObjectState) (PhysicsObject, []func(), error) {
	next := *o
	primary := sim.objects[o.Primary]
	if next.impacted {
		next.State = SurfaceStep(primary.Config, next.State, Δt)
		next.rebase()
		next.mode = Impacted
		return next, nil, nil
	}
	var pending []func()
	t := sim.time
	tf := sim.time + Δt
	for {
		for {
			m, rest, ok := next.maneuvers.next(t)
			if !ok {
				break
			}
			next.maneuvers = rest
			sim.applyManeuver(&next, m)
		}
		if t >= tf {
			break
		}
		end := tf
		if len(next.maneuvers) > 0 && next.maneuvers[0].Time < tf {
			end = next.maneuvers[0].Time
		}
		if err := sim.propagate(&next, t, end, snap, &pending); err != nil {
			return *o, nil, err
		}
		t = end
	}
	return next, pending, nil
}

// perturbed returns whether an object must be integrated numerically.
func (sim *Simulation) perturbed(o *PhysicsObject) bool {
	if len(o.maneuvers) > 0 || !o.Perturbations.isEmpty() {
		return true
	}
	if o.engineOn && o.rocket != nil && len(o.rocket.Stages) > 0 {
		return true
	}
	primary := sim.objects[o.Primary]
	if sim.conf.FullChainGravity && primary.Primary != NoHandle {
		return true
	}
	if o.Drag != nil && primary.Atmosphere != nil {
		drag := o.Drag.Drag(primary.Atmosphere, primary.Config, o.State, o.Config.Mass)
		return norm(drag) > sim.conf.DragThreshold
	}
	return false
}

// propagate advances o from t to end, analytically if nothing perturbs it.
func (sim *Simulation) propagate(o *PhysicsObject, t, end float64, snap []ObjectState, pending *[]func()) error {
	if sim.perturbed(o) {
		if o.mode != Perturbed {
			sim.logger.Log("level", "info", "subsys", "sim", "object", o.Name, "mode", Perturbed, "t", t)
			o.mode = Perturbed
		}
		return sim.cowell(o, t, end, snap, pending)
	}
	if o.mode == Perturbed {
		// Rebasing avoids propagating from an arbitrarily old reference.
		o.rebase()
		sim.logger.Log("level", "info", "subsys", "sim", "object", o.Name, "mode", Unperturbed, "t", t)
	}
	o.mode = Unperturbed
	μ := sim.objects[o.Primary].Config.GM()
	elapsed := end - o.Reference.Time
	s, err := sim.kepler.Propagate(μ, o.Reference, elapsed)
	if err != nil {
		return err
	}
	q := freeRotation(o.Config, o.Reference, elapsed)
	o.State = NewObjectState(end, s.Position, s.Velocity, q, o.Reference.AngularMomentum)
	return nil
}

// cowell integrates o from t to end, splitting the step when a stage runs dry.
func (sim *Simulation) cowell(o *PhysicsObject, t, end float64, snap []ObjectState, pending *[]func()) error {
	primary := sim.objects[o.Primary]
	for rem := end - t; rem > 0; {
		h := rem
		burning, exhausted := false, false
		var stage RocketStage
		if o.engineOn && o.rocket != nil {
			if cur, ok := o.rocket.Current(); ok {
				stage, burning = cur, true
				if _, _, ok := cur.UseFuel(rem); !ok {
					h = math.Min(cur.BurnTime(), rem)
					exhausted = true
				}
			} else {
				o.engineOn = false
			}
		}
		if h > 0 {
			c := Cowell{Primary: primary.Config, Config: o.Config, Accel: sim.acceleration(o, burning, snap)}
			s, Δm, err := c.Step(o.State, t, h)
			if err != nil {
				return err
			}
			o.State = s
			o.Config.Mass += Δm
		}
		if burning {
			burnt := stage.Drained()
			if !exhausted {
				burnt, _, _ = stage.UseFuel(h)
			}
			r := o.rocket.WithCurrent(burnt)
			o.rocket = &r
			o.Config.Mass = r.Mass()
			if exhausted {
				sim.separate(o, t+h, pending)
			}
		}
		t += h
		rem -= h
	}
	o.State.Time = end
	return nil
}

// separate sheds the current stage of a rocket as a derelict object.
func (sim *Simulation) separate(o *PhysicsObject, t float64, pending *[]func()) {
	upper, shed, ok := o.rocket.Stage()
	if !ok {
		return
	}
	derelict := &PhysicsObject{Name: o.Name + " " + shed.Name, Primary: o.Primary, Config: Configuration{Mass: shed.Mass(), Radius: o.Config.Radius}, State: o.State, Drag: o.Drag, mode: Unperturbed}
	derelict.rebase()
	o.rocket = &upper
	o.Config.Mass = upper.Mass()
	sim.metrics.recordStaging(o.Name)
	thrust, _ := upper.Thrust()
	sim.logger.Log("level", "notice", "subsys", "prop", "object", o.Name, "staged", shed.Name, "t", t, "mass(kg)", o.Config.Mass, "thrust(N)", thrust)
	if len(upper.Stages) == 0 {
		o.engineOn = false
		sim.logger.Log("level", "notice", "subsys", "prop", "object", o.Name, "engine", "off", "reason", "no stage left")
	}
	μ := sim.objects[o.Primary].Config.GM()
	*pending = append(*pending, func() {
		// Bring the derelict from the separation time to the end of the step.
		if s, err := sim.kepler.Propagate(μ, derelict.Reference, sim.time-derelict.Reference.Time); err == nil {
			derelict.State = s
			derelict.State.Time = sim.time
		}
		h := sim.reserve()
		sim.objects[h] = derelict
		sim.logger.Log("level", "info", "subsys", "sim", "added", derelict.Name, "handle", h)
	})
}

// applyManeuver performs an impulsive maneuver, burning fuel if the object is a rocket.
func (sim *Simulation) applyManeuver(o *PhysicsObject, m Maneuver) {
	ΔV := m.Inertial(o.State)
	if o.rocket != nil {
		stage, ok := o.rocket.Current()
		if !ok || stage.ExhaustVelocity() == 0 {
			sim.logger.Log("level", "warning", "subsys", "prop", "object", o.Name, "skipped", m, "reason", "no engine")
			sim.metrics.recordManeuver(o.Name, "skipped")
			return
		}
		needed := o.rocket.Mass() * (1 - math.Exp(-norm(ΔV)/stage.ExhaustVelocity()))
		if needed > stage.FuelMassRemaining {
			sim.logger.Log("level", "warning", "subsys", "prop", "object", o.Name, "skipped", m, "err", ErrInsufficientFuel, "needed(kg)", needed)
			sim.metrics.recordManeuver(o.Name, "skipped")
			return
		}
		stage.FuelMassRemaining -= needed
		r := o.rocket.WithCurrent(stage)
		o.rocket = &r
		o.Config.Mass = r.Mass()
	}
	o.State = o.State.WithVelocity(add(o.State.Velocity, ΔV))
	o.rebase()
	sim.logger.Log("level", "notice", "subsys", "astro", "object", o.Name, "maneuver", m, "Δv(m/s)", norm(ΔV))
	sim.metrics.recordManeuver(o.Name, "performed")
}
