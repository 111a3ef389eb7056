package tools

import (
	"fmt"
	"math"
	"time"

	"github.com/ChristopherRabotin/spacesim"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Hohmann computes an Hohmann transfer between circular orbits of radii rI and rF. It returns the
// departure and arrival speeds on the transfer ellipse, and the time of flight.
// To get final computations:
// ΔvInit = vDepature - vI
// ΔvFinal = vF - vArrival
func Hohmann(rI, rF, μ float64) (vDeparture, vArrival float64, tof time.Duration) {
	aTransfer := 0.5 * (rI + rF)
	vDeparture = math.Sqrt((2 * μ / rI) - (μ / aTransfer))
	vArrival = math.Sqrt((2 * μ / rF) - (μ / aTransfer))
	tof = time.Duration(math.Pi * math.Sqrt(math.Pow(aTransfer, 3)/μ) * float64(time.Second))
	return
}

// Transfer is a pair of impulsive maneuvers joining two states of an object.
type Transfer struct {
	Departure, Arrival spacesim.Maneuver
	Vi, Vf             []float64 // velocities on the transfer conic
	TOF                float64   // seconds
}

// Δv returns the total velocity change of the transfer.
func (t Transfer) Δv() float64 {
	return t.Departure.Δv() + t.Arrival.Δv()
}

func (t Transfer) String() string {
	return fmt.Sprintf("Δv=%.3f m/s in %s (%s ; %s)", t.Δv(), time.Duration(t.TOF*float64(time.Second)), t.Departure, t.Arrival)
}

// PlanTransfer computes the maneuvers bringing object h from its current state to the target in
// tof seconds. The target is expressed relative to the primary body of h. When the target velocity
// is null, so is the arrival maneuver and the object stays on the transfer conic.
func PlanTransfer(sim *spacesim.Simulation, h spacesim.Handle, target spacesim.ObjectState, tof float64, longWay bool, g *GaussSolver) (Transfer, error) {
	s, err := sim.State(h)
	if err != nil {
		return Transfer{}, err
	}
	o, err := sim.Orbit(h)
	if err != nil {
		return Transfer{}, err
	}
	Vi, Vf, err := g.Solve(o.GM(), mat.NewVecDense(3, s.Position), mat.NewVecDense(3, target.Position), tof, longWay)
	if err != nil {
		return Transfer{}, fmt.Errorf("transfer of object %d: %w", h, err)
	}
	tr := Transfer{Vi: Vi.RawVector().Data, Vf: Vf.RawVector().Data, TOF: tof}
	ΔVi := make([]float64, 3)
	floats.SubTo(ΔVi, tr.Vi, s.Velocity)
	tr.Departure = spacesim.NewInertialManeuver(sim.Time(), ΔVi)
	ΔVf := make([]float64, 3)
	if len(target.Velocity) == 3 && floats.Norm(target.Velocity, 2) > 0 {
		floats.SubTo(ΔVf, target.Velocity, tr.Vf)
	}
	tr.Arrival = spacesim.NewInertialManeuver(sim.Time()+tof, ΔVf)
	return tr, nil
}

// Schedule queues the maneuvers of the transfer on object h. A null arrival maneuver is skipped.
func (t Transfer) Schedule(sim *spacesim.Simulation, h spacesim.Handle) error {
	if err := sim.ScheduleManeuver(h, t.Departure); err != nil {
		return err
	}
	if t.Arrival.Δv() == 0 {
		return nil
	}
	return sim.ScheduleManeuver(h, t.Arrival)
}
