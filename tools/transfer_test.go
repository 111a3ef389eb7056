package tools

import (
	"math"
	"testing"

	"github.com/ChristopherRabotin/spacesim"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestHohmann(t *testing.T) {
	// LEO to GEO
	rI, rF := 7e6, 4.2164e7
	vD, vA, tof := Hohmann(rI, rF, μEarth)
	if ΔvI := vD - math.Sqrt(μEarth/rI); !scalar.EqualWithinAbs(ΔvI, 2336.7957565911956, 1e-6) {
		t.Fatalf("invalid departure Δv %f", ΔvI)
	}
	if ΔvF := math.Sqrt(μEarth/rF) - vA; !scalar.EqualWithinAbs(ΔvF, 1433.931435089298, 1e-6) {
		t.Fatalf("invalid arrival Δv %f", ΔvF)
	}
	if !scalar.EqualWithinAbs(tof.Seconds(), 19178.154417409452, 1e-6) {
		t.Fatalf("invalid time of flight %s", tof)
	}
}

func TestPlanTransfer(t *testing.T) {
	sim := spacesim.NewSimulationFromBody(spacesim.Earth, spacesim.DefaultConfig(), nil)
	μ := spacesim.Earth.GM()
	vc := math.Sqrt(μ / 7e6)
	h, err := sim.AddObject("sat", spacesim.Configuration{Mass: 500, Radius: 1}, sim.Root(), spacesim.NewStateRV(0, []float64{7e6, 0, 0}, []float64{0, vc, 0}))
	if err != nil {
		t.Fatal(err)
	}
	sinθ, cosθ := math.Sincos(spacesim.Deg2rad(150))
	r2 := 1.4e7
	v2 := math.Sqrt(μ / r2)
	Rf := []float64{r2 * cosθ, r2 * sinθ, 0}
	Vf := []float64{-v2 * sinθ, v2 * cosθ, 0}
	tof := 4000.0
	tr, err := PlanTransfer(sim, h, spacesim.NewStateRV(tof, Rf, Vf), tof, false, NewGaussSolver(Adaptive, 1))
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinRel(tr.Departure.Δv(), 1259.900978712731, 1e-6) {
		t.Fatalf("invalid departure Δv: %s", tr)
	}
	if tr.Departure.Time != 0 || tr.Arrival.Time != tof {
		t.Fatalf("invalid maneuver times: %s", tr)
	}
	if err := tr.Schedule(sim, h); err != nil {
		t.Fatal(err)
	}
	for sim.Time() < tof {
		if err := sim.Step(10); err != nil {
			t.Fatal(err)
		}
	}
	s, _ := sim.State(h)
	d := make([]float64, 3)
	floats.SubTo(d, s.Position, Rf)
	if floats.Norm(d, 2) > 1e-5*r2 {
		t.Fatalf("missed the target by %f m", floats.Norm(d, 2))
	}
	o, err := sim.Orbit(h)
	if err != nil {
		t.Fatal(err)
	}
	if o.Eccentricity() > 1e-4 || !scalar.EqualWithinRel(o.SemiMajorAxis(), r2, 1e-4) {
		t.Fatalf("arrival orbit is not circular: %s", o)
	}
	// Only the target position.
	coast, err := PlanTransfer(sim, h, spacesim.NewStateRV(0, []float64{0, -r2, 0}, nil), 6000, false, NewGaussSolver(Adaptive, 1))
	if err != nil {
		t.Fatal(err)
	}
	if coast.Arrival.Δv() != 0 || coast.Δv() != coast.Departure.Δv() {
		t.Fatalf("arrival maneuver should be null: %s", coast)
	}
	if _, err := PlanTransfer(sim, sim.Root(), spacesim.NewStateRV(0, Rf, nil), 3000, false, NewGaussSolver(Adaptive, 1)); err == nil {
		t.Fatal("the object of reference cannot transfer")
	}
}
