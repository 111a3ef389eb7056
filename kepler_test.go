package spacesim

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestKeplerCircularLEO(t *testing.T) {
	μ := 3.986e14
	r := 6.78e6
	v := math.Sqrt(μ / r)
	period := 2 * math.Pi * math.Sqrt(r*r*r/μ)
	s0 := NewStateRV(0, []float64{r, 0, 0}, []float64{0, v, 0})
	s1, err := NewKeplerSolver(1).Propagate(μ, s0, period)
	if err != nil {
		t.Fatal(err)
	}
	if !relEqual(s0.Position, s1.Position, 1e-9) || !relEqual(s0.Velocity, s1.Velocity, 1e-9) {
		t.Fatalf("LEO did not return to its initial state:\n%s\n%s", s0, s1)
	}
	if s1.Time != period {
		t.Fatalf("time not updated: %f", s1.Time)
	}
	// Half a period later, the spacecraft is on the other side.
	s2, err := NewKeplerSolver(1).Propagate(μ, s0, period/2)
	if err != nil {
		t.Fatal(err)
	}
	if !relEqual([]float64{-r, 0, 0}, s2.Position, 1e-9) {
		t.Fatalf("invalid position after half a period: %+v", s2.Position)
	}
}

func TestKeplerRoundTrip(t *testing.T) {
	μ := 3.986e14
	vp := math.Sqrt(2 * μ / 7e6)
	for _, tc := range []struct {
		name  string
		R, V  []float64
		Δt    float64
		class OrbitClass
	}{
		{"elliptical", []float64{7e6, 1e6, 2e5}, []float64{-1000, 8500, 1200}, 12345.6, Elliptical},
		{"near circular", []float64{6.78e6, 0, 0}, []float64{0, 7667.4, 1}, 3600, Elliptical},
		{"hyperbolic", []float64{7e6, 0, 0}, []float64{0, 12000, 500}, 5000, Hyperbolic},
		{"parabolic", []float64{7e6, 0, 0}, []float64{0, vp, 0}, 3000, Parabolic},
		{"backward", []float64{7e6, 1e6, 2e5}, []float64{-1000, 8500, 1200}, -4000, Elliptical},
	} {
		if c := NewOrbitFromRV(tc.R, tc.V, μ, 0).Class(); c != tc.class {
			t.Fatalf("%s: unexpected class %s", tc.name, c)
		}
		k := NewKeplerSolver(42)
		R1, V1, err := k.Solve(μ, tc.R, tc.V, tc.Δt)
		if err != nil {
			t.Fatalf("%s: %s", tc.name, err)
		}
		R2, V2, err := k.Solve(μ, R1, V1, -tc.Δt)
		if err != nil {
			t.Fatalf("%s: %s", tc.name, err)
		}
		if !relEqual(tc.R, R2, 1e-9) || !relEqual(tc.V, V2, 1e-9) {
			t.Fatalf("%s: round trip failed\n%+v %+v\n%+v %+v", tc.name, tc.R, tc.V, R2, V2)
		}
	}
}

func TestKeplerTimeSincePeriapsis(t *testing.T) {
	o := NewOrbitFromOE(8e6, 0.1, 28.5, 10, 20, 30, μEarth, 0)
	s, err := NewKeplerSolver(1).Propagate(μEarth, o.State(0), 1000)
	if err != nil {
		t.Fatal(err)
	}
	o1 := NewOrbitFromState(s, μEarth, 0)
	if Δt := o1.TimeSincePeriapsis() - o.TimeSincePeriapsis(); !scalar.EqualWithinAbs(Δt, 1000, 1e-6) {
		t.Fatalf("Kepler's equation not satisfied: Δt=%f", Δt)
	}
	if ok, err := o.Equals(o1); !ok {
		t.Fatalf("orbit changed during unperturbed propagation: %s", err)
	}
}

func TestKeplerConservation(t *testing.T) {
	μ := 3.986e14
	s := NewStateRV(0, []float64{7e6, 1e6, 2e5}, []float64{-1000, 8500, 1200})
	ξ0 := s.Energyξ(μ)
	h0 := norm(s.H())
	k := NewKeplerSolver(1)
	var err error
	for i := 0; i < 1000; i++ {
		if s, err = k.Propagate(μ, s, 60); err != nil {
			t.Fatalf("step %d: %s", i, err)
		}
	}
	if !scalar.EqualWithinRel(s.Energyξ(μ), ξ0, 1e-9) {
		t.Fatalf("energy drift: %e != %e", s.Energyξ(μ), ξ0)
	}
	if !scalar.EqualWithinRel(norm(s.H()), h0, 1e-9) {
		t.Fatalf("angular momentum drift: %e != %e", norm(s.H()), h0)
	}
	if !scalar.EqualWithinAbs(s.Time, 60000, 1e-6) {
		t.Fatalf("invalid time %f", s.Time)
	}
}

func TestKeplerIdentity(t *testing.T) {
	R0 := []float64{7e6, 1e6, 2e5}
	V0 := []float64{-1000, 8500, 1200}
	R, V, err := NewKeplerSolver(1).Solve(3.986e14, R0, V0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !vectorsEqual(R, R0, 0) || !vectorsEqual(V, V0, 0) {
		t.Fatal("Δt=0 should be the identity")
	}
	R[0] = 0
	if R0[0] != 7e6 {
		t.Fatal("identity must return copies")
	}
}

func TestKeplerNonConvergence(t *testing.T) {
	k := NewKeplerSolver(1)
	k.MaxIterations = 1
	k.MaxReseeds = 2
	_, _, err := k.Solve(3.986e14, []float64{7e6, 1e6, 2e5}, []float64{-1000, 8500, 1200}, 12345.6)
	if !errors.Is(err, ErrNonConvergence) {
		t.Fatalf("expected non convergence, got %v", err)
	}
}

func TestStumpffContinuity(t *testing.T) {
	for _, z := range []float64{stumpffSeriesε, -stumpffSeriesε} {
		Cl, Sl := Stumpff(z * (1 - 1e-9))
		Cr, Sr := Stumpff(z * (1 + 1e-9))
		if !scalar.EqualWithinAbs(Cl, Cr, 1e-9) || !scalar.EqualWithinAbs(Sl, Sr, 1e-9) {
			t.Fatalf("Stumpff discontinuity at %e: C %f/%f S %f/%f", z, Cl, Cr, Sl, Sr)
		}
	}
	C, S := Stumpff(0)
	if C != 0.5 || S != 1/6.0 {
		t.Fatalf("Stumpff(0) = %f, %f", C, S)
	}
	C, S = Stumpff(math.Pi * math.Pi)
	if !scalar.EqualWithinAbs(C, 2/(math.Pi*math.Pi), 1e-12) || !scalar.EqualWithinAbs(S, 1/(math.Pi*math.Pi), 1e-12) {
		t.Fatalf("Stumpff(π²) = %f, %f", C, S)
	}
}
