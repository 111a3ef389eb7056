package tools

import (
	"errors"
	"math"
	"testing"

	"github.com/ChristopherRabotin/spacesim"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

const μEarth = 3.98600433e14

func relErr(exp []float64, got *mat.VecDense) float64 {
	d := make([]float64, 3)
	floats.SubTo(d, exp, got.RawVector().Data)
	return floats.Norm(d, 2) / floats.Norm(exp, 2)
}

func TestLambertVallado(t *testing.T) {
	// From Vallado 4th edition, page 497 (km and km/s)
	μ := 3.98600433e5
	Ri := mat.NewVecDense(3, []float64{15945.34, 0, 0})
	Rf := mat.NewVecDense(3, []float64{12214.83899, 10249.46731, 0})
	for _, algo := range []Algorithm{UniversalVariable, PIteration, Adaptive} {
		for _, tc := range []struct {
			longWay bool
			Vi, Vf  []float64
		}{
			{false, []float64{2.058913, 2.915965, 0}, []float64{-3.451565, 0.910315, 0}},
			{true, []float64{-3.811158, -2.003854, 0}, []float64{4.207569, 0.914724, 0}},
		} {
			Vi, Vf, err := NewGaussSolver(algo, 1).Solve(μ, Ri, Rf, 76.0*60, tc.longWay)
			if err != nil {
				t.Fatalf("[%s long=%v] %s", algo, tc.longWay, err)
			}
			if !floats.EqualApprox(Vi.RawVector().Data, tc.Vi, 1e-6) {
				t.Fatalf("[%s long=%v] incorrect Vi computed\nGot %+v\nExp %+v", algo, tc.longWay, mat.Formatted(Vi.T()), tc.Vi)
			}
			if !floats.EqualApprox(Vf.RawVector().Data, tc.Vf, 1e-6) {
				t.Fatalf("[%s long=%v] incorrect Vf computed\nGot %+v\nExp %+v", algo, tc.longWay, mat.Formatted(Vf.T()), tc.Vf)
			}
		}
	}
}

func TestLambertKeplerConsistency(t *testing.T) {
	kepler := spacesim.NewKeplerSolver(1)
	for _, tc := range []struct {
		name string
		R, V []float64
		tof  float64
	}{
		{"elliptical", []float64{7e6, 1e6, 0}, []float64{-1e3, 8e3, 2e3}, 1800},
		{"inclined", []float64{7e6, 0, 0}, []float64{0, 9e3, 1e3}, 3000},
		{"long way", []float64{7e6, 0, 0}, []float64{0, 7.6e3, 0}, 4000},
		{"hyperbolic", []float64{7e6, 0, 0}, []float64{0, 14e3, 0}, 2000},
	} {
		Rf, Vf, err := kepler.Solve(μEarth, tc.R, tc.V, tc.tof)
		if err != nil {
			t.Fatalf("%s: %s", tc.name, err)
		}
		h := cross(tc.R, tc.V)
		longWay := floats.Dot(h, cross(tc.R, Rf)) < 0
		if longWay != (tc.name == "long way") {
			t.Fatalf("%s: unexpected direction of motion", tc.name)
		}
		for _, algo := range []Algorithm{UniversalVariable, PIteration} {
			Vi0, Vf0, err := NewGaussSolver(algo, 1).Solve(μEarth, mat.NewVecDense(3, tc.R), mat.NewVecDense(3, Rf), tc.tof, longWay)
			if err != nil {
				t.Fatalf("%s/%s: %s", tc.name, algo, err)
			}
			if e := relErr(tc.V, Vi0); e > 1e-6 {
				t.Fatalf("%s/%s: departure velocity off by %e", tc.name, algo, e)
			}
			if e := relErr(Vf, Vf0); e > 1e-6 {
				t.Fatalf("%s/%s: arrival velocity off by %e", tc.name, algo, e)
			}
		}
	}
}

func TestLambertAdaptive(t *testing.T) {
	μ := 3.98600433e5
	Ri := mat.NewVecDense(3, []float64{15945.34, 0, 0})
	Rf := mat.NewVecDense(3, []float64{12214.83899, 10249.46731, 0})
	// The bisection needs more iterations than allowed, the Newton iterations do not.
	uv := NewGaussSolver(UniversalVariable, 1)
	uv.MaxIterations = 10
	if _, _, err := uv.Solve(μ, Ri, Rf, 76.0*60, false); !errors.Is(err, spacesim.ErrNonConvergence) {
		t.Fatalf("expected non convergence, got %v", err)
	}
	adaptive := NewGaussSolver(Adaptive, 1)
	adaptive.MaxIterations = 10
	Vi, _, err := adaptive.Solve(μ, Ri, Rf, 76.0*60, false)
	if err != nil {
		t.Fatalf("adaptive solver should have fallen back: %s", err)
	}
	if !floats.EqualApprox(Vi.RawVector().Data, []float64{2.058913, 2.915965, 0}, 1e-6) {
		t.Fatalf("incorrect Vi from the fallback: %+v", mat.Formatted(Vi.T()))
	}
	adaptive.MaxIterations = 2
	_, _, err = adaptive.Solve(μ, Ri, Rf, 76.0*60, false)
	if !errors.Is(err, spacesim.ErrNonConvergence) {
		t.Fatalf("expected both algorithms to fail, got %v", err)
	}
	if uw, ok := err.(interface{ Unwrap() []error }); !ok || len(uw.Unwrap()) != 2 {
		t.Fatalf("expected one error per algorithm, got %v", err)
	}
}

func TestLambertReseedBudget(t *testing.T) {
	μ := 3.98600433e5
	Ri := mat.NewVecDense(3, []float64{15945.34, 0, 0})
	Rf := mat.NewVecDense(3, []float64{12214.83899, 10249.46731, 0})
	g := NewGaussSolver(PIteration, 1)
	g.ReseedInterval = 2
	g.MaxReseeds = 0
	if _, _, err := g.Solve(μ, Ri, Rf, 76.0*60, false); !errors.Is(err, spacesim.ErrNonConvergence) {
		t.Fatalf("expected the reseed budget to be exhausted, got %v", err)
	}
}

func TestLambertParabolic(t *testing.T) {
	R := []float64{7e6, 0, 0}
	V := []float64{0, math.Sqrt(2 * μEarth / 7e6), 0}
	Rf, _, err := spacesim.NewKeplerSolver(1).Solve(μEarth, R, V, 2000)
	if err != nil {
		t.Fatal(err)
	}
	Ri := mat.NewVecDense(3, R)
	Rf0 := mat.NewVecDense(3, Rf)
	if _, _, err := NewGaussSolver(PIteration, 1).Solve(μEarth, Ri, Rf0, 2000, false); !errors.Is(err, spacesim.ErrUnsupportedOrbitClass) {
		t.Fatalf("p-iteration should not solve parabolic transfers, got %v", err)
	}
	Vi, _, err := NewGaussSolver(UniversalVariable, 1).Solve(μEarth, Ri, Rf0, 2000, false)
	if err != nil {
		t.Fatal(err)
	}
	if e := relErr(V, Vi); e > 1e-6 {
		t.Fatalf("parabolic departure velocity off by %e", e)
	}
	// The adaptive solver falls back in the other direction too.
	g := NewGaussSolver(Adaptive, 1)
	g.Primary, g.Secondary = PIteration, UniversalVariable
	if _, _, err := g.Solve(μEarth, Ri, Rf0, 2000, false); err != nil {
		t.Fatal(err)
	}
}

func TestLambertErrors(t *testing.T) {
	g := NewGaussSolver(Adaptive, 1)
	Ri := mat.NewVecDense(3, []float64{7e6, 0, 0})
	for _, tc := range []struct {
		name       string
		Ri, Rf     *mat.VecDense
		tof        float64
		degenerate bool
	}{
		{"null time of flight", Ri, mat.NewVecDense(3, []float64{0, 7e6, 0}), 0, false},
		{"negative time of flight", Ri, mat.NewVecDense(3, []float64{0, 7e6, 0}), -10, false},
		{"2D vectors", mat.NewVecDense(2, []float64{7e6, 0}), mat.NewVecDense(2, []float64{0, 7e6}), 100, false},
		{"null radius", Ri, mat.NewVecDense(3, nil), 100, true},
		{"collinear", Ri, mat.NewVecDense(3, []float64{1.4e7, 0, 0}), 100, true},
		{"opposite", Ri, mat.NewVecDense(3, []float64{-1.4e7, 0, 0}), 100, true},
	} {
		_, _, err := g.Solve(μEarth, tc.Ri, tc.Rf, tc.tof, false)
		if err == nil {
			t.Fatalf("%s: expected an error", tc.name)
		}
		if tc.degenerate != errors.Is(err, spacesim.ErrDegenerateTransfer) {
			t.Fatalf("%s: unexpected error %s", tc.name, err)
		}
	}
	assertPanic(t, func() {
		_ = Algorithm(0).String()
	})
}

func TestAlgorithmFromString(t *testing.T) {
	for name, exp := range map[string]Algorithm{"universal": UniversalVariable, "p-iteration": PIteration, "piteration": PIteration, "": Adaptive} {
		algo, err := AlgorithmFromString(name)
		if err != nil || algo != exp {
			t.Fatalf("%q: got %d (%v)", name, algo, err)
		}
		if name != "" && name != "p-iteration" && algo.String() != name {
			t.Fatalf("%s does not round trip", algo)
		}
	}
	if _, err := AlgorithmFromString("izzo"); err == nil {
		t.Fatal("unknown algorithm should fail")
	}
	conf := spacesim.DefaultConfig()
	g, err := NewGaussSolverFromConfig(conf)
	if err != nil {
		t.Fatal(err)
	}
	if g.Algorithm != Adaptive || g.MaxIterations != conf.GaussMaxIterations || !scalar.EqualWithinAbs(g.Tolerance, 1e-10, 1e-20) {
		t.Fatalf("unexpected solver %+v", g)
	}
	conf.GaussAlgorithm = "izzo"
	if _, err := NewGaussSolverFromConfig(conf); err == nil {
		t.Fatal("unknown algorithm should fail")
	}
}

func TestSolveAbsolute(t *testing.T) {
	// Same Vallado transfer, with the primary body moving.
	μ := 3.98600433e5
	offsetI := spacesim.NewStateRV(0, []float64{1e5, 2e5, 3e5}, []float64{10, 20, 30})
	offsetF := spacesim.NewStateRV(76*60, []float64{4e5, 5e5, 6e5}, []float64{-10, -20, 30})
	Ri := mat.NewVecDense(3, []float64{15945.34 + 1e5, 2e5, 3e5})
	Rf := mat.NewVecDense(3, []float64{12214.83899 + 4e5, 10249.46731 + 5e5, 6e5})
	Vi, Vf, err := NewGaussSolver(UniversalVariable, 1).SolveAbsolute(μ, offsetI, offsetF, Ri, Rf, 76.0*60, false)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(Vi.RawVector().Data, []float64{12.058913, 22.915965, 30}, 1e-6) {
		t.Fatalf("incorrect Vi %+v", mat.Formatted(Vi.T()))
	}
	if !floats.EqualApprox(Vf.RawVector().Data, []float64{-13.451565, -19.089685, 30}, 1e-6) {
		t.Fatalf("incorrect Vf %+v", mat.Formatted(Vf.T()))
	}
}

func cross(a, b []float64) []float64 {
	return []float64{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("code did not panic")
		}
	}()
	f()
}
