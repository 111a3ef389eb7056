package spacesim

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	defaultKeplerMaxIterations = 100
	defaultKeplerTolerance     = 1e-12
	defaultMaxReseeds          = 10
	stumpffSeriesε             = 1e-6
	parabolicα                 = 1e-12
)

// KeplerSolver propagates unperturbed two body motion with the universal variable formulation.
type KeplerSolver struct {
	MaxIterations int     // Newton-Raphson iterations allowed per initial guess
	Tolerance     float64 // relative time of flight tolerance
	MaxReseeds    int     // random restarts allowed once the analytic guess fails
	src           rand.Source
}

// NewKeplerSolver returns a solver with the default budget and a deterministic RNG seeded with seed.
func NewKeplerSolver(seed uint64) *KeplerSolver {
	return &KeplerSolver{MaxIterations: defaultKeplerMaxIterations, Tolerance: defaultKeplerTolerance, MaxReseeds: defaultMaxReseeds, src: rand.NewSource(seed)}
}

// Stumpff returns the Stumpff functions C(z) and S(z).
func Stumpff(z float64) (C, S float64) {
	switch {
	case z > stumpffSeriesε:
		sz := math.Sqrt(z)
		return (1 - math.Cos(sz)) / z, (sz - math.Sin(sz)) / (sz * sz * sz)
	case z < -stumpffSeriesε:
		sz := math.Sqrt(-z)
		return (math.Cosh(sz) - 1) / (-z), (math.Sinh(sz) - sz) / (sz * sz * sz)
	default:
		return 0.5 - z/24 + z*z/720, 1/6.0 - z/120 + z*z/5040
	}
}

// Propagate returns the state Δt seconds after s (or before if Δt is negative).
func (k *KeplerSolver) Propagate(μ float64, s ObjectState, Δt float64) (ObjectState, error) {
	R, V, err := k.Solve(μ, s.Position, s.Velocity, Δt)
	if err != nil {
		return s, err
	}
	return s.WithRV(s.Time+Δt, R, V), nil
}

// Solve returns the relative position and velocity Δt seconds after (R0, V0).
func (k *KeplerSolver) Solve(μ float64, R0, V0 []float64, Δt float64) (R, V []float64, err error) {
	if Δt == 0 {
		return copyVec(R0), copyVec(V0), nil
	}
	r0 := norm(R0)
	v0 := norm(V0)
	rv := dot(R0, V0)
	vr0 := rv / r0
	sμ := math.Sqrt(μ)
	α := 2/r0 - v0*v0/μ
	if math.Abs(α) < parabolicα {
		α = 0
	}

	// timeOfFlight returns t(x) and dt/dx.
	timeOfFlight := func(x float64) (t, dtdx float64) {
		z := α * x * x
		C, S := Stumpff(z)
		t = (r0*vr0/sμ*x*x*C + (1-α*r0)*x*x*x*S + r0*x) / sμ
		dtdx = (r0*vr0/sμ*x*(1-z*S) + (1-α*r0)*x*x*C + r0) / sμ
		return
	}

	tol := k.Tolerance * math.Max(1, math.Abs(Δt))
	x := k.initialGuess(μ, R0, V0, α, Δt)
	converged := false
	for attempt := 0; attempt <= k.MaxReseeds && !converged; attempt++ {
		if attempt > 0 || !finite([]float64{x}) {
			x = k.randomGuess(sμ, r0, Δt)
		}
		for iter := 0; iter < k.MaxIterations; iter++ {
			t, dtdx := timeOfFlight(x)
			if math.Abs(Δt-t) < tol {
				converged = true
				break
			}
			x += (Δt - t) / dtdx
			if math.IsNaN(x) || math.IsInf(x, 0) {
				break
			}
		}
	}
	if !converged {
		return nil, nil, fmt.Errorf("kepler Δt=%f α=%e after %d reseeds: %w", Δt, α, k.MaxReseeds, ErrNonConvergence)
	}

	// Lagrange coefficients.
	z := α * x * x
	C, S := Stumpff(z)
	f := 1 - x*x/r0*C
	g := Δt - x*x*x*S/sμ
	R = add(scale(f, R0), scale(g, V0))
	r := norm(R)
	fDot := sμ / (r * r0) * (α*x*x*x*S - x)
	gDot := 1 - x*x/r*C
	V = add(scale(fDot, R0), scale(gDot, V0))
	return R, V, nil
}

// initialGuess returns the universal anomaly guess for the orbit class given by α.
// The result may be non finite, in which case a random guess is used.
func (k *KeplerSolver) initialGuess(μ float64, R0, V0 []float64, α, Δt float64) float64 {
	r0 := norm(R0)
	switch {
	case α > 0:
		return math.Sqrt(μ) * Δt * α
	case α < 0:
		a := 1 / α
		s := sign(Δt)
		return s * math.Sqrt(-a) * math.Log((-2*μ*α*Δt)/(dot(R0, V0)+s*math.Sqrt(-μ*a)*(1-r0*α)))
	default:
		// Barker's equation.
		h := norm(cross(R0, V0))
		p := h * h / μ
		s := 0.5 * math.Atan(1/(3*math.Sqrt(μ/(p*p*p))*Δt))
		w := math.Atan(math.Cbrt(math.Tan(s)))
		return math.Sqrt(p) * 2 / math.Tan(2*w)
	}
}

func (k *KeplerSolver) randomGuess(sμ, r0, Δt float64) float64 {
	if k.src == nil {
		k.src = rand.NewSource(1)
	}
	span := 2 * sμ * math.Abs(Δt) / r0
	return sign(Δt) * distuv.Uniform{Min: 0, Max: span, Src: k.src}.Rand()
}
