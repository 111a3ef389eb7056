package tools

import (
	"errors"
	"fmt"
	"math"

	"github.com/ChristopherRabotin/spacesim"
	kitlog "github.com/go-kit/kit/log"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	geometryε   = 1e-12 // 1 ± cos(Δν) below which the transfer plane is undefined
	parabolicε  = 1e-4  // relative distance to the parabolic time of flight
	ψIncrement  = 0.1   // raise of ψ while y is negative
	ψMaxRaises  = 10000 // bound on the raises of ψ
	defaultIter = 1000
)

// Algorithm is the method used to solve Lambert's problem.
type Algorithm uint8

const (
	// UniversalVariable bisects on ψ, the square of the change in universal anomaly.
	UniversalVariable Algorithm = iota + 1
	// PIteration iterates on the semi latus rectum of the transfer orbit with Newton-Raphson.
	PIteration
	// Adaptive tries the primary algorithm first and the secondary one if it fails.
	Adaptive
)

func (a Algorithm) String() string {
	switch a {
	case UniversalVariable:
		return "universal"
	case PIteration:
		return "piteration"
	case Adaptive:
		return "adaptive"
	default:
		panic(fmt.Errorf("unknown algorithm %d", a))
	}
}

// AlgorithmFromString returns the algorithm of the provided name.
func AlgorithmFromString(name string) (Algorithm, error) {
	switch name {
	case "universal", "universal-variable":
		return UniversalVariable, nil
	case "piteration", "p-iteration":
		return PIteration, nil
	case "adaptive", "":
		return Adaptive, nil
	default:
		return 0, fmt.Errorf("unknown Lambert algorithm '%s'", name)
	}
}

// GaussSolver solves Lambert's problem: it finds the conic joining two positions in a given time.
type GaussSolver struct {
	Algorithm          Algorithm
	Primary, Secondary Algorithm // order of the adaptive solver
	MaxIterations      int       // per algorithm
	Tolerance          float64   // relative time of flight tolerance
	ReseedInterval     int       // p-iterations before a random reseed
	MaxReseeds         int
	Logger             kitlog.Logger
	src                rand.Source
}

// NewGaussSolver returns a solver with the default budget and a deterministic RNG seeded with seed.
func NewGaussSolver(algo Algorithm, seed uint64) *GaussSolver {
	return &GaussSolver{
		Algorithm:      algo,
		Primary:        UniversalVariable,
		Secondary:      PIteration,
		MaxIterations:  defaultIter,
		Tolerance:      1e-10,
		ReseedInterval: 50,
		MaxReseeds:     10,
		Logger:         kitlog.NewNopLogger(),
		src:            rand.NewSource(seed),
	}
}

// NewGaussSolverFromConfig returns the solver described by the gauss section of the configuration.
func NewGaussSolverFromConfig(conf spacesim.Config) (*GaussSolver, error) {
	algo, err := AlgorithmFromString(conf.GaussAlgorithm)
	if err != nil {
		return nil, err
	}
	g := NewGaussSolver(algo, conf.Seed)
	g.MaxIterations = conf.GaussMaxIterations
	g.Tolerance = conf.GaussTolerance
	g.ReseedInterval = conf.GaussReseedInterval
	g.MaxReseeds = conf.GaussMaxReseeds
	return g, nil
}

// geometry holds the quantities shared by both algorithms.
type geometry struct {
	Ri, Rf    *mat.VecDense
	rI, rF    float64
	cosΔν, Δν float64
	longWay   bool
}

func newGeometry(Ri, Rf *mat.VecDense, longWay bool) (geometry, error) {
	if Ri.Len() != 3 || Rf.Len() != 3 {
		return geometry{}, errors.New("initial and final radii must be 3x1 vectors")
	}
	rI := mat.Norm(Ri, 2)
	rF := mat.Norm(Rf, 2)
	if rI == 0 || rF == 0 {
		return geometry{}, fmt.Errorf("null radius: %w", spacesim.ErrDegenerateTransfer)
	}
	cosΔν := math.Max(-1, math.Min(1, mat.Dot(Ri, Rf)/(rI*rF)))
	if 1-cosΔν < geometryε || 1+cosΔν < geometryε {
		return geometry{}, fmt.Errorf("Δν=%f°: %w", spacesim.Rad2deg(math.Acos(cosΔν)), spacesim.ErrDegenerateTransfer)
	}
	Δν := math.Acos(cosΔν)
	if longWay {
		Δν = 2*math.Pi - Δν
	}
	return geometry{Ri, Rf, rI, rF, cosΔν, Δν, longWay}, nil
}

// velocities returns the velocities at both ends from the Lagrange coefficients.
func (geo geometry) velocities(f, g, gDot float64) (Vi, Vf *mat.VecDense) {
	Vi = mat.NewVecDense(3, nil)
	Vf = mat.NewVecDense(3, nil)
	Vi.AddScaledVec(geo.Rf, -f, geo.Ri)
	Vi.ScaleVec(1/g, Vi)
	Rf2 := mat.NewVecDense(3, nil)
	Rf2.ScaleVec(gDot, geo.Rf)
	Vf.AddScaledVec(Rf2, -1, geo.Ri)
	Vf.ScaleVec(1/g, Vf)
	return
}

// Solve returns the velocities at Ri and Rf (relative to the primary body of parameter μ) of the
// transfer lasting tof seconds. The long way sweeps more than 180 degrees.
func (g *GaussSolver) Solve(μ float64, Ri, Rf *mat.VecDense, tof float64, longWay bool) (Vi, Vf *mat.VecDense, err error) {
	if !(tof > 0) {
		return nil, nil, fmt.Errorf("time of flight must be positive, got %f", tof)
	}
	geo, err := newGeometry(Ri, Rf, longWay)
	if err != nil {
		return nil, nil, err
	}
	return g.solve(g.Algorithm, μ, geo, tof)
}

// SolveAbsolute is Solve for positions relative to the object of reference: the states of the
// primary body at departure and arrival are removed first.
func (g *GaussSolver) SolveAbsolute(μ float64, primaryI, primaryF spacesim.ObjectState, Ri, Rf *mat.VecDense, tof float64, longWay bool) (Vi, Vf *mat.VecDense, err error) {
	relI := mat.NewVecDense(3, nil)
	relI.SubVec(Ri, mat.NewVecDense(3, primaryI.Position))
	relF := mat.NewVecDense(3, nil)
	relF.SubVec(Rf, mat.NewVecDense(3, primaryF.Position))
	if Vi, Vf, err = g.Solve(μ, relI, relF, tof, longWay); err != nil {
		return
	}
	Vi.AddVec(Vi, mat.NewVecDense(3, primaryI.Velocity))
	Vf.AddVec(Vf, mat.NewVecDense(3, primaryF.Velocity))
	return
}

func (g *GaussSolver) solve(algo Algorithm, μ float64, geo geometry, tof float64) (*mat.VecDense, *mat.VecDense, error) {
	switch algo {
	case UniversalVariable:
		return g.universal(μ, geo, tof)
	case PIteration:
		return g.pIteration(μ, geo, tof)
	case Adaptive:
		Vi, Vf, errP := g.solve(g.Primary, μ, geo, tof)
		if errP == nil {
			return Vi, Vf, nil
		}
		g.logger().Log("level", "warning", "subsys", "lambert", "algorithm", g.Primary, "err", errP, "fallback", g.Secondary)
		Vi, Vf, errS := g.solve(g.Secondary, μ, geo, tof)
		if errS == nil {
			return Vi, Vf, nil
		}
		return nil, nil, errors.Join(fmt.Errorf("%s: %w", g.Primary, errP), fmt.Errorf("%s: %w", g.Secondary, errS))
	default:
		panic(fmt.Errorf("cannot solve Lambert's problem with %d", algo))
	}
}

func (g *GaussSolver) logger() kitlog.Logger {
	if g.Logger == nil {
		return kitlog.NewNopLogger()
	}
	return g.Logger
}

func (g *GaussSolver) converged(t, tof float64) bool {
	return math.Abs(t-tof) <= g.Tolerance*tof
}

// universal bisects on ψ between -4π and 4π², which covers transfers of less than one revolution.
func (g *GaussSolver) universal(μ float64, geo geometry, tof float64) (*mat.VecDense, *mat.VecDense, error) {
	dm := 1.0
	if geo.longWay {
		dm = -1
	}
	A := dm * math.Sqrt(geo.rI*geo.rF*(1+geo.cosΔν))
	sμ := math.Sqrt(μ)
	ψ, ψup, ψlow := 0.0, 4*math.Pi*math.Pi, -4*math.Pi
	c2, c3 := spacesim.Stumpff(ψ)
	var y float64
	for iter := 0; ; iter++ {
		if iter >= g.MaxIterations {
			return nil, nil, fmt.Errorf("universal variable after %d iterations: %w", iter, spacesim.ErrNonConvergence)
		}
		y = geo.rI + geo.rF + A*(ψ*c3-1)/math.Sqrt(c2)
		if A > 0 && y < 0 {
			// Raise ψ until y is positive, this is a new lower bound.
			for raises := 0; y < 0; raises++ {
				if raises >= ψMaxRaises {
					return nil, nil, fmt.Errorf("universal variable could not make y positive: %w", spacesim.ErrNonConvergence)
				}
				ψ += ψIncrement
				c2, c3 = spacesim.Stumpff(ψ)
				y = geo.rI + geo.rF + A*(ψ*c3-1)/math.Sqrt(c2)
			}
			ψlow = ψ
		}
		χ := math.Sqrt(y / c2)
		t := (χ*χ*χ*c3 + A*math.Sqrt(y)) / sμ
		if g.converged(t, tof) {
			break
		}
		if t < tof {
			ψlow = ψ
		} else {
			ψup = ψ
		}
		ψ = (ψup + ψlow) / 2
		c2, c3 = spacesim.Stumpff(ψ)
	}
	f := 1 - y/geo.rI
	gDot := 1 - y/geo.rF
	gL := A * math.Sqrt(y/μ)
	Vi, Vf := geo.velocities(f, gL, gDot)
	return Vi, Vf, nil
}

// pIteration solves for the semi latus rectum p with Newton-Raphson, within the bounds of p for
// which the transfer exists. The search reseeds randomly every ReseedInterval iterations.
func (g *GaussSolver) pIteration(μ float64, geo geometry, tof float64) (*mat.VecDense, *mat.VecDense, error) {
	if g.src == nil {
		g.src = rand.NewSource(1)
	}
	oneMinusCos := 1 - geo.cosΔν
	k := geo.rI * geo.rF * oneMinusCos
	l := geo.rI + geo.rF
	m := geo.rI * geo.rF * (1 + geo.cosΔν)
	sinΔν := math.Sin(geo.Δν)
	tanHalfΔν := math.Tan(geo.Δν / 2)
	// Transfers of less than 180 degrees have p in (p_i, ∞), the others in (0, p_ii).
	pLow, pHigh := k/(l+math.Sqrt(2*m)), math.Inf(1)
	if geo.Δν > math.Pi {
		pLow, pHigh = 0, k/(l-math.Sqrt(2*m))
	}
	if tp := parabolicTOF(μ, geo); math.Abs(tof-tp) <= parabolicε*tp {
		return nil, nil, fmt.Errorf("p-iteration: parabolic transfer (%.3f s): %w", tp, spacesim.ErrUnsupportedOrbitClass)
	}
	span := distuv.Uniform{Min: pLow, Max: pHigh, Src: g.src}
	if math.IsInf(pHigh, 1) {
		span.Max = 3 * pLow
	}
	p := (span.Min + span.Max) / 2
	reseeds := 0
	for iter := 0; ; iter++ {
		if iter >= g.MaxIterations {
			return nil, nil, fmt.Errorf("p-iteration after %d iterations: %w", iter, spacesim.ErrNonConvergence)
		}
		if iter > 0 && g.ReseedInterval > 0 && iter%g.ReseedInterval == 0 {
			if reseeds >= g.MaxReseeds {
				return nil, nil, fmt.Errorf("p-iteration after %d reseeds: %w", reseeds, spacesim.ErrNonConvergence)
			}
			reseeds++
			p = span.Rand()
		}
		den := (2*m-l*l)*p*p + 2*k*l*p - k*k
		if den == 0 {
			return nil, nil, fmt.Errorf("p-iteration: parabolic transfer: %w", spacesim.ErrUnsupportedOrbitClass)
		}
		a := m * k * p / den
		f := 1 - geo.rF/p*oneMinusCos
		gL := geo.rI * geo.rF * sinΔν / math.Sqrt(μ*p)
		fDot := math.Sqrt(μ/p) * tanHalfΔν * (oneMinusCos/p - 1/geo.rI - 1/geo.rF)
		var t, dtdp float64
		if a > 0 {
			cosΔE := 1 - geo.rI/a*(1-f)
			sinΔE := -geo.rI * geo.rF * fDot / math.Sqrt(μ*a)
			ΔE := math.Atan2(sinΔE, cosΔE)
			if ΔE < 0 {
				ΔE += 2 * math.Pi
			}
			sa := math.Sqrt(a * a * a / μ)
			t = gL + sa*(ΔE-sinΔE)
			dtdp = -gL/(2*p) - 1.5*a*(t-gL)*(k*k+(2*m-l*l)*p*p)/(m*k*p*p) + sa*2*k*sinΔE/(p*(k-l*p))
		} else {
			ΔF := math.Acosh(1 + (f-1)*geo.rI/a)
			sinhΔF := math.Sinh(ΔF)
			sa := math.Sqrt(-a * a * a / μ)
			t = gL + sa*(sinhΔF-ΔF)
			dtdp = -gL/(2*p) - 1.5*a*(t-gL)*(k*k+(2*m-l*l)*p*p)/(m*k*p*p) - sa*2*k*sinhΔF/(p*(k-l*p))
		}
		if g.converged(t, tof) {
			gDot := 1 - geo.rI/p*oneMinusCos
			Vi, Vf := geo.velocities(f, gL, gDot)
			return Vi, Vf, nil
		}
		next := p + (tof-t)/dtdp
		if math.IsNaN(next) || next <= pLow || next >= pHigh {
			// Newton left the domain of the transfer.
			next = span.Rand()
		}
		p = next
	}
}

// parabolicTOF returns the time of flight of the parabola joining both positions (Euler's equation).
func parabolicTOF(μ float64, geo geometry) float64 {
	chord := mat.NewVecDense(3, nil)
	chord.SubVec(geo.Rf, geo.Ri)
	c := mat.Norm(chord, 2)
	s := (geo.rI + geo.rF + c) / 2
	tp := math.Pow(s, 1.5)
	if geo.Δν < math.Pi {
		tp -= math.Pow(s-c, 1.5)
	} else {
		tp += math.Pow(s-c, 1.5)
	}
	return math.Sqrt(2/μ) * tp / 3
}
