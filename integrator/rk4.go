package integrator

// RK4 defines a classic fourth order Runge-Kutta integrator.
type RK4 struct {
	X0         float64    // The initial x0.
	StepSize   float64    // The step size, may be negative to integrate backward.
	Integrator Integrable // What is to be integrated.
}

// NewRK4 returns a new RK4 integrator instance.
func NewRK4(x0 float64, stepSize float64, inte Integrable) (r *RK4) {
	if stepSize == 0 {
		panic("config StepSize must not be zero")
	}
	if inte == nil {
		panic("config Integrator may not be nil")
	}
	r = &RK4{X0: x0, StepSize: stepSize, Integrator: inte}
	return
}

// Step performs a single step of size h from xi and returns the new state without
// setting it on the integrable.
func Step(inte Integrable, xi, h float64, state []float64) []float64 {
	const (
		half     = 1 / 2.0
		oneSixth = 1 / 6.0
		oneThird = 1 / 3.0
	)
	halfStep := h * half
	newState := make([]float64, len(state))
	k1 := make([]float64, len(state))
	//k2, k3, k4 are used as buffers AND result variables.
	k2 := make([]float64, len(state))
	k3 := make([]float64, len(state))
	k4 := make([]float64, len(state))
	tState := make([]float64, len(state))

	// Compute the k's.
	for i, y := range inte.Func(xi, state) {
		k1[i] = y * h
		tState[i] = state[i] + k1[i]*half
	}
	for i, y := range inte.Func(xi+halfStep, tState) {
		k2[i] = y * h
		tState[i] = state[i] + k2[i]*half
	}
	for i, y := range inte.Func(xi+halfStep, tState) {
		k3[i] = y * h
		tState[i] = state[i] + k3[i]
	}
	for i, y := range inte.Func(xi+h, tState) {
		k4[i] = y * h
		newState[i] = state[i] + oneSixth*(k1[i]+k4[i]) + oneThird*(k2[i]+k3[i])
	}
	return newState
}

// Solve solves the configured RK4.
// Returns the number of iterations performed and the last X_i, or an error.
func (r *RK4) Solve() (uint64, float64, error) {
	iterNum := uint64(0)
	xi := r.X0
	for !r.Integrator.Stop(iterNum) {
		r.Integrator.SetState(iterNum, Step(r.Integrator, xi, r.StepSize, r.Integrator.GetState()))
		xi += r.StepSize
		iterNum++ // Don't forget to increment the number of iterations.
	}
	return iterNum, xi, nil
}
