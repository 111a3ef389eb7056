package integrator

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

// Balbasi1D is the cooling ball example from Balbasi's numerical methods course.
type Balbasi1D struct {
	state []float64 // Note that we don't have a state history here.
}

func NewBalbasi1D() (b *Balbasi1D) {
	b = &Balbasi1D{}
	b.state = []float64{1200.0}
	return
}

func (b *Balbasi1D) GetState() []float64 {
	return b.state
}

func (b *Balbasi1D) SetState(i uint64, s []float64) {
	b.state = s
}

func (b *Balbasi1D) Stop(i uint64) bool {
	return i*30 >= 480
}

func (b *Balbasi1D) Func(t float64, s []float64) []float64 {
	return []float64{(-2.2067 * 1e-12) * (math.Pow(s[0], 4) - 81*1e8)}
}

func TestRK4In1D(t *testing.T) {
	inte := NewBalbasi1D()
	iterNum, xi, err := NewRK4(0, 30, inte).Solve()
	if err != nil {
		t.Fatalf("err: %+v\n", err)
	}
	if iterNum != 16 || xi != 480 {
		t.Fatalf("iterNum = %d\txi = %f", iterNum, xi)
	}
	// Temperature after 480 seconds is about 647.57 K.
	if final := inte.GetState()[0]; !scalar.EqualWithinAbs(final, 647.57, 0.1) {
		t.Fatalf("final state = %f", final)
	}
}

// Exponential integrates y' = y from t = 0 until tf.
type Exponential struct {
	y    []float64
	h    float64
	tf   float64
	last float64
}

func (e *Exponential) GetState() []float64 {
	return e.y
}

func (e *Exponential) SetState(i uint64, s []float64) {
	e.y = s
}

func (e *Exponential) Stop(i uint64) bool {
	return float64(i)*e.h >= e.tf-1e-12
}

func (e *Exponential) Func(t float64, s []float64) []float64 {
	e.last = t
	return []float64{s[0]}
}

func TestRK4Order(t *testing.T) {
	prevErr := 0.0
	for _, h := range []float64{0.2, 0.1, 0.05} {
		inte := &Exponential{y: []float64{1}, h: h, tf: 2}
		if _, _, err := NewRK4(0, h, inte).Solve(); err != nil {
			t.Fatal(err)
		}
		if !scalar.EqualWithinAbs(inte.last, 2, 1e-9) {
			t.Fatalf("last evaluation at t=%f instead of the end of the interval", inte.last)
		}
		err := math.Abs(inte.GetState()[0] - math.Exp(2))
		if prevErr > 0 {
			if ratio := prevErr / err; ratio < 14 || ratio > 18 {
				t.Fatalf("error ratio %f for h=%f is not fourth order", ratio, h)
			}
		}
		prevErr = err
	}
}

func TestRK4Backward(t *testing.T) {
	inte := &Exponential{y: []float64{math.Exp(1)}, h: 0.01, tf: 1}
	if _, _, err := NewRK4(1, -0.01, inte).Solve(); err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(inte.GetState()[0], 1, 1e-9) {
		t.Fatalf("backward integration reached %f", inte.GetState()[0])
	}
}

func TestRK4Panics(t *testing.T) {
	for _, f := range []func(){
		func() { NewRK4(0, 0, NewBalbasi1D()) },
		func() { NewRK4(0, 1, nil) },
	} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("code did not panic")
				}
			}()
			f()
		}()
	}
}
