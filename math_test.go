package spacesim

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// vectorsEqual returns whether both vectors have the same size and are element-wise within tol,
// in absolute terms.
func vectorsEqual(a, b []float64, tol float64) bool {
	return len(a) == len(b) && floats.EqualFunc(a, b, func(x, y float64) bool {
		return scalar.EqualWithinAbs(x, y, tol)
	})
}

// relEqual returns whether both vectors are within rel relative to the norm of a.
func relEqual(a, b []float64, rel float64) bool {
	return len(a) == len(b) && norm(sub(a, b)) <= rel*norm(a)
}

func anglesEqual(a, b float64) (bool, error) {
	if scalar.EqualWithinAbs(math.Mod(a-b+3*math.Pi, 2*math.Pi), math.Pi, angleε) {
		return true, nil
	}
	return false, errors.New("angles do not match")
}

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("code did not panic")
		}
	}()
	f()
}

func TestCross(t *testing.T) {
	i := []float64{1, 0, 0}
	j := []float64{0, 1, 0}
	k := []float64{0, 0, 1}
	if !vectorsEqual(cross(i, j), k, 0) {
		t.Fatal("i x j != k")
	}
	if !vectorsEqual(cross(j, k), i, 0) {
		t.Fatal("j x k != i")
	}
	if !vectorsEqual(cross([]float64{2, 3, 4}, []float64{5, 6, 7}), []float64{-3, 6, -3}, 0) {
		t.Fatal("cross fail")
	}
	// From Vallado
	if !vectorsEqual(cross([]float64{6524.834, 6862.875, 6448.296}, []float64{4.901327, 5.533756, -1.976341}), []float64{-4.924667792015100e4, 4.450050424118601e4, 0.246964476137900e4}, 1e-6) {
		t.Fatal("cross fail")
	}
}

func TestAngles(t *testing.T) {
	for i := 0.0; i < 360; i += 0.5 {
		if !scalar.EqualWithinAbs(i, Rad2deg(Deg2rad(i)), 1e-9) {
			t.Fatalf("incorrect conversion for %3.2f", i)
		}
	}
	if !scalar.EqualWithinAbs(Rad2deg(Deg2rad(-359.)), 1, 1e-9) {
		t.Fatal("incorrect conversion for -359")
	}
	if !scalar.EqualWithinAbs(Rad2deg(Deg2rad(-180.)), 180, 1e-9) {
		t.Fatal("incorrect conversion for -180")
	}
}

func TestMisc(t *testing.T) {
	if vectorsEqual([]float64{1, 0}, []float64{1, 0, 0}, 0) {
		t.Fatal("vectors of different sizes should not be equal")
	}
	if sign(10) != 1 {
		t.Fatal("sign of 10 != 1")
	}
	if sign(-10) != -1 {
		t.Fatal("sign of -10 != 1")
	}
	if sign(0) != 1 {
		t.Fatal("sign of 0 != 1")
	}
	nilVec := []float64{0, 0, 0}
	if norm(nilVec) != 0 {
		t.Fatal("norm of a nil vector was not nil")
	}
	five0 := []float64{5, 6, 7}
	five1 := []float64{7, 6, 5}
	if norm(five0) != math.Sqrt(110) || norm(five0) != norm(five1) {
		t.Fatal("norm of the [5, 6, 7] and permutations is invalid")
	}
	if !vectorsEqual(unit(nilVec), nilVec, 0) {
		t.Fatal("unit of nil vector should be nil")
	}
	a := []float64{1, 2, 3}
	b := []float64{4, 5, 6}
	if !vectorsEqual(add(a, b), []float64{5, 7, 9}, 0) || !vectorsEqual(sub(b, a), []float64{3, 3, 3}, 0) {
		t.Fatal("add/sub fail")
	}
	if !vectorsEqual(scale(2, a), []float64{2, 4, 6}, 0) || a[0] != 1 {
		t.Fatal("scale fail or operand mutated")
	}
	if dot(a, b) != 32 {
		t.Fatal("dot fail")
	}
	if finite([]float64{1, math.NaN(), 0}) || !finite(a) {
		t.Fatal("finite fail")
	}
}
