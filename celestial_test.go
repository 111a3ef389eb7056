package spacesim

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestCelestialObject(t *testing.T) {
	for _, object := range []CelestialObject{Sun, Venus, Earth, Moon, Mars, Jupiter} {
		fromName, err := CelestialObjectFromString(object.Name)
		if err != nil {
			t.Fatal(err)
		}
		if !fromName.Equals(object) {
			t.Fatalf("%s not found by name", object)
		}
		if object.GM() <= 0 || object.Radius() <= 0 {
			t.Fatalf("%s has invalid properties", object)
		}
	}
	if _, err := CelestialObjectFromString("Vesta"); err == nil {
		t.Fatal("Vesta is not catalogued")
	}
	if !scalar.EqualWithinRel(Earth.GM(), 3.98600433e14, 1e-12) {
		t.Fatalf("invalid Earth μ %e", Earth.GM())
	}
	if Venus.Config.RotationRate() >= 0 {
		t.Fatal("Venus rotates retrograde")
	}
	if Earth.Atmosphere == nil || Moon.Atmosphere != nil {
		t.Fatal("invalid atmospheres")
	}
}

func TestCelestialMeanOrbit(t *testing.T) {
	if _, err := Sun.MeanOrbit(0, Sun.GM(), NoHandle); err == nil {
		t.Fatal("the Sun does not orbit anything")
	}
	o, err := Earth.MeanOrbit(90, Sun.GM(), 0)
	if err != nil {
		t.Fatal(err)
	}
	period, err := o.Period()
	if err != nil {
		t.Fatal(err)
	}
	if days := period.Hours() / 24; math.Abs(days-365.25) > 0.5 {
		t.Fatalf("Earth year lasts %f days", days)
	}
	if !scalar.EqualWithinRel(o.RNorm(), AU, 1e-3) {
		t.Fatalf("Earth is not at 1 AU: %f", o.RNorm())
	}
}
