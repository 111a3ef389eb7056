package spacesim

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestStageUseFuel(t *testing.T) {
	stage := NewRocketStage("test", 1000, 500, NewGenericEngine("e", 2*StandardGravity*300, 300))
	if rate := stage.TotalMassFlowRate(); !scalar.EqualWithinAbs(rate, 2, 1e-12) {
		t.Fatalf("invalid mass flow rate %f", rate)
	}
	if !scalar.EqualWithinAbs(stage.Isp(), 300, 1e-9) {
		t.Fatalf("invalid isp %f", stage.Isp())
	}
	if !scalar.EqualWithinAbs(stage.BurnTime(), 250, 1e-9) {
		t.Fatalf("invalid burn time %f", stage.BurnTime())
	}
	burnt, consumed, ok := stage.UseFuel(10)
	if !ok || !scalar.EqualWithinAbs(consumed, 20, 1e-9) || !scalar.EqualWithinAbs(burnt.FuelMassRemaining, 480, 1e-9) {
		t.Fatalf("invalid burn: %s (consumed %f)", burnt, consumed)
	}
	if stage.FuelMassRemaining != 500 {
		t.Fatal("UseFuel mutated the original stage")
	}
	if _, _, ok := stage.UseFuel(-1); ok {
		t.Fatal("negative burn time should fail")
	}
}

func TestFuelMonotonicity(t *testing.T) {
	stage := NewRocketStage("test", 1000, 100, NewGenericEngine("e", 3*StandardGravity*250, 250))
	total := 0.0
	failures := 0
	prev := stage.FuelMassRemaining
	for i := 0; i < 100; i++ {
		next, consumed, ok := stage.UseFuel(7)
		if !ok {
			failures++
			if next.FuelMassRemaining != stage.FuelMassRemaining {
				t.Fatal("failed burn modified the stage")
			}
			continue
		}
		if next.FuelMassRemaining > prev {
			t.Fatal("fuel increased")
		}
		total += consumed
		prev = next.FuelMassRemaining
		stage = next
	}
	if stage.FuelMassRemaining < 0 {
		t.Fatalf("negative fuel %f", stage.FuelMassRemaining)
	}
	if total > stage.FuelMass {
		t.Fatalf("consumed %f kg out of %f kg", total, stage.FuelMass)
	}
	// 100 kg at 3 kg/s allow four burns of 21 kg.
	if failures != 96 || !scalar.EqualWithinAbs(total, 84, 1e-9) {
		t.Fatalf("%d failures and %f kg consumed", failures, total)
	}
}

func TestTsiolkovsky(t *testing.T) {
	isp := 311.
	stage := NewRocketStage("s1", 25600, 395700, Merlin1D, Merlin1D)
	payload := 100e3
	exp := ExhaustVelocity(isp) * math.Log((25600+395700+payload)/(25600+payload))
	if !scalar.EqualWithinRel(stage.DeltaV(payload), exp, 1e-9) {
		t.Fatalf("Δv=%f expected %f", stage.DeltaV(payload), exp)
	}
	if !scalar.EqualWithinAbs(stage.TotalThrust(), 2*914e3, 1e-6) {
		t.Fatalf("invalid total thrust %f", stage.TotalThrust())
	}
}

func TestRocketStaging(t *testing.T) {
	s1 := NewRocketStage("s1", 2000, 8000, NewGenericEngine("big", 200e3, 280))
	s2 := NewRocketStage("s2", 500, 2000, NewGenericEngine("small", 20e3, 340))
	rocket := NewRocket(300, s1, s2)
	if !scalar.EqualWithinAbs(rocket.Mass(), 12800, 1e-9) {
		t.Fatalf("invalid rocket mass %f", rocket.Mass())
	}
	exp := s1.DeltaV(2800) + s2.DeltaV(300)
	if !scalar.EqualWithinRel(rocket.DeltaV(), exp, 1e-12) {
		t.Fatalf("invalid rocket Δv %f != %f", rocket.DeltaV(), exp)
	}
	upper, shed, ok := rocket.Stage()
	if !ok || shed.Name != "s1" || len(upper.Stages) != 1 || len(rocket.Stages) != 2 {
		t.Fatal("staging failed or mutated the rocket")
	}
	if thrust, _ := upper.Thrust(); thrust != 20e3 {
		t.Fatalf("upper stage thrust %f", thrust)
	}
	burnt, _, _ := s2.UseFuel(1)
	if upper.WithCurrent(burnt).Stages[0].FuelMassRemaining == upper.Stages[0].FuelMassRemaining {
		t.Fatal("WithCurrent did not replace the current stage")
	}
	payload, _, _ := upper.Stage()
	if _, _, ok := payload.Stage(); ok {
		t.Fatal("a bare payload cannot stage")
	}
	if thrust, rate := payload.Thrust(); thrust != 0 || rate != 0 {
		t.Fatal("a bare payload has no thrust")
	}
}
