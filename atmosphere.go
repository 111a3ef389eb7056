package spacesim

import "math"

// AtmosphericModel returns the atmospheric density of a primary body.
type AtmosphericModel interface {
	Density(altitude float64) float64 // kg/m^3 at an altitude in meters above the surface
}

// ExponentialAtmosphere is an isothermal atmosphere whose density decays exponentially with altitude.
type ExponentialAtmosphere struct {
	SurfaceDensity float64 // kg/m^3
	ScaleHeight    float64 // m
	Ceiling        float64 // m, density is zero above
}

// Density implements the AtmosphericModel interface.
func (a ExponentialAtmosphere) Density(altitude float64) float64 {
	if a.Ceiling > 0 && altitude > a.Ceiling {
		return 0
	}
	if altitude < 0 {
		altitude = 0
	}
	return a.SurfaceDensity * math.Exp(-altitude/a.ScaleHeight)
}

// AtmosphericProperties defines how an object interacts with an atmosphere.
type AtmosphericProperties struct {
	DragCoefficient float64
	ReferenceArea   float64 // m^2
}

// Drag returns the drag acceleration on an object of the provided mass. The atmosphere corotates
// with the primary body.
func (p AtmosphericProperties) Drag(model AtmosphericModel, primary Configuration, s ObjectState, mass float64) []float64 {
	if model == nil || mass <= 0 {
		return []float64{0, 0, 0}
	}
	ρ := model.Density(s.RNorm() - primary.Radius)
	if ρ == 0 {
		return []float64{0, 0, 0}
	}
	ω := scale(primary.RotationRate(), primary.Axis())
	vRel := sub(s.Velocity, cross(ω, s.Position))
	return scale(-0.5*ρ*p.DragCoefficient*p.ReferenceArea*norm(vRel)/mass, vRel)
}
