package spacesim

import (
	"fmt"
	"strings"
)

const (
	// AU is one astronomical unit in meters.
	AU = 1.49597870700e11
)

// CelestialObject defines a well known natural body.
type CelestialObject struct {
	Name       string
	Config     Configuration
	Parent     string  // Name of the body this one orbits, empty for the Sun
	a          float64 // Mean orbital radius around the parent, in meters
	incl       float64 // Inclination on the parent's equator or the ecliptic, in degrees
	SOI        float64 // Sphere of influence radius, in meters
	Atmosphere AtmosphericModel
}

// GM returns μ in m^3/s^2.
func (c CelestialObject) GM() float64 {
	return c.Config.GM()
}

// Radius returns the mean equatorial radius in meters.
func (c CelestialObject) Radius() float64 {
	return c.Config.Radius
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// Equals returns whether the provided celestial object is the same.
func (c CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Config.Radius == b.Config.Radius && c.a == b.a && c.Config.Mass == b.Config.Mass && c.SOI == b.SOI && c.Config.J2 == b.Config.J2
}

// MeanOrbit returns the circular orbit of mean radius of this object around its parent
// (of gravitational parameter μ), at true longitude λ in degrees.
func (c CelestialObject) MeanOrbit(λ, μ float64, parent Handle) (Orbit, error) {
	if c.Parent == "" {
		return Orbit{}, fmt.Errorf("%s does not orbit anything", c.Name)
	}
	return NewOrbitFromOE(c.a, 0, c.incl, 0, 0, λ, μ, parent), nil
}

// CelestialObjectFromString returns the object from its name
func CelestialObjectFromString(name string) (CelestialObject, error) {
	switch strings.ToLower(name) {
	case "sun":
		return Sun, nil
	case "venus":
		return Venus, nil
	case "earth":
		return Earth, nil
	case "moon":
		return Moon, nil
	case "mars":
		return Mars, nil
	case "jupiter":
		return Jupiter, nil
	default:
		return CelestialObject{}, fmt.Errorf("undefined celestial object '%s'", name)
	}
}

func body(name string, μ, radius, rotationalPeriod, j2 float64) Configuration {
	c := NewConfigurationFromGM(μ, radius, rotationalPeriod)
	c.J2 = j2
	return c
}

/* Definitions */

// Sun is our closest star.
var Sun = CelestialObject{"Sun", body("Sun", 1.32712440017987e20, 695700e3, 2192832, 0), "", 0, 0, -1, nil}

// Venus is poisonous and spins backward.
var Venus = CelestialObject{"Venus", body("Venus", 3.24858599e14, 6051.8e3, -20997360, 0.000027), "Sun", 108208601e3, 3.39458, 0.616e9, nil}

// Earth is home.
var Earth = CelestialObject{"Earth", body("Earth", 3.98600433e14, 6378.1363e3, 86164.0905, 1082.6269e-6), "Sun", 149598023e3, 0.00005, 924645.0e3, ExponentialAtmosphere{SurfaceDensity: 1.225, ScaleHeight: 8500, Ceiling: 1e6}}

// Moon is tidally locked.
var Moon = CelestialObject{"Moon", body("Moon", 4.9028e12, 1737.4e3, 2360591.5, 202.7e-6), "Earth", 384400e3, 5.145, 66100e3, nil}

// Mars is the vacation place.
var Mars = CelestialObject{"Mars", body("Mars", 4.28283100e13, 3396.19e3, 88642.66, 1964e-6), "Sun", 227939282.5616e3, 1.85, 576000e3, ExponentialAtmosphere{SurfaceDensity: 0.020, ScaleHeight: 11100, Ceiling: 3e5}}

// Jupiter is big.
var Jupiter = CelestialObject{"Jupiter", body("Jupiter", 1.266865361e17, 71492.0e3, 35730, 0.01475), "Sun", 778298361e3, 1.30326966, 48.2e9, nil}
