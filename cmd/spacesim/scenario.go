package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ChristopherRabotin/spacesim"
	kitlog "github.com/go-kit/kit/log"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/viper"
)

// scenario is a simulation read from a TOML file, ready to be propagated.
type scenario struct {
	sim        *spacesim.Simulation
	start, end time.Time
	step       time.Duration
	craft      spacesim.Handle
	primary    spacesim.CelestialObject // body the spacecraft orbits
	export     spacesim.ExportConfig
}

type bodyConf struct {
	Name      string  `mapstructure:"name"`
	Primary   string  `mapstructure:"primary"`
	Longitude float64 `mapstructure:"longitude"` // degrees
}

type stageConf struct {
	Name    string  `mapstructure:"name"`
	Dry     float64 `mapstructure:"dry"`
	Fuel    float64 `mapstructure:"fuel"`
	Engine  string  `mapstructure:"engine"`
	Engines int     `mapstructure:"engines"`
}

func loadScenario(path string, conf spacesim.Config, logger kitlog.Logger) (*scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("mission.step", conf.Step)
	v.SetDefault("root.name", "Earth")
	v.SetDefault("spacecraft.name", "spacecraft")
	v.SetDefault("export.dir", ".")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// Read mission parameters
	sc := &scenario{}
	var err error
	if sc.start, err = confReadJDEorTime(v, "mission.start"); err != nil {
		return nil, err
	}
	if v.IsSet("mission.end") {
		if sc.end, err = confReadJDEorTime(v, "mission.end"); err != nil {
			return nil, err
		}
	}
	if sc.step = v.GetDuration("mission.step"); sc.step <= 0 {
		return nil, fmt.Errorf("mission.step must be positive")
	}
	conf.Epoch = sc.start
	conf.Step = sc.step

	// Read the bodies
	root, err := spacesim.CelestialObjectFromString(v.GetString("root.name"))
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	sc.sim = spacesim.NewSimulationFromBody(root, conf, logger)
	handles := map[string]spacesim.Handle{root.Name: sc.sim.Root()}
	bodies := map[string]spacesim.CelestialObject{root.Name: root}
	var bodyConfs []bodyConf
	if err := v.UnmarshalKey("bodies", &bodyConfs); err != nil {
		return nil, fmt.Errorf("bodies: %w", err)
	}
	for _, bc := range bodyConfs {
		body, err := spacesim.CelestialObjectFromString(bc.Name)
		if err != nil {
			return nil, fmt.Errorf("bodies: %w", err)
		}
		if bc.Primary == "" {
			bc.Primary = body.Parent
		}
		primary, found := handles[bc.Primary]
		if !found {
			return nil, fmt.Errorf("bodies: %s must be declared before %s", bc.Primary, body.Name)
		}
		h, err := sc.sim.AddBodyInOrbit(body, primary, bc.Longitude)
		if err != nil {
			return nil, fmt.Errorf("bodies: %w", err)
		}
		handles[body.Name] = h
		bodies[body.Name] = body
	}

	// Read the spacecraft
	bodyName := v.GetString("spacecraft.body")
	if bodyName == "" {
		bodyName = root.Name
	}
	primary, found := handles[bodyName]
	if !found {
		return nil, fmt.Errorf("spacecraft: unknown body `%s`", bodyName)
	}
	sc.primary = bodies[bodyName]
	name := v.GetString("spacecraft.name")
	scConf := spacesim.Configuration{Mass: v.GetFloat64("spacecraft.mass"), Radius: v.GetFloat64("spacecraft.radius")}
	orbit := spacesim.NewOrbitFromOE(
		v.GetFloat64("spacecraft.orbit.sma"),
		v.GetFloat64("spacecraft.orbit.ecc"),
		v.GetFloat64("spacecraft.orbit.inc"),
		v.GetFloat64("spacecraft.orbit.RAAN"),
		v.GetFloat64("spacecraft.orbit.argPeri"),
		v.GetFloat64("spacecraft.orbit.tAnomaly"),
		sc.primary.GM(), primary)
	if v.IsSet("rocket") {
		rocket, err := readRocket(v)
		if err != nil {
			return nil, fmt.Errorf("rocket: %w", err)
		}
		if sc.craft, err = sc.sim.AddRocketInOrbit(name, scConf, rocket, orbit); err != nil {
			return nil, err
		}
		if v.GetBool("rocket.ignition") {
			if err := sc.sim.StartEngine(sc.craft); err != nil {
				return nil, err
			}
		}
	} else if sc.craft, err = sc.sim.AddObjectInOrbit(name, scConf, orbit); err != nil {
		return nil, err
	}
	if v.IsSet("spacecraft.drag") {
		drag := spacesim.AtmosphericProperties{DragCoefficient: v.GetFloat64("spacecraft.drag.cd"), ReferenceArea: v.GetFloat64("spacecraft.drag.area")}
		if err := sc.sim.SetDrag(sc.craft, drag); err != nil {
			return nil, err
		}
	}
	if v.GetBool("spacecraft.perturbations.J2") {
		if err := sc.sim.SetPerturbations(sc.craft, spacesim.Perturbations{J2: true}); err != nil {
			return nil, err
		}
	}

	// Maneuvers
	for burnNo := 0; v.IsSet(fmt.Sprintf("burns.%d", burnNo)); burnNo++ {
		burnDT, err := confReadJDEorTime(v, fmt.Sprintf("burns.%d.date", burnNo))
		if err != nil {
			return nil, err
		}
		V := v.GetFloat64(fmt.Sprintf("burns.%d.V", burnNo))
		N := v.GetFloat64(fmt.Sprintf("burns.%d.N", burnNo))
		C := v.GetFloat64(fmt.Sprintf("burns.%d.C", burnNo))
		if burnDT.Before(sc.start) || (!sc.end.IsZero() && burnDT.After(sc.end)) {
			logger.Log("level", "warning", "subsys", "scenario", "burn", burnNo, "message", "scheduled out of propagation time")
		}
		if err := sc.sim.ScheduleManeuver(sc.craft, spacesim.NewManeuver(burnDT.Sub(sc.start).Seconds(), V, N, C)); err != nil {
			return nil, err
		}
	}

	// Export
	filename := v.GetString("export.filename")
	if filename == "" {
		filename = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	sc.export = spacesim.ExportConfig{
		Dir:       v.GetString("export.dir"),
		Filename:  filename,
		Cosmo:     v.GetBool("export.cosmo"),
		AsCSV:     v.GetBool("export.csv"),
		Summary:   v.GetBool("export.summary"),
		Timestamp: v.GetBool("export.timestamp"),
		Every:     v.GetDuration("export.every"),
	}
	return sc, nil
}

func readRocket(v *viper.Viper) (spacesim.Rocket, error) {
	var stageConfs []stageConf
	if err := v.UnmarshalKey("rocket.stages", &stageConfs); err != nil {
		return spacesim.Rocket{}, err
	}
	if len(stageConfs) == 0 {
		return spacesim.Rocket{}, fmt.Errorf("no stage")
	}
	stages := make([]spacesim.RocketStage, len(stageConfs))
	for i, s := range stageConfs {
		engine, err := spacesim.EngineFromString(s.Engine)
		if err != nil {
			return spacesim.Rocket{}, fmt.Errorf("stage %s: %w", s.Name, err)
		}
		if s.Engines == 0 {
			s.Engines = 1
		}
		engines := make([]spacesim.Engine, s.Engines)
		for j := range engines {
			engines[j] = engine
		}
		stages[i] = spacesim.NewRocketStage(s.Name, s.Dry, s.Fuel, engines...)
	}
	rocket := spacesim.NewRocket(v.GetFloat64("rocket.payload"), stages...)
	control, err := spacesim.ControlFromString(v.GetString("rocket.control"))
	if err != nil {
		return spacesim.Rocket{}, err
	}
	rocket.Control = control
	return rocket, nil
}

// confReadJDEorTime reads a date either as a Julian date or as a TOML date.
func confReadJDEorTime(v *viper.Viper, key string) (time.Time, error) {
	if !v.IsSet(key) {
		return time.Time{}, fmt.Errorf("%s is not set", key)
	}
	if jde := v.GetFloat64(key); jde != 0 {
		return julian.JDToTime(jde).UTC(), nil
	}
	dt := v.GetTime(key)
	if dt.IsZero() {
		return dt, fmt.Errorf("%s: invalid date `%s`", key, v.GetString(key))
	}
	return dt.UTC(), nil
}
