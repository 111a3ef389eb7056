package spacesim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kitlog "github.com/go-kit/kit/log"
)

const (
	// StepSize is the default step size of propagation.
	StepSize = 10 * time.Second
	// missionHardLimit bounds the propagation of missions without end date.
	missionHardLimit = 24 * 3652.5 * time.Hour
)

/* Handles the propagation of a whole simulation over a date range. */

// Mission drives a Simulation from its current date until StopDT, streaming the state of every
// object to the exporter.
type Mission struct {
	Sim                        *Simulation
	StartDT, StopDT, CurrentDT time.Time
	OnState                    func(MissionState) // called synchronously after every step
	step                       time.Duration
	conf                       ExportConfig
	stopChan                   chan bool
	mu                         sync.Mutex // serializes steps and status reports
	logger                     kitlog.Logger
}

// MissionState stores the propagated state of an object.
type MissionState struct {
	DT      time.Time
	Handle  Handle
	Name    string
	Primary string
	State   ObjectState // relative to the primary body
	Orbit   *Orbit
	Mass    float64
	Mode    Mode
}

// NewMission is the same as NewPreciseMission with the default step size.
func NewMission(sim *Simulation, end time.Time, conf ExportConfig) *Mission {
	return NewPreciseMission(sim, end, StepSize, conf)
}

// NewPreciseMission returns a new Mission instance with custom provided time step. A mission whose
// end date is before the current date of the simulation stops once every maneuver is performed and
// every engine is off.
func NewPreciseMission(sim *Simulation, end time.Time, step time.Duration, conf ExportConfig) *Mission {
	start := sim.Date().UTC()
	a := &Mission{Sim: sim, StartDT: start, StopDT: end.UTC(), CurrentDT: start, step: step, conf: conf, stopChan: make(chan bool, 1), logger: kitlog.With(sim.logger, "subsys", "mission")}
	if end.Before(start) {
		a.logger.Log("level", "warning", "message", "no end date")
	}
	return a
}

// LogStatus logs the date and the orbit of every object.
func (a *Mission) LogStatus() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, h := range a.Sim.Handles() {
		if h == a.Sim.Root() {
			continue
		}
		o, _ := a.Sim.Object(h)
		if orbit, err := a.Sim.Orbit(h); err == nil {
			a.logger.Log("level", "info", "date", a.CurrentDT, "object", o.Name, "mass(kg)", o.Config.Mass, "mode", o.mode, "orbit", orbit)
		}
	}
}

// PropagateUntil propagates until the given time is reached.
func (a *Mission) PropagateUntil(ctx context.Context, dt time.Time) error {
	a.StopDT = dt.UTC()
	return a.Propagate(ctx)
}

// Propagate steps the simulation until the stop date, a call to StopPropagation or the
// cancellation of ctx. Failed steps are reported together once the propagation ends.
func (a *Mission) Propagate(ctx context.Context) error {
	if a.step <= 0 {
		return fmt.Errorf("invalid mission step %s", a.step)
	}
	var histChan chan MissionState
	var exportErr error
	var wg sync.WaitGroup
	if !a.conf.IsUseless() {
		histChan = make(chan MissionState, 1000) // a 1k entry buffer
		wg.Add(1)
		go func() {
			defer wg.Done()
			exportErr = StreamStates(a.conf, histChan)
		}()
	}
	// Add a ticker status report based on the duration of the simulation.
	a.LogStatus()
	done := make(chan struct{})
	ticker := time.NewTicker(10 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.LogStatus()
			case <-done:
				return
			}
		}
	}()
	started := time.Now()
	a.record(histChan)
	var errs []error
	status := "finished"
loop:
	for !a.finished() {
		select {
		case <-a.stopChan:
			status = "stopped"
			break loop
		case <-ctx.Done():
			status = "canceled"
			errs = append(errs, ctx.Err())
			break loop
		default:
		}
		a.mu.Lock()
		if err := a.Sim.Step(a.step.Seconds()); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Sim.Date().UTC(), err))
		}
		for _, h := range a.Sim.Handles() {
			if h != a.Sim.Root() {
				a.Sim.CheckImpact(h)
			}
		}
		a.CurrentDT = a.Sim.Date().UTC()
		a.mu.Unlock()
		a.record(histChan)
	}
	close(done)
	if histChan != nil {
		close(histChan)
	}
	wg.Wait() // Don't return until we're done writing all the files.
	duration := a.CurrentDT.Sub(a.StartDT)
	durStr := duration.String()
	if duration.Hours() > 24 {
		durStr += fmt.Sprintf(" (~%.3fd)", duration.Hours()/24)
	}
	a.logger.Log("level", "notice", "status", status, "duration", durStr, "failures", len(errs), "wall", time.Since(started))
	a.LogStatus()
	if exportErr != nil {
		errs = append(errs, fmt.Errorf("export: %w", exportErr))
	}
	return errors.Join(errs...)
}

// StopPropagation is used to stop the propagation before it is completed.
func (a *Mission) StopPropagation() {
	select {
	case a.stopChan <- true:
	default:
	}
}

// finished returns whether the stop date is reached. Without end date, the mission lasts until
// nothing is left to do on board, within a ten year limit.
func (a *Mission) finished() bool {
	if !a.StopDT.Before(a.StartDT) {
		return !a.CurrentDT.Before(a.StopDT)
	}
	if a.CurrentDT.Sub(a.StartDT) > missionHardLimit {
		a.logger.Log("level", "critical", "status", "killed", "date", a.CurrentDT)
		return true
	}
	for _, h := range a.Sim.Handles() {
		o, err := a.Sim.Object(h)
		if err != nil {
			continue
		}
		if len(o.maneuvers) > 0 || (o.engineOn && !o.impacted) {
			return false
		}
	}
	return true
}

// record sends the state of every object but the object of reference.
func (a *Mission) record(histChan chan<- MissionState) {
	if histChan == nil && a.OnState == nil {
		return
	}
	for _, h := range a.Sim.Handles() {
		if h == a.Sim.Root() {
			continue
		}
		o, err := a.Sim.Object(h)
		if err != nil {
			continue
		}
		st := MissionState{DT: a.CurrentDT, Handle: h, Name: o.Name, Primary: a.Sim.objects[o.Primary].Name, State: o.State, Mass: o.Config.Mass, Mode: o.mode}
		if orbit, err := a.Sim.Orbit(h); err == nil {
			st.Orbit = &orbit
		}
		if histChan != nil {
			histChan <- st
		}
		if a.OnState != nil {
			a.OnState(st)
		}
	}
}
