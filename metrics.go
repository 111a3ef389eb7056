package spacesim

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the propagation counters of a Simulation.
type Metrics struct {
	stepDuration prometheus.Histogram
	steps        prometheus.Counter
	failures     *prometheus.CounterVec
	maneuvers    *prometheus.CounterVec
	stagings     *prometheus.CounterVec
	impacts      *prometheus.CounterVec
	objects      *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg, which may be nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spacesim_step_duration_seconds",
				Help:    "Wall time spent propagating one simulation step",
				Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
		),
		steps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spacesim_steps_total",
				Help: "Total number of simulation steps",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacesim_propagation_failures_total",
				Help: "Objects which could not be propagated over a step",
			},
			[]string{"object"},
		),
		maneuvers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacesim_maneuvers_total",
				Help: "Impulsive maneuvers, by outcome",
			},
			[]string{"object", "outcome"},
		),
		stagings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacesim_stagings_total",
				Help: "Rocket stages separated",
			},
			[]string{"object"},
		),
		impacts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacesim_impacts_total",
				Help: "Objects found below the surface of their primary body",
			},
			[]string{"object", "primary"},
		),
		objects: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spacesim_objects",
				Help: "Tracked objects by propagation mode",
			},
			[]string{"mode"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.stepDuration, m.steps, m.failures, m.maneuvers, m.stagings, m.impacts, m.objects)
	}
	return m
}

// The recording methods accept a nil receiver so that a Simulation without metrics needs no checks.

func (m *Metrics) recordStep(sim *Simulation, started time.Time) {
	if m == nil {
		return
	}
	m.stepDuration.Observe(time.Since(started).Seconds())
	m.steps.Inc()
	counts := map[Mode]float64{Unperturbed: 0, Perturbed: 0, Impacted: 0}
	for h, o := range sim.objects {
		if o != nil && Handle(h) != sim.root {
			counts[o.mode]++
		}
	}
	for mode, n := range counts {
		m.objects.WithLabelValues(mode.String()).Set(n)
	}
}

func (m *Metrics) recordFailure(name string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(name).Inc()
}

func (m *Metrics) recordManeuver(name, outcome string) {
	if m == nil {
		return
	}
	m.maneuvers.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) recordStaging(name string) {
	if m == nil {
		return
	}
	m.stagings.WithLabelValues(name).Inc()
}

func (m *Metrics) recordImpact(name, primary string) {
	if m == nil {
		return
	}
	m.impacts.WithLabelValues(name, primary).Inc()
}
