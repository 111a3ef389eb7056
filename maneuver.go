package spacesim

import (
	"fmt"
	"sort"
)

// ManeuverFrame is the frame in which an impulsive Δv is expressed.
type ManeuverFrame uint8

const (
	// InertialFrame is the inertial frame centered on the primary body.
	InertialFrame ManeuverFrame = iota + 1
	// VNCFrame is the velocity, normal, co-normal frame of the object at the burn.
	VNCFrame
)

// Maneuver is an impulsive Δv applied when the simulated time reaches Time.
type Maneuver struct {
	Time  float64   // simulated seconds
	ΔV    []float64 // m/s
	Frame ManeuverFrame
}

// NewManeuver returns a maneuver expressed in the VNC frame.
func NewManeuver(t, V, N, C float64) Maneuver {
	return Maneuver{t, []float64{V, N, C}, VNCFrame}
}

// NewInertialManeuver returns a maneuver expressed in the inertial frame.
func NewInertialManeuver(t float64, ΔV []float64) Maneuver {
	return Maneuver{t, copyVec(ΔV), InertialFrame}
}

// Δv returns the magnitude of the maneuver.
func (m Maneuver) Δv() float64 {
	return norm(m.ΔV)
}

// Inertial returns the Δv vector in the inertial frame for an object at state s.
func (m Maneuver) Inertial(s ObjectState) []float64 {
	if m.Frame != VNCFrame {
		return copyVec(m.ΔV)
	}
	v := unit(s.Velocity)
	n := unit(s.H())
	c := cross(v, n)
	o := make([]float64, 3)
	for i := 0; i < 3; i++ {
		o[i] = m.ΔV[0]*v[i] + m.ΔV[1]*n[i] + m.ΔV[2]*c[i]
	}
	return o
}

func (m Maneuver) String() string {
	frame := "inertial"
	if m.Frame == VNCFrame {
		frame = "VNC"
	}
	return fmt.Sprintf("burn @ %.3fs: %+v m/s (%s)", m.Time, m.ΔV, frame)
}

// maneuverQueue is a time ordered list of maneuvers.
type maneuverQueue []Maneuver

// with returns a new queue including m, keeping time order and insertion order for equal times.
func (q maneuverQueue) with(m Maneuver) maneuverQueue {
	nq := make(maneuverQueue, len(q), len(q)+1)
	copy(nq, q)
	nq = append(nq, m)
	sort.SliceStable(nq, func(i, j int) bool { return nq[i].Time < nq[j].Time })
	return nq
}

// next returns the first maneuver due at or before t, and the queue without it.
func (q maneuverQueue) next(t float64) (Maneuver, maneuverQueue, bool) {
	if len(q) == 0 || q[0].Time > t {
		return Maneuver{}, q, false
	}
	return q[0], q[1:], true
}
