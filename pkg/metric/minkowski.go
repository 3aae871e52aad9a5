// Package metric provides the flat-spacetime metric used by the demo scenes
// and the test suite. Curved spacetimes plug in through the same core.Metric
// contract.
package metric

import (
	"math"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
)

// DefaultEscapeRadius is the scene boundary used when none is configured.
const DefaultEscapeRadius = 100.0

// Minkowski is flat spacetime in either spherical or cartesian coordinates.
// Geodesics are straight lines, which makes every numerical result checkable
// in closed form; in spherical coordinates the derivative still exercises the
// full non-trivial connection-term machinery of the integrator.
type Minkowski struct {
	kind         core.CoordKind
	escapeRadius float64
}

// NewMinkowski creates a flat metric in the given coordinate convention.
func NewMinkowski(kind core.CoordKind) *Minkowski {
	return &Minkowski{kind: kind, escapeRadius: DefaultEscapeRadius}
}

// CoordKind reports the coordinate convention of this metric.
func (m *Minkowski) CoordKind() core.CoordKind { return m.kind }

// EscapeRadius is the coordinate radius beyond which a ray has left the scene.
func (m *Minkowski) EscapeRadius() float64 { return m.escapeRadius }

// SetEscapeRadius overrides the scene boundary.
func (m *Minkowski) SetEscapeRadius(r float64) { m.escapeRadius = r }

// Clone returns an independent copy.
func (m *Minkowski) Clone() core.Metric {
	c := *m
	return &c
}

// Derivative returns the geodesic equation right-hand side. In cartesian
// coordinates all connection coefficients vanish; in spherical coordinates
// the usual r and theta terms appear.
func (m *Minkowski) Derivative(s core.RayState) core.RayState {
	var d core.RayState
	d.Position = s.Velocity
	if m.kind == core.CoordCartesian {
		return d
	}
	r, th := s.Position[1], s.Position[2]
	rdot, thdot, phdot := s.Velocity[1], s.Velocity[2], s.Velocity[3]
	sth, cth := math.Sincos(th)
	d.Velocity[0] = 0
	d.Velocity[1] = r*thdot*thdot + r*sth*sth*phdot*phdot
	if r != 0 {
		d.Velocity[2] = -2*rdot*thdot/r + sth*cth*phdot*phdot
		d.Velocity[3] = -2 * rdot * phdot / r
		if sth != 0 {
			d.Velocity[3] -= 2 * cth / sth * thdot * phdot
		}
	}
	return d
}

// SysPrimeToTdot converts a coordinate 3-velocity dxi/dt at pos into the time
// component dt/dtau of the matching unit 4-velocity.
func (m *Minkowski) SysPrimeToTdot(pos [4]float64, vel [3]float64) float64 {
	v2 := m.spatialNorm2(pos, vel)
	if v2 >= 1 {
		return 0
	}
	return 1 / math.Sqrt(1-v2)
}

func (m *Minkowski) spatialNorm2(pos [4]float64, vel [3]float64) float64 {
	if m.kind == core.CoordCartesian {
		return vel[0]*vel[0] + vel[1]*vel[1] + vel[2]*vel[2]
	}
	r, th := pos[1], pos[2]
	sth := math.Sin(th)
	return vel[0]*vel[0] + r*r*vel[1]*vel[1] + r*r*sth*sth*vel[2]*vel[2]
}

// ScalarProd computes the metric scalar product of two 4-vectors at pos,
// signature (-, +, +, +).
func (m *Minkowski) ScalarProd(pos [4]float64, u, v [4]float64) float64 {
	if m.kind == core.CoordCartesian {
		return -u[0]*v[0] + u[1]*v[1] + u[2]*v[2] + u[3]*v[3]
	}
	r, th := pos[1], pos[2]
	sth := math.Sin(th)
	return -u[0]*v[0] + u[1]*v[1] + r*r*u[2]*v[2] + r*r*sth*sth*u[3]*v[3]
}

// CircularVelocity returns the 4-velocity of matter at pos. Flat spacetime
// exerts no pull, so the natural stationary flow is the static observer.
func (m *Minkowski) CircularVelocity(pos [4]float64) [4]float64 {
	return [4]float64{1, 0, 0, 0}
}

// Step is the metric's own stepping routine, selected by the "legacy"
// integration strategy: a fixed fourth-order Runge-Kutta step with no error
// estimate.
func (m *Minkowski) Step(s core.RayState, h float64) (core.RayState, float64) {
	k1 := m.Derivative(s)
	k2 := m.Derivative(s.Add(k1.Scale(h / 2)))
	k3 := m.Derivative(s.Add(k2.Scale(h / 2)))
	k4 := m.Derivative(s.Add(k3.Scale(h)))
	incr := k1.Add(k2.Scale(2)).Add(k3.Scale(2)).Add(k4).Scale(h / 6)
	return s.Add(incr), 0
}
