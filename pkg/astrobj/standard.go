package astrobj

import (
	"math"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
)

// Standard is the implicit-surface variant base: the object is the region
// where a scalar potential of position falls below a critical value. The
// potential is zero-or-positive everywhere and grows with distance from the
// object, so it doubles as a (squared) distance estimate.
//
// Concrete variants supply the potential and the emitter velocity field;
// Standard supplies the marching intersection search shared by all of them.
type Standard struct {
	Generic

	// potential and velocity are bound to the concrete variant's methods by
	// its constructor, and rebound on Clone.
	potential func(pos [4]float64) float64
	velocity  func(pos [4]float64) [4]float64

	criticalValue float64 // inside the object below this
	safetyValue   float64 // no-hit shortcut above this at both endpoints
}

func newStandard(r Radiator) Standard {
	return Standard{Generic: newGeneric(r)}
}

// CriticalValue returns the potential level of the object surface.
func (s *Standard) CriticalValue() float64 { return s.criticalValue }

// SafetyValue returns the endpoint shortcut level.
func (s *Standard) SafetyValue() float64 { return s.safetyValue }

// DeltaMax caps the integrator step near the object so a single step cannot
// jump across it: a fraction of the current distance estimate, never below
// the object's own scale.
func (s *Standard) DeltaMax(pos [4]float64) float64 {
	d2 := s.potential(pos)
	if d2 < s.criticalValue {
		d2 = s.criticalValue
	}
	return 0.1 * math.Sqrt(d2)
}

// Impact tests the ray segment between history entries index and index+1.
// The segment is first screened by the coarse bounding reject (no potential
// evaluation at all), then by the endpoint safety band, and only then marched
// in sub-steps from the point nearest the observer backward.
func (s *Standard) Impact(ph core.PhotonAccess, index int, data *core.Properties) bool {
	later := ph.Coord(index)
	earlier := ph.Coord(index + 1)
	kind := s.metric.CoordKind()

	// Coarse bounding reject: both endpoints far outside the outer radius.
	if rtol := s.boundFactor * s.rMax; rtol > 0 {
		if earlier.Radius(kind) > rtol && later.Radius(kind) > rtol {
			return false
		}
	}

	p2 := s.potential(later.Position)
	p1 := s.potential(earlier.Position)
	if data.Has(core.QuantityMinDistance) {
		data.UpdateMinDistance(math.Sqrt(math.Max(math.Min(p1, p2), 0)))
	}
	if p1 > s.safetyValue && p2 > s.safetyValue {
		// Both endpoints outside the safety band; the step limiter keeps
		// steps small near the surface, so the segment cannot dip inside.
		return false
	}

	t2, t1 := later.Time(), earlier.Time()
	dt := s.subStep(t2 - t1)
	if dt <= 0 {
		return false
	}

	hit := false
	inside := false
	tcur := t2
	for {
		tcur -= dt
		if tcur <= t1 {
			break
		}
		st := ph.CoordAt(tcur)
		val := s.potential(st.Position)
		if data.Has(core.QuantityMinDistance) {
			data.UpdateMinDistance(math.Sqrt(math.Max(val, 0)))
		}
		if val >= s.criticalValue {
			if inside {
				// Exited the volume; the rest of the segment is outside.
				break
			}
			continue
		}

		hit = true
		inside = true
		vel := s.velocity(st.Position)
		if !s.opticallyThin {
			data.SetImpactCoords(objCoords(st, vel), st.Coords())
			s.ProcessHit(ph, st, vel, dt, data)
			return true
		}
		s.ProcessHit(ph, st, vel, dt, data)
	}
	return hit
}
