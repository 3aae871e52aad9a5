// Package astrobj implements the emitting-object variants: the generic
// intersection-and-accumulation machinery, an implicit-surface family
// (Standard, Torus) and a tabulated-grid variant (Disk3D).
package astrobj

import (
	"fmt"
	"math"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
)

// DefaultBoundFactor scales the outer radius in the coarse bounding reject.
// It is a heuristic, not a coverage guarantee: very eccentric thin volumes
// may need a larger factor.
const DefaultBoundFactor = 2.0

// Sub-step defaults for the marching intersection search: the sub-step is
// subStepFrac of the segment duration, capped at subStepMax.
const (
	defaultSubStepFrac = 0.1
	defaultSubStepMax  = 0.1
)

// Radiator is the emission/absorption law of a concrete variant, consumed by
// the shared accumulation code in Generic.
type Radiator interface {
	// Emission returns the intensity increment emitted at frequency nuEm
	// over the emitter-frame path element dsEm at pos.
	Emission(nuEm, dsEm float64, pos [4]float64) float64

	// Transmission returns the fraction of intensity at nuEm surviving the
	// path element dsEm at pos.
	Transmission(nuEm, dsEm float64, pos [4]float64) float64
}

// Generic carries the state and behavior common to every object variant:
// the attached metric, the outer bounding radius, the optically thin flag,
// the bounding-reject factor, the marching sub-step tuning, and the
// radiative-transfer accumulation of hit quantities.
type Generic struct {
	metric        core.Metric
	rMax          float64
	opticallyThin bool
	boundFactor   float64
	subStepFrac   float64
	subStepMax    float64

	// radiator is the concrete variant embedding this Generic; set by the
	// variant's constructor so the shared accumulation code can reach its
	// emission law.
	radiator Radiator
}

func newGeneric(r Radiator) Generic {
	return Generic{
		boundFactor: DefaultBoundFactor,
		subStepFrac: defaultSubStepFrac,
		subStepMax:  defaultSubStepMax,
		radiator:    r,
	}
}

// SetMetric attaches the metric. An unrecognized coordinate convention is a
// fatal configuration error, reported here so it can never surface mid-trace.
func (g *Generic) SetMetric(m core.Metric) error {
	if err := core.CheckCoordKind(m.CoordKind()); err != nil {
		return fmt.Errorf("astrobj: %w", err)
	}
	g.metric = m
	return nil
}

// Metric returns the attached metric.
func (g *Generic) Metric() core.Metric { return g.metric }

// RMax is the outer radius of the region the object may occupy.
func (g *Generic) RMax() float64 { return g.rMax }

// SetRMax overrides the outer bounding radius.
func (g *Generic) SetRMax(r float64) { g.rMax = r }

// OpticallyThin reports whether emission is integrated along the whole path
// through the object rather than stopping at the first surface contact.
func (g *Generic) OpticallyThin() bool { return g.opticallyThin }

// SetOpticallyThin switches between semi-transparent and opaque behavior.
func (g *Generic) SetOpticallyThin(thin bool) { g.opticallyThin = thin }

// BoundFactor returns the bounding-reject radius factor.
func (g *Generic) BoundFactor() float64 { return g.boundFactor }

// SetBoundFactor tunes the bounding-reject heuristic.
func (g *Generic) SetBoundFactor(f float64) { g.boundFactor = f }

// SetSubStep tunes the marching search: frac of the segment duration per
// sub-step, capped at max.
func (g *Generic) SetSubStep(frac, max float64) {
	g.subStepFrac = frac
	g.subStepMax = max
}

// subStep returns the marching sub-step for a segment of duration span.
func (g *Generic) subStep(span float64) float64 {
	dt := span * g.subStepFrac
	if dt > g.subStepMax {
		dt = g.subStepMax
	}
	return dt
}

// ProcessHit accumulates the requested quantities for one sub-step of path
// through the object: emission attenuated by the transmission collected so
// far (front-to-back composition), emission date, redshift and spectrum.
// coordPh is the photon state, objVel the emitter 4-velocity, dt the
// coordinate-time extent of the sub-step.
func (g *Generic) ProcessHit(ph core.PhotonAccess, coordPh core.RayState, objVel [4]float64, dt float64, data *core.Properties) {
	pos := coordPh.Position

	// Emitted frequency from the frequency shift between emitter and
	// observer frames; the photon is normalized to unit observed energy.
	shift := -g.metric.ScalarProd(pos, objVel, coordPh.Velocity)
	if shift <= 0 || math.IsNaN(shift) {
		// Unphysical 4-velocities; nothing sensible to accumulate.
		return
	}
	nuEm := shift * ph.FreqObs()
	gred := 1 / shift // observed / emitted
	g3 := gred * gred * gred

	// Emitter-frame path element: affine length times emitted frequency.
	dsem := 0.0
	if tdot := coordPh.Velocity[0]; tdot != 0 {
		dsem = math.Abs(dt/tdot) * nuEm
	}

	data.SetEmissionTime(coordPh.Time())
	data.SetRedshift(gred)

	if data.Has(core.QuantityIntensity) {
		inc := g.radiator.Emission(nuEm, dsem, pos) * ph.Transmission() * g3
		data.AccumulateIntensity(inc)
		ph.Absorb(g.radiator.Transmission(nuEm, dsem, pos))
	}
	if data.Has(core.QuantitySpectrum) {
		for ch, f := range ph.Frequencies() {
			nuCh := f * shift
			inc := g.radiator.Emission(nuCh, dsem, pos) * ph.TransmissionAt(ch) * g3
			data.AccumulateSpectrum(ch, inc)
			ph.AbsorbAt(ch, g.radiator.Transmission(nuCh, dsem, pos))
		}
	}
}

// objCoords flattens an impact into the 8-scalar emitter layout: the photon's
// position with the emitter's 4-velocity.
func objCoords(st core.RayState, vel [4]float64) [8]float64 {
	return [8]float64{
		st.Position[0], st.Position[1], st.Position[2], st.Position[3],
		vel[0], vel[1], vel[2], vel[3],
	}
}

// cylindrical projects a position to cylindrical (rcyl, z, phi) under the
// given coordinate kind. Geometry tests work in cylindrical coordinates so
// the same algorithm serves both conventions.
func cylindrical(kind core.CoordKind, pos [4]float64) (rcyl, z, phi float64) {
	switch kind {
	case core.CoordSpherical:
		rs := pos[1]
		z = rs * math.Cos(pos[2])
		rcyl = math.Sqrt(math.Max(rs*rs-z*z, 0))
		phi = pos[3]
	case core.CoordCartesian:
		x, y := pos[1], pos[2]
		z = pos[3]
		rcyl = math.Sqrt(x*x + y*y)
		phi = math.Atan2(y, x)
	}
	return rcyl, z, phi
}
