package astrobj

import (
	"fmt"
	"math"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
)

// Torus is a geometrical torus in circular rotation: the set of points whose
// distance to a circle of radius LargeRadius in the equatorial plane is below
// SmallRadius. Emission follows a black-body law, absorption a power law;
// both are swappable Spectrum strategies.
type Torus struct {
	Standard

	largeRadius float64
	spectrum    Spectrum
	opacity     Spectrum
}

// NewTorus creates a torus with the default geometry (large radius 3.5,
// small radius 0.5), a hot black-body emission law and zero opacity.
func NewTorus() *Torus {
	t := &Torus{
		largeRadius: 3.5,
		spectrum:    NewBlackBody(1e6),
		opacity:     NewPowerLaw(0, 1),
	}
	t.Standard = newStandard(t)
	t.potential = t.potentialAt
	t.velocity = t.GetVelocity
	t.criticalValue = 0.25 // 0.5*0.5
	t.safetyValue = 0.3
	t.updateRMax()
	return t
}

// LargeRadius is the distance from the centre of the tube to the centre of
// the torus.
func (t *Torus) LargeRadius() float64 { return t.largeRadius }

// SetLargeRadius moves the tube circle.
func (t *Torus) SetLargeRadius(c float64) {
	t.largeRadius = c
	t.updateRMax()
}

// SmallRadius is the radius of a meridian circle of the tube.
func (t *Torus) SmallRadius() float64 { return math.Sqrt(t.criticalValue) }

// SetSmallRadius resizes the tube. The critical value is the squared radius;
// the safety band sits 10% above it.
func (t *Torus) SetSmallRadius(a float64) {
	t.criticalValue = a * a
	t.safetyValue = t.criticalValue * 1.1
	t.updateRMax()
}

func (t *Torus) updateRMax() {
	t.rMax = 3 * (t.largeRadius + t.SmallRadius())
}

// Spectrum returns the emission law.
func (t *Torus) Spectrum() Spectrum { return t.spectrum }

// SetSpectrum swaps the emission law.
func (t *Torus) SetSpectrum(sp Spectrum) { t.spectrum = sp }

// Opacity returns the absorption law.
func (t *Torus) Opacity() Spectrum { return t.opacity }

// SetOpacity swaps the absorption law.
func (t *Torus) SetOpacity(sp Spectrum) { t.opacity = sp }

// potentialAt is the squared distance from pos to the tube circle.
func (t *Torus) potentialAt(pos [4]float64) float64 {
	var drproj, h float64
	switch t.metric.CoordKind() {
	case core.CoordSpherical:
		drproj = pos[1]*math.Sin(pos[2]) - t.largeRadius
		h = pos[1] * math.Cos(pos[2])
	case core.CoordCartesian:
		h = pos[3]
		drproj = math.Sqrt(pos[1]*pos[1]+pos[2]*pos[2]) - t.largeRadius
	}
	return drproj*drproj + h*h
}

// GetVelocity returns the circular-rotation 4-velocity of the tube matter:
// the metric's circular velocity at the projection of pos onto the
// equatorial plane.
func (t *Torus) GetVelocity(pos [4]float64) [4]float64 {
	proj := [4]float64{pos[0]}
	switch t.metric.CoordKind() {
	case core.CoordCartesian:
		proj[1] = pos[1]
		proj[2] = pos[2]
		proj[3] = 0
	case core.CoordSpherical:
		proj[1] = pos[1] * math.Sin(pos[2])
		proj[2] = math.Pi / 2
		proj[3] = pos[3]
	}
	return t.metric.CircularVelocity(proj)
}

// Emission implements Radiator. Optically thin mode integrates the source
// spectrum against self-absorption over dsEm; thick mode reports the bare
// surface spectrum.
func (t *Torus) Emission(nuEm, dsEm float64, pos [4]float64) float64 {
	if t.opticallyThin {
		return thinEmission(t.spectrum, nuEm, t.opacity.At(nuEm), dsEm)
	}
	return t.spectrum.At(nuEm)
}

// Transmission implements Radiator. A thick torus blocks everything behind
// the first contact.
func (t *Torus) Transmission(nuEm, dsEm float64, pos [4]float64) float64 {
	if !t.opticallyThin {
		return 0
	}
	opac := t.opacity.At(nuEm)
	if opac == 0 {
		return 1
	}
	return math.Exp(-opac * dsEm)
}

// Validate reports whether the torus is ready to trace against.
func (t *Torus) Validate() error {
	if t.metric == nil {
		return fmt.Errorf("torus: no metric attached")
	}
	if t.largeRadius <= 0 || t.criticalValue <= 0 {
		return fmt.Errorf("torus: radii must be positive (large=%g small=%g)", t.largeRadius, t.SmallRadius())
	}
	if t.spectrum == nil || t.opacity == nil {
		return fmt.Errorf("torus: emission and opacity laws must be set")
	}
	return nil
}

// Clone returns an independent deep copy with the potential and velocity
// fields rebound to the copy.
func (t *Torus) Clone() core.Astrobj {
	c := &Torus{
		Standard:    t.Standard,
		largeRadius: t.largeRadius,
		spectrum:    t.spectrum.Clone(),
		opacity:     t.opacity.Clone(),
	}
	c.radiator = c
	c.potential = c.potentialAt
	c.velocity = c.GetVelocity
	return c
}
