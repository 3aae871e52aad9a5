package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Quantity is a bitmask of the physical quantities a ray trace can produce.
type Quantity uint32

const (
	// QuantityIntensity is the specific intensity reaching the observer,
	// integrated along the line of sight.
	QuantityIntensity Quantity = 1 << iota
	// QuantityEmissionTime is the coordinate date of emission.
	QuantityEmissionTime
	// QuantityMinDistance is the minimum distance between the ray and the
	// object over the whole trace.
	QuantityMinDistance
	// QuantityRedshift is the ratio of observed to emitted frequency.
	QuantityRedshift
	// QuantityImpactCoords is the pair of 8-coordinate states (object,
	// photon) at the terminal impact, usable to re-derive other quantities
	// later without re-tracing.
	QuantityImpactCoords
	// QuantitySpectrum is the intensity in each spectrometer channel.
	QuantitySpectrum
)

var quantityNames = map[string]Quantity{
	"Intensity":    QuantityIntensity,
	"EmissionTime": QuantityEmissionTime,
	"MinDistance":  QuantityMinDistance,
	"Redshift":     QuantityRedshift,
	"ImpactCoords": QuantityImpactCoords,
	"Spectrum":     QuantitySpectrum,
}

// Has reports whether all bits of f are set in q.
func (q Quantity) Has(f Quantity) bool { return q&f == f }

// String returns a space-separated list of quantity names.
func (q Quantity) String() string {
	var parts []string
	for name, bit := range quantityNames {
		if q.Has(bit) {
			parts = append(parts, name)
		}
	}
	// Map iteration order is random; keep output stable.
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// ParseQuantities builds a Quantity mask from a list of names.
func ParseQuantities(names []string) (Quantity, error) {
	var q Quantity
	for _, n := range names {
		bit, ok := quantityNames[n]
		if !ok {
			return 0, fmt.Errorf("unknown quantity %q", n)
		}
		q |= bit
	}
	return q, nil
}

// ImpactCoordsSize is the number of scalars stored per pixel for the
// ImpactCoords quantity: the emitter's 8 coordinates followed by the
// photon's 8 coordinates at impact.
const ImpactCoordsSize = 16

// NoImpact marks an ImpactCoords slot whose ray never hit the object.
var NoImpact = math.Inf(1)

// Properties is the output accumulator for a ray-tracing request: one slot
// per requested quantity per pixel, advanced like a cursor across the grid.
// Workers write through disjoint views, so no locking happens on this path.
type Properties struct {
	Quantities Quantity
	NChannels  int

	Intensity    []float64
	EmissionTime []float64
	MinDistance  []float64
	Redshift     []float64
	ImpactCoords []float64 // ImpactCoordsSize scalars per pixel
	Spectrum     []float64 // NChannels scalars per pixel
	Invalid      []bool    // degraded pixels (iteration cap, step underflow)

	cursor int
}

// NewProperties allocates an accumulator for npix pixels. nchan is the number
// of spectrometer channels and only matters when Spectrum is requested.
func NewProperties(q Quantity, npix, nchan int) *Properties {
	p := &Properties{Quantities: q, NChannels: nchan}
	if q.Has(QuantityIntensity) {
		p.Intensity = make([]float64, npix)
	}
	if q.Has(QuantityEmissionTime) {
		p.EmissionTime = make([]float64, npix)
	}
	if q.Has(QuantityMinDistance) {
		p.MinDistance = make([]float64, npix)
	}
	if q.Has(QuantityRedshift) {
		p.Redshift = make([]float64, npix)
	}
	if q.Has(QuantityImpactCoords) {
		p.ImpactCoords = make([]float64, npix*ImpactCoordsSize)
	}
	if q.Has(QuantitySpectrum) {
		p.Spectrum = make([]float64, npix*nchan)
	}
	p.Invalid = make([]bool, npix)
	return p
}

// Has reports whether the quantity was requested.
func (p *Properties) Has(q Quantity) bool { return p.Quantities.Has(q) }

// Cursor returns the index of the current pixel.
func (p *Properties) Cursor() int { return p.cursor }

// View returns an accumulator sharing the same backing arrays with its cursor
// placed at offset. Each worker gets a view over its own pixel block.
func (p *Properties) View(offset int) *Properties {
	v := *p
	v.cursor = offset
	return &v
}

// Init resets the current cell to its no-data defaults before a trace:
// zero intensity and spectrum, NaN dates and redshift, infinite distance,
// and the NoImpact marker in the impact coordinates.
func (p *Properties) Init() {
	c := p.cursor
	if p.Intensity != nil {
		p.Intensity[c] = 0
	}
	if p.EmissionTime != nil {
		p.EmissionTime[c] = math.NaN()
	}
	if p.MinDistance != nil {
		p.MinDistance[c] = math.Inf(1)
	}
	if p.Redshift != nil {
		p.Redshift[c] = math.NaN()
	}
	if p.ImpactCoords != nil {
		for i := 0; i < ImpactCoordsSize; i++ {
			p.ImpactCoords[c*ImpactCoordsSize+i] = NoImpact
		}
	}
	if p.Spectrum != nil {
		for i := 0; i < p.NChannels; i++ {
			p.Spectrum[c*p.NChannels+i] = 0
		}
	}
	p.Invalid[c] = false
}

// Advance moves the cursor to the next pixel.
func (p *Properties) Advance() { p.cursor++ }

// AccumulateIntensity adds one sub-step's contribution to the current pixel.
func (p *Properties) AccumulateIntensity(v float64) {
	if p.Intensity != nil {
		p.Intensity[p.cursor] += v
	}
}

// SetEmissionTime records the date of the sub-step being processed. Sub-steps
// run front-to-back, so the value left at the end is the earliest date.
func (p *Properties) SetEmissionTime(t float64) {
	if p.EmissionTime != nil {
		p.EmissionTime[p.cursor] = t
	}
}

// UpdateMinDistance lowers the recorded minimum distance if d is smaller.
func (p *Properties) UpdateMinDistance(d float64) {
	if p.MinDistance != nil && d < p.MinDistance[p.cursor] {
		p.MinDistance[p.cursor] = d
	}
}

// SetRedshift records the observed-to-emitted frequency ratio.
func (p *Properties) SetRedshift(g float64) {
	if p.Redshift != nil {
		p.Redshift[p.cursor] = g
	}
}

// SetImpactCoords stores the emitter and photon 8-coordinate states of a
// terminal impact.
func (p *Properties) SetImpactCoords(obj, ph [8]float64) {
	if p.ImpactCoords == nil {
		return
	}
	base := p.cursor * ImpactCoordsSize
	copy(p.ImpactCoords[base:base+8], obj[:])
	copy(p.ImpactCoords[base+8:base+16], ph[:])
}

// ImpactCoordsAt reads back the impact coordinates of pixel i.
func (p *Properties) ImpactCoordsAt(i int) []float64 {
	return p.ImpactCoords[i*ImpactCoordsSize : (i+1)*ImpactCoordsSize]
}

// AccumulateSpectrum adds one sub-step's contribution to channel ch.
func (p *Properties) AccumulateSpectrum(ch int, v float64) {
	if p.Spectrum != nil {
		p.Spectrum[p.cursor*p.NChannels+ch] += v
	}
}

// MarkInvalid flags the current pixel as degraded. The run continues; callers
// must treat flagged pixels as unreliable.
func (p *Properties) MarkInvalid() { p.Invalid[p.cursor] = true }
