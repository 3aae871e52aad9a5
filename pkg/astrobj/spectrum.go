package astrobj

import "math"

// Physical constants in SI units.
const (
	planckConst    = 6.62607015e-34 // J s
	boltzmannConst = 1.380649e-23   // J/K
	lightSpeed     = 2.99792458e8   // m/s
)

// Spectrum is an emission or absorption law as a function of frequency.
// Variants hold them as swappable strategies.
type Spectrum interface {
	// At returns the spectral value at frequency nu (Hz).
	At(nu float64) float64

	// Clone returns an independent copy.
	Clone() Spectrum
}

// thinEmission is the optically thin emission over a path element ds with
// the given opacity: the source spectrum attenuated by self-absorption,
// S * (1 - exp(-opacity*ds)).
func thinEmission(sp Spectrum, nu, opacity, ds float64) float64 {
	return sp.At(nu) * (1 - math.Exp(-opacity*ds))
}

// BlackBody is the Planck law at a fixed temperature.
type BlackBody struct {
	Temperature float64 // K
}

// NewBlackBody returns a black-body spectrum at temperature T.
func NewBlackBody(T float64) *BlackBody { return &BlackBody{Temperature: T} }

// At returns the Planck specific intensity at frequency nu.
func (b *BlackBody) At(nu float64) float64 {
	x := planckConst * nu / (boltzmannConst * b.Temperature)
	den := math.Expm1(x)
	if den <= 0 {
		return 0
	}
	return 2 * planckConst * nu * nu * nu / (lightSpeed * lightSpeed) / den
}

// Clone returns an independent copy.
func (b *BlackBody) Clone() Spectrum {
	c := *b
	return &c
}

// PowerLaw is Constant * nu^Exponent. With a zero constant it doubles as the
// default transparent opacity law.
type PowerLaw struct {
	Constant float64
	Exponent float64
}

// NewPowerLaw returns a power-law spectrum.
func NewPowerLaw(constant, exponent float64) *PowerLaw {
	return &PowerLaw{Constant: constant, Exponent: exponent}
}

// At returns Constant * nu^Exponent.
func (p *PowerLaw) At(nu float64) float64 {
	if p.Constant == 0 {
		return 0
	}
	return p.Constant * math.Pow(nu, p.Exponent)
}

// Clone returns an independent copy.
func (p *PowerLaw) Clone() Spectrum {
	c := *p
	return &c
}
