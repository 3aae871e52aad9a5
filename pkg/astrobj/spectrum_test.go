package astrobj

import (
	"math"
	"testing"
)

func TestBlackBodyRayleighJeansLimit(t *testing.T) {
	b := NewBlackBody(1e6)
	nu := 1e9

	// h*nu << k*T: the Planck law reduces to 2 nu^2 k T / c^2.
	rj := 2 * nu * nu * boltzmannConst * b.Temperature / (lightSpeed * lightSpeed)
	got := b.At(nu)
	if math.Abs(got-rj)/rj > 1e-3 {
		t.Errorf("At(%g) = %g, Rayleigh-Jeans limit %g", nu, got, rj)
	}
}

func TestBlackBodyWienCutoff(t *testing.T) {
	b := NewBlackBody(1e6)

	peak := b.At(1e17) // near the peak for T = 1e6 K
	tail := b.At(1e19) // far into the Wien tail
	if peak <= 0 {
		t.Fatalf("At(peak) = %g, want positive", peak)
	}
	if tail >= peak {
		t.Errorf("Wien tail %g not below peak %g", tail, peak)
	}
	if extreme := b.At(1e22); extreme != 0 && extreme > 1e-300 {
		t.Errorf("At(1e22) = %g, want effectively zero", extreme)
	}
}

func TestPowerLaw(t *testing.T) {
	p := NewPowerLaw(2, 1)
	if got := p.At(3); math.Abs(got-6) > 1e-12 {
		t.Errorf("At(3) = %g, want 6", got)
	}
	p = NewPowerLaw(4, 0)
	if got := p.At(1e15); got != 4 {
		t.Errorf("flat At = %g, want 4", got)
	}
	p = NewPowerLaw(0, 2)
	if got := p.At(1e15); got != 0 {
		t.Errorf("zero-constant At = %g, want 0", got)
	}
}

func TestThinEmission(t *testing.T) {
	sp := NewPowerLaw(10, 0)

	// Transparent medium emits nothing.
	if got := thinEmission(sp, 1e15, 0, 1); got != 0 {
		t.Errorf("thinEmission with zero opacity = %g, want 0", got)
	}
	// Very optically deep path saturates at the source value.
	if got := thinEmission(sp, 1e15, 1e6, 1); math.Abs(got-10) > 1e-9 {
		t.Errorf("saturated thinEmission = %g, want 10", got)
	}
	// Small optical depth: approximately source * opacity * ds.
	got := thinEmission(sp, 1e15, 1e-4, 1)
	if want := 10 * 1e-4; math.Abs(got-want)/want > 1e-3 {
		t.Errorf("thinEmission = %g, want about %g", got, want)
	}
}
