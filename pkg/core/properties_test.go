package core

import (
	"math"
	"testing"
)

func TestParseQuantities(t *testing.T) {
	q, err := ParseQuantities([]string{"Intensity", "Redshift", "Spectrum"})
	if err != nil {
		t.Fatalf("ParseQuantities() error: %v", err)
	}
	for _, want := range []Quantity{QuantityIntensity, QuantityRedshift, QuantitySpectrum} {
		if !q.Has(want) {
			t.Errorf("mask missing %s", want)
		}
	}
	if q.Has(QuantityEmissionTime) {
		t.Error("mask contains EmissionTime, which was not requested")
	}

	if _, err := ParseQuantities([]string{"Bogus"}); err == nil {
		t.Error("expected error for unknown quantity name")
	}
}

func TestQuantityString(t *testing.T) {
	q := QuantitySpectrum | QuantityIntensity | QuantityRedshift
	if got := q.String(); got != "Intensity Redshift Spectrum" {
		t.Errorf("String() = %q, want alphabetical names", got)
	}
}

func TestPropertiesInitDefaults(t *testing.T) {
	q := QuantityIntensity | QuantityEmissionTime | QuantityMinDistance |
		QuantityRedshift | QuantityImpactCoords | QuantitySpectrum
	p := NewProperties(q, 2, 3)
	p.Advance()
	p.Init()

	if got := p.Intensity[1]; got != 0 {
		t.Errorf("Intensity = %g, want 0", got)
	}
	if !math.IsNaN(p.EmissionTime[1]) {
		t.Errorf("EmissionTime = %g, want NaN", p.EmissionTime[1])
	}
	if !math.IsInf(p.MinDistance[1], 1) {
		t.Errorf("MinDistance = %g, want +Inf", p.MinDistance[1])
	}
	if !math.IsNaN(p.Redshift[1]) {
		t.Errorf("Redshift = %g, want NaN", p.Redshift[1])
	}
	for i, v := range p.ImpactCoordsAt(1) {
		if v != NoImpact {
			t.Errorf("ImpactCoords[%d] = %g, want NoImpact", i, v)
		}
	}
	for i := 0; i < 3; i++ {
		if got := p.Spectrum[1*3+i]; got != 0 {
			t.Errorf("Spectrum[%d] = %g, want 0", i, got)
		}
	}
	if p.Invalid[1] {
		t.Error("fresh cell marked invalid")
	}

	// Cell 0 must be untouched by Init on cell 1.
	if got := p.ImpactCoordsAt(0)[0]; got != 0 {
		t.Errorf("neighbouring cell modified: %g", got)
	}
}

func TestPropertiesViewsAreDisjointCursors(t *testing.T) {
	p := NewProperties(QuantityIntensity, 4, 0)
	a := p.View(0)
	b := p.View(2)

	a.AccumulateIntensity(1)
	b.AccumulateIntensity(2)
	b.Advance()
	b.AccumulateIntensity(3)

	want := []float64{1, 0, 2, 3}
	for i, w := range want {
		if p.Intensity[i] != w {
			t.Errorf("Intensity[%d] = %g, want %g", i, p.Intensity[i], w)
		}
	}
}

func TestPropertiesAccumulators(t *testing.T) {
	q := QuantityIntensity | QuantityMinDistance | QuantitySpectrum
	p := NewProperties(q, 1, 2)
	p.Init()

	p.AccumulateIntensity(0.5)
	p.AccumulateIntensity(0.25)
	if got := p.Intensity[0]; got != 0.75 {
		t.Errorf("Intensity = %g, want 0.75", got)
	}

	p.UpdateMinDistance(3)
	p.UpdateMinDistance(5)
	p.UpdateMinDistance(2)
	if got := p.MinDistance[0]; got != 2 {
		t.Errorf("MinDistance = %g, want 2", got)
	}

	p.AccumulateSpectrum(1, 4)
	if p.Spectrum[0] != 0 || p.Spectrum[1] != 4 {
		t.Errorf("Spectrum = %v, want [0 4]", p.Spectrum)
	}

	// Quantities not requested are silently skipped.
	p.SetRedshift(2)
	p.SetEmissionTime(-10)
}

func TestImpactCoordsRoundTrip(t *testing.T) {
	p := NewProperties(QuantityImpactCoords, 1, 0)
	p.Init()

	obj := [8]float64{0, 1, 2, 3, 4, 5, 6, 7}
	ph := [8]float64{8, 9, 10, 11, 12, 13, 14, 15}
	p.SetImpactCoords(obj, ph)

	got := p.ImpactCoordsAt(0)
	for i := 0; i < 8; i++ {
		if got[i] != obj[i] {
			t.Errorf("object coord %d = %g, want %g", i, got[i], obj[i])
		}
		if got[8+i] != ph[i] {
			t.Errorf("photon coord %d = %g, want %g", i, got[8+i], ph[i])
		}
	}
}

func TestStateFromCoordsRoundTrip(t *testing.T) {
	s := RayState{
		Position: [4]float64{1, 2, 3, 4},
		Velocity: [4]float64{5, 6, 7, 8},
	}
	got := StateFromCoords(s.Coords())
	if got != s {
		t.Errorf("round trip changed state: %+v", got)
	}
}
