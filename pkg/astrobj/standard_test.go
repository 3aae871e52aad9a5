package astrobj

import (
	"math"
	"testing"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
	"github.com/df07/go-geodesic-raytracer/pkg/metric"
)

// stubPhoton is a hand-built history for driving Impact directly: a list of
// states in decreasing coordinate time with linear interpolation between
// them, plus the transmission bookkeeping of a real photon.
type stubPhoton struct {
	m      core.Metric
	states []core.RayState

	freqObs   float64
	freqs     []float64
	trans     float64
	transFreq []float64
}

func newStubPhoton(m core.Metric, states ...core.RayState) *stubPhoton {
	return &stubPhoton{m: m, states: states, freqObs: 1, trans: 1}
}

func (p *stubPhoton) Coord(index int) core.RayState { return p.states[index] }
func (p *stubPhoton) Len() int                      { return len(p.states) }
func (p *stubPhoton) Metric() core.Metric           { return p.m }
func (p *stubPhoton) FreqObs() float64              { return p.freqObs }
func (p *stubPhoton) Frequencies() []float64        { return p.freqs }
func (p *stubPhoton) Transmission() float64         { return p.trans }
func (p *stubPhoton) TransmissionAt(ch int) float64 { return p.transFreq[ch] }
func (p *stubPhoton) Absorb(tr float64)             { p.trans *= tr }
func (p *stubPhoton) AbsorbAt(ch int, tr float64)   { p.transFreq[ch] *= tr }

func (p *stubPhoton) CoordAt(t float64) core.RayState {
	n := len(p.states)
	if t >= p.states[0].Time() {
		return p.states[0]
	}
	if t <= p.states[n-1].Time() {
		return p.states[n-1]
	}
	for i := 1; i < n; i++ {
		if p.states[i].Time() <= t {
			a, b := p.states[i-1], p.states[i]
			return a.Lerp(b, (a.Time()-t)/(a.Time()-b.Time()))
		}
	}
	return p.states[n-1]
}

// ball is a minimal Standard variant for the tests: a sphere of the given
// radius centred on the origin, counting potential evaluations so the
// shortcut paths can be verified.
type ball struct {
	Standard
	evals int
}

func newBall(radius float64) *ball {
	b := &ball{}
	b.Standard = newStandard(b)
	b.potential = b.potentialAt
	b.velocity = func(pos [4]float64) [4]float64 { return [4]float64{1, 0, 0, 0} }
	b.criticalValue = radius * radius
	b.safetyValue = 1.1 * b.criticalValue
	b.rMax = radius
	return b
}

func (b *ball) potentialAt(pos [4]float64) float64 {
	b.evals++
	switch b.metric.CoordKind() {
	case core.CoordSpherical:
		return pos[1] * pos[1]
	case core.CoordCartesian:
		return pos[1]*pos[1] + pos[2]*pos[2] + pos[3]*pos[3]
	}
	return math.Inf(1)
}

// Constant unit surface brightness; thin mode reports the path element so the
// accumulated intensity equals the path length inside the ball.
func (b *ball) Emission(nuEm, dsEm float64, pos [4]float64) float64 {
	if b.opticallyThin {
		return dsEm
	}
	return 1
}

func (b *ball) Transmission(nuEm, dsEm float64, pos [4]float64) float64 {
	if b.opticallyThin {
		return 1
	}
	return 0
}

func allQuantities() core.Quantity {
	return core.QuantityIntensity | core.QuantityEmissionTime |
		core.QuantityMinDistance | core.QuantityRedshift | core.QuantityImpactCoords
}

func TestStandardImpactThickFirstContact(t *testing.T) {
	b := newBall(2)
	m := metric.NewMinkowski(core.CoordSpherical)
	if err := b.SetMetric(m); err != nil {
		t.Fatal(err)
	}

	// Radial segment: r = 10 + t going backward, crossing r = 2 at t = -8.
	ph := newStubPhoton(m,
		core.RayState{Position: [4]float64{0, 10, math.Pi / 2, 0}, Velocity: [4]float64{1, 1, 0, 0}},
		core.RayState{Position: [4]float64{-9, 1, math.Pi / 2, 0}, Velocity: [4]float64{1, 1, 0, 0}},
	)
	data := core.NewProperties(allQuantities(), 1, 0)
	data.Init()

	if !b.Impact(ph, 0, data) {
		t.Fatal("Impact() = false, want hit")
	}
	if data.Intensity[0] != 1 {
		t.Errorf("Intensity = %g, want 1 (single surface contribution)", data.Intensity[0])
	}
	// First contact is just inside r = 2, reached near t = -8.
	if et := data.EmissionTime[0]; et > -7.9 || et < -8.2 {
		t.Errorf("EmissionTime = %g, want about -8", et)
	}
	if g := data.Redshift[0]; math.Abs(g-1) > 1e-12 {
		t.Errorf("Redshift = %g, want 1 for a static emitter in flat space", g)
	}
	ic := data.ImpactCoordsAt(0)
	if ic[0] == core.NoImpact {
		t.Error("impact coordinates not recorded on a thick hit")
	}
	if r := ic[9]; r > 2 || r < 1.8 {
		t.Errorf("photon impact radius = %g, want just inside 2", r)
	}
}

func TestStandardImpactThinAccumulatesPath(t *testing.T) {
	b := newBall(2)
	b.SetOpticallyThin(true)
	m := metric.NewMinkowski(core.CoordCartesian)
	if err := b.SetMetric(m); err != nil {
		t.Fatal(err)
	}

	// Straight line through the centre: x = 2.05 + t, inside |x| < 2 for a
	// coordinate-time span of 4. The later endpoint sits inside the safety
	// band, as the step limiter guarantees for a ray about to enter.
	ph := newStubPhoton(m,
		core.RayState{Position: [4]float64{0, 2.05, 0, 0}, Velocity: [4]float64{1, 1, 0, 0}},
		core.RayState{Position: [4]float64{-7, -4.95, 0, 0}, Velocity: [4]float64{1, 1, 0, 0}},
	)
	data := core.NewProperties(core.QuantityIntensity, 1, 0)
	data.Init()

	if !b.Impact(ph, 0, data) {
		t.Fatal("Impact() = false, want hit")
	}
	// Each sub-step inside contributes its path element; the total must be
	// close to the chord length, within one sub-step at each end.
	if got := data.Intensity[0]; got < 3.7 || got > 4.3 {
		t.Errorf("accumulated path = %g, want about 4", got)
	}
}

func TestStandardBoundingRejectSkipsPotential(t *testing.T) {
	b := newBall(2)
	m := metric.NewMinkowski(core.CoordSpherical)
	if err := b.SetMetric(m); err != nil {
		t.Fatal(err)
	}

	// Both endpoints beyond boundFactor*rMax = 4: rejected with zero
	// potential evaluations.
	ph := newStubPhoton(m,
		core.RayState{Position: [4]float64{0, 30, math.Pi / 2, 0}},
		core.RayState{Position: [4]float64{-1, 29, math.Pi / 2, 0}},
	)
	data := core.NewProperties(core.QuantityIntensity, 1, 0)
	data.Init()

	if b.Impact(ph, 0, data) {
		t.Error("Impact() = true far outside the bounding radius")
	}
	if b.evals != 0 {
		t.Errorf("potential evaluated %d times, want 0", b.evals)
	}
}

func TestStandardSafetyBandShortcut(t *testing.T) {
	b := newBall(2)
	m := metric.NewMinkowski(core.CoordSpherical)
	if err := b.SetMetric(m); err != nil {
		t.Fatal(err)
	}

	// Inside the bounding radius but with both endpoint potentials above the
	// safety band: only the two endpoint evaluations happen.
	ph := newStubPhoton(m,
		core.RayState{Position: [4]float64{0, 3.5, math.Pi / 2, 0}},
		core.RayState{Position: [4]float64{-1, 3.4, math.Pi / 2, 0}},
	)
	data := core.NewProperties(core.QuantityIntensity, 1, 0)
	data.Init()

	if b.Impact(ph, 0, data) {
		t.Error("Impact() = true with both endpoints outside the safety band")
	}
	if b.evals != 2 {
		t.Errorf("potential evaluated %d times, want 2", b.evals)
	}
}

func TestStandardMinDistanceTracked(t *testing.T) {
	b := newBall(2)
	m := metric.NewMinkowski(core.CoordSpherical)
	if err := b.SetMetric(m); err != nil {
		t.Fatal(err)
	}

	// A segment that approaches to r = 3 without touching the ball.
	ph := newStubPhoton(m,
		core.RayState{Position: [4]float64{0, 3.2, math.Pi / 2, 0}},
		core.RayState{Position: [4]float64{-1, 3.0, math.Pi / 2, 0}},
	)
	data := core.NewProperties(core.QuantityIntensity|core.QuantityMinDistance, 1, 0)
	data.Init()

	b.Impact(ph, 0, data)
	if got := data.MinDistance[0]; math.Abs(got-3.0) > 0.05 {
		t.Errorf("MinDistance = %g, want about 3", got)
	}
}

func TestStandardDeltaMaxShrinksNearSurface(t *testing.T) {
	b := newBall(2)

	far := b.DeltaMax([4]float64{0, 10, math.Pi / 2, 0})
	near := b.DeltaMax([4]float64{0, 2.1, math.Pi / 2, 0})
	if near >= far {
		t.Errorf("DeltaMax near = %g, far = %g; want smaller near the surface", near, far)
	}
	// Inside the object the cap bottoms out at the object scale.
	inside := b.DeltaMax([4]float64{0, 0.1, math.Pi / 2, 0})
	if want := 0.1 * math.Sqrt(b.CriticalValue()); math.Abs(inside-want) > 1e-12 {
		t.Errorf("DeltaMax inside = %g, want %g", inside, want)
	}
}
